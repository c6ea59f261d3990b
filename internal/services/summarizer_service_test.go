package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmalikzadeh/ai-interview/internal/cache"
	"github.com/dmalikzadeh/ai-interview/internal/utils"
)

func TestSummarizeDescriptionSkipsShortAndCondensed(t *testing.T) {
	provider := &fakeLLM{out: "condensed"}
	svc := NewDocumentSummarizer(provider, cache.NewMemoryCache(), nil)

	short := "Build APIs in Go."
	if got := svc.SummarizeDescription(context.Background(), "  "+short+" "); got != short {
		t.Fatalf("short description = %q, want %q", got, short)
	}

	marked := summaryMarker + " " + strings.Repeat("x", 300)
	if got := svc.SummarizeDescription(context.Background(), marked); got != marked {
		t.Fatalf("condensed description changed")
	}
	if n := len(provider.Requests()); n != 0 {
		t.Fatalf("model called %d times, want 0", n)
	}
}

func TestSummarizeDescriptionCondensesAndCaches(t *testing.T) {
	provider := &fakeLLM{out: "Go backend role, owns payments APIs."}
	svc := NewDocumentSummarizer(provider, cache.NewMemoryCache(), nil)

	long := strings.Repeat("We are hiring a backend engineer. ", 10)
	want := summaryMarker + " Go backend role, owns payments APIs."
	for i := 0; i < 2; i++ {
		if got := svc.SummarizeDescription(context.Background(), long); got != want {
			t.Fatalf("call %d = %q, want %q", i, got, want)
		}
	}
	if n := len(provider.Requests()); n != 1 {
		t.Fatalf("model called %d times, want 1", n)
	}
}

func TestSummarizeDescriptionKeepsOriginalOnFailure(t *testing.T) {
	svc := NewDocumentSummarizer(&fakeLLM{err: errors.New("boom")}, nil, nil)

	long := strings.TrimSpace(strings.Repeat("Responsibilities include on-call. ", 10))
	if got := svc.SummarizeDescription(context.Background(), long); got != long {
		t.Fatalf("got %q, want original", got)
	}
}

func TestSummarizeCVAttachesPDF(t *testing.T) {
	provider := &fakeLLM{out: "Five years of Go."}
	svc := NewDocumentSummarizer(provider, cache.NewMemoryCache(), nil)

	pdf := []byte("%PDF-1.4 fake")
	for i := 0; i < 2; i++ {
		got, err := svc.SummarizeCV(context.Background(), pdf, mimePDF)
		if err != nil || got != "Five years of Go." {
			t.Fatalf("SummarizeCV() = %q, %v", got, err)
		}
	}

	reqs := provider.Requests()
	if len(reqs) != 1 {
		t.Fatalf("model called %d times, want 1", len(reqs))
	}
	if len(reqs[0].Attachments) != 1 || reqs[0].Attachments[0].MIMEType != mimePDF {
		t.Fatalf("attachments = %+v", reqs[0].Attachments)
	}
}

func TestSummarizeCVText(t *testing.T) {
	provider := &fakeLLM{out: "Data engineer."}
	svc := NewDocumentSummarizer(provider, nil, nil)

	if _, err := svc.SummarizeCV(context.Background(), []byte("Jane Doe, data engineer"), mimeText); err != nil {
		t.Fatalf("SummarizeCV() error = %v", err)
	}
	req := provider.Requests()[0]
	if len(req.Attachments) != 0 || !strings.Contains(req.Messages[0].Text, "Jane Doe") {
		t.Fatalf("request = %+v", req)
	}
}

func TestSummarizeCVErrors(t *testing.T) {
	svc := NewDocumentSummarizer(&fakeLLM{err: errors.New("boom")}, nil, nil)

	if _, err := svc.SummarizeCV(context.Background(), nil, mimePDF); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("empty file error = %v", err)
	}
	if _, err := svc.SummarizeCV(context.Background(), []byte("cv"), mimeText); !utils.IsCode(err, utils.CodeUpstream) {
		t.Fatalf("provider failure error = %v", err)
	}

	off := NewDocumentSummarizer(nil, nil, nil)
	if got, err := off.SummarizeCV(context.Background(), []byte("cv"), mimeText); err != nil || got != fallbackCVSummary {
		t.Fatalf("without model = %q, %v", got, err)
	}
}
