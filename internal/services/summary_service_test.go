package services

import (
	"context"
	"errors"
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/dmalikzadeh/ai-interview/internal/interview"
	"github.com/dmalikzadeh/ai-interview/internal/utils"
)

func TestSummarizeParsesModelOutput(t *testing.T) {
	provider := &fakeLLM{out: "```json\n" + `{
		"intro": " You did well. ",
		"score": 12.34,
		"strengths": ["Clear answers", " "],
		"improvements": ["Use examples"],
		"finalNote": "Keep going!"
	}` + "\n```"}
	svc := NewSummaryService(provider, nil, nil)

	notes := []interview.Note{{Strength: "clear", Criticism: "None", Score: 4}}
	got, err := svc.Summarize(context.Background(), "s1", testConfig, notes)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	want := Summary{
		Intro:        "You did well.",
		OverallScore: 10,
		Strengths:    []string{"Clear answers"},
		Improvements: []string{"Use examples"},
		FinalNote:    "Keep going!",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Summarize() = %+v, want %+v", got, want)
	}

	req := provider.Requests()[0]
	if !strings.Contains(req.System, "Note 1: Strength: clear | Criticism: None | Score: 4/5") {
		t.Fatalf("prompt missing notes: %q", req.System)
	}
}

func TestSummarizeMalformedIsUpstream(t *testing.T) {
	for _, out := range []string{"no json here", `{"score": 5}`} {
		svc := NewSummaryService(&fakeLLM{out: out}, nil, nil)
		_, err := svc.Summarize(context.Background(), "s1", testConfig, nil)
		if !utils.IsCode(err, utils.CodeUpstream) {
			t.Fatalf("Summarize(%q) error = %v, want UPSTREAM_FAILED", out, err)
		}
	}
}

func TestSummarizeProviderErrorIsUpstream(t *testing.T) {
	svc := NewSummaryService(&fakeLLM{err: errors.New("timeout")}, nil, nil)
	if _, err := svc.Summarize(context.Background(), "s1", testConfig, nil); !utils.IsCode(err, utils.CodeUpstream) {
		t.Fatalf("Summarize() error = %v, want UPSTREAM_FAILED", err)
	}
}

func TestSummarizeWithoutModel(t *testing.T) {
	logs := &fakeTurnLogs{}
	svc := NewSummaryService(nil, logs, nil)

	got, err := svc.Summarize(context.Background(), "s1", testConfig, nil)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if got.OverallScore != 7.3 || len(got.Strengths) == 0 {
		t.Fatalf("Summarize() = %+v, want canned summary", got)
	}
	if len(logs.Outcomes()) != 1 {
		t.Fatalf("outcomes = %v", logs.Outcomes())
	}
}

func TestClampScore(t *testing.T) {
	tests := map[float64]float64{
		-1:         0,
		0:          0,
		6.66:       6.7,
		10:         10,
		10.5:       10,
		math.NaN(): 0,
	}
	for in, want := range tests {
		if got := clampScore(in); got != want {
			t.Errorf("clampScore(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestFormatNotesNormalizes(t *testing.T) {
	got := FormatNotes([]interview.Note{
		{Strength: "", Criticism: "pace", Score: 7},
		{Strength: "depth", Criticism: "None", Score: 2},
	})
	want := "Note 1: Strength: None | Criticism: pace | Score: 5/5\n" +
		"Note 2: Strength: depth | Criticism: None | Score: 2/5"
	if got != want {
		t.Fatalf("FormatNotes() = %q, want %q", got, want)
	}
}
