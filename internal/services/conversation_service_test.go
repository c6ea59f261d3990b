package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmalikzadeh/ai-interview/internal/interview"
	"github.com/dmalikzadeh/ai-interview/internal/utils"
)

func TestAppendEmbedsCandidateTurnsOnly(t *testing.T) {
	repo := newMemConvoRepo()
	svc := NewConversationService(repo, &fakeEmbedder{}, nil)
	ctx := context.Background()

	note := interview.Note{Strength: "calm", Criticism: "None", Score: 3}
	if _, err := svc.Append(ctx, "u1", "s1", 0, interview.Turn{Role: interview.RoleInterviewer, Text: "Why Go?", Note: &note, At: time.Now()}); err != nil {
		t.Fatalf("Append(interviewer) error = %v", err)
	}
	row, err := svc.Append(ctx, "u1", "s1", 1, interview.Turn{Role: interview.RoleCandidate, Text: "Simplicity."})
	if err != nil {
		t.Fatalf("Append(candidate) error = %v", err)
	}
	if row.Embedding == nil || row.Timestamp.IsZero() {
		t.Fatalf("candidate row = %+v", row)
	}
	if len(repo.embeddings) != 1 {
		t.Fatalf("embeddings = %d, want 1", len(repo.embeddings))
	}

	if _, err := svc.Append(ctx, "u1", "s1", 2, interview.Turn{Role: interview.RoleCandidate, Text: "  "}); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("Append(blank) error = %v", err)
	}
}

func TestAppendSurvivesEmbeddingFailure(t *testing.T) {
	repo := newMemConvoRepo()
	svc := NewConversationService(repo, &fakeEmbedder{err: errors.New("quota")}, nil)

	row, err := svc.Append(context.Background(), "u1", "s1", 0, interview.Turn{Role: interview.RoleCandidate, Text: "Hello"})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if row.Embedding != nil || len(repo.Rows()) != 1 {
		t.Fatalf("row = %+v, rows = %d", row, len(repo.Rows()))
	}
}

func TestNotesInTurnOrder(t *testing.T) {
	repo := newMemConvoRepo()
	svc := NewConversationService(repo, nil, nil)
	ctx := context.Background()

	first := interview.Note{Strength: "a", Criticism: "b", Score: 2}
	second := interview.Note{Strength: "", Criticism: "c", Score: 9}
	_, _ = svc.Append(ctx, "u1", "s1", 2, interview.Turn{Role: interview.RoleInterviewer, Text: "Q2", Note: &second})
	_, _ = svc.Append(ctx, "u1", "s1", 0, interview.Turn{Role: interview.RoleInterviewer, Text: "Q1", Note: &first})
	_, _ = svc.Append(ctx, "u1", "s1", 1, interview.Turn{Role: interview.RoleCandidate, Text: "A1"})
	_, _ = svc.Append(ctx, "u1", "other", 0, interview.Turn{Role: interview.RoleInterviewer, Text: "X", Note: &first})

	notes, err := svc.Notes(ctx, "u1", "s1")
	if err != nil {
		t.Fatalf("Notes() error = %v", err)
	}
	want := []interview.Note{first, {Strength: "None", Criticism: "c", Score: 5}}
	if len(notes) != len(want) || notes[0] != want[0] || notes[1] != want[1] {
		t.Fatalf("Notes() = %+v, want %+v", notes, want)
	}
}

func TestSearchSimilar(t *testing.T) {
	repo := newMemConvoRepo()
	ctx := context.Background()

	off := NewConversationService(repo, nil, nil)
	if _, err := off.SearchSimilar(ctx, "u1", "go", 5); !utils.IsCode(err, utils.CodeUnavailable) {
		t.Fatalf("SearchSimilar() without embedder error = %v", err)
	}

	svc := NewConversationService(repo, &fakeEmbedder{}, nil)
	_, _ = svc.Append(ctx, "u1", "s1", 0, interview.Turn{Role: interview.RoleCandidate, Text: "I like Go"})
	rows, err := svc.SearchSimilar(ctx, "u1", "golang", 5)
	if err != nil || len(rows) != 1 {
		t.Fatalf("SearchSimilar() = %v, %v", rows, err)
	}
	if _, err := svc.SearchSimilar(ctx, "u1", " ", 5); !utils.IsCode(err, utils.CodeInvalidArgument) {
		t.Fatalf("SearchSimilar(blank) error = %v", err)
	}

	failing := NewConversationService(repo, &fakeEmbedder{err: errors.New("boom")}, nil)
	if _, err := failing.SearchSimilar(ctx, "u1", "go", 5); !utils.IsCode(err, utils.CodeUpstream) {
		t.Fatalf("SearchSimilar() embed failure error = %v", err)
	}
}
