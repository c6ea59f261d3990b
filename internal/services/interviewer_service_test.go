package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dmalikzadeh/ai-interview/internal/interview"
	"github.com/dmalikzadeh/ai-interview/internal/models"
	"github.com/dmalikzadeh/ai-interview/internal/providers/llm"
	"github.com/dmalikzadeh/ai-interview/internal/utils"
)

var testConfig = interview.SessionConfig{
	CandidateName:   "Sam",
	Role:            "Backend Engineer",
	Company:         "Acme",
	DurationSeconds: 600,
}

func TestNextTurnForcedEndSkipsModel(t *testing.T) {
	provider := &fakeLLM{out: `{"message":"unused"}`}
	logs := &fakeTurnLogs{}
	svc := NewInterviewerService(provider, logs, nil)

	resp, err := svc.NextTurn(context.Background(), interview.TurnRequest{
		SessionID:        "s1",
		Config:           testConfig,
		RemainingSeconds: -61,
	})
	if err != nil {
		t.Fatalf("NextTurn() error = %v", err)
	}
	if resp != interview.ForcedEndResponse() {
		t.Fatalf("NextTurn() = %+v, want forced end", resp)
	}
	if n := len(provider.Requests()); n != 0 {
		t.Fatalf("model called %d times, want 0", n)
	}
	if got := logs.Outcomes(); len(got) != 1 || got[0] != models.AIOutcomeForced {
		t.Fatalf("outcomes = %v", got)
	}
}

func TestNextTurnWithoutModelFallsBack(t *testing.T) {
	svc := NewInterviewerService(nil, nil, nil)

	resp, err := svc.NextTurn(context.Background(), interview.TurnRequest{SessionID: "s1", Config: testConfig, RemainingSeconds: 300})
	if err != nil {
		t.Fatalf("NextTurn() error = %v", err)
	}
	if !strings.Contains(resp.Message, "Backend Engineer") || resp.Ended {
		t.Fatalf("NextTurn() = %+v", resp)
	}
	if resp.Note != interview.NeutralNote() {
		t.Fatalf("note = %+v, want neutral", resp.Note)
	}
}

func TestNextTurnParsesModelJSON(t *testing.T) {
	provider := &fakeLLM{out: "```json\n" + `{"message":"Tell me about a hard bug.","note":{"strength":"clear","criticism":"","score":4.6},"ended":false}` + "\n```"}
	svc := NewInterviewerService(provider, nil, nil)

	history := []interview.Turn{
		{Role: interview.RoleInterviewer, Text: "Hi Sam!"},
		{Role: interview.RoleCandidate, Text: "Hello, doing well."},
	}
	resp, err := svc.NextTurn(context.Background(), interview.TurnRequest{
		SessionID:        "s1",
		Config:           testConfig,
		History:          history,
		RemainingSeconds: 300,
	})
	if err != nil {
		t.Fatalf("NextTurn() error = %v", err)
	}
	want := interview.TurnResponse{
		Message: "Tell me about a hard bug.",
		Note:    interview.Note{Strength: "clear", Criticism: "None", Score: 5},
	}
	if resp != want {
		t.Fatalf("NextTurn() = %+v, want %+v", resp, want)
	}

	reqs := provider.Requests()
	if len(reqs) != 1 || !reqs[0].JSON {
		t.Fatalf("requests = %+v, want one JSON request", reqs)
	}
	msgs := reqs[0].Messages
	if len(msgs) != 2 || msgs[0].Role != llm.RoleModel || msgs[1].Role != llm.RoleUser {
		t.Fatalf("messages = %+v", msgs)
	}
	if !strings.Contains(reqs[0].System, "Time remaining: 300 seconds") {
		t.Fatalf("system prompt missing remaining time: %q", reqs[0].System)
	}
}

func TestNextTurnMalformedDegradesToText(t *testing.T) {
	provider := &fakeLLM{out: "Sure, tell me more about that."}
	logs := &fakeTurnLogs{}
	svc := NewInterviewerService(provider, logs, nil)

	resp, err := svc.NextTurn(context.Background(), interview.TurnRequest{SessionID: "s1", Config: testConfig, RemainingSeconds: 300})
	if err != nil {
		t.Fatalf("NextTurn() error = %v", err)
	}
	if resp.Message != "Sure, tell me more about that." || resp.Note != interview.NeutralNote() || resp.Ended {
		t.Fatalf("NextTurn() = %+v", resp)
	}
	if got := logs.Outcomes(); len(got) != 1 || got[0] != models.AIOutcomeMalformed {
		t.Fatalf("outcomes = %v", got)
	}
}

func TestNextTurnProviderErrorIsUnavailable(t *testing.T) {
	provider := &fakeLLM{err: errors.New("quota exceeded")}
	svc := NewInterviewerService(provider, nil, nil)

	_, err := svc.NextTurn(context.Background(), interview.TurnRequest{SessionID: "s1", Config: testConfig, RemainingSeconds: 300})
	if !utils.IsCode(err, utils.CodeUnavailable) {
		t.Fatalf("NextTurn() error = %v, want UNAVAILABLE", err)
	}
}

func TestFirstMessageFallsBackOnError(t *testing.T) {
	provider := &fakeLLM{err: errors.New("boom")}
	svc := NewInterviewerService(provider, nil, nil)

	msg, err := svc.FirstMessage(context.Background(), "s1", testConfig)
	if err != nil {
		t.Fatalf("FirstMessage() error = %v", err)
	}
	if msg != fallbackFirstMessage(testConfig) {
		t.Fatalf("FirstMessage() = %q", msg)
	}
}

func TestFirstMessageUsesModel(t *testing.T) {
	provider := &fakeLLM{out: "  Hi Sam, I'm Ava from Acme. How are you today?  "}
	svc := NewInterviewerService(provider, nil, nil)

	msg, err := svc.FirstMessage(context.Background(), "s1", testConfig)
	if err != nil {
		t.Fatalf("FirstMessage() error = %v", err)
	}
	if msg != "Hi Sam, I'm Ava from Acme. How are you today?" {
		t.Fatalf("FirstMessage() = %q", msg)
	}
	if reqs := provider.Requests(); reqs[0].MaxTokens != 150 || reqs[0].JSON {
		t.Fatalf("request = %+v", reqs[0])
	}
}

func TestHistoryMessagesKeepsMostRecent(t *testing.T) {
	var turns []interview.Turn
	for i := 0; i < 14; i++ {
		role := interview.RoleCandidate
		if i%2 == 0 {
			role = interview.RoleInterviewer
		}
		turns = append(turns, interview.Turn{Role: role, Text: fmt.Sprintf("turn %d", i)})
	}
	turns = append(turns, interview.Turn{Role: interview.RoleCandidate, Text: "   "})

	msgs := historyMessages(turns)
	if len(msgs) != interview.HistoryLimit-1 {
		t.Fatalf("len = %d, want %d", len(msgs), interview.HistoryLimit-1)
	}
	if msgs[0].Text != "turn 5" || msgs[0].Role != llm.RoleUser {
		t.Fatalf("first message = %+v", msgs[0])
	}
}

func TestParseTurnResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    interview.TurnResponse
		wantErr bool
	}{
		{
			name: "closing",
			raw:  `{"message":"Thanks, that's all.","note":{"strength":"calm","criticism":"more detail","score":3},"ended":true}`,
			want: interview.TurnResponse{Message: "Thanks, that's all.", Note: interview.Note{Strength: "calm", Criticism: "more detail", Score: 3}, Ended: true},
		},
		{
			name: "missing note",
			raw:  `{"message":"Go on."}`,
			want: interview.TurnResponse{Message: "Go on.", Note: interview.NeutralNote()},
		},
		{
			name: "score out of range",
			raw:  `{"message":"Next.","note":{"strength":"a","criticism":"b","score":9}}`,
			want: interview.TurnResponse{Message: "Next.", Note: interview.Note{Strength: "a", Criticism: "b", Score: 5}},
		},
		{
			name:    "empty message",
			raw:     `{"message":"  "}`,
			want:    interview.TurnResponse{Note: interview.NeutralNote()},
			wantErr: true,
		},
		{
			name:    "plain text",
			raw:     "not json",
			want:    interview.TurnResponse{Message: "not json", Note: interview.NeutralNote()},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTurnResponse(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, interview.ErrMalformedResponse) {
				t.Fatalf("error = %v, want ErrMalformedResponse", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
