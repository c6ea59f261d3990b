package llm

import (
	"context"
	"errors"
	"strings"
)

const (
	RoleUser  = "user"
	RoleModel = "model"
)

type Message struct {
	Role string // user|model
	Text string
}

// Attachment is inline binary input, ex: a PDF CV.
type Attachment struct {
	MIMEType string
	Data     []byte
}

type CompletionRequest struct {
	System      string
	Messages    []Message
	Attachments []Attachment

	Temperature float32
	MaxTokens   int32
	// JSON asks the model for a single JSON object.
	JSON bool
}

type Provider interface {
	// StreamCompletion returns a stream of text chunks (incremental).
	StreamCompletion(ctx context.Context, req CompletionRequest) (chunks <-chan string, errs <-chan error)
	Close() error
}

var ErrEmptyCompletion = errors.New("llm returned no text")

// Complete drains a streamed completion into one trimmed string.
func Complete(ctx context.Context, p Provider, req CompletionRequest) (string, error) {
	chunks, errs := p.StreamCompletion(ctx, req)

	var b strings.Builder
	for chunk := range chunks {
		b.WriteString(chunk)
	}
	if err := <-errs; err != nil {
		return "", err
	}

	out := strings.TrimSpace(b.String())
	if out == "" {
		return "", ErrEmptyCompletion
	}
	return out, nil
}

// mergeRoles joins consecutive messages from the same role and drops empty
// ones; chat history must alternate between user and model.
func mergeRoles(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		text := strings.TrimSpace(m.Text)
		if text == "" {
			continue
		}
		role := m.Role
		if role != RoleModel {
			role = RoleUser
		}
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Text += "\n" + text
			continue
		}
		out = append(out, Message{Role: role, Text: text})
	}
	return out
}
