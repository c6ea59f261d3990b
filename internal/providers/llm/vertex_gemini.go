package llm

import (
	"context"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/iterator"
)

type VertexGemini struct {
	client    *vertexgenai.Client
	modelName string
}

func NewVertexGemini(ctx context.Context, projectID, location, modelName string) (*VertexGemini, error) {
	c, err := vertexgenai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, err
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	return &VertexGemini{client: c, modelName: modelName}, nil
}

func (v *VertexGemini) Close() error { return v.client.Close() }

// model builds a fresh handle per request; GenerativeModel settings are not
// safe to mutate from concurrent sessions.
func (v *VertexGemini) model(req CompletionRequest) *vertexgenai.GenerativeModel {
	m := v.client.GenerativeModel(v.modelName)
	if req.System != "" {
		m.SystemInstruction = &vertexgenai.Content{Parts: []vertexgenai.Part{vertexgenai.Text(req.System)}}
	}
	if req.Temperature > 0 {
		m.SetTemperature(req.Temperature)
	}
	if req.MaxTokens > 0 {
		m.SetMaxOutputTokens(req.MaxTokens)
	}
	if req.JSON {
		m.ResponseMIMEType = "application/json"
	}
	return m
}

func (v *VertexGemini) StreamCompletion(ctx context.Context, req CompletionRequest) (<-chan string, <-chan error) {
	out := make(chan string, 32)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		msgs := mergeRoles(req.Messages)
		// Gemini chat history must open with a user turn.
		if len(msgs) > 0 && msgs[0].Role == RoleModel {
			msgs = append([]Message{{Role: RoleUser, Text: "Start the interview."}}, msgs...)
		}
		if len(msgs) == 0 || msgs[len(msgs)-1].Role != RoleUser {
			msgs = append(msgs, Message{Role: RoleUser, Text: "Continue."})
		}
		last := msgs[len(msgs)-1]

		cs := v.model(req).StartChat()
		for _, m := range msgs[:len(msgs)-1] {
			cs.History = append(cs.History, &vertexgenai.Content{
				Role:  m.Role,
				Parts: []vertexgenai.Part{vertexgenai.Text(m.Text)},
			})
		}

		parts := make([]vertexgenai.Part, 0, len(req.Attachments)+1)
		for _, a := range req.Attachments {
			parts = append(parts, vertexgenai.Blob{MIMEType: a.MIMEType, Data: a.Data})
		}
		parts = append(parts, vertexgenai.Text(last.Text))

		it := cs.SendMessageStream(ctx, parts...)
		for {
			resp, err := it.Next()
			if err == iterator.Done {
				return
			}
			if err != nil {
				errs <- err
				return
			}

			for _, cand := range resp.Candidates {
				if cand.Content == nil {
					continue
				}
				for _, part := range cand.Content.Parts {
					if t, ok := part.(vertexgenai.Text); ok && string(t) != "" {
						select {
						case out <- string(t):
						case <-ctx.Done():
							errs <- ctx.Err()
							return
						}
					}
				}
			}
		}
	}()

	return out, errs
}
