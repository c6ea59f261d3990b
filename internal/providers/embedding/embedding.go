package embedding

import (
	"context"
	"errors"
	"fmt"

	aiplatform "cloud.google.com/go/aiplatform/apiv1"
	"cloud.google.com/go/aiplatform/apiv1/aiplatformpb"
	"google.golang.org/api/option"
	"google.golang.org/protobuf/types/known/structpb"
)

// Dimensions matches the vector(768) columns.
const Dimensions = 768

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Close() error
}

var ErrNoEmbedding = errors.New("embedding response is empty")

// VertexEmbedder calls a Vertex AI text-embedding publisher model.
type VertexEmbedder struct {
	c        *aiplatform.PredictionClient
	endpoint string
}

func NewVertexEmbedder(ctx context.Context, projectID, location, model string) (*VertexEmbedder, error) {
	if model == "" {
		model = "text-embedding-004"
	}
	c, err := aiplatform.NewPredictionClient(ctx, option.WithEndpoint(location+"-aiplatform.googleapis.com:443"))
	if err != nil {
		return nil, err
	}
	return &VertexEmbedder{
		c:        c,
		endpoint: fmt.Sprintf("projects/%s/locations/%s/publishers/google/models/%s", projectID, location, model),
	}, nil
}

func (e *VertexEmbedder) Close() error { return e.c.Close() }

func (e *VertexEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	instance, err := structpb.NewValue(map[string]any{
		"content":   text,
		"task_type": "SEMANTIC_SIMILARITY",
	})
	if err != nil {
		return nil, err
	}
	params, err := structpb.NewValue(map[string]any{"outputDimensionality": Dimensions})
	if err != nil {
		return nil, err
	}

	resp, err := e.c.Predict(ctx, &aiplatformpb.PredictRequest{
		Endpoint:   e.endpoint,
		Instances:  []*structpb.Value{instance},
		Parameters: params,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.GetPredictions()) == 0 {
		return nil, ErrNoEmbedding
	}
	return parsePrediction(resp.GetPredictions()[0])
}

// parsePrediction reads {"embeddings": {"values": [...]}}.
func parsePrediction(p *structpb.Value) ([]float32, error) {
	values := p.GetStructValue().GetFields()["embeddings"].GetStructValue().GetFields()["values"].GetListValue().GetValues()
	if len(values) == 0 {
		return nil, ErrNoEmbedding
	}
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v.GetNumberValue())
	}
	return out, nil
}
