package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/nats-io/nats.go"

	"NetSentry/internal/model"
)

// NATSScorer sends feature vectors to an external model service over NATS
// request/reply. Calls are bounded by the caller's context; a timeout or
// transport error surfaces as a scorer error and the pipeline fails open.
type NATSScorer struct {
	nc      *nats.Conn
	subject string
}

// NewNATSScorer connects to the NATS server hosting the scoring service.
func NewNATSScorer(url, subject string) (*NATSScorer, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Printf("Connected to NATS scorer at %s (subject %q)", url, subject)
	return &NATSScorer{nc: nc, subject: subject}, nil
}

// Score implements model.Scorer.
func (s *NATSScorer) Score(ctx context.Context, fv *model.FeatureVector) (model.Verdict, error) {
	data, err := json.Marshal(fv)
	if err != nil {
		return model.Verdict{}, fmt.Errorf("failed to marshal feature vector: %w", err)
	}

	msg, err := s.nc.RequestWithContext(ctx, s.subject, data)
	if err != nil {
		return model.Verdict{}, fmt.Errorf("scorer request failed: %w", err)
	}

	var v model.Verdict
	if err := json.Unmarshal(msg.Data, &v); err != nil {
		return model.Verdict{}, fmt.Errorf("failed to unmarshal scorer reply: %w", err)
	}
	return v, nil
}

// Close drains and closes the NATS connection.
func (s *NATSScorer) Close() {
	if s.nc != nil {
		s.nc.Drain()
	}
}
