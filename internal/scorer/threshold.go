// Package scorer provides the anomaly scorer implementations consumed by
// the pipeline. A scorer maps a feature vector to a loss and an
// anomalous/benign verdict; the model behind the loss is pluggable.
package scorer

import (
	"context"

	"NetSentry/internal/model"
)

// LossModel computes an anomaly loss (e.g. a reconstruction error) for a
// single feature vector.
type LossModel interface {
	Loss(fv *model.FeatureVector) float64
}

// Threshold wraps a loss model and applies a fixed anomaly cutoff:
// loss >= threshold is classified as an attack.
type Threshold struct {
	model     LossModel
	threshold float64
}

// NewThreshold creates a threshold scorer around the given loss model.
func NewThreshold(m LossModel, threshold float64) *Threshold {
	return &Threshold{model: m, threshold: threshold}
}

// Score implements model.Scorer. The built-in models are cheap enough that
// the context is only checked once up front.
func (s *Threshold) Score(ctx context.Context, fv *model.FeatureVector) (model.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return model.Verdict{}, err
	}
	loss := s.model.Loss(fv)
	return model.Verdict{Anomalous: loss >= s.threshold, Loss: loss}, nil
}

// RateBaseline is a trivial built-in loss model that scores a source by
// its mean packet rate across the summarized windows. It exists as a sane
// default for simulations and smoke tests; production deployments plug in
// a trained model behind the NATS scorer instead.
type RateBaseline struct{}

// Loss implements LossModel.
func (RateBaseline) Loss(fv *model.FeatureVector) float64 {
	return fv.PktRate
}
