package model

import "context"

// Verdict is the scorer's decision for a single feature vector.
type Verdict struct {
	Anomalous bool    `json:"anomalous"`
	Loss      float64 `json:"loss"`
}

// Scorer classifies a feature vector as anomalous or not. Implementations
// must respect the context deadline; a slow scorer is treated as
// unavailable and the source stays monitored (fail-open).
type Scorer interface {
	Score(ctx context.Context, fv *FeatureVector) (Verdict, error)
}
