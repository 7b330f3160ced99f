package model

import "context"

// FeatureWriter defines a generic interface for persisting emitted feature
// vectors to an external store.
type FeatureWriter interface {
	// WriteFeatures persists a batch of feature vectors.
	WriteFeatures(ctx context.Context, vectors []*FeatureVector) error

	// Close releases the underlying connection or file handles.
	Close() error
}
