package service

import (
	"context"
	"errors"

	"palmpay/internal/core/ports"
	"palmpay/pkg/apperror"
)

// queryVector turns exactly one of a raw vector or a capture artifact into a
// validated feature vector.
func queryVector(ctx context.Context, extractor ports.EmbeddingExtractor, input ports.EmbeddingInput, dims int) ([]float64, error) {
	hasVector := len(input.Vector) > 0
	hasArtifact := len(input.Artifact) > 0

	switch {
	case hasVector && hasArtifact:
		return nil, apperror.ErrAmbiguousInput()
	case !hasVector && !hasArtifact:
		return nil, apperror.ErrMissingInput()
	}

	vector := input.Vector
	if hasArtifact {
		if extractor == nil {
			return nil, apperror.ErrExtraction(errors.New("no extractor configured"))
		}
		var err error
		vector, err = extractor.Extract(ctx, input.Artifact)
		if err != nil {
			if apperror.HasCode(err, apperror.CodeExtraction) {
				return nil, err
			}
			return nil, apperror.ErrExtraction(err)
		}
	}

	if err := validateVector(vector, dims); err != nil {
		return nil, err
	}
	return vector, nil
}
