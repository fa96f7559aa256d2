package service

import (
	"errors"
	"fmt"
	"math"

	"palmpay/pkg/apperror"
)

// CosineSimilarity returns dot(a,b) / (|a|*|b|), clamped to [-1, 1].
// It is 0 when either vector has zero norm and fails with a dimension
// mismatch when the lengths differ.
func CosineSimilarity(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, apperror.ErrDimensionMismatch(len(a), len(b))
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(score) {
		return 0, apperror.ErrIntegrity(errors.New("similarity is not a number"))
	}
	return math.Max(-1, math.Min(1, score)), nil
}

// validateVector rejects empty vectors, non-finite components and, when
// dims > 0, vectors of the wrong length.
func validateVector(v []float64, dims int) error {
	if len(v) == 0 {
		return apperror.ErrInvalidEmbedding("Palm embedding must not be empty")
	}
	if dims > 0 && len(v) != dims {
		return apperror.ErrInvalidEmbedding(fmt.Sprintf("Palm embedding must have %d dimensions, got %d", dims, len(v)))
	}
	for _, f := range v {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return apperror.ErrInvalidEmbedding("Palm embedding contains non-finite values")
		}
	}
	return nil
}
