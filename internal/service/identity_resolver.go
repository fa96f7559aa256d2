package service

import (
	"context"
	"errors"

	"palmpay/internal/core/domain"
	"palmpay/internal/core/ports"
	"palmpay/pkg/apperror"

	"github.com/rs/zerolog"
)

// DefaultMatchThreshold is the minimum cosine similarity accepted as a match.
const DefaultMatchThreshold = 0.95

// CosineIdentityResolver implements ports.IdentityResolver with a linear scan.
type CosineIdentityResolver struct {
	vault     ports.EmbeddingVault
	threshold float64
	log       zerolog.Logger
}

// NewIdentityResolver creates a resolver. A threshold outside (0, 1] falls
// back to DefaultMatchThreshold.
func NewIdentityResolver(vault ports.EmbeddingVault, threshold float64, log zerolog.Logger) *CosineIdentityResolver {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultMatchThreshold
	}
	return &CosineIdentityResolver{vault: vault, threshold: threshold, log: log}
}

// Threshold returns the configured match threshold.
func (r *CosineIdentityResolver) Threshold() float64 {
	return r.threshold
}

// Resolve scans every candidate and returns the best one at or above the
// threshold. Candidates that fail to decrypt or have a different length are
// skipped. On equal scores the earlier candidate wins.
func (r *CosineIdentityResolver) Resolve(ctx context.Context, query []float64, candidates []domain.EnrolledEmbedding) (*ports.Match, error) {
	if len(query) == 0 {
		return nil, apperror.ErrInvalidEmbedding("Palm embedding must not be empty")
	}

	var best *ports.Match
	skipped := 0
	for i := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, scanAborted(err)
		}

		score, err := r.score(query, &candidates[i])
		if err != nil {
			skipped++
			continue
		}
		if best == nil || score > best.Score {
			best = &ports.Match{IdentityID: candidates[i].IdentityID, Score: score}
		}
	}

	event := r.log.Debug().Int("candidates", len(candidates)).Int("skipped", skipped)
	if best != nil {
		event = event.Float64("best_score", best.Score)
	}
	event.Msg("palm scan finished")

	if best == nil || best.Score < r.threshold {
		return nil, nil
	}
	return best, nil
}

// Verify compares the query against a single candidate under the same
// threshold rule. A corrupt or incompatible candidate is a non-match.
func (r *CosineIdentityResolver) Verify(ctx context.Context, query []float64, candidate domain.EnrolledEmbedding) (*ports.Match, error) {
	if len(query) == 0 {
		return nil, apperror.ErrInvalidEmbedding("Palm embedding must not be empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, scanAborted(err)
	}

	score, err := r.score(query, &candidate)
	if err != nil || score < r.threshold {
		return nil, nil
	}
	return &ports.Match{IdentityID: candidate.IdentityID, Score: score}, nil
}

func (r *CosineIdentityResolver) score(query []float64, c *domain.EnrolledEmbedding) (float64, error) {
	vector, err := r.vault.Decrypt(c.Ciphertext)
	if err != nil {
		r.log.Warn().Err(err).Str("identity_id", c.IdentityID.String()).Msg("skipping undecryptable embedding")
		return 0, err
	}
	score, err := CosineSimilarity(query, vector)
	if err != nil {
		r.log.Warn().Err(err).Str("identity_id", c.IdentityID.String()).Msg("skipping incompatible embedding")
		return 0, err
	}
	return score, nil
}

func scanAborted(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.ErrResolutionTimeout(err)
	}
	return apperror.InternalError(err)
}
