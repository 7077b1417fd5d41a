package recommend

import (
	"context"
	"log/slog"

	"github.com/utafrali/discovery/internal/domain"
	"github.com/utafrali/discovery/internal/repository"
)

const (
	// Peers share at least this many purchased products with the user.
	collaborativeMinShared = 2
	// At most this many peers are considered per run.
	collaborativePeerCap = 50

	collaborativePeerWeight     = 100
	collaborativePurchaseWeight = 5
)

// Collaborative recommends what a user's purchase peers bought. A peer is a
// user sharing at least two purchased products; products the user already
// owns are excluded by the store query.
type Collaborative struct {
	stats  repository.StatsStore
	logger *slog.Logger
}

func NewCollaborative(stats repository.StatsStore, logger *slog.Logger) *Collaborative {
	return &Collaborative{stats: stats, logger: logger}
}

func (s *Collaborative) Run(ctx context.Context, userID string, limit int) []domain.RecommendationCandidate {
	// The SQL orders by peer count alone; over-fetch so re-scoring with
	// purchase counts can promote rows from beyond the limit.
	rows, totalPeers, err := s.stats.PeerPurchaseRows(ctx, userID, collaborativeMinShared, collaborativePeerCap, limit*candidatePoolFactor)
	if err != nil {
		s.logger.WarnContext(ctx, "collaborative strategy failed",
			slog.String("user_id", userID),
			slog.String("error", err.Error()))
		return nil
	}
	if totalPeers == 0 {
		return nil
	}

	out := make([]domain.RecommendationCandidate, 0, len(rows))
	for _, r := range rows {
		c := candidateFrom(r.ProductSnapshot)
		c.Score = float64(r.PeerCount)/float64(totalPeers)*collaborativePeerWeight +
			float64(r.PurchaseCount)*collaborativePurchaseWeight
		c.Reason = "customers like you bought this"
		out = append(out, c)
	}
	sortByScore(out)
	return truncate(out, limit)
}
