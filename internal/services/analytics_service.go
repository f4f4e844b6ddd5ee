package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/careerforge/backend/internal/cache"
	pgrepo "github.com/careerforge/backend/internal/repositories/postgres"
	"github.com/careerforge/backend/internal/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// AnalyticsService serves the admin placement dashboard from the Postgres
// read model fed by the outcome worker.
type AnalyticsService interface {
	PlacementSummary(ctx context.Context) ([]pgrepo.TypeSummary, error)
}

const summaryCacheKey = "analytics:placement:summary"
const summaryCacheTTL = 60 * time.Second

type analyticsService struct {
	outcomes pgrepo.OutcomeRepo
	cache    cache.Cache
	log      *logrus.Logger
}

func NewAnalyticsService(outcomes pgrepo.OutcomeRepo, c cache.Cache, log *logrus.Logger) AnalyticsService {
	return &analyticsService{outcomes: outcomes, cache: c, log: log}
}

func (s *analyticsService) PlacementSummary(ctx context.Context) ([]pgrepo.TypeSummary, error) {
	const op = "AnalyticsService.PlacementSummary"

	var cached []pgrepo.TypeSummary
	if s.cache != nil {
		if hit, err := s.cache.GetJSON(ctx, summaryCacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	rows, err := s.outcomes.SummaryByType(ctx)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to aggregate placement outcomes", err)
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, summaryCacheKey, rows, summaryCacheTTL); err != nil {
			s.log.WithError(err).Warn("summary cache write failed")
		}
	}
	return rows, nil
}

func marshalAreas(strong, weak []string) datatypes.JSON {
	b, err := json.Marshal(map[string][]string{"strong": strong, "weak": weak})
	if err != nil {
		return datatypes.JSON([]byte(`{}`))
	}
	return datatypes.JSON(b)
}
