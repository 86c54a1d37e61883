package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"yescity/internal/logger"
	"yescity/internal/metrics"
	"yescity/internal/model"
)

// Hydrator resolves picks back to their catalog records
type Hydrator struct {
	store  CatalogStore
	logger *zap.Logger
}

// NewHydrator creates a hydrator over store
func NewHydrator(store CatalogStore, log *zap.Logger) *Hydrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hydrator{store: store, logger: log}
}

// Hydrate returns exactly one entry per pick, in order. Unresolvable picks and
// failed lookups become error stubs; one failure never stops the others.
func (h *Hydrator) Hydrate(ctx context.Context, category model.Category, picks []model.RecommendationPick) []model.HydratedRecord {
	info := category.Info()
	log := logger.FromContext(ctx, h.logger)

	out := make([]model.HydratedRecord, 0, len(picks))
	for _, pick := range picks {
		rec, err := h.resolve(ctx, info, pick)
		switch {
		case err != nil:
			log.Warn("hydration lookup failed",
				zap.String("collection", info.Collection),
				zap.String("id", pick.ID),
				zap.Error(err),
			)
			metrics.HydrationMissesTotal.WithLabelValues(string(category), "error").Inc()
			out = append(out, stub(pick, "Error fetching data: "+err.Error()))
		case rec == nil:
			log.Info("recommended record not found",
				zap.String("collection", info.Collection),
				zap.String("id", pick.ID),
				zap.String("name", pick.DisplayName),
			)
			metrics.HydrationMissesTotal.WithLabelValues(string(category), "not_found").Inc()
			out = append(out, stub(pick, model.NotFoundMessage))
		default:
			out = append(out, model.HydratedRecord{Record: rec})
		}
	}
	return out
}

// resolve tries the id, then the exact name, then the name ignoring case
func (h *Hydrator) resolve(ctx context.Context, info model.CategoryInfo, pick model.RecommendationPick) (rec model.CatalogRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			rec, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()

	if pick.ID != "" {
		rec, err = h.store.FindByID(ctx, info.Collection, pick.ID)
		if err != nil || rec != nil {
			return rec, err
		}
	}
	if pick.DisplayName == "" {
		return nil, nil
	}

	rec, err = h.store.FindByField(ctx, info.Collection, info.NameField, pick.DisplayName, false)
	if err != nil || rec != nil {
		return rec, err
	}
	return h.store.FindByField(ctx, info.Collection, info.NameField, pick.DisplayName, true)
}

func stub(pick model.RecommendationPick, msg string) model.HydratedRecord {
	return model.HydratedRecord{Stub: &model.ErrorStub{
		ID:          pick.ID,
		DisplayName: pick.DisplayName,
		Error:       msg,
	}}
}
