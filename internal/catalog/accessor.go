package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/2beens/planfit/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const (
	catalogCacheExpireSeconds = 60
)

type listRepo interface {
	ListExercises(ctx context.Context, filter Filter) ([]Exercise, error)
}

// Accessor is the read-only catalog lookup used by the plan generator.
// Listings are cached in-process for a short while since the catalog is
// immutable reference data and plan creation hits it in bursts.
type Accessor struct {
	repo  listRepo
	cache *freecache.Cache
}

func NewAccessor(repo listRepo) *Accessor {
	megabyte := 1024 * 1024
	return &Accessor{
		repo:  repo,
		cache: freecache.NewCache(megabyte),
	}
}

func (a *Accessor) ListExercises(ctx context.Context, filter Filter) (_ []Exercise, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "catalog.accessor.listExercises")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	cacheKey := []byte(fmt.Sprintf("catalog::%s", filter.Key()))
	if cachedBytes, err := a.cache.Get(cacheKey); err == nil {
		var exercises []Exercise
		if err := json.Unmarshal(cachedBytes, &exercises); err == nil {
			return exercises, nil
		}
		log.Errorf("failed to unmarshal cached catalog listing [%s]: %s", filter.Key(), err)
	}

	exercises, err := a.repo.ListExercises(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list exercises: %w", err)
	}

	if exercisesBytes, err := json.Marshal(exercises); err != nil {
		log.Errorf("failed to marshal catalog listing [%s]: %s", filter.Key(), err)
	} else if err := a.cache.Set(cacheKey, exercisesBytes, catalogCacheExpireSeconds); err != nil {
		log.Errorf("failed to cache catalog listing [%s]: %s", filter.Key(), err)
	}

	return exercises, nil
}

// GroupedByMuscleGroup indexes the filtered catalog by lower-cased muscle
// group tag, as id-only records.
func (a *Accessor) GroupedByMuscleGroup(ctx context.Context, filter Filter) (map[string][]ExerciseRef, error) {
	exercises, err := a.ListExercises(ctx, filter)
	if err != nil {
		return nil, err
	}

	grouped := make(map[string][]ExerciseRef)
	for _, e := range exercises {
		group := strings.ToLower(e.MuscleGroup)
		grouped[group] = append(grouped[group], ExerciseRef{
			ID:   e.ID,
			Name: e.Name,
		})
	}
	return grouped, nil
}
