package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/2beens/planfit/internal/telemetry/tracing"
)

const (
	planCacheTTL  = 5 * time.Minute
	nextCacheTTL  = 2 * time.Minute
	draftCacheTTL = 5 * time.Minute
)

func planCacheKey(planID int64) string {
	return fmt.Sprintf("plan:%d", planID)
}

func nextCacheKey(userID int64) string {
	return fmt.Sprintf("next:%d", userID)
}

func draftCacheKey(workoutID int64) string {
	return fmt.Sprintf("workout:draft:%d", workoutID)
}

// Cache holds the redis-backed hot-path snapshots. It is strictly a
// performance layer: everything except workout drafts also lives in the
// store, and drafts are allowed to be lossy.
type Cache struct {
	rdb redis.Cmdable
}

func NewCache(rdb redis.Cmdable) *Cache {
	return &Cache{rdb: rdb}
}

func (c *Cache) SetPlan(ctx context.Context, plan *Plan) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.cache.setPlan")
	defer span.End()

	planJson, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshal plan %d: %w", plan.ID, err)
	}
	if err := c.rdb.Set(ctx, planCacheKey(plan.ID), planJson, planCacheTTL).Err(); err != nil {
		return fmt.Errorf("cache plan %d: %w", plan.ID, err)
	}
	return nil
}

func (c *Cache) GetPlan(ctx context.Context, planID int64) (*Plan, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.cache.getPlan")
	defer span.End()

	planJson, err := c.rdb.Get(ctx, planCacheKey(planID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("get cached plan %d: %w", planID, err)
	}

	var plan Plan
	if err := json.Unmarshal(planJson, &plan); err != nil {
		return nil, fmt.Errorf("unmarshal cached plan %d: %w", planID, err)
	}
	return &plan, nil
}

func (c *Cache) SetNextWorkout(ctx context.Context, userID int64, pointer NextWorkoutPointer) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.cache.setNextWorkout")
	defer span.End()

	pointerJson, err := json.Marshal(pointer)
	if err != nil {
		return fmt.Errorf("marshal next workout pointer: %w", err)
	}
	if err := c.rdb.Set(ctx, nextCacheKey(userID), pointerJson, nextCacheTTL).Err(); err != nil {
		return fmt.Errorf("cache next workout for user %d: %w", userID, err)
	}
	return nil
}

func (c *Cache) GetNextWorkout(ctx context.Context, userID int64) (NextWorkoutPointer, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.cache.getNextWorkout")
	defer span.End()

	pointerJson, err := c.rdb.Get(ctx, nextCacheKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return NextWorkoutPointer{}, ErrCacheMiss
	}
	if err != nil {
		return NextWorkoutPointer{}, fmt.Errorf("get cached next workout for user %d: %w", userID, err)
	}

	var pointer NextWorkoutPointer
	if err := json.Unmarshal(pointerJson, &pointer); err != nil {
		return NextWorkoutPointer{}, fmt.Errorf("unmarshal next workout pointer: %w", err)
	}
	return pointer, nil
}

// InvalidateNextWorkout drops the pointer so the next read recomputes it
// from the store. Deleting a missing key is not an error.
func (c *Cache) InvalidateNextWorkout(ctx context.Context, userID int64) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.cache.invalidateNextWorkout")
	defer span.End()

	if err := c.rdb.Del(ctx, nextCacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate next workout for user %d: %w", userID, err)
	}
	return nil
}

// SetDraft overwrites any previous draft for the workout. Last write
// wins, there is no merging of concurrent autosaves.
func (c *Cache) SetDraft(ctx context.Context, draft WorkoutDraft) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.cache.setDraft")
	defer span.End()

	draftJson, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("marshal draft for workout %d: %w", draft.WorkoutID, err)
	}
	if err := c.rdb.Set(ctx, draftCacheKey(draft.WorkoutID), draftJson, draftCacheTTL).Err(); err != nil {
		return fmt.Errorf("cache draft for workout %d: %w", draft.WorkoutID, err)
	}
	return nil
}

func (c *Cache) GetDraft(ctx context.Context, workoutID int64) (WorkoutDraft, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.cache.getDraft")
	defer span.End()

	draftJson, err := c.rdb.Get(ctx, draftCacheKey(workoutID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return WorkoutDraft{}, ErrCacheMiss
	}
	if err != nil {
		return WorkoutDraft{}, fmt.Errorf("get cached draft for workout %d: %w", workoutID, err)
	}

	var draft WorkoutDraft
	if err := json.Unmarshal(draftJson, &draft); err != nil {
		return WorkoutDraft{}, fmt.Errorf("unmarshal draft for workout %d: %w", workoutID, err)
	}
	return draft, nil
}

func (c *Cache) DeleteDraft(ctx context.Context, workoutID int64) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.cache.deleteDraft")
	defer span.End()

	if err := c.rdb.Del(ctx, draftCacheKey(workoutID)).Err(); err != nil {
		return fmt.Errorf("delete draft for workout %d: %w", workoutID, err)
	}
	return nil
}
