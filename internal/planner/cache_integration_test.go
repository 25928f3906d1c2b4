//go:build integration_test || all_tests

package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testingpkg "github.com/2beens/planfit/pkg/testing"
)

func TestCache_PlanRoundTrip_Redis(t *testing.T) {
	ctx, rdb := testingpkg.GetRedisClientAndCtx(t)
	cache := NewCache(rdb)

	plan := &Plan{
		ID:               9001,
		UserID:           42,
		Goal:             GoalHypertrophy,
		MicrocycleLength: 4,
		MesocycleWeeks:   4,
		ProgressionRule:  "VOLUME",
		CreatedAt:        time.Now().UTC().Truncate(time.Second),
	}
	t.Cleanup(func() {
		rdb.Del(ctx, "plan:9001")
	})

	_, err := cache.GetPlan(ctx, plan.ID)
	require.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, cache.SetPlan(ctx, plan))

	cached, err := cache.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.ID, cached.ID)
	assert.Equal(t, plan.UserID, cached.UserID)
	assert.Equal(t, plan.Goal, cached.Goal)
}

func TestCache_NextWorkoutPointer_Redis(t *testing.T) {
	ctx, rdb := testingpkg.GetRedisClientAndCtx(t)
	cache := NewCache(rdb)

	const userID int64 = 42
	t.Cleanup(func() {
		rdb.Del(ctx, "next:42")
	})

	pointer := NextWorkoutPointer{PlanID: 9001, WorkoutID: 77}
	require.NoError(t, cache.SetNextWorkout(ctx, userID, pointer))

	cached, err := cache.GetNextWorkout(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, pointer, cached)

	require.NoError(t, cache.InvalidateNextWorkout(ctx, userID))
	_, err = cache.GetNextWorkout(ctx, userID)
	assert.ErrorIs(t, err, ErrCacheMiss)

	// invalidating an already missing pointer is fine
	require.NoError(t, cache.InvalidateNextWorkout(ctx, userID))
}

func TestCache_Draft_Redis(t *testing.T) {
	ctx, rdb := testingpkg.GetRedisClientAndCtx(t)
	cache := NewCache(rdb)

	const workoutID int64 = 77
	t.Cleanup(func() {
		rdb.Del(ctx, "workout:draft:77")
	})

	weight := 80.5
	reps := 8
	draft := WorkoutDraft{
		WorkoutID: workoutID,
		Sets: []DraftSet{
			{ExerciseID: int64Ptr(3), Weight: &weight, Reps: &reps},
		},
	}
	require.NoError(t, cache.SetDraft(ctx, draft))

	// a later autosave fully replaces the previous snapshot
	newWeight := 82.5
	draft.Sets[0].Weight = &newWeight
	require.NoError(t, cache.SetDraft(ctx, draft))

	cached, err := cache.GetDraft(ctx, workoutID)
	require.NoError(t, err)
	require.Len(t, cached.Sets, 1)
	require.NotNil(t, cached.Sets[0].Weight)
	assert.Equal(t, 82.5, *cached.Sets[0].Weight)

	require.NoError(t, cache.DeleteDraft(ctx, workoutID))
	_, err = cache.GetDraft(ctx, workoutID)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func int64Ptr(v int64) *int64 {
	return &v
}
