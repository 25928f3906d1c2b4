package planner

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/planfit/internal/catalog"
	"github.com/2beens/planfit/internal/observability"
	"github.com/2beens/planfit/internal/progression"
	"github.com/2beens/planfit/internal/ratelimit"
	"github.com/2beens/planfit/internal/telemetry/metrics"
	"github.com/2beens/planfit/internal/telemetry/tracing"
)

const (
	actionCreatePlan  = "createPlan"
	actionNextWorkout = "nextWorkout"
	actionReschedule  = "rescheduleWorkout"
	actionLogWorkout  = "logWorkout"

	// recentHistoryLimit bounds the sets fed to the progression
	// calculator; the calculator applies its own per-exercise window
	recentHistoryLimit = 120

	maxLoggedSets = 60
	maxDraftSets  = 60
)

// RequestInfo tags audit events. HashedIP must already be hashed by the
// transport layer, the service never sees a raw address.
type RequestInfo struct {
	ID       string
	HashedIP string
}

type planStore interface {
	UserExists(ctx context.Context, userID int64) (bool, error)
	CreatePlan(ctx context.Context, plan *Plan) (*Plan, error)
	GetPlan(ctx context.Context, planID int64) (*Plan, error)
	GetWorkout(ctx context.Context, workoutID int64) (*Workout, error)
	WorkoutOwner(ctx context.Context, workoutID int64) (int64, error)
	NextPendingWorkout(ctx context.Context, userID int64) (*Workout, error)
	RescheduleWorkout(ctx context.Context, workoutID int64, newDate time.Time) error
	CompleteWorkout(ctx context.Context, entry WorkoutLogEntry, completedAt time.Time, adherence float64) error
	RecentHistory(ctx context.Context, userID int64, limit int) ([]progression.HistoryEntry, error)
}

type planCache interface {
	SetPlan(ctx context.Context, plan *Plan) error
	GetPlan(ctx context.Context, planID int64) (*Plan, error)
	GetNextWorkout(ctx context.Context, userID int64) (NextWorkoutPointer, error)
	SetNextWorkout(ctx context.Context, userID int64, pointer NextWorkoutPointer) error
	InvalidateNextWorkout(ctx context.Context, userID int64) error
	SetDraft(ctx context.Context, draft WorkoutDraft) error
	DeleteDraft(ctx context.Context, workoutID int64) error
}

type requestLimiter interface {
	Allow(ctx context.Context, action string, userID int64) (ratelimit.Result, error)
}

type exerciseCatalog interface {
	GroupedByMuscleGroup(ctx context.Context, filter catalog.Filter) (map[string][]catalog.ExerciseRef, error)
}

type auditTracker interface {
	Track(ctx context.Context, event observability.Event)
	CaptureError(err error)
}

type frontendRevalidator interface {
	Revalidate(reason string)
}

// Service orchestrates plan generation and workout progression. The
// store is the source of truth, the cache a best-effort accelerator,
// and every mutation is rate limited per acting user.
type Service struct {
	store       planStore
	cache       planCache
	limiter     requestLimiter
	catalog     exerciseCatalog
	generator   *Generator
	tracker     auditTracker
	revalidator frontendRevalidator
	metrics     *metrics.Manager

	now func() time.Time
}

type NewServiceParams struct {
	Store       planStore
	Cache       planCache
	Limiter     requestLimiter
	Catalog     exerciseCatalog
	Generator   *Generator
	Tracker     auditTracker
	Revalidator frontendRevalidator
	Metrics     *metrics.Manager
}

func NewService(params NewServiceParams) *Service {
	return &Service{
		store:       params.Store,
		cache:       params.Cache,
		limiter:     params.Limiter,
		catalog:     params.Catalog,
		generator:   params.Generator,
		tracker:     params.Tracker,
		revalidator: params.Revalidator,
		metrics:     params.Metrics,
		now:         time.Now,
	}
}

// CreatePlan validates the profile, rate limits the caller, generates a
// fresh mesocycle and persists it in one transaction. The cache write
// afterwards is best effort.
func (s *Service) CreatePlan(ctx context.Context, profile TrainingProfile, reqInfo RequestInfo) (_ *Plan, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.service.createPlan")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := validateProfile(profile); err != nil {
		return nil, err
	}
	if err := s.allow(ctx, actionCreatePlan, profile.UserID); err != nil {
		return nil, err
	}

	exists, err := s.store.UserExists(ctx, profile.UserID)
	if err != nil {
		return nil, s.infraError("check user", err)
	}
	if !exists {
		return nil, ErrUserNotFound
	}

	filter := catalog.FilterForEquipment(profile.Equipment)
	pools, err := s.catalog.GroupedByMuscleGroup(ctx, filter)
	if err != nil {
		return nil, s.infraError("load catalog", err)
	}

	history, err := s.store.RecentHistory(ctx, profile.UserID, recentHistoryLimit)
	if err != nil {
		return nil, s.infraError("load history", err)
	}
	rule := ProgressionRuleForGoal(profile.Goal)
	adjustments := make(map[int64]progression.Adjustment)
	for _, adj := range progression.ComputeAdjustments(history, rule) {
		adjustments[adj.ExerciseID] = adj
	}

	generationStart := s.now()
	plan, err := s.generator.Generate(profile, pools, adjustments)
	if err != nil {
		return nil, err
	}
	s.metrics.HistPlanGenerationDuration.Observe(s.now().Sub(generationStart).Seconds())

	plan, err = s.store.CreatePlan(ctx, plan)
	if err != nil {
		return nil, s.infraError("persist plan", err)
	}
	span.SetAttributes(attribute.Int64("plan.id", plan.ID))

	if cacheErr := s.cache.SetPlan(ctx, plan); cacheErr != nil {
		s.cacheDegraded("cache plan", cacheErr)
	}
	if cacheErr := s.cache.InvalidateNextWorkout(ctx, profile.UserID); cacheErr != nil {
		s.cacheDegraded("invalidate next workout", cacheErr)
	}

	s.metrics.CounterPlansCreated.Inc()
	s.revalidator.Revalidate(actionCreatePlan)
	s.tracker.Track(ctx, observability.Event{
		Name:      actionCreatePlan,
		RequestID: reqInfo.ID,
		HashedIP:  reqInfo.HashedIP,
		UserID:    profile.UserID,
		Meta: map[string]string{
			"planId": strconv.FormatInt(plan.ID, 10),
			"goal":   string(plan.Goal),
		},
	})

	return plan, nil
}

// GetPlan reads through the cache to the store.
func (s *Service) GetPlan(ctx context.Context, planID int64) (_ *Plan, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.service.getPlan")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if planID <= 0 {
		return nil, invalidInput("planId", "must be positive")
	}

	cached, cacheErr := s.cache.GetPlan(ctx, planID)
	if cacheErr == nil {
		return cached, nil
	}
	if !errors.Is(cacheErr, ErrCacheMiss) {
		s.cacheDegraded("get plan", cacheErr)
	}

	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			return nil, err
		}
		return nil, s.infraError("get plan", err)
	}

	if cacheErr := s.cache.SetPlan(ctx, plan); cacheErr != nil {
		s.cacheDegraded("cache plan", cacheErr)
	}
	return plan, nil
}

// NextWorkout returns the earliest pending workout for the user, or nil
// when the plan is fully completed. The cached pointer is only trusted
// while it still refers to a pending workout.
func (s *Service) NextWorkout(ctx context.Context, userID int64, reqInfo RequestInfo) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.service.nextWorkout")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if userID <= 0 {
		return nil, invalidInput("userId", "must be positive")
	}
	if err := s.allow(ctx, actionNextWorkout, userID); err != nil {
		return nil, err
	}

	pointer, cacheErr := s.cache.GetNextWorkout(ctx, userID)
	if cacheErr == nil {
		workout, workoutErr := s.store.GetWorkout(ctx, pointer.WorkoutID)
		if workoutErr == nil && workout.CompletedAt == nil {
			return workout, nil
		}
		// stale pointer, fall through to the store query
	} else if !errors.Is(cacheErr, ErrCacheMiss) {
		s.cacheDegraded("get next workout", cacheErr)
	}

	workout, err := s.store.NextPendingWorkout(ctx, userID)
	if err != nil {
		return nil, s.infraError("next pending workout", err)
	}
	if workout == nil {
		return nil, nil
	}

	if cacheErr := s.cache.SetNextWorkout(ctx, userID, NextWorkoutPointer{
		PlanID:    workout.PlanID,
		WorkoutID: workout.ID,
	}); cacheErr != nil {
		s.cacheDegraded("cache next workout", cacheErr)
	}

	return workout, nil
}

// RescheduleWorkout moves a pending workout to a new date. Only the
// owning user can do it, and only scheduledAt changes.
func (s *Service) RescheduleWorkout(
	ctx context.Context,
	workoutID int64,
	newDate time.Time,
	actorID int64,
	reqInfo RequestInfo,
) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.service.rescheduleWorkout")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if workoutID <= 0 {
		return invalidInput("workoutId", "must be positive")
	}
	if newDate.IsZero() {
		return invalidInput("newDate", "must be set")
	}

	workout, err := s.store.GetWorkout(ctx, workoutID)
	if err != nil {
		if errors.Is(err, ErrWorkoutNotFound) {
			return err
		}
		return s.infraError("get workout", err)
	}
	if workout.CompletedAt != nil {
		return ErrWorkoutCompleted
	}

	ownerID, err := s.store.WorkoutOwner(ctx, workoutID)
	if err != nil {
		return s.infraError("get workout owner", err)
	}
	if ownerID != actorID {
		return ErrOwnershipMismatch
	}

	// the limiter keys on the owning person, not the workout row
	if err := s.allow(ctx, actionReschedule, ownerID); err != nil {
		return err
	}

	if err := s.store.RescheduleWorkout(ctx, workoutID, newDate); err != nil {
		if errors.Is(err, ErrWorkoutNotFound) {
			return err
		}
		return s.infraError("reschedule workout", err)
	}

	if cacheErr := s.cache.InvalidateNextWorkout(ctx, ownerID); cacheErr != nil {
		s.cacheDegraded("invalidate next workout", cacheErr)
	}

	s.metrics.CounterWorkoutsRescheduled.Inc()
	s.tracker.Track(ctx, observability.Event{
		Name:      actionReschedule,
		RequestID: reqInfo.ID,
		HashedIP:  reqInfo.HashedIP,
		UserID:    ownerID,
		Meta: map[string]string{
			"workoutId": strconv.FormatInt(workoutID, 10),
			"newDate":   newDate.Format(time.RFC3339),
		},
	})

	return nil
}

// LogWorkout records the performed sets and completes the workout, the
// one-way transition. The draft for the workout is dropped afterwards.
func (s *Service) LogWorkout(
	ctx context.Context,
	entry WorkoutLogEntry,
	actorID int64,
	reqInfo RequestInfo,
) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.service.logWorkout")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := validateLogEntry(entry); err != nil {
		return err
	}

	workout, err := s.store.GetWorkout(ctx, entry.WorkoutID)
	if err != nil {
		if errors.Is(err, ErrWorkoutNotFound) {
			return err
		}
		return s.infraError("get workout", err)
	}
	if workout.PlanID != entry.PlanID {
		return invalidInput("planId", "workout does not belong to this plan")
	}
	if workout.CompletedAt != nil {
		return ErrWorkoutCompleted
	}

	ownerID, err := s.store.WorkoutOwner(ctx, entry.WorkoutID)
	if err != nil {
		return s.infraError("get workout owner", err)
	}
	if ownerID != actorID {
		return ErrOwnershipMismatch
	}

	if err := s.allow(ctx, actionLogWorkout, ownerID); err != nil {
		return err
	}

	adherence := computeAdherence(workout, entry)
	if err := s.store.CompleteWorkout(ctx, entry, s.now(), adherence); err != nil {
		if errors.Is(err, ErrWorkoutCompleted) {
			return err
		}
		return s.infraError("complete workout", err)
	}

	if cacheErr := s.cache.InvalidateNextWorkout(ctx, ownerID); cacheErr != nil {
		s.cacheDegraded("invalidate next workout", cacheErr)
	}
	if cacheErr := s.cache.DeleteDraft(ctx, entry.WorkoutID); cacheErr != nil {
		s.cacheDegraded("delete workout draft", cacheErr)
	}

	s.metrics.CounterWorkoutsLogged.Inc()
	s.tracker.Track(ctx, observability.Event{
		Name:      actionLogWorkout,
		RequestID: reqInfo.ID,
		HashedIP:  reqInfo.HashedIP,
		UserID:    ownerID,
		Meta: map[string]string{
			"workoutId": strconv.FormatInt(entry.WorkoutID, 10),
			"adherence": strconv.FormatFloat(adherence, 'f', 2, 64),
		},
	})

	return nil
}

// AutosaveWorkoutDraft writes the partial draft to the cache, replacing
// whatever was there. High frequency by nature, so not rate limited.
func (s *Service) AutosaveWorkoutDraft(ctx context.Context, draft WorkoutDraft) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "planner.service.autosaveWorkoutDraft")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := validateDraft(draft); err != nil {
		return err
	}

	if err := s.cache.SetDraft(ctx, draft); err != nil {
		return s.infraError("autosave draft", err)
	}

	s.metrics.CounterDraftAutosaves.Inc()
	return nil
}

// ApplyProgression is the preview path: a validating wrapper around the
// calculator. No persistence, no rate limiting.
func (s *Service) ApplyProgression(
	ctx context.Context,
	history []progression.HistoryEntry,
	rule progression.Rule,
) (_ []progression.Adjustment, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "planner.service.applyProgression")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if !rule.Valid() {
		return nil, invalidInput("rule", fmt.Sprintf("unsupported rule %q", rule))
	}
	for i, entry := range history {
		if entry.ExerciseID <= 0 {
			return nil, invalidInput(fmt.Sprintf("history[%d].exerciseId", i), "must be positive")
		}
		if entry.Adherence < 0 || entry.Adherence > 1 {
			return nil, invalidInput(fmt.Sprintf("history[%d].adherence", i), "must be within [0, 1]")
		}
	}

	return progression.ComputeAdjustments(history, rule), nil
}

func (s *Service) allow(ctx context.Context, action string, userID int64) error {
	res, err := s.limiter.Allow(ctx, action, userID)
	if err != nil {
		return s.infraError("rate limiter", err)
	}
	if !res.Allowed {
		s.metrics.CounterRateLimitedRequests.Inc()
		return &RateLimitedError{RetryAfter: res.RetryAfter}
	}
	return nil
}

func (s *Service) infraError(action string, err error) error {
	wrapped := fmt.Errorf("%s: %w", action, err)
	s.tracker.CaptureError(wrapped)
	return wrapped
}

func (s *Service) cacheDegraded(action string, err error) {
	s.metrics.CounterCacheDegraded.Inc()
	s.tracker.CaptureError(fmt.Errorf("cache degraded [%s]: %w", action, err))
}

// computeAdherence compares logged sets against the prescription: the
// share of target sets actually performed, capped at 1.
func computeAdherence(workout *Workout, entry WorkoutLogEntry) float64 {
	var totalTargetSets int
	for _, exercise := range workout.Exercises {
		totalTargetSets += exercise.TargetSets
	}
	if totalTargetSets == 0 {
		return 1
	}
	adherence := float64(len(entry.Sets)) / float64(totalTargetSets)
	if adherence > 1 {
		adherence = 1
	}
	return math.Round(adherence*100) / 100
}

func validateProfile(profile TrainingProfile) error {
	if profile.UserID <= 0 {
		return invalidInput("userId", "must be positive")
	}
	if !profile.Goal.Valid() {
		return invalidInput("goal", fmt.Sprintf("unsupported goal %q", profile.Goal))
	}
	if profile.Frequency < MinWeeklyFrequency || profile.Frequency > MaxWeeklyFrequency {
		return invalidInput("frequency", fmt.Sprintf(
			"frequency must be between %d and %d", MinWeeklyFrequency, MaxWeeklyFrequency,
		))
	}
	if profile.TrainingMax != nil && *profile.TrainingMax <= 0 {
		return invalidInput("trainingMax", "must be positive when set")
	}
	return nil
}

func validateLogEntry(entry WorkoutLogEntry) error {
	if entry.WorkoutID <= 0 {
		return invalidInput("workoutId", "must be positive")
	}
	if entry.PlanID <= 0 {
		return invalidInput("planId", "must be positive")
	}
	if len(entry.Sets) == 0 {
		return invalidInput("sets", "at least one set is required")
	}
	if len(entry.Sets) > maxLoggedSets {
		return invalidInput("sets", fmt.Sprintf("at most %d sets per workout", maxLoggedSets))
	}
	for i, set := range entry.Sets {
		field := func(name string) string { return fmt.Sprintf("sets[%d].%s", i, name) }
		if set.ExerciseID <= 0 {
			return invalidInput(field("exerciseId"), "must be positive")
		}
		if set.Weight < 0 {
			return invalidInput(field("weight"), "must not be negative")
		}
		if set.Reps <= 0 {
			return invalidInput(field("reps"), "must be positive")
		}
		if set.Rpe != nil && (*set.Rpe < MinSetRpe || *set.Rpe > MaxSetRpe) {
			return invalidInput(field("rpe"), "must be within [5, 10]")
		}
		if set.Rir != nil && (*set.Rir < MinSetRir || *set.Rir > MaxSetRir) {
			return invalidInput(field("rir"), "must be within [0, 5]")
		}
		if set.RestSeconds < MinSetRestSeconds || set.RestSeconds > MaxSetRestSeconds {
			return invalidInput(field("restSeconds"), "must be within [30, 600]")
		}
		if len(set.Notes) > MaxSetNotesLen {
			return invalidInput(field("notes"), fmt.Sprintf("at most %d characters", MaxSetNotesLen))
		}
	}
	return nil
}

func validateDraft(draft WorkoutDraft) error {
	if draft.WorkoutID <= 0 {
		return invalidInput("workoutId", "must be positive")
	}
	if draft.PlanID <= 0 {
		return invalidInput("planId", "must be positive")
	}
	if len(draft.Sets) > maxDraftSets {
		return invalidInput("sets", fmt.Sprintf("at most %d sets per draft", maxDraftSets))
	}
	for i, set := range draft.Sets {
		field := func(name string) string { return fmt.Sprintf("sets[%d].%s", i, name) }
		if set.ExerciseID != nil && *set.ExerciseID <= 0 {
			return invalidInput(field("exerciseId"), "must be positive when set")
		}
		if set.Weight != nil && *set.Weight < 0 {
			return invalidInput(field("weight"), "must not be negative")
		}
		if set.Reps != nil && *set.Reps <= 0 {
			return invalidInput(field("reps"), "must be positive when set")
		}
		if set.Rpe != nil && (*set.Rpe < MinSetRpe || *set.Rpe > MaxSetRpe) {
			return invalidInput(field("rpe"), "must be within [5, 10]")
		}
		if set.Rir != nil && (*set.Rir < MinSetRir || *set.Rir > MaxSetRir) {
			return invalidInput(field("rir"), "must be within [0, 5]")
		}
		if set.RestSeconds != nil && (*set.RestSeconds < MinSetRestSeconds || *set.RestSeconds > MaxSetRestSeconds) {
			return invalidInput(field("restSeconds"), "must be within [30, 600]")
		}
		if set.Notes != nil && len(*set.Notes) > MaxSetNotesLen {
			return invalidInput(field("notes"), fmt.Sprintf("at most %d characters", MaxSetNotesLen))
		}
	}
	return nil
}
