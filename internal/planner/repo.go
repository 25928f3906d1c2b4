package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/planfit/internal/progression"
	"github.com/2beens/planfit/internal/telemetry/tracing"
	"github.com/2beens/planfit/pkg"
)

// Repo is the durable store for plans and workouts, the single source
// of truth. All multi-row writes go through one transaction.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) UserExists(ctx context.Context, userID int64) (_ bool, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.planner.userExists")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var exists bool
	err = r.db.
		QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM planfit_user WHERE id = $1)`, userID).
		Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user %d: %w", userID, err)
	}
	return exists, nil
}

// CreatePlan persists the whole aggregate, plan then workouts then their
// exercises, in a single transaction. The returned plan carries all
// generated ids. Workouts are inserted in slice order, which the
// generator guarantees is ascending scheduled_at.
func (r *Repo) CreatePlan(ctx context.Context, plan *Plan) (_ *Plan, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.planner.createPlan")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = tx.QueryRow(ctx, `
		INSERT INTO plan
			(user_id, goal, microcycle_length, mesocycle_weeks, progression_rule, training_max, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`,
		plan.UserID, plan.Goal, plan.MicrocycleLength, plan.MesocycleWeeks,
		plan.ProgressionRule, plan.TrainingMax, plan.CreatedAt,
	).Scan(&plan.ID)
	if err != nil {
		return nil, fmt.Errorf("insert plan: %w", err)
	}

	for wi := range plan.Workouts {
		workout := &plan.Workouts[wi]
		workout.PlanID = plan.ID
		err = tx.QueryRow(ctx, `
			INSERT INTO workout
				(plan_id, title, description, scheduled_at, microcycle, mesocycle, rpe_target, rest_seconds)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`,
			workout.PlanID, workout.Title, workout.Description, workout.ScheduledAt,
			workout.Microcycle, workout.Mesocycle, workout.RpeTarget, workout.RestSeconds,
		).Scan(&workout.ID)
		if err != nil {
			return nil, fmt.Errorf("insert workout [%s]: %w", workout.Title, err)
		}

		for ei := range workout.Exercises {
			exercise := &workout.Exercises[ei]
			exercise.WorkoutID = workout.ID
			err = tx.QueryRow(ctx, `
				INSERT INTO workout_exercise
					(workout_id, exercise_id, exercise_order, target_sets, target_reps,
					 target_weight, rest_seconds, rpe_target, microcycle, mesocycle)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				RETURNING id
			`,
				exercise.WorkoutID, exercise.ExerciseID, exercise.Order,
				exercise.TargetSets, exercise.TargetReps, exercise.TargetWeight,
				exercise.RestSeconds, exercise.RpeTarget, exercise.Microcycle, exercise.Mesocycle,
			).Scan(&exercise.ID)
			if err != nil {
				if pkg.IsForeignKeyViolationError(err) {
					return nil, invalidInput("exerciseId", fmt.Sprintf("unknown exercise %d", exercise.ExerciseID))
				}
				return nil, fmt.Errorf("insert workout exercise %d: %w", exercise.ExerciseID, err)
			}
		}
	}

	span.SetAttributes(attribute.Int64("plan.id", plan.ID))
	return plan, nil
}

func (r *Repo) GetPlan(ctx context.Context, planID int64) (_ *Plan, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.planner.getPlan")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("plan.id", planID))

	plan := &Plan{}
	err = r.db.
		QueryRow(ctx, `
			SELECT id, user_id, goal, microcycle_length, mesocycle_weeks,
				   progression_rule, training_max, created_at
			FROM plan
			WHERE id = $1
		`, planID).
		Scan(
			&plan.ID, &plan.UserID, &plan.Goal, &plan.MicrocycleLength,
			&plan.MesocycleWeeks, &plan.ProgressionRule, &plan.TrainingMax, &plan.CreatedAt,
		)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get plan %d: %w", planID, err)
	}

	workouts, err := r.planWorkouts(ctx, planID)
	if err != nil {
		return nil, err
	}
	plan.Workouts = workouts

	return plan, nil
}

func (r *Repo) planWorkouts(ctx context.Context, planID int64) ([]Workout, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, plan_id, title, description, scheduled_at,
			   microcycle, mesocycle, rpe_target, rest_seconds, completed_at
		FROM workout
		WHERE plan_id = $1
		ORDER BY scheduled_at
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("list workouts for plan %d: %w", planID, err)
	}
	defer rows.Close()

	var workouts []Workout
	for rows.Next() {
		var w Workout
		if err := rows.Scan(
			&w.ID, &w.PlanID, &w.Title, &w.Description, &w.ScheduledAt,
			&w.Microcycle, &w.Mesocycle, &w.RpeTarget, &w.RestSeconds, &w.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan workout: %w", err)
		}
		workouts = append(workouts, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range workouts {
		exercises, err := r.workoutExercises(ctx, workouts[i].ID)
		if err != nil {
			return nil, err
		}
		workouts[i].Exercises = exercises
	}

	return workouts, nil
}

func (r *Repo) workoutExercises(ctx context.Context, workoutID int64) ([]WorkoutExercise, error) {
	rows, err := r.db.Query(ctx, `
		SELECT we.id, we.workout_id, we.exercise_id, e.name, we.exercise_order,
			   we.target_sets, we.target_reps, we.target_weight,
			   we.rest_seconds, we.rpe_target, we.microcycle, we.mesocycle
		FROM workout_exercise we
		JOIN exercise e ON e.id = we.exercise_id
		WHERE we.workout_id = $1
		ORDER BY we.exercise_order
	`, workoutID)
	if err != nil {
		return nil, fmt.Errorf("list exercises for workout %d: %w", workoutID, err)
	}
	defer rows.Close()

	var exercises []WorkoutExercise
	for rows.Next() {
		var e WorkoutExercise
		if err := rows.Scan(
			&e.ID, &e.WorkoutID, &e.ExerciseID, &e.ExerciseName, &e.Order,
			&e.TargetSets, &e.TargetReps, &e.TargetWeight,
			&e.RestSeconds, &e.RpeTarget, &e.Microcycle, &e.Mesocycle,
		); err != nil {
			return nil, fmt.Errorf("scan workout exercise: %w", err)
		}
		exercises = append(exercises, e)
	}
	return exercises, rows.Err()
}

func (r *Repo) GetWorkout(ctx context.Context, workoutID int64) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.planner.getWorkout")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("workout.id", workoutID))

	workout := &Workout{}
	err = r.db.
		QueryRow(ctx, `
			SELECT id, plan_id, title, description, scheduled_at,
				   microcycle, mesocycle, rpe_target, rest_seconds, completed_at
			FROM workout
			WHERE id = $1
		`, workoutID).
		Scan(
			&workout.ID, &workout.PlanID, &workout.Title, &workout.Description,
			&workout.ScheduledAt, &workout.Microcycle, &workout.Mesocycle,
			&workout.RpeTarget, &workout.RestSeconds, &workout.CompletedAt,
		)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWorkoutNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get workout %d: %w", workoutID, err)
	}

	exercises, err := r.workoutExercises(ctx, workoutID)
	if err != nil {
		return nil, err
	}
	workout.Exercises = exercises

	return workout, nil
}

// WorkoutOwner resolves the user owning the workout through its plan.
// The rate limiter and ownership checks key on the person, not the row.
func (r *Repo) WorkoutOwner(ctx context.Context, workoutID int64) (_ int64, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.planner.workoutOwner")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	var userID int64
	err = r.db.
		QueryRow(ctx, `
			SELECT p.user_id
			FROM workout w
			JOIN plan p ON p.id = w.plan_id
			WHERE w.id = $1
		`, workoutID).
		Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrWorkoutNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get owner of workout %d: %w", workoutID, err)
	}
	return userID, nil
}

// NextPendingWorkout returns the earliest not-yet-completed workout of
// the user's newest plan, or nil when everything is done. Nil is a valid
// answer here, not an error.
func (r *Repo) NextPendingWorkout(ctx context.Context, userID int64) (_ *Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.planner.nextPendingWorkout")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	workout := &Workout{}
	err = r.db.
		QueryRow(ctx, `
			SELECT w.id, w.plan_id, w.title, w.description, w.scheduled_at,
				   w.microcycle, w.mesocycle, w.rpe_target, w.rest_seconds, w.completed_at
			FROM workout w
			WHERE w.plan_id = (
				SELECT id FROM plan
				WHERE user_id = $1
				ORDER BY created_at DESC
				LIMIT 1
			)
			AND w.completed_at IS NULL
			ORDER BY w.scheduled_at
			LIMIT 1
		`, userID).
		Scan(
			&workout.ID, &workout.PlanID, &workout.Title, &workout.Description,
			&workout.ScheduledAt, &workout.Microcycle, &workout.Mesocycle,
			&workout.RpeTarget, &workout.RestSeconds, &workout.CompletedAt,
		)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next pending workout for user %d: %w", userID, err)
	}

	exercises, err := r.workoutExercises(ctx, workout.ID)
	if err != nil {
		return nil, err
	}
	workout.Exercises = exercises

	return workout, nil
}

// RescheduleWorkout moves the workout, touching scheduled_at and nothing
// else. Completed workouts are left alone.
func (r *Repo) RescheduleWorkout(ctx context.Context, workoutID int64, newDate time.Time) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.planner.rescheduleWorkout")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("workout.id", workoutID))

	tag, err := r.db.Exec(ctx, `
		UPDATE workout SET scheduled_at = $1
		WHERE id = $2 AND completed_at IS NULL
	`, newDate, workoutID)
	if err != nil {
		return fmt.Errorf("reschedule workout %d: %w", workoutID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutNotFound
	}
	return nil
}

// CompleteWorkout is the terminal transition: in one transaction it sets
// completed_at, appends the logged sets and records the adherence
// metric. A workout already completed fails the guarded update and the
// whole transaction rolls back.
func (r *Repo) CompleteWorkout(
	ctx context.Context,
	entry WorkoutLogEntry,
	completedAt time.Time,
	adherence float64,
) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.planner.completeWorkout")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("workout.id", entry.WorkoutID))

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	tag, err := tx.Exec(ctx, `
		UPDATE workout SET completed_at = $1
		WHERE id = $2 AND completed_at IS NULL
	`, completedAt, entry.WorkoutID)
	if err != nil {
		return fmt.Errorf("complete workout %d: %w", entry.WorkoutID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkoutCompleted
	}

	for _, set := range entry.Sets {
		_, err = tx.Exec(ctx, `
			INSERT INTO workout_set
				(workout_id, exercise_id, weight, reps, rpe, rir, rest_seconds, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`,
			entry.WorkoutID, set.ExerciseID, set.Weight, set.Reps,
			set.Rpe, set.Rir, set.RestSeconds, set.Notes,
		)
		if err != nil {
			if pkg.IsForeignKeyViolationError(err) {
				return invalidInput("sets", fmt.Sprintf("unknown exercise %d", set.ExerciseID))
			}
			return fmt.Errorf("insert workout set: %w", err)
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO adherence_metric (workout_id, plan_id, adherence, created_at)
		VALUES ($1, $2, $3, $4)
	`, entry.WorkoutID, entry.PlanID, adherence, completedAt)
	if err != nil {
		// the unique index on workout_id backs up the guarded update
		// against two racing completions
		if pkg.IsUniqueViolationError(err) {
			return ErrWorkoutCompleted
		}
		return fmt.Errorf("insert adherence metric: %w", err)
	}

	return nil
}

// RecentHistory returns the user's most recently logged sets across all
// plans, newest first, as calculator input.
func (r *Repo) RecentHistory(ctx context.Context, userID int64, limit int) (_ []progression.HistoryEntry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.planner.recentHistory")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(ctx, `
		SELECT w.completed_at, ws.exercise_id, ws.weight, ws.reps, ws.rpe,
			   COALESCE(am.adherence, 0)
		FROM workout_set ws
		JOIN workout w ON w.id = ws.workout_id
		JOIN plan p ON p.id = w.plan_id
		LEFT JOIN adherence_metric am ON am.workout_id = w.id
		WHERE p.user_id = $1 AND w.completed_at IS NOT NULL
		ORDER BY w.completed_at DESC, ws.id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("recent history for user %d: %w", userID, err)
	}
	defer rows.Close()

	var history []progression.HistoryEntry
	for rows.Next() {
		var entry progression.HistoryEntry
		if err := rows.Scan(
			&entry.Date, &entry.ExerciseID, &entry.Weight,
			&entry.Reps, &entry.Rpe, &entry.Adherence,
		); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		history = append(history, entry)
	}
	return history, rows.Err()
}
