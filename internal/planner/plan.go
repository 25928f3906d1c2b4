package planner

import (
	"time"
)

type Goal string

const (
	GoalStrength    Goal = "strength"
	GoalHypertrophy Goal = "hypertrophy"
	GoalEndurance   Goal = "endurance"
)

func (g Goal) Valid() bool {
	switch g {
	case GoalStrength, GoalHypertrophy, GoalEndurance:
		return true
	}
	return false
}

const (
	MinWeeklyFrequency = 3
	MaxWeeklyFrequency = 6
)

// TrainingProfile is the caller-owned input to plan creation,
// immutable per call.
type TrainingProfile struct {
	UserID      int64    `json:"userId"`
	Goal        Goal     `json:"goal"`
	Frequency   int      `json:"frequency"`
	Equipment   []string `json:"equipment"`
	TrainingMax *float64 `json:"trainingMax,omitempty"`
}

// Plan is the aggregate root: one mesocycle of workouts for a user.
// A plan is never mutated in place, a newer plan simply supersedes it.
type Plan struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"userId"`
	Goal             Goal      `json:"goal"`
	MicrocycleLength int       `json:"microcycleLength"`
	MesocycleWeeks   int       `json:"mesocycleWeeks"`
	ProgressionRule  string    `json:"progressionRule"`
	TrainingMax      *float64  `json:"trainingMax,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	Workouts         []Workout `json:"workouts"`
}

type Workout struct {
	ID          int64             `json:"id"`
	PlanID      int64             `json:"planId"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	ScheduledAt time.Time         `json:"scheduledAt"`
	Microcycle  int               `json:"microcycle"`
	Mesocycle   int               `json:"mesocycle"`
	RpeTarget   float64           `json:"rpeTarget"`
	RestSeconds int               `json:"restSeconds"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
	Exercises   []WorkoutExercise `json:"exercises"`
}

// WorkoutExercise is immutable once created: progression for future plans
// is re-derived from history, never retrofitted onto past plans.
type WorkoutExercise struct {
	ID           int64   `json:"id"`
	WorkoutID    int64   `json:"workoutId"`
	ExerciseID   int64   `json:"exerciseId"`
	ExerciseName string  `json:"exerciseName,omitempty"`
	Order        int     `json:"order"`
	TargetSets   int     `json:"targetSets"`
	TargetReps   int     `json:"targetReps"`
	TargetWeight float64 `json:"targetWeight,omitempty"`
	RestSeconds  int     `json:"restSeconds"`
	RpeTarget    float64 `json:"rpeTarget"`
	Microcycle   int     `json:"microcycle"`
	Mesocycle    int     `json:"mesocycle"`
}

// WorkoutSet is append-only, created only when a workout is logged.
type WorkoutSet struct {
	ID          int64    `json:"id"`
	WorkoutID   int64    `json:"workoutId"`
	ExerciseID  int64    `json:"exerciseId"`
	Weight      float64  `json:"weight"`
	Reps        int      `json:"reps"`
	Rpe         *float64 `json:"rpe,omitempty"`
	Rir         *int     `json:"rir,omitempty"`
	RestSeconds int      `json:"restSeconds"`
	Notes       string   `json:"notes,omitempty"`
}

const (
	MinSetRpe         = 5.0
	MaxSetRpe         = 10.0
	MinSetRir         = 0
	MaxSetRir         = 5
	MinSetRestSeconds = 30
	MaxSetRestSeconds = 600
	MaxSetNotesLen    = 280
)

type AdherenceMetric struct {
	WorkoutID int64   `json:"workoutId"`
	PlanID    int64   `json:"planId"`
	Adherence float64 `json:"adherence"`
}

// WorkoutLogEntry is the input to LogWorkout.
type WorkoutLogEntry struct {
	WorkoutID int64        `json:"workoutId"`
	PlanID    int64        `json:"planId"`
	Sets      []WorkoutSet `json:"sets"`
}

// WorkoutDraft lives only in the cache, an ephemeral partial record of
// in-progress set logging. Losing one costs the user a few keystrokes.
type WorkoutDraft struct {
	WorkoutID int64      `json:"workoutId"`
	PlanID    int64      `json:"planId"`
	Sets      []DraftSet `json:"sets,omitempty"`
}

// DraftSet has every field optional, the client autosaves whatever it has.
type DraftSet struct {
	ExerciseID  *int64   `json:"exerciseId,omitempty"`
	Weight      *float64 `json:"weight,omitempty"`
	Reps        *int     `json:"reps,omitempty"`
	Rpe         *float64 `json:"rpe,omitempty"`
	Rir         *int     `json:"rir,omitempty"`
	RestSeconds *int     `json:"restSeconds,omitempty"`
	Notes       *string  `json:"notes,omitempty"`
}

// NextWorkoutPointer is the cached "next workout" lookup result.
type NextWorkoutPointer struct {
	PlanID    int64 `json:"planId"`
	WorkoutID int64 `json:"workoutId"`
}
