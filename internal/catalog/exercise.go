package catalog

import "time"

// Exercise is immutable reference data owned by the catalog.
type Exercise struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	MuscleGroup string    `json:"muscleGroup"`
	Equipment   string    `json:"equipment"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ExerciseRef is an id-only record used by the plan generator, so that
// grouping and sampling stay cheap.
type ExerciseRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
