package planner

import (
	"fmt"
	"math"
	"time"

	"github.com/2beens/planfit/internal/catalog"
	"github.com/2beens/planfit/internal/progression"
)

// RandSource is the injectable randomness used by exercise sampling.
// *rand.Rand satisfies it.
type RandSource interface {
	Intn(n int) int
}

const (
	defaultMesocycleWeeks = 4

	exercisesPerDay          = 3
	exercisesPerDayEndurance = 4

	maxSampleRerolls = 8
)

// goalParams are the base prescription per goal. Weekly bumps accrue on
// top of these as the mesocycle advances.
type goalParams struct {
	sets        int
	reps        int
	restSeconds int
	rpeTarget   float64

	// at most one of these is non-zero per goal
	weeklyRepsBump float64
	maxRepsBump    int
	weeklyRpeBump  float64
	maxRpeTarget   float64
}

var paramsByGoal = map[Goal]goalParams{
	GoalStrength: {
		sets: 5, reps: 4, restSeconds: 180, rpeTarget: 8,
		weeklyRpeBump: 0.5, maxRpeTarget: 9.5,
	},
	GoalHypertrophy: {
		sets: 4, reps: 10, restSeconds: 90, rpeTarget: 8,
		weeklyRepsBump: 1, maxRepsBump: 3,
	},
	GoalEndurance: {
		sets: 3, reps: 15, restSeconds: 60, rpeTarget: 7,
		weeklyRepsBump: 2, maxRepsBump: 6,
	},
}

// enduranceExtras is the muscle-group pool order for the daily extra
// conditioning exercise appended on endurance plans.
var enduranceExtras = []string{"cardio", "core"}

func ProgressionRuleForGoal(goal Goal) progression.Rule {
	if goal == GoalStrength {
		return progression.RuleIntensity
	}
	return progression.RuleVolume
}

// Generator turns a training profile, an exercise catalog grouped by
// muscle group and precomputed progression adjustments into a fully
// materialized, unpersisted Plan.
type Generator struct {
	MesocycleWeeks int

	rand RandSource
	now  func() time.Time
}

func NewGenerator(rand RandSource) *Generator {
	return &Generator{
		MesocycleWeeks: defaultMesocycleWeeks,
		rand:           rand,
		now:            time.Now,
	}
}

// NewGeneratorWithClock is used by tests that need a fixed plan start.
func NewGeneratorWithClock(rand RandSource, now func() time.Time) *Generator {
	g := NewGenerator(rand)
	g.now = now
	return g
}

// Generate builds the nested Plan -> Workouts -> WorkoutExercises
// aggregate. Workouts come out in ascending (week, day) order so
// scheduledAt is monotonically increasing within the plan.
//
// pools maps lower-cased muscle group tags to the equipment-filtered
// catalog; adjustments come from the progression calculator, keyed by
// exercise id, and override target reps/weight only.
func (g *Generator) Generate(
	profile TrainingProfile,
	pools map[string][]catalog.ExerciseRef,
	adjustments map[int64]progression.Adjustment,
) (*Plan, error) {
	if !profile.Goal.Valid() {
		return nil, invalidInput("goal", fmt.Sprintf("unsupported goal %q", profile.Goal))
	}
	if profile.Frequency < MinWeeklyFrequency || profile.Frequency > MaxWeeklyFrequency {
		return nil, invalidInput("frequency", fmt.Sprintf(
			"frequency must be between %d and %d", MinWeeklyFrequency, MaxWeeklyFrequency,
		))
	}

	params := paramsByGoal[profile.Goal]
	split := splitForFrequency(profile.Frequency)
	planStart := g.now()

	plan := &Plan{
		UserID:           profile.UserID,
		Goal:             profile.Goal,
		MicrocycleLength: profile.Frequency,
		MesocycleWeeks:   g.MesocycleWeeks,
		ProgressionRule:  string(ProgressionRuleForGoal(profile.Goal)),
		TrainingMax:      profile.TrainingMax,
		CreatedAt:        planStart,
		Workouts:         make([]Workout, 0, g.MesocycleWeeks*profile.Frequency),
	}

	for week := 0; week < g.MesocycleWeeks; week++ {
		for day := 0; day < profile.Frequency; day++ {
			template := split[day]
			workout := g.buildWorkout(profile, template, week, day, planStart, params, pools, adjustments)
			plan.Workouts = append(plan.Workouts, workout)
		}
	}

	return plan, nil
}

func (g *Generator) buildWorkout(
	profile TrainingProfile,
	template templateDay,
	week, day int,
	planStart time.Time,
	params goalParams,
	pools map[string][]catalog.ExerciseRef,
	adjustments map[int64]progression.Adjustment,
) Workout {
	microcycle := (week % profile.Frequency) + 1
	mesocycle := week/profile.Frequency + 1
	rpeTarget := weeklyRpe(params, week)
	repsTarget := weeklyReps(params, week)

	workout := Workout{
		Title:       template.title,
		Description: template.description,
		ScheduledAt: planStart.AddDate(0, 0, week*profile.Frequency+day),
		Microcycle:  microcycle,
		Mesocycle:   mesocycle,
		RpeTarget:   rpeTarget,
		RestSeconds: params.restSeconds,
	}

	count := exercisesPerDay
	var extraRef catalog.ExerciseRef
	var hasExtra bool
	if profile.Goal == GoalEndurance {
		count = exercisesPerDayEndurance
		// reserve the conditioning extra up front so the main block
		// cannot claim it
		extraRef, hasExtra = g.pickEnduranceExtra(pools)
	}

	pool := dayPool(pools, template.muscleGroups)
	if hasExtra {
		filtered := pool[:0:0]
		for _, ref := range pool {
			if ref.ID != extraRef.ID {
				filtered = append(filtered, ref)
			}
		}
		pool = filtered
	}
	selected := g.sampleExercises(pool, count)

	for i, ref := range selected {
		exercise := WorkoutExercise{
			ExerciseID:   ref.ID,
			ExerciseName: ref.Name,
			Order:        i,
			TargetSets:   params.sets,
			TargetReps:   repsTarget,
			TargetWeight: baseWeight(profile, week),
			RestSeconds:  params.restSeconds,
			RpeTarget:    rpeTarget,
			Microcycle:   microcycle,
			Mesocycle:    mesocycle,
		}
		if adj, ok := adjustments[ref.ID]; ok {
			// progression overrides reps and weight only, never RPE or rest
			exercise.TargetReps = adj.TargetReps
			exercise.TargetWeight = adj.TargetWeight
		}
		workout.Exercises = append(workout.Exercises, exercise)
	}

	if hasExtra {
		workout.Exercises = append(workout.Exercises, WorkoutExercise{
			ExerciseID:   extraRef.ID,
			ExerciseName: extraRef.Name,
			Order:        len(workout.Exercises),
			TargetSets:   maxInt(params.sets-1, 1),
			TargetReps:   repsTarget + 5,
			RestSeconds:  maxInt(params.restSeconds-15, 30),
			RpeTarget:    rpeTarget,
			Microcycle:   microcycle,
			Mesocycle:    mesocycle,
		})
	}

	return workout
}

// dayPool concatenates the pools for the day's muscle groups in template
// order, dropping duplicates (an exercise can be tagged into one group only,
// but the same group may appear twice in a template).
func dayPool(pools map[string][]catalog.ExerciseRef, groups []string) []catalog.ExerciseRef {
	seen := make(map[int64]struct{})
	var pool []catalog.ExerciseRef
	for _, group := range groups {
		for _, ref := range pools[group] {
			if _, ok := seen[ref.ID]; ok {
				continue
			}
			seen[ref.ID] = struct{}{}
			pool = append(pool, ref)
		}
	}
	return pool
}

// sampleExercises draws up to count exercises from the pool without
// replacement: random index draw, re-rolled on duplicates, with a
// positional wrap-around fallback so a short pool still fills what it can.
// An empty pool yields an empty selection, never an error.
func (g *Generator) sampleExercises(pool []catalog.ExerciseRef, count int) []catalog.ExerciseRef {
	if len(pool) == 0 {
		return nil
	}
	if count > len(pool) {
		count = len(pool)
	}

	picked := make(map[int]struct{}, count)
	selected := make([]catalog.ExerciseRef, 0, count)
	for i := 0; i < count; i++ {
		idx := -1
		for attempt := 0; attempt < maxSampleRerolls; attempt++ {
			candidate := g.rand.Intn(len(pool))
			if _, taken := picked[candidate]; !taken {
				idx = candidate
				break
			}
		}
		if idx < 0 {
			// rerolls exhausted, walk forward from a positional start
			for offset := 0; offset < len(pool); offset++ {
				candidate := (i + offset) % len(pool)
				if _, taken := picked[candidate]; !taken {
					idx = candidate
					break
				}
			}
		}
		if idx < 0 {
			break
		}
		picked[idx] = struct{}{}
		selected = append(selected, pool[idx])
	}
	return selected
}

func (g *Generator) pickEnduranceExtra(pools map[string][]catalog.ExerciseRef) (catalog.ExerciseRef, bool) {
	for _, group := range enduranceExtras {
		candidates := pools[group]
		if len(candidates) > 0 {
			return candidates[g.rand.Intn(len(candidates))], true
		}
	}
	return catalog.ExerciseRef{}, false
}

// weeklyReps applies the capped volume bump for hypertrophy/endurance.
func weeklyReps(params goalParams, week int) int {
	if params.weeklyRepsBump == 0 {
		return params.reps
	}
	bump := int(params.weeklyRepsBump * float64(week))
	if bump > params.maxRepsBump {
		bump = params.maxRepsBump
	}
	return params.reps + bump
}

// weeklyRpe applies the capped intensity bump for strength.
func weeklyRpe(params goalParams, week int) float64 {
	if params.weeklyRpeBump == 0 {
		return params.rpeTarget
	}
	rpe := params.rpeTarget + params.weeklyRpeBump*float64(week)
	if rpe > params.maxRpeTarget {
		rpe = params.maxRpeTarget
	}
	return rpe
}

// baseWeight derives a starting load from the profile's training max when
// one is given: 70% of the max, creeping up 2.5% per week. Without a
// training max the weight is left at zero for the client to fill in.
func baseWeight(profile TrainingProfile, week int) float64 {
	if profile.TrainingMax == nil || *profile.TrainingMax <= 0 {
		return 0
	}
	pct := 0.7 + 0.025*float64(week)
	if pct > 0.85 {
		pct = 0.85
	}
	return math.Round(*profile.TrainingMax*pct*2) / 2
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
