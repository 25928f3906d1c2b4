package progression

import (
	"math"
	"sort"
	"time"
)

type Rule string

const (
	// RuleIntensity biases toward increasing load, used for strength goals.
	RuleIntensity Rule = "INTENSITY"
	// RuleVolume biases toward increasing reps first, used for
	// hypertrophy and endurance goals.
	RuleVolume Rule = "VOLUME"
)

func (r Rule) Valid() bool {
	return r == RuleIntensity || r == RuleVolume
}

// HistoryEntry is one observed performance point for an exercise, derived
// from the most recent logged sets. Transient, never persisted.
type HistoryEntry struct {
	Date       time.Time `json:"date"`
	ExerciseID int64     `json:"exerciseId"`
	Weight     float64   `json:"weight"`
	Reps       int       `json:"reps"`
	Rpe        *float64  `json:"rpe,omitempty"`
	Adherence  float64   `json:"adherence"`
}

// Adjustment is the computed target override for one exercise.
type Adjustment struct {
	ExerciseID   int64   `json:"exerciseId"`
	TargetWeight float64 `json:"targetWeight"`
	TargetReps   int     `json:"targetReps"`
	Adherence    float64 `json:"adherence"`
}

const (
	// HistoryWindow is the per-exercise bound on how many recent entries
	// are considered.
	HistoryWindow = 6

	highAdherence     = 0.85
	moderateAdherence = 0.6

	minWeightIncreasePct = 0.025
	maxWeightIncreasePct = 0.05
)

// ComputeAdjustments maps recent per-exercise history to target adjustments
// under the given rule. Pure and deterministic: identical input always
// yields identical output, exercises without history yield no adjustment,
// and empty history yields an empty list.
func ComputeAdjustments(history []HistoryEntry, rule Rule) []Adjustment {
	adjustments := make([]Adjustment, 0)
	if len(history) == 0 {
		return adjustments
	}

	byExercise := make(map[int64][]HistoryEntry)
	for _, entry := range history {
		byExercise[entry.ExerciseID] = append(byExercise[entry.ExerciseID], entry)
	}

	exerciseIDs := make([]int64, 0, len(byExercise))
	for id := range byExercise {
		exerciseIDs = append(exerciseIDs, id)
	}
	sort.Slice(exerciseIDs, func(i, j int) bool { return exerciseIDs[i] < exerciseIDs[j] })

	for _, exerciseID := range exerciseIDs {
		entries := byExercise[exerciseID]
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Date.After(entries[j].Date)
		})
		if len(entries) > HistoryWindow {
			entries = entries[:HistoryWindow]
		}

		adjustments = append(adjustments, adjustExercise(exerciseID, entries, rule))
	}

	return adjustments
}

func adjustExercise(exerciseID int64, recent []HistoryEntry, rule Rule) Adjustment {
	var adherenceSum float64
	for _, e := range recent {
		adherenceSum += e.Adherence
	}
	avgAdherence := adherenceSum / float64(len(recent))

	// entries are sorted most recent first
	last := recent[0]
	weight := last.Weight
	reps := last.Reps

	switch rule {
	case RuleIntensity:
		switch {
		case avgAdherence >= highAdherence:
			weight = bumpWeight(weight, avgAdherence)
		case avgAdherence >= moderateAdherence:
			reps += repsIncrement(avgAdherence)
		}
	case RuleVolume:
		switch {
		case avgAdherence >= highAdherence:
			reps += repsIncrement(avgAdherence)
		case avgAdherence >= moderateAdherence:
			// reps stalled, nudge the load by the minimum increment instead
			weight = bumpWeight(weight, avgAdherence)
		}
	}
	// below moderate adherence targets hold at the last observed values

	return Adjustment{
		ExerciseID:   exerciseID,
		TargetWeight: weight,
		TargetReps:   reps,
		Adherence:    roundTo(avgAdherence, 2),
	}
}

// bumpWeight increases the weight by 2.5%-5%, scaled by how far the
// adherence sits above the high threshold, rounded to the nearest 0.5.
func bumpWeight(weight, adherence float64) float64 {
	if weight <= 0 {
		return weight
	}
	scale := (adherence - highAdherence) / (1 - highAdherence)
	if scale < 0 {
		scale = 0
	} else if scale > 1 {
		scale = 1
	}
	pct := minWeightIncreasePct + scale*(maxWeightIncreasePct-minWeightIncreasePct)
	return math.Round(weight*(1+pct)*2) / 2
}

// repsIncrement maps adherence to a 1 or 2 reps increase.
func repsIncrement(adherence float64) int {
	if adherence >= (highAdherence+moderateAdherence)/2 {
		return 2
	}
	return 1
}

func roundTo(v float64, decimals int) float64 {
	factor := math.Pow(10, float64(decimals))
	return math.Round(v*factor) / factor
}
