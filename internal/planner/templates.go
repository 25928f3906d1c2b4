package planner

// templateDay declares the target muscle groups for one day of a split.
// Group tags match the lower-cased catalog muscle_group values.
type templateDay struct {
	title        string
	description  string
	muscleGroups []string
}

var (
	pushDay = templateDay{
		title:        "Push",
		description:  "chest, shoulders and triceps",
		muscleGroups: []string{"chest", "shoulders", "triceps"},
	}
	pullDay = templateDay{
		title:        "Pull",
		description:  "back and biceps",
		muscleGroups: []string{"back", "biceps", "core"},
	}
	legsDay = templateDay{
		title:        "Legs",
		description:  "lower body",
		muscleGroups: []string{"legs", "glutes", "core"},
	}
	upperDayA = templateDay{
		title:        "Upper A",
		description:  "upper body, horizontal focus",
		muscleGroups: []string{"chest", "back", "shoulders"},
	}
	upperDayB = templateDay{
		title:        "Upper B",
		description:  "upper body, arms focus",
		muscleGroups: []string{"shoulders", "biceps", "triceps"},
	}
	lowerDayA = templateDay{
		title:        "Lower A",
		description:  "lower body, quad focus",
		muscleGroups: []string{"legs", "glutes", "core"},
	}
	lowerDayB = templateDay{
		title:        "Lower B",
		description:  "lower body, hip focus",
		muscleGroups: []string{"glutes", "legs", "core"},
	}
	metabolicCoreDay = templateDay{
		title:        "Metabolic Core",
		description:  "conditioning and core",
		muscleGroups: []string{"core", "cardio", "legs"},
	}
)

func variant(day templateDay, suffix string) templateDay {
	day.title += " " + suffix
	return day
}

// splitForFrequency maps weekly frequency to an ordered day-template split.
// The split is a pure function of frequency, nothing else.
func splitForFrequency(frequency int) []templateDay {
	switch {
	case frequency <= 3:
		return []templateDay{pushDay, pullDay, legsDay}
	case frequency == 4:
		return []templateDay{upperDayA, lowerDayA, upperDayB, lowerDayB}
	case frequency == 5:
		return []templateDay{pushDay, pullDay, legsDay, upperDayA, metabolicCoreDay}
	default:
		return []templateDay{
			variant(pushDay, "A"), variant(pullDay, "A"), variant(legsDay, "A"),
			variant(pushDay, "B"), variant(pullDay, "B"), variant(legsDay, "B"),
		}
	}
}
