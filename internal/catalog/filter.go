package catalog

import (
	"sort"
	"strings"
)

// Filter describes which exercises are eligible for a training profile.
// All set means no equipment filtering; an empty Allowed set with All unset
// means no exercise is eligible.
type Filter struct {
	All     bool
	Allowed []string
}

const (
	EquipmentFullGym    = "gym completo"
	EquipmentDumbbells  = "mancuernas"
	EquipmentBodyweight = "bodyweight"
)

var dumbbellAllowSet = []string{
	"dumbbells", "kettlebell", "resistance-band", "bodyweight", "plyo-box",
}

var bodyweightAllowSet = []string{
	"bodyweight", "resistance-band",
}

// FilterForEquipment maps the profile's equipment tags to an equipment
// allow-set. Unrecognized tag combinations produce an empty allow-set,
// the generator then degrades to empty exercise lists instead of failing.
func FilterForEquipment(tags []string) Filter {
	tagSet := make(map[string]bool, len(tags))
	for _, t := range tags {
		tagSet[strings.ToLower(strings.TrimSpace(t))] = true
	}

	switch {
	case tagSet[EquipmentFullGym]:
		return Filter{All: true}
	case tagSet[EquipmentDumbbells]:
		return Filter{Allowed: dumbbellAllowSet}
	case tagSet[EquipmentBodyweight]:
		return Filter{Allowed: bodyweightAllowSet}
	default:
		return Filter{}
	}
}

// Key returns a stable cache key for the filter.
func (f Filter) Key() string {
	if f.All {
		return "all"
	}
	if len(f.Allowed) == 0 {
		return "none"
	}
	allowed := make([]string, len(f.Allowed))
	copy(allowed, f.Allowed)
	sort.Strings(allowed)
	return strings.Join(allowed, ",")
}

// Empty reports whether the filter admits no exercises at all.
func (f Filter) Empty() bool {
	return !f.All && len(f.Allowed) == 0
}
