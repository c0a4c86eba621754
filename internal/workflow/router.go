package workflow

import (
	"fmt"
	"slices"
)

// Routing selects how many processor stages a batch runs.
type Routing string

const (
	// RoutingPriority runs only the highest-priority category present.
	RoutingPriority Routing = "priority"
	// RoutingAll runs every present category, one stage at a time, in priority order.
	RoutingAll Routing = "all"
)

// ParseRouting validates a routing policy name. Empty means priority.
func ParseRouting(s string) (Routing, error) {
	switch r := Routing(s); r {
	case "":
		return RoutingPriority, nil
	case RoutingPriority, RoutingAll:
		return r, nil
	default:
		return "", fmt.Errorf("%w: unknown routing %q", ErrInvalidConfig, s)
	}
}

// Route picks the next stage for the categories present in a batch.
// The first recognized category in priority order wins; with none
// present the batch goes straight to synthesis. Input order and
// duplicates do not matter.
func Route(present []Category) Stage {
	for _, c := range priority {
		if slices.Contains(present, c) {
			return StageFor(c)
		}
	}
	return StageSynthesize
}

// Plan returns the processing stages a batch runs under the given policy.
// An empty plan means synthesis follows routing directly.
func Plan(present []Category, routing Routing) []Stage {
	if routing != RoutingAll {
		stage := Route(present)
		if stage == StageSynthesize {
			return nil
		}
		return []Stage{stage}
	}

	stages := make([]Stage, 0, len(priority))
	for _, c := range priority {
		if slices.Contains(present, c) {
			stages = append(stages, StageFor(c))
		}
	}
	return stages
}
