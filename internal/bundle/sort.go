package bundle

import (
	"slices"
	"sort"
	"strings"

	"github.com/vk/gridlink/internal/failure"
)

// TopSort orders the registry so that every bundle comes after all bundles
// it depends on. Dependencies on ids that are not registered are ignored
// here; Verify reports them.
//
// The algorithm counts, per bundle, how many other bundles require it and
// repeatedly takes bundles nobody (left) requires. That yields dependents
// before dependencies, so the result is reversed at the end. If some bundles
// can never be taken they form a cycle.
func TopSort(r *Registry) ([]string, error) {
	ids := r.IDs()

	required := make(map[string]int, len(ids))
	for _, id := range ids {
		d, _ := r.Get(id)
		for _, dep := range d.dependencies {
			if _, ok := r.byID[dep.BundleID]; ok {
				required[dep.BundleID]++
			}
		}
	}

	// Seed in reverse lexical order so the stack pops the lexically smallest
	// id first.
	var stack []string
	for i := len(ids) - 1; i >= 0; i-- {
		if required[ids[i]] == 0 {
			stack = append(stack, ids[i])
		}
	}

	result := make([]string, 0, len(ids))
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		result = append(result, id)

		d, _ := r.Get(id)
		for _, dep := range d.dependencies {
			if _, ok := r.byID[dep.BundleID]; !ok {
				continue
			}
			required[dep.BundleID]--
			if required[dep.BundleID] == 0 {
				stack = append(stack, dep.BundleID)
			}
		}
	}

	if len(result) < len(ids) {
		cycle := findCycle(r, required)
		return nil, failure.New(failure.CyclicDependency, "",
			"cyclic bundle dependency: %s", strings.Join(cycle, " => "))
	}

	slices.Reverse(result)
	return result, nil
}

// findCycle names one cycle among the bundles left over by TopSort. Every
// leftover bundle is still required by at least one other leftover bundle,
// so walking "required by" edges must eventually revisit a bundle.
func findCycle(r *Registry, required map[string]int) []string {
	var remaining []string
	for id, count := range required {
		if count > 0 {
			remaining = append(remaining, id)
		}
	}
	sort.Strings(remaining)

	requiredBy := make(map[string][]string)
	for _, id := range remaining {
		d, _ := r.Get(id)
		for _, dep := range d.dependencies {
			if required[dep.BundleID] > 0 {
				requiredBy[dep.BundleID] = append(requiredBy[dep.BundleID], id)
			}
		}
	}

	seen := make(map[string]int)
	var path []string
	cur := remaining[0]
	for {
		if at, ok := seen[cur]; ok {
			cycle := append([]string(nil), path[at:]...)
			// path follows "required by"; flip it to read as "depends on".
			slices.Reverse(cycle)
			start := slices.Index(cycle, slices.Min(cycle))
			cycle = append(append([]string(nil), cycle[start:]...), cycle[:start]...)
			return append(cycle, cycle[0])
		}
		seen[cur] = len(path)
		path = append(path, cur)
		next := requiredBy[cur]
		if len(next) == 0 {
			return remaining
		}
		cur = next[0]
	}
}
