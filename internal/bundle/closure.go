package bundle

import (
	"sort"

	"github.com/vk/gridlink/internal/failure"
)

// Closure returns root and every bundle root transitively depends on, in
// lexical order. Dependencies on unregistered ids are skipped. It must only
// be called on a registry that TopSort accepted.
func (r *Registry) Closure(root string) ([]string, error) {
	if _, ok := r.byID[root]; !ok {
		return nil, failure.New(failure.UnknownBundle, "", "root bundle '%s' is not registered", root)
	}

	visited := make(map[string]struct{})
	var visit func(id string)
	visit = func(id string) {
		if _, ok := visited[id]; ok {
			return
		}
		d, ok := r.byID[id]
		if !ok {
			return
		}
		visited[id] = struct{}{}
		for _, dep := range d.dependencies {
			visit(dep.BundleID)
		}
	}
	visit(root)

	members := make([]string, 0, len(visited))
	for id := range visited {
		members = append(members, id)
	}
	sort.Strings(members)
	return members, nil
}

// Restrict keeps the ids of order that are members, preserving order.
func Restrict(order, members []string) []string {
	set := make(map[string]struct{}, len(members))
	for _, m := range members {
		set[m] = struct{}{}
	}
	out := make([]string, 0, len(members))
	for _, id := range order {
		if _, ok := set[id]; ok {
			out = append(out, id)
		}
	}
	return out
}
