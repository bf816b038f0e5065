package spec

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/statebox/internal/emitter"
)

// CycleWarning is a chain of effects that can re-enter a field.
//
// Cycles are warnings because a guarded or converging rule may never fire
// twice in one chain: the store suppresses equal writes, so x -> x with
// `to: "value"` is harmless. A chain that does change values is rejected
// by the store at run time with a cycle error.
type CycleWarning struct {
	Path    []string `json:"path"`
	Message string   `json:"message"`
	Level   string   `json:"level"`
}

// AnalyzeCycles finds the strongly connected components of the effect
// graph (an edge when -> set per rule) and reports each one that forms a
// cycle. Warnings are ordered by the declaration order of their first key.
func AnalyzeCycles(def *Definition) []CycleWarning {
	warnings := []CycleWarning{}
	if len(def.Effects) == 0 {
		return warnings
	}

	graph := buildEffectGraph(def)
	for _, scc := range tarjanSCC(def.Keys, graph) {
		if len(scc) > 1 || graph.hasEdge(scc[0], scc[0]) {
			warnings = append(warnings, sccToWarning(scc, graph))
		}
	}
	return warnings
}

// effectGraph maps a field to the fields its effects write, without
// duplicates, in rule order.
type effectGraph map[string][]string

func buildEffectGraph(def *Definition) effectGraph {
	graph := make(effectGraph, len(def.Keys))
	for _, key := range def.Keys {
		graph[key] = []string{}
	}
	for _, rule := range def.Effects {
		if !def.HasKey(rule.When) || !def.HasKey(rule.Set) {
			continue
		}
		if !slices.Contains(graph[rule.When], rule.Set) {
			graph[rule.When] = append(graph[rule.When], rule.Set)
		}
	}
	return graph
}

func (g effectGraph) hasEdge(from, to string) bool {
	return slices.Contains(g[from], to)
}

// tarjanSCC returns the strongly connected components of graph, visiting
// nodes in order. Members of each component are sorted by their position
// in order.
func tarjanSCC(order []string, graph effectGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)
	position := make(map[string]int, len(order))
	for i, key := range order {
		position[key] = i
	}

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.SortFunc(scc, func(a, b string) int { return position[a] - position[b] })
			sccs = append(sccs, scc)
		}
	}

	for _, node := range order {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	slices.SortFunc(sccs, func(a, b []string) int { return position[a[0]] - position[b[0]] })
	return sccs
}

func sccToWarning(scc []string, graph effectGraph) CycleWarning {
	path := []string{scc[0], scc[0]}
	msg := "self-triggering effect"
	if len(scc) > 1 {
		path = cyclePath(scc, graph)
		msg = "potential effect cycle"
	}
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("%s: %s", msg, strings.Join(path, emitter.ChainSeparator)),
		Level:   "warning",
	}
}

// cyclePath walks edges inside the component from its first member until
// it returns to it.
func cyclePath(scc []string, graph effectGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := map[string]bool{}
	for {
		visited[current] = true
		next := ""
		for _, w := range graph[current] {
			if w == start && len(path) > 1 {
				next = w
				break
			}
		}
		if next == "" {
			for _, w := range graph[current] {
				if members[w] && !visited[w] {
					next = w
					break
				}
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
