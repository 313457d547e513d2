package engine

import (
	"sort"

	"github.com/edugest/mini-pautas-api/internal/models"
)

// dfs colors
const (
	white = iota // unvisited
	gray         // on the recursion stack
	black        // done
)

// ResolveOrder returns the calculated components of a catalog in dependency
// order: a component appears only after everything in its depends_on set.
// Non-calculated components are value sources and need no ordering.
//
// A back-edge during the depth-first walk means a cycle; the returned
// *CycleError names the component codes along it. No partial order is ever
// returned. The walk visits codes in sorted order, so the result is
// deterministic for a given catalog.
func ResolveOrder(components []models.GradeComponent) ([]models.GradeComponent, error) {
	byCode := make(map[string]models.GradeComponent, len(components))
	var codes []string
	for _, c := range components {
		if !c.IsCalculated {
			continue
		}
		byCode[c.Code] = c
		codes = append(codes, c.Code)
	}
	sort.Strings(codes)

	color := make(map[string]int, len(codes))
	stack := make([]string, 0, len(codes))
	order := make([]models.GradeComponent, 0, len(codes))

	var visit func(code string) error
	visit = func(code string) error {
		comp, ok := byCode[code]
		if !ok {
			// raw component or code outside the catalog: a value source,
			// nothing to order
			return nil
		}
		switch color[code] {
		case gray:
			return cycleFrom(stack, code)
		case black:
			return nil
		}
		color[code] = gray
		stack = append(stack, code)

		deps := append([]string(nil), comp.DependsOn...)
		sort.Strings(deps)
		for _, dep := range deps {
			if err := visit(dep); err != nil {
				return err
			}
		}

		stack = stack[:len(stack)-1]
		color[code] = black
		order = append(order, comp)
		return nil
	}

	for _, code := range codes {
		if err := visit(code); err != nil {
			return nil, err
		}
	}
	return order, nil
}

func cycleFrom(stack []string, code string) *CycleError {
	start := 0
	for i, c := range stack {
		if c == code {
			start = i
			break
		}
	}
	cycle := append([]string(nil), stack[start:]...)
	cycle = append(cycle, code)
	return &CycleError{Cycle: cycle}
}

// ComputableNow reports whether every dependency of a calculated component
// has a concrete value (raw or already-calculated) in the student's value
// map. A single missing dependency means the component is not computed and
// not persisted, and that absence propagates up any chain that needs it.
func ComputableNow(component models.GradeComponent, values map[string]float64) bool {
	for _, dep := range component.DependsOn {
		if _, ok := values[dep]; !ok {
			return false
		}
	}
	return true
}

// DependentsOf returns the codes of calculated components whose value can
// change when the given code changes, directly or through a chain.
func DependentsOf(components []models.GradeComponent, code string) map[string]struct{} {
	dependents := make(map[string]struct{})
	changed := true
	for changed {
		changed = false
		for _, c := range components {
			if !c.IsCalculated {
				continue
			}
			if _, done := dependents[c.Code]; done {
				continue
			}
			for _, dep := range c.DependsOn {
				_, hit := dependents[dep]
				if dep == code || hit {
					dependents[c.Code] = struct{}{}
					changed = true
					break
				}
			}
		}
	}
	return dependents
}
