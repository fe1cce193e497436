// Package repair turns arbitrary candidate allocations into valid ones. It
// trades off exactness of the caller's intent for guaranteed feasibility
// and never fails.
package repair

import (
	"fmt"

	"github.com/mfgplan/allocator/pkg/planning"
)

// Report records what repair had to change. It is a side channel for
// logging; the returned allocation's contract does not depend on it.
type Report struct {
	// ClampViolations describes machines whose requested units exceeded
	// capacity, or entries naming machines outside the set.
	ClampViolations []string
	// ShortfallFilled is the number of units added during the shortfall
	// fill pass.
	ShortfallFilled int
	// CapacityShort is the number of demanded units that could not be
	// produced because total capacity is below demand. Callers detect
	// infeasibility by comparing the returned allocation's units to demand.
	CapacityShort int
}

// Dirty reports whether repair changed anything about the raw allocation.
func (r Report) Dirty() bool {
	return len(r.ClampViolations) > 0 || r.ShortfallFilled > 0 || r.CapacityShort > 0
}

// Repair returns a valid allocation derived from raw: every machine of the
// set appears, no machine exceeds its capacity, and the total equals demand
// whenever total capacity allows it. If total capacity is below demand the
// result is the full-capacity allocation. rank orders machines for the
// shortfall fill pass; when nil, planning.HalfCapacityAmortized is used.
func Repair(machines planning.MachineSet, demand int, raw planning.Allocation, rank planning.RankFunc) (planning.Allocation, Report) {
	if rank == nil {
		rank = planning.HalfCapacityAmortized
	}

	var report Report
	fixed := make(planning.Allocation, len(machines))

	// Capacity clamp. Entries for unknown machines are dropped; they have
	// no capacity to produce against.
	for name, units := range raw {
		machine, ok := machines[name]
		if !ok {
			report.ClampViolations = append(report.ClampViolations,
				fmt.Sprintf("%s: not in machine set, dropped %d units", name, units))
			continue
		}
		if units < 0 {
			report.ClampViolations = append(report.ClampViolations,
				fmt.Sprintf("%s: negative units %d clamped to 0", name, units))
			units = 0
		}
		if units > machine.Capacity {
			report.ClampViolations = append(report.ClampViolations,
				fmt.Sprintf("%s: %d units exceed capacity %d", name, units, machine.Capacity))
			units = machine.Capacity
		}
		fixed[name] = units
	}

	// Shortfall fill: add units to the most efficient machines' remaining
	// headroom until demand is met or all capacity is exhausted.
	remaining := demand - fixed.Units()
	if remaining > 0 {
		for _, machine := range planning.Rank(machines, rank) {
			if remaining <= 0 {
				break
			}
			headroom := machine.Capacity - fixed[machine.Name]
			if headroom <= 0 {
				continue
			}
			add := headroom
			if remaining < add {
				add = remaining
			}
			fixed[machine.Name] += add
			remaining -= add
			report.ShortfallFilled += add
		}
	}
	if remaining > 0 {
		report.CapacityShort = remaining
	}

	// Universe completion: every machine appears, defaulting to zero.
	for name := range machines {
		if _, ok := fixed[name]; !ok {
			fixed[name] = 0
		}
	}

	return fixed, report
}
