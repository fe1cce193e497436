// Package optimizer computes a reference minimum-cost feasible allocation.
// Two modes exist: bounded exhaustive enumeration for small instances and a
// curated strategic candidate menu for larger ones. The strategic mode is
// not a combinatorial search and may miss the global optimum for cost
// landscapes that reward non-obvious splits.
package optimizer

import (
	"fmt"

	"github.com/mfgplan/allocator/pkg/costmodel"
	"github.com/mfgplan/allocator/pkg/planning"
	"go.uber.org/zap"
)

// Mode selects the search policy.
type Mode string

const (
	// ModeAuto picks exhaustive enumeration when the search space is small
	// enough and falls back to the strategic menu otherwise.
	ModeAuto Mode = "auto"
	// ModeExhaustive enumerates unit splits at a bounded granularity.
	ModeExhaustive Mode = "exhaustive"
	// ModeStrategic evaluates a fixed menu of candidate strategies.
	ModeStrategic Mode = "strategic"
)

// exhaustive enumeration bounds for ModeAuto.
const (
	maxExhaustiveMachines = 6
	maxExhaustiveStates   = 2_000_000
)

// Candidate is one allocation the optimizer considers, tagged with the
// strategy that produced it.
type Candidate struct {
	Allocation planning.Allocation
	Strategy   string
}

// Result is the best allocation the optimizer found. Feasible is false when
// demand exceeds total capacity; in that case the allocation runs every
// machine at capacity and callers must inspect the flag rather than expect
// an error.
type Result struct {
	Allocation planning.Allocation `json:"allocation"`
	Cost       costmodel.Breakdown `json:"cost"`
	Feasible   bool                `json:"feasible"`
	Strategy   string              `json:"strategy"`
	Candidates int                 `json:"candidates"`
	Mode       Mode                `json:"mode"`
}

// Oracle searches a structured candidate space for the lowest-cost feasible
// allocation.
type Oracle struct {
	logger      *zap.Logger
	mode        Mode
	granularity int
}

// New constructs an Oracle. granularity is the unit step for exhaustive
// enumeration; zero or negative selects a step of demand/100 (at least 1)
// at optimization time.
func New(logger *zap.Logger, mode Mode, granularity int) *Oracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	if mode == "" {
		mode = ModeAuto
	}
	return &Oracle{logger: logger, mode: mode, granularity: granularity}
}

// Optimize returns the minimum-cost feasible allocation for the demand. If
// total capacity is below demand it returns the full-capacity allocation
// flagged infeasible. ErrNoFeasibleCandidate is returned only if candidate
// generation yields nothing that satisfies demand, which the unconditional
// greedy fill strategy prevents whenever capacity suffices.
func (o *Oracle) Optimize(machines planning.MachineSet, demand int) (Result, error) {
	if demand <= 0 {
		return Result{}, fmt.Errorf("%w: got %d", planning.ErrInvalidDemand, demand)
	}
	if len(machines) == 0 {
		return Result{}, planning.ErrEmptyMachineSet
	}

	if machines.TotalCapacity() < demand {
		full := machines.FullCapacity()
		o.logger.Warn("demand exceeds total capacity, returning maximal allocation",
			zap.Int("demand", demand),
			zap.Int("totalCapacity", machines.TotalCapacity()),
		)
		return Result{
			Allocation: full,
			Cost:       costmodel.Price(machines, full),
			Feasible:   false,
			Strategy:   "full_capacity",
			Candidates: 1,
			Mode:       o.mode,
		}, nil
	}

	step := o.granularity
	if step <= 0 {
		step = demand / 100
		if step < 1 {
			step = 1
		}
	}

	mode := o.mode
	if mode == ModeAuto {
		if exhaustiveFits(machines, demand, step) {
			mode = ModeExhaustive
		} else {
			mode = ModeStrategic
		}
	}

	candidates := StrategicCandidates(machines, demand)
	if mode == ModeExhaustive {
		// The strategic menu stays in the pool so the exhaustive grid can
		// never do worse than the curated baselines.
		candidates = append(candidates, enumerate(machines, demand, step)...)
	}

	best, evaluated := pickBest(machines, demand, candidates)
	if best == nil {
		return Result{}, fmt.Errorf("%w: evaluated %d candidates for demand %d",
			planning.ErrNoFeasibleCandidate, len(candidates), demand)
	}

	cost := costmodel.Price(machines, best.Allocation)
	o.logger.Debug("oracle selected candidate",
		zap.String("strategy", best.Strategy),
		zap.String("mode", string(mode)),
		zap.Int("candidates", evaluated),
		zap.Float64("total", cost.Total),
	)

	return Result{
		Allocation: best.Allocation,
		Cost:       cost,
		Feasible:   true,
		Strategy:   best.Strategy,
		Candidates: evaluated,
		Mode:       mode,
	}, nil
}

// pickBest prices every candidate that meets demand exactly without
// exceeding any capacity and keeps the cheapest. Candidate order breaks
// ties, so generation must be deterministic.
func pickBest(machines planning.MachineSet, demand int, candidates []Candidate) (*Candidate, int) {
	var best *Candidate
	bestCost := 0.0
	evaluated := 0
	for i := range candidates {
		candidate := candidates[i]
		if candidate.Allocation.Units() != demand {
			continue
		}
		if costmodel.Validate(machines, demand, candidate.Allocation) != nil {
			continue
		}
		evaluated++
		cost := costmodel.Price(machines, candidate.Allocation).Total
		if best == nil || cost < bestCost {
			best = &candidates[i]
			bestCost = cost
		}
	}
	return best, evaluated
}

func exhaustiveFits(machines planning.MachineSet, demand, step int) bool {
	if len(machines) > maxExhaustiveMachines {
		return false
	}
	states := 1
	names := machines.Names()
	for _, name := range names[:len(names)-1] {
		max := machines[name].Capacity
		if demand < max {
			max = demand
		}
		states *= max/step + 1
		if states > maxExhaustiveStates {
			return false
		}
	}
	return true
}

// enumerate walks the unit grid at the given step for all machines but the
// last, which absorbs the exact remainder. Each machine's own capacity cap
// is visited even when it is off the grid so full-utilization splits are
// not lost.
func enumerate(machines planning.MachineSet, demand, step int) []Candidate {
	names := machines.Names()
	var candidates []Candidate
	current := make(planning.Allocation, len(names))

	var walk func(index, remaining int)
	walk = func(index, remaining int) {
		if index == len(names)-1 {
			last := machines[names[index]]
			if remaining <= last.Capacity {
				alloc := current.Clone()
				alloc[names[index]] = remaining
				candidates = append(candidates, Candidate{Allocation: alloc, Strategy: "exhaustive_grid"})
			}
			return
		}
		machine := machines[names[index]]
		max := machine.Capacity
		if remaining < max {
			max = remaining
		}
		for units := 0; units <= max; units += step {
			current[names[index]] = units
			walk(index+1, remaining-units)
		}
		if max%step != 0 {
			current[names[index]] = max
			walk(index+1, remaining-max)
		}
		current[names[index]] = 0
	}

	walk(0, demand)
	return candidates
}
