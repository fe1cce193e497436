// Package costmodel prices allocations against machine specifications and
// validates allocations for strict callers.
package costmodel

import (
	"fmt"

	"github.com/mfgplan/allocator/pkg/mathutil"
	"github.com/mfgplan/allocator/pkg/planning"
)

// Breakdown is the derived cost of an allocation. A machine contributes its
// fixed cost only when it is allocated at least one unit.
type Breakdown struct {
	VariableTotal float64 `json:"variableTotal"`
	FixedTotal    float64 `json:"fixedTotal"`
	Total         float64 `json:"total"`
}

// Rounded returns the breakdown with every value rounded to two decimals.
// Rounding happens only at the boundary where a breakdown is reported.
func (b Breakdown) Rounded() Breakdown {
	return Breakdown{
		VariableTotal: mathutil.Round(b.VariableTotal),
		FixedTotal:    mathutil.Round(b.FixedTotal),
		Total:         mathutil.Round(b.Total),
	}
}

// Price computes the cost breakdown for an allocation. It is pure and
// deterministic and never fails: machines allocated zero units contribute
// nothing, and entries naming machines outside the set are ignored (strict
// callers reject those through Validate before pricing).
func Price(machines planning.MachineSet, allocation planning.Allocation) Breakdown {
	var breakdown Breakdown
	for name, units := range allocation {
		if units <= 0 {
			continue
		}
		machine, ok := machines[name]
		if !ok {
			continue
		}
		breakdown.VariableTotal += float64(units) * machine.VariableCost
		breakdown.FixedTotal += machine.FixedCost
	}
	breakdown.Total = breakdown.VariableTotal + breakdown.FixedTotal
	return breakdown
}

// Validate is the strict gate in front of Price. It fails fast on contract
// violations: non-positive demand, references to machines outside the set,
// and per-machine capacity overruns. Callers that go through feasibility
// repair never see these errors.
func Validate(machines planning.MachineSet, demand int, allocation planning.Allocation) error {
	if demand <= 0 {
		return fmt.Errorf("%w: got %d", planning.ErrInvalidDemand, demand)
	}
	for name, units := range allocation {
		machine, ok := machines[name]
		if !ok {
			return fmt.Errorf("%w: %s", planning.ErrUnknownMachine, name)
		}
		if units > machine.Capacity {
			return fmt.Errorf("%w: machine %s allocated %d units but capacity is %d",
				planning.ErrCapacityExceeded, name, units, machine.Capacity)
		}
	}
	return nil
}
