package optimizer

import (
	"errors"
	"testing"

	"github.com/mfgplan/allocator/pkg/costmodel"
	"github.com/mfgplan/allocator/pkg/planning"
	"go.uber.org/zap"
)

func scenarioMachines() planning.MachineSet {
	return planning.MachineSet{
		"M1": {Name: "M1", Capacity: 1000, VariableCost: 5, FixedCost: 100},
		"M2": {Name: "M2", Capacity: 2000, VariableCost: 3, FixedCost: 200},
	}
}

func TestOptimizeScenarioA(t *testing.T) {
	// M2 is cheaper per unit, so the optimizer must load it fully before
	// touching M1: {M2: 2000, M1: 500} at a total of 8800.
	machines := scenarioMachines()

	for _, mode := range []Mode{ModeAuto, ModeExhaustive, ModeStrategic} {
		t.Run(string(mode), func(t *testing.T) {
			oracle := New(zap.NewNop(), mode, 0)
			result, err := oracle.Optimize(machines, 2500)
			if err != nil {
				t.Fatalf("optimize failed: %v", err)
			}
			if !result.Feasible {
				t.Fatalf("expected feasible result")
			}
			want := planning.Allocation{"M1": 500, "M2": 2000}
			if !result.Allocation.Equal(want) {
				t.Errorf("expected %v, got %v", want, result.Allocation)
			}
			if result.Cost.Total != 8800 {
				t.Errorf("expected total 8800, got %v", result.Cost.Total)
			}
		})
	}
}

func TestOptimizeScenarioCDemandExceedsCapacity(t *testing.T) {
	machines := scenarioMachines()
	oracle := New(zap.NewNop(), ModeAuto, 0)

	result, err := oracle.Optimize(machines, 5000)
	if err != nil {
		t.Fatalf("expected infeasible result, not error: %v", err)
	}
	if result.Feasible {
		t.Errorf("expected feasibility flag false")
	}
	if result.Allocation.Units() != machines.TotalCapacity() {
		t.Errorf("expected full-capacity allocation of %d units, got %d",
			machines.TotalCapacity(), result.Allocation.Units())
	}
}

func TestOptimizeNeverBeatenByBaselines(t *testing.T) {
	sets := []planning.MachineSet{
		scenarioMachines(),
		{
			"Tool_127": {Name: "Tool_127", Capacity: 2000, VariableCost: 3, FixedCost: 500},
			"Tool_157": {Name: "Tool_157", Capacity: 1100, VariableCost: 7, FixedCost: 1500},
			"Tool_377": {Name: "Tool_377", Capacity: 900, VariableCost: 7, FixedCost: 5000},
			"Tool_673": {Name: "Tool_673", Capacity: 1000, VariableCost: 4, FixedCost: 1500},
		},
	}

	for _, machines := range sets {
		demand := machines.TotalCapacity() * 3 / 4
		oracle := New(zap.NewNop(), ModeStrategic, 0)
		result, err := oracle.Optimize(machines, demand)
		if err != nil {
			t.Fatalf("optimize failed: %v", err)
		}

		for _, candidate := range StrategicCandidates(machines, demand) {
			if candidate.Allocation.Units() != demand {
				continue
			}
			if costmodel.Validate(machines, demand, candidate.Allocation) != nil {
				continue
			}
			cost := costmodel.Price(machines, candidate.Allocation).Total
			if result.Cost.Total > cost {
				t.Errorf("optimizer result %v beaten by %s at %v", result.Cost.Total, candidate.Strategy, cost)
			}
		}
	}
}

func TestOptimizeExhaustiveFindsOffMenuSplit(t *testing.T) {
	// The greedy fill loads B for the last 10 units and pays its fixed cost;
	// only the exhaustive grid discovers that routing the overflow to the
	// tiny machine C avoids it entirely.
	machines := planning.MachineSet{
		"A": {Name: "A", Capacity: 100, VariableCost: 1, FixedCost: 0},
		"B": {Name: "B", Capacity: 1000, VariableCost: 1.05, FixedCost: 100},
		"C": {Name: "C", Capacity: 10, VariableCost: 3, FixedCost: 0},
	}
	oracle := New(zap.NewNop(), ModeExhaustive, 1)
	result, err := oracle.Optimize(machines, 110)
	if err != nil {
		t.Fatalf("optimize failed: %v", err)
	}
	want := planning.Allocation{"A": 100, "C": 10}
	if !result.Allocation.Equal(want) {
		t.Errorf("expected %v, got %v", want, result.Allocation)
	}
	if result.Cost.Total != 130 {
		t.Errorf("expected total 130, got %v", result.Cost.Total)
	}
	if result.Strategy != "exhaustive_grid" {
		t.Errorf("expected exhaustive_grid strategy, got %s", result.Strategy)
	}
}

func TestOptimizeInvalidDemand(t *testing.T) {
	oracle := New(zap.NewNop(), ModeAuto, 0)
	if _, err := oracle.Optimize(scenarioMachines(), 0); !errors.Is(err, planning.ErrInvalidDemand) {
		t.Errorf("expected ErrInvalidDemand, got %v", err)
	}
}

func TestOptimizeEmptyMachineSet(t *testing.T) {
	oracle := New(zap.NewNop(), ModeAuto, 0)
	if _, err := oracle.Optimize(planning.MachineSet{}, 100); !errors.Is(err, planning.ErrEmptyMachineSet) {
		t.Errorf("expected ErrEmptyMachineSet, got %v", err)
	}
}

func TestStrategicCandidatesMenu(t *testing.T) {
	machines := scenarioMachines()
	candidates := StrategicCandidates(machines, 2500)

	// 2 single-machine + 3 pairwise splits + equal + capacity-weighted +
	// greedy fill.
	if len(candidates) != 8 {
		t.Fatalf("expected 8 candidates, got %d", len(candidates))
	}

	strategies := make(map[string]bool)
	for _, candidate := range candidates {
		strategies[candidate.Strategy] = true
	}
	for _, want := range []string{"single_machine:M1", "equal_distribution", "capacity_weighted", "greedy_fill"} {
		if !strategies[want] {
			t.Errorf("expected strategy %s in menu", want)
		}
	}
}

func TestGreedyFillMeetsDemandWhenCapacitySuffices(t *testing.T) {
	machines := scenarioMachines()
	alloc := GreedyFill(machines, 2500, planning.FullCapacityAmortized)
	if alloc.Units() != 2500 {
		t.Errorf("expected greedy fill to meet demand, got %d units", alloc.Units())
	}
	if alloc["M2"] != 2000 {
		t.Errorf("expected cheapest machine loaded first, got %v", alloc)
	}
}

func TestEqualDistributionSpreadsRemainder(t *testing.T) {
	machines := planning.MachineSet{
		"A": {Name: "A", Capacity: 100},
		"B": {Name: "B", Capacity: 100},
		"C": {Name: "C", Capacity: 100},
	}
	alloc := equalDistribution(machines.Names(), 100)
	if alloc.Units() != 100 {
		t.Errorf("expected 100 units, got %d", alloc.Units())
	}
	if alloc["A"] != 34 || alloc["B"] != 33 || alloc["C"] != 33 {
		t.Errorf("unexpected distribution: %v", alloc)
	}
}

func TestCapacityWeightedMeetsDemandExactly(t *testing.T) {
	machines := scenarioMachines()
	alloc := capacityWeighted(machines, 2500)
	if alloc.Units() != 2500 {
		t.Errorf("expected 2500 units, got %d", alloc.Units())
	}
}
