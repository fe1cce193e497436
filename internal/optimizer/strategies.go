package optimizer

import (
	"fmt"

	"github.com/mfgplan/allocator/pkg/planning"
)

// pairwiseSplits are the demand ratios tried for every two-machine
// combination.
var pairwiseSplits = []float64{0.25, 0.5, 0.75}

// StrategicCandidates generates the fixed menu of candidate allocations:
// single-machine-covers-all-demand, all pairwise splits at 25/50/75 ratios,
// equal distribution, capacity-weighted distribution, and a greedy
// efficiency-ranked fill. Candidates may violate demand or capacity
// constraints; callers filter before pricing. Generation order is
// deterministic.
func StrategicCandidates(machines planning.MachineSet, demand int) []Candidate {
	names := machines.Names()
	var candidates []Candidate

	for _, name := range names {
		candidates = append(candidates, Candidate{
			Allocation: singleMachine(names, name, demand),
			Strategy:   fmt.Sprintf("single_machine:%s", name),
		})
	}

	for i := 0; i < len(names); i++ {
		for j := i + 1; j < len(names); j++ {
			for _, split := range pairwiseSplits {
				candidates = append(candidates, Candidate{
					Allocation: pairSplit(names, names[i], names[j], demand, split),
					Strategy:   fmt.Sprintf("pair_split:%s/%s@%.0f%%", names[i], names[j], split*100),
				})
			}
		}
	}

	candidates = append(candidates,
		Candidate{Allocation: equalDistribution(names, demand), Strategy: "equal_distribution"},
		Candidate{Allocation: capacityWeighted(machines, demand), Strategy: "capacity_weighted"},
		Candidate{Allocation: GreedyFill(machines, demand, planning.FullCapacityAmortized), Strategy: "greedy_fill"},
	)

	return candidates
}

// GreedyFill allocates demand to machines in ascending rank order, loading
// each to capacity before moving on. With the full-utilization ranking this
// is the classic cheapest-cost-per-unit fill; it always meets demand when
// total capacity suffices.
func GreedyFill(machines planning.MachineSet, demand int, rank planning.RankFunc) planning.Allocation {
	if rank == nil {
		rank = planning.FullCapacityAmortized
	}
	alloc := zeroAllocation(machines.Names())
	remaining := demand
	for _, machine := range planning.Rank(machines, rank) {
		if remaining <= 0 {
			break
		}
		units := machine.Capacity
		if remaining < units {
			units = remaining
		}
		alloc[machine.Name] = units
		remaining -= units
	}
	return alloc
}

func singleMachine(names []string, chosen string, demand int) planning.Allocation {
	alloc := zeroAllocation(names)
	alloc[chosen] = demand
	return alloc
}

func pairSplit(names []string, first, second string, demand int, split float64) planning.Allocation {
	alloc := zeroAllocation(names)
	units := int(float64(demand) * split)
	alloc[first] = units
	alloc[second] = demand - units
	return alloc
}

func equalDistribution(names []string, demand int) planning.Allocation {
	alloc := zeroAllocation(names)
	share := demand / len(names)
	remainder := demand % len(names)
	for i, name := range names {
		alloc[name] = share
		if i < remainder {
			alloc[name]++
		}
	}
	return alloc
}

// capacityWeighted distributes demand proportionally to capacity, with the
// last machine in name order absorbing integer truncation.
func capacityWeighted(machines planning.MachineSet, demand int) planning.Allocation {
	names := machines.Names()
	alloc := zeroAllocation(names)
	totalCapacity := machines.TotalCapacity()
	if totalCapacity == 0 {
		return alloc
	}
	allocated := 0
	for i, name := range names {
		if i == len(names)-1 {
			alloc[name] = demand - allocated
			break
		}
		units := int(float64(demand) * float64(machines[name].Capacity) / float64(totalCapacity))
		alloc[name] = units
		allocated += units
	}
	return alloc
}

func zeroAllocation(names []string) planning.Allocation {
	alloc := make(planning.Allocation, len(names))
	for _, name := range names {
		alloc[name] = 0
	}
	return alloc
}
