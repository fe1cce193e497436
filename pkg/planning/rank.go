package planning

import "sort"

// RankFunc scores a machine for efficiency ranking; lower scores are
// preferred. Ranking functions are named and swappable so alternative
// heuristics can be substituted without touching repair or optimizer
// control flow.
type RankFunc func(Machine) float64

// HalfCapacityAmortized scores a machine by its variable cost plus fixed
// cost amortized over half of its capacity. This is the shortfall-fill
// heuristic used by feasibility repair. It is an approximation: it can
// mis-rank machines whose optimal utilization differs materially from half
// capacity.
func HalfCapacityAmortized(m Machine) float64 {
	if m.Capacity <= 0 {
		return m.VariableCost
	}
	return m.VariableCost + m.FixedCost/(float64(m.Capacity)*0.5)
}

// FullCapacityAmortized scores a machine by its variable cost plus fixed
// cost amortized over its full capacity. This is the greedy fill heuristic
// used by the oracle optimizer.
func FullCapacityAmortized(m Machine) float64 {
	if m.Capacity <= 0 {
		return m.VariableCost
	}
	return m.VariableCost + m.FixedCost/float64(m.Capacity)
}

// Rank returns the machines of the set ordered by ascending score, breaking
// ties by name so the ordering is deterministic.
func Rank(ms MachineSet, rank RankFunc) []Machine {
	machines := make([]Machine, 0, len(ms))
	for _, name := range ms.Names() {
		machines = append(machines, ms[name])
	}
	sort.SliceStable(machines, func(i, j int) bool {
		si, sj := rank(machines[i]), rank(machines[j])
		if si == sj {
			return machines[i].Name < machines[j].Name
		}
		return si < sj
	})
	return machines
}
