// Package planning defines the data model shared by the allocation engine:
// machines, machine sets, demand, and allocations.
package planning

import "sort"

// Machine describes a single production machine. Machines are immutable for
// the duration of an optimization run.
type Machine struct {
	Name         string  `json:"name"`
	Capacity     int     `json:"capacity"`
	VariableCost float64 `json:"variableCost"`
	FixedCost    float64 `json:"fixedCost"`
}

// MachineSet maps machine names to their specifications. Keys are unique;
// iteration order is made deterministic through Names.
type MachineSet map[string]Machine

// Names returns all machine names in sorted order. Sorted order is what
// makes tie-breaking between equally scored machines deterministic.
func (ms MachineSet) Names() []string {
	names := make([]string, 0, len(ms))
	for name := range ms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TotalCapacity returns the combined capacity of every machine in the set.
func (ms MachineSet) TotalCapacity() int {
	total := 0
	for _, m := range ms {
		total += m.Capacity
	}
	return total
}

// FullCapacity returns the allocation that runs every machine at its
// capacity. It is the documented result whenever demand exceeds total
// capacity.
func (ms MachineSet) FullCapacity() Allocation {
	alloc := make(Allocation, len(ms))
	for name, m := range ms {
		alloc[name] = m.Capacity
	}
	return alloc
}

// Allocation maps machine names to non-negative allocated units. Machines
// not mentioned are implicitly allocated zero units.
type Allocation map[string]int

// Units returns the total number of units the allocation assigns.
func (a Allocation) Units() int {
	total := 0
	for _, units := range a {
		total += units
	}
	return total
}

// Clone returns an independent copy of the allocation.
func (a Allocation) Clone() Allocation {
	clone := make(Allocation, len(a))
	for name, units := range a {
		clone[name] = units
	}
	return clone
}

// Equal reports whether two allocations assign the same units to the same
// machines, treating absent machines as zero.
func (a Allocation) Equal(other Allocation) bool {
	for name, units := range a {
		if other[name] != units {
			return false
		}
	}
	for name, units := range other {
		if a[name] != units {
			return false
		}
	}
	return true
}
