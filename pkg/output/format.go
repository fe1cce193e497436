// Package output provides utilities for formatting and displaying
// optimization run results. It is a pure sink over the finalized history.
package output

import (
	"fmt"
	"strings"

	"github.com/mfgplan/allocator/internal/engine"
	"github.com/mfgplan/allocator/pkg/planning"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Output format constants.
const (
	FormatPretty   = "pretty"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
)

// ValidateFormat checks that the requested output format is supported.
func ValidateFormat(format string) error {
	switch format {
	case FormatPretty, FormatMarkdown, FormatCSV:
		return nil
	default:
		return fmt.Errorf("invalid output format %q: must be one of %s, %s, %s",
			format, FormatPretty, FormatMarkdown, FormatCSV)
	}
}

// PrettyFormat outputs a human-readable run summary.
func PrettyFormat(machines planning.MachineSet, demand int, result *engine.Result) {
	p := message.NewPrinter(language.English)

	fmt.Printf("--- Capacity analysis ---\n")
	_, _ = p.Printf("Total capacity: %d units | Demand: %d units | Excess: %d units\n",
		machines.TotalCapacity(), demand, machines.TotalCapacity()-demand)
	if !result.Feasible {
		_, _ = p.Printf("INSUFFICIENT CAPACITY: shortfall of %d units, allocation is maximal, not demand-satisfying\n",
			demand-result.Best.Allocation.Units())
	}

	fmt.Printf("\n--- Machines ---\n")
	fmt.Printf("Machine      | Capacity | Variable | Fixed     \n")
	fmt.Printf("_______      | ________ | ________ | _____     \n")
	for _, name := range machines.Names() {
		m := machines[name]
		_, _ = p.Printf("%-12s | %8d | $%7.2f | $%9.2f\n", name, m.Capacity, m.VariableCost, m.FixedCost)
	}

	fmt.Printf("\n--- Iterations ---\n")
	fmt.Printf("Iter | Total cost     | Allocation\n")
	fmt.Printf("____ | __________     | __________\n")
	for _, attempt := range result.History {
		rounded := attempt.Cost.Rounded()
		_, _ = p.Printf("%4d | $%.2f | %s\n", attempt.Iteration+1, rounded.Total, allocationString(machines, attempt.Allocation))
	}

	best := result.Best.Cost.Rounded()
	fmt.Printf("\n--- Final allocation ---\n")
	fmt.Printf("%s\n", allocationString(machines, result.Best.Allocation))
	_, _ = p.Printf("Variable: $%.2f + Fixed: $%.2f = Total: $%.2f\n",
		best.VariableTotal, best.FixedTotal, best.Total)
	_, _ = p.Printf("Stopped after %d iteration(s): %s | improvement over first attempt: %.2f%%\n",
		len(result.History), result.Reason, result.ImprovementPct)

	if result.Oracle != nil {
		oracleCost := result.Oracle.Cost.Rounded()
		_, _ = p.Printf("Oracle reference (%s, %s): $%.2f | gap: $%.2f\n",
			result.Oracle.Mode, result.Oracle.Strategy, oracleCost.Total, best.Total-oracleCost.Total)
	}
}

// CsvFormat outputs the iteration history in comma-separated value format.
func CsvFormat(machines planning.MachineSet, result *engine.Result) {
	names := machines.Names()
	fmt.Printf(`"iteration","variable_total","fixed_total","total"`)
	for _, name := range names {
		fmt.Printf(`,"%s"`, name)
	}
	fmt.Printf("\n")
	for _, attempt := range result.History {
		rounded := attempt.Cost.Rounded()
		fmt.Printf(`"%d","%.2f","%.2f","%.2f"`, attempt.Iteration+1,
			rounded.VariableTotal, rounded.FixedTotal, rounded.Total)
		for _, name := range names {
			fmt.Printf(`,"%d"`, attempt.Allocation[name])
		}
		fmt.Printf("\n")
	}
}

func allocationString(machines planning.MachineSet, allocation planning.Allocation) string {
	parts := make([]string, 0, len(allocation))
	for _, name := range machines.Names() {
		if allocation[name] == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%d", name, allocation[name]))
	}
	if len(parts) == 0 {
		return "(no units allocated)"
	}
	return strings.Join(parts, ", ")
}
