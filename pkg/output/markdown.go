package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/mfgplan/allocator/internal/engine"
	"github.com/mfgplan/allocator/pkg/planning"
)

// MarkdownReport renders the finalized run as a markdown document.
func MarkdownReport(machines planning.MachineSet, demand int, result *engine.Result, generatedAt time.Time) string {
	var b strings.Builder

	b.WriteString("# Production Allocation Report\n\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", generatedAt.Format("2006-01-02 15:04"))

	b.WriteString("## Problem\n\n")
	fmt.Fprintf(&b, "Allocate **%d units** across %d machines.\n\n", demand, len(machines))
	b.WriteString("| Machine | Capacity | Variable cost | Fixed cost |\n")
	b.WriteString("|---------|----------|---------------|------------|\n")
	for _, name := range machines.Names() {
		m := machines[name]
		fmt.Fprintf(&b, "| %s | %d | $%.2f | $%.2f |\n", name, m.Capacity, m.VariableCost, m.FixedCost)
	}
	b.WriteString("\n")

	b.WriteString("## Iterations\n\n")
	b.WriteString("| Iteration | Total cost | Allocation | Feedback |\n")
	b.WriteString("|-----------|------------|------------|----------|\n")
	for _, attempt := range result.History {
		assessments := make([]string, 0, len(attempt.Feedback))
		for _, record := range attempt.Feedback {
			assessments = append(assessments, fmt.Sprintf("%s: %s", record.Role, record.Assessment))
		}
		feedbackCell := strings.Join(assessments, "; ")
		if feedbackCell == "" {
			feedbackCell = "(none)"
		}
		fmt.Fprintf(&b, "| %d | $%.2f | %s | %s |\n",
			attempt.Iteration+1, attempt.Cost.Rounded().Total,
			allocationString(machines, attempt.Allocation), feedbackCell)
	}
	b.WriteString("\n")

	b.WriteString("## Result\n\n")
	best := result.Best.Cost.Rounded()
	fmt.Fprintf(&b, "- Final allocation: %s\n", allocationString(machines, result.Best.Allocation))
	fmt.Fprintf(&b, "- Total cost: $%.2f (variable $%.2f, fixed $%.2f)\n",
		best.Total, best.VariableTotal, best.FixedTotal)
	fmt.Fprintf(&b, "- Stop reason: %s\n", result.Reason)
	fmt.Fprintf(&b, "- Improvement over first attempt: %.2f%%\n", result.ImprovementPct)
	if !result.Feasible {
		fmt.Fprintf(&b, "- **Infeasible**: demand %d exceeds total capacity %d; the allocation is maximal, not demand-satisfying\n",
			demand, machines.TotalCapacity())
	}
	if result.Oracle != nil {
		fmt.Fprintf(&b, "- Oracle reference (%s, %s): $%.2f\n",
			result.Oracle.Mode, result.Oracle.Strategy, result.Oracle.Cost.Rounded().Total)
	}

	return b.String()
}
