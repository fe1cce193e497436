package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mfgplan/allocator/internal/optimizer"
	"github.com/mfgplan/allocator/pkg/planning"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadConfiguration(t *testing.T) {
	path := writeFile(t, "config.yaml", `
demand: 2500
machines:
  - name: M1
    capacity: 1000
    variableCost: 5.0
    fixedCost: 100.0
  - name: M2
    capacity: 2000
    variableCost: 3.0
    fixedCost: 200.0
optimizer:
  mode: exhaustive
convergence:
  maxIterations: 4
  costThreshold: 0.05
collaborators:
  provider: strategy
  reviewers:
    - manufacturing optimization strategist
    - production engineer
  timeoutSeconds: 10
output:
  format: markdown
`)

	conf, err := LoadConfiguration(path)
	if err != nil {
		t.Fatalf("LoadConfiguration failed: %v", err)
	}
	if conf.Demand != 2500 {
		t.Errorf("expected demand 2500, got %d", conf.Demand)
	}
	if len(conf.Machines) != 2 || conf.Machines[1].VariableCost != 3.0 {
		t.Errorf("unexpected machines %+v", conf.Machines)
	}
	if conf.OptimizerMode() != optimizer.ModeExhaustive {
		t.Errorf("expected exhaustive mode, got %s", conf.OptimizerMode())
	}
	if policy := conf.Policy(); policy.MaxIterations != 4 || policy.CostThreshold != 0.05 {
		t.Errorf("unexpected policy %+v", policy)
	}
	if len(conf.Collaborators.Reviewers) != 2 {
		t.Errorf("unexpected reviewers %v", conf.Collaborators.Reviewers)
	}
	if conf.ProposalTimeout() != 10*time.Second {
		t.Errorf("unexpected timeout %v", conf.ProposalTimeout())
	}
	if conf.Output.Format != "markdown" {
		t.Errorf("unexpected output format %q", conf.Output.Format)
	}
}

func TestLoadConfigurationMissingFile(t *testing.T) {
	if _, err := LoadConfiguration("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestPolicyDefaultsApply(t *testing.T) {
	conf := Configuration{}
	policy := conf.Policy()
	if policy.MaxIterations != 5 || policy.MinIterations != 2 {
		t.Errorf("expected default bounds, got %+v", policy)
	}
	if policy.CostThreshold != 0.02 || policy.ConsensusQuorum != 3 {
		t.Errorf("expected default thresholds, got %+v", policy)
	}
	if conf.ProposalTimeout() != DefaultProposalTimeout {
		t.Errorf("expected default timeout, got %v", conf.ProposalTimeout())
	}
	if conf.OptimizerMode() != optimizer.ModeAuto {
		t.Errorf("expected auto mode, got %s", conf.OptimizerMode())
	}
}

func TestMachineSetFromInlineSpecs(t *testing.T) {
	conf := Configuration{
		Machines: []MachineSpec{
			{Name: "M1", Capacity: 1000, VariableCost: 5, FixedCost: 100},
			{Name: "M2", Capacity: 2000, VariableCost: 3, FixedCost: 200},
		},
	}
	set, err := conf.MachineSet()
	if err != nil {
		t.Fatalf("MachineSet failed: %v", err)
	}
	if len(set) != 2 || set["M2"].Capacity != 2000 {
		t.Errorf("unexpected machine set %v", set)
	}
}

func TestMachineSetRejectsDuplicates(t *testing.T) {
	conf := Configuration{
		Machines: []MachineSpec{
			{Name: "M1", Capacity: 1000},
			{Name: "M1", Capacity: 2000},
		},
	}
	if _, err := conf.MachineSet(); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("expected duplicate name error, got %v", err)
	}
}

func TestMachineSetRejectsEmptyName(t *testing.T) {
	conf := Configuration{Machines: []MachineSpec{{Capacity: 1000}}}
	if _, err := conf.MachineSet(); err == nil {
		t.Error("expected empty name error")
	}
}

func TestLoadCatalog(t *testing.T) {
	path := writeFile(t, "machines.csv", `name,capacity,variableCost,fixedCost
Tool_127,2000,3.0,500.0
Tool_157,1100,7.0,1500.0
Tool_377,900,7.0,5000.0
`)

	catalog, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if len(catalog) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(catalog))
	}
	if catalog[0].Name != "Tool_127" || catalog[0].Capacity != 2000 || catalog[0].FixedCost != 500 {
		t.Errorf("unexpected first row %+v", catalog[0])
	}
}

func TestLoadCatalogErrors(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"header only", "name,capacity,variableCost,fixedCost\n"},
		{"short row", "name,capacity,variableCost,fixedCost\nM1,100\n"},
		{"bad capacity", "name,capacity,variableCost,fixedCost\nM1,lots,1.0,2.0\n"},
		{"bad cost", "name,capacity,variableCost,fixedCost\nM1,100,cheap,2.0\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, "machines.csv", tc.content)
			if _, err := LoadCatalog(path); err == nil {
				t.Error("expected parse error")
			}
		})
	}
}

func TestSelectMachinesByIndices(t *testing.T) {
	catalog := []MachineSpec{
		{Name: "A"}, {Name: "B"}, {Name: "C"},
	}
	selected, err := SelectMachines(catalog, CatalogConfig{Indices: []int{2, 0}})
	if err != nil {
		t.Fatalf("SelectMachines failed: %v", err)
	}
	if len(selected) != 2 || selected[0].Name != "C" || selected[1].Name != "A" {
		t.Errorf("unexpected selection %+v", selected)
	}

	if _, err := SelectMachines(catalog, CatalogConfig{Indices: []int{3}}); err == nil {
		t.Error("expected out of range error")
	}
}

func TestSelectMachinesSeededDrawIsReproducible(t *testing.T) {
	catalog := []MachineSpec{
		{Name: "A"}, {Name: "B"}, {Name: "C"}, {Name: "D"}, {Name: "E"},
	}
	cfg := CatalogConfig{Count: 3, Seed: 42}

	first, err := SelectMachines(catalog, cfg)
	if err != nil {
		t.Fatalf("SelectMachines failed: %v", err)
	}
	second, err := SelectMachines(catalog, cfg)
	if err != nil {
		t.Fatalf("SelectMachines failed: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 machines, got %d", len(first))
	}
	for i := range first {
		if first[i].Name != second[i].Name {
			t.Errorf("seeded draw not reproducible: %v vs %v", first, second)
		}
	}
}

func TestMachineSetMergesCatalog(t *testing.T) {
	path := writeFile(t, "machines.csv", `name,capacity,variableCost,fixedCost
Tool_127,2000,3.0,500.0
`)
	conf := Configuration{
		Machines: []MachineSpec{{Name: "M1", Capacity: 1000, VariableCost: 5, FixedCost: 100}},
		Catalog:  CatalogConfig{Path: path},
	}
	set, err := conf.MachineSet()
	if err != nil {
		t.Fatalf("MachineSet failed: %v", err)
	}
	if len(set) != 2 {
		t.Errorf("expected inline plus catalog machines, got %v", set)
	}
}

func TestValidateConfiguration(t *testing.T) {
	base := Configuration{
		Demand: 2500,
		Machines: []MachineSpec{
			{Name: "M1", Capacity: 1000, VariableCost: 5, FixedCost: 100},
			{Name: "M2", Capacity: 2000, VariableCost: 3, FixedCost: 200},
		},
	}

	warnings, err := base.ValidateConfiguration()
	if err != nil {
		t.Fatalf("expected valid configuration: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("expected no warnings, got %v", warnings)
	}
}

func TestValidateConfigurationHardErrors(t *testing.T) {
	machines := []MachineSpec{{Name: "M1", Capacity: 1000, VariableCost: 5}}

	conf := Configuration{Demand: 0, Machines: machines}
	if _, err := conf.ValidateConfiguration(); !errors.Is(err, planning.ErrInvalidDemand) {
		t.Errorf("expected ErrInvalidDemand, got %v", err)
	}

	conf = Configuration{Demand: 100}
	if _, err := conf.ValidateConfiguration(); !errors.Is(err, planning.ErrEmptyMachineSet) {
		t.Errorf("expected ErrEmptyMachineSet, got %v", err)
	}

	conf = Configuration{Demand: 100, Machines: []MachineSpec{
		{Name: "M1", Capacity: 1000, VariableCost: -1},
	}}
	if _, err := conf.ValidateConfiguration(); err == nil {
		t.Error("expected negative cost error")
	}
}

func TestValidateConfigurationWarnings(t *testing.T) {
	conf := Configuration{
		Demand: 5000,
		Machines: []MachineSpec{
			{Name: "M1", Capacity: 0, VariableCost: 5},
			{Name: "M2", Capacity: 2000, VariableCost: 3},
		},
		Optimizer:   OptimizerConfig{Mode: "brute"},
		Convergence: ConvergenceConfig{MinIterations: 9, MaxIterations: 3},
	}

	warnings, err := conf.ValidateConfiguration()
	if err != nil {
		t.Fatalf("warnings must not be errors: %v", err)
	}
	if len(warnings) != 4 {
		t.Fatalf("expected 4 warnings, got %d: %v", len(warnings), warnings)
	}
	for i, fragment := range []string{"no usable capacity", "below demand", "unknown optimizer mode", "minIterations exceeds"} {
		if !strings.Contains(warnings[i], fragment) {
			t.Errorf("warning %d: expected %q in %q", i, fragment, warnings[i])
		}
	}
}
