// Package config defines the data structures related to run configuration
// and includes functions for loading and validating the config.
package config

import (
	"fmt"
	"time"

	"github.com/mfgplan/allocator/internal/convergence"
	"github.com/mfgplan/allocator/internal/optimizer"
	"github.com/mfgplan/allocator/pkg/planning"
	"github.com/spf13/viper"
)

// DefaultProposalTimeout bounds collaborator round-trips when the config
// does not specify one.
const DefaultProposalTimeout = 30 * time.Second

// Configuration holds all configuration for an allocation run.
type Configuration struct {
	Demand        int
	Machines      []MachineSpec
	Catalog       CatalogConfig       `yaml:"catalog,omitempty"`
	Optimizer     OptimizerConfig     `yaml:"optimizer,omitempty"`
	Convergence   ConvergenceConfig   `yaml:"convergence,omitempty"`
	Collaborators CollaboratorsConfig `yaml:"collaborators,omitempty"`
	Logging       LoggingConfig       `yaml:"logging,omitempty"`
	Output        OutputConfig        `yaml:"output,omitempty"`
}

// MachineSpec describes one machine in the config file.
type MachineSpec struct {
	Name         string
	Capacity     int
	VariableCost float64 `yaml:"variableCost"`
	FixedCost    float64 `yaml:"fixedCost"`
}

// CatalogConfig selects machines from a CSV catalog instead of listing them
// inline. Indices picks specific catalog rows; otherwise Count rows are
// drawn with the given seed.
type CatalogConfig struct {
	Path    string `yaml:"path,omitempty"`
	Count   int    `yaml:"count,omitempty"`
	Indices []int  `yaml:"indices,omitempty"`
	Seed    int64  `yaml:"seed,omitempty"`
}

// OptimizerConfig selects the oracle search policy.
type OptimizerConfig struct {
	Mode        string `yaml:"mode,omitempty"`        // auto, exhaustive, strategic
	Granularity int    `yaml:"granularity,omitempty"` // unit step for exhaustive enumeration
}

// ConvergenceConfig overrides the convergence policy constants; zero values
// keep the defaults.
type ConvergenceConfig struct {
	MaxIterations   int     `yaml:"maxIterations,omitempty"`
	MinIterations   int     `yaml:"minIterations,omitempty"`
	CostThreshold   float64 `yaml:"costThreshold,omitempty"`
	ConsensusQuorum int     `yaml:"consensusQuorum,omitempty"`
}

// CollaboratorsConfig selects the proposal and review collaborators.
type CollaboratorsConfig struct {
	Provider       string   `yaml:"provider,omitempty"` // strategy, openai
	Model          string   `yaml:"model,omitempty"`
	APIKeyEnv      string   `yaml:"apiKeyEnv,omitempty"`
	Reviewers      []string `yaml:"reviewers,omitempty"` // reviewer role names
	TimeoutSeconds int      `yaml:"timeoutSeconds,omitempty"`
}

// LoggingConfig holds logging configuration options.
type LoggingConfig struct {
	Level      string `yaml:"level,omitempty"`      // debug, info, warn, error
	Format     string `yaml:"format,omitempty"`     // json, console
	OutputFile string `yaml:"outputFile,omitempty"` // optional file output
}

// OutputConfig holds output format configuration options.
type OutputConfig struct {
	Format string `yaml:"format,omitempty"` // pretty, markdown, csv
}

// LoadConfiguration takes a file path as input and loads the YAML-formatted
// configuration there.
func LoadConfiguration(configPath string) (*Configuration, error) {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()

	viper.SetConfigType("yml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file, %s", err)
	}

	var configuration Configuration
	err := viper.Unmarshal(&configuration)
	if err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %s", err)
	}

	return &configuration, nil
}

// MachineSet resolves the configured machines, loading from the CSV catalog
// when one is configured, and converts them to the planning data model.
func (conf *Configuration) MachineSet() (planning.MachineSet, error) {
	specs := conf.Machines
	if conf.Catalog.Path != "" {
		catalog, err := LoadCatalog(conf.Catalog.Path)
		if err != nil {
			return nil, err
		}
		selected, err := SelectMachines(catalog, conf.Catalog)
		if err != nil {
			return nil, err
		}
		specs = append(specs, selected...)
	}

	set := make(planning.MachineSet, len(specs))
	for _, spec := range specs {
		if spec.Name == "" {
			return nil, fmt.Errorf("machine with empty name in configuration")
		}
		if _, exists := set[spec.Name]; exists {
			return nil, fmt.Errorf("duplicate machine name %q in configuration", spec.Name)
		}
		set[spec.Name] = planning.Machine{
			Name:         spec.Name,
			Capacity:     spec.Capacity,
			VariableCost: spec.VariableCost,
			FixedCost:    spec.FixedCost,
		}
	}
	return set, nil
}

// Policy returns the convergence policy with config overrides applied.
func (conf *Configuration) Policy() convergence.Policy {
	policy := convergence.DefaultPolicy()
	if conf.Convergence.MaxIterations > 0 {
		policy.MaxIterations = conf.Convergence.MaxIterations
	}
	if conf.Convergence.MinIterations > 0 {
		policy.MinIterations = conf.Convergence.MinIterations
	}
	if conf.Convergence.CostThreshold > 0 {
		policy.CostThreshold = conf.Convergence.CostThreshold
	}
	if conf.Convergence.ConsensusQuorum > 0 {
		policy.ConsensusQuorum = conf.Convergence.ConsensusQuorum
	}
	return policy
}

// OptimizerMode returns the configured oracle mode, defaulting to auto.
func (conf *Configuration) OptimizerMode() optimizer.Mode {
	switch conf.Optimizer.Mode {
	case string(optimizer.ModeExhaustive):
		return optimizer.ModeExhaustive
	case string(optimizer.ModeStrategic):
		return optimizer.ModeStrategic
	default:
		return optimizer.ModeAuto
	}
}

// ProposalTimeout returns the configured collaborator timeout.
func (conf *Configuration) ProposalTimeout() time.Duration {
	if conf.Collaborators.TimeoutSeconds > 0 {
		return time.Duration(conf.Collaborators.TimeoutSeconds) * time.Second
	}
	return DefaultProposalTimeout
}

// ValidateConfiguration checks the hard input contract and returns
// non-fatal warnings. Contract violations abort before the run loop starts.
func (conf *Configuration) ValidateConfiguration() ([]string, error) {
	if conf.Demand <= 0 {
		return nil, fmt.Errorf("%w: got %d", planning.ErrInvalidDemand, conf.Demand)
	}
	if len(conf.Machines) == 0 && conf.Catalog.Path == "" {
		return nil, planning.ErrEmptyMachineSet
	}

	var warnings []string
	totalCapacity := 0
	for _, spec := range conf.Machines {
		if spec.Capacity <= 0 {
			warnings = append(warnings, fmt.Sprintf("machine %s has no usable capacity", spec.Name))
		}
		if spec.VariableCost < 0 || spec.FixedCost < 0 {
			return nil, fmt.Errorf("machine %s has negative costs", spec.Name)
		}
		totalCapacity += spec.Capacity
	}
	if len(conf.Machines) > 0 && totalCapacity < conf.Demand {
		warnings = append(warnings, fmt.Sprintf(
			"total capacity %d is below demand %d; the run will report an infeasible maximal allocation",
			totalCapacity, conf.Demand))
	}
	if conf.Optimizer.Mode != "" &&
		conf.Optimizer.Mode != string(optimizer.ModeAuto) &&
		conf.Optimizer.Mode != string(optimizer.ModeExhaustive) &&
		conf.Optimizer.Mode != string(optimizer.ModeStrategic) {
		warnings = append(warnings, fmt.Sprintf("unknown optimizer mode %q, using auto", conf.Optimizer.Mode))
	}
	if conf.Convergence.MinIterations > conf.Convergence.MaxIterations && conf.Convergence.MaxIterations > 0 {
		warnings = append(warnings, "convergence minIterations exceeds maxIterations; the cap wins")
	}
	return warnings, nil
}
