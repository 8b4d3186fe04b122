package latency

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"
)

// TimingConfig holds execution latencies per functional unit class.
type TimingConfig struct {
	// ALULatency is the execution latency for integer ALU operations
	// (add, sub, logic, shifts, compares). Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency"`

	// BranchLatency is the execution latency for branches and jumps,
	// including target resolution. Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency"`

	// MultiplyLatency is the latency for integer multiply. Default: 3 cycles.
	MultiplyLatency uint64 `json:"multiply_latency"`

	// DivideLatencyMin and DivideLatencyMax bound the integer divide and
	// remainder latency. Default: 10 and 20 cycles.
	DivideLatencyMin uint64 `json:"divide_latency_min"`
	DivideLatencyMax uint64 `json:"divide_latency_max"`

	// LoadLatency is the latency of a load from the data memory service.
	// Default: 3 cycles.
	LoadLatency uint64 `json:"load_latency"`

	// StoreLatency is the latency to compute a store's address and data.
	// The memory write happens at retire. Default: 1 cycle.
	StoreLatency uint64 `json:"store_latency"`

	// SystemLatency is the latency of ecall and ebreak. Default: 1 cycle.
	SystemLatency uint64 `json:"system_latency"`
}

// DefaultTimingConfig returns a TimingConfig with default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:       1,
		BranchLatency:    1,
		MultiplyLatency:  3,
		DivideLatencyMin: 10,
		DivideLatencyMax: 20,
		LoadLatency:      3,
		StoreLatency:     1,
		SystemLatency:    1,
	}
}

// LoadConfig loads a TimingConfig from a YAML or JSON file. Fields missing
// from the file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a YAML file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all latency values are valid (> 0).
func (c *TimingConfig) Validate() error {
	if c.ALULatency == 0 {
		return fmt.Errorf("alu_latency must be > 0")
	}
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	if c.MultiplyLatency == 0 {
		return fmt.Errorf("multiply_latency must be > 0")
	}
	if c.DivideLatencyMin == 0 {
		return fmt.Errorf("divide_latency_min must be > 0")
	}
	if c.LoadLatency == 0 {
		return fmt.Errorf("load_latency must be > 0")
	}
	if c.StoreLatency == 0 {
		return fmt.Errorf("store_latency must be > 0")
	}
	if c.SystemLatency == 0 {
		return fmt.Errorf("system_latency must be > 0")
	}
	if c.DivideLatencyMin > c.DivideLatencyMax {
		return fmt.Errorf("divide_latency_min must be <= divide_latency_max")
	}
	return nil
}

// Clone returns a copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
