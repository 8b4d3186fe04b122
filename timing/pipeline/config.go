package pipeline

import (
	"fmt"
	"os"

	"sigs.k8s.io/yaml"

	"github.com/sarchlab/lizard/timing/commit"
	"github.com/sarchlab/lizard/timing/control"
	"github.com/sarchlab/lizard/timing/latency"
	"github.com/sarchlab/lizard/timing/rename"
)

// NumAregs is the number of architectural registers of the micro-op ISA.
const NumAregs = 32

// RecoveryMode selects where a mispredicted control flow op is repaired.
type RecoveryMode string

// Recovery modes.
const (
	// RecoverAtExecute restores the op's rename snapshot as soon as it
	// writes back and squashes everything younger.
	RecoverAtExecute RecoveryMode = "execute"

	// RecoverAtCommit waits until the op retires, then rolls the rename
	// state back to the committed mapping and flushes the window. No
	// snapshots are taken in this mode.
	RecoverAtCommit RecoveryMode = "commit"
)

// Config holds the structure of the out-of-order core.
type Config struct {
	NumPregs     int `json:"num_pregs"`
	NumSnapshots int `json:"num_snapshots"`

	// SeqIdxBits sizes the sequence number ring. WindowSize bounds the
	// number of in-flight ops and must fit in the reorder buffer.
	SeqIdxBits int `json:"seq_idx_bits"`
	WindowSize int `json:"window_size"`
	ROBSize    int `json:"rob_size"`

	FetchWidth      int `json:"fetch_width"`
	FetchBufferSize int `json:"fetch_buffer_size"`

	// DispatchWidth is the number of ops renamed and registered per cycle.
	DispatchWidth int `json:"dispatch_width"`

	// IssueWindow is the number of oldest waiting ops whose operands are
	// read each cycle. IssueWidth of them may start executing.
	IssueWindow int `json:"issue_window"`
	IssueWidth  int `json:"issue_width"`

	// WritebackWidth is the number of results written back per cycle.
	WritebackWidth int `json:"writeback_width"`
	CommitWidth    int `json:"commit_width"`

	// ResolveWidth is the number of control flow ops that may write back
	// and release their rename snapshot per cycle.
	ResolveWidth int `json:"resolve_width"`

	Recovery RecoveryMode `json:"recovery"`

	// TrapVector is the PC fetched after an exception retires.
	TrapVector uint64 `json:"trap_vector"`

	// MaxCycles stops Run with an error. Zero means no limit.
	MaxCycles uint64 `json:"max_cycles"`

	Predictor PredictorConfig       `json:"predictor"`
	Latency   latency.TimingConfig `json:"latency"`
}

// DefaultConfig returns a 4-wide core with 64 physical registers.
func DefaultConfig() *Config {
	return &Config{
		NumPregs:        64,
		NumSnapshots:    4,
		SeqIdxBits:      6,
		WindowSize:      32,
		ROBSize:         32,
		FetchWidth:      4,
		FetchBufferSize: 8,
		DispatchWidth:   4,
		IssueWindow:     8,
		IssueWidth:      4,
		WritebackWidth:  4,
		CommitWidth:     4,
		ResolveWidth:    2,
		Recovery:        RecoverAtExecute,
		Predictor:       DefaultPredictorConfig(),
		Latency:         *latency.DefaultTimingConfig(),
	}
}

// LoadConfig loads a Config from a YAML or JSON file. Fields missing from
// the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read core config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.UnmarshalStrict(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse core config: %w", err)
	}

	return config, nil
}

// SaveConfig writes the Config to a YAML file.
func (c *Config) SaveConfig(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to serialize core config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write core config file: %w", err)
	}

	return nil
}

// Validate checks that the parts of the core can be built from the Config
// and fit together.
func (c *Config) Validate() error {
	if err := c.DataFlowConfig().Validate(); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	if err := c.ControlConfig(0).Validate(); err != nil {
		return fmt.Errorf("control flow: %w", err)
	}
	if err := c.CommitConfig().Validate(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if err := c.Latency.Validate(); err != nil {
		return fmt.Errorf("latency: %w", err)
	}
	if err := c.Predictor.Validate(); err != nil {
		return fmt.Errorf("predictor: %w", err)
	}

	if c.WindowSize < 1 || c.WindowSize > c.ROBSize {
		return fmt.Errorf("window_size must be between 1 and rob_size (%d)",
			c.ROBSize)
	}
	if c.FetchWidth < 1 || c.FetchBufferSize < c.FetchWidth {
		return fmt.Errorf("fetch_width must be at least 1 and at most fetch_buffer_size")
	}
	if c.IssueWindow < 1 || c.IssueWidth < 1 || c.IssueWidth > c.IssueWindow {
		return fmt.Errorf("issue_width must be between 1 and issue_window")
	}

	switch c.Recovery {
	case RecoverAtExecute:
		if c.NumSnapshots < 1 {
			return fmt.Errorf("execute recovery needs at least one snapshot")
		}
	case RecoverAtCommit:
	default:
		return fmt.Errorf("unknown recovery mode %q", c.Recovery)
	}

	return nil
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// DataFlowConfig returns the configuration of the renaming unit.
func (c *Config) DataFlowConfig() rename.DataFlowConfig {
	return rename.DataFlowConfig{
		NumAregs:     NumAregs,
		NumPregs:     c.NumPregs,
		NumSnapshots: c.NumSnapshots,
		SrcPorts:     2 * c.DispatchWidth,
		DstPorts:     c.DispatchWidth,
		WritePorts:   c.WritebackWidth,
		CommitPorts:  c.CommitWidth,
		ReadPorts:    2 * c.IssueWindow,

		FreeSnapshotPorts: c.ResolveWidth,
	}
}

// ControlConfig returns the configuration of the control flow manager for
// a program starting at entry.
func (c *Config) ControlConfig(entry uint64) control.Config {
	return control.Config{
		SeqIdxBits:    c.SeqIdxBits,
		MaxEntries:    c.WindowSize,
		RegisterPorts: c.DispatchWidth,
		CommitPorts:   c.CommitWidth,
		ResetVector:   entry,
	}
}

// CommitConfig returns the configuration of the commit unit.
func (c *Config) CommitConfig() commit.Config {
	return commit.Config{
		SeqIdxBits:          c.SeqIdxBits,
		ROBSize:             c.ROBSize,
		Width:               c.CommitWidth,
		AddPorts:            c.WritebackWidth,
		StopAfterMispredict: c.Recovery == RecoverAtCommit,
	}
}
