// Package config loads the emulator's machine configuration: CPU count,
// guest RAM layout, PALcode base, and pipeline tuning knobs.
//
// Grounded on the teacher's timing/latency.TimingConfig (config.go):
// same JSON-with-defaults/Load/Save/Validate shape, re-targeted from
// per-instruction-class latencies to per-machine topology and PAL
// siting.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/alphaev6/coresim/pipeline"
	"github.com/alphaev6/coresim/state"
)

// Machine holds the configuration needed to stand up a Master and its
// Cores: how many CPUs to bind, where guest RAM and PALcode live, and
// which pipeline features are enabled.
type Machine struct {
	// CPUCount is the number of CPUs to bind from the Master. Must be
	// in [1, state.MaxCPUs].
	CPUCount int `json:"cpu_count"`

	// RAMBase is the physical base address of guest RAM.
	RAMBase uint64 `json:"ram_base"`

	// RAMSize is the size in bytes of guest RAM.
	RAMSize int `json:"ram_size"`

	// PalBase is the physical base address PALcode is loaded at; every
	// CPU's Pal.PalBase IPR is initialized to this value.
	PalBase uint64 `json:"pal_base"`

	// DualIssueEnabled is copied into pipeline.Config. The pipeline does
	// not read it: Tick always single-issues.
	DualIssueEnabled bool `json:"dual_issue_enabled"`

	// BHTSize and BTBSize size the branch predictor tables; both must
	// be powers of two.
	BHTSize uint32 `json:"bht_size"`
	BTBSize uint32 `json:"btb_size"`

	// LogPath is stored and round-tripped through JSON but not read by
	// either command; cmd/alphacore takes its log file from -log.
	LogPath string `json:"log_path"`
}

// Default returns the configuration a bare `alphacore` invocation uses:
// one CPU, 256MB of RAM at physical 0, PALcode based just above RAM,
// single issue, default predictor sizing.
func Default() *Machine {
	return &Machine{
		CPUCount:         1,
		RAMBase:          0,
		RAMSize:          256 << 20,
		PalBase:          0x10000000,
		DualIssueEnabled: false,
		BHTSize:          pipeline.DefaultPredictorConfig().BHTSize,
		BTBSize:          pipeline.DefaultPredictorConfig().BTBSize,
	}
}

// Load reads a Machine configuration from a JSON file, starting from
// Default() so an omitted field keeps its default value.
func Load(path string) (*Machine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read machine config file: %w", err)
	}
	m := Default()
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("failed to parse machine config: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Save writes m to path as indented JSON.
func (m *Machine) Save(path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize machine config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write machine config file: %w", err)
	}
	return nil
}

// Validate checks CPUCount, RAM sizing, and predictor table sizes.
func (m *Machine) Validate() error {
	if m.CPUCount < 1 || m.CPUCount > state.MaxCPUs {
		return fmt.Errorf("cpu_count must be in [1, %d], got %d", state.MaxCPUs, m.CPUCount)
	}
	if m.RAMSize <= 0 {
		return fmt.Errorf("ram_size must be > 0")
	}
	if m.BHTSize&(m.BHTSize-1) != 0 || m.BHTSize == 0 {
		return fmt.Errorf("bht_size must be a nonzero power of two, got %d", m.BHTSize)
	}
	if m.BTBSize&(m.BTBSize-1) != 0 || m.BTBSize == 0 {
		return fmt.Errorf("btb_size must be a nonzero power of two, got %d", m.BTBSize)
	}
	return nil
}

// PipelineConfig translates the tuning knobs into a pipeline.Config.
func (m *Machine) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		DualIssueEnabled: m.DualIssueEnabled,
		Predictor:        pipeline.PredictorConfig{BHTSize: m.BHTSize, BTBSize: m.BTBSize},
	}
}
