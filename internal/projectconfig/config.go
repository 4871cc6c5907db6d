// Package projectconfig provides the ProjectConfig struct and loader for
// .streamauc.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spboyer/streamauc/internal/models"
	"gopkg.in/yaml.v3"
)

// FileName is the project configuration file looked up by Load.
const FileName = ".streamauc.yaml"

// Default values for project configuration. New() references them and no
// other code should duplicate them.
const (
	DefaultLabelColumn = "label"
	DefaultBatchSize   = 1024
	DefaultClasses     = 2

	DefaultThresholdCount = 101

	DefaultCheckpointDir = ".streamauc-cache"

	DefaultServerPort = 3000

	DefaultOutputFormat = "table"

	DefaultHistoryAggregation = "micro"
	DefaultSeed               = 42
	DefaultStabilityTolerance = 0.05
)

// maxWalkUp bounds how many parent directories Load searches.
const maxWalkUp = 10

// InputConfig describes how dataset files are parsed.
type InputConfig struct {
	Format       string   `yaml:"format,omitempty"`
	LabelColumn  string   `yaml:"label_column,omitempty"`
	ScoreColumns []string `yaml:"score_columns,omitempty"`
	BatchSize    int      `yaml:"batch_size,omitempty"`
	Classes      int      `yaml:"classes,omitempty"`
	ClassNames   []string `yaml:"class_names,omitempty"`
}

// ThresholdsConfig selects the threshold grid. Values wins over Count.
type ThresholdsConfig struct {
	Count  int       `yaml:"count,omitempty"`
	Values []float64 `yaml:"values,omitempty"`
}

// CheckpointConfig holds resume checkpoint settings.
type CheckpointConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"`
	Dir     string `yaml:"dir,omitempty"`
}

// ServerConfig holds live server settings.
type ServerConfig struct {
	Port int `yaml:"port,omitempty"`
}

// OutputConfig holds report output defaults.
type OutputConfig struct {
	Format string `yaml:"format,omitempty"`
	Dir    string `yaml:"dir,omitempty"`

	// FileName is a text/template pattern for reports saved under Dir.
	FileName string `yaml:"file_name,omitempty"`
}

// ReportConfig tunes batch stability statistics.
type ReportConfig struct {
	HistoryAggregation string  `yaml:"history_aggregation,omitempty"`
	Seed               int64   `yaml:"seed,omitempty"`
	StabilityTolerance float64 `yaml:"stability_tolerance,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .streamauc.yaml.
type ProjectConfig struct {
	Name       string              `yaml:"name,omitempty"`
	Datasets   []string            `yaml:"datasets,omitempty"`
	Input      InputConfig         `yaml:"input,omitempty"`
	Thresholds ThresholdsConfig    `yaml:"thresholds,omitempty"`
	Gates      []models.GateConfig `yaml:"gates,omitempty"`
	Checkpoint CheckpointConfig    `yaml:"checkpoint,omitempty"`
	Server     ServerConfig        `yaml:"server,omitempty"`
	Output     OutputConfig        `yaml:"output,omitempty"`
	Report     ReportConfig        `yaml:"report,omitempty"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `yaml:"-"`
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Input: InputConfig{
			LabelColumn: DefaultLabelColumn,
			BatchSize:   DefaultBatchSize,
			Classes:     DefaultClasses,
		},
		Thresholds: ThresholdsConfig{
			Count: DefaultThresholdCount,
		},
		Checkpoint: CheckpointConfig{
			Enabled: boolPtr(false),
			Dir:     DefaultCheckpointDir,
		},
		Server: ServerConfig{
			Port: DefaultServerPort,
		},
		Output: OutputConfig{
			Format: DefaultOutputFormat,
		},
		Report: ReportConfig{
			HistoryAggregation: DefaultHistoryAggregation,
			Seed:               DefaultSeed,
			StabilityTolerance: DefaultStabilityTolerance,
		},
	}
}

// Load finds .streamauc.yaml by walking up from startDir (max 10 levels),
// unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	path, data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	mergeConfig(cfg, &fileCfg)
	cfg.Path = path
	return cfg, nil
}

// LoadFile reads one explicit config file, without walking up.
func LoadFile(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg := New()
	mergeConfig(cfg, &fileCfg)
	cfg.Path = path
	return cfg, nil
}

// Find returns the path of the nearest .streamauc.yaml above startDir.
func Find(startDir string) (string, error) {
	path, _, err := findConfigFile(startDir)
	return path, err
}

// Save writes the configuration as YAML.
func (c *ProjectConfig) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// CheckpointEnabled reports whether resume checkpoints are on.
func (c *ProjectConfig) CheckpointEnabled() bool {
	return c.Checkpoint.Enabled != nil && *c.Checkpoint.Enabled
}

// ResolveDatasets makes relative dataset paths relative to the config file.
// Remote and stdin locations are returned unchanged.
func (c *ProjectConfig) ResolveDatasets() []string {
	out := make([]string, len(c.Datasets))
	base := ""
	if c.Path != "" {
		base = filepath.Dir(c.Path)
	}
	for i, d := range c.Datasets {
		switch {
		case d == "-", filepath.IsAbs(d), base == "", isRemote(d):
			out[i] = d
		default:
			out[i] = filepath.Join(base, d)
		}
	}
	return out
}

func isRemote(path string) bool {
	return len(path) > 5 && path[:5] == "az://"
}

// findConfigFile walks up from dir looking for .streamauc.yaml (max 10 levels).
// Returns os.ErrNotExist if no config file is found.
func findConfigFile(dir string) (string, []byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for range maxWalkUp {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return p, data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	if src.Name != "" {
		dst.Name = src.Name
	}
	if len(src.Datasets) > 0 {
		dst.Datasets = src.Datasets
	}

	// Input
	if src.Input.Format != "" {
		dst.Input.Format = src.Input.Format
	}
	if src.Input.LabelColumn != "" {
		dst.Input.LabelColumn = src.Input.LabelColumn
	}
	if len(src.Input.ScoreColumns) > 0 {
		dst.Input.ScoreColumns = src.Input.ScoreColumns
	}
	if src.Input.BatchSize != 0 {
		dst.Input.BatchSize = src.Input.BatchSize
	}
	if src.Input.Classes != 0 {
		dst.Input.Classes = src.Input.Classes
	}
	if len(src.Input.ClassNames) > 0 {
		dst.Input.ClassNames = src.Input.ClassNames
	}

	// Thresholds
	if src.Thresholds.Count != 0 {
		dst.Thresholds.Count = src.Thresholds.Count
	}
	if len(src.Thresholds.Values) > 0 {
		dst.Thresholds.Values = src.Thresholds.Values
	}

	if len(src.Gates) > 0 {
		dst.Gates = src.Gates
	}

	// Checkpoint
	if src.Checkpoint.Enabled != nil {
		dst.Checkpoint.Enabled = src.Checkpoint.Enabled
	}
	if src.Checkpoint.Dir != "" {
		dst.Checkpoint.Dir = src.Checkpoint.Dir
	}

	if src.Server.Port != 0 {
		dst.Server.Port = src.Server.Port
	}

	// Output
	if src.Output.Format != "" {
		dst.Output.Format = src.Output.Format
	}
	if src.Output.Dir != "" {
		dst.Output.Dir = src.Output.Dir
	}
	if src.Output.FileName != "" {
		dst.Output.FileName = src.Output.FileName
	}

	// Report
	if src.Report.HistoryAggregation != "" {
		dst.Report.HistoryAggregation = src.Report.HistoryAggregation
	}
	if src.Report.Seed != 0 {
		dst.Report.Seed = src.Report.Seed
	}
	if src.Report.StabilityTolerance != 0 {
		dst.Report.StabilityTolerance = src.Report.StabilityTolerance
	}
}

func boolPtr(b bool) *bool {
	return &b
}
