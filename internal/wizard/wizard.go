package wizard

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spboyer/streamauc/internal/models"
	"github.com/spboyer/streamauc/internal/projectconfig"
	"golang.org/x/term"
)

// Answers holds the raw strings collected by the form.
type Answers struct {
	Name           string
	Datasets       string
	Format         string
	Classes        string
	ClassNames     string
	ThresholdCount string
	MinAUC         string
	Checkpoint     bool
}

// RunInitWizard runs an interactive huh form and returns the resulting
// configuration. initialName pre-populates the name field.
func RunInitWizard(in io.Reader, out io.Writer, initialName string) (*projectconfig.ProjectConfig, error) {
	a := Answers{
		Name:           initialName,
		Classes:        strconv.Itoa(projectconfig.DefaultClasses),
		ThresholdCount: strconv.Itoa(projectconfig.DefaultThresholdCount),
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project name").
				Placeholder("my-model").
				Value(&a.Name).
				Validate(requireNonEmpty("project name")),
			huh.NewInput().
				Title("Datasets").
				Description("Comma-separated CSV or JSONL files (.gz/.zst and az:// allowed)").
				Placeholder("scores.csv").
				Value(&a.Datasets),
			huh.NewSelect[string]().
				Title("Input format").
				Options(
					huh.NewOption("infer from extension", ""),
					huh.NewOption("csv", "csv"),
					huh.NewOption("jsonl", "jsonl"),
				).
				Value(&a.Format),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Number of classes").
				Value(&a.Classes).
				Validate(func(s string) error {
					_, err := parsePositiveInt(s, "number of classes", 1)
					return err
				}),
			huh.NewInput().
				Title("Class names").
				Description("Optional, comma-separated, in column order").
				Value(&a.ClassNames),
			huh.NewInput().
				Title("Threshold count").
				Description("Evenly spaced thresholds in [0, 1]").
				Value(&a.ThresholdCount).
				Validate(func(s string) error {
					_, err := parsePositiveInt(s, "threshold count", 2)
					return err
				}),
			huh.NewInput().
				Title("Minimum macro AUC gate").
				Description("Optional; leave empty for no gate").
				Placeholder("0.8").
				Value(&a.MinAUC).
				Validate(func(s string) error {
					_, _, err := parseOptionalUnit(s)
					return err
				}),
			huh.NewConfirm().
				Title("Enable resume checkpoints?").
				Value(&a.Checkpoint),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}
	return BuildConfig(a)
}

// BuildConfig validates the answers and turns them into a configuration
// layered on the defaults.
func BuildConfig(a Answers) (*projectconfig.ProjectConfig, error) {
	cfg := projectconfig.New()

	cfg.Name = strings.TrimSpace(a.Name)
	if err := requireNonEmpty("project name")(cfg.Name); err != nil {
		return nil, err
	}
	cfg.Datasets = splitAndTrim(a.Datasets)

	switch a.Format {
	case "", "csv", "jsonl":
		cfg.Input.Format = a.Format
	default:
		return nil, fmt.Errorf("invalid input format %q", a.Format)
	}

	classes, err := parsePositiveInt(a.Classes, "number of classes", 1)
	if err != nil {
		return nil, err
	}
	cfg.Input.Classes = classes

	cfg.Input.ClassNames = splitAndTrim(a.ClassNames)
	if n := len(cfg.Input.ClassNames); n > 0 && n != classes {
		return nil, fmt.Errorf("got %d class names for %d classes", n, classes)
	}

	count, err := parsePositiveInt(a.ThresholdCount, "threshold count", 2)
	if err != nil {
		return nil, err
	}
	cfg.Thresholds.Count = count

	minAUC, ok, err := parseOptionalUnit(a.MinAUC)
	if err != nil {
		return nil, err
	}
	if ok {
		cfg.Gates = []models.GateConfig{{
			Kind:       models.GateKindMinAUC,
			Identifier: "macro-auc",
			Parameters: map[string]any{"aggregation": "macro", "min": minAUC},
		}}
	}

	enabled := a.Checkpoint
	cfg.Checkpoint.Enabled = &enabled
	return cfg, nil
}

func requireNonEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func parsePositiveInt(s, field string, minimum int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%s must be a whole number", field)
	}
	if n < minimum {
		return 0, fmt.Errorf("%s must be at least %d", field, minimum)
	}
	return n, nil
}

// parseOptionalUnit parses an optional value in [0, 1]; ok is false when s is blank.
func parseOptionalUnit(s string) (v float64, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false, nil
	}
	v, err = strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false, fmt.Errorf("%q is not a number", s)
	}
	if v < 0 || v > 1 {
		return 0, false, fmt.Errorf("%v must be between 0 and 1", v)
	}
	return v, true, nil
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
