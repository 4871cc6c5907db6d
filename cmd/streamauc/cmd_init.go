package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/spboyer/streamauc/internal/models"
	"github.com/spboyer/streamauc/internal/projectconfig"
	"github.com/spboyer/streamauc/internal/wizard"
)

func newInitCommand() *cobra.Command {
	var interactive, force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a .streamauc.yaml project config",
		Long: `Create a .streamauc.yaml project config.

Without flags a config with defaults and an example macro AUC gate is written.
Use --interactive to answer a short form for the project name, datasets,
classes, threshold grid and an optional minimum AUC.

If no directory is specified, the current directory is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return initCommandE(cmd, args, interactive, force)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Run the guided setup form")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config")

	return cmd
}

func initCommandE(cmd *cobra.Command, args []string, interactive, force bool) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, projectconfig.FileName)
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists: use --force to overwrite", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	name := projectName(dir)
	var cfg *projectconfig.ProjectConfig
	if interactive {
		var err error
		cfg, err = wizard.RunInitWizard(cmd.InOrStdin(), cmd.OutOrStdout(), name)
		if err != nil {
			return fmt.Errorf("wizard failed: %w", err)
		}
	} else {
		cfg = defaultProjectConfig(name)
	}

	if err := cfg.Save(path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path) //nolint:errcheck
	return nil
}

func defaultProjectConfig(name string) *projectconfig.ProjectConfig {
	cfg := projectconfig.New()
	cfg.Name = name
	cfg.Datasets = []string{"data/scores.csv"}
	cfg.Gates = []models.GateConfig{
		{
			Kind:       models.GateKindMinAUC,
			Identifier: "macro-auc",
			Parameters: map[string]any{"aggregation": "macro", "min": 0.8},
		},
	}
	return cfg
}

func projectName(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "streamauc-project"
	}
	return filepath.Base(abs)
}
