package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

// fixtureCSV holds four two-class samples. With thresholds {0, 0.5, 1}
// class 0 has AUC 0.5, class 1 has AUC 1 and every aggregate is 0.75.
const fixtureCSV = `label,score_0,score_1
0,0.9,0.1
1,0.2,0.8
1,0.6,0.7
0,0.4,0.3
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// writeProject writes the fixture dataset and a config with a macro AUC gate.
func writeProject(t *testing.T, dir string, minAUC float64) string {
	t.Helper()
	writeFile(t, dir, "data/scores.csv", fixtureCSV)
	return writeFile(t, dir, ".streamauc.yaml", `name: fixture
datasets:
  - data/scores.csv
input:
  classes: 2
  class_names: [negative, positive]
thresholds:
  values: [0, 0.5, 1]
gates:
  - type: min_auc
    name: macro-auc
    config:
      aggregation: macro
      min: `+strconv.FormatFloat(minAUC, 'g', -1, 64)+`
`)
}

// runCLI executes the root command with args and returns stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCommand()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}
