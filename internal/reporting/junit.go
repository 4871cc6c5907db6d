package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/spboyer/streamauc/internal/models"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one evaluation report.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one gate.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
}

// JUnitFailure represents a gate that evaluated and did not pass.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError represents a gate that could not be evaluated.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitSkipped marks a test as skipped.
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit converts an EvaluationReport to JUnit XML form with one
// test case per gate.
func ConvertToJUnit(report *models.EvaluationReport) *JUnitTestSuites {
	durationSec := float64(report.DurationMs) / 1000.0

	suite := JUnitTestSuite{
		Name:      report.Name,
		Tests:     len(report.Gates),
		Time:      durationSec,
		Timestamp: report.Timestamp.Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "samples", Value: fmt.Sprintf("%d", report.Samples)},
			{Name: "batches", Value: fmt.Sprintf("%d", report.Batches)},
			{Name: "thresholds", Value: fmt.Sprintf("%d", len(report.Thresholds))},
			{Name: "classes", Value: fmt.Sprintf("%d", len(report.Classes))},
		},
	}
	for _, agg := range sortedKeys(report.Aggregates) {
		suite.Properties = append(suite.Properties, JUnitProperty{
			Name:  "auc." + agg,
			Value: fmt.Sprintf("%.4f", report.Aggregates[agg]),
		})
	}

	for _, g := range report.Gates {
		tc := convertGate(report.Name, g)
		switch {
		case tc.Error != nil:
			suite.Errors++
		case tc.Failure != nil:
			suite.Failures++
		}
		suite.TestCases = append(suite.TestCases, tc)
	}

	return &JUnitTestSuites{
		Tests:      suite.Tests,
		Failures:   suite.Failures,
		Errors:     suite.Errors,
		Time:       durationSec,
		TestSuites: []JUnitTestSuite{suite},
	}
}

func convertGate(suite string, g models.GateResult) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      g.Name,
		Classname: fmt.Sprintf("%s.%s", suite, g.Type),
		Time:      float64(g.DurationMs) / 1000.0,
	}

	switch {
	case g.Error != "":
		tc.Error = &JUnitError{
			Message: g.Error,
			Type:    "GateError",
		}
	case !g.Passed:
		tc.Failure = &JUnitFailure{
			Message: fmt.Sprintf("%s: value=%.4f limit=%.4f", g.Name, g.Value, g.Limit),
			Type:    "GateFailure",
			Body:    fmt.Sprintf("[FAIL] %s (%s): %s\n", g.Name, g.Type, g.Feedback),
		}
	}
	return tc
}

// WriteJUnitXML writes JUnit XML to the specified file path.
func WriteJUnitXML(report *models.EvaluationReport, path string) error {
	suites := ConvertToJUnit(report)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	return os.WriteFile(path, output, 0644)
}
