package report

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// CIFileName is the JUnit document written per phase.
const CIFileName = "junit-results.xml"

type junitSuites struct {
	XMLName  xml.Name     `xml:"testsuites"`
	Name     string       `xml:"name,attr"`
	Tests    int          `xml:"tests,attr"`
	Failures int          `xml:"failures,attr"`
	Suites   []junitSuite `xml:"testsuite"`
}

type junitSuite struct {
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Time       string          `xml:"time,attr"`
	Properties []junitProperty `xml:"properties>property,omitempty"`
	Cases      []junitCase     `xml:"testcase"`
}

type junitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type junitCase struct {
	Name      string        `xml:"name,attr"`
	ClassName string        `xml:"classname,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// MarshalCI encodes the report as a JUnit document. The report timestamp is
// deliberately left out so identical results produce identical bytes.
func MarshalCI(r *PhaseReport) ([]byte, error) {
	suite := junitSuite{
		Name:     "fnprobe-" + r.Phase,
		Tests:    r.Totals.Total,
		Failures: r.Totals.Failed,
		Cases:    make([]junitCase, 0, len(r.Tests)),
	}
	suite.Properties = append(suite.Properties, junitProperty{Name: "runId", Value: r.RunID})
	if r.Function != "" {
		suite.Properties = append(suite.Properties, junitProperty{Name: "function", Value: r.Function})
	}
	if r.Region != "" {
		suite.Properties = append(suite.Properties, junitProperty{Name: "region", Value: r.Region})
	}

	var total int64
	for _, t := range r.Tests {
		total += t.DurationMs
		c := junitCase{
			Name:      t.Name,
			ClassName: r.Phase + "." + t.Kind,
			Time:      seconds(t.DurationMs),
		}
		if len(t.Notes) > 0 {
			c.SystemOut = strings.Join(t.Notes, "\n")
		}
		if !t.Passed {
			c.Failure = &junitFailure{
				Message: t.Reason,
				Type:    t.FailureType,
				Body:    failureBody(t),
			}
		}
		suite.Cases = append(suite.Cases, c)
	}
	suite.Time = seconds(total)

	doc := junitSuites{
		Name:     suite.Name,
		Tests:    suite.Tests,
		Failures: suite.Failures,
		Suites:   []junitSuite{suite},
	}
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode junit report: %w", err)
	}
	out := []byte(xml.Header)
	out = append(out, data...)
	return append(out, '\n'), nil
}

// WriteCIReport writes junit-results.xml into dir and returns its path.
func WriteCIReport(dir string, r *PhaseReport) (string, error) {
	data, err := MarshalCI(r)
	if err != nil {
		return "", err
	}
	return writeFile(dir, CIFileName, data)
}

func failureBody(t TestEntry) string {
	var lines []string
	for _, s := range t.Steps {
		if !s.Passed {
			lines = append(lines, fmt.Sprintf("step %s: %s", s.Name, s.Reason))
		}
	}
	return strings.Join(lines, "\n")
}

func seconds(ms int64) string {
	return fmt.Sprintf("%.3f", float64(ms)/1000)
}
