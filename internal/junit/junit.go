// Package junit converts `go test -json` output into JUnit XML for CI test
// reporters.
package junit

import (
	"bufio"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

// TestSuites is the JUnit document root.
type TestSuites struct {
	XMLName  xml.Name    `xml:"testsuites"`
	Name     string      `xml:"name,attr,omitempty"`
	Tests    int         `xml:"tests,attr"`
	Failures int         `xml:"failures,attr"`
	Errors   int         `xml:"errors,attr"`
	Skipped  int         `xml:"skipped,attr"`
	Time     string      `xml:"time,attr"`
	Suites   []TestSuite `xml:"testsuite"`
}

// TestSuite is one Go package.
type TestSuite struct {
	Name       string     `xml:"name,attr"`
	Tests      int        `xml:"tests,attr"`
	Failures   int        `xml:"failures,attr"`
	Errors     int        `xml:"errors,attr"`
	Skipped    int        `xml:"skipped,attr"`
	Time       string     `xml:"time,attr"`
	Timestamp  string     `xml:"timestamp,attr,omitempty"`
	Properties []Property `xml:"properties>property,omitempty"`
	Cases      []TestCase `xml:"testcase"`
	SystemOut  *Text      `xml:"system-out,omitempty"`
}

// Property is a suite-level key/value.
type Property struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// TestCase is one test or subtest.
type TestCase struct {
	Classname string   `xml:"classname,attr"`
	Name      string   `xml:"name,attr"`
	Time      string   `xml:"time,attr"`
	Failure   *Failure `xml:"failure,omitempty"`
	Error     *Failure `xml:"error,omitempty"`
	Skipped   *Skipped `xml:"skipped,omitempty"`
	SystemOut *Text    `xml:"system-out,omitempty"`
}

// Failure carries the failing test's output.
type Failure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr,omitempty"`
	Value   string `xml:",cdata"`
}

// Skipped marks a skipped test.
type Skipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// Text is character data written as CDATA.
type Text struct {
	Value string `xml:",cdata"`
}

// Event is one line of `go test -json` (test2json) output. Since Go 1.24
// compiler errors arrive as build-output events keyed by ImportPath, and the
// package's fail event names the failed build in FailedBuild.
type Event struct {
	Time        time.Time `json:"Time"`
	Action      string    `json:"Action"`
	Package     string    `json:"Package"`
	ImportPath  string    `json:"ImportPath"`
	Test        string    `json:"Test"`
	Elapsed     float64   `json:"Elapsed"`
	Output      string    `json:"Output"`
	FailedBuild string    `json:"FailedBuild"`
}

// Summary counts converted tests.
type Summary struct {
	Tests    int
	Failures int
	Errors   int
	Skipped  int
}

// Failed reports whether any test failed or errored.
func (s Summary) Failed() bool {
	return s.Failures > 0 || s.Errors > 0
}

func (s Summary) String() string {
	return fmt.Sprintf("%d tests, %d failures, %d errors, %d skipped", s.Tests, s.Failures, s.Errors, s.Skipped)
}

type testState struct {
	name    string
	action  string
	elapsed float64
	output  strings.Builder
	order   int
}

type packageState struct {
	name        string
	start       time.Time
	action      string
	elapsed     float64
	output      strings.Builder
	buildOutput string
	tests       map[string]*testState
}

// Parse reads test2json events. Lines that are not JSON (build errors
// printed by go commands older than 1.24) are returned as stray output.
func Parse(r io.Reader) ([]Event, string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var events []Event
	var stray strings.Builder
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var ev Event
		if line[0] != '{' || json.Unmarshal(line, &ev) != nil || ev.Action == "" {
			stray.Write(line)
			stray.WriteByte('\n')
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, "", fmt.Errorf("read test events: %w", err)
	}
	return events, stray.String(), nil
}

// Build groups events into suites, one per package in first-seen order.
func Build(events []Event, stray string) (*TestSuites, Summary) {
	packages := map[string]*packageState{}
	var order []*packageState

	pkgFor := func(ev Event) *packageState {
		p, ok := packages[ev.Package]
		if !ok {
			p = &packageState{name: ev.Package, start: ev.Time, tests: map[string]*testState{}}
			packages[ev.Package] = p
			order = append(order, p)
		}
		return p
	}

	builds := map[string]*strings.Builder{}
	var buildOrder []string
	claimed := map[string]bool{}

	for _, ev := range events {
		if ev.Package == "" && ev.ImportPath != "" {
			b, ok := builds[ev.ImportPath]
			if !ok {
				b = &strings.Builder{}
				builds[ev.ImportPath] = b
				buildOrder = append(buildOrder, ev.ImportPath)
			}
			if ev.Action == "build-output" {
				b.WriteString(ev.Output)
			}
			continue
		}
		if ev.Package == "" {
			continue
		}
		p := pkgFor(ev)
		if ev.Test == "" {
			switch ev.Action {
			case "output":
				p.output.WriteString(ev.Output)
			case "pass", "fail", "skip":
				p.action = ev.Action
				p.elapsed = ev.Elapsed
				if ev.FailedBuild != "" {
					if b, ok := builds[ev.FailedBuild]; ok {
						p.buildOutput = b.String()
					}
					claimed[ev.FailedBuild] = true
				}
			}
			continue
		}
		t, ok := p.tests[ev.Test]
		if !ok {
			t = &testState{name: ev.Test, order: len(p.tests)}
			p.tests[ev.Test] = t
		}
		switch ev.Action {
		case "output":
			t.output.WriteString(ev.Output)
		case "pass", "fail", "skip":
			t.action = ev.Action
			t.elapsed = ev.Elapsed
		}
	}

	// Build output no package claimed (a failed dependency, or a package
	// without a test binary) is reported with the stray go command output.
	var unclaimed strings.Builder
	unclaimed.WriteString(stray)
	for _, path := range buildOrder {
		if claimed[path] || builds[path].Len() == 0 {
			continue
		}
		unclaimed.WriteString(builds[path].String())
	}
	stray = unclaimed.String()

	doc := &TestSuites{Name: "go test"}
	var sum Summary
	var total float64
	for _, p := range order {
		suite := buildSuite(p)
		sum.Tests += suite.Tests
		sum.Failures += suite.Failures
		sum.Errors += suite.Errors
		sum.Skipped += suite.Skipped
		total += p.elapsed
		doc.Suites = append(doc.Suites, suite)
	}

	if strings.TrimSpace(stray) != "" {
		doc.Suites = append(doc.Suites, TestSuite{
			Name:   "go",
			Tests:  1,
			Errors: 1,
			Time:   formatSeconds(0),
			Cases: []TestCase{{
				Classname: "go",
				Name:      "build",
				Time:      formatSeconds(0),
				Error:     &Failure{Message: "go command output", Type: "build", Value: stray},
			}},
		})
		sum.Tests++
		sum.Errors++
	}

	doc.Tests = sum.Tests
	doc.Failures = sum.Failures
	doc.Errors = sum.Errors
	doc.Skipped = sum.Skipped
	doc.Time = formatSeconds(total)
	return doc, sum
}

func buildSuite(p *packageState) TestSuite {
	tests := make([]*testState, 0, len(p.tests))
	for _, t := range p.tests {
		tests = append(tests, t)
	}
	sort.Slice(tests, func(i, j int) bool { return tests[i].order < tests[j].order })

	suite := TestSuite{
		Name: p.name,
		Time: formatSeconds(p.elapsed),
	}
	if !p.start.IsZero() {
		suite.Timestamp = p.start.UTC().Format("2006-01-02T15:04:05")
	}

	for _, t := range tests {
		tc := TestCase{
			Classname: p.name,
			Name:      t.name,
			Time:      formatSeconds(t.elapsed),
		}
		out := t.output.String()
		switch t.action {
		case "fail":
			tc.Failure = &Failure{Message: "Failed", Value: out}
			suite.Failures++
		case "skip":
			tc.Skipped = &Skipped{Message: skipReason(out)}
			suite.Skipped++
		case "pass":
			if out != "" {
				tc.SystemOut = &Text{Value: out}
			}
		default:
			// No terminal event: the binary died (panic or timeout) mid-test.
			tc.Error = &Failure{Message: "test did not finish", Type: "incomplete", Value: out + p.output.String()}
			suite.Errors++
		}
		suite.Cases = append(suite.Cases, tc)
	}
	suite.Tests = len(suite.Cases)

	if p.buildOutput != "" {
		suite.Cases = append(suite.Cases, TestCase{
			Classname: p.name,
			Name:      "build",
			Time:      formatSeconds(0),
			Error:     &Failure{Message: "build failed", Type: "build", Value: p.buildOutput + p.output.String()},
		})
		suite.Tests++
		suite.Errors++
	} else if p.action == "fail" && suite.Failures == 0 && suite.Errors == 0 {
		suite.Cases = append(suite.Cases, TestCase{
			Classname: p.name,
			Name:      "package",
			Time:      formatSeconds(p.elapsed),
			Failure:   &Failure{Message: "package failed", Value: p.output.String()},
		})
		suite.Tests++
		suite.Failures++
	}
	if len(suite.Cases) == 0 && p.action == "skip" {
		suite.Properties = []Property{{Name: "no_tests", Value: "true"}}
	}
	if out := p.output.String(); out != "" {
		suite.SystemOut = &Text{Value: out}
	}
	return suite
}

// skipReason picks the t.Skip message out of a skipped test's output.
func skipReason(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "=== ") || strings.HasPrefix(line, "--- SKIP") {
			continue
		}
		if i := strings.Index(line, ": "); i >= 0 && strings.Contains(line[:i], ".go:") {
			return line[i+2:]
		}
		return line
	}
	return ""
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}

// Convert reads `go test -json` output from r and writes JUnit XML to w.
func Convert(r io.Reader, w io.Writer) (Summary, error) {
	events, stray, err := Parse(r)
	if err != nil {
		return Summary{}, err
	}
	doc, sum := Build(events, stray)
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return sum, fmt.Errorf("write junit: %w", err)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return sum, fmt.Errorf("encode junit: %w", err)
	}
	if _, err := io.WriteString(w, "\n"); err != nil {
		return sum, fmt.Errorf("write junit: %w", err)
	}
	return sum, nil
}
