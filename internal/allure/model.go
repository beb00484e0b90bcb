// Package allure writes Allure 2 result files (results, attachments,
// environment, categories and executor) that the Allure CLI turns into a
// report with `allure generate`.
package allure

// Status is an Allure test or step status.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusBroken  Status = "broken"
	StatusSkipped Status = "skipped"
)

// Stage is the Allure lifecycle stage.
type Stage string

const (
	StageRunning  Stage = "running"
	StageFinished Stage = "finished"
)

// Severity is the value of the "severity" label.
type Severity string

const (
	SeverityBlocker  Severity = "blocker"
	SeverityCritical Severity = "critical"
	SeverityNormal   Severity = "normal"
	SeverityMinor    Severity = "minor"
	SeverityTrivial  Severity = "trivial"
)

// Common MIME types for attachments.
const (
	MimePNG  = "image/png"
	MimeText = "text/plain"
	MimeJSON = "application/json"
	MimeHTML = "text/html"
)

// Label is a name/value tag (epic, feature, story, severity, suite...).
type Label struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Parameter is a displayed test parameter.
type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Link points from a result to an issue or test case.
type Link struct {
	Name string `json:"name,omitempty"`
	URL  string `json:"url"`
	Type string `json:"type,omitempty"`
}

// Attachment references a file written next to the results.
type Attachment struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	Type   string `json:"type"`
}

// StatusDetails explains a non-passed status.
type StatusDetails struct {
	Message string `json:"message,omitempty"`
	Trace   string `json:"trace,omitempty"`
}

// StepResult is one (possibly nested) step of a test.
type StepResult struct {
	Name          string         `json:"name"`
	Status        Status         `json:"status"`
	StatusDetails *StatusDetails `json:"statusDetails,omitempty"`
	Stage         Stage          `json:"stage"`
	Steps         []*StepResult  `json:"steps"`
	Attachments   []Attachment   `json:"attachments"`
	Parameters    []Parameter    `json:"parameters"`
	Start         int64          `json:"start"`
	Stop          int64          `json:"stop"`
}

// TestResult is the content of one <uuid>-result.json file.
type TestResult struct {
	UUID            string         `json:"uuid"`
	HistoryID       string         `json:"historyId"`
	TestCaseID      string         `json:"testCaseId"`
	Name            string         `json:"name"`
	FullName        string         `json:"fullName"`
	Description     string         `json:"description,omitempty"`
	DescriptionHTML string         `json:"descriptionHtml,omitempty"`
	Status          Status         `json:"status"`
	StatusDetails   *StatusDetails `json:"statusDetails,omitempty"`
	Stage           Stage          `json:"stage"`
	Steps           []*StepResult  `json:"steps"`
	Attachments     []Attachment   `json:"attachments"`
	Parameters      []Parameter    `json:"parameters"`
	Labels          []Label        `json:"labels"`
	Links           []Link         `json:"links"`
	Start           int64          `json:"start"`
	Stop            int64          `json:"stop"`
}

// Category groups results on the report's Categories tab.
type Category struct {
	Name            string   `json:"name"`
	MatchedStatuses []Status `json:"matchedStatuses,omitempty"`
	MessageRegex    string   `json:"messageRegex,omitempty"`
}

// Executor describes the CI system that produced the results.
type Executor struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	URL        string `json:"url,omitempty"`
	BuildOrder int64  `json:"buildOrder,omitempty"`
	BuildName  string `json:"buildName,omitempty"`
	BuildURL   string `json:"buildUrl,omitempty"`
	ReportURL  string `json:"reportUrl,omitempty"`
}
