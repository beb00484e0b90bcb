package allure

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf16"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

// AssertionError marks a failure of the system under test, reported as
// "failed". Any other error is reported as "broken".
type AssertionError struct {
	Message string
}

func (e *AssertionError) Error() string {
	return e.Message
}

// Failf returns an AssertionError with a formatted message.
func Failf(format string, args ...any) error {
	return &AssertionError{Message: fmt.Sprintf(format, args...)}
}

// StatusOf maps a step or test error to an Allure status.
func StatusOf(err error) Status {
	if err == nil {
		return StatusPassed
	}
	var ae *AssertionError
	if errors.As(err, &ae) {
		return StatusFailed
	}
	return StatusBroken
}

// Reporter writes results into one allure-results directory.
type Reporter struct {
	dir    string
	labels []Label
	now    func() time.Time
}

// NewReporter creates dir if needed. Default labels are added to every result.
func NewReporter(dir string, defaultLabels ...Label) (*Reporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create allure results dir: %w", err)
	}
	labels := []Label{
		{Name: "language", Value: "go"},
		{Name: "framework", Value: "playwright-go"},
	}
	if host, err := os.Hostname(); err == nil {
		labels = append(labels, Label{Name: "host", Value: host})
	}
	labels = append(labels, Label{Name: "thread", Value: "pid-" + strconv.Itoa(os.Getpid())})
	labels = append(labels, defaultLabels...)
	return &Reporter{dir: dir, labels: labels, now: time.Now}, nil
}

// Dir returns the results directory.
func (r *Reporter) Dir() string {
	return r.dir
}

// Start begins a test result.
func (r *Reporter) Start(name, fullName string) *Result {
	res := &Result{
		reporter: r,
		tr: TestResult{
			UUID:        uuid.NewString(),
			Name:        name,
			FullName:    fullName,
			Stage:       StageRunning,
			Steps:       []*StepResult{},
			Attachments: []Attachment{},
			Parameters:  []Parameter{},
			Labels:      append([]Label(nil), r.labels...),
			Links:       []Link{},
			Start:       millis(r.now()),
		},
	}
	return res
}

// Result is an in-progress test result. Methods are safe for concurrent use.
type Result struct {
	reporter *Reporter

	mu       sync.Mutex
	tr       TestResult
	stack    []*StepResult
	finished bool
}

// UUID returns the result id.
func (res *Result) UUID() string {
	return res.tr.UUID
}

// Label adds a label.
func (res *Result) Label(name, value string) *Result {
	res.mu.Lock()
	defer res.mu.Unlock()
	res.tr.Labels = append(res.tr.Labels, Label{Name: name, Value: value})
	return res
}

func (res *Result) Epic(v string) *Result    { return res.Label("epic", v) }
func (res *Result) Feature(v string) *Result { return res.Label("feature", v) }
func (res *Result) Story(v string) *Result   { return res.Label("story", v) }
func (res *Result) Suite(v string) *Result   { return res.Label("suite", v) }

// Severity sets the severity label, replacing any previous one.
func (res *Result) Severity(s Severity) *Result {
	res.mu.Lock()
	defer res.mu.Unlock()
	labels := res.tr.Labels[:0]
	for _, l := range res.tr.Labels {
		if l.Name != "severity" {
			labels = append(labels, l)
		}
	}
	res.tr.Labels = append(labels, Label{Name: "severity", Value: string(s)})
	return res
}

// Parameter adds a displayed parameter to the result, or to the current
// step when one is running.
func (res *Result) Parameter(name, value string) *Result {
	res.mu.Lock()
	defer res.mu.Unlock()
	p := Parameter{Name: name, Value: value}
	if step := res.current(); step != nil {
		step.Parameters = append(step.Parameters, p)
	} else {
		res.tr.Parameters = append(res.tr.Parameters, p)
	}
	return res
}

// Link adds an issue or reference link.
func (res *Result) Link(name, url, kind string) *Result {
	res.mu.Lock()
	defer res.mu.Unlock()
	res.tr.Links = append(res.tr.Links, Link{Name: name, URL: url, Type: kind})
	return res
}

// Description sets the markdown description and its sanitized HTML rendering.
func (res *Result) Description(md string) *Result {
	md = dedent(md)
	rendered := RenderMarkdown(md)
	res.mu.Lock()
	defer res.mu.Unlock()
	res.tr.Description = md
	res.tr.DescriptionHTML = rendered
	return res
}

// Step runs fn as a named step. Steps nest when called from inside fn.
// A step whose fn never returns (t.FailNow, panic) is recorded as failed
// before unwinding continues.
func (res *Result) Step(name string, fn func() error) (err error) {
	step := res.startStep(name)
	returned := false
	defer func() {
		if returned {
			return
		}
		rec := recover()
		msg := "step aborted"
		if rec != nil {
			msg = fmt.Sprintf("panic: %v", rec)
		}
		res.stopStep(step, StatusFailed, &StatusDetails{Message: msg})
		if rec != nil {
			panic(rec)
		}
	}()

	err = fn()
	returned = true

	var details *StatusDetails
	if err != nil {
		details = &StatusDetails{Message: err.Error()}
	}
	res.stopStep(step, StatusOf(err), details)
	return err
}

func (res *Result) startStep(name string) *StepResult {
	res.mu.Lock()
	defer res.mu.Unlock()
	step := &StepResult{
		Name:        name,
		Stage:       StageRunning,
		Steps:       []*StepResult{},
		Attachments: []Attachment{},
		Parameters:  []Parameter{},
		Start:       millis(res.reporter.now()),
	}
	if parent := res.current(); parent != nil {
		parent.Steps = append(parent.Steps, step)
	} else {
		res.tr.Steps = append(res.tr.Steps, step)
	}
	res.stack = append(res.stack, step)
	return step
}

func (res *Result) stopStep(step *StepResult, status Status, details *StatusDetails) {
	res.mu.Lock()
	defer res.mu.Unlock()
	step.Status = status
	step.StatusDetails = details
	step.Stage = StageFinished
	step.Stop = millis(res.reporter.now())
	for i := len(res.stack) - 1; i >= 0; i-- {
		if res.stack[i] == step {
			res.stack = res.stack[:i]
			break
		}
	}
}

func (res *Result) current() *StepResult {
	if len(res.stack) == 0 {
		return nil
	}
	return res.stack[len(res.stack)-1]
}

// Attach writes data as an attachment file and links it to the current step,
// or to the result when no step is running.
func (res *Result) Attach(name, mimeType string, data []byte) error {
	source := uuid.NewString() + "-attachment" + extensionFor(mimeType)
	if err := os.WriteFile(filepath.Join(res.reporter.dir, source), data, 0o644); err != nil {
		return fmt.Errorf("write attachment %q: %w", name, err)
	}
	res.mu.Lock()
	defer res.mu.Unlock()
	a := Attachment{Name: name, Source: source, Type: mimeType}
	if step := res.current(); step != nil {
		step.Attachments = append(step.Attachments, a)
	} else {
		res.tr.Attachments = append(res.tr.Attachments, a)
	}
	return nil
}

// AttachFile copies the file at path as an attachment.
func (res *Result) AttachFile(name, mimeType, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read attachment %q: %w", path, err)
	}
	return res.Attach(name, mimeType, data)
}

// Finish records the final status and writes <uuid>-result.json. Only the
// first call writes; later calls are no-ops.
func (res *Result) Finish(status Status, details *StatusDetails) error {
	res.mu.Lock()
	if res.finished {
		res.mu.Unlock()
		return nil
	}
	res.finished = true
	res.tr.Status = status
	res.tr.StatusDetails = details
	res.tr.Stage = StageFinished
	res.tr.Stop = millis(res.reporter.now())
	res.tr.HistoryID = historyID(res.tr.FullName, res.tr.Parameters)
	res.tr.TestCaseID = historyID(res.tr.FullName, nil)
	data, err := json.MarshalIndent(res.tr, "", "  ")
	res.mu.Unlock()
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	return writeAtomic(filepath.Join(res.reporter.dir, res.tr.UUID+"-result.json"), data)
}

// Snapshot returns a copy of the result as it would be written now.
func (res *Result) Snapshot() TestResult {
	res.mu.Lock()
	defer res.mu.Unlock()
	data, _ := json.Marshal(res.tr)
	var out TestResult
	_ = json.Unmarshal(data, &out)
	return out
}

// RenderMarkdown converts a markdown description into sanitized HTML.
func RenderMarkdown(md string) string {
	extensions := parser.CommonExtensions | parser.AutoHeadingIDs | parser.NoEmptyLineBeforeBlock
	p := parser.NewWithExtensions(extensions)
	doc := p.Parse([]byte(md))

	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank,
	})
	htmlContent := markdown.Render(doc, renderer)

	policy := bluemonday.UGCPolicy()
	return string(policy.SanitizeBytes(htmlContent))
}

// historyID identifies a test across runs: full name plus sorted parameters.
func historyID(fullName string, params []Parameter) string {
	sorted := append([]Parameter(nil), params...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Name == sorted[j].Name {
			return sorted[i].Value < sorted[j].Value
		}
		return sorted[i].Name < sorted[j].Name
	})
	h := sha256.New()
	h.Write([]byte(fullName))
	for _, p := range sorted {
		h.Write([]byte{0})
		h.Write([]byte(p.Name))
		h.Write([]byte{'='})
		h.Write([]byte(p.Value))
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}

func extensionFor(mimeType string) string {
	switch mimeType {
	case MimePNG:
		return ".png"
	case MimeText:
		return ".txt"
	case MimeJSON:
		return ".json"
	case MimeHTML:
		return ".html"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

// dedent strips the common leading indentation of non-blank lines, so
// descriptions can be written as indented raw strings.
func dedent(s string) string {
	lines := strings.Split(strings.Trim(s, "\n"), "\n")
	indent := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		n := len(line) - len(strings.TrimLeft(line, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	if indent <= 0 {
		return strings.Join(lines, "\n")
	}
	for i, line := range lines {
		if len(line) >= indent {
			lines[i] = line[indent:]
		} else {
			lines[i] = strings.TrimLeft(line, " \t")
		}
	}
	return strings.Join(lines, "\n")
}

func millis(t time.Time) int64 {
	return t.UnixMilli()
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}

// escapeProperty escapes a Java properties key or value.
func escapeProperty(s string, key bool) string {
	var b bytes.Buffer
	for i, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '=', ':', '#', '!':
			if key || (i == 0 && (r == '#' || r == '!')) {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		case ' ':
			if key || i == 0 {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		default:
			if r > 0xffff {
				hi, lo := utf16.EncodeRune(r)
				fmt.Fprintf(&b, `\u%04x\u%04x`, hi, lo)
				continue
			}
			if r > 0x7e {
				fmt.Fprintf(&b, `\u%04x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
