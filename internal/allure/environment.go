package allure

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// WriteEnvironment writes environment.properties, shown in the report's
// Environment widget. Keys are sorted.
func WriteEnvironment(dir string, props map[string]string) error {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(escapeProperty(k, true))
		b.WriteByte('=')
		b.WriteString(escapeProperty(props[k], false))
		b.WriteByte('\n')
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create allure results dir: %w", err)
	}
	return writeAtomic(filepath.Join(dir, "environment.properties"), []byte(b.String()))
}

// DefaultCategories separates product defects (assertion failures) from
// test defects (broken tests, timeouts).
func DefaultCategories() []Category {
	return []Category{
		{Name: "Product defects", MatchedStatuses: []Status{StatusFailed}},
		{Name: "Test defects", MatchedStatuses: []Status{StatusBroken}},
		{Name: "Element timeouts", MatchedStatuses: []Status{StatusBroken}, MessageRegex: ".*[Tt]imeout.*"},
		{Name: "Skipped tests", MatchedStatuses: []Status{StatusSkipped}},
	}
}

// WriteCategories writes categories.json.
func WriteCategories(dir string, categories []Category) error {
	data, err := json.MarshalIndent(categories, "", "  ")
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create allure results dir: %w", err)
	}
	return writeAtomic(filepath.Join(dir, "categories.json"), data)
}

// ExecutorFromEnv describes the current CI run using GitHub Actions
// variables. It returns nil outside CI.
func ExecutorFromEnv(getenv func(string) string, reportURL string) *Executor {
	if getenv("GITHUB_ACTIONS") != "true" {
		return nil
	}
	server := getenv("GITHUB_SERVER_URL")
	repo := getenv("GITHUB_REPOSITORY")
	runID := getenv("GITHUB_RUN_ID")
	e := &Executor{
		Name:      "GitHub Actions",
		Type:      "github",
		ReportURL: reportURL,
	}
	if server != "" && repo != "" {
		e.URL = server + "/" + repo + "/actions"
		if runID != "" {
			e.BuildURL = e.URL + "/runs/" + runID
		}
	}
	if n, err := strconv.ParseInt(getenv("GITHUB_RUN_NUMBER"), 10, 64); err == nil {
		e.BuildOrder = n
		e.BuildName = fmt.Sprintf("%s #%d", getenv("GITHUB_WORKFLOW"), n)
	}
	return e
}

// WriteExecutor writes executor.json.
func WriteExecutor(dir string, e *Executor) error {
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("encode executor: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create allure results dir: %w", err)
	}
	return writeAtomic(filepath.Join(dir, "executor.json"), data)
}
