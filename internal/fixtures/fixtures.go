// Package fixtures loads the data-driven inputs of the login suite.
package fixtures

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/kuitang/hrm-ui-suite/internal/errs"
)

//go:embed login_test_data.json
var defaultLoginData []byte

// InvalidScenarioOrder is the order invalid-login scenarios run and report in.
var InvalidScenarioOrder = []string{
	"invalid_username",
	"invalid_password",
	"blank_fields",
	"case_sensitive",
	"special_chars",
	"long_input",
}

// Credentials is one username/password pair. ExpectedError is set for
// invalid scenarios.
type Credentials struct {
	Username      string `json:"username"`
	Password      string `json:"password"`
	ExpectedError string `json:"expected_error,omitempty"`
}

// LoginData is the login suite's test data file.
type LoginData struct {
	ValidCredentials   Credentials            `json:"valid_credentials"`
	InvalidCredentials map[string]Credentials `json:"invalid_credentials"`
}

// Scenario is a named invalid-login case.
type Scenario struct {
	Name          string
	Credentials   Credentials
	ExpectedError string
}

// ParseLoginData decodes and validates login test data.
func ParseLoginData(data []byte) (*LoginData, error) {
	var ld LoginData
	if err := json.Unmarshal(data, &ld); err != nil {
		return nil, errs.Wrap(errs.InvalidArgument, "parse login test data", err)
	}
	if ld.ValidCredentials.Username == "" || ld.ValidCredentials.Password == "" {
		return nil, errs.New(errs.InvalidArgument, "login test data: valid_credentials must have username and password")
	}
	var missing []string
	for _, name := range InvalidScenarioOrder {
		c, ok := ld.InvalidCredentials[name]
		if !ok || c.ExpectedError == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errs.New(errs.InvalidArgument, fmt.Sprintf("login test data: missing or incomplete scenarios: %s", strings.Join(missing, ", ")))
	}
	return &ld, nil
}

// LoadLoginData reads test data from path, or the embedded defaults when
// path is empty.
func LoadLoginData(path string) (*LoginData, error) {
	if strings.TrimSpace(path) == "" {
		return ParseLoginData(defaultLoginData)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrap(errs.NotFound, fmt.Sprintf("read login test data %s", path), err)
	}
	return ParseLoginData(data)
}

// WithValidCredentials returns a copy whose valid credentials are replaced
// when username and password are both set.
func (ld *LoginData) WithValidCredentials(username, password string) *LoginData {
	out := *ld
	if username != "" && password != "" {
		out.ValidCredentials = Credentials{Username: username, Password: password}
	}
	return &out
}

// InvalidScenarios returns the invalid-login scenarios in a stable order:
// the known scenarios first, then any extra ones sorted by name.
func (ld *LoginData) InvalidScenarios() []Scenario {
	out := make([]Scenario, 0, len(ld.InvalidCredentials))
	seen := make(map[string]bool, len(InvalidScenarioOrder))
	for _, name := range InvalidScenarioOrder {
		if c, ok := ld.InvalidCredentials[name]; ok {
			out = append(out, Scenario{Name: name, Credentials: c, ExpectedError: c.ExpectedError})
			seen[name] = true
		}
	}
	var extra []string
	for name := range ld.InvalidCredentials {
		if !seen[name] {
			extra = append(extra, name)
		}
	}
	sort.Strings(extra)
	for _, name := range extra {
		c := ld.InvalidCredentials[name]
		out = append(out, Scenario{Name: name, Credentials: c, ExpectedError: c.ExpectedError})
	}
	return out
}
