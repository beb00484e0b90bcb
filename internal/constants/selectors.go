// Package constants holds the OrangeHRM locators, paths, timeouts and
// user-facing texts shared by page objects and tests.
package constants

// Selector is a Playwright selector (CSS by default, or any engine prefix
// such as "text=" or "xpath=").
type Selector string

// String returns the raw selector.
func (s Selector) String() string {
	return string(s)
}

// LoginPageSelectors are the locators used by the login page object.
var LoginPageSelectors = struct {
	Username      Selector
	Password      Selector
	LoginButton   Selector
	ErrorMessage  Selector
	RequiredError Selector
	Dashboard     Selector
	UserDropdown  Selector
	LogoutLink    Selector
}{
	Username:      "input[name='username']",
	Password:      "input[name='password']",
	LoginButton:   "button[type='submit']",
	ErrorMessage:  ".oxd-alert-content-text",
	RequiredError: ".oxd-input-field-error-message",
	Dashboard:     ".oxd-topbar-header-breadcrumb h6",
	UserDropdown:  ".oxd-userdropdown-tab",
	LogoutLink:    "a[href*='/auth/logout']",
}

// Application paths, relative to the configured base URL.
const (
	LoginPath     = "/web/index.php/auth/login"
	DashboardPath = "/web/index.php/dashboard/index"
	LogoutPath    = "/web/index.php/auth/logout"

	// DashboardURLMarker identifies an authenticated landing URL.
	DashboardURLMarker = "/dashboard/index"
)

// Messages rendered by OrangeHRM that tests assert against.
const (
	InvalidCredentialsMessage = "Invalid credentials"
	RequiredMessage           = "Required"
	DashboardTitle            = "Dashboard"
)
