package pages

import (
	"context"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/hrm-ui-suite/internal/constants"
	"github.com/kuitang/hrm-ui-suite/internal/errs"
	"github.com/kuitang/hrm-ui-suite/internal/urlutil"
)

var loginSel = constants.LoginPageSelectors

// LoginPage is the OrangeHRM login screen plus the logout control of the
// authenticated top bar.
type LoginPage struct {
	*BasePage
}

// NewLoginPage returns the login page object for baseURL.
func NewLoginPage(ctx context.Context, page playwright.Page, baseURL string, timeout time.Duration) *LoginPage {
	return &LoginPage{BasePage: NewBasePage(ctx, page, baseURL, timeout)}
}

// Navigate opens the login page and waits for the form. When the browser is
// already authenticated and lands on the dashboard, it logs out first.
func (l *LoginPage) Navigate() error {
	if err := l.Open(constants.LoginPath); err != nil {
		l.log().Error("failed to navigate to login page", "error", err)
		return err
	}

	if !l.WaitForAny(loginSel.Username, loginSel.Dashboard) {
		l.log().Error("timeout waiting for login page to load")
		return errs.New(errs.Timeout, "login form did not load")
	}

	if urlutil.PathContains(l.CurrentURL(), constants.DashboardURLMarker) {
		l.log().Info("user already logged in, logging out")
		if err := l.Logout(); err != nil {
			return err
		}
	}

	if _, err := l.WaitVisible(loginSel.Username); err != nil {
		return err
	}
	l.log().Info("login page loaded")
	return nil
}

// Login enters the credentials and submits the form.
func (l *LoginPage) Login(username, password string) error {
	if err := l.InputText(loginSel.Username, username); err != nil {
		l.log().Error("login failed", "error", err)
		return err
	}
	l.log().Info("entered username", "username", username)

	if err := l.InputText(loginSel.Password, password); err != nil {
		l.log().Error("login failed", "error", err)
		return err
	}
	l.log().Info("entered password")

	return l.ClickLoginButton()
}

// ClickLoginButton submits the form and waits until the outcome is visible:
// the dashboard, an error alert, or a required-field message.
func (l *LoginPage) ClickLoginButton() error {
	if err := l.Click(loginSel.LoginButton); err != nil {
		l.log().Error("failed to click login button", "error", err)
		return err
	}
	l.log().Info("clicked login button")

	if !l.WaitForAny(loginSel.Dashboard, loginSel.ErrorMessage, loginSel.RequiredError) {
		l.log().Warn("login outcome not visible before timeout", "url", l.CurrentURL())
	}
	return nil
}

// GetErrorMessage returns the general error alert text, else the first
// required-field message, else "". It never fails.
func (l *LoginPage) GetErrorMessage() string {
	if loc := l.FindElement(loginSel.ErrorMessage); loc != nil {
		if text, err := loc.InnerText(); err == nil {
			return strings.TrimSpace(text)
		}
	}
	if loc := l.FindElement(loginSel.RequiredError); loc != nil {
		if text, err := loc.InnerText(); err == nil {
			return strings.TrimSpace(text)
		}
	}
	return ""
}

// IsLoginSuccessful is false whenever an error message is shown; otherwise
// it reports whether the dashboard header is visible.
func (l *LoginPage) IsLoginSuccessful() bool {
	if msg := l.GetErrorMessage(); msg != "" {
		return false
	}
	return l.FindElement(loginSel.Dashboard) != nil
}

// Logout opens the user dropdown, clicks Logout and waits for the login URL.
func (l *LoginPage) Logout() error {
	if err := l.Click(loginSel.UserDropdown); err != nil {
		l.log().Error("logout failed", "error", err)
		return err
	}
	l.log().Info("clicked user dropdown")

	if err := l.Click(loginSel.LogoutLink); err != nil {
		l.log().Error("logout failed", "error", err)
		return err
	}
	l.log().Info("clicked logout link")

	err := l.Page().WaitForURL("**"+constants.LoginPath+"**", playwright.PageWaitForURLOptions{
		Timeout: playwright.Float(constants.Milliseconds(l.timeout)),
	})
	if err != nil {
		return errs.Wrap(classify(err, errs.Navigation), "wait for login page after logout", err)
	}
	return nil
}
