package pages

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kuitang/hrm-ui-suite/internal/config"
	"github.com/kuitang/hrm-ui-suite/internal/constants"
	"github.com/kuitang/hrm-ui-suite/internal/driver"
	"github.com/kuitang/hrm-ui-suite/internal/errs"
	"github.com/kuitang/hrm-ui-suite/internal/hrmfake"
)

const pageTestTimeout = 5 * time.Second

var (
	browserOnce sync.Once
	browserMgr  *driver.Manager
	browserErr  error
)

func TestMain(m *testing.M) {
	code := m.Run()
	if browserMgr != nil {
		_ = browserMgr.Stop()
	}
	os.Exit(code)
}

func sharedManager(t *testing.T) *driver.Manager {
	t.Helper()
	browserOnce.Do(func() {
		browserMgr = driver.NewManager(&config.Config{
			Browser:         "chromium",
			Headless:        true,
			WindowWidth:     1280,
			WindowHeight:    800,
			ImplicitWait:    pageTestTimeout,
			PageLoadTimeout: pageTestTimeout,
		})
		browserErr = browserMgr.Start()
	})
	if browserErr != nil {
		t.Skip("Playwright not available:", browserErr)
	}
	return browserMgr
}

type loginFixture struct {
	fake   *hrmfake.Server
	server *httptest.Server
	login  *LoginPage
}

func setupLogin(t *testing.T) *loginFixture {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	mgr := sharedManager(t)

	fake, server := hrmfake.Start(hrmfake.DefaultUsername, hrmfake.DefaultPassword)
	t.Cleanup(server.Close)

	session, err := mgr.NewSession()
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })

	login := NewLoginPage(context.Background(), session.Page, server.URL, pageTestTimeout)
	require.NoError(t, login.Navigate())
	return &loginFixture{fake: fake, server: server, login: login}
}

func TestLoginPage_NavigateShowsForm(t *testing.T) {
	f := setupLogin(t)
	require.True(t, f.login.IsVisible(constants.LoginPageSelectors.Username))
	require.True(t, f.login.IsVisible(constants.LoginPageSelectors.Password))
	require.True(t, strings.HasSuffix(f.login.CurrentURL(), constants.LoginPath))
	require.Empty(t, f.login.GetErrorMessage())
	require.False(t, f.login.IsLoginSuccessful())
}

func TestLoginPage_ValidLogin(t *testing.T) {
	f := setupLogin(t)
	require.NoError(t, f.login.Login(hrmfake.DefaultUsername, hrmfake.DefaultPassword))
	require.True(t, f.login.IsLoginSuccessful())
	require.Contains(t, f.login.CurrentURL(), constants.DashboardURLMarker)
	require.Equal(t, 1, f.fake.SuccessfulLogins())

	header, err := f.login.Text(constants.LoginPageSelectors.Dashboard)
	require.NoError(t, err)
	require.Equal(t, constants.DashboardTitle, header)
}

func TestLoginPage_InvalidLoginShowsError(t *testing.T) {
	f := setupLogin(t)
	require.NoError(t, f.login.Login("Admin", "wrong-password"))
	require.Equal(t, constants.InvalidCredentialsMessage, f.login.GetErrorMessage())
	require.False(t, f.login.IsLoginSuccessful())
	// The alert stays after re-reading it.
	require.Equal(t, constants.InvalidCredentialsMessage, f.login.GetErrorMessage())
}

func TestLoginPage_EmptySubmitShowsRequired(t *testing.T) {
	f := setupLogin(t)
	require.NoError(t, f.login.ClickLoginButton())
	require.Equal(t, constants.RequiredMessage, f.login.GetErrorMessage())
	require.False(t, f.login.IsLoginSuccessful())
}

func TestLoginPage_Logout(t *testing.T) {
	f := setupLogin(t)
	require.NoError(t, f.login.Login(hrmfake.DefaultUsername, hrmfake.DefaultPassword))
	require.True(t, f.login.IsLoginSuccessful())

	require.NoError(t, f.login.Logout())
	require.False(t, f.login.IsLoginSuccessful())
	require.Equal(t, 0, f.fake.ActiveSessions())
}

func TestLoginPage_NavigateWhileLoggedInLogsOut(t *testing.T) {
	f := setupLogin(t)
	require.NoError(t, f.login.Login(hrmfake.DefaultUsername, hrmfake.DefaultPassword))
	require.True(t, f.login.IsLoginSuccessful())

	require.NoError(t, f.login.Navigate())
	require.True(t, f.login.IsVisible(constants.LoginPageSelectors.Username))
	require.Equal(t, 0, f.fake.ActiveSessions())
}

func TestBasePage_MissingElementIsNotFound(t *testing.T) {
	f := setupLogin(t)
	base := NewBasePage(context.Background(), f.login.Page(), f.server.URL, 300*time.Millisecond)

	require.Nil(t, base.FindElement("#does-not-exist"))
	err := base.Click("#does-not-exist")
	require.Error(t, err)
	require.True(t, errs.Is(err, errs.Timeout) || errs.Is(err, errs.NotFound), "unexpected code for %v", err)

	var coded *errs.Error
	require.True(t, errors.As(err, &coded))
}

func TestBasePage_TakeScreenshot(t *testing.T) {
	f := setupLogin(t)
	png, err := f.login.TakeScreenshot()
	require.NoError(t, err)
	require.True(t, len(png) > 8 && string(png[1:4]) == "PNG", "not a PNG")
}
