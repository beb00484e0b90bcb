// Package pages implements OrangeHRM page objects on top of Playwright.
//
// Page objects wrap locators and interactions so tests read as user
// actions. Waiting is left to Playwright's auto-waiting and locator
// WaitFor; lookups of elements that may be absent use a short probe
// timeout instead of the full implicit wait.
package pages

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/kuitang/hrm-ui-suite/internal/constants"
	"github.com/kuitang/hrm-ui-suite/internal/errs"
	"github.com/kuitang/hrm-ui-suite/internal/logutil"
	"github.com/kuitang/hrm-ui-suite/internal/obs"
	"github.com/kuitang/hrm-ui-suite/internal/urlutil"
)

// BasePage holds the state and helpers shared by every page object.
type BasePage struct {
	ctx     context.Context
	page    playwright.Page
	baseURL string
	timeout time.Duration
	probe   time.Duration
}

// NewBasePage wraps page. timeout bounds required elements; optional
// elements are probed for constants.ProbeTimeout.
func NewBasePage(ctx context.Context, page playwright.Page, baseURL string, timeout time.Duration) *BasePage {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		timeout = constants.ImplicitWait
	}
	return &BasePage{
		ctx:     ctx,
		page:    page,
		baseURL: baseURL,
		timeout: timeout,
		probe:   min(constants.ProbeTimeout, timeout),
	}
}

// Page returns the underlying Playwright page.
func (p *BasePage) Page() playwright.Page {
	return p.page
}

func (p *BasePage) log() *slog.Logger {
	return obs.From(p.ctx).With("pkg", "pages")
}

// Open navigates to baseURL+path and waits for DOMContentLoaded.
func (p *BasePage) Open(path string) error {
	target := urlutil.BuildAbsolute(p.baseURL, path)
	p.log().Info("navigating", "url", target)
	_, err := p.page.Goto(target, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		return errs.Wrap(classify(err, errs.Navigation), fmt.Sprintf("navigate to %s", target), err)
	}
	return nil
}

// CurrentURL returns the page URL.
func (p *BasePage) CurrentURL() string {
	return p.page.URL()
}

// WaitVisible waits up to the page timeout for sel to be visible.
func (p *BasePage) WaitVisible(sel constants.Selector) (playwright.Locator, error) {
	loc := p.page.Locator(sel.String()).First()
	err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(constants.Milliseconds(p.timeout)),
	})
	if err != nil {
		return nil, errs.Wrap(classify(err, errs.NotFound), fmt.Sprintf("wait for %s", sel), err)
	}
	return loc, nil
}

// FindElement returns the first visible match for sel, or nil when nothing
// becomes visible within the probe timeout. Absence is not an error.
func (p *BasePage) FindElement(sel constants.Selector) playwright.Locator {
	loc := p.page.Locator(sel.String()).First()
	err := loc.WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(constants.Milliseconds(p.probe)),
	})
	if err != nil {
		return nil
	}
	return loc
}

// IsVisible reports whether sel is currently visible, without waiting.
func (p *BasePage) IsVisible(sel constants.Selector) bool {
	visible, err := p.page.Locator(sel.String()).First().IsVisible()
	return err == nil && visible
}

// Click waits for sel and clicks it.
func (p *BasePage) Click(sel constants.Selector) error {
	loc, err := p.WaitVisible(sel)
	if err != nil {
		return err
	}
	if err := loc.Click(); err != nil {
		return errs.Wrap(classify(err, errs.Internal), fmt.Sprintf("click %s", sel), err)
	}
	return nil
}

// InputText waits for sel, clears it and types text.
func (p *BasePage) InputText(sel constants.Selector, text string) error {
	loc, err := p.WaitVisible(sel)
	if err != nil {
		return err
	}
	if err := loc.Fill(text); err != nil {
		return errs.Wrap(classify(err, errs.Internal), fmt.Sprintf("fill %s", sel), err)
	}
	p.log().Debug("filled input", "selector", sel.String(), "value", logutil.TruncateForLog(logutil.RedactSelectorValue(sel.String(), text), 64))
	return nil
}

// Text returns the visible text of the first match for sel.
func (p *BasePage) Text(sel constants.Selector) (string, error) {
	loc, err := p.WaitVisible(sel)
	if err != nil {
		return "", err
	}
	text, err := loc.InnerText()
	if err != nil {
		return "", errs.Wrap(classify(err, errs.Internal), fmt.Sprintf("read text of %s", sel), err)
	}
	return text, nil
}

// WaitForAny waits until any of sels is visible. It returns false, without an
// error, when none appears within the page timeout.
func (p *BasePage) WaitForAny(sels ...constants.Selector) bool {
	if len(sels) == 0 {
		return false
	}
	combined := sels[0].String()
	for _, s := range sels[1:] {
		combined += ", " + s.String()
	}
	err := p.page.Locator(combined).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(constants.Milliseconds(p.timeout)),
	})
	return err == nil
}

// TakeScreenshot captures the viewport as PNG.
func (p *BasePage) TakeScreenshot() ([]byte, error) {
	png, err := p.page.Screenshot(playwright.PageScreenshotOptions{
		Timeout: playwright.Float(constants.Milliseconds(constants.ScreenshotTimeout)),
	})
	if err != nil {
		return nil, errs.Wrap(errs.Internal, "take screenshot", err)
	}
	return png, nil
}

// classify maps Playwright timeouts to errs.Timeout and everything else to
// fallback.
func classify(err error, fallback errs.Code) errs.Code {
	if errors.Is(err, playwright.ErrTimeout) {
		return errs.Timeout
	}
	return fallback
}
