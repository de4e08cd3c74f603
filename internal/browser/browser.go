package browser

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Session is the slice of browser automation the scrape engine consumes.
// Production sessions are Playwright browser contexts; tests provide fakes.
type Session interface {
	NewPage() (Page, error)
}

// Page is one open tab. Navigation waits for domcontentloaded.
type Page interface {
	Goto(url string, timeout time.Duration) error
	Locator(selector string) Locator
	Evaluate(script string) (interface{}, error)
	Content() (string, error)
	Close() error
}

// Locator is a lazily-resolved CSS match set, following Playwright's model.
type Locator interface {
	Count() (int, error)
	First() Locator
	Nth(index int) Locator
	InnerText() (string, error)
	AllInnerTexts() ([]string, error)
	GetAttribute(name string) (string, error)
	IsDisabled() (bool, error)
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgents     []string
	ViewportWidth  int
	ViewportHeight int
	Locale         string
	TimezoneID     string
	ExtraHeaders   map[string]string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        60 * time.Second,
		UserAgents:     defaultUserAgents(),
		ViewportWidth:  1365,
		ViewportHeight: 768,
		Locale:         "en-US",
		TimezoneID:     "America/New_York",
		ExtraHeaders: map[string]string{
			"accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
			"accept-language":           "en-US,en;q=0.9",
			"sec-fetch-dest":            "document",
			"sec-fetch-mode":            "navigate",
			"sec-fetch-site":            "none",
			"sec-fetch-user":            "?1",
			"upgrade-insecure-requests": "1",
		},
	}
}

func defaultUserAgents() []string {
	return []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_3_1) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// stealthScript hides the most common headless fingerprints before any page
// script runs.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
window.chrome = { runtime: {} };
Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
`

// Browser owns a Playwright instance, a launched Chromium, and one shared
// context. Concurrent site tasks each open their own page; tabs are
// independent, so no locking is needed here.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	timeout time.Duration
	logger  *slog.Logger
}

func New(opts *Options) (*Browser, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
		},
	})
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	userAgent := opts.UserAgents[rand.Intn(len(opts.UserAgents))]
	context, err := b.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:  &userAgent,
		Locale:     &opts.Locale,
		TimezoneId: &opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  opts.ViewportWidth,
			Height: opts.ViewportHeight,
		},
		ExtraHttpHeaders: opts.ExtraHeaders,
	})
	if err != nil {
		b.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	if err := context.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
		context.Close()
		b.Close()
		pw.Stop()
		return nil, fmt.Errorf("failed to install init script: %w", err)
	}

	return &Browser{
		pw:      pw,
		browser: b,
		context: context,
		timeout: opts.Timeout,
		logger:  slog.Default().With("component", "browser"),
	}, nil
}

func (b *Browser) NewPage() (Page, error) {
	page, err := b.context.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}
	page.SetDefaultTimeout(float64(b.timeout.Milliseconds()))
	return &pwPage{page: page}, nil
}

func (b *Browser) Close() error {
	var errs []error

	if b.context != nil {
		if err := b.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close context: %w", err))
		}
	}
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}
	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	return nil
}

type pwPage struct {
	page playwright.Page
}

func (p *pwPage) Goto(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (p *pwPage) Locator(selector string) Locator {
	return &pwLocator{locator: p.page.Locator(selector)}
}

func (p *pwPage) Evaluate(script string) (interface{}, error) {
	return p.page.Evaluate(script)
}

func (p *pwPage) Content() (string, error) {
	return p.page.Content()
}

func (p *pwPage) Close() error {
	return p.page.Close()
}

type pwLocator struct {
	locator playwright.Locator
}

func (l *pwLocator) Count() (int, error) {
	return l.locator.Count()
}

func (l *pwLocator) First() Locator {
	return &pwLocator{locator: l.locator.First()}
}

func (l *pwLocator) Nth(index int) Locator {
	return &pwLocator{locator: l.locator.Nth(index)}
}

func (l *pwLocator) InnerText() (string, error) {
	return l.locator.InnerText()
}

func (l *pwLocator) AllInnerTexts() ([]string, error) {
	return l.locator.AllInnerTexts()
}

func (l *pwLocator) GetAttribute(name string) (string, error) {
	return l.locator.GetAttribute(name)
}

func (l *pwLocator) IsDisabled() (bool, error) {
	return l.locator.IsDisabled()
}
