package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/davenull4x/applyforge/internal/config"
	"github.com/davenull4x/applyforge/internal/fields"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// Chrome drives a real Chrome instance over the DevTools protocol and
// implements Driver. One Chrome owns one browser process and one tab; the
// session model is strictly serial.
type Chrome struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	allocCtx    context.Context
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
}

var _ Driver = (*Chrome)(nil)

// NewChrome launches the browser process and verifies it responds.
func NewChrome(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Chrome, error) {
	c := &Chrome{
		logger: logger.Named("browser"),
		cfg:    cfg,
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, c.allocatorOptions()...)
	c.allocCtx = allocCtx
	c.allocCancel = allocCancel

	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	c.tabCtx = tabCtx
	c.tabCancel = tabCancel

	startCtx, cancel := context.WithTimeout(tabCtx, 30*time.Second)
	defer cancel()
	if err := chromedp.Run(startCtx, chromedp.Navigate("about:blank")); err != nil {
		c.Close()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	c.logger.Info("Browser launched", zap.Bool("headless", cfg.Headless))
	return c, nil
}

// allocatorOptions assembles flags for a configurable, low-observability
// browser instance. We define these explicitly rather than starting from
// chromedp.DefaultExecAllocatorOptions, which carries the enable-automation
// flag; the Blink automation marker is disabled so navigator.webdriver stays
// quiet.
func (c *Chrome) allocatorOptions() []chromedp.ExecAllocatorOption {
	ua := c.cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserAgent(ua),
	}
	if c.cfg.Headless {
		opts = append(opts, chromedp.Headless)
	}
	if c.cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}

	// Config args may be bare flags or key=value pairs.
	for _, arg := range c.cfg.Args {
		name := strings.TrimPrefix(arg, "--")
		if key, value, found := strings.Cut(name, "="); found {
			opts = append(opts, chromedp.Flag(key, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}
	return opts
}

// Close tears down the tab and the browser process.
func (c *Chrome) Close() {
	if c.tabCancel != nil {
		c.tabCancel()
	}
	if c.allocCancel != nil {
		c.allocCancel()
	}
}

// run executes actions against the tab under the per-action timeout.
func (c *Chrome) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(c.tabCtx, timeout)
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(runCtx, actions...) }()
	select {
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	c.logger.Debug("Navigating", zap.String("url", url))
	return c.run(ctx, c.cfg.NavigationTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (c *Chrome) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := c.run(ctx, c.cfg.ActionTimeout, chromedp.Location(&url))
	return url, err
}

func (c *Chrome) PageSource(ctx context.Context) (string, error) {
	var html string
	err := c.run(ctx, c.cfg.ActionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		node, err := dom.GetDocument().Do(ctx)
		if err != nil {
			return err
		}
		html, err = dom.GetOuterHTML().WithNodeID(node.NodeID).Do(ctx)
		return err
	}))
	return html, err
}

// enumerateScript collects metadata for every form control matching a
// selector. Elements without a usable name or id get a synthetic marker
// attribute so they stay addressable.
const enumerateScript = `(() => {
	const out = [];
	document.querySelectorAll(%q).forEach((el, i) => {
		let label = '';
		if (el.id) {
			const l = document.querySelector('label[for="' + CSS.escape(el.id) + '"]');
			if (l) label = l.innerText;
		}
		if (!label && el.closest('label')) label = el.closest('label').innerText;
		if (!label) label = el.getAttribute('aria-label') || '';
		let selector;
		if (el.id) {
			selector = '#' + CSS.escape(el.id);
		} else if (el.name) {
			selector = el.tagName.toLowerCase() + '[name="' + el.name + '"]';
		} else {
			el.setAttribute('data-af-idx', String(i));
			selector = '[data-af-idx="' + i + '"]';
		}
		out.push({
			selector: selector,
			name: el.name || '',
			id: el.id || '',
			placeholder: el.placeholder || '',
			label: label.trim(),
			input_type: el.type || 'text',
		});
	});
	return out;
})()`

type enumeratedField struct {
	Selector    string `json:"selector"`
	Name        string `json:"name"`
	ID          string `json:"id"`
	Placeholder string `json:"placeholder"`
	Label       string `json:"label"`
	InputType   string `json:"input_type"`
}

func (c *Chrome) Fields(ctx context.Context, selector string) ([]Field, error) {
	var raw []enumeratedField
	script := fmt.Sprintf(enumerateScript, selector)
	if err := c.run(ctx, c.cfg.ActionTimeout, chromedp.Evaluate(script, &raw)); err != nil {
		return nil, fmt.Errorf("enumerate fields %q: %w", selector, err)
	}

	out := make([]Field, 0, len(raw))
	for _, f := range raw {
		out = append(out, Field{
			Selector: f.Selector,
			Meta: fields.Meta{
				Name:        f.Name,
				ID:          f.ID,
				Placeholder: f.Placeholder,
				Label:       f.Label,
				InputType:   f.InputType,
			},
		})
	}
	return out, nil
}

func (c *Chrome) Exists(ctx context.Context, selector string) (bool, error) {
	var found bool
	script := fmt.Sprintf(`document.querySelector(%q) !== null`, selector)
	err := c.run(ctx, c.cfg.ActionTimeout, chromedp.Evaluate(script, &found))
	return found, err
}

func (c *Chrome) Click(ctx context.Context, selector string) error {
	return c.run(ctx, c.cfg.ActionTimeout, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
}

func (c *Chrome) Clear(ctx context.Context, selector string) error {
	return c.run(ctx, c.cfg.ActionTimeout, chromedp.Clear(selector, chromedp.ByQuery))
}

func (c *Chrome) SendKeys(ctx context.Context, selector, text string) error {
	return c.run(ctx, c.cfg.ActionTimeout, chromedp.SendKeys(selector, text, chromedp.ByQuery))
}

func (c *Chrome) SetFiles(ctx context.Context, selector string, paths []string) error {
	return c.run(ctx, c.cfg.ActionTimeout, chromedp.SetUploadFiles(selector, paths, chromedp.ByQuery))
}

func (c *Chrome) Evaluate(ctx context.Context, script string, out any) error {
	if out == nil {
		return c.run(ctx, c.cfg.ActionTimeout, chromedp.Evaluate(script, nil))
	}
	return c.run(ctx, c.cfg.ActionTimeout, chromedp.Evaluate(script, out))
}
