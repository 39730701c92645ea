package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/rotisserie/eris"
)

// chromeSession implements Session on a dedicated chromedp browser context.
type chromeSession struct {
	ctx     context.Context
	cancels []context.CancelFunc
}

// Options configures a Chrome session.
type Options struct {
	// Headless runs Chrome without a window. Default true.
	Headless bool
	// UserAgent overrides the browser user agent when non-empty.
	UserAgent string
	// NavigationTimeout bounds each Navigate call. Default 30s.
	NavigationTimeout time.Duration
}

// DefaultOptions returns the options used in production.
func DefaultOptions() Options {
	return Options{
		Headless:          true,
		NavigationTimeout: 30 * time.Second,
	}
}

// NewSession launches a Chrome instance and returns a Session bound to one tab.
func NewSession(parent context.Context, opts Options) (Session, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{},
		chromedp.DefaultExecAllocatorOptions[:]...)
	if !opts.Headless {
		allocOpts = append(allocOpts, chromedp.Flag("headless", false))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, allocOpts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	// Start the browser eagerly so a missing Chrome binary fails here, not
	// on the first navigation.
	if err := chromedp.Run(tabCtx); err != nil {
		cancelTab()
		cancelAlloc()
		return nil, eris.Wrap(err, "browser: launch chrome")
	}

	return &chromeSession{
		ctx:     tabCtx,
		cancels: []context.CancelFunc{cancelTab, cancelAlloc},
	}, nil
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	runCtx, cancel := context.WithTimeout(s.ctx, navigationTimeout(ctx))
	defer cancel()

	if err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return eris.Wrapf(err, "browser: navigate %s", url)
	}
	return nil
}

func navigationTimeout(ctx context.Context) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d > 0 {
			return d
		}
	}
	return 30 * time.Second
}

func (s *chromeSession) ScrollToBottom(ctx context.Context) error {
	err := chromedp.Run(s.ctx,
		chromedp.Evaluate(`window.scrollBy(0, window.innerHeight);`, nil),
		chromedp.Sleep(500*time.Millisecond),
	)
	if err != nil {
		return eris.Wrap(err, "browser: scroll")
	}
	return nil
}

func (s *chromeSession) Count(ctx context.Context, containerSelector string) (int, error) {
	var count int
	script := fmt.Sprintf(`document.querySelectorAll(%q).length`, containerSelector)
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(script, &count)); err != nil {
		return 0, eris.Wrapf(err, "browser: count %s", containerSelector)
	}
	return count, nil
}

// extractScript maps each container node to a JSON review record. Field
// selectors that match nothing yield empty strings rather than failing.
const extractScript = `
(() => {
  const sel = %s;
  const pick = (root, s) => {
    if (!s) return "";
    const el = root.querySelector(s);
    if (!el) return "";
    return (el.getAttribute("aria-label") || el.textContent || "").trim();
  };
  return JSON.stringify(Array.from(document.querySelectorAll(sel.container)).map(node => ({
    text: pick(node, sel.text) || (node.textContent || "").trim(),
    author: pick(node, sel.author),
    rating: pick(node, sel.rating),
    date: pick(node, sel.date)
  })));
})()
`

func (s *chromeSession) Extract(ctx context.Context, sel Selector) ([]ReviewNode, error) {
	selJSON, err := json.Marshal(sel)
	if err != nil {
		return nil, eris.Wrap(err, "browser: marshal selector")
	}

	var raw string
	script := fmt.Sprintf(extractScript, string(selJSON))
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(script, &raw)); err != nil {
		return nil, eris.Wrapf(err, "browser: extract %s", sel.Container)
	}

	var nodes []ReviewNode
	if err := json.Unmarshal([]byte(raw), &nodes); err != nil {
		return nil, eris.Wrap(err, "browser: decode extracted nodes")
	}
	return nodes, nil
}

func (s *chromeSession) Close() error {
	for _, cancel := range s.cancels {
		cancel()
	}
	return nil
}
