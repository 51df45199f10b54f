package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

const defaultRenderTimeout = 30 * time.Second

type BrowserConfig struct {
	// RemoteURL points at a running Chrome DevTools endpoint. Empty launches a
	// local headless Chrome.
	RemoteURL string
	UserAgent string
	Timeout   time.Duration
	// WaitSelector, when set, is awaited before the DOM is read.
	WaitSelector string
}

// BrowserFetcher renders pages in headless Chrome and returns the final DOM.
type BrowserFetcher struct {
	config      BrowserConfig
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

func NewBrowserFetcher(cfg BrowserConfig) *BrowserFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRenderTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	f := &BrowserFetcher{config: cfg}
	if cfg.RemoteURL != "" {
		f.allocCtx, f.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-extensions", true),
			chromedp.UserAgent(cfg.UserAgent),
		)
		f.allocCtx, f.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	}
	return f
}

func (f *BrowserFetcher) Fetch(ctx context.Context, pageURL string) (*goquery.Document, error) {
	browserCtx, cancel := chromedp.NewContext(f.allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			logrus.Debugf(format, args...)
		}),
	)
	defer cancel()

	browserCtx, cancelTimeout := context.WithTimeout(browserCtx, f.config.Timeout)
	defer cancelTimeout()

	// Propagate caller cancellation into the browser context.
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	actions := []chromedp.Action{chromedp.Navigate(pageURL)}
	if f.config.WaitSelector != "" {
		actions = append(actions, chromedp.WaitReady(f.config.WaitSelector, chromedp.ByQuery))
	} else {
		actions = append(actions, chromedp.WaitReady("body", chromedp.ByQuery))
	}

	var html string
	actions = append(actions, chromedp.OuterHTML("html", &html, chromedp.ByQuery))

	if err := chromedp.Run(browserCtx, actions...); err != nil {
		if errors.Is(browserCtx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("render timed out after %v: %w", f.config.Timeout, err)
		}
		return nil, &FetchError{URL: pageURL, Err: err}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &FetchError{URL: pageURL, Err: fmt.Errorf("parse rendered html: %w", err)}
	}
	return doc, nil
}

// Close shuts the browser allocator down.
func (f *BrowserFetcher) Close() {
	if f.allocCancel != nil {
		f.allocCancel()
	}
}
