// Package render fetches client-rendered pages with headless Chrome and returns their
// visible text once the network has gone quiet.
package render

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/theimaginaryfoundation/chat-distill/transcript"
)

const (
	DefaultIdleWindow = 500 * time.Millisecond
	DefaultTimeout    = 15 * time.Second
)

// Renderer implements transcript.Fetcher with a headless browser.
type Renderer struct {
	// Proxy is an optional proxy server, e.g. "http://127.0.0.1:8080".
	Proxy string

	// IdleWindow is how long the network must stay quiet.
	IdleWindow time.Duration

	// Timeout bounds navigation plus the quiescence wait. Hitting it is not an error.
	Timeout time.Duration

	// ExecPath overrides the Chrome binary lookup.
	ExecPath string

	Logger *zap.Logger
}

var _ transcript.Fetcher = (*Renderer)(nil)

const innerTextJS = `document.body ? document.body.innerText : ""`

// Fetch navigates to url, waits for network quiescence (bounded by Timeout) and returns
// document.body.innerText. A timeout yields whatever text is present; only a failed
// navigation is an error.
func (r *Renderer) Fetch(ctx context.Context, url string) (string, error) {
	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	idle := r.IdleWindow
	if idle <= 0 {
		idle = DefaultIdleWindow
	}
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts, chromedp.UserAgent(transcript.DefaultUserAgent))
	if r.Proxy != "" {
		opts = append(opts, chromedp.ProxyServer(r.Proxy))
	}
	if r.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	// Allocate the browser outside the navigation deadline; cancelling the context of the
	// first Run closes the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		return "", fmt.Errorf("Renderer.Fetch: start browser: %w: %w", transcript.ErrSourceUnreadable, err)
	}

	tracker := NewIdleTracker()
	chromedp.ListenTarget(browserCtx, func(ev any) {
		switch e := ev.(type) {
		case *network.EventRequestWillBeSent:
			tracker.Start(string(e.RequestID))
		case *network.EventLoadingFinished:
			tracker.Done(string(e.RequestID))
		case *network.EventLoadingFailed:
			tracker.Done(string(e.RequestID))
		}
	})

	deadline := time.Now().Add(timeout)
	navCtx, cancelNav := context.WithDeadline(browserCtx, deadline)
	err := chromedp.Run(navCtx, network.Enable(), chromedp.Navigate(url))
	cancelNav()
	degraded := false
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded):
		degraded = true
		log.Warn("navigation did not finish before timeout", zap.String("url", url), zap.Duration("timeout", timeout))
	default:
		return "", fmt.Errorf("Renderer.Fetch: navigate %s: %w: %w", url, transcript.ErrSourceUnreadable, err)
	}

	if !degraded {
		waitCtx, cancelWait := context.WithDeadline(ctx, deadline)
		if err := tracker.Wait(waitCtx, idle, 50*time.Millisecond); err != nil {
			log.Warn("network never went idle; using current text",
				zap.String("url", url),
				zap.Int("in_flight", tracker.InFlight()),
			)
		}
		cancelWait()
	}

	var text string
	evalCtx, cancelEval := context.WithTimeout(browserCtx, 5*time.Second)
	defer cancelEval()
	if err := chromedp.Run(evalCtx, chromedp.Evaluate(innerTextJS, &text)); err != nil {
		// Degraded result: empty text, not an abort.
		log.Warn("read page text failed", zap.String("url", url), zap.Error(err))
		return "", nil
	}
	return text, nil
}
