package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"flowbox/internal/config"
)

// jsBaker renders pages in headless Chrome and reads back the DOM after
// scripts ran, so that the box tree reflects what a browser would show.
type jsBaker struct {
	allocator context.Context
	cancel    context.CancelFunc
	logger    *zap.Logger
	timeout   time.Duration
	idle      time.Duration
}

func newJSBaker(cfg config.JSConfig, logger *zap.Logger) *jsBaker {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-extensions", true),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &jsBaker{
		allocator: allocCtx,
		cancel:    cancel,
		logger:    logger.Named("js"),
		timeout:   cfg.Timeout,
		idle:      cfg.WaitNetworkIdle,
	}
}

func (b *jsBaker) Close() {
	if b.cancel != nil {
		b.cancel()
	}
}

// networkTracker counts requests in flight to detect a quiet network.
type networkTracker struct {
	mu           sync.Mutex
	active       int
	lastActivity time.Time
	mainID       network.RequestID
	mainHeader   http.Header
	mainMIME     string
}

func (t *networkTracker) listen(ev any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		t.active++
		t.lastActivity = time.Now()
		if e.Type == network.ResourceTypeDocument && t.mainID == "" {
			t.mainID = e.RequestID
		}
	case *network.EventLoadingFinished, *network.EventLoadingFailed:
		if t.active > 0 {
			t.active--
		}
		t.lastActivity = time.Now()
	case *network.EventResponseReceived:
		if e.RequestID != t.mainID || e.Response == nil {
			return
		}
		t.mainHeader = http.Header{}
		for k, v := range e.Response.Headers {
			t.mainHeader.Add(k, fmt.Sprint(v))
		}
		t.mainMIME = e.Response.MimeType
	}
}

func (t *networkTracker) waitIdle(quiet time.Duration) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			t.mu.Lock()
			done := t.active == 0 && time.Since(t.lastActivity) >= quiet
			t.mu.Unlock()
			if done {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}
}

func (b *jsBaker) Fetch(ctx context.Context, target string, hdr http.Header) (*Document, error) {
	if strings.TrimSpace(target) == "" {
		return nil, errors.New("js fetch: empty target url")
	}
	taskCtx, cancelBrowser := chromedp.NewContext(b.allocator)
	defer cancelBrowser()
	stop := context.AfterFunc(ctx, cancelBrowser)
	defer stop()
	if b.timeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(taskCtx, b.timeout)
		defer cancel()
	}

	tracker := &networkTracker{lastActivity: time.Now()}
	chromedp.ListenTarget(taskCtx, tracker.listen)

	requestHeaders := cloneHeader(hdr)
	actions := []chromedp.Action{network.Enable()}
	if ua := requestHeaders.Get("User-Agent"); ua != "" {
		actions = append(actions, emulation.SetUserAgentOverride(ua))
		requestHeaders.Del("User-Agent")
	}
	if len(requestHeaders) > 0 {
		extra := network.Headers{}
		for k, vs := range requestHeaders {
			if len(vs) == 0 || strings.EqualFold(k, "Content-Length") {
				continue
			}
			extra[http.CanonicalHeaderKey(k)] = strings.Join(vs, ", ")
		}
		if len(extra) > 0 {
			actions = append(actions, network.SetExtraHTTPHeaders(extra))
		}
	}

	var finalURL, outer string
	actions = append(actions,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if b.idle > 0 {
		actions = append(actions, tracker.waitIdle(b.idle))
	}
	actions = append(actions,
		chromedp.Location(&finalURL),
		chromedp.OuterHTML("html", &outer, chromedp.ByQuery),
	)

	start := time.Now()
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		return nil, fmt.Errorf("js fetch %s: %w", target, err)
	}
	b.logger.Debug("rendered", zap.String("url", target), zap.Duration("elapsed", time.Since(start)), zap.Int("bytes", len(outer)))

	if finalURL == "" {
		finalURL = target
	}
	tracker.mu.Lock()
	header := cloneHeader(tracker.mainHeader)
	mime := tracker.mainMIME
	tracker.mu.Unlock()
	// the serialized DOM is always UTF-8 whatever the page was served in
	ct := "text/html; charset=utf-8"
	if mime != "" && mime != "text/html" {
		ct = mime + "; charset=utf-8"
	}
	header.Set("Content-Type", ct)
	return &Document{URL: finalURL, Body: []byte(outer), Header: header}, nil
}
