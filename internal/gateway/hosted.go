package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// FlowState tracks a hosted popup/redirect attempt. The flow never decides
// the payment outcome; that arrives out-of-band on a provider callback.
type FlowState string

const (
	FlowIdle                   FlowState = "Idle"
	FlowScriptLoading          FlowState = "ScriptLoading"
	FlowScriptReady            FlowState = "ScriptReady"
	FlowPopupOpen              FlowState = "PopupOpen"
	FlowPopupClosedUnconfirmed FlowState = "PopupClosedUnconfirmed"
	FlowRedirectReceived       FlowState = "RedirectReceived"
	FlowFailed                 FlowState = "Failed"
)

// ScriptLoader fetches the provider's embed resource.
type ScriptLoader interface {
	Load(ctx context.Context, src string) error
}

// WindowOpener opens the provider page in a new window. A nil Window with
// a nil error means the environment refused window creation (blocked).
type WindowOpener interface {
	Open(ctx context.Context, url string) (Window, error)
}

type Window interface {
	Closed() bool
}

// HostedFlow is the state machine for hosted-page gateways used by embedded
// callers. The HTTP service never runs one; it hands off with a redirect
// instead (see the paypal/sslcommerz adapters).
type HostedFlow struct {
	mu sync.Mutex

	transactionID string
	scriptSrc     string
	gatewayURL    string
	loader        ScriptLoader
	opener        WindowOpener

	state  FlowState
	window Window
}

func NewHostedFlow(transactionID, scriptSrc, gatewayURL string, loader ScriptLoader, opener WindowOpener) *HostedFlow {
	return &HostedFlow{
		transactionID: transactionID,
		scriptSrc:     scriptSrc,
		gatewayURL:    gatewayURL,
		loader:        loader,
		opener:        opener,
		state:         FlowIdle,
	}
}

func (f *HostedFlow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Launch loads the provider script and opens the gateway window. A failed
// script load is fatal for the attempt. A refused window is surfaced as
// PopupBlockedError carrying the gateway URL untouched.
func (f *HostedFlow) Launch(ctx context.Context) error {
	f.mu.Lock()
	if f.state != FlowIdle {
		f.mu.Unlock()
		return fmt.Errorf("hosted flow already launched (state %s)", f.state)
	}
	f.state = FlowScriptLoading
	f.mu.Unlock()

	if f.scriptSrc != "" {
		if err := f.loader.Load(ctx, f.scriptSrc); err != nil {
			f.setState(FlowFailed)
			return &ScriptLoadError{Src: f.scriptSrc, Err: err}
		}
	}
	f.setState(FlowScriptReady)

	w, err := f.opener.Open(ctx, f.gatewayURL)
	if err != nil || w == nil {
		f.setState(FlowFailed)
		return &PopupBlockedError{TransactionID: f.transactionID, URL: f.gatewayURL}
	}

	f.mu.Lock()
	f.window = w
	f.state = FlowPopupOpen
	f.mu.Unlock()
	return nil
}

// WatchClosed polls the window for closure. This is a UX signal only; a
// closed popup proves nothing about the transaction, so the resulting state
// is PopupClosedUnconfirmed, never a payment outcome.
func (f *HostedFlow) WatchClosed(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.mu.Lock()
			if f.state != FlowPopupOpen {
				f.mu.Unlock()
				return
			}
			if f.window.Closed() {
				f.state = FlowPopupClosedUnconfirmed
				f.mu.Unlock()
				return
			}
			f.mu.Unlock()
		}
	}
}

// RedirectReceived records that the provider called back. Valid from
// PopupOpen and from PopupClosedUnconfirmed: a user can complete payment
// and close the window before the redirect lands.
func (f *HostedFlow) RedirectReceived() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == FlowPopupOpen || f.state == FlowPopupClosedUnconfirmed {
		f.state = FlowRedirectReceived
	}
}

func (f *HostedFlow) setState(s FlowState) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// HTTPScriptLoader checks the embed resource is actually reachable.
type HTTPScriptLoader struct {
	Client *http.Client
}

func (l *HTTPScriptLoader) Load(ctx context.Context, src string) error {
	client := l.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("script fetch: http=%d", resp.StatusCode)
	}
	return nil
}
