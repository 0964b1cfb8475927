package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	err   error
	calls int
	src   string
}

func (l *fakeLoader) Load(ctx context.Context, src string) error {
	l.calls++
	l.src = src
	return l.err
}

type fakeWindow struct{ closed bool }

func (w *fakeWindow) Closed() bool { return w.closed }

type fakeOpener struct {
	window Window
	err    error
	url    string
}

func (o *fakeOpener) Open(ctx context.Context, url string) (Window, error) {
	o.url = url
	return o.window, o.err
}

func TestHostedFlow_Launch(t *testing.T) {
	t.Run("HappyPath", func(t *testing.T) {
		loader := &fakeLoader{}
		opener := &fakeOpener{window: &fakeWindow{}}
		flow := NewHostedFlow("BOI-1", "https://cdn.example.com/embed.js", "https://gw.example.com/pay", loader, opener)

		require.NoError(t, flow.Launch(context.Background()))
		assert.Equal(t, FlowPopupOpen, flow.State())
		assert.Equal(t, 1, loader.calls)
		assert.Equal(t, "https://gw.example.com/pay", opener.url)
	})

	t.Run("ScriptLoadFailureIsFatal", func(t *testing.T) {
		loader := &fakeLoader{err: errors.New("404")}
		opener := &fakeOpener{window: &fakeWindow{}}
		flow := NewHostedFlow("BOI-2", "https://cdn.example.com/embed.js", "https://gw.example.com/pay", loader, opener)

		err := flow.Launch(context.Background())

		var scriptErr *ScriptLoadError
		require.True(t, errors.As(err, &scriptErr))
		assert.Equal(t, "https://cdn.example.com/embed.js", scriptErr.Src)
		assert.Equal(t, FlowFailed, flow.State())
		// The window must never open after a failed script load.
		assert.Empty(t, opener.url)
	})

	t.Run("NoScriptConfigured", func(t *testing.T) {
		loader := &fakeLoader{}
		opener := &fakeOpener{window: &fakeWindow{}}
		flow := NewHostedFlow("BOI-3", "", "https://gw.example.com/pay", loader, opener)

		require.NoError(t, flow.Launch(context.Background()))
		assert.Equal(t, 0, loader.calls)
		assert.Equal(t, FlowPopupOpen, flow.State())
	})

	t.Run("RefusedWindowIsPopupBlocked", func(t *testing.T) {
		const gatewayURL = "https://gw.example.com/pay?txn=BOI-4&sig=x%2Fy"
		opener := &fakeOpener{window: nil}
		flow := NewHostedFlow("BOI-4", "", gatewayURL, &fakeLoader{}, opener)

		err := flow.Launch(context.Background())

		var blocked *PopupBlockedError
		require.True(t, errors.As(err, &blocked))
		assert.Equal(t, "BOI-4", blocked.TransactionID)
		assert.Equal(t, gatewayURL, blocked.URL, "the URL must be carried untouched")
	})

	t.Run("DoubleLaunchRejected", func(t *testing.T) {
		flow := NewHostedFlow("BOI-5", "", "https://gw.example.com/pay", &fakeLoader{}, &fakeOpener{window: &fakeWindow{}})
		require.NoError(t, flow.Launch(context.Background()))
		assert.Error(t, flow.Launch(context.Background()))
	})
}

func TestHostedFlow_WatchClosed(t *testing.T) {
	window := &fakeWindow{}
	flow := NewHostedFlow("BOI-6", "", "https://gw.example.com/pay", &fakeLoader{}, &fakeOpener{window: window})
	require.NoError(t, flow.Launch(context.Background()))

	window.closed = true

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	flow.WatchClosed(ctx, time.Millisecond)

	// A closed popup is a UX signal, never a payment outcome.
	assert.Equal(t, FlowPopupClosedUnconfirmed, flow.State())
}

func TestHostedFlow_RedirectReceived(t *testing.T) {
	t.Run("FromPopupOpen", func(t *testing.T) {
		flow := NewHostedFlow("BOI-7", "", "https://gw.example.com/pay", &fakeLoader{}, &fakeOpener{window: &fakeWindow{}})
		require.NoError(t, flow.Launch(context.Background()))

		flow.RedirectReceived()
		assert.Equal(t, FlowRedirectReceived, flow.State())
	})

	t.Run("AfterPopupClosed", func(t *testing.T) {
		// The user can pay and close the window before the redirect lands.
		window := &fakeWindow{closed: true}
		flow := NewHostedFlow("BOI-8", "", "https://gw.example.com/pay", &fakeLoader{}, &fakeOpener{window: window})
		require.NoError(t, flow.Launch(context.Background()))

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		flow.WatchClosed(ctx, time.Millisecond)
		require.Equal(t, FlowPopupClosedUnconfirmed, flow.State())

		flow.RedirectReceived()
		assert.Equal(t, FlowRedirectReceived, flow.State())
	})

	t.Run("IgnoredWhenFailed", func(t *testing.T) {
		flow := NewHostedFlow("BOI-9", "", "https://gw.example.com/pay", &fakeLoader{}, &fakeOpener{window: nil})
		require.Error(t, flow.Launch(context.Background()))

		flow.RedirectReceived()
		assert.Equal(t, FlowFailed, flow.State())
	})
}
