package netx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPProber_Online(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := NewHTTPProber(srv.URL, time.Second)
	assert.True(t, p.Online(context.Background()))
}

func TestHTTPProber_Offline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refused from now on

	p := NewHTTPProber(srv.URL, time.Second)
	assert.False(t, p.Online(context.Background()))
}

type fakeProber struct {
	online atomic.Bool
}

func (f *fakeProber) Online(ctx context.Context) bool {
	return f.online.Load()
}

func TestMonitor_EmitsTransitionsOnly(t *testing.T) {
	prober := &fakeProber{}
	m := NewMonitor(prober, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := m.Watch(ctx)

	// initial state
	assert.False(t, recv(t, ch))

	prober.online.Store(true)
	assert.True(t, recv(t, ch))

	prober.online.Store(false)
	assert.False(t, recv(t, ch))

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond, "channel must close on cancellation")
}

func recv(t *testing.T, ch <-chan bool) bool {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for connectivity event")
		return false
	}
}
