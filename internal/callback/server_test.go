package callback

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type readiness struct {
	ready atomic.Bool
}

func (r *readiness) IsReady() bool {
	return r.ready.Load()
}

func startServer(t *testing.T, state string, ready ReadinessChecker) *Server {
	t.Helper()

	s := New(state, ready, slog.New(slog.NewTextHandler(io.Discard, nil)))
	errCh, err := s.Start(t.Context(), "127.0.0.1:0")
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, s.Shutdown(ctx))
		require.NoError(t, <-errCh)
	})

	return s
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestCallback(t *testing.T) {
	t.Parallel()

	t.Run("delivers code", func(t *testing.T) {
		s := startServer(t, "state-1", nil)

		resp := get(t, s.RedirectURL()+"?code=abc&state=state-1")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotEmpty(t, resp.Header.Get("X-Request-ID"))

		select {
		case res := <-s.Results():
			require.NoError(t, res.Err)
			require.Equal(t, "abc", res.Code)
		case <-time.After(5 * time.Second):
			t.Fatal("no result delivered")
		}
	})

	t.Run("state mismatch leaves room for the real redirect", func(t *testing.T) {
		s := startServer(t, "state-1", nil)

		resp := get(t, s.RedirectURL()+"?code=abc&state=forged")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		resp = get(t, s.RedirectURL()+"?error=access_denied")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		select {
		case res := <-s.Results():
			t.Fatalf("unexpected result delivered: %+v", res)
		default:
		}

		resp = get(t, s.RedirectURL()+"?code=real&state=state-1")
		require.Equal(t, http.StatusOK, resp.StatusCode)

		res := <-s.Results()
		require.NoError(t, res.Err)
		require.Equal(t, "real", res.Code)
	})

	t.Run("provider error is escaped", func(t *testing.T) {
		s := startServer(t, "s", nil)

		resp := get(t, s.RedirectURL()+"?error=access_denied&error_description=%3Cscript%3E&state=s")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NotContains(t, string(body), "<script>")
		require.Contains(t, string(body), "access_denied")

		res := <-s.Results()
		require.ErrorContains(t, res.Err, "access_denied")
	})

	t.Run("only first redirect counts", func(t *testing.T) {
		s := startServer(t, "s", nil)

		require.Equal(t, http.StatusOK, get(t, s.RedirectURL()+"?code=first&state=s").StatusCode)
		require.Equal(t, http.StatusConflict, get(t, s.RedirectURL()+"?code=second&state=s").StatusCode)

		res := <-s.Results()
		require.Equal(t, "first", res.Code)
	})

	t.Run("post not allowed", func(t *testing.T) {
		s := startServer(t, "s", nil)

		req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, s.RedirectURL(), nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestProbes(t *testing.T) {
	t.Parallel()

	ready := &readiness{}
	s := startServer(t, "s", ready)
	base := "http://" + s.Addr()

	require.Equal(t, http.StatusOK, get(t, base+"/livez").StatusCode)
	require.Equal(t, http.StatusServiceUnavailable, get(t, base+"/readyz").StatusCode)

	ready.ready.Store(true)
	require.Equal(t, http.StatusOK, get(t, base+"/readyz").StatusCode)
}

func TestStartFailsOnBusyAddress(t *testing.T) {
	t.Parallel()

	s := startServer(t, "s", nil)

	other := New("s", nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err := other.Start(t.Context(), s.Addr())
	require.Error(t, err)
}
