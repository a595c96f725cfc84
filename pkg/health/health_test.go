package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func passing() CheckFunc {
	return func(context.Context) error { return nil }
}

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

type probeBody struct {
	Status string
	Checks map[string]string
}

func probe(t *testing.T, handler http.HandlerFunc, path string) (int, probeBody) {
	t.Helper()
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body probeBody
	d := jx.DecodeBytes(w.Body.Bytes())
	require.NoError(t, d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "status":
			s, err := d.Str()
			body.Status = s
			return err
		case "checks":
			body.Checks = map[string]string{}
			return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
				s, err := d.Str()
				body.Checks[string(key)] = s
				return err
			})
		default:
			return d.Skip()
		}
	}))
	return w.Code, body
}

func runN(c *check, n int) {
	for range n {
		c.run(context.Background())
	}
}

func TestLiveEndpoint(t *testing.T) {
	h := New()
	h.Add(Liveness, "goroutines", passing())
	h.Add(Liveness, "db", failing("connection refused"))

	code, body := probe(t, h.LiveEndpoint, "/livez")
	assert.Equal(t, http.StatusOK, code, "checks start healthy")
	assert.Equal(t, "ok", body.Status)

	runN(h.checks[Liveness][1], 2)
	code, _ = probe(t, h.LiveEndpoint, "/livez")
	assert.Equal(t, http.StatusOK, code, "below failure threshold")

	runN(h.checks[Liveness][1], 1)
	code, body = probe(t, h.LiveEndpoint, "/livez")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, map[string]string{"db": "connection refused"}, body.Checks)
}

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		ready    bool
		checks   map[string]CheckFunc
		wantCode int
		wantKeys []string
	}{
		{
			name:     "not marked ready",
			checks:   map[string]CheckFunc{"catalog": passing()},
			wantCode: http.StatusServiceUnavailable,
			wantKeys: []string{"_readiness"},
		},
		{
			name:     "ready and passing",
			ready:    true,
			checks:   map[string]CheckFunc{"catalog": passing()},
			wantCode: http.StatusOK,
		},
		{
			name:     "ready without checks",
			ready:    true,
			wantCode: http.StatusOK,
		},
		{
			name:  "one failing check",
			ready: true,
			checks: map[string]CheckFunc{
				"catalog":  passing(),
				"sessions": failing("sessions at capacity"),
			},
			wantCode: http.StatusServiceUnavailable,
			wantKeys: []string{"sessions"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			for name, fn := range tt.checks {
				h.Add(Readiness, name, fn, WithThresholds(1, 1))
			}
			h.SetReady(tt.ready)
			for _, c := range h.checks[Readiness] {
				runN(c, 1)
			}

			code, body := probe(t, h.ReadyEndpoint, "/readyz")
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantCode == http.StatusOK, h.IsReady())
			for _, k := range tt.wantKeys {
				assert.Contains(t, body.Checks, k)
			}
			assert.Len(t, body.Checks, len(tt.wantKeys))
		})
	}
}

func TestCheck_Recovers(t *testing.T) {
	down := true
	h := New()
	h.Add(Liveness, "flaky", func(context.Context) error {
		if down {
			return errors.New("down")
		}
		return nil
	}, WithThresholds(2, 2))
	c := h.checks[Liveness][0]

	runN(c, 2)
	assert.False(t, c.healthy.Load())

	down = false
	runN(c, 1)
	assert.False(t, c.healthy.Load(), "one success is below the threshold")
	runN(c, 1)
	assert.True(t, c.healthy.Load())
}

func TestCheck_Timeout(t *testing.T) {
	h := New()
	h.Add(Readiness, "slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, WithTimeout(time.Millisecond), WithThresholds(1, 1))
	c := h.checks[Readiness][0]

	runN(c, 1)
	msg, failed := c.failure()
	assert.True(t, failed)
	assert.Contains(t, msg, "deadline exceeded")
}

func TestRun_StopsOnCancel(t *testing.T) {
	h := New()
	var (
		mu    sync.Mutex
		calls int
	)
	h.Add(Liveness, "counter", func(context.Context) error {
		mu.Lock()
		calls++
		mu.Unlock()
		return nil
	})
	h.SetReady(true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx, time.Millisecond) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 3
	}, time.Second, time.Millisecond)

	for range 20 {
		probe(t, h.LiveEndpoint, "/livez")
		h.IsReady()
	}
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return")
	}
}

func TestRegister(t *testing.T) {
	h := New()
	h.SetReady(true)
	mux := http.NewServeMux()
	h.Register(mux)

	for _, path := range []string{"/livez", "/readyz"} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	}
}

func TestCheckers(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, GoroutineCountCheck(1_000_000)(ctx))
	assert.ErrorContains(t, GoroutineCountCheck(0)(ctx), "exceeds")

	n := 0
	count := func() int { return n }
	catalog := MinCountCheck("catalog", 1, count)
	assert.ErrorContains(t, catalog(ctx), "catalog has 0 items")
	n = 300
	assert.NoError(t, catalog(ctx))

	sessions := CapacityCheck("sessions", 300, count)
	assert.ErrorContains(t, sessions(ctx), "sessions at capacity (300/300)")
	n = 299
	assert.NoError(t, sessions(ctx))
	assert.NoError(t, CapacityCheck("sessions", 0, count)(ctx))
}
