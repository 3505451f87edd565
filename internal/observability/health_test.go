package observability

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHandleHealth_returnsOK(t *testing.T) {
	origVersion, origCommit := Version, Commit
	Version = "1.2.3"
	Commit = "abc1234"
	t.Cleanup(func() {
		Version = origVersion
		Commit = origCommit
	})

	rec := httptest.NewRecorder()
	HandleHealth().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if resp.Status != "ok" || resp.Version != "1.2.3" || resp.Commit != "abc1234" {
		t.Errorf("response = %+v", resp)
	}
}

func serveReady(t *testing.T, checks ReadinessChecks) (int, ReadinessResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	HandleReady(checks).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	var resp ReadinessResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return rec.Code, resp
}

func TestHandleReady_allHealthy(t *testing.T) {
	ok := CheckFunc(func(context.Context) error { return nil })
	code, resp := serveReady(t, ReadinessChecks{"store": ok, "catalog": ok})

	if code != http.StatusOK || resp.Status != "ready" {
		t.Fatalf("code = %d, status = %q", code, resp.Status)
	}
	if len(resp.Checks) != 2 {
		t.Errorf("checks = %v, want 2", resp.Checks)
	}
}

func TestHandleReady_storeDown(t *testing.T) {
	code, resp := serveReady(t, ReadinessChecks{
		"catalog": CheckFunc(func(context.Context) error { return nil }),
		"store":   CheckFunc(func(context.Context) error { return errors.New("connection refused") }),
	})

	if code != http.StatusServiceUnavailable || resp.Status != "not_ready" {
		t.Fatalf("code = %d, status = %q", code, resp.Status)
	}
	if got := resp.Checks["store"]; got.Status != "error" || got.Error != "connection refused" {
		t.Errorf("store check = %+v", got)
	}
	if got := resp.Checks["catalog"]; got.Status != "ok" {
		t.Errorf("catalog check = %+v", got)
	}
}

func TestHandleReady_nilCheckerSkipped(t *testing.T) {
	code, resp := serveReady(t, ReadinessChecks{"store": nil})
	if code != http.StatusOK {
		t.Errorf("code = %d, want 200", code)
	}
	if _, ok := resp.Checks["store"]; ok {
		t.Error("nil checker should not be reported")
	}
}

func TestHandleReady_checkTimesOut(t *testing.T) {
	slow := CheckFunc(func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Second):
			return nil
		}
	})

	start := time.Now()
	code, resp := serveReady(t, ReadinessChecks{"store": slow})
	if time.Since(start) > 5*time.Second {
		t.Error("readiness did not honour the check timeout")
	}
	if code != http.StatusServiceUnavailable || resp.Checks["store"].Status != "error" {
		t.Errorf("code = %d, checks = %+v", code, resp.Checks)
	}
}
