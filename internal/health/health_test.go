package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"grimm.is/routepin/internal/clock"
	"grimm.is/routepin/internal/routing"
)

func static(status Status) CheckFunc {
	return func(ctx context.Context) Check { return Check{Status: status} }
}

func TestChecker_Aggregates(t *testing.T) {
	ctx := context.Background()

	c := NewChecker(nil)
	c.Register("ok", static(StatusHealthy))
	if got := c.Check(ctx).Status; got != StatusHealthy {
		t.Errorf("status = %s, want healthy", got)
	}

	c.Register("meh", static(StatusDegraded))
	if got := c.Check(ctx).Status; got != StatusDegraded {
		t.Errorf("status = %s, want degraded", got)
	}

	c.Register("bad", static(StatusUnhealthy))
	report := c.Check(ctx)
	if report.Status != StatusUnhealthy {
		t.Errorf("status = %s, want unhealthy", report.Status)
	}
	if len(report.Checks) != 3 {
		t.Errorf("got %d checks, want 3", len(report.Checks))
	}
	if report.Checks["meh"].Name != "meh" {
		t.Errorf("check name not filled in: %+v", report.Checks["meh"])
	}
}

func TestChecker_CachesForTTL(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	var calls atomic.Int32

	c := NewChecker(clk)
	c.Register("count", func(ctx context.Context) Check {
		calls.Add(1)
		return Check{Status: StatusHealthy}
	})

	c.Check(context.Background())
	c.Check(context.Background())
	if calls.Load() != 1 {
		t.Errorf("check ran %d times within TTL, want 1", calls.Load())
	}

	clk.Advance(6 * time.Second)
	c.Check(context.Background())
	if calls.Load() != 2 {
		t.Errorf("check ran %d times after TTL, want 2", calls.Load())
	}
}

func TestHandlers(t *testing.T) {
	c := NewChecker(nil)
	c.Register("bad", static(StatusUnhealthy))

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("healthz code = %d, want 503", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"unhealthy"`) {
		t.Errorf("healthz body = %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	c.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable || rec.Body.String() != "NOT READY" {
		t.Errorf("readyz = %d %q", rec.Code, rec.Body.String())
	}

	ok := NewChecker(nil)
	ok.Register("meh", static(StatusDegraded))
	rec = httptest.NewRecorder()
	ok.ReadinessHandler()(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "READY" {
		t.Errorf("degraded readyz = %d %q", rec.Code, rec.Body.String())
	}
}

func TestCheckStateDir(t *testing.T) {
	ctx := context.Background()

	ok := CheckStateDir(filepath.Join(t.TempDir(), "routes.json"))(ctx)
	if ok.Status != StatusHealthy {
		t.Errorf("writable dir: %+v", ok)
	}

	bad := CheckStateDir(filepath.Join(t.TempDir(), "missing", "routes.json"))(ctx)
	if bad.Status != StatusUnhealthy {
		t.Errorf("missing dir: %+v", bad)
	}
}

func gatewayOf(gw string, err error) GatewayFunc {
	return func(ctx context.Context) (string, error) { return gw, err }
}

func TestCheckGateway(t *testing.T) {
	ctx := context.Background()

	if got := CheckGateway("en0", gatewayOf("10.0.0.1", nil))(ctx); got.Status != StatusHealthy {
		t.Errorf("with gateway: %+v", got)
	}
	if got := CheckGateway("en0", gatewayOf("", nil))(ctx); got.Status != StatusDegraded {
		t.Errorf("without gateway: %+v", got)
	}
	if got := CheckGateway("en0", gatewayOf("", errors.New("boom")))(ctx); got.Status != StatusUnhealthy {
		t.Errorf("resolution error: %+v", got)
	}
}

func TestCheckRoutes(t *testing.T) {
	ctx := context.Background()
	pinned := func() []string { return []string{"1.2.3.4/32", "5.6.7.8/32"} }

	insp := &routing.MockInspector{}
	insp.On("ListRoutesViaGateway", "10.0.0.1").Return([]routing.LiveRouteEntry{
		{Destination: "1.2.3.4", Gateway: "10.0.0.1"},
	}, nil)

	got := CheckRoutes(insp, gatewayOf("10.0.0.1", nil), pinned)(ctx)
	if got.Status != StatusDegraded || !strings.Contains(got.Message, "1 pinned route(s) missing") {
		t.Errorf("drift: %+v", got)
	}

	if got := CheckRoutes(insp, gatewayOf("", nil), pinned)(ctx); got.Status != StatusHealthy {
		t.Errorf("no gateway: %+v", got)
	}

	failing := &routing.MockInspector{}
	failing.On("ListRoutesViaGateway", "10.0.0.1").Return(nil, errors.New("netstat failed"))
	if got := CheckRoutes(failing, gatewayOf("10.0.0.1", nil), pinned)(ctx); got.Status != StatusUnhealthy {
		t.Errorf("table error: %+v", got)
	}

	all := &routing.MockInspector{}
	all.On("ListRoutesViaGateway", "10.0.0.1").Return([]routing.LiveRouteEntry{
		{Destination: "1.2.3.4"}, {Destination: "5.6.7.8"},
	}, nil)
	if got := CheckRoutes(all, gatewayOf("10.0.0.1", nil), pinned)(ctx); got.Status != StatusHealthy {
		t.Errorf("in sync: %+v", got)
	}
}
