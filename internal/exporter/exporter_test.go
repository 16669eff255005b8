package exporter

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/freebox-agent/internal/models"
)

func TestObservePoints(t *testing.T) {
	e := New()
	now := time.Now()

	e.ObservePoints([]*models.Point{
		models.NewPoint("connection_status", now).Field("rate_down", uint32(1000)).Field("rate_up", uint32(200)),
		models.NewPoint("connection_status", now).Field("bytes_down", uint64(5000)).Field("bytes_up", uint64(600)),
		models.NewPoint("xdsl_stats", now).Tag("direction", "down").Field("rate", uint32(50000)),
		models.NewPoint("lan_hosts", now).Tag("interface", "pub").Field("reachable", true),
		models.NewPoint("lan_hosts", now).Tag("interface", "pub").Field("reachable", true),
		models.NewPoint("lan_hosts", now).Tag("interface", "pub").Field("reachable", false),
	})

	assert.Equal(t, 1000.0, testutil.ToFloat64(e.ConnectionRate.WithLabelValues("down")))
	assert.Equal(t, 600.0, testutil.ToFloat64(e.ConnectionBytes.WithLabelValues("up")))
	assert.Equal(t, 50000.0, testutil.ToFloat64(e.XDSLRate.WithLabelValues("down")))
	assert.Equal(t, 2.0, testutil.ToFloat64(e.LANHosts.WithLabelValues("pub", "reachable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.LANHosts.WithLabelValues("pub", "unreachable")))
}

func TestSimpleSetters(t *testing.T) {
	e := New()

	e.SetUp(true)
	e.SetWifiEnabled(false)
	e.SetAPIInfo("8.0", "FreeboxServer1,2")
	e.SetAPIInfo("8.1", "FreeboxServer1,2")
	e.CollectorFailed("xdsl")
	e.CollectorFailed("xdsl")
	e.ControlRequest("/wifi", "200")

	assert.Equal(t, 1.0, testutil.ToFloat64(e.Up))
	assert.Equal(t, 0.0, testutil.ToFloat64(e.WifiEnabled))
	assert.Equal(t, 1, testutil.CollectAndCount(e.APIInfo))
	assert.Equal(t, 2.0, testutil.ToFloat64(e.CollectorErrors.WithLabelValues("xdsl")))
	assert.Equal(t, 1.0, testutil.ToFloat64(e.ControlRequests.WithLabelValues("/wifi", "200")))
}

func TestHandler(t *testing.T) {
	e := New()
	e.SetUp(true)

	rec := httptest.NewRecorder()
	e.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "freebox_up 1")
}
