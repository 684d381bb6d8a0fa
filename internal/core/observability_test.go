package core

import (
	"context"
	"errors"
	"expvar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	assert.True(t, strings.HasPrefix(rec.Name(), "citydesk_service_metrics_"))
	require.NotNil(t, expvar.Get(rec.Name()))

	ctx := context.Background()
	rec.Observe(ctx, "create_city", true, 10*time.Millisecond)
	rec.Observe(ctx, "create_city", false, 30*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second)

	snap := rec.Snapshot()
	require.Len(t, snap.Operations, 1)
	stats := snap.Operations["create_city"]
	assert.Equal(t, int64(2), stats.Calls)
	assert.Equal(t, int64(1), stats.Errors)
	assert.InDelta(t, 40.0, stats.TotalMS, 0.001)
	assert.InDelta(t, 30.0, stats.SlowestMS, 0.001)
	assert.Contains(t, expvar.Get(rec.Name()).String(), "create_city")
}

func TestJSONTracerAttachesSpanID(t *testing.T) {
	tracer := NewJSONTracer(nil)
	ctx, span := tracer.Start(context.Background(), "get_city")
	id, ok := SpanIDFromContext(ctx)
	require.True(t, ok)
	span.End(errors.New("boom"))

	entries := tracer.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, id, entries[0].SpanID)
	assert.Equal(t, "boom", entries[0].Error)

	_, ok = SpanIDFromContext(context.Background())
	assert.False(t, ok)
}

func TestMetricsCollector(t *testing.T) {
	mc := NewMetricsCollector(MetricsConfig{Namespace: "test"})
	assert.Equal(t, "/metrics", mc.Path())

	rec := MultiRecorder(mc.ForComponent("form"), nil)
	rec.Observe(context.Background(), "submit", true, time.Millisecond)
	rec.Observe(context.Background(), "submit", false, time.Millisecond)
	mc.RecordHTTPRequest("GET", "/cidades", 200, time.Millisecond)

	families, err := mc.Registry().Gather()
	require.NoError(t, err)
	counts := map[string]int{}
	for _, fam := range families {
		counts[fam.GetName()] = len(fam.GetMetric())
	}
	assert.Equal(t, 2, counts["test_operations_total"])
	assert.Equal(t, 1, counts["test_http_requests_total"])

	rr := httptest.NewRecorder()
	mc.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rr.Body.String(), `test_operations_total{component="form",operation="submit",status="error"} 1`)
}
