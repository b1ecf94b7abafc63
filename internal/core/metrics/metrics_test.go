package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.FrameSent(100)
	m.FrameSent(50)
	m.FrameReceived(10)
	m.ConnectionOpened()
	m.ConnectionOpened()
	m.ConnectionClosed("dropped")
	m.TaskFinished("completed")
	m.SetActiveTasks(3)
	m.Lookup("found")
	m.Attempt("runner-busy")

	body := scrape(t, m)
	assert.Contains(t, body, `offload_connection_frames_total{direction="out"} 2`)
	assert.Contains(t, body, `offload_connection_bytes_total{direction="out"} 150`)
	assert.Contains(t, body, `offload_connection_frames_total{direction="in"} 1`)
	assert.Contains(t, body, `offload_connection_active 1`)
	assert.Contains(t, body, `offload_connection_disconnects_total{reason="dropped"} 1`)
	assert.Contains(t, body, `offload_runner_tasks_total{outcome="completed"} 1`)
	assert.Contains(t, body, `offload_runner_active_tasks 3`)
	assert.Contains(t, body, `offload_mediator_lookups_total{result="found"} 1`)
	assert.Contains(t, body, `offload_client_attempts_total{result="runner-busy"} 1`)

	t.Log("✅ Metrics 记录测试通过")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.FrameSent(1)
		m.FrameReceived(1)
		m.ConnectionOpened()
		m.ConnectionClosed("error")
		m.TaskFinished("completed")
		m.SetActiveTasks(1)
		m.SetQueueLength(1)
		m.SetRunners("ready", 1)
		m.Lookup("found")
		m.Attempt("ok")
	})
	assert.Nil(t, m.Registry())
}

func TestRateMeter(t *testing.T) {
	clk := clock.NewMock()
	r := NewRateMeter(clk)

	r.Add(600)
	assert.InDelta(t, 10.0, r.Rate(), 0.001)

	clk.Add(30 * time.Second)
	r.Add(600)
	assert.InDelta(t, 20.0, r.Rate(), 0.001)

	// 超过窗口后旧数据全部过期
	clk.Add(61 * time.Second)
	assert.InDelta(t, 0.0, r.Rate(), 0.001)
}
