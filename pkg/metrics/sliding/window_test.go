package sliding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestWindow(t *testing.T, cfg *WindowConfig) (*Window, *clock) {
	t.Helper()
	w, err := NewWindow(cfg)
	require.NoError(t, err)
	c := &clock{t: time.Unix(1_700_000_000, 0)}
	w.now = c.now
	return w, c
}

func TestWindow_Snapshot(t *testing.T) {
	w, _ := newTestWindow(t, &WindowConfig{Enabled: true, WindowSize: 10 * time.Second, BucketCount: 10, TopN: 2})

	w.Record("curios", 0.1, true)
	w.Record("curios", 0.3, true)
	w.Record("delve", 0.2, false)
	w.Record("duel", 0.05, true)

	s := w.Snapshot()
	assert.Equal(t, int64(4), s.TotalCount)
	assert.Equal(t, int64(1), s.Failures)
	assert.InDelta(t, 0.4, s.QPS, 1e-9)
	assert.InDelta(t, 0.1625, s.AvgLatency, 1e-9)
	assert.InDelta(t, 0.3, s.MaxLatency, 1e-9)
	assert.InDelta(t, 75.0, s.SuccessRate, 1e-9)

	require.Len(t, s.Top, 2)
	assert.Equal(t, "curios", s.Top[0].Key)
	assert.Equal(t, int64(2), s.Top[0].Count)
	assert.InDelta(t, 0.2, s.Top[0].AvgLatency, 1e-9)
	assert.Equal(t, "delve", s.Top[1].Key)
}

func TestWindow_Expiry(t *testing.T) {
	w, c := newTestWindow(t, &WindowConfig{Enabled: true, WindowSize: 4 * time.Second, BucketCount: 4})

	w.Record("a", 1, true)
	c.advance(2 * time.Second)
	w.Record("b", 2, true)
	assert.Equal(t, int64(2), w.Snapshot().TotalCount)

	// 第一条落出窗口
	c.advance(2 * time.Second)
	s := w.Snapshot()
	assert.Equal(t, int64(1), s.TotalCount)
	assert.InDelta(t, 2.0, s.MaxLatency, 1e-9)

	// 复用同一个槽位时旧数据被清空
	c.advance(4 * time.Second)
	w.Record("c", 3, false)
	s = w.Snapshot()
	assert.Equal(t, int64(1), s.TotalCount)
	require.Len(t, s.Top, 1)
	assert.Equal(t, "c", s.Top[0].Key)
}

func TestWindow_EmptyAndDisabled(t *testing.T) {
	w, _ := newTestWindow(t, nil)
	s := w.Snapshot()
	assert.Zero(t, s.TotalCount)
	assert.Zero(t, s.SuccessRate)
	assert.Empty(t, s.Top)

	off, _ := newTestWindow(t, &WindowConfig{WindowSize: time.Minute, BucketCount: 6})
	off.config.Enabled = false
	off.Record("x", 1, true)
	assert.Zero(t, off.Snapshot().TotalCount)
}

func TestNewWindow_Invalid(t *testing.T) {
	_, err := NewWindow(&WindowConfig{Enabled: true, WindowSize: 3, BucketCount: 10})
	assert.Error(t, err)
}
