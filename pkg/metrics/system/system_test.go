package system

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampler_CachesWithinMaxAge(t *testing.T) {
	s, err := New(time.Minute)
	require.NoError(t, err)
	now := time.Unix(1_700_000_000, 0)
	s.now = func() time.Time { return now }

	first := s.Stats()
	assert.Equal(t, now, first.SampledAt)
	assert.Positive(t, first.Goroutines)

	now = now.Add(30 * time.Second)
	assert.Equal(t, first.SampledAt, s.Stats().SampledAt)

	now = now.Add(time.Minute)
	assert.Equal(t, now, s.Stats().SampledAt)
}

func TestSampler_Collectors(t *testing.T) {
	s, err := New(time.Minute)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	for _, c := range s.Collectors("test") {
		require.NoError(t, reg.Register(c))
	}
	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.ElementsMatch(t, []string{"test_process_cpu_percent", "test_process_rss_bytes", "test_process_host_memory_percent"}, names)
}
