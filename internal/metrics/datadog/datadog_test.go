package datadog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"txnetl/internal/metrics"
)

type call struct {
	kind  string
	name  string
	value float64
	tags  []string
}

type fakeClient struct {
	calls  []call
	closed bool
}

func (f *fakeClient) Count(name string, value int64, tags []string, _ float64) error {
	f.calls = append(f.calls, call{"count", name, float64(value), tags})
	return nil
}

func (f *fakeClient) Histogram(name string, value float64, tags []string, _ float64) error {
	f.calls = append(f.calls, call{"hist", name, value, tags})
	return nil
}

func (f *fakeClient) Close() error { f.closed = true; return nil }

func TestBackendForwardsWithSortedTags(t *testing.T) {
	fc := &fakeClient{}
	b := &Backend{client: fc}

	b.IncCounter(metrics.RowsTotal, 7, metrics.Labels{"mode": "clean", "kind": "rejected", "job": "j"})
	b.ObserveHistogram(metrics.StepDuration, 0.25, metrics.Labels{"step": "read"})
	require.NoError(t, b.Flush())

	require.Len(t, fc.calls, 2)
	assert.Equal(t, call{"count", metrics.RowsTotal, 7, []string{"job:j", "kind:rejected", "mode:clean"}}, fc.calls[0])
	assert.Equal(t, call{"hist", metrics.StepDuration, 0.25, []string{"step:read"}}, fc.calls[1])
	assert.True(t, fc.closed)
}

func TestNewBackendRequiresAddr(t *testing.T) {
	_, err := NewBackend(Config{})
	assert.Error(t, err)
}

func TestZeroBackendIsNoop(t *testing.T) {
	b := &Backend{}
	b.IncCounter("x", 1, nil)
	b.ObserveHistogram("x", 1, nil)
	assert.NoError(t, b.Flush())
	assert.Nil(t, labelsToTags(nil))
}
