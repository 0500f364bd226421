package collector

import (
	"context"
	"testing"
	"time"

	"github.com/newthinker/signaledge/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockCollector for testing
type mockCollector struct {
	name   string
	series core.PriceSeries
	err    error
	calls  int
}

func (m *mockCollector) Name() string { return m.name }
func (m *mockCollector) FetchHistory(ctx context.Context, symbol string, start, end time.Time) (core.PriceSeries, error) {
	m.calls++
	if m.err != nil {
		return core.PriceSeries{}, m.err
	}
	s := m.series
	s.Symbol = symbol
	return s, nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	mock := &mockCollector{name: "mock"}
	r.Register(mock)

	c, ok := r.Get("mock")
	if !ok {
		t.Fatal("expected to find registered collector")
	}

	if c.Name() != "mock" {
		t.Errorf("expected name 'mock', got '%s'", c.Name())
	}
}

func TestRegistry_GetAll(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockCollector{name: "a"})
	r.Register(&mockCollector{name: "b"})

	all := r.GetAll()
	if len(all) != 2 {
		t.Errorf("expected 2 collectors, got %d", len(all))
	}
}

func TestRegistry_Lookup(t *testing.T) {
	r := NewRegistry()
	r.Register(&mockCollector{name: "yahoo"})
	r.Register(&mockCollector{name: "csv"})

	c, err := r.Lookup("csv")
	require.NoError(t, err)
	assert.Equal(t, "csv", c.Name())

	_, err = r.Lookup("bloomberg")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Contains(t, err.Error(), "csv yahoo")

	assert.Equal(t, []string{"csv", "yahoo"}, r.Names())
}
