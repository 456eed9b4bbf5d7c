package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManual_Advance(t *testing.T) {
	t0 := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	c := NewManual(t0)
	require.Equal(t, t0, c.Now())

	c.Advance(90 * time.Second)
	require.Equal(t, t0.Add(90*time.Second), c.Now())

	c.Set(t0)
	require.Equal(t, t0, c.Now())
}

func TestOrSystem(t *testing.T) {
	require.IsType(t, System{}, OrSystem(nil))

	m := NewManual(time.Unix(0, 0))
	require.Same(t, m, OrSystem(m))
}
