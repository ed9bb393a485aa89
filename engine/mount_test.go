package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richinsley/godistortion/effect"
)

func TestMountReturnsLiveEngine(t *testing.T) {
	f := newFixture(t, effect.VariantRipple)
	m := NewMount(f.cfg)
	t.Cleanup(m.Unmount)

	e1, err := m.Engine("")
	require.NoError(t, err)
	e2, err := m.Engine("other.mp4")
	require.NoError(t, err)
	assert.Same(t, e1, e2)
	assert.Equal(t, "", e2.Source(), "live engine keeps its source")
	assert.Len(t, f.host.Surfaces(), 1)
	assert.Equal(t, 1, f.host.SurfacesCreated())
	assert.Equal(t, 1, f.host.Listeners())
}

func TestMountDestroyThenReconstruct(t *testing.T) {
	f := newFixture(t, effect.VariantRipple)
	m := NewMount(f.cfg)
	t.Cleanup(m.Unmount)

	e1, err := m.Engine("")
	require.NoError(t, err)
	e1.Destroy()
	assert.Nil(t, m.Current())

	e2, err := m.Engine("")
	require.NoError(t, err)
	assert.NotSame(t, e1, e2)
	assert.False(t, e2.Destroyed())
	assert.Len(t, f.host.Surfaces(), 1)
	assert.Equal(t, 1, f.host.Listeners())
	assert.Equal(t, 1, f.host.PendingFrames())

	// destroying the stale handle again does not clear the new one
	e1.Destroy()
	assert.Same(t, e2, m.Current())
}

func TestMountSetSourceRebuilds(t *testing.T) {
	f := newFixture(t, effect.VariantRipple)
	m := NewMount(f.cfg)
	t.Cleanup(m.Unmount)

	e1, err := m.SetSource("a.mp4")
	require.NoError(t, err)
	same, err := m.SetSource("a.mp4")
	require.NoError(t, err)
	assert.Same(t, e1, same)

	e2, err := m.SetSource("b.mp4")
	require.NoError(t, err)
	assert.NotSame(t, e1, e2)
	assert.True(t, e1.Destroyed())
	assert.Equal(t, "b.mp4", e2.Source())
	assert.Len(t, f.host.Surfaces(), 1)

	m.Unmount()
	assert.Nil(t, m.Current())
	assert.Empty(t, f.host.Surfaces())
}
