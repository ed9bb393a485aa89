package params

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	s := NewStore(RippleDefs())
	snap, err := s.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, 0.04, snap.RippleStrength)
	assert.Equal(t, 0.0, snap.RippleSpeed)
	assert.Equal(t, 0.18, snap.RippleRadius)
	assert.Equal(t, 0.08, snap.MouseSmoothing)
	assert.True(t, snap.AutoPlay)
	assert.False(t, snap.ShowStats)
	assert.InDelta(t, 26.0/255, snap.Background[0], 1e-6)
	assert.Equal(t, float32(1), snap.Background[3])
}

func TestTrailDefaults(t *testing.T) {
	snap, err := NewStore(TrailDefs()).Snapshot()
	require.NoError(t, err)

	assert.Equal(t, 0.05, snap.TrailRadius)
	assert.Equal(t, 0.02, snap.FadeSpeed)
	assert.Equal(t, 2.0, snap.BlurRadius)
	assert.Equal(t, 0.5, snap.TrailBlend)
	assert.InDelta(t, 1.0, snap.Trail[0], 1e-6)
	assert.InDelta(t, 0.5, snap.Trail[1], 0.01)
	assert.InDelta(t, 0.0, snap.Trail[2], 1e-6)
}

func TestLegacyDefaultsAreUnsmoothed(t *testing.T) {
	snap, err := NewStore(LegacyRippleDefs()).Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 1.0, snap.MouseSmoothing)
	assert.Equal(t, 2.5, snap.RippleSpeed)
}

func TestSet(t *testing.T) {
	s := NewStore(RippleDefs())

	require.NoError(t, s.Set(RippleStrength, 0.2))
	require.NoError(t, s.Set(RippleRadius, float32(0.5)))
	require.NoError(t, s.Set(RippleSpeed, 3))
	require.NoError(t, s.Set(ShowStats, true))
	require.NoError(t, s.Set(BackgroundColor, "rebeccapurple"))

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 0.2, snap.RippleStrength)
	assert.Equal(t, 0.5, snap.RippleRadius)
	assert.Equal(t, 3.0, snap.RippleSpeed)
	assert.True(t, snap.ShowStats)
	assert.Equal(t, "rebeccapurple", snap.BackgroundColor)
}

func TestSetErrors(t *testing.T) {
	s := NewStore(RippleDefs())

	assert.ErrorIs(t, s.Set("nope", 1.0), ErrUnknownParam)
	assert.ErrorIs(t, s.Set(RippleStrength, 0.9), ErrOutOfRange)
	assert.ErrorIs(t, s.Set(RippleStrength, "big"), ErrWrongType)
	assert.ErrorIs(t, s.Set(AutoPlay, 1.0), ErrWrongType)
	assert.ErrorIs(t, s.Set(BackgroundColor, "not-a-color"), ErrWrongType)

	v, _ := s.Get(RippleStrength)
	assert.Equal(t, 0.04, v)
}

func TestSubscribe(t *testing.T) {
	s := NewStore(RippleDefs())
	var got []string
	cancel := s.Subscribe(func(name string, value any) {
		got = append(got, name)
	})

	require.NoError(t, s.Set(RippleStrength, 0.1))
	require.NoError(t, s.Set(RippleStrength, 0.1)) // unchanged, no notification
	require.NoError(t, s.Set(RippleRadius, 0.3))
	assert.Equal(t, []string{RippleStrength, RippleRadius}, got)

	cancel()
	require.NoError(t, s.Set(RippleRadius, 0.4))
	assert.Len(t, got, 2)
}

func TestSnapshotCachedPerVersion(t *testing.T) {
	s := NewStore(RippleDefs())
	a, err := s.Snapshot()
	require.NoError(t, err)
	b, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, a.Version, b.Version)

	require.NoError(t, s.Set(RippleStrength, 0.05))
	c, err := s.Snapshot()
	require.NoError(t, err)
	assert.Greater(t, c.Version, a.Version)
	assert.Equal(t, 0.04, a.RippleStrength)
	assert.Equal(t, 0.05, c.RippleStrength)
}

func TestReset(t *testing.T) {
	s := NewStore(RippleDefs())
	require.NoError(t, s.Set(RippleStrength, 0.25))
	require.NoError(t, s.Set(BackgroundColor, "#fff"))

	s.Reset()
	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 0.04, snap.RippleStrength)
	assert.Equal(t, "#1a1a1a", snap.BackgroundColor)
}

func TestSetManyKeepsValidEntries(t *testing.T) {
	s := NewStore(RippleDefs())
	err := s.SetMany(map[string]any{
		RippleStrength: 0.12,
		RippleRadius:   9.0,
		"unknown":      true,
	})
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.ErrorIs(t, err, ErrUnknownParam)

	v, _ := s.Get(RippleStrength)
	assert.Equal(t, 0.12, v)
}

func TestApplyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rippleStrength: 0.07\nrippleSpeed: 2\nautoPlay: false\nbackgroundColor: \"#000000\"\n"), 0o644))

	s := NewStore(RippleDefs())
	require.NoError(t, ApplyFile(s, path))

	snap, err := s.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 0.07, snap.RippleStrength)
	assert.Equal(t, 2.0, snap.RippleSpeed)
	assert.False(t, snap.AutoPlay)
	assert.Equal(t, [4]float32{0, 0, 0, 1}, snap.Background)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- just\n- a list\n"), 0o644))
	_, err = LoadFile(path)
	assert.Error(t, err)
}
