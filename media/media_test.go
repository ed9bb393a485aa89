package media

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeStream struct {
	w, h   int
	frames chan byte
	done   chan struct{}
	once   sync.Once
	closes int
	mu     sync.Mutex
}

func newFakeStream(w, h int) *fakeStream {
	return &fakeStream{w: w, h: h, frames: make(chan byte, 8), done: make(chan struct{})}
}

func (s *fakeStream) Size() (int, int) { return s.w, s.h }

func (s *fakeStream) Next(buf []byte) error {
	select {
	case b, ok := <-s.frames:
		if !ok {
			return io.EOF
		}
		for i := range buf {
			buf[i] = b
		}
		return nil
	case <-s.done:
		return io.ErrClosedPipe
	}
}

func (s *fakeStream) Close() error {
	s.mu.Lock()
	s.closes++
	s.mu.Unlock()
	s.once.Do(func() { close(s.done) })
	return nil
}

func (s *fakeStream) isClosed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

type fakeSource struct {
	stream *fakeStream
	err    error
}

func (f *fakeSource) Open(ctx context.Context, url string) (Stream, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

type chanPoster chan func()

func (p chanPoster) Post(fn func()) { p <- fn }

func (p chanPoster) runOne(t *testing.T) {
	t.Helper()
	select {
	case fn := <-p:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for posted callback")
	}
}

func TestParseProbe(t *testing.T) {
	w, h, err := parseProbe(`{"streams":[{"codec_type":"audio"},{"codec_type":"video","width":1920,"height":1080}]}`)
	require.NoError(t, err)
	assert.Equal(t, 1920, w)
	assert.Equal(t, 1080, h)

	_, _, err = parseProbe(`{"streams":[{"codec_type":"audio"}]}`)
	assert.ErrorIs(t, err, ErrNoVideoStream)

	_, _, err = parseProbe(`not json`)
	assert.Error(t, err)
}

func TestFallbackGradient(t *testing.T) {
	img := Fallback()
	require.Equal(t, FallbackSize, img.Rect.Dx())
	require.Equal(t, FallbackSize, img.Rect.Dy())

	tl := img.RGBAAt(0, 0)
	br := img.RGBAAt(FallbackSize-1, FallbackSize-1)
	assert.Equal(t, uint8(0x2a), tl.R)
	assert.Equal(t, uint8(0x1a), br.R)
	assert.Equal(t, uint8(255), tl.A)

	// constant along the anti-diagonal
	assert.Equal(t, img.RGBAAt(FallbackSize-1, 0), img.RGBAAt(0, FallbackSize-1))
}

func TestLoaderDeliversFirstFrame(t *testing.T) {
	stream := newFakeStream(2, 1)
	poster := make(chanPoster, 4)
	l := NewLoader(zaptest.NewLogger(t), &fakeSource{stream: stream}, poster)

	stream.frames <- 7
	var got *Video
	l.Load(context.Background(), "clip.mp4", func(v *Video) { got = v }, func(err error) {
		t.Errorf("unexpected load error: %v", err)
	})
	poster.runOne(t)
	require.NotNil(t, got)
	defer got.Close()

	var pix []byte
	seq := got.ReadFrame(0, func(p []byte, w, h int) {
		assert.Equal(t, 2, w)
		assert.Equal(t, 1, h)
		pix = append([]byte(nil), p...)
	})
	assert.NotZero(t, seq)
	assert.Equal(t, []byte{7, 7, 7, 7, 7, 7, 7, 7}, pix)

	called := false
	assert.Equal(t, seq, got.ReadFrame(seq, func([]byte, int, int) { called = true }))
	assert.False(t, called, "unchanged frame must not be re-read")
}

func TestLoaderReportsOpenError(t *testing.T) {
	poster := make(chanPoster, 4)
	boom := errors.New("404")
	l := NewLoader(zaptest.NewLogger(t), &fakeSource{err: boom}, poster)

	var got error
	l.Load(context.Background(), "missing.mp4", func(*Video) {
		t.Error("unexpected ready")
	}, func(err error) { got = err })
	poster.runOne(t)
	assert.ErrorIs(t, got, boom)
}

func TestLoaderReportsStreamEndBeforeFirstFrame(t *testing.T) {
	stream := newFakeStream(1, 1)
	close(stream.frames)
	poster := make(chanPoster, 4)
	l := NewLoader(zaptest.NewLogger(t), &fakeSource{stream: stream}, poster)

	var got error
	l.Load(context.Background(), "empty.mp4", func(*Video) {
		t.Error("unexpected ready")
	}, func(err error) { got = err })
	poster.runOne(t)
	assert.ErrorIs(t, got, io.EOF)
	assert.True(t, stream.isClosed())
}

func TestLoaderCancelledReadyClosesVideo(t *testing.T) {
	stream := newFakeStream(1, 1)
	stream.frames <- 1
	poster := make(chanPoster, 4)
	l := NewLoader(zaptest.NewLogger(t), &fakeSource{stream: stream}, poster)

	cancel := l.Load(context.Background(), "clip.mp4", func(*Video) {
		t.Error("ready delivered after cancel")
	}, func(error) {})

	// wait for the load to post, then cancel before running it
	var fn func()
	select {
	case fn = <-poster:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ready")
	}
	cancel()
	fn()
	assert.Eventually(t, stream.isClosed, time.Second, 5*time.Millisecond)
}

func TestVideoPlayPauseClose(t *testing.T) {
	stream := newFakeStream(1, 1)
	v := newVideo(zaptest.NewLogger(t), stream)
	assert.True(t, v.Playing())

	v.Pause()
	assert.False(t, v.Playing())
	v.Play()
	assert.True(t, v.Playing())

	v.start(context.Background())
	stream.frames <- 3
	require.NoError(t, v.ready(context.Background()))

	v.Close()
	v.Close()
	assert.True(t, stream.isClosed())
	assert.False(t, v.Playing())
	called := false
	v.ReadFrame(0, func([]byte, int, int) { called = true })
	assert.False(t, called, "closed video drops its frame")

	v.Play()
	assert.False(t, v.Playing())
}
