// Package media decodes looping, muted video into a frame slot that a
// streaming texture reads from, and provides the fallback texture image used
// until (or instead of) a video.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Stream is an open decoder producing fixed-size RGBA frames.
type Stream interface {
	// Size returns the frame dimensions.
	Size() (int, int)
	// Next fills buf (width*height*4 bytes) with the next frame. It blocks
	// until a frame is available.
	Next(buf []byte) error
	// Close stops the decoder. It is safe to call more than once.
	Close() error
}

// Source opens streams by URL.
type Source interface {
	Open(ctx context.Context, url string) (Stream, error)
}

// Video pumps frames from a Stream into a double-buffered slot. It
// implements gpu.FrameSource.
type Video struct {
	logger *zap.Logger
	stream Stream
	width  int
	height int

	mu      sync.Mutex
	front   []byte
	seq     uint64
	playing bool
	closed  bool
	wake    chan struct{}
	first   chan struct{}
	cancel  context.CancelFunc
	group   *errgroup.Group
	loopErr error
}

func newVideo(logger *zap.Logger, stream Stream) *Video {
	w, h := stream.Size()
	return &Video{
		logger:  logger,
		stream:  stream,
		width:   w,
		height:  h,
		playing: true,
		wake:    make(chan struct{}, 1),
		first:   make(chan struct{}),
	}
}

// start runs the decode loop until ctx is cancelled or the stream fails.
func (v *Video) start(ctx context.Context) {
	ctx, v.cancel = context.WithCancel(ctx)
	v.group, ctx = errgroup.WithContext(ctx)
	v.group.Go(func() error {
		return v.decode(ctx)
	})
	v.group.Go(func() error {
		<-ctx.Done()
		// unblocks a pending Next
		return v.stream.Close()
	})
}

func (v *Video) decode(ctx context.Context) error {
	back := make([]byte, v.width*v.height*4)
	gotFirst := false
	for {
		if err := v.waitPlaying(ctx); err != nil {
			return nil
		}
		if err := v.stream.Next(back); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				err = fmt.Errorf("video stream ended: %w", err)
			}
			v.mu.Lock()
			v.loopErr = err
			v.mu.Unlock()
			return err
		}
		v.mu.Lock()
		v.front, back = back, v.front
		if back == nil {
			back = make([]byte, v.width*v.height*4)
		}
		v.seq++
		v.mu.Unlock()
		if !gotFirst {
			gotFirst = true
			close(v.first)
		}
	}
}

func (v *Video) waitPlaying(ctx context.Context) error {
	for {
		v.mu.Lock()
		playing := v.playing
		v.mu.Unlock()
		if playing {
			return ctx.Err()
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-v.wake:
		}
	}
}

// ready blocks until the first frame was decoded or decoding failed.
func (v *Video) ready(ctx context.Context) error {
	done := make(chan error, 1)
	go func() { done <- v.group.Wait() }()
	select {
	case <-v.first:
		go func() {
			if err := <-done; err != nil {
				v.logger.Warn("Video decode stopped", zap.Error(err))
			}
		}()
		return nil
	case err := <-done:
		if err == nil {
			err = ctx.Err()
		}
		if err == nil {
			err = errors.New("video closed before first frame")
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Size returns the frame dimensions.
func (v *Video) Size() (int, int) { return v.width, v.height }

// ReadFrame calls fn with the latest frame when its sequence number differs
// from lastSeq. It returns the sequence number of the held frame.
func (v *Video) ReadFrame(lastSeq uint64, fn func(pix []byte, width, height int)) uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.front != nil && v.seq != lastSeq {
		fn(v.front, v.width, v.height)
	}
	return v.seq
}

// Play resumes decoding.
func (v *Video) Play() {
	v.mu.Lock()
	if v.closed || v.playing {
		v.mu.Unlock()
		return
	}
	v.playing = true
	v.mu.Unlock()
	select {
	case v.wake <- struct{}{}:
	default:
	}
}

// Pause stops pulling frames. The last frame stays available.
func (v *Video) Pause() {
	v.mu.Lock()
	v.playing = false
	v.mu.Unlock()
}

// Playing reports whether the decoder is running.
func (v *Video) Playing() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.playing && !v.closed
}

// Err returns the error that stopped decoding, if any.
func (v *Video) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.loopErr
}

// Close stops the decoder and drops the frame. It is idempotent.
func (v *Video) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	v.playing = false
	v.mu.Unlock()

	if v.cancel != nil {
		v.cancel()
		_ = v.group.Wait()
	} else {
		_ = v.stream.Close()
	}

	v.mu.Lock()
	v.front = nil
	v.mu.Unlock()
}
