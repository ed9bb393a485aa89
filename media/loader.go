package media

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Poster runs callbacks on the UI thread.
type Poster interface {
	Post(fn func())
}

// Loader opens videos in the background and reports the outcome on the UI
// thread.
type Loader struct {
	logger *zap.Logger
	source Source
	poster Poster
}

// NewLoader creates a loader.
func NewLoader(logger *zap.Logger, source Source, poster Poster) *Loader {
	return &Loader{logger: logger, source: source, poster: poster}
}

// Load opens url and decodes until the first frame. On success onReady
// receives the playing video; on failure onError receives the error. Both
// run through the poster. The returned cancel aborts a pending load and stops
// decoding of a delivered video; a video that became ready after cancel is
// closed instead of delivered.
func (l *Loader) Load(ctx context.Context, url string, onReady func(*Video), onError func(error)) (cancel func()) {
	ctx, cancel = context.WithCancel(ctx)
	logger := l.logger.With(zap.String("url", url))

	go func() {
		stream, err := l.source.Open(ctx, url)
		if err != nil {
			l.fail(ctx, onError, fmt.Errorf("failed to open video: %w", err))
			return
		}
		v := newVideo(logger, stream)
		v.start(ctx)
		if err := v.ready(ctx); err != nil {
			v.Close()
			l.fail(ctx, onError, fmt.Errorf("failed to decode video: %w", err))
			return
		}
		if ctx.Err() != nil {
			v.Close()
			return
		}
		logger.Info("Video ready")
		l.poster.Post(func() {
			if ctx.Err() != nil {
				v.Close()
				return
			}
			onReady(v)
		})
	}()
	return cancel
}

func (l *Loader) fail(ctx context.Context, onError func(error), err error) {
	if ctx.Err() != nil {
		return
	}
	l.poster.Post(func() {
		if ctx.Err() != nil {
			return
		}
		onError(err)
	})
}
