package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	ffmpeg "github.com/u2takey/ffmpeg-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrNoVideoStream is returned when a source has no decodable video stream.
var ErrNoVideoStream = errors.New("no video stream")

const probeTimeout = 10 * time.Second

// FFmpegSource decodes media through an ffmpeg subprocess. Frames are read as
// raw RGBA from the process's stdout; audio is dropped and the input loops
// forever at its native rate.
type FFmpegSource struct {
	// FFmpegPath overrides the ffmpeg binary. Empty uses ffmpeg from PATH.
	// Probing always runs ffprobe from PATH.
	FFmpegPath string
	Logger     *zap.Logger
}

type probeResult struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// parseProbe extracts the first video stream's dimensions from ffprobe JSON.
func parseProbe(data string) (int, int, error) {
	var res probeResult
	if err := json.UnmarshalFromString(data, &res); err != nil {
		return 0, 0, fmt.Errorf("failed to parse probe output: %w", err)
	}
	for _, s := range res.Streams {
		if s.CodecType == "video" && s.Width > 0 && s.Height > 0 {
			return s.Width, s.Height, nil
		}
	}
	return 0, 0, ErrNoVideoStream
}

// Open probes url and starts decoding it.
func (s *FFmpegSource) Open(ctx context.Context, url string) (Stream, error) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	probe, err := ffmpeg.ProbeWithTimeout(url, probeTimeout, ffmpeg.KwArgs{"select_streams": "v:0"})
	if err != nil {
		return nil, fmt.Errorf("failed to probe %s: %w", url, err)
	}
	width, height, err := parseProbe(probe)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", url, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pipeReader, pipeWriter := io.Pipe()
	ffmpegCmd := ffmpeg.Input(url, ffmpeg.KwArgs{
		"re":          "",
		"stream_loop": "-1",
	}).Output("pipe:", ffmpeg.KwArgs{
		"f":       "rawvideo",
		"pix_fmt": "rgba",
		"an":      "",
	}).WithOutput(pipeWriter)

	if s.FFmpegPath != "" {
		ffmpegCmd = ffmpegCmd.SetFfmpegPath(s.FFmpegPath)
	}

	cmd := ffmpegCmd.Compile()
	if err := cmd.Start(); err != nil {
		pipeWriter.Close()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}
	logger.Info("FFmpeg decoder started",
		zap.String("url", url),
		zap.Int("width", width),
		zap.Int("height", height))

	st := &ffmpegStream{
		cmd:    cmd,
		reader: pipeReader,
		width:  width,
		height: height,
	}
	st.group.Go(func() error {
		err := cmd.Wait()
		if err != nil {
			pipeWriter.CloseWithError(fmt.Errorf("ffmpeg exited: %w", err))
		} else {
			pipeWriter.Close()
		}
		return err
	})
	return st, nil
}

type ffmpegStream struct {
	cmd           *exec.Cmd
	reader        *io.PipeReader
	width, height int
	group         errgroup.Group
	closeOnce     sync.Once
	closeErr      error
}

func (s *ffmpegStream) Size() (int, int) { return s.width, s.height }

func (s *ffmpegStream) Next(buf []byte) error {
	_, err := io.ReadFull(s.reader, buf)
	return err
}

// Close kills ffmpeg and waits for it to exit. The kill itself shows up as
// an exit error, so that is not reported.
func (s *ffmpegStream) Close() error {
	s.closeOnce.Do(func() {
		if s.cmd.Process != nil {
			if err := s.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
				s.closeErr = err
			}
		}
		s.reader.Close()
		_ = s.group.Wait()
	})
	return s.closeErr
}
