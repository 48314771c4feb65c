package audio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"

	"voxlate/internal/ports"
)

// PortAudioCapture reads the default input device through PortAudio.
type PortAudioCapture struct {
	logger      zerolog.Logger
	processOnce sync.Once
}

func NewPortAudioCapture(logger zerolog.Logger) *PortAudioCapture {
	return &PortAudioCapture{logger: logger}
}

func (c *PortAudioCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.CaptureHandle, error) {
	cfg = withCaptureDefaults(cfg)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.EchoCancellation || cfg.NoiseSuppression {
		c.processOnce.Do(func() {
			c.logger.Info().Msg("echo cancellation and noise suppression are not available with portaudio capture")
		})
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, classifyPortAudioErr(fmt.Errorf("failed to initialize portaudio: %w", err))
	}

	buffer := make([]float32, cfg.BlockSize*cfg.Channels)
	stream, err := portaudio.OpenDefaultStream(cfg.Channels, 0, float64(cfg.SampleRate), cfg.BlockSize, buffer)
	if err != nil {
		_ = portaudio.Terminate()
		return nil, classifyPortAudioErr(fmt.Errorf("failed to open input stream: %w", err))
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return nil, classifyPortAudioErr(fmt.Errorf("failed to start input stream: %w", err))
	}

	s := &portaudioStream{stream: stream, terminate: portaudio.Terminate, logger: c.logger}
	handle := newCaptureHandle(cfg.BlockSize, c.logger, captureHooks{release: s.release})
	handle.runProducer(func() error {
		return readStream(stream, buffer, cfg.Channels, handle)
	})
	return handle, nil
}

// inputStream is the blocking-read subset of *portaudio.Stream. It must only
// be used from one goroutine at a time.
type inputStream interface {
	Read() error
	Stop() error
	Close() error
}

// readStream reads blocks until the handle stops. The stream is released by
// Stop only after this returns, so Read never overlaps Stop or Close.
func readStream(stream inputStream, buffer []float32, channels int, handle *captureHandle) error {
	for !handle.isStopping() {
		if err := stream.Read(); err != nil {
			if handle.isStopping() {
				return nil
			}
			return fmt.Errorf("input stream read failed: %w", err)
		}
		if !handle.publish(monoMix(buffer, channels)) {
			return nil
		}
	}
	return nil
}

type portaudioStream struct {
	stream    inputStream
	terminate func() error
	logger    zerolog.Logger
	once      sync.Once
	err       error
}

// release stops the stream, closes it and terminates PortAudio. Each step
// runs even if an earlier one failed.
func (s *portaudioStream) release() error {
	s.once.Do(func() {
		if err := s.stream.Stop(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to stop input stream")
			s.err = err
		}
		if err := s.stream.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to close input stream")
			if s.err == nil {
				s.err = err
			}
		}
		if s.terminate != nil {
			if err := s.terminate(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to terminate portaudio")
				if s.err == nil {
					s.err = err
				}
			}
		}
	})
	return s.err
}

// monoMix averages interleaved frames down to one channel and always returns
// a fresh slice.
func monoMix(buffer []float32, channels int) []float32 {
	if channels <= 1 {
		return append([]float32(nil), buffer...)
	}
	frames := len(buffer) / channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += buffer[i*channels+ch]
		}
		out[i] = sum / float32(channels)
	}
	return out
}
