package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voxlate/internal/ports"
)

// FFMPEGCapture streams microphone audio through an ffmpeg child process.
type FFMPEGCapture struct {
	command  string
	logger   zerolog.Logger
	echoOnce sync.Once
}

func NewFFMPEGCapture(command string, logger zerolog.Logger) *FFMPEGCapture {
	if command == "" {
		command = "ffmpeg"
	}
	return &FFMPEGCapture{command: command, logger: logger}
}

func (c *FFMPEGCapture) Start(ctx context.Context, cfg ports.AudioConfig) (ports.CaptureHandle, error) {
	cfg = withCaptureDefaults(cfg)

	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", cfg.InputFormat,
		"-i", cfg.InputDevice,
		"-ac", strconv.Itoa(cfg.Channels),
		"-ar", strconv.Itoa(cfg.SampleRate),
	}
	if cfg.NoiseSuppression {
		args = append(args, "-af", "afftdn")
	}
	if cfg.EchoCancellation {
		c.echoOnce.Do(func() {
			c.logger.Info().Msg("echo cancellation is not available with ffmpeg capture")
		})
	}
	args = append(args, "-f", "s16le", "-")

	cmd := exec.Command(c.command, args...)
	stderr := &syncBuffer{}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, classifyStartErr(fmt.Errorf("failed to create ffmpeg stdout pipe: %w", err), "")
	}
	if err := cmd.Start(); err != nil {
		return nil, classifyStartErr(fmt.Errorf("failed to start ffmpeg: %w", err), "")
	}

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- cmd.Wait()
		close(waitErr)
	}()

	proc := &ffmpegProcess{
		stdout:  stdout,
		stderr:  stderr,
		process: cmd.Process,
		waitErr: waitErr,
	}

	select {
	case err := <-waitErr:
		detail := stringsTrimSpaceSafe(stderr.String())
		if err != nil {
			return nil, classifyStartErr(fmt.Errorf("ffmpeg exited before capture started: %w: %s", err, detail), detail)
		}
		return nil, classifyStartErr(errors.New("ffmpeg exited before capture started"), detail)
	case <-ctx.Done():
		_ = proc.stop()
		return nil, ctx.Err()
	case <-time.After(250 * time.Millisecond):
	}

	handle := newCaptureHandle(cfg.BlockSize, c.logger, captureHooks{interrupt: proc.stop})
	handle.runProducer(func() error {
		err := decodePCM16(stdout, cfg.Channels, handle)
		if err == nil || handle.isStopping() {
			return nil
		}
		if errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
			err = errors.New("ffmpeg stopped delivering audio")
		}
		if detail := stringsTrimSpaceSafe(stderr.String()); detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return err
	})
	return handle, nil
}

func withCaptureDefaults(cfg ports.AudioConfig) ports.AudioConfig {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = DefaultBlockSize
	}
	if cfg.InputFormat == "" {
		cfg.InputFormat = "pulse"
	}
	if cfg.InputDevice == "" {
		cfg.InputDevice = "default"
	}
	return cfg
}

// decodePCM16 converts interleaved little-endian 16-bit PCM into mono float
// samples until the reader ends or the handle stops. Partial frames carry
// over to the next read. It returns nil once the handle stops.
func decodePCM16(r io.Reader, channels int, handle *captureHandle) error {
	if channels <= 0 {
		channels = 1
	}
	frameBytes := 2 * channels
	buf := make([]byte, 4096)
	var carry []byte
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data := append(carry, buf[:n]...)
			whole := len(data) - len(data)%frameBytes
			interleaved := make([]float32, whole/2)
			for i := range interleaved {
				interleaved[i] = float32(int16(binary.LittleEndian.Uint16(data[2*i:]))) / 32768
			}
			carry = append([]byte(nil), data[whole:]...)
			if len(interleaved) > 0 && !handle.publish(monoMix(interleaved, channels)) {
				return nil
			}
		}
		if err != nil {
			return err
		}
	}
}

type ffmpegProcess struct {
	stdout io.ReadCloser
	stderr *syncBuffer

	process *os.Process
	waitErr <-chan error

	stopOnce sync.Once
	stopErr  error
}

func (p *ffmpegProcess) stop() error {
	p.stopOnce.Do(func() {
		if p.process != nil {
			_ = p.process.Signal(os.Interrupt)
		}

		select {
		case err, ok := <-p.waitErr:
			if ok {
				p.stopErr = normalizeStopErr(err)
			}
		case <-time.After(1200 * time.Millisecond):
			if p.process != nil {
				_ = p.process.Kill()
			}
			err, ok := <-p.waitErr
			if ok {
				p.stopErr = normalizeStopErr(err)
			}
		}

		if closeErr := p.stdout.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
			if p.stopErr == nil {
				p.stopErr = closeErr
			}
		}

		if p.stopErr != nil && p.stderr.Len() > 0 {
			p.stopErr = fmt.Errorf("%w: %s", p.stopErr, stringsTrimSpaceSafe(p.stderr.String()))
		}
	})

	return p.stopErr
}

func normalizeStopErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

func stringsTrimSpaceSafe(input string) string {
	if input == "" {
		return input
	}
	return string(bytes.TrimSpace([]byte(input)))
}

// syncBuffer guards stderr, which exec writes from its own goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func (b *syncBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Len()
}
