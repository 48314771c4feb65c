package audio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/rs/zerolog"

	"voxlate/internal/errorsx"
	"voxlate/internal/ports"
)

func TestFFMPEGCaptureProducesFloatBlocks(t *testing.T) {
	t.Parallel()

	// Four samples: 0x4000, 0xC000, 0x7FFF, 0x0000 little-endian.
	script := writeScript(t, "capture.sh", "#!/usr/bin/env bash\nprintf '\\x00\\x40\\x00\\xc0\\xff\\x7f\\x00\\x00'\nsleep 2\n")
	capture := NewFFMPEGCapture(script, zerolog.Nop())

	handle, err := capture.Start(context.Background(), ports.AudioConfig{BlockSize: 2})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	var got []float32
	deadline := time.After(2 * time.Second)
	for len(got) < 4 {
		select {
		case block := <-handle.Blocks():
			if len(block) != 2 {
				t.Fatalf("expected block of 2 samples, got %d", len(block))
			}
			got = append(got, block...)
		case <-deadline:
			t.Fatalf("timed out waiting for blocks, got %v", got)
		}
	}

	want := []float32{0.5, -0.5, 32767.0 / 32768, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}

	if err := handle.Stop(); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if err := handle.Stop(); err != nil {
		t.Fatalf("second stop failed: %v", err)
	}
	if _, ok := <-handle.Blocks(); ok {
		t.Fatalf("expected blocks channel closed after stop")
	}
	if handle.Level() != 0 {
		t.Fatalf("expected level reset after stop, got %v", handle.Level())
	}
}

func TestFFMPEGCaptureDownmixesStereo(t *testing.T) {
	t.Parallel()

	// Two stereo frames: (0x4000, 0xC000) and (0x4000, 0x4000).
	script := writeScript(t, "stereo.sh", "#!/usr/bin/env bash\nprintf '\\x00\\x40\\x00\\xc0\\x00\\x40\\x00\\x40'\nsleep 2\n")
	capture := NewFFMPEGCapture(script, zerolog.Nop())

	handle, err := capture.Start(context.Background(), ports.AudioConfig{BlockSize: 2, Channels: 2})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer handle.Stop()

	select {
	case block := <-handle.Blocks():
		if len(block) != 2 || block[0] != 0 || block[1] != 0.5 {
			t.Fatalf("expected mono block [0 0.5], got %v", block)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for block")
	}
}

func TestDecodePCM16CarriesPartialFrames(t *testing.T) {
	t.Parallel()

	handle := newCaptureHandle(1, zerolog.Nop(), captureHooks{})
	reader := iotest.OneByteReader(bytes.NewReader([]byte{0x00, 0x40, 0x00, 0x40}))
	if err := decodePCM16(reader, 2, handle); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF, got %v", err)
	}
	select {
	case block := <-handle.Blocks():
		if len(block) != 1 || block[0] != 0.5 {
			t.Fatalf("unexpected block: %v", block)
		}
	default:
		t.Fatalf("expected one mono block")
	}
	_ = handle.Stop()
}

func TestFFMPEGCaptureExitMidSessionClosesBlocks(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "unplug.sh", "#!/usr/bin/env bash\nsleep 0.5\necho 'input device unplugged' 1>&2\nexit 1\n")
	capture := NewFFMPEGCapture(script, zerolog.Nop())

	handle, err := capture.Start(context.Background(), ports.AudioConfig{})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}

	select {
	case _, ok := <-handle.Blocks():
		if ok {
			t.Fatalf("expected no audio from the script")
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("expected blocks channel to close after ffmpeg exited")
	}

	if err := handle.Err(); err == nil || !errorsx.Is(err, errorsx.ReasonDevice) {
		t.Fatalf("expected device loss error, got %v", err)
	}
	if err := handle.Stop(); err != nil {
		t.Fatalf("stop after exit failed: %v", err)
	}
}

func TestFFMPEGCaptureStartEarlyExit(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "fail.sh", "#!/usr/bin/env bash\necho 'boom' 1>&2\nexit 1\n")
	capture := NewFFMPEGCapture(script, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := capture.Start(ctx, ports.AudioConfig{})
	if err == nil {
		t.Fatalf("expected early exit error")
	}
	if !strings.Contains(err.Error(), "exited before capture started") {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errorsx.Is(err, errorsx.ReasonDevice) {
		t.Fatalf("expected device reason, got %q", errorsx.ReasonOf(err))
	}
}

func TestFFMPEGCapturePermissionDenied(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "denied.sh", "#!/usr/bin/env bash\necho 'default: Permission denied' 1>&2\nexit 1\n")
	capture := NewFFMPEGCapture(script, zerolog.Nop())

	_, err := capture.Start(context.Background(), ports.AudioConfig{})
	if !errorsx.Is(err, errorsx.ReasonPermission) {
		t.Fatalf("expected permission reason, got %v", err)
	}
}

func TestFFMPEGCaptureMissingBinaryIsDeviceError(t *testing.T) {
	t.Parallel()

	capture := NewFFMPEGCapture(filepath.Join(t.TempDir(), "missing-ffmpeg"), zerolog.Nop())
	_, err := capture.Start(context.Background(), ports.AudioConfig{})
	if err == nil {
		t.Fatalf("expected start error")
	}
	if !errorsx.Is(err, errorsx.ReasonDevice) {
		t.Fatalf("expected device reason, got %q", errorsx.ReasonOf(err))
	}
}

func TestNormalizeStopErrExitErrorIsIgnored(t *testing.T) {
	t.Parallel()

	err := exec.Command("bash", "-lc", "exit 1").Run()
	if err == nil {
		t.Fatalf("expected command to fail")
	}
	if got := normalizeStopErr(err); got != nil {
		t.Fatalf("expected nil for exit error, got %v", got)
	}
}

func TestStringsTrimSpaceSafe(t *testing.T) {
	t.Parallel()

	if got := stringsTrimSpaceSafe("  hi\n"); got != "hi" {
		t.Fatalf("unexpected trim result: %q", got)
	}
}

func writeScript(t *testing.T, name string, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o700); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}
