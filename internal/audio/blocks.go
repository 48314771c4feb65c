package audio

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"voxlate/internal/errorsx"
)

const (
	DefaultSampleRate = 16000
	DefaultBlockSize  = 4096
	meterInterval     = 16 * time.Millisecond
)

// framer groups arbitrary sample runs into fixed-size blocks.
type framer struct {
	size    int
	pending []float32
}

func newFramer(size int) *framer {
	if size <= 0 {
		size = DefaultBlockSize
	}
	return &framer{size: size, pending: make([]float32, 0, size)}
}

// push appends samples and returns every completed block.
func (f *framer) push(samples []float32) [][]float32 {
	var blocks [][]float32
	for len(samples) > 0 {
		n := f.size - len(f.pending)
		if n > len(samples) {
			n = len(samples)
		}
		f.pending = append(f.pending, samples[:n]...)
		samples = samples[n:]
		if len(f.pending) == f.size {
			blocks = append(blocks, f.pending)
			f.pending = make([]float32, 0, f.size)
		}
	}
	return blocks
}

// captureHooks are the backend's part of Stop. interrupt unblocks a
// producer waiting on the backend and runs before the producer is awaited;
// release frees the backend and runs only after the producer has exited.
type captureHooks struct {
	interrupt func() error
	release   func() error
}

// captureHandle is the shared ports.CaptureHandle implementation. Backends
// feed samples through publish from a single producer goroutine.
type captureHandle struct {
	logger  zerolog.Logger
	framer  *framer
	meter   *Meter
	blocks  chan []float32
	stopped chan struct{}
	hooks   captureHooks

	producerWG sync.WaitGroup
	meterDone  chan struct{}
	blocksOnce sync.Once
	stopOnce   sync.Once
	stopErr    error

	errMu   sync.Mutex
	lostErr error
}

func newCaptureHandle(blockSize int, logger zerolog.Logger, hooks captureHooks) *captureHandle {
	h := &captureHandle{
		logger:    logger,
		framer:    newFramer(blockSize),
		meter:     NewMeter(),
		blocks:    make(chan []float32, 16),
		stopped:   make(chan struct{}),
		hooks:     hooks,
		meterDone: make(chan struct{}),
	}
	go h.meterLoop()
	return h
}

func (h *captureHandle) Blocks() <-chan []float32 {
	return h.blocks
}

func (h *captureHandle) Level() float64 {
	return h.meter.Level()
}

// Err reports why capture ended without Stop being called.
func (h *captureHandle) Err() error {
	h.errMu.Lock()
	defer h.errMu.Unlock()
	return h.lostErr
}

// publish feeds the meter and forwards completed blocks. It returns false
// once the handle is stopping.
func (h *captureHandle) publish(samples []float32) bool {
	if h.isStopping() {
		return false
	}
	h.meter.Feed(samples)
	for _, block := range h.framer.push(samples) {
		select {
		case h.blocks <- block:
		case <-h.stopped:
			return false
		}
	}
	return true
}

// runProducer starts the goroutine that owns the blocks channel writes.
// When it returns before Stop, the capture is lost: the error is recorded
// and Blocks is closed.
func (h *captureHandle) runProducer(produce func() error) {
	h.producerWG.Add(1)
	go func() {
		defer h.producerWG.Done()
		err := produce()
		if !h.isStopping() {
			if err == nil {
				err = errors.New("capture stream ended")
			}
			err = errorsx.Wrap(err, errorsx.ReasonDevice)
			h.errMu.Lock()
			h.lostErr = err
			h.errMu.Unlock()
			h.logger.Warn().Err(err).Msg("capture ended unexpectedly")
		}
		h.closeBlocks()
	}()
}

func (h *captureHandle) closeBlocks() {
	h.blocksOnce.Do(func() { close(h.blocks) })
}

func (h *captureHandle) isStopping() bool {
	select {
	case <-h.stopped:
		return true
	default:
		return false
	}
}

func (h *captureHandle) meterLoop() {
	defer close(h.meterDone)
	ticker := time.NewTicker(meterInterval)
	defer ticker.Stop()
	for {
		select {
		case <-h.stopped:
			return
		case <-ticker.C:
			h.meter.Update()
		}
	}
}

// Stop interrupts the backend, waits for the producer to exit, then
// releases the backend and closes Blocks.
func (h *captureHandle) Stop() error {
	h.stopOnce.Do(func() {
		close(h.stopped)
		<-h.meterDone
		if h.hooks.interrupt != nil {
			h.stopErr = h.hooks.interrupt()
		}
		h.producerWG.Wait()
		if h.hooks.release != nil {
			if err := h.hooks.release(); err != nil && h.stopErr == nil {
				h.stopErr = err
			}
		}
		h.closeBlocks()
		h.meter.Reset()
		if h.stopErr != nil {
			h.logger.Warn().Err(h.stopErr).Msg("capture stopped with error")
		}
	})
	return h.stopErr
}
