package audio

import (
	"math"
	"math/cmplx"
	"sync"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

const (
	meterFFTSize   = 256
	meterSmoothing = 0.8
	meterMinDB     = -100.0
	meterMaxDB     = -30.0
	meterGain      = 1.5
)

// Meter turns recent samples into a 0..100 input level using a smoothed
// frequency-domain analysis over the last meterFFTSize samples.
type Meter struct {
	mu       sync.Mutex
	ring     []float64
	next     int
	smoothed []float64
	window   []float64
	level    float64
}

func NewMeter() *Meter {
	return &Meter{
		ring:     make([]float64, meterFFTSize),
		smoothed: make([]float64, meterFFTSize/2),
		window:   window.Blackman(meterFFTSize),
	}
}

// Feed appends samples to the analysis window.
func (m *Meter) Feed(samples []float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range samples {
		m.ring[m.next] = float64(s)
		m.next++
		if m.next == len(m.ring) {
			m.next = 0
		}
	}
}

// Update recomputes the level from the current window and returns it.
func (m *Meter) Update() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	frame := make([]float64, meterFFTSize)
	for i := range frame {
		frame[i] = m.ring[(m.next+i)%meterFFTSize] * m.window[i]
	}
	spectrum := fft.FFTReal(frame)

	var sum float64
	for k := range m.smoothed {
		magnitude := cmplx.Abs(spectrum[k]) / meterFFTSize
		m.smoothed[k] = meterSmoothing*m.smoothed[k] + (1-meterSmoothing)*magnitude
		sum += byteLevel(m.smoothed[k])
	}

	average := sum / float64(len(m.smoothed))
	m.level = clampLevel(average * meterGain)
	return m.level
}

// Level returns the most recently computed level.
func (m *Meter) Level() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.level
}

// Reset zeroes the meter.
func (m *Meter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.ring {
		m.ring[i] = 0
	}
	for i := range m.smoothed {
		m.smoothed[i] = 0
	}
	m.next = 0
	m.level = 0
}

// byteLevel maps a linear magnitude into 0..255 across the decibel range.
func byteLevel(magnitude float64) float64 {
	if magnitude <= 0 {
		return 0
	}
	db := 20 * math.Log10(magnitude)
	scaled := 255 * (db - meterMinDB) / (meterMaxDB - meterMinDB)
	return math.Max(0, math.Min(255, scaled))
}

func clampLevel(level float64) float64 {
	if math.IsNaN(level) || level < 0 {
		return 0
	}
	if level > 100 {
		return 100
	}
	return level
}
