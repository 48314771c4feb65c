// Package wav builds self-contained 16-bit mono WAV frames from float PCM blocks.
package wav

import (
	"encoding/binary"
	"math"
)

// HeaderSize is the length of the canonical RIFF/WAVE header.
const HeaderSize = 44

const (
	formatPCM     = 1
	channels      = 1
	bitsPerSample = 16
	bytesPerFrame = channels * bitsPerSample / 8
)

// FrameSize returns the encoded length of a block of n samples.
func FrameSize(n int) int {
	return HeaderSize + n*bytesPerFrame
}

// Encode converts float samples in [-1,1] to a single-channel 16-bit WAV buffer.
// Samples outside the range are clamped; NaN encodes as silence.
func Encode(samples []float32, sampleRate int) []byte {
	dataSize := len(samples) * bytesPerFrame
	buf := make([]byte, HeaderSize+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], formatPCM)
	binary.LittleEndian.PutUint16(buf[22:24], channels)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*bytesPerFrame))
	binary.LittleEndian.PutUint16(buf[32:34], bytesPerFrame)
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	offset := HeaderSize
	for _, sample := range samples {
		binary.LittleEndian.PutUint16(buf[offset:offset+2], uint16(PCM16(sample)))
		offset += bytesPerFrame
	}
	return buf
}

// PCM16 converts one float sample to a signed 16-bit value. Negative values
// scale by 0x8000 and non-negative values by 0x7FFF, truncating toward zero.
func PCM16(sample float32) int16 {
	s := float64(sample)
	if math.IsNaN(s) {
		return 0
	}
	s = math.Max(-1, math.Min(1, s))
	if s < 0 {
		return int16(s * 0x8000)
	}
	return int16(s * 0x7FFF)
}
