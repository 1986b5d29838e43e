// Package audio renders the APU's published channel parameters into a PCM
// stream ebiten's audio player can consume. It owns no APU state directly;
// it samples AudioParams lock-free on every Read, mirroring the audio task's
// "brief races are acceptable" hand-off model.
package audio

import (
	"encoding/binary"
	"math"

	"nesgo/internal/apu"
)

// bytesPerFrame is 2 channels * 2 bytes (16-bit signed PCM), ebiten's
// native audio format.
const bytesPerFrame = 4

// Stream is an io.Reader producing signed 16-bit stereo PCM by summing
// square0, square1, and triangle oscillators, each driven by the APU's most
// recently published ChannelParams.
type Stream struct {
	params func() apu.AudioParams

	pulse0Phase   float64
	pulse1Phase   float64
	trianglePhase float64
}

// NewStream creates a Stream that samples params on every Read. params is
// typically Emulator.AudioParams, polled lock-free.
func NewStream(params func() apu.AudioParams) *Stream {
	return &Stream{params: params}
}

// Read fills p with interleaved 16-bit stereo samples, advancing each
// channel's phase accumulator by 1/PeriodSamples per sample. Never returns
// an error; silence is produced if no AudioParams have been published yet.
func (s *Stream) Read(p []byte) (int, error) {
	n := len(p) / bytesPerFrame
	params := s.params()

	for i := 0; i < n; i++ {
		sample := s.advance(&s.pulse0Phase, params.Pulse0) +
			s.advance(&s.pulse1Phase, params.Pulse1) +
			s.advanceTriangle(&s.trianglePhase, params.Triangle)

		sample = clampSample(sample)
		v := int16(sample * math.MaxInt16)

		off := i * bytesPerFrame
		binary.LittleEndian.PutUint16(p[off:], uint16(v))
		binary.LittleEndian.PutUint16(p[off+2:], uint16(v))
	}

	return n * bytesPerFrame, nil
}

// advance produces one pulse-wave sample and steps its phase.
func (s *Stream) advance(phase *float64, c apu.ChannelParams) float64 {
	if c.Off || c.PeriodSamples <= 0 {
		return 0
	}

	dutyThreshold := dutyCycleThreshold(c.DutyCycle)
	var sample float64
	if *phase < dutyThreshold {
		sample = c.NegativeAmplitude
	} else {
		sample = c.PositiveAmplitude
	}

	*phase += 1.0 / c.PeriodSamples
	if *phase >= 1.0 {
		*phase -= math.Floor(*phase)
	}
	return sample
}

// advanceTriangle produces one triangle-wave sample using the same
// two-level step formula as the pulse channels, just without a duty
// cycle (the triangle has none): half the period low, half high.
func (s *Stream) advanceTriangle(phase *float64, c apu.ChannelParams) float64 {
	if c.Off || c.PeriodSamples <= 0 {
		return 0
	}

	var sample float64
	if *phase < 0.5 {
		sample = c.NegativeAmplitude
	} else {
		sample = c.PositiveAmplitude
	}

	*phase += 1.0 / c.PeriodSamples
	if *phase >= 1.0 {
		*phase -= math.Floor(*phase)
	}
	return sample
}

// dutyCycleThreshold maps the APU's two-bit duty cycle field to the
// fraction of the period spent at the negative level before the wave
// switches to the positive level (12.5%, 25%, 50%, 75%).
func dutyCycleThreshold(duty uint8) float64 {
	switch duty & 0x3 {
	case 0:
		return 0.125
	case 1:
		return 0.25
	case 2:
		return 0.5
	default:
		return 0.75
	}
}

func clampSample(v float64) float64 {
	const mixGain = 0.25
	v *= mixGain
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}
