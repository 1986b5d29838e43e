package audio

import (
	"encoding/binary"
	"testing"

	"nesgo/internal/apu"
)

func TestStreamProducesSilenceWithNoActiveChannels(t *testing.T) {
	s := NewStream(func() apu.AudioParams {
		return apu.AudioParams{SampleRate: 44100}
	})

	buf := make([]byte, bytesPerFrame*8)
	n, err := s.Read(buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("expected %d bytes, got %d", len(buf), n)
	}
	for i := 0; i < n; i += 2 {
		if v := int16(binary.LittleEndian.Uint16(buf[i:])); v != 0 {
			t.Fatalf("expected silence at offset %d, got %d", i, v)
		}
	}
}

func TestStreamProducesNonzeroSamplesWithActivePulse(t *testing.T) {
	s := NewStream(func() apu.AudioParams {
		return apu.AudioParams{
			SampleRate: 44100,
			Pulse0: apu.ChannelParams{
				PeriodSamples:     50,
				PositiveAmplitude: 1.0,
				NegativeAmplitude: -1.0,
				DutyCycle:         2,
				Off:               false,
			},
		}
	})

	buf := make([]byte, bytesPerFrame*32)
	if _, err := s.Read(buf); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sawNonzero := false
	for i := 0; i < len(buf); i += 2 {
		if v := int16(binary.LittleEndian.Uint16(buf[i:])); v != 0 {
			sawNonzero = true
			break
		}
	}
	if !sawNonzero {
		t.Fatal("expected a nonzero sample from an active pulse channel")
	}
}

func TestDutyCycleThresholdCoversAllFourDuties(t *testing.T) {
	want := map[uint8]float64{0: 0.125, 1: 0.25, 2: 0.5, 3: 0.75}
	for duty, threshold := range want {
		if got := dutyCycleThreshold(duty); got != threshold {
			t.Fatalf("duty %d: expected threshold %v, got %v", duty, threshold, got)
		}
	}
}

func TestClampSampleStaysWithinUnitRange(t *testing.T) {
	if v := clampSample(10.0); v != 1.0 {
		t.Fatalf("expected clamp to 1.0, got %v", v)
	}
	if v := clampSample(-10.0); v != -1.0 {
		t.Fatalf("expected clamp to -1.0, got %v", v)
	}
}
