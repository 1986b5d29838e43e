package audio

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2/audio"

	"nesgo/internal/apu"
)

// Player owns the ebiten audio context and the single looping player that
// consumes a Stream. Creating more than one Player per process is an
// ebiten error (only one audio.Context may exist), so callers should keep
// exactly one alive for the process lifetime.
type Player struct {
	context *audio.Context
	player  *audio.Player
	stream  *Stream
}

// NewPlayer creates an ebiten audio context at sampleRate and starts a
// player streaming from a Stream fed by paramsFunc.
func NewPlayer(sampleRate int, paramsFunc func() apu.AudioParams) (*Player, error) {
	if sampleRate <= 0 {
		sampleRate = 44100
	}

	stream := NewStream(paramsFunc)
	ctx := audio.NewContext(sampleRate)

	p, err := ctx.NewPlayer(stream)
	if err != nil {
		return nil, fmt.Errorf("create audio player: %w", err)
	}

	return &Player{context: ctx, player: p, stream: stream}, nil
}

// Start begins playback. The stream never ends, so the player loops
// indefinitely until Close is called.
func (p *Player) Start() {
	p.player.Play()
}

// SetVolume scales the output, where 1.0 is unattenuated.
func (p *Player) SetVolume(volume float64) {
	p.player.SetVolume(volume)
}

// IsPlaying reports whether playback is active.
func (p *Player) IsPlaying() bool {
	return p.player.IsPlaying()
}

// Close stops playback and releases the underlying ebiten player.
func (p *Player) Close() error {
	return p.player.Close()
}
