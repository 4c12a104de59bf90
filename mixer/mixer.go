// SPDX-License-Identifier: EPL-2.0

package mixer

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/ik5/medley/deck"
	"github.com/ik5/medley/utils"
)

const pauseRampFrames = 256

// PostProcessor is the black-box DSP stage (equaliser, limiter, and the
// like) invoked in place on every mixed block. It is out of scope to
// implement concretely; Mixer only needs the contract.
type PostProcessor interface {
	Process(buf []float32, channels int)
}

// LevelSink receives the fully mixed, post-processed block for metering.
// levels.Tracker satisfies this.
type LevelSink interface {
	Process(buf []float32)
}

// Config configures a Mixer at construction time.
type Config struct {
	Decks      []*deck.Deck
	Channels   int
	BlockSize  int // samples (interleaved), used to pre-size the scratch buffer
	Post       PostProcessor
	Tracker    LevelSink
	Logger     zerolog.Logger
}

// Mixer is the summing stage for both decks. It is pulled by the device callback; its
// NextBlock method is the only one called from the audio thread and must
// never allocate once running (Design Notes, "Audio thread allocation") —
// the scratch buffer is sized at construction/UpdateAudioConfig; NextBlock
// allocates only as a one-off fallback when handed a block larger than it.
type Mixer struct {
	logger zerolog.Logger

	mu       sync.RWMutex
	post     PostProcessor
	track    LevelSink
	decks    []*deck.Deck
	channels int
	scratch  []float32

	stateMu sync.Mutex
	paused  bool
	stalled bool
}

// New constructs a Mixer. cfg.BlockSize defaults to 4096 samples.
func New(cfg Config) *Mixer {
	if cfg.Channels < 1 {
		cfg.Channels = 2
	}
	if cfg.BlockSize < 1 {
		cfg.BlockSize = 4096
	}

	return &Mixer{
		logger:   cfg.Logger,
		post:     cfg.Post,
		track:    cfg.Tracker,
		decks:    append([]*deck.Deck(nil), cfg.Decks...),
		channels: cfg.Channels,
		scratch:  make([]float32, cfg.BlockSize),
	}
}

// UpdateAudioConfig reconfigures the mixer for a new device format: it allocates the
// new scratch buffer here, on the caller's thread, then swaps the pointer
// in under a brief write lock so the audio thread never allocates. Callers
// must invoke this from the control thread, never from inside NextBlock.
func (m *Mixer) UpdateAudioConfig(channels, blockSize int) {
	if channels < 1 {
		channels = 1
	}
	if blockSize < 1 {
		blockSize = 4096
	}
	scratch := make([]float32, blockSize)

	m.mu.Lock()
	m.channels = channels
	m.scratch = scratch
	m.mu.Unlock()
}

// SetTracker swaps the level sink under the same lock UpdateAudioConfig
// uses, so a device change that also changes channel count can hand the
// mixer a freshly sized Tracker without racing NextBlock.
func (m *Mixer) SetTracker(track LevelSink) {
	m.mu.Lock()
	m.track = track
	m.mu.Unlock()
}

// SetPaused flips the pause flag read by NextBlock. The actual fade ramp
// and the stalled transition happen inside the next NextBlock call, never
// here, so this is safe to call from the control thread at any time.
func (m *Mixer) SetPaused(paused bool) {
	m.stateMu.Lock()
	m.paused = paused
	m.stateMu.Unlock()
}

// TogglePause flips the pause flag and returns the new state, matching the
// engine's public togglePause() -> bool.
func (m *Mixer) TogglePause() bool {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	m.paused = !m.paused
	return m.paused
}

// Paused reports the current pause flag.
func (m *Mixer) Paused() bool {
	m.stateMu.Lock()
	defer m.stateMu.Unlock()
	return m.paused
}

// NextBlock is the mixer's contribution to one audio callback: sum
// deck output, run the pause ramp, invoke the post-processor, feed the
// level tracker. Never blocks and never allocates on its steady-state path.
func (m *Mixer) NextBlock(dst []float32) {
	m.mu.RLock()
	decks := m.decks
	channels := m.channels
	scratch := m.scratch
	post := m.post
	track := m.track
	m.mu.RUnlock()

	m.stateMu.Lock()
	paused := m.paused
	stalled := m.stalled
	m.stateMu.Unlock()

	if paused && stalled {
		zero(dst)
		m.finish(dst, channels, post, track)
		return
	}

	zero(dst)
	if len(scratch) < len(dst) {
		// Configuration mismatch: the device is pulling larger blocks than
		// UpdateAudioConfig last sized for. Not reachable when Engine keeps
		// the two in sync; falling back to a one-off allocation here beats
		// corrupting memory or silently truncating the block.
		scratch = make([]float32, len(dst))
	}
	buf := scratch[:len(dst)]
	for _, d := range decks {
		d.NextBlock(buf)
		sumInto(dst, buf)
	}

	frames := len(dst) / channels
	ramp := pauseRampFrames
	if ramp > frames {
		ramp = frames
	}

	switch {
	case paused && !stalled:
		utils.ApplyStopRamp(dst, channels, ramp)
		m.stateMu.Lock()
		m.stalled = true
		m.stateMu.Unlock()
	case !paused && stalled:
		utils.ApplyStartRamp(dst, channels, ramp)
		m.stateMu.Lock()
		m.stalled = false
		m.stateMu.Unlock()
	}

	m.finish(dst, channels, post, track)
}

// finish runs the post-processor (guarded against a panic, since a
// misbehaving plugin must never take down the audio thread) and feeds the
// level tracker.
func (m *Mixer) finish(dst []float32, channels int, post PostProcessor, track LevelSink) {
	if post != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error().Interface("panic", r).Msg("mixer: post-processor panicked, replacing block with silence")
					zero(dst)
				}
			}()
			post.Process(dst, channels)
		}()
	}

	if track != nil {
		track.Process(dst)
	}
}

func zero(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}

func sumInto(dst, src []float32) {
	for i := range dst {
		dst[i] += src[i]
	}
}
