// SPDX-License-Identifier: EPL-2.0

// Package deck implements a single playback channel: it composes a track
// loader, a buffering reader, and a resampler into one swappable chain, and
// owns the playback state and derived transition offsets the transition
// controller reads.
//
// It is grounded on TrackBuffer (TrackBuffer.cpp/.h in the original
// engine), which plays the same role — this package keeps its public
// surface (loadTrack/unloadTrack/start/stop/setPosition/setVolume/fadeOut)
// and its audio-block production algorithm, adapted to Go's concurrency
// primitives and to audio.Source's forward-only decode model.
package deck

import (
	"io"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ik5/medley/audio"
	"github.com/ik5/medley/internal/worker"
	"github.com/ik5/medley/loader"
	"github.com/ik5/medley/scanner"
	"github.com/ik5/medley/utils"
)

// Config configures a Deck at construction time.
type Config struct {
	Name               string
	Registry           *audio.Registry
	LoadPool           *worker.Pool
	ReadAheadPool      *worker.Pool
	DeviceSampleRate   int
	Channels           int
	MaxTransitionTime  float64 // seconds, caps how far after transition_start transition_end may fall
	MaxLeadingDuration float64 // seconds, caps forced-fadeout repositioning
	MinTrailingDuration float64 // seconds, the "configured floor" in transition_cue
	Logger             zerolog.Logger
}

// Deck is one playback channel. The zero value is not usable; construct
// with New.
type Deck struct {
	id   uuid.UUID
	name string
	cfg  Config
	obs  Observer

	scanner   *scanner.Scanner
	loader    *loader.Loader
	scanSched *loader.ScanScheduler

	mu    sync.Mutex // the "callback lock": guards chain swaps and the flag bundle below
	chain *chain
	playing  bool
	stopped  bool
	inputEOF bool
	isMain   bool
	isLoading bool

	position   *utils.AtomicFloat64 // seconds elapsed in the current track
	lastGain   *utils.AtomicFloat64
	targetGain *utils.AtomicFloat64
}

// New constructs a Deck. obs may be nil, in which case events are dropped.
func New(cfg Config, obs Observer) *Deck {
	if obs == nil {
		obs = NopObserver{}
	}
	if cfg.Channels < 1 {
		cfg.Channels = 2
	}

	d := &Deck{
		id:         uuid.New(),
		name:       cfg.Name,
		cfg:        cfg,
		obs:        obs,
		scanner:    scanner.New(cfg.Registry, cfg.Logger),
		position:   utils.NewAtomicFloat64(0),
		lastGain:   utils.NewAtomicFloat64(1),
		targetGain: utils.NewAtomicFloat64(1),
	}
	d.loader = loader.New(cfg.LoadPool, d.runLoad)
	d.scanSched = loader.NewScanScheduler(cfg.LoadPool, d.runScan)
	return d
}

// ID returns the deck's stable identity, a UUID assigned by New.
func (d *Deck) ID() uuid.UUID { return d.id }

// Name returns the deck's configured name ("Deck A"/"Deck B").
func (d *Deck) Name() string { return d.name }

// IsMain reports whether the engine has marked this deck as main.
func (d *Deck) IsMain() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.isMain
}

// SetMain is called by the engine's main-deck queue reconciliation.
func (d *Deck) SetMain(main bool) {
	d.mu.Lock()
	d.isMain = main
	d.mu.Unlock()
}

// HasTrack reports whether a chain is currently loaded.
func (d *Deck) HasTrack() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.chain != nil
}

// IsPlaying reports the deck's playing flag.
func (d *Deck) IsPlaying() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.playing
}

// PositionSeconds returns the current playback position.
func (d *Deck) PositionSeconds() float64 { return d.position.Load() }

// CanLoad reports whether the registry holds a decoder for path's
// extension, without touching the filesystem. TransitionController calls
// this before handing a queue entry to LoadTrack so its loadNextTrack loop
// can skip an obviously unplayable entry synchronously, on the
// same thread that observed the cue point, rather than discovering the
// failure only after a deferred, silently-dropped load on the pool.
func (d *Deck) CanLoad(path string) bool {
	_, ok := decoderForPath(d.cfg.Registry, path)
	return ok
}

// SetMaxTransitionTime updates the max-transition-time ceiling future scans
// use to derive transition_end. Takes effect on the next completed
// scan; the currently loaded track's offsets, if already scanned, are left
// alone.
func (d *Deck) SetMaxTransitionTime(seconds float64) {
	d.mu.Lock()
	d.cfg.MaxTransitionTime = seconds
	d.mu.Unlock()
}

// SetMinTrailingDuration updates the configured floor used to derive
// transition_cue. Same timing caveat as SetMaxTransitionTime.
func (d *Deck) SetMinTrailingDuration(seconds float64) {
	d.mu.Lock()
	d.cfg.MinTrailingDuration = seconds
	d.mu.Unlock()
}

// LoadTrack queues path for loading on the shared loading pool; a
// second call before the first completes replaces it.
func (d *Deck) LoadTrack(path string, play bool) {
	d.mu.Lock()
	d.isLoading = true
	d.mu.Unlock()
	d.loader.Load(loader.Request{Path: path, Play: play})
}

// runLoad is TrackBuffer::loadTrackInternal, run on the loading pool.
func (d *Deck) runLoad(req loader.Request) {
	c, err := openChain(d.cfg, req.Path, 0)
	if err != nil {
		d.cfg.Logger.Warn().Err(err).Str("path", req.Path).Msg("deck: load failed")
		d.mu.Lock()
		d.isLoading = false
		d.mu.Unlock()
		return
	}

	d.mu.Lock()
	prev := d.chain
	d.chain = c
	d.playing = false
	d.stopped = false
	d.inputEOF = false
	d.isLoading = false
	d.mu.Unlock()

	if prev != nil {
		prev.close()
	}

	d.position.Store(0)
	d.lastGain.Store(1)
	d.targetGain.Store(1)

	d.obs.OnLoaded(d)

	if req.Play {
		d.Start()
	}

	d.obs.OnTrackScanning(d)
	d.scanSched.Scan(req.Path)
}

// runScan is TrackScanningScheduler::useTimeSlice's body: it runs a full
// scan and, if the deck hasn't since moved on to a different track,
// installs the results.
//
// If the scan found a nonzero first-audible offset and nothing has
// consumed a sample yet, the chain is reopened at that offset so playback
// actually starts there: skipFrames on a still-unread source causes no
// jitter, unlike reseeking a reader that read-ahead has already filled.
// Once playback has started, the original 0-offset chain is kept as-is —
// re-seeking a live reader is exactly what the Scanner/Loader Decoupling
// design note rules out.
func (d *Deck) runScan(path string) {
	offsets, err := d.scanner.Scan(path)
	if err != nil {
		d.cfg.Logger.Debug().Err(err).Str("path", path).Msg("deck: scan failed, keeping fallback offsets")
		return
	}

	d.mu.Lock()
	c := d.chain
	if c == nil || c.path != path {
		d.mu.Unlock()
		return // superseded: unloadTrack swapped the chain out from under this scan
	}
	canReopen := offsets.FirstAudible > 0 && c.firstAudible == 0 && !d.playing && d.position.Load() == 0
	d.mu.Unlock()

	if canReopen {
		reopened, err := openChain(d.cfg, path, offsets.FirstAudible)
		if err != nil {
			d.cfg.Logger.Warn().Err(err).Str("path", path).Msg("deck: reopen at first-audible failed, keeping offset 0")
		} else {
			d.mu.Lock()
			if d.chain == c && !d.playing && d.position.Load() == 0 {
				d.chain = reopened
				d.mu.Unlock()
				c.close()
				c = reopened
			} else {
				d.mu.Unlock()
				reopened.close()
				return // superseded or started while reopening; drop the reseeked chain
			}
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.chain != c {
		return // superseded while scanning/reopening
	}
	c.applyScan(d.cfg, offsets)
	d.obs.OnTrackScanned(d)
}

// UnloadTrack releases the loaded chain and fires unloaded.
func (d *Deck) UnloadTrack() {
	d.unloadInternal()
}

func (d *Deck) unloadInternal() {
	d.scanSched.Cancel()

	d.mu.Lock()
	c := d.chain
	d.chain = nil
	d.playing = false
	d.stopped = true
	d.inputEOF = false
	d.mu.Unlock()

	if c == nil {
		return
	}
	c.close()
	d.obs.OnUnloaded(d)
}

// Start sets the playing flag; a no-op if nothing is loaded.
func (d *Deck) Start() {
	d.mu.Lock()
	if d.chain == nil {
		d.mu.Unlock()
		return
	}
	d.playing = true
	d.stopped = false
	d.inputEOF = false
	d.mu.Unlock()
	d.obs.OnStarted(d)
}

// Stop cooperatively clears playing and waits up to ~1s for the audio
// thread to observe it via the stopped flag.
func (d *Deck) Stop() bool {
	d.mu.Lock()
	d.playing = false
	d.mu.Unlock()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		d.mu.Lock()
		stopped := d.stopped
		d.mu.Unlock()
		if stopped {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

// SetVolume schedules a smooth ramp to g over the next audio block.
func (d *Deck) SetVolume(g float64) {
	d.targetGain.Store(utils.ClampF64(g, 0, 1))
}

// Volume returns the deck's current target gain.
func (d *Deck) Volume() float64 { return d.targetGain.Load() }

// FadeOut requests an immediate stop with the standard fade-out ramp. The
// forced-fadeout counter and queue-empty bypass live in
// the transition package, which owns cross-deck coordination; this is the
// per-deck mechanism it drives.
func (d *Deck) FadeOut() {
	d.Stop()
}

// SetPosition repositions playback. audio.Source has no random-access seek,
// so only forward motion is honored by discarding samples up to the target;
// a request to move backward is logged and ignored (Open Question,
// documented in DESIGN.md).
func (d *Deck) SetPosition(seconds float64) {
	d.mu.Lock()
	c := d.chain
	cur := d.position.Load()
	d.mu.Unlock()
	if c == nil {
		return
	}

	if seconds < cur {
		d.cfg.Logger.Warn().Float64("current", cur).Float64("requested", seconds).
			Msg("deck: backward seek is not supported, ignoring")
		return
	}

	deltaFrames := int64((seconds - cur) * float64(d.cfg.DeviceSampleRate))
	discardFrames(c, deltaFrames, d.cfg.Channels)
	c.resampler.Flush()
	d.position.Store(seconds)
}

// discardFrames reads and throws away up to frames frames from c's
// resampler, stopping early on EOF.
func discardFrames(c *chain, frames int64, channels int) {
	if frames <= 0 || channels < 1 {
		return
	}
	buf := make([]float32, 4096*channels)
	remaining := frames
	for remaining > 0 {
		want := buf
		if n := remaining * int64(channels); n < int64(len(want)) {
			want = buf[:n]
		}
		n, err := c.resampler.ReadSamples(want)
		remaining -= int64(n) / int64(channels)
		if err != nil {
			return
		}
		if n == 0 {
			return
		}
	}
}

// NextBlock is the deck's contribution to one mixer cycle. It must never
// block.
//
// Only an externally-initiated stop (Stop(), or a load/unload racing the
// audio thread) gets the 256-sample taper, matching
// TrackBuffer::getNextAudioBlock: that caller flips playing between two
// NextBlock calls with real audio still sitting unplayed in the chain, so
// the taper has something to fade from. A naturally exhausted source has
// nothing left to taper — the block where EOF or end-of-playout is first
// observed plays out in full at its normal gain, and stopped goes true
// immediately so the next call is a hard, silent cut one block later.
func (d *Deck) NextBlock(dst []float32) {
	d.mu.Lock()
	c := d.chain
	wasPlaying := d.playing
	stopped := d.stopped
	endOfPlayout := int64(0)
	hasOffsets := false
	if c != nil {
		endOfPlayout = c.endOfPlayout
		hasOffsets = c.scanned
	}
	d.mu.Unlock()

	if c == nil || stopped {
		zeroBuf(dst)
		d.mu.Lock()
		d.stopped = true
		d.mu.Unlock()
		return
	}

	channels := d.cfg.Channels

	if !wasPlaying {
		n, _ := c.resampler.ReadSamples(dst)
		for i := n; i < len(dst); i++ {
			dst[i] = 0
		}
		utils.ApplyStopRamp(dst, channels, 256)

		framesThisBlock := len(dst) / channels
		posSeconds := d.position.Load() + float64(framesThisBlock)/float64(d.cfg.DeviceSampleRate)
		d.position.Store(posSeconds)

		d.mu.Lock()
		d.stopped = true
		d.mu.Unlock()

		d.obs.OnPosition(d, posSeconds)
		d.obs.OnFinished(d)
		d.unloadInternal()
		return
	}

	n, err := c.resampler.ReadSamples(dst)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
	naturalEnd := err == io.EOF

	framesThisBlock := len(dst) / channels
	posSeconds := d.position.Load() + float64(framesThisBlock)/float64(d.cfg.DeviceSampleRate)
	d.position.Store(posSeconds)

	pastEndOfPlayout := hasOffsets && float64(endOfPlayout)/float64(c.sourceSampleRate) <= posSeconds

	stillPlaying := !naturalEnd && !pastEndOfPlayout

	lg := float32(d.lastGain.Load())
	tg := float32(d.targetGain.Load())
	utils.ApplyGainRamp(dst, channels, lg, tg)
	d.lastGain.Store(float64(tg))

	if !stillPlaying {
		d.mu.Lock()
		d.playing = false
		d.stopped = true
		if naturalEnd || pastEndOfPlayout {
			d.inputEOF = true
		}
		d.mu.Unlock()
	}

	d.obs.OnPosition(d, posSeconds)

	if !stillPlaying {
		d.obs.OnFinished(d)
		d.unloadInternal()
	}
}

var posInf = math.Inf(1)

func zeroBuf(buf []float32) {
	for i := range buf {
		buf[i] = 0
	}
}

// LeadingDuration and the transition timestamps are read by the transition
// controller every main-deck position update. The transition timestamps
// return +Inf sentinels until a scan has completed (and while nothing is
// loaded), which naturally prevents the controller from triggering a
// transition on fallback offsets; LeadingDuration returns 0 in those cases.
func (d *Deck) LeadingDuration() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.chain == nil {
		return 0
	}
	return d.chain.leadingDuration
}

func (d *Deck) TransitionPreCue() float64 {
	return d.transitionField(func(c *chain) float64 { return c.transitionPreCue })
}
func (d *Deck) TransitionCue() float64 {
	return d.transitionField(func(c *chain) float64 { return c.transitionCue })
}
func (d *Deck) TransitionStart() float64 {
	return d.transitionField(func(c *chain) float64 { return c.transitionStart })
}
func (d *Deck) TransitionEnd() float64 {
	return d.transitionField(func(c *chain) float64 { return c.transitionEnd })
}

func (d *Deck) transitionField(f func(*chain) float64) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.chain == nil {
		return posInf
	}
	return f(d.chain)
}

// FirstAudibleSeconds returns the scanned (or fallback) first-audible
// offset in seconds; used by the forced-fadeout repositioning rule.
func (d *Deck) FirstAudibleSeconds() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.chain == nil {
		return 0
	}
	return float64(d.chain.firstAudible) / float64(d.chain.sourceSampleRate)
}

// Duration returns the loaded track's total length in seconds, or 0 if
// nothing is loaded or the scan hasn't completed yet.
func (d *Deck) Duration() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.chain == nil || !d.chain.scanned || d.chain.totalSamples == unknownOffset {
		return 0
	}
	return float64(d.chain.totalSamples) / float64(d.chain.sourceSampleRate)
}
