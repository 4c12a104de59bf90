// SPDX-License-Identifier: EPL-2.0

package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/ik5/medley/audio"
	"github.com/ik5/medley/config"
	"github.com/ik5/medley/deck"
	"github.com/ik5/medley/device"
	"github.com/ik5/medley/internal/worker"
	"github.com/ik5/medley/levels"
	"github.com/ik5/medley/mixer"
	"github.com/ik5/medley/queue"
	"github.com/ik5/medley/transition"
	"github.com/ik5/medley/utils"
)

// ErrMissingCollaborator is returned by New when a required Config field
// is nil.
var ErrMissingCollaborator = errors.New("engine: Queue, Registry, and Device are required")

// Config configures an Engine at construction time.
type Config struct {
	Queue      queue.Queue
	Registry   *audio.Registry
	Device     device.Device
	Settings   config.Config // zero value means config.Default()
	Registerer prometheus.Registerer
	Logger     zerolog.Logger
}

// Engine is the public facade: two decks, a mixer, the transition controller,
// the output device, and the background worker pools, wired together and
// driven from the device's callback.
type Engine struct {
	logger   zerolog.Logger
	settings config.Config

	deckA, deckB *deck.Deck
	mixer        *mixer.Mixer
	controller   *transition.Controller
	device       device.Device
	tracker      *levels.Tracker

	loadPool      *worker.Pool
	readAheadPool *worker.Pool

	deckFinishedTotal prometheus.Counter
	transitionTotal   prometheus.Counter

	mu          sync.Mutex
	keepPlaying bool

	mainMu   sync.Mutex
	mainDeck *deck.Deck

	listenersMu sync.Mutex
	listeners   []Listener

	levelSnapshot []*utils.AtomicFloat64
	peakSnapshot  []*utils.AtomicFloat64

	stopVis chan struct{}
	visDone chan struct{}
}

// New constructs and starts an Engine: it opens cfg.Device, wires both
// decks and the mixer, and begins pulling audio blocks immediately. The
// queue is not consulted until Play is called.
func New(cfg Config) (*Engine, error) {
	if cfg.Queue == nil || cfg.Registry == nil || cfg.Device == nil {
		return nil, ErrMissingCollaborator
	}

	settings := cfg.Settings
	if settings == (config.Config{}) {
		settings = config.Default()
	}

	if err := cfg.Device.Open(settings.DeviceSampleRate, settings.DeviceChannels, settings.DeviceBufferSize); err != nil {
		return nil, fmt.Errorf("engine: opening device: %w", err)
	}

	e := &Engine{
		logger:        cfg.Logger,
		settings:      settings,
		device:        cfg.Device,
		loadPool:      worker.NewPool(settings.LoadingPoolSize, 4),
		readAheadPool: worker.NewPool(settings.ReadAheadPoolSize, 4),
		stopVis:       make(chan struct{}),
		visDone:       make(chan struct{}),
	}

	for ch := 0; ch < settings.DeviceChannels; ch++ {
		e.levelSnapshot = append(e.levelSnapshot, utils.NewAtomicFloat64(0))
		e.peakSnapshot = append(e.peakSnapshot, utils.NewAtomicFloat64(0))
	}

	deckCfg := deck.Config{
		Registry:           cfg.Registry,
		LoadPool:           e.loadPool,
		ReadAheadPool:      e.readAheadPool,
		DeviceSampleRate:   settings.DeviceSampleRate,
		Channels:           settings.DeviceChannels,
		MaxTransitionTime:  settings.MaxTransitionTime,
		MaxLeadingDuration: settings.MaxLeadingDuration,
		Logger:             cfg.Logger,
	}
	deckACfg, deckBCfg := deckCfg, deckCfg
	deckACfg.Name, deckBCfg.Name = "Deck A", "Deck B"
	e.deckA = deck.New(deckACfg, e)
	e.deckB = deck.New(deckBCfg, e)

	e.tracker = levels.New(settings.DeviceChannels, cfg.Device.OutputLatencySamples(), settings.DeviceBufferSize, cfg.Registerer)

	e.mixer = mixer.New(mixer.Config{
		Decks:     []*deck.Deck{e.deckA, e.deckB},
		Channels:  settings.DeviceChannels,
		BlockSize: settings.DeviceBufferSize * settings.DeviceChannels,
		Tracker:   e.tracker,
		Logger:    cfg.Logger,
	})

	e.controller = transition.New(transition.Config{
		DeckA:              e.deckA,
		DeckB:              e.deckB,
		Queue:              queueAdapter{cfg.Queue},
		MaxLeadingDuration: settings.MaxLeadingDuration,
		FadingCurve:        settings.FadingCurve,
		Logger:             cfg.Logger,
		OnPreCueNext:       e.firePreCueNext,
		OnTransit:          e.onTransit,
	})

	if cfg.Registerer != nil {
		e.deckFinishedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medley",
			Subsystem: "engine",
			Name:      "deck_finished_total",
			Help:      "Number of times a deck reached natural end of playout.",
		})
		e.transitionTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "medley",
			Subsystem: "engine",
			Name:      "transition_total",
			Help:      "Number of Cued->Transit edges the controller has driven.",
		})
		cfg.Registerer.MustRegister(e.deckFinishedTotal, e.transitionTotal)
	}

	if err := cfg.Device.Start(e.audioCallback); err != nil {
		return nil, fmt.Errorf("engine: starting device: %w", err)
	}

	go e.runVisualisation(settings.DeviceChannels)

	return e, nil
}

func (e *Engine) audioCallback(buf []float32, numFrames int) {
	e.mixer.NextBlock(buf)
}

func (e *Engine) runVisualisation(channels int) {
	defer close(e.visDone)

	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopVis:
			return
		case <-ticker.C:
			for ch := 0; ch < channels; ch++ {
				e.levelSnapshot[ch].Store(e.tracker.Level(ch))
				e.peakSnapshot[ch].Store(e.tracker.PeakLevel(ch))
			}
		}
	}
}

// Play begins playback if no deck is currently playing: it sets
// keep-playing, unpauses the mixer, and loads the next queue entry with
// play-on-load.
func (e *Engine) Play() {
	e.mu.Lock()
	e.keepPlaying = true
	e.mu.Unlock()
	e.mixer.SetPaused(false)
	e.reconcilePlayback()
}

// reconcilePlayback is Supplemented Feature 2 (play() re-arm): if the
// engine still considers itself playing but neither deck actually is —
// both finished without a transition because the queue ran dry and then
// gained entries — it re-invokes the loading logic. Play and the
// OnUnloaded observer hook both call this.
func (e *Engine) reconcilePlayback() {
	e.mu.Lock()
	keepPlaying := e.keepPlaying
	e.mu.Unlock()
	if !keepPlaying {
		return
	}
	if e.deckA.IsPlaying() || e.deckB.IsPlaying() {
		return
	}
	e.controller.LoadNext(nil, true)
}

// Stop clears keep-playing and stops and unloads both decks.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.keepPlaying = false
	e.mu.Unlock()

	e.deckA.Stop()
	e.deckB.Stop()
	e.deckA.UnloadTrack()
	e.deckB.UnloadTrack()
}

// TogglePause flips the mixer's pause flag and returns the new state.
func (e *Engine) TogglePause() bool {
	return e.mixer.TogglePause()
}

// FadeOut schedules a forced fade-out on the current main deck.
func (e *Engine) FadeOut() {
	main, _ := e.MainDeck()
	e.controller.ForceFadeOut(main)
}

// Seek repositions the main deck to an absolute offset in seconds.
func (e *Engine) Seek(seconds float64) {
	if main, ok := e.MainDeck(); ok {
		main.SetPosition(seconds)
	}
}

// SeekFractional repositions the main deck to f*duration, f in [0,1].
func (e *Engine) SeekFractional(f float64) {
	main, ok := e.MainDeck()
	if !ok {
		return
	}
	f = utils.ClampF64(f, 0, 1)
	main.SetPosition(main.Duration() * f)
}

// SetPosition is an alias for Seek, matching the original's setPosition.
func (e *Engine) SetPosition(seconds float64) {
	e.Seek(seconds)
}

// Duration returns the main deck's track length in seconds, or 0 if no
// track is loaded or main.
func (e *Engine) Duration() float64 {
	main, ok := e.MainDeck()
	if !ok {
		return 0
	}
	return main.Duration()
}

// GetPositionInSeconds returns the main deck's current playback position.
func (e *Engine) GetPositionInSeconds() float64 {
	main, ok := e.MainDeck()
	if !ok {
		return 0
	}
	return main.PositionSeconds()
}

// SetFadingCurve adjusts the crossfade curve (0..100).
func (e *Engine) SetFadingCurve(curve float64) {
	e.controller.SetFadingCurve(curve)
}

// SetMaxTransitionTime propagates a new transition-end ceiling to both
// decks.
func (e *Engine) SetMaxTransitionTime(seconds float64) {
	e.deckA.SetMaxTransitionTime(seconds)
	e.deckB.SetMaxTransitionTime(seconds)
}

// SetMaxLeadingDuration updates the threshold used by forced-fadeout
// repositioning.
func (e *Engine) SetMaxLeadingDuration(seconds float64) {
	e.controller.SetMaxLeadingDuration(seconds)
}

// GetLevel returns channel ch's decaying RMS level from the
// visualisation thread's low-rate snapshot.
func (e *Engine) GetLevel(ch int) float64 {
	if ch < 0 || ch >= len(e.levelSnapshot) {
		return 0
	}
	return e.levelSnapshot[ch].Load()
}

// GetPeakLevel returns channel ch's decaying peak level from the
// visualisation thread's low-rate snapshot.
func (e *Engine) GetPeakLevel(ch int) float64 {
	if ch < 0 || ch >= len(e.peakSnapshot) {
		return 0
	}
	return e.peakSnapshot[ch].Load()
}

// MainDeck returns the deck currently considered "active" — the one
// position events and seek/duration queries apply to (Supplemented
// Feature: getActiveDeck()).
func (e *Engine) MainDeck() (*deck.Deck, bool) {
	e.mainMu.Lock()
	defer e.mainMu.Unlock()
	if e.mainDeck == nil {
		return nil, false
	}
	return e.mainDeck, true
}

// AddListener registers l to receive engine events.
func (e *Engine) AddListener(l Listener) {
	e.listenersMu.Lock()
	e.listeners = append(e.listeners, l)
	e.listenersMu.Unlock()
}

// RemoveListener deregisters l; a no-op if l was never added.
func (e *Engine) RemoveListener(l Listener) {
	e.listenersMu.Lock()
	defer e.listenersMu.Unlock()
	for i, x := range e.listeners {
		if x == l {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			return
		}
	}
}

func (e *Engine) fireListeners(fn func(Listener)) {
	e.listenersMu.Lock()
	snapshot := append([]Listener(nil), e.listeners...)
	e.listenersMu.Unlock()
	for _, l := range snapshot {
		fn(l)
	}
}

func (e *Engine) firePreCueNext() {
	e.fireListeners(func(l Listener) { l.OnPreCueNext() })
}

// onTransit is the controller's Cued->Transit hook. It only counts the
// transition; main-deck identity is deliberately left alone here. Flipping
// IsMain at this edge would make OnPosition's "!sender.IsMain(): return"
// guard start discarding the outgoing deck's own position callbacks mid-
// transition, freezing its fade-out ramp and starving it of the Stop() call
// at transitionEnd. Main-deck identity changes only on loaded/unloaded,
// matching the FIFO deckQueue the original engine describes.
func (e *Engine) onTransit(next *deck.Deck) {
	if e.transitionTotal != nil {
		e.transitionTotal.Inc()
	}
}

// SetAudioDevice replaces the output device mid-operation: the old device
// is closed, the new one opened with the engine's current format and
// started, the mixer and level tracker are reconfigured for it, and
// listeners are notified via
// OnAudioDeviceChanged. Decks and the transition controller are
// untouched — only the downstream sink changes.
func (e *Engine) SetAudioDevice(d device.Device) error {
	if d == nil {
		return errors.New("engine: SetAudioDevice requires a non-nil device")
	}

	if err := d.Open(e.settings.DeviceSampleRate, e.settings.DeviceChannels, e.settings.DeviceBufferSize); err != nil {
		return fmt.Errorf("engine: opening replacement device: %w", err)
	}

	old := e.device
	e.device = d

	e.tracker = levels.New(e.settings.DeviceChannels, d.OutputLatencySamples(), e.settings.DeviceBufferSize, nil)
	e.mixer.SetTracker(e.tracker)
	e.mixer.UpdateAudioConfig(e.settings.DeviceChannels, e.settings.DeviceBufferSize*e.settings.DeviceChannels)

	if err := d.Start(e.audioCallback); err != nil {
		e.device = old
		return fmt.Errorf("engine: starting replacement device: %w", err)
	}

	if old != nil {
		_ = old.Close()
	}

	e.fireListeners(func(l Listener) { l.OnAudioDeviceChanged() })
	return nil
}

func (e *Engine) otherDeck(d *deck.Deck) *deck.Deck {
	if d == e.deckA {
		return e.deckB
	}
	return e.deckA
}

// Close stops the visualisation thread, unloads both decks, drains the
// worker pools, and closes the device.
func (e *Engine) Close() error {
	close(e.stopVis)
	<-e.visDone

	e.deckA.UnloadTrack()
	e.deckB.UnloadTrack()

	e.loadPool.Close()
	e.readAheadPool.Close()

	return e.device.Close()
}

// --- deck.Observer ---

func (e *Engine) OnLoaded(d *deck.Deck) {
	e.mainMu.Lock()
	if e.mainDeck == nil {
		e.mainDeck = d
		e.mainMu.Unlock()
		d.SetMain(true)
	} else {
		e.mainMu.Unlock()
	}
	e.fireListeners(func(l Listener) { l.OnLoaded(d) })
}

func (e *Engine) OnStarted(d *deck.Deck) {
	e.fireListeners(func(l Listener) { l.OnStarted(d) })
}

func (e *Engine) OnFinished(d *deck.Deck) {
	if e.deckFinishedTotal != nil {
		e.deckFinishedTotal.Inc()
	}
	e.fireListeners(func(l Listener) { l.OnFinished(d) })
}

func (e *Engine) OnUnloaded(d *deck.Deck) {
	e.controller.OnDeckUnloaded(d)

	other := e.otherDeck(d)
	e.mainMu.Lock()
	wasMain := e.mainDeck == d
	if wasMain {
		if other.HasTrack() {
			e.mainDeck = other
		} else {
			e.mainDeck = nil
		}
	}
	e.mainMu.Unlock()

	if wasMain {
		d.SetMain(false)
		if other.HasTrack() {
			other.SetMain(true)
		}
	}

	e.fireListeners(func(l Listener) { l.OnUnloaded(d) })
	e.reconcilePlayback()
}

func (e *Engine) OnPosition(d *deck.Deck, seconds float64) {
	e.controller.OnPosition(d, seconds)
	e.fireListeners(func(l Listener) { l.OnPosition(d, seconds) })
}

func (e *Engine) OnTrackScanning(d *deck.Deck) {
	e.logger.Debug().Str("deck", d.Name()).Msg("engine: track scanning")
}

func (e *Engine) OnTrackScanned(d *deck.Deck) {
	e.logger.Debug().Str("deck", d.Name()).Msg("engine: track scanned")
}
