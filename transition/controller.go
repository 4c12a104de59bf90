// SPDX-License-Identifier: EPL-2.0

package transition

import (
	"math"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ik5/medley/deck"
	"github.com/ik5/medley/utils"
)

// Track is an opaque handle: the core reads only its path.
type Track interface {
	FullPath() string
}

// Queue is the abstract track-supply collaborator, scoped down to the
// two operations the controller needs. It is a distinct named type from
// queue.Queue so neither package imports the other; engine bridges the
// two with a small adapter since Go requires identical named result
// types for interface satisfaction, not just matching method shapes.
type Queue interface {
	Count() int
	FetchNextTrack() (Track, bool)
}

// Config configures a Controller at construction time.
type Config struct {
	DeckA, DeckB       *deck.Deck
	Queue              Queue
	MaxLeadingDuration float64 // seconds, forced-fadeout repositioning threshold
	MinFadeDuration    float64 // seconds, the original's "transitionDuration >= 2" guard
	FadingCurve        float64 // 0..100
	Logger             zerolog.Logger

	// OnPreCueNext, when set, is invoked the instant the controller enters
	// Cueing — the engine wires this to its preCueNext listener fan-out.
	OnPreCueNext func()
	// OnTransit, when set, is invoked once per Cued->Transit edge with the
	// deck that just started (the new main deck) — the engine wires this to
	// its transition counter only.
	OnTransit func(newMain *deck.Deck)
}

// Controller is the dual-deck transition state machine. It is driven
// by repeated calls to OnPosition from the main deck's position callback
// and by OnDeckUnloaded when either deck unloads; both must be non-blocking
// callable from the audio thread, so Controller never performs file I/O
// itself — LoadNext only ever calls deck.CanLoad (a registry lookup)
// before handing a path to deck.LoadTrack, which defers the real open to
// the loading pool.
type Controller struct {
	cfg Config

	mu             sync.Mutex
	state          State
	transitingDeck *deck.Deck
	forceFadingOut int

	fadingFactor *utils.AtomicFloat64
}

// New constructs a Controller. cfg.MinFadeDuration defaults to 2.0 seconds
// (the original engine's hardcoded floor) if zero.
func New(cfg Config) *Controller {
	if cfg.MinFadeDuration <= 0 {
		cfg.MinFadeDuration = 2.0
	}
	c := &Controller{
		cfg:          cfg,
		fadingFactor: utils.NewAtomicFloat64(FadingFactor(cfg.FadingCurve)),
	}
	return c
}

// FadingFactor computes the exponent applied to the crossfade curves from a
// 0..100 fading_curve: 1000 / (((100-curve)/100)*999 + 1). It is
// strictly increasing in curve.
func FadingFactor(curve float64) float64 {
	curve = utils.ClampF64(curve, 0, 100)
	return 1000.0 / (((100.0-curve)/100.0)*999.0 + 1.0)
}

// SetFadingCurve recomputes the fading factor from a new 0..100 curve.
func (c *Controller) SetFadingCurve(curve float64) {
	c.fadingFactor.Store(FadingFactor(curve))
}

// SetMaxLeadingDuration updates the threshold used for forced-fadeout
// repositioning and the fade-in gating check.
func (c *Controller) SetMaxLeadingDuration(seconds float64) {
	c.mu.Lock()
	c.cfg.MaxLeadingDuration = seconds
	c.mu.Unlock()
}

// State returns the controller's current transition state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// other mirrors Medley::getAnotherDeck: given one deck, return the other;
// given nil, return whichever deck has no track loaded (Medley::
// getAvailableDeck), or nil if both are occupied.
func (c *Controller) other(from *deck.Deck) *deck.Deck {
	if from == nil {
		if !c.cfg.DeckA.HasTrack() {
			return c.cfg.DeckA
		}
		if !c.cfg.DeckB.HasTrack() {
			return c.cfg.DeckB
		}
		return nil
	}
	if from == c.cfg.DeckA {
		return c.cfg.DeckB
	}
	return c.cfg.DeckA
}

// LoadNext mirrors Medley::loadNextTrack: it walks the queue, skipping any
// entry the target deck's registry can't even recognize, and hands the
// first loadable entry to deck.LoadTrack. current is the deck to find a
// partner for; nil picks any available deck, matching the engine's initial
// play() call.
func (c *Controller) LoadNext(current *deck.Deck, play bool) bool {
	target := c.other(current)
	if target == nil {
		c.cfg.Logger.Debug().Msg("transition: no available deck for next track")
		return false
	}

	for c.cfg.Queue.Count() > 0 {
		track, ok := c.cfg.Queue.FetchNextTrack()
		if !ok {
			return false
		}
		path := track.FullPath()
		if !target.CanLoad(path) {
			c.cfg.Logger.Warn().Str("path", path).Msg("transition: unsupported format, skipping queue entry")
			continue
		}
		target.LoadTrack(path, play)
		return true
	}

	return false
}

// OnPosition is Medley::deckPosition, called every time sender (one of the
// two decks) reports a new position. Only the main deck drives decisions;
// calls from the other deck return immediately.
func (c *Controller) OnPosition(sender *deck.Deck, pos float64) {
	if !sender.IsMain() {
		return
	}

	next := c.other(sender)
	if next == nil {
		return
	}

	transitionCue := sender.TransitionCue()
	transitionPreCue := sender.TransitionPreCue()
	transitionStart := sender.TransitionStart()
	transitionEnd := sender.TransitionEnd()
	leadingDuration := next.LeadingDuration()
	fadingFactor := c.fadingFactor.Load()

	c.mu.Lock()
	state := c.state
	maxLeading := c.cfg.MaxLeadingDuration
	c.mu.Unlock()

	if state < Cued {
		if state == Idle && pos > transitionPreCue {
			c.mu.Lock()
			c.state = Cueing
			state = Cueing
			c.mu.Unlock()
			if c.cfg.OnPreCueNext != nil {
				c.cfg.OnPreCueNext()
			}
		}

		if pos > transitionCue {
			forced := c.isForcedFadingOut()
			if !c.LoadNext(sender, false) && !forced {
				return
			}
			c.mu.Lock()
			c.state = Cued
			c.transitingDeck = sender
			state = Cued
			c.mu.Unlock()
		}
	}

	if pos > transitionStart-leadingDuration {
		if state == Cued && next.HasTrack() {
			c.mu.Lock()
			c.state = Transit
			state = Transit
			c.mu.Unlock()

			next.SetVolume(1.0)
			if c.isForcedFadingOut() && leadingDuration >= maxLeading {
				next.SetPosition(next.FirstAudibleSeconds() + leadingDuration - maxLeading)
			}
			next.Start()
			if c.cfg.OnTransit != nil {
				c.cfg.OnTransit(next)
			}
		}

		if state == Transit && leadingDuration >= maxLeading {
			p := utils.ClampF64((pos-(transitionStart-leadingDuration))/leadingDuration, 0.25, 1.0)
			next.SetVolume(math.Pow(p, fadingFactor))
		}
	}

	if pos >= transitionStart {
		dur := transitionEnd - transitionStart
		progress := 0.0
		if dur > 0 {
			progress = utils.ClampF64((pos-transitionStart)/dur, 0.0, 1.0)
		}
		if dur >= c.cfg.MinFadeDuration {
			sender.SetVolume(math.Pow(1.0-progress, fadingFactor))
		}
		if state != Idle && pos > transitionEnd && progress >= 1.0 {
			sender.Stop()
		}
	}
}

// OnDeckUnloaded is Medley::deckUnloaded's transition bookkeeping
// (Supplemented Feature 1): if the deck that just unloaded was the one
// being transitioned away from, reset to Idle; if it unloaded before the
// handoff point (still Cued, not yet Transit — it was stopped or finished
// early), start the other deck immediately rather than waiting for another
// position callback that will now never come from the unloaded deck.
func (c *Controller) OnDeckUnloaded(sender *deck.Deck) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if sender != c.transitingDeck {
		return
	}

	if c.state == Cued {
		next := c.other(sender)
		if next != nil && next.HasTrack() {
			next.Start()
		}
	}

	c.state = Idle
	c.transitingDeck = nil
	if c.forceFadingOut > 0 {
		c.forceFadingOut--
	}
}

// ForceFadeOut is Deck's fadeOut()/Medley's fadeOutMainDeck forced onto the
// controller: it increments the counter that lets
// the cue-point guard proceed even with an empty queue, and if a transition
// is already under way, unloads main immediately so OnPosition re-evaluates
// the (now Idle) state on the next callback instead of waiting for the
// transition that was already committed to play out.
func (c *Controller) ForceFadeOut(main *deck.Deck) {
	c.mu.Lock()
	c.forceFadingOut++
	transiting := c.state == Transit
	c.mu.Unlock()

	if transiting && main != nil {
		main.UnloadTrack()
	}
}

func (c *Controller) isForcedFadingOut() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forceFadingOut > 0
}
