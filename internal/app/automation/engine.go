package automation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/autodeck/internal/app/effects"
	"github.com/osa030/autodeck/internal/app/mixer"
	"github.com/osa030/autodeck/internal/app/queue"
	"github.com/osa030/autodeck/internal/app/transition"
	"github.com/osa030/autodeck/internal/domain/playlist"
	"github.com/osa030/autodeck/internal/domain/track"
)

var (
	// ErrPlanUnavailable is returned when no set plan with at least two
	// tracks exists.
	ErrPlanUnavailable = errors.New("set plan unavailable")
	// ErrAlreadyRunning is returned when a run is already active.
	ErrAlreadyRunning = errors.New("automation already running")
	// ErrNotRunning is returned by Pause and Resume outside a run.
	ErrNotRunning = errors.New("automation not running")

	errStopped = errors.New("automation stopped")
)

const (
	eventBufferSize = 64
	unityGain       = 1.0
	// fadeWindow is the share of the gap to the next event used by the
	// fade-out ramp.
	fadeWindow = 0.9
)

// Config holds automation timing parameters.
type Config struct {
	TransitionType  transition.Type
	LoadLead        time.Duration // Load the next track this long before the transition
	StartLead       time.Duration // Start the next track this long before the transition
	MonitorInterval time.Duration // Poll interval while monitoring
	ReadyInterval   time.Duration // Poll interval once the next track is cued
	PausedInterval  time.Duration // Poll interval while paused
	LoadSettle      time.Duration // Wait after loading the first track
	FadeSteps       int           // Crossfader ramp steps for fade-out
	EQCutGain       float64       // Gain used for cut bands; negative selects the default
}

// DefaultConfig returns the default automation timing.
func DefaultConfig() Config {
	return Config{
		TransitionType:  transition.TypeStandard,
		LoadLead:        60 * time.Second,
		StartLead:       30 * time.Second,
		MonitorInterval: 5 * time.Second,
		ReadyInterval:   time.Second,
		PausedInterval:  500 * time.Millisecond,
		LoadSettle:      time.Second,
		FadeSteps:       10,
		EQCutGain:       0.2,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TransitionType == "" {
		c.TransitionType = d.TransitionType
	}
	if c.LoadLead <= 0 {
		c.LoadLead = d.LoadLead
	}
	if c.StartLead <= 0 {
		c.StartLead = d.StartLead
	}
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = d.MonitorInterval
	}
	if c.ReadyInterval <= 0 {
		c.ReadyInterval = d.ReadyInterval
	}
	if c.PausedInterval <= 0 {
		c.PausedInterval = d.PausedInterval
	}
	if c.LoadSettle < 0 {
		c.LoadSettle = 0
	}
	if c.FadeSteps <= 0 {
		c.FadeSteps = d.FadeSteps
	}
	if c.EQCutGain < 0 {
		c.EQCutGain = d.EQCutGain
	}
	return c
}

// TrackLoader decodes a track into deck frames.
type TrackLoader interface {
	Load(ctx context.Context, t track.Metadata) (mixer.Source, error)
}

// ControlSnapshot captures the controls an operator could touch.
type ControlSnapshot struct {
	Crossfader   float64
	DeckAPlaying bool
	DeckBPlaying bool
}

// OverrideFunc reports whether the change between two snapshots was made
// by a human. A true result pauses the run.
type OverrideFunc func(prev, cur ControlSnapshot) bool

// NeverOverride is the default detector.
func NeverOverride(_, _ ControlSnapshot) bool {
	return false
}

// SetPlan is the result of BuildSetPlan.
type SetPlan struct {
	ID            uuid.UUID
	Tracks        []track.Metadata
	Transitions   []*transition.Plan // Transitions[i] mixes Tracks[i] into Tracks[i+1]
	TotalDuration float64            // Seconds, overlap removed
}

// Status is a snapshot of the engine.
type Status struct {
	Enabled            bool
	Running            bool
	Paused             bool
	OverrideDetected   bool
	Phase              Phase
	Details            string
	TrackIndex         int
	TotalTracks        int
	Playlist           []string
	CurrentTrack       string
	NextTrack          string
	RunID              uuid.UUID
	TransitionProgress float64 // 0..1 while transitioning
	LastError          string
}

// Engine advances a playlist across the two decks.
type Engine struct {
	mu sync.RWMutex

	cfg      Config
	mixer    *mixer.Mixer
	queue    *queue.Manager
	planner  *transition.Planner
	loader   TrackLoader
	clock    Clock
	override OverrideFunc
	tick     time.Duration

	playlist *playlist.Playlist
	plans    []*transition.Plan
	setPlan  *SetPlan

	enabled          bool
	running          bool
	paused           bool
	overrideDetected bool
	phase            Phase
	details          string
	index            int
	runID            uuid.UUID
	lastErr          error

	pausedAt     time.Time
	pausedTotal  time.Duration
	lastSnapshot *ControlSnapshot

	inTransition bool
	transPlan    *transition.Plan
	transStart   time.Time
	transBase    time.Duration

	cancel  context.CancelFunc
	done    chan struct{}
	eventCh chan Event
}

// NewEngine creates an idle engine. Zero config fields take defaults.
func NewEngine(cfg Config, m *mixer.Mixer, q *queue.Manager, p *transition.Planner, loader TrackLoader) *Engine {
	done := make(chan struct{})
	close(done)
	return &Engine{
		cfg:      cfg.withDefaults(),
		mixer:    m,
		queue:    q,
		planner:  p,
		loader:   loader,
		clock:    WallClock{},
		override: NeverOverride,
		tick:     time.Duration(m.BlockSize()) * time.Second / time.Duration(m.SampleRate()),
		phase:    PhaseIdle,
		done:     done,
		eventCh:  make(chan Event, eventBufferSize),
	}
}

// SetClock replaces the clock. Call before Start.
func (e *Engine) SetClock(c Clock) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clock = c
}

// SetOverrideDetector installs the human override detector. nil restores
// the default.
func (e *Engine) SetOverrideDetector(fn OverrideFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fn == nil {
		fn = NeverOverride
	}
	e.override = fn
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Events returns the event channel.
func (e *Engine) Events() <-chan Event {
	return e.eventCh
}

// Done returns a channel closed when the current run's loop exits.
func (e *Engine) Done() <-chan struct{} {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.done
}

// BuildSetPlan plans every consecutive transition of tracks. Nothing is
// changed unless all plans succeed; on success the tracks are added to the
// queue and become the playlist of the next run.
func (e *Engine) BuildSetPlan(tracks []track.Metadata) (*SetPlan, error) {
	if len(tracks) < 2 {
		return nil, errors.Wrapf(ErrPlanUnavailable, "need at least 2 tracks, got %d", len(tracks))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running || e.loopAliveLocked() {
		return nil, ErrAlreadyRunning
	}

	id := uuid.New()
	pl := playlist.New(id.String(), tracks)
	total := pl.TotalDuration()

	plans := make([]*transition.Plan, 0, len(tracks)-1)
	for i := 0; i < len(tracks)-1; i++ {
		p, err := e.planner.Plan(tracks[i], tracks[i+1], e.cfg.TransitionType)
		if err != nil {
			return nil, errors.Wrapf(err, "plan transition %d (%s -> %s)", i, tracks[i].Name(), tracks[i+1].Name())
		}
		plans = append(plans, p)
		total -= p.Duration
	}

	for _, t := range tracks {
		e.queue.Add(t)
	}

	e.playlist = pl
	e.plans = plans
	e.setPlan = &SetPlan{
		ID:            id,
		Tracks:        append([]track.Metadata(nil), pl.Tracks...),
		Transitions:   plans,
		TotalDuration: total,
	}

	zlog.Info().Msgf("automation: set plan built: id=%s, tracks=%d, total=%.1fs", id, len(tracks), total)
	return e.setPlan, nil
}

// SetPlan returns the last built set plan.
func (e *Engine) SetPlan() (*SetPlan, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.setPlan, e.setPlan != nil
}

// Start begins a run over the current playlist. ctx bounds the run.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running || e.loopAliveLocked() {
		return ErrAlreadyRunning
	}
	if e.playlist.Len() < 2 {
		return ErrPlanUnavailable
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.enabled = true
	e.running = true
	e.paused = false
	e.overrideDetected = false
	e.index = 0
	e.lastErr = nil
	e.pausedTotal = 0
	e.lastSnapshot = nil
	e.inTransition = false
	e.phase = PhaseIdle
	e.details = "Starting automation"
	e.runID = uuid.New()
	e.cancel = cancel
	e.done = make(chan struct{})

	zlog.Info().Msgf("automation: started: run=%s, tracks=%d", e.runID, e.playlist.Len())

	go e.run(runCtx, e.done, e.playlist, e.plans)
	return nil
}

// Stop ends the run. Decks keep their current state. Safe to call more
// than once.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}
	e.running = false
	e.enabled = false
	e.paused = false
	e.inTransition = false
	e.setPhaseLocked(PhaseStopped, "Stopped by request")
	e.sendEventLocked(EventStopped, "Automation stopped")
	if e.cancel != nil {
		e.cancel()
	}
	zlog.Info().Msgf("automation: stopped: run=%s, index=%d", e.runID, e.index)
}

// Pause suspends progression. Audio keeps playing.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return ErrNotRunning
	}
	e.pauseLocked("Paused")
	return nil
}

// Resume continues a paused run.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return ErrNotRunning
	}
	if !e.paused {
		return nil
	}
	e.pausedTotal += e.clock.Now().Sub(e.pausedAt)
	e.paused = false
	e.overrideDetected = false
	e.lastSnapshot = nil
	e.sendEventLocked(EventResumed, "Resumed")
	zlog.Info().Msgf("automation: resumed: phase=%s", e.phase)
	return nil
}

func (e *Engine) pauseLocked(reason string) {
	if e.paused {
		return
	}
	e.paused = true
	e.pausedAt = e.clock.Now()
	e.sendEventLocked(EventPaused, reason)
	zlog.Info().Msgf("automation: paused: phase=%s, reason=%s", e.phase, reason)
}

// Status returns a snapshot of the engine.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := Status{
		Enabled:          e.enabled,
		Running:          e.running,
		Paused:           e.paused,
		OverrideDetected: e.overrideDetected,
		Phase:            e.phase,
		Details:          e.details,
		TrackIndex:       e.index,
		TotalTracks:      e.playlist.Len(),
		RunID:            e.runID,
	}
	if e.playlist != nil {
		s.Playlist = e.playlist.Names()
	}
	if t, ok := e.playlist.At(e.index); ok {
		s.CurrentTrack = t.Name()
	}
	if t, ok := e.playlist.At(e.index + 1); ok {
		s.NextTrack = t.Name()
	}
	if e.inTransition && e.transPlan != nil && e.transPlan.Duration > 0 {
		p := e.transitionElapsedLocked().Seconds() / e.transPlan.Duration
		s.TransitionProgress = min(max(p, 0), 1)
	}
	if e.lastErr != nil {
		s.LastError = e.lastErr.Error()
	}
	return s
}

// CurrentPlan returns the transition out of the current track.
func (e *Engine) CurrentPlan() (*transition.Plan, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.index < 0 || e.index >= len(e.plans) {
		return nil, false
	}
	return e.plans[e.index], true
}

// NextTrack returns the track after the current one.
func (e *Engine) NextTrack() (track.Metadata, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.playlist.At(e.index + 1)
}

// run is the automation loop goroutine.
func (e *Engine) run(ctx context.Context, done chan struct{}, pl *playlist.Playlist, plans []*transition.Plan) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			e.fault(errors.Newf("panic in automation loop: %v", r))
		}
	}()

	err := e.loop(ctx, pl, plans)
	switch {
	case err == nil:
		e.complete()
	case errors.Is(err, errStopped), ctx.Err() != nil:
		e.stopped()
	default:
		e.fault(err)
	}
}

// runState tracks per-transition progress inside the loop.
type runState struct {
	prepared int // Index of the track cued on deck B
	started  int // Index of the track started on deck B
}

func (e *Engine) loop(ctx context.Context, pl *playlist.Playlist, plans []*transition.Plan) error {
	deckA := e.mixer.A()
	first, _ := pl.At(0)

	e.setPhase(PhaseLoadingFirstTrack, "Loading first track to deck A: "+first.Name())
	if err := e.loadDeck(ctx, deckA, first); err != nil {
		return errors.Wrap(err, "load first track")
	}
	e.queue.SetCurrentTrack(first)
	if e.cfg.LoadSettle > 0 {
		if err := e.sleep(ctx, e.cfg.LoadSettle); err != nil {
			return err
		}
	}

	e.setPhase(PhaseStartingFirstTrack, "Starting first track: "+first.Name())
	e.mixer.SetCrossfader(-1)
	if err := deckA.Play(); err != nil {
		return errors.Wrap(err, "start first track")
	}
	e.refreshSnapshot()

	rs := &runState{prepared: -1, started: -1}
	for {
		if !e.isRunning() {
			return errStopped
		}
		idx := e.currentIndex()
		if idx >= pl.Len()-1 {
			return nil
		}

		e.checkOverride()
		if e.isPaused() {
			if err := e.sleep(ctx, e.cfg.PausedInterval); err != nil {
				return err
			}
			continue
		}

		plan := plans[idx]
		cur, _ := pl.At(idx)
		next, _ := pl.At(idx + 1)

		untilStart := plan.TransitionStart - deckA.Position()
		if !deckA.Playing() && deckA.TimeRemaining() <= 0 {
			untilStart = 0
		}
		until := seconds(untilStart)

		var err error
		switch {
		case until > e.cfg.LoadLead:
			e.setPhase(PhaseMonitoring, fmt.Sprintf("Playing %s - transition in %.0fs", cur.Name(), untilStart))
			err = e.sleep(ctx, min(e.cfg.MonitorInterval, until-e.cfg.LoadLead))
		case until > e.cfg.StartLead:
			if err = e.prepareNext(ctx, rs, idx, plan, next); err == nil {
				e.setPhase(PhaseReady, "Next track ready: "+next.Name())
				err = e.sleep(ctx, min(e.cfg.ReadyInterval, until-e.cfg.StartLead))
			}
		case until > 0:
			if err = e.prepareNext(ctx, rs, idx, plan, next); err == nil {
				err = e.startNext(rs, idx, next)
			}
			if err == nil {
				e.setPhase(PhaseTransitionReady, fmt.Sprintf("Transition in %.0fs", untilStart))
				err = e.sleep(ctx, min(e.cfg.ReadyInterval, until))
			}
		default:
			if err = e.prepareNext(ctx, rs, idx, plan, next); err == nil {
				err = e.startNext(rs, idx, next)
			}
			if err == nil {
				err = e.executeTransition(ctx, plan)
			}
			if err == nil {
				e.swap(idx, next)
			}
		}
		if err != nil {
			return err
		}
	}
}

func (e *Engine) loadDeck(ctx context.Context, d *mixer.Deck, t track.Metadata) error {
	src, err := e.loader.Load(ctx, t)
	if err != nil {
		return errors.Wrapf(err, "load %s", t.Name())
	}
	if src.Name == "" {
		src.Name = t.Name()
	}
	return d.Load(src)
}

// prepareNext loads and cues the incoming track once per transition and
// pre-cuts the bands the plan will introduce.
func (e *Engine) prepareNext(ctx context.Context, rs *runState, idx int, plan *transition.Plan, next track.Metadata) error {
	if rs.prepared == idx+1 {
		return nil
	}
	deckB := e.mixer.B()

	e.setPhase(PhaseLoadingNextTrack, "Loading next track to deck B: "+next.Name())
	if err := e.loadDeck(ctx, deckB, next); err != nil {
		return errors.Wrap(err, "load next track")
	}
	if err := deckB.Cue(plan.CuePoint); err != nil {
		return errors.Wrap(err, "cue next track")
	}

	chainB := e.chain(mixer.DeckB)
	for _, ev := range plan.Timeline {
		if b, ok := introducedBand(ev.Action); ok {
			chainB.SetEQ(b, e.cfg.EQCutGain)
		}
	}

	rs.prepared = idx + 1
	zlog.Info().Msgf("automation: next track cued: track=%s, cue=%.2fs", next.Name(), plan.CuePoint)
	return nil
}

func (e *Engine) startNext(rs *runState, idx int, next track.Metadata) error {
	if rs.started == idx+1 {
		return nil
	}
	e.setPhase(PhaseStartingNextTrack, "Starting next track (silent): "+next.Name())
	if err := e.mixer.B().Play(); err != nil {
		return errors.Wrap(err, "start next track")
	}
	e.refreshSnapshot()
	rs.started = idx + 1
	return nil
}

// executeTransition runs the plan timeline against pause-excluded elapsed
// time and leaves the crossfader on deck B.
func (e *Engine) executeTransition(ctx context.Context, plan *transition.Plan) error {
	e.mu.Lock()
	e.inTransition = true
	e.transPlan = plan
	e.transStart = e.clock.Now()
	e.transBase = e.pausedTotal
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.inTransition = false
		e.mu.Unlock()
	}()

	e.setPhase(PhaseTransitioning, fmt.Sprintf("Mixing tracks - %.0fs transition", plan.Duration))
	zlog.Info().Msgf("automation: transition started: %s -> %s, bars=%d, duration=%.1fs",
		plan.TrackA, plan.TrackB, plan.Bars, plan.Duration)

	for i, ev := range plan.Timeline {
		if err := e.waitUntil(ctx, ev.Time); err != nil {
			return err
		}
		e.setDetails(ev.Description)
		if err := e.apply(ctx, plan, i); err != nil {
			return err
		}
	}

	e.mixer.SetCrossfader(1)
	e.refreshSnapshot()
	return nil
}

// waitUntil blocks until the transition has been active for at seconds.
func (e *Engine) waitUntil(ctx context.Context, at float64) error {
	target := seconds(at)
	for {
		if err := e.holdWhilePaused(ctx); err != nil {
			return err
		}
		wait := target - e.transitionElapsed()
		if wait <= 0 {
			return nil
		}
		if err := e.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (e *Engine) apply(ctx context.Context, plan *transition.Plan, i int) error {
	ev := plan.Timeline[i]
	defer e.refreshSnapshot()

	if b, ok := introducedBand(ev.Action); ok {
		e.chain(mixer.DeckB).SetEQ(b, unityGain)
		return nil
	}

	switch ev.Action {
	case transition.ActionStartIncoming:
		if deckB := e.mixer.B(); !deckB.Playing() {
			if err := deckB.Play(); err != nil {
				return errors.Wrap(err, "start incoming deck")
			}
		}
	case transition.ActionLowCutOutgoing:
		e.chain(mixer.DeckA).SetEQ(effects.BandBass, e.cfg.EQCutGain)
	case transition.ActionCrossfaderHalf:
		e.mixer.SetCrossfader(0)
	case transition.ActionFadeOutOutgoing:
		var window float64
		if i+1 < len(plan.Timeline) {
			window = (plan.Timeline[i+1].Time - ev.Time) * fadeWindow
		}
		return e.fade(ctx, window)
	case transition.ActionIncomingOnly:
		e.mixer.SetCrossfader(1)
	default:
		zlog.Warn().Msgf("automation: unknown timeline action: action=%s", ev.Action)
	}
	return nil
}

// fade ramps the crossfader from its current value to deck B over window
// seconds.
func (e *Engine) fade(ctx context.Context, window float64) error {
	from := e.mixer.Crossfader()
	steps := e.cfg.FadeSteps
	if window <= 0 {
		e.mixer.SetCrossfader(1)
		e.refreshSnapshot()
		return nil
	}
	interval := seconds(window / float64(steps))
	for s := 1; s <= steps; s++ {
		if err := e.holdWhilePaused(ctx); err != nil {
			return err
		}
		e.mixer.SetCrossfader(from + (1-from)*float64(s)/float64(steps))
		e.refreshSnapshot()
		if err := e.sleep(ctx, interval); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) swap(idx int, next track.Metadata) {
	e.setPhase(PhaseSwappingDecks, "Swapping decks")
	e.mixer.SwapDecks()
	e.refreshSnapshot()
	e.queue.SetCurrentTrack(next)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.index = idx + 1
	e.sendEventLocked(EventTrackAdvanced, "Now playing: "+next.Name())
	zlog.Info().Msgf("automation: track advanced: index=%d/%d, track=%s", e.index+1, e.playlist.Len(), next.Name())
}

// holdWhilePaused returns once the run is not paused.
func (e *Engine) holdWhilePaused(ctx context.Context) error {
	for {
		if !e.isRunning() {
			return errStopped
		}
		e.checkOverride()
		if !e.isPaused() {
			return nil
		}
		if err := e.sleep(ctx, e.cfg.PausedInterval); err != nil {
			return err
		}
	}
}

func (e *Engine) controls() ControlSnapshot {
	return ControlSnapshot{
		Crossfader:   e.mixer.Crossfader(),
		DeckAPlaying: e.mixer.A().Playing(),
		DeckBPlaying: e.mixer.B().Playing(),
	}
}

// refreshSnapshot records the controls the engine just set so the detector
// only compares against changes made by someone else.
func (e *Engine) refreshSnapshot() {
	cur := e.controls()
	e.mu.Lock()
	e.lastSnapshot = &cur
	e.mu.Unlock()
}

// checkOverride feeds the detector with the current controls and pauses
// the run when it signals.
func (e *Engine) checkOverride() {
	cur := e.controls()

	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.lastSnapshot
	e.lastSnapshot = &cur
	if prev == nil || e.paused || !e.running {
		return
	}
	if e.override(*prev, cur) {
		e.overrideDetected = true
		zlog.Warn().Msgf("automation: manual override detected: crossfader=%.2f", cur.Crossfader)
		e.pauseLocked("Manual override detected")
	}
}

// sleep waits at least one render block so virtual clocks always advance.
func (e *Engine) sleep(ctx context.Context, d time.Duration) error {
	if d < e.tick {
		d = e.tick
	}
	if err := e.clock.Sleep(ctx, d); err != nil {
		return err
	}
	if !e.isRunning() {
		return errStopped
	}
	return nil
}

func (e *Engine) chain(id mixer.DeckID) *effects.Chain {
	c, err := e.mixer.Effects(id)
	if err != nil {
		panic(err)
	}
	return c
}

func (e *Engine) transitionElapsed() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.transitionElapsedLocked()
}

func (e *Engine) transitionElapsedLocked() time.Duration {
	now := e.clock.Now()
	paused := e.pausedTotal - e.transBase
	if e.paused {
		paused += now.Sub(e.pausedAt)
	}
	return now.Sub(e.transStart) - paused
}

func (e *Engine) complete() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.running = false
	e.enabled = false
	e.setPhaseLocked(PhaseCompleted, "Set complete")
	e.sendEventLocked(EventCompleted, "Set complete")
	zlog.Info().Msgf("automation: completed: run=%s, tracks=%d", e.runID, e.playlist.Len())
}

func (e *Engine) stopped() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.running = false
	e.enabled = false
	e.paused = false
	e.setPhaseLocked(PhaseStopped, "Run context cancelled")
	e.sendEventLocked(EventStopped, "Automation stopped")
	zlog.Info().Msgf("automation: stopped by context: run=%s", e.runID)
}

// fault stops the run without touching the decks.
func (e *Engine) fault(err error) {
	zlog.Error().Msgf("automation: loop failed, decks left playing: %v", err)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	e.enabled = false
	e.paused = false
	e.inTransition = false
	e.lastErr = err
	e.setPhaseLocked(PhaseStopped, "Automation error: "+err.Error())
	e.sendEventLocked(EventFaulted, err.Error())
}

func (e *Engine) setPhase(p Phase, details string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running {
		return
	}
	e.setPhaseLocked(p, details)
}

func (e *Engine) setPhaseLocked(p Phase, details string) {
	e.details = details
	if e.phase == p {
		return
	}
	e.phase = p
	e.sendEventLocked(EventPhaseChanged, details)
	zlog.Debug().Msgf("automation: phase changed: phase=%s, details=%s", p, details)
}

func (e *Engine) setDetails(details string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.details = details
}

func (e *Engine) isRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

func (e *Engine) isPaused() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.paused
}

func (e *Engine) currentIndex() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index
}

func (e *Engine) loopAliveLocked() bool {
	select {
	case <-e.done:
		return false
	default:
		return true
	}
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (e *Engine) sendEventLocked(t EventType, msg string) {
	ev := Event{
		Type:       t,
		RunID:      e.runID,
		Phase:      e.phase,
		TrackIndex: e.index,
		Message:    msg,
		Time:       e.clock.Now(),
	}
	select {
	case e.eventCh <- ev:
	default:
		// Channel full, drop event
	}
}

func introducedBand(a transition.Action) (effects.Band, bool) {
	switch a {
	case transition.ActionLowIntroduce:
		return effects.BandBass, true
	case transition.ActionMidIntroduce:
		return effects.BandMid, true
	case transition.ActionHighIntroduce:
		return effects.BandHigh, true
	default:
		return 0, false
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
