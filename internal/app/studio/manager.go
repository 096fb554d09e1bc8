// Package studio provides the operation surface over a two-deck session.
package studio

import (
	"context"
	"math"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/autodeck/internal/app/advisor"
	"github.com/osa030/autodeck/internal/app/automation"
	"github.com/osa030/autodeck/internal/app/effects"
	"github.com/osa030/autodeck/internal/app/mixer"
	"github.com/osa030/autodeck/internal/app/notification"
	"github.com/osa030/autodeck/internal/app/queue"
	"github.com/osa030/autodeck/internal/app/setplan"
	"github.com/osa030/autodeck/internal/app/transition"
	"github.com/osa030/autodeck/internal/domain/track"
	"github.com/osa030/autodeck/internal/infra/config"
)

// Loader decodes tracks and plain files into deck sources.
type Loader interface {
	automation.TrackLoader
	LoadFile(ctx context.Context, path string) (mixer.Source, error)
}

// Manager owns every component of a session.
type Manager struct {
	mu sync.Mutex

	config *config.Config
	loader Loader

	mixer        *mixer.Mixer
	queue        *queue.Manager
	planner      *transition.Planner
	engine       *automation.Engine
	advisor      *advisor.Advisor
	setPlanner   *setplan.Planner
	notification *notification.Manager

	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewManager builds a session from configuration.
func NewManager(cfg *config.Config, loader Loader) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if loader == nil {
		return nil, errors.New("loader is required")
	}

	typ, err := transition.ParseType(cfg.Automation.TransitionType)
	if err != nil {
		return nil, errors.Wrap(err, "invalid automation transition type")
	}

	m := mixer.New(mixer.Config{
		SampleRate:   cfg.Audio.SampleRate,
		BlockSize:    cfg.Audio.BlockSize,
		MasterVolume: cfg.Mixer.MasterVolume,
	})
	q := queue.NewManager()
	p := transition.NewPlanner(typ)

	auto := cfg.Automation
	engine := automation.NewEngine(automation.Config{
		TransitionType:  typ,
		LoadLead:        auto.LoadLead(),
		StartLead:       auto.StartLead(),
		MonitorInterval: auto.MonitorInterval(),
		ReadyInterval:   auto.ReadyInterval(),
		PausedInterval:  auto.PausedInterval(),
		LoadSettle:      auto.LoadSettle(),
		FadeSteps:       auto.FadeSteps,
		EQCutGain:       auto.EQCutGain(),
	}, m, q, p, loader)

	done := make(chan struct{})
	close(done)

	s := &Manager{
		config:       cfg,
		loader:       loader,
		mixer:        m,
		queue:        q,
		planner:      p,
		engine:       engine,
		advisor:      advisor.New(m, q, p, thresholds(cfg)),
		setPlanner:   setplan.NewPlanner(p, typ, auto.LoadLead(), auto.StartLead()),
		notification: notification.NewManager(cfg.Notification.SendTimeout()),
		done:         done,
	}
	s.setupEffects()
	return s, nil
}

func thresholds(cfg *config.Config) advisor.Thresholds {
	return advisor.Thresholds{
		Warning: cfg.Automation.LoadLead().Seconds(),
		Ready:   cfg.Automation.StartLead().Seconds(),
		Prepare: float64(cfg.Advisor.PrepareSec),
		EQCut:   cfg.Automation.EQCutGain(),
	}
}

// setupEffects applies the configured stages to both decks. Invalid stage
// settings are logged and the stage keeps its defaults.
func (s *Manager) setupEffects() {
	for _, id := range []mixer.DeckID{mixer.DeckA, mixer.DeckB} {
		chain, _ := s.mixer.Effects(id)
		for _, name := range effects.Order {
			ec, ok := s.config.Effects[name]
			if !ok {
				continue
			}
			if err := chain.Configure(name, ec.Enabled, ec.Settings); err != nil {
				zlog.Error().Msgf("studio: failed to configure effect: deck=%s, stage=%s, error=%v", id, name, err)
			}
		}
	}
	for name := range s.config.Effects {
		if _, ok := effects.GetRegistered()[name]; !ok {
			zlog.Warn().Msgf("studio: unknown effect stage in config: stage=%s", name)
		}
	}
}

// Start runs the event forwarding loop until ctx ends or Close is called.
func (s *Manager) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.eventLoop(ctx, s.done)
	zlog.Info().Msg("studio: started")
}

// Close stops automation and the event loop.
func (s *Manager) Close() {
	s.engine.Stop()

	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	done := s.done
	s.mu.Unlock()

	<-done
	s.notification.Close()
	zlog.Info().Msg("studio: closed")
}

func (s *Manager) eventLoop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-s.engine.Events():
			s.handleEvent(ev)
		}
	}
}

func (s *Manager) handleEvent(ev automation.Event) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("studio: event handler panicked: type=%s, panic=%v", ev.Type, r)
		}
	}()

	zlog.Debug().Msgf("studio: automation event: type=%s, phase=%s, index=%d", ev.Type, ev.Phase, ev.TrackIndex)

	switch ev.Type {
	case automation.EventTrackAdvanced, automation.EventPhaseChanged:
		if plan, ok := s.engine.CurrentPlan(); ok && s.engine.Status().Running {
			s.advisor.SetPlan(plan)
		}
	case automation.EventCompleted:
		s.advisor.SetPlan(nil)
	}
	s.notification.Broadcast(ev)
}

// Subscribe registers a notification stream.
func (s *Manager) Subscribe(stream notification.Stream) string {
	return s.notification.Subscribe(stream)
}

// Unsubscribe removes a notification stream.
func (s *Manager) Unsubscribe(id string) {
	s.notification.Unsubscribe(id)
}

// Mixer returns the mixer.
func (s *Manager) Mixer() *mixer.Mixer {
	return s.mixer
}

// Engine returns the automation engine.
func (s *Manager) Engine() *automation.Engine {
	return s.engine
}

func (s *Manager) result(err error) Result {
	if err != nil {
		zlog.Warn().Msgf("studio: operation failed: code=%s, error=%v", codeFor(err), err)
		return errorResult(s.config, err)
	}
	return okResult(s.config)
}

func (s *Manager) deck(name string) (*mixer.Deck, error) {
	id, err := mixer.ParseDeckID(name)
	if err != nil {
		return nil, err
	}
	return s.mixer.Deck(id)
}

func (s *Manager) chain(name string) (*effects.Chain, error) {
	id, err := mixer.ParseDeckID(name)
	if err != nil {
		return nil, err
	}
	return s.mixer.Effects(id)
}

func finite(vs ...float64) error {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.Wrapf(ErrInvalidArgument, "value %v", v)
		}
	}
	return nil
}

// LoadFile decodes a file onto a deck.
func (s *Manager) LoadFile(ctx context.Context, deck, path string) Result {
	d, err := s.deck(deck)
	if err != nil {
		return s.result(err)
	}
	src, err := s.loader.LoadFile(ctx, path)
	if err != nil {
		return s.result(err)
	}
	return s.result(d.Load(src))
}

// LoadTrack decodes a track onto a deck.
func (s *Manager) LoadTrack(ctx context.Context, deck string, t track.Metadata) Result {
	d, err := s.deck(deck)
	if err != nil {
		return s.result(err)
	}
	src, err := s.loader.Load(ctx, t)
	if err != nil {
		return s.result(err)
	}
	if err := d.Load(src); err != nil {
		return s.result(err)
	}
	if err := d.SetCuePoint(transition.CuePoint(t)); err != nil {
		return s.result(err)
	}
	return okResult(s.config)
}

// Play starts a deck.
func (s *Manager) Play(deck string) Result {
	d, err := s.deck(deck)
	if err != nil {
		return s.result(err)
	}
	return s.result(d.Play())
}

// Pause pauses a deck.
func (s *Manager) Pause(deck string) Result {
	d, err := s.deck(deck)
	if err != nil {
		return s.result(err)
	}
	d.Pause()
	return okResult(s.config)
}

// Stop stops a deck and rewinds it.
func (s *Manager) Stop(deck string) Result {
	d, err := s.deck(deck)
	if err != nil {
		return s.result(err)
	}
	d.Stop()
	return okResult(s.config)
}

// Cue moves a deck to a position in seconds.
func (s *Manager) Cue(deck string, seconds float64) Result {
	if err := finite(seconds); err != nil {
		return s.result(err)
	}
	d, err := s.deck(deck)
	if err != nil {
		return s.result(err)
	}
	return s.result(d.Cue(seconds))
}

// SetLoop enables a loop region in seconds.
func (s *Manager) SetLoop(deck string, start, end float64) Result {
	if err := finite(start, end); err != nil {
		return s.result(err)
	}
	d, err := s.deck(deck)
	if err != nil {
		return s.result(err)
	}
	return s.result(d.SetLoop(start, end))
}

// ClearLoop disables a deck's loop.
func (s *Manager) ClearLoop(deck string) Result {
	d, err := s.deck(deck)
	if err != nil {
		return s.result(err)
	}
	d.ClearLoop()
	return okResult(s.config)
}

// SetVolume sets a deck volume, clamped to [0,1].
func (s *Manager) SetVolume(deck string, v float64) Result {
	if err := finite(v); err != nil {
		return s.result(err)
	}
	d, err := s.deck(deck)
	if err != nil {
		return s.result(err)
	}
	d.SetVolume(v)
	return okResult(s.config)
}

// SetCrossfader moves the crossfader, clamped to [-1,1].
func (s *Manager) SetCrossfader(v float64) Result {
	if err := finite(v); err != nil {
		return s.result(err)
	}
	s.mixer.SetCrossfader(v)
	return okResult(s.config)
}

// SetMasterVolume sets the master volume, clamped to [0,1].
func (s *Manager) SetMasterVolume(v float64) Result {
	if err := finite(v); err != nil {
		return s.result(err)
	}
	s.mixer.SetMasterVolume(v)
	return okResult(s.config)
}

// SetEQ sets one band gain on a deck.
func (s *Manager) SetEQ(deck, band string, gain float64) Result {
	if err := finite(gain); err != nil {
		return s.result(err)
	}
	c, err := s.chain(deck)
	if err != nil {
		return s.result(err)
	}
	b, err := effects.ParseBand(band)
	if err != nil {
		return s.result(err)
	}
	c.SetEQ(b, gain)
	return okResult(s.config)
}

// SetFilter sets a deck's sweep filter.
func (s *Manager) SetFilter(deck, mode string, cutoff float64) Result {
	if err := finite(cutoff); err != nil {
		return s.result(err)
	}
	c, err := s.chain(deck)
	if err != nil {
		return s.result(err)
	}
	md, err := effects.ParseMode(mode)
	if err != nil {
		return s.result(err)
	}
	c.SetFilter(md, cutoff)
	return okResult(s.config)
}

// ConfigureEffect validates and applies settings for one stage of a deck.
func (s *Manager) ConfigureEffect(deck, stage string, enabled bool, settings map[string]any) Result {
	c, err := s.chain(deck)
	if err != nil {
		return s.result(err)
	}
	if err := c.Configure(stage, enabled, settings); err != nil {
		if !errors.Is(err, effects.ErrUnknownStage) {
			err = errors.Mark(err, ErrInvalidArgument)
		}
		return s.result(err)
	}
	return okResult(s.config)
}

// Effects returns a deck's effect settings.
func (s *Manager) Effects(deck string) (effects.Settings, Result) {
	c, err := s.chain(deck)
	if err != nil {
		return effects.Settings{}, s.result(err)
	}
	return c.Settings(), okResult(s.config)
}

// QueueAdd appends a track to the queue.
func (s *Manager) QueueAdd(t track.Metadata) Result {
	if t.ID == "" {
		return s.result(errors.Wrap(ErrInvalidArgument, "track id is required"))
	}
	s.queue.Add(t)
	return okResult(s.config)
}

// QueueRemove removes a queued track.
func (s *Manager) QueueRemove(id string) Result {
	return s.result(s.queue.Remove(id))
}

// SetCurrent makes a queued track current.
func (s *Manager) SetCurrent(id string) Result {
	return s.result(s.queue.SetCurrent(id))
}

// NextTracks ranks queued tracks against the current one.
func (s *Manager) NextTracks(count int) []queue.Candidate {
	return s.queue.GetNext(count)
}

// QueueInfo returns a queue snapshot.
func (s *Manager) QueueInfo() queue.Info {
	return s.queue.Info()
}

// CompatibilityMatrix scores every unordered pair of queued tracks.
func (s *Manager) CompatibilityMatrix() []queue.Pair {
	return s.queue.CompatibilityMatrix()
}

// PlanTransition plans a transition and makes the advisor follow it.
// An empty type uses the configured default.
func (s *Manager) PlanTransition(from, to track.Metadata, typ string) (*transition.Plan, Result) {
	t := s.planner.DefaultType()
	if typ != "" {
		parsed, err := transition.ParseType(typ)
		if err != nil {
			return nil, s.result(err)
		}
		t = parsed
	}
	p, err := s.advisor.PlanFor(from, to, t)
	if err != nil {
		return nil, s.result(err)
	}
	return p, okResult(s.config)
}

// BuildSetPlan prepares the automation playlist.
func (s *Manager) BuildSetPlan(tracks []track.Metadata) (*automation.SetPlan, Result) {
	p, err := s.engine.BuildSetPlan(tracks)
	if err != nil {
		return nil, s.result(err)
	}
	return p, okResult(s.config)
}

// StartAutomation starts a run over the last built set plan.
func (s *Manager) StartAutomation(ctx context.Context) Result {
	if err := s.engine.Start(ctx); err != nil {
		return s.result(err)
	}
	if plan, ok := s.engine.CurrentPlan(); ok {
		s.advisor.SetPlan(plan)
	}
	return okResult(s.config)
}

// StopAutomation ends the run, if any. Decks keep playing.
func (s *Manager) StopAutomation() Result {
	s.engine.Stop()
	return okResult(s.config)
}

// PauseAutomation suspends the run.
func (s *Manager) PauseAutomation() Result {
	return s.result(s.engine.Pause())
}

// ResumeAutomation continues a paused run.
func (s *Manager) ResumeAutomation() Result {
	return s.result(s.engine.Resume())
}

// AutomationStatus returns the engine snapshot.
func (s *Manager) AutomationStatus() automation.Status {
	return s.engine.Status()
}

// WaitAutomation blocks until the current run ends or ctx is done.
func (s *Manager) WaitAutomation(ctx context.Context) error {
	select {
	case <-s.engine.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Suggestion returns advice for the current mixer state.
func (s *Manager) Suggestion() advisor.Suggestion {
	return s.advisor.GetSuggestion()
}

// Summary returns a one-line deck summary.
func (s *Manager) Summary() string {
	return s.advisor.Summary()
}

// VisualPlan builds a read-only roadmap for tracks.
func (s *Manager) VisualPlan(tracks []track.Metadata) (*setplan.VisualPlan, Result) {
	vp, err := s.setPlanner.BuildVisualPlan(tracks)
	if err != nil {
		return nil, s.result(err)
	}
	return vp, okResult(s.config)
}

// MixerStatus returns a mixer snapshot.
func (s *Manager) MixerStatus() mixer.Status {
	return s.mixer.Status()
}

// UseClock replaces the automation clock. Call before StartAutomation.
func (s *Manager) UseClock(c automation.Clock) {
	s.engine.SetClock(c)
}

// DetectOverrides installs the human override detector.
func (s *Manager) DetectOverrides(fn automation.OverrideFunc) {
	s.engine.SetOverrideDetector(fn)
}
