package studio

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/autodeck/internal/app/automation"
	"github.com/osa030/autodeck/internal/app/effects"
	"github.com/osa030/autodeck/internal/app/mixer"
	"github.com/osa030/autodeck/internal/app/notification"
	"github.com/osa030/autodeck/internal/domain/track"
	"github.com/osa030/autodeck/internal/infra/config"
)

const (
	testRate  = 200
	testBlock = 20
)

type fakeLoader struct {
	fail map[string]bool
}

func tone(name string, seconds float64) mixer.Source {
	frames := make([][2]float64, int(seconds*testRate))
	for i := range frames {
		frames[i] = [2]float64{0.5, 0.5}
	}
	return mixer.Source{Name: name, Frames: frames}
}

func (l *fakeLoader) Load(_ context.Context, t track.Metadata) (mixer.Source, error) {
	if l.fail[t.ID] {
		return mixer.Source{}, errors.Wrapf(mixer.ErrLoad, "track %s", t.ID)
	}
	return tone(t.Name(), t.Duration), nil
}

func (l *fakeLoader) LoadFile(_ context.Context, path string) (mixer.Source, error) {
	if l.fail[path] {
		return mixer.Source{}, errors.Wrapf(mixer.ErrLoad, "file %s", path)
	}
	return tone(path, 60), nil
}

// stepClock advances instantly and renders the mixer for every slept
// interval.
type stepClock struct {
	mu       sync.Mutex
	start    time.Time
	now      time.Time
	m        *mixer.Mixer
	rendered int
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	target := int(math.Round(c.now.Sub(c.start).Seconds() * testRate))
	frames := target - c.rendered
	c.rendered = target
	c.mu.Unlock()

	buf := make([][2]float64, testBlock)
	for frames > 0 {
		n := min(frames, testBlock)
		c.m.Render(buf[:n])
		frames -= n
	}
	return ctx.Err()
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Audio.SampleRate = testRate
	cfg.Audio.BlockSize = testBlock
	cfg.Mixer.MasterVolume = 1
	return cfg
}

func newTestManager(t *testing.T, cfg *config.Config, loader *fakeLoader) *Manager {
	t.Helper()
	if loader == nil {
		loader = &fakeLoader{}
	}
	s, err := NewManager(cfg, loader)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func setTracks() []track.Metadata {
	return []track.Metadata{
		{ID: "t1", Title: "One", Duration: 150, BPM: 128, Camelot: "8A", Energy: track.Energy(0.6)},
		{ID: "t2", Title: "Two", Duration: 160, BPM: 126, Camelot: "9A", Energy: track.Energy(0.7)},
	}
}

func TestNewManager_Errors(t *testing.T) {
	_, err := NewManager(nil, &fakeLoader{})
	assert.Error(t, err)

	_, err = NewManager(testConfig(), nil)
	assert.Error(t, err)

	cfg := testConfig()
	cfg.Automation.TransitionType = "endless"
	_, err = NewManager(cfg, &fakeLoader{})
	assert.Error(t, err)
}

func TestNewManager_ConfiguresEffects(t *testing.T) {
	cfg := testConfig()
	cfg.Effects["reverb"] = config.EffectConfig{Enabled: true, Settings: map[string]any{"wet": 0.3}}
	cfg.Effects["echo"] = config.EffectConfig{Enabled: true, Settings: map[string]any{"feedback": 5}}
	s := newTestManager(t, cfg, nil)

	for _, deck := range []string{"a", "b"} {
		st, res := s.Effects(deck)
		require.True(t, res.OK())
		assert.True(t, st.EQ.Enabled)
		assert.True(t, st.Reverb.Enabled)
		assert.InDelta(t, 0.3, st.Reverb.Wet, 1e-9)
		assert.False(t, st.Echo.Enabled)
	}
}

func TestManager_DeckOperations(t *testing.T) {
	s := newTestManager(t, testConfig(), &fakeLoader{fail: map[string]bool{"broken.wav": true}})

	res := s.LoadFile(context.Background(), "a", "intro.wav")
	require.True(t, res.OK())
	assert.Equal(t, CodeSuccess, res.Code)
	assert.Equal(t, "OK", res.Message)

	require.True(t, s.Play("A").OK())
	require.True(t, s.Cue("a", 12).OK())
	require.True(t, s.SetLoop("a", 10, 20).OK())
	require.True(t, s.SetVolume("a", 1.5).OK())

	st := s.MixerStatus()
	assert.True(t, st.DeckA.Playing)
	assert.Equal(t, "intro.wav", st.DeckA.TrackName)
	assert.InDelta(t, 12, st.DeckA.Position, 1e-9)
	assert.True(t, st.DeckA.LoopEnabled)
	assert.Equal(t, 1.0, st.DeckA.Volume)

	require.True(t, s.ClearLoop("a").OK())
	require.True(t, s.Pause("a").OK())
	assert.False(t, s.MixerStatus().DeckA.Playing)
	require.True(t, s.Stop("a").OK())
	assert.Equal(t, 0.0, s.MixerStatus().DeckA.Position)

	tests := []struct {
		name string
		res  Result
		code string
	}{
		{name: "unknown deck", res: s.Play("c"), code: CodeInvalidDeck},
		{name: "empty deck", res: s.Play("b"), code: CodeDeckNotLoaded},
		{name: "load failure", res: s.LoadFile(context.Background(), "b", "broken.wav"), code: CodeLoadFailed},
		{name: "bad loop", res: s.SetLoop("a", 20, 10), code: CodeInvalidArgument},
		{name: "nan cue", res: s.Cue("a", math.NaN()), code: CodeInvalidArgument},
		{name: "inf crossfader", res: s.SetCrossfader(math.Inf(1)), code: CodeInvalidArgument},
		{name: "bad band", res: s.SetEQ("a", "sub", 1), code: CodeInvalidArgument},
		{name: "bad mode", res: s.SetFilter("a", "bandpass", 500), code: CodeInvalidArgument},
		{name: "unknown stage", res: s.ConfigureEffect("a", "flanger", true, nil), code: CodeInvalidArgument},
		{name: "bad settings", res: s.ConfigureEffect("a", "reverb", true, map[string]any{"wet": 3}), code: CodeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, StatusError, tt.res.Status)
			assert.Equal(t, tt.code, tt.res.Code)
			assert.NotEmpty(t, tt.res.Message)
		})
	}
}

func TestManager_MixerControls(t *testing.T) {
	s := newTestManager(t, testConfig(), nil)

	require.True(t, s.SetCrossfader(2).OK())
	assert.Equal(t, 1.0, s.Mixer().Crossfader())
	require.True(t, s.SetMasterVolume(0.4).OK())
	assert.InDelta(t, 0.4, s.Mixer().MasterVolume(), 1e-9)

	require.True(t, s.SetEQ("b", "bass", 0.25).OK())
	chain, err := s.Mixer().Effects(mixer.DeckB)
	require.NoError(t, err)
	assert.InDelta(t, 0.25, chain.EQGain(effects.BandBass), 1e-9)

	require.True(t, s.SetFilter("b", "highpass", 800).OK())
	assert.Equal(t, effects.ModeHighpass, chain.Settings().Filter.Mode)

	require.True(t, s.ConfigureEffect("b", "echo", true, map[string]any{"delay_time": 0.25}).OK())
	assert.True(t, chain.Enabled(effects.StageEcho))
}

func TestManager_Queue(t *testing.T) {
	s := newTestManager(t, testConfig(), nil)
	tracks := setTracks()

	assert.Equal(t, CodeInvalidArgument, s.QueueAdd(track.Metadata{Title: "no id"}).Code)
	require.True(t, s.QueueAdd(tracks[0]).OK())
	require.True(t, s.QueueAdd(tracks[1]).OK())
	require.True(t, s.SetCurrent("t1").OK())

	next := s.NextTracks(5)
	require.Len(t, next, 1)
	assert.Equal(t, "t2", next[0].Track.ID)

	info := s.QueueInfo()
	assert.Equal(t, "t1", info.CurrentID)
	assert.Equal(t, 1, info.Length)

	res := s.QueueRemove("missing")
	assert.Equal(t, CodeTrackNotFound, res.Code)
	assert.Equal(t, "Track not found in queue", res.Message)
	require.True(t, s.QueueRemove("t2").OK())
	assert.Empty(t, s.NextTracks(5))
}

func TestManager_PlanTransition(t *testing.T) {
	s := newTestManager(t, testConfig(), nil)
	tracks := setTracks()

	p, res := s.PlanTransition(tracks[0], tracks[1], "")
	require.True(t, res.OK())
	assert.Equal(t, 16, p.Bars)

	quick, res := s.PlanTransition(tracks[0], tracks[1], "quick")
	require.True(t, res.OK())
	assert.Equal(t, 8, quick.Bars)

	_, res = s.PlanTransition(tracks[0], tracks[1], "endless")
	assert.Equal(t, CodeInvalidArgument, res.Code)

	_, res = s.PlanTransition(tracks[0], track.Metadata{ID: "x", Duration: 100}, "")
	assert.Equal(t, CodeInsufficientData, res.Code)
}

func TestManager_PlansAndSuggestions(t *testing.T) {
	s := newTestManager(t, testConfig(), nil)
	tracks := setTracks()

	_, res := s.BuildSetPlan(tracks[:1])
	assert.Equal(t, CodePlanUnavailable, res.Code)
	assert.Equal(t, "Need at least 2 tracks for a set", res.Message)

	_, res = s.VisualPlan(tracks[:1])
	assert.Equal(t, CodePlanUnavailable, res.Code)

	vp, res := s.VisualPlan(tracks)
	require.True(t, res.OK())
	assert.Equal(t, 2, vp.Tracks)

	assert.Equal(t, "idle", s.Suggestion().Action)
	assert.Equal(t, "Ready to play", s.Summary())

	require.True(t, s.LoadTrack(context.Background(), "a", tracks[0]).OK())
	require.True(t, s.Play("a").OK())
	assert.Equal(t, "Deck A: 150s left", s.Summary())
}

func TestManager_AutomationLifecycle(t *testing.T) {
	s := newTestManager(t, testConfig(), nil)

	assert.Equal(t, CodePlanUnavailable, s.StartAutomation(context.Background()).Code)
	assert.True(t, s.StopAutomation().OK())
	assert.Equal(t, CodeNotRunning, s.PauseAutomation().Code)
	assert.Equal(t, CodeNotRunning, s.ResumeAutomation().Code)

	s.UseClock(&stepClock{m: s.Mixer()})

	var mu sync.Mutex
	var got []automation.EventType
	s.Subscribe(notification.StreamFunc(func(n *notification.Notification) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, n.Event.Type)
		return nil
	}))
	s.Start(context.Background())

	sp, res := s.BuildSetPlan(setTracks())
	require.True(t, res.OK())
	require.Len(t, sp.Transitions, 1)

	require.True(t, s.StartAutomation(context.Background()).OK())
	assert.Equal(t, CodeAlreadyRunning, s.StartAutomation(context.Background()).Code)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, s.WaitAutomation(ctx))

	st := s.AutomationStatus()
	assert.Equal(t, automation.PhaseCompleted, st.Phase)
	assert.Equal(t, 1, st.TrackIndex)
	assert.Equal(t, "Two", s.MixerStatus().DeckA.TrackName)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0 && got[len(got)-1] == automation.EventCompleted
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	assert.Contains(t, got, automation.EventTrackAdvanced)
	mu.Unlock()

	assert.True(t, s.StopAutomation().OK())
	assert.Equal(t, automation.PhaseCompleted, s.AutomationStatus().Phase)
}

func TestThresholds_FromConfig(t *testing.T) {
	cfg := testConfig()
	cut := 0.0
	cfg.Automation.EQCut = &cut

	th := thresholds(cfg)
	assert.Equal(t, 60.0, th.Warning)
	assert.Equal(t, 30.0, th.Ready)
	assert.Equal(t, 90.0, th.Prepare)
	assert.Equal(t, 0.0, th.EQCut)

	assert.Equal(t, 0.2, thresholds(testConfig()).EQCut)
}
