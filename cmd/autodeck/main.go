// Package main provides the autodeck command line entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/autodeck/internal/app/notification"
	"github.com/osa030/autodeck/internal/app/studio"
	"github.com/osa030/autodeck/internal/domain/track"
	"github.com/osa030/autodeck/internal/infra/audiofile"
	"github.com/osa030/autodeck/internal/infra/config"
	"github.com/osa030/autodeck/internal/infra/library"
	"github.com/osa030/autodeck/internal/infra/logger"
	"github.com/osa030/autodeck/internal/infra/output"
)

var (
	app        = kingpin.New("autodeck", "Two-deck mixing and set automation")
	configPath = app.Flag("config", "Path to config file (defaults when empty)").Envar("AUTODECK_CONFIG").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	// run command
	runCmd     = app.Command("run", "Play a set with automated transitions")
	runLibrary = runCmd.Arg("library", "Analyzer result file").Required().ExistingFile()
	runTracks  = runCmd.Arg("track-id", "Track IDs in play order (default: whole library)").Strings()

	// render command
	renderCmd     = app.Command("render", "Render a set to a WAV file")
	renderLibrary = renderCmd.Arg("library", "Analyzer result file").Required().ExistingFile()
	renderOut     = renderCmd.Arg("output", "Output WAV file").Required().String()
	renderTracks  = renderCmd.Arg("track-id", "Track IDs in play order (default: whole library)").Strings()

	// plan command
	planCmd     = app.Command("plan", "Print the set roadmap")
	planLibrary = planCmd.Arg("library", "Analyzer result file").Required().ExistingFile()
	planTracks  = planCmd.Arg("track-id", "Track IDs in play order (default: whole library)").Strings()

	// matrix command
	matrixCmd     = app.Command("matrix", "Print the compatibility matrix")
	matrixLibrary = matrixCmd.Arg("library", "Analyzer result file").Required().ExistingFile()
	matrixTracks  = matrixCmd.Arg("track-id", "Track IDs to compare (default: whole library)").Strings()

	// list-effects command
	listEffectsCmd = app.Command("list-effects", "List effect stages and exit")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == listEffectsCmd.FullCommand() {
		printEffects()
		return
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	loggerConfig := logger.Config{
		Output: cfg.Log.Output,
		Level:  cfg.Log.Level,
		File:   cfg.Log.File,
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = "file"
		loggerConfig.File = *logfile
	}
	closer, err := logger.Init(loggerConfig)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer closer.Close()

	switch command {
	case runCmd.FullCommand():
		err = runSet(cfg, *runLibrary, *runTracks)
	case renderCmd.FullCommand():
		err = renderSet(cfg, *renderLibrary, *renderOut, *renderTracks)
	case planCmd.FullCommand():
		err = printPlan(cfg, *planLibrary, *planTracks)
	case matrixCmd.FullCommand():
		err = printMatrix(*matrixLibrary, *matrixTracks)
	}
	if err != nil {
		zlog.Error().Msgf("%s failed: %v", command, err)
		closer.Close()
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if *configPath == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.Load(*configPath)
}

func selectTracks(path string, ids []string) ([]track.Metadata, error) {
	lib, err := library.Load(path)
	if err != nil {
		return nil, err
	}
	return lib.Select(ids)
}

func resultError(r studio.Result) error {
	if r.OK() {
		return nil
	}
	return errors.Newf("%s (%s)", r.Message, r.Code)
}

// newStudio builds the session and prepares the set plan.
func newStudio(cfg *config.Config, tracks []track.Metadata) (*studio.Manager, error) {
	loader := audiofile.NewLoader(cfg.Audio.SampleRate, cfg.Audio.ResampleQuality)
	mgr, err := studio.NewManager(cfg, loader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create studio")
	}
	sp, res := mgr.BuildSetPlan(tracks)
	if err := resultError(res); err != nil {
		mgr.Close()
		return nil, err
	}
	zlog.Info().Msgf("Set planned: tracks=%d, total=%.0fs", len(sp.Tracks), sp.TotalDuration)

	mgr.Subscribe(notification.StreamFunc(func(n *notification.Notification) error {
		ev := n.Event
		zlog.Info().Msgf("[%d] %s: phase=%s, track=%d, %s", n.SequenceNo, ev.Type, ev.Phase, ev.TrackIndex+1, ev.Message)
		return nil
	}))
	return mgr, nil
}

// runSet plays the set on the configured output until it completes or a
// signal arrives.
func runSet(cfg *config.Config, libPath string, ids []string) error {
	tracks, err := selectTracks(libPath, ids)
	if err != nil {
		return err
	}

	mgr, err := newStudio(cfg, tracks)
	if err != nil {
		return err
	}
	defer mgr.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	out, err := output.Open(cfg.Audio.Output, cfg.Audio.SampleRate, cfg.Audio.BlockSize, mgr.Mixer())
	if err != nil {
		return err
	}
	defer out.Close()

	mgr.Start(ctx)
	if err := resultError(mgr.StartAutomation(ctx)); err != nil {
		return err
	}

	if err := mgr.WaitAutomation(ctx); err != nil {
		zlog.Info().Msg("Received shutdown signal...")
		mgr.StopAutomation()
		return nil
	}
	if err := finished(mgr); err != nil {
		return err
	}

	// Let the last track play out.
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for mgr.MixerStatus().DeckA.Playing {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

// renderSet runs the set on a virtual clock and writes the mix to a file.
func renderSet(cfg *config.Config, libPath, outPath string, ids []string) error {
	tracks, err := selectTracks(libPath, ids)
	if err != nil {
		return err
	}

	mgr, err := newStudio(cfg, tracks)
	if err != nil {
		return err
	}
	defer mgr.Close()

	rec, err := output.NewRecorder(outPath, mgr.Mixer(), cfg.Audio.SampleRate, cfg.Audio.BlockSize)
	if err != nil {
		return err
	}
	mgr.UseClock(rec)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mgr.Start(ctx)
	if err := resultError(mgr.StartAutomation(ctx)); err != nil {
		rec.Close()
		return err
	}
	waitErr := mgr.WaitAutomation(ctx)
	if waitErr == nil {
		if rem := mgr.MixerStatus().DeckA.TimeRemaining; rem > 0 {
			waitErr = rec.Sleep(ctx, time.Duration(rem*float64(time.Second)))
		}
	}
	if err := rec.Close(); err != nil {
		return err
	}
	if waitErr != nil {
		return waitErr
	}

	zlog.Info().Msgf("Rendered %s: %.0fs", outPath, rec.Elapsed().Seconds())
	return finished(mgr)
}

func finished(mgr *studio.Manager) error {
	st := mgr.AutomationStatus()
	if st.LastError != "" {
		return errors.Newf("automation stopped: %s", st.LastError)
	}
	zlog.Info().Msgf("Set finished: phase=%s, tracks=%d", st.Phase, st.TrackIndex+1)
	return nil
}
