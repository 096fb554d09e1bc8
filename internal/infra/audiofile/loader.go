// Package audiofile decodes WAV files into deck sources.
package audiofile

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/autodeck/internal/app/mixer"
	"github.com/osa030/autodeck/internal/domain/track"
)

// ErrUnsupported is returned for files that are not WAV.
var ErrUnsupported = errors.New("unsupported audio format")

const readChunk = 4096

// Loader decodes WAV files and resamples them to the mixer rate. Every
// error is marked with mixer.ErrLoad.
type Loader struct {
	sampleRate beep.SampleRate
	quality    int
}

// NewLoader creates a loader for the given mixer sample rate. quality is
// the beep resampling quality.
func NewLoader(sampleRate, quality int) *Loader {
	return &Loader{sampleRate: beep.SampleRate(sampleRate), quality: min(max(quality, 1), 64)}
}

// Load decodes the track's file. The source is named after the track.
func (l *Loader) Load(ctx context.Context, t track.Metadata) (mixer.Source, error) {
	src, err := l.LoadFile(ctx, t.Path)
	if err != nil {
		return mixer.Source{}, err
	}
	src.Name = t.Name()
	return src, nil
}

// LoadFile decodes a WAV file into memory.
func (l *Loader) LoadFile(ctx context.Context, path string) (mixer.Source, error) {
	if !strings.EqualFold(filepath.Ext(path), ".wav") {
		return mixer.Source{}, loadError(errors.Wrapf(ErrUnsupported, "%s", path))
	}

	f, err := os.Open(path)
	if err != nil {
		return mixer.Source{}, loadError(errors.Wrapf(err, "open %s", path))
	}

	s, format, err := wav.Decode(f)
	if err != nil {
		f.Close()
		return mixer.Source{}, loadError(errors.Wrapf(err, "decode %s", path))
	}
	defer s.Close()

	var st beep.Streamer = s
	expected := s.Len()
	if format.SampleRate != l.sampleRate {
		st = beep.Resample(l.quality, format.SampleRate, l.sampleRate, s)
		expected = int(float64(expected) * float64(l.sampleRate) / float64(format.SampleRate))
	}

	frames, err := drain(ctx, st, expected)
	if err != nil {
		return mixer.Source{}, loadError(errors.Wrapf(err, "read %s", path))
	}
	if len(frames) == 0 {
		return mixer.Source{}, loadError(errors.Newf("%s: no audio frames", path))
	}

	zlog.Debug().Msgf("audiofile: loaded: path=%s, rate=%d, frames=%d", path, format.SampleRate, len(frames))
	return mixer.Source{Name: filepath.Base(path), Frames: frames}, nil
}

func drain(ctx context.Context, st beep.Streamer, expected int) ([][2]float64, error) {
	frames := make([][2]float64, 0, max(expected, 0)+readChunk)
	buf := make([][2]float64, readChunk)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, ok := st.Stream(buf)
		frames = append(frames, buf[:n]...)
		if !ok {
			break
		}
	}
	if err := st.Err(); err != nil {
		return nil, err
	}
	return frames, nil
}

func loadError(err error) error {
	return errors.Mark(err, mixer.ErrLoad)
}
