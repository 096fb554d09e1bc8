package studio

import (
	"github.com/cockroachdb/errors"

	"github.com/osa030/autodeck/internal/app/automation"
	"github.com/osa030/autodeck/internal/app/effects"
	"github.com/osa030/autodeck/internal/app/mixer"
	"github.com/osa030/autodeck/internal/app/queue"
	"github.com/osa030/autodeck/internal/app/setplan"
	"github.com/osa030/autodeck/internal/app/transition"
	"github.com/osa030/autodeck/internal/infra/config"
)

// Result statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Result codes. Each has a message in the config messages table.
const (
	CodeSuccess          = "success"
	CodeTrackNotFound    = "track_not_found"
	CodeLoadFailed       = "load_failed"
	CodeDeckNotLoaded    = "deck_not_loaded"
	CodeInvalidDeck      = "invalid_deck"
	CodeInvalidArgument  = "invalid_argument"
	CodeInsufficientData = "insufficient_data"
	CodePlanUnavailable  = "plan_unavailable"
	CodeAlreadyRunning   = "already_running"
	CodeNotRunning       = "not_running"
	CodeError            = "error"
)

// ErrInvalidArgument is returned for out of range operation arguments.
var ErrInvalidArgument = errors.New("invalid argument")

// Result is the outcome of a studio operation.
type Result struct {
	Status  string
	Code    string
	Message string
}

// OK reports whether the operation succeeded.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

func okResult(cfg *config.Config) Result {
	return Result{Status: StatusOK, Code: CodeSuccess, Message: cfg.GetMessage(CodeSuccess)}
}

func errorResult(cfg *config.Config, err error) Result {
	code := codeFor(err)
	return Result{Status: StatusError, Code: code, Message: cfg.GetMessage(code)}
}

func codeFor(err error) string {
	switch {
	case errors.Is(err, queue.ErrNotFound):
		return CodeTrackNotFound
	case errors.Is(err, mixer.ErrLoad):
		return CodeLoadFailed
	case errors.Is(err, mixer.ErrNotLoaded):
		return CodeDeckNotLoaded
	case errors.Is(err, mixer.ErrUnknownDeck):
		return CodeInvalidDeck
	case errors.Is(err, transition.ErrInsufficientData):
		return CodeInsufficientData
	case errors.Is(err, automation.ErrPlanUnavailable), errors.Is(err, setplan.ErrNotEnoughTracks):
		return CodePlanUnavailable
	case errors.Is(err, automation.ErrAlreadyRunning):
		return CodeAlreadyRunning
	case errors.Is(err, automation.ErrNotRunning):
		return CodeNotRunning
	case errors.Is(err, ErrInvalidArgument),
		errors.Is(err, mixer.ErrInvalidLoop),
		errors.Is(err, effects.ErrUnknownStage),
		errors.Is(err, effects.ErrUnknownBand),
		errors.Is(err, effects.ErrUnknownMode),
		errors.Is(err, transition.ErrUnknownType),
		errors.Is(err, transition.ErrInvalidBars):
		return CodeInvalidArgument
	default:
		return CodeError
	}
}
