package skillcall

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/harunnryd/skillcall/pkg/backend"
	"github.com/harunnryd/skillcall/pkg/call"
	"github.com/harunnryd/skillcall/pkg/configutil"
	"github.com/harunnryd/skillcall/pkg/journal"
	"github.com/harunnryd/skillcall/pkg/logging"
	"github.com/harunnryd/skillcall/pkg/metrics"
	"github.com/harunnryd/skillcall/pkg/observers"
	"github.com/harunnryd/skillcall/pkg/redact"
	"github.com/harunnryd/skillcall/pkg/resilience"
)

// App is a fully wired call controller plus the resources it owns.
type App struct {
	Config     Config
	Backend    *backend.Client
	Controller *call.Controller
	// Journal is nil when journaling is disabled.
	Journal *journal.Store

	log     *slog.Logger
	closers []func() error
}

// NewApp builds the providers named in cfg through reg and wires them into
// a controller. Close releases everything NewApp opened.
func NewApp(cfg Config, reg *ProviderRegistry, log *slog.Logger) (*App, error) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	if log == nil {
		log = slog.Default()
	}
	redact.SetEnabled(cfg.Privacy.RedactPII)

	a := &App{Config: cfg, log: logging.NewComponentLogger(log, "app")}
	a.Backend = backend.New(backend.Config{
		BaseURL:   cfg.Backend.BaseURL,
		APIPrefix: cfg.Backend.APIPrefix,
		Token:     cfg.Backend.Token,
		Timeout:   configutil.Millis(cfg.Backend.TimeoutMS, 30*time.Second),
		Retries:   cfg.Backend.Retries,
		Logger:    log,
	})
	deps := Deps{Config: cfg, Backend: a.Backend, Logger: log}

	synth, err := reg.BuildSynthesizer(cfg.Vendors.TTS, deps)
	if err != nil {
		return nil, err
	}
	player, err := reg.BuildPlayer(cfg.Vendors.Player, deps)
	if err != nil {
		return nil, err
	}
	rec, err := reg.BuildRecognizer(cfg.Vendors.Capture, deps)
	if err != nil {
		return nil, err
	}
	ringer, err := reg.BuildRinger(cfg.Vendors.Ringer, deps)
	if err != nil {
		return nil, err
	}

	var j call.Journal
	if cfg.Journal.Enabled {
		store, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		a.Journal = store
		a.closers = append(a.closers, store.Close)
		j = store
	}

	obs := a.observer(log)

	a.Controller = call.New(call.Options{
		Timing:      cfg.Call.Timing(),
		Backend:     a.Backend,
		Synthesizer: synth,
		Player:      player,
		Recognizer:  rec,
		Ringer:      ringer,
		Journal:     j,
		Observer:    obs,
		Breaker:     resilience.NewCircuitBreaker(cfg.Call.BreakerThreshold, configutil.Millis(cfg.Call.BreakerCooldownMS, 30*time.Second)),
		Logger:      log,
	})
	a.closers = append(a.closers, a.Controller.Close)

	a.log.Info("app_ready",
		slog.String("tts", synth.Name()),
		slog.String("player", player.Name()),
		slog.String("capture", rec.Name()),
		slog.String("ringer", cfg.Vendors.Ringer.Provider),
		slog.Bool("journal", a.Journal != nil),
	)
	return a, nil
}

// observer fans controller events out to the log, turn latency tracking and,
// when an artifacts dir is set, per-session timeline files.
func (a *App) observer(log *slog.Logger) metrics.Observer {
	list := []metrics.Observer{
		observers.NewLoggerObserver(logging.NewComponentLogger(log, "events")),
		observers.NewTurnLatencyObserver(log),
	}
	oc := a.Config.Observability
	if oc.ArtifactsDir != "" {
		tl := observers.NewTimelineObserver(oc.ArtifactsDir)
		if oc.RetentionDays > 0 {
			n, err := tl.PurgeOlderThan(time.Duration(oc.RetentionDays) * 24 * time.Hour)
			if err != nil {
				a.log.Warn("timelines_purge_failed", slog.String("error", err.Error()))
			} else if n > 0 {
				a.log.Info("timelines_purged", slog.Int("count", n))
			}
		}
		a.closers = append(a.closers, tl.Close)
		list = append(list, tl)
	}
	async := metrics.NewAsyncObserver(observers.NewMultiObserver(list...), oc.EventBuffer)
	a.closers = append(a.closers, func() error {
		async.Close()
		return nil
	})
	return async
}

// RetrySaves re-sends journaled profiles that never reached the backend.
func (a *App) RetrySaves(ctx context.Context) (int, error) {
	if a.Journal == nil {
		return 0, errors.New("journal disabled")
	}
	return journal.RetryUnsaved(ctx, a.Journal, a.Backend, a.log)
}

// Close tears down in reverse order of construction.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
