package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/harunnryd/skillcall/pkg/logging"
	"github.com/harunnryd/skillcall/pkg/redact"
	"github.com/harunnryd/skillcall/pkg/runner"
	"github.com/harunnryd/skillcall/pkg/skillcall"
	"github.com/harunnryd/skillcall/pkg/tui"
)

func main() {
	configPath := flag.String("config", "", "path to the skillcall YAML config")
	logPath := flag.String("log", "skillcall.log", "log file; the terminal belongs to the call screen")
	retrySaves := flag.Bool("retry-saves", false, "re-send journaled profiles that never reached the backend, then exit")
	history := flag.Int("history", 0, "print the N most recent journaled calls, then exit")
	noBanner := flag.Bool("no-banner", false, "skip the startup banner")
	flag.Parse()

	if err := run(*configPath, *logPath, *retrySaves, *history, !*noBanner); err != nil {
		fmt.Fprintln(os.Stderr, "aicall:", err)
		os.Exit(1)
	}
}

func run(configPath, logPath string, retrySaves bool, history int, showBanner bool) error {
	cfg, err := skillcall.LoadConfig(configPath)
	if err != nil {
		return err
	}

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	defer logFile.Close()
	log := logging.InitLogger(logFile, cfg.LogLevel, cfg.LogFormat)

	app, err := skillcall.NewApp(cfg, nil, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch {
	case retrySaves:
		n, err := app.RetrySaves(ctx)
		fmt.Printf("re-sent %d saved profile(s)\n", n)
		return errors.Join(err, app.Close())
	case history > 0:
		err := printHistory(ctx, os.Stdout, app, history)
		return errors.Join(err, app.Close())
	}

	prog := tea.NewProgram(tui.New(app.Controller), tea.WithAltScreen())
	var final tea.Model
	var bannerOut io.Writer
	if showBanner {
		bannerOut = os.Stdout
	}
	r := runner.NewLifecycleRunner(runner.Options{
		Title:  "SKILLCALL",
		Banner: bannerOut,
		Color:  true,
		Serve: func(ctx context.Context) error {
			go func() {
				<-ctx.Done()
				prog.Quit()
			}()
			m, err := prog.Run()
			final = m
			return err
		},
		Drainer: runner.DrainFunc(func(context.Context) error { return app.Close() }),
		Hooks: runner.Hooks{
			OnStart: func() { log.Info("aicall_started", slog.String("backend", cfg.Backend.BaseURL)) },
			OnStop:  func() { log.Info("aicall_stopped") },
		},
	})
	err = r.Run(ctx)

	if m, ok := final.(tui.Model); ok && m.Navigated() != "" {
		fmt.Printf("Profile saved. Worker is now discoverable at %s\n", m.Navigated())
	}
	return err
}

func printHistory(ctx context.Context, w io.Writer, app *skillcall.App, limit int) error {
	if app.Journal == nil {
		return errors.New("journal disabled")
	}
	recs, err := app.Journal.Recent(ctx, limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ENDED\tPHONE\tLANGUAGE\tSTAGE\tANSWERS\tOUTCOME\tWORKER")
	for _, rec := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			rec.EndedAt.Local().Format(time.DateTime),
			redact.Phone(rec.Phone),
			rec.Language,
			rec.Stage,
			len(rec.Answers),
			rec.Outcome,
			rec.WorkerID,
		)
	}
	return tw.Flush()
}
