package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harunnryd/skillcall/pkg/configutil"
	"github.com/harunnryd/skillcall/pkg/logging"
	"github.com/harunnryd/skillcall/pkg/runner"
	"github.com/harunnryd/skillcall/pkg/skillcall"
	"github.com/harunnryd/skillcall/pkg/twin"
)

func main() {
	configPath := flag.String("config", "", "path to the skillcall YAML config")
	addr := flag.String("addr", "", "listen address, overrides twin.addr")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed dev token")
	flag.Parse()

	if err := run(*configPath, *addr, *tokenTTL); err != nil {
		fmt.Fprintln(os.Stderr, "skillsync-twin:", err)
		os.Exit(1)
	}
}

func run(configPath, addr string, tokenTTL time.Duration) error {
	cfg, err := skillcall.LoadConfig(configPath)
	if err != nil {
		return err
	}
	log := logging.InitLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	if addr == "" {
		addr = cfg.Twin.Addr
	}

	srv := twin.New(twin.Options{
		Prefix:        cfg.Backend.APIPrefix,
		Secret:        cfg.Twin.JWTSecret,
		Latency:       configutil.Millis(cfg.Twin.LatencyMS, 0),
		VoiceDisabled: cfg.Twin.VoiceDisabled,
		Logger:        log,
	})

	if cfg.Twin.JWTSecret != "" {
		token, err := twin.IssueToken(cfg.Twin.JWTSecret, "aicall-dev", tokenTTL)
		if err != nil {
			return err
		}
		fmt.Printf("dev token (export SKILLCALL_BACKEND_TOKEN):\n%s\n\n", token)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	r := runner.NewLifecycleRunner(runner.Options{
		Title:  "SKILLSYNC TWIN",
		Banner: os.Stdout,
		Color:  true,
		Serve: func(ctx context.Context) error {
			return srv.Serve(ctx, addr)
		},
		Hooks: runner.Hooks{
			OnStart: func() { log.Info("twin_started", slog.String("addr", addr)) },
			OnStop:  func() { log.Info("twin_stopped", slog.Int("workers_saved", len(srv.Workers()))) },
		},
	})
	return r.Run(ctx)
}
