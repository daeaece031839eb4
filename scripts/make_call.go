package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/harunnryd/skillcall/pkg/call"
	"github.com/harunnryd/skillcall/pkg/logging"
	"github.com/harunnryd/skillcall/pkg/skillcall"
)

// make_call rings one worker number through the configured ringer without
// starting the call screen. Useful to check Twilio credentials.
func main() {
	configPath := flag.String("config", "skillcall.yaml", "")
	to := flag.String("to", "", "10-digit worker number")
	provider := flag.String("provider", "", "override vendors.ringer.provider")
	timeout := flag.Duration("timeout", 30*time.Second, "")
	flag.Parse()
	phone := call.NormalizePhone(*to)
	if len(phone) != 10 {
		fmt.Println("usage: make_call -to=9876543210 [-config=...] [-provider=twilio]")
		os.Exit(1)
	}
	cfg, err := skillcall.LoadConfig(*configPath)
	if err != nil {
		fmt.Println("config error:", err)
		os.Exit(1)
	}
	if *provider != "" {
		cfg.Vendors.Ringer.Provider = *provider
	}
	log := logging.InitLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	ringer, err := skillcall.DefaultRegistry().BuildRinger(cfg.Vendors.Ringer, skillcall.Deps{Config: cfg, Logger: log})
	if err != nil {
		fmt.Println("ringer error:", err)
		os.Exit(1)
	}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	start := time.Now()
	if err := ringer.Ring(ctx, phone); err != nil {
		fmt.Println("call error:", err)
		os.Exit(1)
	}
	fmt.Printf("answered after %s\n", time.Since(start).Round(time.Millisecond))
}
