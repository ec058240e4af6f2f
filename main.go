package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/tphakala/phishguard/cmd"
	"github.com/tphakala/phishguard/cmd/analyze"
	"github.com/tphakala/phishguard/internal/buildinfo"
	"github.com/tphakala/phishguard/internal/conf"
	"github.com/tphakala/phishguard/internal/errors"
)

// set with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   string
	buildDate string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cliCtx := conf.NewContext(buildinfo.New(version, buildDate))
	err := cmd.RootCommand(cliCtx).ExecuteContext(ctx)
	stop()
	switch {
	case err == nil:
	case errors.Is(err, analyze.ErrThreatFound):
		os.Exit(2)
	default:
		os.Exit(1)
	}
}
