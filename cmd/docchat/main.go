// Command docchat indexes local documents and answers questions about them.
package main

import (
	"context"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/custodia-labs/docchat/internal/adapters/driving/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	if info, ok := debug.ReadBuildInfo(); ok {
		cli.SetVersion(info.Main.Version)
	}
	cli.SetBootstrap(bootstrap)

	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
