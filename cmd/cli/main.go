// Command aliasvault-cli is the interactive AliasVault client.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/aliasvault/internal/buildinfo"
	"github.com/dmitrijs2005/aliasvault/internal/client/cli"
	"github.com/dmitrijs2005/aliasvault/internal/client/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	// the REPL blocks on stdin, SIGTERM only cancels background work
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(config.LoadConfig())
	if err != nil {
		log.Fatalf("aliasvault-cli: %v", err)
	}

	app.Run(ctx)
}
