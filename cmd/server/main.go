// Command aliasvault-server serves the AliasVault REST and gRPC APIs.
package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/aliasvault/internal/buildinfo"
	"github.com/dmitrijs2005/aliasvault/internal/server"
	"github.com/dmitrijs2005/aliasvault/internal/server/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	cfg := config.LoadConfig()
	app, err := server.NewApp(cfg)
	if err != nil {
		log.Printf("aliasvault-server: %v", err)
		os.Exit(1)
	}

	app.Run(context.Background())
}
