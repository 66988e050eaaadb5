// discord-bridge is the long-running bot process. It keeps the Discord
// gateway connection alive and serves the local protocol endpoint that
// workflow processes use to register triggers, send prompts and messages,
// and track executions.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vanlueckn/n8n-nodes-discord/pkg/bridge"
	"github.com/vanlueckn/n8n-nodes-discord/pkg/config"
	"github.com/vanlueckn/n8n-nodes-discord/pkg/discord"
	"github.com/vanlueckn/n8n-nodes-discord/pkg/ipc"
	"github.com/vanlueckn/n8n-nodes-discord/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments configure the environment directly.
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.SetLevel(cfg.LogLevel)

	b := bridge.New(discord.NewGateway)

	server := ipc.NewServer()
	b.Register(server)
	if err := server.Start(cfg.Addr()); err != nil {
		return fmt.Errorf("start protocol server: %w", err)
	}

	logger.InfoCF("main", "Bridge running", map[string]interface{}{
		"addr": server.Addr(),
	})

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.InfoC("main", "Shutting down")
	b.Manager().Close()
	return server.Stop()
}
