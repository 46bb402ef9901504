package main

import (
	"log/slog"
	"os"

	"github.com/spundev/webrtcshare/internal/logging"
	"github.com/spundev/webrtcshare/internal/relay"
)

func main() {
	logging.Init()
	logger := slog.Default().With("component", "relay")

	hub := relay.NewHub(logger)
	go hub.Run()

	router := relay.NewRouter(hub)

	addr := ":" + port()
	logger.Info("starting relay server", "addr", addr)
	if err := router.Run(addr); err != nil {
		logger.Error("relay server exited", "error", err)
		os.Exit(1)
	}
}

func port() string {
	if p := os.Getenv("PORT"); p != "" {
		return p
	}
	return "8080"
}
