package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/seivahq/painel/internal/server"
)

func main() {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	h, err := server.NewHandler()
	if err != nil {
		slog.Error("build handler", "err", err)
		os.Exit(1)
	}

	slog.Info("listening", "addr", addr)
	if err := http.ListenAndServe(addr, h); err != nil {
		slog.Error("serve", "err", err)
		os.Exit(1)
	}
}
