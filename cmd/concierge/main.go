package main

import (
	"fmt"
	"net/http"

	"github.com/qubitlabs/concierge/internal/auth"
	"github.com/qubitlabs/concierge/internal/config"
	"github.com/qubitlabs/concierge/internal/controller"
	"github.com/qubitlabs/concierge/internal/generator"
	"github.com/qubitlabs/concierge/internal/llm"
	"github.com/qubitlabs/concierge/internal/logger"
	"github.com/qubitlabs/concierge/internal/server"
	"github.com/qubitlabs/concierge/internal/store"
)

// logEvents surfaces outward widget signals to the host process. A real host
// UI would open its login modal here.
type logEvents struct{}

func (logEvents) RequestAuthentication() {
	logger.L.Info("widget requested authentication from host UI")
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		return
	}
	logger.SetLevel(cfg.Log.Level)

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		logger.L.Error("failed to open conversation store", "error", err)
		return
	}
	defer st.Close()

	card := cfg.Contact.Card()
	gen := generator.New(llm.NewClient(cfg.LLM), cfg.LLM, card)
	ctrl := controller.New(st, gen, auth.Anonymous{}, logEvents{})

	srv := server.New(ctrl, st)

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.L.Info("starting server", "address", addr, "session_id", st.SessionID())
	if err := http.ListenAndServe(addr, srv.Router()); err != nil {
		logger.L.Error("server stopped", "error", err)
	}
}
