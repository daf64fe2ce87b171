package main

import (
	"io"
	"log"
	"net/http"
	"os"

	"github.com/21Gxme/Agnos/internal/config"
	"github.com/21Gxme/Agnos/internal/gelf"
	"github.com/21Gxme/Agnos/internal/handler"
	"github.com/21Gxme/Agnos/internal/hub"
	"github.com/21Gxme/Agnos/internal/router"
	"github.com/21Gxme/Agnos/internal/session"
	"github.com/21Gxme/Agnos/internal/store"
)

func main() {
	cfg := config.Load()

	// GELF UDP logging
	if cfg.GelfAddr != "" {
		gelfWriter, err := gelf.New(cfg.GelfAddr)
		if err != nil {
			log.Printf("Warning: GELF init failed: %v", err)
		} else {
			log.SetOutput(io.MultiWriter(os.Stderr, gelfWriter))
			log.Printf("GELF logging: enabled (%s)", cfg.GelfAddr)
		}
	}

	// State owners: the store and registry are constructed here and passed
	// by reference, never reached through ambient globals.
	recStore := store.New()
	registry := session.New()

	// Broker: one run loop serializes every mutation.
	h := hub.New()
	svc := hub.NewService(h, recStore, registry)
	go h.Run(svc)

	recH := handler.NewRecordHandler(h)
	r := router.New(recH, hub.Serve(h))

	log.Printf("Agnos intake server starting on %s", cfg.HTTPAddr)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
