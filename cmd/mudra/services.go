package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/events"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/mqtt"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
)

// services bundles the services every long-running command needs.
type services struct {
	store      *store.Store
	metrics    *metrics.Metrics
	dispatcher *events.Dispatcher
	publisher  *mqtt.Publisher
}

func openServices(ctx context.Context, settings *config.Settings) (*services, error) {
	if err := os.MkdirAll(filepath.Dir(settings.Store.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(settings.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.New(reg)
	if err != nil {
		st.Close()
		return nil, err
	}

	svc := &services{
		store:      st,
		metrics:    m,
		dispatcher: events.NewDispatcher(m),
	}
	svc.dispatcher.Register(events.NewStoreRecorder(st))

	if settings.MQTT.Enabled() {
		svc.publisher = mqtt.NewPublisher(settings.MQTT)
		svc.publisher.OnError(m.ObservePublishError)
		connectCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := svc.publisher.Connect(connectCtx); err != nil {
			slog.Warn("mqtt broker not reachable yet, will keep retrying", "broker", settings.MQTT.Broker, "error", err)
		}
		cancel()
		svc.dispatcher.Register(svc.publisher)
	}

	slog.Info("services ready", "store", st.Path(), "consumers", svc.dispatcher.Consumers())
	return svc, nil
}

func (svc *services) newServer(settings *config.Settings) *server.Server {
	return server.New(server.Config{
		StaticDir:    settings.Server.StaticDir,
		Store:        svc.store,
		Gesture:      settings.Gesture,
		SessionTTL:   settings.Server.SessionTTL,
		MaxBodyBytes: settings.Server.MaxBodyBytes,
		Dispatcher:   svc.dispatcher,
		Metrics:      svc.metrics,
	})
}

func (svc *services) Close() {
	if svc.publisher != nil {
		svc.publisher.Close()
	}
	if err := svc.store.Close(); err != nil {
		slog.Error("error closing store", "error", err)
	}
}
