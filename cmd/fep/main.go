// Command fep runs the Frigate Event Processor: it subscribes to a
// Frigate MQTT event stream, applies admission rules, and republishes
// admitted alerts on a separate topic.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/rgregg/frigate-event-processor/internal/admission"
	"github.com/rgregg/frigate-event-processor/internal/api"
	"github.com/rgregg/frigate-event-processor/internal/artifact"
	"github.com/rgregg/frigate-event-processor/internal/clock"
	"github.com/rgregg/frigate-event-processor/internal/config"
	"github.com/rgregg/frigate-event-processor/internal/frame"
	"github.com/rgregg/frigate-event-processor/internal/metrics"
	"github.com/rgregg/frigate-event-processor/internal/mqttclient"
	"github.com/rgregg/frigate-event-processor/internal/publisher"
)

func main() {
	addr := flag.String("addr", ":8080", "HTTP ops-surface listen address")
	cfgPath := flag.String("config", "configs/fep.yaml", "path to the FEP rule config YAML")
	confirmArtifacts := flag.Bool("confirm-artifacts", false, "actively probe Frigate's HTTP API to confirm snapshot/clip availability")
	flag.Parse()

	loader, err := config.NewLoader(*cfgPath)
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}
	cfg := loader.Config()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(cfg.Logging.Level)}))
	slog.SetDefault(logger)
	slog.Info("config loaded", "alerts", len(cfg.Alerts), "path", *cfgPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var prober artifact.Prober
	if *confirmArtifacts {
		base := fmt.Sprintf("http://%s:%d", cfg.Frigate.Host, cfg.Frigate.Port)
		if cfg.Frigate.SSL {
			base = fmt.Sprintf("https://%s:%d", cfg.Frigate.Host, cfg.Frigate.Port)
		}
		prober = artifact.NewHTTPProber(base, nil)
	}
	gate := artifact.New(prober, *confirmArtifacts)

	statusTopic := cfg.MQTT.AlertTopic + "/status"
	mq, err := mqttclient.New(mqttclient.Config{
		Host:        cfg.MQTT.Host,
		Port:        cfg.MQTT.Port,
		Username:    cfg.MQTT.Username,
		Password:    cfg.MQTT.Password,
		ClientID:    "fep-" + uuid.New().String(),
		StatusTopic: statusTopic,
	})
	if err != nil {
		slog.Error("failed to connect to MQTT broker", "err", err)
		os.Exit(1)
	}
	defer mq.Close()

	pub := publisher.New(mq, cfg.MQTT.AlertTopic, 1, logger)

	eng := admission.New(ctx, admission.Options{
		Config:    cfg,
		Clock:     clock.NewSystem(),
		Gate:      gate,
		Publisher: pub,
		Logger:    logger,
	})
	go eng.Run(ctx)

	if err := mq.Subscribe(cfg.MQTT.ListenTopic, 1, func(payload []byte) {
		f, err := frame.Decode(payload)
		if err != nil {
			metrics.FramesDropped.Inc()
			slog.Warn("dropping malformed frame", "err", err)
			return
		}
		if !eng.Submit(f) {
			metrics.FramesDropped.Inc()
			slog.Warn("inbound queue full, dropping frame", "event_id", f.ID)
		}
	}); err != nil {
		slog.Error("failed to subscribe to listen topic", "topic", cfg.MQTT.ListenTopic, "err", err)
		os.Exit(1)
	}

	loader.OnChange(func(newCfg *config.Document) {
		eng.Reconfigure(newCfg)
		slog.Info("config hot-reloaded", "alerts", len(newCfg.Alerts))
	})
	stopWatch, err := loader.Watch()
	if err != nil {
		slog.Warn("config watcher unavailable (hot-reload disabled)", "err", err)
	} else {
		defer stopWatch()
	}

	handler := api.New(&engineView{eng: eng}, loader)
	srv := &http.Server{
		Addr:         *addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		slog.Info("ops surface listening", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down...")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutCancel()
	_ = srv.Shutdown(shutCtx)
	cancel()
	slog.Info("goodbye")
}

// logLevel maps a logging.level config value to a slog.Level, defaulting
// to Info for an empty or unrecognized value.
func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warning", "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// engineView adapts *admission.Engine to api.EngineView, translating
// Event Table records into the API's diagnostic projection.
type engineView struct {
	eng *admission.Engine
}

func (v *engineView) QueueLen() int    { return v.eng.QueueLen() }
func (v *engineView) QueueCap() int    { return v.eng.QueueCap() }
func (v *engineView) EventCount() int  { return v.eng.EventCount() }
func (v *engineView) Snapshot() []api.EventSummary {
	recs := v.eng.Snapshot()
	out := make([]api.EventSummary, 0, len(recs))
	for _, r := range recs {
		out = append(out, api.EventSummary{
			EventID: r.EventID,
			Camera:  r.Camera,
			Label:   r.Label,
			Status:  r.Status,
			Alerted: r.Alerted,
			Reason:  r.Reason,
		})
	}
	return out
}
