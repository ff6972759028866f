package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"amqpchannel"
	"amqpchannel/internal/config"
	"amqpchannel/internal/stats"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()

	// ── Infrastructure ─────────────────────────────────────────────────────────
	//
	// A real producer would dial a broker over TCP and hand the resulting
	// net.Conn's frame stream to amqpchannel.OpenChannel; this example uses
	// the in-process loopback broker so it has no external dependency.

	broker := amqpchannel.NewLoopbackBroker(cfg.FrameMax, slog.Default())
	ch, err := broker.OpenChannel(1, slog.Default())
	if err != nil {
		slog.Error("channel open failed", "component", "example-producer", "error", err)
		os.Exit(1)
	}

	ch.SetReturnHandler(func(r *amqpchannel.PublishReturned) {
		slog.Warn("publish returned", "component", "example-producer", "error", r.Error())
	})

	if err := ch.ExchangeDeclare(amqpchannel.ExchangeDeclareArgs{Exchange: "orders", Type: "direct", Durable: true}); err != nil {
		slog.Error("exchange.declare failed", "component", "example-producer", "error", err)
		os.Exit(1)
	}
	if _, err := ch.QueueDeclare(amqpchannel.QueueDeclareArgs{Queue: "orders.created", Durable: true}); err != nil {
		slog.Error("queue.declare failed", "component", "example-producer", "error", err)
		os.Exit(1)
	}
	if err := ch.QueueBind("orders.created", "orders", "created", nil); err != nil {
		slog.Error("queue.bind failed", "component", "example-producer", "error", err)
		os.Exit(1)
	}
	if err := ch.ConfirmSelect(); err != nil {
		slog.Error("confirm.select failed", "component", "example-producer", "error", err)
		os.Exit(1)
	}

	var published, confirmed atomic.Int64
	snapshotCron, err := stats.StartSnapshotCron(cfg.StatsSchedule, func() string {
		return fmt.Sprintf("published=%d confirmed=%d", published.Load(), confirmed.Load())
	})
	if err != nil {
		slog.Error("stats cron failed to start", "component", "example-producer", "error", err)
		os.Exit(1)
	}

	// ── HTTP metrics ───────────────────────────────────────────────────────────

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: mux}

	go func() {
		slog.Info("example-producer started", "component", "example-producer", "metricsPort", cfg.MetricsPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "component", "example-producer", "error", err)
		}
	}()

	// ── Publish loop ───────────────────────────────────────────────────────────

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	n := 0
publishLoop:
	for {
		select {
		case <-ctx.Done():
			break publishLoop
		case <-ticker.C:
			n++
			body := []byte(fmt.Sprintf("order-%d", n))
			fut, err := ch.Publish(amqpchannel.Message{
				Exchange: "orders", RoutingKey: "created",
				Properties: amqpchannel.Properties{ContentType: strPtr("text/plain")},
				Body:       body,
			})
			if err != nil {
				slog.Error("publish failed", "component", "example-producer", "error", err)
				continue
			}
			published.Add(1)
			if err := fut.Wait(); err != nil {
				slog.Warn("publish nacked", "component", "example-producer", "error", err)
				continue
			}
			confirmed.Add(1)
			slog.Info("publish confirmed", "component", "example-producer", "body", string(body))
		}
	}

	// ── Graceful shutdown ──────────────────────────────────────────────────────

	slog.Info("shutdown signal received", "component", "example-producer")

	snapshotCron.Stop()

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := srv.Shutdown(httpCtx); err != nil {
		slog.Error("http shutdown error", "component", "example-producer", "error", err)
	}

	ch.Close()
	slog.Info("shutdown complete", "component", "example-producer")
}

func strPtr(s string) *string { return &s }
