package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"amqpchannel"
	"amqpchannel/internal/config"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()

	// ── Infrastructure ─────────────────────────────────────────────────────────
	//
	// Standalone demo: this broker is private to the process, so a handful
	// of seed messages are published here to give the consumer something
	// to drain. A real consumer dials the same broker the producer does.

	broker := amqpchannel.NewLoopbackBroker(cfg.FrameMax, slog.Default())
	ch, err := broker.OpenChannel(1, slog.Default())
	if err != nil {
		slog.Error("channel open failed", "component", "example-consumer", "error", err)
		os.Exit(1)
	}

	if err := ch.ExchangeDeclare(amqpchannel.ExchangeDeclareArgs{Exchange: "orders", Type: "direct", Durable: true}); err != nil {
		slog.Error("exchange.declare failed", "component", "example-consumer", "error", err)
		os.Exit(1)
	}
	if _, err := ch.QueueDeclare(amqpchannel.QueueDeclareArgs{Queue: "orders.created", Durable: true}); err != nil {
		slog.Error("queue.declare failed", "component", "example-consumer", "error", err)
		os.Exit(1)
	}
	if err := ch.QueueBind("orders.created", "orders", "created", nil); err != nil {
		slog.Error("queue.bind failed", "component", "example-consumer", "error", err)
		os.Exit(1)
	}
	if err := ch.Prefetch(cfg.Prefetch); err != nil {
		slog.Error("basic.qos failed", "component", "example-consumer", "error", err)
		os.Exit(1)
	}

	for i := 1; i <= 3; i++ {
		if _, err := ch.Publish(amqpchannel.Message{
			Exchange: "orders", RoutingKey: "created", Body: []byte(fmt.Sprintf("seed-order-%d", i)),
		}); err != nil {
			slog.Error("seed publish failed", "component", "example-consumer", "error", err)
		}
	}

	done := make(chan struct{})
	tag, err := ch.BasicConsume(amqpchannel.ConsumeArgs{
		Queue: "orders.created",
		Handler: func(d amqpchannel.Delivery) {
			slog.Info("delivery received", "component", "example-consumer", "body", string(d.Body))
			if err := d.Ack(); err != nil {
				slog.Error("ack failed", "component", "example-consumer", "error", err)
			}
		},
		OnCancel: func(err error) {
			slog.Info("consumer cancelled", "component", "example-consumer", "error", err)
			close(done)
		},
	})
	if err != nil {
		slog.Error("basic.consume failed", "component", "example-consumer", "error", err)
		os.Exit(1)
	}

	// ── HTTP metrics ───────────────────────────────────────────────────────────

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + cfg.MetricsPort, Handler: mux}

	go func() {
		slog.Info("example-consumer started", "component", "example-consumer", "consumerTag", tag, "metricsPort", cfg.MetricsPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "component", "example-consumer", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// ── Graceful shutdown ──────────────────────────────────────────────────────
	//
	// Cancel the consumer before tearing down the channel so in-flight
	// deliveries finish and no new ones arrive mid-shutdown.

	slog.Info("shutdown signal received", "component", "example-consumer")

	if err := ch.BasicCancel(tag); err != nil {
		slog.Error("basic.cancel failed", "component", "example-consumer", "error", err)
	}
	<-done

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := srv.Shutdown(httpCtx); err != nil {
		slog.Error("http shutdown error", "component", "example-consumer", "error", err)
	}

	ch.Close()
	slog.Info("shutdown complete", "component", "example-consumer")
}
