package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/corray333/backend-labs/tms/internal/dal/dataapi"
	"github.com/corray333/backend-labs/tms/internal/dal/postgres"
	"github.com/corray333/backend-labs/tms/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/tms/internal/otel"
	"github.com/corray333/backend-labs/tms/internal/transport/consumer"
	"github.com/spf13/viper"
)

// WorkerApp is the dispatch worker process consuming on-demand dispatch requests.
type WorkerApp struct {
	consumer       *consumer.Consumer
	rabbitMqClient *rabbitmq.Client
	postgresClient *postgres.Client
	otelController *otel.OtelController
}

// MustNewWorkerApp creates the dispatch worker.
func MustNewWorkerApp() *WorkerApp {
	otelController := otel.MustInitOtel(viper.GetString("otel.service_name") + "-dispatch-worker")
	postgresClient := postgres.MustNewClient()
	rabbitMqClient := rabbitmq.MustNewClient()

	dispatchSvc := mustNewDispatchService(postgresClient, dataapi.MustNewClient())

	return &WorkerApp{
		consumer:       consumer.NewConsumer(rabbitMqClient, dispatchSvc),
		rabbitMqClient: rabbitMqClient,
		postgresClient: postgresClient,
		otelController: otelController,
	}
}

// Run consumes until an interrupt signal arrives.
func (a *WorkerApp) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("Starting consumer")
		if err := a.consumer.Run(ctx); err != nil {
			slog.Error("Consumer error", "error", err)
		}
	}()

	<-stop
	slog.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := a.consumer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Consumer shutdown error", "error", err)
	} else {
		slog.Info("Consumer stopped gracefully")
	}
	cancel()

	closeCommon(shutdownCtx, a.rabbitMqClient, a.postgresClient, a.otelController)
}
