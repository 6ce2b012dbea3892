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
	customerrepo "github.com/corray333/backend-labs/tms/internal/dal/repositories/customer/dataapi"
	orderrepo "github.com/corray333/backend-labs/tms/internal/dal/repositories/order/dataapi"
	outboxrepo "github.com/corray333/backend-labs/tms/internal/dal/repositories/outbox/postgres"
	routerepo "github.com/corray333/backend-labs/tms/internal/dal/repositories/route/dataapi"
	settingsrepo "github.com/corray333/backend-labs/tms/internal/dal/repositories/settings/postgres"
	vehiclerepo "github.com/corray333/backend-labs/tms/internal/dal/repositories/vehicle/postgres"
	"github.com/corray333/backend-labs/tms/internal/dal/scoring"
	"github.com/corray333/backend-labs/tms/internal/otel"
	"github.com/corray333/backend-labs/tms/internal/service/services/codegen"
	"github.com/corray333/backend-labs/tms/internal/service/services/dispatchsvc"
	"github.com/corray333/backend-labs/tms/internal/service/services/ordersvc"
	"github.com/corray333/backend-labs/tms/internal/service/services/routesvc"
	grpctransport "github.com/corray333/backend-labs/tms/internal/transport/grpc"
	httptransport "github.com/corray333/backend-labs/tms/internal/transport/http"
	outboxworker "github.com/corray333/backend-labs/tms/internal/worker/outbox"
	"github.com/spf13/viper"
)

// App is the order service process: HTTP API, gRPC health and the outbox relay.
type App struct {
	orderSvc       *ordersvc.OrderService
	httpTransport  *httptransport.HTTPTransport
	grpcTransport  *grpctransport.GRPCTransport
	outboxWorker   *outboxworker.Worker
	rabbitMqClient *rabbitmq.Client
	postgresClient *postgres.Client
	otelController *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel(viper.GetString("otel.service_name"))
	postgresClient := postgres.MustNewClient()
	rabbitMqClient := rabbitmq.MustNewClient()

	exchange := viper.GetString("rabbitmq.exchange")
	if err := rabbitMqClient.DeclareExchange(exchange); err != nil {
		panic(err)
	}

	dataClient := dataapi.MustNewClient()
	dispatchSvc := mustNewDispatchService(postgresClient, dataClient)

	orderRepository := orderrepo.NewOrderRepository(dataClient)
	routeRepository := routerepo.NewRouteRepository(dataClient)
	outboxRepository := outboxrepo.NewOutboxRepository(postgresClient)

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithCustomerRepository(customerrepo.NewCustomerRepository(dataClient)),
		ordersvc.WithRouteRepository(routeRepository),
		ordersvc.WithOrderRepository(orderRepository),
		ordersvc.WithRouteStatusRepository(orderRepository),
		ordersvc.WithSettingsRepository(settingsrepo.NewSettingsRepository(postgresClient)),
		ordersvc.WithOutbox(outboxRepository, exchange),
		ordersvc.WithReconciler(routesvc.NewReconciler(routeRepository, orderRepository)),
		ordersvc.WithCodeGenerator(codegen.NewGenerator(
			orderRepository,
			codegen.WithMaxAttempts(viper.GetInt("order_code.max_attempts")),
		)),
		ordersvc.WithDispatcher(dispatchSvc),
	)

	httpTransport := httptransport.NewHTTPTransport(orderSvc, dispatchSvc, postgresClient)
	httpTransport.RegisterRoutes()

	return &App{
		orderSvc:       orderSvc,
		httpTransport:  httpTransport,
		grpcTransport:  grpctransport.NewGRPCTransport(postgresClient),
		outboxWorker:   outboxworker.NewWorker(outboxRepository, rabbitMqClient),
		rabbitMqClient: rabbitMqClient,
		postgresClient: postgresClient,
		otelController: otelController,
	}
}

func mustNewDispatchService(postgresClient *postgres.Client, dataClient *dataapi.Client) *dispatchsvc.DispatchService {
	return dispatchsvc.MustNewDispatchService(
		dispatchsvc.WithSettingsRepository(settingsrepo.NewSettingsRepository(postgresClient)),
		dispatchsvc.WithOrderRepository(orderrepo.NewOrderRepository(dataClient)),
		dispatchsvc.WithVehicleRepository(vehiclerepo.NewVehicleRepository(postgresClient)),
		dispatchsvc.WithScorer(scoring.MustNewClient()),
	)
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.httpTransport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	go func() {
		if err := a.grpcTransport.Run(); err != nil {
			slog.Error("gRPC server error", "error", err)
		}
	}()

	go func() {
		slog.Info("Starting outbox worker")
		a.outboxWorker.Start(ctx)
	}()

	<-stop
	slog.Info("Shutdown signal received")
	cancel()

	a.gracefulShutdown()
}

// gracefulShutdown stops the transports first, then the worker, then the connections.
func (a *App) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.httpTransport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	if err := a.grpcTransport.Shutdown(ctx); err != nil {
		slog.Error("gRPC server shutdown error", "error", err)
	} else {
		slog.Info("gRPC server stopped gracefully")
	}

	a.outboxWorker.Stop()
	slog.Info("Outbox worker stopped gracefully")

	closeCommon(ctx, a.rabbitMqClient, a.postgresClient, a.otelController)
}

func closeCommon(ctx context.Context, rmq *rabbitmq.Client, pg *postgres.Client, oc *otel.OtelController) {
	if err := rmq.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	pg.Close()
	slog.Info("Database connection closed gracefully")

	if err := oc.Shutdown(ctx); err != nil {
		slog.Error("Otel trace provider close error", "error", err)
	} else {
		slog.Info("Otel trace provider closed gracefully")
	}

	select {
	case <-ctx.Done():
		slog.Warn("Shutdown timeout exceeded")
	default:
		slog.Info("Application shutdown complete")
	}
}
