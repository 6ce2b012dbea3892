package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"

	"github.com/corray333/backend-labs/tms/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// MustInit loads .env and config.yaml and installs the default logger.
func MustInit() {
	if err := godotenv.Load("./.env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic("error while loading .env file: " + err.Error())
	}
	setDefaults()
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/tms-order-svc")
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		panic("error while reading config file: " + err.Error())
	}
	SetupLogger()
}

func setDefaults() {
	viper.SetDefault("server.http.port", "8080")
	viper.SetDefault("server.grpc.port", "9090")
	viper.SetDefault("dataapi.timeout_seconds", 15)
	viper.SetDefault("dispatch.timeout_seconds", 20)
	viper.SetDefault("order_code.max_attempts", 100)
	viper.SetDefault("rabbitmq.host", "rabbitmq")
	viper.SetDefault("rabbitmq.port", "5672")
	viper.SetDefault("rabbitmq.exchange", "tms.orders")
	viper.SetDefault("rabbitmq.dispatch_queue", "tms.dispatch.requested")
	viper.SetDefault("rabbitmq.consumer_tag", "tms-dispatch-worker")
	viper.SetDefault("rabbitmq.consumer_concurrency", 10)
	viper.SetDefault("otel.service_name", "tms-order-svc")
	viper.SetDefault("otel.jaeger_endpoint", "http://jaeger:14268/api/traces")
	viper.SetDefault("log.level", "info")
}

// SetupLogger installs the JSON request-aware handler as the default slog logger.
func SetupLogger() {
	var level slog.Level
	if err := level.UnmarshalText([]byte(viper.GetString("log.level"))); err != nil {
		level = slog.LevelInfo
	}
	handler := logger.NewHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	log := slog.New(handler)
	slog.SetDefault(log)
}
