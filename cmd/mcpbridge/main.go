package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rodrigoscoelho/mcp-anywhere-sub002/configs"
	"github.com/rodrigoscoelho/mcp-anywhere-sub002/internal/adapter/inbound/webapi"
	"github.com/rodrigoscoelho/mcp-anywhere-sub002/internal/adapter/outbound/streamhttp"
	"github.com/rodrigoscoelho/mcp-anywhere-sub002/internal/adapter/outbound/toolcache"
	"github.com/rodrigoscoelho/mcp-anywhere-sub002/internal/usecase"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	serviceName    = "mcpbridge"
	serviceVersion = "0.1.0"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// === Configuration ===
	cfg, err := configs.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// === Logging ===
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.ParsedLogLevel()}))
	slog.SetDefault(logger)
	logger.Info("Logger initialized.", slog.String("level", cfg.ParsedLogLevel().String()))

	// === OpenTelemetry Initialization ===
	shutdownOtel, err := initOtelProvider(cfg)
	if err != nil {
		logger.Error("Failed to initialize OpenTelemetry.", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := shutdownOtel(context.Background()); err != nil {
			logger.Error("Failed to shutdown OpenTelemetry TracerProvider.", slog.Any("error", err))
		}
	}()

	// === Dependency Injection ===
	logger.Info("Initializing dependencies.", slog.String("downstream", cfg.DownstreamURL))

	// The per-call bound lives in the invoke use case's context, not here;
	// a client-level timeout would race it and misreport timeouts.
	httpClient := &http.Client{}

	transport := streamhttp.New(httpClient, streamhttp.Config{
		Endpoint:        cfg.DownstreamURL,
		Headers:         cfg.DownstreamHeaders,
		ClientName:      serviceName,
		ClientVersion:   serviceVersion,
		ProtocolVersion: cfg.ProtocolVersion,
	}, logger)

	toolRepo := toolcache.NewInMemoryToolRepository(logger)

	establishUC := usecase.NewEstablishSessionUseCase(transport, logger)
	listUC := usecase.NewListToolsUseCase(transport, toolRepo, logger)
	invokeUC := usecase.NewInvokeToolUseCase(transport, cfg.InvokeTimeout, logger)

	handlers := webapi.NewHandlers(establishUC, listUC, invokeUC, cfg.HandshakeTimeout, logger)

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handlers.Router(),
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	// === Server Startup ===
	go func() {
		logger.Info("Bridge HTTP server starting.", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Bridge HTTP server failed.", slog.Any("error", err))
			stop()
		}
	}()

	// Wait for interrupt signal.
	<-ctx.Done()

	// === Server Shutdown ===
	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Bridge HTTP server graceful shutdown failed.", slog.Any("error", err))
	}
	logger.Info("Server shut down gracefully.")
}

// initOtelProvider initializes the OpenTelemetry SDK and sets up the OTLP trace exporter.
// It returns a shutdown function to be called on application exit.
func initOtelProvider(cfg *configs.Config) (func(context.Context) error, error) {
	ctx := context.Background()

	if cfg.OtelExporterOtlpEndpoint == "" {
		slog.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, OpenTelemetry tracing disabled.")
		return func(context.Context) error { return nil }, nil
	}

	slog.Info("Initializing OTLP exporter.", slog.String("endpoint", cfg.OtelExporterOtlpEndpoint))

	grpcOpts := []grpc.DialOption{}
	if cfg.OtelExporterOtlpInsecure {
		grpcOpts = append(grpcOpts, grpc.WithTransportCredentials(insecure.NewCredentials()))
		slog.Warn("Using insecure connection for OTLP exporter.")
	} else {
		slog.Info("Using secure connection for OTLP exporter (assuming system CAs).")
	}

	conn, err := grpc.NewClient(cfg.OtelExporterOtlpEndpoint, grpcOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to OTLP endpoint: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}

	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(serviceVersion),
		),
	)
	if err != nil {
		_ = traceExporter.Shutdown(ctx)
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(r),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	slog.Info("OpenTelemetry TracerProvider configured.")

	return func(ctx context.Context) error {
		providerErr := tp.Shutdown(ctx)
		connErr := conn.Close()
		return errors.Join(providerErr, connErr)
	}, nil
}
