// Пакет telemetry — настройка OpenTelemetry-трейсинга ScoreTeam.
// Если endpoint не задан, глобальный провайдер остаётся no-op и спаны
// из сервисов и middleware никуда не экспортируются.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// ServiceName — service.name в ресурсе трейсов.
const ServiceName = "scoreteam"

// ShutdownFunc завершает экспорт и сбрасывает буферизованные спаны.
type ShutdownFunc func(ctx context.Context) error

// Setup настраивает глобальный TracerProvider с экспортом по OTLP/HTTP.
// endpoint — полный URL коллектора (например, http://otel-collector:4318).
func Setup(ctx context.Context, endpoint, version string, logger *slog.Logger) (ShutdownFunc, error) {
	if endpoint == "" {
		logger.Info("ST_OTEL_ENDPOINT не задан — экспорт трейсов отключён")
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return nil, fmt.Errorf("создание OTLP-экспортёра: %w", err)
	}

	res := resource.NewSchemaless(
		attribute.String("service.name", ServiceName),
		attribute.String("service.version", version),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("Экспорт трейсов включён", slog.String("endpoint", endpoint))
	return tp.Shutdown, nil
}
