// Package telemetry настраивает трассировку OpenTelemetry.
//
// Отдельного коллектора у доски нет: законченные спаны пишутся в тот же
// logrus-лог, что и access-лог, одной строкой на спан.
package telemetry

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "todo-board"

// Tracer возвращает трейсер сервиса. Пока Setup не вызван, это no-op.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Setup ставит глобальный TracerProvider с логирующим экспортёром.
// Возвращает функцию остановки, которую нужно вызвать при завершении.
func Setup(serviceName string, logger *log.Logger) func(context.Context) error {
	res := resource.NewSchemaless(attribute.String("service.name", serviceName))
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSyncer(NewLogExporter(logger)),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}

// LogExporter пишет спаны в logrus на уровне debug, ошибочные на warn.
type LogExporter struct {
	logger *log.Logger
}

func NewLogExporter(logger *log.Logger) *LogExporter {
	return &LogExporter{logger: logger}
}

func (e *LogExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		fields := log.Fields{
			"span":        s.Name(),
			"trace_id":    s.SpanContext().TraceID().String(),
			"span_id":     s.SpanContext().SpanID().String(),
			"duration_ms": durationToMillis(s.EndTime().Sub(s.StartTime())),
		}
		for _, kv := range s.Attributes() {
			fields[string(kv.Key)] = kv.Value.AsInterface()
		}

		entry := e.logger.WithFields(fields)
		if s.Status().Code == codes.Error {
			entry.WithField("error", s.Status().Description).Warn("trace.span")
			continue
		}
		entry.Debug("trace.span")
	}
	return nil
}

func (e *LogExporter) Shutdown(context.Context) error { return nil }

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
