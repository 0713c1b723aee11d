package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	snapshotsDelivered metric.Int64Counter
	subscriptionErrors metric.Int64Counter
	decodeDropped      metric.Int64Counter
	notifyOutcomes     metric.Int64Counter
	workflowResponded  metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	return provider, nil
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "", "grpc":
		return otlpmetricgrpc.New(context.Background(),
			otlpmetricgrpc.WithEndpoint(endpoint),
			otlpmetricgrpc.WithInsecure(),
		)
	case "http", "http/protobuf":
		return otlpmetrichttp.New(context.Background(),
			otlpmetrichttp.WithEndpoint(endpoint),
			otlpmetrichttp.WithInsecure(),
		)
	default:
		return nil, fmt.Errorf("unsupported otlp protocol %q", protocol)
	}
}

// New builds the application instrument set.
func New(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter("clubsync")

	snapshots, err := meter.Int64Counter("subscription.snapshots",
		metric.WithDescription("live query snapshots delivered to consumers"))
	if err != nil {
		return nil, err
	}
	subErrors, err := meter.Int64Counter("subscription.errors",
		metric.WithDescription("terminal subscription errors delivered"))
	if err != nil {
		return nil, err
	}
	dropped, err := meter.Int64Counter("decode.dropped",
		metric.WithDescription("malformed remote documents dropped from projections"))
	if err != nil {
		return nil, err
	}
	notify, err := meter.Int64Counter("notify.outcomes",
		metric.WithDescription("per-recipient notification fan-out outcomes"))
	if err != nil {
		return nil, err
	}
	responded, err := meter.Int64Counter("workflow.responded",
		metric.WithDescription("invitation responses committed"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		snapshotsDelivered: snapshots,
		subscriptionErrors: subErrors,
		decodeDropped:      dropped,
		notifyOutcomes:     notify,
		workflowResponded:  responded,
	}, nil
}

func (m *Metrics) IncSnapshot(ctx context.Context, key string) {
	if m == nil {
		return
	}
	m.snapshotsDelivered.Add(ctx, 1, metric.WithAttributes(attribute.String("key", key)))
}

func (m *Metrics) IncSubscriptionError(ctx context.Context, key string) {
	if m == nil {
		return
	}
	m.subscriptionErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("key", key)))
}

func (m *Metrics) IncDecodeDropped(ctx context.Context, collection string) {
	if m == nil {
		return
	}
	m.decodeDropped.Add(ctx, 1, metric.WithAttributes(attribute.String("collection", collection)))
}

func (m *Metrics) IncNotifyOutcome(ctx context.Context, typ, outcome string) {
	if m == nil {
		return
	}
	m.notifyOutcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", typ),
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) IncWorkflowResponded(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.workflowResponded.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
