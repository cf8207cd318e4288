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
	expensesCreated   metric.Int64Counter
	approvalsRecorded metric.Int64Counter
	expensesCompleted metric.Int64Counter
	resolverFailures  metric.Int64Counter
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

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "expenso"
	}
	meter := provider.Meter(name)

	expensesCreated, err := meter.Int64Counter("expenso_expenses_created_total")
	if err != nil {
		return nil, err
	}
	approvalsRecorded, err := meter.Int64Counter("expenso_approvals_recorded_total")
	if err != nil {
		return nil, err
	}
	expensesCompleted, err := meter.Int64Counter("expenso_expenses_completed_total")
	if err != nil {
		return nil, err
	}
	resolverFailures, err := meter.Int64Counter("expenso_resolver_failures_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		expensesCreated:   expensesCreated,
		approvalsRecorded: approvalsRecorded,
		expensesCompleted: expensesCompleted,
		resolverFailures:  resolverFailures,
	}, nil
}

// RecordExpenseCreated increments created expense counts.
func (m *Metrics) RecordExpenseCreated(ctx context.Context, category string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("category", strings.TrimSpace(category)))
	m.expensesCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordApprovalRecorded increments recorded approval counts.
func (m *Metrics) RecordApprovalRecorded(ctx context.Context) {
	if m == nil {
		return
	}
	m.approvalsRecorded.Add(ctx, 1)
}

// RecordExpenseCompleted increments fully approved expense counts.
func (m *Metrics) RecordExpenseCompleted(ctx context.Context) {
	if m == nil {
		return
	}
	m.expensesCompleted.Add(ctx, 1)
}

// RecordResolverFailure increments approver resolution failures.
func (m *Metrics) RecordResolverFailure(ctx context.Context, scope string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("team_scope", strings.TrimSpace(scope)))
	m.resolverFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"category":    {},
	"team_scope":  {},
	"status_code": {},
	"endpoint":    {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
