package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"wingman/config"
	"wingman/events"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics for the API
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	enabled       bool
	mu            sync.RWMutex

	// Metric instruments
	eventsCounter          metric.Int64Counter
	betsCounter            metric.Int64Counter
	betVolumeCounter       metric.Float64Counter
	resolvedCounter        metric.Int64Counter
	remainderHist          metric.Float64Histogram
	closedCounter          metric.Int64Counter
	vouchAdjustmentCounter metric.Int64Counter
	httpRequestsCounter    metric.Int64Counter
	httpDurationHist       metric.Float64Histogram
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the exporter chosen by OTEL_EXPORTER_TYPE
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	var exporter sdkmetric.Exporter
	var err error

	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none", "":
		log.Info("Metrics export disabled")
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	interval := time.Duration(mp.config.OTelExportIntervalMillis) * time.Millisecond
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return mp.initWithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)))
}

func (mp *MetricsProvider) initWithReader(reader sdkmetric.Reader) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.enabled {
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("wingman")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.enabled = true
	log.Info("Metrics provider initialized")
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.eventsCounter, err = mp.meter.Int64Counter(EventsEmittedTotal,
		metric.WithDescription("Total number of domain events emitted after commit"),
		metric.WithUnit("1"))
	if err != nil {
		return fmt.Errorf("failed to create events counter: %w", err)
	}

	mp.betsCounter, err = mp.meter.Int64Counter(BetsPlacedTotal,
		metric.WithDescription("Total number of bets placed"),
		metric.WithUnit("1"))
	if err != nil {
		return fmt.Errorf("failed to create bets counter: %w", err)
	}

	mp.betVolumeCounter, err = mp.meter.Float64Counter(BetVolume,
		metric.WithDescription("Total token amount staked"),
		metric.WithUnit("{token}"))
	if err != nil {
		return fmt.Errorf("failed to create bet volume counter: %w", err)
	}

	mp.resolvedCounter, err = mp.meter.Int64Counter(MarketsResolvedTotal,
		metric.WithDescription("Total number of markets resolved"),
		metric.WithUnit("1"))
	if err != nil {
		return fmt.Errorf("failed to create resolved counter: %w", err)
	}

	mp.remainderHist, err = mp.meter.Float64Histogram(SettlementRemainder,
		metric.WithDescription("Rounding remainder left in escrow per settlement"),
		metric.WithUnit("{token}"),
		metric.WithExplicitBucketBoundaries(0, 0.000001, 0.00001, 0.0001, 0.001, 0.01, 1))
	if err != nil {
		return fmt.Errorf("failed to create remainder histogram: %w", err)
	}

	mp.closedCounter, err = mp.meter.Int64Counter(MarketsClosedTotal,
		metric.WithDescription("Total number of markets closed by expiry"),
		metric.WithUnit("1"))
	if err != nil {
		return fmt.Errorf("failed to create closed counter: %w", err)
	}

	mp.vouchAdjustmentCounter, err = mp.meter.Int64Counter(VouchAdjustmentsTotal,
		metric.WithDescription("Total number of vouch budget adjustments"),
		metric.WithUnit("1"))
	if err != nil {
		return fmt.Errorf("failed to create vouch adjustment counter: %w", err)
	}

	mp.httpRequestsCounter, err = mp.meter.Int64Counter(HTTPRequestsTotal,
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("1"))
	if err != nil {
		return fmt.Errorf("failed to create HTTP requests counter: %w", err)
	}

	mp.httpDurationHist, err = mp.meter.Float64Histogram(HTTPRequestDuration,
		metric.WithDescription("Duration of HTTP requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0))
	if err != nil {
		return fmt.Errorf("failed to create HTTP duration histogram: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the meter provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// Register records metrics for every event emitted on the bus
func (mp *MetricsProvider) Register(bus *events.Bus) {
	bus.SubscribeAll(mp.handleEvent)
}

func (mp *MetricsProvider) handleEvent(ctx context.Context, event events.Event) {
	if !mp.isEnabled() {
		return
	}

	mp.eventsCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelEventType, string(event.Type()))))

	switch e := event.(type) {
	case events.BetPlacedEvent:
		attrs := metric.WithAttributes(attribute.Bool(LabelPosition, e.Position))
		mp.betsCounter.Add(ctx, 1, attrs)
		mp.betVolumeCounter.Add(ctx, e.Amount.InexactFloat64(), attrs)
	case events.MarketResolvedEvent:
		mp.resolvedCounter.Add(ctx, 1, metric.WithAttributes(attribute.Bool(LabelOutcome, e.Outcome)))
		mp.remainderHist.Record(ctx, e.Remainder.InexactFloat64())
	case events.MarketClosedEvent:
		mp.closedCounter.Add(ctx, 1)
	case events.VouchBudgetAdjustedEvent:
		mp.vouchAdjustmentCounter.Add(ctx, 1, metric.WithAttributes(attribute.String(LabelType, string(e.EntryType))))
	}
}

// RecordHTTPRequest records one served request
func (mp *MetricsProvider) RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(LabelMethod, method),
		attribute.String(LabelRoute, route),
		attribute.Int(LabelStatus, status),
	)
	mp.httpRequestsCounter.Add(context.Background(), 1, attrs)
	mp.httpDurationHist.Record(context.Background(), duration.Seconds(), attrs)
}

func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.enabled
}
