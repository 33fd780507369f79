package main

import (
	"context"
	"errors"
	"io"
	"time"

	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrEthical07/goAccount/metrics/export/otel"
)

// startOTel pushes engine metrics to w every interval through an OpenTelemetry
// MeterProvider. The returned func flushes and stops it.
func startOTel(w io.Writer, interval time.Duration, source otel.Source) (func(context.Context) error, error) {
	exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(interval))),
	)

	exporter, err := otel.New(provider.Meter("accountd"), source)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}

	return func(ctx context.Context) error {
		return errors.Join(exporter.Close(), provider.Shutdown(ctx))
	}, nil
}
