package orchestration

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const scopeName = "github.com/koscakluka/ema-ivr/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)

	callsCompleted = newCallsCompletedCounter()
)

func newCallsCompletedCounter() metric.Int64Counter {
	counter, err := meter.Int64Counter("ivr.calls.completed",
		metric.WithDescription("Calls torn down after their recording completed"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		logger.Error("failed to create calls completed counter", "error", err)
		return noop.Int64Counter{}
	}
	return counter
}
