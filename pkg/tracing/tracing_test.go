package tracing

import (
	"context"
	"strings"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/food-storefront/pkg/logging"
)

func TestTraceparentRoundTrip(t *testing.T) {
	ctx := context.Background()
	tp, err := Init(ctx, "storefront-test", "", logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(ctx) })

	assert.Empty(t, Traceparent(ctx))

	spanCtx, span := tp.Tracer("test").Start(ctx, "op")
	defer span.End()

	tp1 := Traceparent(spanCtx)
	require.True(t, strings.HasPrefix(tp1, "00-"), tp1)

	headers := InjectKafkaHeaders(spanCtx, nil)
	assert.Equal(t, tp1, HeaderValue(headers, TraceparentHeader))

	got := trace.SpanContextFromContext(ExtractKafkaHeaders(ctx, headers))
	assert.Equal(t, span.SpanContext().TraceID(), got.TraceID())

	assert.Empty(t, HeaderValue([]kafka.Header{{Key: "x", Value: []byte("y")}}, TraceparentHeader))
}
