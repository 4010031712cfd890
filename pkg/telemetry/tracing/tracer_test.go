package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNew_Disabled(t *testing.T) {
	tr, err := New(Config{})
	require.NoError(t, err)
	assert.False(t, tr.Enabled())

	ctx, span := tr.Start(context.Background(), "noop")
	span.End()
	assert.Empty(t, TraceID(ctx))
	assert.NoError(t, tr.Shutdown(context.Background()))
}

func TestNew_EnabledRequiresEndpoint(t *testing.T) {
	_, err := New(Config{Enabled: true})
	require.Error(t, err)
}

func TestTracer_ExportsSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tr, err := newWithExporter(Config{Enabled: true, ServiceVersion: "test"}, exporter)
	require.NoError(t, err)

	ctx, span := tr.Start(context.Background(), "cleanup.vm")
	assert.NotEmpty(t, TraceID(ctx))
	End(span, errors.New("list failed"))

	require.NoError(t, tr.Shutdown(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "cleanup.vm", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Len(t, spans[0].Events, 1)
}

func TestParseSampler(t *testing.T) {
	tests := []struct {
		setting string
		wantErr bool
	}{
		{"", false},
		{"always", false},
		{"Never", false},
		{"0.25", false},
		{"1", false},
		{"1.5", true},
		{"-0.1", true},
		{"sometimes", true},
	}

	for _, tt := range tests {
		t.Run(tt.setting, func(t *testing.T) {
			s, err := ParseSampler(tt.setting)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, s)
		})
	}
}

func TestNew_InvalidSampler(t *testing.T) {
	_, err := newWithExporter(Config{Sampler: "2"}, tracetest.NewInMemoryExporter())
	require.Error(t, err)
}
