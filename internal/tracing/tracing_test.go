package tracing

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_DisabledIsNoop(t *testing.T) {
	p, err := NewProvider(context.Background(), DefaultConfig())
	require.NoError(t, err)
	require.False(t, p.Enabled())
	require.NotNil(t, p.Tracer())
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_RejectsBadConfig(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{Enabled: true, Exporter: "carrier-pigeon"})
	require.ErrorContains(t, err, "unsupported exporter")

	_, err = NewProvider(context.Background(), Config{Enabled: true, Exporter: ExporterFile})
	require.ErrorContains(t, err, "file_path required")
}

func TestNilProvider_IsUsable(t *testing.T) {
	var p *Provider
	require.False(t, p.Enabled())
	require.NotNil(t, p.Tracer())
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestReconcileSpan_Attributes(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	p := NewProviderWithExporter(exp)
	defer func() { _ = p.Shutdown(context.Background()) }()

	_, span := StartReconcile(context.Background(), p.Tracer(), "commands", "core")
	EndReconcile(span, 2, 1)

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, SpanReconcile, spans[0].Name)

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range spans[0].Attributes {
		attrs[kv.Key] = kv.Value
	}
	require.Equal(t, "commands", attrs[AttrToken].AsString())
	require.Equal(t, "core", attrs[AttrProducer].AsString())
	require.Equal(t, int64(2), attrs[AttrAdded].AsInt64())
	require.Equal(t, int64(1), attrs[AttrRemoved].AsInt64())
}

func TestFileExporter_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "traces.jsonl")
	exp, err := NewFileExporter(path)
	require.NoError(t, err)

	start := time.Now()
	stubs := tracetest.SpanStubs{
		{Name: SpanReconcile, StartTime: start, EndTime: start.Add(5 * time.Millisecond),
			Attributes: []attribute.KeyValue{attribute.String(AttrToken, "menuItems")}},
		{Name: SpanCatalogRun, StartTime: start, EndTime: start},
	}
	require.NoError(t, exp.ExportSpans(context.Background(), stubs.Snapshots()))
	require.NoError(t, exp.Shutdown(context.Background()))
	require.NoError(t, exp.Shutdown(context.Background()))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var records []SpanRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec SpanRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		records = append(records, rec)
	}
	require.Len(t, records, 2)
	require.Equal(t, SpanReconcile, records[0].Name)
	require.Equal(t, "menuItems", records[0].Attributes[AttrToken])
	require.InDelta(t, 5.0, records[0].DurationMs, 0.001)
	require.Equal(t, "UNSET", records[1].Status)

	err = exp.ExportSpans(context.Background(), []sdktrace.ReadOnlySpan{stubs.Snapshots()[0]})
	require.Error(t, err, "exporting after shutdown fails")
}

func TestRecordError(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	p := NewProviderWithExporter(exp)

	_, span := p.Tracer().Start(context.Background(), SpanCatalogRun)
	RecordError(span, nil)
	RecordError(span, errors.New("hook failed"))
	span.End()

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, "hook failed", spans[0].Status.Description)
}
