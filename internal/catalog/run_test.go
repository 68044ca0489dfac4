package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zjrosen/registrar/internal/tracing"
)

func TestRun_NoHooksActivates(t *testing.T) {
	r := NewEntityRegistry()
	e := cluster("a", "A")
	opened := 0
	e.OnRun = func(context.Context, *Entity) error { opened++; return nil }

	ok, err := r.Run(context.Background(), e)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, opened)
	require.Same(t, e, r.ActiveEntity())
}

func TestRun_FirstCancellingHookWinsAndAllHooksRun(t *testing.T) {
	r := NewEntityRegistry()
	var calls []string
	var cancelledBy int

	r.AddOnBeforeRun(func(_ context.Context, ev *RunEvent) error {
		calls = append(calls, "audit")
		return nil
	})
	r.AddOnBeforeRun(func(_ context.Context, ev *RunEvent) error {
		calls = append(calls, "confirm")
		ev.PreventDefault()
		return nil
	})
	r.AddOnBeforeRun(func(_ context.Context, ev *RunEvent) error {
		calls = append(calls, "policy")
		ev.PreventDefault()
		cancelledBy = ev.CancelledBy()
		return nil
	})
	r.AddOnBeforeRun(func(_ context.Context, ev *RunEvent) error {
		calls = append(calls, "metrics")
		require.True(t, ev.Cancelled())
		return nil
	})

	e := cluster("a", "A")
	e.OnRun = func(context.Context, *Entity) error {
		t.Fatal("cancelled run must not open the entity")
		return nil
	}

	ok, err := r.Run(context.Background(), e)
	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, []string{"audit", "confirm", "policy", "metrics"}, calls)
	require.Equal(t, 1, cancelledBy, "the first canceller is recorded")
	require.Nil(t, r.ActiveEntity())
}

func TestRun_HookErrorsAndPanicsDoNotCancel(t *testing.T) {
	r := NewEntityRegistry()
	r.AddOnBeforeRun(func(context.Context, *RunEvent) error { return errors.New("telemetry down") })
	r.AddOnBeforeRun(func(context.Context, *RunEvent) error { panic("hook bug") })
	later := 0
	r.AddOnBeforeRun(func(context.Context, *RunEvent) error { later++; return nil })

	ok, err := r.Run(context.Background(), general("g"))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, later)
}

func TestRun_DisposedHookIsSkipped(t *testing.T) {
	r := NewEntityRegistry()
	dispose := r.AddOnBeforeRun(func(_ context.Context, ev *RunEvent) error {
		ev.PreventDefault()
		return nil
	})
	dispose()
	dispose()

	ok, err := r.Run(context.Background(), general("g"))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRun_OnRunError(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	r := NewEntityRegistry(WithTracer(tracing.NewProviderWithExporter(exp).Tracer()))

	e := cluster("a", "A")
	e.OnRun = func(context.Context, *Entity) error { return errors.New("kubeconfig missing") }

	ok, err := r.Run(context.Background(), e)
	require.ErrorContains(t, err, "kubeconfig missing")
	require.False(t, ok)
	require.Nil(t, r.ActiveEntity())

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	require.Equal(t, tracing.SpanCatalogRun, spans[0].Name)
}

func TestRun_NilEntity(t *testing.T) {
	_, err := NewEntityRegistry().Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrNilEntity)
}
