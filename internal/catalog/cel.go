package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/zjrosen/registrar/internal/cachemanager"
	"github.com/zjrosen/registrar/internal/log"
)

const programTTL = time.Hour

// FilterCompiler turns boolean CEL expressions over `entity` into EntityFilters.
// Compiled programs are memoised by expression text.
type FilterCompiler struct {
	env      *cel.Env
	programs *cachemanager.ReadThroughCache[string, cel.Program, string]
}

// NewFilterCompiler creates a compiler that stores programs in cache.
func NewFilterCompiler(cache cachemanager.CacheManager[string, cel.Program]) (*FilterCompiler, error) {
	env, err := cel.NewEnv(
		cel.Variable("entity", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	c := &FilterCompiler{env: env}
	c.programs = cachemanager.NewReadThroughCache[string, cel.Program, string](cache, c.compile, false)
	return c, nil
}

func (c *FilterCompiler) compile(_ context.Context, expr string) (cel.Program, error) {
	ast, issues := c.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFilter, issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w: %q evaluates to %s, want bool", ErrInvalidFilter, expr, out)
	}
	prg, err := c.env.Program(ast,
		cel.InterruptCheckFrequency(100),
		cel.CostLimit(10000),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFilter, err)
	}
	return prg, nil
}

// Compile returns a filter for expr. An evaluation error at filter time is
// logged and lets the entity through.
func (c *FilterCompiler) Compile(ctx context.Context, expr string) (EntityFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("%w: empty expression", ErrInvalidFilter)
	}
	prg, err := c.programs.GetWithRefresh(ctx, expr, expr, programTTL)
	if err != nil {
		return nil, err
	}

	return func(e *Entity) bool {
		out, _, err := prg.Eval(map[string]any{"entity": e.AsMap()})
		if err != nil {
			log.Warn(log.CatCatalog, "Filter evaluation failed", "expr", expr, "uid", e.UID(), "error", err)
			return true
		}
		keep, ok := out.Value().(bool)
		return !ok || keep
	}, nil
}

var (
	defaultCompilerOnce sync.Once
	defaultCompiler     *FilterCompiler
	defaultCompilerErr  error
)

// CompileFilter compiles expr with a process-wide compiler.
func CompileFilter(expr string) (EntityFilter, error) {
	defaultCompilerOnce.Do(func() {
		defaultCompiler, defaultCompilerErr = NewFilterCompiler(
			cachemanager.NewInMemoryCacheManager[string, cel.Program]("cel-filters", programTTL, cachemanager.DefaultCleanupInterval),
		)
	})
	if defaultCompilerErr != nil {
		return nil, defaultCompilerErr
	}
	return defaultCompiler.Compile(context.Background(), expr)
}
