// Package hclexpr evaluates datum text as HCL native-syntax expressions.
//
// A bare variable name refers to a sibling datum in the same node; a
// "node.datum" traversal refers to any datum in the graph. Every reference
// is watched through the graph's registry and connected upstream, so the
// datum recomputes when what it reads changes or appears.
package hclexpr

import (
	"fmt"

	"github.com/google/go-cmp/cmp"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	datum "github.com/pumped-fn/datum-go"
)

const defaultCacheSize = 256

// Comparer makes go-cmp compare cty values by RawEquals.
var Comparer = cmp.Comparer(func(a, b cty.Value) bool {
	return a.RawEquals(b)
})

// GraphOptions returns the graph options needed for cty-valued datums.
func GraphOptions() []datum.GraphOption {
	return []datum.GraphOption{
		datum.WithCmpOptions(Comparer),
		datum.WithFormatter(FormatValue),
	}
}

// FormatValue renders strings verbatim and other cty values as JSON.
// Non-cty values fall back to fmt.
func FormatValue(v datum.Value) string {
	switch val := v.(type) {
	case nil:
		return ""
	case cty.Value:
		if val.IsNull() || !val.IsWhollyKnown() {
			return ""
		}
		if val.Type() == cty.String {
			return val.AsString()
		}
		out, err := ctyjson.Marshal(val, val.Type())
		if err != nil {
			return val.GoString()
		}
		return string(out)
	default:
		return fmt.Sprint(val)
	}
}

// Engine parses and evaluates expressions for the datums of one graph.
type Engine struct {
	graph     *datum.Graph
	cache     *lru.Cache[string, hclsyntax.Expression]
	functions map[string]function.Function
}

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	cacheSize int
	functions map[string]function.Function
}

// WithCacheSize bounds the number of parsed expressions kept.
func WithCacheSize(n int) Option {
	return func(c *engineConfig) {
		c.cacheSize = n
	}
}

// WithFunction makes fn callable from expressions as name.
func WithFunction(name string, fn function.Function) Option {
	return func(c *engineConfig) {
		c.functions[name] = fn
	}
}

// NewEngine returns an engine resolving names in g.
func NewEngine(g *datum.Graph, opts ...Option) (*Engine, error) {
	cfg := engineConfig{
		cacheSize: defaultCacheSize,
		functions: map[string]function.Function{
			"abs":    stdlib.AbsoluteFunc,
			"ceil":   stdlib.CeilFunc,
			"concat": stdlib.ConcatFunc,
			"floor":  stdlib.FloorFunc,
			"format": stdlib.FormatFunc,
			"length": stdlib.LengthFunc,
			"lower":  stdlib.LowerFunc,
			"max":    stdlib.MaxFunc,
			"min":    stdlib.MinFunc,
			"upper":  stdlib.UpperFunc,
		},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	cache, err := lru.New[string, hclsyntax.Expression](cfg.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating expression cache: %w", err)
	}

	return &Engine{
		graph:     g,
		cache:     cache,
		functions: cfg.functions,
	}, nil
}

// Parse parses text, reusing a cached parse when available.
func (e *Engine) Parse(text string) (hclsyntax.Expression, error) {
	if expr, ok := e.cache.Get(text); ok {
		return expr, nil
	}
	expr, diags := hclsyntax.ParseExpression([]byte(text), "datum", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, diags
	}
	e.cache.Add(text, expr)
	return expr, nil
}

// Cached reports whether text has a parse in the cache.
func (e *Engine) Cached(text string) bool {
	return e.cache.Contains(text)
}

// Source returns a new source for text. Parse errors are not reported
// here; the datum is simply invalid until the text parses.
func (e *Engine) Source(text string) *Source {
	return &Source{engine: e, text: text}
}
