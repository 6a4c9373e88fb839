package hclexpr

import (
	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"

	datum "github.com/pumped-fn/datum-go"
)

// Source is a datum.Source evaluating one expression.
type Source struct {
	engine *Engine
	text   string
}

var _ datum.Editor = (*Source)(nil)

// Text returns the expression text.
func (s *Source) Text() string {
	return s.text
}

// SetExpr replaces the expression text. Text that does not parse is
// accepted and leaves the datum invalid.
func (s *Source) SetExpr(text string) error {
	s.text = text
	return nil
}

func (s *Source) Display(d *datum.Datum) string {
	return s.text
}

// Evaluate resolves every name the expression reads, connecting the datum
// to each one, then evaluates. Any unresolved, cyclic or invalid reference
// makes the result nil.
func (s *Source) Evaluate(d *datum.Datum) datum.Value {
	// Names are re-watched below; drop the ones the previous text read.
	reg := s.engine.graph.Registry()
	reg.Forget(d)

	expr, err := s.engine.Parse(s.text)
	if err != nil {
		return nil
	}

	vars := make(map[string]cty.Value)
	objects := make(map[string]map[string]cty.Value)
	resolved := true

	for _, trav := range expr.Variables() {
		ref := resolveRef(d, trav)
		reg.Watch(ref.name, d)

		up, found := reg.Lookup(ref.name)
		if !found || !ref.bound {
			resolved = false
			continue
		}
		// Connect before checking validity so an invalid upstream still
		// triggers a recompute once it becomes valid.
		if !d.ConnectUpstream(up) || !up.Valid() {
			resolved = false
			continue
		}
		val, err := toCty(up.Value())
		if err != nil {
			resolved = false
			continue
		}

		if ref.attr == "" {
			vars[ref.root] = val
			continue
		}
		if objects[ref.root] == nil {
			objects[ref.root] = make(map[string]cty.Value)
		}
		objects[ref.root][ref.attr] = val
	}

	if !resolved {
		return nil
	}

	for root, attrs := range objects {
		if _, taken := vars[root]; !taken {
			vars[root] = cty.ObjectVal(attrs)
		}
	}

	val, diags := expr.Value(&hcl.EvalContext{
		Variables: vars,
		Functions: s.engine.functions,
	})
	if diags.HasErrors() || val.IsNull() || !val.IsWhollyKnown() {
		return nil
	}
	return val
}

type reference struct {
	// name is the qualified name watched in the registry.
	name  string
	root  string
	attr  string
	bound bool
}

// resolveRef maps a traversal to a qualified datum name. Sibling datums
// shadow node names.
func resolveRef(d *datum.Datum, trav hcl.Traversal) reference {
	root := trav.RootName()
	node := d.Node()

	if _, ok := node.Datum(root); ok {
		return reference{name: node.Name() + "." + root, root: root, bound: true}
	}
	if len(trav) > 1 {
		if attr, ok := trav[1].(hcl.TraverseAttr); ok {
			return reference{name: root + "." + attr.Name, root: root, attr: attr.Name, bound: true}
		}
	}
	// Not resolvable yet; watch the sibling name so declaring it later
	// re-runs this datum.
	return reference{name: node.Name() + "." + root, root: root}
}

func toCty(v datum.Value) (cty.Value, error) {
	if val, ok := v.(cty.Value); ok {
		return val, nil
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, err
	}
	return gocty.ToCtyValue(v, ty)
}
