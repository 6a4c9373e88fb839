package datum

// InputHandler decides which links a datum accepts and folds the values of
// accepted links into one effective value.
type InputHandler interface {
	// HasInput reports whether at least one link is attached.
	HasInput() bool
	// Accepts reports whether the link may be attached (type, arity).
	Accepts(l *Link) bool
	// AddInput attaches an accepted link.
	AddInput(l *Link)
	// DeleteInput detaches every link coming from upstream.
	DeleteInput(upstream *Datum)
	// Value returns the aggregated input value, or nil.
	Value() Value
	// InputDatums lists the source datums of attached links, in attach order.
	InputDatums() []*Datum
}

// InputFactory builds the input handler for a datum. A datum created
// without one cannot take links.
type InputFactory func(target *Datum) InputHandler

// Aggregator folds the valid values of a multi-input datum into one.
type Aggregator func(values []Value) Value

// typesCompatible reports whether a link from src may feed dst. An empty
// type tag on either side matches anything.
func typesCompatible(src, dst *Datum) bool {
	return src.kind == "" || dst.kind == "" || src.kind == dst.kind
}

// SingleInput returns a factory for handlers that take at most one link.
func SingleInput() InputFactory {
	return func(target *Datum) InputHandler {
		return &singleInput{target: target}
	}
}

type singleInput struct {
	target *Datum
	link   *Link
}

func (h *singleInput) HasInput() bool {
	return h.link != nil
}

func (h *singleInput) Accepts(l *Link) bool {
	return h.link == nil && typesCompatible(l.Source(), h.target)
}

func (h *singleInput) AddInput(l *Link) {
	h.link = l
}

func (h *singleInput) DeleteInput(upstream *Datum) {
	if h.link != nil && h.link.Source() == upstream {
		h.link = nil
	}
}

func (h *singleInput) Value() Value {
	if h.link == nil {
		return nil
	}
	src := h.link.Source()
	if !h.target.ConnectUpstream(src) || !src.Valid() {
		return nil
	}
	return src.Value()
}

func (h *singleInput) InputDatums() []*Datum {
	if h.link == nil {
		return nil
	}
	return []*Datum{h.link.Source()}
}

// MultiInput returns a factory for handlers that take one link per source
// datum and combine their values with agg.
func MultiInput(agg Aggregator) InputFactory {
	return func(target *Datum) InputHandler {
		return &multiInput{target: target, agg: agg}
	}
}

type multiInput struct {
	target *Datum
	agg    Aggregator
	links  []*Link
}

func (h *multiInput) HasInput() bool {
	return len(h.links) > 0
}

func (h *multiInput) Accepts(l *Link) bool {
	for _, existing := range h.links {
		if existing.Source() == l.Source() {
			return false
		}
	}
	return typesCompatible(l.Source(), h.target)
}

func (h *multiInput) AddInput(l *Link) {
	h.links = append(h.links, l)
}

func (h *multiInput) DeleteInput(upstream *Datum) {
	kept := h.links[:0]
	for _, l := range h.links {
		if l.Source() != upstream {
			kept = append(kept, l)
		}
	}
	h.links = kept
}

func (h *multiInput) Value() Value {
	if len(h.links) == 0 {
		return nil
	}

	values := make([]Value, 0, len(h.links))
	acyclic := true
	for _, l := range h.links {
		src := l.Source()
		if !h.target.ConnectUpstream(src) {
			acyclic = false
			continue
		}
		if src.Valid() {
			values = append(values, src.Value())
		}
	}

	if !acyclic || len(values) == 0 {
		return nil
	}
	return h.agg(values)
}

func (h *multiInput) InputDatums() []*Datum {
	out := make([]*Datum, 0, len(h.links))
	for _, l := range h.links {
		out = append(out, l.Source())
	}
	return out
}
