package datum

// Value is a datum's cached result. A nil Value is empty and marks the
// datum invalid.
type Value = any

// Source computes a datum's own value when it has no active input.
// Implementations may call d.ConnectUpstream for every datum they read.
type Source interface {
	// Evaluate returns the current value, or nil if it cannot be computed.
	Evaluate(d *Datum) Value
	// Display returns the text shown for the datum.
	Display(d *Datum) string
}

// Editor is implemented by sources whose text can be typed by hand.
type Editor interface {
	SetExpr(text string) error
}

// Literal is a Source holding a fixed Go value.
type Literal struct {
	value Value
}

// NewLiteral returns a Literal source holding v.
func NewLiteral(v Value) *Literal {
	return &Literal{value: v}
}

// Set replaces the held value. The owning datum picks it up on its next Update.
func (l *Literal) Set(v Value) {
	l.value = v
}

func (l *Literal) Evaluate(d *Datum) Value {
	return l.value
}

func (l *Literal) Display(d *Datum) string {
	if d == nil || d.graph == nil {
		return defaultFormat(l.value)
	}
	return d.graph.format(l.value)
}
