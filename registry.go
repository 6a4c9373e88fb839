package datum

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Registry resolves datums by qualified name and re-runs datums that
// referred to a name whenever that name is (re)defined. It also hands out
// datum IDs, so IDs stay unique across every graph sharing it. A Graph
// creates one unless WithRegistry supplies a shared one.
type Registry struct {
	datums   *orderedmap.OrderedMap[string, *Datum]
	watchers map[string]*orderedmap.OrderedMap[*Datum, struct{}]
	byID     map[ID]*Datum
	nextID   ID
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		datums:   orderedmap.New[string, *Datum](),
		watchers: make(map[string]*orderedmap.OrderedMap[*Datum, struct{}]),
		byID:     make(map[ID]*Datum),
	}
}

func (r *Registry) nextDatumID() ID {
	r.nextID++
	return r.nextID
}

// Register makes d resolvable by its qualified name.
func (r *Registry) Register(d *Datum) error {
	name := d.QualifiedName()
	if _, taken := r.datums.Get(name); taken {
		return ErrDuplicateName
	}
	r.datums.Set(name, d)
	r.byID[d.id] = d
	return nil
}

// Unregister removes d's name if it still points at d.
func (r *Registry) Unregister(d *Datum) {
	name := d.QualifiedName()
	if cur, ok := r.datums.Get(name); ok && cur == d {
		r.datums.Delete(name)
	}
}

// ByID returns the live datum with the given ID.
func (r *Registry) ByID(id ID) (*Datum, bool) {
	d, ok := r.byID[id]
	return d, ok
}

func (r *Registry) dropID(d *Datum) {
	if cur, ok := r.byID[d.id]; ok && cur == d {
		delete(r.byID, d.id)
	}
}

// Lookup returns the datum registered under name.
func (r *Registry) Lookup(name string) (*Datum, bool) {
	return r.datums.Get(name)
}

// Names returns every registered name in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, r.datums.Len())
	for pair := r.datums.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Watch records that d refers to name, whether or not it resolves yet.
// Watching the same name twice is a no-op.
func (r *Registry) Watch(name string, d *Datum) {
	w, ok := r.watchers[name]
	if !ok {
		w = orderedmap.New[*Datum, struct{}]()
		r.watchers[name] = w
	}
	w.Set(d, struct{}{})
}

// Watchers returns the datums watching name, in the order they started.
func (r *Registry) Watchers(name string) []*Datum {
	w, ok := r.watchers[name]
	if !ok {
		return nil
	}
	out := make([]*Datum, 0, w.Len())
	for pair := w.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Forget drops d from every watch list.
func (r *Registry) Forget(d *Datum) {
	for name, w := range r.watchers {
		w.Delete(d)
		if w.Len() == 0 {
			delete(r.watchers, name)
		}
	}
}

// NotifyNameDefined re-runs every datum watching name.
func (r *Registry) NotifyNameDefined(name string) {
	for _, d := range r.Watchers(name) {
		d.Update()
	}
}
