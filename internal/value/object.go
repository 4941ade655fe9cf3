package value

import "github.com/dolthub/swiss"

// swissIndex is the SwissTable-backed key->slot index every Object uses for
// lookup. Kept separate from the ordered key/val slices so that lookups stay
// O(1) while String()/Each()/equality walk insertion order. A SwissTable
// alone gives fast key->value lookup but no iteration order, hence the
// parallel ordered slices.
type swissIndex = swiss.Map[string, int]

// NewObject returns an empty object with capacity for at least size entries.
func NewObject(size int) *Object {
	if size < 0 {
		size = 0
	}
	return &Object{index: swiss.NewMap[string, int](uint32(size))}
}

func (o *Object) ensureIndex() {
	if o.index == nil {
		o.index = swiss.NewMap[string, int](0)
	}
}

// Get returns the value for key, or (nil, false) if absent.
func (o *Object) Get(key string) (Value, bool) {
	o.ensureIndex()
	if slot, ok := o.index.Get(key); ok {
		return o.vals[slot], true
	}
	return nil, false
}

// Set assigns key to v, appending a new slot on first assignment and
// preserving the original insertion position on update.
func (o *Object) Set(key string, v Value) {
	o.ensureIndex()
	if slot, ok := o.index.Get(key); ok {
		o.vals[slot] = v
		return
	}
	slot := len(o.keys)
	o.keys = append(o.keys, key)
	o.vals = append(o.vals, v)
	o.index.Put(key, slot)
}

// Len returns the number of key/value pairs.
func (o *Object) Len() int { return len(o.keys) }

// Each walks key/value pairs in insertion order.
func (o *Object) Each(fn func(key string, v Value)) {
	for i, k := range o.keys {
		fn(k, o.vals[i])
	}
}

// Keys returns the object's keys in insertion order. Callers must not modify
// the result.
func (o *Object) Keys() []string { return o.keys }
