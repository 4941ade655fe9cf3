package value

// NewOpenUpvalue returns an upvalue pointing at slot index of the given
// frame locals slice. It stays "open" — reads and writes go straight to the
// slice — until Close is called, at which point it snapshots the slot's
// current value and becomes self-contained.
//
// A closure that escapes its enclosing call observes the value the
// binding held at the moment the enclosing scope closed, because Close
// runs when the owning frame returns or is replaced by a tail call.
func NewOpenUpvalue(locals *[]Value, slot int) *Upvalue {
	return &Upvalue{open: locals, Slot: slot, isOpen: true}
}

// Get returns the upvalue's current value.
func (u *Upvalue) Get() Value {
	if u.isOpen {
		return (*u.open)[u.Slot]
	}
	return u.closed
}

// Set assigns the upvalue's value.
func (u *Upvalue) Set(v Value) {
	if u.isOpen {
		(*u.open)[u.Slot] = v
		return
	}
	u.closed = v
}

// Close detaches the upvalue from its frame's locals slice, copying the
// slot's current value into the cell. It is idempotent.
func (u *Upvalue) Close() {
	if !u.isOpen {
		return
	}
	u.closed = (*u.open)[u.Slot]
	u.isOpen = false
	u.open = nil
}

// IsOpenFor reports whether u is still open and targets the given slot,
// used by the frame's open-upvalue registry to avoid creating duplicate
// cells for the same slot.
func (u *Upvalue) IsOpenFor(locals *[]Value, slot int) bool {
	return u.isOpen && u.open == locals && u.Slot == slot
}
