// Package dispatch selects a handler for a node by walking the node's variant
// lineage from most to least specific. A handler may decline a node by
// returning ErrUnhandled, in which case the next more general variant is tried.
package dispatch

import (
	"errors"
	"fmt"
)

// ErrUnhandled is returned by a handler to defer to the next more general
// variant, and by Dispatch when no handler accepted the node.
var ErrUnhandled = errors.New("dispatch: unhandled")

// Variant is implemented by the tag type of a node.
type Variant[K comparable] interface {
	comparable
	// Parent returns the next more general variant, if any.
	Parent() (K, bool)
}

// Handler processes one node in the state C. Any error other than
// ErrUnhandled stops the walk and is returned to the caller unchanged.
type Handler[C, N any] func(c C, n N) error

// Table is an ordered handler chain keyed by variant tag.
type Table[K Variant[K], C, N any] struct {
	tagOf    func(N) K
	handlers map[K]Handler[C, N]
}

// New creates an empty Table. tagOf extracts the most specific variant of a
// node.
func New[K Variant[K], C, N any](tagOf func(N) K) *Table[K, C, N] {
	return &Table[K, C, N]{
		tagOf:    tagOf,
		handlers: make(map[K]Handler[C, N]),
	}
}

// Handle registers h for variant k. Registering twice for the same variant is
// a programming error.
func (t *Table[K, C, N]) Handle(k K, h Handler[C, N]) *Table[K, C, N] {
	if _, ok := t.handlers[k]; ok {
		panic(fmt.Sprintf("dispatch: handler for %v registered twice", k))
	}
	t.handlers[k] = h
	return t
}

// Chain returns the lineage of k, most specific first.
func Chain[K Variant[K]](k K) []K {
	chain := []K{k}
	for p, ok := k.Parent(); ok; p, ok = p.Parent() {
		chain = append(chain, p)
	}
	return chain
}

// Dispatch invokes the first handler along the lineage of n that does not
// return ErrUnhandled.
func (t *Table[K, C, N]) Dispatch(c C, n N) error {
	for _, k := range Chain(t.tagOf(n)) {
		h, ok := t.handlers[k]
		if !ok {
			continue
		}

		err := h(c, n)
		if errors.Is(err, ErrUnhandled) {
			continue
		}
		return err
	}
	return ErrUnhandled
}

// Handles reports whether some variant along the lineage of n has a handler.
func (t *Table[K, C, N]) Handles(n N) bool {
	for _, k := range Chain(t.tagOf(n)) {
		if _, ok := t.handlers[k]; ok {
			return true
		}
	}
	return false
}

// Unhandled reports whether err signals that no handler accepted a node.
func Unhandled(err error) bool {
	return errors.Is(err, ErrUnhandled)
}
