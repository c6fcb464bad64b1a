// Package component implements a heterogeneous bag of values keyed by
// exact type identity. Each concrete type can appear at most once per
// store; re-adding a value of the same type overwrites the previous one
// and hands it back. Lookups are exact-type only — there is no interface
// or supertype matching, and no iteration order is guaranteed.
package component

import "reflect"

// Store holds at most one value per concrete type.
// It is not safe for concurrent use.
type Store struct {
	components map[reflect.Type]any
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{}
}

// TypeOf returns the identity token used to key values of type T.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// AddDynamic stores v keyed by its dynamic type, returning the previous
// value of that type if one was present. Adding nil is a no-op.
func (s *Store) AddDynamic(v any) (prev any, replaced bool) {
	t := reflect.TypeOf(v)
	if t == nil {
		return nil, false
	}
	return s.add(t, v)
}

func (s *Store) add(t reflect.Type, v any) (any, bool) {
	if s.components == nil {
		s.components = make(map[reflect.Type]any)
	}
	prev, replaced := s.components[t]
	s.components[t] = v
	return prev, replaced
}

// GetDynamic returns the stored value for the exact type t.
func (s *Store) GetDynamic(t reflect.Type) (any, bool) {
	v, ok := s.components[t]
	return v, ok
}

// HasDynamic reports whether a value of the exact type t is stored.
func (s *Store) HasDynamic(t reflect.Type) bool {
	_, ok := s.components[t]
	return ok
}

// RemoveDynamic removes and returns the value stored for the exact type t.
func (s *Store) RemoveDynamic(t reflect.Type) (any, bool) {
	v, ok := s.components[t]
	if ok {
		delete(s.components, t)
	}
	return v, ok
}

// Len returns the number of stored components.
func (s *Store) Len() int {
	return len(s.components)
}

// Add stores v under the static type T, returning the previous value of
// that type if one was present. Unlike AddDynamic this keys interface
// types by the interface itself, not the dynamic value inside.
func Add[T any](s *Store, v T) (prev T, replaced bool) {
	p, ok := s.add(TypeOf[T](), v)
	if !ok {
		var zero T
		return zero, false
	}
	return p.(T), true
}

// Get returns the stored value of type T.
func Get[T any](s *Store) (T, bool) {
	v, ok := s.GetDynamic(TypeOf[T]())
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}

// Has reports whether a value of type T is stored.
func Has[T any](s *Store) bool {
	return s.HasDynamic(TypeOf[T]())
}

// Remove removes and returns the stored value of type T.
func Remove[T any](s *Store) (T, bool) {
	v, ok := s.RemoveDynamic(TypeOf[T]())
	if !ok {
		var zero T
		return zero, false
	}
	return v.(T), true
}
