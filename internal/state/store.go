package state

import "context"

// Store is a typed view over one kind of document, scoped per user or session.
type Store[T any] struct {
	manager *Manager
	kind    string
	init    func() T
}

// NewStore builds a typed store. init supplies the value returned for missing documents.
func NewStore[T any](manager *Manager, kind string, init func() T) *Store[T] {
	if init == nil {
		init = func() T {
			var zero T
			return zero
		}
	}
	return &Store[T]{manager: manager, kind: kind, init: init}
}

// Name returns the document name for scope.
func (s *Store[T]) Name(scope string) string {
	return s.kind + ":" + scope
}

// Get returns the stored value or a freshly initialised one.
func (s *Store[T]) Get(ctx context.Context, scope string) (T, error) {
	value := s.init()
	if _, err := s.manager.Load(ctx, s.Name(scope), &value); err != nil {
		return s.init(), err
	}
	return value, nil
}

// Lookup is Get that also reports whether the value was persisted.
func (s *Store[T]) Lookup(ctx context.Context, scope string) (T, bool, error) {
	value := s.init()
	ok, err := s.manager.Load(ctx, s.Name(scope), &value)
	if err != nil || !ok {
		return s.init(), false, err
	}
	return value, true, nil
}

// Put persists value for scope.
func (s *Store[T]) Put(ctx context.Context, scope string, value T) error {
	return s.manager.Save(ctx, s.Name(scope), value)
}

// Update loads, mutates and saves the value for scope.
func (s *Store[T]) Update(ctx context.Context, scope string, fn func(*T) error) (T, error) {
	value, err := s.Get(ctx, scope)
	if err != nil {
		return value, err
	}
	if err := fn(&value); err != nil {
		return value, err
	}
	return value, s.Put(ctx, scope, value)
}

// Reset discards the value for scope.
func (s *Store[T]) Reset(ctx context.Context, scope string) error {
	return s.manager.Reset(ctx, s.Name(scope))
}
