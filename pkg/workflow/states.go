package workflow

import (
	"geoassist-be/internal/repository/memory"
	"geoassist-be/pkg/store"
)

// States is the typed feature-state table of one mode, keyed by user.
type States[S any] struct {
	mode  store.Mode
	store *memory.Store[S]
}

func NewStates[S any](mode store.Mode, opts ...memory.Option) *States[S] {
	return &States[S]{mode: mode, store: memory.NewStore[S](opts...)}
}

func (s *States[S]) Load(userID string) (S, bool) {
	return s.store.Get(store.FeatureKey(userID, s.mode))
}

func (s *States[S]) Save(userID string, state S) {
	s.store.Put(store.FeatureKey(userID, s.mode), state)
}

func (s *States[S]) Delete(userID string) {
	s.store.Delete(store.FeatureKey(userID, s.mode))
}

func (s *States[S]) Len() int {
	return s.store.Len()
}
