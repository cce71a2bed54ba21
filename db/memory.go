package db

import (
	"context"
	"sort"
	"sync"

	"github.com/callummance/hibiki/guildmodels"
	"github.com/samber/mo"
)

//MemoryStore keeps triggers in process memory. It backs single-process deployments without a database and tests.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	triggers map[int64]guildmodels.Trigger
}

//NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		triggers: make(map[int64]guildmodels.Trigger),
	}
}

//LoadAll returns every stored trigger ordered by ID
func (s *MemoryStore) LoadAll(ctx context.Context) ([]guildmodels.Trigger, error) {
	if err := ctxDone(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res := make([]guildmodels.Trigger, 0, len(s.triggers))
	for _, t := range s.triggers {
		res = append(res, t.Clone())
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

//Get returns the trigger with a given id
func (s *MemoryStore) Get(ctx context.Context, id int64) (mo.Option[guildmodels.Trigger], error) {
	if err := ctxDone(ctx); err != nil {
		return mo.None[guildmodels.Trigger](), err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.triggers[id]
	if !ok {
		return mo.None[guildmodels.Trigger](), nil
	}
	return mo.Some(t.Clone()), nil
}

//Insert stores a new trigger, assigning and returning its ID
func (s *MemoryStore) Insert(ctx context.Context, t guildmodels.Trigger) (int64, error) {
	if err := ctxDone(ctx); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t = t.Clone()
	t.ID = s.nextID
	s.triggers[t.ID] = t
	return t.ID, nil
}

//Update overwrites the stored trigger with the same ID, returning false if it no longer exists
func (s *MemoryStore) Update(ctx context.Context, t guildmodels.Trigger) (bool, error) {
	if err := ctxDone(ctx); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.triggers[t.ID]; !ok {
		return false, nil
	}
	s.triggers[t.ID] = t.Clone()
	return true, nil
}

//Delete removes the trigger with a given ID, returning false if it did not exist
func (s *MemoryStore) Delete(ctx context.Context, id int64) (bool, error) {
	if err := ctxDone(ctx); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.triggers[id]; !ok {
		return false, nil
	}
	delete(s.triggers, id)
	return true, nil
}

//DeleteAllForGuild removes every trigger owned by a guild. An empty guild ID removes all global triggers.
func (s *MemoryStore) DeleteAllForGuild(ctx context.Context, guildID string) (int, error) {
	if err := ctxDone(ctx); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for id, t := range s.triggers {
		if t.GuildID == guildID {
			delete(s.triggers, id)
			count++
		}
	}
	return count, nil
}
