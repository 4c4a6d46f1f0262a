package service

import (
	"context"
	"sync"
	"time"

	"shop-service/internal/repository"
)

const FlagPurchaseEnabled = "purchase_enabled"

type flagEntry struct {
	value     string
	fetchedAt time.Time
}

// FlagService — явная замена процессного кэша настроек: передаётся зависимостью,
// кэш с TTL и явной инвалидацией на запись
type FlagService struct {
	repo repository.SettingsRepo
	ttl  time.Duration
	now  func() time.Time

	mu    sync.Mutex
	cache map[string]flagEntry
}

func NewFlagService(repo repository.SettingsRepo, ttl time.Duration) *FlagService {
	return &FlagService{
		repo:  repo,
		ttl:   ttl,
		now:   time.Now,
		cache: make(map[string]flagEntry),
	}
}

func (s *FlagService) get(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	if e, ok := s.cache[key]; ok && s.now().Sub(e.fetchedAt) < s.ttl {
		s.mu.Unlock()
		return e.value, true, nil
	}
	s.mu.Unlock()

	set, err := s.repo.Get(ctx, key)
	if err != nil {
		return "", false, err
	}
	if set == nil {
		return "", false, nil
	}

	s.mu.Lock()
	s.cache[key] = flagEntry{value: set.Value, fetchedAt: s.now()}
	s.mu.Unlock()
	return set.Value, true, nil
}

// Bool читает флаг; при отсутствии ключа или ошибке чтения возвращает def
func (s *FlagService) Bool(ctx context.Context, key string, def bool) bool {
	v, ok, err := s.get(ctx, key)
	if err != nil || !ok {
		return def
	}
	return v == "true" || v == "1"
}

func (s *FlagService) Set(ctx context.Context, key, value string) error {
	if err := s.repo.Upsert(ctx, key, value); err != nil {
		return err
	}
	s.Invalidate(key)
	return nil
}

func (s *FlagService) Invalidate(key string) {
	s.mu.Lock()
	delete(s.cache, key)
	s.mu.Unlock()
}
