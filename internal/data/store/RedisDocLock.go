package store

import (
	"context"
	"sync"

	"github.com/nkurra/CaseAPI/internal/config"
	"github.com/nkurra/CaseAPI/internal/data/redisStore"
	"github.com/nkurra/CaseAPI/internal/domain/jobModel"
	"github.com/nkurra/CaseAPI/pkg/logger_i"
)

// RedisDocLock is the advisory per-document processing lock. SETNX with a TTL,
// so a crashed worker cannot hold a document hostage forever.
type RedisDocLock struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisDocLock(ctx context.Context) jobModel.DocumentLocker {
	inner := redisStore.GetRedisStore(ctx, config.RedisDocLockStore)
	if inner == nil {
		return nil
	}
	return &RedisDocLock{
		store:  inner,
		logger: logger_i.NewLogger("DocLock"),
	}
}

func TestDocLock(inner *redisStore.Store) jobModel.DocumentLocker {
	return &RedisDocLock{
		store:  inner,
		logger: logger_i.NewLogger("DocLock"),
	}
}

func lockKey(documentId string) string {
	return "doclock:" + documentId
}

func (l *RedisDocLock) TryLock(ctx context.Context, documentId string) (bool, error) {
	acquired, err := l.store.SetNX(ctx, lockKey(documentId), "1", config.DocumentLockTTL)
	if err != nil {
		l.logger.Error("Lock acquire failed", "documentId", documentId, "error", err)
		return false, err
	}
	return acquired, nil
}

func (l *RedisDocLock) Unlock(ctx context.Context, documentId string) error {
	return l.store.Del(ctx, lockKey(documentId))
}

// InMemoryDocLock covers the redis-offline fallback path, mirroring the job
// store split.
type InMemoryDocLock struct {
	mu    sync.Mutex
	locks map[string]bool
}

func InitInMemoryDocLock() jobModel.DocumentLocker {
	return &InMemoryDocLock{locks: make(map[string]bool)}
}

func (l *InMemoryDocLock) TryLock(ctx context.Context, documentId string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks[documentId] {
		return false, nil
	}
	l.locks[documentId] = true
	return true, nil
}

func (l *InMemoryDocLock) Unlock(ctx context.Context, documentId string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locks, documentId)
	return nil
}
