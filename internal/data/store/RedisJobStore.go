package store

import (
	"context"
	"encoding/json"

	"github.com/nkurra/CaseAPI/internal/config"
	"github.com/nkurra/CaseAPI/internal/data/redisStore"
	"github.com/nkurra/CaseAPI/internal/domain/jobModel"
	"github.com/nkurra/CaseAPI/pkg/logger_i"
)

type RedisJobStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisJobStore(ctx context.Context) jobModel.JobStore {
	inner := redisStore.GetRedisStore(ctx, config.RedisJobStore)
	if inner == nil {
		return nil
	}
	return &RedisJobStore{
		store:  inner,
		logger: logger_i.NewLogger("JobStore"),
	}
}

// TestJobStore wires a miniredis-backed store in tests.
func TestJobStore(inner *redisStore.Store) jobModel.JobStore {
	return &RedisJobStore{
		store:  inner,
		logger: logger_i.NewLogger("JobStore"),
	}
}

func (s *RedisJobStore) SaveJob(ctx context.Context, job jobModel.Job) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "jobId", job.Id)

	data, err := json.Marshal(job)
	if err != nil {
		log.Error("Failed to marshal job", "error", err)
		return err
	}
	return s.store.Set(ctx, job.Id, data, config.RedisJobStoreTTL)
}

func (s *RedisJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "jobId", jobId)

	var job jobModel.Job
	raw, err := s.store.Get(ctx, jobId)
	if err != nil {
		if !s.store.IsNil(err) {
			log.Error("Failed to get job", "error", err)
		}
		return job, false
	}
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error("Failed to unmarshal job", "error", err)
		return job, false
	}
	return job, true
}

func (s *RedisJobStore) DeleteJob(ctx context.Context, jobId string) {
	if err := s.store.Del(ctx, jobId); err != nil {
		s.logger.Error("Failed to delete job", "jobId", jobId, "error", err)
	}
}
