package job

import (
	"github.com/nkurra/CaseAPI/internal/data/blob"
	"github.com/nkurra/CaseAPI/internal/data/metadata"
	"github.com/nkurra/CaseAPI/internal/domain/jobModel"
)

type Service struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	Meta              metadata.Store
	Blobs             blob.Store
}

type ServiceConfig struct {
	JobChannel        chan jobModel.Job
	RequestCount      int64
	DispatcherChannel chan bool
	JobStore          jobModel.JobStore
	Meta              metadata.Store
	Blobs             blob.Store
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		RequestCount:      cfg.RequestCount,
		DispatcherChannel: cfg.DispatcherChannel,
		JobStore:          cfg.JobStore,
		Meta:              cfg.Meta,
		Blobs:             cfg.Blobs,
	}
}
