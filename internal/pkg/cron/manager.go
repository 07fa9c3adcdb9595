package cron

import (
	"Pulseboard/internal/api/config"
	"Pulseboard/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine   *cron.Cron
	syncSpec string
	syncJob  *job.SyncJob
}

func NewCronManager(cfg config.SyncConfig, syncJob *job.SyncJob) *Manager {
	spec := cfg.CronSpec
	if spec == "" {
		spec = "@daily"
	}
	return &Manager{
		engine:   cron.New(cron.WithSeconds()),
		syncSpec: spec,
		syncJob:  syncJob,
	}
}

// RegisterJobs 注册定时任务
func (s *Manager) RegisterJobs() error {
	if _, err := s.engine.AddJob(s.syncSpec, s.syncJob); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	s.engine.Stop()
}
