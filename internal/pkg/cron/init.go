package cron

import log "log/slog"

// InitCron 注册每日全量重同步任务并启动调度器
func InitCron(mgr *Manager) error {
	if err := mgr.RegisterJobs(); err != nil {
		return err
	}
	mgr.Start()
	log.Info("cron scheduler started", "sync_spec", mgr.syncSpec)
	return nil
}
