package task

import (
	"context"
	"time"

	"github.com/alex124513/rwa-backend/internal/chain"
	"github.com/alex124513/rwa-backend/internal/config"
	"github.com/alex124513/rwa-backend/internal/logger"
	"github.com/alex124513/rwa-backend/internal/logic"
	"github.com/alex124513/rwa-backend/internal/repository"
	"github.com/go-co-op/gocron/v2"
	"gorm.io/gorm"
)

// FundingSyncJob 募资数据同步任务：周期性把链上铸造数回写到项目记录
type FundingSyncJob struct {
	config    *config.Config
	syncLogic *logic.FundingSyncLogic
}

// NewFundingSyncJob 创建募资同步任务
func NewFundingSyncJob(db *gorm.DB, cfg *config.Config, gateway *chain.Gateway) *FundingSyncJob {
	return &FundingSyncJob{
		config:    cfg,
		syncLogic: logic.NewFundingSyncLogic(repository.NewProjectRepository(db), gateway),
	}
}

// GetName 获取任务名称
func (j *FundingSyncJob) GetName() string {
	return "funding_sync_updater"
}

// GetSchedule 获取调度配置
func (j *FundingSyncJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.SyncInterval) * time.Second)
}

// Execute 执行任务
func (j *FundingSyncJob) Execute() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(j.config.Task.SyncInterval)*time.Second)
	defer cancel()

	synced, err := j.syncLogic.SyncAll(ctx)
	if err != nil {
		logger.Error("Funding sync task failed: %v", err)
		return
	}
	logger.Info("Funding sync task completed. Synced %d projects", synced)
}
