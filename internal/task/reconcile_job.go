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

// ReconcileJob 孤儿部署对账任务：收编链上已部署但记录缺失关联的项目。
// 兜住部署后进程崩溃和部分失败两类缺口。
type ReconcileJob struct {
	config         *config.Config
	reconcileLogic *logic.ReconcileLogic
}

// NewReconcileJob 创建对账任务
func NewReconcileJob(db *gorm.DB, cfg *config.Config, gateway *chain.Gateway) *ReconcileJob {
	return &ReconcileJob{
		config: cfg,
		reconcileLogic: logic.NewReconcileLogic(
			repository.NewProjectRepository(db),
			repository.NewDeploymentRepository(db),
			gateway,
		),
	}
}

// GetName 获取任务名称
func (j *ReconcileJob) GetName() string {
	return "orphan_reconcile_sweeper"
}

// GetSchedule 获取调度配置
func (j *ReconcileJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(time.Duration(j.config.Task.ReconcileInterval) * time.Second)
}

// Execute 执行任务
func (j *ReconcileJob) Execute() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(j.config.Task.ReconcileInterval)*time.Second)
	defer cancel()

	adopted, err := j.reconcileLogic.AdoptOrphans(ctx)
	if err != nil {
		logger.Error("Orphan reconcile task failed: %v", err)
		return
	}
	if adopted > 0 {
		logger.Info("Orphan reconcile task adopted %d contracts", adopted)
	}
}
