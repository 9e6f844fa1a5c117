package monitor

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/alex124513/rwa-backend/internal/chain"
	"github.com/alex124513/rwa-backend/internal/config"
	"github.com/alex124513/rwa-backend/internal/logger"
	"github.com/alex124513/rwa-backend/internal/logic"
	"github.com/alex124513/rwa-backend/internal/repository"
	"github.com/panjf2000/ants/v2"
	"gorm.io/gorm"
)

// maxBlockBatch 单次日志查询的最大区块跨度，避免触发节点API限制
const maxBlockBatch = uint64(500)

// FactoryMonitor 工厂事件监控器：追踪ProjectCreated事件，
// 在事件到达时即时触发孤儿收编，而不用等周期对账扫描。
// 定位是加速器而非正确性来源，漏掉的事件由对账任务兜底。
type FactoryMonitor struct {
	gateway        *chain.Gateway
	projectRepo    *repository.ProjectRepository
	reconcileLogic *logic.ReconcileLogic
	pool           *ants.Pool
	interval       time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	nextBlock    uint64
	retryCount   int
	backoffUntil time.Time
}

// NewFactoryMonitor 创建工厂事件监控器
func NewFactoryMonitor(db *gorm.DB, gateway *chain.Gateway, cfg *config.Config) (*FactoryMonitor, error) {
	pool, err := ants.NewPool(4)
	if err != nil {
		return nil, err
	}

	projectRepo := repository.NewProjectRepository(db)
	ctx, cancel := context.WithCancel(context.Background())

	return &FactoryMonitor{
		gateway:        gateway,
		projectRepo:    projectRepo,
		reconcileLogic: logic.NewReconcileLogic(projectRepo, repository.NewDeploymentRepository(db), gateway),
		pool:           pool,
		interval:       time.Duration(cfg.Task.MonitorInterval) * time.Second,
		ctx:            ctx,
		cancel:         cancel,
	}, nil
}

// Start 启动监控。从当前区块高度开始追新，
// 历史区块的缺口归周期对账任务负责。
func (m *FactoryMonitor) Start() error {
	current, err := m.gateway.BlockNumber(m.ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.nextBlock = current + 1
	m.mu.Unlock()

	logger.Info("Factory event monitor starting from block %d", current+1)
	go m.loop()
	return nil
}

// Stop 停止监控
func (m *FactoryMonitor) Stop() {
	logger.Info("Stopping factory event monitor")
	m.cancel()
	m.pool.Release()
}

// loop 监控循环
func (m *FactoryMonitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			logger.Info("Factory event monitor stopped")
			return
		case <-ticker.C:
			if time.Now().Before(m.backoffUntil) {
				continue
			}
			if err := m.scan(); err != nil {
				m.handleError(err)
				continue
			}
			m.resetBackoff()
		}
	}
}

// scan 扫描自上次处理以来的新区块
func (m *FactoryMonitor) scan() error {
	current, err := m.gateway.BlockNumber(m.ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	from := m.nextBlock
	m.mu.Unlock()

	if current < from {
		return nil
	}

	for batchFrom := from; batchFrom <= current; batchFrom += maxBlockBatch {
		batchTo := batchFrom + maxBlockBatch - 1
		if batchTo > current {
			batchTo = current
		}

		events, err := m.gateway.FilterProjectCreated(m.ctx, batchFrom, batchTo)
		if err != nil {
			if isRateLimitError(err) {
				logger.Error("API rate limit hit scanning blocks %d-%d: %v", batchFrom, batchTo, err)
			}
			return err
		}

		for _, event := range events {
			e := event
			if err := m.pool.Submit(func() { m.handleEvent(e) }); err != nil {
				logger.Error("Failed to submit event task to pool: %v", err)
			}
		}

		m.mu.Lock()
		m.nextBlock = batchTo + 1
		m.mu.Unlock()
	}

	return nil
}

// handleEvent 处理单个部署事件：合约地址未归属任何记录时触发收编
func (m *FactoryMonitor) handleEvent(event chain.ProjectCreatedEvent) {
	logger.Info("ProjectCreated event: project=%s farmer=%s name=%q block=%d tx=%s",
		event.Project, event.Farmer, event.Name, event.BlockNumber, event.TxHash)

	known, err := m.projectRepo.ContractAddresses()
	if err != nil {
		logger.Error("Failed to load known contract addresses: %v", err)
		return
	}
	if known[event.Project] {
		return
	}

	// 正常部署流程里Approve会先落库，这里只有事件先于（或替代了）
	// 记录更新时才会走到，交给收编流程按名称归属
	adopted, err := m.reconcileLogic.AdoptOrphans(m.ctx)
	if err != nil {
		logger.Error("Orphan adoption triggered by event failed: %v", err)
		return
	}
	if adopted > 0 {
		logger.Info("Event-triggered adoption attached %d contracts", adopted)
	}
}

// handleError 错误退避，指数增长封顶5分钟
func (m *FactoryMonitor) handleError(err error) {
	m.retryCount++

	backoff := time.Duration(m.retryCount) * 10 * time.Second
	if m.retryCount > 5 {
		backoff = 5 * time.Minute
	}
	m.backoffUntil = time.Now().Add(backoff)

	logger.Error("Factory monitor error (retry %d, backing off %v): %v", m.retryCount, backoff, err)
}

func (m *FactoryMonitor) resetBackoff() {
	m.retryCount = 0
	m.backoffUntil = time.Time{}
}

// isRateLimitError 检查是否为节点API限制错误
func isRateLimitError(err error) bool {
	return strings.Contains(err.Error(), "Too Many Requests")
}
