package repository

import (
	"fmt"

	"github.com/alex124513/rwa-backend/internal/model"
	"gorm.io/gorm"
)

// DeploymentRepository 部署审计记录存储
type DeploymentRepository struct {
	db *gorm.DB
}

// NewDeploymentRepository 创建部署记录存储
func NewDeploymentRepository(db *gorm.DB) *DeploymentRepository {
	return &DeploymentRepository{db: db}
}

// Create 插入部署记录
func (r *DeploymentRepository) Create(deployment *model.Deployment) error {
	if err := r.db.Create(deployment).Error; err != nil {
		return fmt.Errorf("failed to create deployment record: %w", err)
	}
	return nil
}

// FindOrphaned 查询待收编的孤儿部署
func (r *DeploymentRepository) FindOrphaned() ([]model.Deployment, error) {
	var deployments []model.Deployment
	if err := r.db.Where("status = ?", model.DeploymentStatusOrphaned).
		Find(&deployments).Error; err != nil {
		return nil, fmt.Errorf("failed to query orphaned deployments: %w", err)
	}
	return deployments, nil
}

// UpdateStatus 更新部署记录状态
func (r *DeploymentRepository) UpdateStatus(id int64, status model.DeploymentStatus) error {
	if err := r.db.Model(&model.Deployment{}).Where("id = ?", id).
		Update("status", status).Error; err != nil {
		return fmt.Errorf("failed to update deployment %d: %w", id, err)
	}
	return nil
}
