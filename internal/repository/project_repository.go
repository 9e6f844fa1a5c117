package repository

import (
	"errors"
	"fmt"

	"github.com/alex124513/rwa-backend/internal/apperr"
	"github.com/alex124513/rwa-backend/internal/model"
	"gorm.io/gorm"
)

// ProjectRepository 项目存储
type ProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository 创建项目存储
func NewProjectRepository(db *gorm.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create 插入项目
func (r *ProjectRepository) Create(project *model.Project) error {
	if err := r.db.Create(project).Error; err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// FindById 按ID查询项目
func (r *ProjectRepository) FindById(id int64) (*model.Project, error) {
	var project model.Project
	if err := r.db.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "project %d not found", id)
		}
		return nil, fmt.Errorf("failed to query project %d: %w", id, err)
	}
	return &project, nil
}

// FindPending 查询所有待审核项目，新提交的在前
func (r *ProjectRepository) FindPending() ([]model.Project, error) {
	var projects []model.Project
	if err := r.db.Where("admin_agree = ?", false).
		Order("created_at DESC").
		Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to query pending projects: %w", err)
	}
	return projects, nil
}

// FindDeployed 查询所有已部署项目
func (r *ProjectRepository) FindDeployed() ([]model.Project, error) {
	var projects []model.Project
	if err := r.db.Where("contract_address <> ''").
		Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to query deployed projects: %w", err)
	}
	return projects, nil
}

// List 查询项目列表，可按募资状态过滤
func (r *ProjectRepository) List(fundingStatus string) ([]model.Project, error) {
	query := r.db.Order("created_at DESC")
	if fundingStatus != "" {
		query = query.Where("funding_status = ?", fundingStatus)
	}

	var projects []model.Project
	if err := query.Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to query projects: %w", err)
	}
	return projects, nil
}

// FindUndeployedByTitle 按标题查询未部署项目，供对账任务收编孤儿部署
func (r *ProjectRepository) FindUndeployedByTitle(title string) (*model.Project, error) {
	var project model.Project
	if err := r.db.Where("title = ? AND contract_address = ''", title).
		Order("created_at ASC").
		First(&project).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "no undeployed project titled %q", title)
		}
		return nil, fmt.Errorf("failed to query project by title: %w", err)
	}
	return &project, nil
}

// ContractAddresses 已记录的合约地址集合
func (r *ProjectRepository) ContractAddresses() (map[string]bool, error) {
	var addresses []string
	if err := r.db.Model(&model.Project{}).
		Where("contract_address <> ''").
		Pluck("contract_address", &addresses).Error; err != nil {
		return nil, fmt.Errorf("failed to query contract addresses: %w", err)
	}

	known := make(map[string]bool, len(addresses))
	for _, addr := range addresses {
		known[addr] = true
	}
	return known, nil
}

// UpdateFields 部分字段更新，updated_at 由gorm自动触碰
func (r *ProjectRepository) UpdateFields(id int64, fields map[string]interface{}) error {
	result := r.db.Model(&model.Project{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return fmt.Errorf("failed to update project %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, "project %d not found", id)
	}
	return nil
}
