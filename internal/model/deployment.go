package model

import "time"

// DeploymentStatus 部署记录状态
type DeploymentStatus string

const (
	DeploymentStatusConfirmed   DeploymentStatus = "confirmed"   // 已确认且记录已更新
	DeploymentStatusUnconfirmed DeploymentStatus = "unconfirmed" // 地址通过枚举兜底推断，未经事件确认
	DeploymentStatusOrphaned    DeploymentStatus = "orphaned"    // 链上成功但记录更新失败，待对账收编
	DeploymentStatusFailed      DeploymentStatus = "failed"      // 链上交易失败
)

// Deployment 部署审计记录
//
// 每次 Approve 的链上写入都会留痕，部分失败时对账任务依赖该表
// 找回孤儿部署。
type Deployment struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectId       int64            `json:"project_id" gorm:"index"`
	TxHash          string           `json:"tx_hash" gorm:"index"`
	ContractAddress string           `json:"contract_address"`
	FactoryAddress  string           `json:"factory_address"`
	Status          DeploymentStatus `json:"status" gorm:"default:'confirmed'"`
	FailureReason   string           `json:"failure_reason"`
}

// TableName 自定义表名
func (Deployment) TableName() string {
	return "deployment"
}
