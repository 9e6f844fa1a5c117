package model

import "fmt"

// Stage 项目生命周期阶段
//
// admin_agree / status_on_chain / funding_status 三个字段各自可变时容易
// 相互漂移，所有状态写入统一折叠为单一阶段枚举，经 ApplyStage 同步写回
// 三个线上字段。
type Stage string

const (
	StagePendingReview Stage = "PENDING_REVIEW" // 已提交，等待审核
	StageRejected      Stage = "REJECTED"       // 审核拒绝
	StageFundingOpen   Stage = "FUNDING_OPEN"   // 已部署，募资中
	StageFundingClosed Stage = "FUNDING_CLOSED" // 已部署，募资结束
)

// 各阶段前端显示文案（沿用既有存量数据的值）
var stageDisplay = map[Stage]string{
	StagePendingReview: "審核中",
	StageRejected:      "已拒絕",
	StageFundingOpen:   "開放中",
	StageFundingClosed: "已結束",
}

// Stage 从三个线上字段推导当前阶段
func (p *Project) Stage() Stage {
	if p.AdminAgree && p.StatusOnChain == ChainStatusActive {
		if p.FundingStatus == FundingStatusClosed {
			return StageFundingClosed
		}
		return StageFundingOpen
	}
	if p.FundingStatus == FundingStatusClosed {
		return StageRejected
	}
	return StagePendingReview
}

// CanTransition 阶段迁移是否允许
func CanTransition(from, to Stage) bool {
	switch from {
	case StagePendingReview:
		return to == StageFundingOpen || to == StageRejected
	case StageRejected:
		// 拒绝为幂等终态
		return to == StageRejected
	case StageFundingOpen:
		return to == StageFundingClosed
	case StageFundingClosed:
		return false
	}
	return false
}

// ApplyStage 迁移到目标阶段并同步写回三个线上字段。
// admin_agree 单调，一旦为 true 不再回退。
func (p *Project) ApplyStage(to Stage) error {
	from := p.Stage()
	if from != to && !CanTransition(from, to) {
		return fmt.Errorf("invalid stage transition: %s -> %s", from, to)
	}

	switch to {
	case StagePendingReview:
		p.AdminAgree = false
		p.StatusOnChain = ChainStatusPending
		p.FundingStatus = FundingStatusComingSoon
	case StageRejected:
		p.AdminAgree = false
		p.StatusOnChain = ChainStatusPending
		p.FundingStatus = FundingStatusClosed
	case StageFundingOpen:
		p.AdminAgree = true
		p.StatusOnChain = ChainStatusActive
		p.FundingStatus = FundingStatusOpening
	case StageFundingClosed:
		p.AdminAgree = true
		p.StatusOnChain = ChainStatusActive
		p.FundingStatus = FundingStatusClosed
	default:
		return fmt.Errorf("unknown stage: %s", to)
	}

	p.StatusDisplay = stageDisplay[to]
	return nil
}

// StageFields 目标阶段对应的存储字段补丁，供部分更新使用
func StageFields(to Stage) map[string]interface{} {
	agree := to == StageFundingOpen || to == StageFundingClosed
	status := ChainStatusPending
	if agree {
		status = ChainStatusActive
	}
	funding := FundingStatusComingSoon
	switch to {
	case StageFundingOpen:
		funding = FundingStatusOpening
	case StageRejected, StageFundingClosed:
		funding = FundingStatusClosed
	}
	return map[string]interface{}{
		"admin_agree":     agree,
		"status_on_chain": status,
		"funding_status":  funding,
		"status_display":  stageDisplay[to],
	}
}
