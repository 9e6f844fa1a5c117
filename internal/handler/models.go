package handler

import (
	"time"

	"github.com/alex124513/rwa-backend/internal/model"
)

// ProjectView 项目投影模式
type ProjectView string

const (
	ViewCard ProjectView = "card" // 列表卡片用的字段子集
	ViewFull ProjectView = "full" // 完整记录
)

// ProjectCardResponse 项目卡片响应模型
type ProjectCardResponse struct {
	Id              int64     `json:"id"`
	Title           string    `json:"title"`
	CropName        string    `json:"crop_name"`
	Location        string    `json:"location"`
	CoverImage      string    `json:"cover_image"`
	AnnualYieldRate string    `json:"annual_yield_rate"`
	TargetAmount    int64     `json:"target_amount"`
	FundedAmount    int64     `json:"funded_amount"`
	FundedNft       int64     `json:"funded_nft"`
	TotalNft        int64     `json:"total_nft"`
	NftPrice        int64     `json:"nft_price"`
	FundingStatus   string    `json:"funding_status"`
	StatusDisplay   string    `json:"status_display"`
	ContractAddress string    `json:"contract_address"`
	CreatedAt       time.Time `json:"created_at"`
}

// ToProjectResponse 项目投影。同一实体的所有对外投影统一走这里，
// 由视图模式参数决定字段集。
func ToProjectResponse(project *model.Project, view ProjectView) interface{} {
	if view == ViewFull {
		return project
	}
	return ProjectCardResponse{
		Id:              project.Id,
		Title:           project.Title,
		CropName:        project.CropName,
		Location:        project.Location,
		CoverImage:      project.CoverImage,
		AnnualYieldRate: project.AnnualYieldRate,
		TargetAmount:    project.TargetAmount,
		FundedAmount:    project.FundedAmount,
		FundedNft:       project.FundedNft,
		TotalNft:        project.TotalNft,
		NftPrice:        project.NftPrice,
		FundingStatus:   string(project.FundingStatus),
		StatusDisplay:   project.StatusDisplay,
		ContractAddress: project.ContractAddress,
		CreatedAt:       project.CreatedAt,
	}
}

// ToProjectResponseList 项目列表投影
func ToProjectResponseList(projects []model.Project, view ProjectView) []interface{} {
	result := make([]interface{}, len(projects))
	for i := range projects {
		result[i] = ToProjectResponse(&projects[i], view)
	}
	return result
}

// parseView 解析投影模式参数，默认卡片视图
func parseView(raw string) ProjectView {
	if raw == string(ViewFull) {
		return ViewFull
	}
	return ViewCard
}
