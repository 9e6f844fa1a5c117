package logic

import (
	"context"

	"github.com/alex124513/rwa-backend/internal/apperr"
	"github.com/alex124513/rwa-backend/internal/logger"
)

// fundedUnitPrice 募资金额换算使用的固定NFT单价（万）。
// 注意：这里刻意不读记录自身的 nft_price 字段，与既有线上行为保持
// 一致；两者不一致时同步会输出告警。
const fundedUnitPrice = 10

// FundingSyncLogic 募资指标同步：把链上铸造数回写到项目记录
type FundingSyncLogic struct {
	store  ProjectStore
	ledger Ledger
}

// NewFundingSyncLogic 创建募资同步逻辑
func NewFundingSyncLogic(store ProjectStore, ledger Ledger) *FundingSyncLogic {
	return &FundingSyncLogic{store: store, ledger: ledger}
}

// SyncResult 单项目同步结果
type SyncResult struct {
	ProjectId       int64  `json:"projectId"`
	ContractAddress string `json:"contractAddress"`
	MintedNft       int64  `json:"nftMintedCount"`
	FundedAmount    int64  `json:"fundedAmount"`
}

// Sync 同步单个项目的募资指标。
// 以链上读数整体覆盖而非累加：resetNFTs 之后铸造数合法地变小，
// 覆盖写入保证记录正确回落。幂等。
func (l *FundingSyncLogic) Sync(ctx context.Context, projectId int64) (*SyncResult, error) {
	project, err := l.store.FindById(projectId)
	if err != nil {
		return nil, err
	}

	if !project.Deployed() {
		return nil, apperr.New(apperr.KindValidation,
			"project %d does not have a contract address", projectId)
	}

	data, err := l.ledger.ProjectData(ctx, project.ContractAddress)
	if err != nil {
		return nil, err
	}

	minted := data.MintedCount
	fundedAmount := minted * fundedUnitPrice

	// 超卖不是本服务能修的账，照实落库并告警
	if project.TotalNft > 0 && minted > project.TotalNft {
		logger.Warn("Project %d minted count %d exceeds total_nft %d",
			projectId, minted, project.TotalNft)
	}
	if project.NftPrice != 0 && project.NftPrice != fundedUnitPrice {
		logger.Warn("Project %d nft_price %d differs from funding unit price %d used for funded_amount",
			projectId, project.NftPrice, fundedUnitPrice)
	}

	fields := map[string]interface{}{
		"minted_nft":    minted,
		"funded_nft":    minted,
		"funded_amount": fundedAmount,
	}
	if err := l.store.UpdateFields(projectId, fields); err != nil {
		return nil, err
	}

	return &SyncResult{
		ProjectId:       projectId,
		ContractAddress: project.ContractAddress,
		MintedNft:       minted,
		FundedAmount:    fundedAmount,
	}, nil
}

// SyncAll 同步全部已部署项目，返回成功同步的数量。
// 单个项目失败不阻断其余项目。
func (l *FundingSyncLogic) SyncAll(ctx context.Context) (int, error) {
	projects, err := l.store.FindDeployed()
	if err != nil {
		return 0, err
	}

	synced := 0
	for _, project := range projects {
		if _, err := l.Sync(ctx, project.Id); err != nil {
			logger.Error("Failed to sync funding data for project %d: %v", project.Id, err)
			continue
		}
		synced++
	}
	return synced, nil
}
