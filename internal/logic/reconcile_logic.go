package logic

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/alex124513/rwa-backend/internal/apperr"
	"github.com/alex124513/rwa-backend/internal/chain"
	"github.com/alex124513/rwa-backend/internal/logger"
	"github.com/alex124513/rwa-backend/internal/model"
)

// Ledger 链上账本协作方，由 chain.Gateway 实现
type Ledger interface {
	ListProjectAddresses(ctx context.Context) ([]string, error)
	CreateProject(ctx context.Context, p chain.CreateProjectParams) (*chain.DeployReceipt, error)
	ProjectData(ctx context.Context, address string) (*chain.ProjectData, error)
	ProjectName(ctx context.Context, address string) (string, error)
	FactoryAddress() string
	PaymentTokenAddress() string
}

// ProjectStore 项目存储协作方，由 repository.ProjectRepository 实现
type ProjectStore interface {
	Create(project *model.Project) error
	FindById(id int64) (*model.Project, error)
	FindPending() ([]model.Project, error)
	FindDeployed() ([]model.Project, error)
	FindUndeployedByTitle(title string) (*model.Project, error)
	List(fundingStatus string) ([]model.Project, error)
	ContractAddresses() (map[string]bool, error)
	UpdateFields(id int64, fields map[string]interface{}) error
}

// DeploymentStore 部署审计记录存储协作方
type DeploymentStore interface {
	Create(deployment *model.Deployment) error
	FindOrphaned() ([]model.Deployment, error)
	UpdateStatus(id int64, status model.DeploymentStatus) error
}

// ReconcileLogic 项目生命周期对账：审核、部署、地址发现、孤儿收编
type ReconcileLogic struct {
	store       ProjectStore
	deployments DeploymentStore
	ledger      Ledger

	// 部署互斥锁。工厂的地址枚举是全局只追加序列，两个并发
	// Approve 在各自前后快照之间互相穿插会造成地址归属歧义，
	// 整个部署流程必须串行。
	deployMu sync.Mutex
}

// NewReconcileLogic 创建对账逻辑
func NewReconcileLogic(store ProjectStore, deployments DeploymentStore, ledger Ledger) *ReconcileLogic {
	return &ReconcileLogic{
		store:       store,
		deployments: deployments,
		ledger:      ledger,
	}
}

// ApproveParams 审核通过后的部署参数
type ApproveParams struct {
	TotalNFTs     int64  `json:"totalNFTs"`
	NftPrice      int64  `json:"nftPrice"`
	FarmerAddress string `json:"farmerAddress"`
}

// ApproveResult 审核部署结果
type ApproveResult struct {
	ProjectId        int64  `json:"projectId"`
	TxHash           string `json:"txHash"`
	ContractAddress  string `json:"contractAddress"`
	AddressConfirmed bool   `json:"addressConfirmed"`
}

// Approve 审核通过并部署项目到链上。
// 校验先于任何链上调用；链上失败时记录不被修改。
func (l *ReconcileLogic) Approve(ctx context.Context, projectId int64, params ApproveParams) (*ApproveResult, error) {
	project, err := l.store.FindById(projectId)
	if err != nil {
		return nil, err
	}

	if err := validateApprove(project, params); err != nil {
		return nil, err
	}

	return l.deploy(ctx, project, chain.CreateProjectParams{
		Name:          project.Title,
		Symbol:        deploySymbol(project.Title),
		Farmer:        params.FarmerAddress,
		TotalNFTs:     params.TotalNFTs,
		NftPrice:      params.NftPrice,
		BuildCost:     project.BuildCost,
		AnnualIncome:  project.AnnualIncome,
		InvestorShare: int64(project.InvestorShare),
		InterestRate:  int64(project.InterestRate),
		PremiumRate:   int64(project.PremiumRate),
	})
}

// DeployFromRecord 使用记录自身存储的参数部署项目（审核参数已提前录入DB的场景）
func (l *ReconcileLogic) DeployFromRecord(ctx context.Context, projectId int64) (*ApproveResult, error) {
	project, err := l.store.FindById(projectId)
	if err != nil {
		return nil, err
	}

	if err := validateRecordForDeploy(project); err != nil {
		return nil, err
	}

	return l.deploy(ctx, project, chain.CreateProjectParams{
		Name:          project.Title,
		Symbol:        project.Symbol,
		Farmer:        project.FarmerAddress,
		TotalNFTs:     project.TotalNft,
		NftPrice:      project.NftPrice,
		BuildCost:     project.BuildCost,
		AnnualIncome:  project.AnnualIncome,
		InvestorShare: int64(project.InvestorShare),
		InterestRate:  int64(project.InterestRate),
		PremiumRate:   int64(project.PremiumRate),
	})
}

// deploy 部署流水线：前快照 → 链上写入 → 地址发现 → 记录更新 → 审计留痕。
// 整段持有部署互斥锁，保证前快照严格先于写入、写入严格先于后快照。
func (l *ReconcileLogic) deploy(ctx context.Context, project *model.Project, params chain.CreateProjectParams) (*ApproveResult, error) {
	l.deployMu.Lock()
	defer l.deployMu.Unlock()

	preSet, err := l.ledger.ListProjectAddresses(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindChainRevert, err, "failed to snapshot project addresses")
	}

	receipt, err := l.ledger.CreateProject(ctx, params)
	if err != nil {
		// 回滚或超时：记录一律不修改。超时后的交易可能仍会落块，
		// 由对账任务负责事后收编。
		return nil, err
	}

	contractAddress := receipt.ContractAddress
	confirmed := contractAddress != ""
	if !confirmed {
		contractAddress, confirmed, err = l.discoverByDiff(ctx, preSet)
		if err != nil {
			return nil, err
		}
	}

	now := time.Now()
	fields := model.StageFields(model.StageFundingOpen)
	fields["total_nft"] = params.TotalNFTs
	fields["nft_price"] = params.NftPrice
	fields["farmer_address"] = params.Farmer
	fields["contract_address"] = contractAddress
	fields["factory_address"] = l.ledger.FactoryAddress()
	fields["payment_token_address"] = l.ledger.PaymentTokenAddress()
	fields["deployment_tx_hash"] = receipt.TxHash
	fields["deployed_at"] = now

	if err := l.store.UpdateFields(project.Id, fields); err != nil {
		// 链上已成功，记录更新失败：必须区别于整体失败上报，
		// 并留下孤儿审计记录供对账任务补全。
		l.audit(project.Id, receipt.TxHash, contractAddress, model.DeploymentStatusOrphaned, err.Error())
		return nil, &apperr.Error{
			Kind:    apperr.KindPartialFailure,
			Message: "project deployed on chain but record update failed",
			TxHash:  receipt.TxHash,
			Address: contractAddress,
			Err:     err,
		}
	}

	status := model.DeploymentStatusConfirmed
	if !confirmed {
		status = model.DeploymentStatusUnconfirmed
	}
	l.audit(project.Id, receipt.TxHash, contractAddress, status, "")

	logger.Info("Deployed project %d to %s (tx %s, confirmed=%v)",
		project.Id, contractAddress, receipt.TxHash, confirmed)

	return &ApproveResult{
		ProjectId:        project.Id,
		TxHash:           receipt.TxHash,
		ContractAddress:  contractAddress,
		AddressConfirmed: confirmed,
	}, nil
}

// discoverByDiff 枚举差集兜底发现新地址。
// 恰好一个新元素即为权威结果；没有新元素时退回枚举末位并标记未确认。
func (l *ReconcileLogic) discoverByDiff(ctx context.Context, preSet []string) (string, bool, error) {
	postSet, err := l.ledger.ListProjectAddresses(ctx)
	if err != nil {
		return "", false, apperr.Wrap(apperr.KindChainRevert, err, "failed to re-enumerate project addresses")
	}

	addr, err := diffAddresses(preSet, postSet)
	if err == nil {
		return addr, true, nil
	}

	if len(postSet) == 0 {
		return "", false, err
	}

	fallback := postSet[len(postSet)-1]
	logger.Warn("Address diff ambiguous (%v), falling back to last enumerated address %s", err, fallback)
	return fallback, false, nil
}

// diffAddresses 返回后快照中新增的唯一地址。
// 零个或多个候选都视为歧义（并发部署穿插或快照过期）。
func diffAddresses(preSet, postSet []string) (string, error) {
	known := make(map[string]bool, len(preSet))
	for _, addr := range preSet {
		known[addr] = true
	}

	var created []string
	for _, addr := range postSet {
		if !known[addr] {
			created = append(created, addr)
		}
	}

	switch len(created) {
	case 1:
		return created[0], nil
	case 0:
		return "", apperr.New(apperr.KindAmbiguousAddress,
			"no new address in post-deployment enumeration (%d entries)", len(postSet))
	default:
		return "", apperr.New(apperr.KindAmbiguousAddress,
			"%d new addresses in post-deployment enumeration, attribution ambiguous", len(created))
	}
}

// Reject 拒绝项目。已拒绝的项目重复拒绝为幂等空操作。
func (l *ReconcileLogic) Reject(projectId int64, notes string) error {
	project, err := l.store.FindById(projectId)
	if err != nil {
		return err
	}

	if project.Deployed() {
		return apperr.New(apperr.KindConflict,
			"project %d is already deployed at %s and cannot be rejected", projectId, project.ContractAddress)
	}

	if project.Stage() == model.StageRejected {
		return nil
	}

	fields := model.StageFields(model.StageRejected)
	fields["admin_notes"] = notes
	return l.store.UpdateFields(projectId, fields)
}

// AdoptOrphans 对账扫描：比对链上枚举与存储中已知的合约地址，
// 把链上已部署但记录缺失关联的项目按代币名称收编回来。
// 覆盖两类缺口：部署后进程崩溃 / 记录更新失败的部分失败状态。
func (l *ReconcileLogic) AdoptOrphans(ctx context.Context) (int, error) {
	addresses, err := l.ledger.ListProjectAddresses(ctx)
	if err != nil {
		return 0, err
	}

	known, err := l.store.ContractAddresses()
	if err != nil {
		return 0, err
	}

	adopted := 0
	for _, addr := range addresses {
		if known[addr] {
			continue
		}

		name, err := l.ledger.ProjectName(ctx, addr)
		if err != nil {
			logger.Warn("Failed to read name of unattributed contract %s: %v", addr, err)
			continue
		}

		project, err := l.store.FindUndeployedByTitle(name)
		if err != nil {
			if apperr.IsKind(err, apperr.KindNotFound) {
				logger.Warn("Orphaned contract %s (%q) matches no undeployed project", addr, name)
				continue
			}
			return adopted, err
		}

		if stage := project.Stage(); !model.CanTransition(stage, model.StageFundingOpen) {
			logger.Warn("Orphaned contract %s matches project %d in stage %s, not adoptable", addr, project.Id, stage)
			continue
		}

		data, err := l.ledger.ProjectData(ctx, addr)
		if err != nil {
			logger.Warn("Failed to read project data of %s: %v", addr, err)
			continue
		}

		now := time.Now()
		fields := model.StageFields(model.StageFundingOpen)
		fields["total_nft"] = data.TotalSupply
		fields["nft_price"] = data.NftPrice
		fields["farmer_address"] = data.Farmer
		fields["contract_address"] = addr
		fields["factory_address"] = l.ledger.FactoryAddress()
		fields["payment_token_address"] = l.ledger.PaymentTokenAddress()
		fields["deployed_at"] = now

		if err := l.store.UpdateFields(project.Id, fields); err != nil {
			logger.Error("Failed to adopt orphaned contract %s for project %d: %v", addr, project.Id, err)
			continue
		}

		l.audit(project.Id, "", addr, model.DeploymentStatusConfirmed, "adopted by reconcile sweep")
		l.resolveOrphanAudits(addr)
		logger.Info("Adopted orphaned contract %s for project %d (%q)", addr, project.Id, name)
		adopted++
	}

	return adopted, nil
}

// resolveOrphanAudits 收编成功后把该合约遗留的孤儿审计记录改为已确认。
// 只按合约地址匹配：同一项目更早的部署尝试可能落在别的地址，不在
// 本次收编的范围内。
func (l *ReconcileLogic) resolveOrphanAudits(address string) {
	orphans, err := l.deployments.FindOrphaned()
	if err != nil {
		logger.Warn("Failed to list orphaned deployment records: %v", err)
		return
	}
	for _, d := range orphans {
		if d.ContractAddress != address {
			continue
		}
		if err := l.deployments.UpdateStatus(d.Id, model.DeploymentStatusConfirmed); err != nil {
			logger.Warn("Failed to resolve orphaned deployment record %d: %v", d.Id, err)
		}
	}
}

// audit 写部署审计记录，失败只记日志不影响主流程
func (l *ReconcileLogic) audit(projectId int64, txHash, address string, status model.DeploymentStatus, reason string) {
	deployment := &model.Deployment{
		ProjectId:       projectId,
		TxHash:          txHash,
		ContractAddress: address,
		FactoryAddress:  l.ledger.FactoryAddress(),
		Status:          status,
		FailureReason:   reason,
	}
	if err := l.deployments.Create(deployment); err != nil {
		logger.Error("Failed to write deployment audit record for project %d: %v", projectId, err)
	}
}

// validateApprove 审核部署参数校验，先于任何链上调用
func validateApprove(project *model.Project, params ApproveParams) error {
	if project.Deployed() {
		return apperr.New(apperr.KindConflict,
			"project %d is already deployed at %s", project.Id, project.ContractAddress)
	}
	if stage := project.Stage(); !model.CanTransition(stage, model.StageFundingOpen) {
		return apperr.New(apperr.KindConflict,
			"project %d in stage %s cannot open funding", project.Id, stage)
	}
	if params.TotalNFTs <= 0 {
		return apperr.New(apperr.KindValidation, "totalNFTs must be a positive integer")
	}
	if params.NftPrice <= 0 {
		return apperr.New(apperr.KindValidation, "nftPrice must be a positive integer")
	}
	if !chain.IsHexAddress(params.FarmerAddress) {
		return apperr.New(apperr.KindValidation,
			"invalid farmerAddress format (must be 0x + 40 hex characters)")
	}
	if project.BuildCost < 0 || project.AnnualIncome < 0 {
		return apperr.New(apperr.KindValidation, "build_cost and annual_income must be non-negative")
	}
	if project.InvestorShare < 0 || project.InterestRate < 0 || project.PremiumRate < 0 {
		return apperr.New(apperr.KindValidation, "rate fields must be non-negative")
	}
	return validateIntegralRates(project)
}

// validateRecordForDeploy 按记录自身字段部署前的预检
func validateRecordForDeploy(project *model.Project) error {
	if project.Deployed() {
		return apperr.New(apperr.KindConflict,
			"project %d is already deployed at %s", project.Id, project.ContractAddress)
	}
	if stage := project.Stage(); !model.CanTransition(stage, model.StageFundingOpen) {
		return apperr.New(apperr.KindConflict,
			"project %d in stage %s cannot open funding", project.Id, stage)
	}
	if project.Title == "" {
		return apperr.New(apperr.KindValidation, "missing field in record: title")
	}
	if project.Symbol == "" {
		return apperr.New(apperr.KindValidation, "missing field in record: symbol")
	}
	if !chain.IsHexAddress(project.FarmerAddress) {
		return apperr.New(apperr.KindValidation,
			"invalid farmer_address (expect 0x + 40 hex)")
	}
	if project.TotalNft <= 0 || project.NftPrice <= 0 {
		return apperr.New(apperr.KindValidation, "total_nft and nft_price must be positive integers")
	}
	if project.BuildCost < 0 || project.AnnualIncome < 0 {
		return apperr.New(apperr.KindValidation, "build_cost and annual_income must be non-negative")
	}
	return validateIntegralRates(project)
}

// validateIntegralRates 比率字段上链时是整数百分比，
// 带小数的值会被静默截断，必须在校验阶段拦下
func validateIntegralRates(p *model.Project) error {
	rates := []struct {
		name  string
		value float64
	}{
		{"investor_share", p.InvestorShare},
		{"interest_rate", p.InterestRate},
		{"premium_rate", p.PremiumRate},
	}
	for _, r := range rates {
		if r.value != math.Trunc(r.value) {
			return apperr.New(apperr.KindValidation,
				"%s must be an integer percentage, got %v", r.name, r.value)
		}
	}
	return nil
}

// deploySymbol 按标题生成部署用代币符号，如 GH-ABC
func deploySymbol(title string) string {
	runes := []rune(title)
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return "GH-" + strings.ToUpper(string(runes))
}
