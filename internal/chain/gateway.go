package chain

import (
	"context"
	"fmt"

	"github.com/alex124513/rwa-backend/internal/apperr"
	"github.com/alex124513/rwa-backend/internal/config"
	"github.com/ethereum/go-ethereum/core/types"
)

// Gateway 链上账本统一入口，聚合工厂、项目、支付代币三类合约
type Gateway struct {
	client  *Client
	factory *BankFactory
	token   *PaymentToken
}

// NewGateway 创建链上账本入口
func NewGateway(cfg config.ChainConfig) (*Gateway, error) {
	client, err := Init(cfg)
	if err != nil {
		return nil, err
	}

	factory, err := NewBankFactory(client, cfg.FactoryAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to init bank factory: %w", err)
	}

	token, err := NewPaymentToken(client, cfg.PaymentTokenAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to init payment token: %w", err)
	}

	return &Gateway{client: client, factory: factory, token: token}, nil
}

// FactoryAddress 工厂合约地址
func (g *Gateway) FactoryAddress() string {
	return g.factory.Address()
}

// PaymentTokenAddress 支付代币合约地址
func (g *Gateway) PaymentTokenAddress() string {
	return g.token.Address()
}

// DeployReceipt 部署结果
type DeployReceipt struct {
	TxHash          string
	ContractAddress string // 事件解析出的新合约地址，空表示回执中无事件
	BlockNumber     uint64
}

// ListProjectAddresses 枚举工厂已部署的全部项目地址
func (g *Gateway) ListProjectAddresses(ctx context.Context) ([]string, error) {
	return g.factory.GetAllProjects(ctx)
}

// CreateProject 部署项目合约：发送交易，等待确认，分类失败原因，
// 并尽量从回执事件解析新合约地址。
func (g *Gateway) CreateProject(ctx context.Context, p CreateProjectParams) (*DeployReceipt, error) {
	tx, err := g.factory.CreateProject(ctx, p)
	if err != nil {
		// 工厂余额不足等情况在gas估算阶段即被回滚，记录未修改
		return nil, apperr.Wrap(apperr.KindChainRevert, err, "createProject rejected by ledger")
	}

	receipt, err := g.client.WaitForReceipt(ctx, tx.Hash())
	if err != nil {
		return nil, err
	}

	if receipt.Status == types.ReceiptStatusFailed {
		return nil, apperr.New(apperr.KindChainRevert,
			"createProject transaction %s reverted", tx.Hash().Hex())
	}

	result := &DeployReceipt{
		TxHash:      tx.Hash().Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
	}
	if addr, ok := g.factory.ParseProjectCreated(receipt); ok {
		result.ContractAddress = addr
	}
	return result, nil
}

// BlockNumber 当前链上最新区块号
func (g *Gateway) BlockNumber(ctx context.Context) (uint64, error) {
	return g.client.Raw().BlockNumber(ctx)
}

// FilterProjectCreated 扫描区块区间内的工厂部署事件
func (g *Gateway) FilterProjectCreated(ctx context.Context, fromBlock, toBlock uint64) ([]ProjectCreatedEvent, error) {
	return g.factory.FilterProjectCreated(ctx, fromBlock, toBlock)
}

// ProjectData 读取项目链上数据
func (g *Gateway) ProjectData(ctx context.Context, address string) (*ProjectData, error) {
	project, err := NewHarvestProject(g.client, address)
	if err != nil {
		return nil, err
	}
	return project.GetProjectData(ctx)
}

// ProjectName 读取项目代币名称
func (g *Gateway) ProjectName(ctx context.Context, address string) (string, error) {
	project, err := NewHarvestProject(g.client, address)
	if err != nil {
		return "", err
	}
	return project.Name(ctx)
}

// FactoryBalance 查询工厂余额
func (g *Gateway) FactoryBalance(ctx context.Context) (int64, error) {
	return g.factory.GetFactoryBalance(ctx)
}

// DepositFunds 向工厂存入资金
func (g *Gateway) DepositFunds(ctx context.Context, amount int64) (string, error) {
	return g.factory.DepositFunds(ctx, amount)
}

// SetProjectStatus 设定项目链上状态
func (g *Gateway) SetProjectStatus(ctx context.Context, project string, status uint8) (string, error) {
	return g.factory.SetProjectStatus(ctx, project, status)
}

// WithdrawFunds 提领项目资金
func (g *Gateway) WithdrawFunds(ctx context.Context, project, to string, amount int64) (string, error) {
	contract, err := NewHarvestProject(g.client, project)
	if err != nil {
		return "", err
	}
	return contract.WithdrawFunds(ctx, to, amount)
}

// ResetNFTs 重置项目NFT集合
func (g *Gateway) ResetNFTs(ctx context.Context, project string) (string, error) {
	contract, err := NewHarvestProject(g.client, project)
	if err != nil {
		return "", err
	}
	return contract.ResetNFTs(ctx)
}

// TriggerSettlement 触发项目年度结算
func (g *Gateway) TriggerSettlement(ctx context.Context, project string) (string, error) {
	contract, err := NewHarvestProject(g.client, project)
	if err != nil {
		return "", err
	}
	return contract.TriggerSettlement(ctx)
}

// MintToken 铸造支付代币
func (g *Gateway) MintToken(ctx context.Context, to string, amount int64) (string, error) {
	return g.token.Mint(ctx, to, amount)
}

// TokenBalance 查询支付代币余额
func (g *Gateway) TokenBalance(ctx context.Context, account string) (int64, error) {
	return g.token.BalanceOf(ctx, account)
}
