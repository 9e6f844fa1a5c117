package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// SafeHarvestNFT 合约ABI。项目数据读取在合约端拆成两个函数
// （规避 stack too deep），包装器里合并成一个结构返回。
const harvestProjectABI = `[
	{
		"inputs": [],
		"name": "getProjectData1",
		"outputs": [
			{"name": "currentStatus", "type": "uint8"},
			{"name": "projectOwner", "type": "address"},
			{"name": "projectFarmer", "type": "address"},
			{"name": "nftTotalSupply", "type": "uint256"},
			{"name": "nftMintedCount", "type": "uint256"},
			{"name": "nftPricePerUnit", "type": "uint256"},
			{"name": "projectBuildCost", "type": "uint256"},
			{"name": "projectAnnualIncome", "type": "uint256"},
			{"name": "projectInvestorShare", "type": "uint256"},
			{"name": "projectInterestRate", "type": "uint256"},
			{"name": "projectPremiumRate", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getProjectData2",
		"outputs": [
			{"name": "projectCurrentYear", "type": "uint256"},
			{"name": "projectCumulativePrincipal", "type": "uint256"},
			{"name": "projectRemainingPrincipal", "type": "uint256"},
			{"name": "projectBuybackPrice", "type": "uint256"},
			{"name": "projectBuybackActive", "type": "bool"},
			{"name": "projectPaymentToken", "type": "address"},
			{"name": "projectFactory", "type": "address"}
		],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "name",
		"outputs": [{"name": "", "type": "string"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "withdrawFunds",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "resetNFTs",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "SafeHarvestCalculator",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// HarvestProject 单个项目合约包装器
type HarvestProject struct {
	client   *Client
	address  common.Address
	contract *bind.BoundContract
}

// NewHarvestProject 创建项目合约实例
func NewHarvestProject(client *Client, address string) (*HarvestProject, error) {
	if !IsHexAddress(address) {
		return nil, fmt.Errorf("invalid project address: %s", address)
	}

	parsedABI, err := abi.JSON(strings.NewReader(harvestProjectABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse project ABI: %w", err)
	}

	contractAddr := common.HexToAddress(address)
	contract := bind.NewBoundContract(contractAddr, parsedABI, client.Raw(), client.Raw(), client.Raw())

	return &HarvestProject{
		client:   client,
		address:  contractAddr,
		contract: contract,
	}, nil
}

// ProjectData 项目链上数据（金额字段已转回人类可读单位）
type ProjectData struct {
	Status              uint8  `json:"currentStatus"`
	Owner               string `json:"projectOwner"`
	Farmer              string `json:"projectFarmer"`
	TotalSupply         int64  `json:"nftTotalSupply"`
	MintedCount         int64  `json:"nftMintedCount"`
	NftPrice            int64  `json:"nftPricePerUnit"`
	BuildCost           int64  `json:"projectBuildCost"`
	AnnualIncome        int64  `json:"projectAnnualIncome"`
	InvestorShare       int64  `json:"projectInvestorShare"`
	InterestRate        int64  `json:"projectInterestRate"`
	PremiumRate         int64  `json:"projectPremiumRate"`
	CurrentYear         int64  `json:"projectCurrentYear"`
	CumulativePrincipal int64  `json:"projectCumulativePrincipal"`
	RemainingPrincipal  int64  `json:"projectRemainingPrincipal"`
	BuybackPrice        int64  `json:"projectBuybackPrice"`
	BuybackActive       bool   `json:"projectBuybackActive"`
	PaymentToken        string `json:"projectPaymentToken"`
	Factory             string `json:"projectFactory"`
}

// GetProjectData 读取完整项目数据（两次合约调用合并）
func (p *HarvestProject) GetProjectData(ctx context.Context) (*ProjectData, error) {
	opts := p.client.CallOpts(ctx)

	var out1 []interface{}
	if err := p.contract.Call(opts, &out1, "getProjectData1"); err != nil {
		return nil, fmt.Errorf("getProjectData1 call failed: %w", err)
	}

	var out2 []interface{}
	if err := p.contract.Call(opts, &out2, "getProjectData2"); err != nil {
		return nil, fmt.Errorf("getProjectData2 call failed: %w", err)
	}

	data := &ProjectData{
		Status:              out1[0].(uint8),
		Owner:               out1[1].(common.Address).Hex(),
		Farmer:              out1[2].(common.Address).Hex(),
		TotalSupply:         out1[3].(*big.Int).Int64(),
		MintedCount:         out1[4].(*big.Int).Int64(),
		NftPrice:            FromFixed(out1[5].(*big.Int)),
		BuildCost:           FromFixed(out1[6].(*big.Int)),
		AnnualIncome:        FromFixed(out1[7].(*big.Int)),
		InvestorShare:       out1[8].(*big.Int).Int64(),
		InterestRate:        out1[9].(*big.Int).Int64(),
		PremiumRate:         out1[10].(*big.Int).Int64(),
		CurrentYear:         out2[0].(*big.Int).Int64(),
		CumulativePrincipal: FromFixed(out2[1].(*big.Int)),
		RemainingPrincipal:  FromFixed(out2[2].(*big.Int)),
		BuybackPrice:        FromFixed(out2[3].(*big.Int)),
		BuybackActive:       out2[4].(bool),
		PaymentToken:        out2[5].(common.Address).Hex(),
		Factory:             out2[6].(common.Address).Hex(),
	}
	return data, nil
}

// Name 读取项目代币名称（即项目标题）
func (p *HarvestProject) Name(ctx context.Context) (string, error) {
	var out []interface{}
	if err := p.contract.Call(p.client.CallOpts(ctx), &out, "name"); err != nil {
		return "", fmt.Errorf("name call failed: %w", err)
	}
	return out[0].(string), nil
}

// WithdrawFunds 提领项目资金
func (p *HarvestProject) WithdrawFunds(ctx context.Context, to string, amount int64) (string, error) {
	if !IsHexAddress(to) {
		return "", fmt.Errorf("invalid withdraw target address: %s", to)
	}

	auth, err := p.client.Auth(ctx)
	if err != nil {
		return "", err
	}

	tx, err := p.contract.Transact(auth, "withdrawFunds", common.HexToAddress(to), ToFixed(amount))
	if err != nil {
		return "", fmt.Errorf("withdrawFunds transaction failed: %w", err)
	}
	return tx.Hash().Hex(), nil
}

// ResetNFTs 重置NFT集合。危险操作，链上会销毁所有现有NFT并把铸造数清零。
func (p *HarvestProject) ResetNFTs(ctx context.Context) (string, error) {
	auth, err := p.client.Auth(ctx)
	if err != nil {
		return "", err
	}

	tx, err := p.contract.Transact(auth, "resetNFTs")
	if err != nil {
		return "", fmt.Errorf("resetNFTs transaction failed: %w", err)
	}
	return tx.Hash().Hex(), nil
}

// TriggerSettlement 触发年度结算 (SafeHarvestCalculator)
func (p *HarvestProject) TriggerSettlement(ctx context.Context) (string, error) {
	auth, err := p.client.Auth(ctx)
	if err != nil {
		return "", err
	}

	tx, err := p.contract.Transact(auth, "SafeHarvestCalculator")
	if err != nil {
		return "", fmt.Errorf("SafeHarvestCalculator transaction failed: %w", err)
	}
	return tx.Hash().Hex(), nil
}
