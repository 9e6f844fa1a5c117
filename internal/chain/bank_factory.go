package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// BankFactory 合约ABI（最小必要）
const bankFactoryABI = `[
	{
		"inputs": [
			{"name": "name_", "type": "string"},
			{"name": "symbol_", "type": "string"},
			{"name": "farmer_", "type": "address"},
			{"name": "totalNFTs", "type": "uint256"},
			{"name": "nftPrice", "type": "uint256"},
			{"name": "buildCost", "type": "uint256"},
			{"name": "annualIncome", "type": "uint256"},
			{"name": "investorShare", "type": "uint256"},
			{"name": "interestRate", "type": "uint256"},
			{"name": "premiumRate", "type": "uint256"}
		],
		"name": "createProject",
		"outputs": [{"name": "", "type": "address"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getAllProjects",
		"outputs": [{"name": "", "type": "address[]"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [],
		"name": "getFactoryBalance",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"name": "amount", "type": "uint256"}],
		"name": "depositFunds",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"name": "project", "type": "address"},
			{"name": "newStatus", "type": "uint8"}
		],
		"name": "setProjectStatus",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"anonymous": false,
		"inputs": [
			{"indexed": true, "name": "project", "type": "address"},
			{"indexed": true, "name": "farmer", "type": "address"},
			{"indexed": false, "name": "name", "type": "string"}
		],
		"name": "ProjectCreated",
		"type": "event"
	}
]`

// BankFactory 项目工厂合约包装器
type BankFactory struct {
	client   *Client
	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract
}

// NewBankFactory 创建工厂合约实例
func NewBankFactory(client *Client, address string) (*BankFactory, error) {
	if !IsHexAddress(address) {
		return nil, fmt.Errorf("invalid factory address: %s", address)
	}

	parsedABI, err := abi.JSON(strings.NewReader(bankFactoryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse factory ABI: %w", err)
	}

	contractAddr := common.HexToAddress(address)
	contract := bind.NewBoundContract(contractAddr, parsedABI, client.Raw(), client.Raw(), client.Raw())

	return &BankFactory{
		client:   client,
		address:  contractAddr,
		abi:      parsedABI,
		contract: contract,
	}, nil
}

// Address 工厂合约地址
func (f *BankFactory) Address() string {
	return f.address.Hex()
}

// CreateProjectParams 项目部署参数（金额均为人类可读单位，上链时转定点）
type CreateProjectParams struct {
	Name          string
	Symbol        string
	Farmer        string
	TotalNFTs     int64
	NftPrice      int64
	BuildCost     int64
	AnnualIncome  int64
	InvestorShare int64
	InterestRate  int64
	PremiumRate   int64
}

// CreateProject 发起项目合约部署交易。
// 合约不向调用方同步返回新地址，需经回执事件或前后枚举差集发现。
func (f *BankFactory) CreateProject(ctx context.Context, p CreateProjectParams) (*types.Transaction, error) {
	auth, err := f.client.Auth(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := f.contract.Transact(auth, "createProject",
		p.Name,
		p.Symbol,
		common.HexToAddress(p.Farmer),
		big.NewInt(p.TotalNFTs),
		ToFixed(p.NftPrice),
		ToFixed(p.BuildCost),
		ToFixed(p.AnnualIncome),
		big.NewInt(p.InvestorShare),
		big.NewInt(p.InterestRate),
		big.NewInt(p.PremiumRate),
	)
	if err != nil {
		return nil, fmt.Errorf("createProject transaction failed: %w", err)
	}
	return tx, nil
}

// GetAllProjects 枚举已部署的项目地址。
// 合约端只追加，该序列的顺序与单调性是地址差集发现的正确性前提。
func (f *BankFactory) GetAllProjects(ctx context.Context) ([]string, error) {
	var out []interface{}
	if err := f.contract.Call(f.client.CallOpts(ctx), &out, "getAllProjects"); err != nil {
		return nil, fmt.Errorf("getAllProjects call failed: %w", err)
	}

	addrs, ok := out[0].([]common.Address)
	if !ok {
		return nil, fmt.Errorf("unexpected getAllProjects output type: %T", out[0])
	}

	result := make([]string, len(addrs))
	for i, a := range addrs {
		result[i] = a.Hex()
	}
	return result, nil
}

// GetFactoryBalance 查询工厂支付代币余额（人类可读单位）
func (f *BankFactory) GetFactoryBalance(ctx context.Context) (int64, error) {
	var out []interface{}
	if err := f.contract.Call(f.client.CallOpts(ctx), &out, "getFactoryBalance"); err != nil {
		return 0, fmt.Errorf("getFactoryBalance call failed: %w", err)
	}
	return FromFixed(out[0].(*big.Int)), nil
}

// DepositFunds 向工厂存入资金
func (f *BankFactory) DepositFunds(ctx context.Context, amount int64) (string, error) {
	auth, err := f.client.Auth(ctx)
	if err != nil {
		return "", err
	}

	tx, err := f.contract.Transact(auth, "depositFunds", ToFixed(amount))
	if err != nil {
		return "", fmt.Errorf("depositFunds transaction failed: %w", err)
	}
	return tx.Hash().Hex(), nil
}

// SetProjectStatus 设定项目链上状态 (1=正常, 2=仅提领, 3=全面停止)
func (f *BankFactory) SetProjectStatus(ctx context.Context, project string, status uint8) (string, error) {
	if !IsHexAddress(project) {
		return "", fmt.Errorf("invalid project address: %s", project)
	}

	auth, err := f.client.Auth(ctx)
	if err != nil {
		return "", err
	}

	tx, err := f.contract.Transact(auth, "setProjectStatus", common.HexToAddress(project), status)
	if err != nil {
		return "", fmt.Errorf("setProjectStatus transaction failed: %w", err)
	}
	return tx.Hash().Hex(), nil
}

// ProjectCreatedEvent 工厂部署事件
type ProjectCreatedEvent struct {
	Project     string
	Farmer      string
	Name        string
	BlockNumber uint64
	TxHash      string
}

// FilterProjectCreated 扫描区块区间内工厂发出的ProjectCreated事件
func (f *BankFactory) FilterProjectCreated(ctx context.Context, fromBlock, toBlock uint64) ([]ProjectCreatedEvent, error) {
	event, ok := f.abi.Events["ProjectCreated"]
	if !ok {
		return nil, fmt.Errorf("ProjectCreated event not found in factory ABI")
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: []common.Address{f.address},
		Topics:    [][]common.Hash{{event.ID}},
	}

	logs, err := f.client.Raw().FilterLogs(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to filter ProjectCreated logs: %w", err)
	}

	var events []ProjectCreatedEvent
	for _, lg := range logs {
		if len(lg.Topics) < 3 {
			continue
		}

		e := ProjectCreatedEvent{
			Project:     common.BytesToAddress(lg.Topics[1].Bytes()).Hex(),
			Farmer:      common.BytesToAddress(lg.Topics[2].Bytes()).Hex(),
			BlockNumber: lg.BlockNumber,
			TxHash:      lg.TxHash.Hex(),
		}
		if vals, err := event.Inputs.NonIndexed().Unpack(lg.Data); err == nil && len(vals) > 0 {
			if name, ok := vals[0].(string); ok {
				e.Name = name
			}
		}
		events = append(events, e)
	}
	return events, nil
}

// ParseProjectCreated 从交易回执解析新建项目地址。
// 事件解析是地址发现的首选路径，枚举差集仅作兜底。
func (f *BankFactory) ParseProjectCreated(receipt *types.Receipt) (string, bool) {
	event, ok := f.abi.Events["ProjectCreated"]
	if !ok {
		return "", false
	}

	for _, log := range receipt.Logs {
		if log.Address != f.address || len(log.Topics) < 2 {
			continue
		}
		if log.Topics[0] != event.ID {
			continue
		}
		return common.BytesToAddress(log.Topics[1].Bytes()).Hex(), true
	}
	return "", false
}
