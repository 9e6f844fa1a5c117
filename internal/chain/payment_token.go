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

// TWDT 支付代币ABI（最小必要）
const paymentTokenABI = `[
	{
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "mint",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// PaymentToken 支付代币合约包装器
type PaymentToken struct {
	client   *Client
	address  common.Address
	contract *bind.BoundContract
}

// NewPaymentToken 创建支付代币合约实例
func NewPaymentToken(client *Client, address string) (*PaymentToken, error) {
	if !IsHexAddress(address) {
		return nil, fmt.Errorf("invalid payment token address: %s", address)
	}

	parsedABI, err := abi.JSON(strings.NewReader(paymentTokenABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token ABI: %w", err)
	}

	contractAddr := common.HexToAddress(address)
	contract := bind.NewBoundContract(contractAddr, parsedABI, client.Raw(), client.Raw(), client.Raw())

	return &PaymentToken{
		client:   client,
		address:  contractAddr,
		contract: contract,
	}, nil
}

// Address 代币合约地址
func (t *PaymentToken) Address() string {
	return t.address.Hex()
}

// Mint 铸造支付代币
func (t *PaymentToken) Mint(ctx context.Context, to string, amount int64) (string, error) {
	if !IsHexAddress(to) {
		return "", fmt.Errorf("invalid mint target address: %s", to)
	}

	auth, err := t.client.Auth(ctx)
	if err != nil {
		return "", err
	}

	tx, err := t.contract.Transact(auth, "mint", common.HexToAddress(to), ToFixed(amount))
	if err != nil {
		return "", fmt.Errorf("mint transaction failed: %w", err)
	}
	return tx.Hash().Hex(), nil
}

// BalanceOf 查询账户余额（人类可读单位）
func (t *PaymentToken) BalanceOf(ctx context.Context, account string) (int64, error) {
	if !IsHexAddress(account) {
		return 0, fmt.Errorf("invalid account address: %s", account)
	}

	var out []interface{}
	if err := t.contract.Call(t.client.CallOpts(ctx), &out, "balanceOf", common.HexToAddress(account)); err != nil {
		return 0, fmt.Errorf("balanceOf call failed: %w", err)
	}
	return FromFixed(out[0].(*big.Int)), nil
}
