package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/alex124513/rwa-backend/internal/apperr"
	"github.com/alex124513/rwa-backend/internal/config"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client 链客户端，持有RPC连接与管理员私钥
type Client struct {
	eth           *ethclient.Client
	privateKey    *ecdsa.PrivateKey
	chainId       *big.Int
	confirmations int
	deployTimeout time.Duration
}

// Init 初始化链客户端
func Init(cfg config.ChainConfig) (*Client, error) {
	client, err := ethclient.Dial(cfg.RpcUrl)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ethereum client: %w", err)
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	timeout := time.Duration(cfg.DeployTimeout) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &Client{
		eth:           client,
		privateKey:    privateKey,
		chainId:       big.NewInt(cfg.ChainId),
		confirmations: cfg.Confirmations,
		deployTimeout: timeout,
	}, nil
}

// Raw 获取底层 ethclient
func (c *Client) Raw() *ethclient.Client {
	return c.eth
}

// AdminAddress 获取管理员账户地址
func (c *Client) AdminAddress() common.Address {
	return crypto.PubkeyToAddress(c.privateKey.PublicKey)
}

// Auth 获取交易授权
func (c *Client) Auth(ctx context.Context) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(c.privateKey, c.chainId)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}
	auth.Context = ctx
	return auth, nil
}

// CallOpts 获取只读调用选项
func (c *Client) CallOpts(ctx context.Context) *bind.CallOpts {
	return &bind.CallOpts{Context: ctx}
}

// WaitForReceipt 等待交易确认，超时返回 CHAIN_TIMEOUT。
// 超时后交易仍可能落块，调用方不得把超时当作"无副作用"。
func (c *Client) WaitForReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.deployTimeout)
	defer cancel()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(waitCtx, txHash)
		if err == nil && receipt != nil {
			if confirmed, err := c.isConfirmed(waitCtx, receipt); err == nil && confirmed {
				return receipt, nil
			}
		} else if err != nil && !errors.Is(err, ethereum.NotFound) {
			if waitCtx.Err() != nil {
				return nil, apperr.Wrap(apperr.KindChainTimeout, waitCtx.Err(),
					"transaction %s not confirmed within %s", txHash.Hex(), c.deployTimeout)
			}
			return nil, fmt.Errorf("failed to query receipt for %s: %w", txHash.Hex(), err)
		}

		select {
		case <-waitCtx.Done():
			return nil, apperr.Wrap(apperr.KindChainTimeout, waitCtx.Err(),
				"transaction %s not confirmed within %s", txHash.Hex(), c.deployTimeout)
		case <-ticker.C:
		}
	}
}

// isConfirmed 回执是否已达到配置的确认区块数
func (c *Client) isConfirmed(ctx context.Context, receipt *types.Receipt) (bool, error) {
	if c.confirmations <= 1 {
		return true, nil
	}
	header, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return false, err
	}
	return header.Number.Uint64()+1 >= receipt.BlockNumber.Uint64()+uint64(c.confirmations), nil
}
