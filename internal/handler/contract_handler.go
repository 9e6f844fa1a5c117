package handler

import (
	"net/http"

	"github.com/alex124513/rwa-backend/internal/chain"
	"github.com/alex124513/rwa-backend/internal/logger"
	"github.com/gin-gonic/gin"
)

// ContractHandler 链上合约管理接口：工厂资金、项目运维、支付代币
type ContractHandler struct {
	gateway *chain.Gateway
}

// NewContractHandler 创建合约处理器
func NewContractHandler(gateway *chain.Gateway) *ContractHandler {
	return &ContractHandler{gateway: gateway}
}

// FactoryProjects 枚举工厂已部署的项目地址
// GET /api/v1/contracts/factory/projects
func (h *ContractHandler) FactoryProjects(c *gin.Context) {
	addresses, err := h.gateway.ListProjectAddresses(c.Request.Context())
	if err != nil {
		FailWith(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Factory projects retrieved", gin.H{
		"factory_address": h.gateway.FactoryAddress(),
		"projects":        addresses,
		"count":           len(addresses),
	})
}

// FactoryBalance 查询工厂可用余额
// GET /api/v1/contracts/factory/balance
func (h *ContractHandler) FactoryBalance(c *gin.Context) {
	balance, err := h.gateway.FactoryBalance(c.Request.Context())
	if err != nil {
		FailWith(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Factory balance retrieved", gin.H{
		"factory_address": h.gateway.FactoryAddress(),
		"balance":         balance,
	})
}

type depositRequest struct {
	Amount int64 `json:"amount"`
}

// Deposit 向工厂存入营运资金
// POST /api/v1/contracts/factory/deposit
func (h *ContractHandler) Deposit(c *gin.Context) {
	var req depositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Amount <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "amount must be a positive integer")
		return
	}

	txHash, err := h.gateway.DepositFunds(c.Request.Context(), req.Amount)
	if err != nil {
		FailWith(c, err)
		return
	}
	logger.Info("Deposited %d to factory, tx %s", req.Amount, txHash)
	SuccessResponse(c, http.StatusOK, "Funds deposited", gin.H{"txHash": txHash})
}

type setStatusRequest struct {
	ProjectAddress string `json:"projectAddress"`
	Status         uint8  `json:"status"`
}

// SetStatus 设定项目链上状态（1=募资中 2=营运中 3=已结束）
// POST /api/v1/contracts/factory/status
func (h *ContractHandler) SetStatus(c *gin.Context) {
	var req setStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if !chain.IsHexAddress(req.ProjectAddress) {
		ErrorResponse(c, http.StatusBadRequest, "invalid projectAddress format")
		return
	}
	if req.Status < 1 || req.Status > 3 {
		ErrorResponse(c, http.StatusBadRequest, "status must be 1, 2 or 3")
		return
	}

	txHash, err := h.gateway.SetProjectStatus(c.Request.Context(), req.ProjectAddress, req.Status)
	if err != nil {
		FailWith(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Project status updated", gin.H{"txHash": txHash})
}

// ProjectData 读取项目合约链上全量数据
// GET /api/v1/contracts/projects/:address
func (h *ContractHandler) ProjectData(c *gin.Context) {
	address, ok := parseAddress(c)
	if !ok {
		return
	}

	data, err := h.gateway.ProjectData(c.Request.Context(), address)
	if err != nil {
		FailWith(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Project data retrieved", data)
}

type withdrawRequest struct {
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// Withdraw 从项目合约提领资金
// POST /api/v1/contracts/projects/:address/withdraw
func (h *ContractHandler) Withdraw(c *gin.Context) {
	address, ok := parseAddress(c)
	if !ok {
		return
	}

	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if !chain.IsHexAddress(req.To) {
		ErrorResponse(c, http.StatusBadRequest, "invalid to address format")
		return
	}
	if req.Amount <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "amount must be a positive integer")
		return
	}

	txHash, err := h.gateway.WithdrawFunds(c.Request.Context(), address, req.To, req.Amount)
	if err != nil {
		FailWith(c, err)
		return
	}
	logger.Info("Withdrew %d from project %s to %s, tx %s", req.Amount, address, req.To, txHash)
	SuccessResponse(c, http.StatusOK, "Funds withdrawn", gin.H{"txHash": txHash})
}

// Reset 重置项目NFT集合（测试环境运维用）
// POST /api/v1/contracts/projects/:address/reset
func (h *ContractHandler) Reset(c *gin.Context) {
	address, ok := parseAddress(c)
	if !ok {
		return
	}

	txHash, err := h.gateway.ResetNFTs(c.Request.Context(), address)
	if err != nil {
		FailWith(c, err)
		return
	}
	logger.Warn("Reset NFTs on project %s, tx %s", address, txHash)
	SuccessResponse(c, http.StatusOK, "NFTs reset", gin.H{"txHash": txHash})
}

// Settle 触发项目年度结算
// POST /api/v1/contracts/projects/:address/settle
func (h *ContractHandler) Settle(c *gin.Context) {
	address, ok := parseAddress(c)
	if !ok {
		return
	}

	txHash, err := h.gateway.TriggerSettlement(c.Request.Context(), address)
	if err != nil {
		FailWith(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Settlement triggered", gin.H{"txHash": txHash})
}

type mintRequest struct {
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// Mint 铸造支付代币到指定地址（测试环境发币）
// POST /api/v1/contracts/token/mint
func (h *ContractHandler) Mint(c *gin.Context) {
	var req mintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if !chain.IsHexAddress(req.To) {
		ErrorResponse(c, http.StatusBadRequest, "invalid to address format")
		return
	}
	if req.Amount <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "amount must be a positive integer")
		return
	}

	txHash, err := h.gateway.MintToken(c.Request.Context(), req.To, req.Amount)
	if err != nil {
		FailWith(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Token minted", gin.H{"txHash": txHash})
}

// TokenBalance 查询支付代币余额
// GET /api/v1/contracts/token/balance/:address
func (h *ContractHandler) TokenBalance(c *gin.Context) {
	address, ok := parseAddress(c)
	if !ok {
		return
	}

	balance, err := h.gateway.TokenBalance(c.Request.Context(), address)
	if err != nil {
		FailWith(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Token balance retrieved", gin.H{
		"address": address,
		"balance": balance,
	})
}

// parseAddress 解析路径中的合约地址，非法时直接写出400响应
func parseAddress(c *gin.Context) (string, bool) {
	address := c.Param("address")
	if !chain.IsHexAddress(address) {
		ErrorResponse(c, http.StatusBadRequest, "Invalid contract address")
		return "", false
	}
	return address, true
}
