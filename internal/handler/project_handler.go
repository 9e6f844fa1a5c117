package handler

import (
	"net/http"
	"strconv"

	"github.com/alex124513/rwa-backend/internal/apperr"
	"github.com/alex124513/rwa-backend/internal/chain"
	"github.com/alex124513/rwa-backend/internal/logger"
	"github.com/alex124513/rwa-backend/internal/logic"
	"github.com/alex124513/rwa-backend/internal/repository"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ProjectHandler 项目生命周期HTTP接口
type ProjectHandler struct {
	projectLogic   *logic.ProjectLogic
	reconcileLogic *logic.ReconcileLogic
	syncLogic      *logic.FundingSyncLogic
}

// NewProjectHandler 创建项目处理器
func NewProjectHandler(db *gorm.DB, gateway *chain.Gateway) *ProjectHandler {
	projectRepo := repository.NewProjectRepository(db)
	deploymentRepo := repository.NewDeploymentRepository(db)
	return &ProjectHandler{
		projectLogic:   logic.NewProjectLogic(projectRepo),
		reconcileLogic: logic.NewReconcileLogic(projectRepo, deploymentRepo, gateway),
		syncLogic:      logic.NewFundingSyncLogic(projectRepo, gateway),
	}
}

// Submit 提交新项目申请
// POST /api/v1/projects
func (h *ProjectHandler) Submit(c *gin.Context) {
	var params logic.SubmitParams
	if err := c.ShouldBindJSON(&params); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	project, err := h.projectLogic.Submit(params)
	if err != nil {
		FailWith(c, err)
		return
	}

	logger.Info("Project submitted: id=%d title=%s", project.Id, project.Title)
	SuccessResponse(c, http.StatusCreated, "Project submitted", ToProjectResponse(project, ViewFull))
}

// List 查询项目列表，支持募资状态过滤与投影模式
// GET /api/v1/projects?funding_status=OPENING&view=card
func (h *ProjectHandler) List(c *gin.Context) {
	projects, err := h.projectLogic.List(c.Query("funding_status"))
	if err != nil {
		FailWith(c, err)
		return
	}

	view := parseView(c.DefaultQuery("view", string(ViewCard)))
	SuccessResponse(c, http.StatusOK, "Projects retrieved", ToProjectResponseList(projects, view))
}

// Pending 查询待审核项目
// GET /api/v1/projects/pending
func (h *ProjectHandler) Pending(c *gin.Context) {
	projects, err := h.projectLogic.Pending()
	if err != nil {
		FailWith(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Pending projects retrieved", ToProjectResponseList(projects, ViewFull))
}

// Get 查询项目详情
// GET /api/v1/projects/:id
func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}

	project, err := h.projectLogic.Get(id)
	if err != nil {
		FailWith(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Project retrieved", ToProjectResponse(project, ViewFull))
}

// reviewRequest 审核请求：approve需要部署参数，reject可附理由
type reviewRequest struct {
	Action        string `json:"action"`
	AdminNotes    string `json:"adminNotes"`
	TotalNFTs     int64  `json:"totalNFTs"`
	NftPrice      int64  `json:"nftPrice"`
	FarmerAddress string `json:"farmerAddress"`
}

// Review 审核项目：通过并部署到链上，或拒绝
// POST /api/v1/projects/:id/review
func (h *ProjectHandler) Review(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	switch req.Action {
	case "approve":
		result, err := h.reconcileLogic.Approve(c.Request.Context(), id, logic.ApproveParams{
			TotalNFTs:     req.TotalNFTs,
			NftPrice:      req.NftPrice,
			FarmerAddress: req.FarmerAddress,
		})
		if err != nil {
			FailWith(c, err)
			return
		}
		SuccessResponse(c, http.StatusOK, "Project approved and deployed", result)
	case "reject":
		if err := h.reconcileLogic.Reject(id, req.AdminNotes); err != nil {
			FailWith(c, err)
			return
		}
		SuccessResponse(c, http.StatusOK, "Project rejected", gin.H{"projectId": id})
	default:
		ErrorResponse(c, http.StatusBadRequest, "action must be approve or reject")
	}
}

// Deploy 按记录自身存储的参数部署项目
// POST /api/v1/projects/:id/deploy
func (h *ProjectHandler) Deploy(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}

	result, err := h.reconcileLogic.DeployFromRecord(c.Request.Context(), id)
	if err != nil {
		FailWith(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Project deployed", result)
}

// Sync 同步项目链上募资指标
// POST /api/v1/projects/:id/sync
func (h *ProjectHandler) Sync(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}

	result, err := h.syncLogic.Sync(c.Request.Context(), id)
	if err != nil {
		FailWith(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Funding data synced", result)
}

// Schedule 按项目记录参数计算35年投资计算表
// GET /api/v1/projects/:id/schedule
func (h *ProjectHandler) Schedule(c *gin.Context) {
	id, ok := parseId(c)
	if !ok {
		return
	}

	rows, err := h.projectLogic.ScheduleFor(id)
	if err != nil {
		FailWith(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Schedule calculated", rows)
}

// Calculate 按自定义参数计算投资计算表
// POST /api/v1/calculator
func (h *ProjectHandler) Calculate(c *gin.Context) {
	var params logic.ScheduleParams
	if err := c.ShouldBindJSON(&params); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if params.BuildCost < 0 || params.AnnualIncome < 0 ||
		params.InvestorShare < 0 || params.InterestRate < 0 || params.PremiumRate < 0 {
		FailWith(c, apperr.New(apperr.KindValidation, "calculator parameters must be non-negative"))
		return
	}
	SuccessResponse(c, http.StatusOK, "Schedule calculated", logic.Schedule(params))
}

// parseId 解析路径中的项目ID，非法时直接写出400响应
func parseId(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		ErrorResponse(c, http.StatusBadRequest, "Invalid project id")
		return 0, false
	}
	return id, true
}
