package logic

import (
	"math"
	"math/rand"

	"github.com/alex124513/rwa-backend/internal/apperr"
	"github.com/alex124513/rwa-backend/internal/chain"
	"github.com/alex124513/rwa-backend/internal/model"
)

// ProjectLogic 项目提交与查询
type ProjectLogic struct {
	store ProjectStore
}

// NewProjectLogic 创建项目业务逻辑
func NewProjectLogic(store ProjectStore) *ProjectLogic {
	return &ProjectLogic{store: store}
}

// SubmitParams 农夫提交的项目申请
type SubmitParams struct {
	ProjectName      string  `json:"projectName"`
	CropType         string  `json:"cropType"`
	Location         string  `json:"location"`
	Area             float64 `json:"area"`
	Description      string  `json:"description"`
	StartDate        string  `json:"startDate"`
	EndDate          string  `json:"endDate"`
	ExpectedYield    float64 `json:"expectedYield"`
	UnitPrice        float64 `json:"unitPrice"`
	HasInsurance     bool    `json:"hasInsurance"`
	InsuranceCompany string  `json:"insuranceCompany"`
	Sustainability   string  `json:"sustainability"`
	CoverImage       string  `json:"coverImage"`

	// 投资假设参数
	InitCost        int64   `json:"initCost"`
	AnnualIncome    int64   `json:"annualIncome"`
	InvestorPercent float64 `json:"investorPercent"`
	Interest        float64 `json:"interest"`
	Premium         float64 `json:"premium"`

	FarmerId string `json:"farmer_id"`
}

// submitNftPrice 提交时自动推导的NFT单价（万）
const submitNftPrice = 10

// Submit 提交新项目进入审核队列
func (l *ProjectLogic) Submit(params SubmitParams) (*model.Project, error) {
	if params.ProjectName == "" || params.CropType == "" || params.Location == "" ||
		params.Description == "" || params.StartDate == "" || params.EndDate == "" {
		return nil, apperr.New(apperr.KindValidation, "missing required fields")
	}
	if params.InitCost <= 0 || params.AnnualIncome <= 0 || params.InvestorPercent <= 0 ||
		params.Interest <= 0 || params.Premium <= 0 {
		return nil, apperr.New(apperr.KindValidation,
			"missing investment parameters (initCost, annualIncome, investorPercent, interest, premium)")
	}
	if params.FarmerId != "" && !chain.IsHexAddress(params.FarmerId) {
		return nil, apperr.New(apperr.KindValidation,
			"invalid farmer_id format (must be 0x + 40 hex characters)")
	}

	// NFT参数自动推导：单价固定，数量向上取整保证覆盖建构费
	totalNft := int64(math.Ceil(float64(params.InitCost) / float64(submitNftPrice)))

	farmerId := params.FarmerId
	if farmerId == "" {
		farmerId = "farmer001"
	}

	project := &model.Project{
		Title:            params.ProjectName,
		Symbol:           genSymbol(),
		Description:      params.Description,
		CropName:         params.CropType,
		CropType:         params.CropType,
		Location:         params.Location,
		Area:             params.Area,
		StartDate:        params.StartDate,
		EndDate:          params.EndDate,
		ExpectedYield:    params.ExpectedYield,
		UnitPrice:        params.UnitPrice,
		HasInsurance:     params.HasInsurance,
		InsuranceCompany: params.InsuranceCompany,
		Sustainability:   params.Sustainability,
		CoverImage:       params.CoverImage,

		BuildCost:       params.InitCost,
		AnnualIncome:    params.AnnualIncome,
		InvestorShare:   params.InvestorPercent,
		InterestRate:    params.Interest,
		PremiumRate:     params.Premium,
		AnnualYieldRate: formatPercent1(params.Interest),

		TotalNft:     totalNft,
		NftPrice:     submitNftPrice,
		TargetAmount: totalNft * submitNftPrice,

		FarmerId: farmerId,
	}
	if err := project.ApplyStage(model.StagePendingReview); err != nil {
		return nil, err
	}

	if err := l.store.Create(project); err != nil {
		return nil, err
	}
	return project, nil
}

// Pending 查询所有待审核项目
func (l *ProjectLogic) Pending() ([]model.Project, error) {
	return l.store.FindPending()
}

// List 查询项目列表，可按募资状态过滤
func (l *ProjectLogic) List(fundingStatus string) ([]model.Project, error) {
	return l.store.List(fundingStatus)
}

// Get 查询项目详情
func (l *ProjectLogic) Get(id int64) (*model.Project, error) {
	return l.store.FindById(id)
}

// ScheduleFor 按记录存储的参数计算35年投资计算表
func (l *ProjectLogic) ScheduleFor(id int64) ([]YearRow, error) {
	project, err := l.store.FindById(id)
	if err != nil {
		return nil, err
	}
	return Schedule(ScheduleParams{
		BuildCost:     float64(project.BuildCost),
		AnnualIncome:  float64(project.AnnualIncome),
		InvestorShare: project.InvestorShare,
		InterestRate:  project.InterestRate,
		PremiumRate:   project.PremiumRate,
	}), nil
}

// genSymbol 随机生成三位英文代币符号
func genSymbol() string {
	const chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	symbol := make([]byte, 3)
	for i := range symbol {
		symbol[i] = chars[rand.Intn(len(chars))]
	}
	return string(symbol)
}
