package model

import (
	"time"
)

// ChainStatus 链上部署状态
type ChainStatus string

const (
	ChainStatusPending ChainStatus = "PENDING" // 待部署
	ChainStatusActive  ChainStatus = "ACTIVE"  // 已部署
)

// FundingStatus 募资状态
type FundingStatus string

const (
	FundingStatusComingSoon FundingStatus = "COMING_SOON" // 即将推出
	FundingStatusOpening    FundingStatus = "OPENING"     // 募资中
	FundingStatusClosed     FundingStatus = "CLOSED"      // 已结束
)

// Project 农业众筹项目模型
//
// admin_agree / status_on_chain / funding_status / contract_address 等
// 字段名是对外存储契约的一部分，不可改名。
type Project struct {
	Id        int64     `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// 基本信息
	Title       string `json:"title" gorm:"not null" binding:"required"`
	Symbol      string `json:"symbol"`
	Description string `json:"description" gorm:"type:text"`
	CropName    string `json:"crop_name"`
	CropType    string `json:"crop_type"`
	Location    string `json:"location"`
	Area        float64 `json:"area"`
	CoverImage  string `json:"cover_image"`

	// 时间信息
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`

	// 产量与价格
	ExpectedYield float64 `json:"expected_yield"`
	UnitPrice     float64 `json:"unit_price"`

	// 保险信息
	HasInsurance     bool   `json:"has_insurance"`
	InsuranceCompany string `json:"insurance_company"`

	// 永续性说明
	Sustainability string `json:"sustainability"`

	// 投资假设参数（万为单位，AmortizationCalculator 的全部输入）
	BuildCost       int64   `json:"build_cost"`
	AnnualIncome    int64   `json:"annual_income"`
	InvestorShare   float64 `json:"investor_share"`
	InterestRate    float64 `json:"interest_rate"`
	PremiumRate     float64 `json:"premium_rate"`
	AnnualYieldRate string  `json:"annual_yield_rate"`

	// NFT 参数
	TotalNft int64 `json:"total_nft"`
	NftPrice int64 `json:"nft_price"`

	// 募资指标（链上同步）
	TargetAmount int64 `json:"target_amount"`
	FundedAmount int64 `json:"funded_amount"`
	FundedNft    int64 `json:"funded_nft"`
	MintedNft    int64 `json:"minted_nft"`

	// 审核与部署状态
	AdminAgree    bool          `json:"admin_agree"`
	StatusOnChain ChainStatus   `json:"status_on_chain" gorm:"default:'PENDING'"`
	FundingStatus FundingStatus `json:"funding_status" gorm:"default:'COMING_SOON'"`
	StatusDisplay string        `json:"status_display"`
	AdminNotes    string        `json:"admin_notes"`

	// 农夫信息
	FarmerId      string `json:"farmer_id"`
	FarmerAddress string `json:"farmer_address"`

	// 链上信息（部署后填入，contract_address 一旦非空不再变更）
	ContractAddress     string     `json:"contract_address"`
	FactoryAddress      string     `json:"factory_address"`
	PaymentTokenAddress string     `json:"payment_token_address"`
	DeploymentTxHash    string     `json:"deployment_tx_hash"`
	DeployedAt          *time.Time `json:"deployed_at"`
}

// TableName 自定义表名
func (Project) TableName() string {
	return "project"
}

// Deployed 是否已部署上链
func (p *Project) Deployed() bool {
	return p.ContractAddress != ""
}
