package logic

import (
	"math"
	"strconv"
)

// ScheduleYears 计算表覆盖的年数（第0年到第34年）
const ScheduleYears = 35

// YearRow 年度计算结果行。字段名与既有前端消费的JSON保持一致。
// 第0年不存在收益期，三个收益展示字段置空。
type YearRow struct {
	Year                   int    `json:"year"`
	InvestorIncome         int64  `json:"investor_income"`
	CumulativePrincipal    int64  `json:"cumulative_principal"`
	RemainingPrincipal     int64  `json:"remaining_principal"`
	RemainingWithInterest  int64  `json:"remaining_with_interest"`
	BuybackPrice           int64  `json:"buyback_price"`
	TotalBuybackIncome     string `json:"total_buyback_income"`
	YieldNoBuyback         string `json:"yield_no_buyback"`
	TotalReturnWithBuyback string `json:"total_return_with_buyback"`
}

// ScheduleParams 投资假设参数（金额单位：万，比率单位：%）
type ScheduleParams struct {
	BuildCost     float64 `json:"initCost" binding:"min=0"`
	AnnualIncome  float64 `json:"annualIncome" binding:"min=0"`
	InvestorShare float64 `json:"investorPercent" binding:"min=0"`
	InterestRate  float64 `json:"interest" binding:"min=0"`
	PremiumRate   float64 `json:"premium" binding:"min=0"`
}

// Schedule 计算35年投资人分期买回计算表。
//
// 纯函数。递推在精确浮点值上进行，四舍五入只作用于各行的
// 展示字段，绝不回流进下一年的计算。
func Schedule(p ScheduleParams) []YearRow {
	investorShareRate := p.InvestorShare / 100
	interestRate := p.InterestRate / 100
	premiumRate := p.PremiumRate / 100

	// 投资人分成 = 每年营业额 × 投资人收益分成%（四舍五入）
	annualPayment := math.Round(p.AnnualIncome * investorShareRate)

	// 殖利率-不买回 = 投资人分成 / 建构费，全表固定
	yieldNoBuyback := 0.0
	if p.BuildCost > 0 {
		yieldNoBuyback = annualPayment / p.BuildCost
	}
	yieldDisplay := formatPercent1(yieldNoBuyback * 100)

	rows := make([]YearRow, 0, ScheduleYears)

	var cumulative float64
	// 前一年的精确值，供下一年递推
	lastRemainingWithInterest := p.BuildCost * (1 + interestRate)

	for year := 0; year < ScheduleYears; year++ {
		row := YearRow{Year: year}

		var remainingPrincipal, remainingWithInterest, buybackPrice float64

		if year == 0 {
			remainingPrincipal = p.BuildCost
			remainingWithInterest = lastRemainingWithInterest
			buybackPrice = remainingPrincipal * (1 + premiumRate)
		} else {
			row.InvestorIncome = int64(annualPayment)
			cumulative += annualPayment

			// 当年本金 = 前一年利后本金 − 当年支付，不允许为负
			remainingPrincipal = lastRemainingWithInterest - annualPayment
			if remainingPrincipal < 0 {
				remainingPrincipal = 0
			}
			remainingWithInterest = remainingPrincipal * (1 + interestRate)
			buybackPrice = remainingPrincipal * (1 + premiumRate)

			totalBuybackIncome := cumulative + buybackPrice
			totalReturn := 0.0
			if p.BuildCost > 0 {
				totalReturn = totalBuybackIncome/p.BuildCost - 1
			}

			row.TotalBuybackIncome = strconv.FormatInt(int64(math.Round(totalBuybackIncome)), 10)
			row.YieldNoBuyback = yieldDisplay
			row.TotalReturnWithBuyback = strconv.FormatInt(int64(math.Round(totalReturn*100)), 10) + "%"
		}

		row.CumulativePrincipal = int64(cumulative)
		row.RemainingPrincipal = int64(math.Round(remainingPrincipal))
		row.RemainingWithInterest = int64(math.Round(remainingWithInterest))
		row.BuybackPrice = int64(math.Round(buybackPrice))
		rows = append(rows, row)

		lastRemainingWithInterest = remainingWithInterest
	}

	return rows
}

// formatPercent1 百分比保留一位小数后缀%
func formatPercent1(v float64) string {
	rounded := math.Round(v*10) / 10
	return strconv.FormatFloat(rounded, 'f', -1, 64) + "%"
}
