package finance

import "github.com/shopspring/decimal"

// WaterfallInput 退出收益分配的输入. 负数输入按 0 处理.
type WaterfallInput struct {
	Proceeds      decimal.Decimal
	DebtPrincipal decimal.Decimal
	DebtInterest  decimal.Decimal // 累计未付利息
	Equity        decimal.Decimal
	ProfitSplit   decimal.Decimal // 超额收益中归属投资方 / 发起人的比例，其余为管理人 carry
}

// Allocation 分层分配结果. 各层金额均非负，合计等于输入收益.
type Allocation struct {
	DebtInterest  decimal.Decimal `json:"debt_interest"`
	DebtPrincipal decimal.Decimal `json:"debt_principal"`
	EquityReturn  decimal.Decimal `json:"equity_return"`
	ProfitShare   decimal.Decimal `json:"profit_share"`
	Carry         decimal.Decimal `json:"carry"`
}

// ToDebt 债权人所得 (利息 + 本金).
func (a Allocation) ToDebt() decimal.Decimal { return a.DebtInterest.Add(a.DebtPrincipal) }

// ToSponsor 发起人所得 (股本返还 + 超额分成).
func (a Allocation) ToSponsor() decimal.Decimal { return a.EquityReturn.Add(a.ProfitShare) }

// ToManager 管理人所得.
func (a Allocation) ToManager() decimal.Decimal { return a.Carry }

// Total 三方合计.
func (a Allocation) Total() decimal.Decimal {
	return a.ToDebt().Add(a.ToSponsor()).Add(a.ToManager())
}

// Allocate 按严格优先级分配退出收益：
// 先偿还债权 (欠息优先于本金)，再返还股本，剩余按 ProfitSplit 拆分.
// 每一层只消耗前一层剩下的部分，任何一层都不会为负.
func Allocate(in WaterfallInput) Allocation {
	remaining := nonNegative(in.Proceeds)
	take := func(claim decimal.Decimal) decimal.Decimal {
		paid := decimal.Min(remaining, nonNegative(claim))
		remaining = remaining.Sub(paid)
		return paid
	}

	var out Allocation
	out.DebtInterest = take(in.DebtInterest)
	out.DebtPrincipal = take(in.DebtPrincipal)
	out.EquityReturn = take(in.Equity)

	split := decimal.Min(nonNegative(in.ProfitSplit), decimal.NewFromInt(1))
	out.ProfitShare = remaining.Mul(split)
	// carry 取差额，保证合计精确等于收益.
	out.Carry = remaining.Sub(out.ProfitShare)
	return out
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
