package cryptofolio

import (
	"sort"

	"github.com/shopspring/decimal"
)

// CoinAggregate is the per-coin result of analyzing the transaction log.
type CoinAggregate struct {
	Coin string

	BuyQuantity  decimal.Decimal // total bought
	BuyAmount    decimal.Decimal // total JPY spent on buys
	SellQuantity decimal.Decimal // total sold
	SellAmount   decimal.Decimal // total JPY received on sells
	Fees         decimal.Decimal

	// AveragePurchaseRate is the quantity-weighted mean JPY rate over buys of
	// the current cost-basis cycle. Sells never change it; a position closed
	// to zero (or below) resets it for the next re-entry.
	AveragePurchaseRate decimal.Decimal

	RealizedProfit  decimal.Decimal
	HoldingQuantity decimal.Decimal // buys minus sells, signed
	HoldingCost     decimal.Decimal // holding quantity valued at the average purchase rate

	// Filled in by UpdateWithPrices. A coin without a known current price
	// keeps CurrentPrice == 0 and UnrealizedProfit == 0.
	CurrentPrice     float64
	CurrentValue     decimal.Decimal
	UnrealizedProfit decimal.Decimal
	TotalProfit      decimal.Decimal
}

// PortfolioStats aggregates the per-coin results.
type PortfolioStats struct {
	TotalInvestment  decimal.Decimal // JPY spent on buys, across coins
	TotalRealized    decimal.Decimal
	TotalFees        decimal.Decimal
	TotalHoldingCost decimal.Decimal

	TotalCurrentValue decimal.Decimal
	TotalUnrealized   decimal.Decimal
	TotalProfit       decimal.Decimal

	// Margins are percentages, defined as 0 when the investment is 0.
	RealizedMargin float64
	TotalMargin    float64

	ProfitableCoins int
	LosingCoins     int
	PricedCoins     int
}

// Portfolio is the result of analyzing a transaction log.
type Portfolio struct {
	Summary []CoinAggregate
	Stats   PortfolioStats
}

// Analyze aggregates a transaction log into per-coin holdings, weighted-average
// cost and realized profit.
//
// The running weighted-average computation is order sensitive, so Analyze
// sorts a copy of the input chronologically before processing. Order across
// coins does not matter; within a coin it does.
func Analyze(transactions []Transaction) *Portfolio {
	txs := make([]Transaction, len(transactions))
	copy(txs, transactions)
	SortTransactions(txs)

	type state struct {
		agg             *CoinAggregate
		cycleQuantity   decimal.Decimal // buys of the current cost-basis cycle
		weightedRateSum decimal.Decimal // Σ rate×quantity over those buys
	}

	states := make(map[string]*state)
	var order []string

	for _, tx := range txs {
		coin := NormalizeCoin(tx.Coin)
		st, ok := states[coin]
		if !ok {
			st = &state{agg: &CoinAggregate{Coin: coin}}
			states[coin] = st
			order = append(order, coin)
		}
		agg := st.agg
		agg.Fees = agg.Fees.Add(tx.Fee)

		switch tx.Side {
		case Buy:
			agg.BuyQuantity = agg.BuyQuantity.Add(tx.Quantity)
			agg.BuyAmount = agg.BuyAmount.Add(tx.Amount)
			st.cycleQuantity = st.cycleQuantity.Add(tx.Quantity)
			st.weightedRateSum = st.weightedRateSum.Add(tx.Rate.Mul(tx.Quantity))

		case Sell:
			agg.SellQuantity = agg.SellQuantity.Add(tx.Quantity)
			agg.SellAmount = agg.SellAmount.Add(tx.Amount)

			// Realized profit uses the average rate as of just before this
			// sell: buys strictly earlier in processing order.
			var avg decimal.Decimal
			if st.cycleQuantity.IsPositive() {
				avg = st.weightedRateSum.Div(st.cycleQuantity)
			}
			agg.RealizedProfit = agg.RealizedProfit.Add(tx.Amount.Sub(tx.Quantity.Mul(avg)))

			// A position closed to zero (or oversold) resets the cost basis
			// for a later re-entry.
			holding := agg.BuyQuantity.Sub(agg.SellQuantity)
			if !holding.IsPositive() {
				st.cycleQuantity = decimal.Zero
				st.weightedRateSum = decimal.Zero
			}
		}
	}

	p := &Portfolio{}
	for _, coin := range order {
		st := states[coin]
		agg := st.agg

		if st.cycleQuantity.IsPositive() {
			agg.AveragePurchaseRate = st.weightedRateSum.Div(st.cycleQuantity)
		}
		agg.HoldingQuantity = agg.BuyQuantity.Sub(agg.SellQuantity)
		if agg.HoldingQuantity.IsPositive() {
			agg.HoldingCost = agg.HoldingQuantity.Mul(agg.AveragePurchaseRate)
		}

		p.Stats.TotalInvestment = p.Stats.TotalInvestment.Add(agg.BuyAmount)
		p.Stats.TotalRealized = p.Stats.TotalRealized.Add(agg.RealizedProfit)
		p.Stats.TotalFees = p.Stats.TotalFees.Add(agg.Fees)
		p.Stats.TotalHoldingCost = p.Stats.TotalHoldingCost.Add(agg.HoldingCost)

		p.Summary = append(p.Summary, *agg)
	}

	sort.Slice(p.Summary, func(i, j int) bool { return p.Summary[i].Coin < p.Summary[j].Coin })

	p.Stats.RealizedMargin = margin(p.Stats.TotalRealized, p.Stats.TotalInvestment)
	return p
}

// UpdateWithPrices fills current value, unrealized and total profit for every
// coin with a known current price, and rolls them up into the portfolio stats.
func (p *Portfolio) UpdateWithPrices(prices map[string]float64) {
	p.Stats.TotalCurrentValue = decimal.Zero
	p.Stats.TotalUnrealized = decimal.Zero
	p.Stats.ProfitableCoins = 0
	p.Stats.LosingCoins = 0
	p.Stats.PricedCoins = 0

	for i := range p.Summary {
		agg := &p.Summary[i]

		price, ok := prices[NormalizeCoin(agg.Coin)]
		if !ok {
			agg.CurrentPrice = 0
			agg.CurrentValue = decimal.Zero
			agg.UnrealizedProfit = decimal.Zero
			agg.TotalProfit = agg.RealizedProfit
		} else {
			agg.CurrentPrice = price
			agg.CurrentValue = agg.HoldingQuantity.Mul(decimal.NewFromFloat(price))
			agg.UnrealizedProfit = agg.CurrentValue.Sub(agg.HoldingCost)
			agg.TotalProfit = agg.RealizedProfit.Add(agg.UnrealizedProfit)
			p.Stats.PricedCoins++
			p.Stats.TotalCurrentValue = p.Stats.TotalCurrentValue.Add(agg.CurrentValue)
			p.Stats.TotalUnrealized = p.Stats.TotalUnrealized.Add(agg.UnrealizedProfit)
		}

		if agg.TotalProfit.IsPositive() {
			p.Stats.ProfitableCoins++
		} else if agg.TotalProfit.IsNegative() {
			p.Stats.LosingCoins++
		}
	}

	p.Stats.TotalProfit = p.Stats.TotalRealized.Add(p.Stats.TotalUnrealized)
	p.Stats.TotalMargin = margin(p.Stats.TotalProfit, p.Stats.TotalInvestment)
}

// margin returns profit over investment as a percentage, 0 when investment is 0.
func margin(profit, investment decimal.Decimal) float64 {
	if investment.IsZero() {
		return 0
	}
	f, _ := profit.Div(investment).Float64()
	return f * 100
}
