package monitoring

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ApplyActions executes each action against a copy of the trades and returns the
// resulting collection. Only active trades listed in an action's TradeIDs change;
// new trades (split-off closed lots, hedges) are appended after the originals.
func ApplyActions(actions []RiskAction, trades []Trade, options []OptionContract, settings AITradingSettings) []Trade {
	out := make([]Trade, len(trades))
	copy(out, trades)

	index := make(map[string]int, len(out))
	for i, t := range out {
		index[t.ID] = i
	}

	now := time.Now().UTC()

	for _, action := range actions {
		for _, id := range action.TradeIDs {
			i, ok := index[id]
			if !ok || !out[i].IsActive() {
				continue
			}

			switch action.ActionType {
			case ActionReducePositionSize:
				if closed, ok := reducePosition(&out[i], reduceParamsOf(action), now); ok {
					out = append(out, closed)
				}
			case ActionIncreasePositionSize:
				increasePosition(&out[i], increaseParamsOf(action))
			case ActionExitTrade:
				closeTrade(&out[i], now)
			case ActionHedgePosition:
				if hedge, ok := hedgePosition(out[i], options, hedgeParamsOf(action), settings, now); ok {
					out = append(out, hedge)
					index[hedge.ID] = len(out) - 1
				} else {
					log.Debug().
						Str("trade_id", id).
						Msg("No matching option for hedge, skipping")
				}
			case ActionAdjustStopLoss:
				adjustStopLoss(&out[i], stopParamsOf(action))
			case ActionAdjustTakeProfit:
				adjustTakeProfit(&out[i], takeProfitParamsOf(action))
			case ActionConvertToSpread, ActionNoAction:
				// Spread conversion needs a second leg selection that is not modelled yet
			}
		}
	}

	log.Debug().
		Int("actions", len(actions)).
		Int("trades_in", len(trades)).
		Int("trades_out", len(out)).
		Msg("Risk actions applied")

	return out
}

// realizedProfit returns the profit over quantity contracts and the percentage move
func realizedProfit(t Trade, quantity int) (float64, float64) {
	current := decimal.NewFromFloat(t.CurrentPrice)
	entry := decimal.NewFromFloat(t.EntryPrice)
	move := current.Sub(entry)

	profit := move.Mul(decimal.NewFromInt(int64(quantity))).
		Mul(decimal.NewFromInt(ContractMultiplier)).
		Round(2)

	pct := decimal.Zero
	if entry.IsPositive() {
		pct = move.Div(entry).Mul(decimal.NewFromInt(100)).Round(2)
	}

	return profit.InexactFloat64(), pct.InexactFloat64()
}

func closeTrade(t *Trade, now time.Time) {
	closedAt := now
	t.Status = TradeClosed
	t.ClosedAt = &closedAt
	t.Profit, t.ProfitPercentage = realizedProfit(*t, t.Quantity)
}

// reducePosition splits off a closed lot. The two trades' quantities always sum to
// the original; a single-contract trade is closed outright.
func reducePosition(t *Trade, p reduceParams, now time.Time) (Trade, bool) {
	if t.Quantity <= 1 {
		closeTrade(t, now)
		return Trade{}, false
	}

	removed := int(math.Floor(float64(t.Quantity) * p.ReductionFactor))
	if removed < 1 {
		removed = 1
	}
	if removed > t.Quantity-1 {
		removed = t.Quantity - 1
	}

	closedAt := now
	closed := *t
	closed.ID = uuid.New().String()
	closed.Quantity = removed
	closed.Status = TradeClosed
	closed.ClosedAt = &closedAt
	closed.Profit, closed.ProfitPercentage = realizedProfit(*t, removed)

	t.Quantity -= removed

	return closed, true
}

func increasePosition(t *Trade, p increaseParams) {
	t.Quantity += int(math.Floor(float64(t.Quantity) * (p.IncreaseFactor - 1)))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// hedgePosition opens an opposite-side position on the nearest strike with the same expiration
func hedgePosition(t Trade, options []OptionContract, p hedgeParams, settings AITradingSettings, now time.Time) (Trade, bool) {
	want := t.Type.Opposite()

	var best *OptionContract
	bestDistance := math.Inf(1)
	for i := range options {
		o := &options[i]
		if o.Type != want || !sameDay(o.ExpirationDate, t.ExpirationDate) {
			continue
		}
		if d := math.Abs(o.StrikePrice - t.StrikePrice); d < bestDistance {
			best = o
			bestDistance = d
		}
	}
	if best == nil {
		return Trade{}, false
	}

	quantity := int(math.Floor(float64(t.Quantity) * p.HedgeRatio))
	if quantity < 1 {
		quantity = 1
	}

	stopPct := settings.DefaultStopLossPct
	if stopPct <= 0 || stopPct >= 1 {
		stopPct = DefaultSettings().DefaultStopLossPct
	}
	targetPct := settings.DefaultTakeProfitPct
	if targetPct <= 0 {
		targetPct = DefaultSettings().DefaultTakeProfitPct
	}

	return Trade{
		ID:              uuid.New().String(),
		Type:            best.Type,
		StrikePrice:     best.StrikePrice,
		ExpirationDate:  best.ExpirationDate,
		EntryPrice:      best.Premium,
		CurrentPrice:    best.Premium,
		TargetPrice:     best.Premium * (1 + targetPct),
		StopLoss:        best.Premium * (1 - stopPct),
		Quantity:        quantity,
		Status:          TradeActive,
		OpenedAt:        now,
		ConfidenceScore: t.ConfidenceScore,
	}, true
}

// adjustStopLoss narrows the stop gap when the signal runs against the trade
func adjustStopLoss(t *Trade, p boundParams) {
	adverse := (t.Type == OptionCall && p.Direction == DirectionBearish) ||
		(t.Type == OptionPut && p.Direction == DirectionBullish)
	if !adverse {
		return
	}
	t.StopLoss = t.CurrentPrice - (t.CurrentPrice-t.StopLoss)*p.AdjustmentFactor
}

// adjustTakeProfit narrows the target gap on profitable trades the signal favours
func adjustTakeProfit(t *Trade, p boundParams) {
	favorable := (t.Type == OptionCall && p.Direction == DirectionBullish) ||
		(t.Type == OptionPut && p.Direction == DirectionBearish)
	if !favorable || !t.IsProfitable() {
		return
	}
	t.TargetPrice = t.CurrentPrice + (t.TargetPrice-t.CurrentPrice)*p.AdjustmentFactor
}
