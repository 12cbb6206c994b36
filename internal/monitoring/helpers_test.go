package monitoring

import (
	"time"
)

var baseTime = time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)

// dailySeries builds one MarketData per price, a day apart, oldest first
func dailySeries(prices []float64, vix float64) []MarketData {
	series := make([]MarketData, len(prices))
	for i, p := range prices {
		series[i] = MarketData{
			Price:     p,
			VIX:       vix,
			Timestamp: baseTime.AddDate(0, 0, i),
		}
	}
	return series
}

// snapshotAfter returns the market snapshot one day after the history
func snapshotAfter(history []MarketData, price, vix float64) MarketData {
	return MarketData{
		Price:     price,
		VIX:       vix,
		Timestamp: baseTime.AddDate(0, 0, len(history)),
	}
}

func constantPrices(n int, price float64) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = price
	}
	return prices
}

// alternatingPrices oscillates between base and base+1
func alternatingPrices(n int, base float64) []float64 {
	prices := make([]float64, n)
	for i := range prices {
		prices[i] = base + float64(i%2)
	}
	return prices
}

var expiry = time.Date(2024, 4, 19, 0, 0, 0, 0, time.UTC)

func activeTrade(id string, typ OptionType, entry, current float64, quantity int) Trade {
	return Trade{
		ID:             id,
		Type:           typ,
		StrikePrice:    100,
		ExpirationDate: expiry,
		EntryPrice:     entry,
		CurrentPrice:   current,
		TargetPrice:    current * 2,
		StopLoss:       entry / 2,
		Quantity:       quantity,
		Status:         TradeActive,
		OpenedAt:       baseTime,
	}
}

func closedTrade(id string, profit float64) Trade {
	closedAt := baseTime.AddDate(0, 0, 5)
	return Trade{
		ID:       id,
		Type:     OptionCall,
		Quantity: 1,
		Status:   TradeClosed,
		OpenedAt: baseTime,
		ClosedAt: &closedAt,
		Profit:   profit,
	}
}

func findSignals(signals []RiskSignal, source SignalSource, direction Direction, strength SignalStrength) []RiskSignal {
	var out []RiskSignal
	for _, s := range signals {
		if s.Source == source && s.Direction == direction && s.Strength == strength {
			out = append(out, s)
		}
	}
	return out
}

func findTrade(trades []Trade, id string) (Trade, bool) {
	for _, t := range trades {
		if t.ID == id {
			return t, true
		}
	}
	return Trade{}, false
}
