package monitoring

import (
	"sort"

	"github.com/cinar/indicator/v2/trend"
	"github.com/rs/zerolog/log"
)

// RSIPeriod is the number of daily changes the simplified RSI averages over
const RSIPeriod = 14

// neutralRSI is reported when there is not enough movement to compute a value
const neutralRSI = 50.0

// SMA returns the simple moving average of the last period prices. When fewer
// than period prices are available it averages all of them; an empty series is 0.
func SMA(prices []float64, period int) float64 {
	if len(prices) == 0 || period <= 0 {
		return 0
	}
	if period > len(prices) {
		period = len(prices)
	}

	// Convert slice to channel
	pricesChan := make(chan float64, len(prices))
	for _, p := range prices {
		pricesChan <- p
	}
	close(pricesChan)

	smaIndicator := trend.NewSmaWithPeriod[float64](period)
	smaChan := smaIndicator.Compute(pricesChan)

	var last float64
	count := 0
	for val := range smaChan {
		last = val
		count++
	}

	if count == 0 {
		log.Debug().
			Int("prices_count", len(prices)).
			Int("period", period).
			Msg("SMA produced no values")
		return 0
	}

	return last
}

// CalculateRSI computes a simplified RSI: the plain average gain over the plain
// average loss of the last period changes. It needs period+1 prices, otherwise
// it reports 50. If there were gains but no losses the RSI is 100; a series
// with neither gains nor losses reports 50.
func CalculateRSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return neutralRSI
	}

	window := prices[len(prices)-(period+1):]
	var gains, losses float64
	for i := 1; i < len(window); i++ {
		change := window[i] - window[i-1]
		if change > 0 {
			gains += change
		} else {
			losses -= change
		}
	}

	avgGain := gains / float64(period)
	avgLoss := losses / float64(period)

	if avgLoss == 0 {
		if avgGain == 0 {
			return neutralRSI
		}
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// sortedHistory returns a copy of history ordered by timestamp ascending
func sortedHistory(history []MarketData) []MarketData {
	sorted := make([]MarketData, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

func closingPrices(history []MarketData) []float64 {
	prices := make([]float64, len(history))
	for i, d := range history {
		prices[i] = d.Price
	}
	return prices
}
