package monitoring

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
)

const (
	// MinAnalysisPoints is the history depth below which the analyzer reports a neutral profile
	MinAnalysisPoints = 10

	shortMAPeriod = 10
	longMAPeriod  = 20

	// volatileVIX is the VIX level at which the market is classified volatile
	volatileVIX = 25.0
	// vixCeiling maps VIX onto the [0,1] volatility level
	vixCeiling = 50.0
	// trendBand is the fraction of MA10 that counts as a full-strength trend move
	trendBand = 0.02

	highVolatilityLevel = 0.6
	momentumThreshold   = 0.05
)

// NeutralProfile is the profile reported when there is not enough history
func NeutralProfile() MarketRiskProfile {
	return MarketRiskProfile{
		CurrentCondition:     ConditionNeutral,
		VolatilityLevel:      0.5,
		SentimentScore:       0,
		MarketTrendStrength:  0.5,
		MarketTrendDirection: DirectionNeutral,
		KeyRiskFactors:       []RiskFactor{},
		CompositeRiskScore:   0.5,
	}
}

// CompositeRiskScore blends volatility, trend strength and sentiment magnitude into one [0,1] figure
func CompositeRiskScore(volatilityLevel, trendStrength, sentimentScore float64) float64 {
	return clamp01(0.4*volatilityLevel + 0.3*trendStrength + 0.3*math.Abs(sentimentScore))
}

// AnalyzeMarketConditions reduces the current snapshot and its history to a risk profile.
// History may arrive in any order; it is sorted by timestamp without touching the caller's slice.
func AnalyzeMarketConditions(current MarketData, history []MarketData) MarketRiskProfile {
	if len(history) < MinAnalysisPoints {
		log.Debug().
			Int("history_points", len(history)).
			Int("required", MinAnalysisPoints).
			Msg("Insufficient history, using neutral risk profile")
		return NeutralProfile()
	}

	prices := closingPrices(sortedHistory(history))

	ma10 := SMA(prices, shortMAPeriod)
	ma20 := ma10
	if len(prices) >= longMAPeriod {
		ma20 = SMA(prices, longMAPeriod)
	}

	direction := DirectionNeutral
	switch {
	case current.Price > ma10:
		direction = DirectionBullish
	case current.Price < ma10:
		direction = DirectionBearish
	}

	strength := 0.0
	if ma10 > 0 {
		strength = math.Min(1, math.Abs(current.Price-ma10)/(ma10*trendBand))
	}

	condition := ConditionNeutral
	switch {
	case current.VIX >= volatileVIX:
		condition = ConditionVolatile
	case direction == DirectionBullish && strength > 0.5:
		condition = ConditionBullish
	case direction == DirectionBearish && strength > 0.5:
		condition = ConditionBearish
	}

	volatilityLevel := clamp01(current.VIX / vixCeiling)

	// Coarse proxy until a real sentiment feed exists
	sentiment := 0.0
	switch direction {
	case DirectionBullish:
		sentiment = 0.5
	case DirectionBearish:
		sentiment = -0.5
	}

	factors := []RiskFactor{}
	if volatilityLevel > highVolatilityLevel {
		factors = append(factors, RiskFactor{
			Source:      SourceVolatility,
			Impact:      volatilityLevel,
			Description: fmt.Sprintf("Elevated volatility: VIX at %.2f", current.VIX),
		})
	}
	if ma20 > 0 {
		deviation := current.Price/ma20 - 1
		if math.Abs(deviation) > momentumThreshold {
			state := "overbought"
			if deviation < 0 {
				state = "oversold"
			}
			factors = append(factors, RiskFactor{
				Source:      SourceTechnical,
				Impact:      clamp01(math.Abs(deviation) * 10),
				Description: fmt.Sprintf("Price %.1f%% from 20-day average, market %s", deviation*100, state),
			})
		}
	}

	profile := MarketRiskProfile{
		CurrentCondition:     condition,
		VolatilityLevel:      volatilityLevel,
		SentimentScore:       sentiment,
		MarketTrendStrength:  strength,
		MarketTrendDirection: direction,
		KeyRiskFactors:       factors,
		CompositeRiskScore:   CompositeRiskScore(volatilityLevel, strength, sentiment),
	}

	log.Debug().
		Str("condition", string(profile.CurrentCondition)).
		Float64("ma10", ma10).
		Float64("ma20", ma20).
		Float64("volatility", profile.VolatilityLevel).
		Float64("composite_risk", profile.CompositeRiskScore).
		Msg("Market conditions analyzed")

	return profile
}
