package monitoring

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DetectionInput is everything a detector may inspect
type DetectionInput struct {
	Market   MarketData
	History  []MarketData // sorted ascending by timestamp
	Profile  MarketRiskProfile
	Trades   []Trade
	Settings AITradingSettings
}

// SignalDetector inspects market data and emits zero or more risk signals
type SignalDetector interface {
	Name() string
	Source() SignalSource
	Enabled(settings AITradingSettings) bool
	Detect(input DetectionInput) []RiskSignal
}

// DetectorRegistry is an ordered set of detectors run on every detection pass
type DetectorRegistry struct {
	detectors []SignalDetector
}

// NewDetectorRegistry creates a registry holding the given detectors in order
func NewDetectorRegistry(detectors ...SignalDetector) *DetectorRegistry {
	return &DetectorRegistry{detectors: detectors}
}

// DefaultRegistry returns the technical and volatility detectors plus the
// settings-gated extension points
func DefaultRegistry() *DetectorRegistry {
	return NewDetectorRegistry(
		TechnicalDetector{},
		VolatilityDetector{},
		NewFeedDetector("economic", SourceEconomic, func(s AITradingSettings) bool { return s.ConsiderEconomicData }),
		NewFeedDetector("earnings", SourceEarnings, func(s AITradingSettings) bool { return s.ConsiderEarningsEvents }),
		NewFeedDetector("fed_meeting", SourceFedMeeting, func(s AITradingSettings) bool { return s.ConsiderFedMeetings }),
		NewFeedDetector("geopolitical", SourceGeopolitical, func(s AITradingSettings) bool { return s.ConsiderGeopoliticalEvents }),
		NewFeedDetector("sentiment", SourceSentiment, func(s AITradingSettings) bool { return s.UseMarketSentiment }),
	)
}

// Register appends a detector to the registry
func (r *DetectorRegistry) Register(d SignalDetector) {
	r.detectors = append(r.detectors, d)
}

// Detectors returns the registered detectors in run order
func (r *DetectorRegistry) Detectors() []SignalDetector {
	out := make([]SignalDetector, len(r.detectors))
	copy(out, r.detectors)
	return out
}

// DetectSignals runs every enabled detector and concatenates their signals.
// The history is sorted before it reaches the detectors.
func (r *DetectorRegistry) DetectSignals(input DetectionInput) []RiskSignal {
	input.History = sortedHistory(input.History)

	signals := []RiskSignal{}
	for _, d := range r.detectors {
		if !d.Enabled(input.Settings) {
			continue
		}
		found := d.Detect(input)
		for i := range found {
			found[i].Confidence = clamp01(found[i].Confidence)
		}
		if len(found) > 0 {
			log.Debug().
				Str("detector", d.Name()).
				Int("signals", len(found)).
				Msg("Detector emitted signals")
		}
		signals = append(signals, found...)
	}
	return signals
}

// GroupKey is the source_direction key signals are grouped by
func GroupKey(source SignalSource, direction Direction) string {
	return fmt.Sprintf("%s_%s", source, direction)
}

// GroupSignals buckets signals by source and direction, preserving detection order
func GroupSignals(signals []RiskSignal) map[string][]RiskSignal {
	groups := make(map[string][]RiskSignal)
	for _, s := range signals {
		key := GroupKey(s.Source, s.Direction)
		groups[key] = append(groups[key], s)
	}
	return groups
}

func newSignal(input DetectionInput, source SignalSource, strength SignalStrength, direction Direction,
	confidence float64, description string, dataPoints map[string]float64) RiskSignal {
	ts := input.Market.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return RiskSignal{
		ID:          uuid.New().String(),
		Timestamp:   ts.UTC(),
		Source:      source,
		Condition:   input.Profile.CurrentCondition,
		Strength:    strength,
		Direction:   direction,
		Description: description,
		DataPoints:  dataPoints,
		Confidence:  clamp01(confidence),
	}
}

// TechnicalDetector emits RSI extremes, price/MA20 crossings and MA10/MA20 crosses
type TechnicalDetector struct{}

func (TechnicalDetector) Name() string { return "technical" }
func (TechnicalDetector) Source() SignalSource { return SourceTechnical }
func (TechnicalDetector) Enabled(settings AITradingSettings) bool { return true }

// Detect implements SignalDetector
func (d TechnicalDetector) Detect(input DetectionInput) []RiskSignal {
	var signals []RiskSignal

	history := closingPrices(input.History)
	series := append(append([]float64{}, history...), input.Market.Price)

	rsi := CalculateRSI(series, RSIPeriod)
	switch {
	case rsi >= 70:
		strength := StrengthModerate
		if rsi >= 80 {
			strength = StrengthStrong
		}
		signals = append(signals, newSignal(input, SourceTechnical, strength, DirectionBearish,
			math.Min(1, (rsi-70)/30+0.6),
			fmt.Sprintf("RSI overbought at %.1f", rsi),
			map[string]float64{"rsi": rsi}))
	case rsi <= 30:
		strength := StrengthModerate
		if rsi <= 20 {
			strength = StrengthStrong
		}
		signals = append(signals, newSignal(input, SourceTechnical, strength, DirectionBullish,
			math.Min(1, (30-rsi)/30+0.6),
			fmt.Sprintf("RSI oversold at %.1f", rsi),
			map[string]float64{"rsi": rsi}))
	}

	if len(history) < longMAPeriod {
		return signals
	}

	prevPrice := history[len(history)-1]
	prevMA10 := SMA(history, shortMAPeriod)
	prevMA20 := SMA(history, longMAPeriod)
	curMA10 := SMA(series, shortMAPeriod)
	curMA20 := SMA(series, longMAPeriod)
	price := input.Market.Price

	switch {
	case prevPrice <= prevMA20 && price > curMA20:
		signals = append(signals, newSignal(input, SourceTechnical, StrengthModerate, DirectionBullish, 0.7,
			fmt.Sprintf("Price crossed above 20-day MA (%.2f)", curMA20),
			map[string]float64{"price": price, "ma20": curMA20}))
	case prevPrice >= prevMA20 && price < curMA20:
		signals = append(signals, newSignal(input, SourceTechnical, StrengthModerate, DirectionBearish, 0.7,
			fmt.Sprintf("Price crossed below 20-day MA (%.2f)", curMA20),
			map[string]float64{"price": price, "ma20": curMA20}))
	}

	switch {
	case prevMA10 <= prevMA20 && curMA10 > curMA20:
		signals = append(signals, newSignal(input, SourceTechnical, StrengthStrong, DirectionBullish, 0.8,
			"Golden cross: 10-day MA crossed above 20-day MA",
			map[string]float64{"ma10": curMA10, "ma20": curMA20}))
	case prevMA10 >= prevMA20 && curMA10 < curMA20:
		signals = append(signals, newSignal(input, SourceTechnical, StrengthStrong, DirectionBearish, 0.8,
			"Death cross: 10-day MA crossed below 20-day MA",
			map[string]float64{"ma10": curMA10, "ma20": curMA20}))
	}

	return signals
}

// VolatilityDetector emits signals for VIX jumps and absolute VIX levels
type VolatilityDetector struct{}

func (VolatilityDetector) Name() string { return "volatility" }
func (VolatilityDetector) Source() SignalSource { return SourceVolatility }
func (VolatilityDetector) Enabled(settings AITradingSettings) bool { return true }

// Detect implements SignalDetector
func (d VolatilityDetector) Detect(input DetectionInput) []RiskSignal {
	var signals []RiskSignal
	vix := input.Market.VIX

	if n := len(input.History); n > 0 {
		prevVIX := input.History[n-1].VIX
		if prevVIX > 0 {
			change := (vix - prevVIX) / prevVIX
			points := map[string]float64{"vix": vix, "previousVix": prevVIX, "change": change}
			switch {
			case change >= 0.10:
				strength := StrengthModerate
				if change >= 0.20 {
					strength = StrengthStrong
				}
				signals = append(signals, newSignal(input, SourceVolatility, strength, DirectionBearish,
					math.Min(1, change+0.6),
					fmt.Sprintf("VIX jumped %.1f%% to %.2f", change*100, vix), points))
			case change <= -0.10:
				strength := StrengthModerate
				if change <= -0.20 {
					strength = StrengthStrong
				}
				signals = append(signals, newSignal(input, SourceVolatility, strength, DirectionBullish,
					math.Min(1, -change+0.6),
					fmt.Sprintf("VIX dropped %.1f%% to %.2f", -change*100, vix), points))
			}
		}
	}

	switch {
	case vix >= 40:
		signals = append(signals, newSignal(input, SourceVolatility, StrengthExtreme, DirectionBearish, 0.9,
			fmt.Sprintf("Extreme volatility: VIX at %.2f", vix), map[string]float64{"vix": vix}))
	case vix >= 30:
		signals = append(signals, newSignal(input, SourceVolatility, StrengthStrong, DirectionBearish, 0.8,
			fmt.Sprintf("High volatility: VIX at %.2f", vix), map[string]float64{"vix": vix}))
	case vix > 0 && vix <= 15:
		signals = append(signals, newSignal(input, SourceVolatility, StrengthModerate, DirectionBullish, 0.7,
			fmt.Sprintf("Low volatility: VIX at %.2f", vix), map[string]float64{"vix": vix}))
	}

	return signals
}

// FeedDetector is an extension point for detectors backed by external feeds
// (economic calendar, earnings, Fed meetings, geopolitical news, sentiment).
// Until a feed is attached it emits nothing.
type FeedDetector struct {
	name    string
	source  SignalSource
	enabled func(AITradingSettings) bool
	feed    func(DetectionInput) []RiskSignal
}

// NewFeedDetector creates a feed-backed detector gated by the given settings flag
func NewFeedDetector(name string, source SignalSource, enabled func(AITradingSettings) bool) *FeedDetector {
	return &FeedDetector{name: name, source: source, enabled: enabled}
}

// WithFeed attaches the function that turns feed data into signals
func (f *FeedDetector) WithFeed(feed func(DetectionInput) []RiskSignal) *FeedDetector {
	f.feed = feed
	return f
}

func (f *FeedDetector) Name() string { return f.name }
func (f *FeedDetector) Source() SignalSource { return f.source }

// Enabled implements SignalDetector
func (f *FeedDetector) Enabled(settings AITradingSettings) bool {
	if f.enabled == nil {
		return true
	}
	return f.enabled(settings)
}

// Detect implements SignalDetector
func (f *FeedDetector) Detect(input DetectionInput) []RiskSignal {
	if f.feed == nil {
		return nil
	}
	return f.feed(input)
}
