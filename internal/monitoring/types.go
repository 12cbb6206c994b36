// Package monitoring implements the risk-monitoring pipeline: market condition
// analysis, signal detection, action determination, action application and
// outcome learning, tied together by an append-only monitoring log.
package monitoring

import (
	"time"
)

// MarketCondition is the broad market state in effect when a signal is detected
type MarketCondition string

const (
	ConditionBullish  MarketCondition = "bullish"
	ConditionBearish  MarketCondition = "bearish"
	ConditionNeutral  MarketCondition = "neutral"
	ConditionVolatile MarketCondition = "volatile"
)

// SignalSource identifies which detector produced a signal
type SignalSource string

const (
	SourceTechnical    SignalSource = "technical"
	SourceVolatility   SignalSource = "volatility"
	SourceEconomic     SignalSource = "economic"
	SourceEarnings     SignalSource = "earnings"
	SourceFedMeeting   SignalSource = "fed_meeting"
	SourceGeopolitical SignalSource = "geopolitical"
	SourceSentiment    SignalSource = "sentiment"
)

// SignalStrength grades how forceful a signal is
type SignalStrength string

const (
	StrengthWeak     SignalStrength = "weak"
	StrengthModerate SignalStrength = "moderate"
	StrengthStrong   SignalStrength = "strong"
	StrengthExtreme  SignalStrength = "extreme"
)

// Direction is the market direction a signal points to
type Direction string

const (
	DirectionBullish Direction = "bullish"
	DirectionBearish Direction = "bearish"
	DirectionNeutral Direction = "neutral"
)

// ActionType enumerates the portfolio adjustments the pipeline can recommend
type ActionType string

const (
	ActionReducePositionSize   ActionType = "reduce_position_size"
	ActionIncreasePositionSize ActionType = "increase_position_size"
	ActionExitTrade            ActionType = "exit_trade"
	ActionHedgePosition        ActionType = "hedge_position"
	ActionAdjustStopLoss       ActionType = "adjust_stop_loss"
	ActionAdjustTakeProfit     ActionType = "adjust_take_profit"
	ActionConvertToSpread      ActionType = "convert_to_spread"
	ActionNoAction             ActionType = "no_action"
)

// IsRiskReducing reports whether the action type is expected to lower portfolio risk
func (a ActionType) IsRiskReducing() bool {
	switch a {
	case ActionReducePositionSize, ActionExitTrade, ActionHedgePosition,
		ActionAdjustStopLoss, ActionAdjustTakeProfit, ActionConvertToSpread:
		return true
	default:
		return false
	}
}

// RiskToleranceType is the user-configured aggressiveness level
type RiskToleranceType string

const (
	ToleranceConservative RiskToleranceType = "conservative"
	ToleranceModerate     RiskToleranceType = "moderate"
	ToleranceAggressive   RiskToleranceType = "aggressive"
)

// Valid reports whether the tolerance is one of the known levels
func (r RiskToleranceType) Valid() bool {
	switch r {
	case ToleranceConservative, ToleranceModerate, ToleranceAggressive:
		return true
	}
	return false
}

// OptionType is the contract side of an option
type OptionType string

const (
	OptionCall OptionType = "CALL"
	OptionPut  OptionType = "PUT"
)

// Opposite returns the other contract side
func (o OptionType) Opposite() OptionType {
	if o == OptionCall {
		return OptionPut
	}
	return OptionCall
}

// TradeStatus is the lifecycle state of a trade
type TradeStatus string

const (
	TradeActive TradeStatus = "active"
	TradeClosed TradeStatus = "closed"
)

// ContractMultiplier is the number of underlying units one option contract covers
const ContractMultiplier = 100

// MarketData is one market snapshot for the underlying
type MarketData struct {
	Price         float64   `json:"price" yaml:"price"`
	Change        float64   `json:"change" yaml:"change"`
	Volume        float64   `json:"volume" yaml:"volume"`
	High          float64   `json:"high" yaml:"high"`
	Low           float64   `json:"low" yaml:"low"`
	Open          float64   `json:"open" yaml:"open"`
	PreviousClose float64   `json:"previousClose" yaml:"previousClose"`
	VIX           float64   `json:"vix" yaml:"vix"`
	Timestamp     time.Time `json:"timestamp" yaml:"timestamp"`
}

// Trade is an option position held by the user
type Trade struct {
	ID               string      `json:"id" yaml:"id"`
	Type             OptionType  `json:"type" yaml:"type"`
	StrikePrice      float64     `json:"strikePrice" yaml:"strikePrice"`
	ExpirationDate   time.Time   `json:"expirationDate" yaml:"expirationDate"`
	EntryPrice       float64     `json:"entryPrice" yaml:"entryPrice"`
	CurrentPrice     float64     `json:"currentPrice" yaml:"currentPrice"`
	TargetPrice      float64     `json:"targetPrice" yaml:"targetPrice"`
	StopLoss         float64     `json:"stopLoss" yaml:"stopLoss"`
	Quantity         int         `json:"quantity" yaml:"quantity"`
	Status           TradeStatus `json:"status" yaml:"status"`
	OpenedAt         time.Time   `json:"openedAt" yaml:"openedAt"`
	ClosedAt         *time.Time  `json:"closedAt,omitempty" yaml:"closedAt,omitempty"`
	Profit           float64     `json:"profit" yaml:"profit"`
	ProfitPercentage float64     `json:"profitPercentage" yaml:"profitPercentage"`
	ConfidenceScore  float64     `json:"confidenceScore" yaml:"confidenceScore"`
}

// IsActive reports whether the trade is still open
func (t Trade) IsActive() bool {
	return t.Status == TradeActive
}

// IsProfitable reports whether the trade is currently above its entry price
func (t Trade) IsProfitable() bool {
	return t.CurrentPrice > t.EntryPrice
}

// OptionContract is one contract available in the option chain
type OptionContract struct {
	ID             string     `json:"id" yaml:"id"`
	Type           OptionType `json:"type" yaml:"type"`
	StrikePrice    float64    `json:"strikePrice" yaml:"strikePrice"`
	ExpirationDate time.Time  `json:"expirationDate" yaml:"expirationDate"`
	Premium        float64    `json:"premium" yaml:"premium"`
}

// AITradingSettings are the feature toggles and numeric knobs of the assistant
type AITradingSettings struct {
	ConsiderEconomicData       bool    `json:"considerEconomicData" yaml:"considerEconomicData" mapstructure:"consider_economic_data"`
	ConsiderEarningsEvents     bool    `json:"considerEarningsEvents" yaml:"considerEarningsEvents" mapstructure:"consider_earnings_events"`
	ConsiderFedMeetings        bool    `json:"considerFedMeetings" yaml:"considerFedMeetings" mapstructure:"consider_fed_meetings"`
	ConsiderGeopoliticalEvents bool    `json:"considerGeopoliticalEvents" yaml:"considerGeopoliticalEvents" mapstructure:"consider_geopolitical_events"`
	UseMarketSentiment         bool    `json:"useMarketSentiment" yaml:"useMarketSentiment" mapstructure:"use_market_sentiment"`
	AutoAdjustVolatility       bool    `json:"autoAdjustVolatility" yaml:"autoAdjustVolatility" mapstructure:"auto_adjust_volatility"`
	DefaultStopLossPct         float64 `json:"defaultStopLossPct" yaml:"defaultStopLossPct" mapstructure:"default_stop_loss_pct"`
	DefaultTakeProfitPct       float64 `json:"defaultTakeProfitPct" yaml:"defaultTakeProfitPct" mapstructure:"default_take_profit_pct"`
	LearningOverrideConfidence float64 `json:"learningOverrideConfidence" yaml:"learningOverrideConfidence" mapstructure:"learning_override_confidence"`
}

// DefaultSettings returns the settings used when none are configured
func DefaultSettings() AITradingSettings {
	return AITradingSettings{
		AutoAdjustVolatility:       true,
		DefaultStopLossPct:         0.2,
		DefaultTakeProfitPct:       0.5,
		LearningOverrideConfidence: 0.6,
	}
}

// RiskSignal is one detected risk event. Signals are never modified after creation.
type RiskSignal struct {
	ID          string             `json:"id"`
	Timestamp   time.Time          `json:"timestamp"`
	Source      SignalSource       `json:"source"`
	Condition   MarketCondition    `json:"condition"`
	Strength    SignalStrength     `json:"strength"`
	Direction   Direction          `json:"direction"`
	Description string             `json:"description"`
	DataPoints  map[string]float64 `json:"dataPoints"`
	Confidence  float64            `json:"confidence"`
}

// Pattern returns the grouping key the learning engine uses for this signal
func (s RiskSignal) Pattern() SignalPattern {
	return SignalPattern{
		Source:    s.Source,
		Condition: s.Condition,
		Strength:  s.Strength,
		Direction: s.Direction,
	}
}

// RiskAction is a recommended mitigation derived from a signal
type RiskAction struct {
	ID                string             `json:"id" yaml:"id"`
	SignalID          string             `json:"signalId" yaml:"signalId"`
	Timestamp         time.Time          `json:"timestamp" yaml:"timestamp"`
	ActionType        ActionType         `json:"actionType" yaml:"actionType"`
	TradeIDs          []string           `json:"tradeIds" yaml:"tradeIds"`
	Description       string             `json:"description" yaml:"description"`
	Parameters        map[string]float64 `json:"parameters" yaml:"parameters"`
	SignalDirection   Direction          `json:"signalDirection" yaml:"signalDirection"`
	PreviousRisk      float64            `json:"previousRisk" yaml:"previousRisk"`
	NewRisk           float64            `json:"newRisk" yaml:"newRisk"`
	UserRiskTolerance RiskToleranceType  `json:"userRiskTolerance" yaml:"userRiskTolerance"`
	Success           *bool              `json:"success,omitempty" yaml:"success,omitempty"`
	ProfitImpact      *float64           `json:"profitImpact,omitempty" yaml:"profitImpact,omitempty"`
}

// SignalPattern is the four-field key insights are grouped by
type SignalPattern struct {
	Source    SignalSource    `json:"source"`
	Condition MarketCondition `json:"condition"`
	Strength  SignalStrength  `json:"strength"`
	Direction Direction       `json:"direction"`
}

// Key renders the pattern as source|condition|strength|direction
func (p SignalPattern) Key() string {
	return string(p.Source) + "|" + string(p.Condition) + "|" + string(p.Strength) + "|" + string(p.Direction)
}

// LearningInsight summarises how actions taken for one signal pattern performed
type LearningInsight struct {
	ID                   string            `json:"id"`
	Timestamp            time.Time         `json:"timestamp"`
	Description          string            `json:"description"`
	SignalPattern        SignalPattern     `json:"signalPattern"`
	ActionTaken          ActionType        `json:"actionTaken"`
	SuccessRate          float64           `json:"successRate"`
	ProfitImpact         float64           `json:"profitImpact"`
	AverageProfitImpact  float64           `json:"averageProfitImpact"`
	AppliedCount         int               `json:"appliedCount"`
	RelatedRiskTolerance RiskToleranceType `json:"relatedRiskTolerance"`
	Confidence           float64           `json:"confidence"`
	RecommendedActions   []ActionType      `json:"recommendedActions"`
}

// RiskFactor is one contributor to the market risk profile
type RiskFactor struct {
	Source      SignalSource `json:"source"`
	Impact      float64      `json:"impact"`
	Description string       `json:"description"`
}

// MarketRiskProfile is a point-in-time summary of market risk. It is not persisted.
type MarketRiskProfile struct {
	CurrentCondition     MarketCondition `json:"currentCondition"`
	VolatilityLevel      float64         `json:"volatilityLevel"`
	SentimentScore       float64         `json:"sentimentScore"`
	MarketTrendStrength  float64         `json:"marketTrendStrength"`
	MarketTrendDirection Direction       `json:"marketTrendDirection"`
	KeyRiskFactors       []RiskFactor    `json:"keyRiskFactors"`
	CompositeRiskScore   float64         `json:"compositeRiskScore"`
}

// MonitoringLog is the aggregate of everything the pipeline has produced
type MonitoringLog struct {
	Signals          []RiskSignal      `json:"signals"`
	Actions          []RiskAction      `json:"actions"`
	LearningInsights []LearningInsight `json:"learningInsights"`
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}
