// Package validation checks the inputs handed to the monitoring pipeline by the
// CLI and the HTTP API before they reach the core.
package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ajitpratap0/riskmonitor/internal/monitoring"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors represents multiple validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return "validation errors: " + strings.Join(msgs, "; ")
}

// HasErrors returns true if there are validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator accumulates validation errors
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// AddError adds a validation error
func (v *Validator) AddError(field, message string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Message: message,
	})
}

// Errors returns all validation errors
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Err returns the accumulated errors, or nil when there are none
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return v.errors
}

// Required validates that a string is not empty
func (v *Validator) Required(field, value string) {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
}

// MinValue validates minimum numeric value
func (v *Validator) MinValue(field string, value, min float64) {
	if value < min {
		v.AddError(field, fmt.Sprintf("must be at least %v", min))
	}
}

// MaxValue validates maximum numeric value
func (v *Validator) MaxValue(field string, value, max float64) {
	if value > max {
		v.AddError(field, fmt.Sprintf("must be at most %v", max))
	}
}

// Range validates that a number lies in [min, max]
func (v *Validator) Range(field string, value, min, max float64) {
	if value < min || value > max {
		v.AddError(field, fmt.Sprintf("must be between %v and %v", min, max))
	}
}

// Positive validates that a number is positive
func (v *Validator) Positive(field string, value float64) {
	if value <= 0 {
		v.AddError(field, "must be positive")
	}
}

// NonNegative validates that a number is non-negative
func (v *Validator) NonNegative(field string, value float64) {
	if value < 0 {
		v.AddError(field, "must be non-negative")
	}
}

// OneOf validates that a value is one of the allowed values
func (v *Validator) OneOf(field, value string, allowed []string) {
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	v.AddError(field, fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", ")))
}

// UUID validates UUID format
func (v *Validator) UUID(field, value string) {
	if _, err := uuid.Parse(value); err != nil {
		v.AddError(field, "must be a valid UUID")
	}
}

// NotZeroTime validates that a timestamp is set
func (v *Validator) NotZeroTime(field string, value time.Time) {
	if value.IsZero() {
		v.AddError(field, "is required")
	}
}

func indexed(prefix string, i int, field string) string {
	return fmt.Sprintf("%s[%d].%s", prefix, i, field)
}

// ValidateMarketData checks one market snapshot
func (v *Validator) ValidateMarketData(field string, m monitoring.MarketData) {
	v.Positive(field+".price", m.Price)
	v.NonNegative(field+".vix", m.VIX)
	v.NonNegative(field+".volume", m.Volume)
	if m.High != 0 && m.Low != 0 && m.High < m.Low {
		v.AddError(field+".high", "must not be below low")
	}
}

// ValidateTrade checks one trade
func (v *Validator) ValidateTrade(field string, t monitoring.Trade) {
	v.Required(field+".id", t.ID)
	v.OneOf(field+".type", string(t.Type), []string{string(monitoring.OptionCall), string(monitoring.OptionPut)})
	v.OneOf(field+".status", string(t.Status), []string{string(monitoring.TradeActive), string(monitoring.TradeClosed)})
	v.Positive(field+".strikePrice", t.StrikePrice)
	v.NonNegative(field+".entryPrice", t.EntryPrice)
	v.NonNegative(field+".currentPrice", t.CurrentPrice)
	v.NonNegative(field+".stopLoss", t.StopLoss)
	v.NonNegative(field+".targetPrice", t.TargetPrice)
	if t.Quantity < 1 {
		v.AddError(field+".quantity", "must be at least 1")
	}
	v.NotZeroTime(field+".expirationDate", t.ExpirationDate)
}

// ValidateOption checks one option chain entry
func (v *Validator) ValidateOption(field string, o monitoring.OptionContract) {
	v.OneOf(field+".type", string(o.Type), []string{string(monitoring.OptionCall), string(monitoring.OptionPut)})
	v.Positive(field+".strikePrice", o.StrikePrice)
	v.NonNegative(field+".premium", o.Premium)
	v.NotZeroTime(field+".expirationDate", o.ExpirationDate)
}

// ValidateSettings checks the assistant's numeric knobs; zero values fall back to defaults
func (v *Validator) ValidateSettings(field string, s monitoring.AITradingSettings) {
	if s.DefaultStopLossPct != 0 {
		v.Range(field+".defaultStopLossPct", s.DefaultStopLossPct, 0, 1)
	}
	if s.DefaultTakeProfitPct != 0 {
		v.Positive(field+".defaultTakeProfitPct", s.DefaultTakeProfitPct)
	}
	if s.LearningOverrideConfidence != 0 {
		v.Range(field+".learningOverrideConfidence", s.LearningOverrideConfidence, 0, 1)
	}
}

// RiskTolerance validates a tolerance; empty is allowed and means moderate
func (v *Validator) RiskTolerance(field string, t monitoring.RiskToleranceType) {
	if t == "" {
		return
	}
	if !t.Valid() {
		v.OneOf(field, string(t), []string{
			string(monitoring.ToleranceConservative),
			string(monitoring.ToleranceModerate),
			string(monitoring.ToleranceAggressive),
		})
	}
}

// ValidateCycleInput checks a full monitoring snapshot
func ValidateCycleInput(in monitoring.CycleInput) error {
	v := NewValidator()

	v.ValidateMarketData("market", in.Market)
	for i, h := range in.History {
		v.ValidateMarketData(fmt.Sprintf("history[%d]", i), h)
	}

	seen := make(map[string]bool, len(in.Trades))
	for i, t := range in.Trades {
		v.ValidateTrade(fmt.Sprintf("trades[%d]", i), t)
		if t.ID != "" && seen[t.ID] {
			v.AddError(indexed("trades", i, "id"), "duplicate trade id "+t.ID)
		}
		seen[t.ID] = true
	}
	for i, o := range in.Options {
		v.ValidateOption(fmt.Sprintf("options[%d]", i), o)
	}

	v.ValidateSettings("settings", in.Settings)
	v.RiskTolerance("riskTolerance", in.RiskTolerance)

	return v.Err()
}

// ValidateOutcomes checks the closed trades and actions submitted for learning
func ValidateOutcomes(trades []monitoring.Trade, actions []monitoring.RiskAction) error {
	v := NewValidator()

	for i, t := range trades {
		v.Required(indexed("trades", i, "id"), t.ID)
		v.OneOf(indexed("trades", i, "status"), string(t.Status), []string{string(monitoring.TradeActive), string(monitoring.TradeClosed)})
	}
	for i, a := range actions {
		v.Required(indexed("actions", i, "id"), a.ID)
		v.Required(indexed("actions", i, "signalId"), a.SignalID)
		if len(a.TradeIDs) == 0 {
			v.AddError(indexed("actions", i, "tradeIds"), "must reference at least one trade")
		}
	}

	return v.Err()
}

// ValidateSignal checks a signal submitted for recommendations
func ValidateSignal(s monitoring.RiskSignal) error {
	v := NewValidator()

	v.Required("source", string(s.Source))
	v.OneOf("direction", string(s.Direction), []string{
		string(monitoring.DirectionBullish),
		string(monitoring.DirectionBearish),
		string(monitoring.DirectionNeutral),
	})
	if s.Strength != "" {
		v.OneOf("strength", string(s.Strength), []string{
			string(monitoring.StrengthWeak),
			string(monitoring.StrengthModerate),
			string(monitoring.StrengthStrong),
			string(monitoring.StrengthExtreme),
		})
	}
	v.Range("confidence", s.Confidence, 0, 1)

	return v.Err()
}

// SanitizeInput strips null bytes and surrounding whitespace and caps the length
func SanitizeInput(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")
	input = strings.TrimSpace(input)

	// Limit length to prevent DoS
	if len(input) > 10000 {
		input = input[:10000]
	}

	return input
}
