package monitoring

// decisionKey indexes the decision tables
type decisionKey struct {
	Strength  SignalStrength
	Tolerance RiskToleranceType
}

// Decision is the outcome of a decision-table lookup
type Decision struct {
	Action        ActionType
	RiskReduction float64
}

// riskReductions is the illustrative fraction of risk each action removes
var riskReductions = map[ActionType]float64{
	ActionExitTrade:          1.0,
	ActionReducePositionSize: 0.5,
	ActionHedgePosition:      0.4,
	ActionAdjustStopLoss:     0.3,
	ActionAdjustTakeProfit:   0.2,
	ActionConvertToSpread:    0.3,
	ActionNoAction:           0,
}

// technicalTable maps technical signal strength and tolerance to an action
var technicalTable = map[decisionKey]ActionType{
	{StrengthExtreme, ToleranceConservative}: ActionExitTrade,
	{StrengthExtreme, ToleranceModerate}:     ActionReducePositionSize,
	{StrengthExtreme, ToleranceAggressive}:   ActionReducePositionSize,

	{StrengthStrong, ToleranceConservative}: ActionReducePositionSize,
	{StrengthStrong, ToleranceModerate}:     ActionAdjustStopLoss,
	{StrengthStrong, ToleranceAggressive}:   ActionNoAction,

	{StrengthModerate, ToleranceConservative}: ActionAdjustStopLoss,
	{StrengthModerate, ToleranceModerate}:     ActionNoAction,
	{StrengthModerate, ToleranceAggressive}:   ActionNoAction,

	{StrengthWeak, ToleranceConservative}: ActionAdjustStopLoss,
	{StrengthWeak, ToleranceModerate}:     ActionNoAction,
	{StrengthWeak, ToleranceAggressive}:   ActionNoAction,
}

// volatilityTable maps bearish volatility signal strength and tolerance to an action
var volatilityTable = map[decisionKey]ActionType{
	{StrengthExtreme, ToleranceConservative}: ActionExitTrade,
	{StrengthExtreme, ToleranceModerate}:     ActionHedgePosition,
	{StrengthExtreme, ToleranceAggressive}:   ActionHedgePosition,

	{StrengthStrong, ToleranceConservative}: ActionHedgePosition,
	{StrengthStrong, ToleranceModerate}:     ActionHedgePosition,
	{StrengthStrong, ToleranceAggressive}:   ActionAdjustStopLoss,

	{StrengthModerate, ToleranceConservative}: ActionAdjustStopLoss,
	{StrengthModerate, ToleranceModerate}:     ActionAdjustStopLoss,
	{StrengthModerate, ToleranceAggressive}:   ActionNoAction,

	{StrengthWeak, ToleranceConservative}: ActionNoAction,
	{StrengthWeak, ToleranceModerate}:     ActionNoAction,
	{StrengthWeak, ToleranceAggressive}:   ActionNoAction,
}

func lookup(table map[decisionKey]ActionType, strength SignalStrength, tolerance RiskToleranceType) Decision {
	action, ok := table[decisionKey{strength, tolerance}]
	if !ok {
		action = ActionNoAction
	}
	return Decision{Action: action, RiskReduction: riskReductions[action]}
}

// TechnicalDecision looks up the technical decision table
func TechnicalDecision(strength SignalStrength, tolerance RiskToleranceType) Decision {
	return lookup(technicalTable, strength, tolerance)
}

// VolatilityDecision looks up the volatility decision table
func VolatilityDecision(strength SignalStrength, tolerance RiskToleranceType) Decision {
	return lookup(volatilityTable, strength, tolerance)
}
