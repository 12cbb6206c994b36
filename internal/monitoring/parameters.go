package monitoring

// Parameter keys carried in RiskAction.Parameters
const (
	ParamReductionFactor  = "reductionFactor"
	ParamIncreaseFactor   = "increaseFactor"
	ParamAdjustmentFactor = "adjustmentFactor"
	ParamHedgeRatio       = "hedgeRatio"
)

// Defaults used when an action omits a parameter
const (
	DefaultReductionFactor      = 0.5
	DefaultIncreaseFactor       = 1.5
	DefaultStopLossAdjustment   = 0.7
	DefaultTakeProfitAdjustment = 0.8
	DefaultHedgeRatio           = 0.5
)

type reduceParams struct {
	ReductionFactor float64
}

type increaseParams struct {
	IncreaseFactor float64
}

type hedgeParams struct {
	HedgeRatio float64
}

type boundParams struct {
	AdjustmentFactor float64
	Direction        Direction
}

func param(action RiskAction, key string, def float64) float64 {
	if v, ok := action.Parameters[key]; ok && v > 0 {
		return v
	}
	return def
}

func reduceParamsOf(a RiskAction) reduceParams {
	f := param(a, ParamReductionFactor, DefaultReductionFactor)
	if f > 1 {
		f = 1
	}
	return reduceParams{ReductionFactor: f}
}

func increaseParamsOf(a RiskAction) increaseParams {
	f := param(a, ParamIncreaseFactor, DefaultIncreaseFactor)
	if f < 1 {
		f = 1
	}
	return increaseParams{IncreaseFactor: f}
}

func hedgeParamsOf(a RiskAction) hedgeParams {
	return hedgeParams{HedgeRatio: clamp01(param(a, ParamHedgeRatio, DefaultHedgeRatio))}
}

func stopParamsOf(a RiskAction) boundParams {
	return boundParams{
		AdjustmentFactor: clamp01(param(a, ParamAdjustmentFactor, DefaultStopLossAdjustment)),
		Direction:        a.SignalDirection,
	}
}

func takeProfitParamsOf(a RiskAction) boundParams {
	return boundParams{
		AdjustmentFactor: clamp01(param(a, ParamAdjustmentFactor, DefaultTakeProfitAdjustment)),
		Direction:        a.SignalDirection,
	}
}

// defaultParameters returns the boundary parameter bag for a freshly determined action
func defaultParameters(action ActionType) map[string]float64 {
	switch action {
	case ActionReducePositionSize:
		return map[string]float64{ParamReductionFactor: DefaultReductionFactor}
	case ActionIncreasePositionSize:
		return map[string]float64{ParamIncreaseFactor: DefaultIncreaseFactor}
	case ActionHedgePosition:
		return map[string]float64{ParamHedgeRatio: DefaultHedgeRatio}
	case ActionAdjustStopLoss:
		return map[string]float64{ParamAdjustmentFactor: DefaultStopLossAdjustment}
	case ActionAdjustTakeProfit:
		return map[string]float64{ParamAdjustmentFactor: DefaultTakeProfitAdjustment}
	default:
		return map[string]float64{}
	}
}
