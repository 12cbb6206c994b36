package monitoring

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// insightSaturation is the sample size at which insight confidence stops growing
	insightSaturation     = 20
	maxRecommendedActions = 3
)

// SignalResolver looks up the signal an action was derived from
type SignalResolver interface {
	Signal(id string) (RiskSignal, bool)
}

// SignalResolverFunc adapts a function to SignalResolver
type SignalResolverFunc func(id string) (RiskSignal, bool)

// Signal implements SignalResolver
func (f SignalResolverFunc) Signal(id string) (RiskSignal, bool) { return f(id) }

// InsightConfidence grows with sample size, saturating at 20 samples, and is
// scaled by the success rate into [0,1]
func InsightConfidence(sampleSize int, successRate float64) float64 {
	if sampleSize <= 0 {
		return 0
	}
	return clamp01(math.Min(1, float64(sampleSize)/insightSaturation) * (0.5 + clamp01(successRate)/2))
}

// EvaluateOutcomes returns copies of the actions whose referenced trades have all
// closed, with Success and ProfitImpact filled in from the realized profit
func EvaluateOutcomes(closedTrades []Trade, actions []RiskAction) []RiskAction {
	closed := make(map[string]Trade, len(closedTrades))
	for _, t := range closedTrades {
		if t.Status == TradeClosed {
			closed[t.ID] = t
		}
	}

	var evaluated []RiskAction
	for _, a := range actions {
		if len(a.TradeIDs) == 0 {
			continue
		}
		if a.Success != nil && a.ProfitImpact != nil {
			evaluated = append(evaluated, a)
			continue
		}

		total := 0.0
		complete := true
		for _, id := range a.TradeIDs {
			t, ok := closed[id]
			if !ok {
				complete = false
				break
			}
			total += t.Profit
		}
		if !complete {
			continue
		}

		success := total > 0
		impact := total
		a.Success = &success
		a.ProfitImpact = &impact
		a.TradeIDs = append([]string(nil), a.TradeIDs...)
		evaluated = append(evaluated, a)
	}
	return evaluated
}

type patternStats struct {
	pattern    SignalPattern
	outcomes   []RiskAction
	successes  int
	total      float64
	byType     map[ActionType][]float64
	typeOrder  []ActionType
	tolerances map[RiskToleranceType]int
	tolOrder   []RiskToleranceType
}

// LearnFromOutcomes summarises how the actions touching the closed trades performed,
// one insight per signal pattern. Actions whose signal cannot be resolved are skipped.
func LearnFromOutcomes(closedTrades []Trade, actions []RiskAction, signals SignalResolver) []LearningInsight {
	outcomes := EvaluateOutcomes(closedTrades, actions)

	stats := make(map[string]*patternStats)
	var order []string

	for _, a := range outcomes {
		signal, ok := signals.Signal(a.SignalID)
		if !ok {
			log.Debug().
				Str("action_id", a.ID).
				Str("signal_id", a.SignalID).
				Msg("Signal not found for action, skipping")
			continue
		}

		key := signal.Pattern().Key()
		s, ok := stats[key]
		if !ok {
			s = &patternStats{
				pattern:    signal.Pattern(),
				byType:     make(map[ActionType][]float64),
				tolerances: make(map[RiskToleranceType]int),
			}
			stats[key] = s
			order = append(order, key)
		}

		impact := *a.ProfitImpact
		s.outcomes = append(s.outcomes, a)
		s.total += impact
		if *a.Success {
			s.successes++
		}
		if _, seen := s.byType[a.ActionType]; !seen {
			s.typeOrder = append(s.typeOrder, a.ActionType)
		}
		s.byType[a.ActionType] = append(s.byType[a.ActionType], impact)
		if _, seen := s.tolerances[a.UserRiskTolerance]; !seen {
			s.tolOrder = append(s.tolOrder, a.UserRiskTolerance)
		}
		s.tolerances[a.UserRiskTolerance]++
	}

	now := time.Now().UTC()
	insights := make([]LearningInsight, 0, len(order))

	for _, key := range order {
		s := stats[key]
		n := len(s.outcomes)
		rate := float64(s.successes) / float64(n)
		avg := s.total / float64(n)
		ranked := rankActions(s.byType, s.typeOrder)

		insight := LearningInsight{
			ID:                   uuid.New().String(),
			Timestamp:            now,
			SignalPattern:        s.pattern,
			ActionTaken:          ranked[0],
			SuccessRate:          rate,
			ProfitImpact:         s.total,
			AverageProfitImpact:  avg,
			AppliedCount:         n,
			RelatedRiskTolerance: dominantTolerance(s.tolerances, s.tolOrder),
			Confidence:           InsightConfidence(n, rate),
			RecommendedActions:   ranked,
		}
		insight.Description = fmt.Sprintf(
			"%s %s %s signals in %s markets: %d action(s), %.0f%% successful, average impact %.2f; best action %s",
			s.pattern.Strength, s.pattern.Direction, s.pattern.Source, s.pattern.Condition,
			n, rate*100, avg, insight.ActionTaken)

		insights = append(insights, insight)
	}

	log.Debug().
		Int("closed_trades", len(closedTrades)).
		Int("evaluated_actions", len(outcomes)).
		Int("insights", len(insights)).
		Msg("Learned from outcomes")

	return insights
}

// rankActions orders action types by average profit impact, best first, keeping the top three
func rankActions(byType map[ActionType][]float64, order []ActionType) []ActionType {
	avg := make(map[ActionType]float64, len(byType))
	for t, impacts := range byType {
		sum := 0.0
		for _, v := range impacts {
			sum += v
		}
		avg[t] = sum / float64(len(impacts))
	}

	ranked := append([]ActionType(nil), order...)
	sort.SliceStable(ranked, func(i, j int) bool {
		if avg[ranked[i]] != avg[ranked[j]] {
			return avg[ranked[i]] > avg[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})

	if len(ranked) > maxRecommendedActions {
		ranked = ranked[:maxRecommendedActions]
	}
	return ranked
}

func dominantTolerance(counts map[RiskToleranceType]int, order []RiskToleranceType) RiskToleranceType {
	var best RiskToleranceType
	bestCount := 0
	for _, t := range order {
		if counts[t] > bestCount {
			best = t
			bestCount = counts[t]
		}
	}
	return best
}

// findInsight returns the most recent insight whose pattern matches exactly
func findInsight(pattern SignalPattern, insights []LearningInsight) (LearningInsight, bool) {
	var found LearningInsight
	ok := false
	for _, in := range insights {
		if in.SignalPattern != pattern {
			continue
		}
		if !ok || !in.Timestamp.Before(found.Timestamp) {
			found = in
			ok = true
		}
	}
	return found, ok
}

// GetRecommendedActions returns the actions that historically worked for signals
// like this one, falling back to a direction-based default when nothing was learned
func GetRecommendedActions(signal RiskSignal, insights []LearningInsight) []ActionType {
	if insight, ok := findInsight(signal.Pattern(), insights); ok && len(insight.RecommendedActions) > 0 {
		return append([]ActionType(nil), insight.RecommendedActions...)
	}

	switch signal.Direction {
	case DirectionBearish:
		return []ActionType{ActionReducePositionSize, ActionAdjustStopLoss, ActionHedgePosition}
	case DirectionBullish:
		return []ActionType{ActionIncreasePositionSize, ActionAdjustTakeProfit}
	default:
		return []ActionType{ActionNoAction}
	}
}
