package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"keepsafe/internal/domain"
)

// HeuristicRiskScorer scores dual-key requests from the requester's access
// history and the request text. Each factor contributes a value in [0,1]; the
// score is the mean of the factors that applied.
//
// Factors:
//  1. Recency. Access to this vault within 24h lowers risk (+0.1), older
//     history raises it (+0.3). No history at all is the highest-risk signal
//     (+0.5) and replaces both recency readings.
//  2. Time-of-day consistency, only with at least 5 historical timestamps.
//     The current hour within ±2h of the majority of past hours lowers risk
//     (+0.1); outside it raises risk (+0.3).
//  3. Reason text, only when a reason was given. Urgency/suspicion keywords
//     raise risk (+0.3); their absence lowers it (+0.1).
type HeuristicRiskScorer struct {
	History      AccessLogRepository
	Clock        Clock
	HistoryLimit int
}

const defaultHistoryLimit = 100

var riskKeywords = []string{"urgent", "emergency", "hack", "test", "demo"}

func NewHeuristicRiskScorer(history AccessLogRepository, clock Clock) *HeuristicRiskScorer {
	if clock == nil {
		clock = SystemClock()
	}
	return &HeuristicRiskScorer{History: history, Clock: clock, HistoryLimit: defaultHistoryLimit}
}

func (s *HeuristicRiskScorer) Score(ctx context.Context, vault domain.Vault, requesterID, reason string) (domain.RiskAssessment, error) {
	limit := s.HistoryLimit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	history, err := s.History.ListByVaultAndUser(ctx, vault.ID, requesterID, limit)
	if err != nil {
		return domain.RiskAssessment{}, fmt.Errorf("load access history: %w", err)
	}

	now := s.Clock.Now()
	var sum float64
	var factors int
	var trace []string

	if len(history) == 0 {
		sum += 0.5
		factors++
		trace = append(trace, "no access history for requester (+0.50)")
	} else {
		recent := false
		for _, entry := range history {
			if now.Sub(entry.Timestamp) <= 24*time.Hour {
				recent = true
				break
			}
		}
		if recent {
			sum += 0.1
			factors++
			trace = append(trace, "accessed within last 24h (+0.10)")
		} else {
			sum += 0.3
			factors++
			trace = append(trace, "no access within last 24h (+0.30)")
		}

		if len(history) >= 5 {
			if hourConsistent(now.Hour(), history) {
				sum += 0.1
				factors++
				trace = append(trace, "request hour consistent with history (+0.10)")
			} else {
				sum += 0.3
				factors++
				trace = append(trace, "request hour inconsistent with history (+0.30)")
			}
		}
	}

	if reason != "" {
		if keyword := matchRiskKeyword(reason); keyword != "" {
			sum += 0.3
			factors++
			trace = append(trace, fmt.Sprintf("reason contains %q (+0.30)", keyword))
		} else {
			sum += 0.1
			factors++
			trace = append(trace, "reason has no risk keywords (+0.10)")
		}
	}

	if factors == 0 {
		// Unreachable today (the no-history factor always counts), kept as a
		// guard against divide-by-zero if factors become configurable.
		return domain.RiskAssessment{Score: 1.0, Reasoning: "no scoring factors applied"}, nil
	}

	return domain.RiskAssessment{
		Score:     sum / float64(factors),
		Reasoning: strings.Join(trace, "; "),
	}, nil
}

// hourConsistent reports whether the current hour falls within ±2h of the
// majority of historical access hours. Distance wraps around midnight.
func hourConsistent(currentHour int, history []domain.AccessLogEntry) bool {
	within := 0
	for _, entry := range history {
		d := currentHour - entry.Timestamp.Hour()
		if d < 0 {
			d = -d
		}
		if d > 12 {
			d = 24 - d
		}
		if d <= 2 {
			within++
		}
	}
	return within*2 >= len(history)
}

func matchRiskKeyword(reason string) string {
	lowered := strings.ToLower(reason)
	for _, keyword := range riskKeywords {
		if strings.Contains(lowered, keyword) {
			return keyword
		}
	}
	return ""
}
