package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"StockSentry/internal/model"
	"StockSentry/internal/notifier"
)

// evalPriceStrategy checks every untriggered condition of a price
// strategy against the live quote. Conditions latch: once triggered
// they stay triggered until the user resets them, so the per-day
// notification set is the only dedup needed here.
func (e *Engine) evalPriceStrategy(s *model.PriceAlertStrategy, quotes map[string]model.Quote, now time.Time) bool {
	q, ok := quotes[s.Code]
	if !ok || q.Price <= 0 {
		return false
	}
	pct := q.Pct()

	changed := false
	for i := range s.Conditions {
		cond := &s.Conditions[i]
		if cond.Triggered {
			continue
		}
		if !conditionMet(*cond, q.Price, pct) {
			continue
		}

		cond.Triggered = true
		cond.TriggeredAt = model.Millis(now)
		changed = true

		s.Status = model.StatusTriggered
		// First trigger wins; a condition reset keeps the original
		// timestamp.
		if s.TriggeredAt == 0 {
			s.TriggeredAt = cond.TriggeredAt
		}

		key := fmt.Sprintf("%s_cond%d", s.ID, i)
		if !e.notified.claim(key) {
			continue
		}
		title, body := notifier.FormatPriceCondition(s, *cond, q.Price, pct)
		e.send(title, body)
		e.appendHistory(model.AlertHistoryItem{
			ID:          uuid.NewString(),
			Kind:        model.KindPrice,
			Title:       title,
			Description: body,
			Timestamp:   model.Millis(now),
			Data: map[string]any{
				"code":  s.Code,
				"price": q.Price,
			},
		})
	}
	return changed
}

// conditionMet evaluates one threshold. Percent conditions compare the
// magnitude of the day change, so "pct above 5" matches both +5% and
// -5% moves.
func conditionMet(cond model.PriceCondition, price, pct float64) bool {
	value := price
	if cond.Kind == "pct" {
		value = math.Abs(pct)
	}
	if cond.Operator == "below" {
		return value <= cond.Value
	}
	return value >= cond.Value
}
