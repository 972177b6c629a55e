package engine

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"StockSentry/internal/model"
	"StockSentry/internal/monitor"
	"StockSentry/internal/notifier"
)

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

// evalGroupStrategy runs every watched detection over every category
// member present in the quote batch and reports whether any hit was
// accepted. The per-(code, kind) cooldown is the only suppression
// here; unlike price conditions, a detection may legitimately fire
// again later the same day.
func (e *Engine) evalGroupStrategy(ctx context.Context, s *model.GroupAlertStrategy, quotes map[string]model.Quote, now time.Time) bool {
	codes := e.resolve(s.CategoryID)
	if len(codes) == 0 {
		return false
	}

	surgeMult := orDefault(s.VolumeSurgeMultiplier, orDefault(e.cfg.SurgeMultiplier, defaultSurgeMultiplier))
	riseThresh := orDefault(s.RapidRiseThreshold, orDefault(e.cfg.RapidThreshold, defaultRapidThreshold))
	fallThresh := orDefault(s.RapidFallThreshold, orDefault(e.cfg.RapidThreshold, defaultRapidThreshold))
	alphaThresh := orDefault(s.AlphaThreshold, orDefault(e.cfg.AlphaThreshold, defaultAlphaThreshold))

	groupAvg, groupOK := 0.0, false
	if s.Watches(model.AlertAlphaLead) {
		groupAvg, groupOK = monitor.GroupAvgPct(quotes, codes)
	}

	var hits []model.TriggeredStock
	for _, code := range codes {
		q, ok := quotes[code]
		if !ok {
			continue
		}

		accept := func(kind model.AlertKind, value float64) {
			if e.mon.InCooldown(code, kind, now) {
				return
			}
			e.mon.MarkAlerted(code, kind, now)
			hit := model.TriggeredStock{
				Code:        code,
				Name:        q.Name,
				Kind:        kind,
				Value:       value,
				Price:       q.Price,
				TriggeredAt: model.Millis(now),
			}
			hits = append(hits, hit)

			title, body := notifier.FormatGroupAlert(hit, q.CumVolume)
			e.send(title, body)
			e.appendHistory(model.AlertHistoryItem{
				ID:          uuid.NewString(),
				Kind:        model.KindGroupAlert,
				Title:       title,
				Description: body,
				Timestamp:   model.Millis(now),
				Data: map[string]any{
					"code":      code,
					"alertType": string(kind),
					"value":     value,
				},
			})
		}

		// One-shot check of the opening gap, so a stock already past
		// the rapid thresholds at the first reading still reports.
		if s.Watches(model.AlertRapidRise) {
			if d := e.mon.OpeningGap(code, q, riseThresh, monitor.Rise); d.Triggered {
				accept(model.AlertRapidRise, d.Value)
			}
		}
		if s.Watches(model.AlertRapidFall) {
			if d := e.mon.OpeningGap(code, q, fallThresh, monitor.Fall); d.Triggered {
				accept(model.AlertRapidFall, d.Value)
			}
		}

		if s.Watches(model.AlertVolumeSurge) {
			if d := e.mon.VolumeSurge(code, surgeMult); d.Triggered && e.confirmSurge(ctx, code) {
				accept(model.AlertVolumeSurge, d.Value)
			}
		}
		if s.Watches(model.AlertRapidRise) {
			if d := e.mon.RapidMove(code, riseThresh, monitor.Rise); d.Triggered {
				accept(model.AlertRapidRise, d.Value)
			}
		}
		if s.Watches(model.AlertRapidFall) {
			if d := e.mon.RapidMove(code, fallThresh, monitor.Fall); d.Triggered {
				accept(model.AlertRapidFall, d.Value)
			}
		}

		if s.Watches(model.AlertLimitUp) || s.Watches(model.AlertLimitOpen) {
			// Transitions always advance the retained state, even for
			// kinds this strategy does not watch or hits the cooldown
			// swallows.
			limitUp, limitOpen, limitPrice := e.mon.LimitTransitions(code, q)
			if limitUp && s.Watches(model.AlertLimitUp) {
				accept(model.AlertLimitUp, limitPrice)
			}
			if limitOpen && s.Watches(model.AlertLimitOpen) {
				accept(model.AlertLimitOpen, limitPrice)
			}
		}

		if s.Watches(model.AlertAlphaLead) && groupOK && q.PreClose > 0 {
			if d := monitor.AlphaLead(q.Pct(), groupAvg, alphaThresh); d.Triggered {
				accept(model.AlertAlphaLead, d.Value)
			}
		}
	}

	s.LastCheckAt = model.Millis(now)
	if len(hits) == 0 {
		return false
	}
	s.TriggeredStocks = append(s.TriggeredStocks, hits...)
	s.Status = model.StatusTriggered
	if s.TriggeredAt == 0 {
		s.TriggeredAt = hits[0].TriggeredAt
	}
	return true
}

// confirmSurge applies the optional second stage of the volume-surge
// check: the price must have risen over the buffer window and recent
// trades must skew toward active buying. With confirmation disabled or
// no tick source wired, every surge passes.
func (e *Engine) confirmSurge(ctx context.Context, code string) bool {
	if !e.cfg.VolumeSurgeConfirm || e.ticks == nil {
		return true
	}
	rise, ok := e.mon.PriceRise(code)
	if !ok || rise < surgeMinPriceRise {
		return false
	}
	ratio, ok, err := e.ticks.ActiveBuyRatio(ctx, code)
	if err != nil {
		log.Printf("[WARN] active buy ratio for %s: %v", code, err)
		return false
	}
	return ok && ratio >= surgeMinBuyRatio
}
