package notifier

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"StockSentry/internal/model"
)

// FormatPriceCondition builds the notification for a fired price
// condition.
func FormatPriceCondition(s *model.PriceAlertStrategy, cond model.PriceCondition, price, pct float64) (title, body string) {
	name := s.StockName
	if name == "" {
		name = s.Code
	}
	typeLabel := "价格"
	if cond.Kind == "pct" {
		typeLabel = "涨跌幅"
	}
	opLabel := "突破"
	if cond.Operator == "below" {
		opLabel = "跌破"
	}

	if cond.Note != "" {
		title = fmt.Sprintf("%s - %s", name, cond.Note)
	} else {
		title = fmt.Sprintf("%s %s%s", name, typeLabel, opLabel)
	}

	if cond.Kind == "price" {
		body = fmt.Sprintf("当前价 %.2f，%s %.2f", price, opLabel, cond.Value)
	} else {
		sign := ""
		if pct >= 0 {
			sign = "+"
		}
		body = fmt.Sprintf("当前涨跌幅 %s%.2f%%，%s %.2f%%", sign, pct, opLabel, cond.Value)
	}
	return title, body
}

// FormatGroupAlert builds the notification for one group detection
// hit. cumVolume is today's cumulative volume in lots.
func FormatGroupAlert(ts model.TriggeredStock, cumVolume float64) (title, body string) {
	title = fmt.Sprintf("%s %s", ts.Name, model.AlertKindLabel(ts.Kind))

	switch ts.Kind {
	case model.AlertVolumeSurge:
		body = fmt.Sprintf("成交量放大 %.1f 倍（今日 %s 手），当前价 %.2f",
			ts.Value, humanize.Comma(int64(cumVolume)), ts.Price)
	case model.AlertRapidRise:
		body = fmt.Sprintf("短时涨幅 +%.2f%%，当前价 %.2f", ts.Value, ts.Price)
	case model.AlertRapidFall:
		body = fmt.Sprintf("短时跌幅 %.2f%%，当前价 %.2f", ts.Value, ts.Price)
	case model.AlertLimitUp:
		body = fmt.Sprintf("封涨停！当前价 %.2f，涨停价 %.2f", ts.Price, ts.Value)
	case model.AlertLimitOpen:
		body = fmt.Sprintf("涨停打开！当前价 %.2f，涨停价 %.2f", ts.Price, ts.Value)
	case model.AlertAlphaLead:
		body = fmt.Sprintf("跑赢分组均值 %.2f 个点，当前价 %.2f", ts.Value, ts.Price)
	default:
		body = fmt.Sprintf("当前价 %.2f", ts.Price)
	}
	return title, body
}

// FormatRemoteTrigger builds the notification for a strategy evaluated
// by the external service.
func FormatRemoteTrigger(s model.Strategy) (title, body string) {
	meta := s.Meta()
	title = fmt.Sprintf("策略触发: %s", meta.Name)

	label := model.StrategyTypeLabel(meta.Kind)
	r, ok := s.(*model.RemoteStrategy)
	if !ok {
		return title, label
	}
	switch meta.Kind {
	case "sector_arb":
		if dev, ok := r.Float("deviation"); ok {
			thr, _ := r.Float("threshold")
			return title, fmt.Sprintf("%s\n偏离度: %.2f%% (阈值 %.2f%%)", label, dev, thr)
		}
	case "ah_premium":
		if premium, ok := r.Float("premium"); ok {
			return title, fmt.Sprintf("%s\n当前溢价率: %.1f%%", label, premium)
		}
	}
	return title, label
}

// FormatHistory renders recent alert-history entries for the /alerts
// command.
func FormatHistory(items []model.AlertHistoryItem) string {
	if len(items) == 0 {
		return "暂无预警记录"
	}
	var b strings.Builder
	b.WriteString("🔔 <b>最近预警</b>\n\n")
	for _, item := range items {
		at := time.UnixMilli(item.Timestamp).Format("01-02 15:04")
		b.WriteString(fmt.Sprintf("%s  %s\n", at, item.Title))
		if item.Description != "" {
			b.WriteString(fmt.Sprintf("    %s\n", item.Description))
		}
	}
	return b.String()
}

// FormatStatus renders the /status reply.
func FormatStatus(marketStatus string, tracked, running, triggered int) string {
	var b strings.Builder
	b.WriteString("📡 <b>监控状态</b>\n\n")
	b.WriteString(fmt.Sprintf("市场: %s\n", marketStatus))
	b.WriteString(fmt.Sprintf("跟踪标的: %d\n", tracked))
	b.WriteString(fmt.Sprintf("运行中策略: %d\n", running))
	b.WriteString(fmt.Sprintf("已触发策略: %d\n", triggered))
	return b.String()
}
