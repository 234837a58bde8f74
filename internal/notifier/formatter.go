package notifier

import (
	"fmt"
	"html"
	"math"
	"sort"
	"strings"

	"PortfolioSentinel/internal/analysis"
	"PortfolioSentinel/internal/model"
)

// FormatRiskReport formats an analysis run into a Telegram message.
func FormatRiskReport(name string, report analysis.Report) string {
	var b strings.Builder
	m := report.Metrics

	b.WriteString(fmt.Sprintf("📊 <b>%s risk report</b> | %s\n\n",
		html.EscapeString(name), m.CalculatedAt.Format("2006-01-02 15:04")))

	v := report.Valuation
	b.WriteString(fmt.Sprintf("Market value: $%.2f\n", v.TotalValue))
	if v.HasCost {
		b.WriteString(fmt.Sprintf("Unrealized PnL: %+.2f\n", v.TotalPnL))
	}
	b.WriteString("\n📈 <b>Returns</b>\n")
	b.WriteString(fmt.Sprintf("  Total: %+.2f%%\n", m.TotalReturn*100))
	b.WriteString(fmt.Sprintf("  Annualized: %+.2f%%\n", m.AnnualizedReturn*100))
	b.WriteString(fmt.Sprintf("  Volatility: %.2f%%\n", m.Volatility*100))

	b.WriteString("\n⚖️ <b>Risk-adjusted</b>\n")
	b.WriteString(fmt.Sprintf("  Sharpe: %s\n", ratio(m.SharpeRatio)))
	b.WriteString(fmt.Sprintf("  Sortino: %s\n", ratio(m.SortinoRatio)))
	b.WriteString(fmt.Sprintf("  Information: %s\n", ratio(m.InformationRatio)))
	if report.Benchmark != "" {
		b.WriteString(fmt.Sprintf("  Beta vs %s: %s\n", html.EscapeString(report.Benchmark), ratio(m.Beta)))
	} else {
		b.WriteString("  Beta: n/a (no benchmark)\n")
	}

	b.WriteString("\n🛡 <b>Tail risk</b>\n")
	b.WriteString(fmt.Sprintf("  VaR 95%%: %.2f%%\n", m.VaR95*100))
	b.WriteString(fmt.Sprintf("  CVaR 95%%: %.2f%%\n", m.CVaR95*100))
	b.WriteString(fmt.Sprintf("  Max drawdown: %.2f%%\n", m.MaxDrawdown*100))

	if len(report.Weights) > 0 {
		b.WriteString("\n💼 <b>Weights</b>\n")
		for _, s := range sortedKeys(report.Weights) {
			b.WriteString(fmt.Sprintf("  %s: %.1f%%\n", html.EscapeString(s), report.Weights[s]*100))
		}
	}
	if len(report.Missing) > 0 {
		missing := append([]string(nil), report.Missing...)
		sort.Strings(missing)
		b.WriteString(fmt.Sprintf("\n⚠️ Excluded (no data): %s\n", html.EscapeString(strings.Join(missing, ", "))))
	}
	return b.String()
}

// FormatPrices formats a symbol to price mapping, sorted by symbol.
func FormatPrices(prices map[string]float64) string {
	if len(prices) == 0 {
		return "No prices."
	}
	var b strings.Builder
	b.WriteString("💹 <b>Prices</b>\n")
	for _, s := range sortedKeys(prices) {
		b.WriteString(fmt.Sprintf("  %s: %.2f\n", html.EscapeString(s), prices[s]))
	}
	return b.String()
}

// FormatQuote formats a single quote with its source.
func FormatQuote(q model.Quote) string {
	return fmt.Sprintf("💹 <b>%s</b>: %.2f (%s, %s)",
		html.EscapeString(q.Symbol), q.Price, q.Source, q.ObservedAt.UTC().Format("15:04:05 MST"))
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return "Commands:\n" +
		"/risk - risk report for the configured portfolio\n" +
		"/price SYMBOL - current price\n" +
		"/prices A,B,C - several prices at once"
}

func ratio(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "∞"
	case math.IsInf(v, -1):
		return "-∞"
	case math.IsNaN(v):
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
