package notify

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/mmbot/internal/domain"
)

// Console implementa ports.Notifier.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// Notify imprime el resultado del tick en el modo configurado.
func (c *Console) Notify(_ context.Context, report domain.TickReport) error {
	if c.table {
		c.printFull(report)
	} else {
		c.printCompact(report)
	}
	return nil
}

// printCompact imprime lo esencial en una línea.
func (c *Console) printCompact(report domain.TickReport) {
	now := report.At.Format("15:04:05")
	skew := ""
	if report.Skewed {
		skew = " skew"
	}
	fmt.Fprintf(c.out, "[%s] %s mid=%s bid=%s ask=%s ema=%.4f rsi=%.1f%s\n",
		now, report.TradingPair, report.Mid, report.BidPrice, report.AskPrice,
		report.Indicators.EMA, report.Indicators.RSI, skew)
}

// printFull imprime el panel de estado completo: balances, órdenes e indicadores.
// Las bandas de Bollinger son solo informativas — no afectan a los spreads.
func (c *Console) printFull(report domain.TickReport) {
	now := report.At.Format("15:04:05")
	fmt.Fprintf(c.out, "\n[%s] %s — mid %s\n", now, report.TradingPair, report.Mid)

	table := tablewriter.NewWriter(c.out)
	table.Header("Side", "Price", "Spread")
	table.Append("BUY", report.BidPrice.String(), formatPct(report.BidSpread))
	table.Append("SELL", report.AskPrice.String(), formatPct(report.AskSpread))
	table.Render()

	fmt.Fprintf(c.out, "  Balances: base=%s quote=%s\n",
		report.BaseBalance, report.QuoteBalance)
	fmt.Fprintf(c.out, "  EMA: %.4f | RSI: %.2f | BB: [%.4f, %.4f]\n",
		report.Indicators.EMA, report.Indicators.RSI,
		report.Indicators.Lower, report.Indicators.Upper)
	if report.Skewed {
		fmt.Fprintln(c.out, "  Inventory skew: ACTIVE")
	}
	fmt.Fprintln(c.out)
}

// formatPct formatea un spread decimal como porcentaje legible.
func formatPct(d decimal.Decimal) string {
	return fmt.Sprintf("%.4f%%", d.InexactFloat64()*100)
}
