// Package receipt renders finalized orders into the plain-text documents
// sent to the thermal printer: the customer receipt and the kitchen order
// ticket.
package receipt

import (
	"fmt"
	"strings"

	"github.com/dosahub/backend-pos/internal/money"
	"github.com/dosahub/backend-pos/internal/order"
)

const width = 42

// Render produces the line-itemized customer receipt: item, quantity, unit
// price and line total per line, then subtotal, discount with coupon code,
// each tax line with its rate, the grand total and the payment method.
func Render(o order.FinalizedOrder) []byte {
	var b strings.Builder
	writeCentered(&b, "RECEIPT")
	writeLine(&b, "Order", o.Number)
	writeLine(&b, "Placed", o.PlacedAt.Format("02 Jan 2006 15:04"))
	rule(&b)
	for _, l := range o.Lines {
		b.WriteString(fmt.Sprintf("%s\n", l.Name))
		writeLine(&b, fmt.Sprintf("  %d x %s", l.Quantity, money.Format(l.UnitPrice)), money.Format(l.Total()))
	}
	rule(&b)
	writeLine(&b, "Subtotal", money.Format(o.Subtotal))
	if o.Discount > 0 {
		label := "Discount"
		if o.CouponCode != "" {
			label = fmt.Sprintf("Discount (%s)", o.CouponCode)
		}
		writeLine(&b, label, "-"+money.Format(o.Discount))
	}
	for _, t := range o.TaxLines {
		writeLine(&b, fmt.Sprintf("%s %s", t.Name, formatRate(t.RateBps)), money.Format(t.Amount))
	}
	rule(&b)
	writeLine(&b, "TOTAL", money.Format(o.Total))
	writeLine(&b, "Paid by", strings.ToUpper(o.PaymentMethod))
	return []byte(b.String())
}

// RenderKOT produces the kitchen order ticket: items and quantities only, no
// prices.
func RenderKOT(o order.FinalizedOrder) []byte {
	var b strings.Builder
	writeCentered(&b, "KOT")
	writeLine(&b, "Order", o.Number)
	writeLine(&b, "Placed", o.PlacedAt.Format("15:04"))
	rule(&b)
	for _, l := range o.Lines {
		writeLine(&b, l.Name, fmt.Sprintf("x%d", l.Quantity))
	}
	return []byte(b.String())
}

func formatRate(bps int64) string {
	if bps%100 == 0 {
		return fmt.Sprintf("%d%%", bps/100)
	}
	return fmt.Sprintf("%d.%d%%", bps/100, (bps%100)/10)
}

func writeLine(b *strings.Builder, left, right string) {
	pad := width - len([]rune(left)) - len([]rune(right))
	if pad < 1 {
		pad = 1
	}
	b.WriteString(left)
	b.WriteString(strings.Repeat(" ", pad))
	b.WriteString(right)
	b.WriteByte('\n')
}

func writeCentered(b *strings.Builder, text string) {
	pad := (width - len(text)) / 2
	if pad < 0 {
		pad = 0
	}
	b.WriteString(strings.Repeat(" ", pad))
	b.WriteString(text)
	b.WriteByte('\n')
}

func rule(b *strings.Builder) {
	b.WriteString(strings.Repeat("-", width))
	b.WriteByte('\n')
}
