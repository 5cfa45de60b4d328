package monitor

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Alert timestamps are rendered in a fixed UTC+8 offset.
var displayZone = time.FixedZone("UTC+8", 8*3600)

// formatNumber renders a value with thousands separators, trimming trailing
// zeros after the decimal point. Zero renders as "0".
func formatNumber(value float64, decimals int) string {
	if value == 0 {
		return "0"
	}
	formatted := fmt.Sprintf("%.*f", decimals, value)

	neg := strings.HasPrefix(formatted, "-")
	formatted = strings.TrimPrefix(formatted, "-")

	intPart := formatted
	fracPart := ""
	if idx := strings.IndexByte(formatted, '.'); idx >= 0 {
		intPart = formatted[:idx]
		fracPart = strings.TrimRight(formatted[idx+1:], "0")
	}

	var grouped strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(digit)
	}

	out := grouped.String()
	if fracPart != "" {
		out += "." + fracPart
	}
	if neg {
		out = "-" + out
	}
	return out
}

func formatPrice(value float64) string {
	if value <= 0 {
		return "N/A"
	}
	return formatNumber(value, 8)
}

func formatTimestamp(timestampMs int64) string {
	if timestampMs <= 0 {
		return "N/A"
	}
	t := time.UnixMilli(timestampMs).In(displayZone)
	return t.Format("2006-01-02 15:04:05") + " UTC+8"
}

func formatLeverage(leverage float64) string {
	if leverage <= 0 {
		return "N/A"
	}
	return fmt.Sprintf("%.2fx", leverage)
}

func sideLabel(isLong bool) string {
	if isLong {
		return "LONG"
	}
	return "SHORT"
}

func pnlEmoji(pnl float64) string {
	if pnl >= 0 {
		return "🟢"
	}
	return "🔴"
}

func pnlSign(pnl float64) string {
	if pnl >= 0 {
		return ""
	}
	return "-"
}

const divider = "━━━━━━━━━━━━━━━━━━━━"

func walletHeader(address string) string {
	return fmt.Sprintf("💳 <b>Wallet</b>\n<code>%s</code>", address)
}

func coinHeader(coin string, isLong bool, suffix string) string {
	line := fmt.Sprintf("<b>%s/USDC</b> (cross-%s)", coin, sideLabel(isLong))
	if suffix != "" {
		line += " " + suffix
	}
	return divider + "\n" + line + "\n" + divider
}

// formatOpened renders an Opened event.
func formatOpened(address string, pos Position, td tradeDetails, balance, currentPrice float64) string {
	entryPrice := td.Price
	if entryPrice <= 0 {
		entryPrice = pos.EffectiveEntryPrice()
	}

	sizeDisplay := "N/A"
	if pos.AbsSize() > 0 {
		sizeDisplay = formatNumber(pos.AbsSize(), 8)
	}

	return strings.Join([]string{
		"✅ <b>Position Opened</b>",
		"",
		walletHeader(address),
		"",
		coinHeader(pos.Coin, pos.IsLong(), ""),
		"",
		fmt.Sprintf("⚙️ <b>Leverage</b>\n<code>%s</code>", formatLeverage(td.Leverage)),
		"",
		fmt.Sprintf("🕒 <b>Opened At</b>\n<code>%s</code>", formatTimestamp(td.Time)),
		"",
		fmt.Sprintf("🔗 <b>Tx Hash</b>\n<code>%s</code>", td.TxHash),
		"",
		fmt.Sprintf("📦 <b>Size</b>\n<code>%s</code>", sizeDisplay),
		"",
		fmt.Sprintf("💳 <b>Position Value</b>\n<code>$%s</code>", formatNumber(pos.AbsValue(), 2)),
		"",
		fmt.Sprintf("⚖️ <b>Avg Entry Price</b>\n<code>%s</code>", formatPrice(entryPrice)),
		"",
		fmt.Sprintf("💵 <b>Current Price</b>\n<code>%s</code>", formatPrice(currentPrice)),
		"",
		fmt.Sprintf("💰 <b>Balance</b>\n<code>$%s</code>", formatNumber(balance, 2)),
	}, "\n")
}

// formatClosed renders a Closed event for a fully exited position. The close
// price falls back from the reconstructed fill average to an entry-price plus
// unrealized-pnl estimate, then to the current mid.
func formatClosed(address string, previous Position, td tradeDetails, balance, currentPrice float64) string {
	entryPrice := previous.EffectiveEntryPrice()
	size := previous.AbsSize()
	isLong := previous.IsLong()

	closePrice := td.Price
	if closePrice <= 0 && size > 0 && entryPrice > 0 {
		adjustment := previous.UnrealizedPnl / size
		candidate := entryPrice - adjustment
		if isLong {
			candidate = entryPrice + adjustment
		}
		if candidate > 0 {
			closePrice = candidate
		}
	}
	if closePrice <= 0 {
		closePrice = currentPrice
	}

	var realizedPnl float64
	if entryPrice > 0 && closePrice > 0 && size > 0 {
		if isLong {
			realizedPnl = (closePrice - entryPrice) * size
		} else {
			realizedPnl = (entryPrice - closePrice) * size
		}
	} else {
		realizedPnl = previous.UnrealizedPnl
	}

	var pnlPct float64
	if entryPrice > 0 && size > 0 {
		pnlPct = realizedPnl / (entryPrice * size) * 100
	}

	return strings.Join([]string{
		fmt.Sprintf("❌ <b>Position Closed</b> %s", pnlEmoji(realizedPnl)),
		"",
		walletHeader(address),
		"",
		coinHeader(previous.Coin, isLong, ""),
		"",
		fmt.Sprintf("⚙️ <b>Leverage</b>\n<code>%s</code>", formatLeverage(td.Leverage)),
		"",
		fmt.Sprintf("🕒 <b>Closed At</b>\n<code>%s</code>", formatTimestamp(td.Time)),
		"",
		fmt.Sprintf("🔗 <b>Tx Hash</b>\n<code>%s</code>", td.TxHash),
		"",
		fmt.Sprintf("📈 <b>PnL</b>\n<code>%s%s</code> (%s%s%%)",
			pnlSign(realizedPnl), formatNumber(abs(realizedPnl), 2),
			pnlSign(realizedPnl), formatNumber(abs(pnlPct), 2)),
		"",
		fmt.Sprintf("💳 <b>Position Value</b>\n<code>$%s</code>", formatNumber(previous.AbsValue(), 2)),
		"",
		fmt.Sprintf("⚖️ <b>Avg Entry Price</b>\n<code>%s</code>", formatPrice(entryPrice)),
		"",
		fmt.Sprintf("⚖️ <b>Avg Close Price</b>\n<code>%s</code>", formatPrice(closePrice)),
		"",
		fmt.Sprintf("💵 <b>Current Price</b>\n<code>%s</code>", formatPrice(currentPrice)),
		"",
		fmt.Sprintf("💰 <b>Balance</b>\n<code>$%s</code>", formatNumber(balance, 2)),
	}, "\n")
}

// formatReduced renders a Reduced event for a partial close.
func formatReduced(address string, previous, current Position, td tradeDetails, balance, currentPrice float64) string {
	isLong := previous.IsLong()

	closedSize := previous.AbsSize() - current.AbsSize()
	if closedSize <= SizeEpsilon {
		closedSize = abs(td.Size)
	}
	remainingSize := current.AbsSize()

	entryPrice := previous.EffectiveEntryPrice()
	closePrice := td.Price
	if closePrice <= 0 && closedSize > 0 && entryPrice > 0 {
		prevSize := previous.AbsSize()
		var adjustment float64
		if prevSize > SizeEpsilon {
			adjustment = previous.UnrealizedPnl / prevSize
		}
		candidate := entryPrice - adjustment
		if isLong {
			candidate = entryPrice + adjustment
		}
		if candidate > 0 {
			closePrice = candidate
		}
	}
	if closePrice <= 0 {
		closePrice = currentPrice
	}

	var realizedPnl float64
	if closedSize > 0 && entryPrice > 0 && closePrice > 0 {
		if isLong {
			realizedPnl = (closePrice - entryPrice) * closedSize
		} else {
			realizedPnl = (entryPrice - closePrice) * closedSize
		}
	}

	closedSizeDisplay := "N/A"
	if closedSize > 0 {
		closedSizeDisplay = formatNumber(closedSize, 8)
	}
	remainingDisplay := "0"
	if remainingSize > 0 {
		remainingDisplay = formatNumber(remainingSize, 8)
	}

	return strings.Join([]string{
		fmt.Sprintf("♻️ <b>Position Reduced</b> %s", pnlEmoji(realizedPnl)),
		"",
		walletHeader(address),
		"",
		coinHeader(previous.Coin, isLong, ""),
		"",
		fmt.Sprintf("⚖️ <b>Avg Entry Price</b>\n<code>%s</code>", formatPrice(entryPrice)),
		"",
		fmt.Sprintf("⚖️ <b>Close Price</b>\n<code>%s</code>", formatPrice(closePrice)),
		"",
		fmt.Sprintf("📦 <b>Closed Size</b>\n<code>%s</code>", closedSizeDisplay),
		"",
		fmt.Sprintf("📦 <b>Remaining Size</b>\n<code>%s</code>", remainingDisplay),
		"",
		fmt.Sprintf("💳 <b>Closed Value</b>\n<code>$%s</code>", formatNumber(closePrice*closedSize, 2)),
		"",
		fmt.Sprintf("💳 <b>Remaining Value</b>\n<code>$%s</code>", formatNumber(current.AbsValue(), 2)),
		"",
		fmt.Sprintf("📈 <b>Realized PnL</b>\n<code>%s%s</code>",
			pnlSign(realizedPnl), formatNumber(abs(realizedPnl), 2)),
		"",
		fmt.Sprintf("💵 <b>Current Price</b>\n<code>%s</code>", formatPrice(currentPrice)),
		"",
		fmt.Sprintf("💰 <b>Balance</b>\n<code>$%s</code>", formatNumber(balance, 2)),
	}, "\n")
}

// formatEmptyWallet renders the no-open-positions notification.
func formatEmptyWallet(address string, balance float64) string {
	return strings.Join([]string{
		"ℹ️ <b>Wallet Monitor</b>",
		"",
		walletHeader(address),
		"",
		"📭 No open positions or recent trades.",
		"",
		fmt.Sprintf("💰 <b>Balance</b>\n<code>$%s</code>", formatNumber(balance, 2)),
	}, "\n")
}

// formatWalletSnapshot renders the full-scan summary of all open positions,
// coins in sorted order so the content hash is stable.
func formatWalletSnapshot(address string, positions map[string]Position, mids map[string]float64, balance float64) string {
	if len(positions) == 0 {
		return ""
	}

	var totalValue float64
	coins := make([]string, 0, len(positions))
	for coin, pos := range positions {
		coins = append(coins, coin)
		totalValue += pos.AbsValue()
	}
	sort.Strings(coins)

	sections := []string{
		"📊 <b>Position Snapshot</b>",
		"",
		walletHeader(address),
		"",
		fmt.Sprintf("💰 <b>Account Value</b>\n<code>$%s</code>", formatNumber(balance, 2)),
	}
	if totalValue > 0 {
		sections = append(sections, "",
			fmt.Sprintf("💼 <b>Total Position Value</b>\n<code>$%s</code>", formatNumber(totalValue, 2)))
	}

	for _, coin := range coins {
		pos := positions[coin]
		currentPrice := mids[coin]
		entryPrice := pos.EffectiveEntryPrice()
		isLong := pos.IsLong()

		var pnlPct float64
		if entryPrice > 0 && pos.AbsSize() > 0 && currentPrice > 0 {
			if isLong {
				pnlPct = (currentPrice - entryPrice) / entryPrice * 100
			} else {
				pnlPct = (entryPrice - currentPrice) / entryPrice * 100
			}
		}

		sizeDisplay := "N/A"
		if pos.AbsSize() > 0 {
			sizeDisplay = formatNumber(pos.AbsSize(), 8)
		}

		sections = append(sections,
			"",
			coinHeader(coin, isLong, pnlEmoji(pos.UnrealizedPnl)),
			"",
			fmt.Sprintf("📦 <b>Size</b>\n<code>%s</code>", sizeDisplay),
			"",
			fmt.Sprintf("⚙️ <b>Leverage</b>\n<code>%s</code>", formatLeverage(pos.Leverage())),
			"",
			fmt.Sprintf("💳 <b>Position Value</b>\n<code>$%s</code>", formatNumber(pos.AbsValue(), 2)),
			"",
			fmt.Sprintf("⚖️ <b>Avg Entry Price</b>\n<code>%s</code>", formatPrice(entryPrice)),
			"",
			fmt.Sprintf("💵 <b>Current Price</b>\n<code>%s</code>", formatPrice(currentPrice)),
			"",
			fmt.Sprintf("📈 <b>PnL</b>\n<code>%s%s</code> (%s%s%%)",
				pnlSign(pos.UnrealizedPnl), formatNumber(abs(pos.UnrealizedPnl), 2),
				pnlSign(pos.UnrealizedPnl), formatNumber(abs(pnlPct), 2)),
		)
	}

	return strings.Join(sections, "\n")
}
