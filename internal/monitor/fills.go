package monitor

import (
	"sort"

	"github.com/web3guy0/hypertrack/internal/hyperliquid"
)

// byTimeDesc returns a copy of fills sorted newest first. Input order from
// the API is not trusted; only timestamps are.
func byTimeDesc(fills []hyperliquid.Fill) []hyperliquid.Fill {
	sorted := append([]hyperliquid.Fill(nil), fills...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Time > sorted[j].Time
	})
	return sorted
}

// findRelevantFill locates the most recent fill for coin that matches the
// transition kind: open (flat before, open after), close (open before, flat
// after) or reduce (open on both sides, smaller after). Falls back to the
// most recent fill for the coin, or nil when the coin has no fills at all.
func findRelevantFill(coin string, fills []hyperliquid.Fill, eventType EventType) *hyperliquid.Fill {
	sorted := byTimeDesc(fills)
	for i := range sorted {
		fill := sorted[i]
		if fill.Coin != coin {
			continue
		}
		start := hyperliquid.Float(fill.StartPosition)
		end := fill.EndPosition()
		absStart, absEnd := abs(start), abs(end)

		switch eventType {
		case EventOpened:
			if absStart <= SizeEpsilon && absEnd > SizeEpsilon {
				return &sorted[i]
			}
		case EventClosed:
			if absStart > SizeEpsilon && absEnd <= SizeEpsilon {
				return &sorted[i]
			}
		case EventReduced:
			if absStart > SizeEpsilon && absEnd > SizeEpsilon && absEnd < absStart-SizeEpsilon {
				return &sorted[i]
			}
		}
	}
	for i := range sorted {
		if sorted[i].Coin == coin {
			return &sorted[i]
		}
	}
	return nil
}

// OrderAveragePrice computes the size-weighted average price of the fills
// belonging to the same order as the reference fill, linked by transaction
// hash when available, else by exact timestamp. With no linked fills the
// reference alone is used; with no usable sizes its price is returned as is.
func OrderAveragePrice(coin string, reference *hyperliquid.Fill, fills []hyperliquid.Fill) float64 {
	if reference == nil {
		return 0
	}

	targetHash := reference.TxHash()
	targetTime := reference.Time

	var relevant []hyperliquid.Fill
	for _, fill := range fills {
		if fill.Coin != coin {
			continue
		}
		if targetHash != "" && targetHash != "N/A" {
			if fill.TxHash() == targetHash {
				relevant = append(relevant, fill)
			}
		} else if fill.Time == targetTime {
			relevant = append(relevant, fill)
		}
	}
	if len(relevant) == 0 {
		relevant = []hyperliquid.Fill{*reference}
	}

	var totalValue, totalSize float64
	for _, fill := range relevant {
		price := hyperliquid.Float(fill.Px)
		size := abs(hyperliquid.Float(fill.Sz))
		if price <= 0 || size <= 0 {
			continue
		}
		totalValue += price * size
		totalSize += size
	}

	if totalSize > SizeEpsilon {
		return totalValue / totalSize
	}
	return hyperliquid.Float(reference.Px)
}

// FullCloseAveragePrice reconstructs the average exit price of a full close
// by walking fills newest first and greedily allocating the previous position
// size across fills that moved the position toward zero. Returns 0 when no
// fill qualifies.
func FullCloseAveragePrice(coin string, fills []hyperliquid.Fill, previous Position) float64 {
	targetSize := previous.AbsSize()
	if targetSize <= SizeEpsilon {
		return 0
	}
	direction := Sign(previous.Size)

	remaining := targetSize
	var totalValue, totalSize float64

	for _, fill := range byTimeDesc(fills) {
		if fill.Coin != coin {
			continue
		}
		price := hyperliquid.Float(fill.Px)
		size := hyperliquid.Float(fill.Sz)
		if price <= 0 || size <= 0 {
			continue
		}

		start := hyperliquid.Float(fill.StartPosition)
		end := fill.EndPosition()

		reduces := false
		if direction > 0 {
			reduces = end < start-SizeEpsilon
		} else if direction < 0 {
			reduces = end > start+SizeEpsilon
		}
		if !reduces {
			continue
		}

		contribution := size
		if remaining < contribution {
			contribution = remaining
		}
		totalValue += price * contribution
		totalSize += contribution
		remaining -= contribution
		if remaining <= SizeEpsilon {
			break
		}
	}

	if totalSize > SizeEpsilon {
		return totalValue / totalSize
	}
	return 0
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
