package monitor

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/hypertrack/internal/hyperliquid"
)

// DiffInput is everything one wallet diff needs, fetched ahead of time.
type DiffInput struct {
	Address  string
	Previous map[string]Position
	Snapshot []hyperliquid.RawPosition
	Fills    []hyperliquid.Fill
	Mids     map[string]float64
	Balance  float64

	// IncludeSnapshot evaluates snapshot/empty summaries (full-scan runs).
	IncludeSnapshot bool
	// ForceSnapshot bypasses the content-hash gate.
	ForceSnapshot bool
	// SuppressEvents records markers without emitting delta messages.
	SuppressEvents bool
}

// Diff compares the previous positions of one wallet against a fresh
// snapshot and returns the replacement position map plus the lifecycle
// events to deliver, in order. Meta is updated in place: dedup markers,
// the empty-notified flag and the snapshot content hash.
//
// Emission rules, per coin present in the snapshot:
//   - same direction, smaller size: Reduced
//   - same direction, same or larger size: silent (adds are deliberate
//     non-events; notifying every increase would spam)
//   - opposite direction: Closed for the old side, then fall through to
//     open detection, so a reversal yields Closed followed by Opened
//   - no previous position: Opened
//
// Coins that vanished from the snapshot close exactly like the reversal
// close path.
func Diff(in DiffInput, meta *WalletMeta) (map[string]Position, []Event) {
	current := make(map[string]Position, len(in.Snapshot))
	var events []Event

	appendEvent := func(t EventType, coin, message string) {
		if in.SuppressEvents {
			return
		}
		events = append(events, Event{Type: t, Coin: coin, Address: in.Address, Message: message})
	}

	for _, raw := range in.Snapshot {
		if raw.Coin == "" {
			continue
		}
		pos := PositionFromRaw(raw)
		coin := pos.Coin
		current[coin] = pos
		meta.EmptyNotified = false

		currentPrice := in.Mids[coin]
		if currentPrice <= 0 {
			log.Warn().Str("coin", coin).Msg("Current price unavailable")
		}

		cm := meta.coin(coin)
		previous, hasPrevious := in.Previous[coin]
		processed := false

		if hasPrevious {
			prevSign := Sign(previous.Size)
			currSign := Sign(pos.Size)

			switch {
			case prevSign != 0 && currSign != 0 && prevSign == currSign:
				if pos.AbsSize() < previous.AbsSize()-SizeEpsilon {
					fill := findRelevantFill(coin, in.Fills, EventReduced)
					id := eventID(EventReduced, coin, fill, &previous)
					if cm.LastReduceID != id {
						td := buildTradeDetails(previous, fill)
						if avg := OrderAveragePrice(coin, fill, in.Fills); avg > 0 {
							td.Price = avg
						}
						appendEvent(EventReduced, coin,
							formatReduced(in.Address, previous, pos, td, in.Balance, currentPrice))
						cm.LastReduceID = id
					}
				}
				processed = true

			case prevSign != 0 && currSign != 0 && prevSign != currSign:
				// Reversal: close the old side, then fall through to open
				// detection for the new side.
				fill := findRelevantFill(coin, in.Fills, EventClosed)
				id := eventID(EventClosed, coin, fill, &previous)
				if cm.LastCloseID != id {
					td := buildTradeDetails(previous, fill)
					avg := FullCloseAveragePrice(coin, in.Fills, previous)
					if avg <= 0 {
						avg = OrderAveragePrice(coin, fill, in.Fills)
					}
					if avg > 0 {
						td.Price = avg
					}
					appendEvent(EventClosed, coin,
						formatClosed(in.Address, previous, td, in.Balance, currentPrice))
					cm.LastCloseID = id
				}
				cm.LastReduceID = ""
				cm.LastOpenID = ""
			}
		}

		if processed {
			continue
		}

		fill := findRelevantFill(coin, in.Fills, EventOpened)
		id := eventID(EventOpened, coin, fill, &pos)
		if cm.LastOpenID == id {
			continue
		}

		td := buildTradeDetails(pos, fill)
		if entry := pos.EffectiveEntryPrice(); entry > 0 {
			td.Price = entry
		} else if avg := OrderAveragePrice(coin, fill, in.Fills); avg > 0 {
			td.Price = avg
		}
		appendEvent(EventOpened, coin,
			formatOpened(in.Address, pos, td, in.Balance, currentPrice))
		cm.LastOpenID = id
		cm.LastCloseID = ""
		cm.LastReduceID = ""
	}

	// Coins that disappeared from the snapshot entirely: full close.
	for coin, previous := range in.Previous {
		if _, stillOpen := current[coin]; stillOpen {
			continue
		}
		currentPrice := in.Mids[coin]
		cm := meta.coin(coin)

		fill := findRelevantFill(coin, in.Fills, EventClosed)
		id := eventID(EventClosed, coin, fill, &previous)
		if cm.LastCloseID == id {
			continue
		}

		td := buildTradeDetails(previous, fill)
		avg := FullCloseAveragePrice(coin, in.Fills, previous)
		if avg <= 0 {
			avg = OrderAveragePrice(coin, fill, in.Fills)
		}
		if avg > 0 {
			td.Price = avg
		}
		appendEvent(EventClosed, coin,
			formatClosed(in.Address, previous, td, in.Balance, currentPrice))
		cm.LastCloseID = id
		cm.LastOpenID = ""
		cm.LastReduceID = ""
	}

	events = appendSummary(in, meta, current, events)

	return current, events
}

// appendSummary handles the empty-wallet notification and the full snapshot
// summary, both gated by a content hash so unchanged state does not
// re-notify. Snapshot summaries go first in the event order.
func appendSummary(in DiffInput, meta *WalletMeta, current map[string]Position, events []Event) []Event {
	if len(current) == 0 {
		message := formatEmptyWallet(in.Address, in.Balance)
		hash := contentHash(message)
		if in.IncludeSnapshot {
			if in.ForceSnapshot || hash != meta.LastSnapshotHash {
				events = append(events, Event{Type: EventSnapshot, Address: in.Address, Message: message})
			}
			meta.EmptyNotified = true
			meta.LastSnapshotHash = hash
		} else if !meta.EmptyNotified {
			events = append(events, Event{Type: EventEmpty, Address: in.Address, Message: message})
			meta.EmptyNotified = true
			meta.LastSnapshotHash = hash
		}
		return events
	}

	meta.EmptyNotified = false

	if in.IncludeSnapshot {
		message := formatWalletSnapshot(in.Address, current, in.Mids, in.Balance)
		if message != "" {
			hash := contentHash(message)
			if in.ForceSnapshot || hash != meta.LastSnapshotHash {
				events = append([]Event{{Type: EventSnapshot, Address: in.Address, Message: message}}, events...)
			}
			meta.LastSnapshotHash = hash
		}
	}
	return events
}

func contentHash(message string) string {
	sum := sha256.Sum256([]byte(message))
	return hex.EncodeToString(sum[:])
}
