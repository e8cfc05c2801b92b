package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a signal or order.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// ParseSide accepts LONG/SHORT as well as the exchange spelling Buy/Sell.
func ParseSide(s string) (Side, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LONG", "BUY":
		return SideLong, nil
	case "SHORT", "SELL":
		return SideShort, nil
	default:
		return "", fmt.Errorf("unknown side %q", s)
	}
}

func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

// Opposite returns the other leg.
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// PositionMode is the account-wide position mode.
type PositionMode string

const (
	PositionModeOneWay PositionMode = "ONE_WAY"
	PositionModeHedge  PositionMode = "HEDGE"
)

// PositionIndex selects the position leg an order applies to.
type PositionIndex int

const (
	PositionIndexOneWay PositionIndex = 0
	PositionIndexLong   PositionIndex = 1
	PositionIndexShort  PositionIndex = 2
)

func (p PositionIndex) String() string {
	switch p {
	case PositionIndexOneWay:
		return "one-way"
	case PositionIndexLong:
		return "hedge-long"
	case PositionIndexShort:
		return "hedge-short"
	default:
		return fmt.Sprintf("index-%d", int(p))
	}
}

// TradingSignal is a directional intent produced outside the engine.
// It is consumed exactly once.
type TradingSignal struct {
	ID                string           `json:"id"`
	Symbol            string           `json:"symbol"`
	Side              Side             `json:"side"`
	Confidence        float64          `json:"confidence"`
	SuggestedQuantity *decimal.Decimal `json:"suggested_quantity,omitempty"`
	EntryPriceHint    *decimal.Decimal `json:"entry_price,omitempty"`
	StopLoss          *decimal.Decimal `json:"stop_loss,omitempty"`
	TakeProfit        *decimal.Decimal `json:"take_profit,omitempty"`
	StagedExit        bool             `json:"staged_exit,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
}
