package metering

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tariff describes the cost model for one persona engagement. A tariff may
// carry an interval rate, a per-message rate, or both; it is fixed for the
// lifetime of the session that uses it.
type Tariff struct {
	CoinsPerInterval int64         // coins charged per Interval of active time
	Interval         time.Duration // canonical interval, e.g. one minute
	CoinsPerMessage  int64         // coins charged per outbound user message

	// SmoothDrain prorates CoinsPerInterval over DrainTick sized ticks
	// instead of charging the whole rate once per Interval. Whole coins are
	// debited as they accrue; the fractional remainder carries forward and
	// is forfeited when the session terminates.
	SmoothDrain bool
	DrainTick   time.Duration // defaults to one second
}

// Metered reports whether the tariff bills by elapsed time at all.
func (t Tariff) Metered() bool {
	return t.CoinsPerInterval > 0
}

// tickEvery returns the wall-clock spacing of billing ticks.
func (t Tariff) tickEvery() time.Duration {
	if t.SmoothDrain {
		if t.DrainTick > 0 {
			return t.DrainTick
		}
		return time.Second
	}
	return t.Interval
}

// perTick returns the coin amount accrued by a single tick.
func (t Tariff) perTick() decimal.Decimal {
	rate := decimal.NewFromInt(t.CoinsPerInterval)
	if !t.SmoothDrain {
		return rate
	}
	return rate.
		Mul(decimal.NewFromInt(int64(t.tickEvery()))).
		Div(decimal.NewFromInt(int64(t.Interval)))
}
