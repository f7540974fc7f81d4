package pricing

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMalformedInput is returned for bars that break the OHLC bounds or
// the strictly increasing time order, and for unparsable rows.
var ErrMalformedInput = errors.New("malformed input")

// Bar is one OHLC observation of one instrument.
type Bar struct {
	Time time.Time `json:"time"`

	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`

	Volume float64 `json:"volume,omitempty"` // optional
}

// Validate checks that all prices are finite and non-negative and that
// Low <= Open, Close <= High.
func (b Bar) Validate() error {
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("bar %s: bad price %v: %w", b.Time.Format(time.RFC3339), v, ErrMalformedInput)
		}
	}
	if b.Low > b.High {
		return fmt.Errorf("bar %s: low %v above high %v: %w", b.Time.Format(time.RFC3339), b.Low, b.High, ErrMalformedInput)
	}
	if b.Open < b.Low || b.Open > b.High {
		return fmt.Errorf("bar %s: open %v outside [%v, %v]: %w", b.Time.Format(time.RFC3339), b.Open, b.Low, b.High, ErrMalformedInput)
	}
	if b.Close < b.Low || b.Close > b.High {
		return fmt.Errorf("bar %s: close %v outside [%v, %v]: %w", b.Time.Format(time.RFC3339), b.Close, b.Low, b.High, ErrMalformedInput)
	}
	return nil
}

// ValidateSeries validates every bar and the strictly increasing order
// of their times.
func ValidateSeries(bars []Bar) error {
	for i, b := range bars {
		if err := b.Validate(); err != nil {
			return fmt.Errorf("bar %d: %w", i, err)
		}
		if i > 0 && !b.Time.After(bars[i-1].Time) {
			return fmt.Errorf("bar %d: time %s not after %s: %w",
				i, b.Time.Format(time.RFC3339), bars[i-1].Time.Format(time.RFC3339), ErrMalformedInput)
		}
	}
	return nil
}

// sameAs reports whether two bars are identical rows.
func (b Bar) sameAs(o Bar) bool {
	return b.Time.Equal(o.Time) &&
		b.Open == o.Open && b.High == o.High && b.Low == o.Low &&
		b.Close == o.Close && b.Volume == o.Volume
}
