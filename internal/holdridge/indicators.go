// Package holdridge computes the Holdridge bioclimatic indicators and
// classifies points into life zones with a fuzzy rule base.
package holdridge

import (
	"errors"
	"fmt"
	"math"
)

// PETFactor converts biotemperature to potential evapotranspiration (mm/yr).
const PETFactor = 58.93

// Physical ranges of the three indicators. Values outside are clipped.
var (
	ABTRange = Range{Lo: 0.375, Hi: 30}
	APPRange = Range{Lo: 62.5, Hi: 16000}
	PERRange = Range{Lo: 0.125, Hi: 32}
)

// MaxMissingMonths is how many monthly values may be interpolated.
const MaxMissingMonths = 3

var (
	ErrTooManyGaps = errors.New("too many missing months")
	ErrNotFinite   = errors.New("indicator is not finite")
)

// Range is a closed physical interval.
type Range struct{ Lo, Hi float64 }

// Clip limits v to the range. NaN passes through.
func (r Range) Clip(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return math.Max(r.Lo, math.Min(r.Hi, v))
}

// Indicators are the three Holdridge coordinates of a point. Missing values
// are NaN.
type Indicators struct {
	ABT float64 // annual biotemperature, °C
	APP float64 // annual precipitation, mm
	PER float64 // potential evapotranspiration ratio
}

// Complete fills PER from ABT and APP when it is missing.
func (in Indicators) Complete() (Indicators, error) {
	if !math.IsNaN(in.PER) {
		return in, nil
	}
	per, err := PotentialEvapotranspirationRatio(in.ABT, in.APP)
	if err != nil {
		return in, err
	}
	in.PER = per
	return in, nil
}

func (in Indicators) String() string {
	return fmt.Sprintf("ABT=%.2f APP=%.1f PER=%.3f", in.ABT, in.APP, in.PER)
}

// Biotemperature averages twelve monthly mean temperatures after clipping
// each to [0, 30]. Up to three missing months are interpolated.
func Biotemperature(monthlyMeans [12]float64) (float64, error) {
	months := monthlyMeans
	for i, t := range months {
		if math.IsInf(t, 0) {
			return math.NaN(), fmt.Errorf("biotemperature: month %d is %v: %w", i+1, t, ErrNotFinite)
		}
		if !math.IsNaN(t) {
			months[i] = math.Max(0, math.Min(30, t))
		}
	}
	filled, err := fillGaps(months)
	if err != nil {
		return math.NaN(), fmt.Errorf("biotemperature: %w", err)
	}
	sum := 0.0
	for _, t := range filled {
		sum += t
	}
	return ABTRange.Clip(sum / 12), nil
}

// AnnualPrecipitation sums twelve monthly totals. Up to three missing
// months are interpolated.
func AnnualPrecipitation(monthlyTotals [12]float64) (float64, error) {
	filled, err := fillGaps(monthlyTotals)
	if err != nil {
		return math.NaN(), fmt.Errorf("annual precipitation: %w", err)
	}
	sum := 0.0
	for _, p := range filled {
		if p < 0 {
			return math.NaN(), fmt.Errorf("annual precipitation: negative monthly total %v: %w", p, ErrNotFinite)
		}
		sum += p
	}
	return APPRange.Clip(sum), nil
}

// PotentialEvapotranspirationRatio returns ABT·58.93/APP with APP clipped to
// its range first and the ratio clipped to the PER range.
func PotentialEvapotranspirationRatio(abt, app float64) (float64, error) {
	if !finite(abt) || !finite(app) {
		return math.NaN(), fmt.Errorf("PER from ABT=%v APP=%v: %w", abt, app, ErrNotFinite)
	}
	return PERRange.Clip(abt * PETFactor / APPRange.Clip(app)), nil
}

// fillGaps interpolates NaN months linearly between the nearest known
// months on either side, wrapping around the year.
func fillGaps(months [12]float64) ([12]float64, error) {
	missing := 0
	for _, v := range months {
		if math.IsNaN(v) {
			missing++
		} else if math.IsInf(v, 0) {
			return months, ErrNotFinite
		}
	}
	if missing > MaxMissingMonths {
		return months, fmt.Errorf("%d of 12 months missing (max %d): %w", missing, MaxMissingMonths, ErrTooManyGaps)
	}
	out := months
	for i, v := range months {
		if !math.IsNaN(v) {
			continue
		}
		back, fwd := 1, 1
		for math.IsNaN(months[(i-back+12)%12]) {
			back++
		}
		for math.IsNaN(months[(i+fwd)%12]) {
			fwd++
		}
		prev, next := months[(i-back+12)%12], months[(i+fwd)%12]
		out[i] = prev + (next-prev)*float64(back)/float64(back+fwd)
	}
	return out, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
