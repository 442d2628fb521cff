package indicators

import (
	"math"

	"daily_loop/internal/models"
)

// Indicator functions are pure and deterministic. Short or malformed series
// degrade to documented neutral defaults instead of failing the caller:
// ATR returns 0.0 and RSI returns 50.0 when history is insufficient.

// epsilon substituted for a zero average loss so RSI never divides by zero.
const rsiEpsilon = 0.0001

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|).
func TrueRange(high, low, prevClose float64) float64 {
	tr := high - low
	if v := math.Abs(high - prevClose); v > tr {
		tr = v
	}
	if v := math.Abs(low - prevClose); v > tr {
		tr = v
	}
	return tr
}

// ATR computes the simple rolling mean of true range over the last `period`
// bars. Returns 0.0 when fewer than period+1 bars exist.
func ATR(bars []models.Bar, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return 0.0
	}
	sum := 0.0
	for i := len(bars) - period; i < len(bars); i++ {
		sum += TrueRange(bars[i].High, bars[i].Low, bars[i-1].Close)
	}
	return sum / float64(period)
}

// ATRSeries returns the rolling ATR for every bar index where a full window
// exists. Element j corresponds to bars[period+j]; the last element equals
// ATR(bars, period). Returns nil when fewer than period+1 bars exist.
func ATRSeries(bars []models.Bar, period int) []float64 {
	if period <= 0 || len(bars) < period+1 {
		return nil
	}
	tr := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		tr = append(tr, TrueRange(bars[i].High, bars[i].Low, bars[i-1].Close))
	}
	out := make([]float64, 0, len(tr)-period+1)
	sum := 0.0
	for i, v := range tr {
		sum += v
		if i >= period {
			sum -= tr[i-period]
		}
		if i >= period-1 {
			out = append(out, sum/float64(period))
		}
	}
	return out
}

// RSI computes the relative strength index from the rolling mean of gains
// vs. losses over the last `period` price changes. Returns the neutral 50.0
// when fewer than period+1 closes exist; never errors.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50.0
	}
	var gain, loss float64
	for i := len(closes) - period; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gain += change
		} else {
			loss -= change
		}
	}
	avgGain := gain / float64(period)
	avgLoss := loss / float64(period)
	if avgLoss == 0 {
		avgLoss = rsiEpsilon
	}
	rs := avgGain / avgLoss
	return 100.0 - 100.0/(1.0+rs)
}

// SMA computes the simple moving average of the last `period` values.
// The second return is false when there is not enough data.
func SMA(values []float64, period int) (float64, bool) {
	if period <= 0 || len(values) < period {
		return 0, false
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period), true
}

// Volatility returns the standard deviation of simple daily returns.
func Volatility(closes []float64) float64 {
	if len(closes) < 3 {
		return 0.0
	}
	returns := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, closes[i]/closes[i-1]-1)
	}
	if len(returns) < 2 {
		return 0.0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	varSum := 0.0
	for _, r := range returns {
		d := r - mean
		varSum += d * d
	}
	// Sample variance, matching the usual stddev of a returns series.
	return math.Sqrt(varSum / float64(len(returns)-1))
}

// RelativeVolume returns the 20-day average volume and the latest bar's
// volume relative to it. With fewer than 20 bars the average falls back to
// the latest volume and the ratio to neutral 1.0.
func RelativeVolume(bars []models.Bar) (avg int64, rel float64) {
	if len(bars) == 0 {
		return 0, 1.0
	}
	latest := bars[len(bars)-1].Volume
	if len(bars) < 20 {
		return latest, 1.0
	}
	var sum int64
	for i := len(bars) - 20; i < len(bars); i++ {
		sum += bars[i].Volume
	}
	avg = sum / 20
	if avg <= 0 {
		return avg, 1.0
	}
	return avg, float64(latest) / float64(avg)
}

// PercentileRank returns where `current` ranks inside `series`, 0-100.
// Ties take the average rank, so the last element of a distinct series
// ranks at 100.
func PercentileRank(series []float64, current float64) float64 {
	if len(series) == 0 {
		return 0.0
	}
	var less, equal float64
	for _, v := range series {
		switch {
		case v < current:
			less++
		case v == current:
			equal++
		}
	}
	rank := less + (equal+1)/2
	return rank / float64(len(series)) * 100.0
}

// ExpansionRatio returns the last ATR value divided by the mean of the last
// `window` ATR values, 1.0 when that mean is not positive.
func ExpansionRatio(atrSeries []float64, window int) float64 {
	if len(atrSeries) == 0 || window <= 0 {
		return 1.0
	}
	start := len(atrSeries) - window
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for _, v := range atrSeries[start:] {
		sum += v
	}
	mean := sum / float64(len(atrSeries)-start)
	if mean <= 0 {
		return 1.0
	}
	return atrSeries[len(atrSeries)-1] / mean
}

// Regime maps an ATR expansion ratio to a volatility regime label and the
// position size multiplier applied to suggested share counts.
func Regime(expansionRatio float64) (label string, multiplier float64) {
	switch {
	case expansionRatio >= 2.0:
		return "High Volatility Regime", 0.5
	case expansionRatio >= 1.5:
		return "Elevated Volatility", 0.75
	case expansionRatio <= 0.5:
		return "Low Volatility", 1.0
	default:
		return "Normal", 1.0
	}
}

// TrendLabel classifies the trend from price vs. the 50/200-day SMAs.
// A nil sma200 means not enough history; downstream treats that label as a
// forced HOLD.
func TrendLabel(price float64, sma50, sma200 *float64) string {
	if sma200 == nil {
		return "Insufficient data (need 200 days)"
	}
	if price > *sma200 {
		return "Bullish (above 200 SMA)"
	}
	if sma50 != nil && price < *sma50 {
		return "Bearish (below 50 SMA)"
	}
	return "Neutral / Sideways"
}
