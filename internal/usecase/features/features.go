package features

import (
	"math"

	marketv1 "github.com/tironinho/kronos-sub000/internal/domain/market/v1"
	signalv1 "github.com/tironinho/kronos-sub000/internal/domain/signal/v1"
)

const secondsPerYear = 365 * 24 * 3600.0

// OFI computes the order-flow imbalance over a trade window: the signed sum of
// trade quantities (buy positive, sell negative) normalized by total volume.
// The result is in [-1, 1]. A window with zero volume yields no value.
func OFI(ticks []marketv1.Tick) signalv1.Feature {
	var signed, total float64
	for _, t := range ticks {
		signed += t.SignedQuantity()
		total += t.Quantity
	}
	if total == 0 {
		return signalv1.NoFeature()
	}
	return signalv1.NewFeature(signed / total)
}

// ZScore computes the z-score of the most recent value against the sample
// mean and standard deviation of the series. A zero deviation yields no value
// so callers treat it as "no signal" rather than dividing by zero.
func ZScore(values []float64) signalv1.Feature {
	if len(values) < 2 {
		return signalv1.NoFeature()
	}
	m := mean(values)
	sd := stddev(values, m)
	if sd == 0 {
		return signalv1.NoFeature()
	}
	return signalv1.NewFeature((values[0] - m) / sd)
}

// Momentum computes the micro-momentum of a trade window: the price change
// between the first and last trade, in basis points. Windows whose traded
// volume is below minVolume are treated as low-liquidity noise and yield no
// value.
func Momentum(ticks []marketv1.Tick, minVolume float64) signalv1.Feature {
	if len(ticks) < 2 {
		return signalv1.NoFeature()
	}
	var total float64
	for _, t := range ticks {
		total += t.Quantity
	}
	if total < minVolume {
		return signalv1.NoFeature()
	}
	first := ticks[0].Price
	last := ticks[len(ticks)-1].Price
	if first <= 0 {
		return signalv1.NoFeature()
	}
	return signalv1.NewFeature((last - first) / first * 10000)
}

// MeanReversionDeviation computes the distance of the current mid price from
// the trailing trade-average price, expressed in spread ticks. A missing book
// side or a zero spread yields no value.
func MeanReversionDeviation(ticks []marketv1.Tick, depth *marketv1.DepthSnapshot) signalv1.Feature {
	if depth == nil || len(ticks) == 0 {
		return signalv1.NoFeature()
	}
	mid, ok := depth.MidPrice()
	if !ok {
		return signalv1.NoFeature()
	}
	bid, _ := depth.BestBid()
	ask, _ := depth.BestAsk()
	spread := ask.Price - bid.Price
	if spread <= 0 {
		return signalv1.NoFeature()
	}

	var sum float64
	for _, t := range ticks {
		sum += t.Price
	}
	avg := sum / float64(len(ticks))

	return signalv1.NewFeature((mid - avg) / spread)
}

// QueueImbalance computes (bid volume - ask volume) / (bid + ask volume) over
// the top levels of the book. The result is in [-1, 1]. An empty book yields
// no value.
func QueueImbalance(depth *marketv1.DepthSnapshot, levels int) signalv1.Feature {
	if depth == nil || levels <= 0 {
		return signalv1.NoFeature()
	}

	var bidVol, askVol float64
	for i, l := range depth.Bids {
		if i >= levels {
			break
		}
		bidVol += l.Quantity
	}
	for i, l := range depth.Asks {
		if i >= levels {
			break
		}
		askVol += l.Quantity
	}

	total := bidVol + askVol
	if total == 0 {
		return signalv1.NoFeature()
	}
	return signalv1.NewFeature((bidVol - askVol) / total)
}

// VPIN computes a simplified volume-synchronized probability of informed
// trading: the trade window is partitioned into equal-volume buckets and the
// absolute buy/sell imbalance per bucket is averaged.
func VPIN(ticks []marketv1.Tick, buckets int) signalv1.Feature {
	if buckets <= 0 || len(ticks) == 0 {
		return signalv1.NoFeature()
	}

	var total float64
	for _, t := range ticks {
		total += t.Quantity
	}
	if total == 0 {
		return signalv1.NoFeature()
	}

	bucketVolume := total / float64(buckets)
	var sumImbalance float64
	var bucketBuy, bucketSell, filled float64
	completed := 0

	for _, t := range ticks {
		remaining := t.Quantity
		for remaining > 0 && completed < buckets {
			space := bucketVolume - filled
			take := math.Min(remaining, space)
			if t.IsBuy() {
				bucketBuy += take
			} else {
				bucketSell += take
			}
			filled += take
			remaining -= take

			if filled >= bucketVolume {
				sumImbalance += math.Abs(bucketBuy-bucketSell) / bucketVolume
				bucketBuy, bucketSell, filled = 0, 0, 0
				completed++
			}
		}
	}

	if completed == 0 {
		return signalv1.NoFeature()
	}
	return signalv1.NewFeature(sumImbalance / float64(completed))
}

// RealizedVolatility computes the annualized standard deviation of log
// returns over a trade window.
func RealizedVolatility(ticks []marketv1.Tick) signalv1.Feature {
	if len(ticks) < 3 {
		return signalv1.NoFeature()
	}

	returns := make([]float64, 0, len(ticks)-1)
	var dtSum float64
	for i := 1; i < len(ticks); i++ {
		prev, cur := ticks[i-1], ticks[i]
		if prev.Price <= 0 || cur.Price <= 0 {
			continue
		}
		returns = append(returns, math.Log(cur.Price/prev.Price))
		dtSum += cur.Timestamp.Sub(prev.Timestamp).Seconds()
	}
	if len(returns) < 2 || dtSum <= 0 {
		return signalv1.NoFeature()
	}

	m := mean(returns)
	sd := stddev(returns, m)
	meanDt := dtSum / float64(len(returns))

	return signalv1.NewFeature(sd * math.Sqrt(secondsPerYear/meanDt))
}

// Skewness computes the third standardized moment of price over a window.
func Skewness(ticks []marketv1.Tick) signalv1.Feature {
	m3, ok := standardizedMoment(ticks, 3)
	if !ok {
		return signalv1.NoFeature()
	}
	return signalv1.NewFeature(m3)
}

// Kurtosis computes the fourth standardized moment of price over a window.
func Kurtosis(ticks []marketv1.Tick) signalv1.Feature {
	m4, ok := standardizedMoment(ticks, 4)
	if !ok {
		return signalv1.NoFeature()
	}
	return signalv1.NewFeature(m4)
}

func standardizedMoment(ticks []marketv1.Tick, order float64) (float64, bool) {
	if len(ticks) < 3 {
		return 0, false
	}
	prices := make([]float64, len(ticks))
	for i, t := range ticks {
		prices[i] = t.Price
	}
	m := mean(prices)
	sd := stddev(prices, m)
	if sd == 0 {
		return 0, false
	}

	var sum float64
	for _, p := range prices {
		sum += math.Pow((p-m)/sd, order)
	}
	return sum / float64(len(prices)), true
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev returns the sample standard deviation around the given mean.
func stddev(values []float64, mean float64) float64 {
	if len(values) < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
