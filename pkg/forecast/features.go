package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/pricewatch/pricewatch/models"
)

// featureRow is one engineered sample of a product's price series: days
// since the first observation, day of week (Monday=0), previous observation's
// price and a 7-point trailing moving average. Price is the target.
type featureRow struct {
	T     float64
	DOW   float64
	Lag1  float64
	MA7   float64
	Price float64
}

// removeOutliers keeps only points within 3 standard deviations of the mean
// price, re-sorted by time.
func removeOutliers(points []models.PricePoint) []models.PricePoint {
	if len(points) == 0 {
		return nil
	}

	var sum float64
	for _, pt := range points {
		sum += pt.Price
	}
	mean := sum / float64(len(points))

	var sqDiff float64
	for _, pt := range points {
		sqDiff += (pt.Price - mean) * (pt.Price - mean)
	}
	// Sample standard deviation; a single point has no spread to filter on.
	std := 0.0
	if len(points) > 1 {
		std = math.Sqrt(sqDiff / float64(len(points)-1))
	}

	kept := make([]models.PricePoint, 0, len(points))
	for _, pt := range points {
		if math.Abs(pt.Price-mean) <= 3*std || std == 0 {
			kept = append(kept, pt)
		}
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].Timestamp.Before(kept[j].Timestamp) })
	return kept
}

// engineerFeatures builds feature rows for every point except the first,
// whose lag-1 price is undefined. The moving-average window shrinks near the
// start of the series instead of requiring seven points.
func engineerFeatures(points []models.PricePoint) []featureRow {
	if len(points) < 2 {
		return nil
	}

	first := points[0].Timestamp
	rows := make([]featureRow, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		pt := points[i]
		rows = append(rows, featureRow{
			T:     daysBetween(first, pt.Timestamp),
			DOW:   mondayIndexedWeekday(pt.Timestamp),
			Lag1:  points[i-1].Price,
			MA7:   trailingMean(points, i, 7),
			Price: pt.Price,
		})
	}
	return rows
}

// trailingMean averages the window of up to `window` prices ending at index i
// inclusive.
func trailingMean(points []models.PricePoint, i, window int) float64 {
	start := i - window + 1
	if start < 0 {
		start = 0
	}
	var sum float64
	for j := start; j <= i; j++ {
		sum += points[j].Price
	}
	return sum / float64(i-start+1)
}

func daysBetween(from, to time.Time) float64 {
	return math.Floor(to.Sub(from).Hours() / 24)
}

// mondayIndexedWeekday maps Monday to 0 through Sunday to 6.
func mondayIndexedWeekday(t time.Time) float64 {
	return float64((int(t.Weekday()) + 6) % 7)
}
