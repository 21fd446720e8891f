package forecast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pricewatch/pricewatch/models"
)

func dailySeries(start time.Time, prices ...float64) []models.PricePoint {
	points := make([]models.PricePoint, len(prices))
	for i, price := range prices {
		points[i] = models.PricePoint{
			Timestamp: start.AddDate(0, 0, i),
			Price:     price,
		}
	}
	return points
}

func TestRemoveOutliersDropsExtremePoint(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	points := dailySeries(start,
		100, 100, 100, 100, 100, 100, 100, 100, 100, 100, 10000)

	kept := removeOutliers(points)
	require.Len(t, kept, 10)
	for _, pt := range kept {
		assert.Equal(t, float64(100), pt.Price)
	}
}

func TestRemoveOutliersKeepsConstantSeries(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	points := dailySeries(start, 50, 50, 50, 50, 50)

	kept := removeOutliers(points)
	assert.Len(t, kept, 5)
}

func TestRemoveOutliersSortsByTime(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	points := []models.PricePoint{
		{Timestamp: start.AddDate(0, 0, 2), Price: 30},
		{Timestamp: start, Price: 10},
		{Timestamp: start.AddDate(0, 0, 1), Price: 20},
	}

	kept := removeOutliers(points)
	require.Len(t, kept, 3)
	assert.Equal(t, float64(10), kept[0].Price)
	assert.Equal(t, float64(20), kept[1].Price)
	assert.Equal(t, float64(30), kept[2].Price)
}

func TestEngineerFeatures(t *testing.T) {
	// 2026-01-05 is a Monday.
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	points := dailySeries(start, 10, 20, 30, 40)

	rows := engineerFeatures(points)
	require.Len(t, rows, 3)

	// Tuesday, one day in: lag is Monday's price and the trailing mean spans
	// both observed points.
	assert.Equal(t, featureRow{T: 1, DOW: 1, Lag1: 10, MA7: 15, Price: 20}, rows[0])
	assert.Equal(t, featureRow{T: 2, DOW: 2, Lag1: 20, MA7: 20, Price: 30}, rows[1])
	assert.Equal(t, featureRow{T: 3, DOW: 3, Lag1: 30, MA7: 25, Price: 40}, rows[2])
}

func TestEngineerFeaturesTooShort(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	assert.Nil(t, engineerFeatures(dailySeries(start, 10)))
	assert.Nil(t, engineerFeatures(nil))
}

func TestTrailingMeanWindowCaps(t *testing.T) {
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	points := dailySeries(start, 1, 2, 3, 4, 5, 6, 7, 100)

	// At the last index only the most recent seven prices contribute.
	got := trailingMean(points, 7, 7)
	assert.InDelta(t, (2+3+4+5+6+7+100)/7.0, got, 1e-9)

	// Near the start the window shrinks instead of padding.
	assert.InDelta(t, 1.5, trailingMean(points, 1, 7), 1e-9)
}

func TestMondayIndexedWeekday(t *testing.T) {
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, float64(0), mondayIndexedWeekday(monday))
	assert.Equal(t, float64(6), mondayIndexedWeekday(monday.AddDate(0, 0, 6)))
}

func TestDaysBetweenFloors(t *testing.T) {
	from := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, float64(3), daysBetween(from, from.AddDate(0, 0, 3)))
	assert.Equal(t, float64(2), daysBetween(from, from.Add(71*time.Hour)))
}
