package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuantile(t *testing.T) {
	xs := []float64{1, 2, 3, 4}

	assert.InDelta(t, 1.75, Quantile(xs, 0.25), 1e-9)
	assert.InDelta(t, 2.5, Quantile(xs, 0.5), 1e-9)
	assert.InDelta(t, 3.25, Quantile(xs, 0.75), 1e-9)
	assert.Equal(t, 1.0, Quantile(xs, 0))
	assert.Equal(t, 4.0, Quantile(xs, 1))
}

func TestQuantile_Unsorted(t *testing.T) {
	xs := []float64{4, 1, 3, 2}
	assert.InDelta(t, 2.5, Quantile(xs, 0.5), 1e-9)
	assert.Equal(t, []float64{4, 1, 3, 2}, xs, "input must not be reordered")
}

func TestQuantile_SingleValue(t *testing.T) {
	assert.Equal(t, 7.0, Quantile([]float64{7}, 0.75))
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, Median([]float64{1, 2, 3}))
	assert.Equal(t, 2.5, Median([]float64{1, 2, 3, 4}))
}

func TestMoments(t *testing.T) {
	xs := []float64{2, 4, 4, 4, 5, 5, 7, 9}

	assert.InDelta(t, 5.0, Mean(xs), 1e-9)
	assert.InDelta(t, 2.0, PopStdDev(xs), 1e-9)
	assert.Greater(t, StdDev(xs), PopStdDev(xs))
}

func TestMoments_Empty(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 0.0, StdDev(nil))
	assert.Equal(t, 0.0, Quantile(nil, 0.5))
}
