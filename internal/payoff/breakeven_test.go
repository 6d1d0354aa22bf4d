package payoff

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"zerodha-risk/internal/models"
)

func TestBreakevens_KnownStrategies(t *testing.T) {
	tests := []struct {
		name string
		legs models.Position
		want []float64
	}{
		{
			name: "long call",
			legs: models.Position{leg(100, models.Call, 1, 5)},
			want: []float64{105},
		},
		{
			name: "long put",
			legs: models.Position{leg(100, models.Put, 1, 5)},
			want: []float64{95},
		},
		{
			name: "bull call spread",
			legs: models.Position{
				leg(100, models.Call, 1, 5),
				leg(110, models.Call, -1, 2),
			},
			want: []float64{103},
		},
		{
			name: "long straddle",
			legs: models.Position{
				leg(100, models.Call, 1, 5),
				leg(100, models.Put, 1, 5),
			},
			want: []float64{90, 110},
		},
		{
			name: "short iron condor",
			legs: models.Position{
				leg(90, models.Put, 1, 1),
				leg(95, models.Put, -1, 2.5),
				leg(105, models.Call, -1, 2.5),
				leg(110, models.Call, 1, 1),
			},
			want: []float64{92, 108},
		},
		{
			name: "root on a strike is reported once",
			legs: models.Position{
				leg(100, models.Call, 1, 0),
				leg(100, models.Put, 1, 0),
			},
			want: []float64{100},
		},
		{
			name: "rounded to two decimals",
			legs: models.Position{leg(263.5, models.Put, -19200, 0.7)},
			want: []float64{262.8},
		},
		{
			name: "no legs",
			legs: nil,
			want: []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Breakevens(tt.legs)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBreakevens_FlatPayoffHasNoRoots(t *testing.T) {
	// Long and short the same call cancel out everywhere.
	legs := models.Position{
		leg(100, models.Call, 1, 5),
		leg(100, models.Call, -1, 5),
	}
	assert.Empty(t, Breakevens(legs))
}

func TestBreakevens_ShortPut(t *testing.T) {
	// Flat above the strike, one crossing below it.
	legs := models.Position{leg(100, models.Put, -1, 5)}
	assert.Equal(t, []float64{95}, Breakevens(legs))
}

func TestBreakevens_ScaledQuantities(t *testing.T) {
	base := models.Position{
		leg(100, models.Call, 1, 5),
		leg(110, models.Call, -1, 2),
	}
	scaled := models.Position{
		leg(100, models.Call, 75, 5),
		leg(110, models.Call, -75, 2),
	}
	assert.Equal(t, Breakevens(base), Breakevens(scaled))
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 103.0, Round2(103.000000001))
	assert.Equal(t, 262.8, Round2(262.8))
	assert.Equal(t, 1.01, Round2(1.005000001))
	assert.Equal(t, -4.57, Round2(-4.5678))

	// Exact binary ties go to the even digit.
	assert.Equal(t, 0.12, Round2(0.125))
	assert.Equal(t, 0.38, Round2(0.375))
	assert.Equal(t, -0.12, Round2(-0.125))
	// 2.675 is stored as 2.67499999999999982236431605997495353221893310546875.
	assert.Equal(t, 2.67, Round2(2.675))
}

func TestBreakevens_RoundsStoredValue(t *testing.T) {
	legs := models.Position{leg(1, models.Call, 1, 1.675)}
	assert.Equal(t, []float64{2.67}, Breakevens(legs))
}
