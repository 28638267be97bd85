package money_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/food-ordering/internal/money"
)

func TestToSubunits(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		want   int64
	}{
		{name: "whole", amount: 150, want: 15000},
		{name: "delivery", amount: 40, want: 4000},
		{name: "cents", amount: 19.99, want: 1999},
		{name: "binary_unfriendly", amount: 0.29, want: 29},
		{name: "binary_unfriendly_large", amount: 1.15, want: 115},
		{name: "half_subunit_rounds_up", amount: 10.005, want: 1001},
		{name: "zero", amount: 0, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := money.ToSubunits(tt.amount)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestToSubunits_Negative(t *testing.T) {
	_, err := money.ToSubunits(-1)
	assert.Error(t, err)
}

func TestFromSubunits(t *testing.T) {
	assert.Equal(t, 190.0, money.FromSubunits(19000))
	assert.Equal(t, 19.99, money.FromSubunits(1999))
	assert.Equal(t, 0.0, money.FromSubunits(0))
}
