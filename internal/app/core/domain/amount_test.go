package domain

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want Amount
	}{
		{"1000", NewAmount(1000, 0)},
		{"12.34", NewAmount(12, 34)},
		{"0.5", NewAmount(0, 50)},
		{"0", 0},
		{"-3.10", -NewAmount(3, 10)},
		{"7.00", NewAmount(7, 0)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseAmount_Invalid(t *testing.T) {
	for _, in := range []string{"", "abc", "1.234", "0.001", "99999999999999999999"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseAmount(in)
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestAmount_String(t *testing.T) {
	assert.Equal(t, "1000.00", NewAmount(1000, 0).String())
	assert.Equal(t, "0.05", Amount(5).String())
	assert.Equal(t, "-2.50", Amount(-250).String())
}

func TestAmount_Add(t *testing.T) {
	sum, ok := Amount(100).add(250)
	require.True(t, ok)
	assert.Equal(t, Amount(350), sum)

	_, ok = Amount(math.MaxInt64).add(1)
	assert.False(t, ok)
}

func TestAmount_JSON(t *testing.T) {
	data, err := json.Marshal(NewAmount(12, 34))
	require.NoError(t, err)
	assert.JSONEq(t, `"12.34"`, string(data))

	var a Amount
	require.NoError(t, json.Unmarshal([]byte(`"99.90"`), &a))
	assert.Equal(t, NewAmount(99, 90), a)

	require.NoError(t, json.Unmarshal([]byte(`5.5`), &a))
	assert.Equal(t, NewAmount(5, 50), a)

	err = json.Unmarshal([]byte(`"1.999"`), &a)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
