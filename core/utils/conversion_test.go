package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToInt(t *testing.T) {
	tests := []struct {
		in   any
		want int
	}{
		{6, 6},
		{int64(7), 7},
		{uint32(3), 3},
		{float64(4), 4},
		{"12", 12},
		{" 13 ", 13},
		{[]byte("5"), 5},
		{"-2", -2},
	}
	for _, tt := range tests {
		got, err := ToInt(tt.in)
		require.NoError(t, err, "%v", tt.in)
		assert.Equal(t, tt.want, got, "%v", tt.in)
	}
}

func TestToInt_Rejects(t *testing.T) {
	for _, in := range []any{"many", "3.9", "", float64(3.9), math.Inf(1), uint64(math.MaxUint64), true, nil, []int{1}} {
		_, err := ToInt(in)
		assert.ErrorIs(t, err, ErrNotInteger, "%v", in)
	}
}

func TestToBool(t *testing.T) {
	for _, in := range []string{"1", "true", "TRUE", "t", " true "} {
		assert.True(t, ToBool(in), in)
	}
	for _, in := range []string{"0", "false", "", "no", "yes", "2"} {
		assert.False(t, ToBool(in), in)
	}
}
