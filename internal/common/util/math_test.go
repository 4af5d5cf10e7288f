package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMin(t *testing.T) {
	assert.Equal(t, 2, Min(2, 3))
	assert.Equal(t, 2, Min(3, 2))
	assert.Equal(t, 2, Min(2, 2))
}

func TestMax(t *testing.T) {
	assert.Equal(t, 3, Max(2, 3))
	assert.Equal(t, 3, Max(3, 2))
	assert.Equal(t, -1, Max(-1, -5))
}

func TestMinOf(t *testing.T) {
	assert.Equal(t, 10, MinOf([]int{30, 20, 10}))
	assert.Equal(t, int64(-1), MinOf([]int64{3, -1, 2}))
	assert.Equal(t, 7, MinOf([]int{7}))
	assert.Equal(t, 0, MinOf([]int{}))
}

func TestSum(t *testing.T) {
	assert.Equal(t, 60, Sum([]int{30, 20, 10}))
	assert.Equal(t, int64(0), Sum([]int64(nil)))
}

func TestAbs(t *testing.T) {
	assert.Equal(t, 11, Abs(-11))
	assert.Equal(t, 11, Abs(11))
	assert.Equal(t, 0, Abs(0))
}
