package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNiceForWeight(t *testing.T) {
	tests := map[string]struct {
		weight       int
		reference    int
		expectedNice int
	}{
		"reference weight":    {weight: 30, reference: 30, expectedNice: 0},
		"above reference":     {weight: 50, reference: 30, expectedNice: 0},
		"two thirds":          {weight: 20, reference: 30, expectedNice: 2},
		"one third":           {weight: 10, reference: 30, expectedNice: 5},
		"minimal weight":      {weight: 1, reference: 30, expectedNice: 15},
		"clamped to 19":       {weight: 1, reference: 1000, expectedNice: 19},
		"non-positive weight": {weight: 0, reference: 30, expectedNice: 19},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expectedNice, NiceForWeight(tc.weight, tc.reference))
		})
	}
}
