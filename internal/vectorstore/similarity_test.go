package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{name: "Identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "Orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "Opposite Clamped", a: []float32{1, 0}, b: []float32{-1, 0}, want: 0},
		{name: "Partial", a: []float32{1, 0}, b: []float32{0.6, 0.8}, want: 0.6},
		{name: "Length Mismatch", a: []float32{1}, b: []float32{1, 0}, want: 0},
		{name: "Zero Vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 0},
		{name: "Empty", want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}
