package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const illuminaName = "EAS139:136:FC706VJ:2:2104:15343:197393"

func TestTileParser_SamplesOneInEight(t *testing.T) {
	t.Parallel()

	p := newTileParser(true)

	// Record 0 only learns the name layout.
	assert.Equal(t, 0, p.next([]byte(illuminaName)))

	// Records 1..7 fall outside the sampling cadence.
	for i := 1; i < 8; i++ {
		assert.Equal(t, 0, p.next([]byte(illuminaName)))
	}

	// Record 8 is sampled and yields the tile field.
	assert.Equal(t, 2104, p.next([]byte(illuminaName)))
}

func TestTileParser_SplitPointFromColonCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		first string
		want  int
	}{
		{
			name:  "seven field casava name",
			first: "EAS139:136:FC706VJ:2:2104:15343:197393",
			want:  2104,
		},
		{
			name:  "five field legacy name",
			first: "HWUSI-EAS100R:6:73:941:1973#0",
			want:  73,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := newTileParser(true)
			p.next([]byte(tt.first))
			for i := 1; i < 8; i++ {
				p.next([]byte(tt.first))
			}
			assert.Equal(t, tt.want, p.next([]byte(tt.first)))
		})
	}
}

func TestTileParser_DisablesOnUnrecognizedName(t *testing.T) {
	t.Parallel()

	p := newTileParser(true)
	p.next([]byte("read_1")) // too few colons

	for i := 1; i <= 24; i++ {
		assert.Equal(t, 0, p.next([]byte(illuminaName)))
	}
	assert.False(t, p.enabled)
}

func TestTileParser_DisabledYieldsZero(t *testing.T) {
	t.Parallel()

	p := newTileParser(false)
	for i := 0; i < 16; i++ {
		assert.Equal(t, 0, p.next([]byte(illuminaName)))
	}
}

func TestTileParser_ShortNameYieldsZero(t *testing.T) {
	t.Parallel()

	p := newTileParser(true)
	p.next([]byte(illuminaName))
	for i := 1; i < 8; i++ {
		p.next([]byte(illuminaName))
	}
	// Sampled record whose name lacks the learned field.
	assert.Equal(t, 0, p.next([]byte("x:y")))
}
