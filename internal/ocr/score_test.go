package ocr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreText(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"whitespace only", "  \n\t ", 0},
		{"single heavy keyword", "BORE", 5},
		{"heavy keywords case insensitive", "bore rod stroke", 15},
		{"light keyword", "SCALE", 2},
		{"numeric tokens", "4.00 12.5 100", 3},
		{"fraction token", "1-1/2", 1},
		{"hatch garbage", "||| \\\\ ~~~ ^^", 0},
		{"mixed drawing text", "BORE 4.00 STROKE 12.00", 12},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, scoreText(tc.text))
		})
	}
}

func TestScoreText_DrawingBeatsGarbage(t *testing.T) {
	drawing := "HYDRAULIC CYLINDER BORE 4.00 ROD 2.00 STROKE 12.00 SCALE 1:4"
	garbage := strings.Repeat("|l1 ", 40)
	assert.Greater(t, scoreText(drawing), scoreText(garbage))
}

func TestIsNumericToken(t *testing.T) {
	assert.True(t, isNumericToken("4.00"))
	assert.True(t, isNumericToken(`1-1/2"`))
	assert.True(t, isNumericToken("250,5"))
	assert.False(t, isNumericToken("ABC"))
	assert.False(t, isNumericToken("A4"))
	assert.False(t, isNumericToken("--"))
}
