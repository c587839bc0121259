package ocr

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drafthaus/cadindex/internal/observability"
)

type pageRead struct {
	text  string
	score int
}

// scriptedEngine returns an engine whose recognition step replays the
// given per-page results in order.
func scriptedEngine(t *testing.T, reads []pageRead) (*Engine, *int) {
	t.Helper()
	e := NewEngine(Config{Enabled: true}, observability.Nop())
	calls := 0
	e.recognize = func(ctx context.Context, img image.Image) (string, int) {
		if calls >= len(reads) {
			t.Fatalf("unexpected recognition call %d", calls+1)
		}
		r := reads[calls]
		calls++
		return r.text, r.score
	}
	return e, &calls
}

func blankPage(page int) (image.Image, error) {
	return image.NewGray(image.Rect(0, 0, 4, 4)), nil
}

func TestScan_KeepsOnlyBestPage(t *testing.T) {
	// A hatch-garbage first page must not leak into the result once a
	// later page recognizes cleanly.
	e, calls := scriptedEngine(t, []pageRead{
		{"xK3q jq0 kfX", 0},
		{"BORE 50 ROD 28 STROKE 100", 30},
		{"never reached", 99},
	})

	got := e.scan(context.Background(), blankPage, 3)
	assert.Equal(t, "BORE 50 ROD 28 STROKE 100", got)
	assert.Equal(t, 2, *calls, "scan should stop once the best clears the threshold")
}

func TestScan_RetainsEarlierHigherScore(t *testing.T) {
	e, _ := scriptedEngine(t, []pageRead{
		{"SCALE 1:2 SHEET 1", 6},
		{"PART 7", 3},
	})

	got := e.scan(context.Background(), blankPage, 2)
	assert.Equal(t, "SCALE 1:2 SHEET 1", got)
}

func TestScan_RenderFailureSkipsPage(t *testing.T) {
	e, _ := scriptedEngine(t, []pageRead{
		{"CYLINDER MOUNT", 4},
	})
	render := func(page int) (image.Image, error) {
		if page == 0 {
			return nil, errors.New("render failed")
		}
		return image.NewGray(image.Rect(0, 0, 4, 4)), nil
	}

	got := e.scan(context.Background(), render, 2)
	assert.Equal(t, "CYLINDER MOUNT", got)
}

func TestScan_AllEmptyYieldsEmpty(t *testing.T) {
	e, _ := scriptedEngine(t, []pageRead{
		{"", 0},
		{"", 0},
	})

	assert.Equal(t, "", e.scan(context.Background(), blankPage, 2))
}
