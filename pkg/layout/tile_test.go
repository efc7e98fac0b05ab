package layout

import (
	"testing"
	"time"
)

func TestTileEdges(t *testing.T) {
	tests := []struct {
		name       string
		tile       Tile
		wantRight  float64
		wantBottom float64
	}{
		{
			name:       "from origin",
			tile:       Tile{X: 0, Y: 0, Width: 100, Height: 50},
			wantRight:  100,
			wantBottom: 50,
		},
		{
			name:       "offset",
			tile:       Tile{X: 108, Y: 308, Width: 200, Height: 300},
			wantRight:  308,
			wantBottom: 608,
		},
		{
			name:       "zero size",
			tile:       Tile{X: 10, Y: 10},
			wantRight:  10,
			wantBottom: 10,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.tile.Right(); got != tt.wantRight {
				t.Errorf("Right() = %v, want %v", got, tt.wantRight)
			}
			if got := tt.tile.Bottom(); got != tt.wantBottom {
				t.Errorf("Bottom() = %v, want %v", got, tt.wantBottom)
			}
		})
	}
}

func TestTileCenter(t *testing.T) {
	tile := Tile{X: 20, Y: 30, Width: 60, Height: 40}

	if tile.CenterX() != 50 {
		t.Errorf("CenterX() = %v, want 50", tile.CenterX())
	}
	if tile.CenterY() != 50 {
		t.Errorf("CenterY() = %v, want 50", tile.CenterY())
	}
}

func TestTileAnimationDelay(t *testing.T) {
	tile := Tile{AnimationDelayMs: 150}
	if got := tile.AnimationDelay(); got != 150*time.Millisecond {
		t.Errorf("AnimationDelay() = %v, want %v", got, 150*time.Millisecond)
	}
}
