package components

import (
	"math"
	"strings"

	"github.com/opencode-ai/animseq/internal/models"
	"github.com/opencode-ai/animseq/internal/tui/styles"
)

// Floor renders a top-down view of the sprite on its floor.
type Floor struct {
	// Cols and Rows size the grid in cells.
	Cols int
	Rows int
	// Extent is the world distance from the centre to each edge.
	Extent float32
}

// DefaultFloor returns a 21x11 grid covering [-3, 3] on both axes.
func DefaultFloor() Floor {
	return Floor{Cols: 21, Rows: 11, Extent: 3}
}

// Cell maps a world position to a grid cell. ok is false off the grid.
// +Z points up the screen and +X to the right.
func (f Floor) Cell(pos models.Vec3) (col, row int, ok bool) {
	if f.Cols <= 0 || f.Rows <= 0 || f.Extent <= 0 {
		return 0, 0, false
	}
	nx := (float64(pos.X) + float64(f.Extent)) / (2 * float64(f.Extent))
	nz := (float64(pos.Z) + float64(f.Extent)) / (2 * float64(f.Extent))
	col = int(math.Round(nx * float64(f.Cols-1)))
	row = f.Rows - 1 - int(math.Round(nz*float64(f.Rows-1)))
	if col < 0 || col >= f.Cols || row < 0 || row >= f.Rows {
		return col, row, false
	}
	return col, row, true
}

// Heading returns an arrow for a yaw in radians. Yaw 0 faces +Z.
func Heading(yaw float32) string {
	arrows := []string{"^", "/", ">", "\\", "v", "/", "<", "\\"}
	// Positive yaw turns toward +X, which is to the right on screen.
	octant := int(math.Round(float64(yaw)/(math.Pi/4))) % 8
	if octant < 0 {
		octant += 8
	}
	return arrows[octant]
}

// Render draws the grid with the sprite glyph. Hidden sprites are drawn as "o".
func (f Floor) Render(styleSet styles.Styles, state models.SpriteState) string {
	col, row, onGrid := f.Cell(state.Position)

	glyph := Heading(state.Rotation.Y)
	if !state.Active {
		glyph = "o"
	}

	var b strings.Builder
	for r := 0; r < f.Rows; r++ {
		for c := 0; c < f.Cols; c++ {
			if onGrid && r == row && c == col {
				b.WriteString(styleSet.Sprite.Render(glyph))
				continue
			}
			b.WriteString(styleSet.Floor.Render("."))
		}
		if r < f.Rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
