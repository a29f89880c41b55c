// Package hexgrid provides hex-map coordinates and path search for a map
// laid out in rows, odd rows offset half a tile to the right.
package hexgrid

import "fmt"

// Loc addresses one hex. Comparable, so it keys maps directly.
type Loc struct {
	X, Y int
}

// Nowhere is the conventional invalid location.
var Nowhere = Loc{X: -1, Y: -1}

// Valid reports whether the location is on the non-negative quadrant maps
// live in. Board bounds are the board's concern, not the coordinate's.
func (l Loc) Valid() bool { return l.X >= 0 && l.Y >= 0 }

func (l Loc) String() string { return fmt.Sprintf("(%d,%d)", l.X, l.Y) }

// Neighbor offsets depend on row parity in this layout.
var (
	evenRowDirs = [6]Loc{{-1, 0}, {1, 0}, {-1, -1}, {0, -1}, {-1, 1}, {0, 1}}
	oddRowDirs  = [6]Loc{{-1, 0}, {1, 0}, {0, -1}, {1, -1}, {0, 1}, {1, 1}}
)

// Adjacent returns the six neighboring hexes of l.
func (l Loc) Adjacent() [6]Loc {
	dirs := &evenRowDirs
	if l.Y&1 == 1 {
		dirs = &oddRowDirs
	}
	var out [6]Loc
	for i, d := range dirs {
		out[i] = Loc{X: l.X + d.X, Y: l.Y + d.Y}
	}
	return out
}

// IsAdjacent reports whether a and b share an edge.
func (l Loc) IsAdjacent(o Loc) bool {
	for _, a := range l.Adjacent() {
		if a == o {
			return true
		}
	}
	return false
}

// cube converts the offset coordinate to cube coordinates for distance math.
func (l Loc) cube() (q, r int) {
	return l.X - (l.Y-(l.Y&1))/2, l.Y
}

// Distance returns the hex walking distance between two locations.
func Distance(a, b Loc) int {
	aq, ar := a.cube()
	bq, br := b.cube()
	dq, dr := aq-bq, ar-br
	ds := -dq - dr
	return (abs(dq) + abs(dr) + abs(ds)) / 2
}

// Radius returns every location within the given hex distance of center,
// the center included. Locations off the non-negative quadrant are skipped.
func Radius(center Loc, radius int) []Loc {
	var out []Loc
	// Offset columns drift by up to half the row delta, so scan wide.
	span := radius + radius/2 + 1
	for y := center.Y - radius; y <= center.Y+radius; y++ {
		for x := center.X - span; x <= center.X+span; x++ {
			loc := Loc{X: x, Y: y}
			if loc.Valid() && Distance(center, loc) <= radius {
				out = append(out, loc)
			}
		}
	}
	return out
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
