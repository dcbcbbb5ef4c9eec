package geo

import (
	"fmt"
	"strconv"
	"strings"
)

// BBox is a [west, south, east, north] bounding box in WGS84 degrees
// unless a handler states otherwise (Swiss layers use LV95 metres).
type BBox struct {
	West  float64
	South float64
	East  float64
	North float64
}

// NewBBox validates the corner ordering and returns the box.
func NewBBox(west, south, east, north float64) (BBox, error) {
	if west >= east {
		return BBox{}, fmt.Errorf("invalid bbox: west %v must be less than east %v", west, east)
	}
	if south >= north {
		return BBox{}, fmt.Errorf("invalid bbox: south %v must be less than north %v", south, north)
	}
	return BBox{West: west, South: south, East: east, North: north}, nil
}

// ParseBBox builds a BBox from a [west, south, east, north] slice.
func ParseBBox(values []float64) (BBox, error) {
	if len(values) != 4 {
		return BBox{}, fmt.Errorf("invalid bbox: expected 4 values, got %d", len(values))
	}
	return NewBBox(values[0], values[1], values[2], values[3])
}

// Center returns the box midpoint.
func (b BBox) Center() Coordinate {
	return Coordinate{
		Lon: (b.West + b.East) / 2,
		Lat: (b.South + b.North) / 2,
	}
}

// Slice returns the box as [west, south, east, north].
func (b BBox) Slice() []float64 {
	return []float64{b.West, b.South, b.East, b.North}
}

// Query renders the box as the comma-joined form STAC item endpoints
// accept.
func (b BBox) Query() string {
	parts := make([]string, 0, 4)
	for _, v := range b.Slice() {
		parts = append(parts, strconv.FormatFloat(v, 'f', -1, 64))
	}
	return strings.Join(parts, ",")
}

func (b BBox) String() string {
	return fmt.Sprintf("[%g, %g, %g, %g]", b.West, b.South, b.East, b.North)
}
