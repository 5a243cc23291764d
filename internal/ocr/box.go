// Package ocr turns recognized text boxes into reading-ordered text and
// defines the contract OCR backends implement.
package ocr

import "sort"

// DefaultLineThreshold is the largest vertical distance between the mean y
// of neighbouring boxes that still places them on the same line.
const DefaultLineThreshold = 20.0

// Point is a corner of a box in image coordinates.
type Point struct {
	X float64
	Y float64
}

// Box is one recognized text fragment. Corners run clockwise from the
// top-left corner. Confidence is in [0,1].
type Box struct {
	Corners    [4]Point
	Text       string
	Confidence float64
}

// RectBox builds a box from an axis-aligned rectangle.
func RectBox(x0, y0, x1, y1 float64, text string, confidence float64) Box {
	return Box{
		Corners:    [4]Point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}},
		Text:       text,
		Confidence: confidence,
	}
}

// MeanY is the average y of the four corners.
func (b Box) MeanY() float64 {
	return (b.Corners[0].Y + b.Corners[1].Y + b.Corners[2].Y + b.Corners[3].Y) / 4
}

// Left is the x of the top-left corner.
func (b Box) Left() float64 {
	return b.Corners[0].X
}

// Line is a run of boxes on one visual text line, left to right.
type Line []Box

// GroupLines assigns every box to exactly one line. Lines come back top to
// bottom. The input slice is not modified.
func GroupLines(boxes []Box, threshold float64) []Line {
	if len(boxes) == 0 {
		return nil
	}
	sorted := make([]Box, len(boxes))
	copy(sorted, boxes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].MeanY() < sorted[j].MeanY()
	})

	var lines []Line
	current := Line{sorted[0]}
	prevY := sorted[0].MeanY()
	for _, b := range sorted[1:] {
		y := b.MeanY()
		if abs(y-prevY) > threshold {
			lines = append(lines, current)
			current = Line{}
		}
		current = append(current, b)
		prevY = y
	}
	lines = append(lines, current)

	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool {
			return line[i].Left() < line[j].Left()
		})
	}
	return lines
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
