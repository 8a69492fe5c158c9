// Package grading converts numeric marks into letter grades and grade points.
package grading

import "math"

// Letter is a letter grade.
type Letter string

// Letter grades from highest to lowest.
const (
	APlus  Letter = "A+"
	A      Letter = "A"
	AMinus Letter = "A-"
	BPlus  Letter = "B+"
	B      Letter = "B"
	BMinus Letter = "B-"
	CPlus  Letter = "C+"
	C      Letter = "C"
	CMinus Letter = "C-"
	F      Letter = "F"
)

// Grade is the outcome of Derive.
type Grade struct {
	Letter Letter
	Points float64
}

// Passing reports whether the grade earns credit.
func (g Grade) Passing() bool {
	return g.Letter != F
}

type band struct {
	min   float64
	grade Grade
}

// bands are evaluated top-down; the first band whose floor the marks reach wins.
var bands = []band{
	{90, Grade{APlus, 4.0}},
	{85, Grade{A, 3.7}},
	{80, Grade{AMinus, 3.3}},
	{75, Grade{BPlus, 3.0}},
	{70, Grade{B, 2.7}},
	{65, Grade{BMinus, 2.3}},
	{60, Grade{CPlus, 2.0}},
	{55, Grade{C, 1.7}},
	{50, Grade{CMinus, 1.3}},
}

// Derive maps marks in [0,100] to a grade. Values outside that range are the
// caller's responsibility and still map deterministically.
func Derive(marks float64) Grade {
	for _, b := range bands {
		if marks >= b.min {
			return b.grade
		}
	}
	return Grade{F, 0.0}
}

// Valid reports whether marks fall in the accepted [0,100] domain.
func Valid(marks float64) bool {
	return !math.IsNaN(marks) && marks >= 0 && marks <= 100
}

// Round rounds marks half away from zero to two decimals, matching the
// NUMERIC(5,2) column they are stored in.
func Round(marks float64) float64 {
	return math.Round(marks*100) / 100
}

// PointsFor returns the grade points of a letter, and false for unknown letters.
func PointsFor(letter Letter) (float64, bool) {
	if letter == F {
		return 0, true
	}
	for _, b := range bands {
		if b.grade.Letter == letter {
			return b.grade.Points, true
		}
	}
	return 0, false
}

// Letters lists every letter grade from highest to lowest.
func Letters() []Letter {
	out := make([]Letter, 0, len(bands)+1)
	for _, b := range bands {
		out = append(out, b.grade.Letter)
	}
	return append(out, F)
}
