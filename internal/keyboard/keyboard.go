package keyboard

import (
	"fmt"
	"strings"
)

// Finger identifies one of the eight typing fingers (thumbs excluded).
type Finger string

const (
	LeftPinky   Finger = "left-pinky"
	LeftRing    Finger = "left-ring"
	LeftMiddle  Finger = "left-middle"
	LeftIndex   Finger = "left-index"
	RightIndex  Finger = "right-index"
	RightMiddle Finger = "right-middle"
	RightRing   Finger = "right-ring"
	RightPinky  Finger = "right-pinky"
)

// ComprehensiveDay is the first day on which no finger counts as newly unlocked.
const ComprehensiveDay = 9

// Character classes
const (
	Letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Digits  = "0123456789"
	Symbols = "`-=[]\\;',./"
)

// Fingers lists all fingers left to right.
var Fingers = []Finger{LeftPinky, LeftRing, LeftMiddle, LeftIndex, RightIndex, RightMiddle, RightRing, RightPinky}

// unlock order, two fingers at a time
var unlockOrder = []struct {
	fromDay int
	fingers [2]Finger
}{
	{1, [2]Finger{LeftIndex, RightIndex}},
	{3, [2]Finger{LeftMiddle, RightMiddle}},
	{5, [2]Finger{LeftRing, RightRing}},
	{7, [2]Finger{LeftPinky, RightPinky}},
}

var fingerKeys = map[Finger]string{
	LeftPinky:   "QAZ`1",
	LeftRing:    "WSX2",
	LeftMiddle:  "EDC3",
	LeftIndex:   "RFVTGB45",
	RightIndex:  "YHNUJM67",
	RightMiddle: "IK,8",
	RightRing:   "OL.9",
	RightPinky:  "P;'/0-=[]\\",
}

var fingerNames = map[Finger]string{
	LeftPinky:   "left pinky",
	LeftRing:    "left ring",
	LeftMiddle:  "left middle",
	LeftIndex:   "left index",
	RightIndex:  "right index",
	RightMiddle: "right middle",
	RightRing:   "right ring",
	RightPinky:  "right pinky",
}

var charToFinger = func() map[rune]Finger {
	m := make(map[rune]Finger)
	for f, keys := range fingerKeys {
		for _, r := range keys {
			m[r] = f
		}
	}
	return m
}()

// Classes reports which character classes are drilled on a day.
type Classes struct {
	Letters bool
	Digits  bool
	Symbols bool
}

// Name returns the finger's display name
func (f Finger) Name() string {
	if n, ok := fingerNames[f]; ok {
		return n
	}
	return string(f)
}

// FingerFor returns the finger responsible for r.
func FingerFor(r rune) (Finger, bool) {
	f, ok := charToFinger[Normalize(r)]
	return f, ok
}

// Keys returns every character assigned to f.
func Keys(f Finger) []rune {
	return []rune(fingerKeys[f])
}

// LettersFor returns only the letters assigned to f.
func LettersFor(f Finger) []rune {
	var out []rune
	for _, r := range fingerKeys[f] {
		if IsLetter(r) {
			out = append(out, r)
		}
	}
	return out
}

func IsLetter(r rune) bool { return r >= 'A' && r <= 'Z' }
func IsDigit(r rune) bool  { return r >= '0' && r <= '9' }
func IsSymbol(r rune) bool { return strings.ContainsRune(Symbols, r) }

// Normalize upper-cases ASCII letters and passes everything else through.
func Normalize(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 'a' + 'A'
	}
	return r
}

// IsAllowedKey reports whether r belongs to the accepted input class:
// letters, digits, space and the drilled punctuation.
func IsAllowedKey(r rune) bool {
	r = Normalize(r)
	return IsLetter(r) || IsDigit(r) || IsSymbol(r) || r == ' '
}

// FingersForDay returns the active fingers in unlock order.
func FingersForDay(day int) []Finger {
	var out []Finger
	for _, step := range unlockOrder {
		if day >= step.fromDay {
			out = append(out, step.fingers[0], step.fingers[1])
		}
	}
	return out
}

// NewFingersForDay returns the two most recently unlocked fingers, or nil
// once every finger is in review.
func NewFingersForDay(day int) []Finger {
	if day >= ComprehensiveDay {
		return nil
	}
	fingers := FingersForDay(day)
	if len(fingers) < 2 {
		return fingers
	}
	return fingers[len(fingers)-2:]
}

// ClassesForDay: digits from day 31, symbols from day 61.
func ClassesForDay(day int) Classes {
	return Classes{
		Letters: true,
		Digits:  day > 30,
		Symbols: day > 60,
	}
}

// CharsForDay returns the drill superset for a day: each active finger's
// letters, then its digits and symbols when those classes are active.
func CharsForDay(day int) []rune {
	classes := ClassesForDay(day)
	var chars []rune
	for _, f := range FingersForDay(day) {
		chars = append(chars, LettersFor(f)...)
		if !classes.Digits && !classes.Symbols {
			continue
		}
		for _, r := range fingerKeys[f] {
			switch {
			case IsLetter(r):
			case classes.Digits && IsDigit(r):
				chars = append(chars, r)
			case classes.Symbols && IsSymbol(r):
				chars = append(chars, r)
			}
		}
	}
	return chars
}

// DayDescription summarises what a day drills.
func DayDescription(day int) string {
	classes := ClassesForDay(day)
	phase := "letters"
	switch {
	case classes.Symbols:
		phase = "letters, digits and symbols"
	case classes.Digits:
		phase = "letters and digits"
	}

	chars := CharsForDay(day)
	if day >= ComprehensiveDay {
		return fmt.Sprintf("Comprehensive practice: %d %s", len(chars), phase)
	}

	names := make([]string, 0, 2)
	for _, f := range NewFingersForDay(day) {
		names = append(names, f.Name())
	}
	return fmt.Sprintf("Practice %d %s (new: %s)", len(chars), phase, strings.Join(names, ", "))
}

// StageDescription names the curriculum stage a day belongs to.
func StageDescription(day int) string {
	switch {
	case day <= 2:
		return "Getting started"
	case day <= 4:
		return "Advancing"
	case day <= 6:
		return "Improving"
	case day <= 8:
		return "Sprint"
	case day <= 30:
		return "Letter mastery"
	case day <= 60:
		return "Digits"
	default:
		return "Symbols"
	}
}
