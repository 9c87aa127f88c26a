package stats

import (
	"sort"

	"typingclash/internal/keyboard"
)

// LetterStat accumulates attempts for one character.
//
// The drill counters feed accuracy, weak-character detection and
// achievements. The Practice* counters are written only by voluntary
// re-practice after the day is complete and are reported separately.
type LetterStat struct {
	TotalAttempts       int   `json:"totalAttempts"`
	CorrectAttempts     int   `json:"correctAttempts"`
	TotalResponseTimeMs int64 `json:"totalResponseTime"`

	PracticeAttempts       int   `json:"practiceAttempts,omitempty"`
	PracticeCorrect        int   `json:"practiceCorrect,omitempty"`
	PracticeResponseTimeMs int64 `json:"practiceResponseTime,omitempty"`
}

// Record adds one drill attempt. Negative response times count as zero so
// the running total never decreases.
func (s *LetterStat) Record(correct bool, responseTimeMs int64) {
	s.TotalAttempts++
	if correct {
		s.CorrectAttempts++
	}
	if responseTimeMs > 0 {
		s.TotalResponseTimeMs += responseTimeMs
	}
}

// RecordPractice adds one re-practice attempt.
func (s *LetterStat) RecordPractice(correct bool, responseTimeMs int64) {
	s.PracticeAttempts++
	if correct {
		s.PracticeCorrect++
	}
	if responseTimeMs > 0 {
		s.PracticeResponseTimeMs += responseTimeMs
	}
}

// Accuracy is correct/total, 0 when there are no attempts.
func (s LetterStat) Accuracy() float64 {
	if s.TotalAttempts == 0 {
		return 0
	}
	return float64(s.CorrectAttempts) / float64(s.TotalAttempts)
}

// AvgResponseTime is the mean response time in ms, 0 when there are no attempts.
func (s LetterStat) AvgResponseTime() float64 {
	if s.TotalAttempts == 0 {
		return 0
	}
	return float64(s.TotalResponseTimeMs) / float64(s.TotalAttempts)
}

// Table holds one LetterStat per character, created lazily.
type Table map[rune]*LetterStat

// NewTable returns an empty table
func NewTable() Table {
	return make(Table)
}

func (t Table) entry(r rune) *LetterStat {
	r = keyboard.Normalize(r)
	s, ok := t[r]
	if !ok {
		s = &LetterStat{}
		t[r] = s
	}
	return s
}

// Get returns a copy of the stat for r (zero value when absent).
func (t Table) Get(r rune) LetterStat {
	if s, ok := t[keyboard.Normalize(r)]; ok {
		return *s
	}
	return LetterStat{}
}

// Record adds a drill attempt for r.
func (t Table) Record(r rune, correct bool, responseTimeMs int64) {
	t.entry(r).Record(correct, responseTimeMs)
}

// RecordPractice adds a re-practice attempt for r.
func (t Table) RecordPractice(r rune, correct bool, responseTimeMs int64) {
	t.entry(r).RecordPractice(correct, responseTimeMs)
}

// Accuracy of r
func (t Table) Accuracy(r rune) float64 {
	return t.Get(r).Accuracy()
}

// Weak returns the characters of chars that have been attempted and whose
// accuracy is below threshold, in the order given.
func (t Table) Weak(chars []rune, threshold float64) []rune {
	var weak []rune
	for _, r := range chars {
		s, ok := t[r]
		if !ok || s.TotalAttempts == 0 {
			continue
		}
		if s.Accuracy() < threshold {
			weak = append(weak, r)
		}
	}
	return weak
}

// Keys returns the characters present in the table, sorted.
func (t Table) Keys() []rune {
	keys := make([]rune, 0, len(t))
	for r := range t {
		keys = append(keys, r)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Clone deep-copies the table.
func (t Table) Clone() Table {
	out := make(Table, len(t))
	for r, s := range t {
		c := *s
		out[r] = &c
	}
	return out
}

// Totals sums the drill counters over the letters A-Z.
type Totals struct {
	Attempts       int
	Correct        int
	ResponseTimeMs int64
}

// LetterTotals aggregates the drill counters of every letter.
func (t Table) LetterTotals() Totals {
	var tot Totals
	for _, r := range keyboard.Letters {
		s, ok := t[r]
		if !ok {
			continue
		}
		tot.Attempts += s.TotalAttempts
		tot.Correct += s.CorrectAttempts
		tot.ResponseTimeMs += s.TotalResponseTimeMs
	}
	return tot
}
