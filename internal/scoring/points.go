package scoring

import "math"

// Points configuration
const (
	BasePoints = 100

	HighAccuracy       = 0.95
	HighAccuracyPoints = 50
	MidAccuracy        = 0.90
	MidAccuracyPoints  = 30
	LowAccuracy        = 0.80
	LowAccuracyPoints  = 10

	FastResponseMs     = 500
	FastSpeedPoints    = 30
	MediumResponseMs   = 800
	MediumSpeedPoints  = 15
	StreakPointsPerDay = 10
	MaxStreakPoints    = 100
)

// Breakdown itemises the points earned for a completed day.
type Breakdown struct {
	Base          int `json:"base"`
	AccuracyBonus int `json:"accuracyBonus"`
	SpeedBonus    int `json:"speedBonus"`
	StreakBonus   int `json:"streakBonus"`
	Total         int `json:"total"`
}

// CalculatePoints scores a completed day. It is a pure function of its inputs.
func CalculatePoints(totalChars, correctChars int, totalTimeMs int64, consecutiveDays int) Breakdown {
	b := Breakdown{Base: BasePoints}

	accuracy := 0.0
	if totalChars > 0 {
		accuracy = float64(correctChars) / float64(totalChars)
	}
	switch {
	case accuracy >= HighAccuracy:
		b.AccuracyBonus = HighAccuracyPoints
	case accuracy >= MidAccuracy:
		b.AccuracyBonus = MidAccuracyPoints
	case accuracy >= LowAccuracy:
		b.AccuracyBonus = LowAccuracyPoints
	}

	avg := math.Inf(1)
	if totalChars > 0 {
		avg = float64(totalTimeMs) / float64(totalChars)
	}
	switch {
	case avg <= FastResponseMs:
		b.SpeedBonus = FastSpeedPoints
	case avg <= MediumResponseMs:
		b.SpeedBonus = MediumSpeedPoints
	}

	if consecutiveDays > 0 {
		b.StreakBonus = min(consecutiveDays*StreakPointsPerDay, MaxStreakPoints)
	}

	b.Total = b.Base + b.AccuracyBonus + b.SpeedBonus + b.StreakBonus
	return b
}

// AccuracyLevel labels an accuracy ratio for display.
func AccuracyLevel(accuracy float64) string {
	switch {
	case accuracy >= HighAccuracy:
		return "excellent"
	case accuracy >= MidAccuracy:
		return "good"
	case accuracy >= LowAccuracy:
		return "fair"
	default:
		return "needs practice"
	}
}

// SpeedLevel labels an average response time for display.
func SpeedLevel(avgResponseMs float64) string {
	switch {
	case avgResponseMs > 0 && avgResponseMs <= FastResponseMs:
		return "fast"
	case avgResponseMs > 0 && avgResponseMs <= MediumResponseMs:
		return "medium"
	default:
		return "normal"
	}
}
