package stats

// UserStats is the aggregate achievements are evaluated against.
type UserStats struct {
	CurrentDay        int     `json:"currentDay"`
	ConsecutiveDays   int     `json:"consecutiveDays"`
	TotalChars        int     `json:"totalChars"`
	OverallAccuracy   float64 `json:"overallAccuracy"`
	AvgResponseTimeMs float64 `json:"avgResponseTime"`
	TodayAccuracy     float64 `json:"todayAccuracy"`
	PerfectDays       int     `json:"perfectDays"`
}

// AggregateInput gathers what Aggregate needs from a user's progress.
type AggregateInput struct {
	CurrentDay      int
	ConsecutiveDays int
	Letters         Table
	TodayChars      int
	TodayCorrect    int
	// DailyAccuracies holds the accuracy of every completed day.
	DailyAccuracies []float64
}

// Aggregate builds UserStats. Letter totals use drill counters only.
func Aggregate(in AggregateInput) UserStats {
	tot := in.Letters.LetterTotals()

	us := UserStats{
		CurrentDay:      in.CurrentDay,
		ConsecutiveDays: in.ConsecutiveDays,
		TotalChars:      tot.Attempts,
	}
	if tot.Attempts > 0 {
		us.OverallAccuracy = float64(tot.Correct) / float64(tot.Attempts)
		us.AvgResponseTimeMs = float64(tot.ResponseTimeMs) / float64(tot.Attempts)
	}
	if in.TodayChars > 0 {
		us.TodayAccuracy = float64(in.TodayCorrect) / float64(in.TodayChars)
	}
	for _, acc := range in.DailyAccuracies {
		if acc >= 1 {
			us.PerfectDays++
		}
	}
	return us
}
