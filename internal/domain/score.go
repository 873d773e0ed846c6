package domain

const (
	PointsPerCorrect = 5
	AllCorrectBonus  = 10
)

// ScoreResult is derived from a finished play-through and never stored.
type ScoreResult struct {
	CorrectCount   int  `json:"correctCount"`
	TotalQuestions int  `json:"totalQuestions"`
	BasePoints     int  `json:"basePoints"`
	AllCorrect     bool `json:"allCorrect"`
	FinalPoints    int  `json:"finalPoints"`
}

// Score counts answers equal to each question's correct option and applies the
// all-correct bonus. An empty quiz never earns the bonus.
func Score(questions []Question, answers AnswerRecord) ScoreResult {
	correct := 0
	for _, q := range questions {
		if selected, ok := answers[q.ID]; ok && selected == q.CorrectOption {
			correct++
		}
	}

	res := ScoreResult{
		CorrectCount:   correct,
		TotalQuestions: len(questions),
		BasePoints:     correct * PointsPerCorrect,
	}
	res.AllCorrect = res.TotalQuestions > 0 && correct == res.TotalQuestions
	res.FinalPoints = res.BasePoints
	if res.AllCorrect {
		res.FinalPoints += AllCorrectBonus
	}
	return res
}

// Progress returns how far userPoints are towards requiredPoints, in percent, capped at 100.
func Progress(userPoints, requiredPoints int) float64 {
	if requiredPoints <= 0 {
		return 100
	}
	if userPoints <= 0 {
		return 0
	}
	ratio := float64(userPoints) / float64(requiredPoints)
	if ratio > 1 {
		ratio = 1
	}
	return ratio * 100
}
