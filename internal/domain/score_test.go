package domain

import "testing"

func questionsN(n int) []Question {
	qs := make([]Question, n)
	for i := range qs {
		id := string(rune('a' + i))
		qs[i] = Question{ID: id, Options: []string{"right", "wrong"}, CorrectOption: "right"}
	}
	return qs
}

func TestScoreAllCorrectEarnsBonus(t *testing.T) {
	for n := 1; n <= 6; n++ {
		qs := questionsN(n)
		answers := AnswerRecord{}
		for _, q := range qs {
			answers[q.ID] = "right"
		}
		res := Score(qs, answers)
		if !res.AllCorrect || res.FinalPoints != n*5+10 {
			t.Fatalf("n=%d: expected %d points with bonus, got %+v", n, n*5+10, res)
		}
	}
}

func TestScorePartialHasNoBonus(t *testing.T) {
	qs := questionsN(4)
	for k := 0; k < 4; k++ {
		answers := AnswerRecord{}
		for i, q := range qs {
			if i < k {
				answers[q.ID] = "right"
			} else {
				answers[q.ID] = "wrong"
			}
		}
		res := Score(qs, answers)
		if res.AllCorrect || res.FinalPoints != k*5 || res.CorrectCount != k {
			t.Fatalf("k=%d: expected %d points without bonus, got %+v", k, k*5, res)
		}
	}
}

func TestScoreEmptyQuizNeverAllCorrect(t *testing.T) {
	res := Score(nil, AnswerRecord{"ghost": "right"})
	if res.AllCorrect || res.FinalPoints != 0 {
		t.Fatalf("expected no bonus for empty quiz, got %+v", res)
	}
}

func TestScoreCapitals(t *testing.T) {
	qs := []Question{
		{ID: "q1", Prompt: "Capital of France?", Options: []string{"Paris", "Lyon"}, CorrectOption: "Paris"},
		{ID: "q2", Prompt: "Capital of Peru?", Options: []string{"Cusco", "Lima"}, CorrectOption: "Lima"},
	}
	res := Score(qs, AnswerRecord{"q1": "Paris", "q2": "Cusco"})
	want := ScoreResult{CorrectCount: 1, TotalQuestions: 2, BasePoints: 5, AllCorrect: false, FinalPoints: 5}
	if res != want {
		t.Fatalf("expected %+v, got %+v", want, res)
	}
}

func TestProgress(t *testing.T) {
	cases := []struct {
		user, required int
		want           float64
	}{
		{40, 50, 80},
		{60, 50, 100},
		{0, 50, 0},
		{10, 0, 100},
	}
	for _, c := range cases {
		if got := Progress(c.user, c.required); got != c.want {
			t.Fatalf("Progress(%d, %d) = %v, want %v", c.user, c.required, got, c.want)
		}
	}
}

func TestQuestionValidate(t *testing.T) {
	if err := (Question{Options: []string{"a", "b"}, CorrectOption: "b"}).Validate(); err != nil {
		t.Fatalf("expected valid question, got %v", err)
	}
	if err := (Question{Options: []string{"a", "b"}, CorrectOption: "c"}).Validate(); err != ErrInvalidQuestion {
		t.Fatalf("expected ErrInvalidQuestion, got %v", err)
	}
}
