package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"notiplay/internal/app"
	"notiplay/internal/domain"
)

func TestQuizCacheCaches(t *testing.T) {
	source := &countingSource{QuizRepository: NewBackend(sampleData())}
	cache := NewQuizCache(source, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		quiz, err := cache.QuizForContent(ctx, "news-1")
		if err != nil {
			t.Fatalf("get quiz: %v", err)
		}
		if _, err := cache.Questions(ctx, quiz.ID); err != nil {
			t.Fatalf("get questions: %v", err)
		}
	}
	if source.quizCalls != 1 || source.questionCalls != 1 {
		t.Fatalf("expected one load each, got quiz=%d questions=%d", source.quizCalls, source.questionCalls)
	}
}

func TestQuizCacheDoesNotCacheAbsence(t *testing.T) {
	source := &countingSource{QuizRepository: NewBackend(sampleData())}
	cache := NewQuizCache(source, time.Minute)

	for i := 0; i < 2; i++ {
		if _, err := cache.QuizForContent(context.Background(), "news-404"); !errors.Is(err, domain.ErrQuizNotFound) {
			t.Fatalf("expected ErrQuizNotFound, got %v", err)
		}
	}
	if source.quizCalls != 2 {
		t.Fatalf("expected absence to reach the source every time, got %d calls", source.quizCalls)
	}
}

func TestQuizCacheDoesNotCacheEmptyQuestions(t *testing.T) {
	source := &countingSource{QuizRepository: NewBackend(sampleData())}
	cache := NewQuizCache(source, time.Minute)

	for i := 0; i < 2; i++ {
		qs, err := cache.Questions(context.Background(), "quiz-missing")
		if err != nil {
			t.Fatalf("get questions: %v", err)
		}
		if len(qs) != 0 {
			t.Fatalf("expected no questions, got %d", len(qs))
		}
	}
	if source.questionCalls != 2 {
		t.Fatalf("expected empty lists to reach the source every time, got %d calls", source.questionCalls)
	}
}

func TestQuizCacheReturnsIndependentCopies(t *testing.T) {
	cache := NewQuizCache(NewBackend(sampleData()), time.Minute)
	ctx := context.Background()

	first, err := cache.Questions(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get questions: %v", err)
	}
	first[0].Options[0] = "Arequipa"
	first[0].Prompt = "changed"

	second, err := cache.Questions(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if second[0].Options[0] != "Cusco" || second[0].Prompt != "Capital of Peru?" {
		t.Fatalf("cached questions were mutated through a caller: %+v", second[0])
	}
}

func TestQuizCacheExpires(t *testing.T) {
	source := &countingSource{QuizRepository: NewBackend(sampleData())}
	cache := NewQuizCache(source, time.Minute)
	now := time.Now()
	cache.clock = func() time.Time { return now }

	if _, err := cache.QuizForContent(context.Background(), "news-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := cache.QuizForContent(context.Background(), "news-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if source.quizCalls != 2 {
		t.Fatalf("expected reload after expiry, got %d calls", source.quizCalls)
	}
}

type countingSource struct {
	app.QuizRepository
	quizCalls     int
	questionCalls int
}

func (s *countingSource) QuizForContent(ctx context.Context, contentID string) (domain.Quiz, error) {
	s.quizCalls++
	return s.QuizRepository.QuizForContent(ctx, contentID)
}

func (s *countingSource) Questions(ctx context.Context, quizID string) ([]domain.Question, error) {
	s.questionCalls++
	return s.QuizRepository.Questions(ctx, quizID)
}

func sampleData() Dataset {
	return Dataset{
		Users: []domain.User{{ID: "u1", FirstName: "Ana", Points: 60}, {ID: "u2", FirstName: "Bruno", Points: 10}},
		Quizzes: []domain.Quiz{{
			ID:        "quiz-1",
			ContentID: "news-1",
			Title:     "Capitals",
			Questions: []domain.Question{
				{ID: "q1", Prompt: "Capital of Peru?", Options: []string{"Cusco", "Lima"}, CorrectOption: "Lima"},
			},
		}},
		Rewards: []domain.Reward{{ID: "coffee", Name: "Free Coffee", PointsRequired: 50}},
	}
}
