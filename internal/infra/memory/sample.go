package memory

import (
	"time"

	"notiplay/internal/domain"
)

// SampleDataset is a small news catalogue with one quiz and a few rewards, used by
// the demo server and the seed command.
func SampleDataset() Dataset {
	created := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	return Dataset{
		Users: []domain.User{
			{ID: "demo-user", FirstName: "Viviana", LastName: "Rojas", Email: "vivi@example.com", Points: 40, CreatedAt: created},
		},
		Categories: []domain.Category{
			{ID: "world", Name: "Mundo"},
			{ID: "science", Name: "Ciencia"},
			{ID: "sports", Name: "Deportes"},
		},
		Articles: []domain.Article{
			{ID: "news-1", Title: "Capitales de Sudamérica", Content: "Un repaso por las capitales del continente.", CategoryID: "world", CreatedAt: created},
			{ID: "news-2", Title: "Nuevo telescopio en los Andes", Content: "El observatorio abrirá en 2026.", CategoryID: "science", CreatedAt: created.Add(24 * time.Hour)},
		},
		Quizzes: []domain.Quiz{
			{
				ID:        "quiz-capitals",
				ContentID: "news-1",
				Title:     "Capitals",
				Questions: []domain.Question{
					{ID: "q1", Prompt: "¿Cuál es la capital de Perú?", Options: []string{"Cusco", "Lima", "Arequipa"}, CorrectOption: "Lima"},
					{ID: "q2", Prompt: "¿Cuál es la capital de Bolivia?", Options: []string{"Sucre", "Santa Cruz", "Cochabamba"}, CorrectOption: "Sucre"},
				},
			},
		},
		Rewards: []domain.Reward{
			{ID: "reward-coffee", Name: "Free Coffee", Description: "Un café en nuestra cafetería aliada.", PointsRequired: 50},
			{ID: "reward-sticker", Name: "Sticker Pack", Description: "Stickers de Notiplay.", PointsRequired: 20},
		},
		Facts: []domain.FunFact{
			{ID: "fact-1", Content: "El lago Titicaca es el lago navegable más alto del mundo.", Active: true},
			{ID: "fact-2", Content: "Este dato está archivado.", Active: false},
		},
		CTAs: []domain.CallToAction{
			{ID: 1, Description: "¡Juega la trivia de hoy y suma puntos!", Active: true},
			{ID: 2, Description: "Canjea tus puntos por recompensas.", Active: true},
			{ID: 3, Description: "Campaña de lanzamiento finalizada.", Active: false},
		},
		Badges: map[string][]string{
			"demo-user": {"Explorador"},
		},
	}
}
