package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"notiplay/internal/infra/memory"
	pgmigrations "notiplay/internal/infra/postgres/migrations"
)

// OpenDB opens a bun handle for migrations and seeding. Queries go through Store.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

// Migrate applies pending migrations and returns the applied group.
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, errors.Wrap(err, "init migrator")
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "migrate")
	}
	return group, nil
}

type userRow struct {
	bun.BaseModel `bun:"table:users"`
	ID            string    `bun:"id,pk"`
	FirstName     string    `bun:"first_name"`
	LastName      string    `bun:"last_name"`
	Email         string    `bun:"email"`
	Image         string    `bun:"image"`
	Points        int       `bun:"points"`
	CreatedAt     time.Time `bun:"created_at"`
}

type categoryRow struct {
	bun.BaseModel `bun:"table:categories"`
	ID            string `bun:"id,pk"`
	Name          string `bun:"name"`
}

type articleRow struct {
	bun.BaseModel `bun:"table:news_articles"`
	ID            string         `bun:"id,pk"`
	Title         string         `bun:"title"`
	Content       string         `bun:"content"`
	Image         string         `bun:"image"`
	CategoryID    sql.NullString `bun:"category_id"`
	Views         int            `bun:"views"`
	CreatedAt     time.Time      `bun:"created_at"`
}

type quizRow struct {
	bun.BaseModel `bun:"table:trivia"`
	ID            string    `bun:"id,pk"`
	ContentID     string    `bun:"content_id"`
	Title         string    `bun:"title"`
	CreatedAt     time.Time `bun:"created_at"`
}

type questionRow struct {
	bun.BaseModel `bun:"table:trivia_questions"`
	ID            string   `bun:"id,pk"`
	QuizID        string   `bun:"trivia_id"`
	Position      int      `bun:"position"`
	Prompt        string   `bun:"prompt"`
	Options       []string `bun:"options,type:jsonb"`
	CorrectOption string   `bun:"correct_option"`
}

type rewardRow struct {
	bun.BaseModel  `bun:"table:rewards"`
	ID             string `bun:"id,pk"`
	Name           string `bun:"name"`
	Description    string `bun:"description"`
	ImageURL       string `bun:"image_url"`
	PointsRequired int    `bun:"points_required"`
}

type ctaRow struct {
	bun.BaseModel `bun:"table:calls_to_action"`
	ID            int64  `bun:"id,pk"`
	Description   string `bun:"description"`
	Active        bool   `bun:"is_active"`
}

type factRow struct {
	bun.BaseModel `bun:"table:fun_facts"`
	ID            string `bun:"id,pk"`
	Content       string `bun:"content"`
	Active        bool   `bun:"active"`
}

type badgeRow struct {
	bun.BaseModel `bun:"table:user_badges"`
	UserID        string `bun:"user_id,pk"`
	BadgeName     string `bun:"badge_name,pk"`
}

// Seed inserts the dataset. Rows that already exist are left untouched.
func Seed(ctx context.Context, db *bun.DB, data memory.Dataset) error {
	now := time.Now().UTC()
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		insert := func(what string, model interface{}) error {
			if _, err := tx.NewInsert().Model(model).On("CONFLICT DO NOTHING").Exec(ctx); err != nil {
				return errors.Wrapf(err, "seed %s", what)
			}
			return nil
		}

		if len(data.Users) > 0 {
			rows := make([]userRow, len(data.Users))
			for i, u := range data.Users {
				rows[i] = userRow{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email, Image: u.Image, Points: u.Points, CreatedAt: orNow(u.CreatedAt, now)}
			}
			if err := insert("users", &rows); err != nil {
				return err
			}
		}
		if len(data.Categories) > 0 {
			rows := make([]categoryRow, len(data.Categories))
			for i, c := range data.Categories {
				rows[i] = categoryRow{ID: c.ID, Name: c.Name}
			}
			if err := insert("categories", &rows); err != nil {
				return err
			}
		}
		if len(data.Articles) > 0 {
			rows := make([]articleRow, len(data.Articles))
			for i, a := range data.Articles {
				rows[i] = articleRow{
					ID: a.ID, Title: a.Title, Content: a.Content, Image: a.Image, Views: a.Views,
					CategoryID: sql.NullString{String: a.CategoryID, Valid: a.CategoryID != ""},
					CreatedAt:  orNow(a.CreatedAt, now),
				}
			}
			if err := insert("articles", &rows); err != nil {
				return err
			}
		}
		if len(data.Quizzes) > 0 {
			quizzes := make([]quizRow, len(data.Quizzes))
			var questions []questionRow
			for i, q := range data.Quizzes {
				// Keep dataset order as row order.
				quizzes[i] = quizRow{ID: q.ID, ContentID: q.ContentID, Title: q.Title, CreatedAt: now.Add(time.Duration(i) * time.Millisecond)}
				for pos, question := range q.Questions {
					questions = append(questions, questionRow{
						ID: question.ID, QuizID: q.ID, Position: pos, Prompt: question.Prompt,
						Options: question.Options, CorrectOption: question.CorrectOption,
					})
				}
			}
			if err := insert("quizzes", &quizzes); err != nil {
				return err
			}
			if len(questions) > 0 {
				if err := insert("questions", &questions); err != nil {
					return err
				}
			}
		}
		if len(data.Rewards) > 0 {
			rows := make([]rewardRow, len(data.Rewards))
			for i, r := range data.Rewards {
				rows[i] = rewardRow{ID: r.ID, Name: r.Name, Description: r.Description, ImageURL: r.ImageURL, PointsRequired: r.PointsRequired}
			}
			if err := insert("rewards", &rows); err != nil {
				return err
			}
		}
		if len(data.Facts) > 0 {
			rows := make([]factRow, len(data.Facts))
			for i, f := range data.Facts {
				rows[i] = factRow{ID: f.ID, Content: f.Content, Active: f.Active}
			}
			if err := insert("facts", &rows); err != nil {
				return err
			}
		}
		if len(data.CTAs) > 0 {
			rows := make([]ctaRow, len(data.CTAs))
			for i, c := range data.CTAs {
				rows[i] = ctaRow{ID: c.ID, Description: c.Description, Active: c.Active}
			}
			if err := insert("calls to action", &rows); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`SELECT setval(pg_get_serial_sequence('calls_to_action', 'id'), (SELECT MAX(id) FROM calls_to_action))`); err != nil {
				return errors.Wrap(err, "advance calls to action sequence")
			}
		}
		var badges []badgeRow
		for userID, names := range data.Badges {
			for _, name := range names {
				badges = append(badges, badgeRow{UserID: userID, BadgeName: name})
			}
		}
		if len(badges) > 0 {
			if err := insert("badges", &badges); err != nil {
				return err
			}
		}
		return nil
	})
}

func orNow(t, now time.Time) time.Time {
	if t.IsZero() {
		return now
	}
	return t
}
