package postgres

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/pkg/errors"

	"notiplay/internal/domain"
)

// Store is the Postgres-backed remote data service. It implements app.Backend.
type Store struct {
	pool      *pgxpool.Pool
	avatarURL string
}

// NewStore returns a store that publishes avatars under avatarURL.
func NewStore(pool *pgxpool.Pool, avatarURL string) *Store {
	return &Store{pool: pool, avatarURL: strings.TrimSuffix(avatarURL, "/")}
}

// QuizForContent returns the oldest quiz attached to the content item.
func (s *Store) QuizForContent(ctx context.Context, contentID string) (domain.Quiz, error) {
	var q domain.Quiz
	err := s.pool.QueryRow(ctx,
		`SELECT id, content_id, title FROM trivia WHERE content_id=$1 ORDER BY created_at, id LIMIT 1`,
		contentID,
	).Scan(&q.ID, &q.ContentID, &q.Title)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, errors.Wrap(err, "load quiz")
	}
	return q, nil
}

func (s *Store) Questions(ctx context.Context, quizID string) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, prompt, options, correct_option FROM trivia_questions WHERE trivia_id=$1 ORDER BY position, id`,
		quizID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "load questions")
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		var (
			q   domain.Question
			raw []byte
		)
		if err := rows.Scan(&q.ID, &q.Prompt, &raw, &q.CorrectOption); err != nil {
			return nil, errors.Wrap(err, "scan question")
		}
		if err := json.Unmarshal(raw, &q.Options); err != nil {
			return nil, errors.Wrapf(err, "unmarshal options of question %s", q.ID)
		}
		out = append(out, q)
	}
	return out, errors.Wrap(rows.Err(), "load questions")
}

func (s *Store) CreditPoints(ctx context.Context, userID string, amount int) error {
	if amount <= 0 {
		return errors.Errorf("credit amount must be positive, got %d", amount)
	}
	tag, err := s.pool.Exec(ctx, `UPDATE users SET points = points + $2 WHERE id=$1`, userID, amount)
	if err != nil {
		return errors.Wrap(err, "credit points")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *Store) Rewards(ctx context.Context) ([]domain.Reward, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, image_url, points_required FROM rewards ORDER BY points_required, id`)
	if err != nil {
		return nil, errors.Wrap(err, "load rewards")
	}
	defer rows.Close()

	var out []domain.Reward
	for rows.Next() {
		var r domain.Reward
		if err := rows.Scan(&r.ID, &r.Name, &r.Description, &r.ImageURL, &r.PointsRequired); err != nil {
			return nil, errors.Wrap(err, "scan reward")
		}
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "load rewards")
}

func (s *Store) RedeemedRewardIDs(ctx context.Context, userID string) (map[string]bool, error) {
	ids, err := s.column(ctx, `SELECT reward_id FROM reward_redemptions WHERE user_id=$1`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load redemptions")
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// RedeemReward records the redemption and deducts the cost in one transaction. The
// user row is locked so concurrent redemptions see each other's deductions.
func (s *Store) RedeemReward(ctx context.Context, userID, rewardID string) error {
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		var cost int
		err := tx.QueryRow(ctx, `SELECT points_required FROM rewards WHERE id=$1`, rewardID).Scan(&cost)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrRewardNotFound
		}
		if err != nil {
			return errors.Wrap(err, "load reward")
		}

		var points int
		err = tx.QueryRow(ctx, `SELECT points FROM users WHERE id=$1 FOR UPDATE`, userID).Scan(&points)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrUserNotFound
		}
		if err != nil {
			return errors.Wrap(err, "lock user")
		}

		tag, err := tx.Exec(ctx,
			`INSERT INTO reward_redemptions (user_id, reward_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			userID, rewardID,
		)
		if err != nil {
			return errors.Wrap(err, "record redemption")
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrAlreadyRedeemed
		}
		if points < cost {
			return domain.ErrInsufficientPoints
		}

		if _, err := tx.Exec(ctx, `UPDATE users SET points = points - $2 WHERE id=$1`, userID, cost); err != nil {
			return errors.Wrap(err, "deduct points")
		}
		return nil
	})
}

const userColumns = `id, first_name, last_name, email, image, points, created_at`

func (s *Store) User(ctx context.Context, userID string) (domain.User, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, userID)
	return scanUser(row)
}

func (s *Store) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (domain.User, error) {
	row := s.pool.QueryRow(ctx,
		`UPDATE users SET first_name=$2, last_name=$3, image=$4 WHERE id=$1 RETURNING `+userColumns,
		userID, update.FirstName, update.LastName, update.Image,
	)
	return scanUser(row)
}

func (s *Store) SetImage(ctx context.Context, userID, imageURL string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET image=$2 WHERE id=$1`, userID, imageURL)
	if err != nil {
		return errors.Wrap(err, "set image")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var u domain.User
	err := row.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.Image, &u.Points, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, errors.Wrap(err, "load user")
	}
	return u, nil
}

// UploadAvatar overwrites the file at path.
func (s *Store) UploadAvatar(ctx context.Context, path string, data []byte) (string, error) {
	path = strings.TrimPrefix(path, "/")
	_, err := s.pool.Exec(ctx,
		`INSERT INTO avatars (path, data) VALUES ($1, $2)
		 ON CONFLICT (path) DO UPDATE SET data=EXCLUDED.data, updated_at=now()`,
		path, data,
	)
	if err != nil {
		return "", errors.Wrap(err, "upload avatar")
	}
	return s.avatarURL + "/" + path, nil
}

func (s *Store) Avatar(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM avatars WHERE path=$1`, path).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAvatarNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "load avatar")
	}
	return data, nil
}

func (s *Store) UserBadges(ctx context.Context, userID string) ([]string, error) {
	names, err := s.column(ctx, `SELECT badge_name FROM user_badges WHERE user_id=$1 ORDER BY badge_name`, userID)
	return names, errors.Wrap(err, "load badges")
}

// column runs a query returning a single text column.
func (s *Store) column(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
