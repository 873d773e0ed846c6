package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"

	"notiplay/internal/domain"
)

const articleColumns = `id, title, content, image, COALESCE(category_id, ''), views, created_at`

func (s *Store) Articles(ctx context.Context) ([]domain.Article, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+articleColumns+` FROM news_articles ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, errors.Wrap(err, "load articles")
	}
	defer rows.Close()

	var out []domain.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, errors.Wrap(rows.Err(), "load articles")
}

func (s *Store) Article(ctx context.Context, articleID string) (domain.Article, error) {
	a, err := scanArticle(s.pool.QueryRow(ctx, `SELECT `+articleColumns+` FROM news_articles WHERE id=$1`, articleID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Article{}, domain.ErrArticleNotFound
	}
	return a, err
}

func scanArticle(row pgx.Row) (domain.Article, error) {
	var a domain.Article
	if err := row.Scan(&a.ID, &a.Title, &a.Content, &a.Image, &a.CategoryID, &a.Views, &a.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Article{}, err
		}
		return domain.Article{}, errors.Wrap(err, "scan article")
	}
	return a, nil
}

func (s *Store) RecordView(ctx context.Context, articleID string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE news_articles SET views = views + 1 WHERE id=$1`, articleID)
	if err != nil {
		return errors.Wrap(err, "record view")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrArticleNotFound
	}
	return nil
}

func (s *Store) Reactions(ctx context.Context, articleID string) (domain.ReactionCounts, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT kind, count(*) FROM article_reactions WHERE article_id=$1 GROUP BY kind`, articleID)
	if err != nil {
		return nil, errors.Wrap(err, "load reactions")
	}
	defer rows.Close()

	out := domain.ReactionCounts{}
	for rows.Next() {
		var (
			kind  string
			count int
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, errors.Wrap(err, "scan reaction")
		}
		out[kind] = count
	}
	return out, errors.Wrap(rows.Err(), "load reactions")
}

func (s *Store) AddReaction(ctx context.Context, userID, articleID, kind string) error {
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO article_reactions (user_id, article_id, kind) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		userID, articleID, kind,
	)
	if err != nil {
		return errors.Wrap(err, "add reaction")
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDuplicateReaction
	}
	return nil
}

func (s *Store) Comments(ctx context.Context, articleID string) ([]domain.Comment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, article_id, user_id, body, created_at FROM article_comments WHERE article_id=$1 ORDER BY created_at, id`,
		articleID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "load comments")
	}
	defer rows.Close()

	var out []domain.Comment
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.ArticleID, &c.UserID, &c.Body, &c.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan comment")
		}
		out = append(out, c)
	}
	return out, errors.Wrap(rows.Err(), "load comments")
}

func (s *Store) AddComment(ctx context.Context, c domain.Comment) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO article_comments (id, article_id, user_id, body, created_at) VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.ArticleID, c.UserID, c.Body, c.CreatedAt,
	)
	return errors.Wrap(err, "add comment")
}

// Ranking numbers users by points, ties broken by name. The top three are the podium.
func (s *Store) Ranking(ctx context.Context) ([]domain.RankedUser, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, trim(first_name || ' ' || last_name), image, points,
		       row_number() OVER (ORDER BY points DESC, first_name, last_name, id) AS rank
		FROM users
		ORDER BY rank`)
	if err != nil {
		return nil, errors.Wrap(err, "load ranking")
	}
	defer rows.Close()

	var out []domain.RankedUser
	for rows.Next() {
		var (
			r    domain.RankedUser
			rank int64
		)
		if err := rows.Scan(&r.ID, &r.FullName, &r.Image, &r.Points, &rank); err != nil {
			return nil, errors.Wrap(err, "scan ranking")
		}
		r.Rank = int(rank)
		r.Tier = domain.TierList
		if r.Rank <= 3 {
			r.Tier = domain.TierPodium
		}
		out = append(out, r)
	}
	return out, errors.Wrap(rows.Err(), "load ranking")
}

func (s *Store) Categories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "load categories")
	}
	defer rows.Close()

	var out []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, errors.Wrap(err, "scan category")
		}
		out = append(out, c)
	}
	return out, errors.Wrap(rows.Err(), "load categories")
}

func (s *Store) UserCategories(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.column(ctx, `SELECT category_id FROM user_categories WHERE user_id=$1 ORDER BY category_id`, userID)
	return ids, errors.Wrap(err, "load user categories")
}

func (s *Store) ReplaceUserCategories(ctx context.Context, userID string, categoryIDs []string) error {
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_categories WHERE user_id=$1`, userID); err != nil {
			return errors.Wrap(err, "clear user categories")
		}
		for _, id := range categoryIDs {
			if _, err := tx.Exec(ctx,
				`INSERT INTO user_categories (user_id, category_id) VALUES ($1, $2)`, userID, id); err != nil {
				return errors.Wrapf(err, "add user category %s", id)
			}
		}
		return nil
	})
}

func (s *Store) ActiveCallsToAction(ctx context.Context) ([]domain.CallToAction, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, description, is_active FROM calls_to_action WHERE is_active ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "load calls to action")
	}
	defer rows.Close()

	var out []domain.CallToAction
	for rows.Next() {
		var c domain.CallToAction
		if err := rows.Scan(&c.ID, &c.Description, &c.Active); err != nil {
			return nil, errors.Wrap(err, "scan call to action")
		}
		out = append(out, c)
	}
	return out, errors.Wrap(rows.Err(), "load calls to action")
}

func (s *Store) ActiveFacts(ctx context.Context) ([]domain.FunFact, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, content, active FROM fun_facts WHERE active ORDER BY id`)
	if err != nil {
		return nil, errors.Wrap(err, "load facts")
	}
	defer rows.Close()

	var out []domain.FunFact
	for rows.Next() {
		var f domain.FunFact
		if err := rows.Scan(&f.ID, &f.Content, &f.Active); err != nil {
			return nil, errors.Wrap(err, "scan fact")
		}
		out = append(out, f)
	}
	return out, errors.Wrap(rows.Err(), "load facts")
}
