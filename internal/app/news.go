package app

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"notiplay/internal/domain"
)

// NewsService serves the news feed and the reactions and comments under articles.
type NewsService struct {
	news       NewsRepository
	engagement EngagementRepository
	categories CategoryRepository
	facts      FactRepository
	ctas       CallToActionRepository
	validate   *validator.Validate
	logger     *slog.Logger
	now        func() time.Time
}

func NewNewsService(news NewsRepository, engagement EngagementRepository, categories CategoryRepository, facts FactRepository, ctas CallToActionRepository, logger *slog.Logger) *NewsService {
	return &NewsService{
		news:       news,
		engagement: engagement,
		categories: categories,
		facts:      facts,
		ctas:       ctas,
		validate:   validator.New(),
		logger:     logger,
		now:        time.Now,
	}
}

// Latest returns all articles, newest first.
func (s *NewsService) Latest(ctx context.Context) ([]domain.Article, error) {
	articles, err := s.news.Articles(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].CreatedAt.After(articles[j].CreatedAt)
	})
	return articles, nil
}

// Feed puts articles from the user's recommended categories first. Anonymous
// sessions get the latest articles.
func (s *NewsService) Feed(ctx context.Context, session Session) ([]domain.Article, error) {
	articles, err := s.Latest(ctx)
	if err != nil || !session.Authenticated() {
		return articles, err
	}
	preferred, err := s.categories.UserCategories(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if len(preferred) == 0 {
		return articles, nil
	}
	want := make(map[string]bool, len(preferred))
	for _, id := range preferred {
		want[id] = true
	}
	sort.SliceStable(articles, func(i, j int) bool {
		return want[articles[i].CategoryID] && !want[articles[j].CategoryID]
	})
	return articles, nil
}

// Article returns one article and counts the view. A failed view count is only logged.
func (s *NewsService) Article(ctx context.Context, articleID string) (domain.Article, error) {
	article, err := s.news.Article(ctx, articleID)
	if err != nil {
		return domain.Article{}, err
	}
	if err := s.news.RecordView(ctx, articleID); err != nil {
		s.logger.Warn("record view failed", "article", articleID, "err", err)
	}
	return article, nil
}

// RandomFact picks one active fun fact.
func (s *NewsService) RandomFact(ctx context.Context) (domain.FunFact, error) {
	facts, err := s.facts.ActiveFacts(ctx)
	if err != nil {
		return domain.FunFact{}, err
	}
	if len(facts) == 0 {
		return domain.FunFact{}, domain.ErrNoFacts
	}
	return facts[rand.Intn(len(facts))], nil
}

// CallsToAction returns the active banner messages. None is an empty list.
func (s *NewsService) CallsToAction(ctx context.Context) ([]domain.CallToAction, error) {
	return s.ctas.ActiveCallsToAction(ctx)
}

// ReactionBoard is the reaction counts of one article as held by one viewer.
type ReactionBoard struct {
	ArticleID string

	mu     sync.Mutex
	counts domain.ReactionCounts
}

func (b *ReactionBoard) Counts() domain.ReactionCounts {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(domain.ReactionCounts, len(b.counts))
	for k, v := range b.counts {
		out[k] = v
	}
	return out
}

// bump increments kind and returns the count it had before.
func (b *ReactionBoard) bump(kind string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	before := b.counts[kind]
	b.counts[kind] = before + 1
	return before
}

func (b *ReactionBoard) restore(kind string, count int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.counts[kind] = count
}

// Board loads the reaction counts of an article.
func (s *NewsService) Board(ctx context.Context, articleID string) (*ReactionBoard, error) {
	counts, err := s.engagement.Reactions(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if counts == nil {
		counts = domain.ReactionCounts{}
	}
	return &ReactionBoard{ArticleID: articleID, counts: counts}, nil
}

// React shows the reaction on the board before the remote confirms it and puts the
// previous count back if it does not. A reaction the user already made is a no-op.
func (s *NewsService) React(ctx context.Context, session Session, board *ReactionBoard, kind string) error {
	if err := session.require(); err != nil {
		return err
	}
	before := board.bump(kind)
	err := s.engagement.AddReaction(ctx, session.UserID, board.ArticleID, kind)
	if err == nil {
		return nil
	}
	board.restore(kind, before)
	if errors.Is(err, domain.ErrDuplicateReaction) {
		return nil
	}
	s.logger.Warn("reaction failed", "article", board.ArticleID, "kind", kind, "err", err)
	return err
}

// CommentThread is the comments of one article as held by one viewer.
type CommentThread struct {
	ArticleID string

	mu       sync.Mutex
	comments []domain.Comment
}

func (t *CommentThread) Comments() []domain.Comment {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.Comment(nil), t.comments...)
}

func (t *CommentThread) remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, c := range t.comments {
		if c.ID == id {
			t.comments = append(t.comments[:i], t.comments[i+1:]...)
			return
		}
	}
}

func (t *CommentThread) confirm(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.comments {
		if t.comments[i].ID == id {
			t.comments[i].Pending = false
			return
		}
	}
}

// Thread loads the comments of an article.
func (s *NewsService) Thread(ctx context.Context, articleID string) (*CommentThread, error) {
	comments, err := s.engagement.Comments(ctx, articleID)
	if err != nil {
		return nil, err
	}
	return &CommentThread{ArticleID: articleID, comments: comments}, nil
}

// Comment appends a pending comment to the thread, then stores it. On failure the
// pending comment is removed again.
func (s *NewsService) Comment(ctx context.Context, session Session, thread *CommentThread, body string) (domain.Comment, error) {
	if err := session.require(); err != nil {
		return domain.Comment{}, err
	}
	c := domain.Comment{
		ID:        uuid.NewString(),
		ArticleID: thread.ArticleID,
		UserID:    session.UserID,
		Body:      body,
		Pending:   true,
		CreatedAt: s.now().UTC(),
	}
	if err := s.validate.Struct(c); err != nil {
		return domain.Comment{}, errors.Wrap(domain.ErrInvalidInput, err.Error())
	}

	thread.mu.Lock()
	thread.comments = append(thread.comments, c)
	thread.mu.Unlock()

	if err := s.engagement.AddComment(ctx, c); err != nil {
		thread.remove(c.ID)
		s.logger.Warn("comment failed", "article", thread.ArticleID, "err", err)
		return domain.Comment{}, err
	}
	thread.confirm(c.ID)
	c.Pending = false
	return c, nil
}
