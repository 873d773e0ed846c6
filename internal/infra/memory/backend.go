package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"notiplay/internal/domain"
)

// Dataset seeds a Backend.
type Dataset struct {
	Users      []domain.User
	Quizzes    []domain.Quiz
	Rewards    []domain.Reward
	Articles   []domain.Article
	Categories []domain.Category
	Facts      []domain.FunFact
	CTAs       []domain.CallToAction
	// Badges maps a user id to the names of the badges they earned.
	Badges map[string][]string
}

// Backend is an in-memory remote data service for demos and tests. Every mutation
// happens under one lock, which makes redemption and credit atomic.
type Backend struct {
	publicURL string

	mu             sync.RWMutex
	users          map[string]*domain.User
	quizzes        []domain.Quiz
	rewards        []domain.Reward
	redeemed       map[string]map[string]bool
	articles       []domain.Article
	categories     []domain.Category
	userCategories map[string][]string
	facts          []domain.FunFact
	ctas           []domain.CallToAction
	badges         map[string][]string
	reactions      map[string]domain.ReactionCounts
	reacted        map[string]struct{}
	comments       map[string][]domain.Comment
	avatars        map[string][]byte
}

// WithAvatarURL sets the base URL uploaded avatars are published under.
func (b *Backend) WithAvatarURL(base string) *Backend {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.publicURL = strings.TrimSuffix(base, "/")
	return b
}

func NewBackend(data Dataset) *Backend {
	b := &Backend{
		publicURL:      "memory://avatars",
		users:          make(map[string]*domain.User),
		redeemed:       make(map[string]map[string]bool),
		userCategories: make(map[string][]string),
		badges:         make(map[string][]string),
		reactions:      make(map[string]domain.ReactionCounts),
		reacted:        make(map[string]struct{}),
		comments:       make(map[string][]domain.Comment),
		avatars:        make(map[string][]byte),
	}
	for _, u := range data.Users {
		u := u
		b.users[u.ID] = &u
	}
	b.quizzes = append(b.quizzes, data.Quizzes...)
	b.rewards = append(b.rewards, data.Rewards...)
	b.articles = append(b.articles, data.Articles...)
	b.categories = append(b.categories, data.Categories...)
	b.facts = append(b.facts, data.Facts...)
	b.ctas = append(b.ctas, data.CTAs...)
	for id, names := range data.Badges {
		b.badges[id] = append([]string(nil), names...)
	}
	return b
}

func (b *Backend) QuizForContent(_ context.Context, contentID string) (domain.Quiz, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, q := range b.quizzes {
		if q.ContentID == contentID {
			return domain.Quiz{ID: q.ID, ContentID: q.ContentID, Title: q.Title}, nil
		}
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

func (b *Backend) Questions(_ context.Context, quizID string) ([]domain.Question, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, q := range b.quizzes {
		if q.ID == quizID {
			out := make([]domain.Question, len(q.Questions))
			for i, question := range q.Questions {
				question.Options = append([]string(nil), question.Options...)
				out[i] = question
			}
			return out, nil
		}
	}
	return nil, nil
}

func (b *Backend) CreditPoints(_ context.Context, userID string, amount int) error {
	if amount <= 0 {
		return errors.Errorf("credit amount must be positive, got %d", amount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Points += amount
	return nil
}

func (b *Backend) Rewards(_ context.Context) ([]domain.Reward, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]domain.Reward(nil), b.rewards...), nil
}

func (b *Backend) RedeemedRewardIDs(_ context.Context, userID string) (map[string]bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(map[string]bool, len(b.redeemed[userID]))
	for id := range b.redeemed[userID] {
		out[id] = true
	}
	return out, nil
}

func (b *Backend) RedeemReward(_ context.Context, userID, rewardID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var reward *domain.Reward
	for i := range b.rewards {
		if b.rewards[i].ID == rewardID {
			reward = &b.rewards[i]
			break
		}
	}
	if reward == nil {
		return domain.ErrRewardNotFound
	}
	u, ok := b.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if b.redeemed[userID][rewardID] {
		return domain.ErrAlreadyRedeemed
	}
	if u.Points < reward.PointsRequired {
		return domain.ErrInsufficientPoints
	}

	u.Points -= reward.PointsRequired
	if b.redeemed[userID] == nil {
		b.redeemed[userID] = make(map[string]bool)
	}
	b.redeemed[userID][rewardID] = true
	return nil
}

func (b *Backend) User(_ context.Context, userID string) (domain.User, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	u, ok := b.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return *u, nil
}

func (b *Backend) UpdateProfile(_ context.Context, userID string, update domain.ProfileUpdate) (domain.User, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[userID]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	u.FirstName, u.LastName, u.Image = update.FirstName, update.LastName, update.Image
	return *u, nil
}

func (b *Backend) SetImage(_ context.Context, userID, imageURL string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	u, ok := b.users[userID]
	if !ok {
		return domain.ErrUserNotFound
	}
	u.Image = imageURL
	return nil
}

func (b *Backend) UploadAvatar(_ context.Context, path string, data []byte) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.avatars[path] = append([]byte(nil), data...)
	return b.publicURL + "/" + strings.TrimPrefix(path, "/"), nil
}

func (b *Backend) Avatar(_ context.Context, path string) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	data, ok := b.avatars[path]
	if !ok {
		return nil, domain.ErrAvatarNotFound
	}
	return append([]byte(nil), data...), nil
}

func (b *Backend) Articles(_ context.Context) ([]domain.Article, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]domain.Article(nil), b.articles...), nil
}

func (b *Backend) Article(_ context.Context, articleID string) (domain.Article, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, a := range b.articles {
		if a.ID == articleID {
			return a, nil
		}
	}
	return domain.Article{}, domain.ErrArticleNotFound
}

func (b *Backend) RecordView(_ context.Context, articleID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.articles {
		if b.articles[i].ID == articleID {
			b.articles[i].Views++
			return nil
		}
	}
	return domain.ErrArticleNotFound
}

func (b *Backend) Reactions(_ context.Context, articleID string) (domain.ReactionCounts, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := domain.ReactionCounts{}
	for k, v := range b.reactions[articleID] {
		out[k] = v
	}
	return out, nil
}

func (b *Backend) AddReaction(_ context.Context, userID, articleID, kind string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := userID + "|" + articleID + "|" + kind
	if _, ok := b.reacted[key]; ok {
		return domain.ErrDuplicateReaction
	}
	b.reacted[key] = struct{}{}
	if b.reactions[articleID] == nil {
		b.reactions[articleID] = domain.ReactionCounts{}
	}
	b.reactions[articleID][kind]++
	return nil
}

func (b *Backend) Comments(_ context.Context, articleID string) ([]domain.Comment, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]domain.Comment(nil), b.comments[articleID]...), nil
}

func (b *Backend) AddComment(_ context.Context, comment domain.Comment) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	comment.Pending = false
	b.comments[comment.ArticleID] = append(b.comments[comment.ArticleID], comment)
	return nil
}

// Ranking orders users by points, highest first. The top three form the podium.
func (b *Backend) Ranking(_ context.Context) ([]domain.RankedUser, error) {
	b.mu.RLock()
	users := make([]domain.User, 0, len(b.users))
	for _, u := range b.users {
		users = append(users, *u)
	}
	b.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool {
		if users[i].Points != users[j].Points {
			return users[i].Points > users[j].Points
		}
		return users[i].FullName() < users[j].FullName()
	})
	out := make([]domain.RankedUser, len(users))
	for i, u := range users {
		tier := domain.TierList
		if i < 3 {
			tier = domain.TierPodium
		}
		out[i] = domain.RankedUser{ID: u.ID, FullName: u.FullName(), Image: u.Image, Points: u.Points, Rank: i + 1, Tier: tier}
	}
	return out, nil
}

func (b *Backend) UserBadges(_ context.Context, userID string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.badges[userID]...), nil
}

func (b *Backend) Categories(_ context.Context) ([]domain.Category, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]domain.Category(nil), b.categories...), nil
}

func (b *Backend) UserCategories(_ context.Context, userID string) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.userCategories[userID]...), nil
}

func (b *Backend) ReplaceUserCategories(_ context.Context, userID string, categoryIDs []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.userCategories[userID] = append([]string(nil), categoryIDs...)
	return nil
}

func (b *Backend) ActiveFacts(_ context.Context) ([]domain.FunFact, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []domain.FunFact
	for _, f := range b.facts {
		if f.Active {
			out = append(out, f)
		}
	}
	return out, nil
}

func (b *Backend) ActiveCallsToAction(_ context.Context) ([]domain.CallToAction, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []domain.CallToAction
	for _, c := range b.ctas {
		if c.Active {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
