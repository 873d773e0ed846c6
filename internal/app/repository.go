package app

import (
	"context"

	"notiplay/internal/domain"
)

// The interfaces below describe the remote data service: authentication-aware row
// storage, file storage and server-side procedures. Implementations live in infra.

// QuizRepository loads quizzes and their questions.
type QuizRepository interface {
	// QuizForContent returns the first quiz row attached to the content item, or
	// domain.ErrQuizNotFound when there is none.
	QuizForContent(ctx context.Context, contentID string) (domain.Quiz, error)
	Questions(ctx context.Context, quizID string) ([]domain.Question, error)
}

// PointsLedger credits points to a user atomically on the remote side.
type PointsLedger interface {
	CreditPoints(ctx context.Context, userID string, amount int) error
}

type RewardRepository interface {
	Rewards(ctx context.Context) ([]domain.Reward, error)
	RedeemedRewardIDs(ctx context.Context, userID string) (map[string]bool, error)
	// RedeemReward deducts points and records the redemption as one unit. A second
	// call for the same pair fails with domain.ErrAlreadyRedeemed without deducting.
	RedeemReward(ctx context.Context, userID, rewardID string) error
}

type UserRepository interface {
	User(ctx context.Context, userID string) (domain.User, error)
	UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (domain.User, error)
	SetImage(ctx context.Context, userID, imageURL string) error
}

// AvatarStore is the file storage bucket for profile pictures. Uploads overwrite.
type AvatarStore interface {
	UploadAvatar(ctx context.Context, path string, data []byte) (publicURL string, err error)
	Avatar(ctx context.Context, path string) ([]byte, error)
}

type NewsRepository interface {
	Articles(ctx context.Context) ([]domain.Article, error)
	Article(ctx context.Context, articleID string) (domain.Article, error)
	RecordView(ctx context.Context, articleID string) error
}

type EngagementRepository interface {
	Reactions(ctx context.Context, articleID string) (domain.ReactionCounts, error)
	// AddReaction fails with domain.ErrDuplicateReaction when the user already reacted.
	AddReaction(ctx context.Context, userID, articleID, kind string) error
	Comments(ctx context.Context, articleID string) ([]domain.Comment, error)
	AddComment(ctx context.Context, comment domain.Comment) error
}

type RankingRepository interface {
	Ranking(ctx context.Context) ([]domain.RankedUser, error)
}

type BadgeRepository interface {
	UserBadges(ctx context.Context, userID string) ([]string, error)
}

type CategoryRepository interface {
	Categories(ctx context.Context) ([]domain.Category, error)
	UserCategories(ctx context.Context, userID string) ([]string, error)
	ReplaceUserCategories(ctx context.Context, userID string, categoryIDs []string) error
}

type FactRepository interface {
	ActiveFacts(ctx context.Context) ([]domain.FunFact, error)
}

type CallToActionRepository interface {
	// ActiveCallsToAction returns active banner messages ordered by id.
	ActiveCallsToAction(ctx context.Context) ([]domain.CallToAction, error)
}

// Backend is the full remote data service.
type Backend interface {
	QuizRepository
	PointsLedger
	RewardRepository
	UserRepository
	AvatarStore
	NewsRepository
	EngagementRepository
	RankingRepository
	BadgeRepository
	CategoryRepository
	FactRepository
	CallToActionRepository
}

// InFlightGuard keeps a second identical request from starting while the first is
// pending. Acquire returns domain.ErrInFlight when the key is held.
type InFlightGuard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
