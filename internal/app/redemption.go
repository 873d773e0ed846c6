package app

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	"notiplay/internal/domain"
)

// RewardCard is a reward as shown to a user.
type RewardCard struct {
	domain.RewardStatus
	Progress  float64 `json:"progress"`
	CanRedeem bool    `json:"canRedeem"`
}

// NewRewardCard derives the presentational fields of a reward for the user.
func NewRewardCard(user domain.User, status domain.RewardStatus) RewardCard {
	card := RewardCard{
		RewardStatus: status,
		CanRedeem:    !status.Redeemed && user.Points >= status.PointsRequired,
	}
	if !status.Redeemed {
		card.Progress = domain.Progress(user.Points, status.PointsRequired)
	}
	return card
}

// Catalog is the reward screen for one user.
type Catalog struct {
	User    domain.User  `json:"user"`
	Rewards []RewardCard `json:"rewards"`
}

// Redemption is the result of a successful redeem.
type Redemption struct {
	Reward RewardCard  `json:"reward"`
	User   domain.User `json:"user"`
	// UserRefreshed is false when the redemption went through but the user record
	// could not be re-fetched; User is then the stale copy.
	UserRefreshed bool `json:"userRefreshed"`
}

type RedemptionService struct {
	rewards RewardRepository
	users   UserRepository
	guard   InFlightGuard
	logger  *slog.Logger
}

func NewRedemptionService(rewards RewardRepository, users UserRepository, guard InFlightGuard, logger *slog.Logger) *RedemptionService {
	return &RedemptionService{rewards: rewards, users: users, guard: guard, logger: logger}
}

// Catalog loads the user, the rewards and the user's redemptions.
func (s *RedemptionService) Catalog(ctx context.Context, session Session) (Catalog, error) {
	if err := session.require(); err != nil {
		return Catalog{}, err
	}
	user, err := s.users.User(ctx, session.UserID)
	if err != nil {
		return Catalog{}, err
	}
	statuses, err := s.statuses(ctx, session.UserID)
	if err != nil {
		return Catalog{}, err
	}

	cards := make([]RewardCard, 0, len(statuses))
	for _, st := range statuses {
		cards = append(cards, NewRewardCard(user, st))
	}
	return Catalog{User: user, Rewards: cards}, nil
}

func (s *RedemptionService) statuses(ctx context.Context, userID string) ([]domain.RewardStatus, error) {
	rewards, err := s.rewards.Rewards(ctx)
	if err != nil {
		return nil, err
	}
	redeemed, err := s.rewards.RedeemedRewardIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.RewardStatus, 0, len(rewards))
	for _, r := range rewards {
		out = append(out, domain.RewardStatus{Reward: r, Redeemed: redeemed[r.ID]})
	}
	return out, nil
}

// Redeem exchanges the user's points for the reward. user and status are the
// caller's cached copies; they gate the request but the remote procedure decides.
func (s *RedemptionService) Redeem(ctx context.Context, session Session, user domain.User, status domain.RewardStatus) (Redemption, error) {
	if err := session.require(); err != nil {
		return Redemption{}, err
	}
	if status.Redeemed {
		return Redemption{}, domain.ErrAlreadyRedeemed
	}
	if user.Points < status.PointsRequired {
		return Redemption{}, domain.ErrInsufficientPoints
	}

	release, err := s.guard.Acquire(ctx, "redeem:"+session.UserID+":"+status.ID)
	if err != nil {
		return Redemption{}, err
	}
	defer release()

	log := s.logger.With("user", session.UserID, "reward", status.ID)
	if err := s.rewards.RedeemReward(ctx, session.UserID, status.ID); err != nil {
		log.Warn("redemption rejected", "err", err)
		return Redemption{}, err
	}
	log.Info("reward redeemed")

	status.Redeemed = true
	out := Redemption{User: user}
	fresh, err := s.users.User(ctx, session.UserID)
	if err != nil {
		log.Warn("user refresh after redemption failed", "err", err)
	} else {
		out.User, out.UserRefreshed = fresh, true
	}
	out.Reward = NewRewardCard(out.User, status)
	return out, nil
}

// RedeemByID looks the reward up in the user's current catalog and redeems it.
func (s *RedemptionService) RedeemByID(ctx context.Context, session Session, rewardID string) (Redemption, error) {
	catalog, err := s.Catalog(ctx, session)
	if err != nil {
		return Redemption{}, err
	}
	for _, card := range catalog.Rewards {
		if card.ID == rewardID {
			return s.Redeem(ctx, session, catalog.User, card.RewardStatus)
		}
	}
	return Redemption{}, errors.Wrap(domain.ErrRewardNotFound, rewardID)
}
