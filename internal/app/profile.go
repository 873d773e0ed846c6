package app

import (
	"context"
	"log/slog"
	"path"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"notiplay/internal/domain"
)

// ProfileService covers the profile screen: user fields, avatar, badges and the
// categories the user wants recommended.
type ProfileService struct {
	users      UserRepository
	avatars    AvatarStore
	badges     BadgeRepository
	categories CategoryRepository
	guard      InFlightGuard
	validate   *validator.Validate
	logger     *slog.Logger
}

func NewProfileService(users UserRepository, avatars AvatarStore, badges BadgeRepository, categories CategoryRepository, guard InFlightGuard, logger *slog.Logger) *ProfileService {
	return &ProfileService{
		users:      users,
		avatars:    avatars,
		badges:     badges,
		categories: categories,
		guard:      guard,
		validate:   validator.New(),
		logger:     logger,
	}
}

// Profile re-fetches the canonical user record.
func (s *ProfileService) Profile(ctx context.Context, session Session) (domain.User, error) {
	if err := session.require(); err != nil {
		return domain.User{}, err
	}
	return s.users.User(ctx, session.UserID)
}

func (s *ProfileService) Update(ctx context.Context, session Session, update domain.ProfileUpdate) (domain.User, error) {
	if err := session.require(); err != nil {
		return domain.User{}, err
	}
	update.FirstName = strings.TrimSpace(update.FirstName)
	update.LastName = strings.TrimSpace(update.LastName)
	if err := s.validate.Struct(update); err != nil {
		return domain.User{}, errors.Wrap(domain.ErrInvalidInput, err.Error())
	}
	return s.users.UpdateProfile(ctx, session.UserID, update)
}

var avatarExtensions = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true}

// UploadAvatar stores the picture at {user}/avatar.{ext}, replacing any previous one,
// and points the profile at it. The returned URL carries a cache-busting version.
func (s *ProfileService) UploadAvatar(ctx context.Context, session Session, filename string, data []byte) (string, error) {
	if err := session.require(); err != nil {
		return "", err
	}
	ext := strings.ToLower(path.Ext(filename))
	if !avatarExtensions[ext] || len(data) == 0 {
		return "", errors.Wrapf(domain.ErrInvalidInput, "avatar %q", filename)
	}

	url, err := s.avatars.UploadAvatar(ctx, session.UserID+"/avatar"+ext, data)
	if err != nil {
		return "", err
	}
	if err := s.users.SetImage(ctx, session.UserID, url); err != nil {
		return "", err
	}
	return url + "?v=" + uuid.NewString()[:8], nil
}

// Badges lists every badge with the ones the user earned unlocked.
func (s *ProfileService) Badges(ctx context.Context, session Session) ([]domain.Badge, error) {
	if err := session.require(); err != nil {
		return nil, err
	}
	earned, err := s.badges.UserBadges(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	have := make(map[string]bool, len(earned))
	for _, name := range earned {
		have[name] = true
	}
	out := make([]domain.Badge, len(domain.Badges))
	for i, b := range domain.Badges {
		b.Unlocked = have[b.Name]
		out[i] = b
	}
	return out, nil
}

func (s *ProfileService) Categories(ctx context.Context) ([]domain.Category, error) {
	return s.categories.Categories(ctx)
}

func (s *ProfileService) UserCategories(ctx context.Context, session Session) ([]string, error) {
	if err := session.require(); err != nil {
		return nil, err
	}
	return s.categories.UserCategories(ctx, session.UserID)
}

// SaveCategories replaces the user's recommended categories. Only one save per user
// runs at a time.
func (s *ProfileService) SaveCategories(ctx context.Context, session Session, categoryIDs []string) error {
	if err := session.require(); err != nil {
		return err
	}
	release, err := s.guard.Acquire(ctx, "categories:"+session.UserID)
	if err != nil {
		return err
	}
	defer release()

	seen := make(map[string]bool, len(categoryIDs))
	ids := make([]string, 0, len(categoryIDs))
	for _, id := range categoryIDs {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	if err := s.categories.ReplaceUserCategories(ctx, session.UserID, ids); err != nil {
		s.logger.Warn("save categories failed", "user", session.UserID, "err", err)
		return err
	}
	return nil
}
