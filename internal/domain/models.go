package domain

import "time"

// Quiz is a named set of questions attached to one content item.
type Quiz struct {
	ID        string     `json:"id"`
	ContentID string     `json:"contentId"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions,omitempty"`
}

// Question is a multiple choice question. The correct option is matched by value.
type Question struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectOption string   `json:"correctOption"`
}

// Validate checks that the correct option appears in the options.
func (q Question) Validate() error {
	if !q.HasOption(q.CorrectOption) {
		return ErrInvalidQuestion
	}
	return nil
}

func (q Question) HasOption(option string) bool {
	for _, o := range q.Options {
		if o == option {
			return true
		}
	}
	return false
}

// AnswerRecord maps a question id to the option the user selected.
type AnswerRecord map[string]string

// User is the cached copy of the remote user record.
type User struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Image     string    `json:"image"`
	Points    int       `json:"points"`
	CreatedAt time.Time `json:"createdAt"`
}

func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// ProfileUpdate carries the editable profile fields.
type ProfileUpdate struct {
	FirstName string `json:"firstName" validate:"required,max=80"`
	LastName  string `json:"lastName" validate:"max=80"`
	Image     string `json:"image" validate:"omitempty,url"`
}

// Reward is a redeemable item. Immutable from the client's perspective.
type Reward struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	ImageURL       string `json:"imageUrl"`
	PointsRequired int    `json:"pointsRequired"`
}

// RewardStatus pairs a reward with the user's redemption state for it.
type RewardStatus struct {
	Reward
	Redeemed bool `json:"redeemed"`
}

// Article is a news item.
type Article struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Image      string    `json:"image"`
	CategoryID string    `json:"categoryId"`
	Views      int       `json:"views"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CallToAction is a home page banner message. Active ones are shown in id order.
type CallToAction struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

type FunFact struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Active  bool   `json:"active"`
}

type Comment struct {
	ID        string    `json:"id"`
	ArticleID string    `json:"articleId"`
	UserID    string    `json:"userId"`
	Body      string    `json:"body" validate:"required,max=2000"`
	Pending   bool      `json:"pending,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReactionCounts maps a reaction kind (e.g. "like") to its count.
type ReactionCounts map[string]int

const (
	TierPodium = "podium"
	TierList   = "list"
)

// RankedUser is one row of the remote ranking.
type RankedUser struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Image    string `json:"image"`
	Points   int    `json:"points"`
	Rank     int    `json:"rank"`
	Tier     string `json:"tier"`
}

// Badge is an engagement badge. Unlocked is filled per user.
type Badge struct {
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Unlocked bool   `json:"unlocked"`
}

// Badges lists every badge in display order.
var Badges = []Badge{
	{Name: "Explorador", Icon: "🧭"},
	{Name: "Lector Constante", Icon: "📖"},
	{Name: "Lector Experto", Icon: "📚"},
	{Name: "Maestro Lector", Icon: "🏆"},
	{Name: "Sabio de las Noticias", Icon: "🦉"},
}
