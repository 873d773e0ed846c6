package domain

import "errors"

var (
	// ErrQuizNotFound means no quiz is attached to the content item. It is a valid
	// lookup result, not a fetch failure.
	ErrQuizNotFound = errors.New("no quiz available for this content")
	// ErrInvalidQuestion indicates the correct option is missing from the options.
	ErrInvalidQuestion = errors.New("correct option is not one of the question options")

	// ErrUnauthenticated is returned before any remote call when an action needs a user.
	ErrUnauthenticated = errors.New("you must sign in to do this")
	// ErrInFlight is returned while an identical request is still pending.
	ErrInFlight = errors.New("request already in progress")

	// ErrAnswerLocked is returned when a question already has an answer.
	ErrAnswerLocked = errors.New("question already answered")
	// ErrNoAnswer is returned when advancing before the current question was answered.
	ErrNoAnswer = errors.New("current question has not been answered")
	// ErrUnknownOption is returned when a selection is not one of the question options.
	ErrUnknownOption = errors.New("option not found")
	// ErrPlayFinished is returned for input after the play-through reached a terminal state.
	ErrPlayFinished = errors.New("trivia is not accepting answers")
	// ErrPlayClosed is returned for input after the play-through was closed.
	ErrPlayClosed = errors.New("trivia was closed")

	ErrRewardNotFound     = errors.New("reward not found")
	ErrAlreadyRedeemed    = errors.New("reward already redeemed")
	ErrInsufficientPoints = errors.New("not enough points for this reward")

	ErrUserNotFound    = errors.New("user not found")
	ErrArticleNotFound = errors.New("article not found")
	ErrAvatarNotFound  = errors.New("avatar not found")
	// ErrDuplicateReaction is the remote conflict signal for a reaction already recorded.
	ErrDuplicateReaction = errors.New("reaction already recorded")
	ErrNoFacts           = errors.New("no fun facts available")
	ErrInvalidInput      = errors.New("invalid input")
)
