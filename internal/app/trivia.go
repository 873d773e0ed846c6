package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"notiplay/internal/domain"
)

// PlayState is the position of a play-through in the trivia state machine.
type PlayState string

const (
	StateLoading         PlayState = "loading"
	StateAwaitingAnswer  PlayState = "awaiting_answer"
	StateAnswerRevealed  PlayState = "answer_revealed"
	StateCompleted       PlayState = "completed"
	StateNoQuizAvailable PlayState = "no_quiz"
	// StateUnavailable means the quiz lookup failed. It is never used for a missing quiz.
	StateUnavailable PlayState = "unavailable"
)

func (s PlayState) Terminal() bool {
	switch s {
	case StateCompleted, StateNoQuizAvailable, StateUnavailable:
		return true
	}
	return false
}

const defaultCreditTimeout = 10 * time.Second

// TriviaService opens play-throughs for content items.
type TriviaService struct {
	quizzes       QuizRepository
	ledger        PointsLedger
	logger        *slog.Logger
	creditTimeout time.Duration
}

type TriviaOption func(*TriviaService)

// WithCreditTimeout bounds the background point credit request.
func WithCreditTimeout(d time.Duration) TriviaOption {
	return func(s *TriviaService) {
		if d > 0 {
			s.creditTimeout = d
		}
	}
}

func NewTriviaService(quizzes QuizRepository, ledger PointsLedger, logger *slog.Logger, opts ...TriviaOption) *TriviaService {
	s := &TriviaService{
		quizzes:       quizzes,
		ledger:        ledger,
		logger:        logger,
		creditTimeout: defaultCreditTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open starts a fresh play-through for the content item and loads its quiz. The
// returned play is never nil; inspect its state for load failures.
func (s *TriviaService) Open(ctx context.Context, session Session, contentID string) *Play {
	p := &Play{
		id:        uuid.NewString(),
		svc:       s,
		session:   session,
		contentID: contentID,
		creditCtx: context.WithoutCancel(ctx),
		state:     StateLoading,
		answers:   domain.AnswerRecord{},
	}
	p.load(ctx)
	return p
}

// Play is one traversal of a quiz, from the first question to the score.
type Play struct {
	id        string
	svc       *TriviaService
	session   Session
	contentID string
	// creditCtx keeps the opener's values but not its cancellation.
	creditCtx context.Context

	mu        sync.Mutex
	state     PlayState
	quiz      domain.Quiz
	questions []domain.Question
	index     int
	answers   domain.AnswerRecord
	score     *domain.ScoreResult
	loadErr   error
	closed    bool
	onCredit  func(CreditOutcome)

	credits sync.WaitGroup
}

// Reveal is the outcome of answering one question.
type Reveal struct {
	QuestionID    string `json:"questionId"`
	Index         int    `json:"index"`
	Selected      string `json:"selected"`
	Correct       bool   `json:"correct"`
	CorrectOption string `json:"correctOption"`
	Last          bool   `json:"last"`
}

// QuestionView is a question as shown to the player. The correct option is only
// present once the question has been answered.
type QuestionView struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	Options       []string `json:"options"`
	CorrectOption string   `json:"correctOption,omitempty"`
}

// Snapshot is a read-only view of a play.
type Snapshot struct {
	State    PlayState           `json:"state"`
	QuizID   string              `json:"quizId,omitempty"`
	Title    string              `json:"title,omitempty"`
	Index    int                 `json:"index"`
	Total    int                 `json:"total"`
	Question *QuestionView       `json:"question,omitempty"`
	Selected string              `json:"selected,omitempty"`
	Score    *domain.ScoreResult `json:"score,omitempty"`
}

// CreditOutcome reports the background point credit for a completed play.
type CreditOutcome struct {
	Points int   `json:"points"`
	Err    error `json:"-"`
}

func (p *Play) ID() string {
	return p.id
}

func (p *Play) load(ctx context.Context) {
	log := p.svc.logger.With("play", p.id, "content", p.contentID)

	quiz, err := p.svc.quizzes.QuizForContent(ctx, p.contentID)
	if err != nil {
		p.mu.Lock()
		defer p.mu.Unlock()
		if errors.Is(err, domain.ErrQuizNotFound) {
			p.state = StateNoQuizAvailable
			return
		}
		log.Warn("quiz lookup failed", "err", err)
		p.state, p.loadErr = StateUnavailable, err
		return
	}

	questions, err := p.svc.quizzes.Questions(ctx, quiz.ID)
	if err == nil {
		for _, q := range questions {
			if verr := q.Validate(); verr != nil {
				err = errors.Wrapf(verr, "quiz %s question %s", quiz.ID, q.ID)
				break
			}
		}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.quiz = quiz
	switch {
	case err != nil:
		log.Warn("question lookup failed", "quiz", quiz.ID, "err", err)
		p.state, p.loadErr = StateUnavailable, err
	case len(questions) == 0:
		p.state = StateNoQuizAvailable
	default:
		p.questions = questions
		p.state = StateAwaitingAnswer
	}
}

// Err returns the lookup failure when the play is unavailable.
func (p *Play) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadErr
}

func (p *Play) State() PlayState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// OnCredit registers fn to receive the credit outcome, unless the play was closed
// before the credit finished.
func (p *Play) OnCredit(fn func(CreditOutcome)) {
	p.mu.Lock()
	p.onCredit = fn
	p.mu.Unlock()
}

// Select answers the current question. Only the first selection counts.
func (p *Play) Select(option string) (Reveal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.acceptingLocked(); err != nil {
		return Reveal{}, err
	}
	if p.state == StateAnswerRevealed {
		return Reveal{}, domain.ErrAnswerLocked
	}

	q := p.questions[p.index]
	if !q.HasOption(option) {
		return Reveal{}, domain.ErrUnknownOption
	}
	p.answers[q.ID] = option
	p.state = StateAnswerRevealed

	return Reveal{
		QuestionID:    q.ID,
		Index:         p.index,
		Selected:      option,
		Correct:       option == q.CorrectOption,
		CorrectOption: q.CorrectOption,
		Last:          p.index == len(p.questions)-1,
	}, nil
}

// Advance moves past an answered question. Advancing past the last question
// completes the play, scores it and submits the point credit once.
func (p *Play) Advance() (Snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.acceptingLocked(); err != nil {
		return Snapshot{}, err
	}
	if p.state == StateAwaitingAnswer {
		return Snapshot{}, domain.ErrNoAnswer
	}

	if p.index < len(p.questions)-1 {
		p.index++
		p.state = StateAwaitingAnswer
		return p.snapshotLocked(), nil
	}

	score := domain.Score(p.questions, p.answers)
	p.score = &score
	p.state = StateCompleted
	p.submitCreditLocked(score)
	return p.snapshotLocked(), nil
}

func (p *Play) acceptingLocked() error {
	if p.closed {
		return domain.ErrPlayClosed
	}
	if p.state != StateAwaitingAnswer && p.state != StateAnswerRevealed {
		return domain.ErrPlayFinished
	}
	return nil
}

func (p *Play) submitCreditLocked(score domain.ScoreResult) {
	log := p.svc.logger.With("play", p.id, "quiz", p.quiz.ID)
	if !p.session.Authenticated() {
		log.Debug("anonymous play completed, credit skipped", "points", score.FinalPoints)
		return
	}
	if score.FinalPoints <= 0 {
		return
	}

	userID, points := p.session.UserID, score.FinalPoints
	p.credits.Add(1)
	go func() {
		defer p.credits.Done()

		ctx, cancel := context.WithTimeout(p.creditCtx, p.svc.creditTimeout)
		defer cancel()

		outcome := CreditOutcome{Points: points}
		if err := p.svc.ledger.CreditPoints(ctx, userID, points); err != nil {
			outcome.Err = err
			log.Error("point credit failed", "user", userID, "points", points, "err", err)
		} else {
			log.Info("points credited", "user", userID, "points", points)
		}

		p.mu.Lock()
		closed, fn := p.closed, p.onCredit
		p.mu.Unlock()
		if !closed && fn != nil {
			fn(outcome)
		}
	}()
}

// Close abandons the play. An unfinished play leaves no trace; a credit already in
// flight still completes but its outcome is dropped.
func (p *Play) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

// Wait blocks until any in-flight credit request has returned.
func (p *Play) Wait() {
	p.credits.Wait()
}

func (p *Play) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Play) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:  p.state,
		QuizID: p.quiz.ID,
		Title:  p.quiz.Title,
		Index:  p.index,
		Total:  len(p.questions),
	}
	if p.score != nil {
		score := *p.score
		snap.Score = &score
	}
	if p.state == StateAwaitingAnswer || p.state == StateAnswerRevealed {
		q := p.questions[p.index]
		view := &QuestionView{ID: q.ID, Prompt: q.Prompt, Options: append([]string(nil), q.Options...)}
		if p.state == StateAnswerRevealed {
			view.CorrectOption = q.CorrectOption
			snap.Selected = p.answers[q.ID]
		}
		snap.Question = view
	}
	return snap
}
