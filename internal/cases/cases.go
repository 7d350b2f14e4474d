package cases

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a case, progress row, or learner is missing.
	ErrNotFound = errors.New("cases: not found")
	// ErrNoProgress is returned when an operation requires the learner to have
	// started the case first.
	ErrNoProgress = errors.New("cases: case not started")
	// ErrXPLocked is returned when the learner's XP is below the case threshold.
	ErrXPLocked = errors.New("cases: insufficient xp")
)

// Case is an investigation a learner can take on. Answer is the expected
// solution in normalized form and is never exposed over the API.
type Case struct {
	ID               string
	Title            string
	ShortDescription string
	Description      string
	RequiredXP       int
	RewardXP         int
	Answer           string
	CreatedAt        time.Time
}

// Progress tracks one learner's state on one case.
type Progress struct {
	UserID      string
	CaseID      string
	Completed   bool
	StartedAt   time.Time
	CompletedAt *time.Time
}

// AnswerOutcome reports the result of an answer submission.
type AnswerOutcome struct {
	Correct      bool
	CompletedNow bool
	AwardedXP    int
	TotalXP      int
}

type Store interface {
	ListCases(ctx context.Context) ([]Case, error)
	GetCase(ctx context.Context, caseID string) (Case, error)
	AllowedTables(ctx context.Context, caseID string) ([]string, error)

	GetProgress(ctx context.Context, userID, caseID string) (Progress, error)
	StartProgress(ctx context.Context, userID, caseID string) (Progress, error)
	CompleteProgress(ctx context.Context, userID, caseID string) (bool, error)

	GetXP(ctx context.Context, userID string) (int, error)
	AddXP(ctx context.Context, userID string, delta int) (int, error)

	UpsertCase(ctx context.Context, def Definition) error
	ReplaceAvailableTables(ctx context.Context, caseID string, tables []string) error
}

// Service enforces the progression rules on top of a Store: XP gates on
// start, started-before-answer, and one-time XP awards.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

func (s *Service) List(ctx context.Context) ([]Case, error) {
	return s.store.ListCases(ctx)
}

func (s *Service) Get(ctx context.Context, caseID string) (Case, error) {
	return s.store.GetCase(ctx, caseID)
}

func (s *Service) AllowedTables(ctx context.Context, caseID string) ([]string, error) {
	if _, err := s.store.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	return s.store.AllowedTables(ctx, caseID)
}

func (s *Service) Progress(ctx context.Context, userID, caseID string) (Progress, error) {
	return s.store.GetProgress(ctx, userID, caseID)
}

// Start opens a case for the learner. Starting an already started case is
// idempotent and returns the existing progress row.
func (s *Service) Start(ctx context.Context, userID, caseID string) (Progress, error) {
	gameCase, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		return Progress{}, err
	}
	if gameCase.RequiredXP > 0 {
		xp, err := s.store.GetXP(ctx, userID)
		if err != nil {
			return Progress{}, err
		}
		if xp < gameCase.RequiredXP {
			return Progress{}, ErrXPLocked
		}
	}
	return s.store.StartProgress(ctx, userID, caseID)
}

// CheckAnswer compares the submission against the stored solution. A correct
// answer on an already completed case stays correct but awards no XP.
func (s *Service) CheckAnswer(ctx context.Context, userID, caseID, answer string) (AnswerOutcome, error) {
	gameCase, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		return AnswerOutcome{}, err
	}
	if _, err := s.store.GetProgress(ctx, userID, caseID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return AnswerOutcome{}, ErrNoProgress
		}
		return AnswerOutcome{}, err
	}

	outcome := AnswerOutcome{Correct: NormalizeAnswer(answer) == NormalizeAnswer(gameCase.Answer)}
	if !outcome.Correct {
		return outcome, nil
	}

	completedNow, err := s.store.CompleteProgress(ctx, userID, caseID)
	if err != nil {
		return AnswerOutcome{}, err
	}
	outcome.CompletedNow = completedNow
	if completedNow {
		total, err := s.store.AddXP(ctx, userID, gameCase.RewardXP)
		if err != nil {
			return AnswerOutcome{}, err
		}
		outcome.AwardedXP = gameCase.RewardXP
		outcome.TotalXP = total
		return outcome, nil
	}

	total, err := s.store.GetXP(ctx, userID)
	if err != nil {
		return AnswerOutcome{}, err
	}
	outcome.TotalXP = total
	return outcome, nil
}
