package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/geocoder89/statementhub/internal/domain/statement"
	"github.com/geocoder89/statementhub/internal/domain/user"
	"github.com/geocoder89/statementhub/internal/prompt"
	"github.com/geocoder89/statementhub/internal/utils"
)

var (
	ErrUnauthorized = errors.New("unauthorized")

	// ErrGenerationFailed wraps the generation client failure so callers can
	// branch on the workflow outcome while logs keep the underlying reason.
	ErrGenerationFailed = errors.New("statement generation failed")

	ErrStorage = errors.New("statement storage failed")

	ErrInvalidCursor = errors.New("invalid list cursor")
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// stage names used in debug logs, in request order.
const (
	stageAuthenticated = "authenticated"
	stageValidated     = "validated"
	stageGenerated     = "generated"
	stagePersisted     = "persisted"
)

type UserReader interface {
	GetByID(ctx context.Context, id string) (user.User, error)
}

type StatementStore interface {
	Save(ctx context.Context, s statement.Statement) (statement.Statement, error)
	// ListByOwner returns the owner's records newest first. A zero
	// afterCreatedAt/afterID pair means the first page. hasMore reports
	// whether records older than the returned page exist.
	ListByOwner(ctx context.Context, ownerID string, limit int, afterCreatedAt time.Time, afterID string) ([]statement.Statement, bool, error)
	GetByID(ctx context.Context, id, ownerID string) (statement.Statement, error)
	Delete(ctx context.Context, id, ownerID string) error
}

type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Service runs the statement workflow: authenticate, validate, generate,
// persist. Steps are strictly ordered; nothing is persisted unless
// generation succeeded, and no generation happens unless validation passed.
type Service struct {
	users UserReader
	store StatementStore
	gen   Generator
	log   *slog.Logger
}

func NewService(users UserReader, store StatementStore, gen Generator, log *slog.Logger) *Service {
	return &Service{
		users: users,
		store: store,
		gen:   gen,
		log:   log,
	}
}

// Submit runs one full workflow invocation for the resolved identity ownerID.
// Each invocation operates on its own request/record values; the service
// itself carries no per-request state, so concurrent calls are safe.
func (s *Service) Submit(ctx context.Context, ownerID string, in statement.Input) (statement.Statement, error) {
	if ownerID == "" {
		return statement.Statement{}, ErrUnauthorized
	}

	owner, err := s.users.GetByID(ctx, ownerID)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return statement.Statement{}, ErrUnauthorized
		}
		return statement.Statement{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.log.DebugContext(ctx, "workflow stage", "stage", stageAuthenticated, "user_id", owner.ID)

	userPrompt, err := prompt.Build(in)

	if err != nil {
		// surfaced as-is: the handler turns *prompt.ValidationError into
		// field-level feedback
		return statement.Statement{}, err
	}

	s.log.DebugContext(ctx, "workflow stage", "stage", stageValidated, "user_id", owner.ID)

	text, err := s.gen.Generate(ctx, prompt.SystemPrompt, userPrompt)

	if err != nil {
		s.log.WarnContext(ctx, "generation failed", "user_id", owner.ID, "err", err)
		return statement.Statement{}, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	s.log.DebugContext(ctx, "workflow stage", "stage", stageGenerated, "user_id", owner.ID)

	rec := statement.New(owner.ID, in, text)

	saved, err := s.store.Save(ctx, rec)

	if err != nil {
		s.log.ErrorContext(ctx, "statement save failed", "user_id", owner.ID, "err", err)
		return statement.Statement{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	s.log.InfoContext(ctx, "statement created",
		"stage", stagePersisted,
		"statement_id", saved.ID,
		"user_id", owner.ID,
	)

	return saved, nil
}

// List returns one page of the owner's statements, newest first, together
// with the cursor for the next page when more records exist.
func (s *Service) List(ctx context.Context, ownerID string, limit int, cursor string) ([]statement.Statement, *string, error) {
	if ownerID == "" {
		return nil, nil, ErrUnauthorized
	}

	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}

	var afterCreatedAt time.Time
	var afterID string

	if cursor != "" {
		c, err := utils.DecodeStatementCursor(cursor)
		if err != nil {
			return nil, nil, ErrInvalidCursor
		}
		afterCreatedAt = c.CreatedAt
		afterID = c.ID
	}

	items, hasMore, err := s.store.ListByOwner(ctx, ownerID, limit, afterCreatedAt, afterID)

	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	var next *string

	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		encoded, err := utils.EncodeStatementCursor(last.CreatedAt, last.ID)
		if err == nil {
			next = &encoded
		}
	}

	return items, next, nil
}

func (s *Service) Get(ctx context.Context, id, ownerID string) (statement.Statement, error) {
	if ownerID == "" {
		return statement.Statement{}, ErrUnauthorized
	}

	rec, err := s.store.GetByID(ctx, id, ownerID)

	if err != nil {
		if errors.Is(err, statement.ErrNotFound) {
			return statement.Statement{}, err
		}
		return statement.Statement{}, fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return rec, nil
}

func (s *Service) Delete(ctx context.Context, id, ownerID string) error {
	if ownerID == "" {
		return ErrUnauthorized
	}

	err := s.store.Delete(ctx, id, ownerID)

	if err != nil {
		if errors.Is(err, statement.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}

	return nil
}
