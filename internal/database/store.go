package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/edgard/roastme/internal/logger"
)

var (
	// ErrNotFound is returned when a record addressed by id does not exist
	// or is not visible to the caller.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique constraint (user email) is violated.
	ErrDuplicate = errors.New("record already exists")

	// ErrUnknownTrait is returned when a person references a trait id that
	// is not in the catalog.
	ErrUnknownTrait = errors.New("unknown trait")
)

// Store defines the interface for database operations.
// Methods should accept context.Context for cancellation and timeouts.
// Optional lookups return nil, nil when nothing matches.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error

	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	ListTraits(ctx context.Context) ([]Trait, error)
	CreateTrait(ctx context.Context, trait *Trait) error

	// CreatePerson inserts a person and attaches traitIDs in the given order.
	CreatePerson(ctx context.Context, person *Person, traitIDs []string) error
	// UpdatePerson replaces the person's fields and trait list. The person
	// must belong to person.OwnerID.
	UpdatePerson(ctx context.Context, person *Person, traitIDs []string) error
	DeletePerson(ctx context.Context, ownerID, id string) error
	GetPerson(ctx context.Context, ownerID, id string) (*Person, error)
	ListPersons(ctx context.Context, ownerID string) ([]Person, error)
	// FindPersonByName returns the owner's person whose name contains query
	// case-insensitively. Exact matches win, then the oldest, then the
	// smallest id.
	FindPersonByName(ctx context.Context, ownerID, query string) (*Person, error)

	CountRoasts(ctx context.Context) (int, error)
	// RoastAt returns the text of the corpus entry at offset in id order;
	// ok is false when no entry exists there.
	RoastAt(ctx context.Context, offset int) (text string, ok bool, err error)
	AddRoast(ctx context.Context, roast *Roast) error

	CreateFeedback(ctx context.Context, feedback *Feedback) error

	CreateFormSubmission(ctx context.Context, submission *FormSubmission) error
	ListFormSubmissions(ctx context.Context, userID string) ([]FormSubmission, error)
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, log *slog.Logger) Store {
	if log == nil {
		log = logger.Discard()
	}
	return &sqlxStore{
		db:     db,
		logger: log.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn in a transaction, rolling back unless fn and the commit
// both succeed.
func (s *sqlxStore) withTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction", "op", op, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			s.logger.WarnContext(ctx, "Error rolling back transaction", "op", op, "error", rollbackErr)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "op", op, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize;"); err != nil {
		s.logger.WarnContext(ctx, "PRAGMA optimize failed", "error", err)
	}

	s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	return nil
}

// --- Users ---

func (s *sqlxStore) CreateUser(ctx context.Context, user *User) error {
	if user == nil {
		return fmt.Errorf("cannot save nil user")
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = normalizeEmail(user.Email)
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, name, email, password_hash, created_at, updated_at)
		VALUES (:id, :name, :email, :password_hash, :created_at, :updated_at);
	`
	if _, err := s.db.NamedExecContext(ctx, query, user); err != nil {
		if isUniqueViolation(err) {
			s.logger.DebugContext(ctx, "User email already registered", "email", user.Email)
			return ErrDuplicate
		}
		s.logger.ErrorContext(ctx, "Error creating user", "email", user.Email, "error", err)
		return fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.DebugContext(ctx, "User created", "user_id", user.ID)
	return nil
}

func (s *sqlxStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *sqlxStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.getUser(ctx, "email", normalizeEmail(email))
}

func (s *sqlxStore) getUser(ctx context.Context, column, value string) (*User, error) {
	if value == "" {
		return nil, nil
	}

	var user User
	query := `SELECT id, name, email, password_hash, created_at, updated_at FROM users WHERE ` + column + ` = ?`
	err := s.db.GetContext(ctx, &user, query, value)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil

	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting user", "by", column, "error", err)
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}

	return &user, nil
}

// --- Traits ---

func (s *sqlxStore) ListTraits(ctx context.Context) ([]Trait, error) {
	traits := []Trait{}
	query := `SELECT id, name, category, description, created_at, updated_at FROM traits ORDER BY category, name`
	if err := s.db.SelectContext(ctx, &traits, query); err != nil {
		s.logger.ErrorContext(ctx, "Error listing traits", "error", err)
		return nil, fmt.Errorf("failed to list traits: %w", err)
	}
	return traits, nil
}

func (s *sqlxStore) CreateTrait(ctx context.Context, trait *Trait) error {
	if trait == nil {
		return fmt.Errorf("cannot save nil trait")
	}
	if !IsValidTraitCategory(trait.Category) {
		return fmt.Errorf("invalid trait category %q", trait.Category)
	}
	if trait.ID == "" {
		trait.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	trait.CreatedAt = now
	trait.UpdatedAt = now

	query := `
		INSERT INTO traits (id, name, category, description, created_at, updated_at)
		VALUES (:id, :name, :category, :description, :created_at, :updated_at);
	`
	if _, err := s.db.NamedExecContext(ctx, query, trait); err != nil {
		s.logger.ErrorContext(ctx, "Error creating trait", "name", trait.Name, "error", err)
		return fmt.Errorf("failed to create trait: %w", err)
	}
	return nil
}

// --- Persons ---

const personColumns = `id, owner_id, name, skin_color, animal_type, created_at, updated_at`

func (s *sqlxStore) CreatePerson(ctx context.Context, person *Person, traitIDs []string) error {
	if person == nil {
		return fmt.Errorf("cannot save nil person")
	}
	if person.OwnerID == "" {
		return fmt.Errorf("person must have an owner")
	}
	if person.ID == "" {
		person.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	person.CreatedAt = now
	person.UpdatedAt = now

	err := s.withTx(ctx, "create_person", func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO persons (id, owner_id, name, skin_color, animal_type, created_at, updated_at)
			VALUES (:id, :owner_id, :name, :skin_color, :animal_type, :created_at, :updated_at);
		`
		if _, err := tx.NamedExecContext(ctx, query, person); err != nil {
			s.logger.ErrorContext(ctx, "Error creating person", "owner_id", person.OwnerID, "error", err)
			return fmt.Errorf("failed to create person: %w", err)
		}
		return s.replacePersonTraits(ctx, tx, person, traitIDs)
	})
	if err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "Person created", "person_id", person.ID, "traits", len(person.Traits))
	return nil
}

func (s *sqlxStore) UpdatePerson(ctx context.Context, person *Person, traitIDs []string) error {
	if person == nil {
		return fmt.Errorf("cannot save nil person")
	}
	person.UpdatedAt = time.Now().UTC()

	return s.withTx(ctx, "update_person", func(tx *sqlx.Tx) error {
		query := `
			UPDATE persons SET
				name = :name,
				skin_color = :skin_color,
				animal_type = :animal_type,
				updated_at = :updated_at
			WHERE id = :id AND owner_id = :owner_id;
		`
		result, err := tx.NamedExecContext(ctx, query, person)
		if err != nil {
			s.logger.ErrorContext(ctx, "Error updating person", "person_id", person.ID, "error", err)
			return fmt.Errorf("failed to update person %s: %w", person.ID, err)
		}
		if affected, err := result.RowsAffected(); err == nil && affected == 0 {
			return ErrNotFound
		}

		if err := tx.GetContext(ctx, &person.CreatedAt, `SELECT created_at FROM persons WHERE id = ?`, person.ID); err != nil {
			return fmt.Errorf("failed to reload person %s: %w", person.ID, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM person_traits WHERE person_id = ?`, person.ID); err != nil {
			return fmt.Errorf("failed to clear traits of person %s: %w", person.ID, err)
		}
		return s.replacePersonTraits(ctx, tx, person, traitIDs)
	})
}

// replacePersonTraits attaches traitIDs to person in order, de-duplicating
// repeated ids, and loads the resulting trait list into person.Traits.
func (s *sqlxStore) replacePersonTraits(ctx context.Context, tx *sqlx.Tx, person *Person, traitIDs []string) error {
	ids := uniqueIDs(traitIDs)
	person.Traits = []Trait{}
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`SELECT id, name, category, description, created_at, updated_at FROM traits WHERE id IN (?)`, ids)
	if err != nil {
		return fmt.Errorf("failed to build trait lookup: %w", err)
	}
	var found []Trait
	if err := tx.SelectContext(ctx, &found, tx.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to look up traits: %w", err)
	}
	if len(found) != len(ids) {
		return ErrUnknownTrait
	}

	byID := make(map[string]Trait, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}

	for pos, id := range ids {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO person_traits (person_id, trait_id, position) VALUES (?, ?, ?)`,
			person.ID, id, pos); err != nil {
			return fmt.Errorf("failed to attach trait %s: %w", id, err)
		}
		person.Traits = append(person.Traits, byID[id])
	}
	return nil
}

func (s *sqlxStore) DeletePerson(ctx context.Context, ownerID, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM persons WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error deleting person", "person_id", id, "error", err)
		return fmt.Errorf("failed to delete person %s: %w", id, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	s.logger.DebugContext(ctx, "Person deleted", "person_id", id)
	return nil
}

func (s *sqlxStore) GetPerson(ctx context.Context, ownerID, id string) (*Person, error) {
	var person Person
	query := `SELECT ` + personColumns + ` FROM persons WHERE id = ? AND owner_id = ?`
	err := s.db.GetContext(ctx, &person, query, id, ownerID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error getting person", "person_id", id, "error", err)
		return nil, fmt.Errorf("failed to get person %s: %w", id, err)
	}

	if err := s.loadTraits(ctx, []*Person{&person}); err != nil {
		return nil, err
	}
	return &person, nil
}

func (s *sqlxStore) ListPersons(ctx context.Context, ownerID string) ([]Person, error) {
	persons := []Person{}
	query := `SELECT ` + personColumns + ` FROM persons WHERE owner_id = ? ORDER BY name, created_at, id`
	if err := s.db.SelectContext(ctx, &persons, query, ownerID); err != nil {
		s.logger.ErrorContext(ctx, "Error listing persons", "owner_id", ownerID, "error", err)
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}

	ptrs := make([]*Person, len(persons))
	for i := range persons {
		ptrs[i] = &persons[i]
	}
	if err := s.loadTraits(ctx, ptrs); err != nil {
		return nil, err
	}
	return persons, nil
}

func (s *sqlxStore) FindPersonByName(ctx context.Context, ownerID, query string) (*Person, error) {
	query = strings.TrimSpace(query)
	if ownerID == "" || query == "" {
		return nil, nil
	}

	var person Person
	q := `
		SELECT ` + personColumns + `
		FROM persons
		WHERE owner_id = ? AND instr(fold(name), ?) > 0
		ORDER BY CASE WHEN fold(name) = ? THEN 0 ELSE 1 END, created_at, id
		LIMIT 1;
	`
	folded := foldCase(query)
	err := s.db.GetContext(ctx, &person, q, ownerID, folded, folded)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		s.logger.DebugContext(ctx, "No person matches name", "owner_id", ownerID)
		return nil, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error finding person by name", "owner_id", ownerID, "error", err)
		return nil, fmt.Errorf("failed to find person by name: %w", err)
	}

	if err := s.loadTraits(ctx, []*Person{&person}); err != nil {
		return nil, err
	}
	return &person, nil
}

type personTraitRow struct {
	PersonID string `db:"person_id"`
	Trait
}

// loadTraits fills Traits on every person with one query, keeping the
// attachment order.
func (s *sqlxStore) loadTraits(ctx context.Context, persons []*Person) error {
	if len(persons) == 0 {
		return nil
	}

	ids := make([]string, len(persons))
	byID := make(map[string]*Person, len(persons))
	for i, p := range persons {
		p.Traits = []Trait{}
		ids[i] = p.ID
		byID[p.ID] = p
	}

	query, args, err := sqlx.In(`
		SELECT pt.person_id, t.id, t.name, t.category, t.description, t.created_at, t.updated_at
		FROM person_traits pt
		JOIN traits t ON t.id = pt.trait_id
		WHERE pt.person_id IN (?)
		ORDER BY pt.person_id, pt.position`, ids)
	if err != nil {
		return fmt.Errorf("failed to build person trait query: %w", err)
	}

	var rows []personTraitRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		s.logger.ErrorContext(ctx, "Error loading person traits", "persons", len(persons), "error", err)
		return fmt.Errorf("failed to load person traits: %w", err)
	}

	for _, row := range rows {
		if p, ok := byID[row.PersonID]; ok {
			p.Traits = append(p.Traits, row.Trait)
		}
	}
	return nil
}

// --- Roast corpus ---

func (s *sqlxStore) CountRoasts(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM roasts`); err != nil {
		s.logger.ErrorContext(ctx, "Error counting roasts", "error", err)
		return 0, fmt.Errorf("failed to count roasts: %w", err)
	}
	return count, nil
}

func (s *sqlxStore) RoastAt(ctx context.Context, offset int) (string, bool, error) {
	if offset < 0 {
		return "", false, nil
	}

	var text string
	err := s.db.GetContext(ctx, &text, `SELECT text FROM roasts ORDER BY id LIMIT 1 OFFSET ?`, offset)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		s.logger.ErrorContext(ctx, "Error fetching roast at offset", "offset", offset, "error", err)
		return "", false, fmt.Errorf("failed to fetch roast at offset %d: %w", offset, err)
	}
	return text, true, nil
}

func (s *sqlxStore) AddRoast(ctx context.Context, roast *Roast) error {
	if roast == nil || strings.TrimSpace(roast.Text) == "" {
		return fmt.Errorf("roast must have non-empty text")
	}
	if roast.Category == "" {
		roast.Category = "random"
	}
	roast.CreatedAt = time.Now().UTC()

	result, err := s.db.NamedExecContext(ctx, `
		INSERT INTO roasts (text, category, tags, created_at)
		VALUES (:text, :category, :tags, :created_at);
	`, roast)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error adding roast", "error", err)
		return fmt.Errorf("failed to add roast: %w", err)
	}

	if id, err := result.LastInsertId(); err == nil {
		roast.ID = id
	} else {
		s.logger.WarnContext(ctx, "Could not retrieve last insert ID after adding roast", "error", err)
	}
	return nil
}

// --- Feedback & form submissions ---

func (s *sqlxStore) CreateFeedback(ctx context.Context, feedback *Feedback) error {
	if feedback == nil {
		return fmt.Errorf("cannot save nil feedback")
	}
	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}
	if feedback.Status == "" {
		feedback.Status = FeedbackPending
	}
	feedback.Email = normalizeEmail(feedback.Email)
	feedback.SubmittedAt = time.Now().UTC()

	if _, err := s.db.NamedExecContext(ctx, `
		INSERT INTO feedback (id, name, email, message, status, submitted_at)
		VALUES (:id, :name, :email, :message, :status, :submitted_at);
	`, feedback); err != nil {
		s.logger.ErrorContext(ctx, "Error saving feedback", "error", err)
		return fmt.Errorf("failed to save feedback: %w", err)
	}

	s.logger.DebugContext(ctx, "Feedback saved", "feedback_id", feedback.ID)
	return nil
}

func (s *sqlxStore) CreateFormSubmission(ctx context.Context, submission *FormSubmission) error {
	if submission == nil {
		return fmt.Errorf("cannot save nil form submission")
	}
	if submission.SubmittedBy == "" {
		return fmt.Errorf("form submission must have a submitter")
	}
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.Status == "" {
		submission.Status = SubmissionPending
	}
	now := time.Now().UTC()
	submission.CreatedAt = now
	submission.UpdatedAt = now

	if _, err := s.db.NamedExecContext(ctx, `
		INSERT INTO form_submissions (id, name, email, message, submitted_by, status, created_at, updated_at)
		VALUES (:id, :name, :email, :message, :submitted_by, :status, :created_at, :updated_at);
	`, submission); err != nil {
		s.logger.ErrorContext(ctx, "Error saving form submission", "user_id", submission.SubmittedBy, "error", err)
		return fmt.Errorf("failed to save form submission: %w", err)
	}
	return nil
}

func (s *sqlxStore) ListFormSubmissions(ctx context.Context, userID string) ([]FormSubmission, error) {
	submissions := []FormSubmission{}
	query := `
		SELECT id, name, email, message, submitted_by, status, created_at, updated_at
		FROM form_submissions
		WHERE submitted_by = ?
		ORDER BY created_at DESC, id DESC;
	`
	if err := s.db.SelectContext(ctx, &submissions, query, userID); err != nil {
		s.logger.ErrorContext(ctx, "Error listing form submissions", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list form submissions: %w", err)
	}
	return submissions, nil
}

// --- helpers ---

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
