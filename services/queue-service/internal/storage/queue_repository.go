package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tahmid-hossain/clinicflow/libs/db"
	"github.com/tahmid-hossain/clinicflow/services/queue-service/internal/model"
	"github.com/tahmid-hossain/clinicflow/services/queue-service/internal/queue"
)

type QueueRepository struct {
	pool *db.Pool
}

func NewQueueRepository(pool *db.Pool) *QueueRepository {
	return &QueueRepository{pool: pool}
}

func (r *QueueRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

var ErrInvalidTransition = errors.New("queue entry is not in a state that allows this transition")

// NextToken increments and returns the daily token counter for the scope.
// The single-row upsert keeps concurrent check-ins gapless without any
// in-process locking; multiple service instances share the same counter.
func (r *QueueRepository) NextToken(ctx context.Context, tx pgx.Tx, scope queue.Scope, day time.Time) (int, error) {
	var token int
	err := tx.QueryRow(ctx, `
		INSERT INTO queue_tokens (clinic_id, doctor_id, day, last_token)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (clinic_id, doctor_id, day)
		DO UPDATE SET last_token = queue_tokens.last_token + 1
		RETURNING last_token
	`, scope.ClinicID, scope.DoctorID, day).Scan(&token)
	return token, err
}

// HasOpenCheckIn reports whether the appointment already has a non-cancelled
// entry for the clinic day.
func (r *QueueRepository) HasOpenCheckIn(ctx context.Context, tx pgx.Tx, clinicID, appointmentID string, dayStart, dayEnd time.Time) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM queue_entries
			WHERE clinic_id = $1
			  AND appointment_id = $2
			  AND checked_in_at >= $3
			  AND checked_in_at < $4
			  AND status <> 'cancelled'
		)
	`, clinicID, appointmentID, dayStart, dayEnd).Scan(&exists)
	return exists, err
}

func (r *QueueRepository) CreateEntry(ctx context.Context, tx pgx.Tx, e *model.QueueEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO queue_entries
			(id, clinic_id, doctor_id, appointment_id, patient_id, token, token_type, status,
			 scheduled_at, checked_in_at, admit_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, e.ID, e.ClinicID, nullIfEmpty(e.DoctorID), nullIfEmpty(e.AppointmentID), nullIfEmpty(e.PatientID),
		e.Token, string(e.TokenType), string(e.Status), e.ScheduledAt, e.CheckedInAt, e.AdmitAt)
	return err
}

const entryColumns = `
	id, clinic_id, COALESCE(doctor_id, ''), COALESCE(appointment_id, ''), COALESCE(patient_id, ''),
	token, token_type, status, scheduled_at, checked_in_at, admit_at, called_at, closed_at, created_at
`

func (r *QueueRepository) GetEntry(ctx context.Context, id string) (model.QueueEntry, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+entryColumns+` FROM queue_entries WHERE id = $1`, id)
	return scanEntry(row)
}

// GetEntryForUpdate locks the entry row for a state transition. Scoping by
// clinic keeps one tenant from touching another tenant's entries.
func (r *QueueRepository) GetEntryForUpdate(ctx context.Context, tx pgx.Tx, clinicID, id string) (model.QueueEntry, error) {
	row := tx.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM queue_entries
		WHERE id = $1 AND clinic_id = $2
		FOR UPDATE
	`, id, clinicID)
	return scanEntry(row)
}

// ListWaiting returns the scope's admission-state entries for the day.
// In the clinic-wide scope every doctor's arrivals share one stream.
func (r *QueueRepository) ListWaiting(ctx context.Context, scope queue.Scope, dayStart, dayEnd time.Time) ([]model.QueueEntry, error) {
	rows, err := r.pool.Query(ctx, waitingQuery(scope, false), waitingArgs(scope, dayStart, dayEnd)...)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

// ListWaitingForUpdate is the transactional variant used by call-next; the
// row locks keep two receptionists from calling the same patient.
func (r *QueueRepository) ListWaitingForUpdate(ctx context.Context, tx pgx.Tx, scope queue.Scope, dayStart, dayEnd time.Time) ([]model.QueueEntry, error) {
	rows, err := tx.Query(ctx, waitingQuery(scope, true), waitingArgs(scope, dayStart, dayEnd)...)
	if err != nil {
		return nil, err
	}
	return collectEntries(rows)
}

func waitingQuery(scope queue.Scope, forUpdate bool) string {
	q := `SELECT ` + entryColumns + `
		FROM queue_entries
		WHERE clinic_id = $1
		  AND checked_in_at >= $2
		  AND checked_in_at < $3
		  AND status IN ('on_time', 'late', 'walk_in')`
	if scope.PerDoctor() {
		q += ` AND doctor_id = $4`
	}
	q += ` ORDER BY checked_in_at ASC`
	if forUpdate {
		q += ` FOR UPDATE`
	}
	return q
}

func waitingArgs(scope queue.Scope, dayStart, dayEnd time.Time) []any {
	args := []any{scope.ClinicID, dayStart, dayEnd}
	if scope.PerDoctor() {
		args = append(args, scope.DoctorID)
	}
	return args
}

// CallEntry moves a waiting entry into consultation.
func (r *QueueRepository) CallEntry(ctx context.Context, tx pgx.Tx, id string, at time.Time) (model.QueueEntry, error) {
	row := tx.QueryRow(ctx, `
		UPDATE queue_entries
		SET status = 'in_consultation',
		    called_at = $2
		WHERE id = $1 AND status IN ('on_time', 'late', 'walk_in')
		RETURNING `+entryColumns+`
	`, id, at)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.QueueEntry{}, ErrInvalidTransition
	}
	return e, err
}

// CloseEntry finishes a consultation as completed or no_show.
func (r *QueueRepository) CloseEntry(ctx context.Context, tx pgx.Tx, id string, status queue.Status, at time.Time) (model.QueueEntry, error) {
	if status != queue.StatusCompleted && status != queue.StatusNoShow {
		return model.QueueEntry{}, ErrInvalidTransition
	}
	row := tx.QueryRow(ctx, `
		UPDATE queue_entries
		SET status = $2,
		    closed_at = $3
		WHERE id = $1 AND status = 'in_consultation'
		RETURNING `+entryColumns+`
	`, id, string(status), at)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.QueueEntry{}, ErrInvalidTransition
	}
	return e, err
}

// CancelEntry retracts a check-in. Only allowed before the patient is called.
func (r *QueueRepository) CancelEntry(ctx context.Context, tx pgx.Tx, id string, at time.Time) (model.QueueEntry, error) {
	row := tx.QueryRow(ctx, `
		UPDATE queue_entries
		SET status = 'cancelled',
		    closed_at = $2
		WHERE id = $1 AND status IN ('on_time', 'late', 'walk_in')
		RETURNING `+entryColumns+`
	`, id, at)
	e, err := scanEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.QueueEntry{}, ErrInvalidTransition
	}
	return e, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (model.QueueEntry, error) {
	var e model.QueueEntry
	var tokenType string
	var status string
	var scheduledAt *time.Time
	var calledAt *time.Time
	var closedAt *time.Time
	err := row.Scan(
		&e.ID,
		&e.ClinicID,
		&e.DoctorID,
		&e.AppointmentID,
		&e.PatientID,
		&e.Token,
		&tokenType,
		&status,
		&scheduledAt,
		&e.CheckedInAt,
		&e.AdmitAt,
		&calledAt,
		&closedAt,
		&e.CreatedAt,
	)
	if err != nil {
		return model.QueueEntry{}, err
	}
	e.TokenType = queue.TokenType(tokenType)
	e.Status = queue.Status(status)
	e.ScheduledAt = scheduledAt
	e.CalledAt = calledAt
	e.ClosedAt = closedAt
	return e, nil
}

func collectEntries(rows pgx.Rows) ([]model.QueueEntry, error) {
	defer rows.Close()
	var entries []model.QueueEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return entries, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsSerializationFailure matches the transient conflicts the check-in
// transaction retries once before surfacing to the caller.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01")
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
