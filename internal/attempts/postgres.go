package attempts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/payment"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PostgresRepository struct {
	pool DBPool
	now  func() time.Time
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool, now: time.Now}
}

const attemptColumns = `id::text, order_id, owner, amount::text, handle, transaction_id, gateway_outcome, reconciliation, last_error, created_at, updated_at`

const selectAttempt = `SELECT ` + attemptColumns + ` FROM payment_attempts`

const uniqueViolation = "23505"

func (r *PostgresRepository) Open(ctx context.Context, a payment.Attempt) (payment.Attempt, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return payment.Attempt{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, selectAttempt+`
WHERE order_id = $1
  AND (reconciliation IN ('unreported', 'reporting') OR (gateway_outcome = 'succeeded' AND reconciliation IN ('failed', 'abandoned')))
FOR UPDATE`, a.OrderID)
	if err != nil {
		return payment.Attempt{}, fmt.Errorf("lock attempts: %w", err)
	}
	existing, err := collect(rows)
	if err != nil {
		return payment.Attempt{}, err
	}

	abandon, err := payment.CheckOpen(existing)
	if err != nil {
		return payment.Attempt{}, err
	}

	now := r.now().UTC()
	for _, id := range abandon {
		if _, err := tx.Exec(ctx, `
UPDATE payment_attempts SET reconciliation = 'abandoned', updated_at = $2 WHERE id = $1 AND gateway_outcome = 'pending'`, id, now); err != nil {
			return payment.Attempt{}, fmt.Errorf("abandon attempt %s: %w", id, err)
		}
	}

	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if _, err := tx.Exec(ctx, `
INSERT INTO payment_attempts (id, order_id, owner, amount, handle, transaction_id, gateway_outcome, reconciliation, last_error, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		a.ID, a.OrderID, a.Owner, a.Amount, a.Handle, a.TransactionID,
		string(a.Gateway), string(a.Reconciliation), a.LastError, a.CreatedAt, a.UpdatedAt,
	); err != nil {
		// payment_attempts_one_outstanding lost a race with a concurrent Open.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return payment.Attempt{}, payment.ErrAttemptInProgress
		}
		return payment.Attempt{}, fmt.Errorf("insert attempt: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return payment.Attempt{}, fmt.Errorf("commit tx: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (payment.Attempt, error) {
	a, err := scan(r.pool.QueryRow(ctx, selectAttempt+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return payment.Attempt{}, payment.ErrAttemptNotFound
	}
	if err != nil {
		return payment.Attempt{}, fmt.Errorf("get attempt: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) ForOrder(ctx context.Context, orderID int64) ([]payment.Attempt, error) {
	rows, err := r.pool.Query(ctx, selectAttempt+` WHERE order_id = $1 ORDER BY created_at`, orderID)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return collect(rows)
}

func (r *PostgresRepository) ClaimConfirmation(ctx context.Context, id uuid.UUID) (payment.Attempt, error) {
	a, err := scan(r.pool.QueryRow(ctx, `
UPDATE payment_attempts
SET gateway_outcome = 'confirming', updated_at = $2
WHERE id = $1 AND gateway_outcome = 'pending' AND reconciliation = 'unreported'
RETURNING `+attemptColumns, id, r.now().UTC()))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return payment.Attempt{}, fmt.Errorf("claim attempt %s: %w", id, err)
	}
	current, err := r.Get(ctx, id)
	if err != nil {
		return payment.Attempt{}, err
	}
	return payment.Attempt{}, payment.ConfirmConflict(current)
}

func (r *PostgresRepository) RecordGatewayOutcome(ctx context.Context, id uuid.UUID, outcome payment.GatewayOutcome, transactionID, lastError string) (payment.Attempt, error) {
	return r.transition(ctx, id, `
UPDATE payment_attempts
SET gateway_outcome = $2, transaction_id = $3, last_error = $4, updated_at = $5
WHERE id = $1 AND gateway_outcome = 'confirming' AND reconciliation = 'unreported'
RETURNING `+attemptColumns,
		payment.ErrAttemptState, id, string(outcome), transactionID, lastError, r.now().UTC())
}

func (r *PostgresRepository) ClaimReport(ctx context.Context, id uuid.UUID) (payment.Attempt, error) {
	return r.transition(ctx, id, `
UPDATE payment_attempts
SET reconciliation = 'reporting', updated_at = $2
WHERE id = $1 AND reconciliation = 'unreported'
RETURNING `+attemptColumns,
		payment.ErrAlreadyReported, id, r.now().UTC())
}

func (r *PostgresRepository) FinishReport(ctx context.Context, id uuid.UUID, ok bool, lastError string) (payment.Attempt, error) {
	state := payment.ReportFailed
	if ok {
		state = payment.Reported
	}
	return r.transition(ctx, id, `
UPDATE payment_attempts
SET reconciliation = $2, last_error = CASE WHEN $3::text = '' THEN last_error ELSE $3::text END, updated_at = $4
WHERE id = $1 AND reconciliation = 'reporting'
RETURNING `+attemptColumns,
		payment.ErrAttemptState, id, string(state), lastError, r.now().UTC())
}

func (r *PostgresRepository) ListUnreconciled(ctx context.Context) ([]payment.Attempt, error) {
	rows, err := r.pool.Query(ctx, selectAttempt+`
WHERE gateway_outcome <> 'pending' AND reconciliation <> 'reported'
ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("list unreconciled: %w", err)
	}
	return collect(rows)
}

// transition runs a guarded UPDATE ... RETURNING. No row means either the
// attempt does not exist or it is not in the expected state.
func (r *PostgresRepository) transition(ctx context.Context, id uuid.UUID, sql string, stateErr error, args ...any) (payment.Attempt, error) {
	a, err := scan(r.pool.QueryRow(ctx, sql, args...))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return payment.Attempt{}, fmt.Errorf("update attempt %s: %w", id, err)
	}
	if _, getErr := r.Get(ctx, id); getErr != nil {
		return payment.Attempt{}, getErr
	}
	return payment.Attempt{}, stateErr
}

func scan(row pgx.Row) (payment.Attempt, error) {
	var (
		a                                   payment.Attempt
		id, amount, gateway, reconciliation string
	)
	err := row.Scan(&id, &a.OrderID, &a.Owner, &amount, &a.Handle, &a.TransactionID,
		&gateway, &reconciliation, &a.LastError, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return payment.Attempt{}, err
	}
	if a.ID, err = uuid.Parse(id); err != nil {
		return payment.Attempt{}, fmt.Errorf("parse attempt id: %w", err)
	}
	if a.Amount, err = decimal.NewFromString(amount); err != nil {
		return payment.Attempt{}, fmt.Errorf("parse attempt amount: %w", err)
	}
	a.Gateway = payment.GatewayOutcome(gateway)
	a.Reconciliation = payment.Reconciliation(reconciliation)
	return a, nil
}

func collect(rows pgx.Rows) ([]payment.Attempt, error) {
	defer rows.Close()

	var out []payment.Attempt
	for rows.Next() {
		a, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}
