package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"accounts_api/internal/common"
	"accounts_api/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type AccountRepository interface {
	Create(ctx context.Context, account *model.Account) error
	FindByUsername(ctx context.Context, username string) (*model.Account, error)
	FindByID(ctx context.Context, id string) (*model.Account, error)
	ListAll(ctx context.Context) ([]model.Account, error)
	SetApproved(ctx context.Context, id string) (*model.Account, error)
	SetStaff(ctx context.Context, id string) (*model.Account, error)
	Delete(ctx context.Context, id string) error
	StaffExists(ctx context.Context) (bool, error)
	// CreateFirstAdmin inserts the account only if no staff account exists,
	// as a single atomic decision. Returns common.ErrAlreadyBootstrapped
	// when a staff account is already present.
	CreateFirstAdmin(ctx context.Context, account *model.Account) error
}

// Advisory lock key serializing the bootstrap check-then-create sequence.
// Two concurrent bootstrap attempts must not both observe "no admin".
const bootstrapLockKey = 982347

const accountColumns = `id, username, email, first_name, last_name, hashed_password,
	       is_approved, is_staff, is_superuser, date_joined`

type pgAccountRepository struct {
	db *sql.DB
}

func NewPgAccountRepository(db *sql.DB) AccountRepository {
	return &pgAccountRepository{db: db}
}

func (r *pgAccountRepository) Create(ctx context.Context, account *model.Account) error {
	query := `INSERT INTO accounts (id, username, email, first_name, last_name, hashed_password,
	                                is_approved, is_staff, is_superuser)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING date_joined`
	err := r.db.QueryRowContext(ctx, query,
		account.ID, account.Username, account.Email, account.FirstName, account.LastName,
		account.HashedPassword, account.IsApproved, account.IsStaff, account.IsSuperuser,
	).Scan(&account.DateJoined)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" { // Unique constraint violation
			return fmt.Errorf("account with given username already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgAccountRepository.Create: %w", err)
	}
	return nil
}

func (r *pgAccountRepository) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE username = $1`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgAccountRepository.FindByUsername: %w", err)
	}
	return account, nil
}

func (r *pgAccountRepository) FindByID(ctx context.Context, id string) (*model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgAccountRepository.FindByID: %w", err)
	}
	return account, nil
}

func (r *pgAccountRepository) ListAll(ctx context.Context) ([]model.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY date_joined DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgAccountRepository.ListAll: %w", err)
	}
	defer rows.Close()

	accounts := []model.Account{}
	for rows.Next() {
		account := model.Account{}
		if err := rows.Scan(
			&account.ID, &account.Username, &account.Email, &account.FirstName, &account.LastName,
			&account.HashedPassword, &account.IsApproved, &account.IsStaff, &account.IsSuperuser,
			&account.DateJoined,
		); err != nil {
			return nil, fmt.Errorf("pgAccountRepository.ListAll: scan: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgAccountRepository.ListAll: rows: %w", err)
	}
	return accounts, nil
}

func (r *pgAccountRepository) SetApproved(ctx context.Context, id string) (*model.Account, error) {
	// Unconditional set keeps the operation idempotent.
	query := `UPDATE accounts SET is_approved = TRUE WHERE id = $1 RETURNING ` + accountColumns
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgAccountRepository.SetApproved: %w", err)
	}
	return account, nil
}

func (r *pgAccountRepository) SetStaff(ctx context.Context, id string) (*model.Account, error) {
	query := `UPDATE accounts SET is_staff = TRUE WHERE id = $1 RETURNING ` + accountColumns
	account, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgAccountRepository.SetStaff: %w", err)
	}
	return account, nil
}

func (r *pgAccountRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("pgAccountRepository.Delete: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("pgAccountRepository.Delete: rows affected: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgAccountRepository) StaffExists(ctx context.Context) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE is_staff)`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("pgAccountRepository.StaffExists: %w", err)
	}
	return exists, nil
}

func (r *pgAccountRepository) CreateFirstAdmin(ctx context.Context, account *model.Account) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("pgAccountRepository.CreateFirstAdmin: begin: %w", err)
	}
	defer tx.Rollback() // Rollback if not committed

	// The advisory lock is held until commit/rollback, serializing the
	// existence check against concurrent bootstrap attempts.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, bootstrapLockKey); err != nil {
		return fmt.Errorf("pgAccountRepository.CreateFirstAdmin: lock: %w", err)
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE is_staff)`).Scan(&exists); err != nil {
		return fmt.Errorf("pgAccountRepository.CreateFirstAdmin: check: %w", err)
	}
	if exists {
		return common.ErrAlreadyBootstrapped
	}

	query := `INSERT INTO accounts (id, username, email, first_name, last_name, hashed_password,
	                                is_approved, is_staff, is_superuser)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	          RETURNING date_joined`
	err = tx.QueryRowContext(ctx, query,
		account.ID, account.Username, account.Email, account.FirstName, account.LastName,
		account.HashedPassword, account.IsApproved, account.IsStaff, account.IsSuperuser,
	).Scan(&account.DateJoined)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("account with given username already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgAccountRepository.CreateFirstAdmin: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("pgAccountRepository.CreateFirstAdmin: commit: %w", err)
	}
	return nil
}

func scanAccount(row *sql.Row) (*model.Account, error) {
	account := &model.Account{}
	err := row.Scan(
		&account.ID, &account.Username, &account.Email, &account.FirstName, &account.LastName,
		&account.HashedPassword, &account.IsApproved, &account.IsStaff, &account.IsSuperuser,
		&account.DateJoined,
	)
	if err != nil {
		return nil, err
	}
	return account, nil
}
