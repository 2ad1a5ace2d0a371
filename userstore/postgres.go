package userstore

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/otpauth"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// DefaultTimeout bounds every query issued by [Postgres].
const DefaultTimeout = 5 * time.Second

const uniqueViolation = "23505"

//go:embed migrations/*.sql
var migrations embed.FS

const userColumns = `id, email, username, password_hash, first_name, last_name, role,
	account_status, school, district, address, dob, created_at, updated_at`

type userRow struct {
	ID            string     `db:"id"`
	Email         *string    `db:"email"`
	Username      string     `db:"username"`
	PasswordHash  string     `db:"password_hash"`
	FirstName     string     `db:"first_name"`
	LastName      string     `db:"last_name"`
	Role          string     `db:"role"`
	AccountStatus string     `db:"account_status"`
	School        string     `db:"school"`
	District      string     `db:"district"`
	Address       string     `db:"address"`
	DOB           *time.Time `db:"dob"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
}

func (r userRow) user() *otpauth.User {
	u := &otpauth.User{
		ID:            r.ID,
		Username:      r.Username,
		PasswordHash:  r.PasswordHash,
		FirstName:     r.FirstName,
		LastName:      r.LastName,
		Role:          r.Role,
		AccountStatus: r.AccountStatus,
		School:        r.School,
		District:      r.District,
		Address:       r.Address,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.Email != nil {
		u.Email = *r.Email
	}
	if r.DOB != nil {
		u.DOB = *r.DOB
	}
	return u
}

// Open connects a pool to dsn and pings it.
func Open(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	// goose shares the DSN through database/sql, which needs the simple protocol.
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// Migrate applies the embedded migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return errors.New("nil pool provided")
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	db, err := goose.OpenDBWithDriver("pgx", pool.Config().ConnConfig.ConnString())
	if err != nil {
		return err
	}
	defer db.Close()

	return goose.UpContext(ctx, db, "migrations")
}

// Postgres reads and creates users in the users table.
type Postgres struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

var (
	_ otpauth.UserProvider        = (*Postgres)(nil)
	_ otpauth.PasswordHashUpdater = (*Postgres)(nil)
)

// NewPostgres returns a store backed by pool with DefaultTimeout per query.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, timeout: DefaultTimeout}
}

// Ping checks database connectivity for readiness probes.
func (p *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.pool.Ping(ctx)
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (*otpauth.User, error) {
	return p.getBy(ctx, "email", email)
}

func (p *Postgres) GetUserByUsername(ctx context.Context, username string) (*otpauth.User, error) {
	return p.getBy(ctx, "username", username)
}

func (p *Postgres) GetUserByID(ctx context.Context, id string) (*otpauth.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, otpauth.ErrUserNotFound
	}
	return p.getBy(ctx, "id", id)
}

func (p *Postgres) getBy(ctx context.Context, column, value string) (*otpauth.User, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1 AND is_deleted = FALSE`

	var row userRow
	if err := pgxscan.Get(ctx, p.pool, &row, query, value); err != nil {
		if pgxscan.NotFound(err) {
			return nil, otpauth.ErrUserNotFound
		}
		return nil, fmt.Errorf("select user by %s: %w", column, err)
	}
	return row.user(), nil
}

// CreateUser inserts a Student with Verified status.
func (p *Postgres) CreateUser(ctx context.Context, in otpauth.CreateUserInput) (*otpauth.User, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var dob *time.Time
	if !in.DOB.IsZero() {
		dob = &in.DOB
	}

	query := `INSERT INTO users (id, username, first_name, last_name, role, account_status, school, district, address, dob)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING ` + userColumns

	var row userRow
	err := pgxscan.Get(ctx, p.pool, &row, query,
		uuid.NewString(),
		in.Username,
		in.FirstName,
		in.LastName,
		otpauth.RoleStudent,
		otpauth.AccountStatusVerified,
		in.School,
		in.District,
		in.Address,
		dob,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, otpauth.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return row.user(), nil
}

// UpdatePasswordHash replaces the stored hash of userID. A missing or deleted
// user is [otpauth.ErrUserNotFound].
func (p *Postgres) UpdatePasswordHash(ctx context.Context, userID, newHash string) error {
	if _, err := uuid.Parse(userID); err != nil {
		return otpauth.ErrUserNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	tag, err := p.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, updated_at = now() WHERE id = $1 AND is_deleted = FALSE`,
		userID, newHash,
	)
	if err != nil {
		return fmt.Errorf("update password hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return otpauth.ErrUserNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
