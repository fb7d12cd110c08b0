package postgres

import (
	"context"
	"embed"
	"errors"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/skybi/fleetdash/internal/session"
	"golang.org/x/oauth2"
)

//go:embed migrations/*.sql
var migrations embed.FS

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// Driver represents the PostgreSQL token storage driver.
// It lets several dashboard instances share one session.
type Driver struct {
	dsn string
	db  *pgxpool.Pool
}

var _ session.Storage = (*Driver)(nil)

// New creates a new empty PostgreSQL token storage driver.
// Use Initialize to open the database connection.
func New(dsn string) *Driver {
	return &Driver{
		dsn: dsn,
	}
}

// Initialize migrates the database and opens the connection pool
func (driver *Driver) Initialize(ctx context.Context) error {
	// Perform SQL migrations
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	migrator, err := migrate.NewWithSourceInstance("iofs", source, driver.dsn)
	if err != nil {
		return err
	}
	defer migrator.Close()
	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	// Initialize the database connection pool
	pool, err := pgxpool.Connect(ctx, driver.dsn)
	if err != nil {
		return err
	}
	driver.db = pool
	return nil
}

// Load retrieves the token stored under the given key
func (driver *Driver) Load(ctx context.Context, key string) (*oauth2.Token, error) {
	query, args, err := psql.Select("access_token", "token_type", "refresh_token", "expires_at").
		From("session_tokens").
		Where(squirrel.Eq{"token_key": key}).
		ToSql()
	if err != nil {
		return nil, err
	}

	token := new(oauth2.Token)
	var expires *time.Time
	err = driver.db.QueryRow(ctx, query, args...).Scan(&token.AccessToken, &token.TokenType, &token.RefreshToken, &expires)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if expires != nil {
		token.Expiry = *expires
	}
	return token, nil
}

// Save stores a token under the given key, replacing the previous one
func (driver *Driver) Save(ctx context.Context, key string, token *oauth2.Token) error {
	if token == nil {
		return driver.Delete(ctx, key)
	}

	var expires *time.Time
	if !token.Expiry.IsZero() {
		expires = &token.Expiry
	}
	query, args, err := psql.Insert("session_tokens").
		Columns("token_key", "access_token", "token_type", "refresh_token", "expires_at", "updated_at").
		Values(key, token.AccessToken, token.TokenType, token.RefreshToken, expires, squirrel.Expr("NOW()")).
		Suffix("ON CONFLICT (token_key) DO UPDATE SET access_token = EXCLUDED.access_token, token_type = EXCLUDED.token_type, refresh_token = EXCLUDED.refresh_token, expires_at = EXCLUDED.expires_at, updated_at = EXCLUDED.updated_at").
		ToSql()
	if err != nil {
		return err
	}
	_, err = driver.db.Exec(ctx, query, args...)
	return err
}

// Delete removes the token stored under the given key
func (driver *Driver) Delete(ctx context.Context, key string) error {
	query, args, err := psql.Delete("session_tokens").Where(squirrel.Eq{"token_key": key}).ToSql()
	if err != nil {
		return err
	}
	_, err = driver.db.Exec(ctx, query, args...)
	return err
}

// Close closes the database connection
func (driver *Driver) Close() {
	if driver.db != nil {
		driver.db.Close()
		driver.db = nil
	}
}
