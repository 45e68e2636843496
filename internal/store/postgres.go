package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/nature-spots/backend/internal/models"
)

var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an insert violates a unique constraint
	// (duplicate username/email, duplicate save pair).
	ErrConflict = errors.New("already exists")
)

const uniqueViolation = "23505"

// PostgresStore handles user, spot and saved-spot CRUD against PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the tables if they don't exist. Deleting a user
// cascades to their spots and saves; deleting a spot cascades to the
// saves that reference it.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id         BIGSERIAL PRIMARY KEY,
			username   VARCHAR(80)  UNIQUE NOT NULL,
			email      VARCHAR(255) UNIQUE NOT NULL,
			password   VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ  DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS nature_spots (
			id          BIGSERIAL PRIMARY KEY,
			title       VARCHAR(120) NOT NULL,
			description TEXT         NOT NULL,
			location    VARCHAR(120) NOT NULL,
			tags        TEXT         NOT NULL DEFAULT '',
			image_url   TEXT         NOT NULL DEFAULT '',
			user_id     BIGINT       NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			created_at  TIMESTAMPTZ  DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS saved_spots (
			id         BIGSERIAL PRIMARY KEY,
			user_id    BIGINT      NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			spot_id    BIGINT      NOT NULL REFERENCES nature_spots(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			CONSTRAINT uq_user_spot UNIQUE (user_id, spot_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique
// constraint violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// ── Users ────────────────────────────────────────────────

func (s *PostgresStore) CreateUser(ctx context.Context, username, email, hashedPassword string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password)
		 VALUES ($1, $2, $3)
		 RETURNING id, username, email, created_at`,
		username, email, hashedPassword,
	).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, password, created_at FROM users WHERE username = $1`, username,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, password, created_at FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, email, created_at FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Username, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// ── Spots ────────────────────────────────────────────────

const spotColumns = `id, title, description, location, tags, image_url, user_id, created_at`

func scanSpot(row pgx.Row) (*models.NatureSpot, error) {
	var sp models.NatureSpot
	err := row.Scan(&sp.ID, &sp.Title, &sp.Description, &sp.Location,
		&sp.Tags, &sp.ImageURL, &sp.UserID, &sp.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sp, nil
}

func collectSpots(rows pgx.Rows) ([]models.NatureSpot, error) {
	defer rows.Close()
	var spots []models.NatureSpot
	for rows.Next() {
		var sp models.NatureSpot
		if err := rows.Scan(&sp.ID, &sp.Title, &sp.Description, &sp.Location,
			&sp.Tags, &sp.ImageURL, &sp.UserID, &sp.CreatedAt); err != nil {
			return nil, err
		}
		spots = append(spots, sp)
	}
	return spots, rows.Err()
}

func (s *PostgresStore) CreateSpot(ctx context.Context, req models.SpotRequest, userID int64) (*models.NatureSpot, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO nature_spots (title, description, location, tags, image_url, user_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+spotColumns,
		req.Title, req.Description, req.Location, req.Tags, req.ImageURL, userID,
	)
	sp, err := scanSpot(row)
	if err != nil {
		return nil, fmt.Errorf("create spot: %w", err)
	}
	return sp, nil
}

func (s *PostgresStore) GetSpot(ctx context.Context, id int64) (*models.NatureSpot, error) {
	return scanSpot(s.pool.QueryRow(ctx,
		`SELECT `+spotColumns+` FROM nature_spots WHERE id = $1`, id))
}

func (s *PostgresStore) UpdateSpot(ctx context.Context, id int64, req models.SpotRequest) (*models.NatureSpot, error) {
	return scanSpot(s.pool.QueryRow(ctx,
		`UPDATE nature_spots
		 SET title = $1, description = $2, location = $3, tags = $4, image_url = $5
		 WHERE id = $6
		 RETURNING `+spotColumns,
		req.Title, req.Description, req.Location, req.Tags, req.ImageURL, id))
}

func (s *PostgresStore) DeleteSpot(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM nature_spots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete spot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListSpots returns every spot, newest first.
func (s *PostgresStore) ListSpots(ctx context.Context) ([]models.NatureSpot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+spotColumns+` FROM nature_spots ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	return collectSpots(rows)
}

// ListSpotsByOwner returns the spots created by one user, newest first.
func (s *PostgresStore) ListSpotsByOwner(ctx context.Context, userID int64) ([]models.NatureSpot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+spotColumns+` FROM nature_spots WHERE user_id = $1 ORDER BY id DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectSpots(rows)
}

// ── Saved spots ──────────────────────────────────────────

func (s *PostgresStore) IsSaved(ctx context.Context, userID, spotID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM saved_spots WHERE user_id = $1 AND spot_id = $2)`,
		userID, spotID,
	).Scan(&exists)
	return exists, err
}

func (s *PostgresStore) SaveSpot(ctx context.Context, userID, spotID int64) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO saved_spots (user_id, spot_id) VALUES ($1, $2)`, userID, spotID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("save spot: %w", err)
	}
	return nil
}

func (s *PostgresStore) UnsaveSpot(ctx context.Context, userID, spotID int64) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM saved_spots WHERE user_id = $1 AND spot_id = $2`, userID, spotID)
	return err
}

// SavedSpotIDs returns the ids of every spot the user has saved.
func (s *PostgresStore) SavedSpotIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT spot_id FROM saved_spots WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListSavedSpots returns the spots the user has saved, newest first.
func (s *PostgresStore) ListSavedSpots(ctx context.Context, userID int64) ([]models.NatureSpot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT n.id, n.title, n.description, n.location, n.tags, n.image_url, n.user_id, n.created_at
		 FROM nature_spots n
		 JOIN saved_spots sv ON sv.spot_id = n.id
		 WHERE sv.user_id = $1
		 ORDER BY n.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectSpots(rows)
}
