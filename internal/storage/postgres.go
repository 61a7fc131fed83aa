package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/faceid/internal/config"
	"github.com/your-org/faceid/internal/models"
)

const (
	uniqueViolation = "23505"
	// guestLockKey is the pg_advisory_lock key held while a guest is created.
	guestLockKey int64 = 0x66616365 // "face"
)

const identityColumns = `id, display_name, real_name, phone_number, gender, avatar,
	credential_hash, feature_vector, is_guest, created_at, updated_at`

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) ListWithFeatures(ctx context.Context) ([]models.Identity, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+identityColumns+` FROM identities
		 WHERE feature_vector IS NOT NULL
		 ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var identities []models.Identity
	for rows.Next() {
		id, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		identities = append(identities, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (models.Identity, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
	found, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Identity{}, models.ErrNotFound
		}
		return models.Identity{}, fmt.Errorf("get identity: %w", err)
	}
	return found, nil
}

func (s *PostgresStore) GetByDisplayName(ctx context.Context, name string, isGuest bool) (models.Identity, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities
		 WHERE display_name = $1 AND is_guest = $2
		 ORDER BY created_at, id LIMIT 1`, name, isGuest)
	found, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Identity{}, models.ErrNotFound
		}
		return models.Identity{}, fmt.Errorf("get identity by name: %w", err)
	}
	return found, nil
}

func (s *PostgresStore) Insert(ctx context.Context, id models.Identity) (models.Identity, error) {
	id.ID = uuid.New()
	err := s.pool.QueryRow(ctx,
		`INSERT INTO identities (id, display_name, real_name, phone_number, gender, avatar,
		                         credential_hash, feature_vector, is_guest)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at, updated_at`,
		id.ID, id.DisplayName, id.RealName, id.PhoneNumber, genderOrDefault(id.Gender), id.Avatar,
		id.CredentialHash, vectorArg(id.FeatureVector), id.IsGuest,
	).Scan(&id.CreatedAt, &id.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Identity{}, models.ErrNameTaken
		}
		return models.Identity{}, fmt.Errorf("insert identity: %w", err)
	}
	return id, nil
}

// Update locks the row, applies upd and writes every column back in one transaction.
func (s *PostgresStore) Update(ctx context.Context, id uuid.UUID, upd models.IdentityUpdate) (models.Identity, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return models.Identity{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	current, err := scanIdentity(tx.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Identity{}, models.ErrNotFound
		}
		return models.Identity{}, fmt.Errorf("lock identity: %w", err)
	}

	next := upd.Apply(current)
	err = tx.QueryRow(ctx,
		`UPDATE identities SET display_name = $2, real_name = $3, phone_number = $4, gender = $5,
		        avatar = $6, credential_hash = $7, feature_vector = $8, is_guest = $9, updated_at = NOW()
		 WHERE id = $1
		 RETURNING updated_at`,
		id, next.DisplayName, next.RealName, next.PhoneNumber, genderOrDefault(next.Gender),
		next.Avatar, next.CredentialHash, vectorArg(next.FeatureVector), next.IsGuest,
	).Scan(&next.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Identity{}, models.ErrNameTaken
		}
		return models.Identity{}, fmt.Errorf("update identity: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Identity{}, fmt.Errorf("commit update: %w", err)
	}
	return next, nil
}

// LockGuestCreation holds a session-level advisory lock on a dedicated
// connection until the returned unlock is called.
func (s *PostgresStore) LockGuestCreation(ctx context.Context) (func(), error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire lock connection: %w", err)
	}
	if _, err := conn.Exec(ctx, `SELECT pg_advisory_lock($1)`, guestLockKey); err != nil {
		conn.Release()
		return nil, fmt.Errorf("advisory lock: %w", err)
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, guestLockKey); err != nil {
			// Closing the session releases the lock.
			slog.Error("advisory unlock", "error", err)
			_ = conn.Conn().Close(ctx)
		}
		conn.Release()
	}, nil
}

func scanIdentity(row pgx.Row) (models.Identity, error) {
	var (
		id     models.Identity
		gender string
		vec    *pgvector.Vector
	)
	err := row.Scan(&id.ID, &id.DisplayName, &id.RealName, &id.PhoneNumber, &gender, &id.Avatar,
		&id.CredentialHash, &vec, &id.IsGuest, &id.CreatedAt, &id.UpdatedAt)
	if err != nil {
		return models.Identity{}, err
	}
	id.Gender = models.Gender(gender)
	if vec != nil {
		id.FeatureVector = vec.Slice()
	}
	return id, nil
}

func vectorArg(v []float32) *pgvector.Vector {
	if len(v) == 0 {
		return nil
	}
	vec := pgvector.NewVector(v)
	return &vec
}

func genderOrDefault(g models.Gender) string {
	if g == "" {
		return string(models.GenderOther)
	}
	return string(g)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
