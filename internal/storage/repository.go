package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrObservationNotFound indicates no observation matched the id/owner pair.
	ErrObservationNotFound = errors.New("storage: observation not found")
)

const (
	findStaleSQL = `SELECT
        id,
        product_name,
        product_url,
        owner_email,
        current_price,
        last_checked_at,
        created_at
    FROM observations
    ORDER BY last_checked_at ASC NULLS FIRST, id ASC
    LIMIT $1;`

	updateObservationSQL = `UPDATE observations
    SET product_name    = $2,
        current_price   = $3,
        last_checked_at = $4
    WHERE id = $1;`

	insertObservationSQL = `INSERT INTO observations (
        product_name,
        product_url,
        owner_email,
        current_price,
        last_checked_at
    ) VALUES (
        $1,$2,$3,$4,$5
    ) RETURNING id, created_at;`

	insertSampleSQL = `INSERT INTO price_samples (
        observation_id,
        price,
        checked_at
    ) VALUES (
        $1,$2,$3
    ) RETURNING id;`

	listByOwnerSQL = `SELECT
        id,
        product_name,
        product_url,
        owner_email,
        current_price,
        last_checked_at,
        created_at
    FROM observations
    WHERE owner_email = $1
    ORDER BY created_at DESC;`

	getByIDAndOwnerSQL = `SELECT
        id,
        product_name,
        product_url,
        owner_email,
        current_price,
        last_checked_at,
        created_at
    FROM observations
    WHERE id = $1
      AND owner_email = $2;`

	listSamplesSQL = `SELECT
        id,
        price,
        checked_at
    FROM price_samples
    WHERE observation_id = $1
    ORDER BY checked_at ASC, id ASC;`

	deleteByIDAndOwnerSQL = `DELETE FROM observations
    WHERE id = $1
      AND owner_email = $2;`
)

// ObservationStore is the persistence contract the refresh pipeline depends on.
type ObservationStore interface {
	FindStale(ctx context.Context, limit int) ([]Observation, error)
	Save(ctx context.Context, obs *Observation) error
}

// ProductStore covers the owner-scoped product operations.
type ProductStore interface {
	CreateObservation(ctx context.Context, obs *Observation) error
	ListByOwner(ctx context.Context, ownerEmail string) ([]Observation, error)
	GetByIDAndOwner(ctx context.Context, id int64, ownerEmail string) (Observation, error)
	DeleteByIDAndOwner(ctx context.Context, id int64, ownerEmail string) error
}

// Store provides pgx-backed access to observations and their price history.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping verifies database connectivity. Used by the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// FindStale returns up to limit observations due for refresh, oldest-checked
// first, never-checked before any that have been checked.
func (s *Store) FindStale(ctx context.Context, limit int) ([]Observation, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, findStaleSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("find stale observations: %w", queryErr)
	}
	defer rows.Close()

	observations := make([]Observation, 0, limit)
	for rows.Next() {
		obs, scanErr := scanObservation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		observations = append(observations, obs)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return observations, nil
}

// Save upserts the observation row and persists any not-yet-stored history
// samples. Samples with a zero ID are treated as new.
func (s *Store) Save(ctx context.Context, obs *Observation) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var checkedAt interface{}
	if obs.LastCheckedAt != nil {
		checkedAt = *obs.LastCheckedAt
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, execErr := tx.Exec(ctx, updateObservationSQL,
		obs.ID,
		obs.Name,
		obs.CurrentPrice.String(),
		checkedAt,
	); execErr != nil {
		return fmt.Errorf("update observation: %w", execErr)
	}

	for i := range obs.History {
		sample := &obs.History[i]
		if sample.ID != 0 {
			continue
		}
		if scanErr := tx.QueryRow(ctx, insertSampleSQL,
			obs.ID,
			sample.Price.String(),
			sample.CheckedAt,
		).Scan(&sample.ID); scanErr != nil {
			return fmt.Errorf("insert price sample: %w", scanErr)
		}
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return fmt.Errorf("commit save: %w", commitErr)
	}
	return nil
}

// CreateObservation inserts a new observation with its initial history.
func (s *Store) CreateObservation(ctx context.Context, obs *Observation) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	var checkedAt interface{}
	if obs.LastCheckedAt != nil {
		checkedAt = *obs.LastCheckedAt
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create: %w", err)
	}
	defer tx.Rollback(ctx)

	if scanErr := tx.QueryRow(ctx, insertObservationSQL,
		obs.Name,
		obs.URL,
		obs.OwnerEmail,
		obs.CurrentPrice.String(),
		checkedAt,
	).Scan(&obs.ID, &obs.CreatedAt); scanErr != nil {
		return fmt.Errorf("insert observation: %w", scanErr)
	}

	for i := range obs.History {
		sample := &obs.History[i]
		if scanErr := tx.QueryRow(ctx, insertSampleSQL,
			obs.ID,
			sample.Price.String(),
			sample.CheckedAt,
		).Scan(&sample.ID); scanErr != nil {
			return fmt.Errorf("insert price sample: %w", scanErr)
		}
	}

	if commitErr := tx.Commit(ctx); commitErr != nil {
		return fmt.Errorf("commit create: %w", commitErr)
	}
	return nil
}

// ListByOwner lists one user's observations, newest first.
func (s *Store) ListByOwner(ctx context.Context, ownerEmail string) ([]Observation, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listByOwnerSQL, ownerEmail)
	if queryErr != nil {
		return nil, fmt.Errorf("list observations: %w", queryErr)
	}
	defer rows.Close()

	observations := make([]Observation, 0)
	for rows.Next() {
		obs, scanErr := scanObservation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		observations = append(observations, obs)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return observations, nil
}

// GetByIDAndOwner fetches one observation with its full price history.
func (s *Store) GetByIDAndOwner(ctx context.Context, id int64, ownerEmail string) (Observation, error) {
	pool, err := s.getPool()
	if err != nil {
		return Observation{}, err
	}

	row := pool.QueryRow(ctx, getByIDAndOwnerSQL, id, ownerEmail)
	obs, scanErr := scanObservationRow(row)
	if scanErr != nil {
		if errors.Is(scanErr, pgx.ErrNoRows) {
			return Observation{}, ErrObservationNotFound
		}
		return Observation{}, scanErr
	}

	rows, queryErr := pool.Query(ctx, listSamplesSQL, id)
	if queryErr != nil {
		return Observation{}, fmt.Errorf("list price samples: %w", queryErr)
	}
	defer rows.Close()

	for rows.Next() {
		var sample PriceSample
		var priceStr string
		if err := rows.Scan(&sample.ID, &priceStr, &sample.CheckedAt); err != nil {
			return Observation{}, err
		}
		price, convErr := decimal.NewFromString(priceStr)
		if convErr != nil {
			return Observation{}, fmt.Errorf("parse sample price: %w", convErr)
		}
		sample.Price = price
		obs.History = append(obs.History, sample)
	}
	if rows.Err() != nil {
		return Observation{}, rows.Err()
	}

	return obs, nil
}

// DeleteByIDAndOwner removes an observation and, via cascade, its history.
func (s *Store) DeleteByIDAndOwner(ctx context.Context, id int64, ownerEmail string) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	cmdTag, execErr := pool.Exec(ctx, deleteByIDAndOwnerSQL, id, ownerEmail)
	if execErr != nil {
		return fmt.Errorf("delete observation: %w", execErr)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrObservationNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanObservation(rows pgx.Rows) (Observation, error) {
	return scanObservationRow(rows)
}

func scanObservationRow(row rowScanner) (Observation, error) {
	var (
		obs       Observation
		priceStr  string
		checkedAt sql.NullTime
	)

	if err := row.Scan(
		&obs.ID,
		&obs.Name,
		&obs.URL,
		&obs.OwnerEmail,
		&priceStr,
		&checkedAt,
		&obs.CreatedAt,
	); err != nil {
		return Observation{}, err
	}

	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return Observation{}, fmt.Errorf("parse current price: %w", err)
	}
	obs.CurrentPrice = price

	if checkedAt.Valid {
		value := checkedAt.Time
		obs.LastCheckedAt = &value
	}

	return obs, nil
}
