package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"metalwatch-service/internal/domain"
)

// SampleStore persists samples in the samples table.
type SampleStore struct {
	pool *pgxpool.Pool
}

func NewSampleStore(pool *pgxpool.Pool) *SampleStore {
	return &SampleStore{pool: pool}
}

const sampleColumns = `id, owner, location, metal, concentration, permissible_limit, cf, igeo, pli, created_at`

func (s *SampleStore) SaveSample(ctx context.Context, sample domain.Sample) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO samples (`+sampleColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		sample.ID, sample.Owner, sample.Location, sample.Metal,
		sample.Concentration, sample.PermissibleLimit,
		sample.Indices.CF, sample.Indices.IGeo, sample.Indices.PLI,
		sample.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

func (s *SampleStore) ListSamplesByOwner(ctx context.Context, owner string) ([]domain.Sample, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+sampleColumns+` FROM samples WHERE owner = $1 ORDER BY seq`, owner)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	return scanSamples(rows)
}

func (s *SampleStore) ListSamples(ctx context.Context) ([]domain.Sample, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+sampleColumns+` FROM samples ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	return scanSamples(rows)
}

func scanSamples(rows pgx.Rows) ([]domain.Sample, error) {
	defer rows.Close()
	out := make([]domain.Sample, 0)
	for rows.Next() {
		var s domain.Sample
		if err := rows.Scan(
			&s.ID, &s.Owner, &s.Location, &s.Metal,
			&s.Concentration, &s.PermissibleLimit,
			&s.Indices.CF, &s.Indices.IGeo, &s.Indices.PLI,
			&s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return out, nil
}
