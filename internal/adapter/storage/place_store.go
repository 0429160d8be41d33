// internal/adapter/storage/place_store.go

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mapscout/internal/domain/place"
	"mapscout/internal/domain/view"
)

// ErrNotFound is returned when a requested place does not exist
var ErrNotFound = errors.New("place not found")

// PlaceStore implements storage for fetched places
type PlaceStore struct {
	db *pgxpool.Pool
}

// NewPlaceStore creates a new place store
func NewPlaceStore(db *pgxpool.Pool) *PlaceStore {
	return &PlaceStore{
		db: db,
	}
}

// SavePlace upserts a place into storage
func (s *PlaceStore) SavePlace(ctx context.Context, p place.Place) error {
	query := `
		INSERT INTO places (
			id, provider, name,
			location,
			address, locality, region, country,
			categories, tags, price_level, metadata, fetched_at
		) VALUES (
			$1, $2, $3,
			ST_MakePoint($4, $5)::geography,
			$6, $7, $8, $9,
			$10, $11, $12, $13, $14
		)
		ON CONFLICT (id) DO UPDATE
		SET
			provider = $2,
			name = $3,
			location = ST_MakePoint($4, $5)::geography,
			address = $6,
			locality = $7,
			region = $8,
			country = $9,
			categories = $10,
			tags = $11,
			price_level = $12,
			metadata = $13,
			fetched_at = $14
	`

	metadataJSON, err := json.Marshal(p.Metadata)
	if err != nil {
		return fmt.Errorf("error marshaling metadata: %w", err)
	}

	_, err = s.db.Exec(
		ctx,
		query,
		p.ID,
		p.Provider,
		p.Name,
		p.Lng,
		p.Lat,
		p.Address,
		p.Locality,
		p.Region,
		p.Country,
		p.Categories,
		p.Tags,
		p.PriceLevel,
		metadataJSON,
		p.FetchedAt,
	)

	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}

	return nil
}

// GetPlace retrieves a place by ID
func (s *PlaceStore) GetPlace(ctx context.Context, id string) (*place.Place, error) {
	query := `
		SELECT
			id, provider, name,
			ST_X(location::geometry) as lng, ST_Y(location::geometry) as lat,
			address, locality, region, country,
			categories, tags, price_level, metadata, fetched_at
		FROM places
		WHERE id = $1
	`

	p, err := scanPlace(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error querying place: %w", err)
	}

	return p, nil
}

// FindPlacesInBounds retrieves places inside a south-west / north-east
// bounding box, most recently fetched first
func (s *PlaceStore) FindPlacesInBounds(ctx context.Context, bounds view.Bounds, limit int) ([]place.Place, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT
			id, provider, name,
			ST_X(location::geometry) as lng, ST_Y(location::geometry) as lat,
			address, locality, region, country,
			categories, tags, price_level, metadata, fetched_at
		FROM places
		WHERE location IS NOT NULL
		AND ST_Intersects(
			location::geometry,
			ST_MakeEnvelope($1, $2, $3, $4, 4326)
		)
		ORDER BY fetched_at DESC
		LIMIT $5
	`

	rows, err := s.db.Query(ctx, query, bounds.SW.Lng, bounds.SW.Lat, bounds.NE.Lng, bounds.NE.Lat, limit)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var places []place.Place
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning place: %w", err)
		}
		places = append(places, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating places: %w", err)
	}

	return places, nil
}

// PlaceQuery filters the place listing
type PlaceQuery struct {
	City       string
	Categories []string
	Bounds     *view.Bounds
	Limit      int
	Offset     int
}

// FindPlaces finds places matching the query
func (s *PlaceStore) FindPlaces(ctx context.Context, q PlaceQuery) ([]place.Place, error) {
	queryBuilder := strings.Builder{}
	queryBuilder.WriteString(`
		SELECT
			id, provider, name,
			ST_X(location::geometry) as lng, ST_Y(location::geometry) as lat,
			address, locality, region, country,
			categories, tags, price_level, metadata, fetched_at
		FROM places
		WHERE 1=1
	`)

	args := []interface{}{}
	argIndex := 1

	if q.City != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND locality ILIKE $%d", argIndex))
		args = append(args, q.City)
		argIndex++
	}

	// Match places carrying any of the requested categories in either bag
	if len(q.Categories) > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" AND (categories && $%d OR tags && $%d)", argIndex, argIndex))
		args = append(args, q.Categories)
		argIndex++
	}

	if q.Bounds != nil {
		queryBuilder.WriteString(fmt.Sprintf(
			" AND location IS NOT NULL AND ST_Intersects(location::geometry, ST_MakeEnvelope($%d, $%d, $%d, $%d, 4326))",
			argIndex, argIndex+1, argIndex+2, argIndex+3,
		))
		args = append(args, q.Bounds.SW.Lng, q.Bounds.SW.Lat, q.Bounds.NE.Lng, q.Bounds.NE.Lat)
		argIndex += 4
	}

	queryBuilder.WriteString(" ORDER BY fetched_at DESC, id")

	if q.Limit > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d", argIndex))
		args = append(args, q.Limit)
		argIndex++
	} else {
		queryBuilder.WriteString(" LIMIT 100")
	}

	if q.Offset > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" OFFSET $%d", argIndex))
		args = append(args, q.Offset)
	}

	rows, err := s.db.Query(ctx, queryBuilder.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var places []place.Place
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning place: %w", err)
		}
		places = append(places, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating places: %w", err)
	}

	return places, nil
}

// DeleteStalePlaces removes cached places older than the retention window.
// Returns the number of rows deleted.
func (s *PlaceStore) DeleteStalePlaces(ctx context.Context, olderThanDays int) (int64, error) {
	query := `
		DELETE FROM places
		WHERE fetched_at < NOW() - ($1 * INTERVAL '1 day')
	`

	tag, err := s.db.Exec(ctx, query, olderThanDays)
	if err != nil {
		return 0, fmt.Errorf("error executing query: %w", err)
	}

	return tag.RowsAffected(), nil
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlace(row rowScanner) (*place.Place, error) {
	var p place.Place
	var lng, lat *float64
	var metadataJSON []byte

	err := row.Scan(
		&p.ID,
		&p.Provider,
		&p.Name,
		&lng,
		&lat,
		&p.Address,
		&p.Locality,
		&p.Region,
		&p.Country,
		&p.Categories,
		&p.Tags,
		&p.PriceLevel,
		&metadataJSON,
		&p.FetchedAt,
	)
	if err != nil {
		return nil, err
	}

	if lng != nil && lat != nil {
		p.Lng = *lng
		p.Lat = *lat
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &p.Metadata); err != nil {
			return nil, fmt.Errorf("error unmarshaling metadata: %w", err)
		}
	}

	return &p, nil
}
