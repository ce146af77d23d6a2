package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/sendrec/videoexp/internal/database"
	"github.com/sendrec/videoexp/internal/playlist"
)

// PostgresStore keeps documents in the experience_documents table.
type PostgresStore struct {
	db database.DBTX
}

func NewPostgresStore(db database.DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, experienceID string) (playlist.Playlist, error) {
	var raw []byte
	err := s.db.QueryRow(ctx,
		`SELECT document FROM experience_documents WHERE experience_id = $1`,
		experienceID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return playlist.Playlist{}, ErrNotFound
		}
		return playlist.Playlist{}, fmt.Errorf("select document: %w", err)
	}
	return playlist.Decode(raw)
}

func (s *PostgresStore) Put(ctx context.Context, experienceID string, p playlist.Playlist) error {
	content, err := playlist.Encode(p)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO experience_documents (experience_id, document)
		 VALUES ($1, $2)
		 ON CONFLICT (experience_id) DO UPDATE SET document = EXCLUDED.document, updated_at = now()`,
		experienceID, content,
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, experienceID string) error {
	_, err := s.db.Exec(ctx,
		`DELETE FROM experience_documents WHERE experience_id = $1`,
		experienceID,
	)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT experience_id FROM experience_documents ORDER BY experience_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan document id: %w", err)
		}
		names = append(names, DocumentName(id))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return names, nil
}
