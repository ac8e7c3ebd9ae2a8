package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cha-13/vitalis-chatbot-app/internal/model/chat"
)

// Postgres implements Store over a jsonb document per identity. The upsert
// replaces the whole document atomically, so two serialized saves can never
// interleave partial collections.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// NewPool connects and pings a pgx pool for the supplied database URL.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	cfg.MaxConns = 10

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Load fetches the identity's collection; absent rows yield an empty one.
func (p *Postgres) Load(ctx context.Context, identityID string) (chat.Collection, error) {
	revoked, err := p.isRevoked(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrIdentityRevoked
	}

	var raw []byte
	err = p.pool.QueryRow(ctx,
		`SELECT chat_history FROM chat_documents WHERE identity_id = $1`,
		identityID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return chat.Collection{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load chat document: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode chat document: %w", err)
	}
	if doc.ChatHistory == nil {
		doc.ChatHistory = chat.Collection{}
	}
	return doc.ChatHistory, nil
}

// Save upserts the full document for the identity.
func (p *Postgres) Save(ctx context.Context, identityID string, collection chat.Collection) error {
	revoked, err := p.isRevoked(ctx, identityID)
	if err != nil {
		return err
	}
	if revoked {
		return ErrIdentityRevoked
	}

	raw, err := json.Marshal(Document{ChatHistory: collection})
	if err != nil {
		return fmt.Errorf("encode chat document: %w", err)
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO chat_documents (identity_id, chat_history, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (identity_id)
		 DO UPDATE SET chat_history = EXCLUDED.chat_history, updated_at = now()`,
		identityID, raw,
	)
	if err != nil {
		return fmt.Errorf("save chat document: %w", err)
	}
	return nil
}

// Delete hard-removes the document and records the revocation so later
// calls for the identity are refused.
func (p *Postgres) Delete(ctx context.Context, identityID string) error {
	revoked, err := p.isRevoked(ctx, identityID)
	if err != nil {
		return err
	}
	if revoked {
		return ErrIdentityRevoked
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM chat_documents WHERE identity_id = $1`, identityID,
	); err != nil {
		return fmt.Errorf("delete chat document: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO revoked_identities (identity_id, revoked_at)
		 VALUES ($1, now()) ON CONFLICT DO NOTHING`, identityID,
	); err != nil {
		return fmt.Errorf("record revocation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

func (p *Postgres) isRevoked(ctx context.Context, identityID string) (bool, error) {
	var exists bool
	err := p.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_identities WHERE identity_id = $1)`,
		identityID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return exists, nil
}
