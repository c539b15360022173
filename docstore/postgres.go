package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type PostgresConfig struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
}

// PostgresStore persists documents in Postgres through bun.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(cfg PostgresConfig) (*PostgresStore, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	opts := []pgdriver.Option{pgdriver.WithDSN(dsn)}
	if cfg.Timeout > 0 {
		opts = append(opts, pgdriver.WithTimeout(cfg.Timeout))
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(opts...))
	return &PostgresStore{db: bun.NewDB(sqldb, pgdialect.New())}, nil
}

// Init creates the documents table when it does not exist yet.
func (p *PostgresStore) Init(ctx context.Context) error {
	if _, err := p.db.NewCreateTable().
		Model((*Document)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

func (p *PostgresStore) Put(ctx context.Context, doc *Document) error {
	if doc == nil || strings.TrimSpace(doc.ID) == "" {
		return ErrInvalidDoc
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	if _, err := p.db.NewInsert().
		Model(doc).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("text = EXCLUDED.text").
		Set("chars = EXCLUDED.chars").
		Exec(ctx); err != nil {
		return fmt.Errorf("insert document %s: %w", doc.ID, err)
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Document, error) {
	if strings.TrimSpace(id) == "" {
		return nil, ErrInvalidDoc
	}

	doc := new(Document)
	err := p.db.NewSelect().
		Model(doc).
		Where("id = ?", id).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select document %s: %w", id, err)
	}
	return doc, nil
}

func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidDoc
	}
	if _, err := p.db.NewDelete().
		Model((*Document)(nil)).
		Where("id = ?", id).
		Exec(ctx); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

func (p *PostgresStore) Close() error {
	return p.db.Close()
}
