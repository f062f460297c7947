package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Postgres хранит интервью и профили в PostgreSQL
type Postgres struct {
	pool   *pgxpool.Pool
	db     *sql.DB
	logger zerolog.Logger
}

// ConnectPostgres создает пул соединений и применяет миграции
func ConnectPostgres(ctx context.Context, databaseURL string, logger zerolog.Logger) (*Postgres, error) {
	if databaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	p := &Postgres{pool: pool, db: stdlib.OpenDBFromPool(pool), logger: logger}
	if err := p.migrate(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Info().Str("host", config.ConnConfig.Host).Msg("postgres connected")
	return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, p.db, sub)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return err
	}
	for _, r := range results {
		p.logger.Info().Str("migration", r.Source.Path).Dur("took", r.Duration).Msg("migration applied")
	}
	return nil
}

func (p *Postgres) Close() error {
	err := p.db.Close()
	p.pool.Close()
	return err
}

// SaveInterview вставляет или обновляет интервью
func (p *Postgres) SaveInterview(ctx context.Context, rec *InterviewRecord) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO interviews (id, userid, role, type, level, amount, techstack, questions, finalized, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			userid = EXCLUDED.userid, role = EXCLUDED.role, type = EXCLUDED.type,
			level = EXCLUDED.level, amount = EXCLUDED.amount, techstack = EXCLUDED.techstack,
			questions = EXCLUDED.questions, finalized = EXCLUDED.finalized`,
		rec.ID, rec.UserID, rec.Role, rec.Type, rec.Level, rec.Amount,
		nonNil(rec.TechStack), nonNil(rec.Questions), rec.Finalized, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert interview %s: %w", rec.ID, err)
	}
	return nil
}

const interviewColumns = `id, userid, role, type, level, amount, techstack, questions, finalized, created_at`

// GetInterview загружает интервью по id
func (p *Postgres) GetInterview(ctx context.Context, id string) (*InterviewRecord, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+interviewColumns+` FROM interviews WHERE id = $1`, id)
	rec, err := scanInterview(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select interview %s: %w", id, err)
	}
	return rec, nil
}

// ListInterviews возвращает интервью пользователя, новые первыми
func (p *Postgres) ListInterviews(ctx context.Context, userID string) ([]InterviewRecord, error) {
	query := `SELECT ` + interviewColumns + ` FROM interviews`
	var args []any
	if userID != "" {
		query += ` WHERE userid = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select interviews: %w", err)
	}
	defer rows.Close()

	records := []InterviewRecord{}
	for rows.Next() {
		rec, err := scanInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan interview: %w", err)
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}

// SaveUser вставляет или обновляет профиль
func (p *Postgres) SaveUser(ctx context.Context, user *User) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO users (id, name, email, created_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email`,
		user.ID, user.Name, user.Email, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert user %s: %w", user.ID, err)
	}
	return nil
}

// GetUser загружает профиль по id
func (p *Postgres) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	err := p.pool.QueryRow(ctx, `SELECT id, name, email, created_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Name, &u.Email, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user %s: %w", id, err)
	}
	return &u, nil
}

func scanInterview(row pgx.Row) (*InterviewRecord, error) {
	var rec InterviewRecord
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Role, &rec.Type, &rec.Level, &rec.Amount,
		&rec.TechStack, &rec.Questions, &rec.Finalized, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
