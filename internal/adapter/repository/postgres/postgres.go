package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
	"github.com/vadimbarashkov/shorturls/internal/entity"
)

const uniqueViolationErrCode = "23505"

func isUniqueViolationError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.SQLState() == uniqueViolationErrCode
}

type urlDB struct {
	ID          int64     `db:"id"`
	ShortCode   string    `db:"short_code"`
	OriginalURL string    `db:"original_url"`
	ClickCount  int64     `db:"click_count"`
	CreatedAt   time.Time `db:"created_at"`
	ExpiresAt   time.Time `db:"expires_at"`
}

func (u *urlDB) toEntity() *entity.URL {
	return &entity.URL{
		ID:          u.ID,
		ShortCode:   u.ShortCode,
		OriginalURL: u.OriginalURL,
		URLStats: entity.URLStats{
			ClickCount: u.ClickCount,
		},
		CreatedAt: u.CreatedAt.UTC(),
		ExpiresAt: u.ExpiresAt.UTC(),
	}
}

type clickDB struct {
	ClickedAt time.Time `db:"clicked_at"`
	IP        string    `db:"ip"`
	UserAgent string    `db:"user_agent"`
	Referrer  string    `db:"referrer"`
	City      string    `db:"city"`
	Country   string    `db:"country"`
}

func (c clickDB) toEntity(_ int) entity.Click {
	return entity.Click{
		Timestamp: c.ClickedAt.UTC(),
		IP:        c.IP,
		UserAgent: c.UserAgent,
		Referrer:  c.Referrer,
		Location: entity.Location{
			City:    c.City,
			Country: c.Country,
		},
	}
}

type URLRepository struct {
	db *sqlx.DB
}

func NewURLRepository(db *sqlx.DB) *URLRepository {
	return &URLRepository{db: db}
}

// Save inserts the URL. The unique index on short_code makes the insert fail
// with entity.ErrShortCodeExists when the code is taken.
func (r *URLRepository) Save(ctx context.Context, url *entity.URL) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.Save"
	const query = `INSERT INTO urls(short_code, original_url, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, short_code, original_url, click_count, created_at, expires_at`

	var rec urlDB

	err := r.db.GetContext(ctx, &rec, query, url.ShortCode, url.OriginalURL, url.CreatedAt, url.ExpiresAt)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to insert into urls table: %w", op, err)
	}

	return rec.toEntity(), nil
}

func (r *URLRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.RetrieveByShortCode"
	const query = `SELECT id, short_code, original_url, click_count, created_at, expires_at
		FROM urls WHERE short_code = $1`

	var rec urlDB

	if err := r.db.GetContext(ctx, &rec, query, shortCode); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
		}

		return nil, fmt.Errorf("%s: failed to get row from urls table: %w", op, err)
	}

	return rec.toEntity(), nil
}

// RetrieveWithClicks returns the URL together with its click history, oldest first.
func (r *URLRepository) RetrieveWithClicks(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.postgres.URLRepository.RetrieveWithClicks"
	const query = `SELECT clicked_at, ip, user_agent, referrer, city, country
		FROM clicks WHERE url_id = $1
		ORDER BY clicked_at, id`

	url, err := r.RetrieveByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var clicks []clickDB

	if err := r.db.SelectContext(ctx, &clicks, query, url.ID); err != nil {
		return nil, fmt.Errorf("%s: failed to select from clicks table: %w", op, err)
	}

	url.Clicks = lo.Map(clicks, clickDB.toEntity)

	return url, nil
}

// RecordClick increments the click counter and appends the click in one transaction.
func (r *URLRepository) RecordClick(ctx context.Context, urlID int64, click entity.Click) (err error) {
	const op = "adapter.repository.postgres.URLRepository.RecordClick"
	const insertQuery = `INSERT INTO clicks(url_id, clicked_at, ip, user_agent, referrer, city, country)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	const updateQuery = `UPDATE urls SET click_count = click_count + 1 WHERE id = $1`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, updateQuery, urlID)
	if err != nil {
		return fmt.Errorf("%s: failed to update urls table row: %w", op, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: failed to get number of affected rows: %w", op, err)
	}

	if rowsAffected != 1 {
		return fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	_, err = tx.ExecContext(ctx, insertQuery,
		urlID,
		click.Timestamp,
		click.IP,
		click.UserAgent,
		click.Referrer,
		click.Location.City,
		click.Location.Country,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to insert into clicks table: %w", op, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: failed to commit transaction: %w", op, err)
	}

	return nil
}
