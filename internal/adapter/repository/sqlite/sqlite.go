package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/samber/lo"
	"github.com/vadimbarashkov/shorturls/internal/entity"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
)

const dialect = "sqlite3"

const (
	urlsTable   = "urls"
	clicksTable = "clicks"
)

func isUniqueViolationError(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	code := sqliteErr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

type urlRow struct {
	ID          int64  `db:"id"`
	ShortCode   string `db:"short_code"`
	OriginalURL string `db:"original_url"`
	ClickCount  int64  `db:"click_count"`
	CreatedAt   date   `db:"created_at"`
	ExpiresAt   date   `db:"expires_at"`
}

func (u *urlRow) toEntity() *entity.URL {
	return &entity.URL{
		ID:          u.ID,
		ShortCode:   u.ShortCode,
		OriginalURL: u.OriginalURL,
		URLStats: entity.URLStats{
			ClickCount: u.ClickCount,
		},
		CreatedAt: u.CreatedAt.Time(),
		ExpiresAt: u.ExpiresAt.Time(),
	}
}

type clickRow struct {
	ClickedAt date   `db:"clicked_at"`
	IP        string `db:"ip"`
	UserAgent string `db:"user_agent"`
	Referrer  string `db:"referrer"`
	City      string `db:"city"`
	Country   string `db:"country"`
}

func (c clickRow) toEntity(_ int) entity.Click {
	return entity.Click{
		Timestamp: c.ClickedAt.Time(),
		IP:        c.IP,
		UserAgent: c.UserAgent,
		Referrer:  c.Referrer,
		Location: entity.Location{
			City:    c.City,
			Country: c.Country,
		},
	}
}

// URLRepository keeps short URLs and their clicks in SQLite.
type URLRepository struct {
	db *goqu.Database
}

func NewURLRepository(db *sql.DB) *URLRepository {
	return &URLRepository{db: goqu.New(dialect, db)}
}

// Save inserts the URL. The unique index on short_code makes the insert fail
// with entity.ErrShortCodeExists when the code is taken.
func (r *URLRepository) Save(ctx context.Context, url *entity.URL) (*entity.URL, error) {
	const op = "adapter.repository.sqlite.URLRepository.Save"

	res, err := r.db.Insert(urlsTable).
		Prepared(true).
		Rows(goqu.Record{
			"short_code":   url.ShortCode,
			"original_url": url.OriginalURL,
			"click_count":  0,
			"created_at":   date(url.CreatedAt),
			"expires_at":   date(url.ExpiresAt),
		}).
		Executor().
		ExecContext(ctx)
	if err != nil {
		if isUniqueViolationError(err) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
		}

		return nil, fmt.Errorf("%s: failed to insert into urls table: %w", op, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get inserted id: %w", op, err)
	}

	return &entity.URL{
		ID:          id,
		ShortCode:   url.ShortCode,
		OriginalURL: url.OriginalURL,
		CreatedAt:   url.CreatedAt.UTC(),
		ExpiresAt:   url.ExpiresAt.UTC(),
	}, nil
}

func (r *URLRepository) RetrieveByShortCode(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.sqlite.URLRepository.RetrieveByShortCode"

	var row urlRow

	found, err := r.db.From(urlsTable).
		Prepared(true).
		Select("id", "short_code", "original_url", "click_count", "created_at", "expires_at").
		Where(goqu.C("short_code").Eq(shortCode)).
		ScanStructContext(ctx, &row)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get row from urls table: %w", op, err)
	}

	if !found {
		return nil, fmt.Errorf("%s: %w", op, entity.ErrURLNotFound)
	}

	return row.toEntity(), nil
}

// RetrieveWithClicks returns the URL together with its click history, oldest first.
func (r *URLRepository) RetrieveWithClicks(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "adapter.repository.sqlite.URLRepository.RetrieveWithClicks"

	url, err := r.RetrieveByShortCode(ctx, shortCode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var rows []clickRow

	err = r.db.From(clicksTable).
		Prepared(true).
		Select("clicked_at", "ip", "user_agent", "referrer", "city", "country").
		Where(goqu.C("url_id").Eq(url.ID)).
		Order(goqu.C("clicked_at").Asc(), goqu.C("id").Asc()).
		ScanStructsContext(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to select from clicks table: %w", op, err)
	}

	url.Clicks = lo.Map(rows, clickRow.toEntity)

	return url, nil
}

// RecordClick appends the click and increments the click counter in one transaction.
func (r *URLRepository) RecordClick(ctx context.Context, urlID int64, click entity.Click) error {
	const op = "adapter.repository.sqlite.URLRepository.RecordClick"

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: failed to begin transaction: %w", op, err)
	}

	err = tx.Wrap(func() error {
		res, err := tx.Update(urlsTable).
			Prepared(true).
			Set(goqu.Record{"click_count": goqu.L("click_count + 1")}).
			Where(goqu.C("id").Eq(urlID)).
			Executor().
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to update urls table row: %w", err)
		}

		rowsAffected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get number of affected rows: %w", err)
		}

		if rowsAffected != 1 {
			return entity.ErrURLNotFound
		}

		_, err = tx.Insert(clicksTable).
			Prepared(true).
			Rows(goqu.Record{
				"url_id":     urlID,
				"clicked_at": date(click.Timestamp),
				"ip":         click.IP,
				"user_agent": click.UserAgent,
				"referrer":   click.Referrer,
				"city":       click.Location.City,
				"country":    click.Location.Country,
			}).
			Executor().
			ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to insert into clicks table: %w", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
