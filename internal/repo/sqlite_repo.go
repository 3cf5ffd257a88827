package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shaiso/SmartTweet/internal/domain"
)

// DefaultSQLiteURL — файл БД по умолчанию.
const DefaultSQLiteURL = "file:smarttweet.db?_foreign_keys=on&_busy_timeout=5000"

// sqliteTimeLayout — фиксированная ширина в UTC, лексический порядок совпадает с временным.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const sqlitePostColumns = `id, user_id, content, post_type, scheduled_time, status,
	metadata, created_at, posted_at, error_message, is_immediate`

// SQLiteRepo — SQLite-реализация PostStore.
//
// Использует одно соединение: SQLite допускает одного писателя,
// а in-memory БД живёт ровно столько, сколько её соединение.
type SQLiteRepo struct {
	db *sql.DB
}

// OpenSQLite открывает SQLite БД по DSN go-sqlite3.
// Внешние ключи включаются всегда, независимо от _foreign_keys в DSN.
// Для тестов подходит "file::memory:".
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteRepo, error) {
	if dsn == "" {
		dsn = DefaultSQLiteURL
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Соединение одно, поэтому PRAGMA действует на все запросы.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
	}
	return &SQLiteRepo{db: db}, nil
}

// Create сохраняет новую запись и возвращает её ID.
func (r *SQLiteRepo) Create(ctx context.Context, post *domain.Post) (int64, error) {
	metaJSON, err := encodeMetadata(post.Kind, post.Metadata)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO scheduled_posts (user_id, content, post_type, scheduled_time, status,
		                             metadata, created_at, posted_at, error_message, is_immediate)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		post.OwnerID,
		post.Content,
		string(post.Kind),
		formatTime(post.ScheduledAt),
		string(post.Status),
		string(metaJSON),
		formatTime(post.CreatedAt),
		formatNullTime(post.PostedAt),
		nullString(post.ErrorMessage),
		post.IsImmediate,
	)
	if err != nil {
		return 0, storageErr("insert post", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, storageErr("insert post", err)
	}
	post.ID = id
	return id, nil
}

// Get возвращает запись по ID.
func (r *SQLiteRepo) Get(ctx context.Context, id int64) (*domain.Post, error) {
	query := `SELECT ` + sqlitePostColumns + ` FROM scheduled_posts WHERE id = ?`
	return r.scanPost(r.db.QueryRowContext(ctx, query, id))
}

// GetDue возвращает записи, готовые к публикации на момент now.
func (r *SQLiteRepo) GetDue(ctx context.Context, now time.Time) ([]domain.Post, error) {
	query := `
		SELECT ` + sqlitePostColumns + `
		FROM scheduled_posts
		WHERE status = 'pending'
		  AND is_immediate = false
		  AND scheduled_time <= ?
		ORDER BY scheduled_time ASC, id ASC
	`
	rows, err := r.db.QueryContext(ctx, query, formatTime(now))
	if err != nil {
		return nil, storageErr("list due posts", err)
	}
	return r.collect(rows)
}

// SetStatus безусловно записывает статус, ошибку и время публикации.
func (r *SQLiteRepo) SetStatus(ctx context.Context, id int64, status domain.PostStatus, errMsg string, postedAt *time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE scheduled_posts
		SET status = ?, error_message = ?, posted_at = ?
		WHERE id = ?
	`, string(status), nullString(errMsg), formatNullTime(postedAt), id)
	if err != nil {
		return false, storageErr("set post status", err)
	}
	return affected(result)
}

// Update редактирует запись владельца.
func (r *SQLiteRepo) Update(ctx context.Context, id, ownerID int64, upd PostUpdate) (bool, error) {
	post, err := r.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	metaJSON, err := encodeMetadata(post.Kind, upd.Metadata)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	query := `
		UPDATE scheduled_posts
		SET content = ?, scheduled_time = ?, metadata = ?
		WHERE id = ? AND user_id = ? AND status = 'pending'
	`
	if upd.ResetToPending {
		query = `
			UPDATE scheduled_posts
			SET content = ?, scheduled_time = ?, metadata = ?,
			    status = 'pending', error_message = NULL, posted_at = NULL
			WHERE id = ? AND user_id = ?
		`
	}

	result, err := r.db.ExecContext(ctx, query,
		upd.Content, formatTime(upd.ScheduledAt), string(metaJSON), id, ownerID)
	if err != nil {
		return false, storageErr("update post", err)
	}
	return affected(result)
}

// Cancel переводит pending-запись владельца в cancelled.
func (r *SQLiteRepo) Cancel(ctx context.Context, id, ownerID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE scheduled_posts SET status = 'cancelled'
		WHERE id = ? AND user_id = ? AND status = 'pending'
	`, id, ownerID)
	if err != nil {
		return false, storageErr("cancel post", err)
	}
	return affected(result)
}

// Delete удаляет запись владельца навсегда, только из pending или cancelled.
func (r *SQLiteRepo) Delete(ctx context.Context, id, ownerID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM scheduled_posts
		WHERE id = ? AND user_id = ? AND status IN ('pending', 'cancelled')
	`, id, ownerID)
	if err != nil {
		return false, storageErr("delete post", err)
	}
	return affected(result)
}

// ListByOwner возвращает записи владельца в выбранной проекции.
func (r *SQLiteRepo) ListByOwner(ctx context.Context, ownerID int64, filter ListFilter) ([]domain.Post, error) {
	where, order := viewClause(filter.View)
	query := `SELECT ` + sqlitePostColumns + ` FROM scheduled_posts WHERE user_id = ? ` +
		where + ` ` + order + ` LIMIT ? OFFSET ?`

	rows, err := r.db.QueryContext(ctx, query, ownerID, filter.limit(), filter.offset())
	if err != nil {
		return nil, storageErr("list posts", err)
	}
	return r.collect(rows)
}

// CountByOwner считает записи владельца по статусам.
func (r *SQLiteRepo) CountByOwner(ctx context.Context, ownerID int64) (StatusCounts, error) {
	var counts StatusCounts
	rows, err := r.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM scheduled_posts WHERE user_id = ? GROUP BY status
	`, ownerID)
	if err != nil {
		return counts, storageErr("count posts", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return counts, storageErr("scan counts", err)
		}
		counts.add(status, n)
	}
	if err := rows.Err(); err != nil {
		return counts, storageErr("count posts", err)
	}
	return counts, nil
}

// CreateOwner создаёт владельца.
func (r *SQLiteRepo) CreateOwner(ctx context.Context, username string) (*domain.Owner, error) {
	owner := &domain.Owner{Username: username, CreatedAt: time.Now().UTC()}
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO owners (username, created_at) VALUES (?, ?)
	`, username, formatTime(owner.CreatedAt))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, ErrAlreadyExists
		}
		return nil, storageErr("insert owner", err)
	}

	owner.ID, err = result.LastInsertId()
	if err != nil {
		return nil, storageErr("insert owner", err)
	}
	return owner, nil
}

// GetOwner возвращает владельца по ID.
func (r *SQLiteRepo) GetOwner(ctx context.Context, id int64) (*domain.Owner, error) {
	var owner domain.Owner
	var createdAt string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, username, created_at FROM owners WHERE id = ?
	`, id).Scan(&owner.ID, &owner.Username, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get owner", err)
	}
	if owner.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, storageErr("parse owner created_at", err)
	}
	return &owner, nil
}

// Migrate применяет недостающие миграции схемы.
func (r *SQLiteRepo) Migrate(ctx context.Context) ([]string, error) {
	return runMigrations(ctx, r)
}

// Close закрывает БД.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// --- migrationTarget ---

func (r *SQLiteRepo) ensureLedger(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			id         INTEGER PRIMARY KEY,
			name       TEXT NOT NULL UNIQUE,
			applied_at TEXT NOT NULL
		)
	`)
	return err
}

func (r *SQLiteRepo) appliedMigrations(ctx context.Context) (map[int]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		applied[id] = true
	}
	return applied, rows.Err()
}

func (r *SQLiteRepo) applyMigration(ctx context.Context, m migration, appliedAt time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.sqlite); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO migrations (id, name, applied_at) VALUES (?, ?, ?)
	`, m.id, m.name, formatTime(appliedAt)); err != nil {
		return err
	}
	return tx.Commit()
}

// --- Helpers ---

// rowScanner — общий интерфейс *sql.Row и *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteRepo) collect(rows *sql.Rows) ([]domain.Post, error) {
	defer rows.Close()

	var posts []domain.Post
	for rows.Next() {
		post, err := r.scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate posts", err)
	}
	return posts, nil
}

func (r *SQLiteRepo) scanPost(row rowScanner) (*domain.Post, error) {
	var p domain.Post
	var kind, status, scheduledAt, createdAt, metaJSON string
	var postedAt, errMsg sql.NullString

	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Content,
		&kind,
		&scheduledAt,
		&status,
		&metaJSON,
		&createdAt,
		&postedAt,
		&errMsg,
		&p.IsImmediate,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("scan post", err)
	}

	p.Kind = domain.PostKind(kind)
	p.Status = domain.PostStatus(status)
	p.ErrorMessage = errMsg.String

	if p.ScheduledAt, err = parseTime(scheduledAt); err != nil {
		return nil, storageErr("parse scheduled_time", err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, storageErr("parse created_at", err)
	}
	if postedAt.Valid {
		t, err := parseTime(postedAt.String)
		if err != nil {
			return nil, storageErr("parse posted_at", err)
		}
		p.PostedAt = &t
	}

	p.Metadata, err = decodeMetadata(p.Kind, []byte(metaJSON))
	if err != nil {
		return nil, storageErr("decode metadata", err)
	}
	return &p, nil
}

func affected(result sql.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("rows affected", err)
	}
	return n > 0, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func formatNullTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(sqliteTimeLayout, s)
}
