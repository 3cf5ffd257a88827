package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/SmartTweet/internal/domain"
)

const pgPostColumns = `id, user_id, content, post_type, scheduled_time, status,
	metadata, created_at, posted_at, error_message, is_immediate`

// PostRepo — PostgreSQL-реализация PostStore.
type PostRepo struct {
	pool *pgxpool.Pool
}

// NewPostRepo создаёт новый PostRepo.
func NewPostRepo(pool *pgxpool.Pool) *PostRepo {
	return &PostRepo{pool: pool}
}

// Pool возвращает пул соединений (нужен для advisory lock).
func (r *PostRepo) Pool() *pgxpool.Pool {
	return r.pool
}

// Create сохраняет новую запись и возвращает её ID.
func (r *PostRepo) Create(ctx context.Context, post *domain.Post) (int64, error) {
	metaJSON, err := encodeMetadata(post.Kind, post.Metadata)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	query := `
		INSERT INTO scheduled_posts (user_id, content, post_type, scheduled_time, status,
		                             metadata, created_at, posted_at, error_message, is_immediate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`
	var id int64
	err = r.pool.QueryRow(ctx, query,
		post.OwnerID,
		post.Content,
		string(post.Kind),
		post.ScheduledAt.UTC(),
		string(post.Status),
		metaJSON,
		post.CreatedAt.UTC(),
		post.PostedAt,
		nullString(post.ErrorMessage),
		post.IsImmediate,
	).Scan(&id)
	if err != nil {
		return 0, storageErr("insert post", err)
	}
	post.ID = id
	return id, nil
}

// Get возвращает запись по ID.
func (r *PostRepo) Get(ctx context.Context, id int64) (*domain.Post, error) {
	query := `SELECT ` + pgPostColumns + ` FROM scheduled_posts WHERE id = $1`
	return r.scanPost(r.pool.QueryRow(ctx, query, id))
}

// GetDue возвращает записи, готовые к публикации на момент now.
// Порядок: scheduled_time ASC, затем порядок вставки.
func (r *PostRepo) GetDue(ctx context.Context, now time.Time) ([]domain.Post, error) {
	query := `
		SELECT ` + pgPostColumns + `
		FROM scheduled_posts
		WHERE status = 'pending'
		  AND is_immediate = false
		  AND scheduled_time <= $1
		ORDER BY scheduled_time ASC, id ASC
	`
	rows, err := r.pool.Query(ctx, query, now.UTC())
	if err != nil {
		return nil, storageErr("list due posts", err)
	}
	return r.collect(rows)
}

// SetStatus безусловно записывает статус, ошибку и время публикации.
func (r *PostRepo) SetStatus(ctx context.Context, id int64, status domain.PostStatus, errMsg string, postedAt *time.Time) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE scheduled_posts
		SET status = $2, error_message = $3, posted_at = $4
		WHERE id = $1
	`, id, string(status), nullString(errMsg), postedAt)
	if err != nil {
		return false, storageErr("set post status", err)
	}
	return result.RowsAffected() > 0, nil
}

// Update редактирует запись владельца.
func (r *PostRepo) Update(ctx context.Context, id, ownerID int64, upd PostUpdate) (bool, error) {
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
		SET content = $3, scheduled_time = $4, metadata = $5
		WHERE id = $1 AND user_id = $2 AND status = 'pending'
	`
	if upd.ResetToPending {
		query = `
			UPDATE scheduled_posts
			SET content = $3, scheduled_time = $4, metadata = $5,
			    status = 'pending', error_message = NULL, posted_at = NULL
			WHERE id = $1 AND user_id = $2
		`
	}

	result, err := r.pool.Exec(ctx, query, id, ownerID, upd.Content, upd.ScheduledAt.UTC(), metaJSON)
	if err != nil {
		return false, storageErr("update post", err)
	}
	return result.RowsAffected() > 0, nil
}

// Cancel переводит pending-запись владельца в cancelled.
func (r *PostRepo) Cancel(ctx context.Context, id, ownerID int64) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE scheduled_posts SET status = 'cancelled'
		WHERE id = $1 AND user_id = $2 AND status = 'pending'
	`, id, ownerID)
	if err != nil {
		return false, storageErr("cancel post", err)
	}
	return result.RowsAffected() > 0, nil
}

// Delete удаляет запись владельца навсегда, только из pending или cancelled.
func (r *PostRepo) Delete(ctx context.Context, id, ownerID int64) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM scheduled_posts
		WHERE id = $1 AND user_id = $2 AND status IN ('pending', 'cancelled')
	`, id, ownerID)
	if err != nil {
		return false, storageErr("delete post", err)
	}
	return result.RowsAffected() > 0, nil
}

// ListByOwner возвращает записи владельца в выбранной проекции.
func (r *PostRepo) ListByOwner(ctx context.Context, ownerID int64, filter ListFilter) ([]domain.Post, error) {
	where, order := viewClause(filter.View)
	query := `SELECT ` + pgPostColumns + ` FROM scheduled_posts WHERE user_id = $1 ` +
		where + ` ` + order + ` LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, ownerID, filter.limit(), filter.offset())
	if err != nil {
		return nil, storageErr("list posts", err)
	}
	return r.collect(rows)
}

// CountByOwner считает записи владельца по статусам.
func (r *PostRepo) CountByOwner(ctx context.Context, ownerID int64) (StatusCounts, error) {
	var counts StatusCounts
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*) FROM scheduled_posts WHERE user_id = $1 GROUP BY status
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
func (r *PostRepo) CreateOwner(ctx context.Context, username string) (*domain.Owner, error) {
	owner := &domain.Owner{Username: username, CreatedAt: time.Now().UTC()}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO owners (username, created_at) VALUES ($1, $2) RETURNING id
	`, username, owner.CreatedAt).Scan(&owner.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyExists
		}
		return nil, storageErr("insert owner", err)
	}
	return owner, nil
}

// GetOwner возвращает владельца по ID.
func (r *PostRepo) GetOwner(ctx context.Context, id int64) (*domain.Owner, error) {
	var owner domain.Owner
	err := r.pool.QueryRow(ctx, `
		SELECT id, username, created_at FROM owners WHERE id = $1
	`, id).Scan(&owner.ID, &owner.Username, &owner.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get owner", err)
	}
	return &owner, nil
}

// Migrate применяет недостающие миграции схемы.
func (r *PostRepo) Migrate(ctx context.Context) ([]string, error) {
	return runMigrations(ctx, r)
}

// Close закрывает пул.
func (r *PostRepo) Close() error {
	r.pool.Close()
	return nil
}

// --- migrationTarget ---

func (r *PostRepo) ensureLedger(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS migrations (
			id         INTEGER PRIMARY KEY,
			name       TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func (r *PostRepo) appliedMigrations(ctx context.Context) (map[int]bool, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM migrations`)
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

func (r *PostRepo) applyMigration(ctx context.Context, m migration, appliedAt time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, m.postgres); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO migrations (id, name, applied_at) VALUES ($1, $2, $3)
	`, m.id, m.name, appliedAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// --- Helpers ---

func (r *PostRepo) collect(rows pgx.Rows) ([]domain.Post, error) {
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

func (r *PostRepo) scanPost(row pgx.Row) (*domain.Post, error) {
	var p domain.Post
	var kind, status string
	var metaJSON []byte
	var errMsg *string

	err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.Content,
		&kind,
		&p.ScheduledAt,
		&status,
		&metaJSON,
		&p.CreatedAt,
		&p.PostedAt,
		&errMsg,
		&p.IsImmediate,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("scan post", err)
	}

	p.Kind = domain.PostKind(kind)
	p.Status = domain.PostStatus(status)
	p.ScheduledAt = p.ScheduledAt.UTC()
	p.CreatedAt = p.CreatedAt.UTC()
	if p.PostedAt != nil {
		t := p.PostedAt.UTC()
		p.PostedAt = &t
	}
	if errMsg != nil {
		p.ErrorMessage = *errMsg
	}

	p.Metadata, err = decodeMetadata(p.Kind, metaJSON)
	if err != nil {
		return nil, storageErr("decode metadata", err)
	}
	return &p, nil
}
