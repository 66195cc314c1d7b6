package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/poyrazK/siteverify/internal/core/domain"
)

//go:embed schema.sql
var schema string

const websiteColumns = `id, publisher_id, domain, category, status, activation_source, is_verified, verification_method, attempts, max_attempts, last_attempt_at, verified_at, challenge, is_deleted, version, created_at, updated_at, deleted_at`

// uniqueViolation is the Postgres SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository implements the website, API key and audit repositories.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Migrate applies the embedded schema. Statements are idempotent.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Schema returns the embedded DDL.
func Schema() string {
	return schema
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWebsite(row rowScanner) (*domain.Website, error) {
	var (
		w           domain.Website
		method      string
		source      string
		lastAttempt sql.NullTime
		verifiedAt  sql.NullTime
		deletedAt   sql.NullTime
		challenge   []byte
	)
	err := row.Scan(&w.ID, &w.PublisherID, &w.Domain, &w.Category, &w.Status, &source, &w.Verification.IsVerified,
		&method, &w.Verification.Attempts, &w.Verification.MaxAttempts, &lastAttempt, &verifiedAt, &challenge,
		&w.IsDeleted, &w.Version, &w.CreatedAt, &w.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	w.ActivationSource = domain.ActivationSource(source)
	w.Verification.Method = domain.Method(method)
	w.Verification.LastAttempt = timePtr(lastAttempt)
	w.Verification.VerifiedAt = timePtr(verifiedAt)
	w.DeletedAt = timePtr(deletedAt)
	if len(challenge) > 0 && string(challenge) != "null" {
		var c domain.Challenge
		if err := json.Unmarshal(challenge, &c); err != nil {
			return nil, fmt.Errorf("decode challenge for website %s: %w", w.ID, err)
		}
		w.Verification.Challenge = &c
	}
	return &w, nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func encodeChallenge(c *domain.Challenge) (any, error) {
	if c == nil {
		return nil, nil
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode challenge: %w", err)
	}
	return string(b), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (r *PostgresRepository) CreateWebsite(ctx context.Context, w *domain.Website) error {
	challenge, err := encodeChallenge(w.Verification.Challenge)
	if err != nil {
		return err
	}
	v := w.Verification
	query := `INSERT INTO websites (id, publisher_id, domain, category, status, activation_source, is_verified,
			  verification_method, attempts, max_attempts, last_attempt_at, verified_at, challenge, version, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err = r.db.ExecContext(ctx, query, w.ID, w.PublisherID, w.Domain, string(w.Category), string(w.Status),
		string(w.ActivationSource), v.IsVerified, string(v.Method), v.Attempts, v.MaxAttempts, v.LastAttempt,
		v.VerifiedAt, challenge, w.Version, w.CreatedAt, w.UpdatedAt)
	if isUniqueViolation(err) {
		return domain.NewError(domain.ErrConflict, domain.CodeDuplicateWebsite, fmt.Sprintf("website %s is already registered", w.Domain))
	}
	return err
}

func (r *PostgresRepository) GetWebsite(ctx context.Context, id string) (*domain.Website, error) {
	query := `SELECT ` + websiteColumns + ` FROM websites WHERE id = $1 AND NOT is_deleted`
	w, err := scanWebsite(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return w, err
}

func (r *PostgresRepository) FindWebsiteByDomain(ctx context.Context, publisherID string, domainName string) (*domain.Website, error) {
	query := `SELECT ` + websiteColumns + ` FROM websites WHERE publisher_id = $1 AND domain = $2 AND NOT is_deleted`
	w, err := scanWebsite(r.db.QueryRowContext(ctx, query, publisherID, domainName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return w, err
}

var sortColumns = map[domain.SortField]string{
	domain.SortByCreatedAt: "created_at",
	domain.SortByUpdatedAt: "updated_at",
	domain.SortByDomain:    "domain",
	domain.SortByStatus:    "status",
}

func websiteConditions(f domain.WebsiteFilter) sq.And {
	conds := sq.And{sq.Eq{"is_deleted": false}}
	if f.PublisherID != "" {
		conds = append(conds, sq.Eq{"publisher_id": f.PublisherID})
	}
	if f.Status != "" {
		conds = append(conds, sq.Eq{"status": string(f.Status)})
	}
	if f.Category != "" {
		conds = append(conds, sq.Eq{"category": string(f.Category)})
	}
	if f.IsVerified != nil {
		conds = append(conds, sq.Eq{"is_verified": *f.IsVerified})
	}
	if f.Search != "" {
		conds = append(conds, sq.ILike{"domain": "%" + escapeLike(f.Search) + "%"})
	}
	return conds
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListWebsites returns one page of websites matching f plus the total match count.
func (r *PostgresRepository) ListWebsites(ctx context.Context, f domain.WebsiteFilter) ([]domain.Website, int, error) {
	f.Normalize()
	conds := websiteConditions(f)

	countSQL, countArgs, err := psql.Select("COUNT(*)").From("websites").Where(conds).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dir := "ASC"
	if f.SortDesc {
		dir = "DESC"
	}
	listSQL, listArgs, err := psql.Select(websiteColumns).From("websites").Where(conds).
		OrderBy(sortColumns[f.SortBy]+" "+dir, "id ASC").
		Limit(uint64(f.Limit)).
		Offset(uint64((f.Page - 1) * f.Limit)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if errClose := rows.Close(); errClose != nil {
			log.Printf("failed to close rows: %v", errClose)
		}
	}()

	websites := []domain.Website{}
	for rows.Next() {
		w, err := scanWebsite(rows)
		if err != nil {
			return nil, 0, err
		}
		websites = append(websites, *w)
	}
	return websites, total, rows.Err()
}

// UpdateWebsite writes w only if the stored version still equals w.Version.
func (r *PostgresRepository) UpdateWebsite(ctx context.Context, w *domain.Website) error {
	challenge, err := encodeChallenge(w.Verification.Challenge)
	if err != nil {
		return err
	}
	v := w.Verification
	query := `UPDATE websites SET category = $1, status = $2, activation_source = $3, is_verified = $4,
			  verification_method = $5, attempts = $6, max_attempts = $7, last_attempt_at = $8, verified_at = $9,
			  challenge = $10, updated_at = $11, version = version + 1
			  WHERE id = $12 AND version = $13 AND NOT is_deleted`
	res, err := r.db.ExecContext(ctx, query, string(w.Category), string(w.Status), string(w.ActivationSource),
		v.IsVerified, string(v.Method), v.Attempts, v.MaxAttempts, v.LastAttempt, v.VerifiedAt, challenge,
		w.UpdatedAt, w.ID, w.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewError(domain.ErrConflict, domain.CodeVersionConflict, fmt.Sprintf("website %s was modified concurrently", w.ID))
	}
	w.Version++
	return nil
}

func (r *PostgresRepository) SoftDeleteWebsite(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE websites SET is_deleted = TRUE, deleted_at = $1, updated_at = $1, version = version + 1
			  WHERE id = $2 AND NOT is_deleted`
	res, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewError(domain.ErrNotFound, domain.CodeWebsiteNotFound, fmt.Sprintf("website %s not found", id))
	}
	return nil
}

func (r *PostgresRepository) WebsiteStats(ctx context.Context, publisherID string) (*domain.WebsiteStats, error) {
	b := psql.Select(
		"COUNT(*)",
		"COUNT(*) FILTER (WHERE status = 'active')",
		"COUNT(*) FILTER (WHERE status = 'pending')",
		"COUNT(*) FILTER (WHERE status = 'rejected')",
		"COUNT(*) FILTER (WHERE is_verified)",
	).From("websites").Where(sq.Eq{"is_deleted": false})
	if publisherID != "" {
		b = b.Where(sq.Eq{"publisher_id": publisherID})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	var s domain.WebsiteStats
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&s.Total, &s.Active, &s.Pending, &s.Rejected, &s.Verified); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PostgresRepository) SaveAuditLog(ctx context.Context, log *domain.AuditLog) error {
	query := `INSERT INTO audit_logs (id, publisher_id, actor, action, resource_type, resource_id, details, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query, log.ID, log.PublisherID, log.Actor, log.Action, log.ResourceType, log.ResourceID, log.Details, log.CreatedAt)
	return err
}

// GetAuditLogs lists audit entries newest first. An empty publisherID lists all.
func (r *PostgresRepository) GetAuditLogs(ctx context.Context, publisherID string) ([]domain.AuditLog, error) {
	b := psql.Select("id, publisher_id, actor, action, resource_type, resource_id, details, created_at").
		From("audit_logs").
		OrderBy("created_at DESC").
		Limit(500)
	if publisherID != "" {
		b = b.Where(sq.Eq{"publisher_id": publisherID})
	}
	query, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	rows, errQuery := r.db.QueryContext(ctx, query, args...)
	if errQuery != nil {
		return nil, errQuery
	}
	defer func() {
		if errClose := rows.Close(); errClose != nil {
			log.Printf("failed to close rows: %v", errClose)
		}
	}()

	var logs []domain.AuditLog
	for rows.Next() {
		var l domain.AuditLog
		if errScan := rows.Scan(&l.ID, &l.PublisherID, &l.Actor, &l.Action, &l.ResourceType, &l.ResourceID, &l.Details, &l.CreatedAt); errScan != nil {
			return nil, errScan
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

func (r *PostgresRepository) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	query := `SELECT id, publisher_id, name, key_hash, key_prefix, role, active, created_at, expires_at
			  FROM api_keys WHERE key_hash = $1`
	var (
		k       domain.APIKey
		role    string
		expires sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, keyHash).Scan(&k.ID, &k.PublisherID, &k.Name, &k.KeyHash, &k.KeyPrefix, &role, &k.Active, &k.CreatedAt, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	k.Role = domain.Role(role)
	k.ExpiresAt = timePtr(expires)
	return &k, nil
}

func (r *PostgresRepository) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	query := `INSERT INTO api_keys (id, publisher_id, name, key_hash, key_prefix, role, active, created_at, expires_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query, key.ID, key.PublisherID, key.Name, key.KeyHash, key.KeyPrefix, string(key.Role), key.Active, key.CreatedAt, key.ExpiresAt)
	return err
}

func (r *PostgresRepository) ListAPIKeys(ctx context.Context, publisherID string) ([]domain.APIKey, error) {
	query := `SELECT id, publisher_id, name, key_prefix, role, active, created_at, expires_at
			  FROM api_keys WHERE publisher_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, publisherID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if errClose := rows.Close(); errClose != nil {
			log.Printf("failed to close rows: %v", errClose)
		}
	}()

	var keys []domain.APIKey
	for rows.Next() {
		var (
			k       domain.APIKey
			role    string
			expires sql.NullTime
		)
		if err := rows.Scan(&k.ID, &k.PublisherID, &k.Name, &k.KeyPrefix, &role, &k.Active, &k.CreatedAt, &expires); err != nil {
			return nil, err
		}
		k.Role = domain.Role(role)
		k.ExpiresAt = timePtr(expires)
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// DeleteAPIKey deactivates a key; rows are kept so audit entries stay resolvable.
func (r *PostgresRepository) DeleteAPIKey(ctx context.Context, publisherID string, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE api_keys SET active = FALSE WHERE id = $1 AND publisher_id = $2`, id, publisherID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NewError(domain.ErrNotFound, "", fmt.Sprintf("api key %s not found", id))
	}
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}
