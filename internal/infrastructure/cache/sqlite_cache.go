package cache

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"freestylecal/internal/errs"
	"freestylecal/internal/infrastructure/persistence/sqlite/model"
	"freestylecal/internal/ports"
)

type SQLiteCache struct {
	db  *gorm.DB
	now func() time.Time
}

var _ ports.Cache = (*SQLiteCache)(nil)

func NewSQLiteCache(db *gorm.DB) *SQLiteCache {
	return &SQLiteCache{db: db, now: time.Now}
}

func (c *SQLiteCache) Get(ctx context.Context, key string) (string, bool, error) {
	db, trimmedKey, err := c.prepare(ctx, key)
	if err != nil {
		return "", false, err
	}

	var row model.KV
	if err := db.Where("key = ?", trimmedKey).Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, errs.Wrap(err, "query cache by key")
	}

	if c.expired(row) {
		return "", false, nil
	}
	return row.Value, true, nil
}

func (c *SQLiteCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	db, trimmedKey, err := c.prepare(ctx, key)
	if err != nil {
		return err
	}

	now := c.now().UTC()
	row := model.KV{
		Key:       trimmedKey,
		Value:     value,
		UpdatedAt: now.Format(time.RFC3339Nano),
	}
	if ttl > 0 {
		expiresAt := now.Add(ttl).Format(time.RFC3339Nano)
		row.ExpiresAt = &expiresAt
	}

	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "key"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value":      row.Value,
			"expires_at": row.ExpiresAt,
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error; err != nil {
		return errs.Wrap(err, "upsert cache key")
	}

	return nil
}

func (c *SQLiteCache) Delete(ctx context.Context, key string) error {
	db, trimmedKey, err := c.prepare(ctx, key)
	if err != nil {
		return err
	}

	if err := db.Where("key = ?", trimmedKey).Delete(&model.KV{}).Error; err != nil {
		return errs.Wrap(err, "delete cache key")
	}
	return nil
}

func (c *SQLiteCache) Keys(ctx context.Context, prefix string) ([]string, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	var rows []model.KV
	query := c.db.WithContext(ctx).Order("key asc")
	if prefix != "" {
		query = query.Where("substr(key, 1, ?) = ?", len(prefix), prefix)
	}
	if err := query.Find(&rows).Error; err != nil {
		return nil, errs.Wrap(err, "list cache keys")
	}

	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		if !c.expired(row) {
			keys = append(keys, row.Key)
		}
	}
	return keys, nil
}

func (c *SQLiteCache) prepare(ctx context.Context, key string) (*gorm.DB, string, error) {
	if ctx == nil {
		return nil, "", errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, "", errs.Wrap(err, "check context")
	}

	trimmedKey := strings.TrimSpace(key)
	if trimmedKey == "" {
		return nil, "", errors.New("key is required")
	}
	return c.db.WithContext(ctx), trimmedKey, nil
}

func (c *SQLiteCache) expired(row model.KV) bool {
	if row.ExpiresAt == nil {
		return false
	}
	expiresAt, err := time.Parse(time.RFC3339Nano, *row.ExpiresAt)
	if err != nil {
		return false
	}
	return !c.now().UTC().Before(expiresAt)
}
