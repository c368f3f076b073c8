// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the User model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. The
// record lifecycle is applied explicitly: OnCreate before the first write,
// OnUpdate before every later one. Rows are never physically deleted;
// ArchiveUser flips the soft-archive flag.
package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/noventa/go-user-gateway/internal/domain"
)

// CreateUser inserts a new User row. Identity and timestamps are assigned by
// the lifecycle hook immediately before the write. A duplicate email yields
// ErrDuplicate.
func CreateUser(ctx context.Context, db *gorm.DB, name, email string) (*domain.User, error) {
	u := &domain.User{Name: name, Email: email}
	u.OnCreate()
	if err := db.WithContext(ctx).Create(u).Error; err != nil {
		if isDuplicate(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return u, nil
}

// GetUser fetches a live (non-archived) user by ID, or ErrNotFound.
func GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(ctx).
		Where("id = ? AND is_archived = ?", id, false).
		First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CountUsers returns the number of live users.
func CountUsers(ctx context.Context, db *gorm.DB) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("is_archived = ?", false).
		Count(&total).Error
	return total, err
}

// ListUsersPage returns a page of live users ordered by creation time
// descending. Use CountUsers for pagination metadata.
func ListUsersPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.User, error) {
	var out []domain.User
	err := db.WithContext(ctx).
		Where("is_archived = ?", false).
		Order("created_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// UpdateUserName renames a live user. The update timestamp is refreshed by
// the lifecycle hook before the write. Returns ErrNotFound if missing or
// archived.
func UpdateUserName(ctx context.Context, db *gorm.DB, id, name string) (*domain.User, error) {
	u, err := GetUser(ctx, db, id)
	if err != nil {
		return nil, err
	}
	u.Name = name
	u.OnUpdate()

	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ? AND is_archived = ?", id, false).
		Updates(map[string]any{
			"name":       u.Name,
			"updated_at": u.UpdatedAt,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

// ArchiveUser soft-deletes a user. The row is retained with is_archived set
// and the update timestamp refreshed. Returns ErrNotFound if the user does
// not exist or is already archived.
func ArchiveUser(ctx context.Context, db *gorm.DB, id string) error {
	u, err := GetUser(ctx, db, id)
	if err != nil {
		return err
	}
	u.IsArchived = true
	u.OnUpdate()

	res := db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ? AND is_archived = ?", id, false).
		Updates(map[string]any{
			"is_archived": true,
			"updated_at":  u.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
