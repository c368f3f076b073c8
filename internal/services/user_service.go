// Package services – UserService
//
// This file implements the UserService, which manages the lifecycle of user
// accounts. It validates and normalizes names and email addresses, and
// coordinates repository operations for creating, fetching, listing (with
// pagination), renaming, and archiving users. Deletion is always a soft
// archive: the row is retained and hidden from reads.
//
// Service-level errors (e.g., ErrUserNotFound, ErrDuplicateEmail) are
// returned for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/noventa/go-user-gateway/internal/domain"
	"github.com/noventa/go-user-gateway/internal/repo"
)

// UserRepo defines the repository contract required by UserService.
// Implementations are responsible for persistence of user aggregates.
type UserRepo interface {
	// CreateUser inserts a new user row.
	CreateUser(ctx context.Context, db *gorm.DB, name, email string) (*domain.User, error)

	// GetUser fetches a live user by ID.
	GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error)

	// CountUsers returns the total number of live users for pagination.
	CountUsers(ctx context.Context, db *gorm.DB) (int64, error)

	// ListUsersPage returns a page of live users.
	ListUsersPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.User, error)

	// UpdateUserName renames a live user.
	UpdateUserName(ctx context.Context, db *gorm.DB, id, name string) (*domain.User, error)

	// ArchiveUser soft-deletes a user.
	ArchiveUser(ctx context.Context, db *gorm.DB, id string) error
}

// gormUserRepo adapts the package-level repo functions to the UserRepo
// interface so the service can be exercised against fakes in tests.
type gormUserRepo struct{}

func (gormUserRepo) CreateUser(ctx context.Context, db *gorm.DB, name, email string) (*domain.User, error) {
	return repo.CreateUser(ctx, db, name, email)
}

func (gormUserRepo) GetUser(ctx context.Context, db *gorm.DB, id string) (*domain.User, error) {
	return repo.GetUser(ctx, db, id)
}

func (gormUserRepo) CountUsers(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CountUsers(ctx, db)
}

func (gormUserRepo) ListUsersPage(ctx context.Context, db *gorm.DB, offset, limit int) ([]domain.User, error) {
	return repo.ListUsersPage(ctx, db, offset, limit)
}

func (gormUserRepo) UpdateUserName(ctx context.Context, db *gorm.DB, id, name string) (*domain.User, error) {
	return repo.UpdateUserName(ctx, db, id, name)
}

func (gormUserRepo) ArchiveUser(ctx context.Context, db *gorm.DB, id string) error {
	return repo.ArchiveUser(ctx, db, id)
}

// UserService provides account-level operations such as creating, listing,
// renaming, and archiving users. It enforces name and email rules before
// touching the repository.
type UserService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the user repository used by this service.
	Repo UserRepo

	// NameMaxLen caps stored names by rune length.
	NameMaxLen int
}

// NewUserService constructs a UserService with sane defaults for name
// handling.
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{
		DB:         db,
		Repo:       gormUserRepo{},
		NameMaxLen: 120,
	}
}

// Create registers a new user with the provided name and email. Names are
// normalized and length-checked; emails are lowercased and validated
// syntactically. A collision on the email column yields ErrDuplicateEmail.
func (s *UserService) Create(ctx context.Context, name, email string) (*domain.User, error) {
	name = normalizeName(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if s.NameMaxLen > 0 && utf8.RuneCountInString(name) > s.NameMaxLen {
		return nil, ErrNameTooLong
	}

	email, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidEmail
	}

	u, err := s.Repo.CreateUser(ctx, s.DB, name, email)
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return u, nil
}

// Get fetches a live user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := s.Repo.GetUser(ctx, s.DB, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// ListPage returns a page of live users plus the total count. It applies
// defaults for invalid page/pageSize.
func (s *UserService) ListPage(ctx context.Context, page, pageSize int) ([]domain.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	total, err := s.Repo.CountUsers(ctx, s.DB)
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []domain.User{}, 0, nil
	}

	items, err := s.Repo.ListUsersPage(ctx, s.DB, offset, pageSize)
	return items, total, err
}

// UpdateName renames a user, ensuring the account exists and is live.
func (s *UserService) UpdateName(ctx context.Context, id, name string) (*domain.User, error) {
	name = normalizeName(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if s.NameMaxLen > 0 && utf8.RuneCountInString(name) > s.NameMaxLen {
		return nil, ErrNameTooLong
	}

	u, err := s.Repo.UpdateUserName(ctx, s.DB, id, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

// Archive soft-deletes a user. The row survives with its archive flag set so
// the email stays reserved and history remains auditable.
func (s *UserService) Archive(ctx context.Context, id string) error {
	if err := s.Repo.ArchiveUser(ctx, s.DB, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// normalizeName trims whitespace and collapses multiple spaces to one.
func normalizeName(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// normalizeEmail lowercases and validates an address, returning the bare
// address without any display name.
func normalizeEmail(s string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(strings.ToLower(s)))
	if err != nil {
		return "", err
	}
	return addr.Address, nil
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
