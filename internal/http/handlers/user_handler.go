// User HTTP handlers.
//
// This file exposes REST endpoints for user resources:
//   - POST   /users        (create)
//   - GET    /users        (list, paginated)
//   - GET    /users/{id}   (fetch)
//   - PUT    /users/{id}   (rename)
//   - DELETE /users/{id}   (archive)
//
// Handlers are transport-thin: they validate input, call application
// services, and translate results into HTTP responses wrapped in the
// standard envelope. Mutating routes sit behind the idempotency gate; a
// handler body only ever runs for admitted requests.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noventa/go-user-gateway/internal/domain"
	"github.com/noventa/go-user-gateway/internal/services"
	"github.com/noventa/go-user-gateway/internal/utils"
)

//
// Service contracts (context-aware)
//

// UserService defines user account operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type UserService interface {
	// Create registers a new user with a name and unique email.
	Create(ctx context.Context, name, email string) (*domain.User, error)
	// Get fetches a live user by ID.
	Get(ctx context.Context, id string) (*domain.User, error)
	// ListPage returns a page of live users and the total count.
	ListPage(ctx context.Context, page, pageSize int) ([]domain.User, int64, error)
	// UpdateName renames a live user.
	UpdateName(ctx context.Context, id, name string) (*domain.User, error)
	// Archive soft-deletes a user; the row is retained.
	Archive(ctx context.Context, id string) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for user resources. It depends on an
// abstract service interface to keep transport concerns separate from
// business logic.
type Handlers struct {
	userSvc UserService
}

// New constructs a Handlers instance bound to the given service.
func New(userSvc UserService) *Handlers {
	return &Handlers{userSvc: userSvc}
}

//
// DTOs
//

// CreateUserRequest is the JSON payload for registering a user.
type CreateUserRequest struct {
	// Name is the display name (1-120 chars after normalization).
	Name string `json:"name" binding:"required,min=1,max=255"`
	// Email must be unique across live and archived accounts.
	Email string `json:"email" binding:"required"`
}

// UpdateUserRequest is the JSON payload for renaming a user.
type UpdateUserRequest struct {
	Name string `json:"name" binding:"required,min=1,max=255"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListUsersResponse wraps a page of users and pagination information.
type ListUsersResponse struct {
	Users      []domain.User `json:"users"`
	Pagination Pagination    `json:"pagination"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.ClampInt(utils.AtoiDefault(c.Query("page_size"), defaultPageSize), 1, maxPageSize)
	return
}

// pathUserID validates the {id} path parameter as a UUID. On failure it
// writes a 400 envelope and reports ok=false.
func pathUserID(c *gin.Context) (string, bool) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		fail(c, http.StatusBadRequest, StatusBadRequest, "user id must be a UUID")
		return "", false
	}
	return id, true
}

//
// Handlers
//

// CreateUser registers a new user and returns the stored resource.
func (h *Handlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, StatusBadRequest, "name and email are required")
		return
	}

	u, err := h.userSvc.Create(c.Request.Context(), req.Name, req.Email)
	switch {
	case err == nil:
		ok(c, http.StatusCreated, u, "User created")
	case errors.Is(err, services.ErrDuplicateEmail):
		fail(c, http.StatusConflict, StatusDuplicateEmail, "Email already registered")
	case errors.Is(err, services.ErrEmptyName),
		errors.Is(err, services.ErrNameTooLong),
		errors.Is(err, services.ErrInvalidEmail):
		fail(c, http.StatusBadRequest, StatusBadRequest, err.Error())
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, StatusInternalError, "Something went wrong")
	}
}

// GetUser fetches a single live user by ID.
func (h *Handlers) GetUser(c *gin.Context) {
	id, valid := pathUserID(c)
	if !valid {
		return
	}

	u, err := h.userSvc.Get(c.Request.Context(), id)
	switch {
	case err == nil:
		ok(c, http.StatusOK, u, "OK")
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, StatusNotFound, "User not found")
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, StatusInternalError, "Something went wrong")
	}
}

// ListUsers returns a page of live users.
func (h *Handlers) ListUsers(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.userSvc.ListPage(c.Request.Context(), page, pageSize)
	if err != nil {
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, StatusInternalError, "Something went wrong")
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	resp := ListUsersResponse{
		Users: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	}
	ok(c, http.StatusOK, resp, "OK")
}

// UpdateUser renames a live user and returns the refreshed resource.
func (h *Handlers) UpdateUser(c *gin.Context) {
	id, valid := pathUserID(c)
	if !valid {
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		fail(c, http.StatusBadRequest, StatusBadRequest, "name required (1-255 chars)")
		return
	}

	u, err := h.userSvc.UpdateName(c.Request.Context(), id, req.Name)
	switch {
	case err == nil:
		ok(c, http.StatusOK, u, "User updated")
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, StatusNotFound, "User not found")
	case errors.Is(err, services.ErrEmptyName), errors.Is(err, services.ErrNameTooLong):
		fail(c, http.StatusBadRequest, StatusBadRequest, err.Error())
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, StatusInternalError, "Something went wrong")
	}
}

// DeleteUser archives a user. The row survives with its archive flag set, so
// a later GET returns 404 while the email stays reserved.
func (h *Handlers) DeleteUser(c *gin.Context) {
	id, valid := pathUserID(c)
	if !valid {
		return
	}

	err := h.userSvc.Archive(c.Request.Context(), id)
	switch {
	case err == nil:
		ok(c, http.StatusOK, gin.H{"id": id}, "User archived")
	case errors.Is(err, services.ErrUserNotFound):
		fail(c, http.StatusNotFound, StatusNotFound, "User not found")
	default:
		_ = c.Error(err)
		fail(c, http.StatusInternalServerError, StatusInternalError, "Something went wrong")
	}
}
