package domain

import (
	"context"
	"errors"
)

// User is the caller behind a request, taken from a verified token or a trusted header.
type User struct {
	ID    string
	Email string
	Role  Role
}

// Role represents a user's access level
type Role string

const (
	// RoleAdmin may manage the chart of accounts.
	RoleAdmin Role = "admin"

	// RoleAccountant may create and post journal entries and reconcile.
	RoleAccountant Role = "accountant"

	// RoleViewer can only read reports.
	RoleViewer Role = "viewer"
)

var validRoles = map[Role]bool{
	RoleAdmin:      true,
	RoleAccountant: true,
	RoleViewer:     true,
}

// IsValid checks if the role is a valid role
func (r Role) IsValid() bool {
	return validRoles[r]
}

// CanWrite reports whether the role may mutate the ledger.
func (r Role) CanWrite() bool {
	return r == RoleAdmin || r == RoleAccountant
}

// CanManageAccounts checks if the role can manage accounts
func (r Role) CanManageAccounts() bool {
	return r == RoleAdmin
}

// SystemActor attributes changes made by background processes.
const SystemActor = "system"

type actorKey struct{}

// WithActor stores the acting user ID on the context.
func WithActor(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFromContext returns the acting user ID, or SystemActor when none is set.
func ActorFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(actorKey{}).(string); ok && id != "" {
		return id
	}
	return SystemActor
}

// Authentication errors
var (
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInsufficientRole = errors.New("insufficient role for this operation")
)

type requestIDKey struct{}

// WithRequestID stores the request ID on the context for audit attribution.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the request ID, or "" when none is set.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
