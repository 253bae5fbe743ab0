package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"vbsplatform.org/internal/store"
)

// Service orchestrates the login flow against the document store and the
// token codec. All operations are a single pass; any failure is terminal for
// the request.
type Service struct {
	store      store.Store
	codec      *Codec
	bcryptCost int
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithBcryptCost sets the work factor used when hashing new passwords.
func WithBcryptCost(cost int) ServiceOption {
	return func(s *Service) {
		if cost > 0 {
			s.bcryptCost = cost
		}
	}
}

// NewService constructs a Service.
func NewService(st store.Store, codec *Codec, opts ...ServiceOption) (*Service, error) {
	if st == nil {
		return nil, errors.New("auth: store is required")
	}
	if codec == nil {
		return nil, errors.New("auth: token codec is required")
	}
	s := &Service{
		store:      st,
		codec:      codec,
		bcryptCost: DefaultBcryptCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Codec exposes the token codec for request guards.
func (s *Service) Codec() *Codec { return s.codec }

// HashPassword hashes a new password with the configured cost.
func (s *Service) HashPassword(password string) (string, error) {
	return HashPassword(password, s.bcryptCost)
}

// UserSummary is the login response projection. It never carries the
// password or its hash.
type UserSummary struct {
	UserID      int      `json:"user_id"`
	TenantID    string   `json:"tenant_id"`
	TenantName  string   `json:"tenant_name"`
	Username    string   `json:"username"`
	FirstName   string   `json:"first_name"`
	LastName    string   `json:"last_name"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// LoginResult is a successful authentication outcome.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      UserSummary
}

// SplitUsername splits a composite username on the first @. Only a missing @
// is malformed; an empty tenant suffix surfaces later as an unknown tenant.
func SplitUsername(username string) (local, tenantID string, err error) {
	local, tenantID, ok := strings.Cut(username, "@")
	if !ok {
		return "", "", ErrMalformedUsername
	}
	return local, tenantID, nil
}

// Login runs the authentication state machine:
// parse -> resolve tenant -> resolve user -> active check -> verify -> mint.
//
// ErrInvalidCredentials is returned identically for an unknown user and a
// wrong password so the caller cannot distinguish the two.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	_, tenantID, err := SplitUsername(username)
	if err != nil {
		return nil, err
	}

	tenant, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, store.ErrTenantNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, err
	}
	if !tenant.IsActive {
		return nil, ErrTenantInactive
	}

	users, err := s.store.GetTenantUsers(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	// Linear scan over the tenant's user collection; per-tenant collections
	// are small and the store maintains no index.
	var user *store.User
	for i := range users {
		if users[i].Credentials.Username == username {
			user = &users[i]
			break
		}
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if !user.Credentials.IsActive {
		return nil, ErrUserInactive
	}
	if !VerifyPassword(password, user.Credentials.Password) {
		return nil, ErrInvalidCredentials
	}

	perms := user.Credentials.Permissions
	if perms == nil {
		perms = []string{}
	}
	token, expiresAt, err := s.codec.Issue(Claims{
		UserID:      user.UserID,
		TenantID:    tenantID,
		Username:    username,
		Role:        user.Credentials.Role,
		Permissions: perms,
	})
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User: UserSummary{
			UserID:      user.UserID,
			TenantID:    tenantID,
			TenantName:  tenant.TenantName,
			Username:    username,
			FirstName:   user.PersonalInfo.FirstName,
			LastName:    user.PersonalInfo.LastName,
			Role:        user.Credentials.Role,
			Permissions: perms,
		},
	}, nil
}
