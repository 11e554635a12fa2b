package grants

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/ledgerdesk/ledgerdesk/internal/authz"
)

// GrantInput is the raw administrative request to grant or revoke a triple.
type GrantInput struct {
	Role     string `json:"role" validate:"required,max=32"`
	Resource string `json:"resource" validate:"required,max=64"`
	Action   string `json:"action" validate:"required,max=16"`
}

// Invalidator drops cached grant data after a write.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// Warmer schedules an asynchronous cache refill.
type Warmer interface {
	EnqueueGrantCacheWarm(ctx context.Context) error
}

// Service administers the grant matrix. It is not on the decision path.
type Service struct {
	repo        Repository
	invalidator Invalidator
	warmer      Warmer
	validate    *validator.Validate
	logger      *slog.Logger
}

// NewService builds a Service. invalidator and warmer may be nil.
func NewService(repo Repository, invalidator Invalidator, warmer Warmer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, invalidator: invalidator, warmer: warmer, validate: validator.New(), logger: logger}
}

// List returns every stored grant.
func (s *Service) List(ctx context.Context) ([]authz.Grant, error) {
	return s.repo.List(ctx)
}

// Matrix returns the effective grant set of every non-owner role. Stored
// rows on overridden resources are dropped and the override allow-lists
// are folded in with every action, so the result matches what the engine
// decides. OWNER is omitted because it holds everything implicitly.
func (s *Service) Matrix(ctx context.Context) (map[authz.Role][]authz.Grant, error) {
	stored, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	matrix := make(map[authz.Role][]authz.Grant)
	for _, role := range authz.Roles() {
		if role != authz.RoleOwner {
			matrix[role] = []authz.Grant{}
		}
	}
	for _, g := range stored {
		if _, ok := matrix[g.Role]; !ok || !g.Valid() || authz.Overridden(g.Resource) {
			continue
		}
		matrix[g.Role] = append(matrix[g.Role], g)
	}
	for _, res := range authz.Resources() {
		roles, ok := authz.Override(res)
		if !ok {
			continue
		}
		for _, role := range roles {
			if _, known := matrix[role]; !known {
				continue
			}
			for _, act := range authz.Actions() {
				matrix[role] = append(matrix[role], authz.Grant{Role: role, Resource: res, Action: act})
			}
		}
	}
	for _, set := range matrix {
		sortGrants(set)
	}
	return matrix, nil
}

// Grant stores a new triple after canonicalising the input.
func (s *Service) Grant(ctx context.Context, input GrantInput) (authz.Grant, error) {
	grant, err := s.parse(input)
	if err != nil {
		return authz.Grant{}, err
	}
	if err := s.repo.Insert(ctx, grant); err != nil {
		return authz.Grant{}, err
	}
	s.changed(ctx, "granted", grant)
	return grant, nil
}

// Revoke removes a triple.
func (s *Service) Revoke(ctx context.Context, input GrantInput) (authz.Grant, error) {
	grant, err := s.parse(input)
	if err != nil {
		return authz.Grant{}, err
	}
	if err := s.repo.Delete(ctx, grant); err != nil {
		return authz.Grant{}, err
	}
	s.changed(ctx, "revoked", grant)
	return grant, nil
}

// Permission is one (resource, action) pair of a role's grant set.
type Permission struct {
	Resource string `json:"resource" validate:"required,max=64"`
	Action   string `json:"action" validate:"required,max=16"`
}

// ReplaceRole sets the complete grant set of a role. Duplicate pairs are
// collapsed; any invalid pair rejects the whole request.
func (s *Service) ReplaceRole(ctx context.Context, rawRole string, permissions []Permission) ([]authz.Grant, error) {
	seen := make(map[authz.Grant]struct{}, len(permissions))
	set := make([]authz.Grant, 0, len(permissions))
	for _, p := range permissions {
		grant, err := s.parse(GrantInput{Role: rawRole, Resource: p.Resource, Action: p.Action})
		if err != nil {
			return nil, err
		}
		if _, dup := seen[grant]; dup {
			continue
		}
		seen[grant] = struct{}{}
		set = append(set, grant)
	}
	role := authz.ParseRole(rawRole)
	if len(permissions) == 0 {
		// Nothing was parsed, so check the role on its own.
		if !role.Valid() {
			return nil, fmt.Errorf("%w: role %q", ErrInvalidGrant, rawRole)
		}
		if role == authz.RoleOwner {
			return nil, ErrOwnerImplicit
		}
	}
	if err := s.repo.ReplaceRole(ctx, role, set); err != nil {
		return nil, err
	}
	sortGrants(set)
	s.logger.Info("grants replaced", slog.String("role", role.String()), slog.Int("count", len(set)))
	s.invalidate(ctx)
	return set, nil
}

func (s *Service) parse(input GrantInput) (authz.Grant, error) {
	if err := s.validate.Struct(input); err != nil {
		return authz.Grant{}, fmt.Errorf("%w: %v", ErrInvalidGrant, err)
	}
	grant := authz.Grant{
		Role:     authz.ParseRole(input.Role),
		Resource: authz.ParseResource(input.Resource),
		Action:   authz.ParseAction(input.Action),
	}
	if !grant.Valid() {
		return authz.Grant{}, fmt.Errorf("%w: %s/%s/%s", ErrInvalidGrant, input.Role, input.Resource, input.Action)
	}
	if grant.Role == authz.RoleOwner {
		return authz.Grant{}, ErrOwnerImplicit
	}
	if authz.Overridden(grant.Resource) {
		return authz.Grant{}, fmt.Errorf("%w: %s", ErrOverridden, grant.Resource)
	}
	return grant, nil
}

func (s *Service) changed(ctx context.Context, verb string, grant authz.Grant) {
	s.logger.Info("grant "+verb,
		slog.String("role", grant.Role.String()),
		slog.String("resource", string(grant.Resource)),
		slog.String("action", string(grant.Action)),
	)
	s.invalidate(ctx)
}

func (s *Service) invalidate(ctx context.Context) {
	if s.invalidator != nil {
		if err := s.invalidator.Bump(ctx); err != nil {
			s.logger.Error("grant cache bump", slog.Any("error", err))
		}
	}
	if s.warmer != nil {
		if err := s.warmer.EnqueueGrantCacheWarm(ctx); err != nil {
			s.logger.Warn("enqueue grant cache warm", slog.Any("error", err))
		}
	}
}
