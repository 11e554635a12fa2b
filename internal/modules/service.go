package modules

import (
	"context"
	"log/slog"
)

// Service reads and toggles module enablement per organisation.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService builds Service instance.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger}
}

// IsModuleEnabled implements Registry. Unknown modules are disabled.
func (s *Service) IsModuleEnabled(ctx context.Context, orgID int64, module Module) (bool, error) {
	if !module.Valid() {
		return false, nil
	}
	return s.store.IsModuleEnabled(ctx, orgID, module)
}

// Statuses lists every known module for orgID; modules without a record are disabled.
func (s *Service) Statuses(ctx context.Context, orgID int64) ([]Status, error) {
	stored, err := s.store.List(ctx, orgID)
	if err != nil {
		return nil, err
	}
	out := make([]Status, 0, len(known))
	for _, m := range known {
		out = append(out, Status{Module: m, Enabled: stored[m]})
	}
	return out, nil
}

// SetEnabled toggles module for orgID.
func (s *Service) SetEnabled(ctx context.Context, orgID int64, raw string, enabled bool) (Status, error) {
	module := Parse(raw)
	if !module.Valid() {
		return Status{}, ErrUnknownModule
	}
	if err := s.store.Set(ctx, orgID, module, enabled); err != nil {
		return Status{}, err
	}
	s.logger.Info("module toggled",
		slog.Int64("org_id", orgID),
		slog.String("module", string(module)),
		slog.Bool("enabled", enabled),
	)
	return Status{Module: module, Enabled: enabled}, nil
}
