// Package modules tracks which optional feature areas each organisation has
// enabled. It is a separate, coarser gate than resource/action authorization.
package modules

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/text/cases"

	"github.com/ledgerdesk/ledgerdesk/internal/authz"
)

// ErrUnknownModule indicates a module identifier outside the known set.
var ErrUnknownModule = errors.New("modules: unknown module")

// Module identifies an optional feature area.
type Module string

// Optional modules.
const (
	ModuleUnknown      Module = ""
	ModuleAppointments Module = "appointments"
	ModuleInvoicing    Module = "invoicing"
	ModuleBanking      Module = "banking"
	ModuleJobcards     Module = "jobcards"
	ModuleInventory    Module = "inventory"
	ModulePurchasing   Module = "purchasing"
	ModuleExpenses     Module = "expenses"
	ModuleReports      Module = "reports"
)

var known = []Module{
	ModuleAppointments,
	ModuleInvoicing,
	ModuleBanking,
	ModuleJobcards,
	ModuleInventory,
	ModulePurchasing,
	ModuleExpenses,
	ModuleReports,
}

// All returns every optional module.
func All() []Module {
	out := make([]Module, len(known))
	copy(out, known)
	return out
}

// Parse resolves a module identifier case-insensitively; unknown input
// yields ModuleUnknown.
func Parse(raw string) Module {
	key := cases.Fold().String(strings.TrimSpace(raw))
	for _, m := range known {
		if string(m) == key {
			return m
		}
	}
	return ModuleUnknown
}

// Valid reports whether m is a known module.
func (m Module) Valid() bool {
	for _, k := range known {
		if k == m {
			return true
		}
	}
	return false
}

// owners maps each resource to the module that ships it. Resources missing
// from the map (clients, settings) are always available.
var owners = map[authz.Resource]Module{
	authz.ResourceAppointments:  ModuleAppointments,
	authz.ResourceInvoices:      ModuleInvoicing,
	authz.ResourcePayments:      ModuleInvoicing,
	authz.ResourceBanking:       ModuleBanking,
	authz.ResourceJobcards:      ModuleJobcards,
	authz.ResourceProducts:      ModuleInventory,
	authz.ResourceAdjustments:   ModuleInventory,
	authz.ResourceTransfers:     ModuleInventory,
	authz.ResourceSuppliers:     ModulePurchasing,
	authz.ResourcePurchases:     ModulePurchasing,
	authz.ResourceGoodsReceived: ModulePurchasing,
	authz.ResourceExpenses:      ModuleExpenses,
	authz.ResourceReports:       ModuleReports,
}

// ModuleFor returns the module owning resource, if any.
func ModuleFor(resource authz.Resource) (Module, bool) {
	m, ok := owners[resource]
	return m, ok
}

// Registry answers whether an organisation has a module enabled. Absence of
// a record means disabled; lookup failures are errors, never true.
type Registry interface {
	IsModuleEnabled(ctx context.Context, orgID int64, module Module) (bool, error)
}

// Status is the enablement of one module for one organisation.
type Status struct {
	Module  Module `json:"module"`
	Enabled bool   `json:"enabled"`
}

// Store is the full registry backend including writes.
type Store interface {
	Registry
	List(ctx context.Context, orgID int64) (map[Module]bool, error)
	Set(ctx context.Context, orgID int64, module Module, enabled bool) error
}
