package modules

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type moduleRow struct {
	module  string
	enabled bool
}

type fakeRows struct {
	data    []moduleRow
	pos     int
	scanErr error
	err     error
}

func (f *fakeRows) Next() bool {
	if f.pos >= len(f.data) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	if f.scanErr != nil {
		return f.scanErr
	}
	row := f.data[f.pos-1]
	*dest[0].(*string) = row.module
	*dest[1].(*bool) = row.enabled
	return nil
}

func (f *fakeRows) Err() error { return f.err }

func TestScanModules(t *testing.T) {
	got, err := scanModules(&fakeRows{data: []moduleRow{
		{"banking", true},
		{"INVENTORY", false},
		{"payroll", true},
	}})
	require.NoError(t, err)
	assert.Equal(t, map[Module]bool{ModuleBanking: true, ModuleInventory: false}, got)

	_, err = scanModules(&fakeRows{data: []moduleRow{{"banking", true}}, scanErr: errors.New("bad column")})
	assert.Error(t, err)

	_, err = scanModules(&fakeRows{err: errors.New("conn reset")})
	assert.Error(t, err)
}

func TestPostgresRegistryRejectsUnknownModuleWithoutQuery(t *testing.T) {
	// A nil pool would panic if either call reached the database.
	r := NewPostgresRegistry(nil)
	enabled, err := r.IsModuleEnabled(context.Background(), 1, ModuleUnknown)
	require.NoError(t, err)
	assert.False(t, enabled)

	assert.ErrorIs(t, r.Set(context.Background(), 1, Parse("payroll"), true), ErrUnknownModule)
}
