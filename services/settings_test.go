package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsDefaultsAndOverrides(t *testing.T) {
	store := newMemSettings(map[string]string{SettingCompanyName: "Acme"})
	s := NewSettings(store, nil)
	ctx := context.Background()

	assert.Equal(t, "Acme", s.Lookup(ctx, SettingCompanyName))
	assert.Equal(t, "OFSHDG", s.Lookup(ctx, SettingCertPrefix))
	assert.Equal(t, "fallback", s.Get(ctx, "missing", "fallback"))
	assert.Equal(t, 3, s.Int(ctx, SettingMinDaysAfterBuying, 3))

	require.NoError(t, s.Set(ctx, SettingMinDaysAfterBuying, "oops"))
	assert.Equal(t, 3, s.Int(ctx, SettingMinDaysAfterBuying, 3))

	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Acme", all[SettingCompanyName])
	assert.Equal(t, "1", all[SettingCertCounter])
}

func TestSettingsUpdateValidates(t *testing.T) {
	store := newMemSettings(nil)
	s := NewSettings(store, nil)
	ctx := context.Background()

	err := s.Update(ctx, map[string]string{
		SettingCertCounter:        "1",
		SettingMinDaysAfterBuying: "400",
		"nope":                    "x",
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 3)

	// Nothing is written when any key fails.
	all, _ := store.All(ctx)
	assert.Empty(t, all)

	require.NoError(t, s.Update(ctx, map[string]string{
		SettingCertPrefix:         " ACME ",
		SettingMinDaysAfterBuying: "0",
	}))
	assert.Equal(t, "ACME", s.Lookup(ctx, SettingCertPrefix))
	assert.Equal(t, 0, s.Int(ctx, SettingMinDaysAfterBuying, 3))
}

func TestSettingsSeedKeepsExisting(t *testing.T) {
	store := newMemSettings(map[string]string{SettingCertCounter: "57"})
	s := NewSettings(store, nil)

	require.NoError(t, s.Seed(context.Background()))
	all, _ := store.All(context.Background())
	assert.Equal(t, "57", all[SettingCertCounter])
	assert.Len(t, all, len(DefaultSettings))
}
