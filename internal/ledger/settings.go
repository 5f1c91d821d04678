package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/mmynk/splitledger/internal/storage"
)

// Setting keys stored in the system_settings table.
const (
	SettingMaintenanceMode    = "maintenance_mode"
	SettingMaxGroupsPerUser   = "max_groups_per_user"
	SettingMaxExpensesPerUser = "max_expenses_per_user"
)

// SettingKeys lists every key StoreSettings understands.
var SettingKeys = []string{SettingMaintenanceMode, SettingMaxGroupsPerUser, SettingMaxExpensesPerUser}

// Settings are the feature flags one ledger call runs under.
// Zero limits mean unlimited.
type Settings struct {
	MaintenanceMode    bool
	MaxGroupsPerUser   int
	MaxExpensesPerUser int
}

// SettingsProvider supplies Settings. The engine reads it once per call.
type SettingsProvider interface {
	Settings(ctx context.Context) (Settings, error)
}

// StaticSettings always returns the same settings.
type StaticSettings Settings

func (s StaticSettings) Settings(context.Context) (Settings, error) {
	return Settings(s), nil
}

// StoreSettings overlays values from the settings table on static defaults.
type StoreSettings struct {
	reader   storage.Reader
	defaults Settings
}

func NewStoreSettings(reader storage.Reader, defaults Settings) *StoreSettings {
	return &StoreSettings{reader: reader, defaults: defaults}
}

func (s *StoreSettings) Settings(ctx context.Context) (Settings, error) {
	out := s.defaults

	if v, ok, err := s.lookup(ctx, SettingMaintenanceMode); err != nil {
		return Settings{}, err
	} else if ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Settings{}, fmt.Errorf("invalid %s setting %q: %w", SettingMaintenanceMode, v, err)
		}
		out.MaintenanceMode = b
	}

	for key, dst := range map[string]*int{
		SettingMaxGroupsPerUser:   &out.MaxGroupsPerUser,
		SettingMaxExpensesPerUser: &out.MaxExpensesPerUser,
	} {
		v, ok, err := s.lookup(ctx, key)
		if err != nil {
			return Settings{}, err
		}
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return Settings{}, fmt.Errorf("invalid %s setting %q", key, v)
		}
		*dst = n
	}

	return out, nil
}

func (s *StoreSettings) lookup(ctx context.Context, key string) (string, bool, error) {
	v, err := s.reader.GetSetting(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// ValidateSetting checks a value before it is stored.
func ValidateSetting(key, value string) error {
	switch key {
	case SettingMaintenanceMode:
		if _, err := strconv.ParseBool(value); err != nil {
			return invalidArgument("validate setting", "%s must be a boolean, got %q", key, value)
		}
	case SettingMaxGroupsPerUser, SettingMaxExpensesPerUser:
		if n, err := strconv.Atoi(value); err != nil || n < 0 {
			return invalidArgument("validate setting", "%s must be a non-negative integer, got %q", key, value)
		}
	default:
		return invalidArgument("validate setting", "unknown setting %q", key)
	}
	return nil
}
