package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	SettingCertPrefix         = "cert_prefix"
	SettingCertCounter        = "cert_counter"
	SettingMinDaysAfterBuying = "min_days_after_purchase"
	SettingCompanyName        = "company_name"
	SettingSupportEmail       = "support_email"
	SettingFromEmail          = "from_email"
	SettingFromName           = "from_name"
	SettingAdminEmail         = "admin_email"
	SettingSiteURL            = "site_url"
	SettingLogoURL            = "logo_url"
	SettingSealURL            = "seal_url"
	SettingSignatureURL       = "signature_url"
	SettingTurnstileSiteKey   = "turnstile_site_key"
	SettingTurnstileSecretKey = "turnstile_secret_key"
)

// DefaultSettings are seeded on migrate and used when a key is missing.
var DefaultSettings = map[string]string{
	SettingCertPrefix:         "OFSHDG",
	SettingCertCounter:        "1",
	SettingMinDaysAfterBuying: "3",
	SettingCompanyName:        "Ofastshop Digitals",
	SettingSupportEmail:       "support@ofastshop.com",
	SettingFromEmail:          "support@ofastshop.com",
	SettingFromName:           "Ofastshop Digitals",
	SettingAdminEmail:         "admin@ofastshop.com",
	SettingSiteURL:            "http://localhost:3000",
	SettingLogoURL:            "",
	SettingSealURL:            "",
	SettingSignatureURL:       "",
	SettingTurnstileSiteKey:   "",
	SettingTurnstileSecretKey: "",
}

// EditableSettings may be changed through the admin API. The counter is not one of them.
var EditableSettings = []string{
	SettingCertPrefix, SettingMinDaysAfterBuying, SettingCompanyName, SettingSupportEmail,
	SettingFromEmail, SettingFromName, SettingAdminEmail, SettingSiteURL, SettingLogoURL,
	SettingSealURL, SettingSignatureURL, SettingTurnstileSiteKey, SettingTurnstileSecretKey,
}

// Settings reads configuration values with defaults.
type Settings struct {
	repo SettingsRepository
	log  logrus.FieldLogger
}

func NewSettings(repo SettingsRepository, log logrus.FieldLogger) *Settings {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Settings{repo: repo, log: log}
}

// Get returns the stored value for key, or def when the key is missing or unreadable.
func (s *Settings) Get(ctx context.Context, key, def string) string {
	value, ok, err := s.repo.Get(ctx, key)
	if err != nil {
		s.log.WithError(err).WithField("key", key).Warn("settings read failed, using default")
		return def
	}
	if !ok {
		return def
	}
	return value
}

// Lookup is Get with the built-in default for key.
func (s *Settings) Lookup(ctx context.Context, key string) string {
	return s.Get(ctx, key, DefaultSettings[key])
}

func (s *Settings) Int(ctx context.Context, key string, def int) int {
	raw := strings.TrimSpace(s.Get(ctx, key, ""))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		s.log.WithField("key", key).WithField("value", raw).Warn("settings value is not an integer, using default")
		return def
	}
	return n
}

func (s *Settings) Set(ctx context.Context, key, value string) error {
	return s.repo.Set(ctx, key, value)
}

// All returns every stored setting merged over the defaults.
func (s *Settings) All(ctx context.Context) (map[string]string, error) {
	stored, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(DefaultSettings)+len(stored))
	for k, v := range DefaultSettings {
		out[k] = v
	}
	for k, v := range stored {
		out[k] = v
	}
	return out, nil
}

// Update writes the editable keys present in values and rejects unknown keys.
// Either every key is stored or none is.
func (s *Settings) Update(ctx context.Context, values map[string]string) error {
	allowed := make(map[string]bool, len(EditableSettings))
	for _, k := range EditableSettings {
		allowed[k] = true
	}

	verr := &ValidationError{Fields: map[string]string{}}
	for k, v := range values {
		if !allowed[k] {
			verr.Fields[k] = "Unknown or read-only setting!"
			continue
		}
		if k == SettingMinDaysAfterBuying {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil || n < 0 || n > 365 {
				verr.Fields[k] = "Must be a number between 0 and 365!"
			}
		}
	}
	if len(verr.Fields) > 0 {
		return verr
	}

	trimmed := make(map[string]string, len(values))
	for k, v := range values {
		trimmed[k] = strings.TrimSpace(v)
	}
	return s.repo.SetMany(ctx, trimmed)
}

// Seed stores every default that is not set yet.
func (s *Settings) Seed(ctx context.Context) error {
	for k, v := range DefaultSettings {
		_, ok, err := s.repo.Get(ctx, k)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if err := s.repo.Set(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}
