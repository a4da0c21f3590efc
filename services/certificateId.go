package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// IDGenerator hands out certificate ids of the form {prefix}{year}{counter:03d}.
//
// The counter is a single persistent sequence shared by all years: it is not reset
// on January 1st, so the first id of a new year continues from the last one issued.
type IDGenerator struct {
	mu    sync.Mutex
	clock func() time.Time
}

func NewIDGenerator(clock func() time.Time) *IDGenerator {
	if clock == nil {
		clock = time.Now
	}
	return &IDGenerator{clock: clock}
}

// Next allocates the next id. Call it inside the transaction that inserts the
// request so the counter row lock is held until commit.
func (g *IDGenerator) Next(ctx context.Context, settings SettingsRepository) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	counter, err := settings.Increment(ctx, SettingCertCounter, 1)
	if err != nil {
		return "", fmt.Errorf("allocate certificate counter: %w", err)
	}

	prefix := strings.TrimSpace(NewSettings(settings, logrus.StandardLogger()).Lookup(ctx, SettingCertPrefix))
	if prefix == "" {
		prefix = DefaultSettings[SettingCertPrefix]
	}

	return FormatCertificateID(prefix, g.clock().Year(), counter), nil
}

func FormatCertificateID(prefix string, year int, counter int64) string {
	return fmt.Sprintf("%s%d%03d", prefix, year, counter)
}
