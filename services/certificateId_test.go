package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCertificateID(t *testing.T) {
	assert.Equal(t, "OFSHDG2024007", FormatCertificateID("OFSHDG", 2024, 7))
	assert.Equal(t, "OFSHDG2024999", FormatCertificateID("OFSHDG", 2024, 999))
	assert.Equal(t, "OFSHDG20241000", FormatCertificateID("OFSHDG", 2024, 1000))
}

func TestIDGeneratorCounterSpansYears(t *testing.T) {
	clock := time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC)
	gen := NewIDGenerator(func() time.Time { return clock })
	store := newMemSettings(map[string]string{SettingCertPrefix: "ACME", SettingCertCounter: "41"})
	ctx := context.Background()

	id, err := gen.Next(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "ACME2024041", id)

	clock = time.Date(2025, 1, 1, 0, 1, 0, 0, time.UTC)
	id, err = gen.Next(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, "ACME2025042", id)
}

func TestIDGeneratorDefaults(t *testing.T) {
	gen := NewIDGenerator(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) })
	id, err := gen.Next(context.Background(), newMemSettings(nil))
	require.NoError(t, err)
	assert.Equal(t, "OFSHDG2024001", id)
}

func TestIDGeneratorUniqueUnderConcurrency(t *testing.T) {
	gen := NewIDGenerator(nil)
	store := newMemSettings(nil)

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		ids = map[string]bool{}
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := gen.Next(context.Background(), store)
			assert.NoError(t, err)
			mu.Lock()
			ids[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, ids, 50)
}
