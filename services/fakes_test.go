package services

import (
	"context"
	"strconv"
	"sync"

	"lmscert/models"
)

type memSettings struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemSettings(values map[string]string) *memSettings {
	m := &memSettings{values: map[string]string{}}
	for k, v := range values {
		m.values[k] = v
	}
	return m
}

func (m *memSettings) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memSettings) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *memSettings) SetMany(ctx context.Context, values map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.values[k] = v
	}
	return nil
}

func (m *memSettings) All(ctx context.Context) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]string, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out, nil
}

func (m *memSettings) Increment(ctx context.Context, key string, initial int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		m.values[key] = strconv.FormatInt(initial+1, 10)
		return initial, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, err
	}
	m.values[key] = strconv.FormatInt(n+1, 10)
	return n, nil
}

type memDirectory struct {
	users    map[uint]*models.User
	products map[uint]*models.Product
}

func (d *memDirectory) FindUser(ctx context.Context, id uint) (*models.User, error) {
	if u, ok := d.users[id]; ok {
		return u, nil
	}
	return nil, ErrNotFound
}

func (d *memDirectory) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range d.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, ErrNotFound
}

func (d *memDirectory) FindProduct(ctx context.Context, id uint) (*models.Product, error) {
	if p, ok := d.products[id]; ok {
		return p, nil
	}
	return nil, ErrNotFound
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *recordingMailer) Send(ctx context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}
