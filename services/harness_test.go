package services_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"lmscert/config"
	"lmscert/database"
	"lmscert/models"
	"lmscert/repository"
	"lmscert/services"
)

type fakeMailer struct {
	mu   sync.Mutex
	sent []services.Message
	fail func(services.Message) bool
}

func (m *fakeMailer) Send(ctx context.Context, msg services.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil && m.fail(msg) {
		return errors.New("smtp: connection refused")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *fakeMailer) setFail(fail func(services.Message) bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fail
}

// withSubject returns the delivered messages whose subject starts with prefix.
func (m *fakeMailer) withSubject(prefix string) []services.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []services.Message
	for _, msg := range m.sent {
		if strings.HasPrefix(msg.Subject, prefix) {
			out = append(out, msg)
		}
	}
	return out
}

func isIssuance(msg services.Message) bool {
	return strings.HasPrefix(msg.Subject, "Your Certificate is Ready!")
}

type fakeBlobs struct {
	mu    sync.Mutex
	files map[string][]byte
	fail  bool
}

func (b *fakeBlobs) Store(ctx context.Context, data []byte, path string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail {
		return "", errors.New("disk full")
	}
	url := "https://files.test/" + path
	b.files[url] = append([]byte(nil), data...)
	return url, nil
}

func (b *fakeBlobs) Load(ctx context.Context, url string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.files[url]
	if !ok {
		return nil, errors.New("no such file")
	}
	return data, nil
}

// flakyRenderer wraps the real renderer so tests can break it and count calls.
type flakyRenderer struct {
	mu    sync.Mutex
	inner services.Renderer
	calls int
	fail  bool
	block bool
}

func (r *flakyRenderer) Render(ctx context.Context, req *models.CertificateRequest, completion time.Time) (*services.Artifact, error) {
	r.mu.Lock()
	r.calls++
	fail, block := r.fail, r.block
	r.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if fail {
		return nil, errors.New("template engine exploded")
	}
	return r.inner.Render(ctx, req, completion)
}

func (r *flakyRenderer) set(fail, block bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail, r.block = fail, block
}

type fakeCaptcha struct {
	valid string
}

func (c *fakeCaptcha) Verify(ctx context.Context, secret, token, remoteIP string) (bool, error) {
	return token == c.valid, nil
}

type harness struct {
	t   *testing.T
	ctx context.Context
	now time.Time

	db       *gorm.DB
	repo     *repository.Repository
	settings *services.Settings
	mailer   *fakeMailer
	blobs    *fakeBlobs
	renderer *flakyRenderer

	submissions  *services.SubmissionService
	issuance     *services.IssuanceService
	verification *services.VerificationService

	admin   models.User
	vendor  models.User
	student models.User
	course  models.Product
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	db, err := database.Open(&config.Config{DBDriver: "sqlite", DBDSN: filepath.Join(t.TempDir(), "services.db")})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	h := &harness{
		t:        t,
		ctx:      context.Background(),
		now:      time.Date(2024, 5, 11, 10, 0, 0, 0, time.Local),
		db:       db,
		repo:     repository.New(db),
		mailer:   &fakeMailer{},
		blobs:    &fakeBlobs{files: map[string][]byte{}},
		renderer: &flakyRenderer{},
	}
	clock := func() time.Time { return h.now }

	log := logrus.New()
	log.SetOutput(io.Discard)

	h.settings = services.NewSettings(h.repo.Settings(), log)
	require.NoError(t, h.settings.Seed(h.ctx))

	platform := repository.NewPlatform(db)
	notifier := services.NewNotifier(h.mailer, h.settings, log, clock)
	metrics := services.NewMetrics()
	captcha := &fakeCaptcha{valid: "human"}
	h.renderer.inner = services.NewHTMLRenderer(h.settings, platform)

	h.submissions = services.NewSubmissionService(services.SubmissionDeps{
		Repo:        h.repo,
		Eligibility: services.NewEligibilityChecker(platform, clock),
		IDs:         services.NewIDGenerator(clock),
		Directory:   platform,
		Notifier:    notifier,
		Captcha:     captcha,
		Metrics:     metrics,
		Log:         log,
		Clock:       clock,
	})
	h.issuance = services.NewIssuanceService(services.IssuanceDeps{
		Repo:              h.repo,
		Renderer:          h.renderer,
		Blobs:             h.blobs,
		Notifier:          notifier,
		Metrics:           metrics,
		Log:               log,
		Clock:             clock,
		GenerationTimeout: 200 * time.Millisecond,
		EmailTimeout:      time.Second,
	})
	h.verification = services.NewVerificationService(h.repo, captcha, metrics, log, clock)

	h.admin = h.user("admin", "admin@example.com", models.RoleAdmin)
	h.vendor = h.user("ravi", "ravi@example.com", models.RoleVendor)
	h.vendor.DisplayName = "Ravi Kumar"
	require.NoError(t, db.Save(&h.vendor).Error)
	h.student = h.user("jane", "jane@example.com", models.RoleUser)

	h.course = models.Product{Name: "Go Fundamentals", AuthorID: h.vendor.ID}
	require.NoError(t, db.Create(&h.course).Error)
	h.purchase(h.student.ID, h.course.ID, h.now.AddDate(0, 0, -10))

	return h
}

func (h *harness) user(login, email, role string) models.User {
	u := models.User{Login: login, DisplayName: login, Email: email, Role: role}
	require.NoError(h.t, h.db.Create(&u).Error)
	return u
}

func (h *harness) product(name string) models.Product {
	p := models.Product{Name: name, AuthorID: h.vendor.ID}
	require.NoError(h.t, h.db.Create(&p).Error)
	return p
}

func (h *harness) purchase(userID, productID uint, at time.Time) {
	order := models.Order{UserID: userID, Status: models.OrderCompleted, Items: []models.OrderItem{{ProductID: productID}}}
	order.CreatedAt = at
	require.NoError(h.t, h.db.Create(&order).Error)
}

func (h *harness) studentSubmission() services.StudentSubmission {
	return services.StudentSubmission{
		UserID:    h.student.ID,
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     h.student.Email,
		Phone:     "+1 555 0100",
		ProductID: h.course.ID,
	}
}

func (h *harness) submit() *models.CertificateRequest {
	h.t.Helper()
	req, err := h.submissions.SubmitStudent(h.ctx, h.studentSubmission())
	require.NoError(h.t, err)
	return req
}

func (h *harness) reload(id uint) *models.CertificateRequest {
	h.t.Helper()
	req, err := h.repo.Requests().FindByID(h.ctx, id)
	require.NoError(h.t, err)
	return req
}

func (h *harness) countRequests() int64 {
	var n int64
	require.NoError(h.t, h.db.Model(&models.CertificateRequest{}).Count(&n).Error)
	return n
}

func (h *harness) countLogs() int64 {
	var n int64
	require.NoError(h.t, h.db.Model(&models.VerificationLog{}).Count(&n).Error)
	return n
}
