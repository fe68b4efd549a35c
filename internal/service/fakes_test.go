package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kursadbilgin/housing-engine/internal/composer"
	"github.com/kursadbilgin/housing-engine/internal/domain"
	"github.com/kursadbilgin/housing-engine/internal/provider"
	"github.com/kursadbilgin/housing-engine/internal/queue"
	"github.com/kursadbilgin/housing-engine/internal/ratelimit"
	"github.com/kursadbilgin/housing-engine/internal/repository"
)

// memoryApplicationRepo keeps applications by value so a failed mutation
// never leaks into the stored copy.
type memoryApplicationRepo struct {
	mu     sync.Mutex
	apps   map[int64]domain.ApplicationRecord
	nextID int64
	saves  int

	listActiveErr error
}

var _ repository.ApplicationRepository = (*memoryApplicationRepo)(nil)

func newMemoryApplicationRepo(apps ...domain.ApplicationRecord) *memoryApplicationRepo {
	r := &memoryApplicationRepo{apps: make(map[int64]domain.ApplicationRecord), nextID: 1000}
	for _, a := range apps {
		r.apps[a.ID] = a
	}
	return r
}

func (r *memoryApplicationRepo) Create(ctx context.Context, app *domain.ApplicationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	app.ID = r.nextID
	r.apps[app.ID] = *app
	return nil
}

func (r *memoryApplicationRepo) GetByID(ctx context.Context, id int64) (*domain.ApplicationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &app, nil
}

func (r *memoryApplicationRepo) Update(ctx context.Context, id int64, mutate repository.MutateFunc) (*domain.ApplicationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if err := mutate(&app); err != nil {
		return nil, err
	}
	r.apps[id] = app
	r.saves++
	return &app, nil
}

func (r *memoryApplicationRepo) ListActiveByListing(ctx context.Context, listingID int64) ([]domain.ApplicationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listActiveErr != nil {
		return nil, r.listActiveErr
	}
	out := make([]domain.ApplicationRecord, 0, len(r.apps))
	for _, a := range r.apps {
		if a.ListingID == listingID && a.IsActive() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memoryApplicationRepo) ListOverdueDuplicateChecks(ctx context.Context, now time.Time, limit int) ([]domain.ApplicationRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.ApplicationRecord, 0)
	for _, a := range r.apps {
		if a.IsPotentialDuplicate() && !a.DuplicateCheckResponseDueDate.After(now) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeApplicationRepo struct {
	createFn                     func(ctx context.Context, app *domain.ApplicationRecord) error
	getByIDFn                    func(ctx context.Context, id int64) (*domain.ApplicationRecord, error)
	updateFn                     func(ctx context.Context, id int64, mutate repository.MutateFunc) (*domain.ApplicationRecord, error)
	listActiveByListingFn        func(ctx context.Context, listingID int64) ([]domain.ApplicationRecord, error)
	listOverdueDuplicateChecksFn func(ctx context.Context, now time.Time, limit int) ([]domain.ApplicationRecord, error)
}

func (f *fakeApplicationRepo) Create(ctx context.Context, app *domain.ApplicationRecord) error {
	if f.createFn != nil {
		return f.createFn(ctx, app)
	}
	return nil
}

func (f *fakeApplicationRepo) GetByID(ctx context.Context, id int64) (*domain.ApplicationRecord, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeApplicationRepo) Update(ctx context.Context, id int64, mutate repository.MutateFunc) (*domain.ApplicationRecord, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, mutate)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeApplicationRepo) ListActiveByListing(ctx context.Context, listingID int64) ([]domain.ApplicationRecord, error) {
	if f.listActiveByListingFn != nil {
		return f.listActiveByListingFn(ctx, listingID)
	}
	return nil, nil
}

func (f *fakeApplicationRepo) ListOverdueDuplicateChecks(ctx context.Context, now time.Time, limit int) ([]domain.ApplicationRecord, error) {
	if f.listOverdueDuplicateChecksFn != nil {
		return f.listOverdueDuplicateChecksFn(ctx, now, limit)
	}
	return nil, nil
}

type fakeListingRepo struct {
	getByIDFn func(ctx context.Context, id int64) (*domain.Listing, error)
}

func (f *fakeListingRepo) GetByID(ctx context.Context, id int64) (*domain.Listing, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return &domain.Listing{ID: id, Name: "Listing"}, nil
}

type fakeUserNotificationRepo struct {
	mu               sync.Mutex
	created          []domain.UserNotification
	createFn         func(ctx context.Context, n *domain.UserNotification) error
	listByUsernameFn func(ctx context.Context, username string, limit int) ([]domain.UserNotification, error)
}

func (f *fakeUserNotificationRepo) Create(ctx context.Context, n *domain.UserNotification) error {
	if f.createFn != nil {
		if err := f.createFn(ctx, n); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, *n)
	return nil
}

func (f *fakeUserNotificationRepo) ListByUsername(ctx context.Context, username string, limit int) ([]domain.UserNotification, error) {
	if f.listByUsernameFn != nil {
		return f.listByUsernameFn(ctx, username, limit)
	}
	return nil, nil
}

func (f *fakeUserNotificationRepo) records() []domain.UserNotification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.UserNotification(nil), f.created...)
}

type fakeTransport struct {
	name   string
	sendFn func(ctx context.Context, msg domain.Message) (*provider.Receipt, error)
}

func (f *fakeTransport) Name() string {
	if f.name == "" {
		return "smtp"
	}
	return f.name
}

func (f *fakeTransport) Send(ctx context.Context, msg domain.Message) (*provider.Receipt, error) {
	if f.sendFn != nil {
		return f.sendFn(ctx, msg)
	}
	return &provider.Receipt{StatusCode: 250}, nil
}

type fakeRateLimiter struct {
	allowFn func(ctx context.Context, transport string) (bool, error)
	waitFn  func(ctx context.Context, transport string) error
}

func (f *fakeRateLimiter) Allow(ctx context.Context, transport string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, transport)
	}
	return true, nil
}

func (f *fakeRateLimiter) Wait(ctx context.Context, transport string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, transport)
	}
	return nil
}

var _ ratelimit.RateLimiter = (*fakeRateLimiter)(nil)

type fakePublisher struct {
	publishFn func(ctx context.Context, queueName string, msg queue.EmailMessage) error
}

func (f *fakePublisher) Publish(ctx context.Context, queueName string, msg queue.EmailMessage) error {
	if f.publishFn != nil {
		return f.publishFn(ctx, queueName, msg)
	}
	return nil
}

func (f *fakePublisher) Close() error {
	return nil
}

type fakeConsumer struct {
	consumeFn func(ctx context.Context, queue string, handler queue.MessageHandler) error
	closeFn   func() error
}

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	if f.consumeFn != nil {
		return f.consumeFn(ctx, queueName, handler)
	}
	return nil
}

func (f *fakeConsumer) Close() error {
	if f.closeFn != nil {
		return f.closeFn()
	}
	return nil
}

type fakeGateway struct {
	sendEmailFn func(ctx context.Context, msg domain.Message) error
}

func (f *fakeGateway) SendEmail(ctx context.Context, msg domain.Message) error {
	if f.sendEmailFn != nil {
		return f.sendEmailFn(ctx, msg)
	}
	return nil
}

type fakeComposer struct {
	composeFn func(ctx context.Context, req composer.Request) (domain.Message, error)
}

func (f *fakeComposer) Compose(ctx context.Context, req composer.Request) (domain.Message, error) {
	if f.composeFn != nil {
		return f.composeFn(ctx, req)
	}
	return domain.Message{To: req.To, Subject: req.Kind.String(), Body: "body"}, nil
}

type fakeSender struct {
	sendFn func(ctx context.Context, kind composer.Kind, msg domain.Message) error
}

func (f *fakeSender) Send(ctx context.Context, kind composer.Kind, msg domain.Message) error {
	if f.sendFn != nil {
		return f.sendFn(ctx, kind, msg)
	}
	return nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	requests []composer.Request
	notifyFn func(ctx context.Context, req composer.Request) (domain.Message, error)
}

func (f *fakeNotifier) Notify(ctx context.Context, req composer.Request) (domain.Message, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.notifyFn != nil {
		return f.notifyFn(ctx, req)
	}
	return domain.Message{}, nil
}

func (f *fakeNotifier) kinds() []composer.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	kinds := make([]composer.Kind, 0, len(f.requests))
	for _, r := range f.requests {
		kinds = append(kinds, r.Kind)
	}
	return kinds
}

type fakeConfigLookup struct {
	getActiveFn func(ctx context.Context, category domain.Category, title string) (*domain.NotificationConfig, error)
}

func (f *fakeConfigLookup) GetActive(ctx context.Context, category domain.Category, title string) (*domain.NotificationConfig, error) {
	if f.getActiveFn != nil {
		return f.getActiveFn(ctx, category, title)
	}
	return &domain.NotificationConfig{
		CategoryCd:       category,
		Title:            title,
		Text:             "Application [#APPLID] for listing [#LISTID]: [#REASON]",
		NotificationList: "staff@example.org",
		Active:           true,
	}, nil
}
