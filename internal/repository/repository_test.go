package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/kursadbilgin/housing-engine/internal/domain"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("gorm.Open() error = %v", err)
	}

	return db, mock
}

func assertExpectations(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet sql expectations: %v", err)
	}
}

var applicationColumns = []string{
	"id", "listing_id", "username", "status_cd", "submission_type_cd",
	"first_name", "last_name", "email", "duplicate_check_cd",
	"duplicate_check_response_due_date", "submitted_date",
}

func TestGormApplicationRepoGetByIDNotFound(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "applications" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows(applicationColumns))

	_, err := NewGormApplicationRepo(db).GetByID(context.Background(), 404)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("GetByID() error = %v, want ErrNotFound", err)
	}
	assertExpectations(t, mock)
}

func TestGormApplicationRepoGetByIDMapsRecord(t *testing.T) {
	t.Parallel()

	submitted := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	due := submitted.Add(120 * time.Hour)

	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "applications" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows(applicationColumns).
			AddRow(100, 7, "ana", "submitted", "PAPER", "Ana", "Lopez", "ana@example.com", "P", due, submitted))

	app, err := NewGormApplicationRepo(db).GetByID(context.Background(), 100)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if app.StatusCd != domain.StatusSubmitted {
		t.Fatalf("StatusCd = %s, want canonical SUBMITTED", app.StatusCd)
	}
	if app.SubmissionType != domain.SubmissionPaper {
		t.Fatalf("SubmissionType = %s", app.SubmissionType)
	}
	if !app.IsPotentialDuplicate() || !app.DuplicateCheckResponseDueDate.Equal(due) {
		t.Fatalf("duplicate fields = %v/%v", app.DuplicateCheckCd, app.DuplicateCheckResponseDueDate)
	}
	if app.ApplicantName() != "Ana Lopez" {
		t.Fatalf("ApplicantName() = %q", app.ApplicantName())
	}
	assertExpectations(t, mock)
}

func TestGormApplicationRepoRejectsUnknownStoredStatus(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "applications" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows(applicationColumns).
			AddRow(100, 7, "ana", "ARCHIVED", "ONLINE", "Ana", "Lopez", nil, nil, nil, nil))

	_, err := NewGormApplicationRepo(db).GetByID(context.Background(), 100)
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("GetByID() error = %v, want ErrValidation", err)
	}
	assertExpectations(t, mock)
}

func TestGormApplicationRepoUpdateLocksAndSaves(t *testing.T) {
	t.Parallel()

	submitted := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "applications" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(applicationColumns).
			AddRow(100, 7, "ana", "SUBMITTED", "ONLINE", "Ana", "Lopez", nil, nil, nil, submitted))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "applications" SET`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	updated, err := NewGormApplicationRepo(db).Update(context.Background(), 100, func(app *domain.ApplicationRecord) error {
		return app.Waitlist()
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.StatusCd != domain.StatusWaitlisted {
		t.Fatalf("StatusCd = %s, want WAITLISTED", updated.StatusCd)
	}
	assertExpectations(t, mock)
}

func TestGormApplicationRepoUpdateRollsBackOnMutateError(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM "applications" WHERE id = \$1 .*FOR UPDATE`).
		WillReturnRows(sqlmock.NewRows(applicationColumns).
			AddRow(100, 7, "ana", "DRAFT", "ONLINE", "Ana", "Lopez", nil, nil, nil, nil))
	mock.ExpectRollback()

	_, err := NewGormApplicationRepo(db).Update(context.Background(), 100, func(app *domain.ApplicationRecord) error {
		return app.Waitlist()
	})
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("Update() error = %v, want ErrInvalidTransition", err)
	}
	assertExpectations(t, mock)
}

func TestGormApplicationRepoCreateReturnsID(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "applications"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(101))

	app := &domain.ApplicationRecord{
		ListingID:      7,
		Username:       "ana",
		StatusCd:       domain.StatusDraft,
		SubmissionType: domain.SubmissionOnline,
		Name:           domain.NameFields{FirstName: domain.StringPtr("Ana")},
	}
	if err := NewGormApplicationRepo(db).Create(context.Background(), app); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if app.ID != 101 {
		t.Fatalf("ID = %d, want 101", app.ID)
	}
	assertExpectations(t, mock)
}

func TestGormApplicationRepoListActiveByListing(t *testing.T) {
	t.Parallel()

	submitted := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "applications" WHERE listing_id = $1 AND status_cd NOT IN ($2,$3)`)).
		WithArgs(int64(7), "WITHDRAWN", "DUPLICATE").
		WillReturnRows(sqlmock.NewRows(applicationColumns).
			AddRow(55, 7, "bo", "SUBMITTED", "ONLINE", "Bo", "Smith", "ana@example.com", nil, nil, submitted).
			AddRow(60, 7, "cy", "WAITLISTED", "ONLINE", "Cy", "Jones", nil, nil, nil, submitted))

	apps, err := NewGormApplicationRepo(db).ListActiveByListing(context.Background(), 7)
	if err != nil {
		t.Fatalf("ListActiveByListing() error = %v", err)
	}
	if len(apps) != 2 || apps[0].ID != 55 || apps[1].StatusCd != domain.StatusWaitlisted {
		t.Fatalf("ListActiveByListing() = %+v", apps)
	}
	assertExpectations(t, mock)
}

func TestGormNotificationConfigRepoGetActive(t *testing.T) {
	t.Parallel()

	columns := []string{"id", "category_cd", "title", "text", "notification_list", "active_ind"}
	query := regexp.QuoteMeta(`SELECT * FROM "notification_configs" WHERE category_cd = $1 AND title = $2 AND active_ind = $3`)

	testCases := []struct {
		name    string
		rows    *sqlmock.Rows
		wantErr error
	}{
		{
			name: "single active row",
			rows: sqlmock.NewRows(columns).
				AddRow(1, "INTERNAL", "Listing Ready for Review", "Listing [#LISTID]", "staff@example.org", true),
		},
		{
			name:    "no row",
			rows:    sqlmock.NewRows(columns),
			wantErr: domain.ErrNotFound,
		},
		{
			name: "ambiguous active rows",
			rows: sqlmock.NewRows(columns).
				AddRow(1, "INTERNAL", "Listing Ready for Review", "a", "", true).
				AddRow(2, "INTERNAL", "Listing Ready for Review", "b", "", true),
			wantErr: domain.ErrConflict,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			db, mock := newMockDB(t)
			mock.ExpectQuery(query).WillReturnRows(tc.rows)

			cfg, err := NewGormNotificationConfigRepo(db).GetActive(context.Background(), domain.CategoryInternal, "Listing Ready for Review")
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("GetActive() error = %v, want %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetActive() error = %v", err)
			}
			if cfg.Text != "Listing [#LISTID]" || !cfg.Active || cfg.NotificationList != "staff@example.org" {
				t.Fatalf("GetActive() = %+v", cfg)
			}
			assertExpectations(t, mock)
		})
	}
}

func TestGormUserNotificationRepoCreateAndList(t *testing.T) {
	t.Parallel()

	createdAt := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	db, mock := newMockDB(t)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "user_notifications"`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "user_notifications" WHERE username = $1 ORDER BY created_at DESC`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "subject", "body", "email_sent_ind", "created_at"}).
			AddRow("0b7c6d8e-7a55-4b6f-9a51-3f0c6c1f9a10", "ana", "Potential Duplicate Housing Application Notification", "body", false, createdAt))

	repo := NewGormUserNotificationRepo(db)
	record := &domain.UserNotification{
		ID:        "0b7c6d8e-7a55-4b6f-9a51-3f0c6c1f9a10",
		Username:  "ana",
		Subject:   "Potential Duplicate Housing Application Notification",
		Body:      "body",
		CreatedAt: createdAt,
	}
	if err := repo.Create(context.Background(), record); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	list, err := repo.ListByUsername(context.Background(), "ana", 0)
	if err != nil {
		t.Fatalf("ListByUsername() error = %v", err)
	}
	if len(list) != 1 || list[0].EmailSentInd || list[0].Username != "ana" {
		t.Fatalf("ListByUsername() = %+v", list)
	}
	assertExpectations(t, mock)
}

func TestGormListingRepoGetByID(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "listings" WHERE id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "street_line1", "city", "state_cd", "zip_code"}).
			AddRow(7, "Elm Court", "1 Main St", "Springfield", "IL", "62701"))

	listing, err := NewGormListingRepo(db).GetByID(context.Background(), 7)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got := listing.Address.SingleLine(); got != "1 Main St, Springfield, IL 62701" {
		t.Fatalf("SingleLine() = %q", got)
	}
	assertExpectations(t, mock)
}
