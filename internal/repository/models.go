package repository

import (
	"time"

	"github.com/kursadbilgin/housing-engine/internal/domain"
)

// ApplicationModel is the persistence model for the applications table.
type ApplicationModel struct {
	ID               int64                 `gorm:"primaryKey;autoIncrement"`
	ListingID        int64                 `gorm:"not null;index"`
	Username         string                `gorm:"type:varchar(100);not null"`
	StatusCd         domain.Status         `gorm:"type:varchar(20);not null"`
	SubmissionTypeCd domain.SubmissionType `gorm:"type:varchar(10);not null;default:ONLINE"`

	FirstName   *string    `gorm:"type:varchar(100)"`
	MiddleName  *string    `gorm:"type:varchar(100)"`
	LastName    *string    `gorm:"type:varchar(100)"`
	Suffix      *string    `gorm:"type:varchar(20)"`
	SSNLast4    *string    `gorm:"column:ssn_last4;type:varchar(4)"`
	DateOfBirth *time.Time `gorm:"type:date"`
	Email       *string    `gorm:"type:varchar(255)"`
	Phone       *string    `gorm:"type:varchar(30)"`

	StreetLine1 *string `gorm:"type:varchar(255)"`
	StreetLine2 *string `gorm:"type:varchar(255)"`
	StreetLine3 *string `gorm:"type:varchar(255)"`
	City        *string `gorm:"type:varchar(100)"`
	StateCd     *string `gorm:"type:varchar(2)"`
	ZipCode     *string `gorm:"type:varchar(10)"`
	County      *string `gorm:"type:varchar(100)"`

	DuplicateCheckCd              *string `gorm:"type:varchar(1)"`
	DuplicateReason               *string `gorm:"type:text"`
	DuplicateCheckResponseDueDate *time.Time

	DisqualifiedInd        bool    `gorm:"not null;default:false"`
	DisqualificationCd     *string `gorm:"type:varchar(20)"`
	DisqualificationReason *string `gorm:"type:text"`

	SubmittedDate *time.Time
	ReceivedDate  *time.Time
	WithdrawnDate *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (ApplicationModel) TableName() string {
	return "applications"
}

// ListingModel is the persistence model for the listings table.
type ListingModel struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	Name         string  `gorm:"type:varchar(255);not null"`
	StreetLine1  *string `gorm:"type:varchar(255)"`
	StreetLine2  *string `gorm:"type:varchar(255)"`
	StreetLine3  *string `gorm:"type:varchar(255)"`
	City         *string `gorm:"type:varchar(100)"`
	StateCd      *string `gorm:"type:varchar(2)"`
	ZipCode      *string `gorm:"type:varchar(10)"`
	County       *string `gorm:"type:varchar(100)"`
	ContactEmail *string `gorm:"type:varchar(255)"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (ListingModel) TableName() string {
	return "listings"
}

// NotificationConfigModel is the persistence model for notification_configs.
type NotificationConfigModel struct {
	ID               int64           `gorm:"primaryKey;autoIncrement"`
	CategoryCd       domain.Category `gorm:"type:varchar(20);not null"`
	Title            string          `gorm:"type:varchar(255);not null"`
	Text             string          `gorm:"type:text;not null"`
	NotificationList string          `gorm:"type:text;not null;default:''"`
	ActiveInd        bool            `gorm:"not null;default:true"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (NotificationConfigModel) TableName() string {
	return "notification_configs"
}

// UserNotificationModel is the persistence model for user_notifications.
type UserNotificationModel struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	Username     string `gorm:"type:varchar(100);not null"`
	Subject      string `gorm:"type:varchar(255);not null"`
	Body         string `gorm:"type:text;not null"`
	EmailSentInd bool   `gorm:"not null"`
	CreatedAt    time.Time
}

func (UserNotificationModel) TableName() string {
	return "user_notifications"
}

func applicationModelFromDomain(a *domain.ApplicationRecord) *ApplicationModel {
	if a == nil {
		return nil
	}

	var duplicateCheck *string
	if a.DuplicateCheckCd != nil {
		v := a.DuplicateCheckCd.String()
		duplicateCheck = &v
	}

	return &ApplicationModel{
		ID:                            a.ID,
		ListingID:                     a.ListingID,
		Username:                      a.Username,
		StatusCd:                      a.StatusCd,
		SubmissionTypeCd:              a.SubmissionType,
		FirstName:                     a.Name.FirstName,
		MiddleName:                    a.Name.MiddleName,
		LastName:                      a.Name.LastName,
		Suffix:                        a.Name.Suffix,
		SSNLast4:                      a.SSNLast4,
		DateOfBirth:                   a.DateOfBirth,
		Email:                         a.Email,
		Phone:                         a.Phone,
		StreetLine1:                   a.Address.StreetLine1,
		StreetLine2:                   a.Address.StreetLine2,
		StreetLine3:                   a.Address.StreetLine3,
		City:                          a.Address.City,
		StateCd:                       a.Address.StateCd,
		ZipCode:                       a.Address.ZipCode,
		County:                        a.Address.County,
		DuplicateCheckCd:              duplicateCheck,
		DuplicateReason:               a.DuplicateReason,
		DuplicateCheckResponseDueDate: a.DuplicateCheckResponseDueDate,
		DisqualifiedInd:               a.DisqualifiedInd,
		DisqualificationCd:            a.DisqualificationCd,
		DisqualificationReason:        a.DisqualificationReason,
		SubmittedDate:                 a.SubmittedDate,
		ReceivedDate:                  a.ReceivedDate,
		WithdrawnDate:                 a.WithdrawnDate,
		CreatedAt:                     a.CreatedAt,
		UpdatedAt:                     a.UpdatedAt,
	}
}

// applicationModelToDomain rejects stored codes outside the closed enums
// instead of passing them through to business rules.
func applicationModelToDomain(m *ApplicationModel) (*domain.ApplicationRecord, error) {
	if m == nil {
		return nil, nil
	}

	status, err := domain.ParseStatusFromString(m.StatusCd.String())
	if err != nil {
		return nil, err
	}
	submissionType, err := domain.ParseSubmissionTypeFromString(m.SubmissionTypeCd.String())
	if err != nil {
		return nil, err
	}
	duplicateCheck, err := domain.ParseDuplicateCheckFromString(domain.Text(m.DuplicateCheckCd))
	if err != nil {
		return nil, err
	}

	return &domain.ApplicationRecord{
		ID:             m.ID,
		ListingID:      m.ListingID,
		Username:       m.Username,
		StatusCd:       status,
		SubmissionType: submissionType,
		Name: domain.NameFields{
			FirstName:  m.FirstName,
			MiddleName: m.MiddleName,
			LastName:   m.LastName,
			Suffix:     m.Suffix,
		},
		SSNLast4:    m.SSNLast4,
		DateOfBirth: m.DateOfBirth,
		Email:       m.Email,
		Phone:       m.Phone,
		Address: domain.AddressFields{
			StreetLine1: m.StreetLine1,
			StreetLine2: m.StreetLine2,
			StreetLine3: m.StreetLine3,
			City:        m.City,
			StateCd:     m.StateCd,
			ZipCode:     m.ZipCode,
			County:      m.County,
		},
		DuplicateCheckCd:              duplicateCheck,
		DuplicateReason:               m.DuplicateReason,
		DuplicateCheckResponseDueDate: m.DuplicateCheckResponseDueDate,
		DisqualifiedInd:               m.DisqualifiedInd,
		DisqualificationCd:            m.DisqualificationCd,
		DisqualificationReason:        m.DisqualificationReason,
		SubmittedDate:                 m.SubmittedDate,
		ReceivedDate:                  m.ReceivedDate,
		WithdrawnDate:                 m.WithdrawnDate,
		CreatedAt:                     m.CreatedAt,
		UpdatedAt:                     m.UpdatedAt,
	}, nil
}

func listingModelToDomain(m *ListingModel) *domain.Listing {
	if m == nil {
		return nil
	}

	return &domain.Listing{
		ID:   m.ID,
		Name: m.Name,
		Address: domain.AddressFields{
			StreetLine1: m.StreetLine1,
			StreetLine2: m.StreetLine2,
			StreetLine3: m.StreetLine3,
			City:        m.City,
			StateCd:     m.StateCd,
			ZipCode:     m.ZipCode,
			County:      m.County,
		},
		ContactEmail: m.ContactEmail,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func notificationConfigModelToDomain(m *NotificationConfigModel) *domain.NotificationConfig {
	if m == nil {
		return nil
	}

	return &domain.NotificationConfig{
		ID:               m.ID,
		CategoryCd:       m.CategoryCd,
		Title:            m.Title,
		Text:             m.Text,
		NotificationList: m.NotificationList,
		Active:           m.ActiveInd,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func userNotificationModelFromDomain(n *domain.UserNotification) *UserNotificationModel {
	if n == nil {
		return nil
	}

	return &UserNotificationModel{
		ID:           n.ID,
		Username:     n.Username,
		Subject:      n.Subject,
		Body:         n.Body,
		EmailSentInd: n.EmailSentInd,
		CreatedAt:    n.CreatedAt,
	}
}

func userNotificationModelToDomain(m *UserNotificationModel) *domain.UserNotification {
	if m == nil {
		return nil
	}

	return &domain.UserNotification{
		ID:           m.ID,
		Username:     m.Username,
		Subject:      m.Subject,
		Body:         m.Body,
		EmailSentInd: m.EmailSentInd,
		CreatedAt:    m.CreatedAt,
	}
}
