package leads

import "time"

const (
	TypeContact     = "contact"
	TypeApplication = "application"
	TypeNewsletter  = "newsletter"
)

const (
	StatusNew       = "new"
	StatusContacted = "contacted"
	StatusInReview  = "in_review"
	StatusClosed    = "closed"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusNew, StatusContacted, StatusInReview, StatusClosed:
		return true
	}
	return false
}

type Lead struct {
	ID       string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	Type     string  `gorm:"type:varchar(16);index;not null" json:"type"`
	FullName string  `gorm:"type:varchar(190);not null" json:"full_name"`
	Email    string  `gorm:"type:varchar(190);index;not null" json:"email"`
	Phone    *string `gorm:"type:varchar(64)" json:"phone"`
	Message  *string `gorm:"type:text" json:"message"`

	BirthDate         *time.Time `json:"birth_date"`
	Status            string     `gorm:"type:varchar(16);index;not null;default:new" json:"status"`
	VerificationLevel int        `gorm:"not null;default:1" json:"verification_level"`
	SourcePage        string     `gorm:"type:varchar(255)" json:"source_page"`

	// raw form fields as submitted, for the admin detail view
	FormPayload map[string]string `gorm:"serializer:json;type:text" json:"form_payload"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Lead) TableName() string { return "leads" }

type LeadNote struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	LeadID    string    `gorm:"type:varchar(36);index;not null" json:"-"`
	Note      string    `gorm:"type:text;not null" json:"note"`
	CreatedBy string    `gorm:"type:varchar(120);not null" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func (LeadNote) TableName() string { return "lead_notes" }
