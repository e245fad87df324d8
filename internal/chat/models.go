package chat

import "time"

type Step string

const (
	StepIntro    Step = "intro"
	StepAskName  Step = "ask_name"
	StepAskEmail Step = "ask_email"
	StepAskPhone Step = "ask_phone"
	StepDone     Step = "done"
)

type Status string

const (
	StatusOpen    Status = "open"    // awaiting admin reply
	StatusPending Status = "pending" // awaiting visitor reply
	StatusClosed  Status = "closed"
)

func ValidStatus(s Status) bool {
	return s == StatusOpen || s == StatusPending || s == StatusClosed
}

const (
	SenderVisitor = "visitor"
	SenderAdmin   = "admin"
)

type Chat struct {
	ID           string  `gorm:"type:varchar(36);primaryKey" json:"id"`
	VisitorName  *string `gorm:"type:varchar(190)" json:"visitor_name"`
	VisitorEmail *string `gorm:"type:varchar(190)" json:"visitor_email"`
	VisitorPhone *string `gorm:"type:varchar(64)" json:"visitor_phone"`

	// SHA-256 hex digest of the visitor access token; set once at creation.
	TokenDigest string `gorm:"type:char(64);not null" json:"-"`

	OnboardingStep Step    `gorm:"type:varchar(16);not null" json:"onboarding_step"`
	Status         Status  `gorm:"type:varchar(16);index;not null" json:"status"`
	SourcePage     *string `gorm:"type:varchar(255)" json:"source_page"`

	LastMessageAt *time.Time `json:"last_message_at"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Chat) TableName() string { return "chats" }

type Message struct {
	ID          uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID      string `gorm:"type:varchar(36);index;not null" json:"-"`
	SenderType  string `gorm:"type:varchar(16);not null" json:"sender_type"`
	SenderLabel string `gorm:"type:varchar(120);not null" json:"sender_label"`

	// Nullable: a message may carry attachments only (after onboarding).
	Body *string `gorm:"type:text" json:"message"`

	CreatedAt   time.Time    `json:"created_at"`
	Attachments []Attachment `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"attachments"`
}

func (Message) TableName() string { return "chat_messages" }

type Attachment struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	MessageID    uint64    `gorm:"index;not null" json:"-"`
	OriginalName string    `gorm:"type:varchar(255);not null" json:"original_name"`
	MimeType     string    `gorm:"type:varchar(120);not null" json:"mime_type"`
	SizeBytes    int64     `gorm:"not null" json:"size_bytes"`
	StoragePath  string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Attachment) TableName() string { return "chat_attachments" }

// Summary is the admin inbox row: chat fields plus a preview of the most
// recent message.
type Summary struct {
	ID            string     `json:"id"`
	VisitorName   *string    `json:"visitor_name"`
	VisitorEmail  *string    `json:"visitor_email"`
	VisitorPhone  *string    `json:"visitor_phone"`
	Status        Status     `json:"status"`
	SourcePage    *string    `json:"source_page"`
	LastMessageAt *time.Time `json:"last_message_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastMessage   *string    `json:"last_message"`
}
