package models

import "time"

type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"type:varchar(190);uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"type:varchar(120);not null" json:"-"`

	FirstName string     `gorm:"type:varchar(120)" json:"first_name"`
	LastName  string     `gorm:"type:varchar(120)" json:"last_name"`
	Address   string     `gorm:"type:varchar(190)" json:"address"`
	Zip       string     `gorm:"type:varchar(16)" json:"zip"`
	City      string     `gorm:"type:varchar(120)" json:"city"`
	Country   string     `gorm:"type:varchar(120)" json:"country"`
	Mobile    string     `gorm:"type:varchar(64)" json:"mobile"`
	BirthDate *time.Time `json:"birth_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

type AdminUser struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string    `gorm:"type:varchar(190);uniqueIndex;not null" json:"email"`
	Username     string    `gorm:"type:varchar(120);not null" json:"username"`
	PasswordHash string    `gorm:"type:varchar(120);not null" json:"-"`
	Role         string    `gorm:"type:varchar(32);not null;default:admin" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

func (AdminUser) TableName() string { return "admin_users" }

type UserDocument struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uint64    `gorm:"index;not null" json:"-"`
	DocType      string    `gorm:"type:varchar(32);not null" json:"doc_type"`
	OriginalName string    `gorm:"type:varchar(255);not null" json:"original_name"`
	MimeType     string    `gorm:"type:varchar(120);not null" json:"mime_type"`
	SizeBytes    int64     `gorm:"not null" json:"size_bytes"`
	StoragePath  string    `gorm:"type:varchar(255);not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

func (UserDocument) TableName() string { return "user_documents" }
