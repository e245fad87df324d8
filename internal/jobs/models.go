package jobs

import "time"

// Facts are the key figures shown next to a posting. Blank entries render
// as "-" so the career page never shows empty cells.
type Facts struct {
	Date       string `json:"date"`
	Salary     string `json:"salary"`
	Employment string `json:"employment"`
	Experience string `json:"experience"`
	Deadline   string `json:"deadline"`
}

type JobPosting struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	Slug      string    `gorm:"type:varchar(80);uniqueIndex;not null" json:"slug"`
	Title     string    `gorm:"type:varchar(255);not null" json:"title"`
	Summary   string    `gorm:"type:text" json:"summary"`
	Tasks     []string  `gorm:"serializer:json;type:text" json:"tasks"`
	Profile   []string  `gorm:"serializer:json;type:text" json:"profile"`
	Offer     []string  `gorm:"serializer:json;type:text" json:"offer"`
	Facts     Facts     `gorm:"serializer:json;type:text" json:"facts"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (JobPosting) TableName() string { return "job_postings" }

// Setting is a small key/value store for site-wide JSON settings such as
// the default job facts.
type Setting struct {
	Key       string    `gorm:"column:setting_key;type:varchar(64);primaryKey" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string { return "app_settings" }
