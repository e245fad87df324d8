package leads

import (
	"context"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, l *Lead) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *Repo) Get(ctx context.Context, id string) (*Lead, error) {
	var l Lead
	if err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

type Filter struct {
	Type   string
	Status string
	Source string
	Q      string
}

func (r *Repo) List(ctx context.Context, f Filter) ([]Lead, error) {
	q := r.db.WithContext(ctx).Model(&Lead{})
	if f.Type != "" {
		q = q.Where("type = ?", f.Type)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Source != "" {
		q = q.Where("source_page = ?", f.Source)
	}
	if f.Q != "" {
		like := "%" + f.Q + "%"
		q = q.Where("(full_name LIKE ? OR email LIKE ?)", like, like)
	}

	var out []Lead
	if err := q.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) UpdateStatus(ctx context.Context, id, status string, verificationLevel int) error {
	res := r.db.WithContext(ctx).Model(&Lead{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":             status,
			"verification_level": verificationLevel,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repo) AddNote(ctx context.Context, n *LeadNote) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *Repo) Notes(ctx context.Context, leadID string) ([]LeadNote, error) {
	var notes []LeadNote
	err := r.db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("created_at DESC").
		Find(&notes).Error
	if err != nil {
		return nil, err
	}
	return notes, nil
}

func (r *Repo) DeleteByIDs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("lead_id IN ?", ids).Delete(&LeadNote{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&Lead{}).Error
	})
}
