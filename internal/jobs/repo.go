package jobs

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) List(ctx context.Context) ([]JobPosting, error) {
	var out []JobPosting
	err := r.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) BySlug(ctx context.Context, slug string) (*JobPosting, error) {
	var j JobPosting
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&j).Error; err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *Repo) SlugTaken(ctx context.Context, slug string, excludeID uint64) (bool, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&JobPosting{}).Where("slug = ?", slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *Repo) Create(ctx context.Context, j *JobPosting) error {
	return r.db.WithContext(ctx).Create(j).Error
}

func (r *Repo) Update(ctx context.Context, j *JobPosting) error {
	return r.db.WithContext(ctx).Save(j).Error
}

func (r *Repo) DeleteBySlug(ctx context.Context, slug string) error {
	res := r.db.WithContext(ctx).Where("slug = ?", slug).Delete(&JobPosting{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *Repo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&JobPosting{}).Count(&count).Error
	return count, err
}

func (r *Repo) GetSetting(ctx context.Context, key string) (*Setting, error) {
	var s Setting
	if err := r.db.WithContext(ctx).Where("setting_key = ?", key).First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) PutSetting(ctx context.Context, s *Setting) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "setting_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(s).Error
}
