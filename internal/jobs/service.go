package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"
)

const factsSettingKey = "application_job_facts"

var ErrTitleRequired = errors.New("job title required")

// DefaultFacts are shown when no admin override has been stored yet.
var DefaultFacts = Facts{
	Date:       "18.11.2025",
	Salary:     "603EUR p.M.",
	Employment: "Minijob",
	Experience: "keine nötig",
	Deadline:   "01.04.2026",
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases, collapses non-alphanumerics to dashes and caps the
// result at 80 characters, matching the slugs used in career page URLs.
func Slugify(v string) string {
	s := slugStrip.ReplaceAllString(strings.ToLower(v), "-")
	s = strings.Trim(s, "-")
	if len(s) > 80 {
		s = strings.Trim(s[:80], "-")
	}
	return s
}

type Service struct {
	repo *Repo
}

func NewService(repo *Repo) *Service {
	return &Service{repo: repo}
}

type PostingInput struct {
	Slug    string
	Title   string
	Summary string
	Tasks   []string
	Profile []string
	Offer   []string
	Facts   Facts
}

func (s *Service) List(ctx context.Context) ([]JobPosting, error) {
	return s.repo.List(ctx)
}

func (s *Service) BySlug(ctx context.Context, slug string) (*JobPosting, error) {
	return s.repo.BySlug(ctx, Slugify(slug))
}

// Upsert creates or replaces a posting. originalSlug identifies an existing
// posting being edited; when the new slug collides with another posting a
// numeric suffix is appended.
func (s *Service) Upsert(ctx context.Context, in PostingInput, originalSlug string) (*JobPosting, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	base := Slugify(in.Slug)
	if base == "" {
		base = Slugify(title)
	}
	if base == "" {
		base = "stelle"
	}

	var existing *JobPosting
	if orig := Slugify(originalSlug); orig != "" {
		j, err := s.repo.BySlug(ctx, orig)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		existing = j
	}

	var excludeID uint64
	if existing != nil {
		excludeID = existing.ID
	}
	slug, err := s.uniqueSlug(ctx, base, excludeID)
	if err != nil {
		return nil, err
	}

	j := existing
	if j == nil {
		j = &JobPosting{}
	}
	j.Slug = slug
	j.Title = title
	j.Summary = strings.TrimSpace(in.Summary)
	j.Tasks = toLines(in.Tasks)
	j.Profile = toLines(in.Profile)
	j.Offer = toLines(in.Offer)
	j.Facts = normalizeFacts(in.Facts, DefaultFacts)

	if existing == nil {
		err = s.repo.Create(ctx, j)
	} else {
		err = s.repo.Update(ctx, j)
	}
	if err != nil {
		return nil, err
	}
	return j, nil
}

func (s *Service) Delete(ctx context.Context, slug string) error {
	return s.repo.DeleteBySlug(ctx, Slugify(slug))
}

// SeedDefaults inserts the built-in postings when the table is empty, so a
// fresh deployment has a populated career page.
func (s *Service) SeedDefaults(ctx context.Context) error {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	for i := range defaultPostings {
		j := defaultPostings[i]
		if err := s.repo.Create(ctx, &j); err != nil {
			return err
		}
	}
	return nil
}

// JobFacts returns the stored site-wide facts override, or DefaultFacts
// when none has been saved or the stored value cannot be decoded.
func (s *Service) JobFacts(ctx context.Context) (Facts, error) {
	setting, err := s.repo.GetSetting(ctx, factsSettingKey)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return DefaultFacts, nil
	}
	if err != nil {
		return Facts{}, err
	}
	var f Facts
	if err := json.Unmarshal([]byte(setting.Value), &f); err != nil {
		return DefaultFacts, nil
	}
	return normalizeFacts(f, DefaultFacts), nil
}

func (s *Service) SaveJobFacts(ctx context.Context, in Facts) (Facts, error) {
	f := normalizeFacts(in, DefaultFacts)
	raw, err := json.Marshal(f)
	if err != nil {
		return Facts{}, err
	}
	if err := s.repo.PutSetting(ctx, &Setting{Key: factsSettingKey, Value: string(raw)}); err != nil {
		return Facts{}, err
	}
	return f, nil
}

func (s *Service) uniqueSlug(ctx context.Context, base string, excludeID uint64) (string, error) {
	candidate := base
	for suffix := 2; ; suffix++ {
		taken, err := s.repo.SlugTaken(ctx, candidate, excludeID)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, suffix)
	}
}

// toLines trims entries, drops blanks and caps lists at 20 items.
func toLines(in []string) []string {
	out := make([]string, 0, len(in))
	for _, line := range in {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == 20 {
			break
		}
	}
	return out
}

func normalizeFacts(in, fallback Facts) Facts {
	pick := func(v, fb string) string {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
		if fb = strings.TrimSpace(fb); fb != "" {
			return fb
		}
		return "-"
	}
	return Facts{
		Date:       pick(in.Date, fallback.Date),
		Salary:     pick(in.Salary, fallback.Salary),
		Employment: pick(in.Employment, fallback.Employment),
		Experience: pick(in.Experience, fallback.Experience),
		Deadline:   pick(in.Deadline, fallback.Deadline),
	}
}
