package leads

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMissingFields = errors.New("required lead fields missing")
	ErrInvalidStatus = errors.New("invalid lead status")
	ErrInvalidLevel  = errors.New("invalid verification level")
	ErrNoteTooShort  = errors.New("note too short")
)

// Notification is the payload handed to the mail queue when a new lead
// arrives. Delivery is best-effort and must never fail the capture request.
type Notification struct {
	LeadID     string `json:"lead_id"`
	Type       string `json:"type"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Subject    string `json:"subject"`
	Message    string `json:"message"`
	SourcePage string `json:"source_page"`
}

type Notifier interface {
	NotifyLead(ctx context.Context, n Notification) error
}

type Service struct {
	repo     *Repo
	notifier Notifier
}

// NewService accepts a nil notifier; capture then runs without outbound mail.
func NewService(repo *Repo, notifier Notifier) *Service {
	return &Service{repo: repo, notifier: notifier}
}

type ContactInput struct {
	FullName   string
	Email      string
	Phone      string
	Subject    string
	Message    string
	SourcePage string
	// honeypot: non-empty means a bot filled the hidden field
	Website string
	Payload map[string]string
}

// SubmitContact stores a contact lead. Honeypot submissions are accepted
// silently without persisting anything, so bots cannot tell they were caught.
func (s *Service) SubmitContact(ctx context.Context, in ContactInput) (*Lead, error) {
	if in.Website != "" {
		return nil, nil
	}

	name := strings.TrimSpace(in.FullName)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	merged := mergeMessage(in.Subject, in.Message)
	if name == "" || email == "" || merged == "" {
		return nil, ErrMissingFields
	}

	l := &Lead{
		ID:                uuid.NewString(),
		Type:              TypeContact,
		FullName:          name,
		Email:             email,
		Status:            StatusNew,
		VerificationLevel: 1,
		SourcePage:        sourceOr(in.SourcePage, "/Kontakt"),
		FormPayload:       in.Payload,
	}
	if p := strings.TrimSpace(in.Phone); p != "" {
		l.Phone = &p
	}
	l.Message = &merged

	if err := s.repo.Create(ctx, l); err != nil {
		return nil, err
	}
	s.notify(ctx, l, in.Subject)
	return l, nil
}

type ApplicationInput struct {
	FullName   string
	Email      string
	Mobile     string
	Address    string
	Zip        string
	City       string
	Country    string
	BirthDate  string // YYYY-MM-DD
	SourcePage string
	Website    string
	Payload    map[string]string
}

func (s *Service) SubmitApplication(ctx context.Context, in ApplicationInput) (*Lead, error) {
	if in.Website != "" {
		return nil, nil
	}

	name := strings.TrimSpace(in.FullName)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" || email == "" {
		return nil, ErrMissingFields
	}

	l := &Lead{
		ID:                uuid.NewString(),
		Type:              TypeApplication,
		FullName:          name,
		Email:             email,
		Status:            StatusNew,
		VerificationLevel: 1,
		SourcePage:        sourceOr(in.SourcePage, "/Bewerbung"),
		FormPayload:       in.Payload,
	}
	if p := strings.TrimSpace(in.Mobile); p != "" {
		l.Phone = &p
	}
	if in.BirthDate != "" {
		if d, err := time.Parse("2006-01-02", in.BirthDate); err == nil {
			l.BirthDate = &d
		}
	}

	if err := s.repo.Create(ctx, l); err != nil {
		return nil, err
	}
	s.notify(ctx, l, "Bewerbung")
	return l, nil
}

func (s *Service) SubmitNewsletter(ctx context.Context, email, sourcePage string) (*Lead, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, ErrMissingFields
	}

	l := &Lead{
		ID:                uuid.NewString(),
		Type:              TypeNewsletter,
		FullName:          email,
		Email:             email,
		Status:            StatusNew,
		VerificationLevel: 1,
		SourcePage:        sourceOr(sourcePage, "/"),
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) List(ctx context.Context, f Filter) ([]Lead, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) Detail(ctx context.Context, id string) (*Lead, []LeadNote, error) {
	l, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	notes, err := s.repo.Notes(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return l, notes, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id, status string, verificationLevel int) error {
	if !ValidStatus(status) {
		return ErrInvalidStatus
	}
	if verificationLevel < 1 || verificationLevel > 3 {
		return ErrInvalidLevel
	}
	return s.repo.UpdateStatus(ctx, id, status, verificationLevel)
}

func (s *Service) AddNote(ctx context.Context, leadID, note, createdBy string) (*LeadNote, error) {
	note = strings.TrimSpace(note)
	if len(note) < 2 {
		return nil, ErrNoteTooShort
	}
	if _, err := s.repo.Get(ctx, leadID); err != nil {
		return nil, err
	}
	n := &LeadNote{LeadID: leadID, Note: note, CreatedBy: createdBy}
	if err := s.repo.AddNote(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *Service) Delete(ctx context.Context, ids []string) error {
	return s.repo.DeleteByIDs(ctx, ids)
}

// WriteCSV streams every lead as a CSV export with a header row.
func (s *Service) WriteCSV(ctx context.Context, w io.Writer) error {
	all, err := s.repo.List(ctx, Filter{})
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"id", "type", "full_name", "email", "phone", "message",
		"birth_date", "status", "verification_level", "source_page", "created_at",
	}); err != nil {
		return err
	}
	for _, l := range all {
		row := []string{
			l.ID, l.Type, l.FullName, l.Email,
			strOr(l.Phone), strOr(l.Message),
			dateOr(l.BirthDate),
			l.Status, strconv.Itoa(l.VerificationLevel), l.SourcePage,
			l.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *Service) notify(ctx context.Context, l *Lead, subject string) {
	if s.notifier == nil {
		return
	}
	n := Notification{
		LeadID:     l.ID,
		Type:       l.Type,
		Name:       l.FullName,
		Email:      l.Email,
		Phone:      strOr(l.Phone),
		Subject:    subject,
		Message:    strOr(l.Message),
		SourcePage: l.SourcePage,
	}
	if err := s.notifier.NotifyLead(ctx, n); err != nil {
		// mail is best-effort and must never fail lead capture
		log.Printf("[leads] notify failed lead=%s err=%v", l.ID, err)
	}
}

func mergeMessage(subject, message string) string {
	var parts []string
	if sub := strings.TrimSpace(subject); sub != "" {
		parts = append(parts, "Betreff: "+sub)
	}
	if msg := strings.TrimSpace(message); msg != "" {
		parts = append(parts, msg)
	}
	return strings.Join(parts, "\n\n")
}

func sourceOr(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}

func strOr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func dateOr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}
