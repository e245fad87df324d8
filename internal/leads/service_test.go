package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := gdb.AutoMigrate(&Lead{}, &LeadNote{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

type recordingNotifier struct {
	got  []Notification
	fail bool
}

func (r *recordingNotifier) NotifyLead(_ context.Context, n Notification) error {
	if r.fail {
		return errors.New("broker down")
	}
	r.got = append(r.got, n)
	return nil
}

func newTestService(t *testing.T) (*Service, *recordingNotifier) {
	t.Helper()
	n := &recordingNotifier{}
	return NewService(NewRepo(openTestDB(t)), n), n
}

func TestSubmitContactStoresLead(t *testing.T) {
	svc, notifier := newTestService(t)
	ctx := context.Background()

	l, err := svc.SubmitContact(ctx, ContactInput{
		FullName: "  Erika Musterfrau ",
		Email:    "Erika@Example.COM",
		Phone:    "+49 151 1234567",
		Subject:  "Webdesign",
		Message:  "Bitte um Rückruf.",
	})
	if err != nil {
		t.Fatalf("submit contact: %v", err)
	}
	if l.Email != "erika@example.com" {
		t.Fatalf("email not normalized, got %q", l.Email)
	}
	if l.FullName != "Erika Musterfrau" {
		t.Fatalf("name not trimmed, got %q", l.FullName)
	}
	if l.Message == nil || !strings.Contains(*l.Message, "Betreff: Webdesign") {
		t.Fatalf("subject not merged into message: %v", l.Message)
	}
	if l.SourcePage != "/Kontakt" {
		t.Fatalf("default source page, got %q", l.SourcePage)
	}
	if l.Status != StatusNew || l.VerificationLevel != 1 {
		t.Fatalf("want new lead at level 1, got %s/%d", l.Status, l.VerificationLevel)
	}
	if len(notifier.got) != 1 || notifier.got[0].LeadID != l.ID {
		t.Fatalf("expected one notification for lead %s, got %+v", l.ID, notifier.got)
	}
}

func TestSubmitContactHoneypot(t *testing.T) {
	svc, notifier := newTestService(t)
	ctx := context.Background()

	l, err := svc.SubmitContact(ctx, ContactInput{
		FullName: "Bot",
		Email:    "bot@example.com",
		Message:  "spam",
		Website:  "http://spam.example",
	})
	if err != nil {
		t.Fatalf("honeypot must look like success: %v", err)
	}
	if l != nil {
		t.Fatalf("honeypot submission must not persist, got %+v", l)
	}
	if all, _ := svc.List(ctx, Filter{}); len(all) != 0 {
		t.Fatalf("expected empty lead table, got %d rows", len(all))
	}
	if len(notifier.got) != 0 {
		t.Fatalf("honeypot must not notify")
	}
}

func TestSubmitContactMissingFields(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.SubmitContact(context.Background(), ContactInput{
		FullName: "Max",
		Email:    "max@example.com",
	})
	if !errors.Is(err, ErrMissingFields) {
		t.Fatalf("want ErrMissingFields, got %v", err)
	}
}

func TestSubmitContactSurvivesNotifierFailure(t *testing.T) {
	svc, notifier := newTestService(t)
	notifier.fail = true

	l, err := svc.SubmitContact(context.Background(), ContactInput{
		FullName: "Max",
		Email:    "max@example.com",
		Message:  "Hallo",
	})
	if err != nil {
		t.Fatalf("capture must not fail on broker error: %v", err)
	}
	if l == nil {
		t.Fatal("lead should be persisted despite broker error")
	}
}

func TestSubmitApplicationParsesBirthDate(t *testing.T) {
	svc, _ := newTestService(t)
	l, err := svc.SubmitApplication(context.Background(), ApplicationInput{
		FullName:  "Anna Beispiel",
		Email:     "anna@example.com",
		Mobile:    "0151 9876543",
		BirthDate: "1994-03-17",
		Payload:   map[string]string{"position": "Projektmanagement"},
	})
	if err != nil {
		t.Fatalf("submit application: %v", err)
	}
	if l.Type != TypeApplication {
		t.Fatalf("want application type, got %q", l.Type)
	}
	if l.BirthDate == nil || l.BirthDate.Format("2006-01-02") != "1994-03-17" {
		t.Fatalf("birth date not parsed: %v", l.BirthDate)
	}
	if l.FormPayload["position"] != "Projektmanagement" {
		t.Fatalf("form payload not stored: %v", l.FormPayload)
	}

	got, err := svc.repo.Get(context.Background(), l.ID)
	if err != nil {
		t.Fatalf("reload lead: %v", err)
	}
	if got.FormPayload["position"] != "Projektmanagement" {
		t.Fatalf("payload did not round-trip through json serializer: %v", got.FormPayload)
	}
}

func TestSubmitApplicationIgnoresBadBirthDate(t *testing.T) {
	svc, _ := newTestService(t)
	l, err := svc.SubmitApplication(context.Background(), ApplicationInput{
		FullName:  "Anna",
		Email:     "anna@example.com",
		BirthDate: "17.03.1994",
	})
	if err != nil {
		t.Fatalf("submit application: %v", err)
	}
	if l.BirthDate != nil {
		t.Fatalf("unparseable date must be dropped, got %v", l.BirthDate)
	}
}

func TestSubmitNewsletter(t *testing.T) {
	svc, _ := newTestService(t)
	l, err := svc.SubmitNewsletter(context.Background(), " News@Example.com ", "")
	if err != nil {
		t.Fatalf("submit newsletter: %v", err)
	}
	if l.Type != TypeNewsletter || l.Email != "news@example.com" {
		t.Fatalf("unexpected lead: %+v", l)
	}

	if _, err := svc.SubmitNewsletter(context.Background(), "  ", ""); !errors.Is(err, ErrMissingFields) {
		t.Fatalf("want ErrMissingFields for blank email, got %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	l, err := svc.SubmitContact(ctx, ContactInput{FullName: "Max", Email: "max@example.com", Message: "Hallo"})
	if err != nil {
		t.Fatalf("seed lead: %v", err)
	}

	if err := svc.UpdateStatus(ctx, l.ID, "imaginary", 1); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("want ErrInvalidStatus, got %v", err)
	}
	if err := svc.UpdateStatus(ctx, l.ID, StatusContacted, 5); !errors.Is(err, ErrInvalidLevel) {
		t.Fatalf("want ErrInvalidLevel, got %v", err)
	}
	if err := svc.UpdateStatus(ctx, "missing", StatusContacted, 2); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("want record not found, got %v", err)
	}

	if err := svc.UpdateStatus(ctx, l.ID, StatusContacted, 2); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, _, err := svc.Detail(ctx, l.ID)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if got.Status != StatusContacted || got.VerificationLevel != 2 {
		t.Fatalf("status not applied: %s/%d", got.Status, got.VerificationLevel)
	}
}

func TestAddNote(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	l, err := svc.SubmitContact(ctx, ContactInput{FullName: "Max", Email: "max@example.com", Message: "Hallo"})
	if err != nil {
		t.Fatalf("seed lead: %v", err)
	}

	if _, err := svc.AddNote(ctx, l.ID, " x ", "admin"); !errors.Is(err, ErrNoteTooShort) {
		t.Fatalf("want ErrNoteTooShort, got %v", err)
	}
	if _, err := svc.AddNote(ctx, "missing", "Rückruf vereinbart", "admin"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("want record not found, got %v", err)
	}

	n, err := svc.AddNote(ctx, l.ID, "Rückruf vereinbart", "admin@headline.de")
	if err != nil {
		t.Fatalf("add note: %v", err)
	}
	if n.ID == 0 {
		t.Fatal("note id not assigned")
	}
	_, notes, err := svc.Detail(ctx, l.ID)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if len(notes) != 1 || notes[0].Note != "Rückruf vereinbart" {
		t.Fatalf("unexpected notes: %+v", notes)
	}
}

func TestListFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.SubmitContact(ctx, ContactInput{FullName: "Max Mustermann", Email: "max@example.com", Message: "Hallo"}); err != nil {
		t.Fatalf("seed contact: %v", err)
	}
	if _, err := svc.SubmitNewsletter(ctx, "news@example.com", "/"); err != nil {
		t.Fatalf("seed newsletter: %v", err)
	}

	byType, err := svc.List(ctx, Filter{Type: TypeContact})
	if err != nil {
		t.Fatalf("list by type: %v", err)
	}
	if len(byType) != 1 || byType[0].Type != TypeContact {
		t.Fatalf("type filter leaked: %+v", byType)
	}

	byQuery, err := svc.List(ctx, Filter{Q: "mustermann"})
	if err != nil {
		t.Fatalf("list by query: %v", err)
	}
	if len(byQuery) != 1 || byQuery[0].Email != "max@example.com" {
		t.Fatalf("query filter: %+v", byQuery)
	}
}

func TestDeleteLeadsRemovesNotes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	l, err := svc.SubmitContact(ctx, ContactInput{FullName: "Max", Email: "max@example.com", Message: "Hallo"})
	if err != nil {
		t.Fatalf("seed lead: %v", err)
	}
	if _, err := svc.AddNote(ctx, l.ID, "erstes Gespräch", "admin"); err != nil {
		t.Fatalf("seed note: %v", err)
	}

	if err := svc.Delete(ctx, []string{l.ID}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, _, err := svc.Detail(ctx, l.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("lead should be gone, got %v", err)
	}
	var count int64
	if err := openCount(svc, &count); err != nil {
		t.Fatalf("count notes: %v", err)
	}
	if count != 0 {
		t.Fatalf("notes should cascade, got %d", count)
	}
}

func openCount(svc *Service, count *int64) error {
	return svc.repo.db.Model(&LeadNote{}).Count(count).Error
}

func TestWriteCSV(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	if _, err := svc.SubmitContact(ctx, ContactInput{FullName: "Max", Email: "max@example.com", Message: "Hallo"}); err != nil {
		t.Fatalf("seed lead: %v", err)
	}

	var buf strings.Builder
	if err := svc.WriteCSV(ctx, &buf); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("want header plus one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,type,full_name,email") {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if !strings.Contains(lines[1], "max@example.com") {
		t.Fatalf("row missing lead email: %q", lines[1])
	}
}
