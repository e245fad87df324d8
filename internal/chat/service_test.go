package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/headlineagentur/webportal/internal/upload"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Chat{}, &Message{}, &Attachment{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	saver, err := upload.NewSaver(dir)
	if err != nil {
		t.Fatalf("new saver: %v", err)
	}
	return NewService(NewRepo(openTestDB(t)), saver), dir
}

func fileHeaders(t *testing.T, name, mimeType string, content []byte) []*multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename="%s"`, name))
	h.Set("Content-Type", mimeType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(32 << 20)
	if err != nil {
		t.Fatalf("read form: %v", err)
	}
	return form.File["files"]
}

func blobCount(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	err := filepath.Walk(dir, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			n++
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk upload dir: %v", err)
	}
	return n
}

func TestStartChatAppendsGreeting(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, token, err := svc.StartChat(ctx, "/Kontakt")
	if err != nil {
		t.Fatalf("start chat: %v", err)
	}
	if c.OnboardingStep != StepIntro || c.Status != StatusOpen {
		t.Fatalf("unexpected new chat state: step=%q status=%q", c.OnboardingStep, c.Status)
	}
	if !VerifyToken(token, c.TokenDigest) {
		t.Fatalf("returned token does not match stored digest")
	}
	if token == c.TokenDigest {
		t.Fatalf("raw token must never be stored")
	}

	msgs, err := svc.VisitorMessages(ctx, c.ID, token)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("expected 1 greeting message, got %d", len(msgs))
	}
	if msgs[0].SenderType != SenderAdmin || msgs[0].Body == nil || *msgs[0].Body != PromptGreeting {
		t.Fatalf("unexpected greeting: %+v", msgs[0])
	}
}

func TestOnboardingCollectsContactFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, token, err := svc.StartChat(ctx, "")
	if err != nil {
		t.Fatalf("start chat: %v", err)
	}

	// intro: any text advances, nothing captured
	msgs, err := svc.PostVisitorMessage(ctx, c.ID, token, "Hallo, ich brauche Hilfe.", nil)
	if err != nil {
		t.Fatalf("intro message: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected greeting + visitor + prompt, got %d messages", len(msgs))
	}

	// ask_name captures the name verbatim
	msgs, err = svc.PostVisitorMessage(ctx, c.ID, token, "Max Mustermann", nil)
	if err != nil {
		t.Fatalf("name message: %v", err)
	}
	if len(msgs) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(msgs))
	}
	cur, err := svc.repo.GetChat(ctx, c.ID)
	if err != nil {
		t.Fatalf("reload chat: %v", err)
	}
	if cur.VisitorName == nil || *cur.VisitorName != "Max Mustermann" {
		t.Fatalf("visitor_name not captured: %v", cur.VisitorName)
	}
	if cur.OnboardingStep != StepAskEmail {
		t.Fatalf("expected step ask_email, got %q", cur.OnboardingStep)
	}

	// email is normalized to lowercase
	if _, err = svc.PostVisitorMessage(ctx, c.ID, token, "Max@Example.COM", nil); err != nil {
		t.Fatalf("email message: %v", err)
	}
	cur, _ = svc.repo.GetChat(ctx, c.ID)
	if cur.VisitorEmail == nil || *cur.VisitorEmail != "max@example.com" {
		t.Fatalf("visitor_email not normalized: %v", cur.VisitorEmail)
	}

	// phone completes onboarding; status stays open
	if _, err = svc.PostVisitorMessage(ctx, c.ID, token, "+49 151 2345678", nil); err != nil {
		t.Fatalf("phone message: %v", err)
	}
	cur, _ = svc.repo.GetChat(ctx, c.ID)
	if cur.VisitorPhone == nil || *cur.VisitorPhone != "+49 151 2345678" {
		t.Fatalf("visitor_phone not captured: %v", cur.VisitorPhone)
	}
	if cur.OnboardingStep != StepDone {
		t.Fatalf("expected step done, got %q", cur.OnboardingStep)
	}
	if cur.Status != StatusOpen {
		t.Fatalf("completing onboarding must keep status open, got %q", cur.Status)
	}
}

func TestInvalidEmailRepromptsWithoutStateChange(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, token, _ := svc.StartChat(ctx, "")
	if _, err := svc.PostVisitorMessage(ctx, c.ID, token, "Hallo", nil); err != nil {
		t.Fatalf("intro: %v", err)
	}
	if _, err := svc.PostVisitorMessage(ctx, c.ID, token, "Max Mustermann", nil); err != nil {
		t.Fatalf("name: %v", err)
	}

	before, _ := svc.repo.ListMessages(ctx, c.ID)

	// repeated invalid submissions are idempotent on chat state
	for i := 0; i < 2; i++ {
		if _, err := svc.PostVisitorMessage(ctx, c.ID, token, "not-an-email", nil); err != nil {
			t.Fatalf("invalid email %d: %v", i, err)
		}
		cur, _ := svc.repo.GetChat(ctx, c.ID)
		if cur.OnboardingStep != StepAskEmail {
			t.Fatalf("step must stay ask_email, got %q", cur.OnboardingStep)
		}
		if cur.VisitorEmail != nil {
			t.Fatalf("invalid email must not be saved, got %v", cur.VisitorEmail)
		}
	}

	after, _ := svc.repo.ListMessages(ctx, c.ID)
	if len(after) != len(before)+4 {
		t.Fatalf("each invalid submission must add the input and a retry prompt, got %d -> %d", len(before), len(after))
	}
	last := after[len(after)-1]
	if last.SenderType != SenderAdmin || last.Body == nil || *last.Body != promptInvalidEmail {
		t.Fatalf("expected retry prompt, got %+v", last)
	}
}

func TestDoneIsTerminal(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, token := completeOnboarding(t, svc)
	before, _ := svc.repo.ListMessages(ctx, c.ID)

	msgs, err := svc.PostVisitorMessage(ctx, c.ID, token, "Noch eine Frage dazu.", nil)
	if err != nil {
		t.Fatalf("post after done: %v", err)
	}
	if len(msgs) != len(before)+1 {
		t.Fatalf("after done a visitor message must not produce a system reply: %d -> %d", len(before), len(msgs))
	}
	cur, _ := svc.repo.GetChat(ctx, c.ID)
	if cur.OnboardingStep != StepDone {
		t.Fatalf("done must never re-enter onboarding, got %q", cur.OnboardingStep)
	}
}

func TestVisitorTokenGate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, _, _ := svc.StartChat(ctx, "")

	if _, err := svc.VisitorMessages(ctx, c.ID, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("missing token must be unauthorized, got %v", err)
	}
	if _, err := svc.VisitorMessages(ctx, c.ID, "deadbeef"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong token read must be unauthorized, got %v", err)
	}
	if _, err := svc.PostVisitorMessage(ctx, c.ID, "deadbeef", "hi", nil); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("wrong token write must be unauthorized, got %v", err)
	}
	if _, err := svc.VisitorMessages(ctx, "00000000-0000-0000-0000-000000000000", "deadbeef"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("unknown chat must be a not-found, got %v", err)
	}
}

func TestEmptySubmissionRejected(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, token, _ := svc.StartChat(ctx, "")
	if _, err := svc.PostVisitorMessage(ctx, c.ID, token, "   ", nil); !errors.Is(err, ErrMessageRequired) {
		t.Fatalf("empty submission must be rejected, got %v", err)
	}
}

func TestAttachmentsOnlyBeforeDoneRejected(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	c, token, _ := svc.StartChat(ctx, "")
	files := fileHeaders(t, "lebenslauf.pdf", "application/pdf", []byte("%PDF-1.4"))

	_, err := svc.PostVisitorMessage(ctx, c.ID, token, "", files)
	if !errors.Is(err, ErrTextRequired) {
		t.Fatalf("attachments-only before done must be rejected, got %v", err)
	}
	if n := blobCount(t, dir); n != 0 {
		t.Fatalf("rejected upload must leave no blobs, found %d", n)
	}
	msgs, _ := svc.repo.ListMessages(ctx, c.ID)
	if len(msgs) != 1 {
		t.Fatalf("rejected submission must not be recorded, got %d messages", len(msgs))
	}
}

func TestAttachmentsAfterDone(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	c, token := completeOnboarding(t, svc)
	files := fileHeaders(t, "foto.png", "image/png", []byte{0x89, 0x50, 0x4e, 0x47})

	msgs, err := svc.PostVisitorMessage(ctx, c.ID, token, "", files)
	if err != nil {
		t.Fatalf("attachment-only after done: %v", err)
	}
	last := msgs[len(msgs)-1]
	if last.Body != nil {
		t.Fatalf("expected a body-less attachment message, got body=%v", last.Body)
	}
	if len(last.Attachments) != 1 {
		t.Fatalf("expected 1 attachment, got %d", len(last.Attachments))
	}
	a := last.Attachments[0]
	if a.OriginalName != "foto.png" || a.MimeType != "image/png" || a.SizeBytes != 4 {
		t.Fatalf("unexpected attachment metadata: %+v", a)
	}
	if n := blobCount(t, dir); n != 1 {
		t.Fatalf("expected 1 stored blob, found %d", n)
	}
}

func TestDisallowedUploadRejected(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	c, token := completeOnboarding(t, svc)
	before, _ := svc.repo.ListMessages(ctx, c.ID)

	files := fileHeaders(t, "virus.exe", "application/x-msdownload", []byte{0x4d, 0x5a})
	_, err := svc.PostVisitorMessage(ctx, c.ID, token, "anbei", files)
	if !errors.Is(err, upload.ErrTypeNotAllowed) {
		t.Fatalf("disallowed type must be rejected, got %v", err)
	}

	// allowed extension with a spoofed MIME type is rejected too
	files = fileHeaders(t, "report.pdf", "application/x-msdownload", []byte{0x4d, 0x5a})
	if _, err := svc.PostVisitorMessage(ctx, c.ID, token, "anbei", files); !errors.Is(err, upload.ErrTypeNotAllowed) {
		t.Fatalf("MIME type outside the allow-list must be rejected, got %v", err)
	}

	after, _ := svc.repo.ListMessages(ctx, c.ID)
	if len(after) != len(before) {
		t.Fatalf("rejected uploads must not be recorded: %d -> %d", len(before), len(after))
	}
	if n := blobCount(t, dir); n != 0 {
		t.Fatalf("rejected uploads must leave no blobs, found %d", n)
	}
}

func TestAdminMessageSetsPending(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, _, _ := svc.StartChat(ctx, "")

	msgs, err := svc.PostAdminMessage(ctx, c.ID, "sandra", "Guten Tag, wie kann ich helfen?", nil)
	if err != nil {
		t.Fatalf("admin message: %v", err)
	}
	last := msgs[len(msgs)-1]
	if last.SenderType != SenderAdmin || last.SenderLabel != "sandra" {
		t.Fatalf("unexpected admin message: %+v", last)
	}

	cur, _ := svc.repo.GetChat(ctx, c.ID)
	if cur.Status != StatusPending {
		t.Fatalf("admin message must set status pending, got %q", cur.Status)
	}
	if cur.OnboardingStep != StepIntro {
		t.Fatalf("admin message must not touch the onboarding step, got %q", cur.OnboardingStep)
	}
}

func TestSetStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, _, _ := svc.StartChat(ctx, "")

	if err := svc.SetStatus(ctx, c.ID, "archived"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("unknown status must be rejected, got %v", err)
	}
	if err := svc.SetStatus(ctx, c.ID, StatusClosed); err != nil {
		t.Fatalf("set status: %v", err)
	}
	cur, _ := svc.repo.GetChat(ctx, c.ID)
	if cur.Status != StatusClosed {
		t.Fatalf("expected closed, got %q", cur.Status)
	}
	if err := svc.SetStatus(ctx, "00000000-0000-0000-0000-000000000000", StatusOpen); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("unknown chat must be not-found, got %v", err)
	}
}

func TestDeleteChatsCascades(t *testing.T) {
	svc, dir := newTestService(t)
	ctx := context.Background()

	c, token := completeOnboarding(t, svc)
	files := fileHeaders(t, "notizen.txt", "text/plain", []byte("hallo"))
	if _, err := svc.PostVisitorMessage(ctx, c.ID, token, "", files); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if n := blobCount(t, dir); n != 1 {
		t.Fatalf("expected 1 blob before delete, found %d", n)
	}

	if err := svc.DeleteChats(ctx, []string{c.ID}); err != nil {
		t.Fatalf("delete chats: %v", err)
	}

	if _, err := svc.repo.GetChat(ctx, c.ID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("chat must be gone, got %v", err)
	}
	msgs, _ := svc.repo.ListMessages(ctx, c.ID)
	if len(msgs) != 0 {
		t.Fatalf("messages must cascade, found %d", len(msgs))
	}
	if n := blobCount(t, dir); n != 0 {
		t.Fatalf("attachment blobs must be unlinked, found %d", n)
	}

	// deleting again tolerates missing chats and files
	if err := svc.DeleteChats(ctx, []string{c.ID}); err != nil {
		t.Fatalf("second delete must be a no-op, got %v", err)
	}
}

func TestAttachmentDownloadGate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, token := completeOnboarding(t, svc)
	files := fileHeaders(t, "foto.jpg", "image/jpeg", []byte{0xff, 0xd8})
	msgs, err := svc.PostVisitorMessage(ctx, c.ID, token, "", files)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	attID := msgs[len(msgs)-1].Attachments[0].ID

	if _, err := svc.AttachmentForDownload(ctx, attID, true, ""); err != nil {
		t.Fatalf("admin download must pass: %v", err)
	}
	if _, err := svc.AttachmentForDownload(ctx, attID, false, token); err != nil {
		t.Fatalf("owner download must pass: %v", err)
	}
	if _, err := svc.AttachmentForDownload(ctx, attID, false, "deadbeef"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("foreign token must be unauthorized, got %v", err)
	}
	if _, err := svc.AttachmentForDownload(ctx, attID, false, ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("missing token must be unauthorized, got %v", err)
	}
	if _, err := svc.AttachmentForDownload(ctx, 99999, true, ""); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("unknown attachment must be not-found, got %v", err)
	}
}

func TestMessagesListedInCreationOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, token := completeOnboarding(t, svc)
	for i := 0; i < 3; i++ {
		if _, err := svc.PostVisitorMessage(ctx, c.ID, token, fmt.Sprintf("msg %d", i), nil); err != nil {
			t.Fatalf("post %d: %v", i, err)
		}
	}

	msgs, err := svc.VisitorMessages(ctx, c.ID, token)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i := 1; i < len(msgs); i++ {
		if msgs[i].ID <= msgs[i-1].ID {
			t.Fatalf("messages out of creation order at %d: %d <= %d", i, msgs[i].ID, msgs[i-1].ID)
		}
	}
	for _, m := range msgs {
		if m.Body == nil && len(m.Attachments) == 0 {
			t.Fatalf("message %d has neither body nor attachments", m.ID)
		}
	}
}

func completeOnboarding(t *testing.T, svc *Service) (*Chat, string) {
	t.Helper()
	ctx := context.Background()
	c, token, err := svc.StartChat(ctx, "")
	if err != nil {
		t.Fatalf("start chat: %v", err)
	}
	for _, text := range []string{"Hallo", "Max Mustermann", "max@example.com", "+49 151 2345678"} {
		if _, err := svc.PostVisitorMessage(ctx, c.ID, token, text, nil); err != nil {
			t.Fatalf("onboarding %q: %v", text, err)
		}
	}
	cur, err := svc.repo.GetChat(ctx, c.ID)
	if err != nil {
		t.Fatalf("reload chat: %v", err)
	}
	if cur.OnboardingStep != StepDone {
		t.Fatalf("expected onboarding done, got %q", cur.OnboardingStep)
	}
	return cur, token
}

// shiftChatOnNextRead runs fn right after the next read of the chats table,
// which lands between PostVisitorMessage's unlocked pre-check and its
// transaction. That is the window a concurrent submission can commit into.
func shiftChatOnNextRead(t *testing.T, gdb *gorm.DB, fn func()) {
	t.Helper()
	armed := true
	err := gdb.Callback().Query().After("gorm:query").Register("shift_chat_once", func(db *gorm.DB) {
		if !armed || db.Statement.Table != "chats" {
			return
		}
		armed = false
		fn()
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
	t.Cleanup(func() { _ = gdb.Callback().Query().Remove("shift_chat_once") })
}

func TestSubmissionValidatesAgainstStepAdvancedConcurrently(t *testing.T) {
	svc, _ := newTestService(t)
	gdb := svc.repo.db
	ctx := context.Background()

	c, token, err := svc.StartChat(ctx, "")
	if err != nil {
		t.Fatalf("start chat: %v", err)
	}
	for _, text := range []string{"Hallo", "Max Mustermann"} {
		if _, err := svc.PostVisitorMessage(ctx, c.ID, token, text, nil); err != nil {
			t.Fatalf("onboarding %q: %v", text, err)
		}
	}

	// a second tab answers the email question first
	shiftChatOnNextRead(t, gdb, func() {
		res := gdb.Exec("UPDATE chats SET onboarding_step = ?, visitor_email = ? WHERE id = ?",
			StepAskPhone, "erste@example.com", c.ID)
		if res.Error != nil {
			t.Fatalf("shift step: %v", res.Error)
		}
	})

	msgs, err := svc.PostVisitorMessage(ctx, c.ID, token, "max@example.com", nil)
	if err != nil {
		t.Fatalf("post against advanced step: %v", err)
	}
	last := msgs[len(msgs)-1]
	if last.Body == nil || *last.Body != promptInvalidPhone {
		t.Fatalf("expected the phone re-prompt, got %+v", last)
	}

	cur, err := svc.repo.GetChat(ctx, c.ID)
	if err != nil {
		t.Fatalf("reload chat: %v", err)
	}
	if cur.OnboardingStep != StepAskPhone {
		t.Fatalf("step must follow the locked read, got %q", cur.OnboardingStep)
	}
	if cur.VisitorEmail == nil || *cur.VisitorEmail != "erste@example.com" {
		t.Fatalf("first submission's email must survive, got %v", cur.VisitorEmail)
	}
	if cur.VisitorPhone != nil {
		t.Fatalf("no phone must be captured, got %q", *cur.VisitorPhone)
	}
}

func TestAttachmentsOnlyReValidatedUnderLock(t *testing.T) {
	svc, dir := newTestService(t)
	gdb := svc.repo.db
	ctx := context.Background()

	c, token := completeOnboarding(t, svc)
	before, err := svc.repo.ListMessages(ctx, c.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}

	// the row changes underneath after the pre-check read it as done
	shiftChatOnNextRead(t, gdb, func() {
		res := gdb.Exec("UPDATE chats SET onboarding_step = ? WHERE id = ?", StepAskPhone, c.ID)
		if res.Error != nil {
			t.Fatalf("shift step: %v", res.Error)
		}
	})

	files := fileHeaders(t, "foto.png", "image/png", []byte{0x89, 0x50, 0x4e, 0x47})
	_, err = svc.PostVisitorMessage(ctx, c.ID, token, "", files)
	if !errors.Is(err, ErrTextRequired) {
		t.Fatalf("locked re-read must reject the attachments-only submission, got %v", err)
	}
	if n := blobCount(t, dir); n != 0 {
		t.Fatalf("rejected submission must leave no blobs, found %d", n)
	}
	after, err := svc.repo.ListMessages(ctx, c.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(after) != len(before) {
		t.Fatalf("rejected submission must not be recorded: %d -> %d", len(before), len(after))
	}
}
