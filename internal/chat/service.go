package chat

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/headlineagentur/webportal/internal/upload"
	"gorm.io/gorm"
)

var (
	// ErrUnauthorized: token missing or not matching the chat's digest.
	ErrUnauthorized = errors.New("invalid chat access")
	// ErrMessageRequired: neither body text nor files were submitted.
	ErrMessageRequired = errors.New("message or file required")
	// ErrTextRequired: attachments-only submission before onboarding is done.
	ErrTextRequired = errors.New("text reply required during onboarding")
	// ErrInvalidStatus: status outside open/pending/closed.
	ErrInvalidStatus = errors.New("invalid chat status")
)

const (
	labelSupport = "Support"
	labelVisitor = "Besucher"
)

type Service struct {
	repo    *Repo
	uploads *upload.Saver
}

func NewService(repo *Repo, uploads *upload.Saver) *Service {
	return &Service{repo: repo, uploads: uploads}
}

// StartChat creates a session at step intro with a fresh access token and
// appends the greeting. The raw token is returned to the caller exactly
// once; only its digest is stored.
func (s *Service) StartChat(ctx context.Context, sourcePage string) (*Chat, string, error) {
	raw, digest, err := IssueToken()
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	c := &Chat{
		ID:             uuid.NewString(),
		TokenDigest:    digest,
		OnboardingStep: StepIntro,
		Status:         StatusOpen,
		LastMessageAt:  &now,
	}
	if sp := strings.TrimSpace(sourcePage); sp != "" {
		c.SourcePage = &sp
	}

	err = s.repo.Transaction(ctx, func(tx *Repo) error {
		if err := tx.CreateChat(ctx, c); err != nil {
			return err
		}
		greeting := PromptGreeting
		return tx.InsertMessage(ctx, &Message{
			ChatID:      c.ID,
			SenderType:  SenderAdmin,
			SenderLabel: labelSupport,
			Body:        &greeting,
		})
	})
	if err != nil {
		return nil, "", err
	}
	return c, raw, nil
}

// resolveVisitorChat is the visitor side of the access gateway. An empty
// token fails immediately without a store lookup; an unknown chat surfaces
// as gorm.ErrRecordNotFound so callers can distinguish 404 from 401.
func (s *Service) resolveVisitorChat(ctx context.Context, chatID, token string) (*Chat, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	c, err := s.repo.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !VerifyToken(token, c.TokenDigest) {
		return nil, ErrUnauthorized
	}
	return c, nil
}

func (s *Service) VisitorMessages(ctx context.Context, chatID, token string) ([]Message, error) {
	if _, err := s.resolveVisitorChat(ctx, chatID, token); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, chatID)
}

// PostVisitorMessage records a visitor submission and runs the onboarding
// engine. The visitor message, the step advance and the system reply are
// committed in one transaction under a row lock on the chat, so two
// concurrent submissions against the same step serialize and the second one
// re-validates against the advanced step.
func (s *Service) PostVisitorMessage(ctx context.Context, chatID, token, body string, files []*multipart.FileHeader) ([]Message, error) {
	chatRow, err := s.resolveVisitorChat(ctx, chatID, token)
	if err != nil {
		return nil, err
	}

	body = strings.TrimSpace(body)
	if body == "" && len(files) == 0 {
		return nil, ErrMessageRequired
	}
	if chatRow.OnboardingStep != StepDone && body == "" {
		// files alone cannot answer an onboarding question
		return nil, ErrTextRequired
	}

	saved, err := s.uploads.SaveAll(files, "chat")
	if err != nil {
		return nil, err
	}

	err = s.repo.Transaction(ctx, func(tx *Repo) error {
		current, err := tx.GetChatForUpdate(ctx, chatID)
		if err != nil {
			return err
		}
		// step may have advanced since the pre-check; re-validate under lock
		if current.OnboardingStep != StepDone && body == "" {
			return ErrTextRequired
		}

		msg := &Message{
			ChatID:      chatID,
			SenderType:  SenderVisitor,
			SenderLabel: labelVisitor,
			Attachments: attachmentRows(saved),
		}
		if body != "" {
			msg.Body = &body
		}
		if err := tx.InsertMessage(ctx, msg); err != nil {
			return err
		}

		now := time.Now()
		t, active := Advance(current.OnboardingStep, body)
		if !active {
			return tx.Touch(ctx, chatID, StatusOpen, now)
		}
		if err := tx.ApplyTransition(ctx, chatID, t, now); err != nil {
			return err
		}
		prompt := t.Prompt
		return tx.InsertMessage(ctx, &Message{
			ChatID:      chatID,
			SenderType:  SenderAdmin,
			SenderLabel: labelSupport,
			Body:        &prompt,
		})
	})
	if err != nil {
		s.uploads.Remove(storagePaths(saved)...)
		return nil, err
	}

	return s.repo.ListMessages(ctx, chatID)
}

// PostAdminMessage appends an admin reply, bypassing onboarding, and flags
// the chat as awaiting the visitor.
func (s *Service) PostAdminMessage(ctx context.Context, chatID, senderLabel, body string, files []*multipart.FileHeader) ([]Message, error) {
	if _, err := s.repo.GetChat(ctx, chatID); err != nil {
		return nil, err
	}

	body = strings.TrimSpace(body)
	if body == "" && len(files) == 0 {
		return nil, ErrMessageRequired
	}
	if senderLabel == "" {
		senderLabel = labelSupport
	}

	saved, err := s.uploads.SaveAll(files, "chat")
	if err != nil {
		return nil, err
	}

	err = s.repo.Transaction(ctx, func(tx *Repo) error {
		msg := &Message{
			ChatID:      chatID,
			SenderType:  SenderAdmin,
			SenderLabel: senderLabel,
			Attachments: attachmentRows(saved),
		}
		if body != "" {
			msg.Body = &body
		}
		if err := tx.InsertMessage(ctx, msg); err != nil {
			return err
		}
		return tx.Touch(ctx, chatID, StatusPending, time.Now())
	})
	if err != nil {
		s.uploads.Remove(storagePaths(saved)...)
		return nil, err
	}

	return s.repo.ListMessages(ctx, chatID)
}

func (s *Service) ListChats(ctx context.Context, status Status, q string) ([]Summary, error) {
	return s.repo.ListChats(ctx, status, q)
}

func (s *Service) AdminChat(ctx context.Context, chatID string) (*Chat, []Message, error) {
	c, err := s.repo.GetChat(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}
	msgs, err := s.repo.ListMessages(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}
	return c, msgs, nil
}

func (s *Service) SetStatus(ctx context.Context, chatID string, status Status) error {
	if !ValidStatus(status) {
		return ErrInvalidStatus
	}
	return s.repo.SetStatus(ctx, chatID, status)
}

// DeleteChats bulk-deletes chats with a cascade over messages and
// attachments, then unlinks the attachment blobs best-effort.
func (s *Service) DeleteChats(ctx context.Context, ids []string) error {
	storagePaths, err := s.repo.DeleteChats(ctx, ids)
	if err != nil {
		return err
	}
	s.uploads.Remove(storagePaths...)
	return nil
}

// AttachmentForDownload applies the admin-or-owner rule: admins always pass,
// visitors must hold the token of the chat that owns the attachment.
func (s *Service) AttachmentForDownload(ctx context.Context, attachmentID uint64, isAdmin bool, token string) (*Attachment, error) {
	a, chatID, err := s.repo.GetAttachment(ctx, attachmentID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		if _, err := s.resolveVisitorChat(ctx, chatID, token); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUnauthorized
			}
			return nil, err
		}
	}
	return a, nil
}

func (s *Service) AttachmentPath(a *Attachment) string {
	return s.uploads.AbsPath(a.StoragePath)
}

func attachmentRows(saved []upload.SavedFile) []Attachment {
	if len(saved) == 0 {
		return nil
	}
	out := make([]Attachment, 0, len(saved))
	for _, sf := range saved {
		out = append(out, Attachment{
			OriginalName: sf.OriginalName,
			MimeType:     sf.MimeType,
			SizeBytes:    sf.SizeBytes,
			StoragePath:  sf.StoragePath,
		})
	}
	return out
}

func storagePaths(saved []upload.SavedFile) []string {
	out := make([]string, 0, len(saved))
	for _, sf := range saved {
		out = append(out, sf.StoragePath)
	}
	return out
}
