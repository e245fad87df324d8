package chat

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Transaction runs fn against a repo bound to a single DB transaction. All
// writes belonging to one visitor submission go through here so a message
// and its system reply are observed together.
func (r *Repo) Transaction(ctx context.Context, fn func(tx *Repo) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repo{db: tx})
	})
}

func (r *Repo) CreateChat(ctx context.Context, c *Chat) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *Repo) GetChat(ctx context.Context, id string) (*Chat, error) {
	var c Chat
	if err := r.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetChatForUpdate reads a chat row under a row lock so concurrent visitor
// submissions against the same chat serialize on the onboarding step.
// SQLite has no FOR UPDATE; its single-writer transactions already give the
// same guarantee, so the locking clause is applied on MySQL only.
func (r *Repo) GetChatForUpdate(ctx context.Context, id string) (*Chat, error) {
	q := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "mysql" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var c Chat
	if err := q.First(&c, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) InsertMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListMessages returns the full ledger of a chat in creation order, ties on
// created_at broken by insertion order, with attachments nested.
func (r *Repo) ListMessages(ctx context.Context, chatID string) ([]Message, error) {
	var msgs []Message
	err := r.db.WithContext(ctx).
		Preload("Attachments", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Where("chat_id = ?", chatID).
		Order("created_at ASC, id ASC").
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

// ApplyTransition writes the onboarding step advance plus at most one
// captured contact field as a single row update.
func (r *Repo) ApplyTransition(ctx context.Context, chatID string, t Transition, now time.Time) error {
	updates := map[string]any{
		"onboarding_step": t.Next,
		"status":          StatusOpen,
		"last_message_at": now,
		"updated_at":      now,
	}
	if t.Name != nil {
		updates["visitor_name"] = *t.Name
	}
	if t.Email != nil {
		updates["visitor_email"] = *t.Email
	}
	if t.Phone != nil {
		updates["visitor_phone"] = *t.Phone
	}
	return r.db.WithContext(ctx).Model(&Chat{}).
		Where("id = ?", chatID).
		Updates(updates).Error
}

// Touch refreshes the activity timestamps and sets the awaiting-side status
// (open after a visitor message, pending after an admin message).
func (r *Repo) Touch(ctx context.Context, chatID string, status Status, now time.Time) error {
	return r.db.WithContext(ctx).Model(&Chat{}).
		Where("id = ?", chatID).
		Updates(map[string]any{
			"status":          status,
			"last_message_at": now,
			"updated_at":      now,
		}).Error
}

func (r *Repo) SetStatus(ctx context.Context, chatID string, status Status) error {
	res := r.db.WithContext(ctx).Model(&Chat{}).
		Where("id = ?", chatID).
		Updates(map[string]any{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListChats returns the admin inbox, most recently active first, optionally
// filtered by status and a name/email/phone search term.
func (r *Repo) ListChats(ctx context.Context, status Status, q string) ([]Summary, error) {
	query := r.db.WithContext(ctx).Table("chats AS c").
		Select(`c.id, c.visitor_name, c.visitor_email, c.visitor_phone, c.status, c.source_page,
			c.last_message_at, c.updated_at,
			(SELECT m.body FROM chat_messages m WHERE m.chat_id = c.id
			 ORDER BY m.created_at DESC, m.id DESC LIMIT 1) AS last_message`)

	if status != "" {
		query = query.Where("c.status = ?", status)
	}
	if q != "" {
		like := "%" + q + "%"
		query = query.Where("(c.visitor_name LIKE ? OR c.visitor_email LIKE ? OR c.visitor_phone LIKE ?)",
			like, like, like)
	}

	var out []Summary
	err := query.
		Order("COALESCE(c.last_message_at, c.updated_at) DESC").
		Scan(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteChats removes chats with their messages and attachment rows and
// returns the storage paths of the deleted attachments so the caller can
// unlink the blobs best-effort.
func (r *Repo) DeleteChats(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var storagePaths []string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		msgIDs := tx.Model(&Message{}).Select("id").Where("chat_id IN ?", ids)

		if err := tx.Model(&Attachment{}).
			Where("message_id IN (?)", msgIDs).
			Pluck("storage_path", &storagePaths).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id IN (?)", tx.Model(&Message{}).Select("id").Where("chat_id IN ?", ids)).
			Delete(&Attachment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chat_id IN ?", ids).Delete(&Message{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&Chat{}).Error
	})
	if err != nil {
		return nil, err
	}
	return storagePaths, nil
}

// GetAttachment resolves an attachment and the id of the chat that owns it
// through the parent message.
func (r *Repo) GetAttachment(ctx context.Context, id uint64) (*Attachment, string, error) {
	var a Attachment
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, "", err
	}
	var m Message
	if err := r.db.WithContext(ctx).First(&m, "id = ?", a.MessageID).Error; err != nil {
		return nil, "", err
	}
	return &a, m.ChatID, nil
}
