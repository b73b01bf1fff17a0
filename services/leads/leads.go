// Package leads records contact requests and newsletter sign-ups from the public site.
package leads

import (
	"context"
	"strings"
	"time"

	"github.com/meghashyamc/bioagents/db/store"
	"github.com/meghashyamc/bioagents/logger"
)

const (
	ContactsCollection    = "contact_submissions"
	SubscribersCollection = "newsletter_subscribers"

	fieldCreatedAt = "createdAt"

	DefaultListLimit = 50
	MaxListLimit     = 500
)

type Contact struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Message string `json:"message"`
}

// Sender delivers a validated contact request.
type Sender interface {
	Send(ctx context.Context, contact Contact) error
}

// StoreSender keeps contact requests in the document store and logs them for the
// sales inbox.
type StoreSender struct {
	logger logger.Logger
	db     store.DB
	now    func() time.Time
}

var _ Sender = (*StoreSender)(nil)

func NewStoreSender(logger logger.Logger, db store.DB) *StoreSender {
	return &StoreSender{logger: logger, db: db, now: time.Now}
}

func (s *StoreSender) Send(ctx context.Context, contact Contact) error {
	fields := map[string]any{
		"name":         contact.Name,
		"email":        contact.Email,
		"message":      contact.Message,
		fieldCreatedAt: store.Timestamp(s.now()),
	}
	if contact.Company != "" {
		fields["company"] = contact.Company
	}
	if contact.Phone != "" {
		fields["phone"] = contact.Phone
	}

	id, err := s.db.Write(ctx, ContactsCollection, fields, store.NewID())
	if err != nil {
		return err
	}

	s.logger.Info("contact request received", "id", id, "email", contact.Email, "company", contact.Company)
	return nil
}

type Service struct {
	logger logger.Logger
	sender Sender
	db     store.DB
	now    func() time.Time
}

func New(logger logger.Logger, sender Sender, db store.DB) *Service {
	return &Service{logger: logger, sender: sender, db: db, now: time.Now}
}

// SubmitContact expects a contact that already passed request validation.
func (s *Service) SubmitContact(ctx context.Context, contact Contact) error {
	contact.Name = strings.TrimSpace(contact.Name)
	contact.Email = strings.TrimSpace(contact.Email)
	contact.Company = strings.TrimSpace(contact.Company)
	contact.Phone = strings.TrimSpace(contact.Phone)
	contact.Message = strings.TrimSpace(contact.Message)

	if err := s.sender.Send(ctx, contact); err != nil {
		s.logger.Error("could not send contact request", "err", err.Error())
		return err
	}
	return nil
}

// Subscribe keys the subscriber by lowercased email so a repeated sign-up replaces
// the earlier one.
func (s *Service) Subscribe(ctx context.Context, email string) error {
	id := SubscriberID(email)
	fields := map[string]any{
		"email":        id,
		fieldCreatedAt: store.Timestamp(s.now()),
	}

	if _, err := s.db.Write(ctx, SubscribersCollection, fields, id); err != nil {
		s.logger.Error("could not save newsletter subscriber", "err", err.Error())
		return err
	}

	s.logger.Info("newsletter subscriber saved", "email", id)
	return nil
}

func SubscriberID(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) Contacts(ctx context.Context, limit int) ([]map[string]any, error) {
	return s.list(ctx, ContactsCollection, limit)
}

func (s *Service) Subscribers(ctx context.Context, limit int) ([]map[string]any, error) {
	return s.list(ctx, SubscribersCollection, limit)
}

func (s *Service) list(ctx context.Context, collection string, limit int) ([]map[string]any, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	documents, err := s.db.List(ctx, collection, store.ListOptions{Limit: limit, OrderBy: fieldCreatedAt})
	if err != nil {
		s.logger.Error("could not list documents", "collection", collection, "err", err.Error())
		return nil, err
	}

	items := make([]map[string]any, 0, len(documents))
	for _, document := range documents {
		item := map[string]any{"id": document.ID}
		for key, value := range document.Data {
			item[key] = value
		}
		items = append(items, item)
	}
	return items, nil
}
