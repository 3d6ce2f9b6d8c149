package services

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront-api/internal/models"
)

// MessageService owns contact-form submissions
type MessageService struct {
	mu       sync.RWMutex
	messages []*models.Message
	now      func() time.Time
}

func NewMessageService() *MessageService {
	return &MessageService{
		messages: make([]*models.Message, 0),
		now:      time.Now,
	}
}

func (s *MessageService) Seed(messages []models.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = make([]*models.Message, 0, len(messages))
	for _, m := range messages {
		m := m
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if m.Status == "" {
			m.Status = models.MessageUnread
		}
		s.messages = append(s.messages, &m)
	}
}

func (s *MessageService) List() []models.Message {
	return s.filter(func(models.Message) bool { return true })
}

func (s *MessageService) Unread() []models.Message {
	return s.filter(func(m models.Message) bool { return m.Status == models.MessageUnread })
}

func (s *MessageService) filter(keep func(models.Message) bool) []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Message, 0, len(s.messages))
	for _, m := range s.messages {
		if keep(*m) {
			result = append(result, *m)
		}
	}
	return result
}

func (s *MessageService) Get(id string) (models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.messages {
		if m.ID == id {
			return *m, nil
		}
	}
	return models.Message{}, notFound("message", id)
}

// Create stores a new unread message
func (s *MessageService) Create(draft models.MessageDraft) (models.Message, error) {
	draft.Email = strings.TrimSpace(draft.Email)
	if err := validateDraft("invalid message", draft); err != nil {
		return models.Message{}, err
	}

	m := models.Message{
		ID:      uuid.NewString(),
		Name:    draft.Name,
		Email:   draft.Email,
		Phone:   draft.Phone,
		Subject: draft.Subject,
		Message: draft.Message,
		Date:    s.now().UTC(),
		Status:  models.MessageUnread,
	}

	s.mu.Lock()
	s.messages = append(s.messages, &m)
	s.mu.Unlock()

	slog.Info("Message received", "message_id", m.ID, "subject", m.Subject)
	return m, nil
}

// MarkRead flags a message as read
func (s *MessageService) MarkRead(id string) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, m := range s.messages {
		if m.ID == id {
			m.Status = models.MessageRead
			return *m, nil
		}
	}
	return models.Message{}, notFound("message", id)
}

func (s *MessageService) Delete(id string) (models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, m := range s.messages {
		if m.ID == id {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			slog.Info("Message deleted", "message_id", id)
			return *m, nil
		}
	}
	return models.Message{}, notFound("message", id)
}
