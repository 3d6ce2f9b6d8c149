package services

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"storefront-api/internal/models"
)

// PromotionService owns discount codes
type PromotionService struct {
	mu         sync.RWMutex
	promotions []*models.Promotion
	now        func() time.Time
}

func NewPromotionService() *PromotionService {
	return &PromotionService{
		promotions: make([]*models.Promotion, 0),
		now:        time.Now,
	}
}

// Seed replaces the promotion set
func (s *PromotionService) Seed(promotions []models.Promotion) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.promotions = make([]*models.Promotion, 0, len(promotions))
	for _, p := range promotions {
		p := p
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.Code = strings.ToUpper(p.Code)
		s.promotions = append(s.promotions, &p)
	}
}

func (s *PromotionService) List() []models.Promotion {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Promotion, 0, len(s.promotions))
	for _, p := range s.promotions {
		result = append(result, *p)
	}
	return result
}

// Active returns promotions that are flagged active and inside their window at now
func (s *PromotionService) Active(now time.Time) []models.Promotion {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Promotion, 0)
	for _, p := range s.promotions {
		if p.ActiveAt(now) {
			result = append(result, *p)
		}
	}
	return result
}

// GetByCode looks a promotion up case-insensitively
func (s *PromotionService) GetByCode(code string) (models.Promotion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.promotions {
		if strings.EqualFold(p.Code, code) {
			return *p, nil
		}
	}
	return models.Promotion{}, notFound("promotion", code)
}

// ActiveByCode returns the promotion for code only if it is currently active
func (s *PromotionService) ActiveByCode(code string) (models.Promotion, error) {
	p, err := s.GetByCode(code)
	if err != nil {
		return models.Promotion{}, err
	}
	if !p.ActiveAt(s.now()) {
		return models.Promotion{}, invalid("promotion is not active",
			models.ErrorDetail{Field: "promotionCode", Issue: "is expired or disabled"})
	}
	return p, nil
}

func (s *PromotionService) Create(draft models.PromotionDraft) (models.Promotion, error) {
	draft.Code = strings.TrimSpace(draft.Code)
	if err := validateDraft("invalid promotion", draft); err != nil {
		return models.Promotion{}, err
	}

	p := models.Promotion{
		ID:        uuid.NewString(),
		Code:      strings.ToUpper(draft.Code),
		Name:      draft.Name,
		Discount:  float64(draft.Discount),
		Type:      draft.Type,
		StartDate: draft.StartDate,
		EndDate:   draft.EndDate,
		Active:    true,
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.promotions {
		if existing.Code == p.Code {
			return models.Promotion{}, invalid("invalid promotion",
				models.ErrorDetail{Field: "code", Issue: "already exists"})
		}
	}
	s.promotions = append(s.promotions, &p)

	slog.Info("Promotion created", "promotion_id", p.ID, "code", p.Code, "type", p.Type)
	return p, nil
}

// Update merges the fields present in patch
func (s *PromotionService) Update(id string, patch models.PromotionPatch) (models.Promotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var p *models.Promotion
	for _, candidate := range s.promotions {
		if candidate.ID == id {
			p = candidate
			break
		}
	}
	if p == nil {
		return models.Promotion{}, notFound("promotion", id)
	}

	next := *p
	if patch.Code != nil && *patch.Code != "" {
		next.Code = strings.ToUpper(*patch.Code)
	}
	if patch.Name != nil && *patch.Name != "" {
		next.Name = *patch.Name
	}
	if patch.Discount != nil {
		next.Discount = float64(*patch.Discount)
	}
	if patch.Type != nil {
		next.Type = *patch.Type
	}
	if patch.StartDate != nil {
		next.StartDate = *patch.StartDate
	}
	if patch.EndDate != nil {
		next.EndDate = *patch.EndDate
	}
	if patch.Active != nil {
		next.Active = *patch.Active
	}

	var details []models.ErrorDetail
	if next.Discount <= 0 {
		details = append(details, models.ErrorDetail{Field: "discount", Issue: "must be greater than 0"})
	}
	if next.Type != models.PromotionPercentage && next.Type != models.PromotionFixed {
		details = append(details, models.ErrorDetail{Field: "type", Issue: "must be one of: percentage fixed"})
	}
	if next.EndDate.Before(next.StartDate) {
		details = append(details, models.ErrorDetail{Field: "endDate", Issue: "must not be before StartDate"})
	}
	if len(details) > 0 {
		return models.Promotion{}, invalid("invalid promotion update", details...)
	}

	*p = next
	slog.Info("Promotion updated", "promotion_id", id, "code", p.Code, "active", p.Active)
	return *p, nil
}

func (s *PromotionService) Delete(id string) (models.Promotion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.promotions {
		if p.ID == id {
			s.promotions = append(s.promotions[:i], s.promotions[i+1:]...)
			slog.Info("Promotion deleted", "promotion_id", id, "code", p.Code)
			return *p, nil
		}
	}
	return models.Promotion{}, notFound("promotion", id)
}
