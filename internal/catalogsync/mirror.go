package catalogsync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"storefront-api/internal/client"
	"storefront-api/internal/localstore"
	"storefront-api/internal/models"
)

const (
	// StorageKey is where the mirrored catalog is persisted
	StorageKey = "catalog"

	DefaultBatchLimit             = 100
	DefaultWaitSeconds            = 20
	DefaultRetryInterval          = 5 * time.Second
	DefaultMaxConsecutiveFailures = 3
)

// ErrOutOfSync means the event log can no longer be replayed from the local offset
var ErrOutOfSync = errors.New("event log out of sync")

// CatalogAPI is the part of the REST client the mirror needs
type CatalogAPI interface {
	ListProductsWithOffset(ctx context.Context) ([]models.Product, int64, error)
	GetEvents(ctx context.Context, offset int64, limit, waitSeconds int) (*client.EventsPage, error)
}

// Change describes one event applied to the mirror. Product is nil for deletions.
type Change struct {
	Offset    int64
	EventType string
	ProductID string
	Product   *models.Product
}

// SyncStatus reports the health of the mirror
type SyncStatus struct {
	LastSyncSuccess bool
	LastSyncTime    time.Time
	NextOffset      int64
	ProductCount    int
	FullSyncs       int
	ErrorMessage    string
}

// MirrorConfig holds configuration for the catalog mirror
type MirrorConfig struct {
	BatchLimit             int
	WaitSeconds            int
	RetryInterval          time.Duration
	MaxConsecutiveFailures int

	// OnChange is called for every applied product event after the state lock is released
	OnChange func(Change)
	Logger   *slog.Logger
}

type persistedCatalog struct {
	Products     map[string]models.Product `json:"products"`
	NextOffset   int64                     `json:"nextOffset"`
	LastSyncTime time.Time                 `json:"lastSyncTime"`
	Synced       bool                      `json:"synced"`
}

// Mirror keeps a local copy of the catalog current by replaying the server event log
type Mirror struct {
	api    CatalogAPI
	store  localstore.Store
	config MirrorConfig
	logger *slog.Logger

	syncMu sync.Mutex

	mu                  sync.RWMutex
	state               persistedCatalog
	status              SyncStatus
	consecutiveFailures int
}

// NewMirror creates a catalog mirror. Call Load to restore persisted state.
func NewMirror(api CatalogAPI, store localstore.Store, config MirrorConfig) *Mirror {
	if config.BatchLimit <= 0 {
		config.BatchLimit = DefaultBatchLimit
	}
	if config.WaitSeconds < 0 {
		config.WaitSeconds = 0
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = DefaultRetryInterval
	}
	if config.MaxConsecutiveFailures <= 0 {
		config.MaxConsecutiveFailures = DefaultMaxConsecutiveFailures
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Mirror{
		api:    api,
		store:  store,
		config: config,
		logger: logger,
		state:  persistedCatalog{Products: map[string]models.Product{}},
	}
}

// Load restores the persisted catalog. Corrupt data is discarded and forces a full sync.
func (m *Mirror) Load() int {
	var state persistedCatalog
	if _, err := localstore.GetJSON(m.store, StorageKey, &state); err != nil {
		m.logger.Error("Failed to load catalog from local store, starting empty", "error", err)
		state = persistedCatalog{}
	}
	if state.Products == nil {
		state.Products = map[string]models.Product{}
		state.Synced = false
	}

	m.mu.Lock()
	m.state = state
	m.status.NextOffset = state.NextOffset
	m.status.LastSyncTime = state.LastSyncTime
	m.status.ProductCount = len(state.Products)
	m.mu.Unlock()

	m.logger.Debug("Catalog mirror loaded",
		"products", len(state.Products),
		"next_offset", state.NextOffset,
		"synced", state.Synced)
	return len(state.Products)
}

// FullSync replaces the mirror with a fresh listing and resumes the event log from its offset
func (m *Mirror) FullSync(ctx context.Context) error {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()
	return m.fullSyncLocked(ctx)
}

func (m *Mirror) fullSyncLocked(ctx context.Context) error {
	startTime := time.Now()

	products, offset, err := m.api.ListProductsWithOffset(ctx)
	if err != nil {
		m.recordFailure(err)
		return fmt.Errorf("failed to list products: %w", err)
	}

	state := persistedCatalog{
		Products:     make(map[string]models.Product, len(products)),
		NextOffset:   offset,
		LastSyncTime: time.Now().UTC(),
		Synced:       true,
	}
	for _, p := range products {
		state.Products[p.ID] = p
	}

	m.mu.Lock()
	m.state = state
	m.consecutiveFailures = 0
	m.status = SyncStatus{
		LastSyncSuccess: true,
		LastSyncTime:    state.LastSyncTime,
		NextOffset:      offset,
		ProductCount:    len(products),
		FullSyncs:       m.status.FullSyncs + 1,
	}
	m.mu.Unlock()

	m.persist(state)

	m.logger.Info("Catalog full sync completed",
		"products", len(products),
		"event_offset", offset,
		"duration", time.Since(startTime))
	return nil
}

// Poll fetches one batch of events, long polling up to the configured wait, and applies it.
// An unsynced mirror performs a full sync instead. It returns the number of events consumed.
func (m *Mirror) Poll(ctx context.Context) (int, error) {
	m.syncMu.Lock()
	defer m.syncMu.Unlock()

	m.mu.RLock()
	synced := m.state.Synced
	from := m.state.NextOffset
	m.mu.RUnlock()

	if !synced {
		return 0, m.fullSyncLocked(ctx)
	}

	page, err := m.api.GetEvents(ctx, from, m.config.BatchLimit, m.config.WaitSeconds)
	if err != nil {
		m.recordFailure(err)
		return 0, fmt.Errorf("failed to get events: %w", err)
	}

	if err := validatePage(page, from); err != nil {
		m.logger.Warn("Event log inconsistency, falling back to full sync", "from_offset", from, "error", err)
		if syncErr := m.fullSyncLocked(ctx); syncErr != nil {
			return 0, fmt.Errorf("fallback full sync failed: %w", syncErr)
		}
		return 0, nil
	}

	changes, err := m.apply(page)
	if err != nil {
		m.recordFailure(err)
		return 0, err
	}

	if len(page.Events) > 0 {
		m.logger.Debug("Applied catalog events",
			"count", len(page.Events),
			"from_offset", from,
			"to_offset", page.NextOffset)
	}
	if m.config.OnChange != nil {
		for _, change := range changes {
			m.config.OnChange(change)
		}
	}
	return len(page.Events), nil
}

// validatePage rejects pages that cannot continue from the expected offset
func validatePage(page *client.EventsPage, expected int64) error {
	if page.NextOffset < expected {
		return fmt.Errorf("%w: next offset %d is lower than expected %d, server may have been reset",
			ErrOutOfSync, page.NextOffset, expected)
	}
	for i, event := range page.Events {
		if event.Offset != expected+int64(i) {
			return fmt.Errorf("%w: expected offset %d, got %d",
				ErrOutOfSync, expected+int64(i), event.Offset)
		}
	}
	return nil
}

// apply folds a validated page into the mirror and persists it once
func (m *Mirror) apply(page *client.EventsPage) ([]Change, error) {
	changes := make([]Change, 0, len(page.Events))
	decoded := make(map[int]models.Product, len(page.Events))
	for i, event := range page.Events {
		switch event.EventType {
		case models.EventProductCreated, models.EventProductUpdated, models.EventFavoriteToggled:
			var p models.Product
			if err := json.Unmarshal(event.Data, &p); err != nil {
				return nil, fmt.Errorf("failed to decode %s event at offset %d: %w", event.EventType, event.Offset, err)
			}
			if p.ID == "" {
				p.ID = event.ResourceID
			}
			decoded[i] = p
		}
	}

	m.mu.Lock()
	for i, event := range page.Events {
		switch event.EventType {
		case models.EventProductDeleted:
			delete(m.state.Products, event.ResourceID)
			changes = append(changes, Change{Offset: event.Offset, EventType: event.EventType, ProductID: event.ResourceID})
		default:
			p, ok := decoded[i]
			if !ok {
				continue
			}
			m.state.Products[p.ID] = p
			snapshot := p.Clone()
			changes = append(changes, Change{Offset: event.Offset, EventType: event.EventType, ProductID: p.ID, Product: &snapshot})
		}
	}
	m.state.NextOffset = page.NextOffset
	m.state.LastSyncTime = time.Now().UTC()
	m.consecutiveFailures = 0
	m.status.LastSyncSuccess = true
	m.status.LastSyncTime = m.state.LastSyncTime
	m.status.NextOffset = page.NextOffset
	m.status.ProductCount = len(m.state.Products)
	m.status.ErrorMessage = ""
	state := m.cloneStateLocked()
	m.mu.Unlock()

	if len(page.Events) > 0 {
		m.persist(state)
	}
	return changes, nil
}

func (m *Mirror) cloneStateLocked() persistedCatalog {
	c := m.state
	c.Products = make(map[string]models.Product, len(m.state.Products))
	for id, p := range m.state.Products {
		c.Products[id] = p.Clone()
	}
	return c
}

// persist writes the mirror state. A failed write keeps the in-memory copy.
func (m *Mirror) persist(state persistedCatalog) {
	if err := localstore.SetJSON(m.store, StorageKey, state); err != nil {
		m.logger.Warn("Failed to persist catalog mirror", "error", err, "next_offset", state.NextOffset)
	}
}

func (m *Mirror) recordFailure(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.consecutiveFailures++
	m.status.LastSyncSuccess = false
	m.status.ErrorMessage = err.Error()
}

// Run polls until ctx is done. After too many consecutive failures the next attempt is a full sync.
func (m *Mirror) Run(ctx context.Context) {
	m.logger.Info("Catalog mirror started",
		"batch_limit", m.config.BatchLimit,
		"wait_seconds", m.config.WaitSeconds)

	for {
		applied, err := m.Poll(ctx)
		if ctx.Err() != nil {
			m.logger.Info("Catalog mirror stopped")
			return
		}

		idle := applied == 0 && m.config.WaitSeconds == 0
		if err != nil {
			m.mu.Lock()
			exhausted := m.consecutiveFailures >= m.config.MaxConsecutiveFailures
			if exhausted {
				m.state.Synced = false
			}
			failures := m.consecutiveFailures
			m.mu.Unlock()

			m.logger.Error("Catalog sync failed",
				"error", err,
				"consecutive_failures", failures,
				"full_sync_next", exhausted)
			idle = true
		}
		if !idle {
			continue
		}

		select {
		case <-ctx.Done():
			m.logger.Info("Catalog mirror stopped")
			return
		case <-time.After(m.config.RetryInterval):
		}
	}
}

// Products returns the mirrored catalog ordered by name
func (m *Mirror) Products() []models.Product {
	m.mu.RLock()
	products := make([]models.Product, 0, len(m.state.Products))
	for _, p := range m.state.Products {
		products = append(products, p.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(products, func(i, j int) bool {
		if products[i].Name != products[j].Name {
			return products[i].Name < products[j].Name
		}
		return products[i].ID < products[j].ID
	})
	return products
}

// Get returns one mirrored product
func (m *Mirror) Get(id string) (models.Product, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.state.Products[id]
	if !ok {
		return models.Product{}, false
	}
	return p.Clone(), true
}

// Status returns a copy of the current sync status
func (m *Mirror) Status() SyncStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}
