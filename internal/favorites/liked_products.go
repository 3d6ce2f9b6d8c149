package favorites

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"storefront-api/internal/localstore"
	"storefront-api/internal/models"
)

var ErrNotSignedIn = errors.New("sign in to like products")

// FavoriteAPI mirrors a like on the server
type FavoriteAPI interface {
	ToggleFavorite(ctx context.Context, productID, userID string, add bool) (*models.Product, error)
}

// StorageKey is the local store key holding userID's liked product ids
func StorageKey(userID string) string {
	return "likedProducts:" + userID
}

// LikedProducts is the signed-in shopper's local list of liked product ids
type LikedProducts struct {
	mu     sync.Mutex
	api    FavoriteAPI
	store  localstore.Store
	logger *slog.Logger
}

func NewLikedProducts(api FavoriteAPI, store localstore.Store, logger *slog.Logger) *LikedProducts {
	if logger == nil {
		logger = slog.Default()
	}
	return &LikedProducts{api: api, store: store, logger: logger}
}

// List returns userID's liked product ids. Corrupt data reads as empty.
func (l *LikedProducts) List(userID string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(userID)
}

// IsLiked reports whether userID likes productID
func (l *LikedProducts) IsLiked(userID, productID string) bool {
	for _, id := range l.List(userID) {
		if id == productID {
			return true
		}
	}
	return false
}

// Toggle flips productID in userID's list, persists it and mirrors the change on the
// server. A failed server call is logged; the local state is kept. Returns the new state.
func (l *LikedProducts) Toggle(ctx context.Context, userID, productID string) (bool, error) {
	if userID == "" {
		return false, ErrNotSignedIn
	}

	l.mu.Lock()
	ids := l.load(userID)
	liked := false
	kept := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		if id == productID {
			liked = true
			continue
		}
		kept = append(kept, id)
	}
	if !liked {
		kept = append(kept, productID)
	}
	err := localstore.SetJSON(l.store, StorageKey(userID), kept)
	l.mu.Unlock()
	if err != nil {
		return liked, err
	}

	nowLiked := !liked
	if l.api != nil {
		if _, apiErr := l.api.ToggleFavorite(ctx, productID, userID, nowLiked); apiErr != nil {
			l.logger.Warn("Favorite sync failed", "product_id", productID, "user_id", userID, "error", apiErr)
		}
	}

	l.logger.Debug("Liked products updated", "product_id", productID, "user_id", userID, "liked", nowLiked)
	return nowLiked, nil
}

func (l *LikedProducts) load(userID string) []string {
	if userID == "" {
		return []string{}
	}
	var ids []string
	if _, err := localstore.GetJSON(l.store, StorageKey(userID), &ids); err != nil {
		l.logger.Error("Failed to read liked products", "user_id", userID, "error", err)
		return []string{}
	}
	if ids == nil {
		ids = []string{}
	}
	return ids
}
