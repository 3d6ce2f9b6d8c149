package favorites

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-api/internal/localstore"
	"storefront-api/internal/logging"
	"storefront-api/internal/models"
)

type call struct {
	productID, userID string
	add               bool
}

type fakeAPI struct {
	calls []call
	err   error
}

func (f *fakeAPI) ToggleFavorite(ctx context.Context, productID, userID string, add bool) (*models.Product, error) {
	f.calls = append(f.calls, call{productID, userID, add})
	if f.err != nil {
		return nil, f.err
	}
	return &models.Product{ID: productID}, nil
}

func TestToggle(t *testing.T) {
	api := &fakeAPI{}
	liked := NewLikedProducts(api, localstore.NewMemoryStore(), logging.Discard())
	ctx := context.Background()

	state, err := liked.Toggle(ctx, "u1", "polo")
	require.NoError(t, err)
	assert.True(t, state)
	assert.True(t, liked.IsLiked("u1", "polo"))

	state, err = liked.Toggle(ctx, "u1", "polo")
	require.NoError(t, err)
	assert.False(t, state)
	assert.Empty(t, liked.List("u1"))

	assert.Equal(t, []call{{"polo", "u1", true}, {"polo", "u1", false}}, api.calls)
}

func TestToggle_NamespacedPerUser(t *testing.T) {
	store := localstore.NewMemoryStore()
	liked := NewLikedProducts(&fakeAPI{}, store, logging.Discard())

	_, err := liked.Toggle(context.Background(), "u1", "polo")
	require.NoError(t, err)

	assert.Equal(t, []string{"polo"}, liked.List("u1"))
	assert.Empty(t, liked.List("u2"))
	_, ok, _ := store.Get("likedProducts:u1")
	assert.True(t, ok)
}

func TestToggle_RequiresUser(t *testing.T) {
	api := &fakeAPI{}
	liked := NewLikedProducts(api, localstore.NewMemoryStore(), logging.Discard())

	_, err := liked.Toggle(context.Background(), "", "polo")

	assert.ErrorIs(t, err, ErrNotSignedIn)
	assert.Empty(t, api.calls)
}

func TestToggle_APIFailureKeepsLocalState(t *testing.T) {
	api := &fakeAPI{err: errors.New("offline")}
	liked := NewLikedProducts(api, localstore.NewMemoryStore(), logging.Discard())

	state, err := liked.Toggle(context.Background(), "u1", "polo")

	require.NoError(t, err)
	assert.True(t, state)
	assert.Equal(t, []string{"polo"}, liked.List("u1"))
}

func TestList_CorruptDataReadsEmpty(t *testing.T) {
	store := localstore.NewMemoryStore()
	require.NoError(t, store.Set(StorageKey("u1"), []byte("{")))
	liked := NewLikedProducts(nil, store, logging.Discard())

	assert.Empty(t, liked.List("u1"))
}
