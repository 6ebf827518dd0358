package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurantcore/pkg/apperr"
	"restaurantcore/pkg/logger"
	"restaurantcore/pkg/store/memory"
)

func newService() *Service {
	return NewService(memory.New(), logger.Nop())
}

func TestCreateValidation(t *testing.T) {
	s := newService()
	ctx := context.Background()

	_, err := s.Create(ctx, NewMenuItem{Category: "main", Price: decimal.NewFromInt(5)})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = s.Create(ctx, NewMenuItem{Name: "Soup", Price: decimal.NewFromInt(5)})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = s.Create(ctx, NewMenuItem{Name: "Soup", Category: "starter", Price: decimal.Zero})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestAvailabilityAndSearch(t *testing.T) {
	s := newService()
	ctx := context.Background()
	no := false

	soup, err := s.Create(ctx, NewMenuItem{Name: "Tomato Soup", Category: "starter", Price: decimal.RequireFromString("4.50")})
	require.NoError(t, err)
	assert.True(t, soup.Available)
	_, err = s.Create(ctx, NewMenuItem{Name: "Steak", Category: "main", Price: decimal.RequireFromString("21.00")})
	require.NoError(t, err)
	_, err = s.Create(ctx, NewMenuItem{Name: "Soup of the day", Category: "starter", Price: decimal.RequireFromString("5"), Available: &no})
	require.NoError(t, err)

	found, err := s.Search(ctx, "SOUP")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Tomato Soup", found[0].Name)

	cats, err := s.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "starter"}, cats)

	_, err = s.SetAvailability(ctx, soup.ID, false)
	require.NoError(t, err)
	starters, err := s.ByCategory(ctx, "starter")
	require.NoError(t, err)
	assert.Empty(t, starters)
}

func TestSetPriceKeepsDecimal(t *testing.T) {
	s := newService()
	ctx := context.Background()
	item, err := s.Create(ctx, NewMenuItem{Name: "Tea", Category: "drinks", Price: decimal.RequireFromString("2.10")})
	require.NoError(t, err)

	updated, err := s.SetPrice(ctx, item.ID, decimal.RequireFromString("2.35"))
	require.NoError(t, err)
	assert.True(t, updated.Price.Equal(decimal.RequireFromString("2.35")))

	_, err = s.SetPrice(ctx, item.ID, decimal.NewFromInt(-1))
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = s.SetPrice(ctx, "missing", decimal.NewFromInt(1))
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	got, err := s.Lookup(ctx, []string{item.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestUpdate(t *testing.T) {
	s := newService()
	ctx := context.Background()
	item, err := s.Create(ctx, NewMenuItem{Name: "Tea", Category: "drinks", Price: decimal.RequireFromString("2.10")})
	require.NoError(t, err)

	name, price := "  Green Tea ", decimal.RequireFromString("2.60")
	got, err := s.Update(ctx, item.ID, MenuChanges{Name: &name, Price: &price})
	require.NoError(t, err)
	assert.Equal(t, "Green Tea", got.Name)
	assert.Equal(t, "drinks", got.Category)
	assert.True(t, got.Price.Equal(price))

	empty := " "
	_, err = s.Update(ctx, item.ID, MenuChanges{Category: &empty})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	same, err := s.Update(ctx, item.ID, MenuChanges{})
	require.NoError(t, err)
	assert.Equal(t, got.Version, same.Version)
}

func TestDeletedItemsStayDeleted(t *testing.T) {
	s := newService()
	ctx := context.Background()
	item, err := s.Create(ctx, NewMenuItem{Name: "Tea", Category: "drinks", Price: decimal.RequireFromString("2.10")})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, item.ID))

	_, err = s.Get(ctx, item.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = s.SetAvailability(ctx, item.ID, true)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
	_, err = s.SetPrice(ctx, item.ID, decimal.NewFromInt(3))
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	avail, err := s.Available(ctx)
	require.NoError(t, err)
	assert.Empty(t, avail)
}
