package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
	"github.com/mamadbah2/hotelerp/internal/repository/memory"
	"github.com/mamadbah2/hotelerp/internal/service/auth"
)

func newService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return NewService(store, nil), store
}

func TestCreateUserRequiresHotelForHotelManager(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserInput{
		Name: "Ravi", Email: "ravi@example.com", Password: "password123", Role: models.RoleHotelManager,
	})
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "hotel_id", verr.Field)

	hotel, err := svc.CreateHotel(ctx, CreateHotelInput{Name: "Seaview", Code: "sv"})
	require.NoError(t, err)
	assert.Equal(t, "SV", hotel.Code)

	user, err := svc.CreateUser(ctx, CreateUserInput{
		Name: "Ravi", Email: "Ravi@Example.com", Password: "password123", Role: models.RoleHotelManager, HotelID: &hotel.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "ravi@example.com", user.Email)
	require.NotNil(t, user.HotelID)
	assert.Equal(t, hotel.ID, *user.HotelID)
	assert.NoError(t, auth.ComparePassword(user.PasswordHash, "password123"))
}

func TestCreateUserRejectsUnknownRoleAndDuplicateEmail(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserInput{Name: "X", Email: "x@example.com", Password: "password123", Role: "chef"})
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "role", verr.Field)

	_, err = svc.CreateUser(ctx, CreateUserInput{Name: "X", Email: "x@example.com", Password: "password123", Role: models.RoleMD})
	require.NoError(t, err)
	_, err = svc.CreateUser(ctx, CreateUserInput{Name: "Y", Email: "X@example.com", Password: "password123", Role: models.RoleMD})
	assert.True(t, errors.Is(err, models.ErrConflict))
}

func TestUpdateUserDropsHotelWhenRoleChanges(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	hotel, err := svc.CreateHotel(ctx, CreateHotelInput{Name: "Seaview", Code: "SV"})
	require.NoError(t, err)
	user, err := svc.CreateUser(ctx, CreateUserInput{
		Name: "Ravi", Email: "ravi@example.com", Password: "password123", Role: models.RoleHotelManager, HotelID: &hotel.ID,
	})
	require.NoError(t, err)

	role := models.RoleStoreManager
	updated, err := svc.UpdateUser(ctx, user.ID, UpdateUserInput{Role: &role})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStoreManager, updated.Role)
	assert.Nil(t, updated.HotelID)
}

func TestDisableKeepsDocuments(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	item, err := svc.CreateItem(ctx, CreateItemInput{Name: "Rice", Unit: "kg", GSTRate: decimal.NewFromInt(5)})
	require.NoError(t, err)

	_, err = svc.DisableItem(ctx, item.ID)
	require.NoError(t, err)

	active, err := svc.ListItems(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)

	all, err := svc.ListItems(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].Active)

	stored, err := store.GetItem(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)

	_, err = svc.DisableVendor(ctx, primitive.NewObjectID())
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestCreateItemValidatesGSTRate(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.CreateItem(context.Background(), CreateItemInput{Name: "Oil", Unit: "l", GSTRate: decimal.NewFromInt(120)})
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "gst_rate", verr.Field)
}

func TestCreateRecipeResolvesIngredients(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	rice, err := svc.CreateItem(ctx, CreateItemInput{Name: "Rice", Unit: "kg"})
	require.NoError(t, err)

	recipe, err := svc.CreateRecipe(ctx, CreateRecipeInput{
		Name:        "Veg Biryani",
		Ingredients: []models.Ingredient{{ItemID: rice.ID, Quantity: decimal.RequireFromString("0.25")}},
	})
	require.NoError(t, err)
	require.Len(t, recipe.Ingredients, 1)
	assert.Equal(t, "Rice", recipe.Ingredients[0].ItemName)
	assert.Equal(t, "kg", recipe.Ingredients[0].Unit)

	_, err = svc.CreateRecipe(ctx, CreateRecipeInput{
		Name:        "Ghost",
		Ingredients: []models.Ingredient{{ItemID: primitive.NewObjectID(), Quantity: decimal.NewFromInt(1)}},
	})
	var verr *models.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "ingredients[0].item_id", verr.Field)
}

func TestSeedSuperAdminIsIdempotent(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	first, created, err := svc.SeedSuperAdmin(ctx, "Root", "root@example.com", "password123")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, models.RoleSuperAdmin, first.Role)

	second, created, err := svc.SeedSuperAdmin(ctx, "Root", "root@example.com", "password123")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}
