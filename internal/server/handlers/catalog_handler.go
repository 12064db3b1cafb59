package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
	"github.com/mamadbah2/hotelerp/internal/service/catalog"
)

// CatalogService manages users and the master data.
type CatalogService interface {
	CreateUser(ctx context.Context, in catalog.CreateUserInput) (*models.User, error)
	UpdateUser(ctx context.Context, id primitive.ObjectID, in catalog.UpdateUserInput) (*models.User, error)
	DisableUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error)

	CreateHotel(ctx context.Context, in catalog.CreateHotelInput) (*models.Hotel, error)
	ListHotels(ctx context.Context, includeDisabled bool) ([]models.Hotel, error)
	DisableHotel(ctx context.Context, id primitive.ObjectID) (*models.Hotel, error)

	CreateItem(ctx context.Context, in catalog.CreateItemInput) (*models.Item, error)
	ListItems(ctx context.Context, includeDisabled bool) ([]models.Item, error)
	DisableItem(ctx context.Context, id primitive.ObjectID) (*models.Item, error)

	CreateVendor(ctx context.Context, in catalog.CreateVendorInput) (*models.Vendor, error)
	ListVendors(ctx context.Context, includeDisabled bool) ([]models.Vendor, error)
	DisableVendor(ctx context.Context, id primitive.ObjectID) (*models.Vendor, error)

	CreateRecipe(ctx context.Context, in catalog.CreateRecipeInput) (*models.Recipe, error)
	ListRecipes(ctx context.Context, hotelID *primitive.ObjectID) ([]models.Recipe, error)
}

// CatalogHandler serves users, hotels, items, vendors and recipes.
type CatalogHandler struct {
	svc    CatalogService
	logger *zap.Logger
}

// NewCatalogHandler constructs the HTTP handler adapter.
func NewCatalogHandler(svc CatalogService, logger *zap.Logger) *CatalogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogHandler{svc: svc, logger: logger}
}

func (h *CatalogHandler) ListUsers(c *gin.Context) {
	users, err := h.svc.ListUsers(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": users})
}

func (h *CatalogHandler) GetUser(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	user, err := h.svc.GetUser(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *CatalogHandler) CreateUser(c *gin.Context) {
	var in catalog.CreateUserInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	user, err := h.svc.CreateUser(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *CatalogHandler) UpdateUser(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var in catalog.UpdateUserInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	user, err := h.svc.UpdateUser(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *CatalogHandler) DisableUser(c *gin.Context) {
	h.disable(c, func(ctx context.Context, id primitive.ObjectID) (interface{}, error) {
		if id == actorID(c) {
			return nil, models.Invalid("id", "cannot disable your own account")
		}
		return h.svc.DisableUser(ctx, id)
	})
}

func (h *CatalogHandler) ListHotels(c *gin.Context) {
	hotels, err := h.svc.ListHotels(c.Request.Context(), queryBool(c, "include_disabled"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": hotels})
}

func (h *CatalogHandler) CreateHotel(c *gin.Context) {
	var in catalog.CreateHotelInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	hotel, err := h.svc.CreateHotel(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, hotel)
}

func (h *CatalogHandler) DisableHotel(c *gin.Context) {
	h.disable(c, func(ctx context.Context, id primitive.ObjectID) (interface{}, error) {
		return h.svc.DisableHotel(ctx, id)
	})
}

func (h *CatalogHandler) ListItems(c *gin.Context) {
	items, err := h.svc.ListItems(c.Request.Context(), queryBool(c, "include_disabled"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": items})
}

func (h *CatalogHandler) CreateItem(c *gin.Context) {
	var in catalog.CreateItemInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	item, err := h.svc.CreateItem(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *CatalogHandler) DisableItem(c *gin.Context) {
	h.disable(c, func(ctx context.Context, id primitive.ObjectID) (interface{}, error) {
		return h.svc.DisableItem(ctx, id)
	})
}

func (h *CatalogHandler) ListVendors(c *gin.Context) {
	vendors, err := h.svc.ListVendors(c.Request.Context(), queryBool(c, "include_disabled"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": vendors})
}

func (h *CatalogHandler) CreateVendor(c *gin.Context) {
	var in catalog.CreateVendorInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	vendor, err := h.svc.CreateVendor(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, vendor)
}

func (h *CatalogHandler) DisableVendor(c *gin.Context) {
	h.disable(c, func(ctx context.Context, id primitive.ObjectID) (interface{}, error) {
		return h.svc.DisableVendor(ctx, id)
	})
}

// ListRecipes returns the recipes visible to a hotel. Hotel managers always see their own.
func (h *CatalogHandler) ListRecipes(c *gin.Context) {
	requested, err := queryID(c, "hotel_id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	hotelID, err := scopedHotel(CurrentClaims(c), requested)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	recipes, err := h.svc.ListRecipes(c.Request.Context(), hotelID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": recipes})
}

func (h *CatalogHandler) CreateRecipe(c *gin.Context) {
	var in catalog.CreateRecipeInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	hotelID, err := scopedHotel(CurrentClaims(c), in.HotelID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	in.HotelID = hotelID

	recipe, err := h.svc.CreateRecipe(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

func (h *CatalogHandler) disable(c *gin.Context, fn func(context.Context, primitive.ObjectID) (interface{}, error)) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	out, err := fn(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.logger.Info("record disabled", zap.String("path", c.FullPath()), zap.String("id", id.Hex()), zap.String("actor", actorID(c).Hex()))
	c.JSON(http.StatusOK, out)
}
