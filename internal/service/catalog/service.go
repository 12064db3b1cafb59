package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
	"github.com/mamadbah2/hotelerp/internal/repository"
	"github.com/mamadbah2/hotelerp/internal/service/auth"
)

// Repository is the persistence the catalog needs.
type Repository interface {
	repository.Users
	repository.Hotels
	repository.Items
	repository.Vendors
	repository.Recipes
}

// Service manages users and the master data other modules reference.
type Service struct {
	repo   Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a new catalog service instance.
func NewService(repo Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// CreateUserInput is the payload of POST /users.
type CreateUserInput struct {
	Name     string              `json:"name" binding:"required"`
	Email    string              `json:"email" binding:"required,email"`
	Phone    string              `json:"phone"`
	Password string              `json:"password" binding:"required"`
	Role     models.Role         `json:"role" binding:"required"`
	HotelID  *primitive.ObjectID `json:"hotel_id"`
}

// UpdateUserInput is the payload of PATCH /users/:id. Nil fields are left untouched.
type UpdateUserInput struct {
	Name     *string             `json:"name"`
	Phone    *string             `json:"phone"`
	Password *string             `json:"password"`
	Role     *models.Role        `json:"role"`
	HotelID  *primitive.ObjectID `json:"hotel_id"`
}

func (s *Service) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, models.Invalid("name", "is required")
	}
	if err := s.checkRoleScope(ctx, in.Role, in.HotelID); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        models.NormalizeEmail(in.Email),
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
		Role:         in.Role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if in.Role.HotelScoped() {
		user.HotelID = in.HotelID
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user created", zap.String("user_id", user.ID.Hex()), zap.String("role", string(user.Role)))
	return user, nil
}

func (s *Service) UpdateUser(ctx context.Context, id primitive.ObjectID, in UpdateUserInput) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, models.Invalid("name", "must not be empty")
		}
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		user.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Password != nil {
		hash, err := auth.HashPassword(*in.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	role := user.Role
	if in.Role != nil {
		role = *in.Role
	}
	hotelID := user.HotelID
	if in.HotelID != nil {
		hotelID = in.HotelID
	}
	if err := s.checkRoleScope(ctx, role, hotelID); err != nil {
		return nil, err
	}
	user.Role = role
	user.HotelID = nil
	if role.HotelScoped() {
		user.HotelID = hotelID
	}

	user.UpdatedAt = s.now()
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (s *Service) DisableUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Active = false
	user.UpdatedAt = s.now()
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("disable user: %w", err)
	}
	s.logger.Info("user disabled", zap.String("user_id", id.Hex()))
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.repo.ListUsers(ctx)
}

func (s *Service) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.repo.GetUser(ctx, id)
}

// SeedSuperAdmin creates the first superadmin. It reports false when the email is
// already registered.
func (s *Service) SeedSuperAdmin(ctx context.Context, name, email, password string) (*models.User, bool, error) {
	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, false, fmt.Errorf("lookup superadmin: %w", err)
	}

	user, err := s.CreateUser(ctx, CreateUserInput{
		Name:     name,
		Email:    email,
		Password: password,
		Role:     models.RoleSuperAdmin,
	})
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func (s *Service) checkRoleScope(ctx context.Context, role models.Role, hotelID *primitive.ObjectID) error {
	if !role.IsValid() {
		return models.Invalid("role", fmt.Sprintf("unknown role %q", role))
	}
	if !role.HotelScoped() {
		return nil
	}
	if hotelID == nil {
		return models.Invalid("hotel_id", "is required for "+string(role))
	}
	hotel, err := s.repo.GetHotel(ctx, *hotelID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.Invalid("hotel_id", "unknown hotel")
		}
		return err
	}
	if !hotel.Active {
		return models.Invalid("hotel_id", "hotel is disabled")
	}
	return nil
}

// CreateHotelInput is the payload of POST /hotels.
type CreateHotelInput struct {
	Name    string `json:"name" binding:"required"`
	Code    string `json:"code" binding:"required"`
	Address string `json:"address"`
}

func (s *Service) CreateHotel(ctx context.Context, in CreateHotelInput) (*models.Hotel, error) {
	name := strings.TrimSpace(in.Name)
	code := strings.ToUpper(strings.TrimSpace(in.Code))
	if name == "" {
		return nil, models.Invalid("name", "is required")
	}
	if code == "" {
		return nil, models.Invalid("code", "is required")
	}

	now := s.now()
	hotel := &models.Hotel{
		Name:      name,
		Code:      code,
		Address:   strings.TrimSpace(in.Address),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateHotel(ctx, hotel); err != nil {
		return nil, fmt.Errorf("create hotel: %w", err)
	}
	s.logger.Info("hotel created", zap.String("hotel_id", hotel.ID.Hex()), zap.String("code", code))
	return hotel, nil
}

func (s *Service) ListHotels(ctx context.Context, includeDisabled bool) ([]models.Hotel, error) {
	return s.repo.ListHotels(ctx, !includeDisabled)
}

func (s *Service) GetHotel(ctx context.Context, id primitive.ObjectID) (*models.Hotel, error) {
	return s.repo.GetHotel(ctx, id)
}

func (s *Service) DisableHotel(ctx context.Context, id primitive.ObjectID) (*models.Hotel, error) {
	hotel, err := s.repo.GetHotel(ctx, id)
	if err != nil {
		return nil, err
	}
	hotel.Active = false
	hotel.UpdatedAt = s.now()
	if err := s.repo.UpdateHotel(ctx, hotel); err != nil {
		return nil, fmt.Errorf("disable hotel: %w", err)
	}
	return hotel, nil
}

// CreateItemInput is the payload of POST /items.
type CreateItemInput struct {
	Name     string          `json:"name" binding:"required"`
	Category string          `json:"category"`
	Unit     string          `json:"unit" binding:"required"`
	GSTRate  decimal.Decimal `json:"gst_rate"`
}

func (s *Service) CreateItem(ctx context.Context, in CreateItemInput) (*models.Item, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, models.Invalid("name", "is required")
	}
	if strings.TrimSpace(in.Unit) == "" {
		return nil, models.Invalid("unit", "is required")
	}
	if err := checkGSTRate("gst_rate", in.GSTRate); err != nil {
		return nil, err
	}

	now := s.now()
	item := &models.Item{
		Name:      strings.TrimSpace(in.Name),
		Category:  strings.TrimSpace(in.Category),
		Unit:      strings.TrimSpace(in.Unit),
		GSTRate:   in.GSTRate,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}
	return item, nil
}

func (s *Service) ListItems(ctx context.Context, includeDisabled bool) ([]models.Item, error) {
	return s.repo.ListItems(ctx, !includeDisabled)
}

func (s *Service) DisableItem(ctx context.Context, id primitive.ObjectID) (*models.Item, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	item.Active = false
	item.UpdatedAt = s.now()
	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("disable item: %w", err)
	}
	return item, nil
}

// CreateVendorInput is the payload of POST /vendors.
type CreateVendorInput struct {
	Name  string `json:"name" binding:"required"`
	GSTIN string `json:"gstin"`
	Phone string `json:"phone"`
	Email string `json:"email" binding:"omitempty,email"`
}

func (s *Service) CreateVendor(ctx context.Context, in CreateVendorInput) (*models.Vendor, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, models.Invalid("name", "is required")
	}

	now := s.now()
	vendor := &models.Vendor{
		Name:      strings.TrimSpace(in.Name),
		GSTIN:     strings.ToUpper(strings.TrimSpace(in.GSTIN)),
		Phone:     strings.TrimSpace(in.Phone),
		Email:     models.NormalizeEmail(in.Email),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateVendor(ctx, vendor); err != nil {
		return nil, fmt.Errorf("create vendor: %w", err)
	}
	return vendor, nil
}

func (s *Service) ListVendors(ctx context.Context, includeDisabled bool) ([]models.Vendor, error) {
	return s.repo.ListVendors(ctx, !includeDisabled)
}

func (s *Service) DisableVendor(ctx context.Context, id primitive.ObjectID) (*models.Vendor, error) {
	vendor, err := s.repo.GetVendor(ctx, id)
	if err != nil {
		return nil, err
	}
	vendor.Active = false
	vendor.UpdatedAt = s.now()
	if err := s.repo.UpdateVendor(ctx, vendor); err != nil {
		return nil, fmt.Errorf("disable vendor: %w", err)
	}
	return vendor, nil
}

// CreateRecipeInput is the payload of POST /recipes.
type CreateRecipeInput struct {
	Name        string              `json:"name" binding:"required"`
	HotelID     *primitive.ObjectID `json:"hotel_id"`
	Ingredients []models.Ingredient `json:"ingredients" binding:"required,min=1,dive"`
}

// CreateRecipe stores a recipe. Item names and units are taken from the catalog.
func (s *Service) CreateRecipe(ctx context.Context, in CreateRecipeInput) (*models.Recipe, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, models.Invalid("name", "is required")
	}
	if len(in.Ingredients) == 0 {
		return nil, models.Invalid("ingredients", "at least one ingredient is required")
	}
	if in.HotelID != nil {
		if _, err := s.repo.GetHotel(ctx, *in.HotelID); err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, models.Invalid("hotel_id", "unknown hotel")
			}
			return nil, err
		}
	}

	ingredients := make([]models.Ingredient, 0, len(in.Ingredients))
	for i, ing := range in.Ingredients {
		field := fmt.Sprintf("ingredients[%d]", i)
		if !ing.Quantity.IsPositive() {
			return nil, models.Invalid(field+".quantity", "must be positive")
		}
		item, err := s.activeItem(ctx, field+".item_id", ing.ItemID)
		if err != nil {
			return nil, err
		}
		ingredients = append(ingredients, models.Ingredient{
			ItemID:   item.ID,
			ItemName: item.Name,
			Quantity: ing.Quantity,
			Unit:     item.Unit,
		})
	}

	now := s.now()
	recipe := &models.Recipe{
		Name:        strings.TrimSpace(in.Name),
		HotelID:     in.HotelID,
		Ingredients: ingredients,
		Active:      true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateRecipe(ctx, recipe); err != nil {
		return nil, fmt.Errorf("create recipe: %w", err)
	}
	return recipe, nil
}

// ListRecipes returns the recipes visible to a hotel: its own plus the shared ones.
func (s *Service) ListRecipes(ctx context.Context, hotelID *primitive.ObjectID) ([]models.Recipe, error) {
	return s.repo.ListRecipes(ctx, hotelID)
}

func (s *Service) activeItem(ctx context.Context, field string, id primitive.ObjectID) (*models.Item, error) {
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.Invalid(field, "unknown item")
		}
		return nil, err
	}
	if !item.Active {
		return nil, models.Invalid(field, "item is disabled")
	}
	return item, nil
}

var maxGSTRate = decimal.NewFromInt(100)

func checkGSTRate(field string, rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(maxGSTRate) {
		return models.Invalid(field, "must be between 0 and 100")
	}
	return nil
}
