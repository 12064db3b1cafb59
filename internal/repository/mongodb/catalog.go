package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
)

var byName = bson.D{{Key: "name", Value: 1}}

func (r *MongoDBRepository) CreateUser(ctx context.Context, user *models.User) error {
	return r.insert(ctx, usersCollection, &user.ID, user)
}

func (r *MongoDBRepository) GetUser(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	if err := r.findByID(ctx, usersCollection, id, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *MongoDBRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.findOne(ctx, usersCollection, bson.M{"email": models.NormalizeEmail(email)}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *MongoDBRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := r.findAll(ctx, usersCollection, bson.M{}, byName, &users)
	return users, err
}

func (r *MongoDBRepository) UpdateUser(ctx context.Context, user *models.User) error {
	return r.replace(ctx, usersCollection, bson.M{"_id": user.ID}, user)
}

func (r *MongoDBRepository) CreateHotel(ctx context.Context, hotel *models.Hotel) error {
	return r.insert(ctx, hotelsCollection, &hotel.ID, hotel)
}

func (r *MongoDBRepository) GetHotel(ctx context.Context, id primitive.ObjectID) (*models.Hotel, error) {
	var hotel models.Hotel
	if err := r.findByID(ctx, hotelsCollection, id, &hotel); err != nil {
		return nil, err
	}
	return &hotel, nil
}

func (r *MongoDBRepository) ListHotels(ctx context.Context, activeOnly bool) ([]models.Hotel, error) {
	hotels := []models.Hotel{}
	err := r.findAll(ctx, hotelsCollection, activeFilter(activeOnly), byName, &hotels)
	return hotels, err
}

func (r *MongoDBRepository) UpdateHotel(ctx context.Context, hotel *models.Hotel) error {
	return r.replace(ctx, hotelsCollection, bson.M{"_id": hotel.ID}, hotel)
}

func (r *MongoDBRepository) CreateItem(ctx context.Context, item *models.Item) error {
	return r.insert(ctx, itemsCollection, &item.ID, item)
}

func (r *MongoDBRepository) GetItem(ctx context.Context, id primitive.ObjectID) (*models.Item, error) {
	var item models.Item
	if err := r.findByID(ctx, itemsCollection, id, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *MongoDBRepository) ListItems(ctx context.Context, activeOnly bool) ([]models.Item, error) {
	items := []models.Item{}
	err := r.findAll(ctx, itemsCollection, activeFilter(activeOnly), byName, &items)
	return items, err
}

func (r *MongoDBRepository) UpdateItem(ctx context.Context, item *models.Item) error {
	return r.replace(ctx, itemsCollection, bson.M{"_id": item.ID}, item)
}

func (r *MongoDBRepository) CreateVendor(ctx context.Context, vendor *models.Vendor) error {
	return r.insert(ctx, vendorsCollection, &vendor.ID, vendor)
}

func (r *MongoDBRepository) GetVendor(ctx context.Context, id primitive.ObjectID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.findByID(ctx, vendorsCollection, id, &vendor); err != nil {
		return nil, err
	}
	return &vendor, nil
}

func (r *MongoDBRepository) ListVendors(ctx context.Context, activeOnly bool) ([]models.Vendor, error) {
	vendors := []models.Vendor{}
	err := r.findAll(ctx, vendorsCollection, activeFilter(activeOnly), byName, &vendors)
	return vendors, err
}

func (r *MongoDBRepository) UpdateVendor(ctx context.Context, vendor *models.Vendor) error {
	return r.replace(ctx, vendorsCollection, bson.M{"_id": vendor.ID}, vendor)
}

func (r *MongoDBRepository) CreateRecipe(ctx context.Context, recipe *models.Recipe) error {
	return r.insert(ctx, recipesCollection, &recipe.ID, recipe)
}

func (r *MongoDBRepository) GetRecipe(ctx context.Context, id primitive.ObjectID) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := r.findByID(ctx, recipesCollection, id, &recipe); err != nil {
		return nil, err
	}
	return &recipe, nil
}

// ListRecipes returns active recipes shared by all hotels plus, when hotelID is set,
// the ones specific to that hotel.
func (r *MongoDBRepository) ListRecipes(ctx context.Context, hotelID *primitive.ObjectID) ([]models.Recipe, error) {
	filter := bson.M{"active": true}
	if hotelID != nil {
		filter["$or"] = bson.A{
			bson.M{"hotel_id": bson.M{"$exists": false}},
			bson.M{"hotel_id": *hotelID},
		}
	}
	recipes := []models.Recipe{}
	err := r.findAll(ctx, recipesCollection, filter, byName, &recipes)
	return recipes, err
}
