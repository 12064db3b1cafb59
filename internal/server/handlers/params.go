package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
	"github.com/mamadbah2/hotelerp/internal/service/auth"
)

const dateLayout = "2006-01-02"

func pathID(c *gin.Context, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		return primitive.NilObjectID, models.Invalid(name, "must be a valid id")
	}
	return id, nil
}

func queryID(c *gin.Context, name string) (*primitive.ObjectID, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, models.Invalid(name, "must be a valid id")
	}
	return &id, nil
}

func queryBool(c *gin.Context, name string) bool {
	v, err := strconv.ParseBool(c.Query(name))
	return err == nil && v
}

// queryDate accepts YYYY-MM-DD in loc or RFC3339. A bare "to" date covers the whole day,
// so it is moved to the next midnight to keep the bound exclusive.
func queryDate(c *gin.Context, name string, loc *time.Location, upper bool) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation(dateLayout, raw, loc); err == nil {
		if upper {
			t = t.AddDate(0, 0, 1)
		}
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, models.Invalid(name, "must be YYYY-MM-DD or RFC3339")
	}
	return t, nil
}

func queryRange(c *gin.Context, loc *time.Location) (time.Time, time.Time, error) {
	from, err := queryDate(c, "from", loc, false)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := queryDate(c, "to", loc, true)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

// scopedHotel returns the hotel a query may look at. Hotel-scoped callers are pinned to
// their own hotel; asking for another one is forbidden.
func scopedHotel(claims *auth.Claims, requested *primitive.ObjectID) (*primitive.ObjectID, error) {
	if claims == nil || !claims.Role.HotelScoped() {
		return requested, nil
	}
	own := claims.HotelObjectID()
	if own == nil {
		return nil, models.ErrForbidden
	}
	if requested != nil && *requested != *own {
		return nil, models.ErrForbidden
	}
	return own, nil
}

// pinHotel applies scopedHotel to a hotel id taken from a request body.
func pinHotel(claims *auth.Claims, hotelID *primitive.ObjectID) error {
	var requested *primitive.ObjectID
	if !hotelID.IsZero() {
		requested = hotelID
	}
	scoped, err := scopedHotel(claims, requested)
	if err != nil {
		return err
	}
	if scoped != nil {
		*hotelID = *scoped
	}
	return nil
}

func actorID(c *gin.Context) primitive.ObjectID {
	if claims := CurrentClaims(c); claims != nil {
		return claims.UserObjectID()
	}
	return primitive.NilObjectID
}
