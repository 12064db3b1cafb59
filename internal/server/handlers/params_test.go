package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
	"github.com/mamadbah2/hotelerp/internal/service/auth"
)

func contextWithQuery(rawQuery string) *gin.Context {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/?"+rawQuery, nil)
	return c
}

func TestQueryRange(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)

	from, to, err := queryRange(contextWithQuery("from=2026-03-01&to=2026-03-31"), loc)
	require.NoError(t, err)
	assert.True(t, from.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, loc)))
	assert.True(t, to.Equal(time.Date(2026, 4, 1, 0, 0, 0, 0, loc)))

	_, to, err = queryRange(contextWithQuery("to=2026-03-31T10:00:00Z"), loc)
	require.NoError(t, err)
	assert.True(t, to.Equal(time.Date(2026, 3, 31, 10, 0, 0, 0, time.UTC)))

	from, to, err = queryRange(contextWithQuery(""), loc)
	require.NoError(t, err)
	assert.True(t, from.IsZero())
	assert.True(t, to.IsZero())

	_, _, err = queryRange(contextWithQuery("from=yesterday"), loc)
	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "from", validationErr.Field)
}

func TestScopedHotel(t *testing.T) {
	own := primitive.NewObjectID()
	other := primitive.NewObjectID()
	manager := &auth.Claims{Role: models.RoleHotelManager, HotelID: own.Hex()}
	md := &auth.Claims{Role: models.RoleMD}

	got, err := scopedHotel(manager, nil)
	require.NoError(t, err)
	assert.Equal(t, own, *got)

	_, err = scopedHotel(manager, &other)
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = scopedHotel(&auth.Claims{Role: models.RoleHotelManager}, nil)
	assert.ErrorIs(t, err, models.ErrForbidden)

	got, err = scopedHotel(md, &other)
	require.NoError(t, err)
	assert.Equal(t, other, *got)

	got, err = scopedHotel(md, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPinHotelFillsMissingHotel(t *testing.T) {
	own := primitive.NewObjectID()
	manager := &auth.Claims{Role: models.RoleHotelManager, HotelID: own.Hex()}

	var hotelID primitive.ObjectID
	require.NoError(t, pinHotel(manager, &hotelID))
	assert.Equal(t, own, hotelID)

	other := primitive.NewObjectID()
	assert.ErrorIs(t, pinHotel(manager, &other), models.ErrForbidden)
}

func TestScopedLocation(t *testing.T) {
	own := primitive.NewObjectID()
	manager := &auth.Claims{Role: models.RoleHotelManager, HotelID: own.Hex()}

	loc, err := scopedLocation(manager, "")
	require.NoError(t, err)
	assert.Equal(t, own.Hex(), loc)

	_, err = scopedLocation(manager, models.StoreLocation)
	assert.ErrorIs(t, err, models.ErrForbidden)

	loc, err = scopedLocation(&auth.Claims{Role: models.RoleStoreManager}, models.StoreLocation)
	require.NoError(t, err)
	assert.Equal(t, models.StoreLocation, loc)
}

func TestExportFilenameCoversLastIncludedDay(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)

	from, to, err := queryRange(contextWithQuery("from=2026-03-01&to=2026-03-31"), loc)
	require.NoError(t, err)
	report := &models.LeakageReport{GroupBy: models.GroupByHotel, From: from.UTC(), To: to.UTC()}
	assert.Equal(t, "leakage-hotel-2026-03-01-2026-03-31.xlsx", exportFilename(report, loc))

	from, to, err = queryRange(contextWithQuery("from=2026-03-01T00:00:00Z&to=2026-03-31T12:00:00Z"), loc)
	require.NoError(t, err)
	report = &models.LeakageReport{GroupBy: models.GroupByItem, From: from, To: to}
	assert.Equal(t, "leakage-item-2026-03-01-2026-03-31.xlsx", exportFilename(report, time.UTC))

	report = &models.LeakageReport{GroupBy: models.GroupByHotel, To: time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, "leakage-hotel-2026-03-31.xlsx", exportFilename(report, time.UTC))
}
