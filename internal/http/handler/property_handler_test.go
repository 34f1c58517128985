package handler_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ChetanXpro/yesbroker/internal/domain"
	httpHandler "github.com/ChetanXpro/yesbroker/internal/http/handler"
	"github.com/ChetanXpro/yesbroker/internal/service"
)

var (
	owner  = domain.User{ID: 1, Name: "owner_a1b2", WalletAddress: "0xowner", Verified: true, UserType: domain.UserTypeOwner}
	renter = domain.User{ID: 2, Name: "renter_c3d4", WalletAddress: "0xrenter", Verified: true, UserType: domain.UserTypeRenter}
)

func seededListing() domain.Property {
	return domain.Property{
		ID:        7,
		Title:     "Loft",
		Address:   "1 Main St",
		City:      "Pune",
		State:     "MH",
		Price:     decimal.RequireFromString("1500.50"),
		Status:    domain.StatusAvailable,
		OwnerID:   owner.ID,
		ImageURLs: []string{},
	}
}

func newPropertyRouter(f *fixture) *gin.Engine {
	svc := service.NewPropertyService(f.properties, nil, nil, f.cfg, zap.NewNop())
	h := httpHandler.NewPropertyHandler(svc)

	r := gin.New()
	r.GET("/properties", h.List)
	r.GET("/properties/:id", h.Get)
	r.POST("/properties", f.auth.ValidateJWT, h.Create)
	r.PUT("/properties/:id", f.auth.ValidateJWT, h.Update)
	r.DELETE("/properties/:id", f.auth.ValidateJWT, h.Delete)
	return r
}

func validListing() map[string]any {
	return map[string]any{
		"title":   "Sunny flat",
		"address": "22 Baker St",
		"city":    "Mumbai",
		"state":   "MH",
		"price":   2500,
	}
}

func TestCreatePropertyAsOwner(t *testing.T) {
	f := newFixture([]domain.User{owner, renter}, nil)
	r := newPropertyRouter(f)

	req := validListing()
	req["owner_id"] = 999
	w := perform(r, http.MethodPost, "/properties", req, f.tokenFor(owner))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode(t, w)
	require.Equal(t, true, body["success"])
	require.Equal(t, "Property created successfully", body["message"])
	data := body["data"].(map[string]any)
	require.Equal(t, "Sunny flat", data["title"])
	require.Equal(t, "available", data["status"])
	require.EqualValues(t, owner.ID, data["owner_id"])
	require.EqualValues(t, 2500, data["price"])
}

func TestCreatePropertyRejectsRenter(t *testing.T) {
	f := newFixture([]domain.User{owner, renter}, nil)
	r := newPropertyRouter(f)

	w := perform(r, http.MethodPost, "/properties", validListing(), f.tokenFor(renter))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "Only property owners can create listings", decode(t, w)["error"])
}

func TestCreatePropertyRequiresToken(t *testing.T) {
	f := newFixture([]domain.User{owner}, nil)
	r := newPropertyRouter(f)

	w := perform(r, http.MethodPost, "/properties", validListing(), "")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Authentication required", decode(t, w)["error"])

	w = perform(r, http.MethodPost, "/properties", validListing(), "not-a-token")
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Invalid authentication token", decode(t, w)["error"])
}

func TestCreatePropertyMissingFields(t *testing.T) {
	f := newFixture([]domain.User{owner}, nil)
	r := newPropertyRouter(f)

	w := perform(r, http.MethodPost, "/properties", map[string]any{"title": "Only a title"}, f.tokenFor(owner))
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, decode(t, w)["error"], "Missing required fields")
}

func TestGetProperty(t *testing.T) {
	f := newFixture(nil, []domain.Property{seededListing()})
	r := newPropertyRouter(f)

	w := perform(r, http.MethodGet, "/properties/7", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	require.Equal(t, "Loft", data["title"])
	require.EqualValues(t, 1500.5, data["price"])

	w = perform(r, http.MethodGet, "/properties/99", nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "Property not found", decode(t, w)["error"])

	w = perform(r, http.MethodGet, "/properties/abc", nil, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListProperties(t *testing.T) {
	f := newFixture(nil, []domain.Property{seededListing()})
	r := newPropertyRouter(f)

	w := perform(r, http.MethodGet, "/properties?owner_id=1", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	require.EqualValues(t, 1, body["count"])
	require.Len(t, body["data"], 1)

	w = perform(r, http.MethodGet, "/properties?owner_id=x", nil, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "Invalid owner_id", decode(t, w)["error"])
}

func TestUpdateAndDeleteRequireOwnership(t *testing.T) {
	intruder := domain.User{ID: 3, Name: "owner_ffff", WalletAddress: "0xother", Verified: true, UserType: domain.UserTypeOwner}
	f := newFixture([]domain.User{owner, intruder}, []domain.Property{seededListing()})
	r := newPropertyRouter(f)

	w := perform(r, http.MethodPut, "/properties/7", map[string]any{"title": "Hijacked"}, f.tokenFor(intruder))
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "You do not own this property", decode(t, w)["error"])

	w = perform(r, http.MethodPut, "/properties/7", map[string]any{"title": "Renovated loft"}, f.tokenFor(owner))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "Renovated loft", decode(t, w)["data"].(map[string]any)["title"])

	w = perform(r, http.MethodDelete, "/properties/7", nil, f.tokenFor(intruder))
	require.Equal(t, http.StatusForbidden, w.Code)

	w = perform(r, http.MethodDelete, "/properties/7", nil, f.tokenFor(owner))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Property deleted successfully", decode(t, w)["message"])

	w = perform(r, http.MethodGet, "/properties/7", nil, "")
	require.Equal(t, http.StatusNotFound, w.Code)
}
