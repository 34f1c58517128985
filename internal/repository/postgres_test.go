package repository_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ChetanXpro/yesbroker/internal/domain"
	"github.com/ChetanXpro/yesbroker/internal/repository"
)

func TestBuildListPropertiesQueryNoFilters(t *testing.T) {
	query, args := repository.BuildListPropertiesQuery(domain.PropertyFilter{})
	require.Empty(t, args)
	require.NotContains(t, query, "$1")
	require.Contains(t, query, "LEFT JOIN users u ON p.owner_id = u.id")
	require.Contains(t, query, "ORDER BY p.created_at DESC")
}

func TestBuildListPropertiesQueryAllFilters(t *testing.T) {
	owner := int64(7)
	query, args := repository.BuildListPropertiesQuery(domain.PropertyFilter{
		OwnerID: &owner,
		Status:  "available",
		City:    "pune",
	})
	require.Equal(t, []any{int64(7), "available", "%pune%"}, args)
	require.Contains(t, query, "p.owner_id = $1")
	require.Contains(t, query, "p.status = $2")
	require.Contains(t, query, "p.city ILIKE $3")
}

func TestBuildListPropertiesQueryCityOnlyIsFirstPlaceholder(t *testing.T) {
	query, args := repository.BuildListPropertiesQuery(domain.PropertyFilter{City: "50%_off"})
	require.Equal(t, []any{`%50\%\_off%`}, args)
	require.Contains(t, query, "p.city ILIKE $1")
}

func TestBuildUpdatePropertyQuery(t *testing.T) {
	title := "Loft"
	price := decimal.RequireFromString("1200.50")
	query, args, ok := repository.BuildUpdatePropertyQuery(42, domain.PropertyPatch{Title: &title, Price: &price})
	require.True(t, ok)
	require.Contains(t, query, "title = $1, price = $2, updated_at = NOW()")
	require.Contains(t, query, "WHERE id = $3")
	require.Len(t, args, 3)
	require.Equal(t, int64(42), args[2])
}

func TestBuildUpdatePropertyQueryEmptyPatch(t *testing.T) {
	_, _, ok := repository.BuildUpdatePropertyQuery(1, domain.PropertyPatch{})
	require.False(t, ok)
}
