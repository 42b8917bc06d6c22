//go:build integration

package integration

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type promotionResponse struct {
	ID           string  `json:"id"`
	Code         string  `json:"code"`
	Discount     float64 `json:"discount"`
	DiscountType string  `json:"discount_type"`
	IsActive     bool    `json:"is_active"`
}

func createPromotion(t *testing.T, body map[string]any) promotionResponse {
	t.Helper()

	resp, err := postJSON(formatURL("/api/promotions"), body)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "Expected 201 Created")

	var created promotionResponse
	require.NoError(t, readJSONResponse(resp, &created))
	require.NotEmpty(t, created.ID)
	return created
}

func deletePromotion(t *testing.T, id string) {
	t.Helper()
	resp, err := doJSON(http.MethodDelete, formatURL("/api/promotions/"+id), nil)
	require.NoError(t, err)
	resp.Body.Close()
}

func TestCreatePromotion_Integration_Success(t *testing.T) {
	cleanupMirror(t)

	created := createPromotion(t, map[string]any{
		"code":          "INTEG20",
		"discount":      20,
		"discount_type": "percentage",
		"expiry_date":   time.Now().AddDate(0, 0, 30).Format(time.RFC3339),
		"is_active":     true,
		"target":        "all",
	})
	defer deletePromotion(t, created.ID)

	assert.Equal(t, "INTEG20", created.Code)
	assert.Equal(t, 20.0, created.Discount)

	// The create is mirrored best-effort to the remote promotions table.
	code, ok := mirroredPromotionCode(t, created.ID)
	require.True(t, ok, "promotion should be mirrored to the database")
	assert.Equal(t, "INTEG20", code)
}

func TestCreatePromotion_Integration_ValidationError(t *testing.T) {
	resp, err := postJSON(formatURL("/api/promotions"), map[string]any{
		"discount":      20,
		"discount_type": "percentage",
		"expiry_date":   time.Now().AddDate(0, 0, 30).Format(time.RFC3339),
		"target":        "all",
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "Expected 400 Bad Request for missing code")

	var result map[string]string
	require.NoError(t, readJSONResponse(resp, &result))
	assert.Equal(t, "invalid request: Code is required", result["error"])
	assert.Equal(t, "general", result["section"])
}

func TestGetByCode_Integration_CaseInsensitive(t *testing.T) {
	created := createPromotion(t, map[string]any{
		"code":          "CaseTest25",
		"discount":      25,
		"discount_type": "percentage",
		"expiry_date":   time.Now().AddDate(0, 0, 30).Format(time.RFC3339),
		"is_active":     true,
		"target":        "all",
	})
	defer deletePromotion(t, created.ID)

	resp, err := getJSON(formatURL("/api/promotions/code/CASETEST25"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got promotionResponse
	require.NoError(t, readJSONResponse(resp, &got))
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "CaseTest25", got.Code, "lookup is case-insensitive but the stored code is preserved")
}

func TestGetByCode_Integration_NotFound(t *testing.T) {
	resp, err := getJSON(formatURL("/api/promotions/code/DOES_NOT_EXIST"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeactivatePromotion_Integration_HidesCode(t *testing.T) {
	created := createPromotion(t, map[string]any{
		"code":          "TOGGLE10",
		"discount":      10,
		"discount_type": "percentage",
		"expiry_date":   time.Now().AddDate(0, 0, 30).Format(time.RFC3339),
		"is_active":     true,
		"target":        "all",
	})
	defer deletePromotion(t, created.ID)

	resp, err := postJSON(formatURL("/api/promotions/"+created.ID+"/deactivate"), nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated promotionResponse
	require.NoError(t, readJSONResponse(resp, &updated))
	assert.False(t, updated.IsActive)

	// An inactive promotion is invisible to code lookup.
	lookup, err := getJSON(formatURL("/api/promotions/code/TOGGLE10"))
	require.NoError(t, err)
	defer lookup.Body.Close()
	assert.Equal(t, http.StatusNotFound, lookup.StatusCode)
}

func TestDeletePromotion_Integration_RemovesMirrorRow(t *testing.T) {
	created := createPromotion(t, map[string]any{
		"code":          "EPHEMERE5",
		"discount":      5,
		"discount_type": "percentage",
		"expiry_date":   time.Now().AddDate(0, 0, 7).Format(time.RFC3339),
		"is_active":     true,
		"target":        "all",
	})

	resp, err := doJSON(http.MethodDelete, formatURL("/api/promotions/"+created.ID), nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, ok := mirroredPromotionCode(t, created.ID)
	assert.False(t, ok, "mirror row should be removed with the promotion")
}
