package handler

import (
	"fmt"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/listing_sub_server/internal/model"
	"github.com/qs3c/listing_sub_server/internal/pkg/response"
	"github.com/qs3c/listing_sub_server/internal/testutil"
)

func subscriptionRouter(ctx *testContext, userID int64) *gin.Engine {
	h := NewSubscriptionHandler(ctx.Ledger)
	router := gin.New()
	router.Use(mockAuth(userID))
	router.GET("/subscription", h.Status)
	router.GET("/subscription/upgrade-quote", h.UpgradeQuote)
	router.PUT("/admin/subscriptions/:subject_id", h.AdminUpsert)
	router.PUT("/admin/subscriptions/:subject_id/active", h.SetActive)
	return router
}

func TestSubscriptionHandler_Status(t *testing.T) {
	ctx := setupServices(t)
	user := testutil.TestUser(t, ctx.DB)
	router := subscriptionRouter(ctx, user.ID)

	resp := parseResponse(t, performRequest(router, "GET", "/subscription", nil))
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Equal(t, false, dataMap(t, resp)["entitled"])

	testutil.TestSubscription(t, ctx.DB, user.ID)

	resp = parseResponse(t, performRequest(router, "GET", "/subscription", nil))
	data := dataMap(t, resp)
	assert.Equal(t, true, data["entitled"])
	assert.Equal(t, float64(30), data["remaining_days"])
}

func TestSubscriptionHandler_UpgradeQuote(t *testing.T) {
	ctx := setupServices(t)
	user := testutil.TestUser(t, ctx.DB)
	testutil.TestPackage(t, ctx.DB, model.TierBasicPro, model.DurationOneMonth, "3000", 10)
	testutil.TestPackage(t, ctx.DB, model.TierVIPElite, model.DurationOneMonth, "7000", model.UnlimitedUploads)
	now := time.Now().UTC()
	testutil.TestSubscription(t, ctx.DB, user.ID,
		testutil.WithTier(model.TierBasicPro, model.DurationOneMonth),
		testutil.WithWindow(now.Add(-20*24*time.Hour), now.Add(10*24*time.Hour-time.Minute)))
	router := subscriptionRouter(ctx, user.ID)

	resp := parseResponse(t, performRequest(router, "GET", "/subscription/upgrade-quote?tier=vip_elite", nil))
	require.Equal(t, response.CodeSuccess, resp.Code)
	data := dataMap(t, resp)
	assert.Equal(t, float64(10), data["remaining_days"])
	assert.Equal(t, "1000", data["credit_amount"])
	assert.Equal(t, "6000", data["upgrade_cost"])

	resp = parseResponse(t, performRequest(router, "GET", "/subscription/upgrade-quote?tier=starter", nil))
	assert.Equal(t, response.CodeParamError, resp.Code)
}

func TestSubscriptionHandler_UpgradeQuote_NoSubscription(t *testing.T) {
	ctx := setupServices(t)
	user := testutil.TestUser(t, ctx.DB)

	resp := parseResponse(t, performRequest(subscriptionRouter(ctx, user.ID), "GET", "/subscription/upgrade-quote?tier=vip_elite", nil))
	assert.Equal(t, response.CodeInvalidState, resp.Code)
}

func TestSubscriptionHandler_AdminUpsertAndSetActive(t *testing.T) {
	ctx := setupServices(t)
	user := testutil.TestUser(t, ctx.DB)
	router := subscriptionRouter(ctx, 1)

	resp := parseResponse(t, performRequest(router, "PUT", fmt.Sprintf("/admin/subscriptions/%d", user.ID), gin.H{
		"tier":          "starter",
		"duration_type": "1_week",
		"amount_paid":   "500",
	}))
	require.Equal(t, response.CodeSuccess, resp.Code)
	assert.Equal(t, "starter", dataMap(t, resp)["tier"])

	resp = parseResponse(t, performRequest(router, "PUT", fmt.Sprintf("/admin/subscriptions/%d/active", user.ID), gin.H{"active": false}))
	require.Equal(t, response.CodeSuccess, resp.Code)

	var sub model.Subscription
	require.NoError(t, ctx.DB.Where("subject_id = ?", user.ID).First(&sub).Error)
	assert.False(t, sub.IsActive)
}

func TestSubscriptionHandler_AdminErrors(t *testing.T) {
	ctx := setupServices(t)
	router := subscriptionRouter(ctx, 1)

	resp := parseResponse(t, performRequest(router, "PUT", "/admin/subscriptions/999", gin.H{
		"tier":          "starter",
		"duration_type": "1_week",
	}))
	assert.Equal(t, response.CodeResourceNotFound, resp.Code)

	resp = parseResponse(t, performRequest(router, "PUT", "/admin/subscriptions/999/active", gin.H{"active": true}))
	assert.Equal(t, response.CodeResourceNotFound, resp.Code)

	resp = parseResponse(t, performRequest(router, "PUT", "/admin/subscriptions/1/active", gin.H{}))
	assert.Equal(t, response.CodeParamError, resp.Code)
}
