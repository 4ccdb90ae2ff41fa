package handler

import (
	"fmt"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/listing_sub_server/internal/pkg/response"
	"github.com/qs3c/listing_sub_server/internal/testutil"
)

func reminderRouter(ctx *testContext) *gin.Engine {
	h := NewReminderHandler(ctx.Reminders)
	router := gin.New()
	router.POST("/admin/reminders/sweep", h.Sweep)
	router.GET("/admin/reminders", h.ListLogs)
	return router
}

func TestReminderHandler_SweepAndListLogs(t *testing.T) {
	ctx := setupServices(t)
	user := testutil.TestUser(t, ctx.DB)
	now := time.Now().UTC()
	sub := testutil.TestSubscription(t, ctx.DB, user.ID,
		testutil.WithWindow(now.Add(-29*24*time.Hour), now.Add(12*time.Hour)))
	router := reminderRouter(ctx)

	resp := parseResponse(t, performRequest(router, "POST", "/admin/reminders/sweep", nil))
	require.Equal(t, response.CodeSuccess, resp.Code)
	data := dataMap(t, resp)
	assert.Equal(t, float64(1), data["candidates"])
	assert.Equal(t, float64(1), data["sent"])

	resp = parseResponse(t, performRequest(router, "GET", fmt.Sprintf("/admin/reminders?subscription_id=%d", sub.ID), nil))
	require.Equal(t, response.CodeSuccess, resp.Code)
	logs := resp.Data.([]interface{})
	require.Len(t, logs, 1)
	assert.Equal(t, "1_day", logs[0].(map[string]interface{})["reminder_type"])
}

func TestReminderHandler_ListLogs_BadParam(t *testing.T) {
	ctx := setupServices(t)
	router := reminderRouter(ctx)

	resp := parseResponse(t, performRequest(router, "GET", "/admin/reminders", nil))
	assert.Equal(t, response.CodeParamError, resp.Code)

	resp = parseResponse(t, performRequest(router, "GET", "/admin/reminders?subscription_id=0", nil))
	assert.Equal(t, response.CodeParamError, resp.Code)
}
