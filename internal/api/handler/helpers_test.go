package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/listing_sub_server/config"
	"github.com/qs3c/listing_sub_server/internal/api/middleware"
	"github.com/qs3c/listing_sub_server/internal/model"
	"github.com/qs3c/listing_sub_server/internal/pkg/clock"
	"github.com/qs3c/listing_sub_server/internal/pkg/notify"
	"github.com/qs3c/listing_sub_server/internal/pkg/response"
	"github.com/qs3c/listing_sub_server/internal/repository"
	"github.com/qs3c/listing_sub_server/internal/service"
	"github.com/qs3c/listing_sub_server/internal/testutil"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testContext 本地测试上下文
type testContext struct {
	DB           *gorm.DB
	Claims       *service.ClaimService
	Catalog      *service.CatalogService
	Ledger       *service.LedgerService
	Verification *service.VerificationService
	Entitlement  *service.EntitlementService
	Reminders    *service.ReminderService
}

func setupServices(t *testing.T) *testContext {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := &config.Config{}
	cfg.Reminder.Timezone = "UTC"
	cfg.ApplyDefaults()

	clk := clock.Real{}
	claimRepo := repository.NewClaimRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)
	userRepo := repository.NewUserRepository(db)

	catalog := service.NewCatalogService(repository.NewTierPackageRepository(db), &cfg.Catalog)
	ledger := service.NewLedgerService(subRepo, userRepo, catalog, nil, clk)

	return &testContext{
		DB:           db,
		Claims:       service.NewClaimService(claimRepo, nil, nil, clk, cfg),
		Catalog:      catalog,
		Ledger:       ledger,
		Verification: service.NewVerificationService(db, claimRepo, ledger, nil, nil, nil, clk),
		Entitlement:  service.NewEntitlementService(catalog, ledger, &cfg.Entitlement),
		Reminders: service.NewReminderService(service.ReminderDeps{
			SubRepo:      subRepo,
			ReminderRepo: repository.NewReminderRepository(db),
			UserRepo:     userRepo,
			Transport:    notify.LogTransport{},
			Clock:        clk,
		}, &cfg.Reminder),
	}
}

// mockAuth 模拟认证中间件
func mockAuth(userID int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Set(middleware.RoleKey, model.RoleSubject)
		c.Next()
	}
}

func performRequest(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

func dataMap(t *testing.T, resp response.Response) map[string]interface{} {
	t.Helper()
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "data is %T", resp.Data)
	return data
}
