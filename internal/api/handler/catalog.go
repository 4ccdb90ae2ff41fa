package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/qs3c/listing_sub_server/internal/model"
	"github.com/qs3c/listing_sub_server/internal/model/dto"
	"github.com/qs3c/listing_sub_server/internal/pkg/response"
	"github.com/qs3c/listing_sub_server/internal/service"
)

type CatalogHandler struct {
	catalogService *service.CatalogService
}

func NewCatalogHandler(catalogService *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
	}
}

// List 启用中的套餐，按展示顺序
// GET /api/v1/catalog?duration=1_month
func (h *CatalogHandler) List(c *gin.Context) {
	var duration *model.DurationType
	if raw := c.Query("duration"); raw != "" {
		d := model.DurationType(raw)
		duration = &d
	}

	pkgs, err := h.catalogService.ListActive(c.Request.Context(), duration)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, pkgs)
}

// Lookup 查询单个套餐定价
// GET /api/v1/catalog/:tier/:duration
func (h *CatalogHandler) Lookup(c *gin.Context) {
	tier, err := model.ParseTier(c.Param("tier"))
	if err != nil {
		response.ParamError(c, err.Error())
		return
	}
	duration, err := model.ParseDuration(c.Param("duration"))
	if err != nil {
		response.ParamError(c, err.Error())
		return
	}

	pkg, err := h.catalogService.Lookup(c.Request.Context(), tier, duration)
	if err != nil {
		respondError(c, err)
		return
	}

	response.Success(c, pkg)
}

// Create 新建定价
// POST /api/v1/admin/catalog
func (h *CatalogHandler) Create(c *gin.Context) {
	var req dto.CreatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	pkg, err := h.catalogService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "创建成功", pkg)
}

// Deactivate 下线定价
// POST /api/v1/admin/catalog/:id/deactivate
func (h *CatalogHandler) Deactivate(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.catalogService.Deactivate(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}

	response.SuccessWithMessage(c, "已下线", nil)
}
