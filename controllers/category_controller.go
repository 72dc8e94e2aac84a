package controllers

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/cppla/phishguard/services"
	"github.com/cppla/phishguard/utils"
)

// CategoryController serves report categories. Writes are admin only.
type CategoryController struct {
	categories *services.CategoryService
}

func NewCategoryController(categories *services.CategoryService) *CategoryController {
	return &CategoryController{categories: categories}
}

type categoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (c *CategoryController) List(ctx *gin.Context) {
	list, err := c.categories.List()
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, list)
}

func (c *CategoryController) Get(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	cat, err := c.categories.Get(id)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, cat)
}

func (c *CategoryController) GetByName(ctx *gin.Context) {
	name, err := url.PathUnescape(ctx.Param("name"))
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40051, "invalid name")
		return
	}
	cat, err := c.categories.GetByName(name)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, cat)
}

func (c *CategoryController) Create(ctx *gin.Context) {
	var req categoryRequest
	if !bindJSON(ctx, &req) {
		return
	}
	var name, desc string
	if req.Name != nil {
		name = *req.Name
	}
	if req.Description != nil {
		desc = *req.Description
	}
	cat, err := c.categories.Create(name, desc)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, cat)
}

func (c *CategoryController) Update(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req categoryRequest
	if !bindJSON(ctx, &req) {
		return
	}
	cat, err := c.categories.Update(id, req.Name, req.Description)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, cat)
}

func (c *CategoryController) Delete(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	if err := c.categories.Delete(id); err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"message": "category deleted"})
}
