package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/phishguard/services"
	"github.com/cppla/phishguard/utils"
)

type TagController struct {
	tags *services.TagService
}

func NewTagController(tags *services.TagService) *TagController {
	return &TagController{tags: tags}
}

// List returns every tag ordered by name.
func (t *TagController) List(ctx *gin.Context) {
	list, err := t.tags.List()
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, list)
}
