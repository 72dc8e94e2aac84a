package controllers

import (
	"net/http"
	"regexp"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"
)

var pathParam = regexp.MustCompile(`[:*]([A-Za-z0-9_]+)`)

// DocsController publishes an OpenAPI document built from the live route table.
type DocsController struct {
	routes func() gin.RoutesInfo
	title  string
}

func NewDocsController(routes func() gin.RoutesInfo, title string) *DocsController {
	return &DocsController{routes: routes, title: title}
}

// openAPIPath converts gin's /reports/:id into OpenAPI's /reports/{id}.
func openAPIPath(p string) (string, []string) {
	var params []string
	out := pathParam.ReplaceAllStringFunc(p, func(m string) string {
		name := m[1:]
		params = append(params, name)
		return "{" + name + "}"
	})
	return out, params
}

func operationTag(p string) string {
	parts := strings.Split(strings.TrimPrefix(p, "/api/v1/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return "platform"
	}
	return parts[0]
}

// Spec builds the OpenAPI 3 document.
func (d *DocsController) Spec() gin.H {
	routes := d.routes()
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})

	paths := gin.H{}
	for _, r := range routes {
		if strings.HasPrefix(r.Path, "/docs") || strings.HasPrefix(r.Path, "/public") {
			continue
		}
		p, names := openAPIPath(r.Path)
		params := make([]gin.H, 0, len(names))
		for _, n := range names {
			params = append(params, gin.H{
				"name":     n,
				"in":       "path",
				"required": true,
				"schema":   gin.H{"type": "string"},
			})
		}
		op := gin.H{
			"tags":        []string{operationTag(r.Path)},
			"operationId": strings.ToLower(r.Method) + strings.ReplaceAll(strings.ReplaceAll(p, "/", "_"), "{", ""),
			"responses": gin.H{
				"default": gin.H{
					"description": "JSON envelope",
					"content": gin.H{
						"application/json": gin.H{"schema": gin.H{"$ref": "#/components/schemas/Envelope"}},
					},
				},
			},
			"security": []gin.H{{"bearerAuth": []string{}}},
		}
		if len(params) > 0 {
			op["parameters"] = params
		}
		item, ok := paths[p].(gin.H)
		if !ok {
			item = gin.H{}
			paths[p] = item
		}
		item[strings.ToLower(r.Method)] = op
	}

	return gin.H{
		"openapi": "3.0.3",
		"info":    gin.H{"title": d.title, "version": "1.0.0"},
		"paths":   paths,
		"components": gin.H{
			"securitySchemes": gin.H{
				"bearerAuth": gin.H{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
			"schemas": gin.H{
				"Envelope": gin.H{
					"type": "object",
					"properties": gin.H{
						"code":    gin.H{"type": "integer"},
						"message": gin.H{"type": "string"},
						"data":    gin.H{},
					},
				},
			},
		},
	}
}

// OpenAPI serves the raw document. It is not wrapped in the envelope so
// Swagger UI can load it directly.
func (d *DocsController) OpenAPI(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, d.Spec())
}

const swaggerPage = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>API docs</title>
<link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
<script>window.ui = SwaggerUIBundle({url: "/docs/openapi.json", dom_id: "#swagger-ui"});</script>
</body>
</html>`

func (d *DocsController) UI(ctx *gin.Context) {
	ctx.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerPage))
}
