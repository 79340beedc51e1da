package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type generateContentRequest struct {
	Prompt string `json:"prompt"`
}

// AddBlog 创建文章：multipart 表单包含 "blog" JSON 与 "image" 文件。
func (a *API) AddBlog(c *gin.Context) {
	input, cover, err := a.readBlogForm(c)
	if err != nil {
		a.respondServiceError(c, "add blog", err)
		return
	}

	blog, err := a.blogs.Create(c.Request.Context(), input, cover)
	if err != nil {
		a.respondServiceError(c, "add blog", err)
		return
	}

	respond(c, http.StatusCreated, gin.H{
		"message": "Blog added successfully",
		"blog":    blog,
	})
}

// ListPublishedBlogs returns every published blog, newest first.
func (a *API) ListPublishedBlogs(c *gin.Context) {
	blogs, err := a.blogs.ListPublished(c.Request.Context())
	if err != nil {
		a.respondServiceError(c, "list published blogs", err)
		return
	}
	respond(c, http.StatusOK, gin.H{"blogs": blogs})
}

// ListAllBlogs returns drafts and published blogs for the admin list.
func (a *API) ListAllBlogs(c *gin.Context) {
	blogs, err := a.blogs.ListAll(c.Request.Context())
	if err != nil {
		a.respondServiceError(c, "list blogs", err)
		return
	}
	respond(c, http.StatusOK, gin.H{"blogs": blogs})
}

// GetBlog returns one blog by id.
func (a *API) GetBlog(c *gin.Context) {
	id, err := parseUintParam(c, "blogId")
	if err != nil {
		respondError(c, http.StatusNotFound, "Blog not found")
		return
	}

	blog, err := a.blogs.Get(c.Request.Context(), id)
	if err != nil {
		a.respondServiceError(c, "get blog", err)
		return
	}
	respond(c, http.StatusOK, gin.H{"blog": blog})
}

// EditBlog replaces a blog's fields; the cover changes only when a new image is sent.
func (a *API) EditBlog(c *gin.Context) {
	id, err := parseUintParam(c, "blogId")
	if err != nil {
		respondError(c, http.StatusNotFound, "Blog not found")
		return
	}

	input, cover, err := a.readBlogForm(c)
	if err != nil {
		a.respondServiceError(c, "edit blog", err)
		return
	}

	blog, err := a.blogs.Update(c.Request.Context(), id, input, cover)
	if err != nil {
		a.respondServiceError(c, "edit blog", err)
		return
	}

	respond(c, http.StatusOK, gin.H{
		"message": "Blog updated successfully",
		"blog":    blog,
	})
}

// DeleteBlog removes a blog and its comments.
func (a *API) DeleteBlog(c *gin.Context) {
	id, ok := bindID(c, "Blog id is required")
	if !ok {
		return
	}

	if err := a.blogs.Delete(c.Request.Context(), id); err != nil {
		a.respondServiceError(c, "delete blog", err)
		return
	}

	a.logger.Info("blog deleted by admin", zap.Uint("blog_id", id), zap.String("admin", c.GetString(adminUsernameKey)))
	respond(c, http.StatusOK, gin.H{"message": "Blog deleted successfully"})
}

// TogglePublish flips the published flag.
func (a *API) TogglePublish(c *gin.Context) {
	id, ok := bindID(c, "Blog id is required")
	if !ok {
		return
	}

	published, err := a.blogs.TogglePublish(c.Request.Context(), id)
	if err != nil {
		a.respondServiceError(c, "toggle publish", err)
		return
	}

	respond(c, http.StatusOK, gin.H{
		"message":     "Blog status updated",
		"isPublished": published,
	})
}

// GenerateContent drafts article HTML for a topic; nothing is stored.
func (a *API) GenerateContent(c *gin.Context) {
	var req generateContentRequest
	if !bindJSON(c, &req, "Prompt is required") {
		return
	}

	content, err := a.content.GenerateContent(c.Request.Context(), req.Prompt)
	if err != nil {
		a.respondServiceError(c, "generate content", err)
		return
	}

	respond(c, http.StatusOK, gin.H{"content": content})
}

// Dashboard returns counters and a page of recent blogs.
func (a *API) Dashboard(c *gin.Context) {
	summary, err := a.dashboard.Summary(c.Request.Context(), parsePositiveQuery(c, "page"), parsePositiveQuery(c, "limit"))
	if err != nil {
		a.respondServiceError(c, "dashboard", err)
		return
	}
	respond(c, http.StatusOK, gin.H{"dashboard": summary})
}
