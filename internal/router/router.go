package router

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quickblog/internal/handler"
	"github.com/quickblog/internal/metrics"
	"go.uber.org/zap"
)

// Options configures the engine around the API handlers.
type Options struct {
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	// UploadDir/UploadURLPath serve locally stored images; empty disables the static route.
	UploadDir     string
	UploadURLPath string
	// MaxMultipartMemory bounds in-memory form parsing.
	MaxMultipartMemory int64
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, opts Options) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	if opts.MaxMultipartMemory > 0 {
		r.MaxMultipartMemory = opts.MaxMultipartMemory
	}
	r.Use(handler.RequestLogger(logger), handler.Recovery(logger))
	if opts.Metrics != nil {
		r.Use(handler.Metrics(opts.Metrics))
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	if dir := strings.TrimSpace(opts.UploadDir); dir != "" {
		urlPath := "/" + strings.Trim(opts.UploadURLPath, "/")
		if urlPath == "/" {
			urlPath = "/static/uploads"
		}
		r.Static(urlPath, dir)
	}

	auth := api.AuthRequired()

	blog := r.Group("/api/blog")
	{
		blog.GET("/all", api.ListPublishedBlogs)
		blog.POST("/add-comment", api.AddComment)
		blog.POST("/comments", api.ListApprovedComments)

		blog.POST("/add", auth, api.AddBlog)
		blog.POST("/edit/:blogId", auth, api.EditBlog)
		blog.POST("/delete", auth, api.DeleteBlog)
		blog.POST("/toggle-publish", auth, api.TogglePublish)
		blog.POST("/generate-content", auth, api.GenerateContent)
		blog.GET("/dashboard", auth, api.Dashboard)

		// 参数路由放在最后
		blog.GET("/:blogId", api.GetBlog)
	}

	admin := r.Group("/api/admin")
	{
		admin.POST("/login", api.Login)

		protected := admin.Group("")
		protected.Use(auth)
		{
			protected.GET("/blogs", api.ListAllBlogs)
			protected.GET("/comments", api.ListComments)
			protected.POST("/approve-comment", api.ApproveComment)
			protected.POST("/delete-comment", api.DeleteComment)
		}
	}

	return r
}
