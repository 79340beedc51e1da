package handler

import (
	"context"
	"time"

	"github.com/quickblog/internal/db"
	"github.com/quickblog/internal/service"
	"go.uber.org/zap"
)

const defaultMaxUploadBytes int64 = 10 << 20

// BlogStore is the blog workflow used by the handlers.
type BlogStore interface {
	Create(ctx context.Context, input service.BlogInput, cover *service.ImageUpload) (*db.Blog, error)
	Update(ctx context.Context, id uint, input service.BlogInput, cover *service.ImageUpload) (*db.Blog, error)
	Get(ctx context.Context, id uint) (*db.Blog, error)
	ListPublished(ctx context.Context) ([]db.Blog, error)
	ListAll(ctx context.Context) ([]db.Blog, error)
	Delete(ctx context.Context, id uint) error
	TogglePublish(ctx context.Context, id uint) (bool, error)
}

// CommentStore is the moderation workflow used by the handlers.
type CommentStore interface {
	Submit(ctx context.Context, input service.CommentInput) error
	ListApproved(ctx context.Context, blogID uint) ([]db.Comment, error)
	List(ctx context.Context, status string) ([]db.Comment, error)
	Approve(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
}

// DashboardReader produces the admin dashboard summary.
type DashboardReader interface {
	Summary(ctx context.Context, page, pageSize int) (*service.DashboardSummary, error)
}

// Authenticator logs admins in and verifies their tokens.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (string, time.Time, error)
	Authenticate(ctx context.Context, token string) (*service.AdminClaims, error)
}

// Dependencies wires services into the API.
type Dependencies struct {
	Blogs          BlogStore
	Comments       CommentStore
	Dashboard      DashboardReader
	Content        service.ContentGenerator
	Auth           Authenticator
	Logger         *zap.Logger
	MaxUploadBytes int64
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	blogs          BlogStore
	comments       CommentStore
	dashboard      DashboardReader
	content        service.ContentGenerator
	auth           Authenticator
	logger         *zap.Logger
	maxUploadBytes int64
}

// NewAPI constructs a handler set with shared services.
func NewAPI(deps Dependencies) *API {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxUpload := deps.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	return &API{
		blogs:          deps.Blogs,
		comments:       deps.Comments,
		dashboard:      deps.Dashboard,
		content:        deps.Content,
		auth:           deps.Auth,
		logger:         logger,
		maxUploadBytes: maxUpload,
	}
}
