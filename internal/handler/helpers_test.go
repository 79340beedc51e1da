package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quickblog/internal/db"
	"github.com/quickblog/internal/service"
	"github.com/stretchr/testify/require"
)

type fakeBlogStore struct {
	blogs     map[uint]*db.Blog
	nextID    uint
	lastCover *service.ImageUpload
	err       error
}

func newFakeBlogStore() *fakeBlogStore {
	return &fakeBlogStore{blogs: map[uint]*db.Blog{}, nextID: 1}
}

func (f *fakeBlogStore) Create(_ context.Context, input service.BlogInput, cover *service.ImageUpload) (*db.Blog, error) {
	if f.err != nil {
		return nil, f.err
	}
	if cover == nil {
		return nil, &service.ValidationError{Field: "image", Message: "image is required"}
	}
	f.lastCover = cover
	blog := &db.Blog{
		ID:          f.nextID,
		Title:       input.Title,
		SubTitle:    input.SubTitle,
		Description: input.Description,
		Category:    input.Category,
		Image:       "https://img.test/blogs/" + cover.FileName,
		IsPublished: input.IsPublished,
	}
	f.blogs[blog.ID] = blog
	f.nextID++
	return blog, nil
}

func (f *fakeBlogStore) Update(_ context.Context, id uint, input service.BlogInput, cover *service.ImageUpload) (*db.Blog, error) {
	if f.err != nil {
		return nil, f.err
	}
	blog, ok := f.blogs[id]
	if !ok {
		return nil, service.ErrBlogNotFound
	}
	f.lastCover = cover
	blog.Title = input.Title
	blog.SubTitle = input.SubTitle
	blog.Description = input.Description
	blog.Category = input.Category
	blog.IsPublished = input.IsPublished
	return blog, nil
}

func (f *fakeBlogStore) Get(_ context.Context, id uint) (*db.Blog, error) {
	if f.err != nil {
		return nil, f.err
	}
	blog, ok := f.blogs[id]
	if !ok {
		return nil, service.ErrBlogNotFound
	}
	return blog, nil
}

func (f *fakeBlogStore) ListPublished(_ context.Context) ([]db.Blog, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []db.Blog
	for id := uint(1); id < f.nextID; id++ {
		if b, ok := f.blogs[id]; ok && b.IsPublished {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBlogStore) ListAll(_ context.Context) ([]db.Blog, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []db.Blog
	for id := uint(1); id < f.nextID; id++ {
		if b, ok := f.blogs[id]; ok {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (f *fakeBlogStore) Delete(_ context.Context, id uint) error {
	if f.err != nil {
		return f.err
	}
	if _, ok := f.blogs[id]; !ok {
		return service.ErrBlogNotFound
	}
	delete(f.blogs, id)
	return nil
}

func (f *fakeBlogStore) TogglePublish(_ context.Context, id uint) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	blog, ok := f.blogs[id]
	if !ok {
		return false, service.ErrBlogNotFound
	}
	blog.IsPublished = !blog.IsPublished
	return blog.IsPublished, nil
}

type fakeCommentStore struct {
	submitted  []service.CommentInput
	approved   []uint
	deleted    []uint
	lastStatus string
	err        error
}

func (f *fakeCommentStore) Submit(_ context.Context, input service.CommentInput) error {
	if f.err != nil {
		return f.err
	}
	f.submitted = append(f.submitted, input)
	return nil
}

func (f *fakeCommentStore) ListApproved(_ context.Context, blogID uint) ([]db.Comment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []db.Comment{{ID: 1, BlogID: blogID, Name: "Ann", Content: "hi", IsApproved: true}}, nil
}

func (f *fakeCommentStore) List(_ context.Context, status string) ([]db.Comment, error) {
	f.lastStatus = status
	if f.err != nil {
		return nil, f.err
	}
	return []db.Comment{}, nil
}

func (f *fakeCommentStore) Approve(_ context.Context, id uint) error {
	if f.err != nil {
		return f.err
	}
	f.approved = append(f.approved, id)
	return nil
}

func (f *fakeCommentStore) Delete(_ context.Context, id uint) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeDashboard struct {
	page, limit int
}

func (f *fakeDashboard) Summary(_ context.Context, page, pageSize int) (*service.DashboardSummary, error) {
	f.page, f.limit = page, pageSize
	return &service.DashboardSummary{Blogs: 3, Comments: 2, Drafts: 1, RecentBlogs: []db.Blog{}, Page: 1, PageSize: 10, TotalPages: 1}, nil
}

type fakeGenerator struct {
	content string
	err     error
	prompts []string
}

func (f *fakeGenerator) GenerateContent(_ context.Context, topic string) (string, error) {
	f.prompts = append(f.prompts, topic)
	return f.content, f.err
}

type fakeAuth struct{}

const testToken = "good-token"

func (fakeAuth) Login(_ context.Context, username, password string) (string, time.Time, error) {
	if username == "admin" && password == "secret" {
		return testToken, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), nil
	}
	return "", time.Time{}, service.ErrInvalidCredentials
}

func (fakeAuth) Authenticate(_ context.Context, token string) (*service.AdminClaims, error) {
	if token != testToken {
		return nil, service.ErrUnauthorized
	}
	claims := &service.AdminClaims{UserID: 1}
	claims.Subject = "admin"
	return claims, nil
}

type testAPI struct {
	api       *API
	engine    *gin.Engine
	blogs     *fakeBlogStore
	comments  *fakeCommentStore
	dashboard *fakeDashboard
	generator *fakeGenerator
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ta := &testAPI{
		blogs:     newFakeBlogStore(),
		comments:  &fakeCommentStore{},
		dashboard: &fakeDashboard{},
		generator: &fakeGenerator{content: "<h2>Draft</h2>"},
	}
	ta.api = NewAPI(Dependencies{
		Blogs:          ta.blogs,
		Comments:       ta.comments,
		Dashboard:      ta.dashboard,
		Content:        ta.generator,
		Auth:           fakeAuth{},
		MaxUploadBytes: 1 << 20,
	})

	r := gin.New()
	r.Use(RequestLogger(ta.api.logger), Recovery(ta.api.logger))
	auth := ta.api.AuthRequired()
	r.POST("/login", ta.api.Login)
	r.GET("/blogs", ta.api.ListPublishedBlogs)
	r.GET("/blogs/all", auth, ta.api.ListAllBlogs)
	r.GET("/blog/:blogId", ta.api.GetBlog)
	r.POST("/add", auth, ta.api.AddBlog)
	r.POST("/edit/:blogId", auth, ta.api.EditBlog)
	r.POST("/delete", auth, ta.api.DeleteBlog)
	r.POST("/toggle", auth, ta.api.TogglePublish)
	r.POST("/generate", auth, ta.api.GenerateContent)
	r.GET("/dashboard", auth, ta.api.Dashboard)
	r.POST("/add-comment", ta.api.AddComment)
	r.POST("/comments", ta.api.ListApprovedComments)
	r.GET("/admin/comments", auth, ta.api.ListComments)
	r.POST("/approve", auth, ta.api.ApproveComment)
	r.POST("/delete-comment", auth, ta.api.DeleteComment)
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	ta.engine = r
	return ta
}

func (ta *testAPI) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	ta.engine.ServeHTTP(w, req)
	return w
}

func (ta *testAPI) postJSON(path, body string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	return ta.serve(req)
}

func (ta *testAPI) get(path string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authed {
		req.Header.Set("Authorization", testToken)
	}
	return ta.serve(req)
}

type formImage struct {
	name        string
	contentType string
	data        []byte
}

// multipartRequest builds a blog form with an optional image part.
func multipartRequest(t *testing.T, path, blogJSON string, img *formImage) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if blogJSON != "" {
		require.NoError(t, mw.WriteField("blog", blogJSON))
	}
	if img != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="`+img.name+`"`)
		h.Set("Content-Type", img.contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = io.Copy(part, bytes.NewReader(img.data))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body: %s", w.Body.String())
	return body
}

const validBlogJSON = `{"title":"Hello","subTitle":"World","description":"<p>Body</p>","category":"Technology","isPublished":true}`
