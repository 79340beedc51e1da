package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/quickblog/internal/db"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func seedBlog(t *testing.T, gdb *gorm.DB, title string, published bool, createdAt time.Time) db.Blog {
	t.Helper()
	blog := db.Blog{
		Title:       title,
		SubTitle:    title + " subtitle",
		Description: "<p>" + title + "</p>",
		Category:    db.CategoryTechnology,
		Image:       "https://img.test/blogs/" + title + ".jpg",
		IsPublished: published,
		CreatedAt:   createdAt,
	}
	if err := gdb.Create(&blog).Error; err != nil {
		t.Fatalf("seed blog %s: %v", title, err)
	}
	return blog
}

func seedComment(t *testing.T, gdb *gorm.DB, blogID uint, name string, approved bool) db.Comment {
	t.Helper()
	comment := db.Comment{BlogID: blogID, Name: name, Content: "comment from " + name, IsApproved: approved}
	if err := gdb.Create(&comment).Error; err != nil {
		t.Fatalf("seed comment %s: %v", name, err)
	}
	return comment
}

func countRows(t *testing.T, gdb *gorm.DB, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	tx := gdb.Model(model)
	if query != "" {
		tx = tx.Where(query, args...)
	}
	if err := tx.Count(&n).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return n
}

type fakeImageStore struct {
	mu           sync.Mutex
	uploads      []ImageUpload
	folders      []string
	uploadErr    error
	transformErr error
}

func (f *fakeImageStore) Upload(_ context.Context, folder string, upload ImageUpload) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, upload)
	f.folders = append(f.folders, folder)
	return fmt.Sprintf("%s/cover-%d%s", folder, len(f.uploads), filepath.Ext(upload.FileName)), nil
}

func (f *fakeImageStore) TransformURL(_ context.Context, path string, transform ImageTransform) (string, error) {
	if f.transformErr != nil {
		return "", f.transformErr
	}
	return fmt.Sprintf("https://img.test%s?tr=q-%s,f-%s,w-%d", path, transform.Quality, transform.Format, transform.Width), nil
}

func (f *fakeImageStore) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

type fakeHTTPClient struct {
	handler func(*http.Request) (*http.Response, error)
}

func (f fakeHTTPClient) Do(req *http.Request) (*http.Response, error) {
	if f.handler == nil {
		return nil, errors.New("no handler configured")
	}
	return f.handler(req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

type recordedCall struct {
	collaborator string
	operation    string
	failed       bool
}

type fakeRecorder struct {
	mu    sync.Mutex
	calls []recordedCall
}

func (r *fakeRecorder) RecordExternalCall(collaborator, operation string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, recordedCall{collaborator: collaborator, operation: operation, failed: err != nil})
}

func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x += 10 {
		for y := 0; y < height; y += 10 {
			img.Set(x, y, color.RGBA{R: uint8(x % 255), G: uint8(y % 255), B: 120, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func validBlogInput() BlogInput {
	return BlogInput{
		Title:       "Shipping Go services",
		SubTitle:    "Lessons from production",
		Description: "<h2>Intro</h2><p>Body</p>",
		Category:    db.CategoryTechnology,
	}
}

func coverUpload() *ImageUpload {
	return &ImageUpload{FileName: "cover.png", ContentType: "image/png", Data: []byte("png-bytes")}
}
