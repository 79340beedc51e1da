package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	autoJPEGQuality = 80
	// 解码前按头部声明的尺寸拦截，避免小文件触发超大内存分配
	maxImagePixels = 40_000_000
)

var errObjectNotFound = errors.New("object not found")

// objectBackend is a dumb byte store the rendition store writes into.
type objectBackend interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	URL(key string) string
}

// RenditionImageStore 在本地完成图片变换（限制宽度、重新编码），再写入对象存储。
// x/image 没有 WebP 编码器，变换后的格式统一为 JPEG。
type RenditionImageStore struct {
	backend objectBackend
	now     func() time.Time
}

func newRenditionImageStore(backend objectBackend) *RenditionImageStore {
	return &RenditionImageStore{backend: backend, now: time.Now}
}

// Upload stores the original bytes under a unique key.
func (s *RenditionImageStore) Upload(ctx context.Context, folder string, upload ImageUpload) (string, error) {
	if len(upload.Data) == 0 {
		return "", invalid("image", "image file is empty")
	}
	key := objectKey(folder, upload.FileName, s.now())
	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.backend.Put(ctx, key, upload.Data, contentType); err != nil {
		return "", fmt.Errorf("store original %s: %w", key, err)
	}
	return key, nil
}

// TransformURL renders the rendition for key once and returns its URL.
func (s *RenditionImageStore) TransformURL(ctx context.Context, key string, transform ImageTransform) (string, error) {
	renditionKey := renditionKeyFor(key, transform)

	if _, err := s.backend.Get(ctx, renditionKey); err == nil {
		return s.backend.URL(renditionKey), nil
	} else if !errors.Is(err, errObjectNotFound) {
		return "", err
	}

	original, err := s.backend.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("load original %s: %w", key, err)
	}

	rendered, err := renderJPEG(original, transform)
	if err != nil {
		return "", err
	}

	if err := s.backend.Put(ctx, renditionKey, rendered, "image/jpeg"); err != nil {
		return "", fmt.Errorf("store rendition %s: %w", renditionKey, err)
	}
	return s.backend.URL(renditionKey), nil
}

func renditionKeyFor(key string, transform ImageTransform) string {
	base := strings.TrimSuffix(key, filepath.Ext(key))
	quality := strings.TrimSpace(transform.Quality)
	if quality == "" {
		quality = "auto"
	}
	return fmt.Sprintf("%s_w%d_q%s.jpg", base, transform.Width, quality)
}

func renderJPEG(original []byte, transform ImageTransform) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(original))
	if err != nil {
		return nil, invalid("image", "unsupported image format")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
		return nil, invalid("image", fmt.Sprintf("image dimensions %dx%d are too large", cfg.Width, cfg.Height))
	}

	img, _, err := image.Decode(bytes.NewReader(original))
	if err != nil {
		return nil, invalid("image", "unsupported image format")
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if transform.Width > 0 && w > transform.Width {
		newH := h * transform.Width / w
		if newH < 1 {
			newH = 1
		}
		dst := image.NewRGBA(image.Rect(0, 0, transform.Width, newH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality(transform.Quality)}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func jpegQuality(raw string) int {
	q, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || q < 1 || q > 100 {
		return autoJPEGQuality
	}
	return q
}

// localBackend 将对象写入本地上传目录，并通过静态路由对外提供访问。
type localBackend struct {
	dir     string
	urlPath string
}

// NewLocalImageStore stores images under dir and serves them below urlPath.
func NewLocalImageStore(dir, urlPath string) *RenditionImageStore {
	return newRenditionImageStore(&localBackend{
		dir:     dir,
		urlPath: "/" + strings.Trim(urlPath, "/"),
	})
}

func (b *localBackend) Put(_ context.Context, key string, data []byte, _ string) error {
	full := filepath.Join(b.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	return os.WriteFile(full, data, 0o644)
}

func (b *localBackend) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(b.dir, filepath.FromSlash(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errObjectNotFound
		}
		return nil, err
	}
	return data, nil
}

func (b *localBackend) URL(key string) string {
	return b.urlPath + "/" + strings.TrimLeft(key, "/")
}
