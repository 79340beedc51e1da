package service

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ImageUpload is a raw asset received from the admin form.
type ImageUpload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ImageTransform describes the delivery rendition requested from the image host.
type ImageTransform struct {
	// Quality is "auto" or a numeric quality between 1 and 100.
	Quality string
	Format  string
	Width   int
}

// BlogCoverTransform 是所有博客封面统一使用的优化参数。
var BlogCoverTransform = ImageTransform{Quality: "auto", Format: "webp", Width: 1280}

const blogImageFolder = "/blogs"

// ImageStore 抽象图片托管服务：先上传原图，再获取经过变换的访问地址。
type ImageStore interface {
	// Upload stores the raw bytes and returns a durable path.
	Upload(ctx context.Context, folder string, upload ImageUpload) (string, error)
	// TransformURL returns the delivery URL for the transformed rendition of path.
	TransformURL(ctx context.Context, path string, transform ImageTransform) (string, error)
}

// objectKey 生成唯一对象名：<folder>/<yyyymmdd>-<uuid><ext>
func objectKey(folder, fileName string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	name := fmt.Sprintf("%s-%s%s", now.Format("20060102"), uuid.New().String(), ext)
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return path.Join(folder, name)
}
