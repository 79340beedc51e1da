package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/quickblog/internal/service"
)

// multipartOverhead leaves room for the "blog" JSON field next to the image.
const multipartOverhead int64 = 1 << 20

// limitMultipart caps the request body before gin parses the form.
func (a *API) limitMultipart(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, a.maxUploadBytes+multipartOverhead)
}

// readImageUpload 读取 multipart 中的 "image" 字段；未上传时返回 nil。
func (a *API) readImageUpload(c *gin.Context) (*service.ImageUpload, error) {
	file, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, a.tooLarge()
		}
		return nil, &service.ValidationError{Field: "image", Message: "Image upload could not be read"}
	}

	// 检查文件类型
	contentType := file.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, &service.ValidationError{Field: "image", Message: "Only image files are allowed"}
	}
	if file.Size > a.maxUploadBytes {
		return nil, a.tooLarge()
	}

	src, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("open uploaded file: %w", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, a.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read uploaded file: %w", err)
	}
	if int64(len(data)) > a.maxUploadBytes {
		return nil, a.tooLarge()
	}

	return &service.ImageUpload{
		FileName:    file.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}

// readBlogForm decodes the "blog" JSON field and the optional image.
func (a *API) readBlogForm(c *gin.Context) (service.BlogInput, *service.ImageUpload, error) {
	a.limitMultipart(c)

	// FormFile 会触发表单解析，先读取图片以便识别超限请求
	cover, err := a.readImageUpload(c)
	if err != nil {
		return service.BlogInput{}, nil, err
	}

	input, err := service.DecodeBlogMetadata([]byte(c.PostForm("blog")))
	if err != nil {
		return service.BlogInput{}, nil, err
	}
	return input, cover, nil
}

func (a *API) tooLarge() error {
	return &service.ValidationError{
		Field:   "image",
		Message: fmt.Sprintf("Image must be at most %d MB", a.maxUploadBytes>>20),
	}
}
