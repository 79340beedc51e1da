package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const defaultImageKitUploadURL = "https://upload.imagekit.io/api/v1/files/upload"

// ImageKitStore 通过 ImageKit 上传 API 保存原图，并用 URL 变换参数生成优化后的访问地址。
type ImageKitStore struct {
	http        httpDoer
	privateKey  string
	uploadURL   string
	urlEndpoint string
}

type imageKitUploadResponse struct {
	FileID   string `json:"fileId"`
	FilePath string `json:"filePath"`
	URL      string `json:"url"`
	Message  string `json:"message"`
}

// NewImageKitStore constructs an ImageKitStore.
func NewImageKitStore(privateKey, urlEndpoint, uploadURL string, timeout time.Duration) *ImageKitStore {
	if strings.TrimSpace(uploadURL) == "" {
		uploadURL = defaultImageKitUploadURL
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ImageKitStore{
		http:        &http.Client{Timeout: timeout},
		privateKey:  strings.TrimSpace(privateKey),
		uploadURL:   strings.TrimSpace(uploadURL),
		urlEndpoint: strings.TrimRight(strings.TrimSpace(urlEndpoint), "/"),
	}
}

// SetHTTPClient 覆盖默认 HTTP 客户端，主要用于测试。
func (s *ImageKitStore) SetHTTPClient(client httpDoer) {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	s.http = client
}

// Upload sends the file to the ImageKit upload API and returns its filePath.
func (s *ImageKitStore) Upload(ctx context.Context, folder string, upload ImageUpload) (string, error) {
	if len(upload.Data) == 0 {
		return "", invalid("image", "image file is empty")
	}
	if s.privateKey == "" {
		return "", errors.New("imagekit private key is not configured")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	filePart, err := writer.CreateFormFile("file", upload.FileName)
	if err != nil {
		return "", fmt.Errorf("构造上传请求失败: %w", err)
	}
	if _, err := filePart.Write(upload.Data); err != nil {
		return "", fmt.Errorf("构造上传请求失败: %w", err)
	}
	fields := map[string]string{
		"fileName":          upload.FileName,
		"folder":            folder,
		"useUniqueFileName": "true",
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return "", fmt.Errorf("构造上传请求失败: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("构造上传请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.uploadURL, &body)
	if err != nil {
		return "", fmt.Errorf("创建 ImageKit 请求失败: %w", err)
	}
	req.SetBasicAuth(s.privateKey, "")
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("请求 ImageKit 接口失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("读取 ImageKit 响应失败: %w", err)
	}

	var parsed imageKitUploadResponse
	if resp.StatusCode >= http.StatusBadRequest {
		// 错误响应可能不是 JSON（如网关返回的 HTML），解析失败时使用状态行
		msg := resp.Status
		if json.Unmarshal(respBody, &parsed) == nil && strings.TrimSpace(parsed.Message) != "" {
			msg = strings.TrimSpace(parsed.Message)
		}
		return "", fmt.Errorf("ImageKit 接口返回错误（HTTP %d）：%s", resp.StatusCode, msg)
	}

	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("解析 ImageKit 响应失败: %w", err)
	}

	filePath := strings.TrimSpace(parsed.FilePath)
	if filePath == "" {
		return "", errors.New("ImageKit 接口未返回 filePath")
	}
	return filePath, nil
}

// TransformURL builds the delivery URL with an ImageKit "tr" query.
func (s *ImageKitStore) TransformURL(_ context.Context, filePath string, transform ImageTransform) (string, error) {
	if s.urlEndpoint == "" {
		return "", errors.New("imagekit url endpoint is not configured")
	}
	filePath = strings.TrimSpace(filePath)
	if filePath == "" {
		return "", errors.New("image path is empty")
	}
	if !strings.HasPrefix(filePath, "/") {
		filePath = "/" + filePath
	}

	src := s.urlEndpoint + filePath
	tr := imageKitTransformation(transform)
	if tr == "" {
		return src, nil
	}
	return src + "?tr=" + tr, nil
}

func imageKitTransformation(t ImageTransform) string {
	parts := make([]string, 0, 3)
	if q := strings.TrimSpace(t.Quality); q != "" {
		parts = append(parts, "q-"+q)
	}
	if f := strings.TrimSpace(t.Format); f != "" {
		parts = append(parts, "f-"+f)
	}
	if t.Width > 0 {
		parts = append(parts, "w-"+strconv.Itoa(t.Width))
	}
	return strings.Join(parts, ",")
}
