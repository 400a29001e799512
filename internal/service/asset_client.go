package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shard-legends/clan-service/internal/models"
)

// HTTPAssetClient uploads clan images to the asset service
type HTTPAssetClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewAssetClient creates an asset service client
func NewAssetClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPAssetClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPAssetClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type assetUploadResponse struct {
	Path string `json:"path"`
}

// SaveClanAsset posts data as a multipart "file" field and returns the stored path
func (c *HTTPAssetClient) SaveClanAsset(ctx context.Context, clanID int, fileType models.ClanFileType, filename string, data []byte) (string, error) {
	url := fmt.Sprintf("%s/assets/clans/%d/%s", c.baseURL, clanID, fileType)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("failed to write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Idempotency-Key", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("Asset service rejected upload",
			zap.Int("clan_id", clanID),
			zap.String("type", fileType.String()),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(msg)))
		return "", fmt.Errorf("failed to upload clan %s: status %d", fileType, resp.StatusCode)
	}

	var out assetUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.Path == "" {
		return "", fmt.Errorf("asset service returned an empty path")
	}
	return out.Path, nil
}
