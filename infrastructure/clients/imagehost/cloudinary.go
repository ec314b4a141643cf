package imagehost

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"prism-connector/domain/repository"
	"prism-connector/infrastructure/logger"
)

// Formats the platform accepts natively.
var publishableTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

// Formats we can repair by reprojecting to JPEG.
var repairableTypes = map[string]bool{
	"image/webp": true,
	"image/gif":  true,
	"image/bmp":  true,
	"image/tiff": true,
}

type Config struct {
	CloudName string
	APIKey    string
	APISecret string

	// UploadBase overrides the Cloudinary endpoint for tests.
	UploadBase string
}

// Cloudinary gates image formats for publishing. Publishable URLs pass
// through untouched; repairable formats are re-uploaded as JPEG and the new
// public URL is returned.
type Cloudinary struct {
	cfg  Config
	http *http.Client
	now  func() time.Time
}

func NewCloudinary(cfg Config) *Cloudinary {
	if cfg.UploadBase == "" {
		cfg.UploadBase = "https://api.cloudinary.com/v1_1"
	}
	return &Cloudinary{cfg: cfg, http: &http.Client{Timeout: 30 * time.Second}, now: time.Now}
}

var _ repository.IImageHost = (*Cloudinary)(nil)

func (c *Cloudinary) EnsureJPEG(ctx context.Context, imageURL string) (string, error) {
	contentType, err := c.probe(ctx, imageURL)
	if err != nil {
		// Unreachable image fails later with a clearer platform error, so a
		// failed probe is not fatal here.
		logger.GetLogger().WithField("error", err).Warn("Image probe failed; passing URL through")
		return imageURL, nil
	}

	switch {
	case publishableTypes[contentType]:
		return imageURL, nil
	case repairableTypes[contentType]:
		if c.cfg.CloudName == "" || c.cfg.APIKey == "" {
			return "", fmt.Errorf("%w: %s (image host not configured for repair)",
				repository.ErrImageUnsupported, contentType)
		}
		return c.reupload(ctx, imageURL)
	default:
		return "", fmt.Errorf("%w: %s", repository.ErrImageUnsupported, contentType)
	}
}

func (c *Cloudinary) probe(ctx context.Context, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, imageURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("probe returned %s", resp.Status)
	}
	ct := resp.Header.Get("Content-Type")
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	return strings.TrimSpace(strings.ToLower(ct)), nil
}

// reupload performs a signed server-side fetch upload with format=jpg, so
// Cloudinary reprojects the source image and hosts the JPEG.
func (c *Cloudinary) reupload(ctx context.Context, imageURL string) (string, error) {
	params := map[string]string{
		"file":      imageURL,
		"format":    "jpg",
		"timestamp": fmt.Sprintf("%d", c.now().Unix()),
	}
	params["signature"] = c.sign(params)
	params["api_key"] = c.cfg.APIKey

	form := url.Values{}
	for k, v := range params {
		form.Set(k, v)
	}
	endpoint := fmt.Sprintf("%s/%s/image/upload", c.cfg.UploadBase, c.cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("%w: repair upload failed with %s", repository.ErrImageUnsupported, resp.Status)
	}

	var out struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if out.SecureURL == "" {
		return "", fmt.Errorf("%w: repair upload returned no URL", repository.ErrImageUnsupported)
	}
	logger.GetLogger().WithField("url", out.SecureURL).Info("Image reprojected to JPEG")
	return out.SecureURL, nil
}

// sign builds the Cloudinary request signature: SHA-1 over the sorted
// params (excluding file, api_key, and signature) concatenated with the API
// secret.
func (c *Cloudinary) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "file" || k == "api_key" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "&") + c.cfg.APISecret))
	return hex.EncodeToString(sum[:])
}
