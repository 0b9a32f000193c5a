package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

const (
	maxDownloadSize = 64 << 20
	thumbnailWidth  = 256
)

// Store downloads media blobs referenced by messages and keeps them on
// local disk, keyed by tenant and message id. Everything here is
// best-effort; callers log failures and move on.
type Store struct {
	basePath string
	client   *http.Client
}

func NewStore(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join("storages", "media")
	}
	return &Store{
		basePath: basePath,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Store fetches the media URL and writes the blob under
// <base>/<tenant>/<message>. Image blobs additionally get a thumbnail.
func (s *Store) Store(ctx context.Context, tenantID, messageID, url string) error {
	if url == "" {
		return fmt.Errorf("empty media url")
	}

	dir := filepath.Join(s.basePath, tenantID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build media request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download media: status %d", resp.StatusCode)
	}

	path := filepath.Join(dir, messageID+extensionFor(resp.Header.Get("Content-Type"), url))
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create media file: %w", err)
	}
	written, err := io.Copy(file, io.LimitReader(resp.Body, maxDownloadSize))
	closeErr := file.Close()
	if err != nil {
		return fmt.Errorf("write media file: %w", err)
	}
	if closeErr != nil {
		return fmt.Errorf("close media file: %w", closeErr)
	}

	logrus.WithFields(logrus.Fields{
		"tenant_id":  tenantID,
		"message_id": messageID,
		"size":       humanize.Bytes(uint64(written)),
		"path":       path,
	}).Info("[MEDIA] Blob stored")

	if isImage(resp.Header.Get("Content-Type"), path) {
		if err := s.thumbnail(path); err != nil {
			logrus.Warnf("[MEDIA] Thumbnail failed for %s: %v", path, err)
		}
	}
	return nil
}

func (s *Store) thumbnail(path string) error {
	src, err := imaging.Open(path)
	if err != nil {
		return err
	}
	thumb := imaging.Resize(src, thumbnailWidth, 0, imaging.Lanczos)

	ext := filepath.Ext(path)
	thumbPath := strings.TrimSuffix(path, ext) + "_thumb" + ext
	return imaging.Save(thumb, thumbPath)
}

func extensionFor(contentType, url string) string {
	switch {
	case strings.Contains(contentType, "jpeg"):
		return ".jpg"
	case strings.Contains(contentType, "png"):
		return ".png"
	case strings.Contains(contentType, "webp"):
		return ".webp"
	case strings.Contains(contentType, "mp4"):
		return ".mp4"
	case strings.Contains(contentType, "ogg"):
		return ".ogg"
	case strings.Contains(contentType, "pdf"):
		return ".pdf"
	}
	if ext := filepath.Ext(strings.SplitN(url, "?", 2)[0]); ext != "" && len(ext) <= 5 {
		return ext
	}
	return ".bin"
}

func isImage(contentType, path string) bool {
	if strings.HasPrefix(contentType, "image/") {
		return true
	}
	switch filepath.Ext(path) {
	case ".jpg", ".jpeg", ".png", ".webp":
		return true
	}
	return false
}
