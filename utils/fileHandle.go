package utils

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// LocalBlobStore keeps certificate files under Dir and serves them from BaseURL.
type LocalBlobStore struct {
	Dir     string
	BaseURL string
}

func NewLocalBlobStore(dir, baseURL string) *LocalBlobStore {
	return &LocalBlobStore{Dir: dir, BaseURL: strings.TrimRight(baseURL, "/")}
}

// Store writes data to a uniquely named staging file and renames it over the
// target, so readers never see a partial file.
func (s *LocalBlobStore) Store(ctx context.Context, data []byte, name string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	rel, err := cleanRelative(name)
	if err != nil {
		return "", err
	}

	target := filepath.Join(s.Dir, filepath.FromSlash(rel))
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	staging := filepath.Join(dir, ".staging-"+uuid.NewString())
	if err := os.WriteFile(staging, data, 0644); err != nil {
		os.Remove(staging)
		return "", err
	}
	if err := os.Rename(staging, target); err != nil {
		os.Remove(staging)
		return "", err
	}

	return s.BaseURL + "/" + rel, nil
}

// Load reads back a file by the URL Store returned.
func (s *LocalBlobStore) Load(ctx context.Context, url string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !strings.HasPrefix(url, s.BaseURL+"/") {
		return nil, fmt.Errorf("url %q is outside the certificate store", url)
	}
	rel, err := cleanRelative(strings.TrimPrefix(url, s.BaseURL+"/"))
	if err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(s.Dir, filepath.FromSlash(rel)))
}

func cleanRelative(name string) (string, error) {
	rel := path.Clean("/" + strings.ReplaceAll(name, "\\", "/"))[1:]
	if rel == "" || rel == "." {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return rel, nil
}

// ReadUploadedFile reads an uploaded file into memory, refusing anything over max bytes.
func ReadUploadedFile(file *multipart.FileHeader, max int64) ([]byte, error) {
	if file.Size > max {
		return nil, fmt.Errorf("file exceeds %d bytes", max)
	}

	// Open the uploaded file
	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > max {
		return nil, fmt.Errorf("file exceeds %d bytes", max)
	}
	return data, nil
}
