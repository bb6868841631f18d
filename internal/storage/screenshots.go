// Package storage persists binary attachments that arrive with feedback
// submissions. Screenshots reach the API as base64 payloads and are written
// to a local directory; the database only keeps an opaque reference.
package storage

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ScreenshotStore saves a decoded screenshot and returns an opaque reference
// for the feedback row.
type ScreenshotStore interface {
	Save(ctx context.Context, projectID string, data []byte) (ref string, err error)
}

// FSStore writes screenshots under Root/<projectID>/<uuid>.png. It is the
// default store for single-process deployments; an object-store
// implementation can replace it behind the same interface.
type FSStore struct {
	Root string
}

// NewFSStore creates the root directory if needed.
func NewFSStore(root string) (*FSStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("storage root must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{Root: root}, nil
}

// Save writes data and returns "projectID/name.png". The context is accepted
// for interface symmetry with remote stores; local writes do not observe it.
func (s *FSStore) Save(_ context.Context, projectID string, data []byte) (string, error) {
	dir := filepath.Join(s.Root, projectID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := uuid.NewString() + ".png"
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return "", err
	}
	return projectID + "/" + name, nil
}

// DecodeBase64 decodes a screenshot payload, tolerating an optional data-URL
// prefix ("data:image/png;base64,....") as produced by canvas captures.
func DecodeBase64(payload string) ([]byte, error) {
	if i := strings.Index(payload, ","); i >= 0 && strings.HasPrefix(payload, "data:") {
		payload = payload[i+1:]
	}
	return base64.StdEncoding.DecodeString(payload)
}
