// Package store manages the File Search corpus: the remote store, its
// indexed documents, and their sync state against the local knowledge
// directory.
package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fayeguo20/Lab-Outreach-Chat-Agent/internal/models"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"
)

const (
	// uploadConcurrency bounds parallel document uploads during sync.
	uploadConcurrency = 3

	// pollInterval is how often an indexing operation is re-checked.
	pollInterval = 2 * time.Second
)

var supportedExtensions = map[string]bool{
	".pdf": true,
	".txt": true,
	".md":  true,
}

// Document describes one indexed file.
type Document struct {
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	State       string    `json:"state"`
	SizeBytes   int64     `json:"size_bytes,omitempty"`
	CreateTime  time.Time `json:"create_time,omitzero"`
}

// SyncStatus compares the local knowledge directory with the remote
// store.
type SyncStatus struct {
	StoreName     string     `json:"store_name"`
	DisplayName   string     `json:"display_name"`
	CreateTime    time.Time  `json:"create_time,omitzero"`
	Remote        []Document `json:"remote"`
	Local         []string   `json:"local"`
	PendingUpload []string   `json:"pending_upload,omitempty"`
	Orphaned      []string   `json:"orphaned,omitempty"`
}

// SyncResult reports the outcome of one EnsureSynced call.
type SyncResult struct {
	Uploaded []string `json:"uploaded"`
	Skipped  []string `json:"skipped"`
	Failed   []string `json:"failed,omitempty"`
}

// Service manages the File Search store named in configuration.
type Service struct {
	client       *genai.Client
	displayName  string
	knowledgeDir string
}

// New creates a store Service over an existing Gemini client.
func New(client *genai.Client, cfg models.AssistantConfig) *Service {
	return &Service{
		client:       client,
		displayName:  cfg.StoreDisplayName,
		knowledgeDir: cfg.KnowledgeDir,
	}
}

// EnsureStore finds the store by display name, creating it when absent.
func (s *Service) EnsureStore(ctx context.Context) (*genai.FileSearchStore, error) {
	for store, err := range s.client.FileSearchStores.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("failed to list file search stores: %w", err)
		}
		if store.DisplayName == s.displayName {
			return store, nil
		}
	}

	fiberlog.Infof("store: creating file search store %q", s.displayName)
	store, err := s.client.FileSearchStores.Create(ctx, &genai.CreateFileSearchStoreConfig{
		DisplayName: s.displayName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create file search store %q: %w", s.displayName, err)
	}
	return store, nil
}

// EnsureSynced uploads every local knowledge file the store does not
// already index. It is idempotent and queries remote state on every call
// instead of trusting anything remembered in-process, so a restart or an
// out-of-band change never leaves it stale.
func (s *Service) EnsureSynced(ctx context.Context) (*SyncResult, error) {
	store, err := s.EnsureStore(ctx)
	if err != nil {
		return nil, err
	}

	local, err := s.localFiles()
	if err != nil {
		return nil, err
	}

	remote, err := s.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	indexed := make(map[string]bool, len(remote))
	for _, doc := range remote {
		indexed[doc.DisplayName] = true
	}

	result := &SyncResult{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)

	for _, path := range local {
		name := filepath.Base(path)
		if indexed[name] {
			result.Skipped = append(result.Skipped, name)
			continue
		}

		g.Go(func() error {
			if err := s.uploadTo(gctx, store.Name, path); err != nil {
				fiberlog.Errorf("store: upload of %s failed: %v", name, err)
				mu.Lock()
				result.Failed = append(result.Failed, name)
				mu.Unlock()
				return nil // keep syncing the rest
			}
			mu.Lock()
			result.Uploaded = append(result.Uploaded, name)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}

	sort.Strings(result.Uploaded)
	sort.Strings(result.Failed)
	return result, nil
}

// Upload indexes a single local file into the store, waiting for the
// indexing operation to finish.
func (s *Service) Upload(ctx context.Context, path string) error {
	store, err := s.EnsureStore(ctx)
	if err != nil {
		return err
	}
	return s.uploadTo(ctx, store.Name, path)
}

func (s *Service) uploadTo(ctx context.Context, storeName, path string) error {
	displayName := filepath.Base(path)
	fiberlog.Infof("store: uploading %s", displayName)

	op, err := s.client.FileSearchStores.UploadToFileSearchStoreFromPath(ctx, path, storeName, &genai.UploadToFileSearchStoreConfig{
		DisplayName: displayName,
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", displayName, err)
	}

	for !op.Done {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
		op, err = s.client.Operations.GetUploadToFileSearchStoreOperation(ctx, op, nil)
		if err != nil {
			return fmt.Errorf("failed to poll indexing of %s: %w", displayName, err)
		}
	}

	fiberlog.Infof("store: indexed %s", displayName)
	return nil
}

// ListDocuments enumerates every indexed file.
func (s *Service) ListDocuments(ctx context.Context) ([]Document, error) {
	var docs []Document
	for f, err := range s.client.Files.All(ctx) {
		if err != nil {
			return nil, fmt.Errorf("failed to list files: %w", err)
		}
		doc := Document{
			Name:        f.Name,
			DisplayName: f.DisplayName,
			State:       string(f.State),
			CreateTime:  f.CreateTime,
		}
		if f.SizeBytes != nil {
			doc.SizeBytes = *f.SizeBytes
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].DisplayName < docs[j].DisplayName })
	return docs, nil
}

// Delete removes one indexed file by display name.
func (s *Service) Delete(ctx context.Context, displayName string) error {
	for f, err := range s.client.Files.All(ctx) {
		if err != nil {
			return fmt.Errorf("failed to list files: %w", err)
		}
		if f.DisplayName == displayName {
			if _, err := s.client.Files.Delete(ctx, f.Name, nil); err != nil {
				return fmt.Errorf("failed to delete %s: %w", displayName, err)
			}
			fiberlog.Infof("store: deleted %s", displayName)
			return nil
		}
	}
	return fmt.Errorf("file %q not found in store", displayName)
}

// Clear deletes every indexed file and the store itself.
func (s *Service) Clear(ctx context.Context) error {
	for f, err := range s.client.Files.All(ctx) {
		if err != nil {
			return fmt.Errorf("failed to list files: %w", err)
		}
		if _, err := s.client.Files.Delete(ctx, f.Name, nil); err != nil {
			fiberlog.Warnf("store: failed to delete file %s: %v", f.DisplayName, err)
		}
	}

	for store, err := range s.client.FileSearchStores.All(ctx) {
		if err != nil {
			return fmt.Errorf("failed to list file search stores: %w", err)
		}
		if store.DisplayName == s.displayName {
			if err := s.client.FileSearchStores.Delete(ctx, store.Name, &genai.DeleteFileSearchStoreConfig{Force: genai.Ptr(true)}); err != nil {
				return fmt.Errorf("failed to delete store %s: %w", store.Name, err)
			}
			fiberlog.Infof("store: deleted %s", store.Name)
		}
	}
	return nil
}

// Status reports the sync state between the local knowledge directory and
// the remote store.
func (s *Service) Status(ctx context.Context) (*SyncStatus, error) {
	store, err := s.EnsureStore(ctx)
	if err != nil {
		return nil, err
	}

	remote, err := s.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	localPaths, err := s.localFiles()
	if err != nil {
		return nil, err
	}

	status := &SyncStatus{
		StoreName:   store.Name,
		DisplayName: store.DisplayName,
		CreateTime:  store.CreateTime,
		Remote:      remote,
	}

	indexed := make(map[string]bool, len(remote))
	for _, doc := range remote {
		indexed[doc.DisplayName] = true
	}
	localNames := make(map[string]bool, len(localPaths))
	for _, path := range localPaths {
		name := filepath.Base(path)
		localNames[name] = true
		status.Local = append(status.Local, name)
		if !indexed[name] {
			status.PendingUpload = append(status.PendingUpload, name)
		}
	}
	for _, doc := range remote {
		if !localNames[doc.DisplayName] {
			status.Orphaned = append(status.Orphaned, doc.DisplayName)
		}
	}

	return status, nil
}

func (s *Service) localFiles() ([]string, error) {
	entries, err := os.ReadDir(s.knowledgeDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read knowledge directory %s: %w", s.knowledgeDir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			paths = append(paths, filepath.Join(s.knowledgeDir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
