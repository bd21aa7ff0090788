// Package objectstore implements C3: persisting image bytes under a
// system-assigned UUID and retrieving them, per spec.md §4.2.
package objectstore

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lingxi-album/backend/internal/errs"
	"github.com/lingxi-album/backend/internal/model"
	"github.com/lingxi-album/backend/internal/pkg/sets"
)

// Store persists image bytes on a local, date-partitioned directory tree
// and indexes basic metadata alongside them. Single-process; concurrent
// writers must be serialised by the caller (C5), per spec.md §4.2.
type Store struct {
	root string
	mu   sync.Mutex
}

// New creates a Store rooted at root, creating the directory if absent.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errs.Wrap(errs.Internal, err, "objectstore: create root %s", root)
	}
	return &Store{root: root}, nil
}

func extensionOf(filename string) string {
	ext := filepath.Ext(filename)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func formatOf(ext string) model.Format {
	f := model.Format(ext)
	if model.AllowedFormats[f] {
		return f
	}
	return model.FormatUnknown
}

// Put validates, assigns a UUID, and writes bytes to a
// YYYY/MM/DD/{uuid}.{ext} path, per spec.md §4.2.
func (s *Store) Put(content []byte, originalFilename string) (*model.Image, error) {
	ext := extensionOf(originalFilename)
	if !model.AllowedFormats[model.Format(ext)] {
		return nil, errs.New(errs.InvalidInput, "objectstore: unsupported format %q", ext)
	}
	if len(content) > model.MaxImageBytes {
		return nil, errs.New(errs.InvalidInput, "objectstore: file too large (%d bytes)", len(content))
	}

	id := uuid.NewString()
	now := time.Now()
	relDir := now.Format("2006/01/02")

	s.mu.Lock()
	defer s.mu.Unlock()

	absDir := filepath.Join(s.root, relDir)
	if err := os.MkdirAll(absDir, 0o755); err != nil {
		return nil, errs.Wrap(errs.Internal, err, "objectstore: create %s", absDir)
	}

	filename := fmt.Sprintf("%s.%s", id, ext)
	absPath := filepath.Join(absDir, filename)
	if err := os.WriteFile(absPath, content, 0o644); err != nil {
		return nil, errs.Wrap(errs.Internal, err, "objectstore: write %s", absPath)
	}

	width, height, probedFormat := probeImage(content)
	format := formatOf(ext)
	if probedFormat != "" {
		format = formatOf(probedFormat)
	}

	return &model.Image{
		ID: id,
		Metadata: model.Metadata{
			Filename:     originalFilename,
			RelativePath: filepath.Join(relDir, filename),
			FileSize:     int64(len(content)),
			Width:        width,
			Height:       height,
			Format:       format,
			CreatedAt:    now,
			Tags:         sets.New[string](),
			Extra:        map[string]any{},
		},
	}, nil
}

func probeImage(content []byte) (width, height int, format string) {
	cfg, name, err := image.DecodeConfig(bytes.NewReader(content))
	if err != nil {
		return 0, 0, ""
	}
	return cfg.Width, cfg.Height, name
}

// pathOf searches the storage tree for the unique file whose basename is
// id.*, mirroring the original rglob-based lookup since the extension
// isn't known ahead of lookup.
func (s *Store) pathOf(id string) (string, error) {
	var found string
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // tolerate unreadable entries, keep scanning
		}
		if d.IsDir() {
			return nil
		}
		base := filepath.Base(path)
		if strings.HasPrefix(base, id+".") {
			found = path
			return errStopWalk
		}
		return nil
	})
	if err != nil && err != errStopWalk {
		return "", errs.Wrap(errs.Internal, err, "objectstore: walk %s", s.root)
	}
	if found == "" {
		return "", errs.New(errs.NotFound, "objectstore: image %s not found", id)
	}
	return found, nil
}

var errStopWalk = fmt.Errorf("objectstore: stop walk")

// PathOf returns the absolute path of the image file for id, or a
// NotFound error.
func (s *Store) PathOf(id string) (string, error) {
	return s.pathOf(id)
}

// Get reads the bytes and media type for id.
func (s *Store) Get(id string) ([]byte, string, error) {
	path, err := s.pathOf(id)
	if err != nil {
		return nil, "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, "", errs.Wrap(errs.Internal, err, "objectstore: read %s", path)
	}
	return content, mediaTypeOf(extensionOf(path)), nil
}

func mediaTypeOf(ext string) string {
	switch ext {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "bmp":
		return "image/bmp"
	default:
		return "application/octet-stream"
	}
}

// Stat returns the full metadata for id, excluding bytes, tolerating
// corrupt files by returning format="unknown" rather than failing
// (spec.md §4.2, §8).
func (s *Store) Stat(id string) (*model.Image, error) {
	path, err := s.pathOf(id)
	if err != nil {
		return nil, err
	}
	return s.statPath(id, path)
}

func (s *Store) statPath(id, path string) (*model.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errs.Wrap(errs.Internal, err, "objectstore: stat %s", path)
	}

	content, readErr := os.ReadFile(path)
	width, height, probedFormat := 0, 0, ""
	if readErr == nil {
		width, height, probedFormat = probeImage(content)
	}

	ext := extensionOf(path)
	format := formatOf(ext)
	if probedFormat != "" {
		format = formatOf(probedFormat)
	} else {
		format = model.FormatUnknown
	}

	relPath, _ := filepath.Rel(s.root, path)

	return &model.Image{
		ID: id,
		Metadata: model.Metadata{
			Filename:     filepath.Base(path),
			RelativePath: relPath,
			FileSize:     info.Size(),
			Width:        width,
			Height:       height,
			Format:       format,
			CreatedAt:    info.ModTime(),
			Tags:         sets.New[string](),
			Extra:        map[string]any{},
		},
	}, nil
}

// Delete removes the image file for id. Idempotent: deleting an id that
// does not exist returns (false, nil), per spec.md §8.
func (s *Store) Delete(id string) (bool, error) {
	path, err := s.pathOf(id)
	if err != nil {
		if errs.Is(err, errs.NotFound) {
			return false, nil
		}
		return false, err
	}
	if err := os.Remove(path); err != nil {
		return false, errs.Wrap(errs.Internal, err, "objectstore: delete %s", path)
	}
	return true, nil
}

// SortField selects the ordering key for List.
type SortField string

const (
	SortByCreatedAt SortField = "created_at"
	SortByFilename  SortField = "filename"
	SortBySize      SortField = "file_size"
)

// SortOrder is ascending or descending.
type SortOrder string

const (
	SortAscending  SortOrder = "asc"
	SortDescending SortOrder = "desc"
)

// List paginates over the storage tree, tolerating corrupt files per
// spec.md §4.2.
func (s *Store) List(page, pageSize int, sortBy SortField, order SortOrder) ([]*model.Image, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var all []*model.Image
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil //nolint:nilerr // tolerate unreadable directories
		}
		ext := extensionOf(path)
		if ext == "" {
			return nil
		}
		id := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		img, statErr := s.statPath(id, path)
		if statErr != nil {
			return nil //nolint:nilerr // corrupt/unreadable file: skip, don't abort the scan
		}
		all = append(all, img)
		return nil
	})
	if err != nil {
		return nil, 0, errs.Wrap(errs.Internal, err, "objectstore: list %s", s.root)
	}

	sort.Slice(all, func(i, j int) bool {
		less := lessBy(all[i], all[j], sortBy)
		if order == SortDescending {
			return !less
		}
		return less
	})

	total := len(all)
	start := (page - 1) * pageSize
	if start >= total {
		return []*model.Image{}, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func lessBy(a, b *model.Image, field SortField) bool {
	switch field {
	case SortByFilename:
		return a.Metadata.Filename < b.Metadata.Filename
	case SortBySize:
		return a.Metadata.FileSize < b.Metadata.FileSize
	default:
		return a.Metadata.CreatedAt.Before(b.Metadata.CreatedAt)
	}
}

// Stats summarises the store's contents, per spec.md §4.2.
type Stats struct {
	TotalImages int
	TotalSize   int64
}

// Stats scans the storage tree and returns aggregate counters.
func (s *Store) Stats() (Stats, error) {
	var stats Stats
	err := filepath.WalkDir(s.root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil //nolint:nilerr
		}
		if extensionOf(path) == "" {
			return nil
		}
		info, statErr := d.Info()
		if statErr != nil {
			return nil //nolint:nilerr
		}
		stats.TotalImages++
		stats.TotalSize += info.Size()
		return nil
	})
	if err != nil {
		return Stats{}, errs.Wrap(errs.Internal, err, "objectstore: stats %s", s.root)
	}
	return stats, nil
}
