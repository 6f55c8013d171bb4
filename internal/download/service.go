// Package download resolves file identifiers to either a local byte
// source or a time-limited object-storage redirect.
package download

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/labcas-project/labcas-gateway/internal/auth"
	"github.com/labcas-project/labcas-gateway/internal/catalog"
	"github.com/labcas-project/labcas-gateway/internal/platform/httpx"
	"github.com/labcas-project/labcas-gateway/internal/platform/objectstore"
	"github.com/labcas-project/labcas-gateway/internal/query"
)

// Catalog fields consulted during resolution.
const (
	fieldFileLocation = "FileLocation"
	fieldFileName     = "FileName"
	fieldName         = "name"
)

// objectSchemePrefix marks object-storage file locations; anything else
// is treated as local.
const objectSchemePrefix = "s3"

// Mode distinguishes the two resolution outcomes.
type Mode int

const (
	// ModeStream means the file is served from local storage.
	ModeStream Mode = iota
	// ModeRedirect means the caller is redirected to object storage.
	ModeRedirect
)

// Resolution is the outcome of resolving a file identifier.
type Resolution struct {
	Mode      Mode
	LocalPath string
	Size      int64
	MediaType string
	FileName  string
	URL       string
}

// Config carries the download-resolution settings.
type Config struct {
	Bucket             string
	PresignExpiry      time.Duration
	PathPrefixRewrites string // comma-separated old:new pairs
}

// Service resolves file ids via the catalog and either storage backend.
type Service struct {
	cfg     Config
	queries *query.Service
	store   objectstore.Presigner
	logger  *slog.Logger
}

// NewService constructs a Service.
func NewService(cfg Config, queries *query.Service, store objectstore.Presigner, logger *slog.Logger) *Service {
	if cfg.PresignExpiry <= 0 {
		cfg.PresignExpiry = 20 * time.Second
	}
	return &Service{cfg: cfg, queries: queries, store: store, logger: logger}
}

// FileInfo is the catalog metadata for a file.
type FileInfo struct {
	Location     string
	FileName     string
	RealFileName string
	Path         string
}

// Lookup queries the files core for the file's storage metadata.
// A nil FileInfo with nil error means the id matched nothing.
func (s *Service) Lookup(ctx context.Context, sc *auth.Context, fileID string) (*FileInfo, error) {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(fileID)

	params := url.Values{}
	params.Set("q", `id:"`+escaped+`"`)
	params.Set("fl", strings.Join([]string{fieldFileLocation, fieldFileName, fieldName}, ","))
	params.Set("rows", "1")

	payload, err := s.queries.Query(ctx, catalog.CoreFiles, sc, params)
	if err != nil {
		return nil, err
	}
	result := catalog.ParseResult(payload)
	if len(result.Documents) == 0 {
		s.logger.Info("file id not found", slog.String("id", fileID))
		return nil, nil
	}

	doc := result.Documents[0]
	location := stringField(doc[fieldFileLocation])
	fileName := stringField(doc[fieldFileName])
	realName := fileName
	if override := stringField(doc[fieldName]); override != "" {
		realName = override
	}

	info := &FileInfo{
		Location:     location,
		FileName:     fileName,
		RealFileName: realName,
		Path:         location + "/" + realName,
	}
	s.logger.Info("resolved file id",
		slog.String("id", fileID),
		slog.String("location", location),
		slog.String("path", info.Path))
	return info, nil
}

// Resolve validates the id, looks up its metadata and classifies the
// storage location into a local stream or an object-storage redirect.
func (s *Service) Resolve(ctx context.Context, sc *auth.Context, fileID string) (*Resolution, error) {
	if _, err := catalog.EnsureSafe(fileID); err != nil {
		return nil, fmt.Errorf("%w: request contains unsafe characters", httpx.ErrValidation)
	}

	info, err := s.Lookup(ctx, sc, fileID)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, fmt.Errorf("%w: file not found or not authorized", httpx.ErrNotFound)
	}

	if !isLocal(info.Location) {
		key := extractObjectKey(info.Path)
		presigned, err := s.store.PresignGet(ctx, s.cfg.Bucket, key, s.cfg.PresignExpiry)
		if err != nil {
			s.logger.Error("presign failed", slog.String("key", key), slog.Any("error", err))
			return nil, fmt.Errorf("%w: object storage unavailable", httpx.ErrUpstream)
		}
		return &Resolution{Mode: ModeRedirect, URL: presigned, FileName: info.FileName}, nil
	}

	path := s.applyPathRewrites(info.Path)
	stat, err := os.Stat(path)
	if err != nil {
		s.logger.Warn("file missing on local storage", slog.String("path", path))
		return nil, fmt.Errorf("%w: file not found on server", httpx.ErrNotFound)
	}

	return &Resolution{
		Mode:      ModeStream,
		LocalPath: path,
		Size:      stat.Size(),
		MediaType: mediaTypeFor(path),
		FileName:  info.FileName,
	}, nil
}

// applyPathRewrites maps catalog path prefixes onto filesystem paths
// for environments where the two differ.
func (s *Service) applyPathRewrites(path string) string {
	if s.cfg.PathPrefixRewrites == "" {
		return path
	}
	result := path
	for _, pair := range strings.Split(s.cfg.PathPrefixRewrites, ",") {
		pair = strings.TrimSpace(pair)
		oldPrefix, newPrefix, ok := strings.Cut(pair, ":")
		if !ok {
			s.logger.Warn("invalid path prefix rewrite, expected old:new", slog.String("value", pair))
			continue
		}
		oldPrefix = strings.TrimSpace(oldPrefix)
		newPrefix = strings.TrimSpace(newPrefix)
		if strings.HasPrefix(result, oldPrefix) {
			result = newPrefix + result[len(oldPrefix):]
		}
	}
	return result
}

func isLocal(location string) bool {
	return !strings.HasPrefix(location, objectSchemePrefix)
}

// extractObjectKey strips the scheme and bucket segment from an
// object-storage path, e.g. s3://bucket/a/b.dcm -> a/b.dcm.
func extractObjectKey(path string) string {
	rest, ok := strings.CutPrefix(path, "s3://")
	if !ok {
		return path
	}
	if _, key, found := strings.Cut(rest, "/"); found {
		return key
	}
	return ""
}

func mediaTypeFor(path string) string {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".dcm") || strings.Contains(lower, "dicom") {
		return "application/dicom"
	}
	return "application/octet-stream"
}

// stringField extracts a usable string from a document field that may
// be a string or a multi-valued array.
func stringField(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}
