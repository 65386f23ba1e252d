package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxFileSize максимальный размер одного изображения
	MaxFileSize int64 = 5 << 20
	// RefPrefix префикс ссылок на загруженные файлы
	RefPrefix = "/uploads/"

	sniffLen = 512
)

var (
	// ErrUnsupportedMediaType is returned when the extension, declared MIME
	// type or content of a file is not an accepted image type.
	ErrUnsupportedMediaType = errors.New("only image files are allowed")
	// ErrFileTooLarge is returned when a file exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")
)

// типы по расширению, в которые должен попасть sniff содержимого
var extensionTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

var declaredTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

var generatedName = regexp.MustCompile(`^[0-9]+-[0-9a-f]{12}\.(jpg|jpeg|png|webp)$`)

// StoredFile describes an accepted upload.
type StoredFile struct {
	Name        string
	Ref         string
	ContentType string
	Size        int64
}

// Pipeline validates single uploads and writes them to a Store.
type Pipeline struct {
	logger  *slog.Logger
	store   Store
	now     func() time.Time
	maxSize int64
}

// NewPipeline создает pipeline; maxSize <= 0 означает MaxFileSize
func NewPipeline(logger *slog.Logger, store Store, maxSize int64) *Pipeline {
	if maxSize <= 0 {
		maxSize = MaxFileSize
	}
	return &Pipeline{
		logger:  logger,
		store:   store,
		now:     time.Now,
		maxSize: maxSize,
	}
}

// MaxSize returns the per-file limit in bytes.
func (p *Pipeline) MaxSize() int64 {
	return p.maxSize
}

// Accept validates one file and stores it under a generated name.
// size is the length reported by the client, -1 if unknown.
func (p *Pipeline) Accept(ctx context.Context, r io.Reader, originalName, declaredMIME string, size int64) (*StoredFile, error) {
	if size > p.maxSize {
		return nil, ErrFileTooLarge
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	wantType, ok := extensionTypes[ext]
	if !ok {
		return nil, fmt.Errorf("%w: extension %q", ErrUnsupportedMediaType, ext)
	}

	mediaType, _, err := mime.ParseMediaType(declaredMIME)
	if err != nil || !declaredTypes[strings.ToLower(mediaType)] {
		return nil, fmt.Errorf("%w: declared type %q", ErrUnsupportedMediaType, declaredMIME)
	}

	// Клиентскому размеру не доверяем: читаем не больше лимита + 1 байт
	data, err := io.ReadAll(io.LimitReader(r, p.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > p.maxSize {
		return nil, ErrFileTooLarge
	}

	sniffed := http.DetectContentType(data[:min(len(data), sniffLen)])
	if sniffed != wantType {
		return nil, fmt.Errorf("%w: content is %q", ErrUnsupportedMediaType, sniffed)
	}

	name := p.generateName(ext)
	if err := p.store.Put(ctx, name, bytes.NewReader(data), int64(len(data)), wantType); err != nil {
		return nil, fmt.Errorf("failed to store upload: %w", err)
	}

	p.logger.DebugContext(ctx, "upload stored",
		slog.String("name", name),
		slog.Int("size", len(data)),
	)

	return &StoredFile{
		Name:        name,
		Ref:         RefPrefix + name,
		ContentType: wantType,
		Size:        int64(len(data)),
	}, nil
}

// Remove deletes the blob behind an image reference.
func (p *Pipeline) Remove(ctx context.Context, ref string) error {
	name, ok := NameFromRef(ref)
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidName, ref)
	}
	return p.store.Delete(ctx, name)
}

// Open opens a stored upload by its generated name.
func (p *Pipeline) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	if !ValidName(name) {
		return nil, ErrNotFound
	}
	return p.store.Open(ctx, name)
}

// generateName: <unix-millis>-<12 hex><ext>, клиентское имя не используется
func (p *Pipeline) generateName(ext string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("%d-%s%s", p.now().UnixMilli(), random, ext)
}

// NameFromRef extracts the blob name from a /uploads/<name> reference.
func NameFromRef(ref string) (string, bool) {
	name, ok := strings.CutPrefix(ref, RefPrefix)
	if !ok || !ValidName(name) {
		return "", false
	}
	return name, true
}

// ValidName reports whether name has the shape of a generated upload name.
func ValidName(name string) bool {
	return generatedName.MatchString(name)
}

// ContentTypeByName returns the image content type for the name's extension.
func ContentTypeByName(name string) string {
	if ct, ok := extensionTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}
