package valueobject

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/h2non/filetype"

	"github.com/ignatzorin/cityfix-backend/internal/pkg/apperror"
)

const (
	dataURLPrefix = "data:image/"
	base64Marker  = ";base64"

	// DefaultMaxImageLength примерно соответствует 5 МБ бинарных данных в base64.
	DefaultMaxImageLength = 7_000_000
)

// Разрешённые типы изображений (определяются по магическим байтам).
var allowedImageMimeTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// ImageDataURL — изображение, присланное клиентом как data URL в base64.
type ImageDataURL struct {
	raw  string
	mime string
	size int
}

// NewImageDataURL проверяет префикс, длину, корректность base64 и реальный тип
// содержимого. maxLength ограничивает длину закодированной строки.
func NewImageDataURL(raw string, maxLength int) (*ImageDataURL, error) {
	if raw == "" {
		return nil, nil
	}
	if !strings.HasPrefix(raw, dataURLPrefix) {
		return nil, apperror.Validation("некорректный формат изображения")
	}
	if maxLength > 0 && len(raw) > maxLength {
		return nil, apperror.Validation(fmt.Sprintf("изображение слишком большое (максимум %d символов)", maxLength))
	}

	header, payload, ok := strings.Cut(raw, ",")
	if !ok || !strings.HasSuffix(header, base64Marker) {
		return nil, apperror.Validation("изображение должно быть закодировано в base64")
	}
	declared := strings.TrimSuffix(strings.TrimPrefix(header, "data:"), base64Marker)

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(data) == 0 {
		return nil, apperror.Validation("не удалось декодировать изображение")
	}

	// Проверяем магические байты (реальный тип файла)
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return nil, apperror.Validation("не удалось определить тип изображения")
	}
	detected := kind.MIME.Value
	if !allowedImageMimeTypes[detected] {
		return nil, apperror.Validation(fmt.Sprintf("неподдерживаемый тип изображения (%s)", detected))
	}
	if normalizeImageMime(declared) != detected {
		return nil, apperror.Validation(fmt.Sprintf("заявленный тип (%s) не соответствует содержимому (%s)", declared, detected))
	}

	return &ImageDataURL{raw: raw, mime: detected, size: len(data)}, nil
}

func (i *ImageDataURL) String() string { return i.raw }

func (i *ImageDataURL) MIME() string { return i.mime }

// Size возвращает размер декодированного изображения в байтах.
func (i *ImageDataURL) Size() int { return i.size }

// image/jpg встречается у клиентов наравне с image/jpeg.
func normalizeImageMime(m string) string {
	m = strings.ToLower(m)
	if m == "image/jpg" {
		return "image/jpeg"
	}
	return m
}
