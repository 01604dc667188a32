package forms

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

const msgInvalidImage = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."

// MaxUploadSize bounds a single uploaded image.
const MaxUploadSize = 10 << 20

var msgTooLarge = fmt.Sprintf("The submitted file is larger than %d bytes.", MaxUploadSize)

var allowedImageExtensions = []string{".bmp", ".gif", ".jpeg", ".jpg", ".png", ".webp"}

// Upload is a file received with a form.
type Upload struct {
	Filename string
	Data     []byte
}

// validateImage checks the extension and that the payload decodes as one of
// the registered image formats. The returned string is a field message.
func validateImage(upload *Upload) string {
	if len(upload.Data) == 0 {
		return "The submitted file is empty."
	}
	if len(upload.Data) > MaxUploadSize {
		return msgTooLarge
	}

	ext := strings.ToLower(filepath.Ext(upload.Filename))
	allowed := false
	for _, candidate := range allowedImageExtensions {
		if ext == candidate {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Sprintf("File extension %q is not allowed. Allowed extensions are: %s.",
			strings.TrimPrefix(ext, "."), strings.Join(trimDots(allowedImageExtensions), ", "))
	}

	if _, _, err := image.DecodeConfig(bytes.NewReader(upload.Data)); err != nil {
		return msgInvalidImage
	}
	return ""
}

func trimDots(exts []string) []string {
	out := make([]string, len(exts))
	for i, ext := range exts {
		out[i] = strings.TrimPrefix(ext, ".")
	}
	return out
}
