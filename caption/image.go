package caption

import "fmt"

const (
	// MaxFileSize is the largest upload the server accepts (25MB)
	MaxFileSize = 25 * 1024 * 1024

	MediaTypeJPEG = "image/jpeg"
	MediaTypePNG  = "image/png"
	MediaTypeWebP = "image/webp"
)

// AllowedMediaTypes are the image types the captioning server accepts
var AllowedMediaTypes = map[string]bool{
	MediaTypeJPEG: true,
	MediaTypePNG:  true,
	MediaTypeWebP: true,
}

// AllowedExtensions mirrors AllowedMediaTypes for file pickers
var AllowedExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

// Image is a user-selected image file held in memory
type Image struct {
	Name      string
	MediaType string
	Data      []byte
}

// Size returns the payload size in bytes
func (img *Image) Size() int64 {
	if img == nil {
		return 0
	}
	return int64(len(img.Data))
}

// ValidateUpload applies the server-side upload rules: supported media type
// (matched exactly), non-empty, and within MaxFileSize. The returned error
// text is shown to users.
func ValidateUpload(mediaType string, size int64) error {
	if !AllowedMediaTypes[mediaType] {
		return fmt.Errorf("Invalid file type '%s'. Supported: JPG, PNG, WebP", mediaType)
	}
	if size > MaxFileSize {
		return fmt.Errorf("File too large. Maximum size is %d MB", MaxFileSize/(1024*1024))
	}
	if size == 0 {
		return fmt.Errorf("Empty file")
	}
	return nil
}
