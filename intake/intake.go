// Package intake reads user-selected image files and derives their previews
package intake

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"captioncraft/caption"

	"github.com/dustin/go-humanize"
	_ "golang.org/x/image/webp"
)

// Load reads the file at path into memory. Type and size limits are not
// enforced here; the captioning server owns those rules.
func Load(path string) (*caption.Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return &caption.Image{
		Name:      filepath.Base(path),
		MediaType: DetectMediaType(path, data),
		Data:      data,
	}, nil
}

// DetectMediaType guesses the media type from the file extension, falling
// back to content sniffing.
func DetectMediaType(path string, data []byte) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mt := mediaTypeForExt(ext); mt != "" {
		return mt
	}
	if len(data) > 0 {
		mt := http.DetectContentType(data)
		if i := strings.Index(mt, ";"); i >= 0 {
			mt = mt[:i]
		}
		return mt
	}
	return "application/octet-stream"
}

func mediaTypeForExt(ext string) string {
	switch ext {
	case ".jpg", ".jpeg":
		return caption.MediaTypeJPEG
	case ".png":
		return caption.MediaTypePNG
	case ".webp":
		return caption.MediaTypeWebP
	case ".gif":
		return "image/gif"
	case "":
		return ""
	}
	if mt := mime.TypeByExtension(ext); strings.HasPrefix(mt, "image/") {
		if i := strings.Index(mt, ";"); i >= 0 {
			mt = mt[:i]
		}
		return mt
	}
	return ""
}

// Preview encodes img as a data URI suitable for storing in history
func Preview(img *caption.Image) string {
	if img == nil {
		return ""
	}
	mt := img.MediaType
	if mt == "" {
		mt = "application/octet-stream"
	}
	return "data:" + mt + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// Info describes an image for display
type Info struct {
	Name      string
	MediaType string
	Size      int64
	Width     int
	Height    int
	Format    string
}

// HumanSize renders the payload size, e.g. "2.1 MB"
func (i Info) HumanSize() string {
	return humanize.Bytes(uint64(i.Size))
}

// Dimensions returns "WxH", or "" when the image could not be decoded
func (i Info) Dimensions() string {
	if i.Width == 0 || i.Height == 0 {
		return ""
	}
	return fmt.Sprintf("%dx%d", i.Width, i.Height)
}

func (i Info) String() string {
	parts := []string{i.Name, i.HumanSize()}
	if d := i.Dimensions(); d != "" {
		parts = append(parts, d)
	}
	if i.MediaType != "" {
		parts = append(parts, i.MediaType)
	}
	return strings.Join(parts, " | ")
}

// Describe decodes the image header. Undecodable data is reported with zero
// dimensions rather than an error.
func Describe(img *caption.Image) Info {
	if img == nil {
		return Info{}
	}
	info := Info{
		Name:      img.Name,
		MediaType: img.MediaType,
		Size:      img.Size(),
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err == nil {
		info.Width = cfg.Width
		info.Height = cfg.Height
		info.Format = format
	}
	return info
}
