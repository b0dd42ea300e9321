package printing

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"os"
	"path/filepath"

	"github.com/phpdave11/gofpdf"
)

// Logo is a decoded-once company logo ready to embed
type Logo struct {
	Name string
	Type string // gofpdf image type: png, jpg or gif
	Data []byte
}

// LoadLogo reads and checks the image at path. An error means the header
// must be drawn without a logo.
func LoadLogo(path string) (*Logo, error) {
	if path == "" {
		return nil, fmt.Errorf("no logo configured")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read logo: %w", err)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode logo %s: %w", filepath.Base(path), err)
	}

	imgType := format
	if format == "jpeg" {
		imgType = "jpg"
	}
	logo := &Logo{Name: "logo-" + filepath.Base(path), Type: imgType, Data: data}

	// gofpdf's parser is stricter than image.DecodeConfig (interlaced PNG,
	// 16-bit depth); probe it on a scratch document.
	probe := gofpdf.New("P", "pt", "A4", "")
	logo.register(probe)
	if err := probe.Error(); err != nil {
		return nil, fmt.Errorf("unsupported logo %s: %w", filepath.Base(path), err)
	}
	return logo, nil
}

func (l *Logo) register(pdf *gofpdf.Fpdf) {
	pdf.RegisterImageOptionsReader(l.Name, gofpdf.ImageOptions{ImageType: l.Type}, bytes.NewReader(l.Data))
}
