package datasmith

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

type ImageFormat string

const (
	FORMAT_PNG      ImageFormat = "PNG"
	FORMAT_JPEG     ImageFormat = "JPEG"
	FORMAT_HDR      ImageFormat = "HDR"
	FORMAT_OPEN_EXR ImageFormat = "OPEN_EXR"
)

func (f ImageFormat) Ext() string {
	switch f {
	case FORMAT_JPEG:
		return ".jpg"
	case FORMAT_HDR:
		return ".hdr"
	case FORMAT_OPEN_EXR:
		return ".exr"
	}
	return ".png"
}

// TextureSource supplies the encoded image behind a Texture.
type TextureSource interface {
	Format() ImageFormat
	// IsData reports non-color data (roughness, masks, ...).
	IsData() bool
	// Valid is false for images without pixels; those are not written.
	Valid() bool
	Encode(w io.Writer) error
}

// Texture is one image referenced by materials.
type Texture struct {
	Name      string
	Source    TextureSource
	NormalMap bool
	Hash      string
}

func NewTexture(name string, src TextureSource) *Texture {
	return &Texture{Name: name, Source: src}
}

func SanitizeName(name string) string {
	return strings.NewReplacer(".", "_", " ", "_", "/", "_", `\`, "_").Replace(name)
}

func (t *Texture) format() ImageFormat {
	if t.Source == nil {
		return FORMAT_PNG
	}
	return t.Source.Format()
}

// FileName is the image name inside the assets folder.
func (t *Texture) FileName() string {
	return SanitizeName(t.Name) + t.format().Ext()
}

// Mode classifies the texture as TEXTURE_MODE_*.
func (t *Texture) Mode() string {
	switch {
	case t.format() == FORMAT_HDR:
		return TEXTURE_MODE_OTHER
	case t.NormalMap:
		return TEXTURE_MODE_NORMAL_GREEN_INV
	case t.Source != nil && t.Source.IsData():
		return TEXTURE_MODE_SPECULAR
	}
	return TEXTURE_MODE_DIFFUSE
}

// Node describes the texture for the scene document. Without experimental
// mode, data textures get a gamma curve so older importers read them linear.
func (t *Texture) Node(folder string, experimental bool) *Node {
	n := NewNode("Texture")
	n.Set("name", t.Name)
	n.Set("file", path.Join(filepath.ToSlash(folder), t.FileName()))
	n.Set("rgbcurve", "0.0")
	n.Set("srgb", "1")

	mode := t.Mode()
	switch mode {
	case TEXTURE_MODE_OTHER:
		n.Set("rgbcurve", "1.000000")
	case TEXTURE_MODE_NORMAL_GREEN_INV:
		n.Set("srgb", "2")
	case TEXTURE_MODE_SPECULAR:
		n.Set("srgb", "2")
		if !experimental {
			n.Set("rgbcurve", "0.454545")
		}
	}
	n.Set("texturemode", mode)
	n.Set("texturefilter", "3")
	n.Push(NewNode("Hash", Attr{"value", t.Hash}))
	return n
}

// Save writes the image under basedir/folder and hashes it. Invalid images
// are skipped and keep an empty hash.
func (t *Texture) Save(basedir, folder string) error {
	return t.saveWith(basedir, folder, HashFile)
}

func (t *Texture) saveWith(basedir, folder string, hash Hasher) error {
	abs := filepath.Join(basedir, filepath.FromSlash(folder), t.FileName())
	Logger().Info("writing texture", "name", t.Name, "path", abs)
	if t.Source == nil || !t.Source.Valid() {
		Logger().Warn("skipping invalid texture", "name", t.Name)
		return nil
	}
	if err := writeAtomic(abs, func(f io.WriteSeeker) error {
		return t.Source.Encode(f)
	}); err != nil {
		return fmt.Errorf("write texture %q: %w", t.Name, err)
	}
	h, err := hash(abs)
	if err != nil {
		return fmt.Errorf("hash texture %q: %w", t.Name, err)
	}
	t.Hash = h
	return nil
}

// ImageSource encodes an in-memory image as PNG or JPEG.
type ImageSource struct {
	Image   image.Image
	Encoded ImageFormat
	Data    bool
}

func (s *ImageSource) Format() ImageFormat {
	if s.Encoded == "" {
		return FORMAT_PNG
	}
	return s.Encoded
}

func (s *ImageSource) IsData() bool {
	return s.Data
}

func (s *ImageSource) Valid() bool {
	return s.Image != nil && !s.Image.Bounds().Empty()
}

func (s *ImageSource) Encode(w io.Writer) error {
	switch s.Format() {
	case FORMAT_PNG:
		return png.Encode(w, s.Image)
	case FORMAT_JPEG:
		return jpeg.Encode(w, s.Image, &jpeg.Options{Quality: 95})
	}
	return fmt.Errorf("cannot encode %s images", s.Format())
}

// LoadImageSource decodes a png, jpeg, gif, bmp or tiff file. JPEG input
// stays JPEG, everything else is written as PNG.
func LoadImageSource(name string, data bool) (*ImageSource, error) {
	buf, err := os.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return DecodeImageSource(buf, data)
}

func DecodeImageSource(buf []byte, data bool) (*ImageSource, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	reader := bytes.NewReader(buf)
	var img image.Image
	enc := FORMAT_PNG
	switch format {
	case "jpeg", "jpg":
		img, err = jpeg.Decode(reader)
		enc = FORMAT_JPEG
	case "png":
		img, err = png.Decode(reader)
	case "gif":
		img, err = gif.Decode(reader)
	case "bmp":
		img, err = bmp.Decode(reader)
	case "tif", "tiff":
		img, err = tiff.Decode(reader)
	default:
		return nil, errors.New("unknown image format " + format)
	}
	if err != nil {
		return nil, err
	}
	return &ImageSource{Image: img, Encoded: enc, Data: data}, nil
}
