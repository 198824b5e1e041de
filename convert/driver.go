package convert

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/mogaika/fbxdoc/document"
	"github.com/mogaika/fbxdoc/logger"
	"github.com/mogaika/fbxdoc/scene"
	"github.com/mogaika/fbxdoc/utils/gltfutils"
)

// DefaultVersion is the FBX version written by exports.
const DefaultVersion = 7400

type Format string

const (
	FormatBinary Format = "binary"
	FormatASCII  Format = "ascii"
	FormatGLTF   Format = "gltf"
	FormatGLB    Format = "glb"
)

var Formats = []Format{FormatBinary, FormatASCII, FormatGLTF, FormatGLB}

func ParseFormat(s string) (Format, error) {
	if s == "" {
		return FormatBinary, nil
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", errors.Errorf("Unknown export format %q", s)
}

func (f Format) IsFBX() bool { return f == FormatBinary || f == FormatASCII || f == "" }

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatGLTF:
		return ".gltf"
	case FormatGLB:
		return ".glb"
	}
	return ".fbx"
}

type ImportOptions struct {
	ResampleRate float64
	Charmap      *charmap.Charmap
}

type ExportOptions struct {
	Format  Format
	Version uint32
	Creator string
}

func (o ExportOptions) version() uint32 {
	if o.Version == 0 {
		return DefaultVersion
	}
	return o.Version
}

func (o ExportOptions) saveOptions(filename string) scene.SaveOptions {
	format := scene.FormatBinary
	if o.Format == FormatASCII {
		format = scene.FormatASCII
	}
	return scene.SaveOptions{Format: format, Version: o.version(), Filename: filename}
}

func importScene(s *scene.Scene, err error, opts ImportOptions) (*document.Document, error) {
	if err != nil {
		return nil, &LoadError{Description: err.Error()}
	}
	defer s.Free()
	return NewImporter(opts.ResampleRate).Import(s), nil
}

func ImportFile(path string, opts ImportOptions) (*document.Document, error) {
	s, err := scene.Load(path, scene.LoadOptions{Charmap: opts.Charmap})
	return importScene(s, err, opts)
}

func ImportBytes(data []byte, opts ImportOptions) (*document.Document, error) {
	s, err := scene.LoadBytes(data, scene.LoadOptions{Charmap: opts.Charmap})
	return importScene(s, err, opts)
}

func ImportReader(r io.Reader, opts ImportOptions) (*document.Document, error) {
	s, err := scene.LoadReader(r, scene.LoadOptions{Charmap: opts.Charmap})
	return importScene(s, err, opts)
}

// ExportFile writes doc to path and returns the path written.
func ExportFile(doc *document.Document, path string, opts ExportOptions) (string, error) {
	log := logger.Named("export")
	if _, err := ParseFormat(string(opts.Format)); err != nil {
		return "", err
	}

	if !opts.Format.IsFBX() {
		out, err := os.Create(path)
		if err != nil {
			return "", &SaveError{Description: err.Error()}
		}
		err = exportGLTF(out, doc, opts.Format)
		if cerr := out.Close(); err == nil && cerr != nil {
			err = &SaveError{Description: cerr.Error()}
		}
		if err != nil {
			return "", err
		}
		return path, nil
	}

	s, err := Export(doc, opts)
	if err != nil {
		return "", err
	}
	defer s.Free()

	if err := s.Save(path, opts.saveOptions(path)); err != nil {
		return "", &SaveError{Description: err.Error()}
	}
	log.Info("Exported", zap.String("path", path), zap.Stringer("document", doc))
	return path, nil
}

// ExportBytes returns doc encoded in the requested format.
func ExportBytes(doc *document.Document, opts ExportOptions) ([]byte, error) {
	if _, err := ParseFormat(string(opts.Format)); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if !opts.Format.IsFBX() {
		if err := exportGLTF(&buf, doc, opts.Format); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	s, err := Export(doc, opts)
	if err != nil {
		return nil, err
	}
	defer s.Free()

	if err := s.Write(&buf, opts.saveOptions("")); err != nil {
		return nil, &SaveError{Description: err.Error()}
	}
	return buf.Bytes(), nil
}

func exportGLTF(w io.Writer, doc *document.Document, format Format) error {
	gdoc, err := gltfutils.FromDocument(doc)
	if err != nil {
		return &SaveError{Description: err.Error()}
	}
	if err := gltfutils.Export(w, gdoc, format == FormatGLB); err != nil {
		return &SaveError{Description: err.Error()}
	}
	return nil
}
