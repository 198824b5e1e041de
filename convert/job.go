package convert

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/fbxdoc/document"
	"github.com/mogaika/fbxdoc/logger"
)

// Job converts a single file. FBX input produces a json or yaml document,
// document input produces a file in Export.Format.
type Job struct {
	In  string
	Out string

	Import ImportOptions
	Export ExportOptions
}

func isFBXPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".fbx")
}

func documentFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return "yaml"
	}
	return "json"
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// OutPath returns Out or a name derived from In.
func (j Job) OutPath() string {
	if j.Out != "" {
		return j.Out
	}
	if isFBXPath(j.In) {
		return replaceExt(j.In, ".json")
	}
	ext := j.Export.Format.Extension()
	if out := replaceExt(j.In, ext); out != j.In {
		return out
	}
	return replaceExt(j.In, ".out"+ext)
}

// Run performs the conversion and returns the written path.
func (j Job) Run() (string, error) {
	log := logger.Named("job")
	out := j.OutPath()

	if isFBXPath(j.In) {
		doc, err := ImportFile(j.In, j.Import)
		if err != nil {
			return "", err
		}
		var buf bytes.Buffer
		if err := document.Encode(&buf, doc, documentFormat(out)); err != nil {
			return "", err
		}
		if err := os.WriteFile(out, buf.Bytes(), 0644); err != nil {
			return "", errors.Wrapf(err, "Failed to write %q", out)
		}
		log.Info("Imported", zap.String("in", j.In), zap.String("out", out), zap.Stringer("document", doc))
		return out, nil
	}

	f, err := os.Open(j.In)
	if err != nil {
		return "", errors.Wrapf(err, "Failed to open %q", j.In)
	}
	defer f.Close()

	doc, err := document.Decode(f, documentFormat(j.In))
	if err != nil {
		return "", errors.Wrapf(err, "Failed to read %q", j.In)
	}
	return ExportFile(doc, out, j.Export)
}

// Document loads the job input as a document whatever its kind.
func (j Job) Document() (*document.Document, error) {
	if isFBXPath(j.In) {
		return ImportFile(j.In, j.Import)
	}
	f, err := os.Open(j.In)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open %q", j.In)
	}
	defer f.Close()
	return document.Decode(f, documentFormat(j.In))
}
