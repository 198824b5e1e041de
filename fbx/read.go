package fbx

import (
	"io"
	"os"
	"unicode/utf8"

	mfbx "github.com/mogaika/fbx"
	"github.com/pkg/errors"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

type ReadOptions struct {
	// Charmap decodes strings that are not valid UTF-8. Nil keeps them as is.
	Charmap *charmap.Charmap
}

func (o ReadOptions) decodeString(raw []byte) string {
	if o.Charmap == nil || utf8.Valid(raw) {
		return string(raw)
	}
	s, _, err := transform.Bytes(o.Charmap.NewDecoder(), raw)
	if err != nil {
		return string(raw)
	}
	return string(s)
}

// Read parses a binary or ascii FBX document.
func Read(data []byte, opts ReadOptions) (*File, error) {
	if len(data) == 0 {
		return nil, errors.New("Empty file")
	}
	if IsBinary(data) {
		return readBinary(data, opts)
	}
	return readASCII(data, opts)
}

func ReadFrom(r io.Reader, opts ReadOptions) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to read")
	}
	return Read(data, opts)
}

func ReadFile(path string, opts ReadOptions) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open %q", path)
	}
	return Read(data, opts)
}

// SupportedVersion reports whether files of this version can be written.
func SupportedVersion(version uint32) bool {
	switch version {
	case 7100, 7200, 7300, 7400:
		return true
	}
	return false
}

func newFile(version uint32, binary bool) *File {
	var f *mfbx.FBX
	switch version {
	case 7100:
		f = mfbx.NewFBX(7100)
	case 7200:
		f = mfbx.NewFBX(7200)
	case 7300:
		f = mfbx.NewFBX(7300)
	default:
		// Read-only versions share the 7.4 container; the original
		// version is kept on File.
		f = mfbx.NewFBX(7400)
	}
	return &File{Version: version, Binary: binary, FBX: f}
}

// MajorMinor splits 7400 into 7 and 4.
func MajorMinor(version uint32) (uint32, uint32) {
	return version / 1000, (version % 1000) / 100
}
