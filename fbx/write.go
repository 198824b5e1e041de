package fbx

import (
	"io"
	"os"

	mfbx "github.com/mogaika/fbx"
	"github.com/pkg/errors"
)

// WriteBinary writes f to an open file. The binary encoder seeks back to
// patch node offsets, so it needs a real file.
func WriteBinary(out *os.File, f *File) error {
	if err := mfbx.Write(out, f.FBX); err != nil {
		return errors.Wrapf(err, "Failed to encode binary fbx")
	}
	return nil
}

// Write encodes f to any writer, going through a temp file for the binary
// format.
func Write(w io.Writer, f *File, binary bool) error {
	if !binary {
		return WriteASCII(w, f)
	}

	tempFile, err := os.CreateTemp("", "fbxexport.*.fbx")
	if err != nil {
		return errors.Wrapf(err, "Unable to create temp file")
	}
	defer os.Remove(tempFile.Name())
	defer tempFile.Close()

	if err := WriteBinary(tempFile, f); err != nil {
		return err
	}
	if _, err := tempFile.Seek(0, io.SeekStart); err != nil {
		return errors.Wrapf(err, "Unable to seek")
	}
	_, err = io.Copy(w, tempFile)
	return err
}

// WriteFile writes f to path in the requested format.
func WriteFile(path string, f *File, binary bool) error {
	out, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "Unable to create %q", path)
	}
	if binary {
		err = WriteBinary(out, f)
	} else {
		err = WriteASCII(out, f)
	}
	if cerr := out.Close(); err == nil && cerr != nil {
		err = errors.Wrapf(cerr, "Unable to close %q", path)
	}
	return err
}
