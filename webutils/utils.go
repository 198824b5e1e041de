package webutils

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/fbxdoc/logger"
)

func WriteFileHeaders(w http.ResponseWriter, name string) {
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+name+"\"")
}

func WriteFile(w http.ResponseWriter, in io.Reader, name string) {
	WriteFileHeaders(w, name)
	if _, err := io.Copy(w, in); err != nil {
		logger.Named("web").Warn("Failed to write file", zap.String("name", name), zap.Error(err))
	}
}

func WriteJson(w http.ResponseWriter, data interface{}) {
	res, err := json.Marshal(data)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err)
	} else {
		w.Header().Set("Content-Type", "application/json")
		WriteResult(w, res)
	}
}

// ReadFormFile returns the content of a multipart POST upload.
func ReadFormFile(r *http.Request, formFileKey string, maxSize int64) ([]byte, string, error) {
	if strings.ToUpper(r.Method) != "POST" {
		return nil, "", errors.Errorf("Invalid http method %q", r.Method)
	}
	if err := r.ParseMultipartForm(maxSize); err != nil {
		return nil, "", errors.Wrapf(err, "Failed to parse form")
	}

	f, header, err := r.FormFile(formFileKey)
	if err != nil {
		return nil, "", errors.Wrapf(err, "Failed to get file")
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return nil, "", errors.Wrapf(err, "Failed to read")
	}
	if int64(len(data)) > maxSize {
		return nil, "", errors.Errorf("File %q is larger than %d bytes", header.Filename, maxSize)
	}
	return data, header.Filename, nil
}

func WriteResult(w http.ResponseWriter, data []byte) {
	if _, err := w.Write(data); err != nil {
		logger.Named("web").Warn("Error when writing response", zap.Error(err))
	}
}

func WriteError(w http.ResponseWriter, code int, err error) {
	type jError struct {
		Error string `json:"error"`
	}
	logger.Named("web").Info("Request failed", zap.Int("code", code), zap.Error(err))

	data, merr := json.Marshal(&jError{Error: err.Error()})
	if merr != nil {
		logger.Named("web").Error("Error marshaling error", zap.Error(merr))
		http.Error(w, err.Error(), code)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	WriteResult(w, data)
}
