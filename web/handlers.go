package web

import (
	"bytes"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/mogaika/fbxdoc/config"
	"github.com/mogaika/fbxdoc/convert"
	"github.com/mogaika/fbxdoc/document"
	"github.com/mogaika/fbxdoc/webutils"
)

func (s *Server) maxUpload() int64 {
	return s.cfg.Server.MaxUploadMB << 20
}

func (s *Server) importOptions(r *http.Request) (convert.ImportOptions, error) {
	opts := convert.ImportOptions{
		ResampleRate: s.cfg.Convert.ResampleRate,
		Charmap:      config.GetEncoding(),
	}
	if rate := r.URL.Query().Get("rate"); rate != "" {
		v, err := strconv.ParseFloat(rate, 64)
		if err != nil || v <= 0 {
			return opts, errors.Errorf("Invalid resample rate %q", rate)
		}
		opts.ResampleRate = v
	}
	return opts, nil
}

// HandlerImport converts an uploaded FBX file into a document.
func (s *Server) HandlerImport(w http.ResponseWriter, r *http.Request) {
	data, name, err := webutils.ReadFormFile(r, "file", s.maxUpload())
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	opts, err := s.importOptions(r)
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}

	s.status.Info("Importing %s", name)
	doc, err := convert.ImportReader(bytes.NewReader(data), opts)
	if err != nil {
		s.status.Error("Failed to import %s: %v", name, err)
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}

	format := r.URL.Query().Get("format")
	var buf bytes.Buffer
	if err := document.Encode(&buf, doc, format); err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}
	s.status.Progress(1, "Imported %s", name)

	if format == "yaml" || format == "yml" {
		w.Header().Set("Content-Type", "application/yaml")
	} else {
		w.Header().Set("Content-Type", "application/json")
	}
	webutils.WriteResult(w, buf.Bytes())
}

// HandlerExport converts an uploaded json or yaml document into the
// requested format.
func (s *Server) HandlerExport(w http.ResponseWriter, r *http.Request) {
	data, name, err := webutils.ReadFormFile(r, "file", s.maxUpload())
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}

	format, err := convert.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}

	docFormat := strings.TrimPrefix(filepath.Ext(name), ".")
	if docFormat != "yaml" && docFormat != "yml" {
		docFormat = "json"
	}
	doc, err := document.Decode(bytes.NewReader(data), docFormat)
	if err != nil {
		webutils.WriteError(w, http.StatusBadRequest, err)
		return
	}

	s.status.Info("Exporting %s as %s", name, format)
	out, err := convert.ExportBytes(doc, convert.ExportOptions{
		Format:  format,
		Version: s.cfg.Convert.Version,
		Creator: s.cfg.Convert.Creator,
	})
	if err != nil {
		s.status.Error("Failed to export %s: %v", name, err)
		webutils.WriteError(w, http.StatusInternalServerError, err)
		return
	}
	s.status.Progress(1, "Exported %s", name)
	s.log.Debug("Exported", zap.String("name", name), zap.Int("size", len(out)))

	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	webutils.WriteFile(w, bytes.NewReader(out), base+format.Extension())
}

func (s *Server) HandlerFormats(w http.ResponseWriter, r *http.Request) {
	webutils.WriteJson(w, map[string]interface{}{
		"export":    convert.Formats,
		"document":  []string{"json", "yaml"},
		"encodings": config.ListEncodings(),
	})
}

func (s *Server) HandlerStatus(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Info("Websocket upgrade failed", zap.Error(err))
		return
	}
	s.status.Serve(conn)
}
