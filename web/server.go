// Package web exposes conversions over HTTP.
package web

import (
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/mogaika/fbxdoc/config"
	"github.com/mogaika/fbxdoc/logger"
	"github.com/mogaika/fbxdoc/status"
)

type Server struct {
	cfg      *config.Config
	status   *status.Hub
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewServer(cfg *config.Config) *Server {
	return &Server{
		cfg:    cfg,
		status: status.NewHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		log: logger.Named("web"),
	}
}

func (s *Server) Status() *status.Hub { return s.status }

// Close disconnects status clients and stops the status hub.
func (s *Server) Close() {
	s.status.Close()
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/import", s.HandlerImport).Methods(http.MethodPost)
	r.HandleFunc("/api/export", s.HandlerExport).Methods(http.MethodPost)
	r.HandleFunc("/api/formats", s.HandlerFormats).Methods(http.MethodGet)
	r.HandleFunc("/ws/status", s.HandlerStatus)
	return r
}

func (s *Server) Handler() http.Handler {
	h := handlers.RecoveryHandler()(s.Router())
	return handlers.LoggingHandler(os.Stdout, h)
}

func StartServer(addr string, cfg *config.Config) error {
	s := NewServer(cfg)
	defer s.Close()
	s.log.Info("Starting server", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.Handler())
}
