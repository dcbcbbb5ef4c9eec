package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/MCPRUNNER/geostacMCP/pkg/toolkit"
	"github.com/gorilla/mux"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"
)

// RunHTTPServer starts the streamable MCP transport on port and blocks
// until the server stops.
func RunHTTPServer(s *server.MCPServer, port string) error {
	streamableServer := server.NewStreamableHTTPServer(s)

	logrus.WithField("port", port).Info("starting MCP HTTP server")
	logrus.Infof("MCP endpoint available at: http://localhost:%s/mcp", port)

	return streamableServer.Start(":" + port)
}

// NewAdminRouter builds the operational endpoints served beside the MCP
// transport: /healthz, /api/tools, and /api/context/keys. All of them are
// read-only views over the dispatch server.
func NewAdminRouter(srv *toolkit.Server, version string) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"version": version,
			"tools":   len(srv.ListTools()),
		})
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/tools", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"tools": srv.ListTools(),
		})
	}).Methods(http.MethodGet)

	r.HandleFunc("/api/context/keys", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"keys": srv.Context().Keys(),
		})
	}).Methods(http.MethodGet)

	return r
}

// RunAdminServer serves the admin router on port and blocks until the
// server stops.
func RunAdminServer(srv *toolkit.Server, version, port string) error {
	httpSrv := &http.Server{
		Addr:         ":" + port,
		Handler:      NewAdminRouter(srv, version),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	logrus.WithField("port", port).Info("starting admin HTTP server")
	return httpSrv.ListenAndServe()
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.WithError(err).Warn("failed to encode admin response")
	}
}
