package api

import (
	"net/http"
	"path/filepath"
)

// getStorageInfo reports where favourites and history are persisted.
func (h *handler) getStorageInfo(w http.ResponseWriter, r *http.Request) {
	dbPath := h.core.DBPath()
	dataDir := h.dataDir
	if dataDir == "" {
		dataDir = filepath.Dir(dbPath)
	}
	writeJSON(w, http.StatusOK, storageInfoResponse{
		DataDir: dataDir,
		DBPath:  dbPath,
	})
}
