package server

import (
	"encoding/json"
	"net/http"

	"novelkit/internal/asset"
	"novelkit/internal/asset/repair"
	"novelkit/internal/export"
	"novelkit/internal/logging"
)

type storageResponse struct {
	UsedBytes       int64 `json:"usedBytes"`
	QuotaBytes      int64 `json:"quotaBytes"`
	AvailableBytes  int64 `json:"availableBytes"`
	Assets          int   `json:"assets"`
	Projects        int   `json:"projects"`
	LiveHandles     int   `json:"liveHandles"`
	CacheEntries    int   `json:"cacheEntries"`
	CacheReferenced int   `json:"cacheReferenced"`
}

type projectListResponse struct {
	Projects []string `json:"projects"`
}

type assetListResponse struct {
	Assets []asset.Asset `json:"assets"`
}

type uploadRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Data     string `json:"data"`
}

type assetResponse struct {
	Asset asset.Asset `json:"asset"`
}

type handleResponse struct {
	Handle string `json:"handle"`
}

type repairResponse struct {
	Strategy string          `json:"strategy"`
	Warnings []repairWarning `json:"warnings"`
}

type repairWarning struct {
	AssetID string `json:"assetId"`
	Error   string `json:"error"`
}

type exportResponse struct {
	ArchivePath string            `json:"archivePath"`
	AssetPaths  map[string]string `json:"assetPaths"`
	Warnings    []repairWarning   `json:"warnings"`
}

func repairWarnings(in []repair.Warning) []repairWarning {
	out := make([]repairWarning, 0, len(in))
	for _, warning := range in {
		out = append(out, repairWarning{AssetID: warning.AssetID, Error: warning.Err.Error()})
	}
	return out
}

func exportWarnings(in []export.Warning) []repairWarning {
	out := make([]repairWarning, 0, len(in))
	for _, warning := range in {
		out = append(out, repairWarning{AssetID: warning.AssetID, Error: warning.Err.Error()})
	}
	return out
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
