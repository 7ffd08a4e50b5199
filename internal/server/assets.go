package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"novelkit/internal/asset"
	"novelkit/internal/asset/store"
	"novelkit/internal/asset/urlcache"
	"novelkit/internal/logging"
	"novelkit/internal/project"
)

// handleAssets routes /api/projects/{id}/assets and below.
func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request, projectID string, parts []string) {
	switch {
	case len(parts) == 0:
		switch r.Method {
		case http.MethodGet:
			s.listAssets(w, r, projectID)
		case http.MethodPost:
			s.uploadAsset(w, r, projectID)
		default:
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case len(parts) == 1:
		if r.Method != http.MethodDelete {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.deleteAsset(w, r, projectID, parts[0])
	case len(parts) == 2 && parts[1] == "acquire":
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.acquireHandle(w, r, projectID, parts[0])
	case len(parts) == 2 && parts[1] == "release":
		if r.Method != http.MethodPost {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.cache.Release(projectID, parts[0])
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "released"})
	default:
		s.writeError(w, http.StatusNotFound, "unknown resource")
	}
}

func (s *Server) listAssets(w http.ResponseWriter, r *http.Request, projectID string) {
	assets, err := s.store.ListByProject(r.Context(), projectID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, assetListResponse{Assets: assets})
}

// uploadAsset persists a payload delivered as a durable data url and
// answers with the stored asset carrying a fresh handle.
func (s *Server) uploadAsset(w http.ResponseWriter, r *http.Request, projectID string) {
	var req uploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid upload body: "+err.Error())
		return
	}
	mime, data, err := asset.DecodeDataURL(req.Data)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "payload must be a data url: "+err.Error())
		return
	}
	a := asset.Asset{
		ID:       asset.NewID(),
		Name:     req.Name,
		Type:     asset.TypeForMIME(mime),
		Category: asset.ParseCategory(req.Category),
	}
	a.Metadata.Format = mime

	h, err := s.store.Save(r.Context(), projectID, a, data)
	if err != nil {
		if errors.Is(err, store.ErrStorageWrite) {
			s.writeError(w, http.StatusInsufficientStorage, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	a.URL = h
	a.Metadata.Size = int64(len(data))

	s.logger.Info("asset uploaded",
		logging.String(logging.FieldProjectID, projectID),
		logging.String(logging.FieldAssetID, a.ID),
		logging.Int("size", len(data)))
	s.writeJSON(w, http.StatusCreated, assetResponse{Asset: a})
}

// deleteAsset removes the stored record and cascades into the project
// document, clearing every slot that referenced the id.
func (s *Server) deleteAsset(w http.ResponseWriter, r *http.Request, projectID, assetID string) {
	s.cache.Evict(projectID, assetID)
	if err := s.store.Delete(r.Context(), projectID, assetID); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	p, err := s.projects.Load(projectID)
	switch {
	case errors.Is(err, project.ErrNotFound):
		// No document yet; nothing to cascade into.
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	default:
		p.RemoveAsset(assetID)
		if err := s.projects.Save(p); err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	s.logger.Info("asset deleted",
		logging.String(logging.FieldProjectID, projectID),
		logging.String(logging.FieldAssetID, assetID))
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) acquireHandle(w http.ResponseWriter, r *http.Request, projectID, assetID string) {
	a, err := s.store.Get(r.Context(), projectID, assetID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if a == nil {
		s.writeError(w, http.StatusNotFound, "asset not found")
		return
	}

	h, err := s.cache.Acquire(r.Context(), projectID, *a)
	if err != nil {
		if errors.Is(err, urlcache.ErrHandleUnavailable) {
			s.writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, handleResponse{Handle: h})
}
