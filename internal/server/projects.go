package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"novelkit/internal/asset/repair"
	"novelkit/internal/logging"
	"novelkit/internal/project"
)

func (s *Server) handleProjects(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ids, err := s.projects.List()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, projectListResponse{Projects: ids})
}

// handleProjectSubtree routes everything under /api/projects/{id}.
func (s *Server) handleProjectSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/projects/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		s.writeError(w, http.StatusNotFound, "project id is required")
		return
	}
	projectID := parts[0]

	switch {
	case len(parts) == 1:
		s.handleProjectDoc(w, r, projectID)
	case parts[1] == "assets":
		s.handleAssets(w, r, projectID, parts[2:])
	case parts[1] == "repair" && len(parts) == 2:
		s.handleRepair(w, r, projectID)
	case parts[1] == "export" && len(parts) == 2:
		s.handleExport(w, r, projectID)
	default:
		s.writeError(w, http.StatusNotFound, "unknown resource")
	}
}

func (s *Server) handleProjectDoc(w http.ResponseWriter, r *http.Request, projectID string) {
	switch r.Method {
	case http.MethodGet:
		p, err := s.projects.Load(projectID)
		if errors.Is(err, project.ErrNotFound) {
			s.writeError(w, http.StatusNotFound, "project not found")
			return
		}
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		// A freshly opened document carries handles from a previous session;
		// heal them before the editor renders anything.
		if _, err := s.repairer.RepairProject(r.Context(), p, repair.StrategyProactive); err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := s.projects.Save(p); err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, p)

	case http.MethodPut:
		var p project.Project
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid project document: "+err.Error())
			return
		}
		if p.ID == "" {
			p.ID = projectID
		}
		if p.ID != projectID {
			s.writeError(w, http.StatusBadRequest, "document id does not match url")
			return
		}
		if err := s.projects.Save(&p); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, &p)

	case http.MethodDelete:
		s.cache.ReleaseProject(projectID)
		if err := s.store.DeleteProject(r.Context(), projectID); err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if err := s.projects.Delete(projectID); err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.logger.Info("project deleted", logging.String(logging.FieldProjectID, projectID))
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleRepair(w http.ResponseWriter, r *http.Request, projectID string) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	strategy, err := repair.ParseStrategy(r.URL.Query().Get("strategy"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := s.projects.Load(projectID)
	if errors.Is(err, project.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	warnings, err := s.repairer.RepairProject(r.Context(), p, strategy)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.projects.Save(p); err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, repairResponse{
		Strategy: strategy.String(),
		Warnings: repairWarnings(warnings),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, projectID string) {
	p, err := s.projects.Load(projectID)
	if errors.Is(err, project.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "project not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch r.Method {
	case http.MethodPost:
		res, err := s.exporter.Export(r.Context(), p)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.writeJSON(w, http.StatusOK, exportResponse{
			ArchivePath: res.ArchivePath,
			AssetPaths:  res.AssetPaths,
			Warnings:    exportWarnings(res.Warnings),
		})

	case http.MethodGet:
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", `attachment; filename="`+projectID+`.zip"`)
		if _, err := s.exporter.WriteArchive(r.Context(), p, w); err != nil {
			// Headers are already gone; all we can do is log.
			s.logger.Error("streaming export failed",
				logging.String(logging.FieldProjectID, projectID),
				logging.Error(err))
		}

	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}
