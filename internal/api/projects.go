package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/DanialSobri/api-studio/internal/project"
)

// createProjectRequest is the request body for POST /api/projects.
type createProjectRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// updateProjectRequest is the request body for PUT /api/projects/{id}.
// Omitted fields are left unchanged.
type updateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// assignRoleRequest is the request body for POST /api/projects/{id}/users.
type assignRoleRequest struct {
	UserID int64        `json:"user_id"`
	Role   project.Role `json:"role"`
}

// handleCreateProject creates a project owned by the caller.
func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	caller := userFromContext(r.Context())
	p, err := s.projects.Create(r.Context(), caller.ID, req.Name, req.Description)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.logger.Info("project created", "project_id", p.ID, "owner_id", caller.ID)
	writeJSON(w, http.StatusCreated, p)
}

// handleListProjects lists the projects the caller holds any role on.
func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.projects.ListForUser(r.Context(), userFromContext(r.Context()).ID)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// handleGetProject returns a project with its members. Viewer or above.
func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authorizeProject(w, r, project.LevelRead)
	if !ok {
		return
	}

	p, err := s.projects.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleUpdateProject patches name and description. Developer or above.
func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authorizeProject(w, r, project.LevelUpdate)
	if !ok {
		return
	}

	var req updateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	p, err := s.projects.Update(r.Context(), id, project.Patch{Name: req.Name, Description: req.Description})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleDeleteProject removes a project and its assignments. Owner only.
func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authorizeProject(w, r, project.LevelDelete)
	if !ok {
		return
	}

	if err := s.projects.Delete(r.Context(), id); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.logger.Info("project deleted", "project_id", id, "user_id", userFromContext(r.Context()).ID)
	writeMessage(w, http.StatusOK, "Project deleted")
}

// handleAssignRole grants or changes a member's role. Owner only.
func (s *Server) handleAssignRole(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authorizeProject(w, r, project.LevelManageMembership)
	if !ok {
		return
	}

	var req assignRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if _, err := s.projects.SetRole(r.Context(), id, req.UserID, req.Role); err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	s.logger.Info("project role set", "project_id", id, "user_id", req.UserID, "role", req.Role)
	writeMessage(w, http.StatusOK, "User role updated")
}

// handleRemoveMember deletes a member's assignment. Owner only.
func (s *Server) handleRemoveMember(w http.ResponseWriter, r *http.Request) {
	id, ok := s.authorizeProject(w, r, project.LevelManageMembership)
	if !ok {
		return
	}

	userID, err := strconv.ParseInt(chi.URLParam(r, "user_id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "user_id must be an integer")
		return
	}

	if err := s.projects.RemoveRole(r.Context(), id, userID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "User removed from project")
}

// authorizeProject resolves the {id} path parameter and checks that the
// caller holds at least required on it. A missing project is reported as
// 404 before any role check, so strangers learn a project exists only
// through a 403. On failure the response has been written and ok is false.
func (s *Server) authorizeProject(w http.ResponseWriter, r *http.Request, required project.Role) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "project id must be an integer")
		return 0, false
	}

	exists, err := s.projects.Exists(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err)
		return 0, false
	}
	if !exists {
		writeNotFound(w, "project not found")
		return 0, false
	}

	allowed, err := s.evaluator.Authorize(r.Context(), userFromContext(r.Context()).ID, id, required)
	if err != nil {
		s.writeDomainError(w, r, err)
		return 0, false
	}
	if !allowed {
		writeForbidden(w, "not authorized for this project")
		return 0, false
	}
	return id, true
}
