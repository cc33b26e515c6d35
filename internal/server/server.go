package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"lamarkesa/internal/util"
	"lamarkesa/pkg/ai"
	"lamarkesa/pkg/auth"
	"lamarkesa/pkg/catalog"
	"lamarkesa/pkg/domain"
	"lamarkesa/pkg/extract"
	"lamarkesa/pkg/store"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	Catalog   *catalog.Catalog
	Store     store.Store
	Sessions  store.SessionStore
	Extractor *extract.Extractor

	// OpenAIAPIKey is the server-wide fallback credential used when the
	// requesting user has no key stored in their settings.
	OpenAIAPIKey   string
	MaxUploadBytes int64
}

// Server exposes HTTP endpoints for the jewelry catalog.
type Server struct {
	catalog        *catalog.Catalog
	store          store.Store
	sessions       store.SessionStore
	extractor      *extract.Extractor
	serverAPIKey   string
	mux            *http.ServeMux
	maxUploadBytes int64
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("server: catalog is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("server: store is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("server: session store is required")
	}
	maxUploadBytes := cfg.MaxUploadBytes
	if maxUploadBytes <= 0 {
		maxUploadBytes = 10 * 1024 * 1024
	}
	s := &Server{
		catalog:        cfg.Catalog,
		store:          cfg.Store,
		sessions:       cfg.Sessions,
		extractor:      cfg.Extractor,
		serverAPIKey:   strings.TrimSpace(cfg.OpenAIAPIKey),
		mux:            http.NewServeMux(),
		maxUploadBytes: maxUploadBytes,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/auth/login", s.handleLogin)
	s.mux.Handle("/auth/logout", s.withUser(s.handleLogout))
	s.mux.Handle("/auth/me", s.withUser(s.handleMe))

	// items
	s.mux.Handle("/items", s.withUser(s.handleItems))
	s.mux.Handle("/items/", s.withUser(s.handleItemPaths))

	// settings
	s.mux.Handle("/settings", s.withUser(s.handleSettings))

	// extraction
	s.mux.HandleFunc("/api/extract", s.handleExtract)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) withUser(next userHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authenticate(w, r)
		if !ok {
			return
		}
		next(w, r, user)
	})
}

// authenticate resolves the bearer token to an active user, writing the
// error response itself when it fails.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (domain.User, bool) {
	token, ok := bearerToken(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return domain.User{}, false
	}
	userID, ok, err := s.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return domain.User{}, false
	}
	user, ok, err := s.store.GetUserByID(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return domain.User{}, false
	}
	if !ok || user.Status != domain.StatusActive {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return domain.User{}, false
	}
	return user, true
}

// requireRole gates a handler on an exact role match. Roles are enforced
// here, at the server boundary, never from client-held state.
func requireRole(role domain.UserRole, next userHandler) userHandler {
	return func(w http.ResponseWriter, r *http.Request, user domain.User) {
		if user.Role != role {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}
		next(w, r, user)
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	user, ok, err := s.store.GetUserByEmail(email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok || !auth.CheckPassword(req.Password, user.PasswordHash) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	if user.Status != domain.StatusActive {
		writeError(w, http.StatusForbidden, "account disabled")
		return
	}
	token, err := s.sessions.NewSession(user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  user,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	token, _ := bearerToken(r)
	if err := s.sessions.DeleteSession(token); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user domain.User) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		s.handleListItems(w, r)
	case http.MethodPost:
		s.handleAddItem(w, r)
	case http.MethodDelete:
		requireRole(domain.RoleAdmin, s.handleClearAll)(w, r, user)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items := catalog.FilteredAndSorted(s.catalog.Items(), q.Get("search"), q.Get("category"), q.Get("sort"))
	writeJSON(w, http.StatusOK, map[string]any{
		"items": items,
		"count": len(items),
	})
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var item domain.Item
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&item); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(item.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	id, err := s.catalog.Add(r.Context(), item)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request, _ domain.User) {
	if err := s.catalog.ClearAll(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "clear all failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// /items/stats, /items/export, /items/{id}, /items/{id}/image
func (s *Server) handleItemPaths(w http.ResponseWriter, r *http.Request, _ domain.User) {
	path := strings.TrimPrefix(r.URL.Path, "/items/")
	switch path {
	case "stats":
		s.handleStats(w, r)
		return
	case "export":
		s.handleExport(w, r)
		return
	}
	parts := strings.SplitN(path, "/", 2)
	id := parts[0]
	if id == "" {
		notFound(w, "not found")
		return
	}
	if len(parts) == 2 {
		if parts[1] == "image" {
			s.handleUploadImage(w, r, id)
			return
		}
		notFound(w, "not found")
		return
	}
	switch r.Method {
	case http.MethodPatch:
		s.handleUpdateItem(w, r, id)
	case http.MethodDelete:
		s.handleDeleteItem(w, r, id)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, catalog.Stats(s.catalog.Items()))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	items := s.catalog.Items()
	switch r.URL.Query().Get("format") {
	case "", "csv":
		out, err := catalog.ExportCSV(items)
		if errors.Is(err, catalog.ErrNoItems) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="jewelry-export.csv"`)
		_, _ = w.Write([]byte(out))
	case "json":
		out, err := catalog.ExportJSON(items)
		if errors.Is(err, catalog.ErrNoItems) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="jewelry-export.json"`)
		_, _ = w.Write(out)
	default:
		writeError(w, http.StatusBadRequest, "invalid export format")
	}
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request, id string) {
	var upd domain.ItemUpdate
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.catalog.Update(r.Context(), id, upd); err != nil {
		if errors.Is(err, store.ErrItemNotFound) {
			notFound(w, "item not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request, id string) {
	item, ok, err := s.store.GetItem(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		notFound(w, "item not found")
		return
	}
	if err := s.catalog.Delete(r.Context(), id, item.Image); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	item, ok, err := s.store.GetItem(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if !ok {
		notFound(w, "item not found")
		return
	}
	if s.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form data")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required (field: file)")
		return
	}
	defer file.Close()
	url, err := s.catalog.UploadImage(r.Context(), file, header.Size, item.ID, header.Filename)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "image upload failed")
		return
	}
	if err := s.catalog.Update(r.Context(), item.ID, domain.ItemUpdate{Image: &url}); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"image": url})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request, user domain.User) {
	switch r.Method {
	case http.MethodGet:
		settings, ok, err := s.store.GetUserSettings(user.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !ok {
			// First read creates the default record.
			settings, err = s.store.SaveUserSettings(user.ID, map[string]any{"openaiApiKey": ""})
			if err != nil {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
		}
		writeJSON(w, http.StatusOK, settingsPayload(settings))
	case http.MethodPut:
		var fields map[string]any
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&fields); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		settings, err := s.store.SaveUserSettings(user.ID, fields)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, settingsPayload(settings))
	default:
		methodNotAllowed(w)
	}
}

// settingsPayload flattens settings for the wire, keeping unknown fields
// from previous merge-writes.
func settingsPayload(settings domain.UserSettings) map[string]any {
	out := make(map[string]any, len(settings.Extra)+1)
	for k, v := range settings.Extra {
		out[k] = v
	}
	out["openaiApiKey"] = settings.OpenAIAPIKey
	return out
}

// handleExtract checks the method before authentication so a stray GET gets
// 405 rather than 401; preflight OPTIONS never reaches here.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	user, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	if s.extractor == nil {
		writeError(w, http.StatusInternalServerError, "extraction not configured")
		return
	}
	var req extractRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	items, err := s.extractor.Extract(r.Context(), s.apiKeyFor(user), req.TextInput)
	if err != nil {
		switch {
		case errors.Is(err, extract.ErrEmptyInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, extract.ErrNoCredential):
			writeError(w, http.StatusInternalServerError, err.Error())
		case ai.IsUpstream(err):
			// The upstream API's own message passes through verbatim.
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// apiKeyFor prefers the key stored in the user's settings and falls back to
// the server-wide credential.
func (s *Server) apiKeyFor(user domain.User) string {
	settings, ok, err := s.store.GetUserSettings(user.ID)
	if err == nil && ok && strings.TrimSpace(settings.OpenAIAPIKey) != "" {
		return strings.TrimSpace(settings.OpenAIAPIKey)
	}
	return s.serverAPIKey
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type extractRequest struct {
	TextInput string `json:"textInput"`
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}
