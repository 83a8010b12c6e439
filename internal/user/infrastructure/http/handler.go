package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/food-storefront/internal/user/application"
	"github.com/dmehra2102/food-storefront/internal/user/domain"
)

type Handler struct {
	log    *slog.Logger
	auth   *application.Auth
	users  *application.Service
	tracer trace.Tracer
}

func NewHandler(log *slog.Logger, auth *application.Auth, users *application.Service) *Handler {
	return &Handler{
		log:    log,
		auth:   auth,
		users:  users,
		tracer: otel.Tracer("user-http"),
	}
}

type credentialsReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type adminReq struct {
	Admin *bool `json:"admin"`
}

type userView struct {
	domain.User
	IsMe bool `json:"isMe"`
}

// Mount registers the auth and user admin routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/auth/signup", h.signUp)
	r.Post("/auth/signin", h.signIn)
	r.Post("/auth/signout", h.signOut)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAdmin)
		r.Get("/admin/users", h.listUsers)
		r.Put("/admin/users/{uid}/admin", h.setAdmin)
	})
}

func (h *Handler) signUp(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SignUp")
	defer span.End()

	var req credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	sess, err := h.auth.SignUp(ctx, req.Email, req.Password)
	switch {
	case errors.Is(err, application.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, application.ErrInvalidEmail), errors.Is(err, application.ErrWeakPassword):
		writeError(w, http.StatusBadRequest, err.Error())
	case err != nil:
		h.log.Error("sign up failed", "err", err)
		writeError(w, http.StatusInternalServerError, "sign up failed")
	default:
		writeJSON(w, http.StatusCreated, sess)
	}
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SignIn")
	defer span.End()

	var req credentialsReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	sess, err := h.auth.SignIn(ctx, req.Email, req.Password)
	switch {
	case errors.Is(err, application.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case err != nil:
		h.log.Error("sign in failed", "err", err)
		writeError(w, http.StatusInternalServerError, "sign in failed")
	default:
		writeJSON(w, http.StatusOK, sess)
	}
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.SignOut(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListUsers")
	defer span.End()

	users, err := h.users.GetAllUsers(ctx)
	if err != nil {
		h.log.Error("list users failed", "err", err)
		writeError(w, http.StatusInternalServerError, "list users failed")
		return
	}
	me, _ := UserFrom(ctx)
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, userView{User: u, IsMe: u.UID == me.UID})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) setAdmin(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SetAdmin")
	defer span.End()

	uid := chi.URLParam(r, "uid")
	var req adminReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Admin == nil {
		writeError(w, http.StatusBadRequest, "body must be {\"admin\": bool}")
		return
	}
	if me, _ := UserFrom(ctx); me.UID == uid {
		writeError(w, http.StatusForbidden, "cannot change your own admin role")
		return
	}
	if err := h.users.UpdateUserAdminRole(ctx, uid, *req.Admin); err != nil {
		h.log.Error("update admin role failed", "uid", uid, "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"uid": uid, "admin": *req.Admin})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
