package routes

import (
	"net/http"

	"wikihub/internal/handlers"
	"wikihub/internal/middleware"
	"wikihub/internal/models"
	"wikihub/internal/notify"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	Articles   *handlers.ArticleHandler
	Comments   *handlers.CommentHandler
	Workspaces *handlers.WorkspaceHandler
	Files      *handlers.FileHandler
	Logs       *handlers.AdminLogsHandler
	Hub        *notify.Hub
}

func InitRoutes(router *mux.Router, jwtSecret string, h Handlers) {
	router.Use(middleware.RequestID, middleware.Recoverer, middleware.Logging)

	// --- Публичные маршруты ---
	router.HandleFunc("/uploads/{articleId:[0-9]+}/{fileName}", h.Files.Download).Methods(http.MethodGet)
	router.HandleFunc("/ws", h.Hub.ServeWS).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", handlers.Health).Methods(http.MethodGet)
	api.HandleFunc("/auth/register", h.Auth.Register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.Auth.Login).Methods(http.MethodPost)

	// --- Защищённые JWT ---
	protected := api.PathPrefix("").Subrouter()
	protected.Use(func(next http.Handler) http.Handler { return middleware.JWTAuth(jwtSecret, next) })

	protected.HandleFunc("/articles", h.Articles.List).Methods(http.MethodGet)
	protected.HandleFunc("/articles", h.Articles.Create).Methods(http.MethodPost)
	protected.HandleFunc("/articles/{id:[0-9]+}", h.Articles.Get).Methods(http.MethodGet)
	protected.HandleFunc("/articles/{id:[0-9]+}", h.Articles.Update).Methods(http.MethodPut, http.MethodPatch)
	protected.HandleFunc("/articles/{id:[0-9]+}", h.Articles.Delete).Methods(http.MethodDelete)
	protected.HandleFunc("/articles/{id:[0-9]+}/versions", h.Articles.Versions).Methods(http.MethodGet)
	protected.HandleFunc("/articles/{id:[0-9]+}/versions/{version}", h.Articles.GetVersion).Methods(http.MethodGet)

	protected.HandleFunc("/articles/{id:[0-9]+}/comments", h.Comments.List).Methods(http.MethodGet)
	protected.HandleFunc("/articles/{id:[0-9]+}/comments", h.Comments.Create).Methods(http.MethodPost)
	protected.HandleFunc("/comments/{commentId:[0-9]+}", h.Comments.Update).Methods(http.MethodPut, http.MethodPatch)
	protected.HandleFunc("/comments/{commentId:[0-9]+}", h.Comments.Delete).Methods(http.MethodDelete)

	protected.HandleFunc("/workspaces", h.Workspaces.List).Methods(http.MethodGet)
	protected.HandleFunc("/workspaces/{id:[0-9]+}", h.Workspaces.Get).Methods(http.MethodGet)

	admin := protected.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.OnlyRole(models.RoleAdmin))
	admin.HandleFunc("/workspaces", h.Workspaces.Create).Methods(http.MethodPost)
	admin.HandleFunc("/workspaces/{id:[0-9]+}", h.Workspaces.Update).Methods(http.MethodPut, http.MethodPatch)
	admin.HandleFunc("/workspaces/{id:[0-9]+}", h.Workspaces.Delete).Methods(http.MethodDelete)
	admin.HandleFunc("/users", h.Auth.GetUsers).Methods(http.MethodGet)
	admin.HandleFunc("/users/{id:[0-9]+}/role", h.Auth.UpdateRole).Methods(http.MethodPut, http.MethodPatch)
	admin.HandleFunc("/logs", h.Logs.GetLogs).Methods(http.MethodGet)
}
