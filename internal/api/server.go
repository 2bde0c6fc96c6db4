package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/coursedrop/coursedrop/internal/auth"
	"github.com/coursedrop/coursedrop/internal/blob"
	"github.com/coursedrop/coursedrop/internal/catalog"
	"github.com/coursedrop/coursedrop/internal/upload"
)

// Server holds the handlers for the course-material API.
type Server struct {
	uploads       *upload.Service
	catalog       *catalog.Catalog
	blobs         blob.Store
	signer        *auth.Signer
	adminPassword string
}

// NewServer creates the API server.
func NewServer(uploads *upload.Service, cat *catalog.Catalog, blobs blob.Store, signer *auth.Signer, adminPassword string) *Server {
	return &Server{
		uploads:       uploads,
		catalog:       cat,
		blobs:         blobs,
		signer:        signer,
		adminPassword: adminPassword,
	}
}

// Router creates and configures the chi router.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	// Middleware for all routes
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/admin/login", s.handleLogin)
		r.Post("/admin/logout", s.handleLogout)

		// Public browsing surface
		r.Get("/owners", s.handleListOwners)
		r.Get("/topics", s.handleListTopics)
		r.Get("/materials/{id}", s.handleGetMaterial)

		// Everything that mutates requires the admin cookie
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin(s.signer))

			r.Post("/owners", s.handleCreateOwner)
			r.Patch("/owners/{id}", s.handleUpdateOwner)
			r.Delete("/owners/{id}", s.handleDeleteOwner)

			r.Post("/topics", s.handleCreateTopic)
			r.Post("/topics/reorder", s.handleReorderTopics)
			r.Patch("/topics/{id}", s.handleUpdateTopic)
			r.Delete("/topics/{id}", s.handleDeleteTopic)

			r.Post("/upload-url", s.handleUploadURL)
			r.Post("/materials/register", s.handleRegisterMaterial)
			r.Post("/materials/upload", s.handleDirectUpload)
			r.Post("/materials/upload-init", s.handleUploadInit)
			r.Post("/materials/upload-chunk", s.handleUploadChunk)
			r.Post("/materials/upload-finalize", s.handleUploadFinalize)
			r.Patch("/materials/{id}", s.handleMoveMaterial)
			r.Delete("/materials/{id}", s.handleDeleteMaterial)
		})
	})

	return r
}
