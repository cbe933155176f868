package api

import (
	"net/http"

	"github.com/campusdesk/cd-backend/internal/auth"
	"github.com/campusdesk/cd-backend/internal/booking"
	"github.com/campusdesk/cd-backend/internal/catalog"
	"github.com/campusdesk/cd-backend/internal/config"
	mw "github.com/campusdesk/cd-backend/internal/middleware"
	"github.com/campusdesk/cd-backend/internal/store"
	"github.com/campusdesk/cd-backend/internal/workflow"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
)

// subset of TaskQueue used to deliver OTP mail.
type queueService interface {
	Enqueue(taskType string, data interface{}) (*asynq.TaskInfo, error)
}

type Server struct {
	store       store.Store
	workflow    *workflow.Engine
	booking     *booking.Engine
	catalog     *catalog.Catalog
	authService *auth.AuthService
	queue       queueService
}

func NewServer(s store.Store, wf *workflow.Engine, bk *booking.Engine, cat *catalog.Catalog, authSvc *auth.AuthService, q queueService) *Server {
	return &Server{
		store:       s,
		workflow:    wf,
		booking:     bk,
		catalog:     cat,
		authService: authSvc,
		queue:       q,
	}
}

// Router assembles the public surface. Everything except health and the
// auth endpoints sits behind the Bearer-token authenticator.
func (s *Server) Router(authenticator *auth.Authenticator, corsCfg *config.CORSConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(mw.NewCORSHandler(corsCfg))
	r.Use(mw.RequestContext)
	r.Use(mw.LoggingMiddleware)

	r.Get("/health", s.handleHealth)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/otp/request", s.handleRequestOTP)
		r.Post("/otp/verify", s.handleVerifyOTP)
		r.Post("/refresh", s.handleRefresh)
		r.Post("/logout", s.handleLogout)
	})

	r.Group(func(r chi.Router) {
		r.Use(authenticator.Middleware)

		r.Route("/requests", func(r chi.Router) {
			r.Post("/", s.handleCreateRequest)
			r.Get("/", s.handleListRequests)
			r.Get("/{id}", s.handleGetRequest)
			r.Post("/{id}/process", s.handleProcessRequest)
			r.Post("/{id}/transfer", s.handleTransferRequest)
		})

		r.Get("/request-types", s.handleListRequestTypes)

		r.Route("/resources", func(r chi.Router) {
			r.Get("/", s.handleListResources)
			r.Post("/", s.handleCreateResource)
			r.Get("/{id}", s.handleGetResource)
			r.Put("/{id}/status", s.handleSetResourceStatus)
			r.Get("/{id}/availability", s.handleListAvailability)
			r.Get("/{id}/bookings", s.handleListBookings)
			r.Post("/{id}/bookings", s.handleCreateBooking)
		})

		r.Delete("/bookings/{id}", s.handleCancelBooking)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
