package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/nexo-studio/agency-api/internal/auth"
	"github.com/nexo-studio/agency-api/internal/config"
	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/http/handler"
	"github.com/nexo-studio/agency-api/internal/http/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	_ "github.com/nexo-studio/agency-api/docs" // Import generated swagger docs
)

// Handlers groups the HTTP handlers mounted by the router
type Handlers struct {
	Health    *handler.HealthHandler
	Auth      *handler.AuthHandler
	Catalog   *handler.CatalogHandler
	Quotation *handler.QuotationHandler
	Contact   *handler.ContactHandler
	Deal      *handler.DealHandler
	Activity  *handler.ActivityHandler
	Post      *handler.PostHandler
	File      *handler.FileHandler
}

type Router struct {
	cfg            *config.Config
	logger         *zap.Logger
	authMiddleware *auth.Middleware
	rateLimiter    *middleware.RateLimiter
	h              Handlers
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:            cfg,
		logger:         logger,
		authMiddleware: authMiddleware,
		rateLimiter:    rateLimiter,
		h:              handlers,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security, rt.cfg.App.Environment))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(middleware.Locale)
	if timeout := rt.cfg.Server.RequestTimeoutDuration(); timeout > 0 {
		r.Use(chimw.Timeout(timeout))
	}

	// Health checks
	r.Get("/health", rt.h.Health.Live)
	r.Get("/health/db", rt.h.Health.Database)
	r.Get("/health/ready", rt.h.Health.Ready)

	// Swagger documentation
	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes: the website quotation form and the blog
		r.Route("/public", func(r chi.Router) {
			r.Use(rt.rateLimiter.PerIP())
			r.Use(rt.authMiddleware.OptionalAuthenticate)

			r.Get("/services", rt.h.Catalog.ListPublicServices)
			r.Get("/services/{id}", rt.h.Catalog.GetCatalog)
			r.Get("/services/{id}/questions", rt.h.Catalog.GetPublicQuestions)

			r.Group(func(r chi.Router) {
				r.Use(rt.rateLimiter.QuotationSubmits())
				r.Post("/quotations/preview", rt.h.Quotation.Preview)
				r.Post("/quotations/preview/{token}/confirm", rt.h.Quotation.ConfirmPreview)
			})

			r.Get("/posts", rt.h.Post.ListPublished)
			r.Get("/posts/{slug}", rt.h.Post.GetPublished)
			r.Get("/posts/{slug}/cover", rt.h.Post.Cover)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(rt.rateLimiter.PerUser())

			r.Get("/auth/me", rt.h.Auth.Me)
			r.Get("/technologies", rt.h.Catalog.ListTechnologies)

			// Quotations: clients see their own, staff manage all
			r.Route("/quotations", func(r chi.Router) {
				r.Get("/", rt.h.Quotation.List)
				r.Post("/", rt.h.Quotation.Create)

				r.With(rt.authMiddleware.RequireStaff).Get("/stats", rt.h.Quotation.Stats)
				r.Get("/{id}", rt.h.Quotation.GetByID)

				r.Group(func(r chi.Router) {
					r.Use(rt.authMiddleware.RequireStaff)
					r.Patch("/{id}/status", rt.h.Quotation.UpdateStatus)
					r.Post("/{id}/convert", rt.h.Quotation.Convert)
					r.Delete("/{id}", rt.h.Quotation.Delete)
					r.Get("/{id}/activities", rt.h.Activity.ListByTarget(domain.ActivityTargetQuotation))
				})
			})

			// Back office
			r.Group(func(r chi.Router) {
				r.Use(rt.authMiddleware.RequireStaff)

				r.Route("/services", func(r chi.Router) {
					r.Get("/", rt.h.Catalog.ListServices)
					r.Post("/", rt.h.Catalog.CreateService)
					r.Get("/{id}", rt.h.Catalog.GetService)
					r.Put("/{id}", rt.h.Catalog.UpdateService)
					r.Delete("/{id}", rt.h.Catalog.DeleteService)
					r.Get("/{id}/questions", rt.h.Catalog.ListQuestions)
					r.Post("/{id}/questions", rt.h.Catalog.CreateQuestion)
					r.Put("/{id}/questions/order", rt.h.Catalog.ReorderQuestions)
				})

				r.Route("/questions", func(r chi.Router) {
					r.Put("/{id}", rt.h.Catalog.UpdateQuestion)
					r.Delete("/{id}", rt.h.Catalog.DeleteQuestion)
				})

				r.Post("/technologies", rt.h.Catalog.CreateTechnology)
				r.Delete("/technologies/{id}", rt.h.Catalog.DeleteTechnology)

				r.Route("/contacts", func(r chi.Router) {
					r.Get("/", rt.h.Contact.ListContacts)
					r.Post("/", rt.h.Contact.CreateContact)
					r.Get("/{id}", rt.h.Contact.GetContact)
					r.Put("/{id}", rt.h.Contact.UpdateContact)
					r.Delete("/{id}", rt.h.Contact.DeleteContact)
					r.Get("/{id}/activities", rt.h.Activity.ListByTarget(domain.ActivityTargetContact))
				})

				r.Route("/deals", func(r chi.Router) {
					r.Get("/", rt.h.Deal.List)
					r.Post("/", rt.h.Deal.Create)
					r.Get("/board", rt.h.Deal.Board)
					r.Get("/{id}", rt.h.Deal.GetByID)
					r.Put("/{id}", rt.h.Deal.Update)
					r.Delete("/{id}", rt.h.Deal.Delete)
					r.Patch("/{id}/stage", rt.h.Deal.MoveStage)
					r.Get("/{id}/history", rt.h.Deal.History)
					r.Get("/{id}/activities", rt.h.Activity.ListByTarget(domain.ActivityTargetDeal))
				})

				r.Route("/activities", func(r chi.Router) {
					r.Get("/", rt.h.Activity.List)
					r.Post("/", rt.h.Activity.Create)
				})

				r.Route("/posts", func(r chi.Router) {
					r.Get("/", rt.h.Post.List)
					r.Post("/", rt.h.Post.Create)
					r.Get("/{id}", rt.h.Post.GetByID)
					r.Put("/{id}", rt.h.Post.Update)
					r.Delete("/{id}", rt.h.Post.Delete)
					r.Post("/{id}/publish", rt.h.Post.Publish)
					r.Post("/{id}/unpublish", rt.h.Post.Unpublish)
					r.Post("/{id}/cover", rt.h.Post.UploadCover)
				})

				r.Route("/files", func(r chi.Router) {
					r.Get("/{id}", rt.h.File.GetByID)
					r.Get("/{id}/download", rt.h.File.Download)
				})
			})
		})
	})

	return r
}
