package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/fruitful/internal/logging"
	"github.com/dmitrijs2005/fruitful/internal/server/config"
	"github.com/dmitrijs2005/fruitful/internal/server/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RateLimiter admits or rejects a request identified by key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) bool
}

// API holds the engines behind the /api/v1 handlers.
type API struct {
	logger    logging.Logger
	users     *services.UserService
	buckets   *services.BucketService
	fruits    *services.FruitService
	jwtSecret []byte
	project   string
	origins   []string
	limiter   RateLimiter
}

type Option func(*API)

// WithLoginLimiter throttles POST /login/access-token per client IP.
func WithLoginLimiter(l RateLimiter) Option {
	return func(a *API) { a.limiter = l }
}

func NewAPI(cfg *config.Config, l logging.Logger, u *services.UserService, b *services.BucketService,
	f *services.FruitService, opts ...Option) *API {

	a := &API{
		logger:    l.With("module", "httpapi"),
		users:     u,
		buckets:   b,
		fruits:    f,
		jwtSecret: []byte(cfg.SecretKey),
		project:   cfg.ProjectName,
		origins:   cfg.CORSAllowedOrigins,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Routes builds the chi router.
func (a *API) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(a.requestLogger)
	r.Use(middleware.Recoverer)

	if len(a.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   a.origins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/hello_world", a.helloWorld)

		r.Route("/login", func(r chi.Router) {
			r.Post("/access-token", a.loginAccessToken)
			r.Post("/refresh-token", a.loginRefreshToken)
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/signup", a.signup)

			r.Group(func(r chi.Router) {
				r.Use(a.authenticate)
				r.Get("/me", a.readMe)
				r.Patch("/me", a.updateMe)
				r.Patch("/me/password", a.updateMyPassword)
				r.Get("/{id}", a.readUser)

				r.Group(func(r chi.Router) {
					r.Use(requireSuperuser)
					r.Get("/", a.listUsers)
					r.Post("/", a.createUser)
					r.Patch("/{id}", a.updateUser)
				})
			})
		})

		r.Route("/buckets", func(r chi.Router) {
			r.Use(a.authenticate)
			r.Get("/", a.listBuckets)
			r.Post("/", a.createBucket)
			r.Get("/{id}", a.readBucket)
			r.Patch("/{id}", a.updateBucket)
			r.Delete("/{id}", a.deleteBucket)
		})

		r.Route("/fruits", func(r chi.Router) {
			r.Use(a.authenticate)
			r.Get("/", a.listFruits)
			r.Post("/", a.createFruit)
			r.Get("/bucket/{bucket_id}", a.listBucketFruits)
			r.Get("/{id}", a.readFruit)
			r.Patch("/{id}", a.updateFruit)
			r.Delete("/{id}", a.deleteFruit)
		})
	})

	return r
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			a.logger.Info(r.Context(), "request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

func (a *API) helloWorld(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Hello from " + a.project + "!"))
}
