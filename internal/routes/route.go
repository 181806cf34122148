package routes

import (
	"atr-bknd/internal/auth"
	"atr-bknd/internal/config"
	"atr-bknd/internal/handlers"
	"atr-bknd/internal/logger"
	mdlwr "atr-bknd/internal/middleware"
	"atr-bknd/internal/raster"
	"atr-bknd/internal/services"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"

	"github.com/go-chi/cors"
)

func NewRouter(db *bun.DB, cfg *config.Config, logr *logger.Logger) http.Handler {
	r := chi.NewRouter()

	// Basic middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// CORS middleware with config
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// init JWT manager
	jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, "atr-bknd")
	if err != nil {
		logr.Fatal("failed to init jwt manager", zap.Error(err))
	}

	// auth service (service handles DB checks like token_version)
	authSvc := services.NewAuthService(db, jwtMgr, cfg, logr)
	roiSvc := services.NewROIService(db)
	modelSvc := services.NewModelService(db)

	extractor := raster.NewExtractor(raster.GDALLoader{})
	pipeline := services.NewAnalysisService(extractor, logr)
	jobSvc := services.NewJobService(db, cfg, logr, roiSvc, modelSvc, pipeline)

	// create the auth middleware instance (pass dependencies)
	authMW := mdlwr.NewAuthMiddleware(jwtMgr.PublicKey(), authSvc, logr.Logger)

	authHandler := handlers.NewAuthHandler(authSvc, logr, cfg)
	roiHandler := handlers.NewROIHandler(roiSvc, logr.Logger)
	modelHandler := handlers.NewModelHandler(modelSvc, logr.Logger)
	analysisHandler := handlers.NewAnalysisHandler(jobSvc, roiSvc, cfg, logr.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte("ok"))
		if err != nil {
			return
		}
	})

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/auth", func(r chi.Router) {
			// Public routes
			r.Post("/login", authHandler.Login)

			// Protected routes
			r.Group(func(r chi.Router) {
				// use the middleware instance's method as middleware
				r.Use(authMW.JWTAuth)
				r.Post("/refresh", authHandler.Refresh)
				r.Post("/logout", authHandler.Logout)
			})
		})

		r.Route("/rois", func(r chi.Router) {
			r.Use(authMW.JWTAuth)
			r.Get("/", roiHandler.ListROIs)
			r.Get("/{id}", roiHandler.GetROI)
			r.Get("/{id}/plots", roiHandler.GetPlots)
		})

		r.Route("/models", func(r chi.Router) {
			r.Use(authMW.JWTAuth)
			r.Get("/", modelHandler.ListModels)
			r.Get("/suggest", modelHandler.SuggestModel)
		})

		r.Route("/analysis", func(r chi.Router) {
			r.Use(authMW.JWTAuth)
			r.Post("/upload", analysisHandler.UploadAnalysis)
			r.Post("/upload-batch", analysisHandler.UploadBatchAnalysis)

			r.Route("/jobs", func(r chi.Router) {
				r.Get("/", analysisHandler.ListJobs)
				r.Get("/{id}", analysisHandler.GetJob)
				r.Get("/{id}/results.csv", analysisHandler.DownloadResults)
			})
		})

	})

	return r
}
