package router

import (
	"log"
	"net/http"

	"github.com/chegou-pizza/api/internal/ai"
	"github.com/chegou-pizza/api/internal/config"
	"github.com/chegou-pizza/api/internal/database"
	"github.com/chegou-pizza/api/internal/enum"
	"github.com/chegou-pizza/api/internal/handler"
	mw "github.com/chegou-pizza/api/internal/middleware"
	"github.com/chegou-pizza/api/internal/service"
	"github.com/chegou-pizza/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up.
// Applies authentication and role-based middleware as needed.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // SvelteKit dev server
			"https://app.chegoupizza.com.br",
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket order board (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Menu
		productHandler := handler.NewProductHandler(queries)
		recipeHandler := handler.NewRecipeHandler(queries)
		r.Route("/products", func(r chi.Router) {
			productHandler.RegisterRoutes(r)
			r.Route("/{id}/recipe", recipeHandler.RegisterRoutes)
		})

		// Inventory
		stockHandler := handler.NewStockHandler(queries)
		r.Route("/stock", stockHandler.RegisterRoutes)

		// Orders
		newOrderStore := func(db database.DBTX) service.OrderStore {
			return database.New(db)
		}
		orderService := service.NewOrderService(pool, newOrderStore)
		orderHandler := handler.NewOrderHandler(queries, orderService, hub)
		r.Route("/orders", orderHandler.RegisterRoutes)

		// Ledger
		transactionHandler := handler.NewTransactionHandler(queries)
		r.Route("/transactions", transactionHandler.RegisterRoutes)

		// Cash register
		cashHandler := handler.NewCashSessionHandler(queries)
		r.Route("/cash-sessions", cashHandler.RegisterRoutes)

		// AI document scanning and advice
		gen := ai.NewClient(cfg.GeminiAPIKey, cfg.GeminiModel)
		aiHandler := handler.NewAIHandler(queries, gen)
		r.Route("/ai", aiHandler.RegisterRoutes)

		// Admin-only routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))

			authHandler.RegisterAdminRoutes(r)

			employeeHandler := handler.NewEmployeeHandler(queries)
			r.Route("/employees", employeeHandler.RegisterRoutes)

			reportHandler := handler.NewReportHandler(queries)
			r.Route("/reports", reportHandler.RegisterRoutes)
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
