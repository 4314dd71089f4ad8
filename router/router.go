package router

import (
	"database/sql"
	"net/http"

	"sharedcart/config"
	authHandler "sharedcart/internal/auth"
	authRepo "sharedcart/internal/auth/repository"
	authService "sharedcart/internal/auth/service"
	itemHandler "sharedcart/internal/item"
	itemRepo "sharedcart/internal/item/repository"
	itemService "sharedcart/internal/item/service"
	productHandler "sharedcart/internal/product"
	productRepo "sharedcart/internal/product/repository"
	productService "sharedcart/internal/product/service"
	"sharedcart/middleware"
	"sharedcart/pkg/metrics"
	"sharedcart/socket"

	"github.com/prometheus/client_golang/prometheus"
)

func Setup(cfg *config.Config, db *sql.DB, hub *socket.Hub, collector *metrics.Collector, gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()

	auth := middleware.AuthMiddleware(cfg.JWTSecret)
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	limited := func(h http.Handler) http.Handler { return auth(limiter.Middleware(h)) }

	// WebSocket: change feed + presence channel
	wsHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Context().Value(middleware.UserIDKey).(string)
		email, _ := r.Context().Value(middleware.EmailKey).(string)
		socket.ServeWs(hub, w, r, userID, email)
	})
	mux.Handle("/ws", auth(wsHandler))

	// Auth
	aRepo := authRepo.NewAuthRepository(db)
	aService := authService.NewAuthService(aRepo, cfg.JWTSecret, cfg.TokenTTL)
	aHandler := authHandler.NewAuthHandler(aService)

	mux.Handle("/api/auth/signup", http.HandlerFunc(aHandler.SignUp))
	mux.Handle("/api/auth/signin", http.HandlerFunc(aHandler.SignIn))
	mux.Handle("/api/auth/signout", auth(http.HandlerFunc(aHandler.SignOut)))
	mux.Handle("/api/auth/me", auth(http.HandlerFunc(aHandler.Me)))
	mux.Handle("/api/users", auth(http.HandlerFunc(aHandler.ListUsers)))

	// Shopping items
	iRepo := itemRepo.NewItemRepository(db)
	iService := itemService.NewItemService(iRepo, hub)
	iHandler := itemHandler.NewItemHandler(iService)

	mux.Handle("/api/items", auth(http.HandlerFunc(iHandler.GetItems)))
	mux.Handle("/api/items/get", auth(http.HandlerFunc(iHandler.GetItem)))
	mux.Handle("/api/items/create", limited(http.HandlerFunc(iHandler.CreateItem)))
	mux.Handle("/api/items/update", limited(http.HandlerFunc(iHandler.UpdateItem)))
	mux.Handle("/api/items/delete", limited(http.HandlerFunc(iHandler.DeleteItem)))

	// Product catalog
	pRepo := productRepo.NewProductRepository(db)
	pService := productService.NewProductService(pRepo, hub)
	pHandler := productHandler.NewProductHandler(pService)

	mux.Handle("/api/products", auth(http.HandlerFunc(pHandler.GetProducts)))
	mux.Handle("/api/products/create", limited(http.HandlerFunc(pHandler.CreateProduct)))
	mux.Handle("/api/products/update", limited(http.HandlerFunc(pHandler.UpdateProduct)))
	mux.Handle("/api/products/delete", limited(http.HandlerFunc(pHandler.DeleteProduct)))

	// Prometheus scrape endpoint
	mux.Handle("/metrics", metrics.Handler(gatherer))

	return middleware.CORSMiddleware(cfg.CORSAllowedOrigin,
		middleware.MetricsMiddleware(collector, mux))
}
