package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/shopprrapp/shopprr/internal/config"
	"github.com/shopprrapp/shopprr/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	router := s.buildRouter()
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.SecurityHeaders)
	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")

	// Webhooks authenticate by payload signature, never by bearer token.
	r.HandleFunc("/webhooks/stripe", h.StripeWebhook).Methods("POST").Name("webhooks.stripe")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.Authenticate)

	userRouter := api.NewRoute().Subrouter()
	userRouter.Use(h.RequireUser)
	userRouter.HandleFunc("/cart", h.GetCart).Methods("GET").Name("cart.get")
	userRouter.HandleFunc("/cart/items", h.AddCartItem).Methods("POST").Name("cart.add")
	userRouter.HandleFunc("/cart/items", h.UpdateCartItem).Methods("PUT").Name("cart.update")
	userRouter.HandleFunc("/cart", h.ClearCart).Methods("DELETE").Name("cart.clear")
	userRouter.HandleFunc("/order/cod", h.PlaceCODOrder).Methods("POST").Name("order.cod")
	userRouter.HandleFunc("/order/stripe", h.PlaceCardOrder).Methods("POST").Name("order.stripe")
	userRouter.HandleFunc("/orders", h.ListMyOrders).Methods("GET").Name("orders.mine")

	staffRouter := api.PathPrefix("/admin").Subrouter()
	staffRouter.Use(h.RequireStaff)
	staffRouter.HandleFunc("/orders", h.ListAllOrders).Methods("GET").Name("admin.orders")
	staffRouter.HandleFunc("/orders/{orderID}/status", h.UpdateOrderStatus).Methods("POST").Name("admin.orders.status")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	return r
}
