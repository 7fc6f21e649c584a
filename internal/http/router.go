package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/clients"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/middleware"
	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/session"
)

type Deps struct {
	Logger logrus.FieldLogger
	Cfg    config.Config
	Parser *session.Parser

	Cart     CartService
	Checkout CheckoutService
	Orders   OrderService
	Payments PaymentService
	Ledger   PaymentDirectory
	Reviews  ReviewService

	HealthProbes []clients.HealthProbe
}

func NewRouter(d Deps) http.Handler {
	h := &Handler{
		cart:       d.Cart,
		checkout:   d.Checkout,
		orders:     d.Orders,
		payments:   d.Payments,
		ledger:     d.Ledger,
		reviews:    d.Reviews,
		probes:     d.HealthProbes,
		signInPath: d.Cfg.SignInPath,
		logger:     d.Logger,
	}

	r := chi.NewRouter()
	// outer -> inner
	r.Use(middleware.Logging(d.Logger))
	r.Use(middleware.CorrelationID)
	r.Use(chimw.RealIP)
	r.Use(middleware.CORS(d.Cfg.CORSAllowOrigins))
	r.Use(middleware.Recover(d.Logger))
	r.Use(middleware.Session(d.Parser, d.Logger))

	r.Get("/health", h.Health)
	r.Get("/health/upstreams", h.Upstreams)

	r.Route("/api", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Post("/items", h.AddCartItem)
			r.Put("/items/increment/{menuId}", h.IncrementCartItem)
			r.Put("/items/decrement/{menuId}", h.DecrementCartItem)
			r.Delete("/items/{cartItemId}", h.RemoveCartItem)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/checkout", h.Checkout)
			r.Get("/me", h.MyOrders)
			r.Get("/{orderId}", h.GetOrder)
			r.Get("/{orderId}/payment-attempts", h.PaymentAttempts)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Post("/initiate", h.InitiatePayment)
			r.Post("/pay", h.Pay)
			r.Post("/{attemptId}/confirm", h.ConfirmPayment)
		})

		r.Post("/reviews", h.SubmitReview)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/orders", h.AdminListOrders)
			r.Put("/orders/{orderId}/status", h.AdminUpdateOrderStatus)
			r.Get("/payments", h.AdminListPayments)
			r.Get("/payments/unreconciled", h.AdminUnreconciled)
			r.Get("/payments/{paymentId}", h.AdminGetPayment)
		})
	})

	return r
}
