// Package router builds the echo server: global middleware, the error
// handler and every route with its guards.
package router

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/shop-management/internal/auth"
	"github.com/iliyamo/shop-management/internal/handler"
	"github.com/iliyamo/shop-management/internal/middleware"
	"github.com/iliyamo/shop-management/internal/model"
)

// Handlers are the route targets.
type Handlers struct {
	Auth          *handler.AuthHandler
	Shops         *handler.ShopHandler
	Catalog       []*handler.CatalogHandler
	Products      *handler.ProductHandler
	Subscriptions *handler.SubscriptionHandler
	Health        *handler.HealthHandler
}

// Guards are the per-route middleware dependencies.
type Guards struct {
	Identifier middleware.Identifier
	Gate       middleware.Verifier
	Cache      *middleware.Cache
}

// Options configures the global middleware stack.
type Options struct {
	Log         *logrus.Logger
	CORSOrigins []string
	RateLimit   echo.MiddlewareFunc // nil disables limiting
	BodyLimit   string
}

// New returns an echo instance with the global middleware and all routes.
func New(opts Options, h Handlers, g Guards) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(opts.Log)

	bodyLimit := opts.BodyLimit
	if bodyLimit == "" {
		bodyLimit = "1M"
	}
	e.Use(
		echomw.Recover(),
		echomw.RequestID(),
		middleware.Tracing(),
		middleware.RequestLogger(opts.Log),
		echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     opts.CORSOrigins,
			AllowCredentials: true,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		}),
		echomw.BodyLimit(bodyLimit),
	)
	if opts.RateLimit != nil {
		e.Use(opts.RateLimit)
	}

	Register(e, h, g)
	return e
}

// Register mounts every route on e.
func Register(e *echo.Echo, h Handlers, g Guards) {
	loggedIn := middleware.Authenticate(g.Identifier)
	loggedOut := middleware.RequireLoggedOut(g.Identifier)
	subscribed := middleware.RequireSubscription(g.Gate)
	adminOnly := middleware.Require(auth.IsAdmin)
	adminOrAuthority := middleware.Require(auth.AnyOf(auth.IsAdmin, auth.IsAuthority))

	e.GET("/", h.Health.Root)
	e.GET("/healthz", h.Health.Ready)

	v1 := e.Group("/v1")

	users := v1.Group("/users")
	users.POST("/signup", h.Auth.Signup, loggedOut)
	users.GET("/activate/:token", h.Auth.Activate)
	users.POST("/login", h.Auth.Login, loggedOut)
	users.POST("/logout", h.Auth.Logout, loggedIn)
	users.GET("/refresh-token", h.Auth.Refresh)
	users.GET("/me", h.Auth.Me, loggedIn)
	users.GET("", h.Auth.ListUsers, loggedIn, adminOrAuthority)
	users.GET("/:id", h.Auth.GetUser, loggedIn)
	users.DELETE("/:id", h.Auth.DeleteUser, loggedIn, adminOnly)

	shops := v1.Group("/shops", loggedIn)
	shops.GET("", h.Shops.List, adminOnly)
	shops.PATCH("/free-trial", h.Shops.FreeTrial, middleware.Require(auth.IsShopOwner))
	shops.GET("/:param", h.Shops.Get)

	// catalog writes and listings are for admins and shop authorities with
	// an active subscription; reads of a single entry only need the
	// subscription
	for _, ch := range h.Catalog {
		grp := v1.Group("/"+catalogPath(ch.Kind()), loggedIn, subscribed)
		grp.POST("", ch.Create, adminOrAuthority)
		grp.GET("", ch.List, adminOrAuthority)
		grp.GET("/:id", ch.Get)
		grp.DELETE("", ch.Delete, adminOrAuthority)
		grp.PATCH("/:id", ch.Update, adminOrAuthority)
	}

	products := v1.Group("/products", loggedIn, subscribed)
	products.POST("", h.Products.Create, adminOrAuthority)
	products.GET("", h.Products.List)
	products.GET("/:id", h.Products.Get)
	products.DELETE("", h.Products.Delete, adminOrAuthority)
	products.PATCH("/:id", h.Products.Update, adminOrAuthority)

	subs := v1.Group("/subscriptions")
	subs.POST("", h.Subscriptions.CreatePlan, loggedIn, adminOnly)
	subs.GET("", h.Subscriptions.ListPlans, g.Cache.Middleware())
	subs.POST("/purchase", h.Subscriptions.Purchase, loggedIn)
	subs.GET("/payments", h.Subscriptions.Payments, loggedIn)
	subs.GET("/:id", h.Subscriptions.GetPlan)
}

// catalogPath turns "Product types" into "product-types".
func catalogPath(k model.Kind) string {
	return strings.ReplaceAll(strings.ToLower(k.Plural), " ", "-")
}
