package server

import (
	"net/http"

	"storefront/internal/config"
	mw "storefront/internal/middleware"
	"storefront/internal/repository"

	"github.com/labstack/echo/v4"
)

func registerRoutes(e *echo.Echo, cfg config.Config, h Handlers, userRepo repository.UserRepository) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	h.Product.RegisterRoutes(e)
	h.Auth.RegisterRoutes(e, cfg, userRepo)
	h.Cart.RegisterRoutes(e, cfg, userRepo)
	h.Wishlist.RegisterRoutes(e, cfg, userRepo)
	h.Order.RegisterRoutes(e, cfg, userRepo)
	h.AdminProduct.RegisterRoutes(e, cfg, userRepo)
	h.AdminOrder.RegisterRoutes(e, cfg, userRepo)

	//住所は /me 配下（本人のみ）
	me := e.Group("/me", mw.AuthJWT(cfg), mw.TokenVersionGuard(userRepo))
	h.Address.RegisterRoutes(me)
}
