package main

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/carpool-marketplace/internal/config"
	"github.com/iliyamo/carpool-marketplace/internal/database"
	"github.com/iliyamo/carpool-marketplace/internal/handler"
	"github.com/iliyamo/carpool-marketplace/internal/logger"
	"github.com/iliyamo/carpool-marketplace/internal/queue"
	"github.com/iliyamo/carpool-marketplace/internal/repository"
	"github.com/iliyamo/carpool-marketplace/internal/router"
	"github.com/iliyamo/carpool-marketplace/internal/service"
)

func main() {
	logger.Init()
	cfg := config.Load()

	db, err := database.Open(cfg.DBDSN)
	if err != nil {
		logrus.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient()

	tripRepo := repository.NewTripRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	waypointRepo := repository.NewWaypointRepo(db)
	userRepo := repository.NewUserRepo(db)

	events := queue.NewPublisher()
	go func() {
		if err := queue.StartNotificationConsumer(); err != nil {
			logrus.WithError(err).Warn("notification consumer stopped")
		}
	}()

	tripSvc := service.NewTripService(tripRepo, bookingRepo, waypointRepo, events)
	bookingSvc := service.NewBookingService(tripRepo, bookingRepo, userRepo, events, cfg.BcryptCost)
	carpoolSvc := service.NewCarpoolService(tripRepo)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	router.Register(e, router.Handlers{
		Trips:    handler.NewTripHandler(tripSvc),
		Bookings: handler.NewBookingHandler(bookingSvc),
		Search:   handler.NewSearchHandler(carpoolSvc),
		Payments: handler.NewPaymentHandler(bookingSvc),
		Health:   handler.NewHealthHandler(db, rdb),
	}, cfg.JWTSecret, rdb)

	addr := ":" + cfg.Port
	logrus.Infof("listening on %s", addr)
	if err := e.Start(addr); err != nil {
		logrus.WithError(err).Fatal("server stopped")
	}
}
