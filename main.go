package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"commerce-backend/config"
	"commerce-backend/consumers"
	"commerce-backend/controllers"
	"commerce-backend/database"
	"commerce-backend/gateway"
	"commerce-backend/middlewares"
	"commerce-backend/rabbitmq"
	"commerce-backend/repository"
	"commerce-backend/services"
	"commerce-backend/webhooks"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, nil)))

	cfg := config.LoadConfig()

	db, err := database.InitDB(cfg)
	if err != nil {
		slog.Error("database initialization failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := repository.NewMySQL(db)

	rmq, err := rabbitmq.NewRabbitMQ(cfg)
	if err != nil {
		slog.Error("rabbitmq initialization failed", "error", err)
		os.Exit(1)
	}
	defer rmq.Close()

	if err := rmq.SetupQueues(); err != nil {
		slog.Error("failed to setup rabbitmq queues", "error", err)
		os.Exit(1)
	}

	var gw gateway.PaymentGateway
	if cfg.GatewayMock {
		gw = gateway.NewMock()
	} else {
		gw = gateway.NewHTTPGateway(cfg.GatewayURL, cfg.GatewayAPIKey)
	}

	machine := services.NewStatusMachine()
	pricer := services.NewStandardPricer()
	seq := services.NewDailySequence(store)
	orderSvc := services.NewOrderService(store, pricer, seq, machine, rmq)
	paymentSvc := services.NewPaymentService(store, gw, machine, rmq, cfg.Currency)

	eventStore := webhooks.NewRedisStore(cfg.RedisAddr, 0)
	defer eventStore.Close()
	reconciler := services.NewWebhookReconciler(store, eventStore, machine)

	consumer := consumers.NewOrderConsumer(orderSvc)
	if err := consumer.Start(rmq.Channel, cfg); err != nil {
		slog.Error("failed to start order consumer", "error", err)
		os.Exit(1)
	}

	orderCtl := controllers.NewOrderController(orderSvc)
	paymentCtl := controllers.NewPaymentController(paymentSvc)
	webhookCtl := controllers.NewWebhookController(reconciler)

	r := gin.Default()
	r.Use(middlewares.PrometheusMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := r.Group("/api")
	authGroup.Use(middlewares.AuthMiddleware(cfg.JWTSecret))
	{
		authGroup.POST("/orders", orderCtl.Create)
		authGroup.GET("/orders", middlewares.StaffOnly(), orderCtl.List)
		authGroup.GET("/orders/my-orders", orderCtl.MyOrders)
		authGroup.GET("/orders/:id", orderCtl.GetOne)
		authGroup.PUT("/orders/:id/status", middlewares.StaffOnly(), orderCtl.UpdateStatus)
		authGroup.PUT("/orders/:id/cancel", orderCtl.Cancel)

		authGroup.POST("/payments/create-intent", paymentCtl.CreateIntent)
		authGroup.POST("/payments/:id/confirm", paymentCtl.Confirm)
		authGroup.POST("/payments/:id/cancel", paymentCtl.Cancel)
	}

	// Gateway callbacks are authenticated by signature, not by user token.
	r.POST("/payments/webhook", webhookCtl.Handle)
	r.POST("/dead-letter", orderCtl.HandleDeadLetter)

	port := ":8080"
	slog.Info("commerce backend starting", "port", port)
	if err := r.Run(port); err != nil {
		slog.Error("failed to start server", "error", err)
		os.Exit(1)
	}
}
