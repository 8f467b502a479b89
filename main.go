package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"showroom-chat/internal/auth"
	"showroom-chat/internal/config"
	"showroom-chat/internal/db"
	"showroom-chat/internal/handlers"
	"showroom-chat/internal/middleware"
	"showroom-chat/internal/observability"
	"showroom-chat/internal/rabbitmq"
	"showroom-chat/internal/repositories"
	"showroom-chat/internal/telemetry"
	"showroom-chat/internal/ws"
)

const serviceName = "showroom-chat"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownTracing, err := telemetry.InitTracing(context.Background(), serviceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to init tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown error: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))

	if obsPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange); err != nil {
		log.Printf("ws event publisher disabled: %v", err)
	} else {
		observability.SetPublisher(obsPublisher)
		defer obsPublisher.Close()
	}

	audit := telemetry.NewAuditEmitter(publisher, cfg.AuditRoutingKey, serviceName, cfg.Environment)
	authClient := auth.NewClient(cfg.AuthURL)

	conversationRepo := repositories.NewConversationRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	typingRepo := repositories.NewTypingRepo(database)

	hub := ws.NewHub()

	chatHandler := handlers.NewChatHandler(conversationRepo, messageRepo, typingRepo, hub, publisher, audit)
	conversationWS := ws.NewConversationWebSocketHandler(hub, conversationRepo, authClient)

	router := gin.Default()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(authClient)

	router.GET("/conversations", authMiddleware, chatHandler.ListConversations)
	router.POST("/conversations/start", authMiddleware, chatHandler.StartConversation)
	router.GET("/conversations/:conversation_id/messages", authMiddleware, chatHandler.GetMessages)
	router.POST("/conversations/:conversation_id/messages", authMiddleware, chatHandler.PostMessage)
	router.POST("/conversations/:conversation_id/typing", authMiddleware, chatHandler.PostTyping)
	router.POST("/conversations/:conversation_id/read", authMiddleware, chatHandler.MarkRead)

	router.GET("/ws/conversations/:conversation_id", conversationWS.HandleMessages)
	router.GET("/ws/conversations/:conversation_id/typing", conversationWS.HandleTyping)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, audit, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
