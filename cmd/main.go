package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/driveaway/driveaway/internal/auth"
	"github.com/driveaway/driveaway/internal/booking"
	"github.com/driveaway/driveaway/internal/db"
	"github.com/driveaway/driveaway/internal/handlers"
	"github.com/driveaway/driveaway/internal/middleware"
	"github.com/driveaway/driveaway/internal/models"
	"github.com/driveaway/driveaway/internal/payment"
	"github.com/driveaway/driveaway/internal/realtime"
	"github.com/driveaway/driveaway/internal/telemetry"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Info("No .env file found, using environment variables")
	}

	log.SetFormatter(&log.JSONFormatter{})
	if os.Getenv("LOG_LEVEL") == "debug" {
		log.SetLevel(log.DebugLevel)
	}

	client, err := db.ConnectMongo()
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to MongoDB")
	}
	defer client.Disconnect(context.Background())
	log.Info("Connected to MongoDB")

	database := client.Database(db.DatabaseName())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		cancel()
		log.WithError(err).Fatal("Failed to create indexes")
	}
	cancel()

	users := &db.MongoUserCollection{Collection: database.Collection(db.UsersCollection)}
	vehicles := &db.MongoVehicleCollection{Collection: database.Collection(db.VehiclesCollection)}
	bookings := &db.MongoBookingCollection{Collection: database.Collection(db.BookingsCollection)}
	chats := &db.MongoChatCollection{Collection: database.Collection(db.ChatsCollection)}
	messages := &db.MongoMessageCollection{Collection: database.Collection(db.MessagesCollection)}
	reviews := &db.MongoReviewCollection{Collection: database.Collection(db.ReviewsCollection)}
	products := &db.MongoProductCollection{Collection: database.Collection(db.ProductsCollection)}
	carts := &db.MongoCartCollection{Collection: database.Collection(db.CartsCollection)}
	orders := &db.MongoOrderCollection{Collection: database.Collection(db.OrdersCollection)}
	txn := db.NewTxnRunner(client)

	authService, err := auth.NewService()
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize auth service")
	}

	engine := booking.NewEngine(vehicles, bookings, chats, txn)

	var paymentService *payment.Service
	paymentCfg, err := payment.ConfigFromEnv()
	if err != nil {
		log.WithError(err).Warn("Payment gateway disabled")
	} else {
		paymentService = payment.NewService(bookings, payment.NewHTTPGateway(paymentCfg), paymentCfg)
	}

	hub := realtime.NewHub()

	if brokerURL := os.Getenv("MQTT_BROKER"); brokerURL != "" {
		subscriber, err := telemetry.StartSubscriber(brokerURL, engine)
		if err != nil {
			log.WithError(err).Warn("Telemetry subscriber disabled")
		} else {
			defer subscriber.Close()
		}
	}

	authHandler := handlers.NewAuthHandler(authService, users)
	vehicleHandler := handlers.NewVehicleHandler(vehicles, users)
	bookingHandler := handlers.NewBookingHandler(engine, paymentService, bookings, vehicles, users)
	chatHandler := handlers.NewChatHandler(chats, messages, vehicles, hub)
	reviewHandler := handlers.NewReviewHandler(reviews, bookings)
	productHandler := handlers.NewProductHandler(products)
	cartHandler := handlers.NewCartHandler(carts, products)
	orderHandler := handlers.NewOrderHandler(orders, products, carts, txn)
	adminHandler := handlers.NewAdminHandler(authService, users)

	authMW := middleware.NewAuthMiddleware(authService, users)
	rateLimiter := middleware.NewRateLimitMiddleware()

	admin := authMW.RequireRole(models.RoleAdmin)
	vendor := authMW.RequireRole(models.RoleVendor)
	customer := authMW.RequireRole(models.RoleCustomer)
	verified := authMW.RequireVerified

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/auth/profile", authHandler.GetProfile)
	mux.HandleFunc("PUT /api/auth/profile", authHandler.UpdateProfile)
	mux.HandleFunc("PUT /api/auth/password", authHandler.ChangePassword)

	// Vehicles; catalog reads are public, writes are vendor only
	mux.HandleFunc("GET /api/vehicles", vehicleHandler.ListVehicles)
	mux.Handle("GET /api/vehicles/my", vendor(http.HandlerFunc(vehicleHandler.ListMyVehicles)))
	mux.HandleFunc("GET /api/vehicles/{id}", vehicleHandler.GetVehicle)
	mux.HandleFunc("GET /api/vehicles/{id}/reviews", reviewHandler.ListVehicleReviews)
	mux.Handle("POST /api/vehicles", vendor(verified(http.HandlerFunc(vehicleHandler.CreateVehicle))))
	mux.Handle("PUT /api/vehicles/{id}", vendor(http.HandlerFunc(vehicleHandler.UpdateVehicle)))
	mux.Handle("DELETE /api/vehicles/{id}", vendor(http.HandlerFunc(vehicleHandler.DeleteVehicle)))

	// Bookings
	mux.Handle("POST /api/bookings", customer(verified(http.HandlerFunc(bookingHandler.CreateBooking))))
	mux.HandleFunc("GET /api/bookings", bookingHandler.ListBookings)
	mux.HandleFunc("GET /api/bookings/{id}", bookingHandler.GetBooking)
	mux.HandleFunc("PUT /api/bookings/{id}/status", bookingHandler.UpdateStatus)
	mux.HandleFunc("PUT /api/bookings/{id}/location", bookingHandler.UpdateLocation)
	if paymentService != nil {
		mux.Handle("POST /api/bookings/{id}/payment/order", customer(http.HandlerFunc(bookingHandler.CreatePaymentOrder)))
		mux.Handle("POST /api/bookings/{id}/payment/verify", customer(http.HandlerFunc(bookingHandler.VerifyPayment)))
	}

	// Chats and negotiation
	mux.Handle("POST /api/chats", customer(http.HandlerFunc(chatHandler.OpenChat)))
	mux.HandleFunc("GET /api/chats", chatHandler.ListMyChats)
	mux.HandleFunc("GET /api/chats/{id}/messages", chatHandler.ListMessages)
	mux.HandleFunc("POST /api/chats/{id}/messages", chatHandler.SendMessage)
	mux.Handle("POST /api/chats/{id}/negotiate", vendor(http.HandlerFunc(chatHandler.Negotiate)))
	mux.HandleFunc("GET /api/chats/{id}/ws", chatHandler.ServeWS)

	// Reviews
	mux.Handle("POST /api/reviews", customer(http.HandlerFunc(reviewHandler.CreateReview)))

	// Accessories store
	mux.HandleFunc("GET /api/products", productHandler.ListProducts)
	mux.HandleFunc("GET /api/products/{id}", productHandler.GetProduct)
	mux.Handle("POST /api/products", admin(http.HandlerFunc(productHandler.CreateProduct)))
	mux.Handle("PUT /api/products/{id}", admin(http.HandlerFunc(productHandler.UpdateProduct)))
	mux.Handle("DELETE /api/products/{id}", admin(http.HandlerFunc(productHandler.DeleteProduct)))

	mux.HandleFunc("GET /api/cart", cartHandler.GetCart)
	mux.HandleFunc("POST /api/cart/items", cartHandler.AddItem)
	mux.HandleFunc("DELETE /api/cart/items/{productId}", cartHandler.RemoveItem)

	mux.HandleFunc("POST /api/orders", orderHandler.CreateOrder)
	mux.HandleFunc("GET /api/orders", orderHandler.ListOrders)
	mux.HandleFunc("GET /api/orders/{id}", orderHandler.GetOrder)
	mux.Handle("PUT /api/orders/{id}/deliver", admin(http.HandlerFunc(orderHandler.MarkDelivered)))

	// Admin account review
	mux.Handle("GET /api/admin/users", admin(http.HandlerFunc(adminHandler.ListUsers)))
	mux.Handle("GET /api/admin/users/pending", admin(http.HandlerFunc(adminHandler.ListPendingUsers)))
	mux.Handle("POST /api/admin/users", admin(http.HandlerFunc(adminHandler.CreateUser)))
	mux.Handle("PUT /api/admin/users/{id}/review", admin(http.HandlerFunc(adminHandler.ReviewUser)))
	mux.Handle("DELETE /api/admin/users/{id}", admin(http.HandlerFunc(adminHandler.DeleteUser)))

	handler := rateLimiter.RateLimit(100, 60)(authMW.Authenticate(mux))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.WithField("port", port).Info("HTTP server listening")
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.WithError(err).Fatal("HTTP server stopped")
	}
}
