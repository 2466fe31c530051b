package server

import (
	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/alert"
	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/auth"
	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/config"
	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/location"
	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/participant"
	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/session"
	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/shared/geo"
	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	App    *fiber.App
	Cfg    config.Config
	DB     *pgxpool.Pool
	Redis  *redis.Client
	Stream *stream.Hub
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	s := &Server{
		App:    app,
		Cfg:    cfg,
		DB:     db,
		Redis:  redisClient,
		Stream: stream.NewHub(redisClient),
	}

	registerRoutes(s)
	return s
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	userAuth := auth.JWTMiddleware(s.Cfg.JWTSecret)
	optionalAuth := auth.OptionalJWTMiddleware(s.Cfg.JWTSecret)
	participantAuth := auth.ParticipantMiddleware(s.Cfg.JWTSecret)

	tokens := auth.NewService(s.Cfg.JWTSecret, s.DB)
	geocoder := geo.NewNominatimClient(s.Cfg.GeocoderURL)

	api := s.App.Group("/api")
	auth.RegisterRoutes(api, tokens, optionalAuth, userAuth)
	session.RegisterRoutes(api, session.NewService(s.DB, geocoder), tokens, userAuth)
	participant.RegisterRoutes(api, participant.NewService(s.DB, s.Cfg.OnlineStalenessSec), tokens,
		optionalAuth, userAuth, participantAuth)
	location.RegisterRoutes(api, location.NewService(s.DB, s.Stream), participantAuth)
	alert.RegisterRoutes(api, alert.NewService(s.DB, s.Stream), participantAuth)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}
