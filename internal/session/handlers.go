package session

import (
	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/auth"
	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, tokens *auth.Service, userAuth fiber.Handler) {
	r.Post("/create_session", userAuth, func(c *fiber.Ctx) error {
		var req CreateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		userID := c.Locals("user_id").(string)

		sess, participantID, err := svc.Create(c.Context(), userID, req.Name, req.Latitude, req.Longitude)
		if err != nil {
			return apperr.ToFiber(err)
		}

		token, err := tokens.IssueParticipantToken(participantID, sess.Code, userID, sess.CreatorName)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"session":           sess,
			"participant_id":    participantID,
			"participant_token": token,
		})
	})

	r.Post("/end_session", userAuth, func(c *fiber.Ctx) error {
		var req EndRequest
		if err := c.BodyParser(&req); err != nil || req.Code == "" {
			return fiber.NewError(fiber.StatusBadRequest, "session_code required")
		}
		if err := svc.End(c.Context(), req.Code, c.Locals("user_id").(string)); err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"message": "session ended"})
	})

	r.Post("/update_session_name", userAuth, func(c *fiber.Ctx) error {
		var req RenameRequest
		if err := c.BodyParser(&req); err != nil || req.Code == "" {
			return fiber.NewError(fiber.StatusBadRequest, "session_code required")
		}
		sess, err := svc.Rename(c.Context(), req.Code, req.Name, c.Locals("user_id").(string))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"session": sess})
	})

	r.Get("/get_sessions", userAuth, func(c *fiber.Ctx) error {
		sessions, err := svc.CreatedSessions(c.Context(), c.Locals("user_id").(string))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"sessions": sessions})
	})

	r.Get("/get_joined_sessions", userAuth, func(c *fiber.Ctx) error {
		sessions, err := svc.JoinedSessions(c.Context(), c.Locals("user_id").(string))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"sessions": sessions})
	})

	r.Get("/get_all_sessions_history", userAuth, func(c *fiber.Ctx) error {
		sessions, err := svc.History(c.Context(), c.Locals("user_id").(string))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"sessions": sessions})
	})

	r.Get("/get_session_info", func(c *fiber.Ctx) error {
		code := c.Query("code")
		if code == "" {
			return fiber.NewError(fiber.StatusBadRequest, "code query param required")
		}
		sess, err := svc.Get(c.Context(), code)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"session": sess})
	})
}
