package participant

import (
	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/auth"
	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, tokens *auth.Service, optionalAuth, userAuth, participantAuth fiber.Handler) {
	r.Post("/join_session", optionalAuth, func(c *fiber.Ctx) error {
		var req JoinRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		userID, _ := c.Locals("user_id").(string)

		p, err := svc.Join(c.Context(), req.Code, userID, req.GuestName)
		if err != nil {
			return apperr.ToFiber(err)
		}

		token, err := tokens.IssueParticipantToken(p.ID, p.SessionCode, p.UserID, p.DisplayName)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}

		return c.JSON(fiber.Map{
			"participant":       p,
			"participant_id":    p.ID,
			"participant_token": token,
		})
	})

	r.Post("/leave_session", participantAuth, func(c *fiber.Ctx) error {
		if err := svc.Leave(c.Context(), c.Locals("participant_id").(string)); err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"message": "left session"})
	})

	r.Post("/remove_participant", userAuth, func(c *fiber.Ctx) error {
		var req RemoveRequest
		if err := c.BodyParser(&req); err != nil || req.Code == "" || req.ParticipantID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "session_code and participant_id required")
		}
		if err := svc.Remove(c.Context(), req.Code, req.ParticipantID, c.Locals("user_id").(string)); err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"message": "participant removed"})
	})

	r.Get("/get_participants", func(c *fiber.Ctx) error {
		code := c.Query("code")
		if code == "" {
			return fiber.NewError(fiber.StatusBadRequest, "code query param required")
		}
		members, err := svc.List(c.Context(), code)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"participants": members})
	})

	r.Get("/get_participant_info", participantAuth, func(c *fiber.Ctx) error {
		p, err := svc.Info(c.Context(), c.Locals("participant_id").(string))
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"participant": p})
	})
}
