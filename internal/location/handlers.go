package location

import (
	"github.com/Fitibaldi/Hunt-Hunt-Planur/internal/shared/apperr"

	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(r fiber.Router, svc *Service, participantAuth fiber.Handler) {
	r.Post("/update_location", participantAuth, func(c *fiber.Ctx) error {
		var req UpdateRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
		}
		participantID := c.Locals("participant_id").(string)
		name, _ := c.Locals("participant_name").(string)

		fix, err := svc.Update(c.Context(), participantID, name, req.Latitude, req.Longitude, req.Accuracy)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"position": fix})
	})

	r.Post("/stop_sharing", participantAuth, func(c *fiber.Ctx) error {
		if err := svc.StopSharing(c.Context(), c.Locals("participant_id").(string)); err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(fiber.Map{"message": "sharing stopped"})
	})

	r.Get("/get_user_positions", participantAuth, func(c *fiber.Ctx) error {
		targetID := c.Query("participant_id")
		if targetID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "participant_id query param required")
		}
		callerCode := c.Locals("participant_session").(string)

		track, err := svc.Positions(c.Context(), callerCode, targetID)
		if err != nil {
			return apperr.ToFiber(err)
		}
		return c.JSON(track)
	})
}
