package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/smilee3998/partyroom-server/internal/errcodes"
)

// rejected maps any error to the error_code_list contract. Business-rule
// rejections surface their own codes; anything unrecognized is logged and
// reported as UNKNOWN_ERROR so it is never silently dropped. Rejections are
// always HTTP 400.
func rejected(c *fiber.Ctx, err error) error {
	codes := errcodes.Codes(err)
	if len(codes) == 1 && codes[0] == errcodes.Unknown {
		log.Error().Err(err).Str("path", c.Path()).Msg("unrecognized error")
	}
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error_code_list": codes,
	})
}

// badBody rejects an unparseable request body.
func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error_code_list": []string{errcodes.RequestBodyInvalid},
	})
}

// success is the fixed 200 envelope for state-changing operations that
// return no resource, optionally with extra purpose-specific fields.
func success(c *fiber.Ctx, extra fiber.Map) error {
	body := fiber.Map{"status": "Success"}
	for k, v := range extra {
		body[k] = v
	}
	return c.JSON(body)
}
