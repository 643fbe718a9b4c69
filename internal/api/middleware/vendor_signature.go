package middleware

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/curbside-labs/lotwatch/internal/domain"
	"github.com/curbside-labs/lotwatch/internal/notify"
)

// SignatureHeader carries the vendor's HMAC over the raw request body, using
// the same sha256= scheme we sign outbound notifications with.
const SignatureHeader = "X-Lotwatch-Signature"

// VendorSignature authenticates the vendor event feed. The body is verified
// before any parsing so a forged payload never reaches the gateway.
func VendorSignature(secret string, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		signature := c.Get(SignatureHeader)
		if signature == "" {
			logger.Warn("vendor delivery without signature",
				slog.String("ip", c.IP()),
				slog.String("path", c.Path()),
			)
			return domain.ErrInvalidSignature
		}

		if !notify.Verify(secret, c.Body(), signature) {
			logger.Warn("vendor delivery with bad signature",
				slog.String("ip", c.IP()),
				slog.String("path", c.Path()),
			)
			return domain.ErrInvalidSignature
		}

		return c.Next()
	}
}
