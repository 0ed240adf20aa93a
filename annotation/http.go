package annotation

import (
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HTTPLogger logs one line per request with its duration and status
func HTTPLogger(c *fiber.Ctx) error {
	initialTime := time.Now()
	method := c.Method()
	path := c.OriginalURL()
	err := c.Next()
	statusCode := c.Response().StatusCode()
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			statusCode = fe.Code
		} else {
			statusCode = fiber.StatusInternalServerError
		}
	}
	log.Printf("http: time:%dms %d %s %s", time.Since(initialTime)/time.Millisecond, statusCode, method, path)
	return err
}
