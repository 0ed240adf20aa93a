package api

import (
	_ "embed"

	"github.com/gofiber/fiber/v2"
	"github.com/russross/blackfriday/v2"
)

//go:embed help.md
var helpMarkdown []byte

var helpPage = renderHelp(helpMarkdown)

func renderHelp(md []byte) []byte {
	body := blackfriday.Run(md)
	page := make([]byte, 0, len(body)+128)
	page = append(page, "<!doctype html><html><head><meta charset=\"utf-8\"><title>rotulador studio</title></head><body>"...)
	page = append(page, body...)
	page = append(page, "</body></html>"...)
	return page
}

func (s *Server) help(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return c.Send(helpPage)
}
