package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"surveys/internal/excel"
	"surveys/internal/logger"
	. "surveys/internal/models"

	"github.com/gofiber/fiber/v2"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, ErrValidation):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError maps domain errors to status codes. Only unexpected errors are
// logged at error level; the controllers already logged the rest.
func respondError(c *fiber.Ctx, log logger.Logger, message string, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		log.Er(message, err)
	} else {
		log.Debug(message, "status", status, "error", err)
	}

	return c.Status(status).JSON(fiber.Map{"message": message, "error": err.Error()})
}

func attachment(c *fiber.Ctx, filename string) {
	c.Set(fiber.HeaderContentType, excel.MIMEType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
}

func sendWorkbook(c *fiber.Ctx, filename string, buf *bytes.Buffer) error {
	attachment(c, filename)
	return c.Send(buf.Bytes())
}

// removeOnClose deletes the temp export once the response body has been
// streamed; fasthttp closes body streams that implement io.Closer.
type removeOnClose struct {
	*os.File
	log logger.Logger
}

func (f removeOnClose) Close() error {
	err := f.File.Close()
	if removeErr := os.Remove(f.Name()); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
		f.log.Warn("failed to remove export file", "path", f.Name(), "error", removeErr)
	}
	return err
}

func sendTempWorkbook(c *fiber.Ctx, log logger.Logger, path, filename string) error {
	file, err := os.Open(path)
	if err != nil {
		_ = os.Remove(path)
		return respondError(c, log, "failed to open export file", err)
	}

	info, err := file.Stat()
	if err != nil {
		_ = removeOnClose{File: file, log: log}.Close()
		return respondError(c, log, "failed to stat export file", err)
	}

	attachment(c, filename)
	return c.SendStream(removeOnClose{File: file, log: log}, int(info.Size()))
}
