package log

import (
	"io"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

var logger = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime: "ts",
			logrus.FieldKeyMsg:  "action",
		},
	})
	return l
}

// SetOutput redirects every subsequent entry to w.
func SetOutput(w io.Writer) { logger.SetOutput(w) }

// SetLevel accepts logrus level names (debug, info, warn, error).
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(lvl)
	return nil
}

// Writer exposes the current sink so other loggers can share it.
func Writer() io.Writer { return logger.Out }

func write(level logrus.Level, c *fiber.Ctx, action string, err error, audit bool, fields map[string]any) {
	f := logrus.Fields{}
	if len(fields) > 0 {
		f["fields"] = fields
	}
	if audit {
		f["audit"] = true
	}
	if c != nil {
		f["ip"] = c.IP()
		f["method"] = c.Method()
		f["path"] = c.Path()
		f["status"] = c.Response().StatusCode()
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			f["req_id"] = rid
		}
	}
	if err != nil {
		f["err"] = err.Error()
	}
	logger.WithFields(f).Log(level, action)
}

func Debug(c *fiber.Ctx, action string, fields map[string]any) {
	write(logrus.DebugLevel, c, action, nil, false, fields)
}
func Info(c *fiber.Ctx, action string, fields map[string]any) {
	write(logrus.InfoLevel, c, action, nil, false, fields)
}
func Audit(c *fiber.Ctx, action string, fields map[string]any) {
	write(logrus.InfoLevel, c, action, nil, true, fields)
}
func Security(c *fiber.Ctx, action string, fields map[string]any) {
	write(logrus.WarnLevel, c, action, nil, false, fields)
}
func Error(c *fiber.Ctx, action string, err error, fields map[string]any) {
	write(logrus.ErrorLevel, c, action, err, false, fields)
}
