package httpapi

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-dashboard/internal/moment"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

var validate = validator.New()

// Dashboard is the part of weather.Service the routes need.
type Dashboard interface {
	View() weather.View
	Refresh() *weather.Ticket
	History() []weather.RefreshRecord
}

// Moments resolves day/night for arbitrary locations and instants.
type Moments interface {
	Resolve(locationName string, now time.Time) (moment.Moment, error)
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, dashboard Dashboard, moments Moments) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather", func(c *fiber.Ctx) error {
		return c.JSON(dashboard.View())
	})

	v1.Post("/weather/refresh", func(c *fiber.Ctx) error {
		ticket := dashboard.Refresh()
		return c.Status(fiber.StatusAccepted).JSON(ticket)
	})

	v1.Get("/weather/refreshes", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"refreshes": dashboard.History(),
		})
	})

	v1.Get("/weather/moment", func(c *fiber.Ctx) error {
		var req momentQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		m, err := moments.Resolve(req.Location, req.At)
		if err != nil {
			if errors.Is(err, moment.ErrUnknownLocation) || errors.Is(err, moment.ErrNoSunTimes) {
				return fiber.NewError(fiber.StatusNotFound, err.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to resolve moment")
		}

		return c.JSON(fiber.Map{
			"location": req.Location,
			"at":       req.At,
			"moment":   m,
		})
	})
}

// momentQuery holds query parameters for the moment endpoint.
type momentQuery struct {
	Location string    `validate:"required"`
	At       time.Time `validate:"required"`
}

func (q *momentQuery) bind(c *fiber.Ctx) error {
	q.Location = c.Query("location")

	if s := c.Query("at"); s != "" {
		at, err := parseTime(s)
		if err != nil {
			return err
		}
		q.At = at
	} else {
		q.At = time.Now()
	}

	return validate.Struct(q)
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
