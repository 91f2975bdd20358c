package httpapi

import (
	"errors"
	"net/http"

	"github.com/signalsfoundry/groundtrack/internal/session"
	"github.com/signalsfoundry/groundtrack/internal/track"
	"github.com/signalsfoundry/groundtrack/kb"
	"github.com/signalsfoundry/groundtrack/model"
)

// ErrBadRequest marks a request body that could not be decoded.
var ErrBadRequest = errors.New("bad request")

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, ErrBadRequest),
		errors.Is(err, session.ErrEmptySelection),
		errors.Is(err, session.ErrInvalidSelection),
		errors.Is(err, kb.ErrInvalidSatellite):
		return http.StatusBadRequest

	case errors.Is(err, kb.ErrSatelliteNotFound):
		return http.StatusNotFound

	case errors.Is(err, session.ErrConcurrentSession),
		errors.Is(err, track.ErrAnimationRunning),
		errors.Is(err, kb.ErrSatelliteExists):
		return http.StatusConflict

	case errors.Is(err, track.ErrInvalidTrackData):
		return http.StatusUnprocessableEntity

	case errors.Is(err, model.ErrDataFetch):
		return http.StatusBadGateway

	case errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
