package marketplace

import (
	"errors"
	"log/slog"

	"github.com/example/crowdship/internal/storage"
)

// failureMessage translates a store fault into the message surfaced to the
// caller. Transient faults advise retrying; auth and configuration faults
// point at their likely cause; everything else keeps the underlying detail.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, storage.ErrUnavailable):
		return "Database temporarily unavailable. Please try again in a few moments."
	case errors.Is(err, storage.ErrPermissionDenied):
		return "Access denied. Please check your authentication."
	case errors.Is(err, storage.ErrNotFound):
		return "Database not found. Please check your configuration."
	default:
		return "Database error: " + err.Error()
	}
}

func (s *Service) logFault(op string, err error) {
	if s.Logger != nil {
		s.Logger.Error("store fault", slog.String("op", op), slog.Any("error", err))
	}
}
