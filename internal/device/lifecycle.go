package device

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// WithDevice opens a handle on drv, runs fn with it, and closes the
// handle on every exit path. Close failures are logged and swallowed so
// they never mask fn's outcome. Open failures surface as an unavailable
// error.
func WithDevice(ctx context.Context, drv Driver, id int, log zerolog.Logger, fn func(Handle) error) error {
	h, err := drv.Open(ctx, id)
	if err != nil {
		if IsUnavailable(err) {
			return err
		}
		return ErrUnavailable(fmt.Sprintf("open device %d: %v", id, err))
	}
	defer func() {
		if cerr := h.Close(); cerr != nil {
			log.Error().Err(cerr).Int("device_id", id).Msg("device close failed")
		}
	}()
	return fn(h)
}
