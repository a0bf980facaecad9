package upstream

import (
	"errors"
	"fmt"

	"github.com/martdesk/martdesk/internal/platform/httpx"
)

// Shape maps an upstream failure onto the gateway's sentinel errors so
// handlers can respond uniformly via httpx.RespondError. The upstream
// message is preserved for the notification.
func Shape(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		// Transport failure that survived the retry.
		return fmt.Errorf("%w: %s", httpx.ErrUpstream, err.Error())
	}
	switch {
	case apiErr.Status == 401:
		return fmt.Errorf("%w: %s", httpx.ErrUnauthorized, apiErr.Error())
	case apiErr.Status == 403:
		return fmt.Errorf("%w: %s", httpx.ErrForbidden, apiErr.Error())
	case apiErr.Status == 404:
		return fmt.Errorf("%w: %s", httpx.ErrNotFound, apiErr.Error())
	case apiErr.Status == 409:
		return fmt.Errorf("%w: %s", httpx.ErrDuplicate, apiErr.Error())
	case apiErr.Status >= 400 && apiErr.Status < 500:
		return fmt.Errorf("%w: %s", httpx.ErrValidation, apiErr.Error())
	default:
		return fmt.Errorf("%w: %s", httpx.ErrUpstream, apiErr.Error())
	}
}
