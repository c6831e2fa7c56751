// File: driver/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package driver

import (
	"errors"

	"github.com/momentics/hioload-devmem/api"
)

// ToAPIError maps a driver error onto the library taxonomy. Driver
// codes never cross the api boundary; every consumer of a Driver runs
// its failures through this mapping.
func ToAPIError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNoMemory):
		return api.NewError(api.ErrCodeOutOfMemory, "device allocation failed").
			WithContext("driver", err.Error())
	case errors.Is(err, ErrInvalidValue):
		return api.NewError(api.ErrCodeInvalidArgument, "driver rejected argument").
			WithContext("driver", err.Error())
	case errors.Is(err, ErrShutdown):
		return api.NewError(api.ErrCodeClosed, "driver is shut down").
			WithContext("driver", err.Error())
	default:
		return api.NewError(api.ErrCodeBackendFailure, "driver failure").
			WithContext("driver", err.Error())
	}
}
