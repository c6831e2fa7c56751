// File: backend/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package backend

import "github.com/momentics/hioload-devmem/driver"

// translate is the backends' shorthand for the driver error mapping.
func translate(err error) error {
	return driver.ToAPIError(err)
}
