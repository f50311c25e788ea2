// Package service implements the application's business logic on top of the
// store and auth layers. Handlers stay thin and call into these services.
package service

import "github.com/ladleapp/ladle-server/internal/validation"

// validate is the shared request validator for all services.
var validate = validation.New()
