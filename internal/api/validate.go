// Feedrank - Content Ranking and Recommendation Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/feedrank

package api

import (
	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance; validator.Validate caches
// struct metadata and is safe for concurrent use.
var validate = validator.New(validator.WithRequiredStructEnabled())

// validateRequest validates a request struct with go-playground/validator.
func validateRequest(v any) error {
	return validate.Struct(v)
}
