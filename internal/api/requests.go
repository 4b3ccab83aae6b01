// CampusMatch - Student/Institution Compatibility Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/campusmatch

package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/campusmatch/internal/models"
	"github.com/tomtom215/campusmatch/internal/recommend"
	"github.com/tomtom215/campusmatch/internal/validation"
)

// maxBodyBytes caps request bodies. A full profile is a few kilobytes.
const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("request body is empty")

// RankRequest is the body of POST /api/v1/rank.
type RankRequest struct {
	Profile models.Profile `json:"profile"`

	// TopN caps the result length; 0 uses the configured default.
	TopN int `json:"top_n,omitempty" validate:"min=0,max=100"`

	Weights         *recommend.CategoryWeights `json:"weights,omitempty"`
	FocusCategories []string                   `json:"focus_categories,omitempty" validate:"max=8,dive,required"`
}

// options converts the request into engine options. Unknown focus categories
// are rejected.
func (req *RankRequest) options() (recommend.RankOptions, error) {
	opts := recommend.RankOptions{TopN: req.TopN, Weights: req.Weights}
	for _, name := range req.FocusCategories {
		c, err := recommend.ParseCategory(name)
		if err != nil {
			return recommend.RankOptions{}, err
		}
		opts.FocusCategories = append(opts.FocusCategories, c)
	}
	return opts, nil
}

// RankResponse is the data of a successful rank.
type RankResponse struct {
	Recommendations []recommend.Recommendation `json:"recommendations"`
	Count           int                        `json:"count"`
}

// ExplainRequest is the body of POST /api/v1/explain.
type ExplainRequest struct {
	Profile       models.Profile `json:"profile"`
	InstitutionID string         `json:"institution_id" validate:"required,max=128"`
}

// ReindexResponse is the data of an accepted reindex.
type ReindexResponse struct {
	Accepted   bool   `json:"accepted"`
	Generation uint64 `json:"current_generation"`
}

// decodeJSON reads a single JSON value from the request body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes+1))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON value")
	}
	return nil
}

// validateRequest runs struct validation and converts failures to field
// details. It returns nil when v is valid.
func validateRequest(v interface{}) []FieldError {
	verr := validation.ValidateStruct(v)
	if verr == nil {
		return nil
	}
	errs := verr.Errors()
	details := make([]FieldError, 0, len(errs))
	for i := range errs {
		details = append(details, FieldError{
			Field:   errs[i].Field(),
			Tag:     errs[i].Tag(),
			Message: errs[i].Error(),
		})
	}
	return details
}
