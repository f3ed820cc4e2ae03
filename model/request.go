package model

import (
	"net/url"
	"strings"

	"golang.org/x/exp/slices"
)

type Request struct {
	ResourceRequirements *ResourceRequirements `json:"resource_requirements"`
	TesURIs              []string              `json:"tes_uris"`
	ObjectIDs            []string              `json:"drs_ids"`
	DrsURIs              []string              `json:"drs_uris"`
	Mode                 *Mode                 `json:"mode"`
	AuthToken            string                `json:"-"`
}

// EffectiveMode falls back to the default weight when no mode was given.
func (r Request) EffectiveMode() Mode {
	if r.Mode == nil {
		return DefaultMode()
	}

	return *r.Mode
}

func (r Request) Validate() error {
	if r.ResourceRequirements == nil {
		return NewValidationError("Invalid 'resource_requirements' value passed: 'None'.")
	}

	if err := r.ResourceRequirements.Validate(); err != nil {
		return err
	}

	if len(r.TesURIs) == 0 {
		return NewValidationError("No TES instance has been specified.")
	}

	if len(r.ObjectIDs) > 0 && len(r.DrsURIs) == 0 {
		return NewValidationError("No services for accessing input objects defined.")
	}

	for _, uri := range append(slices.Clone(r.TesURIs), r.DrsURIs...) {
		if err := validateServiceURI(uri); err != nil {
			return err
		}
	}

	seen := make(map[string]struct{}, len(r.ObjectIDs))
	for _, id := range r.ObjectIDs {
		if strings.TrimSpace(id) == "" {
			return NewValidationError("Invalid 'drs_ids' value passed: empty object id.")
		}

		if _, ok := seen[id]; ok {
			return NewValidationError("Invalid 'drs_ids' value passed: duplicate object id '%s'.", id)
		}

		seen[id] = struct{}{}
	}

	return nil
}

func validateServiceURI(uri string) error {
	parsed, err := url.Parse(uri)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return NewValidationError("Invalid service URI passed: '%s'.", uri)
	}

	return nil
}
