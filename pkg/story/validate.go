package story

import (
	"fmt"
	"math"
)

// ValidationResult is the outcome of structural validation of a raw
// provider result. Validation only accepts or rejects; it never
// rewrites the candidate.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// Report is the outcome of validating a complete story structure, as
// returned by the validation endpoint.
type Report struct {
	IsValid    bool     `json:"is_valid"`
	Errors     []string `json:"errors"`
	Warnings   []string `json:"warnings"`
	ThemeValid bool     `json:"theme_valid"`
}

// pageResultFields are required on a single-player page generation result.
var pageResultFields = []string{"story_title", "page_content", "options", "difficulty", "theme", "station_name", "line_number"}

// ValidatePageResult structurally validates a raw single-player page
// result from a provider.
func ValidatePageResult(candidate map[string]interface{}) ValidationResult {
	var errs []string
	for _, field := range pageResultFields {
		if _, ok := candidate[field]; !ok {
			errs = append(errs, fmt.Sprintf("missing required field: %s", field))
		}
	}
	errs = append(errs, validateOptions(candidate["options"], "")...)
	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

// validateOptions checks the option list shape and every option's
// fields and ranges. prefix is prepended to error messages so page
// validation can report which page failed.
func validateOptions(raw interface{}, prefix string) []string {
	var errs []string
	options, ok := raw.([]interface{})
	if !ok || len(options) < MinOptions || len(options) > MaxOptions {
		return append(errs, fmt.Sprintf("%sinvalid option count: %d options (need %d-%d)", prefix, len(options), MinOptions, MaxOptions))
	}

	for i, rawOpt := range options {
		opt, ok := rawOpt.(map[string]interface{})
		if !ok {
			errs = append(errs, fmt.Sprintf("%soption %d is not an object", prefix, i+1))
			continue
		}
		for _, field := range []string{"content", "effect", "amount", "effect_preview"} {
			if _, ok := opt[field]; !ok {
				errs = append(errs, fmt.Sprintf("%soption %d missing field: %s", prefix, i+1, field))
			}
		}
		if effect, _ := opt["effect"].(string); effect != EffectHealth && effect != EffectSanity && effect != EffectNone {
			errs = append(errs, fmt.Sprintf("%soption %d invalid effect: %v", prefix, i+1, opt["effect"]))
		}
		amount, ok := intField(opt["amount"])
		if !ok || amount < MinEffectAmount || amount > MaxEffectAmount {
			errs = append(errs, fmt.Sprintf("%soption %d invalid amount: %v", prefix, i+1, opt["amount"]))
		}
	}
	return errs
}

// intField extracts an integer from a decoded JSON value. encoding/json
// decodes numbers as float64, so whole floats are accepted.
func intField(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

// ValidateStoryStructure validates a complete story payload: required
// fields, theme membership, page counts and per-page options. Out-of-band
// page counts (under 3 or over 10) produce warnings rather than errors.
func ValidateStoryStructure(data map[string]interface{}) Report {
	var errs, warnings []string

	for _, field := range []string{"story_title", "description", "theme", "keywords", "pages"} {
		if _, ok := data[field]; !ok {
			errs = append(errs, fmt.Sprintf("missing required field: %s", field))
		}
	}

	theme, _ := data["theme"].(string)
	themeValid := Theme(theme).IsAllowed()
	if !themeValid {
		errs = append(errs, fmt.Sprintf("theme not allowed: %q (allowed: %v)", theme, AllowedThemes))
	}

	pages, _ := data["pages"].([]interface{})
	switch {
	case len(pages) == 0:
		errs = append(errs, "story has no pages")
	case len(pages) < 3:
		warnings = append(warnings, fmt.Sprintf("story is short: %d pages", len(pages)))
	case len(pages) > 10:
		warnings = append(warnings, fmt.Sprintf("story is long: %d pages", len(pages)))
	}

	for i, rawPage := range pages {
		page, ok := rawPage.(map[string]interface{})
		if !ok {
			errs = append(errs, fmt.Sprintf("page %d is not an object", i+1))
			continue
		}
		if _, ok := page["content"]; !ok {
			errs = append(errs, fmt.Sprintf("page %d missing content", i+1))
		}
		errs = append(errs, validateOptions(page["options"], fmt.Sprintf("page %d: ", i+1))...)
	}

	if errs == nil {
		errs = []string{}
	}
	if warnings == nil {
		warnings = []string{}
	}
	return Report{
		IsValid:    len(errs) == 0,
		Errors:     errs,
		Warnings:   warnings,
		ThemeValid: themeValid,
	}
}
