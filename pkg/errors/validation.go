package errors

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// DateLayout is the ISO calendar date format used for start and end dates.
const DateLayout = "2006-01-02"

// maxKeywordLength bounds the keyword sent to the generation backend.
// It matches the backend's keyword column width.
const maxKeywordLength = 200

// ValidateKeyword validates a project keyword.
// The keyword must contain a non-space character, must not contain control
// characters, and must be at most 200 characters long.
func ValidateKeyword(keyword string) error {
	if strings.TrimSpace(keyword) == "" {
		return Validation("keyword cannot be empty")
	}
	if utf8.RuneCountInString(keyword) > maxKeywordLength {
		return Validation("keyword too long (max %d characters)", maxKeywordLength)
	}
	for _, r := range keyword {
		if unicode.IsControl(r) {
			return Validation("keyword contains invalid control characters")
		}
	}
	return nil
}

// ValidateLang validates a plan language. Only "ko" and "en" are accepted.
func ValidateLang(lang string) error {
	switch lang {
	case "ko", "en":
		return nil
	case "":
		return Validation("lang cannot be empty")
	default:
		return Validation("unsupported lang %q (want ko or en)", lang)
	}
}

// ValidateDate validates an ISO date (YYYY-MM-DD). The field name is used
// in the error message.
func ValidateDate(field, value string) error {
	if value == "" {
		return Validation("%s cannot be empty", field)
	}
	if _, err := time.Parse(DateLayout, value); err != nil {
		return Validation("%s must be an ISO date (YYYY-MM-DD), got %q", field, value)
	}
	return nil
}

// ValidateDateRange validates both dates and checks that end is not
// before start.
func ValidateDateRange(start, end string) error {
	if err := ValidateDate("start_date", start); err != nil {
		return err
	}
	if err := ValidateDate("end_date", end); err != nil {
		return err
	}
	s, _ := time.Parse(DateLayout, start)
	e, _ := time.Parse(DateLayout, end)
	if e.Before(s) {
		return Validation("end_date %s is before start_date %s", end, start)
	}
	return nil
}

// ValidateID validates a diagram identifier before it is placed in a URL
// path or used as a storage key.
//
// Rules:
//   - ID cannot be empty
//   - Maximum length of 128 characters
//   - No control characters
//   - No path separators or traversal sequences
func ValidateID(id string) error {
	if id == "" {
		return Validation("diagram id cannot be empty")
	}
	if len(id) > 128 {
		return Validation("diagram id too long (max 128 characters)")
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return Validation("diagram id contains invalid characters")
		}
	}
	if strings.ContainsAny(id, "/\\?#") || strings.Contains(id, "..") {
		return Validation("diagram id contains invalid characters: %q", id)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return Validation("URL cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return Validation("URL must use http or https scheme")
	}

	return nil
}
