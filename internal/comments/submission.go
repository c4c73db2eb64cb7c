package comments

import (
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"unicode/utf8"
)

const maxAuthorLength = 100

// ErrRateLimited is returned when a client exceeds the submission rate.
var ErrRateLimited = errors.New("too many comments, please wait before posting again")

// ValidationError names the form field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Submission is a comment posted through the article form.
type Submission struct {
	PostID     int
	ParentID   int
	Author     string
	Email      string
	URL        string
	Content    string
	ReturnURI  string // Article path to redirect back to
	RemoteAddr string
}

// Normalize trims surrounding whitespace from every text field.
func (s *Submission) Normalize() {
	s.Author = strings.TrimSpace(s.Author)
	s.Email = strings.TrimSpace(s.Email)
	s.URL = strings.TrimSpace(s.URL)
	s.Content = strings.TrimSpace(s.Content)
}

// Validate checks the submission. Content length is counted in runes.
func (s *Submission) Validate(maxLength int) error {
	if s.PostID <= 0 {
		return &ValidationError{Field: "post", Message: "unknown article"}
	}
	if s.ParentID < 0 {
		return &ValidationError{Field: "parent", Message: "invalid reply target"}
	}

	if s.Author == "" {
		return &ValidationError{Field: "author", Message: "name is required"}
	}
	if utf8.RuneCountInString(s.Author) > maxAuthorLength {
		return &ValidationError{Field: "author", Message: fmt.Sprintf("name must be at most %d characters", maxAuthorLength)}
	}

	addr, err := mail.ParseAddress(s.Email)
	if err != nil || addr.Address != s.Email || !strings.Contains(s.Email[strings.LastIndex(s.Email, "@")+1:], ".") {
		return &ValidationError{Field: "email", Message: "a valid email address is required"}
	}

	if s.URL != "" {
		u, err := url.Parse(s.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ValidationError{Field: "url", Message: "website must be an http(s) address"}
		}
	}

	if s.Content == "" {
		return &ValidationError{Field: "content", Message: "comment cannot be empty"}
	}
	if maxLength > 0 && utf8.RuneCountInString(s.Content) > maxLength {
		return &ValidationError{Field: "content", Message: fmt.Sprintf("comment must be at most %d characters", maxLength)}
	}

	return nil
}
