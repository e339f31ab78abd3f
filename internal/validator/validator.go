package validator

import (
	"fmt"
	"regexp"
	"strings"
)

// Username must be 3-32 chars, lowercase letters, digits, dots, underscores.
// Callers lowercase before storing; this only checks the normalized form.
func Username(username string) error {
	length := len(username)
	if length < 3 {
		return fmt.Errorf("short_username")
	} else if length > 32 {
		return fmt.Errorf("long_username")
	}

	const usernameRegex = `^[a-z0-9][a-z0-9._]*[a-z0-9]$`
	if !regexp.MustCompile(usernameRegex).MatchString(username) {
		return fmt.Errorf("bad_format")
	}

	return nil
}

func Password(password string) error {
	length := len(password)
	if length < 6 {
		return fmt.Errorf("short_password")
	} else if length > 32 {
		return fmt.Errorf("long_password")
	}

	return nil
}

// ChannelName checks a display name before it gets slug-cased.
func ChannelName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fmt.Errorf("empty_name")
	} else if len(trimmed) > 64 {
		return fmt.Errorf("long_name")
	}

	return nil
}

// Slug turns a channel display name into its unique lowercase name:
// "Design RFC" -> "design-rfc".
func Slug(name string) string {
	return regexp.MustCompile(`\s+`).ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// MessageText rejects empty or whitespace-only text and over-long messages.
// Returns the trimmed text on success.
func MessageText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", fmt.Errorf("empty_message")
	} else if len(trimmed) > 5000 {
		return "", fmt.Errorf("long_message")
	}

	return trimmed, nil
}

// AvatarInitials derives up to two uppercase initials from a display name.
func AvatarInitials(name string) string {
	fields := strings.Fields(name)
	initials := ""
	for i, field := range fields {
		if i >= 2 {
			break
		}
		initials += strings.ToUpper(string([]rune(field)[0]))
	}
	if initials == "" {
		initials = "?"
	}
	return initials
}
