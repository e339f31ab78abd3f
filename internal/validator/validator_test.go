package validator_test

import (
	"fmt"
	"testing"

	"sagechat-backend/internal/validator"
)

func TestUsername(t *testing.T) {
	tests := []struct {
		name          string
		username      string
		expectedError error
	}{
		{
			name:          "Valid: plain lowercase",
			username:      "alice",
			expectedError: nil,
		},
		{
			name:          "Valid: digits and separators",
			username:      "user_42.dev",
			expectedError: nil,
		},
		{
			name:          "Valid: minimum length",
			username:      "bob",
			expectedError: nil,
		},
		{
			name:          "Error: too short",
			username:      "ab",
			expectedError: fmt.Errorf("short_username"),
		},
		{
			name:          "Error: too long",
			username:      "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
			expectedError: fmt.Errorf("long_username"),
		},
		{
			name:          "Error: uppercase not allowed",
			username:      "Alice",
			expectedError: fmt.Errorf("bad_format"),
		},
		{
			name:          "Error: leading separator",
			username:      "_alice",
			expectedError: fmt.Errorf("bad_format"),
		},
		{
			name:          "Error: trailing separator",
			username:      "alice.",
			expectedError: fmt.Errorf("bad_format"),
		},
		{
			name:          "Error: spaces",
			username:      "al ice",
			expectedError: fmt.Errorf("bad_format"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validator.Username(tc.username)

			if tc.expectedError == nil {
				if err != nil {
					t.Errorf("Username(%q) failed unexpectedly: got error %v, want nil", tc.username, err)
				}
				return
			}

			if err == nil {
				t.Errorf("Username(%q) passed unexpectedly: got nil, want error %v", tc.username, tc.expectedError)
				return
			}

			if err.Error() != tc.expectedError.Error() {
				t.Errorf("Username(%q) got error %q, want error %q", tc.username, err.Error(), tc.expectedError.Error())
			}
		})
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Single word lowercased",
			input:    "General",
			expected: "general",
		},
		{
			name:     "Spaces become dashes",
			input:    "Design RFC",
			expected: "design-rfc",
		},
		{
			name:     "Runs of whitespace collapse",
			input:    "  Team   Updates  ",
			expected: "team-updates",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := validator.Slug(tc.input)
			if got != tc.expected {
				t.Errorf("Slug(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestMessageText(t *testing.T) {
	tests := []struct {
		name          string
		text          string
		expectedText  string
		expectedError error
	}{
		{
			name:          "Valid: trimmed",
			text:          "  hello  ",
			expectedText:  "hello",
			expectedError: nil,
		},
		{
			name:          "Error: empty",
			text:          "",
			expectedError: fmt.Errorf("empty_message"),
		},
		{
			name:          "Error: whitespace only",
			text:          "   \n\t ",
			expectedError: fmt.Errorf("empty_message"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := validator.MessageText(tc.text)

			if tc.expectedError == nil {
				if err != nil {
					t.Errorf("MessageText(%q) failed unexpectedly: got error %v, want nil", tc.text, err)
					return
				}
				if got != tc.expectedText {
					t.Errorf("MessageText(%q) = %q, want %q", tc.text, got, tc.expectedText)
				}
				return
			}

			if err == nil {
				t.Errorf("MessageText(%q) passed unexpectedly: got nil, want error %v", tc.text, tc.expectedError)
				return
			}

			if err.Error() != tc.expectedError.Error() {
				t.Errorf("MessageText(%q) got error %q, want error %q", tc.text, err.Error(), tc.expectedError.Error())
			}
		})
	}
}

func TestAvatarInitials(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Two names",
			input:    "Ada Lovelace",
			expected: "AL",
		},
		{
			name:     "Single name",
			input:    "ada",
			expected: "A",
		},
		{
			name:     "Three names capped at two initials",
			input:    "Jean Luc Picard",
			expected: "JL",
		},
		{
			name:     "Empty name",
			input:    "  ",
			expected: "?",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := validator.AvatarInitials(tc.input)
			if got != tc.expected {
				t.Errorf("AvatarInitials(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}
