package validator

import (
	"strings"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

func ValidateMessage(content string, hasAttachment bool, msgType string) ValidationErrors {
	errs := make(ValidationErrors)

	content = strings.TrimSpace(content)
	if content == "" && !hasAttachment {
		errs.Add("content", "Message must have text or an attachment")
	} else if len(content) > 4000 {
		errs.Add("content", "Message is too long")
	}

	// Empty type defaults to text downstream.
	switch msgType {
	case "", "text", "image", "file", "voice":
	default:
		errs.Add("type", "Message type must be text, image, file, or voice")
	}

	return errs
}

func ValidateReaction(emoji string) ValidationErrors {
	errs := make(ValidationErrors)

	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		errs.Add("emoji", "Emoji is required")
	} else if len(emoji) > 32 {
		errs.Add("emoji", "Emoji is too long")
	}

	return errs
}

func ValidateAnnouncement(title, body string) ValidationErrors {
	errs := make(ValidationErrors)

	title = strings.TrimSpace(title)
	if title == "" {
		errs.Add("title", "Title is required")
	} else if len(title) > 200 {
		errs.Add("title", "Title is too long")
	}

	body = strings.TrimSpace(body)
	if body == "" {
		errs.Add("body", "Body is required")
	} else if len(body) > 1000 {
		errs.Add("body", "Body is too long")
	}

	return errs
}

func ValidatePushToken(token string) ValidationErrors {
	errs := make(ValidationErrors)

	token = strings.TrimSpace(token)
	if token == "" {
		errs.Add("token", "Push token is required")
	} else if len(token) > 512 {
		errs.Add("token", "Push token is too long")
	}

	return errs
}
