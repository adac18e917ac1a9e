package errors

import (
	"bytes"
	"text/template"
)

// catalog maps error codes to user-facing message templates. Templates are
// rendered with the error's Metadata; variables without metadata render empty.
var catalog = map[Code]string{
	CodeUnknown: "Something went wrong. Please try again.",

	CodeEventNotFound:        "Event not found.",
	CodeEventNameEmpty:       "The event name cannot be empty.",
	CodeEventScheduleInvalid: "The date must use the format YYYY-MM-DD HH:MM.",
	CodeEventCapacityInvalid: "The number of seats must be a positive number.",
	CodeEventFieldUnknown:    "Unknown event field.",

	CodeRegistrationNotFound: "Registration not found.",
	CodeAlreadyRegistered:    "You are already registered for {{.event_name}}.",
	CodeCapacityExceeded:     "No seats available for {{.event_name}}.",

	CodeProfileEmailInvalid:  "That does not look like a valid email. Use name@example.com.",
	CodeProfileNameTooShort:  "The name must be at least 3 characters long.",
	CodeProfileRoleInvalid:   "Unknown role.",
	CodeProfileUserNotFound:  "Profile not found.",
	CodeProfileConsentNeeded: "Please accept the personal data policy first.",

	CodeContentSectionNotFound: "This section is not available.",
	CodeContentNodeNotFound:    "This page is not available.",

	CodePermissionDenied: "You do not have access to this action.",
	CodeIdentityUnknown:  "Could not identify you. Please try again.",
}

// UserMessage renders the user-facing message for an error. Domain errors map
// through the catalog; anything else falls back to the generic retry message.
func UserMessage(err error) string {
	code := CodeOf(err)
	tmpl, ok := catalog[code]
	if !ok {
		tmpl = catalog[CodeUnknown]
	}

	metadata := map[string]string{}
	if e := asDomain(err); e != nil && e.Metadata != nil {
		metadata = e.Metadata
	}

	t, parseErr := template.New("msg").Parse(tmpl)
	if parseErr != nil {
		return tmpl
	}
	var buf bytes.Buffer
	if execErr := t.Execute(&buf, metadata); execErr != nil {
		return tmpl
	}
	return buf.String()
}
