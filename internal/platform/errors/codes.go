// Package errors provides structured error handling with user-facing message rendering.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Event errors
	CodeEventNotFound        Code = "EVENT_NOT_FOUND"
	CodeEventNameEmpty       Code = "EVENT_NAME_EMPTY"
	CodeEventScheduleInvalid Code = "EVENT_SCHEDULE_INVALID"
	CodeEventCapacityInvalid Code = "EVENT_CAPACITY_INVALID"
	CodeEventFieldUnknown    Code = "EVENT_FIELD_UNKNOWN"

	// Registration errors
	CodeRegistrationNotFound Code = "REGISTRATION_NOT_FOUND"
	CodeAlreadyRegistered    Code = "ALREADY_REGISTERED"
	CodeCapacityExceeded     Code = "CAPACITY_EXCEEDED"

	// Profile errors
	CodeProfileEmailInvalid  Code = "PROFILE_EMAIL_INVALID"
	CodeProfileNameTooShort  Code = "PROFILE_NAME_TOO_SHORT"
	CodeProfileRoleInvalid   Code = "PROFILE_ROLE_INVALID"
	CodeProfileUserNotFound  Code = "PROFILE_USER_NOT_FOUND"
	CodeProfileConsentNeeded Code = "PROFILE_CONSENT_NEEDED"

	// Content errors
	CodeContentSectionNotFound Code = "CONTENT_SECTION_NOT_FOUND"
	CodeContentNodeNotFound    Code = "CONTENT_NODE_NOT_FOUND"

	// Access errors
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeIdentityUnknown  Code = "IDENTITY_UNKNOWN"
)
