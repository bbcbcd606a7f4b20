package domain

import "errors"

var (
	ErrDuplicateEmail = errors.New("duplicate email")
	ErrRecordNotFound = errors.New("record not found")
	ErrEditConflict   = errors.New("edit conflict")

	// ErrDuplicateConversation is returned by repositories when an insert loses the race on the
	// (pair, listing) uniqueness constraint; callers re-query for the winning row.
	ErrDuplicateConversation = errors.New("duplicate conversation")
	// ErrDuplicateMessage is returned when (sender, client message id) is already stored
	ErrDuplicateMessage = errors.New("duplicate message")
)

// caller errors, surfaced to the user and never retried automatically
var (
	ErrNotAuthenticated     = errors.New("not authenticated")
	ErrInvalidTarget        = errors.New("invalid conversation target")
	ErrEmptyMessage         = errors.New("message content must not be blank")
	ErrNotParticipant       = errors.New("not a participant of the conversation")
	ErrConversationNotFound = errors.New("conversation not found")
)

// ErrTransientNetwork wraps any failed round-trip to the datastore
var ErrTransientNetwork = errors.New("transient network error")

// wire codes shared by the API server and the client
const (
	CodeNotAuthenticated     = "not_authenticated"
	CodeInvalidTarget        = "invalid_target"
	CodeEmptyMessage         = "empty_message"
	CodeNotParticipant       = "not_participant"
	CodeConversationNotFound = "conversation_not_found"
	CodeValidation           = "validation"
	CodeNotFound             = "not_found"
	CodeServerError          = "server_error"
)

var codeErrors = map[string]error{
	CodeNotAuthenticated:     ErrNotAuthenticated,
	CodeInvalidTarget:        ErrInvalidTarget,
	CodeEmptyMessage:         ErrEmptyMessage,
	CodeNotParticipant:       ErrNotParticipant,
	CodeConversationNotFound: ErrConversationNotFound,
	CodeNotFound:             ErrRecordNotFound,
}

// ErrorCode returns the wire code for err, empty if err is not one of the known caller errors.
func ErrorCode(err error) string {
	for code, target := range codeErrors {
		if errors.Is(err, target) {
			return code
		}
	}
	var ev *ErrValidation
	if errors.As(err, &ev) {
		return CodeValidation
	}
	return ""
}

// ErrorFromCode is the inverse of ErrorCode, nil for unknown codes.
func ErrorFromCode(code string) error {
	return codeErrors[code]
}

// IsCallerError reports whether err is a rejection of the action itself rather than a failure to reach
// the datastore.
func IsCallerError(err error) bool {
	return ErrorCode(err) != ""
}

type ErrValidation struct {
	Errors map[string]string
}

func NewErrValidation() *ErrValidation {
	return &ErrValidation{Errors: make(map[string]string)}
}

// implements error interface, so unwrap the error to get the validation errors
func (*ErrValidation) Error() string {
	return "validation error"
}

func (e *ErrValidation) AddError(field, message string) {
	if _, exists := e.Errors[field]; !exists {
		e.Errors[field] = message
	}
}

func (e *ErrValidation) HasErrors() bool {
	return len(e.Errors) > 0
}

func (e *ErrValidation) Evaluate(ok bool, field, message string) {
	if !ok {
		e.AddError(field, message)
	}
}
