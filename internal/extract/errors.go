package extract

import (
	"errors"
	"fmt"
)

// Kind classifies an extraction failure.
type Kind int

const (
	UnexpectedFailure Kind = iota
	InvalidInput
	NetworkFailure
	NoRoutesFound
	AnchorMissing
	RouteRegexMismatch
	NoFileSizeInfo
	ManifestRegexMismatch
	ManifestSegmentsInsufficient
	ScriptNotFound
	DirectLinkNotFound
	Timeout
	MergeArityMismatch
)

func (k Kind) String() string {
	switch k {
	case InvalidInput:
		return "InvalidInput"
	case NetworkFailure:
		return "NetworkFailure"
	case NoRoutesFound:
		return "NoRoutesFound"
	case AnchorMissing:
		return "AnchorMissing"
	case RouteRegexMismatch:
		return "RouteRegexMismatch"
	case NoFileSizeInfo:
		return "NoFileSizeInfo"
	case ManifestRegexMismatch:
		return "ManifestRegexMismatch"
	case ManifestSegmentsInsufficient:
		return "ManifestSegmentsInsufficient"
	case ScriptNotFound:
		return "ScriptNotFound"
	case DirectLinkNotFound:
		return "DirectLinkNotFound"
	case Timeout:
		return "Timeout"
	case MergeArityMismatch:
		return "MergeArityMismatch"
	default:
		return "UnexpectedFailure"
	}
}

// Messages shown to the user for each kind.
const (
	MsgInvalidURL          = "URL is invalid."
	MsgNoRoutes            = "No available routes found."
	MsgAnchorMissing       = "Not enough segments to generate download url."
	MsgRouteRegexMismatch  = "Cannot find hash codes to generate download route."
	MsgNoFileSize          = "No file size found in download url."
	MsgSegmentsShort       = "Not enough segments to generate stream url."
	MsgScriptNotFound      = "No player script found in page."
	MsgManifestNotInScript = "Cannot find manifest url in player script."
	MsgDirectLinkNotFound  = "Direct link not found in download route."
	MsgTimeout             = "Task is timeout."
)

// Sentinels for errors.Is. Only the Kind is compared.
var (
	ErrInvalidInput                 = &Error{Kind: InvalidInput}
	ErrNetworkFailure               = &Error{Kind: NetworkFailure}
	ErrNoRoutesFound                = &Error{Kind: NoRoutesFound}
	ErrAnchorMissing                = &Error{Kind: AnchorMissing}
	ErrRouteRegexMismatch           = &Error{Kind: RouteRegexMismatch}
	ErrNoFileSizeInfo               = &Error{Kind: NoFileSizeInfo}
	ErrManifestRegexMismatch        = &Error{Kind: ManifestRegexMismatch}
	ErrManifestSegmentsInsufficient = &Error{Kind: ManifestSegmentsInsufficient}
	ErrScriptNotFound               = &Error{Kind: ScriptNotFound}
	ErrDirectLinkNotFound           = &Error{Kind: DirectLinkNotFound}
	ErrTimeout                      = &Error{Kind: Timeout}
	ErrUnexpected                   = &Error{Kind: UnexpectedFailure}
	ErrMergeArityMismatch           = &Error{Kind: MergeArityMismatch}
)

// Error is a classified extraction failure.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Errorf creates an Error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error of the given kind around a cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Classify returns err as an *Error, wrapping anything unclassified as
// UnexpectedFailure. Classify(nil) is nil.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(UnexpectedFailure, "", err)
}

// KindOf returns the kind of a non-nil err, or UnexpectedFailure if it is
// unclassified.
func KindOf(err error) Kind {
	if e := Classify(err); e != nil {
		return e.Kind
	}
	return UnexpectedFailure
}
