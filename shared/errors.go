package shared

import "errors"

var (
	// ErrInsufficientData is returned when a series is too short for the requested windows.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDegenerateInput is returned when a required value is undefined because of a
	// degenerate input, such as a flat high-low range.
	ErrDegenerateInput = errors.New("degenerate input")
	// ErrUnresolvedDisagreement is returned when the impulse backward scan exhausts the
	// available history without finding agreeing slopes.
	ErrUnresolvedDisagreement = errors.New("unresolved impulse disagreement")
	// ErrNoData is returned by series suppliers when no bars exist for a request.
	ErrNoData = errors.New("no data")
	// ErrInvalidWindow is returned for non-positive indicator windows.
	ErrInvalidWindow = errors.New("invalid window")
	// ErrUnorderedSeries is returned when bars are not strictly ordered by date.
	ErrUnorderedSeries = errors.New("unordered series")
	// ErrInvalidRequest is returned for requests with invalid arguments.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidCandle is returned when a bar cannot describe a tradable instrument.
	ErrInvalidCandle = errors.New("invalid candlestick")
)
