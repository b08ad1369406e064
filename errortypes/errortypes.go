package errortypes

import "strconv"

// BadInput should be used when a value handed to the codec cannot be represented at all,
// such as a negative integer or a non-positive id.
type BadInput struct {
	Message string
}

func (err *BadInput) Error() string {
	return err.Message
}

func (err *BadInput) Code() int {
	return BadInputErrorCode
}

func (err *BadInput) Severity() Severity {
	return SeverityFatal
}

// InvalidLanguageCode is returned when a consent language is not exactly two letters a-z.
type InvalidLanguageCode struct {
	Message string
}

func (err *InvalidLanguageCode) Error() string {
	return err.Message
}

func (err *InvalidLanguageCode) Code() int {
	return InvalidLanguageCodeErrorCode
}

func (err *InvalidLanguageCode) Severity() Severity {
	return SeverityFatal
}

// UnknownFormatVersion is returned when a format version has no registered configuration.
type UnknownFormatVersion struct {
	Version int
}

func (err *UnknownFormatVersion) Error() string {
	return "unknown consent string format version " + strconv.Itoa(err.Version)
}

func (err *UnknownFormatVersion) Code() int {
	return UnknownFormatVersionErrorCode
}

func (err *UnknownFormatVersion) Severity() Severity {
	return SeverityFatal
}

// InvalidBitSequence is returned when a string that must only hold '0' and '1' holds anything else.
type InvalidBitSequence struct {
	Message string
}

func (err *InvalidBitSequence) Error() string {
	return err.Message
}

func (err *InvalidBitSequence) Code() int {
	return InvalidBitSequenceErrorCode
}

func (err *InvalidBitSequence) Severity() Severity {
	return SeverityFatal
}

// InvalidToken is returned when a token is not valid base64 once the URL-safe substitutions are reversed.
type InvalidToken struct {
	Token string
	Cause error
}

func (err *InvalidToken) Error() string {
	if err.Cause == nil {
		return "invalid consent token " + err.Token
	}
	return "invalid consent token " + err.Token + ": " + err.Cause.Error()
}

func (err *InvalidToken) Unwrap() error {
	return err.Cause
}

func (err *InvalidToken) Code() int {
	return InvalidTokenErrorCode
}

func (err *InvalidToken) Severity() Severity {
	return SeverityFatal
}

// DecodeFailure is returned when any field of a token fails to parse.
// The whole decode is rejected; Cause holds the failure of the individual field.
type DecodeFailure struct {
	Field string
	Cause error
}

func (err *DecodeFailure) Error() string {
	if err.Field == "" {
		return "consent string decode failed: " + err.Cause.Error()
	}
	return "consent string decode failed at " + err.Field + ": " + err.Cause.Error()
}

func (err *DecodeFailure) Unwrap() error {
	return err.Cause
}

func (err *DecodeFailure) Code() int {
	return DecodeFailureErrorCode
}

func (err *DecodeFailure) Severity() Severity {
	return SeverityFatal
}

// CatalogVersionMismatch is returned by catalog migrations when the "old" catalog is not the one
// the record was collected against.
type CatalogVersionMismatch struct {
	Catalog  string
	Expected int
	Actual   int
}

func (err *CatalogVersionMismatch) Error() string {
	return err.Catalog + " version mismatch: record holds " + strconv.Itoa(err.Expected) + " but old catalog is " + strconv.Itoa(err.Actual)
}

func (err *CatalogVersionMismatch) Code() int {
	return CatalogVersionMismatchErrorCode
}

func (err *CatalogVersionMismatch) Severity() Severity {
	return SeverityFatal
}

// Warning is a generic non-fatal error.
type Warning struct {
	Message     string
	WarningCode int
}

func (err *Warning) Error() string {
	return err.Message
}

func (err *Warning) Code() int {
	return err.WarningCode
}

func (err *Warning) Severity() Severity {
	return SeverityWarning
}
