// internal/tracker/codes.go
package tracker

import "github.com/clivon254/TEO-KICKS-sub002/internal/domain"

// CodeStillProcessing is the only result code that keeps an attempt pending.
// It can arrive over the push channel while the provider retries the
// customer prompt; the fallback poll never yields it.
const CodeStillProcessing = 9999

// Resolution is a result code translated for display.
type Resolution struct {
	Status  domain.TrackingStatus
	Title   string
	Message string
}

// resultCodes maps provider result codes to display states. The table is
// authoritative for both the push callback and the fallback status query.
var resultCodes = map[int]Resolution{
	0:    {domain.TrackingSuccess, "Payment Successful", "Your payment has been received."},
	1:    {domain.TrackingFailed, "Insufficient Balance", "The account balance is insufficient for this payment."},
	1032: {domain.TrackingFailed, "Payment Cancelled", "The payment request was cancelled by the user."},
	1037: {domain.TrackingFailed, "Request Timeout", "The payment device could not be reached in time."},
	2001: {domain.TrackingFailed, "Wrong PIN Entered", "The wrong PIN was entered for this payment."},
	1001: {domain.TrackingFailed, "Transaction Failed", "Unable to lock subscriber. Please try again."},
	1019: {domain.TrackingFailed, "Transaction Expired", "The payment request expired before completion."},
	1025: {domain.TrackingFailed, "Invalid Phone Number", "The phone number provided is not valid."},
	1026: {domain.TrackingFailed, "System Error", "A system error occurred while processing the payment."},
	1036: {domain.TrackingFailed, "Internal Error", "An internal error occurred while processing the payment."},
	1050: {domain.TrackingFailed, "Too Many Attempts", "Too many payment attempts. Please wait before retrying."},
	CodeStillProcessing: {domain.TrackingPending, "Still Processing", "The payment is still being processed. Please wait."},
}

var unknownResolution = Resolution{
	Status:  domain.TrackingFailed,
	Title:   "Payment Status Unknown",
	Message: "We could not confirm the payment result. Please retry.",
}

// Resolve looks up a result code; unrecognized codes fail closed.
func Resolve(code int) Resolution {
	if res, ok := resultCodes[code]; ok {
		return res
	}
	return unknownResolution
}

// ResolveFallback interprets a fallback-poll result code. The pending code
// has no path here: after the timeout budget the poll is the last word, so
// anything non-terminal fails closed as "unknown, please retry".
func ResolveFallback(code int) Resolution {
	res := Resolve(code)
	if res.Status == domain.TrackingPending {
		return unknownResolution
	}
	return res
}
