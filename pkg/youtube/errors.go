package youtube

import (
	"errors"
	"fmt"
)

// quotaReasons are the API error reasons that indicate the daily quota is
// exhausted, as opposed to any other kind of 403.
var quotaReasons = map[string]bool{
	"quotaExceeded":      true,
	"dailyLimitExceeded": true,
	"rateLimitExceeded":  true,
}

// QuotaError reports that the API rejected a call because the project's
// quota is exhausted. Metered calls should stop for the remainder of the run.
type QuotaError struct {
	Reason  string
	Message string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("youtube: quota exhausted (%s): %s", e.Reason, e.Message)
}

// IsQuotaExhausted reports whether the error chain contains a QuotaError.
func IsQuotaExhausted(err error) bool {
	var qe *QuotaError
	return errors.As(err, &qe)
}

// apiError is the JSON error envelope returned by the API.
type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason string `json:"reason"`
		} `json:"errors"`
	} `json:"error"`
}
