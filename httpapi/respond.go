package httpapi

import (
	"net/http"

	"github.com/go-chi/render"

	goAccount "github.com/MrEthical07/goAccount"
)

const (
	statusSuccess = "success"
	statusFail    = "fail"
	statusError   = "error"
)

const (
	msgAuthFailed    = "Authentication failed."
	msgNotActivated  = "Account is not activated."
	msgUnexpected    = "Something went wrong."
	msgInvalidInput  = "Invalid input."
	msgWeakPassword  = "Password does not meet the requirements."
	msgAccountExists = "Account already exists."
	msgRateLimited   = "Too many requests. Try again later."
)

// Envelope is the body of a successful response.
type Envelope struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

// ErrorEnvelope is the body of a failed response.
type ErrorEnvelope struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func success(w http.ResponseWriter, r *http.Request, data interface{}) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, Envelope{Status: statusSuccess, Data: data})
}

func fail(w http.ResponseWriter, r *http.Request, code int, message string) {
	status := statusFail
	if code >= http.StatusInternalServerError {
		status = statusError
	}
	render.Status(r, code)
	render.JSON(w, r, ErrorEnvelope{Status: status, Message: message})
}

// errorResponse maps an Engine error to its status code and public message.
// Only the classification leaves the process; details stay in the logs.
func errorResponse(err error) (int, string) {
	c := goAccount.Classify(err)
	switch c.Outcome {
	case goAccount.OutcomeClientError:
		switch c.Kind {
		case goAccount.KindWeakPassword:
			return http.StatusBadRequest, msgWeakPassword
		case goAccount.KindAccountExists:
			return http.StatusConflict, msgAccountExists
		case goAccount.KindRateLimited:
			return http.StatusTooManyRequests, msgRateLimited
		default:
			return http.StatusBadRequest, msgInvalidInput
		}
	case goAccount.OutcomeUnauthorized:
		// one message for every cause so the body never names the failed check
		return http.StatusUnauthorized, msgAuthFailed
	case goAccount.OutcomeForbidden:
		return http.StatusForbidden, msgNotActivated
	default:
		return http.StatusInternalServerError, msgUnexpected
	}
}
