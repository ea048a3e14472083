package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/commentree-backend/internal/apperr"
)

// Envelope is the one response shape every comment endpoint returns. ok is
// false exactly when error_message is set; html_content carries rendered
// fragments, number_of_comments the live count for badge updates.
type Envelope struct {
	OK               bool   `json:"ok"`
	ErrorMessage     string `json:"error_message,omitempty"`
	HTMLContent      string `json:"html_content,omitempty"`
	NumberOfComments *int64 `json:"number_of_comments,omitempty"`
}

func RespondOK(c *gin.Context, htmlContent string, numberOfComments *int64) {
	c.JSON(http.StatusOK, Envelope{
		OK:               true,
		HTMLContent:      htmlContent,
		NumberOfComments: numberOfComments,
	})
}

// RespondEngineError maps an engine failure onto the envelope. Expected
// failures (permission, depth, staleness, locks, validation) come back as a
// 200 with ok false and the user-facing message; anything else is a 500
// with the generic message.
func RespondEngineError(c *gin.Context, err error) {
	status := http.StatusOK
	if !expected(err) {
		status = http.StatusInternalServerError
	}
	c.JSON(status, Envelope{
		OK:           false,
		ErrorMessage: apperr.UserMessage(err),
	})
}

// RespondBadRequest is for requests the handler could not even hand to the
// engine, a malformed body or header.
func RespondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, Envelope{
		OK:           false,
		ErrorMessage: message,
	})
}

func expected(err error) bool {
	if _, ok := apperr.IsValidation(err); ok {
		return true
	}
	for _, sentinel := range []error{
		apperr.ErrInvalidTarget,
		apperr.ErrPermissionDenied,
		apperr.ErrDepthExceeded,
		apperr.ErrConcurrentEdit,
		apperr.ErrStaleEdit,
		apperr.ErrNotFound,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
