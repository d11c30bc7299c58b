package http

import (
	"context"
	"io"
	"net/http"

	"github.com/jmehdipour/wctp-gateway/internal/wctp"
	"github.com/labstack/echo/v4"
)

const maxSubmissionBytes = 1 << 20

type Submitter interface {
	Submit(ctx context.Context, body []byte) *wctp.Fault
}

// inboundHandler always answers 200 text/xml; faults travel in the
// wctp-Confirmation body.
func inboundHandler(svc Submitter) echo.HandlerFunc {
	return func(c echo.Context) error {
		body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxSubmissionBytes))

		var out []byte
		switch {
		case err != nil:
			out = wctp.RenderFault(wctp.FaultInvalidXML)
		default:
			if f := svc.Submit(c.Request().Context(), body); f != nil {
				out = wctp.RenderFault(f)
			} else {
				out = wctp.RenderSuccess(wctp.SuccessCode, wctp.SuccessText)
			}
		}
		return c.Blob(http.StatusOK, echo.MIMETextXMLCharsetUTF8, out)
	}
}

// rateLimitedHandler answers a throttled submission with a protocol fault
// instead of an HTTP error.
func rateLimitedHandler(c echo.Context) error {
	return c.Blob(http.StatusOK, echo.MIMETextXMLCharsetUTF8, wctp.RenderFault(wctp.FaultRateLimited))
}
