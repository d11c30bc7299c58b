package reconcile

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
	"github.com/jmehdipour/wctp-gateway/internal/carrier"
)

const CodeStoreFailure = "STORE_FAILURE"

func storeFailure(source error, message string, metadata map[string]any) error {
	err := goerrors.Wrap(source, goerrors.CategoryInternal, message).
		WithCode(http.StatusInternalServerError).
		WithTextCode(CodeStoreFailure)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// IsTransient reports a carrier-side failure: the message stays in flight
// and another attempt may succeed. Once attempts run out the message is
// force-closed.
func IsTransient(err error) bool {
	return carrier.IsTransient(err)
}

// IsStoreFailure reports a persistence or lock failure. Exhausting the
// attempt budget on these abandons the task without closing the message.
func IsStoreFailure(err error) bool {
	return carrier.TextCode(err) == CodeStoreFailure
}
