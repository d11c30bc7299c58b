package carrier

import (
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	CodeUnavailable        = "CARRIER_UNAVAILABLE"
	CodeCredentials        = "CREDENTIALS_UNREADABLE"
	CodeNoNotifications    = "NO_DELIVERY_NOTIFICATIONS"
	CodeUnsupportedCarrier = "CARRIER_API_UNSUPPORTED"
)

func carrierError(message string, category goerrors.Category, code int, textCode string, metadata map[string]any) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func carrierWrapError(source error, category goerrors.Category, message string, code int, textCode string, metadata map[string]any) error {
	if source == nil {
		return carrierError(message, category, code, textCode, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(textCode)
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

// unavailable covers network errors, non-200 replies and unreadable bodies.
func unavailable(source error, message string, metadata map[string]any) error {
	return carrierWrapError(source, goerrors.CategoryExternal, message, http.StatusBadGateway, CodeUnavailable, metadata)
}

func credentialsUnreadable(source error, metadata map[string]any) error {
	return carrierWrapError(source, goerrors.CategoryAuth, "unable to decrypt carrier credentials",
		http.StatusUnauthorized, CodeCredentials, metadata)
}

func noNotifications(metadata map[string]any) error {
	return carrierError("carrier returned no delivery notifications", goerrors.CategoryNotFound,
		http.StatusNotFound, CodeNoNotifications, metadata)
}

func unsupported(api string) error {
	return carrierError("carrier api is not implemented", goerrors.CategoryBadInput,
		http.StatusNotImplemented, CodeUnsupportedCarrier, map[string]any{"api": api})
}

// TextCode returns the text code of a carrier error envelope, or "".
func TextCode(err error) string {
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return ""
	}
	return rich.TextCode
}

// IsTransient reports whether err is worth retrying later: the carrier was
// unreachable or its credentials could not be read.
func IsTransient(err error) bool {
	switch TextCode(err) {
	case CodeUnavailable, CodeCredentials:
		return true
	default:
		return false
	}
}

// IsNoNotifications reports a ThinQ reply without delivery notifications.
func IsNoNotifications(err error) bool {
	return TextCode(err) == CodeNoNotifications
}

func IsUnsupported(err error) bool {
	return TextCode(err) == CodeUnsupportedCarrier
}
