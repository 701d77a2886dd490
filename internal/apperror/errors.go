package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind группа ошибки, определяет HTTP статус ответа
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindState
	KindExternal
	KindForbidden
)

// Коды ошибок, которые возвращаются клиенту в поле "code"
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeInternal             = "INTERNAL_ERROR"
	CodeForbidden            = "FORBIDDEN"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeUserNotFound         = "USER_NOT_FOUND"
	CodeRouteNotFound        = "ROUTE_NOT_FOUND"
	CodeRoutePointNotFound   = "ROUTE_POINT_NOT_FOUND"
	CodeVehicleNotFound      = "VEHICLE_NOT_FOUND"
	CodeTripNotFound         = "TRIP_NOT_FOUND"
	CodeSeatNotFound         = "SEAT_NOT_FOUND"
	CodeBookingNotFound      = "BOOKING_NOT_FOUND"
	CodePaymentNotFound      = "PAYMENT_NOT_FOUND"
	CodePriceNotFound        = "PRICE_NOT_FOUND"
	CodeInvalidRoute         = "INVALID_ROUTE"
	CodeVehicleNotOwned      = "VEHICLE_NOT_BELONGS_TO_DRIVER"
	CodeVehicleExists        = "VEHICLE_ALREADY_EXISTS"
	CodeTripNotAvailable     = "TRIP_NOT_AVAILABLE"
	CodeNotEnoughSeats       = "NOT_ENOUGH_SEATS"
	CodeSeatAlreadyBooked    = "SEAT_ALREADY_BOOKED"
	CodeBookingCancelled     = "BOOKING_ALREADY_CANCELLED"
	CodeBookingNotPending    = "BOOKING_NOT_PENDING"
	CodePaymentAlreadyExists = "PAYMENT_ALREADY_EXISTS"
	CodePaymentVerification  = "PAYMENT_VERIFICATION_FAILED"
	CodeExternalService      = "EXTERNAL_SERVICE_ERROR"
)

// Error типизированная ошибка бизнес-логики
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// HTTPStatus возвращает HTTP статус для ошибки
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindState:
		return http.StatusConflict
	case KindExternal:
		return http.StatusBadGateway
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func newf(kind Kind, code, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Code: code, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return newf(KindValidation, CodeValidation, format, args...)
}

func ValidationCode(code, format string, args ...interface{}) *Error {
	return newf(KindValidation, code, format, args...)
}

func NotFound(code, format string, args ...interface{}) *Error {
	return newf(KindNotFound, code, format, args...)
}

func Conflict(code, format string, args ...interface{}) *Error {
	return newf(KindConflict, code, format, args...)
}

func State(code, format string, args ...interface{}) *Error {
	return newf(KindState, code, format, args...)
}

func ForbiddenCode(code, format string, args ...interface{}) *Error {
	return newf(KindForbidden, code, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newf(KindForbidden, CodeForbidden, format, args...)
}

// External оборачивает ошибку внешнего сервиса
func External(code string, err error, format string, args ...interface{}) *Error {
	e := newf(KindExternal, code, format, args...)
	e.Err = err
	return e
}

// Internal оборачивает непредвиденную ошибку хранилища или инфраструктуры
func Internal(err error, format string, args ...interface{}) *Error {
	e := newf(KindInternal, CodeInternal, format, args...)
	e.Err = err
	return e
}

// As извлекает *Error из цепочки ошибок
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode проверяет код ошибки в цепочке
func HasCode(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// IsKind проверяет группу ошибки в цепочке
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}

// KindOf возвращает группу ошибки, KindInternal для ошибок вне этого пакета
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}
