package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifica la categoría de un error de dominio en la frontera de servicio.
type Code string

const (
	CodeValidation          Code = "VALIDATION"
	CodeInsufficientBalance Code = "INSUFFICIENT_BALANCE"
	CodeNotFound            Code = "NOT_FOUND"
	CodeIntegrity           Code = "INTEGRITY_FAILURE"
	CodeFileOperation       Code = "FILE_OPERATION"
	CodeMigration           Code = "MIGRATION_FAILURE"
	CodeInternal            Code = "INTERNAL"
)

// Errores de dominio (sentinelas). Los errores tipados hacen match con errors.Is contra estos.
var (
	ErrValidation          = errors.New("entrada inválida")
	ErrInsufficientBalance = errors.New("saldo insuficiente")
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrIntegrity           = errors.New("falla de integridad")
	ErrFileOperation       = errors.New("falla de archivo")
	ErrMigration           = errors.New("falla de migración")
)

var sentinelByCode = map[Code]error{
	CodeValidation:          ErrValidation,
	CodeInsufficientBalance: ErrInsufficientBalance,
	CodeNotFound:            ErrNotFound,
	CodeIntegrity:           ErrIntegrity,
	CodeFileOperation:       ErrFileOperation,
	CodeMigration:           ErrMigration,
}

var statusByCode = map[Code]int{
	CodeValidation:          http.StatusBadRequest,
	CodeInsufficientBalance: http.StatusConflict,
	CodeNotFound:            http.StatusNotFound,
	CodeIntegrity:           http.StatusInternalServerError,
	CodeFileOperation:       http.StatusInternalServerError,
	CodeMigration:           http.StatusInternalServerError,
	CodeInternal:            http.StatusInternalServerError,
}

// Error error de dominio con código, mensaje público y causa opcional.
type Error struct {
	code    Code
	message string
	cause   error
}

// Code devuelve el código del error.
func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

// Message devuelve el mensaje público (sin la causa).
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

// Unwrap expone el sentinela del código y la causa original.
func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, 0, 2)
	if s, ok := sentinelByCode[e.code]; ok {
		out = append(out, s)
	}
	if e.cause != nil {
		out = append(out, e.cause)
	}
	return out
}

func newErr(code Code, cause error, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...), cause: cause}
}

// NewValidation entrada mal formada, transición ilegal o regla de negocio violada.
func NewValidation(format string, args ...any) *Error {
	return newErr(CodeValidation, nil, format, args...)
}

// NewInsufficientBalance el movimiento dejaría un saldo negativo.
func NewInsufficientBalance(format string, args ...any) *Error {
	return newErr(CodeInsufficientBalance, nil, format, args...)
}

// NewNotFound producto, movimiento, sesión o snapshot inexistente.
func NewNotFound(format string, args ...any) *Error {
	return newErr(CodeNotFound, nil, format, args...)
}

// NewIntegrity snapshot corrupto o restauración que no pasó la revalidación.
func NewIntegrity(cause error, format string, args ...any) *Error {
	return newErr(CodeIntegrity, cause, format, args...)
}

// NewFileOperation error de E/S sobre archivos de snapshot.
func NewFileOperation(cause error, format string, args ...any) *Error {
	return newErr(CodeFileOperation, cause, format, args...)
}

// NewMigration falla de un paso de esquema.
func NewMigration(cause error, format string, args ...any) *Error {
	return newErr(CodeMigration, cause, format, args...)
}

// As extrae el *Error de una cadena de errores, o nil.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf devuelve el código del error; CodeInternal si no es un error de dominio.
func CodeOf(err error) Code {
	if typed := As(err); typed != nil {
		return typed.code
	}
	for code, s := range sentinelByCode {
		if errors.Is(err, s) {
			return code
		}
	}
	return CodeInternal
}

// HTTPStatus estado HTTP asociado a un código.
func HTTPStatus(code Code) int {
	if st, ok := statusByCode[code]; ok {
		return st
	}
	return http.StatusInternalServerError
}

// PublicMessage mensaje seguro para exponer al cliente.
func PublicMessage(err error) string {
	if typed := As(err); typed != nil {
		return typed.message
	}
	return "error interno"
}
