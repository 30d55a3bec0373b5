package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// Códigos de salida.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // falla de la operación (integridad, archivo, migración)
	ExitCommandError = 2 // uso incorrecto, recurso inexistente
)

// ExitError error con código de salida explícito.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError crea un ExitError.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError envuelve err con un código de salida.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode código de salida de err. Los errores de dominio de validación o inexistencia
// son errores de uso; el resto, falla.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	switch domain.CodeOf(err) {
	case domain.CodeValidation, domain.CodeNotFound:
		return ExitCommandError
	}
	return ExitFailure
}

// OutputFormatter salida JSON o texto.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// CLIResponse envoltorio de la salida JSON.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" | "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError detalle de error en la salida JSON.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success escribe data; en texto usa text().
func (f *OutputFormatter) Success(data any, text func(w io.Writer) error) error {
	if f.Format == "json" {
		return f.writeJSON(CLIResponse{Status: "ok", Data: data})
	}
	return text(f.Writer)
}

// reportedError marca un error que ya se escribió en la salida.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

// IsReported indica si err ya fue escrito por un OutputFormatter.
func IsReported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}

// Error escribe el error en el formato configurado y lo devuelve marcado como reportado.
func (f *OutputFormatter) Error(err error) error {
	code := string(domain.CodeOf(err))
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code == ExitCommandError && domain.As(err) == nil {
		code = "USAGE"
	}
	msg := err.Error()
	if typed := domain.As(err); typed != nil {
		msg = typed.Message()
	}
	if f.Format == "json" {
		if werr := f.writeJSON(CLIResponse{Status: "error", Error: &CLIError{Code: code, Message: msg}}); werr != nil {
			return werr
		}
		return reportedError{err}
	}
	fmt.Fprintf(f.errWriter(), "error [%s]: %s\n", code, msg)
	if f.Verbose {
		fmt.Fprintf(f.errWriter(), "  causa: %v\n", err)
	}
	return reportedError{err}
}

func (f *OutputFormatter) writeJSON(v any) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (f *OutputFormatter) errWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
