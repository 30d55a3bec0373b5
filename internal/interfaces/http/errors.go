package http

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// respondError traduce un error a status + dto.ErrorResponse según su código de dominio.
func respondError(c *fiber.Ctx, err error) error {
	code := domain.CodeOf(err)
	return c.Status(domain.HTTPStatus(code)).JSON(dto.ErrorResponse{
		Code:    string(code),
		Message: domain.PublicMessage(err),
	})
}

// bindBody parsea el JSON y valida los tags; cualquier falla es VALIDATION.
func bindBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		return domain.NewValidation("cuerpo inválido")
	}
	return validateStruct(dest)
}

// bindQuery igual que bindBody para parámetros de query. Los listados paginados
// reciben los defaults de página antes de validar.
func bindQuery(c *fiber.Ctx, dest any) error {
	if err := c.QueryParser(dest); err != nil {
		return domain.NewValidation("parámetros inválidos")
	}
	if p, ok := dest.(interface{ DefaultPage() }); ok {
		p.DefaultPage()
	}
	return validateStruct(dest)
}

func validateStruct(dest any) error {
	err := validate.Struct(dest)
	if err == nil {
		return nil
	}
	errs, ok := err.(validator.ValidationErrors)
	if !ok || len(errs) == 0 {
		return domain.NewValidation("datos inválidos")
	}
	parts := make([]string, 0, len(errs))
	for _, fe := range errs {
		parts = append(parts, fe.Field()+" "+validationMessage(fe))
	}
	return domain.NewValidation("%s", strings.Join(parts, "; "))
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "es obligatorio"
	case "min":
		return fmt.Sprintf("debe ser al menos %s", fe.Param())
	case "max":
		return fmt.Sprintf("debe ser como máximo %s", fe.Param())
	case "gt":
		return fmt.Sprintf("debe ser mayor que %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("debe ser uno de [%s]", fe.Param())
	}
	return "es inválido"
}

// paramID lee un id numérico positivo de la ruta.
func paramID(c *fiber.Ctx, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Params(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidation("%s inválido", name)
	}
	return id, nil
}
