package domain_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

func TestErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("crear movimiento: %w", domain.NewInsufficientBalance("saldo insuficiente en %s", "Canoas"))

	assert.True(t, errors.Is(err, domain.ErrInsufficientBalance))
	assert.False(t, errors.Is(err, domain.ErrValidation))
	assert.Equal(t, domain.CodeInsufficientBalance, domain.CodeOf(err))
	assert.Equal(t, "saldo insuficiente en Canoas", domain.PublicMessage(err))
}

func TestErrorKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := domain.NewIntegrity(cause, "restauración revertida")

	require.ErrorIs(t, err, cause)
	require.ErrorIs(t, err, domain.ErrIntegrity)
	assert.Contains(t, err.Error(), "disk full")
}

func TestCodeOfUnknownError(t *testing.T) {
	assert.Equal(t, domain.CodeInternal, domain.CodeOf(errors.New("boom")))
	assert.Equal(t, domain.CodeNotFound, domain.CodeOf(fmt.Errorf("x: %w", domain.ErrNotFound)))
	assert.Equal(t, "error interno", domain.PublicMessage(errors.New("boom")))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, domain.HTTPStatus(domain.CodeValidation))
	assert.Equal(t, http.StatusConflict, domain.HTTPStatus(domain.CodeInsufficientBalance))
	assert.Equal(t, http.StatusNotFound, domain.HTTPStatus(domain.CodeNotFound))
	assert.Equal(t, http.StatusInternalServerError, domain.HTTPStatus(domain.CodeMigration))
	assert.Equal(t, http.StatusInternalServerError, domain.HTTPStatus("OTHER"))
}
