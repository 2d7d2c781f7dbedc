package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "fuel-station-monitor/pkg/errors"
)

func TestSanitizeDeviceText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "PUMP MOTOR FAULT", SanitizeDeviceText("  <b>PUMP MOTOR FAULT</b>\x00 ", 0))
	assert.Equal(t, "abc", SanitizeDeviceText("abcdef", 3))
	assert.Len(t, SanitizeDeviceText(strings.Repeat("é", 10), 5), 4)
}

func TestSanitizeIdentifier(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "T-1_a", SanitizeIdentifier(" T-1_a/../ "))
}

type provisionRequest struct {
	Class   string `validate:"required,oneof=dispenser tank"`
	Address string `validate:"required,busaddr"`
}

func TestValidateStruct(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidateStruct(provisionRequest{Class: "tank", Address: "42"}))

	err := ValidateStruct(provisionRequest{Class: "pump", Address: "1234567"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "class failed on 'oneof'")
	assert.Contains(t, err.Error(), "address failed on 'busaddr'")
}

func TestErrorResponseCarriesAppErrorCode(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	ErrorResponse(c, http.StatusBadGateway, "Failed", fmt.Errorf("wrapped: %w",
		apperrors.NewAppError("BROKER_UNAVAILABLE", "subscribe", errors.New("timeout"))))

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "BROKER_UNAVAILABLE", resp.Code)
	assert.Equal(t, "wrapped: subscribe: timeout", resp.Error)
	assert.True(t, c.IsAborted())
}
