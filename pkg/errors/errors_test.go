package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/haierkeys/page-notes-service/pkg/app"
	"github.com/haierkeys/page-notes-service/pkg/code"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		err         error
		wantCode    int
		wantDetails interface{}
	}{
		{name: "code error", err: code.ErrorNoteNotFound, wantCode: code.ErrorNoteNotFound.Code()},
		{name: "wrapped code error", err: fmt.Errorf("svc: %w", code.ErrorDBQuery.WithDetails("boom", "again")),
			wantCode: code.ErrorDBQuery.Code(), wantDetails: "boom,again"},
		{name: "app error", err: Wrap(code.ErrorInvalidParams, fmt.Errorf("bad input")), wantCode: code.ErrorInvalidParams.Code()},
		{name: "unknown error", err: fmt.Errorf("dial tcp: refused"), wantCode: code.ErrorServerInternal.Code()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			ErrorResponse(c, tt.err)

			assert.Equal(t, http.StatusOK, w.Code)
			var body app.Res
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			assert.False(t, body.Status)
			assert.Equal(t, tt.wantDetails, body.Details)
			assert.NotContains(t, w.Body.String(), "refused")
		})
	}
}

func TestIsCode(t *testing.T) {
	assert.True(t, IsCode(code.ErrorNoteNotFound.WithDetails("x"), code.ErrorNoteNotFound))
	assert.True(t, IsCode(fmt.Errorf("wrap: %w", code.ErrorNoteNotFound), code.ErrorNoteNotFound))
	assert.True(t, IsCode(Wrap(code.ErrorNoteNotFound, nil), code.ErrorNoteNotFound))
	assert.False(t, IsCode(code.ErrorDBQuery, code.ErrorNoteNotFound))
	assert.False(t, IsCode(fmt.Errorf("plain"), code.ErrorNoteNotFound))
	assert.False(t, IsCode(nil, code.ErrorNoteNotFound))
}
