package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSuccessElapsed(t *testing.T) {
	env := Success("x", time.Now().Add(-25*time.Millisecond))
	assert.Equal(t, CodeSuccess, env.Code)
	assert.Equal(t, MessageSuccess, env.Message)
	assert.GreaterOrEqual(t, env.ElapsedMs, int64(25))

	assert.Zero(t, Success(nil, time.Time{}).ElapsedMs)
}

func TestFailureDefaultsCode(t *testing.T) {
	env := Failure(errors.New("boom"), time.Now(), 0)
	assert.Equal(t, CodeError, env.Code)
	assert.Equal(t, "boom", env.Message)
	assert.Nil(t, env.Data)

	assert.Equal(t, CodeAuth, Failure(errors.New("x"), time.Now(), CodeAuth).Code)
}

func TestWriters(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	Fail(c, http.StatusBadRequest, time.Now(), errors.New("参数错误"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, CodeError, body["code"])
	assert.Equal(t, "参数错误", body["message"])
	assert.Contains(t, body, "elapsedMs")
	assert.NotContains(t, body, "processingTime")

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)
	Unauthorized(c, "签名校验失败")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.True(t, c.IsAborted())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, CodeAuth, body["code"])
}
