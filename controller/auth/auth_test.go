package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"push-token-service/tool"
)

const testPrivKey = "0101010101010101010101010101010101010101010101010101010101010101"

func newEngine(pub string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/x", AuthSignMiddleware(pub), func(c *gin.Context) {
		body, _ := c.GetRawData()
		c.String(http.StatusOK, string(body))
	})
	return r
}

func do(r *gin.Engine, body, pub, sig string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(body))
	if pub != "" {
		req.Header.Set(HeaderPublicKey, pub)
	}
	if sig != "" {
		req.Header.Set(HeaderSignature, sig)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthSignMiddleware(t *testing.T) {
	pub, err := tool.PublicKeyHex(testPrivKey)
	require.NoError(t, err)
	body := `{"message":"hi"}`
	sig, err := tool.SignMessage(body, testPrivKey)
	require.NoError(t, err)

	r := newEngine(pub)

	w := do(r, body, pub, sig)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, body, w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(r, body, "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, `{"message":"tampered"}`, pub, sig).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, body, "02"+strings.Repeat("ab", 32), sig).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, body, pub, "zz").Code)
}

func TestAuthSignMiddlewareDisabled(t *testing.T) {
	w := do(newEngine(""), "anything", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}
