package auth

import (
	"bytes"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"push-token-service/controller/respond"
	"push-token-service/tool"
)

const (
	HeaderPublicKey = "X-Public-Key"
	HeaderSignature = "X-Signature"
)

// AuthSignMiddleware 校验请求体签名：X-Public-Key 必须与配置一致，
// X-Signature 为对请求体 double-sha256 的 ECDSA 签名。publicKeyHex 为空时不校验
func AuthSignMiddleware(publicKeyHex string) gin.HandlerFunc {
	publicKeyHex = strings.ToLower(strings.TrimSpace(publicKeyHex))
	return func(c *gin.Context) {
		if publicKeyHex == "" {
			c.Next()
			return
		}

		pub := strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderPublicKey)))
		sig := strings.TrimSpace(c.GetHeader(HeaderSignature))
		if pub == "" || sig == "" {
			abort(c, "缺少签名头")
			return
		}
		if pub != publicKeyHex {
			abort(c, "公钥不匹配")
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			abort(c, "读取请求体失败")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		ok, err := tool.VerifySign(string(body), sig, pub)
		if err != nil || !ok {
			abort(c, "签名校验失败")
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, msg string) {
	respond.Unauthorized(c, msg)
}
