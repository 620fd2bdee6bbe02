package tool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrivateKeyHex = "8170940a65bda743704be89096ce6d292f052dbb897f4b7aa5d92aa1d0e64531"

func TestSignAndVerify(t *testing.T) {
	message := `{"interactive":true}`
	sig, err := SignMessage(message, testPrivateKeyHex)
	require.NoError(t, err)

	publicKey, err := PublicKeyHex(testPrivateKeyHex)
	require.NoError(t, err)

	verified, err := VerifySign(message, sig, publicKey)
	require.NoError(t, err)
	assert.True(t, verified)

	verified, err = VerifySign(message+" ", sig, publicKey)
	require.NoError(t, err)
	assert.False(t, verified)
}

func TestVerifySignRejectsGarbage(t *testing.T) {
	publicKey, err := PublicKeyHex(testPrivateKeyHex)
	require.NoError(t, err)

	_, err = VerifySign("m", "zz", publicKey)
	assert.Error(t, err)
	_, err = VerifySign("m", "3006020101020101", "00")
	assert.Error(t, err)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, int64(5e9), ParseDuration("5s", 0).Nanoseconds())
	assert.Equal(t, int64(1e9), ParseDuration("", 1e9).Nanoseconds())
	assert.Equal(t, int64(1e9), ParseDuration("nope", 1e9).Nanoseconds())
	assert.Equal(t, 3, IntWithDefault(0, 3))
	assert.Equal(t, "x", StringWithDefault("", "x"))
}
