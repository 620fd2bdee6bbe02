package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveDeviceIdentity(t *testing.T) {
	tests := []struct {
		name                   string
		platform, model, osVer string
		want                   string
	}{
		{"plain", "ios", "iPhone 15 Pro", "17.4", "ios|iPhone 15 Pro|17.4"},
		{"collapses whitespace", " ios ", "iPhone   15\tPro", "17.4\n", "ios|iPhone 15 Pro|17.4"},
		{"missing parts", "android", "", "  ", "android|unknown|unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveDeviceIdentity(tt.platform, tt.model, tt.osVer))
		})
	}
}

func TestDeviceInfoIdentityIsStable(t *testing.T) {
	a := DeviceInfo{Platform: "android", Model: "Pixel 8", OSVersion: "14", AppVersion: "1.0.0"}
	b := DeviceInfo{Platform: "android", Model: "Pixel  8", OSVersion: "14", AppVersion: "2.0.0"}
	assert.Equal(t, a.Identity(), b.Identity())
}

func TestDeviceMetadataScanValue(t *testing.T) {
	md := DeviceInfo{Platform: "ios", Model: "iPad", OSVersion: "17", DeviceName: "kitchen"}.Metadata()

	v, err := md.Value()
	require.NoError(t, err)

	var got DeviceMetadata
	require.NoError(t, got.Scan(v))
	assert.Equal(t, md, got)

	require.NoError(t, got.Scan([]byte(`{"a":"b"}`)))
	assert.Equal(t, DeviceMetadata{"a": "b"}, got)

	require.NoError(t, got.Scan(nil))
	assert.Empty(t, got)

	assert.Error(t, got.Scan(42))
}

func TestParsePermissionState(t *testing.T) {
	assert.Equal(t, PermissionGranted, ParsePermissionState("granted"))
	assert.Equal(t, PermissionDenied, ParsePermissionState("denied"))
	assert.Equal(t, PermissionUnknown, ParsePermissionState("undetermined"))
	assert.True(t, PermissionGranted.IsGranted())
	assert.False(t, PermissionDeniedPersisted.IsGranted())
}

func TestIsReportedIdentity(t *testing.T) {
	assert.False(t, IsReportedIdentity(""))
	assert.False(t, IsReportedIdentity(DeviceInfo{}.Identity()))
	assert.True(t, IsReportedIdentity(DeviceInfo{Platform: "web"}.Identity()))
}
