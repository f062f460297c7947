package device

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilitiesCheck(t *testing.T) {
	full := Capabilities{SecureContext: true, MediaDevices: true, GetUserMedia: true}

	tests := []struct {
		name string
		caps Capabilities
		want string
	}{
		{"supported", full, ""},
		{"localhost without https", Capabilities{Localhost: true, MediaDevices: true, GetUserMedia: true}, ""},
		{"insecure", Capabilities{MediaDevices: true, GetUserMedia: true}, MsgInsecureContext},
		{"legacy api", Capabilities{SecureContext: true, LegacyGetUserMedia: true}, MsgLegacyMediaAPI},
		{"no media devices", Capabilities{SecureContext: true}, MsgNoMediaDevices},
		{"no getUserMedia", Capabilities{SecureContext: true, MediaDevices: true}, MsgNoGetUserMedia},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.caps.Check()
			if tt.want == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
			assert.True(t, errors.Is(err, ErrUnsupported))
		})
	}
}

func TestPermissionFailure(t *testing.T) {
	assert.Equal(t, MsgPermissionDenied, PermissionFailure("NotAllowedError", "").Message)
	assert.Equal(t, MsgNoMicrophone, PermissionFailure("NotFoundError", "").Message)
	assert.Equal(t, MsgMicrophoneBusy, PermissionFailure("NotReadableError", "busy").Message)
	assert.Equal(t, "Microphone access failed: overconstrained", PermissionFailure("OverconstrainedError", "overconstrained").Message)
	assert.Equal(t, "Microphone access failed: AbortError", PermissionFailure("AbortError", "").Message)

	var target *PermissionError
	require.True(t, errors.As(error(PermissionFailure("NotAllowedError", "")), &target))
	assert.Equal(t, "NotAllowedError", target.Name)
}
