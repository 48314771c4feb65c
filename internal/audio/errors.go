package audio

import (
	"errors"
	"strings"

	"github.com/gordonklaus/portaudio"

	"voxlate/internal/errorsx"
)

var permissionMarkers = []string{
	"permission denied",
	"operation not permitted",
	"access denied",
	"not authorized",
}

// classifyStartErr tags a capture start failure as a permission or device error.
func classifyStartErr(err error, detail string) error {
	if err == nil {
		return nil
	}
	text := strings.ToLower(err.Error() + " " + detail)
	for _, marker := range permissionMarkers {
		if strings.Contains(text, marker) {
			return errorsx.Wrap(err, errorsx.ReasonPermission)
		}
	}
	return errorsx.Wrap(err, errorsx.ReasonDevice)
}

// classifyPortAudioErr maps portaudio error codes onto capture reasons.
func classifyPortAudioErr(err error) error {
	if err == nil {
		return nil
	}
	var paErr portaudio.Error
	if errors.As(err, &paErr) {
		switch paErr {
		case portaudio.DeviceUnavailable, portaudio.InvalidDevice:
			return errorsx.Wrap(err, errorsx.ReasonDevice)
		}
	}
	return classifyStartErr(err, "")
}
