package usecase

import (
	"strings"

	"voxlate/internal/domain"
	"voxlate/internal/errorsx"
)

const (
	connectionErrorMessage = "Connection error with translation service"
	abnormalCloseMessage   = "Connection closed abnormally. This may be due to network issues or firewall settings."
	abnormalCloseCode      = 1006
)

func errorAlert(code domain.ErrorCode, message string) domain.ServiceAlert {
	return domain.ServiceAlert{Kind: domain.AlertKindError, Code: code, Message: message}
}

func providerAlert(err error) domain.ServiceAlert {
	message := strings.TrimSpace(err.Error())
	if message == "" {
		message = "Failed to start recording"
	}
	return errorAlert(domain.ErrorCodeProvider, message)
}

func connectionAlert() domain.ServiceAlert {
	return errorAlert(domain.ErrorCodeConnection, connectionErrorMessage)
}

func captureAlert(err error) domain.ServiceAlert {
	if errorsx.Is(err, errorsx.ReasonPermission) {
		return errorAlert(domain.ErrorCodePermission, "Microphone access was denied")
	}
	message := "Failed to access microphone"
	if detail := strings.TrimSpace(err.Error()); detail != "" {
		message += ": " + detail
	}
	return errorAlert(domain.ErrorCodeDevice, message)
}

func serviceAlert(code string) domain.ServiceAlert {
	return errorAlert(domain.ErrorCodeService, "Translation error: "+code)
}

// closeAlert maps how a connection ended to an alert. Normal closes are silent.
func closeAlert(status domain.CloseStatus) (*domain.ServiceAlert, domain.SessionStateReason) {
	if status.Code == abnormalCloseCode {
		alert := errorAlert(domain.ErrorCodeAbnormal, abnormalCloseMessage)
		return &alert, domain.SessionReasonConnectionAbnormal
	}
	if status.Err != nil {
		alert := connectionAlert()
		return &alert, domain.SessionReasonConnectionFailed
	}
	return nil, domain.SessionReasonConnectionClosed
}
