package usecase

import (
	"errors"

	"voxlate/internal/domain"
	"voxlate/internal/observability"
	"voxlate/internal/ports"
	"voxlate/internal/protocol"
	"voxlate/internal/wav"
)

// pumpBlocks encodes each captured block as one WAV frame and sends it while
// the session is active. Blocks arriving outside Active are dropped. When the
// capture ends on its own the session ends with a device alert.
func (c *SessionController) pumpBlocks(s *activeSession, handle ports.CaptureHandle) {
	sampleRate := c.cfg.Audio.SampleRate
	for block := range handle.Blocks() {
		frame := wav.Encode(block, sampleRate)
		sent, err := s.send(frame)
		if !sent {
			s.logger.Debug().Int("samples", len(block)).Msg("dropping block outside active state")
			continue
		}
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to send audio frame")
			observability.RecordSendFailure("audio")
			continue
		}
		observability.RecordFrameSent(len(frame))
	}

	if s.isClosing() {
		return
	}
	err := handle.Err()
	if err == nil {
		err = errors.New("microphone capture ended")
	}
	s.logger.Warn().Err(err).Msg("microphone capture lost")
	alert := captureAlert(err)
	c.endSession(s, &alert, domain.SessionReasonCaptureLost, endedByPump)
}

func (c *SessionController) sendKeepalive(s *activeSession, frame []byte) error {
	sent, err := s.send(frame)
	if !sent {
		return nil
	}
	if err != nil {
		observability.RecordSendFailure("keepalive")
		return err
	}
	observability.RecordKeepalive()
	return nil
}

// consumeMessages handles inbound messages in delivery order and ends the
// session when the connection goes away.
func (c *SessionController) consumeMessages(s *activeSession, conn ports.Connection) {
	for message := range conn.Messages() {
		c.handleMessage(s, message)
	}

	if s.isClosing() {
		return
	}
	status := conn.CloseStatus()
	alert, reason := closeAlert(status)
	event := s.logger.Info()
	if alert != nil {
		event = s.logger.Warn().AnErr("cause", status.Err)
	}
	event.Int("code", status.Code).Str("text", status.Text).Msg("streaming connection ended")
	c.endSession(s, alert, reason, endedByConsumer)
}

func (c *SessionController) handleMessage(s *activeSession, message domain.InboundMessage) {
	if s.getState() != domain.SessionStateActive {
		observability.RecordInbound("dropped")
		s.logger.Debug().Int("bytes", len(message.Payload)).Msg("dropping message received before active state")
		return
	}
	if message.Binary {
		observability.RecordInbound("binary")
		return
	}

	result, err := protocol.Classify(message.Payload)
	if err != nil {
		observability.RecordInbound("malformed")
		s.logger.Warn().Err(err).Msg("ignoring malformed message")
		return
	}

	switch r := result.(type) {
	case protocol.Recognition:
		observability.RecordInbound("recognition")
		c.applyRecognition(r)
	case protocol.ServiceErrorResult:
		observability.RecordInbound("service_error")
		s.logger.Warn().Err(r.Err()).Str("error_code", r.Code).Msg("service reported an error")
		alert := serviceAlert(r.Code)
		c.setAlert(&alert)
	case protocol.Unrecognized:
		observability.RecordInbound("unrecognized")
		s.logger.Debug().Str("action", r.Action).Msg("ignoring unrecognized message")
	}
}

// applyRecognition updates the current utterance and, on a final result,
// appends it to the history and clears the current utterance.
func (c *SessionController) applyRecognition(r protocol.Recognition) {
	if r.Context == "" || r.TranContent == "" {
		return
	}
	if r.Partial {
		c.transcript.SetCurrent(domain.Utterance{SourceText: r.Context, TranslatedText: r.TranContent})
	} else {
		c.transcript.AppendFinal(domain.TranscriptEntry{
			ID:             c.newID(),
			Timestamp:      c.now(),
			SourceText:     r.Context,
			TranslatedText: r.TranContent,
		})
		c.transcript.ClearCurrent()
	}
	c.publishTranscript()
}
