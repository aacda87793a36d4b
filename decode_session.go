package main

import (
	"fmt"
	"time"

	"github.com/cwsl/sstv-martinm1/audio_extensions/sstv"
)

// DecodeSession adapts a registered sstv.Mode into a per-connection live
// decoder: it takes PCM16 audio chunks as they arrive and produces the
// binary protocol frames defined in audio_extensions/sstv/protocol.go.
type DecodeSession struct {
	modeName string
	mode     sstv.Mode
	metrics  *DecodeMetrics
	mqtt     *MQTTPublisher
}

// NewDecodeSession constructs a session for the named mode, failing if the
// mode isn't registered.
func NewDecodeSession(modeName string, metrics *DecodeMetrics, mqtt *MQTTPublisher) (*DecodeSession, error) {
	mode, ok := sstv.DefaultRegistry.New(modeName)
	if !ok {
		return nil, fmt.Errorf("unknown sstv mode %q (have: %v)", modeName, sstv.DefaultRegistry.Names())
	}
	return &DecodeSession{modeName: modeName, mode: mode, metrics: metrics, mqtt: mqtt}, nil
}

// Feed pushes one chunk of mono PCM16 audio through the decoder and returns
// the protocol message describing the outcome.
func (s *DecodeSession) Feed(pcm []int16) []byte {
	samples := make([]float32, len(pcm))
	for i, v := range pcm {
		samples[i] = float32(v) / 32768
	}

	start := time.Now()
	result := s.mode.Decode(samples)
	elapsed := time.Since(start)

	if s.metrics != nil {
		s.metrics.chunksReceived.WithLabelValues(s.modeName).Inc()
		s.metrics.decodeLatency.WithLabelValues(s.modeName).Observe(elapsed.Seconds())
		switch result.State {
		case sstv.Finished:
			s.metrics.decodesFinished.WithLabelValues(s.modeName).Inc()
		case sstv.Partial:
			s.metrics.decodesPartial.WithLabelValues(s.modeName).Inc()
		case sstv.NoneFound:
			s.metrics.headerMismatches.WithLabelValues(s.modeName).Inc()
		}
	}

	if result.State == sstv.Finished && s.mqtt != nil {
		s.mqtt.PublishFinished(s.modeName)
	}

	return sstv.EncodeMessage(result)
}
