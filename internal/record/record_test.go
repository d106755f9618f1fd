package record

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitTextFormat(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(&buf, FormatText)
	ts := time.Date(2026, 7, 30, 12, 0, 0, 123456000, time.UTC)
	err := s.Emit(Record{Demod: "POCSAG512", Time: ts, Fields: []string{"addr=1234", "func=0"}, Payload: "hello"})
	require.NoError(t, err)

	line := strings.TrimRight(buf.String(), "\n")
	parts := strings.Split(line, "|")
	require.Len(t, parts, 5)
	assert.Equal(t, "POCSAG512", parts[0])
	assert.Equal(t, "2026-07-30T12:00:00.123456", parts[1])
	assert.Equal(t, "addr=1234", parts[2])
	assert.Equal(t, "func=0", parts[3])
	assert.Equal(t, "hello", parts[4])
}

func TestEmitJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(&buf, FormatJSON)
	ts := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	err := s.Emit(Record{Demod: "FLEX", Time: ts, Payload: "page text"})
	require.NoError(t, err)

	var obj map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &obj))
	assert.Equal(t, "FLEX", obj["demod"])
	assert.Equal(t, "page text", obj["payload"])
	assert.Nil(t, obj["partial"])
}

func TestEmitIsSerializedAcrossGoroutines(t *testing.T) {
	var buf bytes.Buffer
	s := NewSink(&buf, FormatText)
	done := make(chan struct{})
	for i := 0; i < 20; i++ {
		go func() {
			_ = s.Emit(Record{Demod: "X", Payload: "p"})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 20; i++ {
		<-done
	}
	assert.Equal(t, 20, strings.Count(buf.String(), "\n"))
}
