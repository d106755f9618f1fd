package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"

	charmlog "github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestSetVerboseMapsLevels(t *testing.T) {
	SetVerbose(0)
	assert.Equal(t, charmlog.WarnLevel, base.GetLevel())
	SetVerbose(1)
	assert.Equal(t, charmlog.InfoLevel, base.GetLevel())
	SetVerbose(2)
	assert.Equal(t, charmlog.DebugLevel, base.GetLevel())
	SetVerbose(0)
}

func TestForAttachesScopeFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetVerbose(2)
	defer func() {
		SetOutput(os.Stderr)
		SetVerbose(0)
	}()

	l := For("pocsag", 1)
	l.Info("test message")

	out := buf.String()
	assert.True(t, strings.Contains(out, "demod=pocsag") || strings.Contains(out, "pocsag"))
	assert.True(t, strings.Contains(out, "channel=1") || strings.Contains(out, "1"))
}
