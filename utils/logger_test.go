/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLogLevel("DEBUG"))
	assert.Equal(t, logrus.WarnLevel, ParseLogLevel(" warning "))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel(""))
	assert.Equal(t, logrus.InfoLevel, ParseLogLevel("nope"))
}

func TestNewLoggerIsRegisteredOnce(t *testing.T) {
	a := NewLogger("registry-test")
	b := NewLogger("registry-test")
	assert.Same(t, a, b)
	assert.Contains(t, LoggerNames(), "registry-test")

	assert.True(t, SetLoggerLevel("registry-test", "error"))
	assert.Equal(t, logrus.ErrorLevel, a.GetLevel())
	assert.False(t, SetLoggerLevel("missing-logger", "error"))
}

func TestConsoleFormatter(t *testing.T) {
	f := &ConsoleFormatter{LoggerName: "roster", NameWidth: 6, DisableColors: true}
	entry := &logrus.Entry{
		Time:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.InfoLevel,
		Message: "saved",
		Data:    logrus.Fields{"table": "member", "id": 1},
	}
	out, err := f.Format(entry)
	require.NoError(t, err)
	line := string(out)
	assert.Contains(t, line, "2025-01-02 03:04:05.000")
	assert.Contains(t, line, "   INFO")
	assert.Contains(t, line, "roster : saved id=1 table=member")
}

func TestJSONLogFormatter(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&JSONLogFormatter{LoggerName: "json-test"})
	l.WithField("error", errors.New("boom")).Warn("failed")

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "warning", rec["level"])
	assert.Equal(t, "json-test", rec["logger"])
	assert.Equal(t, "failed", rec["message"])
	assert.Equal(t, "boom", rec["fields"].(map[string]interface{})["error"])
}

func TestEnvDefaults(t *testing.T) {
	t.Setenv("ROSTER_TEST_INT", "42")
	t.Setenv("ROSTER_TEST_BAD_INT", "x")
	t.Setenv("ROSTER_TEST_DURATION", "250ms")
	t.Setenv("ROSTER_TEST_BOOL", "true")

	assert.Equal(t, 42, EnvDefaultInt("ROSTER_TEST_INT", 1))
	assert.Equal(t, 1, EnvDefaultInt("ROSTER_TEST_BAD_INT", 1))
	assert.Equal(t, 250*time.Millisecond, EnvDefaultDuration("ROSTER_TEST_DURATION", time.Second))
	assert.True(t, EnvDefaultBool("ROSTER_TEST_BOOL", false))
	assert.Equal(t, "fallback", EnvDefaultString("ROSTER_TEST_UNSET", "fallback"))
}
