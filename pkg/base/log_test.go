// Copyright 2024, Chef.  All rights reserved.
// https://github.com/homer-conferencing/rtpcore
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/homer-conferencing/rtpcore/pkg/base"
	"github.com/q191201771/naza/pkg/assert"
	"github.com/q191201771/naza/pkg/nazalog"
)

func TestLogDump(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "dump.log")
	l, err := nazalog.New(func(option *nazalog.Option) {
		option.Level = nazalog.LevelDebug
		option.Filename = filename
		option.IsToStdout = false
		option.ShortFileFlag = true
	})
	assert.Equal(t, nil, err)

	ld := base.NewLogDump(l, "RTPSESSION1", 2)
	for i := 0; i < 3; i++ {
		if ld.ShouldDump() {
			ld.Outf("parse. seq=%d", i)
		}
	}
	ld.Reset()
	assert.Equal(t, true, ld.ShouldDump())
	l.Sync()

	content, err := os.ReadFile(filename)
	assert.Equal(t, nil, err)
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	assert.Equal(t, 2, len(lines))
	for i, line := range lines {
		assert.Equal(t, true, strings.Contains(line, "[RTPSESSION1] parse. seq="+string(rune('0'+i))), line)
		// 文件名和行号是调用 Outf 的位置
		assert.Equal(t, true, strings.Contains(line, " - log_test.go:"), line)
	}
}

func TestLogDumpTraceLevel(t *testing.T) {
	l, err := nazalog.New(func(option *nazalog.Option) {
		option.Level = nazalog.LevelTrace
		option.IsToStdout = false
	})
	assert.Equal(t, nil, err)
	ld := base.NewLogDump(l, "TEST", 1)
	for i := 0; i < 5; i++ {
		assert.Equal(t, true, ld.ShouldDump())
	}

	l, err = nazalog.New(func(option *nazalog.Option) {
		option.Level = nazalog.LevelInfo
		option.IsToStdout = false
	})
	assert.Equal(t, nil, err)
	ld = base.NewLogDump(l, "TEST", 1)
	assert.Equal(t, false, ld.ShouldDump())
}
