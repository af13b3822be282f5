// Copyright 2024, Chef.  All rights reserved.
// https://github.com/homer-conferencing/rtpcore
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)
package base

import (
	"fmt"

	"github.com/q191201771/naza/pkg/nazalog"
)

// LogDump 控制逐包日志的打印次数
//
// trace级别时每个包都打印，debug级别时只打印前 debugMaxNum 个包，其他级别不打印
type LogDump struct {
	log         nazalog.Logger
	uniqueKey   string
	debugMaxNum int

	debugCount int
}

// NewLogDump
//
// @param uniqueKey:   打印时作为前缀，一般是会话的唯一标识
// @param debugMaxNum: 日志最小级别为debug时，使用debug打印日志次数的阈值
func NewLogDump(log nazalog.Logger, uniqueKey string, debugMaxNum int) LogDump {
	return LogDump{
		log:         log,
		uniqueKey:   uniqueKey,
		debugMaxNum: debugMaxNum,
	}
}

func (ld *LogDump) ShouldDump() bool {
	switch ld.log.GetOption().Level {
	case nazalog.LevelTrace:
		return true
	case nazalog.LevelDebug:
		if ld.debugCount >= ld.debugMaxNum {
			return false
		}
		ld.debugCount++
		return true
	}
	return false
}

// Outf 调用之前需调用 ShouldDump ，避免不需要打印日志时构造实参的开销
func (ld *LogDump) Outf(format string, v ...interface{}) {
	// 调用栈: Out -> Outf -> Outf的调用方
	ld.log.Out(ld.log.GetOption().Level, 2, fmt.Sprintf("[%s] ", ld.uniqueKey)+fmt.Sprintf(format, v...))
}

// Reset 发送源切换后重新开始计数
func (ld *LogDump) Reset() {
	ld.debugCount = 0
}
