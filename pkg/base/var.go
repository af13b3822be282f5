// Copyright 2024, Chef.  All rights reserved.
// https://github.com/homer-conferencing/rtpcore
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package base

import "github.com/q191201771/naza/pkg/nazalog"

var Log = nazalog.GetGlobalLogger()

// ----- rtprtcp --------------------
var (
	// DefaultH261PayloadSizeMax h261内部打包器单个rtp包的最大payload大小（不含rtp包头和h261包头）
	DefaultH261PayloadSizeMax = 1400

	// DefaultGenericMtu 通用打包器的mtu
	DefaultGenericMtu = 1400

	// SenderReportIntervalMs 发送端发送rtcp sr的间隔
	SenderReportIntervalMs = 5000

	// DefaultResetScore 收到多少个连续的陌生ssrc的包后，认为发送源切换了
	DefaultResetScore = 3
)
