// Copyright 2024, Chef.  All rights reserved.
// https://github.com/homer-conferencing/rtpcore
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)
package base

import "github.com/q191201771/naza/pkg/unique"

const (
	UkPreRtpSession = "RTPSESSION"
	UkPreLoopback   = "LOOPBACK"
)

func GenUkRtpSession() string {
	return siUkRtpSession.GenUniqueKey()
}

func GenUkLoopback() string {
	return siUkLoopback.GenUniqueKey()
}

var (
	siUkRtpSession *unique.SingleGenerator
	siUkLoopback   *unique.SingleGenerator
)

func init() {
	siUkRtpSession = unique.NewSingleGenerator(UkPreRtpSession)
	siUkLoopback = unique.NewSingleGenerator(UkPreLoopback)
}
