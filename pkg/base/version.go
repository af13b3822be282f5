// Copyright 2024, Chef.  All rights reserved.
// https://github.com/homer-conferencing/rtpcore
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)
package base

// 版本信息相关
// 一部分版本信息使用了naza.bininfo

// RtpCoreVersion 整个工程的版本号。注意，该变量由外部脚本修改维护，不要手动在代码中修改
const RtpCoreVersion = "v0.3.0"

var (
	RtpCoreLibraryName = "rtpcore"
	RtpCoreGithubRepo  = "github.com/homer-conferencing/rtpcore"

	// RtpCoreFullInfo e.g. rtpcore v0.3.0 (github.com/homer-conferencing/rtpcore)
	RtpCoreFullInfo = RtpCoreLibraryName + " " + RtpCoreVersion + " (" + RtpCoreGithubRepo + ")"
)
