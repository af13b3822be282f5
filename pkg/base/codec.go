// Copyright 2024, Chef.  All rights reserved.
// https://github.com/homer-conferencing/rtpcore
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)
package base

// CodecId 编解码器标识，对应外部编解码库中的codec id
type CodecId int

const (
	CodecIdUnknown CodecId = iota

	// video
	CodecIdH261
	CodecIdH263
	CodecIdH263P
	CodecIdH264
	CodecIdMpeg4
	CodecIdTheora
	CodecIdVp8
	CodecIdVp9

	// audio
	CodecIdMp3
	CodecIdPcma
	CodecIdPcmu
	CodecIdG722
	CodecIdGsm
	CodecIdAac
	CodecIdAmr
	CodecIdSpeex
	CodecIdOpus
	CodecIdL16
)

func (c CodecId) ReadableString() string {
	switch c {
	case CodecIdH261:
		return "h261"
	case CodecIdH263:
		return "h263"
	case CodecIdH263P:
		return "h263+"
	case CodecIdH264:
		return "h264"
	case CodecIdMpeg4:
		return "mpeg4"
	case CodecIdTheora:
		return "theora"
	case CodecIdVp8:
		return "vp8"
	case CodecIdVp9:
		return "vp9"
	case CodecIdMp3:
		return "mp3"
	case CodecIdPcma:
		return "pcma"
	case CodecIdPcmu:
		return "pcmu"
	case CodecIdG722:
		return "g722"
	case CodecIdGsm:
		return "gsm"
	case CodecIdAac:
		return "aac"
	case CodecIdAmr:
		return "amr"
	case CodecIdSpeex:
		return "speex"
	case CodecIdOpus:
		return "opus"
	case CodecIdL16:
		return "l16"
	}
	return "unknown"
}

func (c CodecId) IsAudio() bool {
	return c >= CodecIdMp3
}

func (c CodecId) IsVideo() bool {
	return c > CodecIdUnknown && c < CodecIdMp3
}

// StreamInfo 打开rtp会话时由编解码层传入的流信息
//
// TimeBase 是编解码层pts的时钟频率，单位Hz。比如pts单位是毫秒，则为1000；音频pts单位是采样数，则等于采样率
type StreamInfo struct {
	Codec      CodecId
	TimeBase   int
	SampleRate int // 只对音频有效
	Channels   int // 只对音频有效
}

// AudioSampleRate 音频采样率，视频流返回0
func (s StreamInfo) AudioSampleRate() int {
	if !s.Codec.IsAudio() {
		return 0
	}
	return s.SampleRate
}

// Frame 解包后交给解码器的一帧数据
//
// Pts 已经由rtp时间戳换算回编解码层的时钟
// Complete 为false表示最后一个分片丢失，帧不完整
type Frame struct {
	Codec    CodecId
	Payload  []byte
	Pts      int64
	Complete bool
}
