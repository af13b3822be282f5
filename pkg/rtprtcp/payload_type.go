// Copyright 2024, Chef.  All rights reserved.
// https://github.com/homer-conferencing/rtpcore
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package rtprtcp

import (
	"strings"

	"github.com/homer-conferencing/rtpcore/pkg/base"
)

// 静态负载类型见rfc3551 6.，没有静态分配的编码使用96~127的动态范围

const (
	PayloadTypePcmu   = 0
	PayloadTypeGsm    = 3
	PayloadTypePcma   = 8
	PayloadTypeG722   = 9
	PayloadTypeMpa    = 14
	PayloadTypeH261   = 31
	PayloadTypeH263   = 34
	PayloadTypeH264   = 96
	PayloadTypeMpeg4  = 97
	PayloadTypeTheora = 98
	PayloadTypeVp8    = 99
	PayloadTypeVp9    = 100
	PayloadTypeH263P  = 101
	PayloadTypeAac    = 102
	PayloadTypeAmr    = 103
	PayloadTypeSpeex  = 104
	PayloadTypeOpus   = 105
	PayloadTypeL16    = 106

	PayloadTypeDynamicMin = 96
	PayloadTypeDynamicMax = 127
)

type payloadTypeItem struct {
	name    string
	id      uint8
	codecId base.CodecId
	desc    string
}

var payloadTypeItems = []payloadTypeItem{
	{"PCMU", PayloadTypePcmu, base.CodecIdPcmu, "G.711 mu-law audio"},
	{"GSM", PayloadTypeGsm, base.CodecIdGsm, "GSM full rate audio"},
	{"PCMA", PayloadTypePcma, base.CodecIdPcma, "G.711 a-law audio"},
	{"G722", PayloadTypeG722, base.CodecIdG722, "G.722 wideband audio"},
	{"MPA", PayloadTypeMpa, base.CodecIdMp3, "MPEG audio (mp3)"},
	{"H261", PayloadTypeH261, base.CodecIdH261, "H.261 video"},
	{"H263", PayloadTypeH263, base.CodecIdH263, "H.263 video"},
	{"H264", PayloadTypeH264, base.CodecIdH264, "H.264 video"},
	{"MPEG4", PayloadTypeMpeg4, base.CodecIdMpeg4, "MPEG-4 part 2 video"},
	{"THEORA", PayloadTypeTheora, base.CodecIdTheora, "Theora video"},
	{"VP8", PayloadTypeVp8, base.CodecIdVp8, "VP8 video"},
	{"VP9", PayloadTypeVp9, base.CodecIdVp9, "VP9 video"},
	{"H263P", PayloadTypeH263P, base.CodecIdH263P, "H.263+ (1998) video"},
	{"AAC", PayloadTypeAac, base.CodecIdAac, "AAC audio"},
	{"AMR", PayloadTypeAmr, base.CodecIdAmr, "AMR narrowband audio"},
	{"SPEEX", PayloadTypeSpeex, base.CodecIdSpeex, "Speex audio"},
	{"OPUS", PayloadTypeOpus, base.CodecIdOpus, "Opus audio"},
	{"L16", PayloadTypeL16, base.CodecIdL16, "linear 16 bit PCM audio"},
}

var (
	name2Item    = make(map[string]*payloadTypeItem)
	id2Item      = make(map[uint8]*payloadTypeItem)
	codecId2Item = make(map[base.CodecId]*payloadTypeItem)
)

func init() {
	for i := range payloadTypeItems {
		item := &payloadTypeItems[i]
		name2Item[item.name] = item
		id2Item[item.id] = item
		codecId2Item[item.codecId] = item
	}
}

// CodecToPayloadId 编码名称（不区分大小写）转换为负载类型
func CodecToPayloadId(name string) (uint8, bool) {
	item, ok := name2Item[strings.ToUpper(name)]
	if !ok {
		return 0, false
	}
	return item.id, true
}

// PayloadIdToCodec 负载类型转换为编码名称，不支持时返回空字符串
func PayloadIdToCodec(id uint8) string {
	item, ok := id2Item[id]
	if !ok {
		return ""
	}
	return item.name
}

// PayloadTypeName 负载类型的可读描述，用于日志
func PayloadTypeName(id uint8) string {
	if item, ok := id2Item[id]; ok {
		return item.desc
	}
	if id >= PayloadTypeDynamicMin && id <= PayloadTypeDynamicMax {
		return "dynamic"
	}
	return "unknown"
}

// IsPayloadSupported 编码名称是否存在负载类型映射
func IsPayloadSupported(name string) bool {
	_, ok := name2Item[strings.ToUpper(name)]
	return ok
}

func CodecIdToPayloadId(codecId base.CodecId) (uint8, bool) {
	item, ok := codecId2Item[codecId]
	if !ok {
		return 0, false
	}
	return item.id, true
}

func PayloadIdToCodecId(id uint8) base.CodecId {
	item, ok := id2Item[id]
	if !ok {
		return base.CodecIdUnknown
	}
	return item.codecId
}

// GetPayloadHeaderSizeMax 负载头的最大长度，不含rtp包头
func GetPayloadHeaderSizeMax(codecId base.CodecId) int {
	switch codecId {
	case base.CodecIdH261:
		return h261PayloadHeaderLength // rfc4587
	case base.CodecIdH263:
		return h263PayloadHeaderLength // rfc2190 mode A
	case base.CodecIdH263P:
		return h263pPayloadHeaderLength // rfc4629
	case base.CodecIdMp3:
		return mpaPayloadHeaderLength // rfc2250
	case base.CodecIdH264:
		return 2 // FU-A indicator + header
	}
	return 0
}

// GetHeaderSizeMax rtp包头和负载头加起来的最大长度
func GetHeaderSizeMax(codecId base.CodecId) int {
	return RtpFixedHeaderLength + GetPayloadHeaderSizeMax(codecId)
}
