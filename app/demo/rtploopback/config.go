// Copyright 2024, Chef.  All rights reserved.
// https://github.com/homer-conferencing/rtpcore
//
// Use of this source code is governed by a MIT-style license
// that can be found in the License file.
//
// Author: Chef (191201771@qq.com)

package main

import (
	"encoding/json"
	"os"

	"github.com/q191201771/naza/pkg/nazajson"
	"github.com/q191201771/naza/pkg/nazalog"
)

type Config struct {
	Codec              string `json:"codec"`
	FrameNum           int    `json:"frame_num"`
	FrameSize          int    `json:"frame_size"`
	FrameIntervalMs    int    `json:"frame_interval_ms"`
	SampleRate         int    `json:"sample_rate"`
	H261PayloadSizeMax int    `json:"h261_payload_size_max"`
	LocalPort          int    `json:"local_port"`

	// DropEveryN 每N个rtp包模拟丢掉一个，0表示不丢包
	DropEveryN int `json:"drop_every_n"`

	Log nazalog.Option `json:"log"`
}

func LoadConf(confFile string) (*Config, error) {
	var config Config
	rawContent, err := os.ReadFile(confFile)
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(rawContent, &config); err != nil {
		return nil, err
	}

	j, err := nazajson.New(rawContent)
	if err != nil {
		return nil, err
	}

	// 配置不存在时，设置默认值
	if !j.Exist("codec") {
		config.Codec = "H261"
	}
	if !j.Exist("frame_num") {
		config.FrameNum = 250
	}
	if !j.Exist("frame_size") {
		config.FrameSize = 3500
	}
	if !j.Exist("frame_interval_ms") {
		config.FrameIntervalMs = 40
	}
	if !j.Exist("sample_rate") {
		config.SampleRate = 8000
	}
	if !j.Exist("h261_payload_size_max") {
		config.H261PayloadSizeMax = 1400
	}
	if !j.Exist("log.level") {
		config.Log.Level = nazalog.LevelDebug
	}
	if !j.Exist("log.filename") {
		config.Log.Filename = "./logs/rtploopback.log"
	}
	if !j.Exist("log.is_to_stdout") {
		config.Log.IsToStdout = true
	}
	if !j.Exist("log.is_rotate_daily") {
		config.Log.IsRotateDaily = true
	}
	if !j.Exist("log.short_file_flag") {
		config.Log.ShortFileFlag = true
	}
	if !j.Exist("log.assert_behavior") {
		config.Log.AssertBehavior = nazalog.AssertError
	}

	return &config, nil
}
