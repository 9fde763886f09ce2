package config

import "time"

// RuntimeConfig 运行时配置
// 功能：存储仿真运行时的配置信息，缺省值已填充
type RuntimeConfig struct {
	All Config  // 全部配置
	C   Control // 全局控制配置
}

// NewRuntimeConfig 根据配置初始化全局变量
// 功能：创建运行时配置对象并填充缺省值
// 参数：config-原始配置对象
// 返回：初始化的运行时配置指针
// 算法说明：对未指定（零值）的字段逐项填充缺省值
func NewRuntimeConfig(config Config) *RuntimeConfig {
	rc := &RuntimeConfig{}

	if config.Control.TickVehicle <= 0 {
		config.Control.TickVehicle = 0.05
	}
	if config.Control.TickPedestrian <= 0 {
		config.Control.TickPedestrian = 0.1
	}
	if config.Control.MonitorInterval <= 0 {
		config.Control.MonitorInterval = 0.5
	}
	if config.Control.ResponseTimeout <= 0 {
		config.Control.ResponseTimeout = 3.0
	}
	if config.Agents.NumVehicles <= 0 {
		config.Agents.NumVehicles = 3
	}
	if config.Agents.NumPedestrians <= 0 {
		config.Agents.NumPedestrians = 2
	}
	if config.Agents.SpeedMin <= 0 {
		config.Agents.SpeedMin = 4
	}
	if config.Agents.SpeedMax <= config.Agents.SpeedMin {
		config.Agents.SpeedMax = config.Agents.SpeedMin + 2
	}
	if config.Learning.Episodes <= 0 {
		config.Learning.Episodes = 200
	}
	if config.Learning.Epsilon <= 0 || config.Learning.Epsilon >= 1 {
		config.Learning.Epsilon = 0.1
	}
	if config.Output.Interval <= 0 {
		config.Output.Interval = 0.5
	}

	rc.All = config
	rc.C = config.Control

	return rc
}

// Duration 将秒数配置转换为时长
func Duration(seconds float64) time.Duration {
	return time.Duration(seconds * float64(time.Second))
}
