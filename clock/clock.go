package clock

import (
	"fmt"
	"time"
)

// Clock 仿真运行时钟
// 功能：记录仿真自启动以来的墙钟运行时长，提供时间格式化
// 说明：异步智能体各自按实时步进推进，不存在全局离散步；本时钟只
// 用于心跳日志与轨迹记录的时间戳
type Clock struct {
	start time.Time
}

// New 创建自当前时刻起计的运行时钟
func New() *Clock {
	return &Clock{start: time.Now()}
}

// Elapsed 自启动以来的运行时长
func (c *Clock) Elapsed() time.Duration {
	return time.Since(c.start)
}

// T 自启动以来的运行秒数
func (c *Clock) T() float64 {
	return c.Elapsed().Seconds()
}

// String 获取时钟的字符串表示
// 返回：格式化的运行时长字符串（HH:MM:SS）
// 算法说明：
// 1. 将总秒数转换为小时、分钟、秒
// 2. 格式化为标准时间格式
func (c *Clock) String() string {
	t := int(c.Elapsed().Seconds())
	h := t / 3600
	m := t % 3600 / 60
	s := t % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// GetHourMinuteSecond 获取运行时长的小时、分钟、秒
// 返回：小时、分钟、秒（秒为浮点数，支持亚秒级精度）
func (c *Clock) GetHourMinuteSecond() (int, int, float64) {
	t := c.Elapsed().Seconds()
	hour := int(t) / 3600
	minute := int(t) % 3600 / 60
	second := t - float64(hour*3600+minute*60)
	return hour, minute, second
}
