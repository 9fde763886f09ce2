package signal

import (
	"sync/atomic"
	"time"

	"github.com/tsinghua-fib-lab/crossing-sim/entity"
	"github.com/tsinghua-fib-lab/crossing-sim/world"
)

// phase 信号灯相位
// 说明：一个相位由（垂直颜色，水平颜色，持续时间）构成
type phase struct {
	vertical   entity.LightColor
	horizontal entity.LightColor
	duration   time.Duration
}

// cycle 固定相位表
// 说明：四相位循环，总周期4+2+4+2=12秒，顺序固定
var cycle = [...]phase{
	{entity.LightGreen, entity.LightRed, 4 * time.Second},
	{entity.LightYellow, entity.LightRed, 2 * time.Second},
	{entity.LightRed, entity.LightGreen, 4 * time.Second},
	{entity.LightRed, entity.LightYellow, 2 * time.Second},
}

// pollInterval 等待相位时的存活标志轮询间隔
const pollInterval = 50 * time.Millisecond

// Controller 路口信号控制器
// 功能：按固定相位表循环切换两方向信号灯，每次切换后把颜色同时写入
// 共享状态与结构化感知；存活标志清除后在一个轮询间隔内退出
// 说明：相位推进（advance）与发布（apply）为纯内存操作，不含睡眠，
// 周期性质可直接测试
type Controller struct {
	store *world.Store

	idx     int                                 // 当前相位下标
	percept atomic.Pointer[entity.SignalPercept] // 当前结构化感知
}

// NewController 创建信号控制器并发布初始相位
func NewController(store *world.Store) *Controller {
	c := &Controller{store: store}
	c.apply()
	return c
}

// Percept 获取当前结构化感知（实现entity.ISignal）
func (c *Controller) Percept() entity.SignalPercept {
	return *c.percept.Load()
}

// apply 发布当前相位
// 功能：把当前相位的两个颜色写入共享状态与感知快照
func (c *Controller) apply() {
	p := cycle[c.idx]
	c.store.SetLight(entity.AxisVertical, p.vertical)
	c.store.SetLight(entity.AxisHorizontal, p.horizontal)
	c.percept.Store(&entity.SignalPercept{Vertical: p.vertical, Horizontal: p.horizontal})
	log.Debugf("phase %d: v=%s h=%s", c.idx, p.vertical, p.horizontal)
}

// advance 推进到下一相位并发布
func (c *Controller) advance() {
	c.idx = (c.idx + 1) % len(cycle)
	c.apply()
}

// Run 相位循环
// 算法说明：
// 1. 等待当前相位的持续时间，期间按pollInterval轮询存活标志
// 2. 推进并发布下一相位
// 3. 存活标志清除后退出
func (c *Controller) Run() {
	log.Infof("signal controller started, cycle period %v", c.Period())
	for c.store.Alive() {
		if !c.sleepAlive(cycle[c.idx].duration) {
			break
		}
		c.advance()
	}
	log.Info("signal controller stopped")
}

// sleepAlive 可中断睡眠
// 返回：true表示睡满时长，false表示存活标志已清除
func (c *Controller) sleepAlive(d time.Duration) bool {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if !c.store.Alive() {
			return false
		}
		time.Sleep(pollInterval)
	}
	return c.store.Alive()
}

// Period 计算完整周期时长
func (c *Controller) Period() time.Duration {
	var total time.Duration
	for _, p := range cycle {
		total += p.duration
	}
	return total
}
