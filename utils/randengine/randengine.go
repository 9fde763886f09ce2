// 随机数引擎，包装了golang.org/x/exp/rand，提供了智能体常用的随机数生成方法
package randengine

import (
	"flag"
	"sync"

	"golang.org/x/exp/rand"
)

var (
	seedOffset = flag.Uint64("rand.seed_offset", 0, "seed offset") // 种子偏移量，用于调整随机数生成
)

// Engine 随机数引擎
// 功能：提供线程安全的随机数生成，每个智能体持有独立实例
// 说明：基于golang.org/x/exp/rand库；智能体循环与消息接收可能在不同
// goroutine中触发采样，因此统一走Safe方法
type Engine struct {
	*rand.Rand            // 底层随机数生成器
	mtx        sync.Mutex // 互斥锁，用于线程安全操作
}

// New 创建随机数引擎
// 参数：seed-随机数种子
// 说明：种子偏移量允许在不修改代码的情况下调整随机数序列
func New(seed uint64) *Engine {
	return &Engine{Rand: rand.New(rand.NewSource(seed + *seedOffset))}
}

// IntnSafe 随机生成[0, n)内整数（线程安全）
func (e *Engine) IntnSafe(n int) int {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.Intn(n)
}

// Float64Safe 随机生成[0.0, 1.0)内浮点数（线程安全）
func (e *Engine) Float64Safe() float64 {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.Float64()
}

// UniformSafe 随机生成[lo, hi)内均匀分布浮点数（线程安全）
// 说明：用于行人退避与重试等随机等待时长的采样
func (e *Engine) UniformSafe(lo, hi float64) float64 {
	if hi <= lo {
		return lo
	}
	return lo + e.Float64Safe()*(hi-lo)
}

// PTrueSafe 以指定概率返回true（线程安全）
// 参数：p-返回true的概率（0.0到1.0之间）
// 说明：实现伯努利分布，用于学习变体的ε-贪心探索
func (e *Engine) PTrueSafe(p float64) bool {
	return e.Float64Safe() < p
}

// Choice 从切片中均匀随机选取一个元素（线程安全）
// 说明：空切片返回零值，由调用方保证非空或处理零值
func Choice[T any](e *Engine, xs []T) T {
	var zero T
	if len(xs) == 0 {
		return zero
	}
	return xs[e.IntnSafe(len(xs))]
}
