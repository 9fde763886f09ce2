// 共享世界状态：智能体之间唯一的观测通道，以及渲染层的只读数据源
package world

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tsinghua-fib-lab/crossing-sim/entity"
)

// Store 共享世界状态存储
// 功能：键值存储（单键原子替换）+ 全量快照读取 + 存活标志
// 说明：读写均为无锁单键操作，快照为Range全量复制；智能体基于可能已
// 过期的快照决策（容忍过期读），不做一致性修正。存活标志是唯一的
// 跨组件取消信号，各循环在循环头轮询
type Store struct {
	data  *xsync.MapOf[string, any]
	alive atomic.Bool
}

// NewStore 创建共享状态存储
// 说明：初始两方向信号灯均为红灯，存活标志置位
func NewStore() *Store {
	s := &Store{data: xsync.NewMapOf[string, any]()}
	s.alive.Store(true)
	s.data.Store(entity.VerticalLightKey, entity.LightRed)
	s.data.Store(entity.HorizontalLightKey, entity.LightRed)
	return s
}

// Alive 查询存活标志
func (s *Store) Alive() bool {
	return s.alive.Load()
}

// Shutdown 清除存活标志
// 说明：所有智能体与控制器循环在一个轮询间隔内观测到并退出
func (s *Store) Shutdown() {
	s.alive.Store(false)
}

// Set 写入单键
func (s *Store) Set(key string, value any) {
	s.data.Store(key, value)
}

// SetPos 发布智能体位置
func (s *Store) SetPos(id string, pos r2.Vec) {
	s.data.Store(id+entity.PosKeySuffix, pos)
}

// SetAngle 发布车辆朝向角（度）
func (s *Store) SetAngle(id string, deg float64) {
	s.data.Store(id+entity.AngleKeySuffix, deg)
}

// SetWaiting 发布行人等待状态
func (s *Store) SetWaiting(id string, waiting bool) {
	s.data.Store(id+entity.WaitingKeySuffix, waiting)
}

// SetLight 发布某轴向的信号灯颜色
func (s *Store) SetLight(axis entity.Axis, color entity.LightColor) {
	s.data.Store(axis.LightKey(), color)
}

// Pos 读取智能体位置
// 说明：缺失或类型不符的条目按不存在处理（错误即缺席）
func (s *Store) Pos(id string) (r2.Vec, bool) {
	v, ok := s.data.Load(id + entity.PosKeySuffix)
	if !ok {
		return r2.Vec{}, false
	}
	p, ok := v.(r2.Vec)
	return p, ok
}

// Light 读取某轴向的信号灯颜色
func (s *Store) Light(axis entity.Axis) (entity.LightColor, bool) {
	v, ok := s.data.Load(axis.LightKey())
	if !ok {
		return entity.LightOff, false
	}
	c, ok := v.(entity.LightColor)
	return c, ok
}

// Snapshot 获取全量快照
// 功能：复制当前所有键值，返回与存储不共享结构的只读副本
// 说明：渲染层每帧调用一次；智能体的感知扫描也基于快照，避免在决策
// 过程中持有任何锁
func (s *Store) Snapshot() Snapshot {
	out := make(Snapshot, s.data.Size())
	s.data.Range(func(k string, v any) bool {
		out[k] = v
		return true
	})
	return out
}
