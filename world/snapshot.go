package world

import (
	"strings"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tsinghua-fib-lab/crossing-sim/entity"
)

// Snapshot 共享状态的全量副本
// 说明：由Store.Snapshot产生，只读使用；所有取值方法把缺失或畸形条目
// 视为不存在
type Snapshot map[string]any

// Pos 读取智能体位置
func (sn Snapshot) Pos(id string) (r2.Vec, bool) {
	v, ok := sn[id+entity.PosKeySuffix]
	if !ok {
		return r2.Vec{}, false
	}
	p, ok := v.(r2.Vec)
	return p, ok
}

// Angle 读取车辆朝向角（度）
func (sn Snapshot) Angle(id string) (float64, bool) {
	v, ok := sn[id+entity.AngleKeySuffix]
	if !ok {
		return 0, false
	}
	a, ok := v.(float64)
	return a, ok
}

// Waiting 读取行人等待状态
func (sn Snapshot) Waiting(id string) bool {
	v, ok := sn[id+entity.WaitingKeySuffix]
	if !ok {
		return false
	}
	w, ok := v.(bool)
	return ok && w
}

// Light 读取某轴向的信号灯颜色
func (sn Snapshot) Light(axis entity.Axis) (entity.LightColor, bool) {
	v, ok := sn[axis.LightKey()]
	if !ok {
		return entity.LightOff, false
	}
	c, ok := v.(entity.LightColor)
	return c, ok
}

// EachPos 遍历具有指定ID前缀的智能体位置
// 参数：prefix-智能体ID前缀（Carro/Pessoa），exclude-要跳过的自身ID，
// fn-回调（返回false提前终止）
// 说明：车辆的排队检测、障碍扫描与行人的邻近车辆搜索均基于该遍历
func (sn Snapshot) EachPos(prefix, exclude string, fn func(id string, pos r2.Vec) bool) {
	for key, v := range sn {
		if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, entity.PosKeySuffix) {
			continue
		}
		id := strings.TrimSuffix(key, entity.PosKeySuffix)
		if id == exclude {
			continue
		}
		pos, ok := v.(r2.Vec)
		if !ok {
			continue
		}
		if !fn(id, pos) {
			return
		}
	}
}
