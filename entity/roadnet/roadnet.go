package roadnet

import (
	"strings"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tsinghua-fib-lab/crossing-sim/entity"
	"github.com/tsinghua-fib-lab/crossing-sim/utils/randengine"
)

// 地图尺寸（像素）
const (
	MapWidth  = 720
	MapHeight = 720

	// SafeCrossingDist 车辆与行人相互感知的安全半径（像素）
	// 说明：行人在该半径内搜索需要协商的车辆，车辆在距斑马线该距离内
	// 开始执行让行评估
	SafeCrossingDist = 150
)

// Graph 有向路点图
// 功能：维护某一类智能体（车辆或行人）的路点坐标与有向邻接关系
// 说明：不变量为邻接表中出现的目标路点必须存在坐标；查询接口对未知
// 路点返回零值与false，由调用方降级处理（重生或回退到地图中心）
type Graph struct {
	coords map[string]r2.Vec
	edges  map[string][]string
}

// newGraph 由字面量数据构建路点图
func newGraph(coords map[string]r2.Vec, edges map[string][]string) *Graph {
	return &Graph{coords: coords, edges: edges}
}

// Coord 查询路点坐标
// 返回：坐标与是否存在
func (g *Graph) Coord(name string) (r2.Vec, bool) {
	v, ok := g.coords[name]
	return v, ok
}

// Next 查询路点的后继列表（副本）
func (g *Graph) Next(name string) []string {
	next := g.edges[name]
	out := make([]string, len(next))
	copy(out, next)
	return out
}

// IsTerminal 判断路点是否为终端（无出边）
func (g *Graph) IsTerminal(name string) bool {
	return len(g.edges[name]) == 0
}

// Names 获取所有路点名
func (g *Graph) Names() []string {
	return lo.Keys(g.coords)
}

// Zone 斑马线区域
// 功能：轴对齐矩形，闭区间判定点是否位于区域内
type Zone struct {
	Xmin, Xmax float64
	Ymin, Ymax float64
}

// Contains 判断位置是否位于区域内（闭区间）
func (z Zone) Contains(p r2.Vec) bool {
	return z.Xmin <= p.X && p.X <= z.Xmax && z.Ymin <= p.Y && p.Y <= z.Ymax
}

// RoadNet 固定路网
// 功能：聚合车辆图、行人图、斑马线区域及各类特殊路点集合，提供
// 路点分类与重生选点等查询
type RoadNet struct {
	Vehicles    *Graph // 车辆路点图
	Pedestrians *Graph // 行人路点图

	stopPoints   map[string]struct{} // 车辆停车线路点
	evalPoints   map[string]struct{} // 车辆让行评估路点
	waitPoints   map[string]struct{} // 行人过街等待点
	zoneByEval   map[string]Zone     // 评估路点→斑马线区域
	pairByWait   map[string]string   // 等待点→对侧等待点
	startsV      []string            // 垂直方向车辆起点
	startsH      []string            // 水平方向车辆起点
	startsPed    []string            // 行人起点
	crossingAxis entity.Axis         // 行人过街所穿越道路的轴向
}

// New 构建固定路网
// 说明：全部数据为编译期字面量（data.go），构建过程只做索引组装
func New() *RoadNet {
	n := &RoadNet{
		Vehicles:    newGraph(vehicleCoords, vehicleEdges),
		Pedestrians: newGraph(pedestrianCoords, pedestrianEdges),
		stopPoints:  toSet(stopPoints),
		evalPoints:  toSet(evalPoints),
		waitPoints:  toSet(waitPoints),
		zoneByEval:  zoneByEval,
		pairByWait:  crossingPairs,
		startsV:     startsVertical,
		startsH:     startsHorizontal,
		startsPed:   pedestrianStarts,
		// 行人过街对（P1↔P4、P2↔P3）均为穿越水平道路
		crossingAxis: entity.AxisHorizontal,
	}
	return n
}

func toSet(xs []string) map[string]struct{} {
	out := make(map[string]struct{}, len(xs))
	for _, x := range xs {
		out[x] = struct{}{}
	}
	return out
}

// Center 地图中心坐标，作为未知路点的降级位置
func (n *RoadNet) Center() r2.Vec {
	return r2.Vec{X: MapWidth / 2, Y: MapHeight / 2}
}

// IsStopPoint 判断是否为车辆停车线路点
func (n *RoadNet) IsStopPoint(name string) bool {
	_, ok := n.stopPoints[name]
	return ok
}

// IsEvalPoint 判断是否为车辆让行评估路点
func (n *RoadNet) IsEvalPoint(name string) bool {
	_, ok := n.evalPoints[name]
	return ok
}

// IsWaitPoint 判断是否为行人过街等待点
func (n *RoadNet) IsWaitPoint(name string) bool {
	_, ok := n.waitPoints[name]
	return ok
}

// ZoneFor 查询评估路点对应的斑马线区域
func (n *RoadNet) ZoneFor(evalPoint string) (Zone, bool) {
	z, ok := n.zoneByEval[evalPoint]
	return z, ok
}

// CrossingPair 查询等待点的对侧等待点
// 说明：原型中的重复分支不可达，此处只保留可达的对称最小表
func (n *RoadNet) CrossingPair(waitPoint string) (string, bool) {
	p, ok := n.pairByWait[waitPoint]
	return p, ok
}

// IsCrossingMove 判断一次移动是否构成从等待点出发的过街
func (n *RoadNet) IsCrossingMove(from, to string) bool {
	p, ok := n.pairByWait[from]
	return ok && p == to
}

// CrossingAxis 行人过街所穿越道路的轴向
func (n *RoadNet) CrossingAxis() entity.Axis {
	return n.crossingAxis
}

// AxisOf 判断车辆路点所属道路的轴向
// 算法说明：H_前缀与PX1_EVAL_H为水平道路，其余（V_前缀与PX1_EVAL_V）
// 为垂直道路
func (n *RoadNet) AxisOf(name string) entity.Axis {
	if strings.HasPrefix(name, "H_") || name == "PX1_EVAL_H" {
		return entity.AxisHorizontal
	}
	return entity.AxisVertical
}

// IsLaneChange 判断车辆的一次移动是否为变道
// 算法说明：
// 1. 两路点名去掉末位后相同且末位车道后缀不同（如V_CHANGE_L→V_CHANGE_C）
// 2. 或同为水平道路路点且车道后缀不同
func (n *RoadNet) IsLaneChange(from, to string) bool {
	if len(from) <= 2 || len(to) <= 2 {
		return false
	}
	if from[:len(from)-1] == to[:len(to)-1] && from[len(from)-1] != to[len(to)-1] {
		return true
	}
	if strings.HasPrefix(from, "H_") && strings.HasPrefix(to, "H_") &&
		from[len(from)-1] != to[len(to)-1] {
		return true
	}
	return false
}

// VehicleStarts 所有车辆起点
func (n *RoadNet) VehicleStarts() []string {
	return append(append([]string{}, n.startsV...), n.startsH...)
}

// PedestrianStarts 行人起点
func (n *RoadNet) PedestrianStarts() []string {
	return append([]string{}, n.startsPed...)
}

// RespawnStart 为到达终端路点的车辆选择重生起点
// 参数：terminal-到达的终端路点名，e-随机数引擎
// 算法说明：垂直方向终端重生于垂直起点，水平方向终端重生于水平起点，
// 其余情况在全部起点中均匀随机
func (n *RoadNet) RespawnStart(terminal string, e *randengine.Engine) string {
	switch {
	case strings.HasPrefix(terminal, "V_END"):
		return randengine.Choice(e, n.startsV)
	case strings.HasPrefix(terminal, "H_END"):
		return randengine.Choice(e, n.startsH)
	default:
		return randengine.Choice(e, n.VehicleStarts())
	}
}
