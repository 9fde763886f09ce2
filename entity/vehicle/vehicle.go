package vehicle

import (
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tsinghua-fib-lab/crossing-sim/entity"
	"github.com/tsinghua-fib-lab/crossing-sim/entity/roadnet"
	"github.com/tsinghua-fib-lab/crossing-sim/entity/signal"
	"github.com/tsinghua-fib-lab/crossing-sim/utils/randengine"
	"github.com/tsinghua-fib-lab/crossing-sim/world"
)

// 车辆几何与行为参数（像素/秒）
const (
	carWidth  = 40.0 // 车宽
	carLength = 80.0 // 车长

	safeGapAtLight = carLength * 0.5 // 排队时与前车的附加安全间距
	laneCheckDist  = carLength * 2.5 // 变道目标车道的前瞻检查距离
	stopLineMargin = 10.0            // 学习变体中越过停车线的判定余量
)

// State 车辆状态机状态
type State int

const (
	StateCruising         State = iota // 巡航：选择并驶向下一路点
	StateQueuedAtStop                  // 在停车线或队尾停车等待
	StateChangingLane                  // 变道受阻，冷却后重试
	StateNegotiatingYield              // 处理行人过街请求
	StateMonitoringYield               // 监视已让行的行人
)

func (s State) String() string {
	switch s {
	case StateCruising:
		return "cruising"
	case StateQueuedAtStop:
		return "queued"
	case StateChangingLane:
		return "changing_lane"
	case StateNegotiatingYield:
		return "negotiating"
	case StateMonitoringYield:
		return "monitoring"
	}
	return "unknown"
}

// yieldBelief 让行信念
// 说明：车辆承诺为某行人停车，直至其离开相关斑马线区域
type yieldBelief struct {
	pedestrianID string
	evalPoint    string
}

// Options 车辆行为参数
type Options struct {
	Tick            time.Duration // 移动步进间隔
	MonitorInterval time.Duration // 让行监视轮询间隔
	LaneChangeWait  time.Duration // 变道受阻后的冷却时长
	ZonePause       time.Duration // 斑马线有行人时的暂停时长

	// Policy 学习变体的停/行策略；nil表示纯规则（红黄灯停）
	Policy signal.Policy
	// YieldPolicy 让行决策，按行人ID返回是否让行；nil表示总是让行
	YieldPolicy func(pedestrianID string) bool
}

// withDefaults 填充缺省行为参数
func (o Options) withDefaults() Options {
	if o.Tick <= 0 {
		o.Tick = 50 * time.Millisecond
	}
	if o.MonitorInterval <= 0 {
		o.MonitorInterval = 500 * time.Millisecond
	}
	if o.LaneChangeWait <= 0 {
		o.LaneChangeWait = 500 * time.Millisecond
	}
	if o.ZonePause <= 0 {
		o.ZonePause = 200 * time.Millisecond
	}
	if o.YieldPolicy == nil {
		o.YieldPolicy = func(string) bool { return true }
	}
	return o
}

// Vehicle 车辆智能体
// 功能：每个决策周期执行排队检测、避障、变道门控、行人让行协商与
// 信号灯合规，经共享状态观测其他智能体，经消息总线完成协商
// 说明：全部字段仅由自身goroutine访问；与外界的交互只有共享状态的
// 单键读写、快照复制与信箱收发
type Vehicle struct {
	id    string
	speed float64 // 每步进的位移（像素）

	pos      r2.Vec
	heading  float64 // 朝向角（度）
	current  string  // 当前路点
	previous string  // 上一路点，用于避免往返
	target   string  // 中途目标路点，停车与中断期间保持，到达后清除
	state    State

	store *world.Store
	bus   *world.Bus
	inbox <-chan entity.Message
	net   *roadnet.RoadNet
	sig   entity.ISignal
	rng   *randengine.Engine
	opt   Options

	pendingRequest string       // 未决过街请求的行人ID，至多一个
	yielding       *yieldBelief // 让行信念，至多一个
}

// New 创建车辆智能体
// 参数：id-标识，start-起始路点，speed-每步位移，store/bus-共享状态与
// 总线句柄，net-路网，sig-信号读取接口，rng-随机数引擎，opt-行为参数
// 说明：起始路点未知时降级到地图中心；构造即发布初始位置
func New(id, start string, speed float64, store *world.Store, bus *world.Bus,
	net *roadnet.RoadNet, sig entity.ISignal, rng *randengine.Engine, opt Options) *Vehicle {
	pos, ok := net.Vehicles.Coord(start)
	if !ok {
		log.Warnf("%s: unknown start waypoint %q, falling back to map center", id, start)
		pos = net.Center()
	}
	v := &Vehicle{
		id:      id,
		speed:   speed,
		pos:     pos,
		current: start,
		state:   StateCruising,
		store:   store,
		bus:     bus,
		inbox:   bus.Register(id, 4),
		net:     net,
		sig:     sig,
		rng:     rng,
		opt:     opt.withDefaults(),
	}
	v.publish()
	return v
}

// ID 智能体标识
func (v *Vehicle) ID() string { return v.id }

// State 当前状态（测试用途）
func (v *Vehicle) State() State { return v.state }

// Run 智能体主循环
// 说明：存活标志在每轮循环头轮询，清除后在一个决策周期内退出
func (v *Vehicle) Run() {
	log.Infof("%s: started at %s (speed %.1f)", v.id, v.current, v.speed)
	for v.store.Alive() {
		if v.state == StateMonitoringYield {
			v.monitorYield()
			continue
		}
		v.drive()
	}
	log.Infof("%s: stopped", v.id)
}

// drive 一个完整的驾驶决策周期
// 算法说明：
// 1. 吸收信箱中的过街请求；已有让行信念则转入监视状态
// 2. 选择下一路点（排除上一路点，均匀随机打破并列）并持久化为中途
//    目标；停车与中断期间目标保持不重掷，到达后清除
// 3. 若当前或中途目标路点为停车线路点，执行排队检测与信号灯判定，
//    得到可能的停车目标；距停车目标不足半步时原地等待
// 4. 变道先检查目标车道净空，受阻则冷却重试
// 5. 逐步进逼近目标，期间循环检查障碍、让行信念与斑马线区域
// 6. 到达后吸附到目标坐标并推进路点；终端路点触发重生
func (v *Vehicle) drive() {
	v.drainInbox()
	if v.yielding != nil {
		v.state = StateMonitoringYield
		return
	}
	v.state = StateCruising

	// 后继选择：中途目标存续期间不重掷，红灯等待每周期重新锚定到
	// 同一停车线
	targetName := v.target
	if targetName == "" {
		successors := v.net.Vehicles.Next(v.current)
		if len(successors) == 0 {
			v.respawn()
			return
		}
		options := successors
		if len(options) > 1 {
			filtered := make([]string, 0, len(options))
			for _, s := range options {
				if s != v.previous {
					filtered = append(filtered, s)
				}
			}
			if len(filtered) > 0 {
				options = filtered
			}
		}
		targetName = randengine.Choice(v.rng, options)
		v.target = targetName
	}

	// 停车线判定
	stopName := ""
	if v.net.IsStopPoint(v.current) {
		stopName = v.current
	} else if v.net.IsStopPoint(targetName) {
		stopName = targetName
	}

	// 信号灯与排队判定
	var stopTarget *r2.Vec
	moveName := targetName
	if stopName != "" {
		stopTarget = v.stopTargetFor(stopName)
		if stopTarget != nil {
			v.state = StateQueuedAtStop
			if dist(v.pos, *stopTarget) < v.speed*0.5 {
				// 已停在目标处，原地等待下一个决策周期
				time.Sleep(v.opt.Tick)
				return
			}
			moveName = stopName
		}
	}

	// 变道门控
	if stopTarget == nil && v.net.IsLaneChange(v.current, targetName) {
		if !v.laneClear(v.current, targetName) {
			v.state = StateChangingLane
			time.Sleep(v.opt.LaneChangeWait)
			return
		}
	}

	targetPos, ok := v.net.Vehicles.Coord(moveName)
	if !ok {
		log.Errorf("%s: invalid target waypoint %q", v.id, moveName)
		v.target = ""
		return
	}
	if stopTarget != nil {
		targetPos = *stopTarget
	}

	arrived := v.moveToward(moveName, targetPos)
	if !arrived {
		return
	}
	if stopTarget != nil {
		// 停在停车目标处不推进路点，下一周期重新判定信号灯
		return
	}
	v.previous = v.current
	v.current = targetName
	v.target = ""
}

// stopTargetFor 计算停车目标
// 功能：对停车线路点执行排队检测与信号灯判定
// 返回：需要停车时的停车坐标，nil表示无需停车
// 算法说明：
// 1. 前方同车道有更接近停车线的车辆：停车目标为其后方一个车长加安全
//    间距处
// 2. 否则由停/行决策判定：规则模式红黄灯停；学习变体在未越过停车线
//    10px余量时查询动作策略
func (v *Vehicle) stopTargetFor(stopName string) *r2.Vec {
	stopPos, ok := v.net.Vehicles.Coord(stopName)
	if !ok {
		return nil
	}
	if queuePos, found := v.findQueueAhead(stopName, stopPos); found {
		var target r2.Vec
		if strings.HasPrefix(stopName, "V_") {
			target = r2.Vec{X: queuePos.X, Y: queuePos.Y + carLength + safeGapAtLight}
		} else {
			target = r2.Vec{X: queuePos.X + carWidth + safeGapAtLight, Y: queuePos.Y}
		}
		return &target
	}
	if v.shouldStop(stopName, stopPos) {
		return &stopPos
	}
	return nil
}

// shouldStop 停/行决策
// 说明：学习变体以二值化信号为状态查询策略；规则模式红灯或黄灯停车
func (v *Vehicle) shouldStop(stopName string, stopPos r2.Vec) bool {
	axis := v.net.AxisOf(stopName)
	percept := v.sig.Percept()
	if v.opt.Policy != nil {
		if v.pastStopLine(axis, stopPos) {
			return false
		}
		action := v.opt.Policy.ChooseAction(string(percept.Visual(axis)))
		return action == entity.ActionStop
	}
	color := percept.Color(axis)
	return color == entity.LightRed || color == entity.LightYellow
}

// pastStopLine 判断是否已沿行进方向越过停车线10px余量
func (v *Vehicle) pastStopLine(axis entity.Axis, stopPos r2.Vec) bool {
	if axis == entity.AxisVertical {
		return v.pos.Y < stopPos.Y-stopLineMargin
	}
	return v.pos.X < stopPos.X-stopLineMargin
}

// findQueueAhead 排队检测
// 功能：在自身与停车线之间寻找同车道且更接近停车线的最近车辆
// 参数：stopName-停车线路点名，stopPos-其坐标
// 返回：队列前车位置与是否存在
// 算法说明：同车道判定为横向偏移低于阈值（垂直道路取半车宽，水平
// 道路取四分之一车长），且前车位于自身与停车线之间
func (v *Vehicle) findQueueAhead(stopName string, stopPos r2.Vec) (r2.Vec, bool) {
	myDist := dist(v.pos, stopPos)
	minDist := math.Inf(1)
	var queuePos r2.Vec
	found := false

	sn := v.store.Snapshot()
	sn.EachPos(entity.VehicleIDPrefix, v.id, func(_ string, other r2.Vec) bool {
		sameLane := false
		if strings.HasPrefix(stopName, "V_") && math.Abs(other.X-v.pos.X) < carWidth*0.5 {
			sameLane = other.Y < v.pos.Y && other.Y >= stopPos.Y
		} else if strings.HasPrefix(stopName, "H_") && math.Abs(other.Y-v.pos.Y) < carLength*0.25 {
			sameLane = other.X < v.pos.X && other.X >= stopPos.X
		}
		if sameLane {
			d := dist(other, stopPos)
			if d < myDist && d < minDist {
				minDist = d
				queuePos = other
				found = true
			}
		}
		return true
	})
	return queuePos, found
}

// immediateObstacle 即时障碍检测
// 功能：判断行进方向上是否有车辆进入方向相关的安全距离
// 参数：targetPos-当前移动目标坐标，用于确定行进方向
// 算法说明：纵向安全距离取行进方向车身尺寸的0.9倍，横向取垂直方向
// 尺寸的0.5倍；先以两倍纵向安全距离粗筛，再判定同车道与前方
func (v *Vehicle) immediateObstacle(targetPos r2.Vec) bool {
	dx := targetPos.X - v.pos.X
	dy := targetPos.Y - v.pos.Y
	isVertical := math.Abs(dy) > math.Abs(dx)
	isHorizontal := math.Abs(dx) > math.Abs(dy)
	if !isVertical && !isHorizontal {
		return false
	}

	safeFront := carLength * 0.9
	safeSide := carWidth * 0.5
	if isHorizontal {
		safeFront = carWidth * 0.9
		safeSide = carLength * 0.5
	}

	minDist := math.Inf(1)
	found := false
	sn := v.store.Snapshot()
	sn.EachPos(entity.VehicleIDPrefix, v.id, func(_ string, other r2.Vec) bool {
		d := dist(v.pos, other)
		if d > safeFront*2 {
			return true
		}
		ahead, sameLane := false, false
		if isVertical {
			sameLane = math.Abs(other.X-v.pos.X) < safeSide
			if dy < 0 {
				ahead = other.Y < v.pos.Y
			} else {
				ahead = other.Y > v.pos.Y
			}
		} else {
			sameLane = math.Abs(other.Y-v.pos.Y) < safeSide
			if dx < 0 {
				ahead = other.X < v.pos.X
			} else {
				ahead = other.X > v.pos.X
			}
		}
		if ahead && sameLane && d < minDist {
			minDist = d
			found = true
		}
		return true
	})
	return found && minDist < safeFront
}

// laneClear 变道净空检查
// 功能：判断目标车道在前瞻窗口内是否无车
// 算法说明：只考虑相对距离低于前瞻距离的车辆；目标车道判定为与目标
// 路点的横向偏移低于半车宽（垂直道路）或半车长（水平道路），纵向
// 窗口为自身后一个车身至前方前瞻距离
func (v *Vehicle) laneClear(from, to string) bool {
	toPos, ok := v.net.Vehicles.Coord(to)
	if !ok {
		return true
	}
	clear := true
	sn := v.store.Snapshot()
	sn.EachPos(entity.VehicleIDPrefix, v.id, func(_ string, other r2.Vec) bool {
		if dist(v.pos, other) >= laneCheckDist {
			return true
		}
		if strings.HasPrefix(from, "V_") && math.Abs(other.X-toPos.X) < carWidth/2 {
			if other.Y > v.pos.Y-carLength && other.Y < v.pos.Y+laneCheckDist {
				clear = false
				return false
			}
		} else if strings.HasPrefix(from, "H_") && math.Abs(other.Y-toPos.Y) < carLength/2 {
			if other.X > v.pos.X-carWidth && other.X < v.pos.X+laneCheckDist {
				clear = false
				return false
			}
		}
		return true
	})
	return clear
}

// pedestrianInZone 判断相关斑马线区域内是否有任意行人
func (v *Vehicle) pedestrianInZone(evalPoint string) bool {
	zone, ok := v.net.ZoneFor(evalPoint)
	if !ok {
		return false
	}
	inside := false
	sn := v.store.Snapshot()
	sn.EachPos(entity.PedestrianIDPrefix, "", func(_ string, pos r2.Vec) bool {
		if zone.Contains(pos) {
			inside = true
			return false
		}
		return true
	})
	return inside
}

// notPastZone 判断是否尚未沿行进方向越过区域近边界
// 说明：水平车流（自右向左）以x>=Xmin为未越过，垂直车流（自下而上）
// 以y>=Ymin为未越过；已越过斑马线的车辆不再为其停车
func (v *Vehicle) notPastZone(evalPoint string, zone roadnet.Zone) bool {
	if v.net.AxisOf(evalPoint) == entity.AxisHorizontal {
		return v.pos.X >= zone.Xmin
	}
	return v.pos.Y >= zone.Ymin
}

// moveToward 逐步进逼近目标坐标
// 返回：true表示抵达并吸附到目标，false表示中途退出需重新决策
// 算法说明：每步进依次检查到达、信箱、即时障碍、让行信念与斑马线
// 区域；区域检查仅在接近评估路点且未越过区域近边界时生效——存在
// 未决请求则转入协商，区域内有行人则短暂暂停后重新决策
func (v *Vehicle) moveToward(targetName string, targetPos r2.Vec) bool {
	for v.store.Alive() {
		d := dist(v.pos, targetPos)
		if d < v.speed*0.5 {
			v.pos = targetPos
			v.publish()
			return true
		}

		v.drainInbox()
		if v.immediateObstacle(targetPos) {
			// 障碍存续期间按步进间隔重试，避免空转扫描快照
			time.Sleep(v.opt.Tick)
			return false
		}
		if v.yielding != nil {
			v.state = StateMonitoringYield
			return false
		}

		evalPoint := ""
		if v.net.IsEvalPoint(targetName) {
			evalPoint = targetName
		} else if v.net.IsEvalPoint(v.current) {
			evalPoint = v.current
		}
		if evalPoint != "" && d < roadnet.SafeCrossingDist {
			if zone, ok := v.net.ZoneFor(evalPoint); ok && v.notPastZone(evalPoint, zone) {
				if v.pendingRequest != "" {
					v.negotiate(v.pendingRequest, evalPoint)
					return false
				}
				if v.pedestrianInZone(evalPoint) {
					time.Sleep(v.opt.ZonePause)
					return false
				}
			}
		}

		step := r2.Scale(v.speed/d, r2.Sub(targetPos, v.pos))
		v.pos = r2.Add(v.pos, step)
		v.heading = headingDeg(step)
		v.publish()
		time.Sleep(v.opt.Tick)
	}
	return false
}

// negotiate 处理行人过街请求
// 功能：按让行决策应答请求方；同意则建立让行信念并转入监视状态
// 说明：当前默认策略总是同意，拒绝路径经YieldPolicy保留为策略挂点
func (v *Vehicle) negotiate(pedestrianID, evalPoint string) {
	v.state = StateNegotiatingYield
	v.pendingRequest = ""
	if v.opt.YieldPolicy(pedestrianID) {
		v.yielding = &yieldBelief{pedestrianID: pedestrianID, evalPoint: evalPoint}
		v.bus.Send(pedestrianID, entity.CrossingResponse{
			Status: entity.ResponseGranted, VehicleID: v.id,
		})
		log.Debugf("%s: yield granted to %s at %s", v.id, pedestrianID, evalPoint)
		v.state = StateMonitoringYield
		return
	}
	v.bus.Send(pedestrianID, entity.CrossingResponse{
		Status: entity.ResponseDenied, VehicleID: v.id,
	})
	log.Debugf("%s: yield denied to %s", v.id, pedestrianID)
	v.state = StateCruising
}

// monitorYield 监视已让行的行人
// 功能：按监视间隔检查行人是否仍位于相关斑马线区域内；行人已离开、
// 位置不可得或区域未知时清除让行信念并返回巡航
// 说明：让行信念与行人侧的过街许可同生共灭——信念只在行人离开区域
// 后清除，保证已授予的许可在行人仍处于区域内时不被撤销
func (v *Vehicle) monitorYield() {
	b := v.yielding
	if b == nil {
		v.state = StateCruising
		return
	}
	pedPos, ok := v.store.Pos(b.pedestrianID)
	if ok {
		if zone, zok := v.net.ZoneFor(b.evalPoint); zok && zone.Contains(pedPos) {
			time.Sleep(v.opt.MonitorInterval)
			return
		}
	}
	v.yielding = nil
	v.state = StateCruising
	log.Debugf("%s: pedestrian %s cleared the crosswalk, resuming", v.id, b.pedestrianID)
}

// drainInbox 吸收信箱中的过街请求
// 说明：已持有未决请求或正在让行的车辆静默丢弃新请求（每车同时只
// 受理一个请求）
func (v *Vehicle) drainInbox() {
	for {
		select {
		case msg := <-v.inbox:
			req, ok := msg.(entity.CrossingRequest)
			if !ok {
				continue
			}
			if v.pendingRequest != "" || v.yielding != nil {
				continue
			}
			v.pendingRequest = req.PedestrianID
		default:
			return
		}
	}
}

// respawn 终端路点重生
// 功能：按轴向亲和选择新的起点路点并瞬移过去
func (v *Vehicle) respawn() {
	start := v.net.RespawnStart(v.current, v.rng)
	v.previous = v.current
	v.current = start
	v.target = ""
	pos, ok := v.net.Vehicles.Coord(start)
	if !ok {
		log.Errorf("%s: respawn waypoint %q unknown, falling back to map center", v.id, start)
		pos = v.net.Center()
	}
	v.pos = pos
	v.publish()
	log.Debugf("%s: respawned at %s", v.id, start)
}

// publish 发布位置与朝向角到共享状态
func (v *Vehicle) publish() {
	v.store.SetPos(v.id, v.pos)
	v.store.SetAngle(v.id, v.heading)
}

// dist 两点欧氏距离
func dist(a, b r2.Vec) float64 {
	return r2.Norm(r2.Sub(a, b))
}

// headingDeg 由位移向量计算朝向角（度）
// 说明：沿用渲染层的精灵约定：atan2(-dy,dx)-90
func headingDeg(step r2.Vec) float64 {
	return math.Atan2(-step.Y, step.X)*180/math.Pi - 90
}
