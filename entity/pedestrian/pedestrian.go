package pedestrian

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tsinghua-fib-lab/crossing-sim/entity"
	"github.com/tsinghua-fib-lab/crossing-sim/entity/roadnet"
	"github.com/tsinghua-fib-lab/crossing-sim/entity/signal"
	"github.com/tsinghua-fib-lab/crossing-sim/utils/randengine"
	"github.com/tsinghua-fib-lab/crossing-sim/world"
)

// pollInterval 等待应答时的轮询间隔
const pollInterval = 50 * time.Millisecond

// State 行人状态机状态
type State int

const (
	StateDeciding   State = iota // 选择下一步行动
	StateMoving                  // 向目标路点移动
	StateRequesting              // 发送过街请求
	StateAwaiting                // 等待车辆应答
	StateCooldown                // 被拒绝后的随机退避
)

func (s State) String() string {
	switch s {
	case StateDeciding:
		return "deciding"
	case StateMoving:
		return "moving"
	case StateRequesting:
		return "requesting"
	case StateAwaiting:
		return "awaiting"
	case StateCooldown:
		return "cooldown"
	}
	return "unknown"
}

// Options 行人行为参数
type Options struct {
	Tick            time.Duration // 移动步进间隔
	ResponseTimeout time.Duration // 应答等待上限
	CooldownMin     time.Duration // 被拒绝后退避下限
	CooldownMax     time.Duration // 被拒绝后退避上限
	DeadEndMin      time.Duration // 死路等待下限
	DeadEndMax      time.Duration // 死路等待上限

	// Policy 学习变体的等待/过街策略；nil表示与车辆协商的规则模式
	Policy signal.Policy
}

// withDefaults 填充缺省行为参数
func (o Options) withDefaults() Options {
	if o.Tick <= 0 {
		o.Tick = 100 * time.Millisecond
	}
	if o.ResponseTimeout <= 0 {
		o.ResponseTimeout = 3 * time.Second
	}
	if o.CooldownMin <= 0 {
		o.CooldownMin = time.Second
	}
	if o.CooldownMax <= 0 {
		o.CooldownMax = 3 * time.Second
	}
	if o.DeadEndMin <= 0 {
		o.DeadEndMin = 2 * time.Second
	}
	if o.DeadEndMax <= 0 {
		o.DeadEndMax = 5 * time.Second
	}
	return o
}

// Pedestrian 行人智能体
// 功能：随机游走人行道路点图，在等待点发起过街协商（附近有车时）或
// 直接自授许可（无车时），被拒绝后退避重试，应答丢失由超时兜底
// 说明：至多持有一个"等待应答"信念与一个过街许可；等待状态经
// {id}_waiting键对渲染层公开
type Pedestrian struct {
	id    string
	speed float64 // 每步进的位移（像素）

	pos     r2.Vec
	current string
	state   State

	store *world.Store
	bus   *world.Bus
	inbox <-chan entity.Message
	net   *roadnet.RoadNet
	sig   entity.ISignal
	rng   *randengine.Engine
	opt   Options

	awaitingVehicle string // 正在协商的车辆ID，""表示无
	permitted       bool   // 过街许可
}

// New 创建行人智能体
// 说明：起始路点未知时降级到地图中心；构造即发布初始位置
func New(id, start string, speed float64, store *world.Store, bus *world.Bus,
	net *roadnet.RoadNet, sig entity.ISignal, rng *randengine.Engine, opt Options) *Pedestrian {
	pos, ok := net.Pedestrians.Coord(start)
	if !ok {
		log.Warnf("%s: unknown start waypoint %q, falling back to map center", id, start)
		pos = net.Center()
	}
	p := &Pedestrian{
		id:      id,
		speed:   math.Abs(speed),
		pos:     pos,
		current: start,
		state:   StateDeciding,
		store:   store,
		bus:     bus,
		inbox:   bus.Register(id, 2),
		net:     net,
		sig:     sig,
		rng:     rng,
		opt:     opt.withDefaults(),
	}
	p.store.SetPos(p.id, p.pos)
	p.store.SetWaiting(p.id, false)
	return p
}

// ID 智能体标识
func (p *Pedestrian) ID() string { return p.id }

// State 当前状态（测试用途）
func (p *Pedestrian) State() State { return p.state }

// Run 智能体主循环
func (p *Pedestrian) Run() {
	log.Infof("%s: started at %s (speed %.1f)", p.id, p.current, p.speed)
	for p.store.Alive() {
		switch p.state {
		case StateAwaiting:
			p.awaitResponse()
		case StateCooldown:
			p.cooldown()
		default:
			p.decide()
		}
	}
	log.Infof("%s: stopped", p.id)
}

// decide 决策一次移动
// 算法说明：
// 1. 已在等待应答则转入等待状态
// 2. 持有许可且位于等待点：向对侧等待点移动（固定过街对表）
// 3. 否则均匀随机选择一个后继路点；死路则随机等待后重试
// 4. 选中的移动构成过街时：学习变体查询等待/过街策略；规则模式搜索
//    安全半径内最近车辆——有车则发送过街请求并等待应答，无车则自授
//    许可并在同一决策周期开始移动
func (p *Pedestrian) decide() {
	if p.awaitingVehicle != "" {
		p.state = StateAwaiting
		return
	}

	if p.permitted && p.net.IsWaitPoint(p.current) {
		if pair, ok := p.net.CrossingPair(p.current); ok {
			p.move(pair, true)
			return
		}
		p.permitted = false
		return
	}

	successors := p.net.Pedestrians.Next(p.current)
	if len(successors) == 0 {
		p.sleepRange(p.opt.DeadEndMin, p.opt.DeadEndMax)
		return
	}
	targetName := randengine.Choice(p.rng, successors)

	if p.net.IsCrossingMove(p.current, targetName) {
		if p.opt.Policy != nil {
			p.decideByPolicy(targetName)
			return
		}
		if vehicleID, found := p.nearestVehicle(); found {
			p.state = StateRequesting
			p.awaitingVehicle = vehicleID
			p.store.SetWaiting(p.id, true)
			p.bus.Send(vehicleID, entity.CrossingRequest{PedestrianID: p.id})
			log.Debugf("%s: crossing request sent to %s", p.id, vehicleID)
			p.state = StateAwaiting
			return
		}
		// 无车辆在安全半径内：无争用过街，自授许可
		p.permitted = true
		p.move(targetName, true)
		return
	}
	p.move(targetName, false)
}

// decideByPolicy 学习变体的过街决策
// 说明：以行人抽象信号（livre/fechado）为状态查询策略；esperar则在
// 原地等待一个步进后重试，atravessar则授予许可并开始过街
func (p *Pedestrian) decideByPolicy(targetName string) {
	state := p.sig.Percept().Pedestrian(p.net.CrossingAxis())
	if p.opt.Policy.ChooseAction(string(state)) == entity.ActionWait {
		p.store.SetWaiting(p.id, true)
		time.Sleep(p.opt.Tick)
		return
	}
	p.store.SetWaiting(p.id, false)
	p.permitted = true
	p.move(targetName, true)
}

// move 向目标路点移动
// 参数：targetName-目标路点，crossing-本次移动是否为过街
// 算法说明：无许可的过街移动直接放弃（防御性复查）；每步进发布位置；
// 到达后吸附到目标坐标、推进路点并清除残留许可；过街一旦开始即运行
// 至完成，途中不再查询策略或信号
func (p *Pedestrian) move(targetName string, crossing bool) {
	targetPos, ok := p.net.Pedestrians.Coord(targetName)
	if !ok {
		log.Errorf("%s: invalid target waypoint %q", p.id, targetName)
		return
	}
	if crossing && !p.permitted {
		return
	}
	p.state = StateMoving

	for p.store.Alive() {
		d := dist(p.pos, targetPos)
		if d < p.speed*0.5 {
			break
		}
		step := r2.Scale(p.speed/d, r2.Sub(targetPos, p.pos))
		p.pos = r2.Add(p.pos, step)
		p.store.SetPos(p.id, p.pos)
		time.Sleep(p.opt.Tick)
	}

	p.pos = targetPos
	p.store.SetPos(p.id, p.pos)
	p.current = targetName
	p.permitted = false
	p.state = StateDeciding
}

// awaitResponse 等待车辆应答
// 算法说明：在应答超时上限内轮询信箱；收到来自协商车辆的应答时——
// concedida置过街许可，negada转入退避；其余发送方的应答忽略；超时
// 未收到应答则清除等待信念直接返回决策（超时是唯一的丢失恢复机制）
func (p *Pedestrian) awaitResponse() {
	deadline := time.Now().Add(p.opt.ResponseTimeout)
	for p.store.Alive() && time.Now().Before(deadline) {
		select {
		case msg := <-p.inbox:
			resp, ok := msg.(entity.CrossingResponse)
			if !ok || resp.VehicleID != p.awaitingVehicle {
				continue
			}
			p.awaitingVehicle = ""
			p.store.SetWaiting(p.id, false)
			if resp.Status == entity.ResponseGranted {
				p.permitted = true
				p.state = StateDeciding
				log.Debugf("%s: crossing granted by %s", p.id, resp.VehicleID)
			} else {
				p.state = StateCooldown
				log.Debugf("%s: crossing denied by %s", p.id, resp.VehicleID)
			}
			return
		case <-time.After(pollInterval):
		}
	}
	// 超时或关闭：清除等待信念，不带许可返回决策
	p.awaitingVehicle = ""
	p.store.SetWaiting(p.id, false)
	p.state = StateDeciding
	log.Debugf("%s: response timeout, re-deciding", p.id)
}

// cooldown 被拒绝后的随机退避
func (p *Pedestrian) cooldown() {
	p.sleepRange(p.opt.CooldownMin, p.opt.CooldownMax)
	p.state = StateDeciding
}

// sleepRange 在[min,max)内随机睡眠
func (p *Pedestrian) sleepRange(min, max time.Duration) {
	d := p.rng.UniformSafe(float64(min), float64(max))
	time.Sleep(time.Duration(d))
}

// nearestVehicle 搜索安全半径内最近的车辆
// 返回：车辆ID与是否找到
func (p *Pedestrian) nearestVehicle() (string, bool) {
	minDist := float64(roadnet.SafeCrossingDist)
	nearest := ""
	sn := p.store.Snapshot()
	sn.EachPos(entity.VehicleIDPrefix, "", func(id string, pos r2.Vec) bool {
		if d := dist(p.pos, pos); d < minDist {
			minDist = d
			nearest = id
		}
		return true
	})
	return nearest, nearest != ""
}

// dist 两点欧氏距离
func dist(a, b r2.Vec) float64 {
	return r2.Norm(r2.Sub(a, b))
}
