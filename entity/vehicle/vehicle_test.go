package vehicle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/tsinghua-fib-lab/crossing-sim/entity"
	"github.com/tsinghua-fib-lab/crossing-sim/entity/roadnet"
	"github.com/tsinghua-fib-lab/crossing-sim/entity/signal"
	"github.com/tsinghua-fib-lab/crossing-sim/utils/randengine"
	"github.com/tsinghua-fib-lab/crossing-sim/world"
)

// stubSignal 固定感知的信号读取桩
type stubSignal struct {
	p entity.SignalPercept
}

func (s stubSignal) Percept() entity.SignalPercept { return s.p }

func redVertical() stubSignal {
	return stubSignal{entity.SignalPercept{Vertical: entity.LightRed, Horizontal: entity.LightGreen}}
}

func greenVertical() stubSignal {
	return stubSignal{entity.SignalPercept{Vertical: entity.LightGreen, Horizontal: entity.LightRed}}
}

func newTestVehicle(t *testing.T, start string, sig entity.ISignal, opt Options) (*Vehicle, *world.Store, *world.Bus) {
	t.Helper()
	store := world.NewStore()
	bus := world.NewBus()
	opt.Tick = time.Millisecond
	opt.MonitorInterval = time.Millisecond
	opt.LaneChangeWait = time.Millisecond
	opt.ZonePause = time.Millisecond
	v := New("Carro1", start, 5, store, bus, roadnet.New(), sig, randengine.New(1), opt)
	return v, store, bus
}

func TestNewPublishesPosition(t *testing.T) {
	v, store, _ := newTestVehicle(t, "V_START_C", greenVertical(), Options{})
	pos, ok := store.Pos("Carro1")
	assert.True(t, ok)
	assert.Equal(t, r2.Vec{X: 360, Y: 720}, pos)
	assert.Equal(t, StateCruising, v.State())
}

func TestNewUnknownStartFallsBack(t *testing.T) {
	v, _, _ := newTestVehicle(t, "NOPE", greenVertical(), Options{})
	assert.Equal(t, r2.Vec{X: 360, Y: 360}, v.pos)
}

func TestShouldStopRule(t *testing.T) {
	v, _, _ := newTestVehicle(t, "V_CHANGE_C", redVertical(), Options{})
	stopPos, _ := v.net.Vehicles.Coord("V_MID_C")
	assert.True(t, v.shouldStop("V_MID_C", stopPos))

	v2, _, _ := newTestVehicle(t, "V_CHANGE_C", greenVertical(), Options{})
	assert.False(t, v2.shouldStop("V_MID_C", stopPos))

	// 黄灯视同红灯
	v3, _, _ := newTestVehicle(t, "V_CHANGE_C",
		stubSignal{entity.SignalPercept{Vertical: entity.LightYellow, Horizontal: entity.LightRed}}, Options{})
	assert.True(t, v3.shouldStop("V_MID_C", stopPos))
}

func TestShouldStopLearnedPolicy(t *testing.T) {
	// 训练完成的学习器：红灯停、绿灯行
	l := signal.NewVehicleLearner(4, 0, randengine.New(1))
	for loopi := 0; loopi < 2; loopi++ {
		l.ChooseAction(string(entity.LightRed))
		l.ChooseAction(string(entity.LightGreen))
	}

	v, _, _ := newTestVehicle(t, "V_CHANGE_C", redVertical(), Options{Policy: l})
	stopPos, _ := v.net.Vehicles.Coord("V_MID_C")
	assert.True(t, v.shouldStop("V_MID_C", stopPos))

	// 已越过停车线10px余量则不再回停
	v.pos = r2.Vec{X: 360, Y: stopPos.Y - 11}
	assert.False(t, v.shouldStop("V_MID_C", stopPos))
}

func TestStopTargetAtStopLine(t *testing.T) {
	v, _, _ := newTestVehicle(t, "V_CHANGE_C", redVertical(), Options{})
	target := v.stopTargetFor("V_MID_C")
	assert.NotNil(t, target)
	assert.Equal(t, r2.Vec{X: 360, Y: 490}, *target)

	v2, _, _ := newTestVehicle(t, "V_CHANGE_C", greenVertical(), Options{})
	assert.Nil(t, v2.stopTargetFor("V_MID_C"))
}

func TestStopTargetBehindQueue(t *testing.T) {
	v, store, _ := newTestVehicle(t, "V_CHANGE_C", redVertical(), Options{})
	// 前车已在停车线前排队
	store.SetPos("Carro2", r2.Vec{X: 360, Y: 500})

	target := v.stopTargetFor("V_MID_C")
	assert.NotNil(t, target)
	// 停在前车后方一个车长加安全间距处
	assert.Equal(t, r2.Vec{X: 360, Y: 500 + carLength + safeGapAtLight}, *target)
}

func TestFindQueueAhead(t *testing.T) {
	v, store, _ := newTestVehicle(t, "V_CHANGE_C", redVertical(), Options{})
	stopPos, _ := v.net.Vehicles.Coord("V_MID_C")

	_, found := v.findQueueAhead("V_MID_C", stopPos)
	assert.False(t, found)

	// 同车道且位于自身与停车线之间
	store.SetPos("Carro2", r2.Vec{X: 365, Y: 520})
	pos, found := v.findQueueAhead("V_MID_C", stopPos)
	assert.True(t, found)
	assert.Equal(t, r2.Vec{X: 365, Y: 520}, pos)

	// 邻车道不计入
	store.SetPos("Carro2", r2.Vec{X: 300, Y: 520})
	_, found = v.findQueueAhead("V_MID_C", stopPos)
	assert.False(t, found)

	// 停车线之外（已过线）不计入
	store.SetPos("Carro2", r2.Vec{X: 360, Y: 480})
	_, found = v.findQueueAhead("V_MID_C", stopPos)
	assert.False(t, found)
}

func TestImmediateObstacle(t *testing.T) {
	v, store, _ := newTestVehicle(t, "V_CHANGE_C", greenVertical(), Options{})
	target := r2.Vec{X: 360, Y: 490} // 向上行驶

	assert.False(t, v.immediateObstacle(target))

	// 前方同车道近距车辆
	store.SetPos("Carro2", r2.Vec{X: 360, Y: 600 - carLength*0.5})
	assert.True(t, v.immediateObstacle(target))

	// 后方车辆不构成障碍
	store.SetPos("Carro2", r2.Vec{X: 360, Y: 600 + carLength*0.5})
	assert.False(t, v.immediateObstacle(target))

	// 邻车道车辆不构成障碍
	store.SetPos("Carro2", r2.Vec{X: 360 + carWidth, Y: 600 - carLength*0.5})
	assert.False(t, v.immediateObstacle(target))
}

func TestLaneClear(t *testing.T) {
	v, store, _ := newTestVehicle(t, "V_CHANGE_C", greenVertical(), Options{})

	assert.True(t, v.laneClear("V_CHANGE_C", "V_CHANGE_L"))

	// 目标车道前瞻窗口内有车
	store.SetPos("Carro2", r2.Vec{X: 300, Y: 600 + carLength})
	assert.False(t, v.laneClear("V_CHANGE_C", "V_CHANGE_L"))

	// 窗口之外的车不阻碍变道
	store.SetPos("Carro2", r2.Vec{X: 300, Y: 600 - laneCheckDist - 1})
	assert.True(t, v.laneClear("V_CHANGE_C", "V_CHANGE_L"))
}

func TestPedestrianInZone(t *testing.T) {
	v, store, _ := newTestVehicle(t, "H_INT_L", greenVertical(), Options{})

	assert.False(t, v.pedestrianInZone("PX1_EVAL_H"))

	// P1↔P4斑马线区域内的行人
	store.SetPos("Pessoa1", r2.Vec{X: 195, Y: 350})
	assert.True(t, v.pedestrianInZone("PX1_EVAL_H"))

	// 区域外的行人
	store.SetPos("Pessoa1", r2.Vec{X: 600, Y: 350})
	assert.False(t, v.pedestrianInZone("PX1_EVAL_H"))
}

func TestNotPastZone(t *testing.T) {
	v, _, _ := newTestVehicle(t, "H_INT_L", greenVertical(), Options{})
	zone, _ := v.net.ZoneFor("PX1_EVAL_H")

	// 水平车流自右向左：位于区域右侧为未越过
	v.pos = r2.Vec{X: 300, Y: 387}
	assert.True(t, v.notPastZone("PX1_EVAL_H", zone))
	v.pos = r2.Vec{X: zone.Xmin - 1, Y: 387}
	assert.False(t, v.notPastZone("PX1_EVAL_H", zone))

	// 垂直车流自下而上
	vzone, _ := v.net.ZoneFor("V_EVAL_C")
	v.pos = r2.Vec{X: 360, Y: 300}
	assert.True(t, v.notPastZone("V_EVAL_C", vzone))
	v.pos = r2.Vec{X: 360, Y: vzone.Ymin - 1}
	assert.False(t, v.notPastZone("V_EVAL_C", vzone))
}

func TestNegotiateGrant(t *testing.T) {
	v, _, bus := newTestVehicle(t, "H_INT_L", greenVertical(), Options{})
	inbox := bus.Register("Pessoa1", 1)

	v.negotiate("Pessoa1", "PX1_EVAL_H")

	assert.Equal(t, StateMonitoringYield, v.State())
	assert.NotNil(t, v.yielding)
	assert.Equal(t, "Pessoa1", v.yielding.pedestrianID)
	assert.Equal(t, "PX1_EVAL_H", v.yielding.evalPoint)
	assert.Empty(t, v.pendingRequest)

	msg := <-inbox
	resp := msg.(entity.CrossingResponse)
	assert.Equal(t, entity.ResponseGranted, resp.Status)
	assert.Equal(t, "Carro1", resp.VehicleID)
}

func TestNegotiateDeny(t *testing.T) {
	v, _, bus := newTestVehicle(t, "H_INT_L", greenVertical(),
		Options{YieldPolicy: func(string) bool { return false }})
	inbox := bus.Register("Pessoa1", 1)

	v.negotiate("Pessoa1", "PX1_EVAL_H")

	assert.Equal(t, StateCruising, v.State())
	assert.Nil(t, v.yielding)

	msg := <-inbox
	resp := msg.(entity.CrossingResponse)
	assert.Equal(t, entity.ResponseDenied, resp.Status)
}

func TestMonitorYield(t *testing.T) {
	v, store, _ := newTestVehicle(t, "H_INT_L", greenVertical(), Options{})
	v.yielding = &yieldBelief{pedestrianID: "Pessoa1", evalPoint: "PX1_EVAL_H"}
	v.state = StateMonitoringYield

	// 行人仍在区域内：信念保持
	store.SetPos("Pessoa1", r2.Vec{X: 195, Y: 350})
	v.monitorYield()
	assert.NotNil(t, v.yielding)
	assert.Equal(t, StateMonitoringYield, v.State())

	// 行人离开区域：信念清除，返回巡航
	store.SetPos("Pessoa1", r2.Vec{X: 600, Y: 350})
	v.monitorYield()
	assert.Nil(t, v.yielding)
	assert.Equal(t, StateCruising, v.State())
}

func TestMonitorYieldMissingPedestrian(t *testing.T) {
	v, _, _ := newTestVehicle(t, "H_INT_L", greenVertical(), Options{})
	v.yielding = &yieldBelief{pedestrianID: "Pessoa9", evalPoint: "PX1_EVAL_H"}
	v.state = StateMonitoringYield

	// 位置不可得视同已离开
	v.monitorYield()
	assert.Nil(t, v.yielding)
	assert.Equal(t, StateCruising, v.State())
}

func TestDrainInbox(t *testing.T) {
	v, _, bus := newTestVehicle(t, "H_INT_L", greenVertical(), Options{})

	bus.Send("Carro1", entity.CrossingRequest{PedestrianID: "Pessoa1"})
	v.drainInbox()
	assert.Equal(t, "Pessoa1", v.pendingRequest)

	// 已持有未决请求时丢弃新请求
	bus.Send("Carro1", entity.CrossingRequest{PedestrianID: "Pessoa2"})
	v.drainInbox()
	assert.Equal(t, "Pessoa1", v.pendingRequest)

	// 正在让行时同样丢弃
	v.pendingRequest = ""
	v.yielding = &yieldBelief{pedestrianID: "Pessoa1", evalPoint: "PX1_EVAL_H"}
	bus.Send("Carro1", entity.CrossingRequest{PedestrianID: "Pessoa3"})
	v.drainInbox()
	assert.Empty(t, v.pendingRequest)
}

func TestRespawnAxisAffinity(t *testing.T) {
	v, store, _ := newTestVehicle(t, "V_EVAL_C", greenVertical(), Options{})
	v.previous = "V_EVAL_C"
	v.current = "V_END_C"

	v.respawn()
	assert.Contains(t, []string{"V_START_L", "V_START_C", "V_START_R"}, v.current)
	assert.Equal(t, "V_END_C", v.previous)
	pos, ok := store.Pos("Carro1")
	assert.True(t, ok)
	assert.Equal(t, v.pos, pos)
}

func TestMoveTowardArrives(t *testing.T) {
	v, store, _ := newTestVehicle(t, "V_START_C", greenVertical(), Options{})
	v.speed = 50

	target, _ := v.net.Vehicles.Coord("V_CHANGE_C")
	arrived := v.moveToward("V_CHANGE_C", target)
	assert.True(t, arrived)
	assert.Equal(t, target, v.pos)

	pos, _ := store.Pos("Carro1")
	assert.Equal(t, target, pos)
}

func TestMoveTowardAbortsOnYield(t *testing.T) {
	v, _, bus := newTestVehicle(t, "H_MID_L", greenVertical(), Options{})
	v.speed = 2

	// 行驶中收到过街请求且接近评估点：协商后中断移动转入监视
	bus.Send("Carro1", entity.CrossingRequest{PedestrianID: "Pessoa1"})
	target, _ := v.net.Vehicles.Coord("H_INT_L")
	arrived := v.moveToward("H_INT_L", target)
	assert.False(t, arrived)
	assert.Equal(t, StateMonitoringYield, v.State())
	assert.NotNil(t, v.yielding)
}

// test: 红灯停稳后中途目标保持，决策周期不再重掷后继驶离停车线
func TestRedLightHaltPersists(t *testing.T) {
	v, _, _ := newTestVehicle(t, "V_CHANGE_C", redVertical(), Options{})

	for i := 0; i < 50 && v.State() != StateQueuedAtStop; i++ {
		v.drive()
	}
	assert.Equal(t, StateQueuedAtStop, v.State())
	assert.True(t, v.net.IsStopPoint(v.target))
	stopPos := v.pos

	// 红灯持续期间位置锚定在停车线，偏移不超过半步
	for loopi := 0; loopi < 60; loopi++ {
		v.drive()
		assert.LessOrEqual(t, dist(v.pos, stopPos), v.speed*0.5)
	}
	assert.Equal(t, StateQueuedAtStop, v.State())
	assert.True(t, v.net.IsStopPoint(v.target))
}

// test: 转绿后从持久化目标恢复行驶并推进路点
func TestHaltResumesOnGreen(t *testing.T) {
	v, _, _ := newTestVehicle(t, "V_CHANGE_C", redVertical(), Options{})
	for i := 0; i < 50 && v.State() != StateQueuedAtStop; i++ {
		v.drive()
	}
	assert.Equal(t, StateQueuedAtStop, v.State())
	stopName := v.target

	v.sig = greenVertical()
	for i := 0; i < 10 && v.current != stopName; i++ {
		v.drive()
	}
	assert.Equal(t, stopName, v.current)
	assert.Empty(t, v.target)
}

// test: 障碍中断按步进间隔重试，不空转
func TestMoveTowardObstaclePaced(t *testing.T) {
	v, store, _ := newTestVehicle(t, "V_START_C", greenVertical(), Options{})
	v.opt.Tick = 20 * time.Millisecond
	store.SetPos("Carro2", r2.Vec{X: 360, Y: 720 - carLength*0.5})

	target, _ := v.net.Vehicles.Coord("V_CHANGE_C")
	start := time.Now()
	arrived := v.moveToward("V_CHANGE_C", target)
	assert.False(t, arrived)
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestHeadingDeg(t *testing.T) {
	// 向上（Y递减）朝向0度
	assert.InDelta(t, 0, headingDeg(r2.Vec{X: 0, Y: -1}), 1e-9)
	// 向左（X递减）朝向90度
	assert.InDelta(t, 90, headingDeg(r2.Vec{X: -1, Y: 0}), 1e-9)
}
