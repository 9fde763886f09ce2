package task

import (
	"flag"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tsinghua-fib-lab/crossing-sim/clock"
	"github.com/tsinghua-fib-lab/crossing-sim/entity"
	"github.com/tsinghua-fib-lab/crossing-sim/entity/pedestrian"
	"github.com/tsinghua-fib-lab/crossing-sim/entity/roadnet"
	"github.com/tsinghua-fib-lab/crossing-sim/entity/signal"
	"github.com/tsinghua-fib-lab/crossing-sim/entity/vehicle"
	"github.com/tsinghua-fib-lab/crossing-sim/recorder"
	"github.com/tsinghua-fib-lab/crossing-sim/utils/config"
	"github.com/tsinghua-fib-lab/crossing-sim/utils/randengine"
	"github.com/tsinghua-fib-lab/crossing-sim/world"
)

var (
	log = logrus.WithField("module", "task")

	heartBeatInterval = flag.Duration("log.heartbeat_interval", 5*time.Second, "心跳日志间隔")
)

// Context 仿真任务上下文
// 功能：包含一次仿真任务的所有组件和状态，替代全局变量
// 说明：每个智能体及信号控制器各占一个goroutine，经共享世界状态与
// 消息总线交互；Stop为幂等关闭入口
type Context struct {
	// 关闭指令
	closed atomic.Bool

	// 时钟
	clock *clock.Clock
	// 运行时配置
	runtimeConfig *config.RuntimeConfig
	// 随机数引擎
	engine *randengine.Engine

	// 共享世界状态
	store *world.Store
	// 消息总线
	bus *world.Bus
	// 路网
	net *roadnet.RoadNet

	// 信号控制器
	controller *signal.Controller
	// 车辆
	vehicles []*vehicle.Vehicle
	// 行人
	pedestrians []*pedestrian.Pedestrian
	// 轨迹记录器（可为nil）
	rec *recorder.Recorder

	wg sync.WaitGroup
}

// NewContext 创建仿真任务上下文
// 功能：依据配置组装全部仿真组件
// 参数：cfg-已填充缺省值的运行时配置
// 返回：任务上下文与错误
// 算法说明：
// 1. 创建世界状态、消息总线、路网与信号控制器
// 2. 车辆从车道起点集合随机选择起点，速度在[min,max)内均匀采样
// 3. 行人在人行道起点集合上轮转分配
// 4. 学习变体启用时每个智能体持有独立的策略学习器
// 5. 输出URI非空时接入轨迹记录器
func NewContext(cfg *config.RuntimeConfig) (*Context, error) {
	ctx := &Context{
		clock:         clock.New(),
		runtimeConfig: cfg,
		engine:        randengine.New(uint64(cfg.All.Agents.Seed)),
		store:         world.NewStore(),
		bus:           world.NewBus(),
		net:           roadnet.New(),
	}
	ctx.controller = signal.NewController(ctx.store)

	vehOpt := vehicle.Options{
		Tick:            config.Duration(cfg.C.TickVehicle),
		MonitorInterval: config.Duration(cfg.C.MonitorInterval),
	}
	pedOpt := pedestrian.Options{
		Tick:            config.Duration(cfg.C.TickPedestrian),
		ResponseTimeout: config.Duration(cfg.C.ResponseTimeout),
	}

	learning := cfg.All.Learning
	starts := ctx.net.VehicleStarts()
	for i := 0; i < cfg.All.Agents.NumVehicles; i++ {
		opt := vehOpt
		if learning.Enabled {
			opt.Policy = signal.NewVehicleLearner(learning.Episodes, learning.Epsilon, ctx.engine)
		}
		id := fmt.Sprintf("%s%d", entity.VehicleIDPrefix, i+1)
		start := randengine.Choice(ctx.engine, starts)
		speed := ctx.engine.UniformSafe(cfg.All.Agents.SpeedMin, cfg.All.Agents.SpeedMax)
		ctx.vehicles = append(ctx.vehicles, vehicle.New(
			id, start, speed, ctx.store, ctx.bus, ctx.net, ctx.controller, ctx.engine, opt))
	}

	pedStarts := ctx.net.PedestrianStarts()
	for i := 0; i < cfg.All.Agents.NumPedestrians; i++ {
		opt := pedOpt
		if learning.Enabled {
			opt.Policy = signal.NewPedestrianLearner(learning.Episodes, learning.Epsilon, ctx.engine)
		}
		id := fmt.Sprintf("%s%d", entity.PedestrianIDPrefix, i+1)
		start := pedStarts[i%len(pedStarts)]
		speed := ctx.engine.UniformSafe(cfg.All.Agents.SpeedMin, cfg.All.Agents.SpeedMax)
		ctx.pedestrians = append(ctx.pedestrians, pedestrian.New(
			id, start, speed, ctx.store, ctx.bus, ctx.net, ctx.controller, ctx.engine, opt))
	}

	rec, err := recorder.New(cfg.All.Output, ctx.store, ctx.clock)
	if err != nil {
		return nil, fmt.Errorf("recorder init failed: %w", err)
	}
	ctx.rec = rec

	return ctx, nil
}

// Clock 运行时钟
func (ctx *Context) Clock() *clock.Clock {
	return ctx.clock
}

// RuntimeConfig 运行时配置
func (ctx *Context) RuntimeConfig() *config.RuntimeConfig {
	return ctx.runtimeConfig
}

// Store 共享世界状态
func (ctx *Context) Store() *world.Store {
	return ctx.store
}

// Init 记录任务组成
func (ctx *Context) Init() {
	log.Infof("Vehicle: %v", len(ctx.vehicles))
	log.Infof("Pedestrian: %v", len(ctx.pedestrians))
	log.Infof("Light cycle: %v", ctx.controller.Period())
	if ctx.runtimeConfig.All.Learning.Enabled {
		log.Infof("Learning: enabled (%d episodes, epsilon %.2f)",
			ctx.runtimeConfig.All.Learning.Episodes, ctx.runtimeConfig.All.Learning.Epsilon)
	}
	if ctx.rec != nil {
		log.Infof("Recorder: enabled")
	}
}

// Run 启动仿真
// 功能：拉起信号控制器、全部智能体与记录器，随后阻塞于心跳循环
// 说明：阻塞直至Stop被调用（或世界被其他途径关闭）
func (ctx *Context) Run() {
	ctx.spawn(ctx.controller.Run)
	for _, v := range ctx.vehicles {
		ctx.spawn(v.Run)
	}
	for _, p := range ctx.pedestrians {
		ctx.spawn(p.Run)
	}
	if ctx.rec != nil {
		ctx.spawn(ctx.rec.Run)
	}

	for ctx.store.Alive() {
		time.Sleep(*heartBeatInterval)
		log.Infof("t=%v agents=%d", ctx.clock, len(ctx.vehicles)+len(ctx.pedestrians))
	}
	ctx.wg.Wait()
	log.Infof("engine complete")
}

// Stop 幂等关闭仿真
// 说明：置世界存活位为false，各goroutine在下一次存活检查时退出
func (ctx *Context) Stop() {
	if ctx.closed.Swap(true) {
		return
	}
	log.Infof("stopping after %v", ctx.clock)
	ctx.store.Shutdown()
}

func (ctx *Context) spawn(fn func()) {
	ctx.wg.Add(1)
	go func() {
		defer ctx.wg.Done()
		fn()
	}()
}
