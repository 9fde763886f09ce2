package signal

import (
	"sync"

	"github.com/samber/lo"

	"github.com/tsinghua-fib-lab/crossing-sim/entity"
	"github.com/tsinghua-fib-lab/crossing-sim/utils/randengine"
)

// VehicleReward 车辆决策点的奖励函数
// 功能：对（二值化信号，动作）计算奖励，纯函数
// 返回：奖励值与episode结束标志（一步episode，恒为true）
// 说明：andar在绿灯+10、红灯-20；parar在红灯+10、绿灯-5
func VehicleReward(visual entity.LightColor, a entity.Action) (float64, bool) {
	switch a {
	case entity.ActionGo:
		if visual == entity.LightGreen {
			return 10, true
		}
		return -20, true
	case entity.ActionStop:
		if visual == entity.LightRed {
			return 10, true
		}
		return -5, true
	}
	return 0, true
}

// PedestrianReward 行人决策点的奖励函数
// 说明：atravessar在livre+20、fechado-50；esperar在fechado+10、livre-5
func PedestrianReward(sig entity.PedSignal, a entity.Action) (float64, bool) {
	switch a {
	case entity.ActionCross:
		if sig == entity.PedSignalOpen {
			return 20, true
		}
		return -50, true
	case entity.ActionWait:
		if sig == entity.PedSignalClosed {
			return 10, true
		}
		return -5, true
	}
	return 0, true
}

// Policy 动作选择策略
// 说明：状态为二值化信号的字符串形式（车辆verde/vermelho，行人
// livre/fechado）
type Policy interface {
	ChooseAction(state string) entity.Action
}

// VehicleRulePolicy 车辆硬编码规则策略
// 说明：红灯停、其余通行；学习变体训练完成前的回退策略
type VehicleRulePolicy struct{}

func (VehicleRulePolicy) ChooseAction(state string) entity.Action {
	if state == string(entity.LightRed) {
		return entity.ActionStop
	}
	return entity.ActionGo
}

// PedestrianRulePolicy 行人硬编码规则策略
// 说明：livre过街、fechado等待
type PedestrianRulePolicy struct{}

func (PedestrianRulePolicy) ChooseAction(state string) entity.Action {
	if state == string(entity.PedSignalOpen) {
		return entity.ActionCross
	}
	return entity.ActionWait
}

// Learner 一步episode的上下文赌博机学习器
// 功能：以增量均值维护（状态，动作）价值表，训练期ε-贪心采样并观测
// 奖励，训练预算耗尽后切换为查表贪心
// 说明：训练期间返回的执行动作来自回退规则策略，探索动作只用于更新
// 价值表；每次决策即一个完整episode（奖励分配后立即终止），不存在
// 多步回报
type Learner struct {
	mu sync.Mutex

	actions  []entity.Action // 固定动作顺序，贪心并列时取靠前者
	values   map[string][]float64
	counts   map[string][]int
	episodes int
	budget   int
	epsilon  float64

	reward   func(state string, a entity.Action) float64
	fallback Policy
	rng      *randengine.Engine
}

// NewVehicleLearner 创建车辆动作学习器
// 参数：budget-训练episode预算，epsilon-探索概率，e-随机数引擎
func NewVehicleLearner(budget int, epsilon float64, e *randengine.Engine) *Learner {
	return newLearner(
		[]entity.Action{entity.ActionGo, entity.ActionStop},
		func(state string, a entity.Action) float64 {
			r, _ := VehicleReward(entity.LightColor(state), a)
			return r
		},
		VehicleRulePolicy{}, budget, epsilon, e,
	)
}

// NewPedestrianLearner 创建行人动作学习器
func NewPedestrianLearner(budget int, epsilon float64, e *randengine.Engine) *Learner {
	return newLearner(
		[]entity.Action{entity.ActionCross, entity.ActionWait},
		func(state string, a entity.Action) float64 {
			r, _ := PedestrianReward(entity.PedSignal(state), a)
			return r
		},
		PedestrianRulePolicy{}, budget, epsilon, e,
	)
}

func newLearner(actions []entity.Action, reward func(string, entity.Action) float64,
	fallback Policy, budget int, epsilon float64, e *randengine.Engine) *Learner {
	return &Learner{
		actions:  actions,
		values:   make(map[string][]float64),
		counts:   make(map[string][]int),
		budget:   budget,
		epsilon:  epsilon,
		reward:   reward,
		fallback: fallback,
		rng:      e,
	}
}

// Trained 判断训练是否完成
func (l *Learner) Trained() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.episodes >= l.budget
}

// ChooseAction 在决策点选择动作
// 算法说明：
// 1. 训练完成：返回价值表中该状态的最大价值动作（并列取固定顺序靠前者）
// 2. 训练期：ε-贪心采样一个探索动作，按奖励函数结算该一步episode并
//    更新价值表，实际执行动作仍由回退规则策略给出
func (l *Learner) ChooseAction(state string) entity.Action {
	l.mu.Lock()
	if l.episodes >= l.budget {
		a := l.actions[l.argmax(state)]
		l.mu.Unlock()
		return a
	}
	// 训练episode
	var idx int
	if l.rng.PTrueSafe(l.epsilon) {
		idx = l.rng.IntnSafe(len(l.actions))
	} else {
		idx = l.argmax(state)
	}
	a := l.actions[idx]
	l.observe(state, idx, l.reward(state, a))
	l.episodes++
	l.mu.Unlock()
	return l.fallback.ChooseAction(state)
}

// Value 查询（状态，动作）的当前估值（测试与日志用途）
func (l *Learner) Value(state string, a entity.Action) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := lo.IndexOf(l.actions, a)
	if idx < 0 {
		return 0
	}
	if vs, ok := l.values[state]; ok {
		return vs[idx]
	}
	return 0
}

// observe 以增量均值更新价值表（调用方持锁）
func (l *Learner) observe(state string, idx int, r float64) {
	if _, ok := l.values[state]; !ok {
		l.values[state] = make([]float64, len(l.actions))
		l.counts[state] = make([]int, len(l.actions))
	}
	l.counts[state][idx]++
	n := float64(l.counts[state][idx])
	l.values[state][idx] += (r - l.values[state][idx]) / n
}

// argmax 返回该状态下估值最大的动作下标（调用方持锁）
// 说明：未见过的状态全零，返回0即固定顺序的首个动作
func (l *Learner) argmax(state string) int {
	vs, ok := l.values[state]
	if !ok {
		return 0
	}
	best := 0
	for i, v := range vs {
		if v > vs[best] {
			best = i
		}
	}
	return best
}
