package entity

// 共享状态键后缀与智能体ID前缀
// 说明：共享状态中的键统一为{智能体ID}+后缀的形式，渲染层按同样的约定读取
const (
	VehicleIDPrefix    = "Carro"  // 车辆智能体ID前缀
	PedestrianIDPrefix = "Pessoa" // 行人智能体ID前缀

	PosKeySuffix     = "_pos"     // 位置键后缀
	AngleKeySuffix   = "_angle"   // 朝向角键后缀（仅车辆）
	WaitingKeySuffix = "_waiting" // 等待状态键后缀（仅行人）

	VerticalLightKey   = "estado_semaforo_v" // 垂直方向信号灯颜色键
	HorizontalLightKey = "estado_semaforo_h" // 水平方向信号灯颜色键
)

// LightColor 信号灯颜色
// 功能：表示信号灯的四种颜色状态
type LightColor string

const (
	LightGreen  LightColor = "verde"    // 绿灯
	LightYellow LightColor = "amarelo"  // 黄灯
	LightRed    LightColor = "vermelho" // 红灯
	LightOff    LightColor = "apagado"  // 熄灭
)

// Axis 道路轴向
// 功能：区分垂直（南北）与水平（东西）两条道路
type Axis int

const (
	AxisVertical   Axis = iota // 垂直道路
	AxisHorizontal             // 水平道路
)

func (a Axis) String() string {
	if a == AxisVertical {
		return "vertical"
	}
	return "horizontal"
}

// LightKey 获取该轴向信号灯在共享状态中的键
func (a Axis) LightKey() string {
	if a == AxisVertical {
		return VerticalLightKey
	}
	return HorizontalLightKey
}

// Action 智能体在决策点可执行的动作
type Action string

const (
	ActionGo    Action = "andar"      // 车辆：通行
	ActionStop  Action = "parar"      // 车辆：停车
	ActionCross Action = "atravessar" // 行人：过街
	ActionWait  Action = "esperar"    // 行人：等待
)

// PedSignal 行人抽象信号
// 功能：行人视角下的二值信号，为对应车辆信号灯的反相
type PedSignal string

const (
	PedSignalOpen   PedSignal = "livre"   // 可过街
	PedSignalClosed PedSignal = "fechado" // 禁止过街
)

// SignalPercept 信号灯结构化感知
// 功能：信号控制器在每次相位切换后发布的快照，供智能体读取
// 说明：除两个原始颜色外，提供面向学习变体的二值抽象（sinal_visual与
// sinal_pedestre），黄灯折算为红灯
type SignalPercept struct {
	Vertical   LightColor // 垂直方向颜色
	Horizontal LightColor // 水平方向颜色
}

// Color 获取指定轴向的原始颜色
func (p SignalPercept) Color(axis Axis) LightColor {
	if axis == AxisVertical {
		return p.Vertical
	}
	return p.Horizontal
}

// Visual 获取指定轴向的二值化颜色（sinal_visual）
// 算法说明：绿灯保持为绿，其余（黄/红/灭）一律视为红
func (p SignalPercept) Visual(axis Axis) LightColor {
	if p.Color(axis) == LightGreen {
		return LightGreen
	}
	return LightRed
}

// Pedestrian 获取行人抽象信号（sinal_pedestre）
// 参数：axis-行人所穿越道路的轴向
// 算法说明：所穿越道路的车辆信号为绿（放行车辆）时行人信号为fechado，
// 反之为livre
func (p SignalPercept) Pedestrian(axis Axis) PedSignal {
	if p.Visual(axis) == LightGreen {
		return PedSignalClosed
	}
	return PedSignalOpen
}

// ISignal 信号控制器的读取接口
// 说明：entity/signal的依赖倒置，车辆与行人智能体只依赖该接口
type ISignal interface {
	Percept() SignalPercept // 获取当前结构化感知
}
