package world

import (
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/tsinghua-fib-lab/crossing-sim/entity"
)

// Bus 按智能体ID寻址的消息总线
// 功能：为每个智能体维护一个有界信箱，提供即发即弃的消息投递
// 说明：协商协议的两条消息（过街请求、应答）经由总线传递；投递不
// 阻塞也不确认，信箱满或收件人未注册时消息直接丢弃，行人的应答
// 超时是唯一的丢失恢复机制
type Bus struct {
	boxes *xsync.MapOf[string, chan entity.Message]
}

// NewBus 创建消息总线
func NewBus() *Bus {
	return &Bus{boxes: xsync.NewMapOf[string, chan entity.Message]()}
}

// Register 注册智能体信箱
// 参数：id-智能体ID，capacity-信箱容量
// 返回：该智能体的接收通道
// 说明：重复注册返回已有信箱
func (b *Bus) Register(id string, capacity int) <-chan entity.Message {
	box, _ := b.boxes.LoadOrStore(id, make(chan entity.Message, capacity))
	return box
}

// Send 向指定智能体投递消息（即发即弃）
// 返回：是否投递成功（仅作日志与测试用途，发送方不依赖该结果）
func (b *Bus) Send(to string, msg entity.Message) bool {
	box, ok := b.boxes.Load(to)
	if !ok {
		return false
	}
	select {
	case box <- msg:
		return true
	default:
		return false
	}
}
