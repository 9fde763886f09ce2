package entity

// 协商协议的应答状态
const (
	ResponseGranted = "concedida" // 同意让行
	ResponseDenied  = "negada"    // 拒绝让行
)

// Message 智能体间消息的统一类型
// 说明：消息总线按ID寻址投递，载荷为下列两种消息之一
type Message any

// CrossingRequest 行人→车辆的过街请求
// 功能：携带请求方行人ID；车辆结合自身所处的评估路点确定相关的斑马线区域
type CrossingRequest struct {
	PedestrianID string // 请求方行人ID
}

// CrossingResponse 车辆→行人的应答
// 功能：携带应答状态（concedida/negada）与应答车辆ID
// 说明：行人仅接受来自其正在协商车辆的应答，其余忽略
type CrossingResponse struct {
	Status    string // 应答状态
	VehicleID string // 应答方车辆ID
}
