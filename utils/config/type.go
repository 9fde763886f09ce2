package config

// Control 模拟器控制配置
// 功能：定义仿真系统的核心时序参数
// 说明：所有时间值单位为秒
type Control struct {
	TickVehicle     float64 `yaml:"tick_vehicle,omitempty"`     // 车辆步进间隔
	TickPedestrian  float64 `yaml:"tick_pedestrian,omitempty"`  // 行人步进间隔
	MonitorInterval float64 `yaml:"monitor_interval,omitempty"` // 让行监视间隔
	ResponseTimeout float64 `yaml:"response_timeout,omitempty"` // 过街应答超时
}

// Agents 智能体数量与属性配置
type Agents struct {
	NumVehicles    int     `yaml:"num_vehicles,omitempty"`    // 车辆数
	NumPedestrians int     `yaml:"num_pedestrians,omitempty"` // 行人数
	SpeedMin       float64 `yaml:"speed_min,omitempty"`       // 速度下限（像素/步进）
	SpeedMax       float64 `yaml:"speed_max,omitempty"`       // 速度上限（像素/步进）
	Seed           int64   `yaml:"seed,omitempty"`            // 随机种子
}

// Learning 学习变体配置
// 说明：启用后智能体的通行决策由上下文赌博机策略给出，训练期内
// 执行规则回退动作
type Learning struct {
	Enabled  bool    `yaml:"enabled,omitempty"`  // 是否启用学习变体
	Episodes int     `yaml:"episodes,omitempty"` // 训练轮数预算
	Epsilon  float64 `yaml:"epsilon,omitempty"`  // 训练期探索率
}

// Output 轨迹输出配置
// 说明：URI为空时禁用输出
type Output struct {
	URI      string  `yaml:"uri,omitempty"`      // MongoDB连接字符串
	DB       string  `yaml:"db,omitempty"`       // 数据库名
	Col      string  `yaml:"col,omitempty"`      // 集合名
	Interval float64 `yaml:"interval,omitempty"` // 快照采样间隔（秒）
}

// Config YAML配置文件的根结构
type Config struct {
	Control  Control  `yaml:"control"`  // 模拟过程控制
	Agents   Agents   `yaml:"agents"`   // 智能体配置
	Learning Learning `yaml:"learning"` // 学习变体
	Output   Output   `yaml:"output"`   // 轨迹输出
}
