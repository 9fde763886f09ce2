package roadnet

import "gonum.org/v1/gonum/spatial/r2"

// 车辆路点坐标
// 说明：V_*为垂直道路（自下而上，Y递减），H_*为水平道路（自右向左，
// X递减），PX1_EVAL_*为路口西侧斑马线前的共用评估点
var vehicleCoords = map[string]r2.Vec{
	"V_START_L": {X: 300, Y: 720}, "V_START_C": {X: 360, Y: 720}, "V_START_R": {X: 420, Y: 720},
	"V_CHANGE_L": {X: 300, Y: 600}, "V_CHANGE_C": {X: 360, Y: 600}, "V_CHANGE_R": {X: 420, Y: 600},
	"V_MID_L": {X: 300, Y: 490}, "V_MID_C": {X: 360, Y: 490}, "V_MID_R": {X: 420, Y: 490},
	"V_INT_L": {X: 300, Y: 387}, "V_INT_C": {X: 360, Y: 387}, "V_INT_R": {X: 420, Y: 387},
	"V_EVAL_C": {X: 360, Y: 300}, "V_EVAL_R": {X: 420, Y: 300},
	"V_END_C": {X: 360, Y: 0}, "V_END_R": {X: 420, Y: 0},
	"H_START_R": {X: 720, Y: 348}, "H_START_L": {X: 719, Y: 387},
	"H_CHANGE_R": {X: 650, Y: 348}, "H_CHANGE_L": {X: 650, Y: 387},
	"H_MID_R": {X: 550, Y: 348}, "H_MID_L": {X: 550, Y: 387},
	"H_INT_R": {X: 420, Y: 348}, "H_INT_L": {X: 420, Y: 387},
	"PX1_EVAL_H": {X: 240, Y: 387}, "PX1_EVAL_V": {X: 240, Y: 387},
	"H_END_L": {X: 0, Y: 387},
}

// 车辆有向邻接表（车流方向）
var vehicleEdges = map[string][]string{
	"V_START_L": {"V_CHANGE_L"}, "V_START_C": {"V_CHANGE_C"}, "V_START_R": {"V_CHANGE_R"},
	"V_CHANGE_L": {"V_MID_L", "V_CHANGE_C"},
	"V_CHANGE_C": {"V_MID_C", "V_CHANGE_L", "V_CHANGE_R"},
	"V_CHANGE_R": {"V_MID_R", "V_CHANGE_C"},
	"V_MID_L":    {"V_INT_L"}, "V_MID_C": {"V_INT_C"}, "V_MID_R": {"V_INT_R"},
	"V_INT_L": {"PX1_EVAL_V"},
	"V_INT_C": {"V_EVAL_C"},
	"V_INT_R": {"V_EVAL_R"},
	"V_EVAL_C": {"V_END_C"},
	"V_EVAL_R": {"V_END_R"},
	"H_START_R": {"H_CHANGE_R"}, "H_START_L": {"H_CHANGE_L"},
	"H_CHANGE_R": {"H_MID_R", "H_CHANGE_L"},
	"H_CHANGE_L": {"H_MID_L", "H_CHANGE_R"},
	"H_MID_R":    {"H_INT_R"},
	"H_MID_L":    {"H_INT_L"},
	"H_INT_R":    {"V_END_R"},
	"H_INT_L":    {"PX1_EVAL_H"},
	"PX1_EVAL_H": {"H_END_L"},
	"PX1_EVAL_V": {"H_END_L"},
	"V_END_C":    {}, "V_END_R": {}, "H_END_L": {},
}

// 行人路点坐标
// 说明：P1~P4为路口四角的过街等待点，P5~P12为外围人行道端点
var pedestrianCoords = map[string]r2.Vec{
	"P1": {X: 195, Y: 449}, "P2": {X: 520, Y: 449}, "P3": {X: 520, Y: 235},
	"P4": {X: 195, Y: 243}, "P5": {X: 5, Y: 244}, "P6": {X: 195, Y: 10},
	"P7": {X: 711, Y: 248}, "P8": {X: 510, Y: 10}, "P9": {X: 195, Y: 690},
	"P10": {X: 5, Y: 449}, "P11": {X: 715, Y: 449}, "P12": {X: 520, Y: 689},
}

// 行人有向邻接表
var pedestrianEdges = map[string][]string{
	"P1": {"P4", "P2", "P9", "P10"},
	"P2": {"P3", "P1", "P11", "P12"},
	"P3": {"P2", "P4", "P7", "P8"},
	"P4": {"P1", "P3", "P5", "P6"},
	"P5": {"P4"}, "P6": {"P4"}, "P7": {"P3"}, "P8": {"P3"},
	"P9": {"P1"}, "P10": {"P1"}, "P11": {"P2"}, "P12": {"P2"},
}

// 车辆停车线路点（信号灯前）
var stopPoints = []string{"V_MID_L", "V_MID_C", "V_MID_R", "H_MID_L", "H_MID_R"}

// 车辆让行评估路点（斑马线前）
var evalPoints = []string{
	"V_MID_L", "V_MID_C", "V_MID_R", "V_EVAL_C", "V_EVAL_R",
	"H_MID_L", "H_MID_R", "PX1_EVAL_H", "PX1_EVAL_V",
}

// 行人过街等待点
var waitPoints = []string{"P1", "P2", "P3", "P4"}

// 斑马线区域（Xmin, Xmax, Ymin, Ymax）
var (
	zoneCrosswalk1 = Zone{Xmin: 180, Xmax: 210, Ymin: 243, Ymax: 449} // P1↔P4
	zoneCrosswalk2 = Zone{Xmin: 505, Xmax: 535, Ymin: 235, Ymax: 449} // P2↔P3
	zoneCrosswalk3 = Zone{Xmin: 195, Xmax: 520, Ymin: 434, Ymax: 464} // P1↔P2
	zoneCrosswalk4 = Zone{Xmin: 195, Xmax: 520, Ymin: 220, Ymax: 258} // P4↔P3
)

// 评估路点与相关斑马线区域的映射
var zoneByEval = map[string]Zone{
	"PX1_EVAL_H": zoneCrosswalk1,
	"PX1_EVAL_V": zoneCrosswalk1,
	"H_MID_L":    zoneCrosswalk2,
	"H_MID_R":    zoneCrosswalk2,
	"V_MID_L":    zoneCrosswalk3,
	"V_MID_C":    zoneCrosswalk3,
	"V_MID_R":    zoneCrosswalk3,
	"V_EVAL_C":   zoneCrosswalk4,
	"V_EVAL_R":   zoneCrosswalk4,
}

// 行人过街对（对称最小表）
var crossingPairs = map[string]string{
	"P1": "P4", "P4": "P1",
	"P2": "P3", "P3": "P2",
}

// 起点集合
var (
	startsVertical   = []string{"V_START_L", "V_START_C", "V_START_R"}
	startsHorizontal = []string{"H_START_R", "H_START_L"}
	pedestrianStarts = []string{"P1", "P3"}
)
