package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tsinghua-fib-lab/crossing-sim/entity"
)

func TestAxisLightKey(t *testing.T) {
	assert.Equal(t, entity.VerticalLightKey, entity.AxisVertical.LightKey())
	assert.Equal(t, entity.HorizontalLightKey, entity.AxisHorizontal.LightKey())
	assert.Equal(t, "vertical", entity.AxisVertical.String())
	assert.Equal(t, "horizontal", entity.AxisHorizontal.String())
}

func TestSignalPerceptVisual(t *testing.T) {
	p := entity.SignalPercept{Vertical: entity.LightGreen, Horizontal: entity.LightRed}
	assert.Equal(t, entity.LightGreen, p.Visual(entity.AxisVertical))
	assert.Equal(t, entity.LightRed, p.Visual(entity.AxisHorizontal))

	// test: 黄灯与熄灭折算为红灯
	p = entity.SignalPercept{Vertical: entity.LightYellow, Horizontal: entity.LightOff}
	assert.Equal(t, entity.LightRed, p.Visual(entity.AxisVertical))
	assert.Equal(t, entity.LightRed, p.Visual(entity.AxisHorizontal))
}

func TestSignalPerceptPedestrian(t *testing.T) {
	// 所穿越道路放行车辆时行人信号关闭
	p := entity.SignalPercept{Vertical: entity.LightRed, Horizontal: entity.LightGreen}
	assert.Equal(t, entity.PedSignalClosed, p.Pedestrian(entity.AxisHorizontal))
	assert.Equal(t, entity.PedSignalOpen, p.Pedestrian(entity.AxisVertical))

	p = entity.SignalPercept{Vertical: entity.LightGreen, Horizontal: entity.LightYellow}
	assert.Equal(t, entity.PedSignalOpen, p.Pedestrian(entity.AxisHorizontal))
	assert.Equal(t, entity.PedSignalClosed, p.Pedestrian(entity.AxisVertical))
}
