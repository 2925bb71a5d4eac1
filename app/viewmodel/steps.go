// Package viewmodel 从演示快照推导步骤视图状态，不做任何 I/O。
package viewmodel

import "demo-engine/app/model"

// StepView 步骤列表及当前选中项
type StepView struct {
	steps       []model.Step
	activeIndex int
}

func NewStepView() *StepView {
	return &StepView{}
}

// Apply 使用新快照更新步骤，选中项限制在有效范围内
func (v *StepView) Apply(demo *model.Demo) {
	if demo == nil {
		v.steps = nil
	} else {
		v.steps = append(v.steps[:0:0], demo.Steps...)
	}
	v.activeIndex = v.clamp(v.activeIndex)
}

// Select 选中第 i 个步骤，越界时取最近的有效值
func (v *StepView) Select(i int) {
	v.activeIndex = v.clamp(i)
}

// Next 选中下一步，已是最后一步时不变
func (v *StepView) Next() {
	v.Select(v.activeIndex + 1)
}

// Prev 选中上一步
func (v *StepView) Prev() {
	v.Select(v.activeIndex - 1)
}

func (v *StepView) ActiveIndex() int {
	return v.activeIndex
}

// Active 当前选中的步骤，没有步骤时 ok 为 false
func (v *StepView) Active() (model.Step, bool) {
	if len(v.steps) == 0 {
		return model.Step{}, false
	}
	return v.steps[v.activeIndex], true
}

// Steps 返回步骤副本
func (v *StepView) Steps() []model.Step {
	return append([]model.Step(nil), v.steps...)
}

func (v *StepView) Len() int {
	return len(v.steps)
}

func (v *StepView) clamp(i int) int {
	if i >= len(v.steps) {
		i = len(v.steps) - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
