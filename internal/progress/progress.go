// Package progress 在终端展示批量操作的进度。
package progress

import (
	"github.com/pterm/pterm"
)

// Reporter 定长任务的进度条。
// disabled 状态下所有方法都是空操作，安静模式和重定向输出时使用。
type Reporter struct {
	bar     *pterm.ProgressbarPrinter
	enabled bool
}

// New 创建进度条，total 为任务单元总数
func New(title string, total int, enabled bool) *Reporter {
	if !enabled || total <= 0 {
		return &Reporter{}
	}
	bar, err := pterm.DefaultProgressbar.WithTotal(total).WithTitle(title).Start()
	if err != nil {
		return &Reporter{}
	}
	return &Reporter{bar: bar, enabled: true}
}

// Increment 前进一个单元
func (r *Reporter) Increment() {
	r.Add(1)
}

// Add 前进 n 个单元
func (r *Reporter) Add(n int) {
	if !r.enabled {
		return
	}
	r.bar.Add(n)
}

// UpdateTitle 更新进度条标题
func (r *Reporter) UpdateTitle(title string) {
	if !r.enabled {
		return
	}
	r.bar.UpdateTitle(title)
}

// Stop 结束进度条
func (r *Reporter) Stop() {
	if !r.enabled {
		return
	}
	_, _ = r.bar.Stop()
}

// Spinner 时长未知的单个操作的转轮提示
type Spinner struct {
	spinner *pterm.SpinnerPrinter
	enabled bool
}

// NewSpinner 创建并启动转轮
func NewSpinner(text string, enabled bool) *Spinner {
	if !enabled {
		return &Spinner{}
	}
	spinner, err := pterm.DefaultSpinner.Start(text)
	if err != nil {
		return &Spinner{}
	}
	return &Spinner{spinner: spinner, enabled: true}
}

// Success 以成功状态结束
func (s *Spinner) Success(text string) {
	if !s.enabled {
		return
	}
	s.spinner.Success(text)
}

// Fail 以失败状态结束
func (s *Spinner) Fail(text string) {
	if !s.enabled {
		return
	}
	s.spinner.Fail(text)
}
