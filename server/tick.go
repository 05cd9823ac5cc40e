package server

import "time"

// StartTicker 启动房间的 Tick 循环（单线程推进世界）
func (r *Room) StartTicker() {
	if r.tickerStarted {
		return
	}
	r.tickerStarted = true
	go func() {
		ticker := time.NewTicker(r.tickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.stop:
				return
			case <-ticker.C:
				r.Step()
			}
		}
	}()
}

// Step 执行一次完整的 Tick：处理输入 → 更新世界 → 广播结果
func (r *Room) Step() {
	start := time.Now()
	r.BeginTick() // 同一 Tick 时间线：重置输入计数等帧内状态
	r.ProcessInputs()
	r.UpdateWorld(r.tickInterval.Seconds())
	r.Broadcast()
	r.metrics.AddTick(time.Since(start).Nanoseconds())
}

// StopTicker 停止 Tick 循环，可重复调用
func (r *Room) StopTicker() {
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
}
