package server

import (
	"encoding/json"
	"net/http"
)

// adminConfig 可热更新的房间参数（指针字段：只更新请求中出现的字段）
type adminConfig struct {
	PlayerSpeed      *float64 `json:"playerSpeed,omitempty"`
	AttackRange      *float64 `json:"attackRange,omitempty"`
	AttackRadius     *float64 `json:"attackRadius,omitempty"`
	ConeRange        *float64 `json:"coneRange,omitempty"`
	ConeAngle        *float64 `json:"coneAngle,omitempty"`
	ProjectileSpeed  *float64 `json:"projectileSpeed,omitempty"`
	MaxInputsPerTick *int     `json:"maxInputsPerTick,omitempty"`
}

func currentAdminConfig(a ArenaConfig) adminConfig {
	return adminConfig{
		PlayerSpeed:      &a.PlayerSpeed,
		AttackRange:      &a.AttackRange,
		AttackRadius:     &a.AttackRadius,
		ConeRange:        &a.ConeRange,
		ConeAngle:        &a.ConeAngle,
		ProjectileSpeed:  &a.ProjectileSpeed,
		MaxInputsPerTick: &a.MaxInputsPerTick,
	}
}

func (c adminConfig) apply(a *ArenaConfig) {
	if c.PlayerSpeed != nil && *c.PlayerSpeed >= 0 {
		a.PlayerSpeed = *c.PlayerSpeed
	}
	if c.AttackRange != nil && *c.AttackRange >= 0 {
		a.AttackRange = *c.AttackRange
	}
	if c.AttackRadius != nil && *c.AttackRadius >= 0 {
		a.AttackRadius = *c.AttackRadius
	}
	if c.ConeRange != nil && *c.ConeRange >= 0 {
		a.ConeRange = *c.ConeRange
	}
	if c.ConeAngle != nil {
		a.ConeAngle = *c.ConeAngle
	}
	if c.ProjectileSpeed != nil && *c.ProjectileSpeed >= 0 {
		a.ProjectileSpeed = *c.ProjectileSpeed
	}
	if c.MaxInputsPerTick != nil {
		a.MaxInputsPerTick = *c.MaxInputsPerTick
	}
}

// HandleAdminConfig 提供房间配置的读取与更新（热更新基本规则）
// GET /admin/config?room=room-1  返回当前配置
// POST /admin/config?room=room-1 以 JSON 载荷更新部分字段
func (m *RoomManager) HandleAdminConfig(w http.ResponseWriter, r *http.Request) {
	roomID := m.roomParam(r)
	room, err := m.GetOrCreateRoom(roomID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	switch r.Method {
	case http.MethodGet:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(currentAdminConfig(room.Arena()))
		return
	case http.MethodPost:
		var body adminConfig
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		a := room.UpdateArena(body.apply)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
		Log.Infof("config updated: room=%s speed=%.2f attack=%.2f/%.2f cone=%.2f/%.2f projectile=%.2f maxInputsPerTick=%d",
			roomID, a.PlayerSpeed, a.AttackRange, a.AttackRadius, a.ConeRange, a.ConeAngle, a.ProjectileSpeed, a.MaxInputsPerTick)
		return
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
}

// HandleMetrics 输出指定房间的运行指标
// GET /metrics?room=room-1
func (m *RoomManager) HandleMetrics(w http.ResponseWriter, r *http.Request) {
	roomID := m.roomParam(r)
	room, ok := m.Room(roomID)
	if !ok {
		http.Error(w, "room not found", http.StatusNotFound)
		return
	}
	payload := map[string]any{
		"room":    roomID,
		"metrics": room.Metrics().Snapshot(),
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
