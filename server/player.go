package server

import (
	"math"

	"github.com/cespare/xxhash/v2"

	"miniarena/physics"
)

// PlayerID 表示玩家唯一标识
type PlayerID string

// PlayerState 为广播给客户端的轻量状态
type PlayerState struct {
	ID     string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DirX   float64 `json:"dirX"`
	DirY   float64 `json:"dirY"`
	Moving bool    `json:"moving"`
}

// ProjectileState 广播用的子弹状态
type ProjectileState struct {
	ID    uint64  `json:"id"`
	Owner string  `json:"owner"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// Player 房间内的玩家（服务端权威状态）
// 位置、朝向、速度都保存在物理实体中，每个 Tick 由 physics 推进
type Player struct {
	ID     PlayerID
	Entity physics.Entity
	// Facing 最近一次非零的朝向，停下后攻击仍沿该方向
	Facing physics.Direction

	Conn *Session // 当前会话，同名重连时被替换
}

func (p *Player) State() PlayerState {
	return PlayerState{
		ID:     string(p.ID),
		X:      p.Entity.Position.X,
		Y:      p.Entity.Position.Y,
		DirX:   p.Facing.X,
		DirY:   p.Facing.Y,
		Moving: p.Entity.IsMoving,
	}
}

// Projectile 子弹，不受边界约束，飞出地图后由房间移除
type Projectile struct {
	Owner  PlayerID
	Entity physics.Entity
}

// spawnPosition 按玩家名哈希在出生圆环上取一个确定的位置，重连时出生点不变
func spawnPosition(id PlayerID, centre physics.Position, radius float64) physics.Position {
	h := xxhash.Sum64String(string(id))
	angle := float64(h%3600) / 10 * math.Pi / 180
	return physics.Position{
		X: centre.X + radius*math.Cos(angle),
		Y: centre.Y + radius*math.Sin(angle),
	}
}
