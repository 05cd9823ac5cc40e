package server

import (
	"sync"

	"miniarena/physics"
)

// RoomManager 管理多个房间的生命周期；房间之间不共享可变状态，各自独立 Tick
type RoomManager struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	cfg    Config
	engine *physics.Engine
}

// NewRoomManager 所有房间共用同一个（无状态的）物理引擎
func NewRoomManager(cfg Config, engine *physics.Engine) *RoomManager {
	return &RoomManager{
		rooms:  make(map[string]*Room),
		cfg:    cfg,
		engine: engine,
	}
}

// GetOrCreateRoom 获取或创建房间，并确保开始 Tick
func (m *RoomManager) GetOrCreateRoom(id string) (*Room, error) {
	m.mu.RLock()
	r, ok := m.rooms[id]
	m.mu.RUnlock()
	if ok {
		return r, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.rooms[id]; ok {
		return r, nil
	}
	r, err := NewRoom(id, m.cfg, m.engine)
	if err != nil {
		return nil, err
	}
	m.rooms[id] = r
	r.StartTicker()
	Log.Infof("room created: id=%s tick=%s engine=%s", id, r.tickInterval, m.engine)
	return r, nil
}

// Room 查找已存在的房间
func (m *RoomManager) Room(id string) (*Room, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[id]
	return r, ok
}

// Shutdown 停止所有房间的 Tick
func (m *RoomManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, r := range m.rooms {
		r.StopTicker()
		Log.Infof("room stopped: id=%s", id)
	}
}
