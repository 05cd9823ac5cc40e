package server

import (
	"encoding/json"
	"maps"
	"math"
	"slices"
	"sync"
	"time"

	"go.uber.org/multierr"

	"miniarena/physics"
)

// BoundaryID 外墙实体的 id，房间内其他实体从 1 开始编号
const BoundaryID uint64 = 0

// HitEvent 一次攻击/子弹命中的结果
type HitEvent struct {
	Type     string   `json:"type"`
	Kind     string   `json:"kind"` // attack | cone | projectile
	Attacker string   `json:"attacker"`
	Targets  []string `json:"targets"`
}

type joinRequest struct {
	id   PlayerID
	conn *Session
}

// leaveRequest 带上发起离开的会话；玩家已被新会话接管时忽略
type leaveRequest struct {
	id   PlayerID
	conn *Session
}

// Room 房间世界：权威状态维护在内存，单线程 Tick 推进
// Players/Projectiles 只允许在 Tick 协程中修改；外部通过通道投递加入、离开和输入
type Room struct {
	ID string

	Players     map[PlayerID]*Player
	Projectiles map[uint64]*Projectile
	byEntity    map[uint64]PlayerID

	inputChan chan Input
	joinChan  chan joinRequest
	leaveChan chan leaveRequest

	engine   *physics.Engine
	boundary physics.Entity

	// 可热更新的玩法参数
	mu    sync.RWMutex
	arena ArenaConfig

	nextID         uint64
	tickSeq        int64
	tickInterval   time.Duration
	lastSeq        map[PlayerID]int64
	inputsThisTick map[PlayerID]int
	events         []HitEvent
	metrics        *RoomMetrics

	tickerStarted bool
	stop          chan struct{}
}

// NewRoom 创建房间，初始化数据结构
func NewRoom(id string, cfg Config, engine *physics.Engine) (*Room, error) {
	boundary, err := cfg.Arena.Boundary.Entity()
	if err != nil {
		return nil, err
	}
	tps := cfg.Server.TicksPerSecond
	if tps <= 0 {
		tps = DefaultConfig().Server.TicksPerSecond
	}
	return &Room{
		ID:             id,
		Players:        make(map[PlayerID]*Player),
		Projectiles:    make(map[uint64]*Projectile),
		byEntity:       make(map[uint64]PlayerID),
		inputChan:      make(chan Input, 256), // 足够缓冲，避免网络读阻塞影响 Tick
		joinChan:       make(chan joinRequest, 64),
		leaveChan:      make(chan leaveRequest, 64),
		engine:         engine,
		boundary:       boundary,
		arena:          cfg.Arena,
		nextID:         BoundaryID + 1,
		tickInterval:   time.Second / time.Duration(tps), // 20 TPS 时为 50ms
		lastSeq:        make(map[PlayerID]int64),
		inputsThisTick: make(map[PlayerID]int),
		metrics:        &RoomMetrics{},
		stop:           make(chan struct{}),
	}, nil
}

// Arena 返回当前玩法参数的副本
func (r *Room) Arena() ArenaConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.arena
}

// UpdateArena 在锁内修改玩法参数，下一次 Tick 生效
func (r *Room) UpdateArena(fn func(*ArenaConfig)) ArenaConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(&r.arena)
	return r.arena
}

func (r *Room) Metrics() *RoomMetrics { return r.metrics }

func (r *Room) allocID() uint64 {
	id := r.nextID
	r.nextID++
	return id
}

// JoinPlayer 将玩家加入房间（仅在 Tick 协程或测试中直接调用）
func (r *Room) JoinPlayer(id PlayerID, conn *Session) *Player {
	if old, ok := r.Players[id]; ok {
		// 同名重连：沿用实体，替换连接
		if old.Conn != nil && old.Conn != conn {
			old.Conn.Close()
		}
		old.Conn = conn
		return old
	}
	arena := r.Arena()
	centre := arena.Boundary.Centre()
	e := physics.NewCircle(r.allocID(), spawnPosition(id, centre, arena.SpawnRadius), arena.PlayerRadius)
	e.Category = physics.CategoryPlayer
	e.Speed = arena.PlayerSpeed
	if ok, err := physics.IsInsideMap(e, r.boundary); err != nil || !ok {
		e.Position = centre
	}
	p := &Player{ID: id, Entity: e, Facing: physics.Direction{X: 1, Y: 0}, Conn: conn}
	r.Players[id] = p
	r.byEntity[e.ID] = id
	Log.Infof("player joined: room=%s player=%s entity=%d pos=(%.2f,%.2f)", r.ID, id, e.ID, e.Position.X, e.Position.Y)
	return p
}

// LeavePlayer 将玩家移出房间
func (r *Room) LeavePlayer(id PlayerID) {
	if p, ok := r.Players[id]; ok {
		if p.Conn != nil {
			p.Conn.Close()
		}
		delete(r.byEntity, p.Entity.ID)
		delete(r.Players, id)
		delete(r.lastSeq, id)
		Log.Infof("player left: room=%s player=%s", r.ID, id)
	}
}

// leave 处理会话发起的离开：只有仍是当前会话时才移除玩家
func (r *Room) leave(req leaveRequest) {
	p, ok := r.Players[req.id]
	if !ok {
		return
	}
	if p.Conn != req.conn {
		Log.Debugf("stale leave ignored: room=%s player=%s", r.ID, req.id)
		return
	}
	r.LeavePlayer(req.id)
}

// RequestJoin 请求在 Tick 线程中加入玩家；房间已停止时返回 false
func (r *Room) RequestJoin(id PlayerID, conn *Session) bool {
	return enqueue(r.joinChan, joinRequest{id: id, conn: conn}, r.stop)
}

// RequestLeave 请求在 Tick 线程中移除 conn 对应的玩家；房间已停止时返回 false
func (r *Room) RequestLeave(id PlayerID, conn *Session) bool {
	return enqueue(r.leaveChan, leaveRequest{id: id, conn: conn}, r.stop)
}

// enqueue 阻塞写入，直到写入成功或 stop 关闭；停止后不再接受新请求
func enqueue[T any](ch chan<- T, v T, stop <-chan struct{}) bool {
	select {
	case <-stop:
		return false
	default:
	}
	select {
	case ch <- v:
		return true
	case <-stop:
		return false
	}
}

// OnInput 入站输入（不立即改变位置），仅记录意图，等下一次 Tick 处理
func (r *Room) OnInput(in Input) {
	// 不阻塞：输入拥塞时丢弃（由通道容量控制），保证 Tick 准时
	select {
	case r.inputChan <- in:
	default:
		r.metrics.IncChanFullDiscarded()
	}
}

// BeginTick 重置帧内状态
func (r *Room) BeginTick() {
	r.tickSeq++
	clear(r.inputsThisTick)
}

// ProcessInputs 处理当前帧的所有输入意图（非阻塞 drain）
func (r *Room) ProcessInputs() {
	maxInputs := r.Arena().MaxInputsPerTick
	for {
		select {
		case req := <-r.joinChan:
			r.JoinPlayer(req.id, req.conn)
		case req := <-r.leaveChan:
			r.leave(req)
		case in := <-r.inputChan:
			p, ok := r.Players[in.PlayerID]
			if !ok {
				continue
			}
			if in.Seq > 0 {
				if in.Seq <= r.lastSeq[in.PlayerID] {
					r.metrics.IncOldSeqIgnored()
					continue
				}
				r.lastSeq[in.PlayerID] = in.Seq
			}
			if maxInputs > 0 && r.inputsThisTick[in.PlayerID] >= maxInputs {
				r.metrics.IncRateLimited()
				continue
			}
			r.inputsThisTick[in.PlayerID]++
			r.metrics.IncAccepted()
			r.applyInput(p, in)
		default:
			return
		}
	}
}

// applyInput 解释单条输入；位置本身只在 UpdateWorld 中推进
func (r *Room) applyInput(p *Player, in Input) {
	arena := r.Arena()
	switch in.Kind {
	case InputMove:
		dir, err := physics.Normalize(in.X, in.Y)
		if err != nil {
			p.Entity.IsMoving = false
			return
		}
		p.Facing = dir
		p.Entity.Direction = dir
		p.Entity.Speed = arena.PlayerSpeed
		p.Entity.IsMoving = true
	case InputStop:
		p.Entity.IsMoving = false
	case InputAim:
		dir, err := physics.AddAngleToDirection(p.Facing, in.Angle)
		if err != nil {
			r.physicsError("aim", p.ID, err)
			return
		}
		p.Facing = dir
		if p.Entity.IsMoving {
			p.Entity.Direction = dir
		}
	case InputAttack:
		r.attack(p, arena)
	case InputCone:
		r.coneAttack(p, arena)
	case InputShoot:
		r.shoot(p, arena)
	}
}

// attack 在玩家正前方 AttackRange 处放一个半径 AttackRadius 的圆形判定
func (r *Room) attack(p *Player, arena ArenaConfig) {
	centre := p.Entity.Position.Add(p.Facing, arena.AttackRange)
	query := physics.NewCircle(p.Entity.ID, centre, arena.AttackRadius)
	ids, err := r.engine.CheckCollisions(query, r.playerEntities())
	if err != nil {
		r.physicsError("attack", p.ID, err)
		return
	}
	r.recordHit("attack", p.ID, ids)
}

// coneAttack 扇形判定：玩家圆与三角形有任意接触即命中
func (r *Room) coneAttack(p *Player, arena ArenaConfig) {
	cone, err := physics.Cone(p.Entity.ID, p.Entity.Position, p.Facing, arena.ConeRange, arena.ConeAngle)
	if err != nil {
		r.physicsError("cone", p.ID, err)
		return
	}
	var ids []uint64
	for _, id := range r.sortedPlayers() {
		target := r.Players[id]
		if target == p {
			continue
		}
		hit, err := r.engine.CirclePolygonCollision(target.Entity, cone)
		if err != nil {
			r.physicsError("cone", p.ID, err)
			return
		}
		if hit {
			ids = append(ids, target.Entity.ID)
		}
	}
	r.recordHit("cone", p.ID, ids)
}

// shoot 从玩家边缘沿朝向发射一颗子弹
func (r *Room) shoot(p *Player, arena ArenaConfig) {
	start := p.Entity.Position.Add(p.Facing, p.Entity.Radius)
	e := physics.NewPoint(r.allocID(), start)
	e.Category = physics.CategoryProjectile
	e.Direction = p.Facing
	e.Speed = arena.ProjectileSpeed
	e.IsMoving = true
	r.Projectiles[e.ID] = &Projectile{Owner: p.ID, Entity: e}
}

// UpdateWorld 推进所有移动中的实体：玩家被限制在外墙内，子弹命中或飞出地图后移除
func (r *Room) UpdateWorld(deltaTime float64) {
	entities := r.playerEntities()
	for id, pr := range r.Projectiles {
		entities[id] = pr.Entity
	}

	moved, err := r.engine.MoveEntities(entities, deltaTime, r.boundary)
	if err != nil {
		errs := multierr.Errors(err)
		r.metrics.AddPhysicsErrors(len(errs))
		Log.Warnf("move entities: room=%s tick=%d errors=%d: %v", r.ID, r.tickSeq, len(errs), err)
	}

	for _, p := range r.Players {
		next := moved[p.Entity.ID]
		if next.IsMoving && next.Position != p.Entity.Position &&
			next.Position != physics.Advance(p.Entity, deltaTime).Position {
			r.metrics.IncBoundaryClamped()
		}
		p.Entity = next
	}

	players := r.playerEntities()
	for _, id := range slices.Sorted(maps.Keys(r.Projectiles)) {
		pr := r.Projectiles[id]
		from := pr.Entity.Position
		pr.Entity = moved[id]
		r.resolveProjectile(pr, from, players)
	}
}

// resolveProjectile 检查子弹本帧从 from 飞到当前位置途中命中的玩家，
// 命中或飞出地图后移除
func (r *Room) resolveProjectile(pr *Projectile, from physics.Position, players map[uint64]physics.Entity) {
	owner := r.Players[pr.Owner]
	candidates := make([]physics.Entity, 0, len(players))
	for _, id := range slices.Sorted(maps.Keys(players)) {
		if owner != nil && id == owner.Entity.ID {
			continue
		}
		candidates = append(candidates, players[id])
	}
	var (
		ids []uint64
		err error
	)
	if from == pr.Entity.Position {
		ids, err = r.engine.CheckCollisionsOrdered(pr.Entity, candidates)
	} else {
		ids, err = r.sweepHit(from, pr.Entity, candidates)
	}
	if err != nil {
		r.physicsError("projectile", pr.Owner, err)
	}
	if len(ids) > 0 {
		r.recordHit("projectile", pr.Owner, ids)
		delete(r.Projectiles, pr.Entity.ID)
		return
	}
	inside, err := physics.IsInsideMap(pr.Entity, r.boundary)
	if err != nil || !inside {
		r.metrics.IncProjectilesExpired()
		delete(r.Projectiles, pr.Entity.ID)
	}
}

// sweepHit 用 from → 当前位置的线段与每个候选求接触点，返回离 from 最近的那个目标。
// 只检查终点的话，高速子弹会穿过两次采样之间的玩家。
func (r *Room) sweepHit(from physics.Position, pr physics.Entity, candidates []physics.Entity) ([]uint64, error) {
	sweep := physics.NewSegment(pr.ID, from, pr.Position)
	var (
		errs    error
		target  uint64
		nearest = math.Inf(1)
	)
	for _, c := range candidates {
		points, err := r.engine.CollidingPoints(sweep, c)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		for _, pt := range points {
			if d := physics.Distance(from, pt); d < nearest {
				target, nearest = c.ID, d
			}
		}
	}
	if math.IsInf(nearest, 1) {
		return nil, errs
	}
	return []uint64{target}, errs
}

// Broadcast 将当前世界状态与本帧命中事件广播给所有玩家（文本 JSON）
func (r *Room) Broadcast() {
	payload := r.Snapshot()
	b, _ := json.Marshal(payload)
	msgs := [][]byte{b}
	for _, ev := range r.events {
		eb, _ := json.Marshal(ev)
		msgs = append(msgs, eb)
	}
	r.events = r.events[:0]

	for _, p := range r.Players {
		if p.Conn == nil {
			continue
		}
		for _, m := range msgs {
			p.Conn.Send(m)
		}
	}
}

// StateMessage 每帧广播的世界快照
type StateMessage struct {
	Type        string            `json:"type"`
	Tick        int64             `json:"tick"`
	Players     []PlayerState     `json:"players"`
	Projectiles []ProjectileState `json:"projectiles"`
}

// Snapshot 生成当前帧的快照，按 id 排序保证输出稳定
func (r *Room) Snapshot() StateMessage {
	msg := StateMessage{
		Type:        "state",
		Tick:        r.tickSeq,
		Players:     make([]PlayerState, 0, len(r.Players)),
		Projectiles: make([]ProjectileState, 0, len(r.Projectiles)),
	}
	for _, id := range r.sortedPlayers() {
		msg.Players = append(msg.Players, r.Players[id].State())
	}
	for _, id := range slices.Sorted(maps.Keys(r.Projectiles)) {
		pr := r.Projectiles[id]
		msg.Projectiles = append(msg.Projectiles, ProjectileState{
			ID: id, Owner: string(pr.Owner), X: pr.Entity.Position.X, Y: pr.Entity.Position.Y,
		})
	}
	return msg
}

func (r *Room) playerEntities() map[uint64]physics.Entity {
	out := make(map[uint64]physics.Entity, len(r.Players)+len(r.Projectiles))
	for _, p := range r.Players {
		out[p.Entity.ID] = p.Entity
	}
	return out
}

func (r *Room) sortedPlayers() []PlayerID {
	return slices.Sorted(maps.Keys(r.Players))
}

func (r *Room) recordHit(kind string, attacker PlayerID, ids []uint64) {
	if len(ids) == 0 {
		return
	}
	ev := HitEvent{Type: "hit", Kind: kind, Attacker: string(attacker)}
	for _, id := range ids {
		if pid, ok := r.byEntity[id]; ok {
			ev.Targets = append(ev.Targets, string(pid))
		}
	}
	r.events = append(r.events, ev)
	r.metrics.AddHits(len(ids))
	Log.Debugf("hit: room=%s kind=%s attacker=%s targets=%v", r.ID, kind, attacker, ev.Targets)
}

func (r *Room) physicsError(op string, pid PlayerID, err error) {
	r.metrics.AddPhysicsErrors(1)
	Log.Warnf("%s failed: room=%s player=%s: %v", op, r.ID, pid, err)
}
