package server

import "strings"

// InputKind 客户端输入类型
type InputKind int

const (
	InputNone InputKind = iota
	InputMove
	InputStop
	InputAim
	InputAttack
	InputCone
	InputShoot
)

func parseInputKind(s string) InputKind {
	switch strings.ToLower(s) {
	case "move":
		return InputMove
	case "stop":
		return InputStop
	case "aim":
		return InputAim
	case "attack":
		return InputAttack
	case "cone":
		return InputCone
	case "shoot":
		return InputShoot
	default:
		return InputNone
	}
}

// Input 客户端输入（意图），由服务端在 Tick 中解释并驱动世界状态
type Input struct {
	PlayerID PlayerID
	Kind     InputKind
	// move: 目标方向（不要求归一化）；aim: Angle 为相对当前朝向的角度
	X, Y  float64
	Angle float64
	Seq   int64 // 客户端本地序列号，用于去重与确认
}

// 入站输入的简单 JSON 结构（WebSocket 文本消息）
// 示例：{"type":"move","x":1,"y":0}、{"type":"aim","angle":15}、{"type":"attack"}
type InputMessage struct {
	Type  string  `json:"type"`
	X     float64 `json:"x,omitempty"`
	Y     float64 `json:"y,omitempty"`
	Angle float64 `json:"angle,omitempty"`
	Seq   int64   `json:"seq,omitempty"`
}

// ToInput 转换为房间输入；未知类型返回 false
func (m InputMessage) ToInput(pid PlayerID) (Input, bool) {
	kind := parseInputKind(m.Type)
	if kind == InputNone {
		return Input{}, false
	}
	return Input{PlayerID: pid, Kind: kind, X: m.X, Y: m.Y, Angle: m.Angle, Seq: m.Seq}, true
}
