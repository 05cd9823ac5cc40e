package server

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"miniarena/physics"
)

// Config 服务配置，从 YAML 文件加载，缺省字段使用默认值
//
//	server:
//	  addr: ":8080"
//	arena:
//	  boundary: {shape: circle, radius: 50}
type Config struct {
	Server  ServerConfig   `yaml:"server"`
	Log     LogConfig      `yaml:"log"`
	Arena   ArenaConfig    `yaml:"arena"`
	Physics physics.Config `yaml:"physics"`
}

type ServerConfig struct {
	Addr           string `yaml:"addr"`
	TicksPerSecond int    `yaml:"ticks_per_second"`
	DefaultRoom    string `yaml:"default_room"`
	StaticDir      string `yaml:"static_dir"`
}

// LogConfig File 为空时只输出到 stderr
type LogConfig struct {
	File       string `yaml:"file"`
	Level      string `yaml:"level"`
	Format     string `yaml:"format"` // console | json
	Stderr     bool   `yaml:"stderr"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// ArenaConfig 房间的玩法参数（可通过 /admin/config 热更新一部分）
type ArenaConfig struct {
	Boundary BoundaryConfig `yaml:"boundary"`

	PlayerRadius float64 `yaml:"player_radius"`
	PlayerSpeed  float64 `yaml:"player_speed"`
	// 出生点所在圆环半径（相对边界中心）
	SpawnRadius float64 `yaml:"spawn_radius"`

	AttackRange  float64 `yaml:"attack_range"`
	AttackRadius float64 `yaml:"attack_radius"`
	ConeRange    float64 `yaml:"cone_range"`
	ConeAngle    float64 `yaml:"cone_angle"` // 半角，角度制

	ProjectileSpeed float64 `yaml:"projectile_speed"`

	MaxInputsPerTick int `yaml:"max_inputs_per_tick"`
}

// BoundaryConfig 地图外墙：circle 使用 center+radius，polygon 使用 vertices
type BoundaryConfig struct {
	Shape    string             `yaml:"shape"`
	Center   physics.Position   `yaml:"center"`
	Radius   float64            `yaml:"radius"`
	Vertices []physics.Position `yaml:"vertices"`
}

// DefaultConfig 默认配置：100x100 的方形场地，20 TPS
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:           ":8080",
			TicksPerSecond: 20,
			DefaultRoom:    "room-1",
			StaticDir:      "web",
		},
		Log: LogConfig{
			File:       "app.log",
			Level:      "debug",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 7,
		},
		Arena: ArenaConfig{
			Boundary: BoundaryConfig{
				Shape:    "polygon",
				Vertices: []physics.Position{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 100, Y: 100}, {X: 0, Y: 100}},
			},
			PlayerRadius:     1,
			PlayerSpeed:      20,
			SpawnRadius:      30,
			AttackRange:      3,
			AttackRadius:     2,
			ConeRange:        15,
			ConeAngle:        30,
			ProjectileSpeed:  60,
			MaxInputsPerTick: 8,
		},
		Physics: physics.DefaultConfig(),
	}
}

// LoadConfig 读取 YAML 配置文件；path 为空时返回默认配置
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return ParseConfig(f)
}

// ParseConfig 解析 YAML，在默认配置之上覆盖
func ParseConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Physics = cfg.Physics.WithDefaults()
	if cfg.Server.TicksPerSecond <= 0 {
		cfg.Server.TicksPerSecond = 20
	}
	if _, err := cfg.Arena.Boundary.Entity(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Entity 将边界配置转换为物理实体
func (b BoundaryConfig) Entity() (physics.Entity, error) {
	var e physics.Entity
	switch b.Shape {
	case "circle":
		e = physics.NewCircle(BoundaryID, b.Center, b.Radius)
	case "polygon", "":
		e = physics.NewPolygon(BoundaryID, b.Vertices...)
	default:
		return physics.Entity{}, fmt.Errorf("arena boundary shape %q: %w", b.Shape, physics.ErrUnsupportedShape)
	}
	e.Category = physics.CategoryZone
	if err := e.Validate(); err != nil {
		return physics.Entity{}, fmt.Errorf("arena boundary: %w", err)
	}
	return e, nil
}

// Centre 边界中心：圆取圆心，多边形取顶点平均值
func (b BoundaryConfig) Centre() physics.Position {
	if b.Shape == "circle" || len(b.Vertices) == 0 {
		return b.Center
	}
	var c physics.Position
	for _, v := range b.Vertices {
		c.X += v.X
		c.Y += v.Y
	}
	n := float64(len(b.Vertices))
	return physics.Position{X: c.X / n, Y: c.Y / n}
}
