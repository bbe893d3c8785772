package config

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/periscope-sim/periscope/pkg/locomotion"
)

type ServerIngress struct {
	Web struct {
		Port int `json:"port" yaml:"port"`
	} `json:"web" yaml:"web"`
}

type ServerSettings struct {
	Ingress    ServerIngress `json:"ingress" yaml:"ingress"`
	EventQueue int           `json:"eventQueue" yaml:"eventQueue"`
}

type RegionSettings struct {
	Size          int     `json:"size" yaml:"size"`
	WaterHeight   float32 `json:"waterHeight" yaml:"waterHeight"`
	TerrainHeight float32 `json:"terrainHeight" yaml:"terrainHeight"`
	Master        string  `json:"master" yaml:"master"`
}

// MasterID returns uuid.Nil when no master is configured.
func (r RegionSettings) MasterID() (uuid.UUID, error) {
	if r.Master == "" {
		return uuid.Nil, nil
	}

	id, err := uuid.Parse(r.Master)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid master agent %q: %w", r.Master, err)
	}
	return id, nil
}

type MovementSettings struct {
	TickPeriod            string  `json:"tickPeriod" yaml:"tickPeriod"`
	Gravity               float32 `json:"gravity" yaml:"gravity"`
	WalkSpeed             float32 `json:"walkSpeed" yaml:"walkSpeed"`
	RunSpeed              float32 `json:"runSpeed" yaml:"runSpeed"`
	FlySpeed              float32 `json:"flySpeed" yaml:"flySpeed"`
	FallDelay             float32 `json:"fallDelay" yaml:"fallDelay"`
	FallForgiveness       float32 `json:"fallForgiveness" yaml:"fallForgiveness"`
	JumpImpulseVertical   float32 `json:"jumpImpulseVertical" yaml:"jumpImpulseVertical"`
	JumpImpulseHorizontal float32 `json:"jumpImpulseHorizontal" yaml:"jumpImpulseHorizontal"`
	HoverImpulse          float32 `json:"hoverImpulse" yaml:"hoverImpulse"`
	PreJumpDelay          float32 `json:"preJumpDelay" yaml:"preJumpDelay"`
	TerminalVelocity      float32 `json:"terminalVelocity" yaml:"terminalVelocity"`
	Diagonal              float32 `json:"diagonal" yaml:"diagonal"`
	ChestDepth            float32 `json:"chestDepth" yaml:"chestDepth"`
	FlyDragHorizontal     float32 `json:"flyDragHorizontal" yaml:"flyDragHorizontal"`
	FlyDragVertical       float32 `json:"flyDragVertical" yaml:"flyDragVertical"`
	AirDrift              float32 `json:"airDrift" yaml:"airDrift"`
	GroundFriction        float32 `json:"groundFriction" yaml:"groundFriction"`
}

func (m MovementSettings) Tuning() (locomotion.Tuning, error) {
	period, err := time.ParseDuration(m.TickPeriod)
	if err != nil {
		return locomotion.Tuning{}, fmt.Errorf("invalid tick period: %w", err)
	}
	if period <= 0 {
		return locomotion.Tuning{}, fmt.Errorf("tick period must be positive, got %s", period)
	}

	return locomotion.Tuning{
		TickPeriod:            period,
		Gravity:               m.Gravity,
		WalkSpeed:             m.WalkSpeed,
		RunSpeed:              m.RunSpeed,
		FlySpeed:              m.FlySpeed,
		FallDelay:             m.FallDelay,
		FallForgiveness:       m.FallForgiveness,
		JumpImpulseVertical:   m.JumpImpulseVertical,
		JumpImpulseHorizontal: m.JumpImpulseHorizontal,
		HoverImpulse:          m.HoverImpulse,
		PreJumpDelay:          m.PreJumpDelay,
		TerminalVelocity:      m.TerminalVelocity,
		Diagonal:              m.Diagonal,
		ChestDepth:            m.ChestDepth,
		FlyDragHorizontal:     m.FlyDragHorizontal,
		FlyDragVertical:       m.FlyDragVertical,
		AirDrift:              m.AirDrift,
		GroundFriction:        m.GroundFriction,
	}, nil
}

type SentrySettings struct {
	DSN         string `json:"dsn" yaml:"dsn"`
	Environment string `json:"environment" yaml:"environment"`
}

type StatsSettings struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type Config struct {
	Server   ServerSettings   `json:"server" yaml:"server"`
	Region   RegionSettings   `json:"region" yaml:"region"`
	Movement MovementSettings `json:"movement" yaml:"movement"`
	Sentry   SentrySettings   `json:"sentry" yaml:"sentry"`
	Stats    StatsSettings    `json:"stats" yaml:"stats"`
}

// YAML renders the configuration after defaults have been applied.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
