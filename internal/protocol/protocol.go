// Package protocol defines the scope-labeled messages exchanged with the
// authoritative server and their binary encodings.
package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"brawl/internal/sim"
)

type Scope = byte

const (
	ScopeJoin Scope = iota + 2
	ScopeWelcome
	ScopeInput
	ScopeShoot
	ScopeSnapshot
	ScopeGameOver
	ScopeMatchReset
	ScopePing
	ScopePong
)

var ErrShortMessage = errors.New("short message")

func must[T any](value T, err error) T {
	if err != nil {
		panic(err)
	}
	return value
}

const WelcomeSize = 2

// Welcome carries the player id the server assigned to this session.
type Welcome struct {
	PlayerID uint16
}

func (w Welcome) MarshalBinary() ([]byte, error) {
	data := make([]byte, WelcomeSize)
	must(binary.Encode(data, binary.BigEndian, w.PlayerID))
	return data, nil
}

func (w *Welcome) UnmarshalBinary(data []byte) error {
	if l := len(data); l < WelcomeSize {
		return fmt.Errorf("welcome with len %d: %w", l, ErrShortMessage)
	}
	must(binary.Decode(data, binary.BigEndian, &w.PlayerID))
	return nil
}

const InputSize = 6

// Input is the per-tick intent broadcast. Move components are sign values
// (-1, 0, +1), so a byte each is plenty.
type Input struct {
	Tick uint32
	Move sim.Vec2
}

func (i Input) MarshalBinary() ([]byte, error) {
	data := make([]byte, InputSize)
	must(binary.Encode(data, binary.BigEndian, i.Tick))
	data[4] = byte(int8(i.Move.X))
	data[5] = byte(int8(i.Move.Y))
	return data, nil
}

func (i *Input) UnmarshalBinary(data []byte) error {
	if l := len(data); l < InputSize {
		return fmt.Errorf("input with len %d: %w", l, ErrShortMessage)
	}
	must(binary.Decode(data, binary.BigEndian, &i.Tick))
	i.Move.X = float64(int8(data[4]))
	i.Move.Y = float64(int8(data[5]))
	return nil
}

const PingSize = 8

// Ping is echoed back verbatim as ScopePong; SentAt stays in the sender's
// clock domain so the round trip needs no clock sync.
type Ping struct {
	SentAt int64
}

func (p Ping) MarshalBinary() ([]byte, error) {
	data := make([]byte, PingSize)
	must(binary.Encode(data, binary.BigEndian, p.SentAt))
	return data, nil
}

func (p *Ping) UnmarshalBinary(data []byte) error {
	if l := len(data); l < PingSize {
		return fmt.Errorf("ping with len %d: %w", l, ErrShortMessage)
	}
	must(binary.Decode(data, binary.BigEndian, &p.SentAt))
	return nil
}

// Shoot is sent once per mouse-release edge: target world coordinates plus
// the client-generated projectile id.
type Shoot struct {
	Target sim.Vec2
	ID     string
}

func (s Shoot) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	err := binary.Write(&buf, binary.BigEndian, s.Target.X)
	if err != nil {
		return nil, err
	}
	err = binary.Write(&buf, binary.BigEndian, s.Target.Y)
	if err != nil {
		return nil, err
	}
	err = writeString(&buf, s.ID)
	if err != nil {
		return nil, fmt.Errorf("shoot id: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Shoot) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)
	err := binary.Read(r, binary.BigEndian, &s.Target.X)
	if err != nil {
		return fmt.Errorf("shoot target x: %w", err)
	}
	err = binary.Read(r, binary.BigEndian, &s.Target.Y)
	if err != nil {
		return fmt.Errorf("shoot target y: %w", err)
	}
	s.ID, err = readString(r)
	if err != nil {
		return fmt.Errorf("shoot id: %w", err)
	}
	return nil
}

// PlayerState is one player's authoritative state at Tick.
type PlayerState struct {
	ID        uint16
	Pos       sim.Vec2
	Vel       sim.Vec2
	HP        uint16
	Bystander bool
	Tick      uint32
}

// ProjectileState is one live projectile. IDs are client-generated strings
// so a predicted projectile and its authoritative echo coincide.
type ProjectileState struct {
	ID    string
	Owner uint16
	Pos   sim.Vec2
	Vel   sim.Vec2
}

// Snapshot is the authoritative world state at a server tick. Server ticks
// are monotonic; arrival timing relative to local ticks is unconstrained.
type Snapshot struct {
	Tick        uint32
	Players     []PlayerState
	Projectiles []ProjectileState
}

// Player finds the entry for id, if present.
func (s Snapshot) Player(id uint16) (PlayerState, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return PlayerState{}, false
}

func (s Snapshot) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer

	err := binary.Write(&buf, binary.BigEndian, s.Tick)
	if err != nil {
		return nil, err
	}

	err = binary.Write(&buf, binary.BigEndian, uint16(len(s.Players)))
	if err != nil {
		return nil, err
	}
	for _, p := range s.Players {
		err = binary.Write(&buf, binary.BigEndian, p.ID)
		if err != nil {
			return nil, err
		}
		for _, f := range []float64{p.Pos.X, p.Pos.Y, p.Vel.X, p.Vel.Y} {
			err = binary.Write(&buf, binary.BigEndian, f)
			if err != nil {
				return nil, err
			}
		}
		err = binary.Write(&buf, binary.BigEndian, p.HP)
		if err != nil {
			return nil, err
		}
		err = binary.Write(&buf, binary.BigEndian, p.Bystander)
		if err != nil {
			return nil, err
		}
		err = binary.Write(&buf, binary.BigEndian, p.Tick)
		if err != nil {
			return nil, err
		}
	}

	err = binary.Write(&buf, binary.BigEndian, uint16(len(s.Projectiles)))
	if err != nil {
		return nil, err
	}
	for _, p := range s.Projectiles {
		err = writeString(&buf, p.ID)
		if err != nil {
			return nil, fmt.Errorf("projectile id: %w", err)
		}
		err = binary.Write(&buf, binary.BigEndian, p.Owner)
		if err != nil {
			return nil, err
		}
		for _, f := range []float64{p.Pos.X, p.Pos.Y, p.Vel.X, p.Vel.Y} {
			err = binary.Write(&buf, binary.BigEndian, f)
			if err != nil {
				return nil, err
			}
		}
	}

	return buf.Bytes(), nil
}

func (s *Snapshot) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)

	err := binary.Read(r, binary.BigEndian, &s.Tick)
	if err != nil {
		return err
	}

	var playersLen uint16
	err = binary.Read(r, binary.BigEndian, &playersLen)
	if err != nil {
		return err
	}
	s.Players = make([]PlayerState, playersLen)
	for i := range playersLen {
		p := &s.Players[i]
		err = binary.Read(r, binary.BigEndian, &p.ID)
		if err != nil {
			return err
		}
		for _, f := range []*float64{&p.Pos.X, &p.Pos.Y, &p.Vel.X, &p.Vel.Y} {
			err = binary.Read(r, binary.BigEndian, f)
			if err != nil {
				return err
			}
		}
		err = binary.Read(r, binary.BigEndian, &p.HP)
		if err != nil {
			return err
		}
		err = binary.Read(r, binary.BigEndian, &p.Bystander)
		if err != nil {
			return err
		}
		err = binary.Read(r, binary.BigEndian, &p.Tick)
		if err != nil {
			return err
		}
	}

	var projectilesLen uint16
	err = binary.Read(r, binary.BigEndian, &projectilesLen)
	if err != nil {
		return err
	}
	s.Projectiles = make([]ProjectileState, projectilesLen)
	for i := range projectilesLen {
		p := &s.Projectiles[i]
		p.ID, err = readString(r)
		if err != nil {
			return err
		}
		err = binary.Read(r, binary.BigEndian, &p.Owner)
		if err != nil {
			return err
		}
		for _, f := range []*float64{&p.Pos.X, &p.Pos.Y, &p.Vel.X, &p.Vel.Y} {
			err = binary.Read(r, binary.BigEndian, f)
			if err != nil {
				return err
			}
		}
	}

	return nil
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > 255 {
		return fmt.Errorf("string of len %d does not fit the length prefix", len(s))
	}
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	l, err := r.ReadByte()
	if err != nil {
		return "", fmt.Errorf("string length: %w", err)
	}
	// io.ReadFull succeeds on a zero-length read even at EOF
	b := make([]byte, l)
	_, err = io.ReadFull(r, b)
	if err != nil {
		return "", fmt.Errorf("string with len %d: %w", l, ErrShortMessage)
	}
	return string(b), nil
}
