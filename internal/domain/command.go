package domain

import (
	"encoding/json"
	"fmt"
)

// RobotCommand is one pose in the generated robot-command artifact.
type RobotCommand struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
	R       float64 `json:"r"`
	Gripper int     `json:"gripper"`
}

// ParseCommands decodes a command artifact. The service emits either a
// bare array or an object wrapping it under "commands".
func ParseCommands(data []byte) ([]RobotCommand, error) {
	var wrapped struct {
		Commands []RobotCommand `json:"commands"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Commands != nil {
		return wrapped.Commands, nil
	}

	var bare []RobotCommand
	if err := json.Unmarshal(data, &bare); err != nil {
		return nil, fmt.Errorf("parse commands: %w", err)
	}
	return bare, nil
}
