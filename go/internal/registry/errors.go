package registry

import "errors"

var (
	// ErrRoomNotFound means no room exists for the given code.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomFull means the room is at max_players.
	ErrRoomFull = errors.New("room is full")

	// ErrRoomEnded means the room's game already finished.
	ErrRoomEnded = errors.New("room has ended")

	// ErrCodeTaken means the generated room code collided with a live room.
	ErrCodeTaken = errors.New("room code already taken")
)
