package service

import "errors"

var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomExists     = errors.New("room id already taken")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrInternalServer = errors.New("internal server error")
)
