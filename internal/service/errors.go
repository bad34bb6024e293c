package service

import "errors"

var (
	ErrValidation          = errors.New("validation failed")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidPassword     = errors.New("invalid password")
	ErrInvalidToken        = errors.New("invalid token")
	ErrMissingRefreshToken = errors.New("missing refresh token")
	ErrConflict            = errors.New("user already exist")
	ErrForbidden           = errors.New("not enough rights")
	ErrInternal            = errors.New("internal error")
)
