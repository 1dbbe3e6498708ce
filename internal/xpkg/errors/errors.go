package errors

import "errors"

var (
	ErrDBConn    = errors.New("db connection failure")
	ErrRMQConn   = errors.New("rabbitmq connection failure")
	ErrStoreOpen = errors.New("device store failure")

	ErrMBConn = errors.New("message broker connection failure")
	ErrMBCh   = errors.New("message broker channel failure")
)
