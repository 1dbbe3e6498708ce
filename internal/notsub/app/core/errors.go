package core

import "errors"

var (
	ErrRMQConn      = errors.New("rabbitmq connection failure")
	ErrBadMessage   = errors.New("malformed notification")
	ErrDeliveryStop = errors.New("delivery interrupted before fire time")

	ErrConsumerClosed = errors.New("delivery channel closed by broker")
)
