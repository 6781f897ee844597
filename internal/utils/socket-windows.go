//go:build windows

package utils

import (
	"syscall"
)

func setReceiveBuffer(fd uintptr) {
	syscall.SetsockoptInt(syscall.Handle(fd), syscall.SOL_SOCKET, syscall.SO_RCVBUF, streamRecvBuffer)
}
