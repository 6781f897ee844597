//go:build linux || darwin

package utils

import (
	"syscall"
)

func setReceiveBuffer(fd uintptr) {
	syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_RCVBUF, streamRecvBuffer)
}
