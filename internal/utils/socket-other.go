//go:build !linux && !darwin && !windows

package utils

func setReceiveBuffer(fd uintptr) {}
