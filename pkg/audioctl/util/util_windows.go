//go:build windows
// +build windows

package util

import (
	"fmt"
	"syscall"
	"unsafe"
)

var (
	modkernel32 = syscall.NewLazyDLL("kernel32.dll")

	procOpenProcess               = modkernel32.NewProc("OpenProcess")
	procQueryFullProcessImageName = modkernel32.NewProc("QueryFullProcessImageNameW")
	procCloseProcessHandle        = modkernel32.NewProc("CloseHandle")
)

const processQueryLimitedInformation = 0x1000

// GetProcessPath returns the full path to the executable for the given process ID
func GetProcessPath(pid int) (string, error) {
	handle, _, _ := procOpenProcess.Call(processQueryLimitedInformation, 0, uintptr(pid))
	if handle == 0 {
		return "", fmt.Errorf("open process %d", pid)
	}
	defer procCloseProcessHandle.Call(handle)

	buf := make([]uint16, syscall.MAX_PATH)
	size := uint32(len(buf))

	ret, _, _ := procQueryFullProcessImageName.Call(
		handle,
		0,
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(unsafe.Pointer(&size)),
	)
	if ret == 0 {
		return "", fmt.Errorf("query image name for pid %d", pid)
	}

	return syscall.UTF16ToString(buf[:size]), nil
}
