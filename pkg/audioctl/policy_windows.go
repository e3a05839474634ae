//go:build windows
// +build windows

package audioctl

import (
	"fmt"
	"syscall"
	"unsafe"

	ole "github.com/go-ole/go-ole"
)

// IPolicyConfigVista is the undocumented COM interface behind the "set as
// default" button in the Windows sound control panel. It has no import
// library, so the vtable is laid out by hand and invoked through raw
// syscalls.
var (
	clsidPolicyConfigVistaClient = ole.NewGUID("{294935CE-F637-4E7C-A41B-AB255460B862}")
	iidPolicyConfigVista         = ole.NewGUID("{568b9108-44bf-40b4-9006-86afe5b5a620}")
)

type policyConfigVista struct {
	vtbl *policyConfigVistaVtbl
}

// slot order must match the native interface exactly; only SetDefaultEndpoint
// is ever invoked, the rest are placeholders that keep it at the right offset
type policyConfigVistaVtbl struct {
	ole.IUnknownVtbl

	GetMixFormat          uintptr
	GetDeviceFormat       uintptr
	SetDeviceFormat       uintptr
	GetProcessingPeriod   uintptr
	SetProcessingPeriod   uintptr
	GetShareMode          uintptr
	SetShareMode          uintptr
	GetPropertyValue      uintptr
	SetPropertyValue      uintptr
	SetDefaultEndpoint    uintptr
	SetEndpointVisibility uintptr
}

func newPolicyConfig() (*policyConfigVista, error) {
	unknown, err := ole.CreateInstance(clsidPolicyConfigVistaClient, iidPolicyConfigVista)
	if err != nil {
		return nil, fmt.Errorf("create policy config client: %w", err)
	}

	return (*policyConfigVista)(unsafe.Pointer(unknown)), nil
}

func (pc *policyConfigVista) setDefaultEndpoint(deviceID string, role uint32) error {
	idPtr, err := syscall.UTF16PtrFromString(deviceID)
	if err != nil {
		return fmt.Errorf("encode device id: %w", err)
	}

	hr, _, _ := syscall.Syscall(
		pc.vtbl.SetDefaultEndpoint,
		3,
		uintptr(unsafe.Pointer(pc)),
		uintptr(unsafe.Pointer(idPtr)),
		uintptr(role),
	)
	if hr != 0 {
		return fmt.Errorf("set default endpoint: %w", ole.NewError(hr))
	}

	return nil
}

func (pc *policyConfigVista) Release() {
	(*ole.IUnknown)(unsafe.Pointer(pc)).Release()
}
