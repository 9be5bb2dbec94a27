//go:build windows

package audio

import (
	"fmt"
	"runtime"
	"sort"
	"unsafe"

	ole "github.com/go-ole/go-ole"
	"github.com/moutend/go-wca/pkg/wca"
)

// WASAPI implements Subsystem against the Windows Core Audio APIs.
// COM objects are acquired per call and released immediately, mirroring
// the best-effort contract: a device that vanished mid-enumeration just
// fails that one call.
type WASAPI struct{}

// NewSubsystem returns the Windows backend. No COM work happens here;
// Init must run on the goroutine that owns all subsequent calls.
func NewSubsystem() Subsystem {
	return &WASAPI{}
}

// Init pins the calling goroutine to its OS thread and initializes COM
// there. COM initialization is per-thread, so this must execute on the
// same goroutine that makes every later call.
func (w *WASAPI) Init() error {
	runtime.LockOSThread()
	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		// S_FALSE: COM already initialized on this thread.
		if oleErr, ok := err.(*ole.OleError); !ok || oleErr.Code() != 1 {
			runtime.UnlockOSThread()
			return fmt.Errorf("CoInitializeEx: %w", err)
		}
	}
	return nil
}

func (w *WASAPI) Release() error {
	ole.CoUninitialize()
	runtime.UnlockOSThread()
	return nil
}

func defaultRenderDevice() (*wca.IMMDeviceEnumerator, *wca.IMMDevice, error) {
	var mmde *wca.IMMDeviceEnumerator
	if err := wca.CoCreateInstance(wca.CLSID_MMDeviceEnumerator, 0, wca.CLSCTX_ALL, wca.IID_IMMDeviceEnumerator, &mmde); err != nil {
		return nil, nil, fmt.Errorf("create device enumerator: %w", err)
	}
	var mmd *wca.IMMDevice
	if err := mmde.GetDefaultAudioEndpoint(wca.ERender, wca.EMultimedia, &mmd); err != nil {
		mmde.Release()
		return nil, nil, fmt.Errorf("get default endpoint: %w", err)
	}
	return mmde, mmd, nil
}

type wasapiEndpoint struct {
	mmde *wca.IMMDeviceEnumerator
	mmd  *wca.IMMDevice
	aev  *wca.IAudioEndpointVolume
}

func (e *wasapiEndpoint) SetMasterVolume(level float32) error {
	return e.aev.SetMasterVolumeLevelScalar(level, nil)
}

func (e *wasapiEndpoint) Release() {
	e.aev.Release()
	e.mmd.Release()
	e.mmde.Release()
}

func (w *WASAPI) DefaultEndpoint() (Endpoint, error) {
	mmde, mmd, err := defaultRenderDevice()
	if err != nil {
		return nil, err
	}
	var aev *wca.IAudioEndpointVolume
	if err := mmd.Activate(wca.IID_IAudioEndpointVolume, wca.CLSCTX_ALL, nil, &aev); err != nil {
		mmd.Release()
		mmde.Release()
		return nil, fmt.Errorf("activate endpoint volume: %w", err)
	}
	return &wasapiEndpoint{mmde: mmde, mmd: mmd, aev: aev}, nil
}

type wasapiSession struct {
	pid    uint32
	asc    *wca.IAudioSessionControl
	asc2   *wca.IAudioSessionControl2
	volume *wca.ISimpleAudioVolume
}

func (s *wasapiSession) PID() uint32 { return s.pid }

func (s *wasapiSession) SetVolume(level float32) error {
	return s.volume.SetMasterVolume(level, nil)
}

func (s *wasapiSession) Release() {
	s.volume.Release()
	s.asc2.Release()
	s.asc.Release()
}

func (w *WASAPI) Sessions() ([]Session, error) {
	mmde, mmd, err := defaultRenderDevice()
	if err != nil {
		return nil, err
	}
	defer mmde.Release()
	defer mmd.Release()

	var mgr *wca.IAudioSessionManager2
	if err := mmd.Activate(wca.IID_IAudioSessionManager2, wca.CLSCTX_ALL, nil, &mgr); err != nil {
		return nil, fmt.Errorf("activate session manager: %w", err)
	}
	defer mgr.Release()

	var enumerator *wca.IAudioSessionEnumerator
	if err := mgr.GetSessionEnumerator(&enumerator); err != nil {
		return nil, fmt.Errorf("get session enumerator: %w", err)
	}
	defer enumerator.Release()

	var count int
	if err := enumerator.GetCount(&count); err != nil {
		return nil, fmt.Errorf("get session count: %w", err)
	}

	sessions := make([]Session, 0, count)
	for i := 0; i < count; i++ {
		var asc *wca.IAudioSessionControl
		if err := enumerator.GetSession(i, &asc); err != nil {
			continue
		}
		dispatch, err := asc.QueryInterface(wca.IID_IAudioSessionControl2)
		if err != nil {
			asc.Release()
			continue
		}
		asc2 := (*wca.IAudioSessionControl2)(unsafe.Pointer(dispatch))

		var pid uint32
		if err := asc2.GetProcessId(&pid); err != nil {
			// System sounds session reports no process; skip it.
			asc2.Release()
			asc.Release()
			continue
		}
		volDispatch, err := asc2.QueryInterface(wca.IID_ISimpleAudioVolume)
		if err != nil {
			asc2.Release()
			asc.Release()
			continue
		}
		volume := (*wca.ISimpleAudioVolume)(unsafe.Pointer(volDispatch))
		sessions = append(sessions, &wasapiSession{pid: pid, asc: asc, asc2: asc2, volume: volume})
	}
	return sessions, nil
}

func (w *WASAPI) PlaybackDevices() ([]Device, error) {
	var mmde *wca.IMMDeviceEnumerator
	if err := wca.CoCreateInstance(wca.CLSID_MMDeviceEnumerator, 0, wca.CLSCTX_ALL, wca.IID_IMMDeviceEnumerator, &mmde); err != nil {
		return nil, fmt.Errorf("create device enumerator: %w", err)
	}
	defer mmde.Release()

	var collection *wca.IMMDeviceCollection
	if err := mmde.EnumAudioEndpoints(wca.ERender, wca.DEVICE_STATE_ACTIVE, &collection); err != nil {
		return nil, fmt.Errorf("enumerate endpoints: %w", err)
	}
	defer collection.Release()

	var count uint32
	if err := collection.GetCount(&count); err != nil {
		return nil, fmt.Errorf("get device count: %w", err)
	}

	var devices []Device
	for i := uint32(0); i < count; i++ {
		var item *wca.IMMDevice
		if err := collection.Item(i, &item); err != nil {
			continue
		}
		var id string
		if err := item.GetId(&id); err != nil {
			item.Release()
			continue
		}
		var store *wca.IPropertyStore
		if err := item.OpenPropertyStore(wca.STGM_READ, &store); err != nil {
			item.Release()
			continue
		}
		var pv wca.PROPVARIANT
		if err := store.GetValue(&wca.PKEY_Device_FriendlyName, &pv); err == nil {
			if name := pv.String(); name != "" && id != "" {
				devices = append(devices, Device{Name: name, ID: id})
			}
		}
		store.Release()
		item.Release()
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].Name < devices[j].Name })
	return devices, nil
}
