//go:build windows

package wmi

import (
	"fmt"
	"log"

	"github.com/go-ole/go-ole"
	"github.com/go-ole/go-ole/oleutil"
)

// inventoryClasses maps payload keys to the WMI classes queried for the
// inventory snapshot. Classes marked ex are tried with the EX suffix
// first; older systems without the EX view fall back to the plain class.
var inventoryClasses = []struct {
	key   string
	class string
	ex    bool
}{
	{"comp_sys_prod", "Win32_ComputerSystemProduct", false},
	{"comp_sys", "Win32_ComputerSystem", true},
	{"network_config", "Win32_NetworkAdapterConfiguration", false},
	{"mem", "Win32_PhysicalMemory", true},
	{"os", "Win32_OperatingSystem", false},
	{"base_board", "Win32_BaseBoard", false},
	{"bios", "Win32_BIOS", true},
	{"disk", "Win32_DiskDrive", false},
	{"network_adapter", "Win32_NetworkAdapter", false},
	{"desktop_monitor", "Win32_DesktopMonitor", false},
	{"cpu", "Win32_Processor", true},
	{"usb", "Win32_USBController", false},
	{"graphics", "Win32_VideoController", false},
}

// collector holds the thread-bound WMI connection. All methods must run
// on the thread that created it.
type collector struct {
	locator *ole.IUnknown
	wmi     *ole.IDispatch
	service *ole.IDispatch
}

func newCollector() (*collector, error) {
	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		oleErr, ok := err.(*ole.OleError)
		// S_FALSE means already initialized on this thread
		if !ok || oleErr.Code() != 0x00000001 {
			return nil, fmt.Errorf("COM initialization: %w", err)
		}
	}

	locator, err := oleutil.CreateObject("WbemScripting.SWbemLocator")
	if err != nil {
		ole.CoUninitialize()
		return nil, fmt.Errorf("create WMI locator: %w", err)
	}
	wmi, err := locator.QueryInterface(ole.IID_IDispatch)
	if err != nil {
		locator.Release()
		ole.CoUninitialize()
		return nil, fmt.Errorf("locator IDispatch: %w", err)
	}
	serviceRaw, err := oleutil.CallMethod(wmi, "ConnectServer", ".", `root\cimv2`)
	if err != nil {
		wmi.Release()
		locator.Release()
		ole.CoUninitialize()
		return nil, fmt.Errorf("connect root\\cimv2: %w", err)
	}

	return &collector{
		locator: locator,
		wmi:     wmi,
		service: serviceRaw.ToIDispatch(),
	}, nil
}

func (c *collector) close() {
	c.service.Release()
	c.wmi.Release()
	c.locator.Release()
	ole.CoUninitialize()
}

// collect runs the fixed query set and returns the key → rows mapping.
// A failing class yields an empty row list rather than aborting the
// whole snapshot.
func (c *collector) collect() (any, error) {
	out := make(map[string][]map[string]any, len(inventoryClasses))
	for _, q := range inventoryClasses {
		rows, err := c.queryClass(q.class, q.ex)
		if err != nil {
			log.Printf("[wmi] query %s: %v", q.class, err)
			rows = nil
		}
		out[q.key] = rows
	}
	return out, nil
}

func (c *collector) queryClass(class string, ex bool) ([]map[string]any, error) {
	if ex {
		if rows, err := c.query("SELECT * FROM " + class + "EX"); err == nil {
			return rows, nil
		}
	}
	return c.query("SELECT * FROM " + class)
}

func (c *collector) query(wql string) ([]map[string]any, error) {
	resultRaw, err := oleutil.CallMethod(c.service, "ExecQuery", wql)
	if err != nil {
		return nil, fmt.Errorf("exec %q: %w", wql, err)
	}
	result := resultRaw.ToIDispatch()
	defer result.Release()

	countRaw, err := oleutil.GetProperty(result, "Count")
	if err != nil {
		return nil, fmt.Errorf("result count: %w", err)
	}
	count := int(countRaw.Val)

	rows := make([]map[string]any, 0, count)
	for i := 0; i < count; i++ {
		row, err := c.readRow(result, i)
		if err != nil {
			log.Printf("[wmi] %s row %d: %v", wql, i, err)
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (c *collector) readRow(result *ole.IDispatch, i int) (map[string]any, error) {
	itemRaw, err := oleutil.CallMethod(result, "ItemIndex", i)
	if err != nil {
		return nil, err
	}
	item := itemRaw.ToIDispatch()
	defer item.Release()

	propsRaw, err := oleutil.GetProperty(item, "Properties_")
	if err != nil {
		return nil, err
	}
	props := propsRaw.ToIDispatch()
	defer props.Release()

	propCountRaw, err := oleutil.GetProperty(props, "Count")
	if err != nil {
		return nil, err
	}

	row := make(map[string]any)
	for j := 0; j < int(propCountRaw.Val); j++ {
		propRaw, err := oleutil.CallMethod(props, "ItemIndex", j)
		if err != nil {
			continue
		}
		prop := propRaw.ToIDispatch()

		nameRaw, err := oleutil.GetProperty(prop, "Name")
		if err != nil {
			prop.Release()
			continue
		}
		valRaw, err := oleutil.GetProperty(prop, "Value")
		if err != nil {
			prop.Release()
			continue
		}
		row[nameRaw.ToString()] = variantValue(valRaw)
		valRaw.Clear()
		prop.Release()
	}
	return row, nil
}

func variantValue(v *ole.VARIANT) any {
	switch v.VT {
	case ole.VT_NULL, ole.VT_EMPTY:
		return nil
	}
	if arr := v.ToArray(); arr != nil {
		return arr.ToValueArray()
	}
	return v.Value()
}
