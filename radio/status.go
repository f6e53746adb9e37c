package radio

import "fmt"

// Status reads the chip and reports the current frequency, stereo
// indicator and signal strength.
func (s *Si4703Driver) Status() (TuningResult, error) {
	if err := s.checkStarted(); err != nil {
		return TuningResult{}, err
	}
	regs, err := s.regs.refresh()
	if err != nil {
		return TuningResult{}, err
	}
	return decodeStatus(s.plan, regs), nil
}

func decodeStatus(plan BandPlan, r RegisterFile) TuningResult {
	return TuningResult{
		Frequency: plan.Frequency(r[READCHAN] & READCHAN_CHAN),
		Stereo:    r[STATUSRSSI]&STATUSRSSI_STEREO != 0,
		RSSI:      uint8(r[STATUSRSSI] & STATUSRSSI_RSSI),
	}
}

// DeviceInfo is decoded from the DEVICEID and CHIPID registers.
type DeviceInfo struct {
	PartNumber   uint8
	Manufacturer uint16
	Revision     uint8
	Device       uint8
	Firmware     uint8
}

func (d DeviceInfo) String() string {
	dev := "unknown device"
	switch d.Device {
	case 0x0:
		dev = "Si4702 (off)"
	case 0x1:
		dev = "Si4702 (on)"
	case 0x8:
		dev = "Si4703 (off)"
	case 0x9:
		dev = "Si4703 (on)"
	}
	return fmt.Sprintf("%s, part 0x%x, manufacturer 0x%03x, revision %d, firmware %d",
		dev, d.PartNumber, d.Manufacturer, d.Revision, d.Firmware)
}

// DeviceInfo returns the identification registers read at the last bus transaction.
func (s *Si4703Driver) DeviceInfo() (DeviceInfo, error) {
	if err := s.checkStarted(); err != nil {
		return DeviceInfo{}, err
	}
	return s.deviceInfo()
}

func (s *Si4703Driver) deviceInfo() (DeviceInfo, error) {
	regs, ok := s.regs.snapshot()
	if !ok {
		return DeviceInfo{}, ErrNotInitialized
	}
	return DeviceInfo{
		PartNumber:   uint8(regs[DEVICEID] >> 12),
		Manufacturer: regs[DEVICEID] & 0x0FFF,
		Revision:     uint8(regs[CHIPID] >> 10),
		Device:       uint8(regs[CHIPID]>>6) & 0xF,
		Firmware:     uint8(regs[CHIPID] & 0x3F),
	}, nil
}
