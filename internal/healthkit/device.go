package healthkit

import "strings"

// DeviceCategory is the kind of hardware that recorded a sample.
type DeviceCategory int

const (
	DeviceUnknown DeviceCategory = iota
	DeviceWatch
	DevicePhone
)

func (c DeviceCategory) String() string {
	switch c {
	case DeviceWatch:
		return "Watch"
	case DevicePhone:
		return "iPhone"
	}
	return ""
}

const (
	devicePrefix    = "Optional(<<"
	deviceSuffix    = ">)"
	deviceSeparator = ">, "
)

// DeviceTag is a parsed HKDevice description. Key drops the leading object
// address, which changes during a workout, so two samples from the same
// device compare equal by Key.
type DeviceTag struct {
	Category DeviceCategory
	Key      string
}

// ParseDeviceTag parses strings of the form
//
//	Optional(<<HKDevice: 0x283c8e300>, name:Apple Watch, model:Watch, ...>)
//
// Anything else yields an unknown tag with an empty key.
func ParseDeviceTag(raw string) DeviceTag {
	if !strings.HasPrefix(raw, devicePrefix) || !strings.HasSuffix(raw, deviceSuffix) {
		return DeviceTag{}
	}

	var tag DeviceTag
	switch {
	case strings.Contains(raw, "Watch"):
		tag.Category = DeviceWatch
	case strings.Contains(raw, "iPhone"):
		tag.Category = DevicePhone
	}
	if _, after, ok := strings.Cut(raw, deviceSeparator); ok {
		tag.Key = after
	}
	return tag
}

// PrioritizeDevice picks the device whose distance samples are used. The first
// watch wins outright, then the first phone, then whatever recorded the first
// sample. It returns the comparison key of that device, or "" without samples.
func PrioritizeDevice(samples []QuantitySample) string {
	if len(samples) == 0 {
		return ""
	}

	phone := -1
	for i, s := range samples {
		tag := ParseDeviceTag(s.Device)
		if tag.Category == DeviceWatch {
			return tag.Key
		}
		if phone < 0 && tag.Category == DevicePhone {
			phone = i
		}
	}
	if phone >= 0 {
		return ParseDeviceTag(samples[phone].Device).Key
	}
	return ParseDeviceTag(samples[0].Device).Key
}
