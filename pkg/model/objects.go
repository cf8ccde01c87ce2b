package model

import "time"

// Standard object identifiers.
const (
	ObjectServer      uint16 = 1
	ObjectDevice      uint16 = 3
	ObjectTemperature uint16 = 3303
)

// Server object resources.
const (
	ServerShortID       uint16 = 0
	ServerLifetime      uint16 = 1
	ServerBinding       uint16 = 7
	ServerUpdateTrigger uint16 = 8
)

// DefaultServerInstance is the instance id of the Server object.
const DefaultServerInstance uint16 = 1

// Device object resources.
const (
	DeviceManufacturer     uint16 = 0
	DeviceModel            uint16 = 1
	DeviceSerial           uint16 = 2
	DeviceFirmware         uint16 = 3
	DevicePowerSources     uint16 = 6
	DeviceVoltage          uint16 = 7
	DeviceCurrent          uint16 = 8
	DeviceBatteryLevel     uint16 = 9
	DeviceMemoryFree       uint16 = 10
	DeviceErrorCode        uint16 = 11
	DeviceCurrentTime      uint16 = 13
	DeviceUTCOffset        uint16 = 14
	DeviceTimezone         uint16 = 15
	DeviceSupportedBinding uint16 = 16
)

// Temperature object resources.
const (
	TemperatureMinMeasured uint16 = 5601
	TemperatureMaxMeasured uint16 = 5602
	TemperatureValue       uint16 = 5700
	TemperatureUnits       uint16 = 5701
)

// ServerObject is the LwM2M Server object (/1).
var ServerObject = ObjectDefinition{
	ID:   ObjectServer,
	Name: "LwM2M Server",
	Resources: []ResourceDefinition{
		{ID: ServerShortID, Name: "Short Server ID", Type: DataTypeInteger, Operations: OpRead,
			Description: "Identifier of the LwM2M Server"},
		{ID: ServerLifetime, Name: "Lifetime", Type: DataTypeInteger, Operations: OpRead, Units: "s",
			Description: "Registration lifetime in seconds"},
		{ID: ServerBinding, Name: "Binding", Type: DataTypeString, Operations: OpRead,
			Description: "Transport binding used (e.g. U, UQ, S)"},
		{ID: ServerUpdateTrigger, Name: "Registration Update Trigger", Type: DataTypeNone, Operations: OpExecute,
			Description: "Trigger to send an Update registration message"},
	},
}

// DeviceObject is the LwM2M Device object (/3).
var DeviceObject = ObjectDefinition{
	ID:   ObjectDevice,
	Name: "Device",
	Resources: []ResourceDefinition{
		{ID: DeviceManufacturer, Name: "Manufacturer", Type: DataTypeString, Operations: OpRead},
		{ID: DeviceModel, Name: "Model Number", Type: DataTypeString, Operations: OpRead},
		{ID: DeviceSerial, Name: "Serial Number", Type: DataTypeString, Operations: OpRead},
		{ID: DeviceFirmware, Name: "Firmware Version", Type: DataTypeString, Operations: OpRead},
		{ID: DevicePowerSources, Name: "Available Power Sources", Type: DataTypeInteger, Operations: OpRead,
			Multiplicity: Multiple, Description: "0 = DC power"},
		{ID: DeviceVoltage, Name: "Power Source Voltage", Type: DataTypeInteger, Operations: OpRead,
			Multiplicity: Multiple, Units: "mV"},
		{ID: DeviceCurrent, Name: "Power Source Current", Type: DataTypeInteger, Operations: OpRead,
			Multiplicity: Multiple, Units: "mA"},
		{ID: DeviceBatteryLevel, Name: "Battery Level", Type: DataTypeInteger, Operations: OpRead, Units: "%"},
		{ID: DeviceMemoryFree, Name: "Memory Free", Type: DataTypeInteger, Operations: OpRead, Units: "KB"},
		{ID: DeviceErrorCode, Name: "Error Code", Type: DataTypeInteger, Operations: OpRead,
			Multiplicity: Multiple, Description: "0 = no error"},
		{ID: DeviceCurrentTime, Name: "Current Time", Type: DataTypeInteger, Operations: OpRead, Units: "s",
			Description: "Seconds since the Unix epoch"},
		{ID: DeviceUTCOffset, Name: "UTC Offset", Type: DataTypeString, Operations: OpRead},
		{ID: DeviceTimezone, Name: "Timezone", Type: DataTypeString, Operations: OpRead},
		{ID: DeviceSupportedBinding, Name: "Supported Binding and Modes", Type: DataTypeString, Operations: OpRead},
	},
}

// TemperatureObject is the IPSO Temperature object (/3303).
var TemperatureObject = ObjectDefinition{
	ID:   ObjectTemperature,
	Name: "Temperature",
	Resources: []ResourceDefinition{
		{ID: TemperatureMinMeasured, Name: "Min Measured Value", Type: DataTypeFloat, Operations: OpRead, Units: "Cel"},
		{ID: TemperatureMaxMeasured, Name: "Max Measured Value", Type: DataTypeFloat, Operations: OpRead, Units: "Cel"},
		{ID: TemperatureValue, Name: "Sensor Value", Type: DataTypeFloat, Operations: OpRead, Units: "Cel",
			Description: "Current temperature of the sensor"},
		{ID: TemperatureUnits, Name: "Sensor Units", Type: DataTypeString, Operations: OpRead},
	},
}

// ServerInfo holds the values of the Server object instance.
type ServerInfo struct {
	ShortServerID int
	Lifetime      int
	Binding       string
}

// DefaultServerInfo returns the standard server values.
func DefaultServerInfo() ServerInfo {
	return ServerInfo{ShortServerID: 1, Lifetime: 60, Binding: "U"}
}

// DeviceInfo holds the static values of the Device object instance.
type DeviceInfo struct {
	Manufacturer     string
	Model            string
	Serial           string
	Firmware         string
	PowerSources     []int
	Voltage          []int
	Current          []int
	BatteryLevel     int
	MemoryFree       int
	ErrorCodes       []int
	UTCOffset        string
	Timezone         string
	SupportedBinding string
}

// DefaultDeviceInfo returns the values of the reference device.
func DefaultDeviceInfo() DeviceInfo {
	return DeviceInfo{
		Manufacturer:     "Malaria Corp.",
		Model:            "Malaria-Client-01",
		Serial:           "SN-00000001",
		Firmware:         "1.0.0",
		PowerSources:     []int{0},
		Voltage:          []int{5000},
		Current:          []int{100},
		BatteryLevel:     100,
		MemoryFree:       1024,
		ErrorCodes:       []int{0},
		UTCOffset:        "+01:00",
		Timezone:         "Europe/Warsaw",
		SupportedBinding: "U",
	}
}

// TemperatureSources backs the Temperature object instance. Nil sources
// become empty cells.
type TemperatureSources struct {
	Value Source
	Min   Source
	Max   Source
	Units string
}

// StandardConfig configures NewStandardRegistry.
type StandardConfig struct {
	Server      ServerInfo
	Device      DeviceInfo
	Temperature TemperatureSources

	// Now supplies the Current Time resource. Defaults to time.Now.
	Now func() time.Time
}

// NewStandardRegistry builds a registry holding /1/1, /3/0 and /3303/0.
func NewStandardRegistry(cfg StandardConfig) (*Registry, error) {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	r := NewRegistry()
	for _, def := range []ObjectDefinition{ServerObject, DeviceObject, TemperatureObject} {
		if err := r.AddObject(def); err != nil {
			return nil, err
		}
	}

	srv := cfg.Server
	if err := r.AddInstance(ObjectServer, DefaultServerInstance, map[uint16]Source{
		ServerShortID:       StaticValue(srv.ShortServerID),
		ServerLifetime:      StaticValue(srv.Lifetime),
		ServerBinding:       StaticValue(srv.Binding),
		ServerUpdateTrigger: nil,
	}); err != nil {
		return nil, err
	}

	dev := cfg.Device
	if err := r.AddInstance(ObjectDevice, 0, map[uint16]Source{
		DeviceManufacturer:     StaticValue(dev.Manufacturer),
		DeviceModel:            StaticValue(dev.Model),
		DeviceSerial:           StaticValue(dev.Serial),
		DeviceFirmware:         StaticValue(dev.Firmware),
		DevicePowerSources:     StaticValue(intsToAny(dev.PowerSources)),
		DeviceVoltage:          StaticValue(intsToAny(dev.Voltage)),
		DeviceCurrent:          StaticValue(intsToAny(dev.Current)),
		DeviceBatteryLevel:     StaticValue(dev.BatteryLevel),
		DeviceMemoryFree:       StaticValue(dev.MemoryFree),
		DeviceErrorCode:        StaticValue(intsToAny(dev.ErrorCodes)),
		DeviceCurrentTime:      Func(func() any { return now().Unix() }),
		DeviceUTCOffset:        StaticValue(dev.UTCOffset),
		DeviceTimezone:         StaticValue(dev.Timezone),
		DeviceSupportedBinding: StaticValue(dev.SupportedBinding),
	}); err != nil {
		return nil, err
	}

	temp := cfg.Temperature
	units := temp.Units
	if units == "" {
		units = "Cel"
	}
	if err := r.AddInstance(ObjectTemperature, 0, map[uint16]Source{
		TemperatureMinMeasured: orCell(temp.Min),
		TemperatureMaxMeasured: orCell(temp.Max),
		TemperatureValue:       orCell(temp.Value),
		TemperatureUnits:       StaticValue(units),
	}); err != nil {
		return nil, err
	}

	return r, nil
}

func intsToAny(values []int) []any {
	if values == nil {
		return nil
	}
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func orCell(s Source) Source {
	if s == nil {
		return NewCell(nil)
	}
	return s
}
