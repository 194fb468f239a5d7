package schema

// Parameter names.
const (
	ParamMsgPreamble           = "msg_preamble"
	ParamMAC                   = "mac"
	ParamPort                  = "port"
	ParamWifiSSID              = "wifi_ssid"
	ParamWifiSSIDLength        = "wifi_ssid_length"
	ParamWifiPassword          = "wifi_password"
	ParamStatPreamble          = "stat_preamble"
	ParamCmdCount              = "cmd_count"
	ParamCmdCode               = "cmd_code"
	ParamPowerSupplyState      = "power_supply_state"
	ParamPowerSupplyLossTime   = "power_supply_loss_time"
	ParamHeatingMode           = "heating_mode"
	ParamHeaterStatus          = "heater_status"
	ParamHeatingPower          = "heating_power"
	ParamAirIndoorTempControl  = "air_indoor_temp_control"
	ParamCoolantTemp           = "coolant_temp"
	ParamAirIndoorTemp         = "air_indoor_temp"
	ParamAirOutdoorTemp        = "air_outdoor_temp"
	ParamClockWeekday          = "clock_weekday"
	ParamClockHours            = "clock_hours"
	ParamClockMinutes          = "clock_minutes"
	ParamClockSeconds          = "clock_seconds"
	ParamCoolantTempSetpoint   = "coolant_temp_setpoint"
	ParamAirIndoorTempSetpoint = "air_indoor_temp_setpoint"
	ParamCoolantTempMin        = "coolant_temp_min"
	ParamCoolantTempMax        = "coolant_temp_max"
	ParamAirIndoorTempMin      = "air_indoor_temp_min"
	ParamAirIndoorTempMax      = "air_indoor_temp_max"
	ParamChecksum              = "checksum"
)

// Preamble is the fixed ASCII tag at the start of every outgoing frame.
const Preamble = "EZAP"

func at(start, finish int) *Placement {
	return &Placement{Start: start, Finish: finish}
}

func be(start, finish int, scale Scale) *Placement {
	return &Placement{Start: start, Finish: finish, Order: BigEndian, Scale: scale}
}

func le(start, finish int, scale Scale) *Placement {
	return &Placement{Start: start, Finish: finish, Order: LittleEndian, Scale: scale}
}

func savitrParameters() []Descriptor {
	return []Descriptor{
		{
			Name:        ParamMsgPreamble,
			Read:        at(0, 3),
			Write:       at(0, 3),
			Type:        TypeString,
			Default:     Preamble,
			Description: "Message preamble.",
		},
		{
			Name:        ParamMAC,
			Read:        at(4, 15),
			Type:        TypeString,
			Description: "Current WiFi module MAC address.",
		},
		{
			Name:        ParamPort,
			Read:        at(31, 34),
			Type:        TypeString,
			Default:     "8558",
			Description: "Current WiFi module TCP port.",
		},
		{
			Name:        ParamWifiSSID,
			Read:        at(35, 50),
			Write:       at(35, 50),
			Type:        TypeString,
			Default:     "SAVITR_WIFI",
			Description: "Current / target WiFi SSID, 15 symbols max.",
		},
		{
			Name:        ParamWifiSSIDLength,
			Read:        be(51, 51, ScaleIdentity),
			Write:       be(51, 51, ScaleIdentity),
			Type:        TypeInt,
			Default:     "11",
			Description: "Current / target length of the WiFi SSID.",
		},
		{
			Name:        ParamWifiPassword,
			Read:        at(52, 59),
			Write:       at(52, 59),
			Type:        TypeString,
			Description: "Current / target WiFi password, exactly 8 symbols.",
		},
		{
			Name:        ParamStatPreamble,
			Read:        at(60, 63),
			Type:        TypeString,
			Default:     "STAT",
			Description: "Status preamble.",
		},
		{
			Name:        ParamCmdCount,
			Read:        be(64, 64, ScaleIdentity),
			Write:       be(67, 67, ScaleIdentity),
			Type:        TypeInt,
			Description: "Counter of commands received by the WiFi module, 0 to 255.",
		},
		{
			Name:        ParamCmdCode,
			Read:        be(65, 65, ScaleIdentity),
			Write:       be(68, 68, ScaleIdentity),
			Type:        TypeInt,
			Description: "Last command code.",
		},
		{
			Name:        ParamPowerSupplyState,
			Read:        be(66, 66, ScaleIdentity),
			Type:        TypeInt,
			Switch:      &Switch{OnCode: 85},
			Description: "Heater power supply state. 85 is OK.",
		},
		{
			Name:        ParamPowerSupplyLossTime,
			Read:        be(68, 69, ScaleIdentity),
			Type:        TypeInt,
			Description: "Power supply loss time, counted by the module when it has a battery.",
		},
		{
			Name:        ParamHeatingMode,
			Read:        be(72, 72, ScaleIdentity),
			Write:       be(70, 70, ScaleIdentity),
			Type:        TypeInt,
			Enum:        HeatingMode,
			Description: "Current / target heating mode.",
		},
		{
			Name:        ParamHeaterStatus,
			Read:        be(75, 75, ScaleIdentity),
			Type:        TypeInt,
			Enum:        HeaterStatus,
			Description: "Current heater status.",
		},
		{
			Name:        ParamHeatingPower,
			Read:        be(78, 78, ScaleIdentity),
			Write:       be(71, 71, ScaleIdentity),
			Type:        TypeInt,
			Description: "Working heating elements in %: 33, 66 or 100.",
		},
		{
			Name:        ParamAirIndoorTempControl,
			Read:        be(107, 108, ScaleIdentity),
			Type:        TypeInt,
			Switch:      &Switch{OnCode: 257},
			Description: "Indoor air temperature control. 257 is on.",
		},
		{
			Name:        ParamCoolantTemp,
			Read:        be(80, 81, ScaleDivTen),
			Type:        TypeDecimal,
			SignRecover: true,
			Description: "Current coolant temperature in °C.",
		},
		{
			Name:        ParamAirIndoorTemp,
			Read:        be(83, 84, ScaleDivTen),
			Type:        TypeDecimal,
			SignRecover: true,
			Description: "Current indoor air temperature in °C.",
		},
		{
			Name:        ParamAirOutdoorTemp,
			Read:        be(86, 87, ScaleDivTen),
			Type:        TypeDecimal,
			SignRecover: true,
			Description: "Current outdoor air temperature in °C.",
		},
		{
			Name:        ParamClockWeekday,
			Read:        be(90, 90, ScaleIdentity),
			Type:        TypeInt,
			Enum:        ClockWeekday,
			Description: "Weekday from the heater clock.",
		},
		{
			Name:        ParamClockHours,
			Read:        be(93, 93, ScaleIdentity),
			Type:        TypeInt,
			Description: "Hours from the heater clock.",
		},
		{
			Name:        ParamClockMinutes,
			Read:        be(96, 96, ScaleIdentity),
			Type:        TypeInt,
			Description: "Minutes from the heater clock.",
		},
		{
			Name:        ParamClockSeconds,
			Read:        be(99, 99, ScaleIdentity),
			Type:        TypeInt,
			Description: "Seconds from the heater clock.",
		},
		{
			Name:        ParamCoolantTempSetpoint,
			Read:        be(101, 102, ScaleDivTen),
			Write:       be(69, 69, ScaleWhole),
			Type:        TypeDecimal,
			Default:     "60.0",
			Description: "Target coolant temperature in °C, 1.0 to 84.0.",
		},
		{
			Name:        ParamAirIndoorTempSetpoint,
			Read:        be(104, 105, ScaleDivTen),
			Write:       be(80, 80, ScaleWhole),
			Type:        TypeDecimal,
			Default:     "20.0",
			Description: "Target indoor air temperature in °C, 1.0 to 35.0.",
		},
		{
			Name:        ParamCoolantTempMin,
			Read:        le(110, 111, ScaleDivTen),
			Write:       le(76, 77, ScaleMulTen),
			Type:        TypeDecimal,
			Default:     "5.0",
			Description: "Min coolant temperature alarm bound in °C.",
		},
		{
			Name:        ParamCoolantTempMax,
			Read:        le(112, 113, ScaleDivTen),
			Write:       le(78, 79, ScaleMulTen),
			Type:        TypeDecimal,
			Default:     "90.0",
			Description: "Max coolant temperature alarm bound in °C.",
		},
		{
			Name:        ParamAirIndoorTempMin,
			Read:        le(114, 115, ScaleDivTen),
			Write:       le(72, 73, ScaleMulTen),
			Type:        TypeDecimal,
			Default:     "5.0",
			Description: "Min indoor air temperature alarm bound in °C.",
		},
		{
			Name:        ParamAirIndoorTempMax,
			Read:        le(116, 117, ScaleDivTen),
			Write:       le(74, 75, ScaleMulTen),
			Type:        TypeDecimal,
			Default:     "35.0",
			Description: "Max indoor air temperature alarm bound in °C.",
		},
		{
			Name:        ParamChecksum,
			Read:        be(124, 125, ScaleIdentity),
			Write:       le(124, 127, ScaleIdentity),
			Type:        TypeInt,
			Default:     "0",
			Description: "Frame checksum over bytes 0..123. Read but not verified.",
		},
	}
}
