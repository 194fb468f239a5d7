package schema

// Command is one entry of the opcode table. Payload lists the parameters
// whose write placements carry the command's arguments. Stub commands are
// known to the device but have no payload logic here.
type Command struct {
	Name        string
	Opcode      uint8
	Payload     []string
	Description string
	Stub        bool
}

const (
	CmdSetWifi                  = "set_wifi"
	CmdSetMail                  = "set_mail"
	CmdSetHeatingMode           = "set_heating_mode"
	CmdSetHeatingPower          = "set_heating_power"
	CmdSetAirIndoorTempMinMax   = "set_air_indoor_temp_min_max"
	CmdSetCoolantTempMinMax     = "set_coolant_temp_min_max"
	CmdSetAirIndoorTempSetpoint = "set_air_indoor_temp_setpoint"
	CmdResetToDefaults          = "reset_to_defaults"
	CmdUnimplemented32          = "unimplemented_32"
	CmdUnimplemented33          = "unimplemented_33"
	CmdSetAirIndoorTempControl  = "set_air_indoor_temp_control"
	CmdSetCoolantTempSetpoint   = "set_coolant_temp_setpoint"
)

func savitrCommands() []Command {
	return []Command{
		{CmdSetWifi, 17, []string{ParamWifiSSID, ParamWifiSSIDLength, ParamWifiPassword},
			"Set WiFi SSID and password for the WiFi module to connect.", true},
		{CmdSetMail, 18, nil,
			"Set SMTP username and password for mails sent by the WiFi module.", true},
		{CmdSetHeatingMode, 20, []string{ParamHeatingMode},
			"Set heater working mode.", false},
		{CmdSetHeatingPower, 21, []string{ParamHeatingPower},
			"Set heating power: 1, 2 or 3 heating elements.", false},
		{CmdSetAirIndoorTempMinMax, 22, []string{ParamAirIndoorTempMin, ParamAirIndoorTempMax},
			"Set min and max indoor air temperature for alarms.", false},
		{CmdSetCoolantTempMinMax, 23, []string{ParamCoolantTempMin, ParamCoolantTempMax},
			"Set min and max coolant temperature for alarms.", false},
		{CmdSetAirIndoorTempSetpoint, 24, []string{ParamAirIndoorTempSetpoint},
			"Set target indoor air temperature.", false},
		{CmdResetToDefaults, 25, nil,
			"Reset WiFi module to default settings.", true},
		{CmdUnimplemented32, 32, nil,
			"Reserved opcode observed in the vendor app (debug).", true},
		{CmdUnimplemented33, 33, nil,
			"Reserved opcode observed in the vendor app (service off).", true},
		{CmdSetAirIndoorTempControl, 34, nil,
			"Turn indoor air temperature control off.", false},
		{CmdSetCoolantTempSetpoint, 84, []string{ParamCoolantTempSetpoint},
			"Set target coolant temperature.", false},
	}
}
