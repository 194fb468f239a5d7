package schema

import (
	"fmt"
	"sort"
)

// EnumEntry is one symbolic value of an enumerated field.
type EnumEntry struct {
	Code        int
	Name        string
	Pretty      string
	Description string
}

// UnknownCodeError reports a raw code with no entry in its table.
type UnknownCodeError struct {
	Table string
	Code  int
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("schema: %s: unknown code %d", e.Table, e.Code)
}

// UnknownNameError reports a symbolic name with no entry in its table.
type UnknownNameError struct {
	Table string
	Name  string
}

func (e *UnknownNameError) Error() string {
	return fmt.Sprintf("schema: %s: unknown name %q", e.Table, e.Name)
}

// EnumTable resolves codes and names in both directions.
type EnumTable struct {
	name   string
	byCode map[int]EnumEntry
	byName map[string]EnumEntry
}

func newEnumTable(name string, entries ...EnumEntry) *EnumTable {
	t := &EnumTable{
		name:   name,
		byCode: make(map[int]EnumEntry, len(entries)),
		byName: make(map[string]EnumEntry, len(entries)),
	}
	for _, e := range entries {
		t.byCode[e.Code] = e
		t.byName[e.Name] = e
	}
	return t
}

func (t *EnumTable) Name() string {
	return t.name
}

func (t *EnumTable) Lookup(code int) (EnumEntry, error) {
	e, ok := t.byCode[code]
	if !ok {
		return EnumEntry{}, &UnknownCodeError{Table: t.name, Code: code}
	}
	return e, nil
}

func (t *EnumTable) CodeOf(name string) (int, error) {
	e, ok := t.byName[name]
	if !ok {
		return 0, &UnknownNameError{Table: t.name, Name: name}
	}
	return e.Code, nil
}

// Entries returns entries ordered by code.
func (t *EnumTable) Entries() []EnumEntry {
	out := make([]EnumEntry, 0, len(t.byCode))
	for _, e := range t.byCode {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Code < out[j].Code
	})
	return out
}

func (t *EnumTable) Len() int {
	return len(t.byCode)
}

var HeatingMode = newEnumTable("heating_mode",
	EnumEntry{0, "heating_off", "Heating off", "Turn off heating."},
	EnumEntry{1, "coolant_temp_constant", "Coolant temperature - Constant",
		"Maintain one target coolant temperature."},
	EnumEntry{2, "coolant_temp_daily_cycle", "Coolant temperature - Daily cycle",
		"Maintain two target coolant temperatures - for day and night."},
	EnumEntry{3, "coolant_temp_weekly_cycle", "Coolant temperature - Weekly cycle",
		"Maintain two target coolant temperatures - for day and night - for each day of the week."},
	EnumEntry{4, "coolant_temp_outdoor_air_temp", "Coolant temperature - Outdoor air temperature",
		"Calculate target coolant temperature from the outdoor air sensor; falls back to the min coolant setpoint on sensor failure."},
	EnumEntry{5, "remote", "Remote", "Remote control from WiFi or GSM module."},
)

var HeaterStatus = newEnumTable("heater_status",
	EnumEntry{0, "on", "On", "Heater is on and working."},
	EnumEntry{1, "off_standby", "Off - Standby", "Heater is off. Standby mode."},
	EnumEntry{2, "off_alarm_overheat", "Off - Alarm - Overheat", "Heater is off. Alarm. Overheat."},
	EnumEntry{3, "off_alarm_coolant_pressure_flow_sensor", "Off - Alarm - Coolant pressure or flow sensor",
		"Heater is off. Alarm. Check coolant pressure or flow sensor."},
	EnumEntry{4, "off_coolant_temp_no_setpoint", "Off - No target coolant temperature setpoint",
		"Heater is off. Target coolant temperature is not set."},
	EnumEntry{5, "off_indoor_air_temp_reached", "Off - Indoor air temperature reached",
		"Heater is off. Indoor air temperature is greater than threshold."},
	EnumEntry{6, "off_alarm_coolant_temp_sensor", "Off - Alarm - Coolant temperature sensor",
		"Heater is off. Alarm. Check coolant temperature sensor."},
	EnumEntry{7, "on_warning_indoor_air_temp_sensor", "On - Warning - Indoor air temperature sensor",
		"Heater is on. Check indoor air temperature sensor."},
	EnumEntry{8, "on_warning_outdoor_air_temp_sensor", "On - Warning - Outdoor air sensor",
		"Heater is on. Check outdoor air temperature sensor."},
	EnumEntry{9, "unknown_alarm_link", "Unknown - Alarm - Link down",
		"Heater status is unknown. Check WiFi module and heater connection."},
	EnumEntry{10, "unknown_alarm_battery", "Unknown - Alarm - Battery",
		"Heater status is unknown. Check WiFi module battery."},
)

var ClockWeekday = newEnumTable("clock_weekday",
	EnumEntry{Code: 1, Name: "monday"},
	EnumEntry{Code: 2, Name: "tuesday"},
	EnumEntry{Code: 3, Name: "wednesday"},
	EnumEntry{Code: 4, Name: "thursday"},
	EnumEntry{Code: 5, Name: "friday"},
	EnumEntry{Code: 6, Name: "saturday"},
	EnumEntry{Code: 7, Name: "sunday"},
)
