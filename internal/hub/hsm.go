package hub

// AlarmState is a canonical Hub Safety Monitor command state.
type AlarmState string

// Canonical HSM states accepted by the Maker API's /hsm/{state} endpoint.
const (
	AlarmArmHome      AlarmState = "armHome"
	AlarmArmAway      AlarmState = "armAway"
	AlarmArmNight     AlarmState = "armNight"
	AlarmDisarm       AlarmState = "disarm"
	AlarmDisarmAll    AlarmState = "disarmAll"
	AlarmCancelAlerts AlarmState = "cancelAlerts"

	// AlarmStateInvalid is the sentinel for input that matches no known
	// synonym. Invalid input is never silently mapped to a real state.
	AlarmStateInvalid AlarmState = "invalid"
)

// alarmSynonyms maps every textual variant the hub and its users produce
// to the canonical state. The table is fixed; additions need evidence from
// hub behaviour, not guesswork.
var alarmSynonyms = map[string]AlarmState{
	"stay":      AlarmArmHome,
	"armHome":   AlarmArmHome,
	"armhome":   AlarmArmHome,
	"armedHome": AlarmArmHome,
	"armedhome": AlarmArmHome,

	"away":      AlarmArmAway,
	"armAway":   AlarmArmAway,
	"armaway":   AlarmArmAway,
	"armedAway": AlarmArmAway,
	"armedaway": AlarmArmAway,

	"night":      AlarmArmNight,
	"armNight":   AlarmArmNight,
	"armnight":   AlarmArmNight,
	"armedNight": AlarmArmNight,
	"armednight": AlarmArmNight,

	"off":      AlarmDisarm,
	"disarm":   AlarmDisarm,
	"disarmed": AlarmDisarm,

	"disarmAll":   AlarmDisarmAll,
	"disarmall":   AlarmDisarmAll,
	"allDisarmed": AlarmDisarmAll,
	"alldisarmed": AlarmDisarmAll,

	"cancelAlerts": AlarmCancelAlerts,
}

// NormalizeAlarmState maps a textual HSM state to its canonical form.
// Unknown input returns AlarmStateInvalid.
func NormalizeAlarmState(value string) AlarmState {
	if state, ok := alarmSynonyms[value]; ok {
		return state
	}
	return AlarmStateInvalid
}

// HSM event names routed to the hsm topic. Other hsm-prefixed names are
// ignored rather than guessed at.
var hsmEventNames = map[string]struct{}{
	"hsmStatus": {},
	"hsmAlert":  {},
	"hsmRules":  {},
}

// IsHSMEventName reports whether name is a recognised HSM event.
func IsHSMEventName(name string) bool {
	_, ok := hsmEventNames[name]
	return ok
}
