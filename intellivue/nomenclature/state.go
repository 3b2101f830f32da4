package nomenclature

// MeasurementState is the 16-bit flags field of a numeric observation,
// PIPG-76. The measurement is usable when the first octet is clear of the
// invalidity bits.
type MeasurementState uint16

const (
	StateInvalid            MeasurementState = 0x8000 // INVALID
	StateQuestionable       MeasurementState = 0x4000 // QUESTIONABLE
	StateUnavailable        MeasurementState = 0x2000 // UNAVAILABLE
	StateCalibrationOngoing MeasurementState = 0x1000 // CALIBRATION_ONGOING
	StateTestData           MeasurementState = 0x0800 // TEST_DATA
	StateDemoData           MeasurementState = 0x0400 // DEMO_DATA
	StateValidatedData      MeasurementState = 0x0080 // VALIDATED_DATA
	StateEarlyIndication    MeasurementState = 0x0040 // EARLY_INDICATION
	StateMsmtOngoing        MeasurementState = 0x0020 // MSMT_ONGOING
	StateMsmtInAlarm        MeasurementState = 0x0002 // MSMT_STATE_IN_ALARM
	StateMsmtAlInhibited    MeasurementState = 0x0001 // MSMT_STATE_AL_INHIBITED
)

// stateFlags is ordered most-significant bit first so FlagNames output is
// stable.
var stateFlags = []struct {
	bit  MeasurementState
	name string
}{
	{StateInvalid, "INVALID"},
	{StateQuestionable, "QUESTIONABLE"},
	{StateUnavailable, "UNAVAILABLE"},
	{StateCalibrationOngoing, "CALIBRATION_ONGOING"},
	{StateTestData, "TEST_DATA"},
	{StateDemoData, "DEMO_DATA"},
	{0x0200, "MEASUREMENT_STATE_UNDEFINED1"},
	{0x0100, "MEASUREMENT_STATE_UNDEFINED2"},
	{StateValidatedData, "VALIDATED_DATA"},
	{StateEarlyIndication, "EARLY_INDICATION"},
	{StateMsmtOngoing, "MSMT_ONGOING"},
	{0x0010, "MEASUREMENT_STATE_UNDEFINED3"},
	{0x0008, "MEASUREMENT_STATE_UNDEFINED4"},
	{0x0004, "MEASUREMENT_STATE_UNDEFINED5"},
	{StateMsmtInAlarm, "MSMT_STATE_IN_ALARM"},
	{StateMsmtAlInhibited, "MSMT_STATE_AL_INHIBITED"},
}

// FlagNames returns the names of every set flag, highest bit first.
func (s MeasurementState) FlagNames() []string {
	var names []string
	for _, f := range stateFlags {
		if s&f.bit != 0 {
			names = append(names, f.name)
		}
	}
	return names
}

// Valid reports whether a measurement in this state is usable, PIPG-77:
// none of INVALID, QUESTIONABLE, UNAVAILABLE, CALIBRATION_ONGOING set.
func (s MeasurementState) Valid() bool {
	return s < 0x1000
}
