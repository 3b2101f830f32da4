package nomenclature_test

import (
	"reflect"
	"testing"

	"github.com/openvitals/einstein/intellivue/nomenclature"
)

func TestName_PartitionQualified(t *testing.T) {
	cases := []struct {
		part nomenclature.Partition
		code uint16
		want string
	}{
		{nomenclature.PartObj, 61696, "NOM_ATTR_NET_ADDR_INFO"},
		{nomenclature.PartSCADA, 61696, "NOM_SAT_O2_VEN_CENT"},
		{nomenclature.PartSCADA, 19384, "NOM_PULS_OXIM_SAT_O2"},
		{nomenclature.PartDim, 544, "NOM_DIM_PERCENT"},
		{nomenclature.PartEvt, 3334, "NOM_NOTI_MDS_CREAT"},
		{nomenclature.PartObj, 33, "NOM_MOC_VMS_MDS"},
	}
	for _, tc := range cases {
		if got := nomenclature.Name(tc.part, tc.code); got != tc.want {
			t.Errorf("Name(%v, %d) = %q, want %q", tc.part, tc.code, got, tc.want)
		}
	}
}

func TestName_UnknownCodeKeepsRawValue(t *testing.T) {
	got := nomenclature.Name(nomenclature.PartSCADA, 12345)
	if got != "OID(NOM_PART_SCADA, 12345)" {
		t.Errorf("unknown code = %q", got)
	}
}

func TestCode_RoundTrip(t *testing.T) {
	code, ok := nomenclature.Code(nomenclature.PartObj, "NOM_ATTR_NU_VAL_OBS")
	if !ok || code != 2384 {
		t.Fatalf("Code(NOM_ATTR_NU_VAL_OBS) = %d, %v", code, ok)
	}
	if _, ok := nomenclature.Code(nomenclature.PartDim, "NOM_ATTR_NU_VAL_OBS"); ok {
		t.Error("attribute name resolved in the dimension partition")
	}
}

func TestLookup_PrefersSCADA(t *testing.T) {
	// 61696 is overloaded across the object and SCADA partitions; the
	// unqualified lookup must pick SCADA, never silently the other.
	if got := nomenclature.Lookup(61696); got != "NOM_SAT_O2_VEN_CENT" {
		t.Errorf("Lookup(61696) = %q, want NOM_SAT_O2_VEN_CENT", got)
	}
	if got := nomenclature.Lookup(544); got != "NOM_DIM_PERCENT" {
		t.Errorf("Lookup(544) = %q", got)
	}
}

func TestMeasurementState_Valid(t *testing.T) {
	cases := []struct {
		state nomenclature.MeasurementState
		want  bool
	}{
		{0x0000, true},
		{0x0080, true}, // VALIDATED_DATA
		{0x0800, true}, // TEST_DATA does not invalidate
		{0x0FFF, true},
		{0x1000, false}, // CALIBRATION_ONGOING
		{0x2000, false},
		{0x4000, false},
		{0x8000, false},
	}
	for _, tc := range cases {
		if got := tc.state.Valid(); got != tc.want {
			t.Errorf("state %#04x Valid() = %v, want %v", uint16(tc.state), got, tc.want)
		}
	}
}

func TestMeasurementState_FlagNames(t *testing.T) {
	s := nomenclature.StateValidatedData | nomenclature.StateMsmtOngoing
	want := []string{"VALIDATED_DATA", "MSMT_ONGOING"}
	if got := s.FlagNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("FlagNames() = %v, want %v", got, want)
	}
	if got := nomenclature.MeasurementState(0).FlagNames(); got != nil {
		t.Errorf("FlagNames(0) = %v, want nil", got)
	}
}
