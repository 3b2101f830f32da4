// Package nomenclature is the registry for the Philips identifier space.
//
// Identifiers (OIDTypes) are 16-bit values whose meaning depends on the
// partition they are read in: 61696 is NOM_ATTR_NET_ADDR_INFO in the object
// partition but NOM_SAT_O2_VEN_CENT in the SCADA partition. Lookups for
// display must therefore be partition-qualified wherever the enclosing
// context fixes the partition; Lookup exists for the few positions where it
// does not.
package nomenclature

import "fmt"

// Partition identifies one of the independent OIDType value ranges, PIPG-37.
type Partition uint16

const (
	PartObj         Partition = 1 // NOM_PART_OBJ
	PartSCADA       Partition = 2 // NOM_PART_SCADA
	PartEvt         Partition = 3 // NOM_PART_EVT
	PartDim         Partition = 4 // NOM_PART_DIM
	PartPGrp        Partition = 6 // NOM_PART_PGRP
	PartInfrastruct Partition = 8 // NOM_PART_INFRASTRUCT
)

// String returns the symbolic partition name.
func (p Partition) String() string {
	switch p {
	case PartObj:
		return "NOM_PART_OBJ"
	case PartSCADA:
		return "NOM_PART_SCADA"
	case PartEvt:
		return "NOM_PART_EVT"
	case PartDim:
		return "NOM_PART_DIM"
	case PartPGrp:
		return "NOM_PART_PGRP"
	case PartInfrastruct:
		return "NOM_PART_INFRASTRUCT"
	default:
		return fmt.Sprintf("NOM_PART_Unknown(%d)", uint16(p))
	}
}

// Object partition: managed object classes, attribute ids, attribute groups.
const (
	NOMPollProfileSupport  = 1     // NOM_POLL_PROFILE_SUPPORT
	NOMMocVmoMetricNu      = 6     // NOM_MOC_VMO_METRIC_NU
	NOMMocVmsMds           = 33    // NOM_MOC_VMS_MDS
	NOMAttrGrpMetricValObs = 2051  // NOM_ATTR_GRP_METRIC_VAL_OBS
	NOMAttrIDLabel         = 2340  // NOM_ATTR_ID_LABEL
	NOMAttrNuValObs        = 2384  // NOM_ATTR_NU_VAL_OBS
	NOMAttrSysID           = 2359  // NOM_ATTR_SYS_ID
	NOMAttrTimeStampAbs    = 2448  // NOM_ATTR_TIME_STAMP_ABS
	NOMAttrPollProfileExt  = 61441 // NOM_ATTR_POLL_PROFILE_EXT
	NOMAttrNetAddrInfo     = 61696 // NOM_ATTR_NET_ADDR_INFO
)

// SCADA partition: physiological identifiers.
const (
	NOMECGCardBeatRate        = 16770 // NOM_ECG_CARD_BEAT_RATE
	NOMECGVPCCnt              = 16993 // NOM_ECG_V_P_C_CNT
	NOMPlethPulsRate          = 18466 // NOM_PLETH_PULS_RATE
	NOMPulsOximPerfRel        = 19376 // NOM_PULS_OXIM_PERF_REL
	NOMPulsOximSatO2          = 19384 // NOM_PULS_OXIM_SAT_O2
	NOMRespRate               = 20490 // NOM_RESP_RATE
	NOMSatO2ToneFreq          = 61448 // NOM_SAT_O2_TONE_FREQ
	NOMPressBldNoninvPulsRate = 61669 // NOM_PRESS_BLD_NONINV_PULS_RATE
	NOMSatO2VenCent           = 61696 // NOM_SAT_O2_VEN_CENT (collides with NOM_ATTR_NET_ADDR_INFO)
)

// Event partition: notifications and actions.
const (
	NOMActPollMdibData    = 3094  // NOM_ACT_POLL_MDIB_DATA
	NOMNotiMdsCreat       = 3334  // NOM_NOTI_MDS_CREAT
	NOMNotiConnIndic      = 3351  // NOM_NOTI_CONN_INDIC (a.k.a. NOM_NOTI_MDS_CONNECT_INDIC)
	NOMActPollMdibDataExt = 61755 // NOM_ACT_POLL_MDIB_DATA_EXT
)

// Dimension partition: units of measure.
const (
	NOMDimPercent    = 544  // NOM_DIM_PERCENT
	NOMDimBeatPerMin = 2720 // NOM_DIM_BEAT_PER_MIN
	NOMDimRespPerMin = 2784 // NOM_DIM_RESP_PER_MIN
	NOMDimHz         = 2496 // NOM_DIM_HZ
	NOMDimDimless    = 512  // NOM_DIM_DIMLESS
)

// Infrastructure partition: device subsystems.
const (
	NOMDevPulsVmd = 5138 // NOM_DEV_PULS_VMD
)

var partitionNames = map[Partition]map[uint16]string{
	PartObj: {
		NOMPollProfileSupport:  "NOM_POLL_PROFILE_SUPPORT",
		NOMMocVmoMetricNu:      "NOM_MOC_VMO_METRIC_NU",
		NOMMocVmsMds:           "NOM_MOC_VMS_MDS",
		NOMAttrGrpMetricValObs: "NOM_ATTR_GRP_METRIC_VAL_OBS",
		NOMAttrIDLabel:         "NOM_ATTR_ID_LABEL",
		NOMAttrSysID:           "NOM_ATTR_SYS_ID",
		NOMAttrNuValObs:        "NOM_ATTR_NU_VAL_OBS",
		NOMAttrTimeStampAbs:    "NOM_ATTR_TIME_STAMP_ABS",
		NOMAttrPollProfileExt:  "NOM_ATTR_POLL_PROFILE_EXT",
		NOMAttrNetAddrInfo:     "NOM_ATTR_NET_ADDR_INFO",
	},
	PartSCADA: {
		NOMECGCardBeatRate:        "NOM_ECG_CARD_BEAT_RATE",
		NOMECGVPCCnt:              "NOM_ECG_V_P_C_CNT",
		NOMPlethPulsRate:          "NOM_PLETH_PULS_RATE",
		NOMPulsOximPerfRel:        "NOM_PULS_OXIM_PERF_REL",
		NOMPulsOximSatO2:          "NOM_PULS_OXIM_SAT_O2",
		NOMRespRate:               "NOM_RESP_RATE",
		NOMSatO2ToneFreq:          "NOM_SAT_O2_TONE_FREQ",
		NOMPressBldNoninvPulsRate: "NOM_PRESS_BLD_NONINV_PULS_RATE",
		NOMSatO2VenCent:           "NOM_SAT_O2_VEN_CENT",
	},
	PartEvt: {
		NOMActPollMdibData:    "NOM_ACT_POLL_MDIB_DATA",
		NOMNotiMdsCreat:       "NOM_NOTI_MDS_CREAT",
		NOMNotiConnIndic:      "NOM_NOTI_CONN_INDIC",
		NOMActPollMdibDataExt: "NOM_ACT_POLL_MDIB_DATA_EXT",
	},
	PartDim: {
		NOMDimDimless:    "NOM_DIM_DIMLESS",
		NOMDimPercent:    "NOM_DIM_PERCENT",
		NOMDimHz:         "NOM_DIM_HZ",
		NOMDimBeatPerMin: "NOM_DIM_BEAT_PER_MIN",
		NOMDimRespPerMin: "NOM_DIM_RESP_PER_MIN",
	},
	PartPGrp: {},
	PartInfrastruct: {
		NOMDevPulsVmd: "NOM_DEV_PULS_VMD",
	},
}

// codesByName is the reverse index, built once at init.
var codesByName = func() map[Partition]map[string]uint16 {
	out := make(map[Partition]map[string]uint16, len(partitionNames))
	for p, names := range partitionNames {
		rev := make(map[string]uint16, len(names))
		for code, name := range names {
			rev[name] = code
		}
		out[p] = rev
	}
	return out
}()

// Name returns the symbolic name of code within partition p. Unknown codes
// format as "OID(partition, code)" so raw values survive into logs and
// payloads instead of disappearing.
func Name(p Partition, code uint16) string {
	if name, ok := partitionNames[p][code]; ok {
		return name
	}
	return fmt.Sprintf("OID(%s, %d)", p, code)
}

// Code returns the numeric identifier for name within partition p.
func Code(p Partition, name string) (uint16, bool) {
	code, ok := codesByName[p][name]
	return code, ok
}

// lookupOrder fixes the partition preference for unqualified lookups.
// SCADA first: the unqualified positions in this gateway are physio and
// unit ids inside NuObsValue, and physio ids live in SCADA.
var lookupOrder = []Partition{PartSCADA, PartDim, PartObj, PartEvt, PartInfrastruct, PartPGrp}

// Lookup resolves code without a partition, preferring SCADA for overloaded
// values. Use Name wherever the enclosing record fixes the partition; this
// exists only for positions where it does not (legacy callers and logs).
func Lookup(code uint16) string {
	for _, p := range lookupOrder {
		if name, ok := partitionNames[p][code]; ok {
			return name
		}
	}
	return fmt.Sprintf("OID(%d)", code)
}

// UnitName resolves a unit-of-measure code (dimension partition).
func UnitName(code uint16) string { return Name(PartDim, code) }

// PhysioName resolves a physiological identifier (SCADA partition).
func PhysioName(code uint16) string { return Name(PartSCADA, code) }
