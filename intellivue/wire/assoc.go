package wire

import "github.com/openvitals/einstein/intellivue/nomenclature"

// Association user info constants (PIPG-57..60).
const (
	MDDLVersion1 = 0x80000000 // protocol_version MDDL_VERSION1
	NomenVersion = 0x40000000 // nomenclature_version NOMEN_VERSION
	SystClient   = 0x80000000 // system_type SYST_CLIENT
	HotStart     = 0x80000000 // startup_mode HOT_START

	PollProfileRev0 = 0x80000000 // poll_profile_revision

	POptDynCreateObjects = 0x40000000
	POptDynDeleteObjects = 0x20000000

	// PollProfileExt option bits: which poll periods and object types the
	// client wants the monitor to serve.
	PollExtPeriodNu1Sec = 0x80000000
	PollExtPeriodRtsa   = 0x08000000
	PollExtEnum         = 0x04000000
)

// PollProfileExt selects the extended poll options (PIPG-60). Nested inside
// the poll profile as attribute NOM_ATTR_POLL_PROFILE_EXT.
type PollProfileExt struct {
	Options  uint32
	ExtAttrs AttributeList
}

func (p PollProfileExt) encodeValue() []byte { return p.Encode() }

func (p PollProfileExt) Encode() []byte {
	var w builder
	w.u32(p.Options)
	w.bytes(p.ExtAttrs.Encode())
	return w.out()
}

// PollProfileSupport advertises the client's poll capabilities (PIPG-58).
// Carried as attribute NOM_POLL_PROFILE_SUPPORT in the association request.
type PollProfileSupport struct {
	Revision      uint32
	MinPollPeriod uint32 // RelativeTime, 125us units
	MaxMtuRx      uint32
	MaxMtuTx      uint32
	MaxBwTx       uint32
	Options       uint32
	OptionalPkgs  AttributeList
}

func (p PollProfileSupport) encodeValue() []byte { return p.Encode() }

func (p PollProfileSupport) Encode() []byte {
	var w builder
	w.u32(p.Revision)
	w.u32(p.MinPollPeriod)
	w.u32(p.MaxMtuRx)
	w.u32(p.MaxMtuTx)
	w.u32(p.MaxBwTx)
	w.u32(p.Options)
	w.bytes(p.OptionalPkgs.Encode())
	return w.out()
}

// MDSEUserInfoStd is the user data block of the association request
// (PIPG-57).
type MDSEUserInfoStd struct {
	ProtocolVersion     uint32
	NomenclatureVersion uint32
	FunctionalUnits     uint32
	SystemType          uint32
	StartupMode         uint32
	OptionList          AttributeList
	SupportedAProfiles  AttributeList
}

func (p MDSEUserInfoStd) Encode() []byte {
	var w builder
	w.u32(p.ProtocolVersion)
	w.u32(p.NomenclatureVersion)
	w.u32(p.FunctionalUnits)
	w.u32(p.SystemType)
	w.u32(p.StartupMode)
	w.bytes(p.OptionList.Encode())
	w.bytes(p.SupportedAProfiles.Encode())
	return w.out()
}

// defaultUserInfo is the profile this gateway requests: numerics at the
// one-second extended poll period, plus real-time sample arrays and
// enumerations should a consumer ever subscribe to them.
func defaultUserInfo() MDSEUserInfoStd {
	ext := PollProfileExt{
		Options: PollExtPeriodNu1Sec | PollExtPeriodRtsa | PollExtEnum,
	}
	support := PollProfileSupport{
		Revision:      PollProfileRev0,
		MinPollPeriod: 0x1F40, // 1s in 125us units
		MaxMtuRx:      1456,
		MaxMtuTx:      1456,
		MaxBwTx:       0xFFFFFFFF,
		Options:       POptDynCreateObjects | POptDynDeleteObjects,
		OptionalPkgs: AttributeList{Attributes: []AVAType{{
			AttributeID: nomenclature.NOMAttrPollProfileExt,
			Value:       ext,
		}}},
	}
	return MDSEUserInfoStd{
		ProtocolVersion:     MDDLVersion1,
		NomenclatureVersion: NomenVersion,
		SystemType:          SystClient,
		StartupMode:         HotStart,
		SupportedAProfiles: AttributeList{Attributes: []AVAType{{
			AttributeID: nomenclature.NOMPollProfileSupport,
			Value:       support,
		}}},
	}
}

// assocSessionData is the fixed session requirements block that follows the
// CN header (PIPG-299).
var assocSessionData = []byte{
	0x05, 0x08, 0x13, 0x01, 0x00, 0x16, 0x01, 0x02,
	0x80, 0x00, 0x14, 0x02, 0x00, 0x02,
}

// assocPresentationPrefix is the presentation-layer preamble of the
// association request, carried verbatim up to the user data octet string
// (PIPG-299). The indefinite-form constructors are closed by the matching
// end-of-contents pairs in assocPresentationTrailer.
var assocPresentationPrefix = []byte{
	0xC1, 0x00, // LI patched on build
	0x31, 0x80, 0xA0, 0x80, 0x80, 0x01, 0x01, 0x00, 0x00,
	0xA2, 0x80, 0xA0, 0x03, 0x00, 0x00, 0x01,
	0xA4, 0x23,
	0x30, 0x0F, 0x02, 0x01, 0x01, 0x06, 0x04, 0x52, 0x01, 0x00, 0x01,
	0x30, 0x04, 0x06, 0x02, 0x51, 0x01,
	0x30, 0x10, 0x02, 0x01, 0x02, 0x06, 0x05, 0x28, 0xC9, 0x01, 0x00, 0x01,
	0x30, 0x04, 0x06, 0x02, 0x51, 0x01,
	0x61, 0x80, 0x30, 0x80, 0x02, 0x01, 0x01,
	0xA0, 0x80, 0x60, 0x80, 0xA1, 0x80,
	0x06, 0x0C, 0x2A, 0x86, 0x48, 0xCE, 0x14, 0x02, 0x01, 0x00, 0x00, 0x00, 0x01, 0x01,
	0x00, 0x00,
	0xBE, 0x80, 0x28, 0x80,
	0x06, 0x0C, 0x2A, 0x86, 0x48, 0xCE, 0x14, 0x02, 0x01, 0x00, 0x00, 0x00, 0x02, 0x01,
	0x02, 0x81,
}

var assocPresentationTrailer = []byte{
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// AssociationRequest builds the CN_SPDU that asks a monitor for an
// association with this gateway's poll profile.
func AssociationRequest() []byte {
	userData := defaultUserInfo().Encode()

	var pres builder
	pres.bytes(assocPresentationPrefix[:1])
	body := append([]byte{}, assocPresentationPrefix[2:]...)
	body = append(body, EncodeASNLength(len(userData))...)
	body = append(body, userData...)
	body = append(body, assocPresentationTrailer...)
	pres.bytes(EncodeLI(len(body)))
	pres.bytes(body)

	payload := append(append([]byte{}, assocSessionData...), pres.out()...)

	var w builder
	w.u8(SessionConnect)
	w.bytes(EncodeLI(len(payload)))
	w.bytes(payload)
	return w.out()
}

// ReleaseRequest is the fixed FN_SPDU that tears an association down
// (PIPG-301).
var ReleaseRequest = []byte{
	0x09, 0x18, 0xC1, 0x16, 0x61, 0x80, 0x30, 0x80, 0x02, 0x01, 0x01,
	0xA0, 0x80, 0x62, 0x80, 0x80, 0x01, 0x00, 0x00, 0x00, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
}
