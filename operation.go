package onvif

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// Operation is one request in the catalog
type Operation int

const (
	OpAbsoluteMove Operation = iota
	OpAddPTZConfiguration
	OpContinuousMoveLeft
	OpContinuousMoveRight
	OpContinuousMoveUp
	OpContinuousMoveDown
	OpStop
	OpContinuousMoveIn
	OpContinuousMoveOut
	OpCreatePullPointSubscription
	OpGetCapabilities
	OpGetDeviceInformation
	OpGetProfiles
	OpGetServiceCapabilities
	OpGetSnapshotUri
	OpGetStreamUri
	OpGetSystemDateAndTime
	OpSubscribe
	OpUnsubscribe
	OpPullMessages
	OpGetEventProperties
	OpRelativeMoveLeft
	OpRelativeMoveRight
	OpRelativeMoveUp
	OpRelativeMoveDown
	OpRelativeMoveIn
	OpRelativeMoveOut
	OpRenew
	OpGetConfigurations
	OpGetConfigurationOptions
	OpGetConfiguration
	OpSetConfiguration
	OpGetNodes
	OpGetStatus
	OpGotoPreset
	OpGetPresets
	operationCount
)

var operationNames = [operationCount]string{
	"AbsoluteMove",
	"AddPTZConfiguration",
	"ContinuousMoveLeft",
	"ContinuousMoveRight",
	"ContinuousMoveUp",
	"ContinuousMoveDown",
	"Stop",
	"ContinuousMoveIn",
	"ContinuousMoveOut",
	"CreatePullPointSubscription",
	"GetCapabilities",
	"GetDeviceInformation",
	"GetProfiles",
	"GetServiceCapabilities",
	"GetSnapshotUri",
	"GetStreamUri",
	"GetSystemDateAndTime",
	"Subscribe",
	"Unsubscribe",
	"PullMessages",
	"GetEventProperties",
	"RelativeMoveLeft",
	"RelativeMoveRight",
	"RelativeMoveUp",
	"RelativeMoveDown",
	"RelativeMoveIn",
	"RelativeMoveOut",
	"Renew",
	"GetConfigurations",
	"GetConfigurationOptions",
	"GetConfiguration",
	"SetConfiguration",
	"GetNodes",
	"GetStatus",
	"GotoPreset",
	"GetPresets",
}

func (op Operation) String() string {
	if op < 0 || op >= operationCount {
		return "Operation(" + strconv.Itoa(int(op)) + ")"
	}
	return operationNames[op]
}

// ParseOperation maps a catalog name, case-insensitively, to its Operation
func ParseOperation(name string) (Operation, error) {
	for i, n := range operationNames {
		if strings.EqualFold(n, name) {
			return Operation(i), nil
		}
	}
	return 0, errors.NotValidf("operation %q", name)
}

// addressed reports whether the request carries WS-Addressing headers
func (op Operation) addressed() bool {
	switch op {
	case OpCreatePullPointSubscription, OpPullMessages, OpRenew, OpUnsubscribe:
		return true
	}
	return false
}

// authenticated reports whether the request carries WS-Security. Time sync must stay
// anonymous so a camera with a skewed clock can still be reached.
func (op Operation) authenticated() bool {
	return op != OpGetSystemDateAndTime
}

const (
	nsDevice = "http://www.onvif.org/ver10/device/wsdl"
	nsMedia  = "http://www.onvif.org/ver10/media/wsdl"
	nsPTZ    = "http://www.onvif.org/ver20/ptz/wsdl"
	nsEvents = "http://www.onvif.org/ver10/events/wsdl"
	nsSchema = "http://www.onvif.org/ver10/schema"
	nsWSN    = "http://docs.oasis-open.org/wsn/b-2"

	panTiltPositionSpace = "http://www.onvif.org/ver10/tptz/PanTiltSpaces/PositionGenericSpace"
	zoomPositionSpace    = "http://www.onvif.org/ver10/tptz/ZoomSpaces/PositionGenericSpace"
	panTiltSpeedSpace    = "http://www.onvif.org/ver10/tptz/PanTiltSpaces/GenericSpeedSpace"
	zoomSpeedSpace       = "http://www.onvif.org/ver10/tptz/ZoomSpaces/ZoomGenericSpeedSpace"

	subscriptionTermination = "PT600S"
	renewTermination        = "PT1M"
	pullTimeout             = "PT8S"
)

// bodyContext is the live state operation templates draw from. Empty tokens mean the
// camera has not reported them yet.
type bodyContext struct {
	profileToken string
	presetToken  string
	nodeToken    string
	configToken  string
	callbackURL  string
	pan          float64
	tilt         float64
	zoom         float64
}

// buildBody renders the SOAP body for op. Templates whose prerequisites are missing
// return a NotFound error so callers can skip the request instead of sending it.
func buildBody(op Operation, bc bodyContext) (string, error) {
	profile := func() (string, error) {
		if bc.profileToken == "" {
			return "", errors.NotFoundf("media profile token for %s", op)
		}
		return escapeXML(bc.profileToken), nil
	}

	switch op {
	case OpAbsoluteMove:
		token, err := profile()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(`<AbsoluteMove xmlns="%s"><ProfileToken>%s</ProfileToken><Position>`+
			`<PanTilt x="%s" y="%s" space="%s"></PanTilt><Zoom x="%s" space="%s"></Zoom></Position>`+
			`<Speed><PanTilt x="0.1" y="0.1" space="%s"></PanTilt><Zoom x="1.0" space="%s"></Zoom></Speed></AbsoluteMove>`,
			nsPTZ, token, formatFloat(bc.pan), formatFloat(bc.tilt), panTiltPositionSpace,
			formatFloat(bc.zoom), zoomPositionSpace, panTiltSpeedSpace, zoomSpeedSpace), nil

	case OpAddPTZConfiguration:
		token, err := profile()
		if err != nil {
			return "", err
		}
		if bc.configToken == "" {
			return "", errors.NotFoundf("PTZ configuration token")
		}
		return fmt.Sprintf(`<AddPTZConfiguration xmlns="%s"><ProfileToken>%s</ProfileToken>`+
			`<ConfigurationToken>%s</ConfigurationToken></AddPTZConfiguration>`,
			nsPTZ, token, escapeXML(bc.configToken)), nil

	case OpContinuousMoveLeft, OpContinuousMoveRight, OpContinuousMoveUp, OpContinuousMoveDown,
		OpContinuousMoveIn, OpContinuousMoveOut:
		token, err := profile()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(`<ContinuousMove xmlns="%s"><ProfileToken>%s</ProfileToken>`+
			`<Velocity>%s</Velocity></ContinuousMove>`, nsPTZ, token, continuousVelocity[op]), nil

	case OpStop:
		token, err := profile()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(`<Stop xmlns="%s"><ProfileToken>%s</ProfileToken>`+
			`<PanTilt>true</PanTilt><Zoom>true</Zoom></Stop>`, nsPTZ, token), nil

	case OpRelativeMoveLeft, OpRelativeMoveRight, OpRelativeMoveUp, OpRelativeMoveDown,
		OpRelativeMoveIn, OpRelativeMoveOut:
		token, err := profile()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(`<RelativeMove xmlns="%s"><ProfileToken>%s</ProfileToken>`+
			`<Translation>%s</Translation></RelativeMove>`, nsPTZ, token, relativeTranslation[op]), nil

	case OpCreatePullPointSubscription:
		return fmt.Sprintf(`<CreatePullPointSubscription xmlns="%s"><InitialTerminationTime>%s</InitialTerminationTime>`+
			`</CreatePullPointSubscription>`, nsEvents, subscriptionTermination), nil

	case OpGetCapabilities:
		return fmt.Sprintf(`<GetCapabilities xmlns="%s"><Category>All</Category></GetCapabilities>`, nsDevice), nil

	case OpGetDeviceInformation:
		return fmt.Sprintf(`<GetDeviceInformation xmlns="%s"/>`, nsDevice), nil

	case OpGetProfiles:
		return fmt.Sprintf(`<GetProfiles xmlns="%s"/>`, nsMedia), nil

	case OpGetServiceCapabilities:
		return fmt.Sprintf(`<GetServiceCapabilities xmlns="%s"></GetServiceCapabilities>`, nsEvents), nil

	case OpGetSnapshotUri:
		token, err := profile()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(`<GetSnapshotUri xmlns="%s"><ProfileToken>%s</ProfileToken></GetSnapshotUri>`,
			nsMedia, token), nil

	case OpGetStreamUri:
		token, err := profile()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(`<GetStreamUri xmlns="%s"><StreamSetup><Stream xmlns="%s">RTP-Unicast</Stream>`+
			`<Transport xmlns="%s"><Protocol>RTSP</Protocol></Transport></StreamSetup>`+
			`<ProfileToken>%s</ProfileToken></GetStreamUri>`, nsMedia, nsSchema, nsSchema, token), nil

	case OpGetSystemDateAndTime:
		return fmt.Sprintf(`<GetSystemDateAndTime xmlns="%s"/>`, nsDevice), nil

	case OpSubscribe:
		if bc.callbackURL == "" {
			return "", errors.NotFoundf("event callback address")
		}
		return fmt.Sprintf(`<Subscribe xmlns="%s"><ConsumerReference><Address>%s</Address>`+
			`</ConsumerReference></Subscribe>`, nsWSN, escapeXML(bc.callbackURL)), nil

	case OpUnsubscribe:
		return fmt.Sprintf(`<Unsubscribe xmlns="%s"></Unsubscribe>`, nsWSN), nil

	case OpPullMessages:
		return fmt.Sprintf(`<PullMessages xmlns="%s"><Timeout>%s</Timeout><MessageLimit>1</MessageLimit>`+
			`</PullMessages>`, nsEvents, pullTimeout), nil

	case OpGetEventProperties:
		return fmt.Sprintf(`<GetEventProperties xmlns="%s"/>`, nsEvents), nil

	case OpRenew:
		return fmt.Sprintf(`<Renew xmlns="%s"><TerminationTime>%s</TerminationTime></Renew>`,
			nsWSN, renewTermination), nil

	case OpGetConfigurations:
		return fmt.Sprintf(`<GetConfigurations xmlns="%s"></GetConfigurations>`, nsPTZ), nil

	case OpGetConfigurationOptions:
		if bc.configToken == "" {
			return "", errors.NotFoundf("PTZ configuration token")
		}
		return fmt.Sprintf(`<GetConfigurationOptions xmlns="%s"><ConfigurationToken>%s</ConfigurationToken>`+
			`</GetConfigurationOptions>`, nsPTZ, escapeXML(bc.configToken)), nil

	case OpGetConfiguration:
		if bc.configToken == "" {
			return "", errors.NotFoundf("PTZ configuration token")
		}
		return fmt.Sprintf(`<GetConfiguration xmlns="%s"><PTZConfigurationToken>%s</PTZConfigurationToken>`+
			`</GetConfiguration>`, nsPTZ, escapeXML(bc.configToken)), nil

	case OpSetConfiguration:
		if bc.nodeToken == "" {
			return "", errors.NotFoundf("PTZ node token")
		}
		return fmt.Sprintf(`<SetConfiguration xmlns="%s"><PTZConfiguration><NodeToken>%s</NodeToken>`+
			`<DefaultAbsolutePantTiltPositionSpace>AbsolutePanTiltPositionSpace</DefaultAbsolutePantTiltPositionSpace>`+
			`<DefaultAbsoluteZoomPositionSpace>AbsoluteZoomPositionSpace</DefaultAbsoluteZoomPositionSpace>`+
			`</PTZConfiguration></SetConfiguration>`, nsPTZ, escapeXML(bc.nodeToken)), nil

	case OpGetNodes:
		return fmt.Sprintf(`<GetNodes xmlns="%s"></GetNodes>`, nsPTZ), nil

	case OpGetStatus:
		token, err := profile()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(`<GetStatus xmlns="%s"><ProfileToken>%s</ProfileToken></GetStatus>`, nsPTZ, token), nil

	case OpGotoPreset:
		token, err := profile()
		if err != nil {
			return "", err
		}
		if bc.presetToken == "" {
			return "", errors.NotFoundf("preset token")
		}
		return fmt.Sprintf(`<GotoPreset xmlns="%s"><ProfileToken>%s</ProfileToken>`+
			`<PresetToken>%s</PresetToken></GotoPreset>`, nsPTZ, token, escapeXML(bc.presetToken)), nil

	case OpGetPresets:
		token, err := profile()
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(`<GetPresets xmlns="%s"><ProfileToken>%s</ProfileToken></GetPresets>`, nsPTZ, token), nil
	}

	return "", errors.NotSupportedf("operation %s", op)
}

var continuousVelocity = map[Operation]string{
	OpContinuousMoveLeft:  `<PanTilt x="-0.5" y="0" xmlns="` + nsSchema + `"/>`,
	OpContinuousMoveRight: `<PanTilt x="0.5" y="0" xmlns="` + nsSchema + `"/>`,
	OpContinuousMoveUp:    `<PanTilt x="0" y="-0.5" xmlns="` + nsSchema + `"/>`,
	OpContinuousMoveDown:  `<PanTilt x="0" y="0.5" xmlns="` + nsSchema + `"/>`,
	OpContinuousMoveIn:    `<Zoom x="0.5" xmlns="` + nsSchema + `"/>`,
	OpContinuousMoveOut:   `<Zoom x="-0.5" xmlns="` + nsSchema + `"/>`,
}

var relativeTranslation = map[Operation]string{
	OpRelativeMoveLeft:  `<PanTilt x="0.05000000" y="0" xmlns="` + nsSchema + `"/>`,
	OpRelativeMoveRight: `<PanTilt x="-0.05000000" y="0" xmlns="` + nsSchema + `"/>`,
	OpRelativeMoveUp:    `<PanTilt x="0" y="0.100000000" xmlns="` + nsSchema + `"/>`,
	OpRelativeMoveDown:  `<PanTilt x="0" y="-0.100000000" xmlns="` + nsSchema + `"/>`,
	OpRelativeMoveIn:    `<Zoom x="0.0240506344" xmlns="` + nsSchema + `"/>`,
	OpRelativeMoveOut:   `<Zoom x="-0.0240506344" xmlns="` + nsSchema + `"/>`,
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
