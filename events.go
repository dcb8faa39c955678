package onvif

// eventStyle decides how a topic's data is turned into consumer calls
type eventStyle int

const (
	styleMotion eventStyle = iota
	styleAudio
	styleLineCrossing
	styleAlarm
)

type eventRoute struct {
	style eventStyle
	kind  AlarmKind
}

var eventRoutes = buildEventRoutes()

func buildEventRoutes() map[string]eventRoute {
	routes := map[string]eventRoute{
		"RuleEngine/CellMotionDetector/Motion":   {styleMotion, CellMotionAlarm},
		"VideoSource/MotionAlarm":                {styleMotion, MotionAlarm},
		"AudioAnalytics/Audio/DetectedSound":     {styleAudio, ""},
		"RuleEngine/FieldDetector/ObjectsInside": {styleMotion, FieldDetectionAlarm},
		"RuleEngine/LineDetector/Crossed":        {styleLineCrossing, LineCrossingAlarm},
		"RuleEngine/TamperDetector/Tamper":       {styleAlarm, TamperAlarm},
		"Device/HardwareFailure/StorageFailure":  {styleAlarm, StorageAlarm},
	}
	// Image quality topics come from whichever service detected them
	quality := map[string]AlarmKind{
		"ImageTooDark":      TooDarkAlarm,
		"GlobalSceneChange": SceneChangeAlarm,
		"ImageTooBright":    TooBrightAlarm,
		"ImageTooBlurry":    TooBlurryAlarm,
	}
	for name, kind := range quality {
		for _, svc := range []string{"AnalyticsService", "ImagingService", "RecordingService"} {
			routes["VideoSource/"+name+"/"+svc] = eventRoute{styleAlarm, kind}
		}
	}
	return routes
}

// routeEvent returns the consumer call for one event, or nil when the topic is
// unknown or the value is neither "true" nor "false"
func routeEvent(c Consumer, topic, dataName, dataValue string) func() {
	route, ok := eventRoutes[topic]
	if !ok {
		return nil
	}

	if route.style == styleLineCrossing {
		if dataName == "ObjectId" {
			return func() { c.MotionDetected(route.kind) }
		}
		return func() { c.NoMotionDetected(route.kind) }
	}

	var on bool
	switch dataValue {
	case "true":
		on = true
	case "false":
	default:
		return nil
	}

	switch route.style {
	case styleMotion:
		if on {
			return func() { c.MotionDetected(route.kind) }
		}
		return func() { c.NoMotionDetected(route.kind) }
	case styleAudio:
		if on {
			return c.AudioDetected
		}
		return c.NoAudioDetected
	}
	return func() { c.ChangeAlarmState(route.kind, on) }
}

// eventReceivedLocked dispatches a PullMessages reply or a pushed Notify. Any message
// proves the subscription is alive, so a renew follows every one of them.
func (s *Session) eventReceivedLocked(msg string, st *step) {
	topic := ExtractField(msg, "Topic", "tns1:")
	dataName := ExtractField(msg, "tt:Data", `Name="`)
	dataValue := ExtractField(msg, "tt:Data", `Value="`)
	if topic != "" {
		s.log.Debug().Str("topic", topic).Str("data", dataName).Str("value", dataValue).Msg("event")
	}

	if f := routeEvent(s.consumer, topic, dataName, dataValue); f != nil {
		st.notify(f)
	}
	st.send(OpRenew, serviceSubscription)
}
