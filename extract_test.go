package onvif

import (
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
)

func TestExtractField(t *testing.T) {
	tests := []struct {
		name          string
		xml           string
		containingTag string
		key           string
		want          string
	}{
		{
			name:          "attribute value",
			xml:           `<tptz:PTZNode token="node0" FixedHomePosition="true">`,
			containingTag: "PTZNode",
			key:           `token="`,
			want:          "node0",
		},
		{
			name:          "element text",
			xml:           `<tt:Media><tt:XAddr>http://10.0.0.5/onvif/media</tt:XAddr></tt:Media>`,
			containingTag: "<tt:Media",
			key:           "tt:XAddr>",
			want:          "http://10.0.0.5/onvif/media",
		},
		{
			name:          "key searched after the containing tag only",
			xml:           `<a token="first"/><b token="second"/>`,
			containingTag: "<b",
			key:           `token="`,
			want:          "second",
		},
		{
			name:          "empty containing tag anchors at start",
			xml:           `<x token="t1"/>`,
			containingTag: "",
			key:           `token="`,
			want:          "t1",
		},
		{
			name:          "missing containing tag",
			xml:           `<a token="x"/>`,
			containingTag: "<b",
			key:           `token="`,
			want:          "",
		},
		{
			name:          "missing key",
			xml:           `<b name="x"/>`,
			containingTag: "<b",
			key:           `token="`,
			want:          "",
		},
		{
			name:          "key before containing tag is ignored",
			xml:           `<a token="x"/><b/>`,
			containingTag: "<b",
			key:           `token="`,
			want:          "",
		},
		{
			name:          "unterminated value",
			xml:           `<b token="abc`,
			containingTag: "<b",
			key:           `token="`,
			want:          "",
		},
		{
			name:          "empty input",
			xml:           "",
			containingTag: "<b",
			key:           `token="`,
			want:          "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractField(tt.xml, tt.containingTag, tt.key))
		})
	}
}

func TestExtractList(t *testing.T) {
	presets := `<tptz:GetPresetsResponse>` +
		`<tptz:Preset token="1"><tt:Name>Door</tt:Name></tptz:Preset>` +
		`<tptz:Preset token="2"><tt:Name>Yard</tt:Name></tptz:Preset>` +
		`<tptz:Preset token="3"><tt:Name>Gate</tt:Name></tptz:Preset>` +
		`</tptz:GetPresetsResponse>`

	assert.Equal(t, []string{"1", "2", "3"}, ExtractList(presets, "<tptz:Preset", `token="`))
	assert.Equal(t, []string{"Door", "Yard", "Gate"}, ExtractList(presets, "<tptz:Preset", "<tt:Name>"))
}

func TestExtractListStopsAtFirstBlockWithoutKey(t *testing.T) {
	xml := `<tptz:Preset token="1"><tt:Name>Door</tt:Name></tptz:Preset>` +
		`<tptz:Preset token="2"></tptz:Preset>` +
		`<tptz:Preset token="3"><tt:Name>Gate</tt:Name></tptz:Preset>`

	assert.Equal(t, []string{"Door"}, ExtractList(xml, "<tptz:Preset", "<tt:Name>"))
	assert.Equal(t, []string{"1", "2", "3"}, ExtractList(xml, "<tptz:Preset", `token="`))
}

func TestExtractListEmpty(t *testing.T) {
	assert.Empty(t, ExtractList("<nothing/>", "<tptz:Preset", `token="`))
	assert.Empty(t, ExtractList(`<tptz:Preset token="1">`, "", `token="`))
}

func TestStripHost(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"http://192.168.1.10:8080/onvif/device_service", "/onvif/device_service"},
		{"http://camera.local/onvif/ptz", "/onvif/ptz"},
		{"rtsp://user:pw@10.0.0.1:554/stream1?x=1", "/stream1?x=1"},
		{"/onvif/media", "/onvif/media"},
		{"http://192.168.1.10", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, StripHost(tt.url))
		})
	}
}

func TestEscapeXML(t *testing.T) {
	assert.Equal(t, "a&amp;b&lt;c&gt;&quot;d&quot;&apos;", escapeXML(`a&b<c>"d"'`))
}

func TestParseSOAPFault(t *testing.T) {
	assert.NoError(t, parseSOAPFault([]byte(`<s:Envelope><s:Body><ok/></s:Body></s:Envelope>`)))

	err := parseSOAPFault([]byte(`<s:Fault><s:Code><s:Subcode><s:Value>ter:NotAuthorized</s:Value></s:Subcode></s:Code></s:Fault>`))
	assert.True(t, errors.IsUnauthorized(err))

	err = parseSOAPFault([]byte(`<env:Fault><env:Code><env:Value>ter:ActionNotSupported</env:Value></env:Code></env:Fault>`))
	assert.True(t, errors.IsNotSupported(err))

	err = parseSOAPFault([]byte(`<s:Fault><s:Code><s:Value>ter:NoProfile</s:Value></s:Code></s:Fault>`))
	assert.True(t, errors.IsNotFound(err))

	err = parseSOAPFault([]byte(`<s:Fault><s:Reason><s:Text xml:lang="en">Invalid argument</s:Text></s:Reason></s:Fault>`))
	assert.EqualError(t, err, "SOAP fault: Invalid argument")

	err = parseSOAPFault([]byte(`<SOAP-ENV:Fault><faultstring>bad things</faultstring></SOAP-ENV:Fault>`))
	assert.EqualError(t, err, "SOAP fault: bad things")
}

func TestExtractBetweenTags(t *testing.T) {
	assert.Equal(t, "Acme", extractBetweenTags(`<tds:Manufacturer>Acme</tds:Manufacturer>`, "Manufacturer"))
	assert.Equal(t, "Acme", extractBetweenTags(`<Manufacturer>Acme</Manufacturer>`, "Manufacturer"))
	assert.Equal(t, "", extractBetweenTags(`<Model>x</Model>`, "Manufacturer"))
}
