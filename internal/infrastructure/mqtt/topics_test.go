package mqtt

import "testing"

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		got    func(Topics) string
		want   string
	}{
		{"reading", "meteo", func(t Topics) string { return t.Reading("internalTemperature") }, "meteo/reading/internalTemperature"},
		{"reading sanitized", "meteo", func(t Topics) string { return t.Reading("a/b+c#") }, "meteo/reading/a_b_c_"},
		{"all readings", "meteo", func(t Topics) string { return t.AllReadings() }, "meteo/reading/+"},
		{"status", "meteo", func(t Topics) string { return t.Status() }, "meteo/status"},
		{"custom prefix", "/station/roof/", func(t Topics) string { return t.Status() }, "station/roof/status"},
		{"empty prefix", "", func(t Topics) string { return t.Status() }, "meteo/status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.got(NewTopics(tt.prefix)); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTopics_ZeroValue(t *testing.T) {
	if got := (Topics{}).Reading("x"); got != "meteo/reading/x" {
		t.Errorf("zero Topics Reading() = %q, want default prefix", got)
	}
}
