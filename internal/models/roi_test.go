package models

import "testing"

func TestHectares(t *testing.T) {
	cases := []struct {
		name     string
		metadata string
		want     float64
		ok       bool
	}{
		{"area_ha", `{"area_ha": 35.2}`, 35.2, true},
		{"area_total_ha fallback", `{"area_total_ha": 420}`, 420, true},
		{"area_ha wins over total", `{"area_ha": 10, "area_total_ha": 420}`, 10, true},
		{"zero is unusable", `{"area_ha": 0}`, 0, false},
		{"negative is unusable", `{"area_ha": -3}`, 0, false},
		{"non-numeric is unusable", `{"area_ha": "big"}`, 0, false},
		{"no area keys", `{"variety": "RB867515"}`, 0, false},
		{"empty metadata", ``, 0, false},
		{"malformed metadata", `{"area_ha":`, 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			roi := &ROI{Metadata: tc.metadata}
			got, ok := roi.Hectares()
			if ok != tc.ok || got != tc.want {
				t.Errorf("got (%v, %v), want (%v, %v)", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestTerminal(t *testing.T) {
	for status, want := range map[string]bool{
		JobPending:    false,
		JobProcessing: false,
		JobCompleted:  true,
		JobFailed:     true,
	} {
		j := &AnalysisJob{Status: status}
		if j.Terminal() != want {
			t.Errorf("%s: Terminal() = %v, want %v", status, j.Terminal(), want)
		}
	}
}
