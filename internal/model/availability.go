package model

import (
	"bytes"
	"encoding/json"
)

// DefaultWindow is used when a doctor has no windows.
var DefaultWindow = AvailabilityWindow{StartHour: 9, EndHour: 17}

type AvailabilityWindow struct {
	StartHour int `json:"startHour"`
	EndHour   int `json:"endHour"`
}

// Contains reports whether hour lies in [StartHour, EndHour).
func (w AvailabilityWindow) Contains(hour int) bool {
	return hour >= w.StartHour && hour < w.EndHour
}

// Normalize clamps the hours into range and reports whether the window is usable.
func (w AvailabilityWindow) Normalize() (AvailabilityWindow, bool) {
	w.StartHour = clamp(w.StartHour, 0, 23)
	w.EndHour = clamp(w.EndHour, 1, 24)
	return w, w.EndHour > w.StartHour
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// AvailabilityWindows is a doctor's ordered window list.
//
// Older documents stored a single {startHour,endHour} object per doctor; it
// decodes into a one-element list.
type AvailabilityWindows []AvailabilityWindow

func (ws *AvailabilityWindows) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var single AvailabilityWindow
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return err
		}
		*ws = AvailabilityWindows{single}
		return nil
	}

	var list []AvailabilityWindow
	if err := json.Unmarshal(trimmed, &list); err != nil {
		return err
	}
	*ws = list
	return nil
}

// Sanitize clamps every window and drops the unusable ones.
func (ws AvailabilityWindows) Sanitize() AvailabilityWindows {
	out := make(AvailabilityWindows, 0, len(ws))
	for _, w := range ws {
		if n, ok := w.Normalize(); ok {
			out = append(out, n)
		}
	}
	return out
}

type AvailabilityWindowRequest struct {
	StartHour *int `json:"startHour" binding:"required"`
	EndHour   *int `json:"endHour" binding:"required"`
}

func (r AvailabilityWindowRequest) Window() AvailabilityWindow {
	return AvailabilityWindow{StartHour: *r.StartHour, EndHour: *r.EndHour}
}
