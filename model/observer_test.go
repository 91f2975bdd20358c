package model

import "testing"

func TestObserverValidate(t *testing.T) {
	cases := []struct {
		name    string
		obs     Observer
		wantErr bool
	}{
		{name: "ok", obs: Observer{Latitude: 40.7, Longitude: -74, DurationMinutes: 10}},
		{name: "one day", obs: Observer{DurationMinutes: DefaultMaxDurationMinutes}},
		{name: "latitude", obs: Observer{Latitude: 91, DurationMinutes: 10}, wantErr: true},
		{name: "longitude", obs: Observer{Longitude: -181, DurationMinutes: 10}, wantErr: true},
		{name: "zero window", obs: Observer{}, wantErr: true},
		{name: "window too long", obs: Observer{DurationMinutes: DefaultMaxDurationMinutes + 1}, wantErr: true},
		{name: "huge window", obs: Observer{DurationMinutes: 10_000_000}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.obs.Validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestObserverValidateWithin(t *testing.T) {
	obs := Observer{DurationMinutes: 30}
	if err := obs.ValidateWithin(30); err != nil {
		t.Fatalf("30 minutes within 30: %v", err)
	}
	if err := obs.ValidateWithin(29); err == nil {
		t.Fatalf("30 minutes within 29 should fail")
	}
}
