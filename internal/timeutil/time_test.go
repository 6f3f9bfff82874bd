package timeutil

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"
)

func TestParseInt64Timeutil(t *testing.T) {
	var tt Time
	b := []byte(`1675277158`)
	err := json.Unmarshal(b, &tt)
	if err != nil {
		t.Fatalf("error while parsing: %+v\n", err)
	}
	if string(b) != strconv.FormatInt(tt.Time().Unix(), 10) {
		t.Fatalf("wanted: %+v, got: %+v\n", string(b), tt.Time().Unix())
	}
}
func TestParseStringTimeutil(t *testing.T) {
	var tt Time
	b := []byte(`"2023-01-01T12:00:00+00:00"`)
	err := json.Unmarshal(b, &tt)
	if err != nil {
		t.Fatalf("error while parsing: %+v\n", err)
	}
	ttf := tt.Time().Format(`"2006-01-02T15:04:05-07:00"`)
	if string(b) != ttf {
		t.Fatalf("wanted: %+v, got: %+v\n", string(b), ttf)
	}
}

func TestRoundTripTimeutil(t *testing.T) {
	want := Time(time.Date(2024, 3, 1, 10, 30, 0, 125000000, time.UTC))
	b, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("error while marshaling: %+v\n", err)
	}
	var got Time
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("error while parsing: %+v\n", err)
	}
	if !got.Time().Equal(want.Time()) {
		t.Fatalf("wanted: %+v, got: %+v\n", want.Time(), got.Time())
	}
}

func TestZeroTimeutil(t *testing.T) {
	b, err := json.Marshal(Time{})
	if err != nil {
		t.Fatalf("error while marshaling: %+v\n", err)
	}
	if string(b) != "null" {
		t.Fatalf("wanted: null, got: %s\n", b)
	}
	var tt Time
	if err := json.Unmarshal(b, &tt); err != nil || !tt.IsZero() {
		t.Fatalf("expected a zero time, got %v (%v)", tt.Time(), err)
	}
}
