package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSessionTransport(t *testing.T) {
	cases := []struct {
		serial string
		want   Transport
	}{
		{"R58M123ABC", TransportUSB},
		{"emulator-5554", TransportUSB},
		{"192.168.1.42:5555", TransportNetwork},
		{"adb-R58M123ABC-xyz._adb-tls-connect._tcp", TransportNetwork},
		{"adb-R58M123ABC-xyz._adb._tcp.", TransportNetwork},
	}
	for _, tc := range cases {
		s := Session{Serial: tc.serial, State: StateDevice}
		assert.Equal(t, tc.want, s.Transport(), tc.serial)
	}
}

func TestSessionHostPort(t *testing.T) {
	host, port, ok := Session{Serial: "10.0.0.9:5555"}.HostPort()
	assert.True(t, ok)
	assert.Equal(t, "10.0.0.9", host)
	assert.Equal(t, 5555, port)

	_, _, ok = Session{Serial: "R58M123ABC"}.HostPort()
	assert.False(t, ok)
}

func TestEndpointString(t *testing.T) {
	assert.Equal(t, "10.0.0.9:5555", Endpoint{Host: "10.0.0.9", Port: 5555}.String())
	assert.True(t, Endpoint{}.IsZero())
}
