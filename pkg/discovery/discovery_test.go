package discovery

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntry(instance, host string, port int, txt []string, addrs ...string) *zeroconf.ServiceEntry {
	e := &zeroconf.ServiceEntry{ServiceRecord: zeroconf.ServiceRecord{Instance: instance, Service: ServiceType, Domain: Domain}}
	e.HostName = host
	e.Port = port
	e.Text = txt
	for _, a := range addrs {
		ip := net.ParseIP(a)
		if ip.To4() != nil {
			e.AddrIPv4 = append(e.AddrIPv4, ip)
		} else {
			e.AddrIPv6 = append(e.AddrIPv6, ip)
		}
	}
	return e
}

func TestServerTXTRoundTrip(t *testing.T) {
	info := &ServerInfo{Path: "/push", TLS: true, Version: 1}
	txt := EncodeServerTXT(info)
	assert.Equal(t, []string{"path=/push", "tls=1", "ver=1"}, TXTRecordsToStrings(txt))

	decoded, err := DecodeServerTXT(StringsToTXTRecords(TXTRecordsToStrings(txt)))
	require.NoError(t, err)
	assert.Equal(t, info, decoded)
}

func TestDecodeServerTXT(t *testing.T) {
	tests := []struct {
		name    string
		txt     []string
		want    ServerInfo
		wantErr bool
	}{
		{"defaults", nil, ServerInfo{Path: DefaultPath, Version: 1}, false},
		{"flag only", []string{"tls"}, ServerInfo{Path: DefaultPath, TLS: true, Version: 1}, false},
		{"explicit plain", []string{"tls=0", "path=/p"}, ServerInfo{Path: "/p", Version: 1}, false},
		{"uppercase key", []string{"TLS=true"}, ServerInfo{Path: DefaultPath, TLS: true, Version: 1}, false},
		{"bad tls", []string{"tls=maybe"}, ServerInfo{}, true},
		{"bad version", []string{"ver=x"}, ServerInfo{}, true},
		{"zero version", []string{"ver=0"}, ServerInfo{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeServerTXT(StringsToTXTRecords(tt.txt))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTXT)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestPushServiceURL(t *testing.T) {
	tests := []struct {
		name    string
		svc     PushService
		want    string
		wantErr error
	}{
		{
			name: "host name",
			svc:  PushService{InstanceName: "office", Host: "clips.local.", Port: 8443, ServerInfo: ServerInfo{TLS: true, Version: 1}},
			want: "wss://clips.local:8443/ws",
		},
		{
			name: "custom path without slash",
			svc:  PushService{Host: "clips.local.", Port: 443, ServerInfo: ServerInfo{Path: "rt", TLS: true, Version: 1}},
			want: "wss://clips.local:443/rt",
		},
		{
			name: "ipv6 fallback",
			svc:  PushService{Port: 8443, Addresses: []string{"fe80::1"}, ServerInfo: ServerInfo{TLS: true, Version: 1}},
			want: "wss://[fe80::1]:8443/ws",
		},
		{
			name:    "plain service",
			svc:     PushService{InstanceName: "lab", Host: "lab.local.", Port: 80, ServerInfo: ServerInfo{Version: 1}},
			wantErr: ErrInsecureService,
		},
		{
			name:    "future version",
			svc:     PushService{Host: "x.local.", Port: 1, ServerInfo: ServerInfo{TLS: true, Version: 9}},
			wantErr: ErrUnsupportedVersion,
		},
		{
			name:    "no address",
			svc:     PushService{Port: 1, ServerInfo: ServerInfo{TLS: true, Version: 1}},
			wantErr: ErrNoAddress,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.svc.URL()
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "err = %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAggregateMergesAddresses(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	out := make(chan *PushService, 4)
	go aggregate(ctx, entries, removed, out, "")

	entries <- newEntry("office", "clips.local.", 8443, []string{"tls=1"}, "192.168.1.10")
	entries <- newEntry("office", "clips.local.", 8443, []string{"tls=1"}, "fe80::10", "192.168.1.10")
	entries <- newEntry("broken", "b.local.", 1, []string{"ver=zero"}, "192.168.1.11")
	entries <- newEntry("lab", "lab.local.", 80, []string{"tls=0"}, "192.168.1.12")
	close(entries)

	var got []*PushService
	for svc := range out {
		got = append(got, svc)
	}
	require.Len(t, got, 2, "duplicate and invalid entries are not emitted")
	assert.Equal(t, "office", got[0].InstanceName)
	assert.Equal(t, []string{"192.168.1.10", "fe80::10"}, got[0].Addresses)
	assert.True(t, got[0].TLS)
	assert.Equal(t, "lab", got[1].InstanceName)
	assert.False(t, got[1].TLS)
}

func TestAggregateFiltersInstance(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry, 2)
	out := make(chan *PushService, 2)
	entries <- newEntry("office", "o.local.", 1, []string{"tls"}, "10.0.0.1")
	entries <- newEntry("home", "h.local.", 1, []string{"tls"}, "10.0.0.2")
	close(entries)

	aggregate(ctx, entries, nil, out, "home")

	svc := <-out
	require.NotNil(t, svc)
	assert.Equal(t, "home", svc.InstanceName)
	_, open := <-out
	assert.False(t, open)
}

func TestRemoveAddresses(t *testing.T) {
	entry := newEntry("office", "", 0, nil, "10.0.0.1")
	got := removeAddresses([]string{"10.0.0.1", "10.0.0.2"}, entry)
	assert.Equal(t, []string{"10.0.0.2"}, got)
}

func TestFirstSecure(t *testing.T) {
	services := make(chan *PushService, 3)
	services <- &PushService{InstanceName: "plain"}
	services <- &PushService{InstanceName: "secure", ServerInfo: ServerInfo{TLS: true}}
	close(services)

	svc, err := firstSecure(context.Background(), services)
	require.NoError(t, err)
	assert.Equal(t, "secure", svc.InstanceName)

	empty := make(chan *PushService)
	close(empty)
	_, err = firstSecure(context.Background(), empty)
	assert.ErrorIs(t, err, ErrNotFound)
}
