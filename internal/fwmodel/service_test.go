// Copyright (C) 2026 Linuxfabrik <info@linuxfabrik.ch>. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package fwmodel

import "testing"

func TestServiceContains(t *testing.T) {
	tests := []struct {
		name string
		sup  *Service
		sub  *Service
		want bool
	}{
		{
			name: "tcp superset port range contains single port",
			sup:  &Service{Kind: ServiceTCP, DstRangeStart: 1, DstRangeEnd: 1024},
			sub:  &Service{Kind: ServiceTCP, DstRangeStart: 80, DstRangeEnd: 80},
			want: true,
		},
		{
			name: "tcp does not contain udp",
			sup:  &Service{Kind: ServiceTCP, DstRangeStart: 1, DstRangeEnd: 65535},
			sub:  &Service{Kind: ServiceUDP, DstRangeStart: 53, DstRangeEnd: 53},
			want: false,
		},
		{
			name: "any icmp shadows specific type",
			sup:  &Service{Kind: ServiceICMP, ICMPType: -1},
			sub:  &Service{Kind: ServiceICMP, ICMPType: 8},
			want: true,
		},
		{
			name: "specific icmp does not shadow different type",
			sup:  &Service{Kind: ServiceICMP, ICMPType: 8},
			sub:  &Service{Kind: ServiceICMP, ICMPType: 0},
			want: false,
		},
		{
			name: "fully open ip-protocol service shadows any specific service",
			sup:  &Service{Kind: ServiceIP, ProtocolNum: 0},
			sub:  &Service{Kind: ServiceTCP, DstRangeStart: 443, DstRangeEnd: 443},
			want: true,
		},
		{
			name: "0/0 and 0/65535 both normalize to any",
			sup:  &Service{Kind: ServiceTCP, DstRangeStart: 0, DstRangeEnd: 0},
			sub:  &Service{Kind: ServiceTCP, DstRangeStart: 0, DstRangeEnd: 65535},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ServiceContains(tt.sup, tt.sub)
			if got != tt.want {
				t.Errorf("ServiceContains() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestServiceIsAny(t *testing.T) {
	tests := []struct {
		name string
		svc  *Service
		want bool
	}{
		{"tcp zero range is any", &Service{Kind: ServiceTCP}, true},
		{"tcp with dst port is not any", &Service{Kind: ServiceTCP, DstRangeStart: 80, DstRangeEnd: 80}, false},
		{"icmp with negative type is any", &Service{Kind: ServiceICMP, ICMPType: -1}, true},
		{"icmp with type set is not any", &Service{Kind: ServiceICMP, ICMPType: 8}, false},
		{"ip protocol zero is any", &Service{Kind: ServiceIP, ProtocolNum: 0}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.svc.IsAny(); got != tt.want {
				t.Errorf("IsAny() = %v, want %v", got, tt.want)
			}
		})
	}
}
