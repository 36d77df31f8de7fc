package core

import "net/netip"

// MediaSender writes one datagram to a media endpoint.
type MediaSender interface {
	SendTo(data []byte, to netip.AddrPort) error
}

// MediaHandler receives every datagram read from the media socket.
type MediaHandler interface {
	OnDatagram(src netip.AddrPort, data []byte)
}
