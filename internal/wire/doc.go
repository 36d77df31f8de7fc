// Package wire defines the on-the-wire formats of the relay.
//
// Control records travel over a stream as frames: a 4-byte big-endian length
// followed by a JSON object whose "type" field selects the record kind.
// Media records are single JSON objects, one per datagram, unframed.
package wire
