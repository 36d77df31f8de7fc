package orch

import (
	"errors"
	"fmt"

	"github.com/dkeye/confrelay/internal/app"
	"github.com/dkeye/confrelay/internal/domain"
	"github.com/dkeye/confrelay/internal/wire"
	"github.com/rs/zerolog/log"
)

// AnnounceFile registers a file offered by user and announces it to the
// rest of the session. A missing sender is filled with the registered name.
func (o *Orchestrator) AnnounceFile(user domain.User, m *wire.FileInfo, frame []byte) {
	if m.Sender == "" {
		m.Sender = user.Username
		frame = wire.MustEncode(m)
	}
	o.Files.Announce(domain.SharedFile{
		Name:    m.Filename,
		Size:    m.Filesize,
		Owner:   user.ID,
		Sender:  m.Sender,
		Session: user.Session,
	})
	o.broadcastReliable(user.Session, frame, user.ID)
}

// RequestDownload forwards a download request to the file's owner with the
// requester attached, or answers the requester with file_error.
func (o *Orchestrator) RequestDownload(user domain.User, m *wire.FileRequest) {
	file, err := o.Files.Lookup(user.Session, m.Filename)
	if err == nil {
		if _, ok := o.Registry.Conn(file.Owner); !ok {
			o.Files.Drop(user.Session, m.Filename)
			err = app.ErrOwnerDisconnected
		}
	}
	if err != nil {
		log.Info().Err(err).Str("module", "app.orch").Str("client", string(user.ID)).Str("file", m.Filename).Msg("file request failed")
		o.sendTo(user.ID, &wire.FileError{Filename: m.Filename, Message: fileErrorMessage(m.Filename, err)})
		return
	}
	log.Info().Str("module", "app.orch").Str("file", m.Filename).Str("requester", string(user.ID)).Str("owner", string(file.Owner)).Msg("forwarding file request")
	o.sendTo(file.Owner, &wire.FileRequest{Filename: m.Filename, Requester: string(user.ID)})
}

// RouteChunk passes a file_chunk or file_end through to its requester.
// Records without a requester are upload progress and stop here.
func (o *Orchestrator) RouteChunk(user domain.User, filename, requester string, frame []byte) {
	if requester == "" {
		log.Debug().Str("module", "app.orch").Str("client", string(user.ID)).Str("file", filename).Msg("upload record")
		return
	}
	id := domain.ClientID(requester)
	conn, ok := o.Registry.Conn(id)
	if !ok {
		log.Info().Str("module", "app.orch").Str("file", filename).Str("requester", requester).Msg("requester gone, chunk dropped")
		return
	}
	if err := conn.Send(frame); err != nil {
		o.deliveryFailed(id, err)
	}
}

func fileErrorMessage(filename string, err error) string {
	switch {
	case errors.Is(err, app.ErrFileIncomplete):
		return "File information is incomplete"
	case errors.Is(err, app.ErrOwnerDisconnected):
		return "File owner is no longer connected"
	default:
		return fmt.Sprintf("File %s is not available", filename)
	}
}
